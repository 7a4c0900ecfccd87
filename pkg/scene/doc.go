// Package scene holds the live 3D scene: spatial nodes and edges, their
// render resources, and the two-state activation machine that drives their
// appearance.
//
// A Scene is owned by the animation loop goroutine. Other goroutines hand it
// work through Enqueue (activation diffs) and Builder.RequestRefresh (new
// graph generations); both are applied at the start of the next executed
// tick, so a rendered frame never shows a half-applied diff.
package scene

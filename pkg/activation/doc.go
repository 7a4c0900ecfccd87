// Package activation models the set of node ids an external controller has
// marked active, the order-independent comparison between two such sets, and
// the versioned Store that owns the authoritative copy.
package activation

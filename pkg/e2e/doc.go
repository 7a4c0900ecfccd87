// Package e2e holds end-to-end tests that run the authority, the
// reconciler and a headless scene together in one process.
package e2e

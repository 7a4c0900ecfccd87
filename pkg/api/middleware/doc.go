// Package middleware provides the HTTP middleware of the authority API.
//
// Every middleware has the shape func(http.Handler) http.Handler and Chain
// composes them outermost first:
//
//	handler := middleware.Chain(mux,
//		middleware.PanicRecovery(logger),
//		middleware.RequestID(),
//		middleware.Logging(logger),
//		middleware.Metrics(reg),
//		middleware.CORS(middleware.DefaultCORSConfig()),
//		middleware.BodySizeLimit(1<<20),
//	)
//
// RequireRole guards individual routes rather than the whole mux.
package middleware

import "net/http"

// Chain wraps h so that mws[0] runs first.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

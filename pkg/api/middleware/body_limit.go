package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// writeError answers with the {error, message, code} body the API handlers
// use, so clients see one error shape whichever layer rejected the request.
func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":   http.StatusText(code),
		"message": msg,
		"code":    code,
	})
}

// BodySizeLimit caps request bodies at maxBytes. A declared Content-Length
// over the cap is refused before the handler runs; undeclared bodies are
// wrapped in http.MaxBytesReader and fail on read. Bodiless methods pass
// through untouched.
func BodySizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		limit := "request body exceeds " + strconv.FormatInt(maxBytes, 10) + " bytes"
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > maxBytes {
				writeError(w, http.StatusRequestEntityTooLarge, limit)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

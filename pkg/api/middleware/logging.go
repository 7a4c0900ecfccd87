package middleware

import (
	"net/http"
	"time"

	"github.com/dd0wney/cluso-synapse/pkg/logging"
)

// Logging logs one line per request. 5xx log at error, 4xx at warn, the
// rest at debug so status polling stays quiet.
func Logging(logger logging.Logger) func(http.Handler) http.Handler {
	logger = logging.ForComponent(logger, "http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := wrap(w)
			next.ServeHTTP(rw, r)

			fields := []logging.Field{
				logging.String("method", r.Method),
				logging.Path(r.URL.Path),
				logging.Int("status", rw.statusCode),
				logging.Int("bytes", rw.bytesWritten),
				logging.Latency(time.Since(start)),
			}
			if id := GetRequestID(r); id != "" {
				fields = append(fields, logging.RequestID(id))
			}

			switch {
			case rw.statusCode >= 500:
				logger.Error("request failed", fields...)
			case rw.statusCode >= 400:
				logger.Warn("request rejected", fields...)
			default:
				logger.Debug("request served", fields...)
			}
		})
	}
}

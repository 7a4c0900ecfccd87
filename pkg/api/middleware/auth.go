package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/dd0wney/cluso-synapse/pkg/auth"
	"github.com/dd0wney/cluso-synapse/pkg/logging"
)

// ClaimsContextKey holds the validated *auth.Claims.
const ClaimsContextKey ContextKey = "claims"

// GetClaims returns the claims attached by RequireRole.
func GetClaims(r *http.Request) (*auth.Claims, bool) {
	c, ok := r.Context().Value(ClaimsContextKey).(*auth.Claims)
	return c, ok
}

// AuthFailureRecorder counts rejected requests.
type AuthFailureRecorder interface {
	RecordAuthFailure()
}

// RequireRole demands a bearer token accepted by validator whose role is one
// of roles. A nil validator lets every request through; auth is then
// disabled for the deployment.
func RequireRole(validator auth.TokenValidator, logger logging.Logger, failures AuthFailureRecorder, roles ...string) func(http.Handler) http.Handler {
	logger = logging.ForComponent(logger, "auth")
	return func(next http.Handler) http.Handler {
		if validator == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reject := func(code int, msg string, err error) {
				if failures != nil {
					failures.RecordAuthFailure()
				}
				logger.Warn("request rejected",
					logging.Path(r.URL.Path),
					logging.RequestID(GetRequestID(r)),
					logging.Error(err),
				)
				if code == http.StatusUnauthorized {
					w.Header().Set("WWW-Authenticate", `Bearer realm="synapse"`)
				}
				writeError(w, code, msg)
			}

			token, ok := bearerToken(r)
			if !ok {
				reject(http.StatusUnauthorized, "missing bearer token", errors.New("no bearer token"))
				return
			}
			claims, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, auth.ErrExpiredToken) {
					msg = "token expired"
				}
				reject(http.StatusUnauthorized, msg, err)
				return
			}
			if len(roles) > 0 && !slices.Contains(roles, claims.Role) {
				reject(http.StatusForbidden, "role "+claims.Role+" may not perform this action", auth.ErrForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

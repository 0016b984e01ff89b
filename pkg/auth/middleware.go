package auth

import (
	"net/http"

	apperrors "defensebook/pkg/errors"
	httputil "defensebook/pkg/http"
	"defensebook/pkg/logger"
)

// Authenticate resolves the bearer token into an Actor stored on the request
// context. Requests without a valid token are answered with 401.
func Authenticate(verifier *TokenVerifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				reject(w, log, r, "Missing bearer token")
				return
			}

			actor, err := verifier.Verify(raw)
			if err != nil {
				log.Warn("Rejected bearer token", "path", r.URL.Path, "error", err)
				reject(w, log, r, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func reject(w http.ResponseWriter, log *logger.Logger, r *http.Request, message string) {
	if err := httputil.WriteError(w, apperrors.Unauthorized(message)); err != nil {
		log.Error("failed to write error response", "middleware", "Authenticate", "path", r.URL.Path, "error", err)
	}
}

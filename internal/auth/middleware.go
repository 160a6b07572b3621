package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

type contextKey string

const claimsKey contextKey = "auth.claims"

// UserFromContext returns the claims Middleware attached to the request.
func UserFromContext(ctx context.Context) (*UserClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*UserClaims)
	return claims, ok
}

// WithClaims returns a context carrying the given claims. Mainly for tests.
func WithClaims(ctx context.Context, claims *UserClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// Middleware verifies the bearer token on every request and injects the
// resulting claims into the request context. Requests without a valid
// token get a 401.
func Middleware(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r.Header.Get("Authorization"))
			if err != nil {
				unauthorized(w, err.Error())
				return
			}

			claims, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				logger.Warn("token verification failed", "error", err)
				unauthorized(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// localDevUID is the fixed identity used when authentication is disabled.
const localDevUID = "local-dev-user"

// LocalDevMiddleware skips token verification and injects a fixed local
// user. Only wired when the server runs with auth disabled.
func LocalDevMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	logger.Warn("authentication disabled, using local development identity", "uid", localDevUID)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := &UserClaims{
				UID:      localDevUID,
				Email:    "dev@localhost",
				Verified: true,
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

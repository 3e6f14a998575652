package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"inkwell/internal/domain"
	"inkwell/internal/identity"
)

type authContextKey struct{}

// Auth is the authorization gate. It resolves the bearer credential to a
// principal, determines plan membership, and for free-plan principals loads
// the free_usage counter from the ledger, initializing it to zero on first
// observation. The resulting AuthContext is attached to the request context.
//
// Every failure (missing header, bad token, provider or ledger unreachable)
// produces the same 401 response so callers cannot distinguish a bad
// credential from provider state.
func Auth(verifier identity.TokenVerifier, ledger identity.UsageLedger, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w)
				return
			}
			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logger.Debug().Err(err).Msg("session verification failed")
				unauthorized(w)
				return
			}
			auth := domain.AuthContext{
				UserID: claims.UserID(),
				Plan:   domain.PlanFree,
			}
			if claims.HasPlan(identity.PlanPro) {
				auth.Plan = domain.PlanPro
			} else {
				usage, found, err := ledger.Get(r.Context(), auth.UserID)
				if err != nil {
					logger.Error().Err(err).Str("user_id", auth.UserID).Msg("usage ledger read failed")
					unauthorized(w)
					return
				}
				if !found {
					// First touch: write zero durably before serving. A pro
					// user demoted to free restarts at zero on purpose.
					if err := ledger.Reset(r.Context(), auth.UserID); err != nil {
						logger.Error().Err(err).Str("user_id", auth.UserID).Msg("usage ledger init failed")
						unauthorized(w)
						return
					}
					usage = 0
				}
				auth.FreeUsage = usage
			}
			ctx := context.WithValue(r.Context(), authContextKey{}, auth)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthFromContext returns the AuthContext attached by Auth, if any.
func AuthFromContext(ctx context.Context) (domain.AuthContext, bool) {
	v, ok := ctx.Value(authContextKey{}).(domain.AuthContext)
	return v, ok
}

// ContextWithAuth attaches an AuthContext, primarily for tests.
func ContextWithAuth(ctx context.Context, auth domain.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "unauthorized"})
}

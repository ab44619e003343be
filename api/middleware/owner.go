package middleware

import (
	"net/http"
	"strings"

	"github.com/cardhaus/cardhaus-backend/api/responses"
	"github.com/cardhaus/cardhaus-backend/pkg/auth/session"
	"github.com/cardhaus/cardhaus-backend/pkg/config"
	pkgerrors "github.com/cardhaus/cardhaus-backend/pkg/errors"
	"github.com/cardhaus/cardhaus-backend/pkg/logger"
)

// SessionTokenHeader carries the anonymous cart token for guests.
const SessionTokenHeader = "X-CH-Session"

const maxSessionTokenLength = 128

// Owner resolves the requester identity for cart and checkout endpoints. A
// valid bearer token wins; otherwise the anonymous session header is used.
// Requests carrying neither are rejected, since every cart needs an owner.
func Owner(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearerToken(r); token != "" {
				ctx, err := authenticate(r.Context(), cfg, verifier, token, logg)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, err)
					return
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			sessionToken := strings.TrimSpace(r.Header.Get(SessionTokenHeader))
			if sessionToken == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			if len(sessionToken) > maxSessionTokenLength {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session token too long"))
				return
			}

			ctx := WithSessionToken(r.Context(), sessionToken)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

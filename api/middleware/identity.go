package middleware

import (
	"net/http"

	"github.com/angelmondragon/techstore-checkout/api/responses"
	"github.com/angelmondragon/techstore-checkout/internal/auth"
	"github.com/angelmondragon/techstore-checkout/pkg/logger"
)

type identityResolver interface {
	Resolve(header string) (auth.Identity, error)
}

// Identity resolves the Authorization header into a shopper identity. Requests
// without credentials continue as guests; expired sessions are rejected.
func Identity(resolver identityResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := resolver.Resolve(r.Header.Get("Authorization"))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := auth.WithIdentity(r.Context(), identity)
			if logg != nil {
				ctx = logg.WithFlow(ctx, identity.Flow().String())
				if identity.UserID != "" {
					ctx = logg.WithField(ctx, "user_id", identity.UserID)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

package auth

import (
	"net/http"
	"strings"

	"github.com/messageplans/api/internal/domain"
	"github.com/messageplans/api/internal/platform/httpx"
	"github.com/messageplans/api/internal/platform/requestctx"
)

const (
	// HeaderClientID carries the owning client identifier asserted by the gateway.
	HeaderClientID = "X-Client-Id"
	// HeaderUserID carries the acting user identifier asserted by the gateway.
	HeaderUserID = "X-User-Id"
)

// Middleware extracts the caller identity from trusted gateway headers and
// stores it on the request context. Requests without a complete identity are
// rejected before reaching any handler.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := domain.Identity{
				ClientID: strings.TrimSpace(r.Header.Get(HeaderClientID)),
				UserID:   strings.TrimSpace(r.Header.Get(HeaderUserID)),
			}
			if !identity.Valid() {
				httpx.WriteError(r.Context(), w, httpx.NewError(
					"unauthenticated",
					"client and user identity headers are required",
					http.StatusUnauthorized,
				))
				return
			}

			ctx := requestctx.WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

package auth

import (
	"net/http"
	"strings"

	"github.com/semillero-erp/semillero-erp/internal/platform/httpx"
	"github.com/semillero-erp/semillero-erp/internal/shared"
)

// Middleware validates the Bearer token on every protected route and stores
// the resulting actor in the request context.
func Middleware(tokens *Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				httpx.Problem(w, http.StatusUnauthorized, "No autenticado", "se requiere un token Bearer")
				return
			}
			actor, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				httpx.Problem(w, http.StatusUnauthorized, "No autenticado", err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
		})
	}
}

// RequireAdmin rejects requests whose actor is not elevated. It assumes
// Middleware already ran.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := shared.ActorFromContext(r.Context())
		if !ok || !actor.Role.Elevated() {
			httpx.Problem(w, http.StatusForbidden, "Acceso denegado", "se requiere rol administrador")
			return
		}
		next.ServeHTTP(w, r)
	})
}

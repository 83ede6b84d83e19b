package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/semillero-erp/semillero-erp/internal/auth"
	"github.com/semillero-erp/semillero-erp/internal/catalog"
	"github.com/semillero-erp/semillero-erp/internal/intake"
	"github.com/semillero-erp/semillero-erp/internal/ledger"
	"github.com/semillero-erp/semillero-erp/internal/outbound"
	"github.com/semillero-erp/semillero-erp/internal/production"
	"github.com/semillero-erp/semillero-erp/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config
	Tokens *auth.Tokens

	AuthHandler       *auth.Handler
	UsersHandler      *users.Handler
	CatalogHandler    *catalog.Handler
	IntakeHandler     *intake.Handler
	ProductionHandler *production.Handler
	LedgerHandler     *ledger.Handler
	OutboundHandler   *outbound.Handler
}

// NewRouter constructs the chi.Router. Everything under /api/v1 except login
// requires a valid bearer token.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		params.AuthHandler.MountPublicRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(params.Tokens))

			params.AuthHandler.MountRoutes(r)
			params.CatalogHandler.MountRoutes(r)
			params.IntakeHandler.MountRoutes(r)
			params.ProductionHandler.MountRoutes(r)
			params.LedgerHandler.MountRoutes(r)
			params.OutboundHandler.MountRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				params.UsersHandler.MountRoutes(r)
			})
		})
	})

	return r
}

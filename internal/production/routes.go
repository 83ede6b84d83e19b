package production

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers production lot endpoints under the given router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/lotes-produccion", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/disponibles", h.Disponibles)
		r.Get("/inventario", h.Inventario)
		r.Get("/estadisticas", h.Estadisticas)
		r.Get("/numero/{nro}", h.GetByNroLote)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Patch("/{id}/estado", h.CambiarEstado)
		r.Delete("/{id}", h.Delete)
	})
}

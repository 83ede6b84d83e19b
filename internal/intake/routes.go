package intake

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers intake order endpoints under the given router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/ordenes-ingreso", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/estadisticas", h.Estadisticas)
		r.Get("/numero/{numero}", h.GetByNumero)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Patch("/{id}/estado", h.CambiarEstado)
		r.Delete("/{id}", h.Delete)
		r.Get("/{id}/resumen-produccion", h.ResumenProduccion)
	})
}

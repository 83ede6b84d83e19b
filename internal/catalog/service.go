package catalog

import (
	"context"
	"strings"

	"github.com/semillero-erp/semillero-erp/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service applies catalog rules over the repository: non-empty names, folded
// uniqueness, deactivate instead of delete.
type Service struct {
	repo  Repository
	audit AuditPort
}

// NewService builds Service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateRequest carries a new catalog record.
type CreateRequest struct {
	Nombre  string  `json:"nombre" validate:"required,max=200"`
	Detalle *string `json:"detalle" validate:"omitempty,max=200"`
	Padre   *int64  `json:"id_padre" validate:"omitempty,gt=0"`
}

// UpdateRequest carries a whitelist patch for a catalog record.
type UpdateRequest struct {
	Nombre  *string `json:"nombre" validate:"omitempty,max=200"`
	Detalle *string `json:"detalle" validate:"omitempty,max=200"`
	Padre   *int64  `json:"id_padre" validate:"omitempty,gt=0"`
}

// List returns a catalog's records, all of them or only the active ones.
func (s *Service) List(ctx context.Context, tipo Tipo, soloActivos bool) ([]Entidad, error) {
	return s.repo.List(ctx, tipo, soloActivos)
}

// Get loads one record.
func (s *Service) Get(ctx context.Context, tipo Tipo, id int64) (*Entidad, error) {
	ent, err := s.repo.Get(ctx, tipo, id)
	if err != nil {
		return nil, err
	}
	if ent == nil {
		return nil, shared.NewNotFound("registro %d no encontrado en %s", id, tipo)
	}
	return ent, nil
}

// Create registers a record. New records start active.
func (s *Service) Create(ctx context.Context, actor shared.Actor, tipo Tipo, req CreateRequest) (*Entidad, error) {
	nombre := strings.TrimSpace(req.Nombre)
	if nombre == "" {
		return nil, shared.NewValidation("el nombre es obligatorio")
	}
	ent := &Entidad{
		Nombre:  nombre,
		Detalle: req.Detalle,
		Padre:   req.Padre,
		Activo:  true,
	}
	if err := s.repo.Create(ctx, tipo, ent); err != nil {
		if err == ErrNombreDuplicado {
			return nil, shared.NewBusinessRule("ya existe un registro llamado %q en %s", nombre, tipo)
		}
		return nil, err
	}
	s.recordAudit(ctx, actor, "catalog:create", tipo, ent)
	return ent, nil
}

// Update applies a whitelist patch over a record.
func (s *Service) Update(ctx context.Context, actor shared.Actor, tipo Tipo, id int64, req UpdateRequest) (*Entidad, error) {
	ent, err := s.Get(ctx, tipo, id)
	if err != nil {
		return nil, err
	}
	if req.Nombre != nil {
		nombre := strings.TrimSpace(*req.Nombre)
		if nombre == "" {
			return nil, shared.NewValidation("el nombre es obligatorio")
		}
		ent.Nombre = nombre
	}
	if req.Detalle != nil {
		ent.Detalle = req.Detalle
	}
	if req.Padre != nil {
		ent.Padre = req.Padre
	}
	if err := s.repo.Update(ctx, tipo, ent); err != nil {
		if err == ErrNombreDuplicado {
			return nil, shared.NewBusinessRule("ya existe un registro llamado %q en %s", ent.Nombre, tipo)
		}
		return nil, err
	}
	s.recordAudit(ctx, actor, "catalog:update", tipo, ent)
	return ent, nil
}

// SetActivo toggles a record without deleting it. Historical orders keep
// their references either way.
func (s *Service) SetActivo(ctx context.Context, actor shared.Actor, tipo Tipo, id int64, activo bool) (*Entidad, error) {
	ent, err := s.Get(ctx, tipo, id)
	if err != nil {
		return nil, err
	}
	if ent.Activo == activo {
		return ent, nil
	}
	if err := s.repo.SetActivo(ctx, tipo, id, activo); err != nil {
		return nil, err
	}
	ent.Activo = activo
	s.recordAudit(ctx, actor, "catalog:activo", tipo, ent)
	return ent, nil
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, action string, tipo Tipo, ent *Entidad) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   string(tipo),
		EntityID: ent.Nombre,
		Meta: map[string]any{
			"id":     ent.ID,
			"activo": ent.Activo,
		},
	})
}

package users

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/semillero-erp/semillero-erp/internal/shared"
)

const bcryptCost = 12

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service applies account rules. Every operation here is admin-only; the
// router enforces that, the service re-checks it.
type Service struct {
	repo  Repository
	audit AuditPort
}

// NewService builds Service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateRequest carries a new account.
type CreateRequest struct {
	Username string  `json:"username" validate:"required,min=3,max=50"`
	Nombre   string  `json:"nombre" validate:"required,max=200"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Rol      string  `json:"rol" validate:"required"`
	IDUnidad int64   `json:"id_unidad" validate:"omitempty,gt=0"`
}

// UpdateRequest carries a whitelist patch. Username is immutable.
type UpdateRequest struct {
	Nombre   *string `json:"nombre" validate:"omitempty,max=200"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=8"`
	Rol      *string `json:"rol"`
	IDUnidad *int64  `json:"id_unidad" validate:"omitempty,gt=0"`
}

// Create registers an account with a hashed password.
func (s *Service) Create(ctx context.Context, actor shared.Actor, req CreateRequest) (*Usuario, error) {
	if !actor.Role.Elevated() {
		return nil, shared.NewAuthorization("solo un administrador puede crear usuarios")
	}
	if !ValidRol(req.Rol) {
		return nil, shared.NewValidation("rol no válido: %s", req.Rol)
	}
	rol := shared.Role(req.Rol)
	if rol != shared.RoleAdmin && req.IDUnidad == 0 {
		return nil, shared.NewValidation("los usuarios de unidad requieren id_unidad")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, err
	}
	u := &Usuario{
		Username:     strings.ToLower(strings.TrimSpace(req.Username)),
		Nombre:       strings.TrimSpace(req.Nombre),
		Email:        req.Email,
		PasswordHash: string(hash),
		Rol:          rol,
		IDUnidad:     req.IDUnidad,
		Activo:       true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if err == ErrUsernameTomado {
			return nil, shared.NewBusinessRule("el username %s ya está registrado", u.Username)
		}
		return nil, err
	}
	s.recordAudit(ctx, actor, "users:create", u)
	return u, nil
}

// Get loads one account.
func (s *Service) Get(ctx context.Context, actor shared.Actor, id int64) (*Usuario, error) {
	if !actor.Role.Elevated() && actor.UserID != id {
		return nil, shared.NewAuthorization("no tienes acceso a otros usuarios")
	}
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, shared.NewNotFound("usuario con ID %d no encontrado", id)
	}
	return u, nil
}

// List returns accounts, active ones by default.
func (s *Service) List(ctx context.Context, actor shared.Actor, incluirInactivos bool) ([]Usuario, error) {
	if !actor.Role.Elevated() {
		return nil, shared.NewAuthorization("solo un administrador puede listar usuarios")
	}
	return s.repo.List(ctx, incluirInactivos)
}

// Update applies a whitelist patch. A password change re-hashes; a role change
// to admin clears the unit requirement.
func (s *Service) Update(ctx context.Context, actor shared.Actor, id int64, req UpdateRequest) (*Usuario, error) {
	if !actor.Role.Elevated() {
		return nil, shared.NewAuthorization("solo un administrador puede modificar usuarios")
	}
	u, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if req.Nombre != nil {
		u.Nombre = strings.TrimSpace(*req.Nombre)
	}
	if req.Email != nil {
		u.Email = req.Email
	}
	if req.Rol != nil {
		if !ValidRol(*req.Rol) {
			return nil, shared.NewValidation("rol no válido: %s", *req.Rol)
		}
		u.Rol = shared.Role(*req.Rol)
	}
	if req.IDUnidad != nil {
		u.IDUnidad = *req.IDUnidad
	}
	if u.Rol != shared.RoleAdmin && u.IDUnidad == 0 {
		return nil, shared.NewValidation("los usuarios de unidad requieren id_unidad")
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcryptCost)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = string(hash)
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor, "users:update", u)
	return u, nil
}

// SetActivo deactivates or reactivates an account. An admin cannot deactivate
// itself.
func (s *Service) SetActivo(ctx context.Context, actor shared.Actor, id int64, activo bool) (*Usuario, error) {
	if !actor.Role.Elevated() {
		return nil, shared.NewAuthorization("solo un administrador puede desactivar usuarios")
	}
	if !activo && actor.UserID == id {
		return nil, shared.NewBusinessRule("no puedes desactivar tu propia cuenta")
	}
	u, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if u.Activo == activo {
		return u, nil
	}
	if err := s.repo.SetActivo(ctx, id, activo); err != nil {
		return nil, err
	}
	u.Activo = activo
	s.recordAudit(ctx, actor, "users:activo", u)
	return u, nil
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, action string, u *Usuario) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "usuario",
		EntityID: u.Username,
		Meta: map[string]any{
			"id_usuario": u.ID,
			"rol":        u.Rol,
			"activo":     u.Activo,
		},
	})
}

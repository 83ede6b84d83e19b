// Package users manages the accounts that operate the system. Passwords are
// stored as bcrypt hashes; accounts are deactivated, never deleted, so audit
// rows keep a valid author.
package users

import (
	"time"

	"github.com/semillero-erp/semillero-erp/internal/shared"
)

// Usuario is one account.
type Usuario struct {
	ID                 int64       `json:"id_usuario"`
	Username           string      `json:"username"`
	Nombre             string      `json:"nombre"`
	Email              *string     `json:"email,omitempty"`
	PasswordHash       string      `json:"-"`
	Rol                shared.Role `json:"rol"`
	IDUnidad           int64       `json:"id_unidad"`
	Activo             bool        `json:"activo"`
	FechaCreacion      time.Time   `json:"fecha_creacion"`
	FechaActualizacion time.Time   `json:"fecha_actualizacion"`
}

// ValidRol reports whether s is a known role.
func ValidRol(s string) bool {
	switch shared.Role(s) {
	case shared.RoleAdmin, shared.RoleEncargado, shared.RoleOperador:
		return true
	}
	return false
}

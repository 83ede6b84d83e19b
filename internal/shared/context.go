package shared

import "context"

// Role classifies a caller for unit scoping purposes.
type Role string

const (
	// RoleAdmin may read and write across every unit.
	RoleAdmin Role = "admin"
	// RoleEncargado is restricted to its own unit.
	RoleEncargado Role = "encargado"
	// RoleOperador is restricted to its own unit.
	RoleOperador Role = "operador"
)

// Elevated reports whether the role is unit-unrestricted.
func (r Role) Elevated() bool { return r == RoleAdmin }

// Actor identifies the authenticated caller of a core operation.
type Actor struct {
	UserID int64
	Role   Role
	UnitID int64
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}

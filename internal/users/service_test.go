package users_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/semillero-erp/semillero-erp/internal/shared"
	"github.com/semillero-erp/semillero-erp/internal/users"
)

type memoryRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*users.Usuario
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[int64]*users.Usuario)}
}

func (m *memoryRepo) Create(_ context.Context, u *users.Usuario) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.Username == u.Username {
			return users.ErrUsernameTomado
		}
	}
	m.nextID++
	u.ID = m.nextID
	copia := *u
	m.items[u.ID] = &copia
	return nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*users.Usuario, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	copia := *u
	return &copia, nil
}

func (m *memoryRepo) GetByUsername(_ context.Context, username string) (*users.Usuario, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.items {
		if u.Username == username {
			copia := *u
			return &copia, nil
		}
	}
	return nil, nil
}

func (m *memoryRepo) List(_ context.Context, incluirInactivos bool) ([]users.Usuario, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []users.Usuario
	for _, u := range m.items {
		if !incluirInactivos && !u.Activo {
			continue
		}
		out = append(out, *u)
	}
	return out, nil
}

func (m *memoryRepo) Update(_ context.Context, u *users.Usuario) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copia := *u
	m.items[u.ID] = &copia
	return nil
}

func (m *memoryRepo) SetActivo(_ context.Context, id int64, activo bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.items[id]; ok {
		u.Activo = activo
	}
	return nil
}

var admin = shared.Actor{UserID: 1, Role: shared.RoleAdmin}

func TestCreateHashesPassword(t *testing.T) {
	svc := users.NewService(newMemoryRepo(), nil)

	u, err := svc.Create(context.Background(), admin, users.CreateRequest{
		Username: "  JPerez ",
		Nombre:   "Juan Pérez",
		Password: "secreta123",
		Rol:      "operador",
		IDUnidad: 3,
	})
	require.NoError(t, err)
	require.Equal(t, "jperez", u.Username)
	require.True(t, u.Activo)
	require.NotEqual(t, "secreta123", u.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secreta123")))
}

func TestCreateRules(t *testing.T) {
	svc := users.NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, shared.Actor{UserID: 9, Role: shared.RoleEncargado, UnitID: 3}, users.CreateRequest{
		Username: "x", Nombre: "X", Password: "secreta123", Rol: "operador", IDUnidad: 3,
	})
	var authErr *shared.AuthorizationError
	require.ErrorAs(t, err, &authErr)

	_, err = svc.Create(ctx, admin, users.CreateRequest{
		Username: "x", Nombre: "X", Password: "secreta123", Rol: "gerente", IDUnidad: 3,
	})
	var valErr *shared.ValidationError
	require.ErrorAs(t, err, &valErr)

	// unit-scoped roles need a unit
	_, err = svc.Create(ctx, admin, users.CreateRequest{
		Username: "x", Nombre: "X", Password: "secreta123", Rol: "encargado",
	})
	require.ErrorAs(t, err, &valErr)

	_, err = svc.Create(ctx, admin, users.CreateRequest{
		Username: "ana", Nombre: "Ana", Password: "secreta123", Rol: "operador", IDUnidad: 3,
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin, users.CreateRequest{
		Username: "ANA", Nombre: "Otra Ana", Password: "secreta123", Rol: "operador", IDUnidad: 3,
	})
	var brErr *shared.BusinessRuleError
	require.ErrorAs(t, err, &brErr)
}

func TestUpdateRehashesPassword(t *testing.T) {
	svc := users.NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	u, err := svc.Create(ctx, admin, users.CreateRequest{
		Username: "ana", Nombre: "Ana", Password: "secreta123", Rol: "operador", IDUnidad: 3,
	})
	require.NoError(t, err)
	anterior := u.PasswordHash

	nueva := "otraclave456"
	u, err = svc.Update(ctx, admin, u.ID, users.UpdateRequest{Password: &nueva})
	require.NoError(t, err)
	require.NotEqual(t, anterior, u.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(nueva)))
}

func TestSetActivoRules(t *testing.T) {
	svc := users.NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	u, err := svc.Create(ctx, admin, users.CreateRequest{
		Username: "ana", Nombre: "Ana", Password: "secreta123", Rol: "operador", IDUnidad: 3,
	})
	require.NoError(t, err)

	u, err = svc.SetActivo(ctx, admin, u.ID, false)
	require.NoError(t, err)
	require.False(t, u.Activo)

	activos, err := svc.List(ctx, admin, false)
	require.NoError(t, err)
	require.Empty(t, activos)

	// self-deactivation is blocked
	self := shared.Actor{UserID: u.ID, Role: shared.RoleAdmin}
	_, err = svc.SetActivo(ctx, self, u.ID, false)
	var brErr *shared.BusinessRuleError
	require.ErrorAs(t, err, &brErr)
}

func TestGetScope(t *testing.T) {
	svc := users.NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	u, err := svc.Create(ctx, admin, users.CreateRequest{
		Username: "ana", Nombre: "Ana", Password: "secreta123", Rol: "operador", IDUnidad: 3,
	})
	require.NoError(t, err)

	// a non-elevated user can read itself, nothing else
	self := shared.Actor{UserID: u.ID, Role: shared.RoleOperador, UnitID: 3}
	_, err = svc.Get(ctx, self, u.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, self, 999)
	var authErr *shared.AuthorizationError
	require.ErrorAs(t, err, &authErr)
}

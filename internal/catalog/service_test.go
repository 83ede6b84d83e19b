package catalog_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/semillero-erp/semillero-erp/internal/catalog"
	"github.com/semillero-erp/semillero-erp/internal/shared"
)

type memoryRepo struct {
	mu      sync.Mutex
	nextID  int64
	records map[catalog.Tipo][]*catalog.Entidad
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{records: make(map[catalog.Tipo][]*catalog.Entidad)}
}

func (m *memoryRepo) List(_ context.Context, tipo catalog.Tipo, soloActivos bool) ([]catalog.Entidad, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []catalog.Entidad
	for _, ent := range m.records[tipo] {
		if soloActivos && !ent.Activo {
			continue
		}
		out = append(out, *ent)
	}
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, tipo catalog.Tipo, id int64) (*catalog.Entidad, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ent := range m.records[tipo] {
		if ent.ID == id {
			copia := *ent
			return &copia, nil
		}
	}
	return nil, nil
}

func (m *memoryRepo) Create(_ context.Context, tipo catalog.Tipo, ent *catalog.Entidad) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	norm := catalog.NormalizarNombre(ent.Nombre)
	for _, existing := range m.records[tipo] {
		if catalog.NormalizarNombre(existing.Nombre) == norm {
			return catalog.ErrNombreDuplicado
		}
	}
	m.nextID++
	ent.ID = m.nextID
	copia := *ent
	m.records[tipo] = append(m.records[tipo], &copia)
	return nil
}

func (m *memoryRepo) Update(_ context.Context, tipo catalog.Tipo, ent *catalog.Entidad) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	norm := catalog.NormalizarNombre(ent.Nombre)
	for _, existing := range m.records[tipo] {
		if existing.ID != ent.ID && catalog.NormalizarNombre(existing.Nombre) == norm {
			return catalog.ErrNombreDuplicado
		}
	}
	for i, existing := range m.records[tipo] {
		if existing.ID == ent.ID {
			copia := *ent
			m.records[tipo][i] = &copia
			return nil
		}
	}
	return nil
}

func (m *memoryRepo) SetActivo(_ context.Context, tipo catalog.Tipo, id int64, activo bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.records[tipo] {
		if existing.ID == id {
			existing.Activo = activo
		}
	}
	return nil
}

var gerente = shared.Actor{UserID: 1, Role: shared.RoleAdmin}

func TestNormalizarNombre(t *testing.T) {
	require.Equal(t, "maiz amarillo", catalog.NormalizarNombre("  Maíz   Amarillo "))
	require.Equal(t, "trebol", catalog.NormalizarNombre("TRÉBOL"))
	require.Equal(t, "soya", catalog.NormalizarNombre("soya"))
}

func TestCreateRejectsAccentedDuplicate(t *testing.T) {
	svc := catalog.NewService(newMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), gerente, catalog.TipoSemilla, catalog.CreateRequest{Nombre: "Maíz"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), gerente, catalog.TipoSemilla, catalog.CreateRequest{Nombre: "maiz"})
	var brErr *shared.BusinessRuleError
	require.ErrorAs(t, err, &brErr)

	// same folded name in another catalog is fine
	_, err = svc.Create(context.Background(), gerente, catalog.TipoVariedad, catalog.CreateRequest{Nombre: "maiz"})
	require.NoError(t, err)
}

func TestCreateTrimsAndRequiresName(t *testing.T) {
	svc := catalog.NewService(newMemoryRepo(), nil)

	ent, err := svc.Create(context.Background(), gerente, catalog.TipoSemillera, catalog.CreateRequest{Nombre: "  El Progreso  "})
	require.NoError(t, err)
	require.Equal(t, "El Progreso", ent.Nombre)
	require.True(t, ent.Activo)

	_, err = svc.Create(context.Background(), gerente, catalog.TipoSemillera, catalog.CreateRequest{Nombre: "   "})
	var valErr *shared.ValidationError
	require.ErrorAs(t, err, &valErr)
}

func TestUpdateKeepsUniqueness(t *testing.T) {
	svc := catalog.NewService(newMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), gerente, catalog.TipoCategoria, catalog.CreateRequest{Nombre: "Certificada"})
	require.NoError(t, err)
	seg, err := svc.Create(context.Background(), gerente, catalog.TipoCategoria, catalog.CreateRequest{Nombre: "Fiscalizada"})
	require.NoError(t, err)

	nombre := "CERTIFICADA"
	_, err = svc.Update(context.Background(), gerente, catalog.TipoCategoria, seg.ID, catalog.UpdateRequest{Nombre: &nombre})
	var brErr *shared.BusinessRuleError
	require.ErrorAs(t, err, &brErr)
}

func TestSetActivoHidesFromDefaultList(t *testing.T) {
	svc := catalog.NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	uno, err := svc.Create(ctx, gerente, catalog.TipoConductor, catalog.CreateRequest{Nombre: "Juan Pérez"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, gerente, catalog.TipoConductor, catalog.CreateRequest{Nombre: "Ana Soto"})
	require.NoError(t, err)

	_, err = svc.SetActivo(ctx, gerente, catalog.TipoConductor, uno.ID, false)
	require.NoError(t, err)

	activos, err := svc.List(ctx, catalog.TipoConductor, true)
	require.NoError(t, err)
	require.Len(t, activos, 1)
	require.Equal(t, "Ana Soto", activos[0].Nombre)

	todos, err := svc.List(ctx, catalog.TipoConductor, false)
	require.NoError(t, err)
	require.Len(t, todos, 2)

	// record stays addressable after deactivation
	ent, err := svc.Get(ctx, catalog.TipoConductor, uno.ID)
	require.NoError(t, err)
	require.False(t, ent.Activo)
}

func TestServiciosCatalog(t *testing.T) {
	svc := catalog.NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	require.True(t, catalog.ValidTipo("servicios"))

	desc := "secado y embolsado"
	ent, err := svc.Create(ctx, gerente, catalog.TipoServicio, catalog.CreateRequest{Nombre: "Secado", Detalle: &desc})
	require.NoError(t, err)
	require.Equal(t, desc, *ent.Detalle)

	_, err = svc.Create(ctx, gerente, catalog.TipoServicio, catalog.CreateRequest{Nombre: "SECADO"})
	var brErr *shared.BusinessRuleError
	require.ErrorAs(t, err, &brErr)

	_, err = svc.SetActivo(ctx, gerente, catalog.TipoServicio, ent.ID, false)
	require.NoError(t, err)
	activos, err := svc.List(ctx, catalog.TipoServicio, true)
	require.NoError(t, err)
	require.Empty(t, activos)
}

func TestGetUnknown(t *testing.T) {
	svc := catalog.NewService(newMemoryRepo(), nil)
	_, err := svc.Get(context.Background(), catalog.TipoVehiculo, 99)
	var nfErr *shared.NotFoundError
	require.ErrorAs(t, err, &nfErr)
}

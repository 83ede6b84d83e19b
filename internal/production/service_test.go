package production

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/semillero-erp/semillero-erp/internal/intake"
	"github.com/semillero-erp/semillero-erp/internal/sequence"
	"github.com/semillero-erp/semillero-erp/internal/shared"
)

// memoryStore backs both the production repository and the slice of the
// intake repository the recompute listener needs, so scenario tests exercise
// the real cross-module flow.
type memoryStore struct {
	mu          sync.Mutex
	nextLoteID  int64
	ordenes     map[int64]*intake.OrdenIngreso
	lotes       map[int64]*LoteProduccion
	movimientos map[int64][]movimiento
	counter     *sequence.MemoryCounter
}

type movimiento struct {
	tipo          string
	cantidad      int64
	kg            decimal.Decimal
	saldoUnidades int64
	saldoKg       decimal.Decimal
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		nextLoteID:  1,
		ordenes:     make(map[int64]*intake.OrdenIngreso),
		lotes:       make(map[int64]*LoteProduccion),
		movimientos: make(map[int64][]movimiento),
		counter:     sequence.NewMemoryCounter(),
	}
}

func (m *memoryStore) addOrden(id int64, pesoNeto string, estado intake.Estado) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ordenes[id] = &intake.OrdenIngreso{
		ID: id, NumeroOrden: "OI-202609-0001", PesoNeto: kg(pesoNeto),
		Estado: estado, IDUnidad: 3, IDSemillera: 1,
	}
}

func (m *memoryStore) sumOriginal(ordenID int64) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range m.lotes {
		if l.IDOrdenIngreso == ordenID {
			sum = sum.Add(l.TotalKgOriginal)
		}
	}
	return sum
}

// prodRepo implements Repository over memoryStore.
type prodRepo struct{ store *memoryStore }

func (r *prodRepo) Create(_ context.Context, lote *LoteProduccion) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	orden, ok := s.ordenes[lote.IDOrdenIngreso]
	if !ok {
		return shared.NewNotFound("orden de ingreso con ID %d no encontrada", lote.IDOrdenIngreso)
	}
	if orden.Estado == intake.EstadoCancelado {
		return shared.NewBusinessRule("no se pueden crear lotes sobre la orden cancelada %s", orden.NumeroOrden)
	}
	parent := ParentOrden{
		ID: orden.ID, NumeroOrden: orden.NumeroOrden, Estado: string(orden.Estado),
		PesoNeto: orden.PesoNeto, IDSemillera: orden.IDSemillera, IDUnidad: orden.IDUnidad,
	}
	if err := CheckBudget(parent, s.sumOriginal(lote.IDOrdenIngreso), lote.TotalKgOriginal); err != nil {
		return err
	}
	lote.ID = s.nextLoteID
	s.nextLoteID++
	lote.NroLote = s.counter.Next(sequence.DocLoteProduccion, lote.FechaCreacion)
	cp := *lote
	s.lotes[lote.ID] = &cp
	s.movimientos[lote.ID] = append(s.movimientos[lote.ID], movimiento{
		tipo: "entrada", cantidad: lote.CantidadUnidades, kg: lote.TotalKg,
		saldoUnidades: lote.CantidadUnidades, saldoKg: lote.TotalKg,
	})
	return nil
}

func (r *prodRepo) Get(_ context.Context, id int64) (*LoteProduccion, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	lote, ok := r.store.lotes[id]
	if !ok {
		return nil, nil
	}
	cp := *lote
	return &cp, nil
}

func (r *prodRepo) GetByNroLote(_ context.Context, nro string) (*LoteProduccion, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, lote := range r.store.lotes {
		if lote.NroLote == nro {
			cp := *lote
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *prodRepo) List(_ context.Context, filter ListFilter) ([]LoteProduccion, int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []LoteProduccion
	for _, lote := range r.store.lotes {
		if filter.Estado != nil && lote.Estado != *filter.Estado {
			continue
		}
		if filter.IDUnidad != nil && lote.IDUnidad != *filter.IDUnidad {
			continue
		}
		out = append(out, *lote)
	}
	return out, len(out), nil
}

func (r *prodRepo) Update(_ context.Context, lote *LoteProduccion, prevCantidad int64, prevTotalKg decimal.Decimal) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *lote
	r.store.lotes[lote.ID] = &cp
	if lote.CantidadUnidades != prevCantidad || !lote.TotalKg.Equal(prevTotalKg) {
		delta := lote.CantidadUnidades - prevCantidad
		if delta < 0 {
			delta = -delta
		}
		r.store.movimientos[lote.ID] = append(r.store.movimientos[lote.ID], movimiento{
			tipo: "ajuste", cantidad: delta, kg: lote.TotalKg.Sub(prevTotalKg).Abs(),
			saldoUnidades: lote.CantidadUnidades, saldoKg: lote.TotalKg,
		})
	}
	return nil
}

func (r *prodRepo) UpdateEstado(_ context.Context, id int64, estado EstadoLote) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if lote, ok := r.store.lotes[id]; ok {
		lote.Estado = estado
	}
	return nil
}

func (r *prodRepo) Delete(_ context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.lotes, id)
	delete(r.store.movimientos, id)
	return nil
}

func (r *prodRepo) InventarioPorVariedad(_ context.Context) ([]InventarioVariedad, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	byVariedad := make(map[int64]*InventarioVariedad)
	for _, lote := range r.store.lotes {
		if lote.Estado != LoteDisponible && lote.Estado != LoteParcialmenteVendido {
			continue
		}
		inv, ok := byVariedad[lote.IDVariedad]
		if !ok {
			inv = &InventarioVariedad{IDVariedad: lote.IDVariedad, TotalKg: decimal.Zero}
			byVariedad[lote.IDVariedad] = inv
		}
		inv.TotalUnidades += lote.CantidadUnidades
		inv.TotalKg = inv.TotalKg.Add(lote.TotalKg)
		inv.CantidadLotes++
	}
	var out []InventarioVariedad
	for _, inv := range byVariedad {
		out = append(out, *inv)
	}
	return out, nil
}

func (r *prodRepo) Estadisticas(_ context.Context, _ EstadisticasFilter) ([]LoteStat, error) {
	return nil, nil
}

// intakeRepo implements the intake repository over the same store; only the
// methods the recompute listener touches do real work.
type intakeRepo struct{ store *memoryStore }

func (r *intakeRepo) Create(_ context.Context, _ *intake.OrdenIngreso) error { return nil }

func (r *intakeRepo) Get(_ context.Context, id int64) (*intake.OrdenIngreso, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	orden, ok := r.store.ordenes[id]
	if !ok {
		return nil, nil
	}
	cp := *orden
	return &cp, nil
}

func (r *intakeRepo) GetByNumeroOrden(_ context.Context, _ string) (*intake.OrdenIngreso, error) {
	return nil, nil
}

func (r *intakeRepo) List(_ context.Context, _ intake.ListFilter) ([]intake.OrdenIngreso, int, error) {
	return nil, 0, nil
}

func (r *intakeRepo) Update(_ context.Context, _ *intake.OrdenIngreso) error { return nil }

func (r *intakeRepo) UpdateEstado(_ context.Context, id int64, estado intake.Estado) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if orden, ok := r.store.ordenes[id]; ok {
		orden.Estado = estado
	}
	return nil
}

func (r *intakeRepo) Delete(_ context.Context, _ int64) error { return nil }

func (r *intakeRepo) CountLotes(_ context.Context, ordenID int64) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	n := 0
	for _, lote := range r.store.lotes {
		if lote.IDOrdenIngreso == ordenID {
			n++
		}
	}
	return n, nil
}

func (r *intakeRepo) SumLotesKgOriginal(_ context.Context, ordenID int64) (decimal.Decimal, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.sumOriginal(ordenID), nil
}

func (r *intakeRepo) ResumenLotes(_ context.Context, _ int64) ([]intake.LoteResumen, error) {
	return nil, nil
}

func (r *intakeRepo) Estadisticas(_ context.Context, _ intake.EstadisticasFilter) ([]intake.EstadoStat, error) {
	return nil, nil
}

var (
	admin    = shared.Actor{UserID: 1, Role: shared.RoleAdmin}
	operador = shared.Actor{UserID: 7, Role: shared.RoleOperador, UnitID: 3}
)

func kg(v string) decimal.Decimal {
	d, _ := decimal.NewFromString(v)
	return d
}

func newTestService() (*Service, *memoryStore) {
	store := newMemoryStore()
	listener := intake.NewService(&intakeRepo{store: store}, nil)
	svc := NewService(&prodRepo{store: store}, listener, nil, nil)
	return svc, store
}

func loteRequest(ordenID, cantidad int64, kgPorUnidad string) CreateLoteRequest {
	return CreateLoteRequest{
		IDOrdenIngreso:    ordenID,
		IDVariedad:        6,
		IDCategoriaSalida: 7,
		CantidadUnidades:  cantidad,
		KgPorUnidad:       kg(kgPorUnidad),
		IDUnidad:          3,
	}
}

func TestBudgetDrivesOrderState(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	store.addOrden(1, "1000", intake.EstadoPendiente)

	// 100 units of 5 kg consume half the budget.
	lote, err := svc.Create(ctx, admin, loteRequest(1, 100, "5"))
	require.NoError(t, err)
	require.Equal(t, LoteDisponible, lote.Estado)
	require.True(t, lote.TotalKg.Equal(kg("500")))
	require.Equal(t, lote.CantidadUnidades, lote.CantidadOriginal)
	require.Equal(t, intake.EstadoEnProceso, store.ordenes[1].Estado)

	// The second 500 kg completes the order.
	_, err = svc.Create(ctx, admin, loteRequest(1, 100, "5"))
	require.NoError(t, err)
	require.Equal(t, intake.EstadoCompletado, store.ordenes[1].Estado)
}

func TestBudgetOverageRejected(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	store.addOrden(1, "1000", intake.EstadoPendiente)

	_, err := svc.Create(ctx, admin, loteRequest(1, 100, "5"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin, loteRequest(1, 100, "5"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, admin, loteRequest(1, 1, "1"))
	var br *shared.BusinessRuleError
	require.ErrorAs(t, err, &br)
	require.Contains(t, br.Msg, "1000")
	require.Contains(t, br.Msg, "excedente 1 kg")
	require.Len(t, store.lotes, 2)
}

func TestCreateRejectsMissingOrCancelledParent(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, admin, loteRequest(99, 10, "5"))
	require.ErrorAs(t, err, new(*shared.NotFoundError))

	store.addOrden(2, "1000", intake.EstadoCancelado)
	_, err = svc.Create(ctx, admin, loteRequest(2, 10, "5"))
	require.ErrorAs(t, err, new(*shared.BusinessRuleError))
}

func TestCreateWritesOpeningLedgerRow(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	store.addOrden(1, "1000", intake.EstadoPendiente)

	lote, err := svc.Create(ctx, admin, loteRequest(1, 40, "2.5"))
	require.NoError(t, err)

	movs := store.movimientos[lote.ID]
	require.Len(t, movs, 1)
	require.Equal(t, "entrada", movs[0].tipo)
	require.Equal(t, int64(40), movs[0].saldoUnidades)
	require.True(t, movs[0].saldoKg.Equal(kg("100")))
}

func TestCreateUnitScoping(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	store.addOrden(1, "1000", intake.EstadoPendiente)

	req := loteRequest(1, 10, "5")
	req.IDUnidad = 0
	lote, err := svc.Create(ctx, operador, req)
	require.NoError(t, err)
	require.Equal(t, operador.UnitID, lote.IDUnidad)

	req.IDUnidad = 99
	_, err = svc.Create(ctx, operador, req)
	require.ErrorAs(t, err, new(*shared.AuthorizationError))

	req.IDUnidad = 0
	_, err = svc.Create(ctx, admin, req)
	require.ErrorAs(t, err, new(*shared.ValidationError))
}

func TestUpdateRecomputesTotalAndLogsAdjustment(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	store.addOrden(1, "1000", intake.EstadoPendiente)

	lote, err := svc.Create(ctx, admin, loteRequest(1, 100, "5"))
	require.NoError(t, err)

	nueva := int64(80)
	actualizado, err := svc.Update(ctx, admin, lote.ID, UpdateLoteRequest{CantidadUnidades: &nueva})
	require.NoError(t, err)
	require.True(t, actualizado.TotalKg.Equal(kg("400")))
	// Balance invariant: count times unit weight equals the total.
	require.True(t, actualizado.KgPorUnidad.Mul(decimal.NewFromInt(actualizado.CantidadUnidades)).Equal(actualizado.TotalKg))
	// The original snapshots never move.
	require.Equal(t, int64(100), actualizado.CantidadOriginal)
	require.True(t, actualizado.TotalKgOriginal.Equal(kg("500")))

	movs := store.movimientos[lote.ID]
	require.Len(t, movs, 2)
	require.Equal(t, "ajuste", movs[1].tipo)
	require.Equal(t, int64(80), movs[1].saldoUnidades)
	require.True(t, movs[1].saldoKg.Equal(kg("400")))
}

func TestUpdateRejectsSoldLot(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	store.addOrden(1, "1000", intake.EstadoPendiente)

	lote, err := svc.Create(ctx, admin, loteRequest(1, 10, "5"))
	require.NoError(t, err)
	store.lotes[lote.ID].Estado = LoteVendido

	nueva := int64(5)
	_, err = svc.Update(ctx, admin, lote.ID, UpdateLoteRequest{CantidadUnidades: &nueva})
	require.ErrorAs(t, err, new(*shared.BusinessRuleError))

	require.ErrorAs(t, svc.Remove(ctx, admin, lote.ID), new(*shared.BusinessRuleError))
}

func TestRemoveRecomputesParentState(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	store.addOrden(1, "1000", intake.EstadoPendiente)

	primero, err := svc.Create(ctx, admin, loteRequest(1, 100, "5"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin, loteRequest(1, 100, "5"))
	require.NoError(t, err)
	require.Equal(t, intake.EstadoCompletado, store.ordenes[1].Estado)

	require.NoError(t, svc.Remove(ctx, admin, primero.ID))
	require.Equal(t, intake.EstadoEnProceso, store.ordenes[1].Estado)
}

func TestCambiarEstadoValidatesEnum(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	store.addOrden(1, "1000", intake.EstadoPendiente)

	lote, err := svc.Create(ctx, admin, loteRequest(1, 10, "5"))
	require.NoError(t, err)

	_, err = svc.CambiarEstado(ctx, admin, lote.ID, "perdido")
	require.ErrorAs(t, err, new(*shared.ValidationError))

	cambiado, err := svc.CambiarEstado(ctx, admin, lote.ID, "reservado")
	require.NoError(t, err)
	require.Equal(t, LoteReservado, cambiado.Estado)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	store.addOrden(1, "1000", intake.EstadoPendiente)

	_, err := svc.Create(ctx, admin, loteRequest(1, 100, "5"))
	require.NoError(t, err)

	listener := intake.NewService(&intakeRepo{store: store}, nil)
	require.NoError(t, listener.OnLotChanged(ctx, 1, intake.LotUpdated))
	primera := store.ordenes[1].Estado
	require.NoError(t, listener.OnLotChanged(ctx, 1, intake.LotUpdated))
	require.Equal(t, primera, store.ordenes[1].Estado)
}

func TestInventarioSkipsSoldAndDiscarded(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	store.addOrden(1, "1000", intake.EstadoPendiente)

	disponible, err := svc.Create(ctx, admin, loteRequest(1, 10, "5"))
	require.NoError(t, err)
	vendido, err := svc.Create(ctx, admin, loteRequest(1, 10, "5"))
	require.NoError(t, err)
	store.lotes[vendido.ID].Estado = LoteVendido

	inv, err := svc.InventarioPorVariedad(ctx)
	require.NoError(t, err)
	require.Len(t, inv, 1)
	require.Equal(t, disponible.CantidadUnidades, inv[0].TotalUnidades)
	require.True(t, inv[0].TotalKg.Equal(kg("50")))
}

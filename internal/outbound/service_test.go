package outbound

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/semillero-erp/semillero-erp/internal/sequence"
	"github.com/semillero-erp/semillero-erp/internal/shared"
)

type movRecord struct {
	loteID        int64
	tipo          string
	cantidad      int64
	kg            decimal.Decimal
	saldoUnidades int64
	saldoKg       decimal.Decimal
	ordenSalida   int64
}

// memoryRepo mirrors the all-or-nothing semantics of the real transaction:
// every line is validated against locked state before anything is written.
type memoryRepo struct {
	nextOrdenID   int64
	nextDetalleID int64
	lotes         map[int64]*LoteVenta
	ordenes       map[int64]*OrdenSalida
	movimientos   []movRecord
	counter       *sequence.MemoryCounter
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		nextOrdenID:   1,
		nextDetalleID: 1,
		lotes:         make(map[int64]*LoteVenta),
		ordenes:       make(map[int64]*OrdenSalida),
		counter:       sequence.NewMemoryCounter(),
	}
}

func (m *memoryRepo) addLote(id int64, nro string, cantidad int64, kgPorUnidad string, semilla, semillera, unidad int64) {
	kgU := kg(kgPorUnidad)
	m.lotes[id] = &LoteVenta{
		ID: id, NroLote: nro, CantidadUnidades: cantidad, KgPorUnidad: kgU,
		TotalKg: kgU.Mul(decimal.NewFromInt(cantidad)), Estado: "disponible",
		IDVariedad: 6, IDCategoriaSalida: 7,
		IDSemilla: semilla, IDSemillera: semillera, IDUnidad: unidad,
	}
}

func (m *memoryRepo) Create(_ context.Context, orden *OrdenSalida, detalles []DetalleRequest) error {
	restante := make(map[int64]int64)
	for _, d := range detalles {
		lote, ok := m.lotes[d.IDLoteProduccion]
		if !ok {
			return shared.NewNotFound("lote %d no encontrado", d.IDLoteProduccion)
		}
		if _, seen := restante[d.IDLoteProduccion]; !seen {
			restante[d.IDLoteProduccion] = lote.CantidadUnidades
		}
		if err := ValidarProcedencia(*lote, orden.IDSemillera, orden.IDSemilla); err != nil {
			return err
		}
		queda := *lote
		queda.CantidadUnidades = restante[d.IDLoteProduccion]
		if err := ValidarDisponibilidad(queda, d.CantidadUnidades); err != nil {
			return err
		}
		restante[d.IDLoteProduccion] -= d.CantidadUnidades
	}

	orden.ID = m.nextOrdenID
	m.nextOrdenID++
	orden.NumeroOrden = m.counter.Next(sequence.DocOrdenSalida, orden.FechaCreacion)

	for _, d := range detalles {
		lote := m.lotes[d.IDLoteProduccion]
		kgVenta := d.KgPorUnidad
		if kgVenta.IsZero() {
			kgVenta = lote.KgPorUnidad
		}
		detalle := DetalleOrdenSalida{
			ID:               m.nextDetalleID,
			IDOrdenSalida:    orden.ID,
			IDLoteProduccion: lote.ID,
			IDVariedad:       lote.IDVariedad,
			IDCategoria:      lote.IDCategoriaSalida,
			NroLote:          lote.NroLote,
			Tamano:           d.Tamano,
			CantidadUnidades: d.CantidadUnidades,
			KgPorUnidad:      kgVenta,
			TotalKg:          kgVenta.Mul(decimal.NewFromInt(d.CantidadUnidades)),
		}
		m.nextDetalleID++

		nuevoCantidad := lote.CantidadUnidades - d.CantidadUnidades
		nuevoTotal := lote.KgPorUnidad.Mul(decimal.NewFromInt(nuevoCantidad))
		m.movimientos = append(m.movimientos, movRecord{
			loteID: lote.ID, tipo: "salida", cantidad: d.CantidadUnidades,
			kg: lote.TotalKg.Sub(nuevoTotal), saldoUnidades: nuevoCantidad,
			saldoKg: nuevoTotal, ordenSalida: orden.ID,
		})
		lote.CantidadUnidades = nuevoCantidad
		lote.TotalKg = nuevoTotal
		lote.Estado = EstadoTrasVenta(nuevoCantidad)

		orden.Detalles = append(orden.Detalles, detalle)
	}

	cp := *orden
	m.ordenes[orden.ID] = &cp
	return nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*OrdenSalida, error) {
	orden, ok := m.ordenes[id]
	if !ok {
		return nil, nil
	}
	cp := *orden
	return &cp, nil
}

func (m *memoryRepo) GetByNumeroOrden(_ context.Context, numero string) (*OrdenSalida, error) {
	for _, orden := range m.ordenes {
		if orden.NumeroOrden == numero {
			cp := *orden
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memoryRepo) List(_ context.Context, filter ListFilter) ([]OrdenSalida, int, error) {
	var out []OrdenSalida
	for _, orden := range m.ordenes {
		if filter.IDUnidad != nil && orden.IDUnidad != *filter.IDUnidad {
			continue
		}
		if filter.IDCliente != nil && orden.IDCliente != *filter.IDCliente {
			continue
		}
		out = append(out, *orden)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Update(_ context.Context, orden *OrdenSalida) error {
	cp := *orden
	m.ordenes[orden.ID] = &cp
	return nil
}

func (m *memoryRepo) UpdateEstado(_ context.Context, id int64, estado EstadoSalida) error {
	if orden, ok := m.ordenes[id]; ok {
		orden.Estado = estado
	}
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	delete(m.ordenes, id)
	return nil
}

func (m *memoryRepo) LotesDisponibles(_ context.Context, idUnidad *int64) ([]LoteDisponible, error) {
	var out []LoteDisponible
	for _, l := range m.lotes {
		if l.Estado != "disponible" && l.Estado != "parcialmente_vendido" {
			continue
		}
		if l.CantidadUnidades == 0 {
			continue
		}
		if idUnidad != nil && l.IDUnidad != *idUnidad {
			continue
		}
		out = append(out, LoteDisponible{
			ID: l.ID, NroLote: l.NroLote, IDVariedad: l.IDVariedad,
			IDCategoriaSalida: l.IDCategoriaSalida, CantidadUnidades: l.CantidadUnidades,
			KgPorUnidad: l.KgPorUnidad, TotalKg: l.TotalKg, Estado: l.Estado, IDUnidad: l.IDUnidad,
		})
	}
	return out, nil
}

func (m *memoryRepo) Estadisticas(_ context.Context, _ EstadisticasFilter) ([]SalidaStat, error) {
	return nil, nil
}

func (m *memoryRepo) snapshot() (map[int64]LoteVenta, int, int) {
	lotes := make(map[int64]LoteVenta, len(m.lotes))
	for id, l := range m.lotes {
		lotes[id] = *l
	}
	return lotes, len(m.movimientos), len(m.ordenes)
}

var (
	admin    = shared.Actor{UserID: 1, Role: shared.RoleAdmin}
	operador = shared.Actor{UserID: 7, Role: shared.RoleOperador, UnitID: 3}
)

func kg(v string) decimal.Decimal {
	d, _ := decimal.NewFromString(v)
	return d
}

func salidaRequest(detalles ...DetalleRequest) CreateOrdenSalidaRequest {
	return CreateOrdenSalidaRequest{
		IDSemillera: 1,
		IDSemilla:   5,
		IDCliente:   2,
		IDConductor: 3,
		IDVehiculo:  4,
		FechaSalida: time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
		IDUnidad:    3,
		Detalles:    detalles,
	}
}

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	return NewService(repo, nil, nil), repo
}

func TestFullDrawdownSellsLot(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	repo.addLote(1, "LP-202609-0001", 100, "5", 5, 1, 3)

	orden, err := svc.Create(ctx, admin, salidaRequest(
		DetalleRequest{IDLoteProduccion: 1, CantidadUnidades: 100},
	))
	require.NoError(t, err)
	require.Regexp(t, `^OS-\d{6}-0001$`, orden.NumeroOrden)
	require.Len(t, orden.Detalles, 1)
	require.Equal(t, "LP-202609-0001", orden.Detalles[0].NroLote)

	lote := repo.lotes[1]
	require.Equal(t, int64(0), lote.CantidadUnidades)
	require.Equal(t, "vendido", lote.Estado)

	require.Len(t, repo.movimientos, 1)
	mov := repo.movimientos[0]
	require.Equal(t, "salida", mov.tipo)
	require.Equal(t, int64(0), mov.saldoUnidades)
	require.True(t, mov.saldoKg.IsZero())
	require.Equal(t, orden.ID, mov.ordenSalida)
}

func TestPartialDrawdown(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	repo.addLote(1, "LP-202609-0001", 100, "5", 5, 1, 3)

	_, err := svc.Create(ctx, admin, salidaRequest(
		DetalleRequest{IDLoteProduccion: 1, CantidadUnidades: 40},
	))
	require.NoError(t, err)

	lote := repo.lotes[1]
	require.Equal(t, int64(60), lote.CantidadUnidades)
	require.True(t, lote.TotalKg.Equal(kg("300")))
	require.Equal(t, "parcialmente_vendido", lote.Estado)

	mov := repo.movimientos[0]
	require.Equal(t, int64(60), mov.saldoUnidades)
	require.True(t, mov.saldoKg.Equal(kg("300")))
	require.True(t, mov.kg.Equal(kg("200")))
}

func TestOversellRejectedWithoutSideEffects(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	repo.addLote(1, "LP-202609-0001", 30, "5", 5, 1, 3)

	antes, movsAntes, ordenesAntes := repo.snapshot()

	_, err := svc.Create(ctx, admin, salidaRequest(
		DetalleRequest{IDLoteProduccion: 1, CantidadUnidades: 31},
	))
	var br *shared.BusinessRuleError
	require.ErrorAs(t, err, &br)
	require.Contains(t, br.Msg, "LP-202609-0001")
	require.Contains(t, br.Msg, "Disponible: 30")
	require.Contains(t, br.Msg, "Solicitado: 31")

	despues, movsDespues, ordenesDespues := repo.snapshot()
	require.Equal(t, antes, despues)
	require.Equal(t, movsAntes, movsDespues)
	require.Equal(t, ordenesAntes, ordenesDespues)
}

func TestMidBatchFailureIsAtomic(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	repo.addLote(1, "LP-202609-0001", 100, "5", 5, 1, 3)
	repo.addLote(2, "LP-202609-0002", 10, "5", 5, 1, 3)

	antes, movsAntes, ordenesAntes := repo.snapshot()

	// Line 1 is valid; line 2 oversells. Nothing may persist.
	_, err := svc.Create(ctx, admin, salidaRequest(
		DetalleRequest{IDLoteProduccion: 1, CantidadUnidades: 50},
		DetalleRequest{IDLoteProduccion: 2, CantidadUnidades: 11},
	))
	require.ErrorAs(t, err, new(*shared.BusinessRuleError))

	despues, movsDespues, ordenesDespues := repo.snapshot()
	require.Equal(t, antes, despues)
	require.Equal(t, movsAntes, movsDespues)
	require.Equal(t, ordenesAntes, ordenesDespues)
}

func TestRepeatedLotLinesShareTheBalance(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	repo.addLote(1, "LP-202609-0001", 100, "5", 5, 1, 3)

	// 60 + 50 exceeds the 100 available even though each line alone fits.
	_, err := svc.Create(ctx, admin, salidaRequest(
		DetalleRequest{IDLoteProduccion: 1, CantidadUnidades: 60},
		DetalleRequest{IDLoteProduccion: 1, CantidadUnidades: 50},
	))
	require.ErrorAs(t, err, new(*shared.BusinessRuleError))

	// 60 + 40 drains it exactly.
	_, err = svc.Create(ctx, admin, salidaRequest(
		DetalleRequest{IDLoteProduccion: 1, CantidadUnidades: 60},
		DetalleRequest{IDLoteProduccion: 1, CantidadUnidades: 40},
	))
	require.NoError(t, err)
	require.Equal(t, "vendido", repo.lotes[1].Estado)
}

func TestProvenanceMismatchRejected(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	// Lot belongs to semillera 9, order declares semillera 1.
	repo.addLote(1, "LP-202609-0001", 100, "5", 5, 9, 3)

	_, err := svc.Create(ctx, admin, salidaRequest(
		DetalleRequest{IDLoteProduccion: 1, CantidadUnidades: 10},
	))
	var br *shared.BusinessRuleError
	require.ErrorAs(t, err, &br)
	require.Contains(t, br.Msg, "semillera")

	// Seed mismatch likewise.
	repo.addLote(2, "LP-202609-0002", 100, "5", 8, 1, 3)
	_, err = svc.Create(ctx, admin, salidaRequest(
		DetalleRequest{IDLoteProduccion: 2, CantidadUnidades: 10},
	))
	require.ErrorAs(t, err, &br)
	require.Contains(t, br.Msg, "semilla")
}

func TestEmptyDetallesRejected(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	antes, movsAntes, ordenesAntes := repo.snapshot()

	_, err := svc.Create(ctx, admin, salidaRequest())
	require.ErrorAs(t, err, new(*shared.ValidationError))

	despues, movsDespues, ordenesDespues := repo.snapshot()
	require.Equal(t, antes, despues)
	require.Equal(t, movsAntes, movsDespues)
	require.Equal(t, ordenesAntes, ordenesDespues)
}

func TestUnknownLotRejected(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Create(context.Background(), admin, salidaRequest(
		DetalleRequest{IDLoteProduccion: 99, CantidadUnidades: 1},
	))
	require.ErrorAs(t, err, new(*shared.NotFoundError))
}

func TestCreateUnitScoping(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	repo.addLote(1, "LP-202609-0001", 100, "5", 5, 1, 3)

	req := salidaRequest(DetalleRequest{IDLoteProduccion: 1, CantidadUnidades: 10})
	req.IDUnidad = 0
	orden, err := svc.Create(ctx, operador, req)
	require.NoError(t, err)
	require.Equal(t, operador.UnitID, orden.IDUnidad)

	req.IDUnidad = 99
	_, err = svc.Create(ctx, operador, req)
	require.ErrorAs(t, err, new(*shared.AuthorizationError))

	req.IDUnidad = 0
	_, err = svc.Create(ctx, admin, req)
	require.ErrorAs(t, err, new(*shared.ValidationError))
}

func TestUpdateAndRemoveBlockedWhenCompleted(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	repo.addLote(1, "LP-202609-0001", 100, "5", 5, 1, 3)

	orden, err := svc.Create(ctx, admin, salidaRequest(
		DetalleRequest{IDLoteProduccion: 1, CantidadUnidades: 10},
	))
	require.NoError(t, err)

	_, err = svc.CambiarEstado(ctx, admin, orden.ID, "completado")
	require.NoError(t, err)

	deposito := "galpón 2"
	_, err = svc.Update(ctx, admin, orden.ID, UpdateOrdenSalidaRequest{Deposito: &deposito})
	require.ErrorAs(t, err, new(*shared.BusinessRuleError))
	require.ErrorAs(t, svc.Remove(ctx, admin, orden.ID), new(*shared.BusinessRuleError))

	_, err = svc.CambiarEstado(ctx, admin, orden.ID, "volando")
	require.ErrorAs(t, err, new(*shared.ValidationError))
}

func TestLotesDisponiblesScoped(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	repo.addLote(1, "LP-202609-0001", 100, "5", 5, 1, 3)
	repo.addLote(2, "LP-202609-0002", 100, "5", 5, 1, 8)
	repo.lotes[2].Estado = "disponible"

	lotes, err := svc.LotesDisponibles(ctx, operador)
	require.NoError(t, err)
	require.Len(t, lotes, 1)
	require.Equal(t, "LP-202609-0001", lotes[0].NroLote)

	todos, err := svc.LotesDisponibles(ctx, admin)
	require.NoError(t, err)
	require.Len(t, todos, 2)
}

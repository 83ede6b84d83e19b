package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/semillero-erp/semillero-erp/internal/shared"
)

// Service answers ledger queries and cross-checks balances. It never writes:
// rows enter the ledger inside the production and outbound transactions.
type Service struct {
	repo Repository
}

// NewService builds Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// HistorialByLote returns a lot's trail, newest first.
func (s *Service) HistorialByLote(ctx context.Context, actor shared.Actor, loteID int64) ([]MovimientoLote, error) {
	if _, err := s.loteScoped(ctx, actor, loteID); err != nil {
		return nil, err
	}
	return s.repo.HistorialByLote(ctx, loteID)
}

// ByOrdenSalida returns every movement an outbound order caused.
func (s *Service) ByOrdenSalida(ctx context.Context, ordenID int64) ([]MovimientoLote, error) {
	return s.repo.ByOrdenSalida(ctx, ordenID)
}

// Resumen totals a lot's entradas and salidas and cross-checks the newest
// snapshot against the lot's stored balance. A mismatch is a data bug and
// surfaces as an IntegrityError rather than being papered over.
func (s *Service) Resumen(ctx context.Context, actor shared.Actor, loteID int64) (*Resumen, error) {
	saldo, err := s.loteScoped(ctx, actor, loteID)
	if err != nil {
		return nil, err
	}
	movs, err := s.repo.HistorialByLote(ctx, loteID)
	if err != nil {
		return nil, err
	}

	entradas, salidas := decimal.Zero, decimal.Zero
	for _, m := range movs {
		switch m.TipoMovimiento {
		case MovEntrada:
			entradas = entradas.Add(m.KgMovidos)
		case MovSalida:
			salidas = salidas.Add(m.KgMovidos)
		}
	}

	actual := decimal.Zero
	if len(movs) > 0 {
		ultimo := movs[0]
		actual = ultimo.SaldoKg
		if !ultimo.SaldoKg.Equal(saldo.TotalKg) || ultimo.SaldoUnidades != saldo.CantidadUnidades {
			return nil, shared.NewIntegrity(
				"el saldo del lote %s no coincide con su historial: lote %s kg / %d unidades, historial %s kg / %d unidades",
				saldo.NroLote, saldo.TotalKg, saldo.CantidadUnidades, ultimo.SaldoKg, ultimo.SaldoUnidades)
		}
	}

	return &Resumen{
		NroLote:             saldo.NroLote,
		TotalEntradas:       entradas,
		TotalSalidas:        salidas,
		SaldoActual:         actual,
		CantidadMovimientos: len(movs),
	}, nil
}

// VerificarIntegridad sweeps every lot and reports those whose stored balance
// disagrees with the newest ledger snapshot. The reconciliation worker runs
// this periodically.
func (s *Service) VerificarIntegridad(ctx context.Context) ([]Inconsistencia, error) {
	return s.repo.UltimosSaldos(ctx)
}

func (s *Service) loteScoped(ctx context.Context, actor shared.Actor, loteID int64) (*LoteSaldo, error) {
	saldo, err := s.repo.LoteSaldo(ctx, loteID)
	if err != nil {
		return nil, err
	}
	if saldo == nil {
		return nil, shared.NewNotFound("lote de producción con ID %d no encontrado", loteID)
	}
	if !actor.Role.Elevated() && saldo.IDUnidad != actor.UnitID {
		return nil, shared.NewAuthorization("no tienes acceso al lote %s", saldo.NroLote)
	}
	return saldo, nil
}

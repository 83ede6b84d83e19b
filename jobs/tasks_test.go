package jobs_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/semillero-erp/semillero-erp/internal/ledger"
	"github.com/semillero-erp/semillero-erp/jobs"
)

type sweepRepo struct {
	hallazgos []ledger.Inconsistencia
}

func (r *sweepRepo) HistorialByLote(context.Context, int64) ([]ledger.MovimientoLote, error) {
	return nil, nil
}

func (r *sweepRepo) ByOrdenSalida(context.Context, int64) ([]ledger.MovimientoLote, error) {
	return nil, nil
}

func (r *sweepRepo) LoteSaldo(context.Context, int64) (*ledger.LoteSaldo, error) {
	return nil, nil
}

func (r *sweepRepo) UltimosSaldos(context.Context) ([]ledger.Inconsistencia, error) {
	return r.hallazgos, nil
}

func TestVerificarIntegridadHandlerRuns(t *testing.T) {
	svc := ledger.NewService(&sweepRepo{
		hallazgos: []ledger.Inconsistencia{{IDLoteProduccion: 1, NroLote: "LP-202609-0001"}},
	})
	handler := jobs.NewVerificarIntegridadHandler(slog.Default(), svc)

	require.NoError(t, handler(context.Background(), jobs.NewVerificarIntegridadTask()))
}

func TestTaskTypes(t *testing.T) {
	require.Equal(t, jobs.TaskVerificarIntegridad, jobs.NewVerificarIntegridadTask().Type())
	require.Equal(t, jobs.TaskCalentarInventario, jobs.NewCalentarInventarioTask().Type())
}

// Package jobs runs the background work the API should not block on: the
// nightly ledger reconciliation sweep and the inventory report cache warmup.
package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/semillero-erp/semillero-erp/internal/ledger"
	"github.com/semillero-erp/semillero-erp/internal/production"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskVerificarIntegridad sweeps every lot comparing its stored balance
	// against the newest ledger row.
	TaskVerificarIntegridad = "inventario:verificar-integridad"
	// TaskCalentarInventario refreshes the per-variety inventory report cache.
	TaskCalentarInventario = "inventario:calentar-cache"
)

// NewVerificarIntegridadTask constructs the reconciliation task.
func NewVerificarIntegridadTask() *asynq.Task {
	return asynq.NewTask(TaskVerificarIntegridad, nil)
}

// NewCalentarInventarioTask constructs the cache warmup task.
func NewCalentarInventarioTask() *asynq.Task {
	return asynq.NewTask(TaskCalentarInventario, nil)
}

// NewVerificarIntegridadHandler builds the handler for the reconciliation
// sweep. Inconsistencies are logged, never auto-corrected.
func NewVerificarIntegridadHandler(logger *slog.Logger, svc *ledger.Service) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		inconsistencias, err := svc.VerificarIntegridad(ctx)
		if err != nil {
			return err
		}
		if len(inconsistencias) == 0 {
			logger.Info("verificacion de integridad sin hallazgos", slog.String("job", TaskVerificarIntegridad))
			return nil
		}
		for _, inc := range inconsistencias {
			logger.Error("saldo de lote no coincide con su historial",
				slog.String("job", TaskVerificarIntegridad),
				slog.String("nro_lote", inc.NroLote),
				slog.String("saldo_lote_kg", inc.SaldoLoteKg.String()),
				slog.String("saldo_ledger_kg", inc.SaldoLedgerKg.String()),
				slog.Int64("saldo_lote_unidades", inc.SaldoLoteUnidades),
				slog.Int64("saldo_ledger_unidades", inc.SaldoLedgerUnidades),
			)
		}
		return nil
	}
}

// NewCalentarInventarioHandler builds the handler that pre-computes the
// inventory report so the first morning request hits a warm cache.
func NewCalentarInventarioHandler(logger *slog.Logger, svc *production.Service) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		inventario, err := svc.InventarioPorVariedad(ctx)
		if err != nil {
			return err
		}
		logger.Info("cache de inventario calentada",
			slog.String("job", TaskCalentarInventario),
			slog.Int("variedades", len(inventario)))
		return nil
	}
}

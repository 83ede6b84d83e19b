package production

import (
	"context"

	"github.com/semillero-erp/semillero-erp/internal/intake"
)

// OrderStateListener is notified after every committed lot mutation so the
// parent intake order can re-derive its state. intake.Service satisfies it.
type OrderStateListener interface {
	OnLotChanged(ctx context.Context, ordenID int64, change intake.LotChange) error
}

package lots

import (
	"context"

	"kasir/internal/core/id"
	"kasir/internal/core/types"
)

// Repository defines persistence operations for the lot ledger.
// Write paths are called only from inside a transaction opened by the
// mutation service; the FOR UPDATE variants take row locks there.
type Repository interface {
	// Create inserts a new lot.
	Create(ctx context.Context, lot *Lot) error

	// ListLiveForUpdate returns lots with remaining quantity > 0 for the
	// exact (product, store, unit) triple, oldest received first, locked
	// for update.
	ListLiveForUpdate(ctx context.Context, productID, storeID, unitID id.ID) ([]*Lot, error)

	// UpdateRemaining sets the remaining quantity of a lot.
	UpdateRemaining(ctx context.Context, lotID id.ID, remaining types.Quantity) error

	// ListByPurchaseOrderForUpdate returns every lot tied to the order,
	// locked for update. Empty result means the order has no lots.
	ListByPurchaseOrderForUpdate(ctx context.Context, purchaseOrderID id.ID) ([]*Lot, error)

	// DeleteByPurchaseOrder removes all lots tied to the order.
	DeleteByPurchaseOrder(ctx context.Context, purchaseOrderID id.ID) error

	// AverageCost aggregates live lots (remaining > 0) per unit, returning
	// the remaining-weighted average cost and total remaining quantity.
	AverageCost(ctx context.Context, productID, storeID id.ID) ([]UnitCost, error)
}

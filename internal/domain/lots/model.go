// Package lots provides the append-only lot ledger: one lot per received
// purchase-order line, tracked with its own remaining quantity and cost.
package lots

import (
	"time"

	"kasir/internal/core/id"
	"kasir/internal/core/types"
)

// Lot is a batch of stock received at a point in time.
// Invariant: 0 <= RemainingQuantity <= Quantity; RemainingQuantity is
// monotonically non-increasing.
type Lot struct {
	ID      id.ID `db:"id" json:"id"`
	StoreID id.ID `db:"store_id" json:"storeId"`

	ProductID id.ID `db:"product_id" json:"productId"`
	UnitID    id.ID `db:"unit_id" json:"unitId"`

	// Quantity is the originally received quantity, in UnitID terms.
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// RemainingQuantity is decremented as stock is consumed by sales.
	RemainingQuantity types.Quantity `db:"remaining_quantity" json:"remainingQuantity"`

	// UnitCost is the cost of one UnitID of this lot.
	UnitCost types.Money `db:"unit_cost" json:"unitCost"`

	// BaseQuantity and BaseUnitPrice are the base-unit equivalents of the
	// entered quantity and cost, persisted at receipt so cross-unit cost
	// comparisons never reconvert at read time.
	BaseQuantity  types.Quantity `db:"base_quantity" json:"baseQuantity"`
	BaseUnitPrice types.Money    `db:"base_unit_price" json:"baseUnitPrice"`

	// PurchaseOrderID ties the lot to its originating order, for reversal.
	PurchaseOrderID *id.ID `db:"purchase_order_id" json:"purchaseOrderId,omitempty"`

	ReceivedAt time.Time `db:"received_at" json:"receivedAt"`
}

// IsUntouched reports whether nothing has been consumed from the lot yet.
// Only untouched lots may be removed by a purchase-order reversal.
func (l *Lot) IsUntouched() bool {
	return l.RemainingQuantity == l.Quantity
}

// ReversedSupply is a per-(product, unit) quantity total returned by
// reversal, so the caller can subtract the removed supply from the matching
// stock records. An order may span several products and units.
type ReversedSupply struct {
	ProductID id.ID          `json:"productId"`
	StoreID   id.ID          `json:"storeId"`
	UnitID    id.ID          `json:"unitId"`
	Quantity  types.Quantity `json:"quantity"`
}

// UnitCost is the remaining-weighted average cost of live lots in one unit.
type UnitCost struct {
	UnitID            id.ID          `db:"unit_id" json:"unitId"`
	AverageCost       types.Money    `db:"average_cost" json:"averageCost"`
	RemainingQuantity types.Quantity `db:"remaining_quantity" json:"remainingQuantity"`
}

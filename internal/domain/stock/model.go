// Package stock provides the per-unit stock record: the authoritative
// available-quantity row for one (product, store, unit) triple.
package stock

import (
	"context"
	"time"

	"kasir/internal/core/id"
	"kasir/internal/core/types"
)

// Record is the materialized availability for one (product, store, unit).
// Once a record exists it is canonical: its quantity equals the sum of
// remaining quantities across all lots for the same triple, and the legacy
// product summary counter is never consulted again for that triple.
type Record struct {
	ProductID id.ID `db:"product_id" json:"productId"`
	StoreID   id.ID `db:"store_id" json:"storeId"`
	UnitID    id.ID `db:"unit_id" json:"unitId"`

	Quantity types.Quantity `db:"quantity" json:"quantity"`

	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Repository defines operations on per-unit stock records.
// Only the mutation service writes through this interface; reporting code
// reads through the Resolver.
type Repository interface {
	// Get returns the record for the triple, or (nil, nil) when none exists.
	// A missing record is a defined state (pre-migration data), not an error.
	Get(ctx context.Context, productID, storeID, unitID id.ID) (*Record, error)

	// GetForUpdate is Get with a row lock. The locked record is the
	// serialization point for concurrent mutations of the same triple.
	GetForUpdate(ctx context.Context, productID, storeID, unitID id.ID) (*Record, error)

	// Create inserts a new record (lazy creation on first mutation).
	Create(ctx context.Context, rec *Record) error

	// AddQuantity adds delta (possibly negative) to a record's quantity.
	AddQuantity(ctx context.Context, productID, storeID, unitID id.ID, delta types.Quantity) error

	// ListByProduct returns all records for a product in a store.
	ListByProduct(ctx context.Context, productID, storeID id.ID) ([]*Record, error)
}

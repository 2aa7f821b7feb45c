// Package product provides the product catalog entries the ledger depends on.
// Only the fields the ledger reads or writes are modeled here: the default
// unit and the legacy stock-on-hand summary counter.
package product

import (
	"context"
	"time"

	"kasir/internal/core/id"
	"kasir/internal/core/types"
)

// Product is a sellable item, scoped to a store.
type Product struct {
	ID      id.ID  `db:"id" json:"id"`
	StoreID id.ID  `db:"store_id" json:"storeId"`
	Name    string `db:"name" json:"name"`

	// DefaultUnitID is the unit the summary counter is denominated in.
	DefaultUnitID id.ID `db:"default_unit_id" json:"defaultUnitId"`

	// StockOnHand is the legacy denormalized summary counter, in the default
	// unit. It is a fallback source of truth only until a per-unit stock
	// record exists; after that it is a cache kept in sync transactionally
	// by the mutation service and never read on its own.
	StockOnHand types.Quantity `db:"stock_on_hand" json:"stockOnHand"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Repository defines product operations used by the ledger.
type Repository interface {
	// GetByID retrieves a product. Returns apperror.CodeNotFound when missing.
	GetByID(ctx context.Context, productID id.ID) (*Product, error)

	// GetForUpdate retrieves a product with a row lock. The mutation service
	// locks the product row first in every operation so that concurrent
	// mutations of the same product serialize in a consistent order.
	GetForUpdate(ctx context.Context, productID id.ID) (*Product, error)

	// AddToSummary adds delta (possibly negative) to the summary counter.
	AddToSummary(ctx context.Context, productID id.ID, delta types.Quantity) error

	// Create persists a new product.
	Create(ctx context.Context, p *Product) error
}

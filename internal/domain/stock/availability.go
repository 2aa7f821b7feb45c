package stock

import (
	"context"
	"fmt"

	"kasir/internal/core/apperror"
	"kasir/internal/core/id"
	"kasir/internal/core/types"
	"kasir/internal/domain/catalogs/product"
	"kasir/internal/domain/catalogs/unit"
)

// Resolver answers "how much of product P, unit U, at store S is available".
// Read-only; it never creates records or touches the summary counter.
//
// Policy: the per-unit stock record is authoritative when it exists, even
// when its quantity is zero or lower than the summary counter. The summary
// counter is consulted only for triples that predate per-unit tracking.
type Resolver struct {
	records  Repository
	products product.Repository
	units    *unit.Graph
}

// NewResolver creates an availability resolver.
func NewResolver(records Repository, products product.Repository, units *unit.Graph) *Resolver {
	return &Resolver{
		records:  records,
		products: products,
		units:    units,
	}
}

// GetAvailable returns the available quantity in the requested unit.
//
// Fallback: when no per-unit record exists, the product summary counter is
// interpreted as being denominated in the product's default unit and
// converted into the requested unit. Incompatible units yield zero rather
// than an error, because legacy counters for unrelated units carry no
// meaningful availability.
func (r *Resolver) GetAvailable(ctx context.Context, productID, storeID, unitID id.ID) (types.Quantity, error) {
	rec, err := r.records.Get(ctx, productID, storeID, unitID)
	if err != nil {
		return 0, fmt.Errorf("get stock record: %w", err)
	}
	if rec != nil {
		return rec.Quantity, nil
	}

	p, err := r.products.GetByID(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("get product: %w", err)
	}

	if p.DefaultUnitID == unitID {
		return p.StockOnHand, nil
	}

	converted, err := r.units.Convert(ctx, p.StockOnHand, p.DefaultUnitID, unitID)
	if err != nil {
		if apperror.IsIncompatibleUnits(err) {
			return 0, nil
		}
		return 0, err
	}

	return converted, nil
}

// GetAvailability returns all per-unit records for a product in a store.
// Used by stock displays; triples without a record are not listed.
func (r *Resolver) GetAvailability(ctx context.Context, productID, storeID id.ID) ([]*Record, error) {
	return r.records.ListByProduct(ctx, productID, storeID)
}

// Package unit provides the packaging-unit catalog and conversion graph.
// Every product quantity in the ledger is denominated in one of these units.
package unit

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"kasir/internal/core/apperror"
	"kasir/internal/core/id"
)

// Unit represents a packaging unit of measure, scoped to a store.
// A non-base unit references its base unit directly; the graph has depth 1,
// chained conversions are not allowed.
type Unit struct {
	ID      id.ID  `db:"id" json:"id"`
	StoreID id.ID  `db:"store_id" json:"storeId"`
	Name    string `db:"name" json:"name"`
	Symbol  string `db:"symbol" json:"symbol"`

	// IsBase indicates if this is a base unit (not derived)
	IsBase bool `db:"is_base" json:"isBase"`

	// BaseUnitID is the referenced base unit for conversion units
	BaseUnitID *id.ID `db:"base_unit_id" json:"baseUnitId,omitempty"`

	// ConversionFactor expresses "1 of this unit = ConversionFactor base units".
	// Always 1 for base units.
	ConversionFactor decimal.Decimal `db:"conversion_factor" json:"conversionFactor"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewBaseUnit creates a base unit with factor 1.
func NewBaseUnit(storeID id.ID, name, symbol string) *Unit {
	now := time.Now().UTC()
	return &Unit{
		ID:               id.New(),
		StoreID:          storeID,
		Name:             name,
		Symbol:           symbol,
		IsBase:           true,
		ConversionFactor: decimal.NewFromInt(1),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// NewConversionUnit creates a unit derived from a base unit.
func NewConversionUnit(storeID id.ID, name, symbol string, baseUnitID id.ID, factor decimal.Decimal) *Unit {
	now := time.Now().UTC()
	return &Unit{
		ID:               id.New(),
		StoreID:          storeID,
		Name:             name,
		Symbol:           symbol,
		IsBase:           false,
		BaseUnitID:       &baseUnitID,
		ConversionFactor: factor,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Validate checks unit invariants before persistence.
func (u *Unit) Validate(ctx context.Context) error {
	if u.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}

	if !u.ConversionFactor.IsPositive() {
		return apperror.NewValidation("conversion factor must be positive").
			WithDetail("field", "conversionFactor")
	}

	if u.IsBase {
		if u.BaseUnitID != nil {
			return apperror.NewValidation("base unit must not reference another unit").
				WithDetail("field", "baseUnitId")
		}
		if !u.ConversionFactor.Equal(decimal.NewFromInt(1)) {
			return apperror.NewValidation("base unit conversion factor must be 1").
				WithDetail("field", "conversionFactor")
		}
		return nil
	}

	if u.BaseUnitID == nil || id.IsNil(*u.BaseUnitID) {
		return apperror.NewValidation("conversion unit must reference a base unit").
			WithDetail("field", "baseUnitId")
	}

	return nil
}

// Repository defines lookup operations for units.
type Repository interface {
	// GetByID retrieves a unit. Returns apperror.CodeNotFound when missing.
	GetByID(ctx context.Context, unitID id.ID) (*Unit, error)

	// ListByStore returns all units configured for a store.
	ListByStore(ctx context.Context, storeID id.ID) ([]*Unit, error)

	// Create persists a new unit.
	Create(ctx context.Context, u *Unit) error
}

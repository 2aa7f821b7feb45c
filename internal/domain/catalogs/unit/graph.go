package unit

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"kasir/internal/core/apperror"
	"kasir/internal/core/id"
	"kasir/internal/core/types"
)

// Graph resolves conversion factors between packaging units and their base
// units. It is the only place unit conversion happens; every other component
// states explicitly which unit it expects.
//
// Pure reads: the graph never mutates state and performs no I/O beyond unit
// lookups through the repository.
type Graph struct {
	repo Repository
}

// NewGraph creates a conversion graph over the unit catalog.
func NewGraph(repo Repository) *Graph {
	return &Graph{repo: repo}
}

// ResolveToBase returns the base unit and conversion factor for a unit.
// For a base unit it returns the unit itself and factor 1.
func (g *Graph) ResolveToBase(ctx context.Context, unitID id.ID) (*Unit, decimal.Decimal, error) {
	u, err := g.repo.GetByID(ctx, unitID)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("resolve unit: %w", err)
	}

	if u.IsBase {
		return u, decimal.NewFromInt(1), nil
	}

	if u.BaseUnitID == nil {
		return nil, decimal.Zero, apperror.NewValidation("conversion unit has no base unit").
			WithDetail("unit_id", unitID.String())
	}

	base, err := g.repo.GetByID(ctx, *u.BaseUnitID)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("resolve base unit: %w", err)
	}

	// Depth-1 invariant: the referenced unit must itself be a base unit.
	if !base.IsBase {
		return nil, decimal.Zero, apperror.NewValidation("unit references a non-base unit").
			WithDetail("unit_id", unitID.String()).
			WithDetail("base_unit_id", base.ID.String())
	}

	return base, u.ConversionFactor, nil
}

// Convert converts a quantity between two units sharing the same base:
// quantity * factorFrom / factorTo. Fails with IncompatibleUnits when the
// units do not resolve to the same base.
func (g *Graph) Convert(ctx context.Context, qty types.Quantity, fromID, toID id.ID) (types.Quantity, error) {
	if fromID == toID {
		return qty, nil
	}

	fromBase, fromFactor, err := g.ResolveToBase(ctx, fromID)
	if err != nil {
		return 0, err
	}
	toBase, toFactor, err := g.ResolveToBase(ctx, toID)
	if err != nil {
		return 0, err
	}

	if fromBase.ID != toBase.ID {
		return 0, apperror.NewIncompatibleUnits(fromID.String(), toID.String())
	}

	converted := qty.Decimal().Mul(fromFactor).Div(toFactor)
	return types.NewQuantityFromDecimal(converted), nil
}

// ToBaseQuantity converts a quantity into its base-unit equivalent.
func (g *Graph) ToBaseQuantity(ctx context.Context, qty types.Quantity, unitID id.ID) (types.Quantity, error) {
	_, factor, err := g.ResolveToBase(ctx, unitID)
	if err != nil {
		return 0, err
	}
	return types.NewQuantityFromDecimal(qty.Decimal().Mul(factor)), nil
}

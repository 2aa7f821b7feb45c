// Package costing aggregates lot costs for margin estimation and normalizes
// purchase-order entry prices into base-unit terms.
package costing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"kasir/internal/core/apperror"
	"kasir/internal/core/id"
	"kasir/internal/core/types"
	"kasir/internal/domain/catalogs/unit"
	"kasir/internal/domain/lots"
)

// CurrencyPlaces is the display precision for money values.
// Stored values keep full precision; rounding is half-up.
const CurrencyPlaces int32 = 2

// Service wraps the lot ledger's average-cost aggregation and derives the
// base-unit equivalents persisted alongside purchase-order lines, so that
// cross-unit cost comparisons never recompute conversions at read time.
type Service struct {
	lots  *lots.Service
	units *unit.Graph
}

// NewService creates a costing service.
func NewService(lotSvc *lots.Service, units *unit.Graph) *Service {
	return &Service{lots: lotSvc, units: units}
}

// AverageCost returns, per unit, the remaining-weighted average cost of live
// lots for a product. Empty slice when there is no live stock.
func (s *Service) AverageCost(ctx context.Context, productID, storeID id.ID) ([]lots.UnitCost, error) {
	return s.lots.AverageCost(ctx, productID, storeID)
}

// NormalizedLine carries a purchase line in both entered-unit and base-unit
// terms.
type NormalizedLine struct {
	UnitID   id.ID          `json:"unitId"`
	Quantity types.Quantity `json:"quantity"`
	UnitPrice types.Money   `json:"unitPrice"`

	BaseUnitID    id.ID          `json:"baseUnitId"`
	BaseQuantity  types.Quantity `json:"baseQuantity"`
	BaseUnitPrice types.Money    `json:"baseUnitPrice"`
}

// NormalizePurchaseLine derives the base-unit equivalents of an entered
// purchase line: baseUnitPrice = unitPrice / conversionFactor and
// baseQuantity = quantity * conversionFactor.
func (s *Service) NormalizePurchaseLine(ctx context.Context, unitID id.ID, quantity types.Quantity, unitPrice types.Money) (*NormalizedLine, error) {
	if !quantity.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", quantity.String())
	}
	if unitPrice.IsNegative() {
		return nil, apperror.NewValidation("unit price must not be negative").
			WithDetail("unit_price", unitPrice.String())
	}

	base, factor, err := s.units.ResolveToBase(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("resolve unit: %w", err)
	}

	return &NormalizedLine{
		UnitID:        unitID,
		Quantity:      quantity,
		UnitPrice:     unitPrice,
		BaseUnitID:    base.ID,
		BaseQuantity:  types.NewQuantityFromDecimal(quantity.Decimal().Mul(factor)),
		BaseUnitPrice: unitPrice.Div(factor),
	}, nil
}

// DisplayCost rounds a money value half-up to the smallest currency unit.
func DisplayCost(m types.Money) decimal.Decimal {
	return types.RoundCurrency(m, CurrencyPlaces)
}

package lots

import (
	"context"
	"fmt"
	"time"

	"kasir/internal/core/apperror"
	"kasir/internal/core/id"
	"kasir/internal/core/types"
	"kasir/pkg/logger"
)

// Service provides business operations on the lot ledger.
// Transactions are managed by the caller (the mutation service); every
// method here assumes it runs inside one.
type Service struct {
	repo Repository
}

// NewService creates a new lot ledger service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateParams describes one received purchase-order line.
// BaseQuantity and BaseUnitPrice are the caller's normalized base-unit
// equivalents, stored verbatim.
type CreateParams struct {
	ProductID       id.ID
	StoreID         id.ID
	UnitID          id.ID
	Quantity        types.Quantity
	UnitCost        types.Money
	BaseQuantity    types.Quantity
	BaseUnitPrice   types.Money
	PurchaseOrderID *id.ID
}

// Create records a new lot with remaining quantity equal to the received
// quantity. Lots only add supply, so no stock sufficiency check applies.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Lot, error) {
	if !p.Quantity.IsPositive() {
		return nil, apperror.NewValidation("lot quantity must be positive").
			WithDetail("quantity", p.Quantity.String())
	}
	if p.UnitCost.IsNegative() {
		return nil, apperror.NewValidation("unit cost must not be negative").
			WithDetail("unit_cost", p.UnitCost.String())
	}

	lot := &Lot{
		ID:                id.New(),
		StoreID:           p.StoreID,
		ProductID:         p.ProductID,
		UnitID:            p.UnitID,
		Quantity:          p.Quantity,
		RemainingQuantity: p.Quantity,
		UnitCost:          p.UnitCost,
		BaseQuantity:      p.BaseQuantity,
		BaseUnitPrice:     p.BaseUnitPrice,
		PurchaseOrderID:   p.PurchaseOrderID,
		ReceivedAt:        time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, lot); err != nil {
		return nil, fmt.Errorf("create lot: %w", err)
	}

	return lot, nil
}

// Consume decrements remaining quantities across lots for the exact
// (product, store, unit) triple, oldest received first, until the requested
// quantity is satisfied.
//
// Consumption never crosses a unit boundary: a request in a unit with no
// live lots fails with NoLotsAvailable even if convertible lots exist.
// Conversion is the caller's responsibility, done through the unit graph
// before calling.
//
// All-or-nothing: when the live lots cannot cover the request, no lot is
// mutated and InsufficientLotStock is returned.
func (s *Service) Consume(ctx context.Context, productID, storeID, unitID id.ID, quantity types.Quantity) error {
	if !quantity.IsPositive() {
		return apperror.NewValidation("consume quantity must be positive").
			WithDetail("quantity", quantity.String())
	}

	live, err := s.repo.ListLiveForUpdate(ctx, productID, storeID, unitID)
	if err != nil {
		return fmt.Errorf("list live lots: %w", err)
	}

	if len(live) == 0 {
		return apperror.NewNoLotsAvailable(productID.String(), unitID.String())
	}

	var available types.Quantity
	for _, lot := range live {
		available += lot.RemainingQuantity
	}
	if available < quantity {
		return apperror.NewInsufficientLotStock(
			productID.String(), unitID.String(),
			quantity.Float64(), available.Float64(),
		)
	}

	remaining := quantity
	for _, lot := range live {
		if remaining.IsZero() {
			break
		}

		take := lot.RemainingQuantity
		if take > remaining {
			take = remaining
		}

		if err := s.repo.UpdateRemaining(ctx, lot.ID, lot.RemainingQuantity-take); err != nil {
			return fmt.Errorf("update lot %s: %w", lot.ID, err)
		}
		remaining -= take
	}

	return nil
}

// StageReversal locks the order's lots, verifies none has been consumed and
// returns the supply to remove, grouped by (product, unit). Nothing is
// deleted yet; the caller runs its own checks and then calls CommitReversal
// inside the same transaction.
//
// Fails with LotAlreadyConsumed if any lot has been partially consumed; in
// that case the order must not be removed.
func (s *Service) StageReversal(ctx context.Context, purchaseOrderID id.ID) ([]ReversedSupply, error) {
	found, err := s.repo.ListByPurchaseOrderForUpdate(ctx, purchaseOrderID)
	if err != nil {
		return nil, fmt.Errorf("list lots by order: %w", err)
	}

	if len(found) == 0 {
		return nil, apperror.NewNotFound("purchase order lots", purchaseOrderID.String())
	}

	for _, lot := range found {
		if !lot.IsUntouched() {
			return nil, apperror.NewLotAlreadyConsumed(purchaseOrderID.String()).
				WithDetail("lot_id", lot.ID.String()).
				WithDetail("remaining", lot.RemainingQuantity.String()).
				WithDetail("received", lot.Quantity.String())
		}
	}

	// Group removed supply by (product, unit), preserving first-seen order.
	type groupKey struct{ productID, unitID id.ID }
	totals := make([]ReversedSupply, 0, len(found))
	index := make(map[groupKey]int, len(found))
	for _, lot := range found {
		key := groupKey{lot.ProductID, lot.UnitID}
		if i, ok := index[key]; ok {
			totals[i].Quantity += lot.Quantity
			continue
		}
		index[key] = len(totals)
		totals = append(totals, ReversedSupply{
			ProductID: lot.ProductID,
			StoreID:   lot.StoreID,
			UnitID:    lot.UnitID,
			Quantity:  lot.Quantity,
		})
	}

	return totals, nil
}

// CommitReversal deletes the order's lots staged by StageReversal.
func (s *Service) CommitReversal(ctx context.Context, purchaseOrderID id.ID) error {
	if err := s.repo.DeleteByPurchaseOrder(ctx, purchaseOrderID); err != nil {
		return fmt.Errorf("delete lots by order: %w", err)
	}

	logger.Info(ctx, "reversed purchase order lots",
		"purchase_order_id", purchaseOrderID,
	)

	return nil
}

// ReverseByPurchaseOrder stages and immediately commits a reversal. See
// StageReversal for the failure modes.
func (s *Service) ReverseByPurchaseOrder(ctx context.Context, purchaseOrderID id.ID) ([]ReversedSupply, error) {
	totals, err := s.StageReversal(ctx, purchaseOrderID)
	if err != nil {
		return nil, err
	}
	if err := s.CommitReversal(ctx, purchaseOrderID); err != nil {
		return nil, err
	}
	return totals, nil
}

// AverageCost returns, per unit, the remaining-weighted average cost across
// live lots for a product. An empty result means no live stock; that is not
// an error.
func (s *Service) AverageCost(ctx context.Context, productID, storeID id.ID) ([]UnitCost, error) {
	costs, err := s.repo.AverageCost(ctx, productID, storeID)
	if err != nil {
		return nil, fmt.Errorf("average cost: %w", err)
	}
	return costs, nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"kasir/internal/core/id"
	"kasir/internal/core/types"
	"kasir/internal/domain/lots"
)

const lotTable = "inv_lots"

var lotColumns = []string{
	"id", "store_id", "product_id", "unit_id",
	"quantity", "remaining_quantity", "unit_cost",
	"base_quantity", "base_unit_price",
	"purchase_order_id", "received_at",
}

// LotRepo implements lots.Repository.
type LotRepo struct {
	txm     *TxManager
	builder squirrel.StatementBuilderType
}

// NewLotRepo creates a new lot repository.
func NewLotRepo(txm *TxManager) *LotRepo {
	return &LotRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new lot.
func (r *LotRepo) Create(ctx context.Context, lot *lots.Lot) error {
	q := r.builder.Insert(lotTable).
		Columns(lotColumns...).
		Values(
			lot.ID, lot.StoreID, lot.ProductID, lot.UnitID,
			lot.Quantity, lot.RemainingQuantity, lot.UnitCost,
			lot.BaseQuantity, lot.BaseUnitPrice,
			lot.PurchaseOrderID, lot.ReceivedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lot: %w", err)
	}

	return nil
}

// ListLiveForUpdate returns live lots for the exact triple, oldest received
// first, locked for update. UUIDv7 ids break ties deterministically for
// lots received at the same instant.
func (r *LotRepo) ListLiveForUpdate(ctx context.Context, productID, storeID, unitID id.ID) ([]*lots.Lot, error) {
	sql := `
		SELECT id, store_id, product_id, unit_id,
		       quantity, remaining_quantity, unit_cost,
		       base_quantity, base_unit_price,
		       purchase_order_id, received_at
		FROM inv_lots
		WHERE product_id = $1 AND store_id = $2 AND unit_id = $3
		  AND remaining_quantity > 0
		ORDER BY received_at, id
		FOR UPDATE
	`

	var result []*lots.Lot
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &result, sql, productID, storeID, unitID); err != nil {
		return nil, fmt.Errorf("select live lots: %w", err)
	}

	return result, nil
}

// UpdateRemaining sets the remaining quantity of a lot.
func (r *LotRepo) UpdateRemaining(ctx context.Context, lotID id.ID, remaining types.Quantity) error {
	sql := `
		UPDATE inv_lots
		SET remaining_quantity = $1
		WHERE id = $2
	`

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, remaining, lotID); err != nil {
		return fmt.Errorf("update remaining: %w", err)
	}

	return nil
}

// ListByPurchaseOrderForUpdate returns every lot tied to the order, locked.
func (r *LotRepo) ListByPurchaseOrderForUpdate(ctx context.Context, purchaseOrderID id.ID) ([]*lots.Lot, error) {
	sql := `
		SELECT id, store_id, product_id, unit_id,
		       quantity, remaining_quantity, unit_cost,
		       base_quantity, base_unit_price,
		       purchase_order_id, received_at
		FROM inv_lots
		WHERE purchase_order_id = $1
		ORDER BY received_at, id
		FOR UPDATE
	`

	var result []*lots.Lot
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &result, sql, purchaseOrderID); err != nil {
		return nil, fmt.Errorf("select lots by order: %w", err)
	}

	return result, nil
}

// DeleteByPurchaseOrder removes all lots tied to the order.
func (r *LotRepo) DeleteByPurchaseOrder(ctx context.Context, purchaseOrderID id.ID) error {
	q := r.builder.Delete(lotTable).
		Where(squirrel.Eq{"purchase_order_id": purchaseOrderID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete lots by order: %w", err)
	}

	return nil
}

// AverageCost aggregates live lots per unit. The weighted average divides
// the remaining-quantity-weighted cost sum by total remaining quantity;
// NUMERIC arithmetic keeps full precision in the database.
func (r *LotRepo) AverageCost(ctx context.Context, productID, storeID id.ID) ([]lots.UnitCost, error) {
	sql := `
		SELECT unit_id,
		       SUM(unit_cost * remaining_quantity) / SUM(remaining_quantity) AS average_cost,
		       SUM(remaining_quantity) AS remaining_quantity
		FROM inv_lots
		WHERE product_id = $1 AND store_id = $2 AND remaining_quantity > 0
		GROUP BY unit_id
		ORDER BY unit_id
	`

	var result []lots.UnitCost
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &result, sql, productID, storeID); err != nil {
		return nil, fmt.Errorf("select average cost: %w", err)
	}

	return result, nil
}

// Ensure interface compliance.
var _ lots.Repository = (*LotRepo)(nil)

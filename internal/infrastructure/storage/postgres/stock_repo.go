package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"kasir/internal/core/id"
	"kasir/internal/core/types"
	"kasir/internal/domain/stock"
)

const stockRecordTable = "inv_stock_records"

var stockRecordColumns = []string{
	"product_id", "store_id", "unit_id", "quantity", "updated_at",
}

// StockRepo implements stock.Repository.
type StockRepo struct {
	txm     *TxManager
	builder squirrel.StatementBuilderType
}

// NewStockRepo creates a new per-unit stock record repository.
func NewStockRepo(txm *TxManager) *StockRepo {
	return &StockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Get returns the record for the triple, or (nil, nil) when none exists.
func (r *StockRepo) Get(ctx context.Context, productID, storeID, unitID id.ID) (*stock.Record, error) {
	q := r.builder.Select(stockRecordColumns...).
		From(stockRecordTable).
		Where(squirrel.Eq{
			"product_id": productID,
			"store_id":   storeID,
			"unit_id":    unitID,
		}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rec stock.Record
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock record: %w", err)
	}

	return &rec, nil
}

// GetForUpdate returns the record with a row lock, or (nil, nil) when none
// exists. The lock is the serialization point for concurrent mutations.
func (r *StockRepo) GetForUpdate(ctx context.Context, productID, storeID, unitID id.ID) (*stock.Record, error) {
	sql := `
		SELECT product_id, store_id, unit_id, quantity, updated_at
		FROM inv_stock_records
		WHERE product_id = $1 AND store_id = $2 AND unit_id = $3
		FOR UPDATE
	`

	var rec stock.Record
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &rec, sql, productID, storeID, unitID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock record for update: %w", err)
	}

	return &rec, nil
}

// Create inserts a new record.
func (r *StockRepo) Create(ctx context.Context, rec *stock.Record) error {
	q := r.builder.Insert(stockRecordTable).
		Columns(stockRecordColumns...).
		Values(rec.ProductID, rec.StoreID, rec.UnitID, rec.Quantity, rec.UpdatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert stock record: %w", err)
	}

	return nil
}

// AddQuantity adds delta (possibly negative) to a record's quantity.
func (r *StockRepo) AddQuantity(ctx context.Context, productID, storeID, unitID id.ID, delta types.Quantity) error {
	sql := `
		UPDATE inv_stock_records
		SET quantity = quantity + $1, updated_at = $2
		WHERE product_id = $3 AND store_id = $4 AND unit_id = $5
	`

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, delta, time.Now().UTC(), productID, storeID, unitID)
	if err != nil {
		return fmt.Errorf("update stock record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("stock record missing for product %s unit %s", productID, unitID)
	}

	return nil
}

// ListByProduct returns all records for a product in a store.
func (r *StockRepo) ListByProduct(ctx context.Context, productID, storeID id.ID) ([]*stock.Record, error) {
	q := r.builder.Select(stockRecordColumns...).
		From(stockRecordTable).
		Where(squirrel.Eq{
			"product_id": productID,
			"store_id":   storeID,
		}).
		OrderBy("unit_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var records []*stock.Record
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &records, sql, args...); err != nil {
		return nil, fmt.Errorf("select stock records: %w", err)
	}

	return records, nil
}

// Ensure interface compliance.
var _ stock.Repository = (*StockRepo)(nil)

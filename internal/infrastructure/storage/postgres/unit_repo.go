package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"kasir/internal/core/apperror"
	"kasir/internal/core/id"
	"kasir/internal/domain/catalogs/unit"
)

const unitTable = "cat_units"

var unitColumns = []string{
	"id", "store_id", "name", "symbol",
	"is_base", "base_unit_id", "conversion_factor",
	"created_at", "updated_at",
}

// UnitRepo implements unit.Repository.
type UnitRepo struct {
	txm     *TxManager
	builder squirrel.StatementBuilderType
}

// NewUnitRepo creates a new unit repository.
func NewUnitRepo(txm *TxManager) *UnitRepo {
	return &UnitRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByID retrieves a unit by id.
func (r *UnitRepo) GetByID(ctx context.Context, unitID id.ID) (*unit.Unit, error) {
	q := r.builder.Select(unitColumns...).
		From(unitTable).
		Where(squirrel.Eq{"id": unitID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var u unit.Unit
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &u, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("unit", unitID.String())
		}
		return nil, fmt.Errorf("get unit: %w", err)
	}

	return &u, nil
}

// ListByStore returns all units configured for a store.
func (r *UnitRepo) ListByStore(ctx context.Context, storeID id.ID) ([]*unit.Unit, error) {
	q := r.builder.Select(unitColumns...).
		From(unitTable).
		Where(squirrel.Eq{"store_id": storeID}).
		OrderBy("name")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var units []*unit.Unit
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &units, sql, args...); err != nil {
		return nil, fmt.Errorf("select units: %w", err)
	}

	return units, nil
}

// Create persists a new unit.
func (r *UnitRepo) Create(ctx context.Context, u *unit.Unit) error {
	q := r.builder.Insert(unitTable).
		Columns(unitColumns...).
		Values(
			u.ID, u.StoreID, u.Name, u.Symbol,
			u.IsBase, u.BaseUnitID, u.ConversionFactor,
			u.CreatedAt, u.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert unit: %w", err)
	}

	return nil
}

// Ensure interface compliance.
var _ unit.Repository = (*UnitRepo)(nil)

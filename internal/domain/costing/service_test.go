package costing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"kasir/internal/core/apperror"
	"kasir/internal/core/id"
	"kasir/internal/core/types"
	"kasir/internal/domain/catalogs/unit"
	"kasir/internal/domain/lots"
)

// Mock objects
type mockUnitRepo struct {
	units map[id.ID]*unit.Unit
}

func newMockUnitRepo(units ...*unit.Unit) *mockUnitRepo {
	m := &mockUnitRepo{units: make(map[id.ID]*unit.Unit)}
	for _, u := range units {
		m.units[u.ID] = u
	}
	return m
}

func (m *mockUnitRepo) GetByID(ctx context.Context, unitID id.ID) (*unit.Unit, error) {
	if u, ok := m.units[unitID]; ok {
		return u, nil
	}
	return nil, apperror.NewNotFound("unit", unitID.String())
}

func (m *mockUnitRepo) ListByStore(ctx context.Context, storeID id.ID) ([]*unit.Unit, error) {
	return nil, nil
}

func (m *mockUnitRepo) Create(ctx context.Context, u *unit.Unit) error {
	m.units[u.ID] = u
	return nil
}

type mockLotRepo struct {
	costs []lots.UnitCost
}

func (m *mockLotRepo) Create(ctx context.Context, lot *lots.Lot) error { return nil }

func (m *mockLotRepo) ListLiveForUpdate(ctx context.Context, productID, storeID, unitID id.ID) ([]*lots.Lot, error) {
	return nil, nil
}

func (m *mockLotRepo) UpdateRemaining(ctx context.Context, lotID id.ID, remaining types.Quantity) error {
	return nil
}

func (m *mockLotRepo) ListByPurchaseOrderForUpdate(ctx context.Context, purchaseOrderID id.ID) ([]*lots.Lot, error) {
	return nil, nil
}

func (m *mockLotRepo) DeleteByPurchaseOrder(ctx context.Context, purchaseOrderID id.ID) error {
	return nil
}

func (m *mockLotRepo) AverageCost(ctx context.Context, productID, storeID id.ID) ([]lots.UnitCost, error) {
	return m.costs, nil
}

func newService(lotRepo lots.Repository, units ...*unit.Unit) *Service {
	return NewService(lots.NewService(lotRepo), unit.NewGraph(newMockUnitRepo(units...)))
}

func TestNormalizePurchaseLine(t *testing.T) {
	ctx := context.Background()
	storeID := id.New()

	bottle := unit.NewBaseUnit(storeID, "Bottle", "btl")
	caseOf24 := unit.NewConversionUnit(storeID, "Case", "cs", bottle.ID, decimal.NewFromInt(24))
	svc := newService(&mockLotRepo{}, bottle, caseOf24)

	t.Run("conversion unit line", func(t *testing.T) {
		line, err := svc.NormalizePurchaseLine(ctx, caseOf24.ID, types.NewQuantityFromFloat64(10), types.MustMoney("60000"))
		assert.NoError(t, err)

		assert.Equal(t, bottle.ID, line.BaseUnitID)
		assert.Equal(t, types.NewQuantityFromFloat64(240), line.BaseQuantity)
		assert.True(t, line.BaseUnitPrice.Equal(decimal.NewFromInt(2500)),
			"base unit price: want 2500 got %s", line.BaseUnitPrice)
	})

	t.Run("base unit line is unchanged", func(t *testing.T) {
		line, err := svc.NormalizePurchaseLine(ctx, bottle.ID, types.NewQuantityFromFloat64(6), types.MustMoney("2500"))
		assert.NoError(t, err)

		assert.Equal(t, bottle.ID, line.BaseUnitID)
		assert.Equal(t, types.NewQuantityFromFloat64(6), line.BaseQuantity)
		assert.True(t, line.BaseUnitPrice.Equal(decimal.NewFromInt(2500)))
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := svc.NormalizePurchaseLine(ctx, bottle.ID, 0, types.MustMoney("1"))
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})

	t.Run("rejects negative price", func(t *testing.T) {
		_, err := svc.NormalizePurchaseLine(ctx, bottle.ID, types.NewQuantityFromFloat64(1), types.MustMoney("-1"))
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})

	t.Run("unknown unit fails", func(t *testing.T) {
		_, err := svc.NormalizePurchaseLine(ctx, id.New(), types.NewQuantityFromFloat64(1), types.MustMoney("1"))
		assert.Error(t, err)
	})
}

func TestAverageCost(t *testing.T) {
	ctx := context.Background()
	unitID := id.New()

	repo := &mockLotRepo{costs: []lots.UnitCost{{
		UnitID:            unitID,
		AverageCost:       types.MustMoney("110"),
		RemainingQuantity: types.NewQuantityFromFloat64(15),
	}}}
	svc := newService(repo)

	costs, err := svc.AverageCost(ctx, id.New(), id.New())
	assert.NoError(t, err)
	assert.Len(t, costs, 1)
	assert.Equal(t, unitID, costs[0].UnitID)
}

func TestDisplayCost(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"rounds half up", "2.345", "2.35"},
		{"rounds down below half", "2.344", "2.34"},
		{"exact half rounds up", "0.005", "0.01"},
		{"integer gains places", "7", "7.00"},
		{"repeating division result", "104.1666666666666667", "104.17"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DisplayCost(types.MustMoney(tt.in))
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

package lots

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kasir/internal/core/apperror"
	"kasir/internal/core/id"
	"kasir/internal/core/types"
)

// Mock objects
type mockLotRepo struct {
	lots []*Lot
}

func (m *mockLotRepo) Create(ctx context.Context, lot *Lot) error {
	m.lots = append(m.lots, lot)
	return nil
}

func (m *mockLotRepo) ListLiveForUpdate(ctx context.Context, productID, storeID, unitID id.ID) ([]*Lot, error) {
	var out []*Lot
	for _, l := range m.lots {
		if l.ProductID == productID && l.StoreID == storeID && l.UnitID == unitID && l.RemainingQuantity.IsPositive() {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ReceivedAt.Before(out[j].ReceivedAt)
	})
	return out, nil
}

func (m *mockLotRepo) UpdateRemaining(ctx context.Context, lotID id.ID, remaining types.Quantity) error {
	for _, l := range m.lots {
		if l.ID == lotID {
			l.RemainingQuantity = remaining
			return nil
		}
	}
	return apperror.NewNotFound("lot", lotID.String())
}

func (m *mockLotRepo) ListByPurchaseOrderForUpdate(ctx context.Context, purchaseOrderID id.ID) ([]*Lot, error) {
	var out []*Lot
	for _, l := range m.lots {
		if l.PurchaseOrderID != nil && *l.PurchaseOrderID == purchaseOrderID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockLotRepo) DeleteByPurchaseOrder(ctx context.Context, purchaseOrderID id.ID) error {
	kept := m.lots[:0]
	for _, l := range m.lots {
		if l.PurchaseOrderID == nil || *l.PurchaseOrderID != purchaseOrderID {
			kept = append(kept, l)
		}
	}
	m.lots = kept
	return nil
}

func (m *mockLotRepo) AverageCost(ctx context.Context, productID, storeID id.ID) ([]UnitCost, error) {
	type agg struct {
		weighted decimal.Decimal
		total    decimal.Decimal
	}
	byUnit := make(map[id.ID]*agg)
	var order []id.ID
	for _, l := range m.lots {
		if l.ProductID != productID || l.StoreID != storeID || !l.RemainingQuantity.IsPositive() {
			continue
		}
		a, ok := byUnit[l.UnitID]
		if !ok {
			a = &agg{}
			byUnit[l.UnitID] = a
			order = append(order, l.UnitID)
		}
		rem := l.RemainingQuantity.Decimal()
		a.weighted = a.weighted.Add(l.UnitCost.Mul(rem))
		a.total = a.total.Add(rem)
	}

	out := make([]UnitCost, 0, len(order))
	for _, unitID := range order {
		a := byUnit[unitID]
		out = append(out, UnitCost{
			UnitID:            unitID,
			AverageCost:       a.weighted.Div(a.total),
			RemainingQuantity: types.NewQuantityFromDecimal(a.total),
		})
	}
	return out, nil
}

func qty(f float64) types.Quantity { return types.NewQuantityFromFloat64(f) }

// addLot seeds the repo with a lot received at the given offset.
func addLot(repo *mockLotRepo, productID, storeID, unitID id.ID, poID *id.ID, quantity, remaining types.Quantity, cost string, age time.Duration) *Lot {
	lot := &Lot{
		ID:                id.New(),
		StoreID:           storeID,
		ProductID:         productID,
		UnitID:            unitID,
		Quantity:          quantity,
		RemainingQuantity: remaining,
		UnitCost:          types.MustMoney(cost),
		PurchaseOrderID:   poID,
		ReceivedAt:        time.Now().UTC().Add(-age),
	}
	repo.lots = append(repo.lots, lot)
	return lot
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	repo := &mockLotRepo{}
	svc := NewService(repo)

	productID, storeID, unitID := id.New(), id.New(), id.New()
	poID := id.New()

	lot, err := svc.Create(ctx, CreateParams{
		ProductID:       productID,
		StoreID:         storeID,
		UnitID:          unitID,
		Quantity:        qty(10),
		UnitCost:        types.MustMoney("2500"),
		BaseQuantity:    qty(240),
		BaseUnitPrice:   types.MustMoney("104.17"),
		PurchaseOrderID: &poID,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if lot.RemainingQuantity != lot.Quantity {
		t.Errorf("new lot must be untouched: remaining %s, quantity %s", lot.RemainingQuantity, lot.Quantity)
	}
	if lot.BaseQuantity != qty(240) || !lot.BaseUnitPrice.Equal(types.MustMoney("104.17")) {
		t.Errorf("base equivalents must be stored verbatim, got %s / %s", lot.BaseQuantity, lot.BaseUnitPrice)
	}
	if !lot.IsUntouched() {
		t.Error("IsUntouched must be true for a new lot")
	}
	if len(repo.lots) != 1 {
		t.Fatalf("want 1 persisted lot, got %d", len(repo.lots))
	}

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateParams{ProductID: productID, StoreID: storeID, UnitID: unitID, Quantity: 0, UnitCost: types.MustMoney("1")})
		if !apperror.IsCode(err, apperror.CodeValidation) {
			t.Errorf("want validation error, got %v", err)
		}
	})

	t.Run("rejects negative cost", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateParams{ProductID: productID, StoreID: storeID, UnitID: unitID, Quantity: qty(1), UnitCost: types.MustMoney("-1")})
		if !apperror.IsCode(err, apperror.CodeValidation) {
			t.Errorf("want validation error, got %v", err)
		}
	})
}

func TestConsume_FIFO(t *testing.T) {
	ctx := context.Background()
	repo := &mockLotRepo{}
	svc := NewService(repo)

	productID, storeID, unitID := id.New(), id.New(), id.New()

	oldest := addLot(repo, productID, storeID, unitID, nil, qty(5), qty(5), "100", 3*time.Hour)
	middle := addLot(repo, productID, storeID, unitID, nil, qty(10), qty(10), "110", 2*time.Hour)
	newest := addLot(repo, productID, storeID, unitID, nil, qty(10), qty(10), "120", time.Hour)

	if err := svc.Consume(ctx, productID, storeID, unitID, qty(8)); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}

	if !oldest.RemainingQuantity.IsZero() {
		t.Errorf("oldest lot must be drained first, remaining %s", oldest.RemainingQuantity)
	}
	if middle.RemainingQuantity != qty(7) {
		t.Errorf("middle lot remaining: want 7.0000 got %s", middle.RemainingQuantity)
	}
	if newest.RemainingQuantity != qty(10) {
		t.Errorf("newest lot must be untouched, remaining %s", newest.RemainingQuantity)
	}
}

func TestConsume_ExactlyDrainsAllLots(t *testing.T) {
	ctx := context.Background()
	repo := &mockLotRepo{}
	svc := NewService(repo)

	productID, storeID, unitID := id.New(), id.New(), id.New()
	a := addLot(repo, productID, storeID, unitID, nil, qty(5), qty(5), "100", 2*time.Hour)
	b := addLot(repo, productID, storeID, unitID, nil, qty(3), qty(3), "100", time.Hour)

	if err := svc.Consume(ctx, productID, storeID, unitID, qty(8)); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if !a.RemainingQuantity.IsZero() || !b.RemainingQuantity.IsZero() {
		t.Errorf("lots must be drained: %s, %s", a.RemainingQuantity, b.RemainingQuantity)
	}
}

func TestConsume_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	repo := &mockLotRepo{}
	svc := NewService(repo)

	productID, storeID, unitID := id.New(), id.New(), id.New()
	a := addLot(repo, productID, storeID, unitID, nil, qty(5), qty(5), "100", 2*time.Hour)
	b := addLot(repo, productID, storeID, unitID, nil, qty(2), qty(2), "100", time.Hour)

	err := svc.Consume(ctx, productID, storeID, unitID, qty(8))
	if !apperror.IsCode(err, apperror.CodeInsufficientLotStock) {
		t.Fatalf("want InsufficientLotStock, got %v", err)
	}

	// No partial consumption.
	if a.RemainingQuantity != qty(5) || b.RemainingQuantity != qty(2) {
		t.Errorf("lots must be unchanged on failure: %s, %s", a.RemainingQuantity, b.RemainingQuantity)
	}
}

func TestConsume_NoLots(t *testing.T) {
	ctx := context.Background()
	repo := &mockLotRepo{}
	svc := NewService(repo)

	productID, storeID, unitID := id.New(), id.New(), id.New()

	err := svc.Consume(ctx, productID, storeID, unitID, qty(1))
	if !apperror.IsNoLotsAvailable(err) {
		t.Errorf("want NoLotsAvailable, got %v", err)
	}
}

func TestConsume_DoesNotCrossUnits(t *testing.T) {
	ctx := context.Background()
	repo := &mockLotRepo{}
	svc := NewService(repo)

	productID, storeID := id.New(), id.New()
	bottleID, caseID := id.New(), id.New()

	// Plenty of cases, but the request is in bottles.
	addLot(repo, productID, storeID, caseID, nil, qty(50), qty(50), "2400", time.Hour)

	err := svc.Consume(ctx, productID, storeID, bottleID, qty(1))
	if !apperror.IsNoLotsAvailable(err) {
		t.Errorf("want NoLotsAvailable for unit without lots, got %v", err)
	}
}

func TestReverseByPurchaseOrder(t *testing.T) {
	ctx := context.Background()
	repo := &mockLotRepo{}
	svc := NewService(repo)

	productID, storeID := id.New(), id.New()
	caseID, bottleID := id.New(), id.New()
	poID := id.New()

	addLot(repo, productID, storeID, caseID, &poID, qty(10), qty(10), "2400", 3*time.Hour)
	addLot(repo, productID, storeID, caseID, &poID, qty(5), qty(5), "2500", 2*time.Hour)
	addLot(repo, productID, storeID, bottleID, &poID, qty(12), qty(12), "100", time.Hour)
	// Unrelated order must survive the reversal.
	otherPO := id.New()
	survivor := addLot(repo, productID, storeID, caseID, &otherPO, qty(7), qty(7), "2400", time.Hour)

	reversed, err := svc.ReverseByPurchaseOrder(ctx, poID)
	if err != nil {
		t.Fatalf("ReverseByPurchaseOrder failed: %v", err)
	}

	if len(reversed) != 2 {
		t.Fatalf("want 2 (product, unit) groups, got %d", len(reversed))
	}
	if reversed[0].UnitID != caseID || reversed[0].Quantity != qty(15) {
		t.Errorf("case group: want 15.0000, got %s in unit %s", reversed[0].Quantity, reversed[0].UnitID)
	}
	if reversed[1].UnitID != bottleID || reversed[1].Quantity != qty(12) {
		t.Errorf("bottle group: want 12.0000, got %s in unit %s", reversed[1].Quantity, reversed[1].UnitID)
	}

	if len(repo.lots) != 1 || repo.lots[0].ID != survivor.ID {
		t.Errorf("only the unrelated lot must remain, got %d lots", len(repo.lots))
	}
}

func TestReverseByPurchaseOrder_ConsumedLotBlocks(t *testing.T) {
	ctx := context.Background()
	repo := &mockLotRepo{}
	svc := NewService(repo)

	productID, storeID, unitID := id.New(), id.New(), id.New()
	poID := id.New()

	addLot(repo, productID, storeID, unitID, &poID, qty(10), qty(10), "100", 2*time.Hour)
	addLot(repo, productID, storeID, unitID, &poID, qty(5), qty(3), "100", time.Hour) // partially sold

	_, err := svc.ReverseByPurchaseOrder(ctx, poID)
	if !apperror.IsLotAlreadyConsumed(err) {
		t.Fatalf("want LotAlreadyConsumed, got %v", err)
	}

	// Nothing deleted.
	if len(repo.lots) != 2 {
		t.Errorf("lots must be unchanged on failure, got %d", len(repo.lots))
	}
}

func TestReverseByPurchaseOrder_UnknownOrder(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&mockLotRepo{})

	_, err := svc.ReverseByPurchaseOrder(ctx, id.New())
	if !apperror.IsNotFound(err) {
		t.Errorf("want NotFound, got %v", err)
	}
}

func TestAverageCost(t *testing.T) {
	ctx := context.Background()
	repo := &mockLotRepo{}
	svc := NewService(repo)

	productID, storeID, unitID := id.New(), id.New(), id.New()

	// 10 @ 100 and 5 @ 130, plus a drained lot that must not count.
	addLot(repo, productID, storeID, unitID, nil, qty(10), qty(10), "100", 3*time.Hour)
	addLot(repo, productID, storeID, unitID, nil, qty(5), qty(5), "130", 2*time.Hour)
	addLot(repo, productID, storeID, unitID, nil, qty(8), qty(0), "999", time.Hour)

	costs, err := svc.AverageCost(ctx, productID, storeID)
	if err != nil {
		t.Fatalf("AverageCost failed: %v", err)
	}
	if len(costs) != 1 {
		t.Fatalf("want 1 unit group, got %d", len(costs))
	}

	// (10*100 + 5*130) / 15 = 110
	if !costs[0].AverageCost.Equal(decimal.NewFromInt(110)) {
		t.Errorf("average cost: want 110 got %s", costs[0].AverageCost)
	}
	if costs[0].RemainingQuantity != qty(15) {
		t.Errorf("remaining: want 15.0000 got %s", costs[0].RemainingQuantity)
	}
}

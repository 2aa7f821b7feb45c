package stock

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kasir/internal/core/apperror"
	"kasir/internal/core/id"
	"kasir/internal/core/types"
	"kasir/internal/domain/catalogs/product"
	"kasir/internal/domain/catalogs/unit"
)

// Mock objects
type tripleKey struct{ productID, storeID, unitID id.ID }

type mockStockRepo struct {
	records map[tripleKey]*Record
}

func newMockStockRepo() *mockStockRepo {
	return &mockStockRepo{records: make(map[tripleKey]*Record)}
}

func (m *mockStockRepo) put(rec *Record) {
	m.records[tripleKey{rec.ProductID, rec.StoreID, rec.UnitID}] = rec
}

func (m *mockStockRepo) Get(ctx context.Context, productID, storeID, unitID id.ID) (*Record, error) {
	return m.records[tripleKey{productID, storeID, unitID}], nil
}

func (m *mockStockRepo) GetForUpdate(ctx context.Context, productID, storeID, unitID id.ID) (*Record, error) {
	return m.Get(ctx, productID, storeID, unitID)
}

func (m *mockStockRepo) Create(ctx context.Context, rec *Record) error {
	m.put(rec)
	return nil
}

func (m *mockStockRepo) AddQuantity(ctx context.Context, productID, storeID, unitID id.ID, delta types.Quantity) error {
	rec, ok := m.records[tripleKey{productID, storeID, unitID}]
	if !ok {
		return apperror.NewNotFound("stock record", productID.String())
	}
	rec.Quantity += delta
	return nil
}

func (m *mockStockRepo) ListByProduct(ctx context.Context, productID, storeID id.ID) ([]*Record, error) {
	var out []*Record
	for _, rec := range m.records {
		if rec.ProductID == productID && rec.StoreID == storeID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type mockProductRepo struct {
	products map[id.ID]*product.Product
}

func newMockProductRepo(products ...*product.Product) *mockProductRepo {
	m := &mockProductRepo{products: make(map[id.ID]*product.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	if p, ok := m.products[productID]; ok {
		return p, nil
	}
	return nil, apperror.NewNotFound("product", productID.String())
}

func (m *mockProductRepo) GetForUpdate(ctx context.Context, productID id.ID) (*product.Product, error) {
	return m.GetByID(ctx, productID)
}

func (m *mockProductRepo) AddToSummary(ctx context.Context, productID id.ID, delta types.Quantity) error {
	p, err := m.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	p.StockOnHand += delta
	return nil
}

func (m *mockProductRepo) Create(ctx context.Context, p *product.Product) error {
	m.products[p.ID] = p
	return nil
}

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

func qty(f float64) types.Quantity { return types.NewQuantityFromFloat64(f) }

func TestGetAvailable(t *testing.T) {
	ctx := context.Background()
	storeID := id.New()

	bottle := unit.NewBaseUnit(storeID, "Bottle", "btl")
	caseOf24 := unit.NewConversionUnit(storeID, "Case", "cs", bottle.ID, decimal.NewFromInt(24))
	kg := unit.NewBaseUnit(storeID, "Kilogram", "kg")
	graph := unit.NewGraph(newMockUnitRepo(bottle, caseOf24, kg))

	prod := &product.Product{
		ID:            id.New(),
		StoreID:       storeID,
		Name:          "Cola 330ml",
		DefaultUnitID: bottle.ID,
		StockOnHand:   qty(240),
	}
	products := newMockProductRepo(prod)

	t.Run("record is authoritative when present", func(t *testing.T) {
		records := newMockStockRepo()
		records.put(&Record{ProductID: prod.ID, StoreID: storeID, UnitID: bottle.ID, Quantity: qty(36), UpdatedAt: time.Now()})

		resolver := NewResolver(records, products, graph)
		got, err := resolver.GetAvailable(ctx, prod.ID, storeID, bottle.ID)
		if err != nil {
			t.Fatalf("GetAvailable failed: %v", err)
		}
		if got != qty(36) {
			t.Errorf("want 36.0000 got %s", got)
		}
	})

	t.Run("zero record wins over positive counter", func(t *testing.T) {
		records := newMockStockRepo()
		records.put(&Record{ProductID: prod.ID, StoreID: storeID, UnitID: bottle.ID, Quantity: 0, UpdatedAt: time.Now()})

		resolver := NewResolver(records, products, graph)
		got, err := resolver.GetAvailable(ctx, prod.ID, storeID, bottle.ID)
		if err != nil {
			t.Fatalf("GetAvailable failed: %v", err)
		}
		if !got.IsZero() {
			t.Errorf("record quantity 0 must win over counter, got %s", got)
		}
	})

	t.Run("falls back to counter in default unit", func(t *testing.T) {
		resolver := NewResolver(newMockStockRepo(), products, graph)
		got, err := resolver.GetAvailable(ctx, prod.ID, storeID, bottle.ID)
		if err != nil {
			t.Fatalf("GetAvailable failed: %v", err)
		}
		if got != qty(240) {
			t.Errorf("want 240.0000 got %s", got)
		}
	})

	t.Run("fallback converts counter into requested unit", func(t *testing.T) {
		resolver := NewResolver(newMockStockRepo(), products, graph)
		got, err := resolver.GetAvailable(ctx, prod.ID, storeID, caseOf24.ID)
		if err != nil {
			t.Fatalf("GetAvailable failed: %v", err)
		}
		if got != qty(10) {
			t.Errorf("want 10.0000 cases got %s", got)
		}
	})

	t.Run("fallback yields zero for incompatible unit", func(t *testing.T) {
		resolver := NewResolver(newMockStockRepo(), products, graph)
		got, err := resolver.GetAvailable(ctx, prod.ID, storeID, kg.ID)
		if err != nil {
			t.Fatalf("GetAvailable failed: %v", err)
		}
		if !got.IsZero() {
			t.Errorf("incompatible unit must yield zero, got %s", got)
		}
	})

	t.Run("unknown product fails", func(t *testing.T) {
		resolver := NewResolver(newMockStockRepo(), products, graph)
		_, err := resolver.GetAvailable(ctx, id.New(), storeID, bottle.ID)
		if !apperror.IsNotFound(err) {
			t.Errorf("want NotFound, got %v", err)
		}
	})
}

func TestGetAvailability(t *testing.T) {
	ctx := context.Background()
	storeID := id.New()
	productID := id.New()

	records := newMockStockRepo()
	records.put(&Record{ProductID: productID, StoreID: storeID, UnitID: id.New(), Quantity: qty(10), UpdatedAt: time.Now()})
	records.put(&Record{ProductID: productID, StoreID: storeID, UnitID: id.New(), Quantity: qty(3), UpdatedAt: time.Now()})
	// Different store must not leak in.
	records.put(&Record{ProductID: productID, StoreID: id.New(), UnitID: id.New(), Quantity: qty(99), UpdatedAt: time.Now()})

	resolver := NewResolver(records, newMockProductRepo(), unit.NewGraph(newMockUnitRepo()))
	got, err := resolver.GetAvailability(ctx, productID, storeID)
	if err != nil {
		t.Fatalf("GetAvailability failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("want 2 records, got %d", len(got))
	}
}

// Package mutation provides the stock mutation service: the only component
// allowed to change recorded stock. Every public operation runs as one
// database transaction, keeping the per-unit stock records and the legacy
// product summary counter consistent at commit time.
package mutation

import (
	"context"
	"fmt"
	"time"

	"kasir/internal/core/apperror"
	appctx "kasir/internal/core/context"
	"kasir/internal/core/id"
	"kasir/internal/core/tx"
	"kasir/internal/core/types"
	"kasir/internal/domain/catalogs/product"
	"kasir/internal/domain/catalogs/unit"
	"kasir/internal/domain/costing"
	"kasir/internal/domain/lots"
	"kasir/internal/domain/stock"
	"kasir/pkg/logger"
)

// Auditor records ledger mutations for the audit trail.
// Implementations must be safe to call inside the mutation transaction.
type Auditor interface {
	Record(ctx context.Context, action string, entityID id.ID, changes map[string]any) error
}

// Audit actions.
const (
	AuditReceivePurchase = "receive_purchase"
	AuditDeductForSale   = "deduct_for_sale"
	AuditReversePurchase = "reverse_purchase"
)

// Service coordinates lot, stock record and summary counter writes.
//
// Lock order inside every operation: product row first, then the per-unit
// stock record, then lots. The locked stock record is the serialization
// point, so two concurrent deductions for the same (product, store, unit)
// cannot both pass the sufficiency check against a stale read.
type Service struct {
	txm      tx.Manager
	lots     *lots.Service
	records  stock.Repository
	products product.Repository
	units    *unit.Graph
	costs    *costing.Service
	audit    Auditor // optional
}

// NewService creates a stock mutation service.
// audit may be nil; mutations are then not audited.
func NewService(
	txm tx.Manager,
	lotSvc *lots.Service,
	records stock.Repository,
	products product.Repository,
	units *unit.Graph,
	costs *costing.Service,
	audit Auditor,
) *Service {
	return &Service{
		txm:      txm,
		lots:     lotSvc,
		records:  records,
		products: products,
		units:    units,
		costs:    costs,
		audit:    audit,
	}
}

// ReceiveParams describes one purchase-order line being received.
type ReceiveParams struct {
	ProductID       id.ID
	StoreID         id.ID
	UnitID          id.ID
	Quantity        types.Quantity
	UnitCost        types.Money
	PurchaseOrderID id.ID
}

// ReceivePurchase records incoming stock: creates a lot carrying both the
// entered values and their base-unit equivalents, upserts the per-unit stock
// record and moves the summary counter by the default-unit equivalent.
// Purchases never fail on capacity; the only failure path is unit resolution.
func (s *Service) ReceivePurchase(ctx context.Context, p ReceiveParams) error {
	if !p.Quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", p.Quantity.String())
	}
	if !storeAccessAllowed(ctx, p.StoreID) {
		return apperror.NewForbidden("no access to store").
			WithDetail("store_id", p.StoreID.String())
	}

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		prod, err := s.products.GetForUpdate(ctx, p.ProductID)
		if err != nil {
			return fmt.Errorf("lock product: %w", err)
		}

		summaryDelta, err := s.units.Convert(ctx, p.Quantity, p.UnitID, prod.DefaultUnitID)
		if err != nil {
			return err
		}

		// Persisted alongside the entered values so cross-unit cost reads
		// never reconvert.
		line, err := s.costs.NormalizePurchaseLine(ctx, p.UnitID, p.Quantity, p.UnitCost)
		if err != nil {
			return err
		}

		if _, err := s.lockOrSeedRecord(ctx, prod, p.StoreID, p.UnitID); err != nil {
			return err
		}

		poID := p.PurchaseOrderID
		if _, err := s.lots.Create(ctx, lots.CreateParams{
			ProductID:       p.ProductID,
			StoreID:         p.StoreID,
			UnitID:          p.UnitID,
			Quantity:        p.Quantity,
			UnitCost:        p.UnitCost,
			BaseQuantity:    line.BaseQuantity,
			BaseUnitPrice:   line.BaseUnitPrice,
			PurchaseOrderID: &poID,
		}); err != nil {
			return err
		}

		if err := s.records.AddQuantity(ctx, p.ProductID, p.StoreID, p.UnitID, p.Quantity); err != nil {
			return fmt.Errorf("add to stock record: %w", err)
		}

		if err := s.products.AddToSummary(ctx, p.ProductID, summaryDelta); err != nil {
			return fmt.Errorf("add to summary counter: %w", err)
		}

		s.recordAudit(ctx, AuditReceivePurchase, p.ProductID, map[string]any{
			"store_id":          p.StoreID.String(),
			"unit_id":           p.UnitID.String(),
			"quantity":          p.Quantity.String(),
			"unit_cost":         p.UnitCost.String(),
			"purchase_order_id": p.PurchaseOrderID.String(),
		})

		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "purchase received",
		"product_id", p.ProductID,
		"unit_id", p.UnitID,
		"quantity", p.Quantity,
		"purchase_order_id", p.PurchaseOrderID,
	)
	return nil
}

// DeductForSale removes sold stock in the unit selected at the register.
// The caller converts between units beforehand when needed; deduction never
// converts implicitly.
//
// All-or-nothing: when the requested quantity exceeds availability the
// operation aborts with InsufficientStock and no state changes.
func (s *Service) DeductForSale(ctx context.Context, productID, storeID, unitID id.ID, quantity types.Quantity) error {
	if !quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", quantity.String())
	}
	if !storeAccessAllowed(ctx, storeID) {
		return apperror.NewForbidden("no access to store").
			WithDetail("store_id", storeID.String())
	}

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		prod, err := s.products.GetForUpdate(ctx, productID)
		if err != nil {
			return fmt.Errorf("lock product: %w", err)
		}

		summaryDelta, err := s.units.Convert(ctx, quantity, unitID, prod.DefaultUnitID)
		if err != nil {
			return err
		}

		rec, err := s.lockOrSeedRecord(ctx, prod, storeID, unitID)
		if err != nil {
			return err
		}

		if quantity > rec.Quantity {
			return apperror.NewInsufficientStock(
				productID.String(), quantity.Float64(), rec.Quantity.Float64(),
			)
		}

		if err := s.lots.Consume(ctx, productID, storeID, unitID, quantity); err != nil {
			switch {
			case apperror.IsNoLotsAvailable(err):
				// Legacy data: stock seeded from the summary counter has no
				// lots. The record decrement below covers it.
			case apperror.IsCode(err, apperror.CodeInsufficientLotStock):
				// Lot ledger drifted below the record; surface as the
				// user-facing shortage.
				return apperror.NewInsufficientStock(
					productID.String(), quantity.Float64(), rec.Quantity.Float64(),
				).WithCause(err)
			default:
				return err
			}
		}

		if err := s.records.AddQuantity(ctx, productID, storeID, unitID, quantity.Neg()); err != nil {
			return fmt.Errorf("deduct from stock record: %w", err)
		}

		if err := s.products.AddToSummary(ctx, productID, summaryDelta.Neg()); err != nil {
			return fmt.Errorf("deduct from summary counter: %w", err)
		}

		s.recordAudit(ctx, AuditDeductForSale, productID, map[string]any{
			"store_id": storeID.String(),
			"unit_id":  unitID.String(),
			"quantity": quantity.String(),
		})

		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "sale deducted",
		"product_id", productID,
		"unit_id", unitID,
		"quantity", quantity,
	)
	return nil
}

// ReversePurchase undoes a purchase order's lots and subtracts the removed
// supply from stock records and summary counters. Propagates
// LotAlreadyConsumed as a user-facing conflict when any of the order's stock
// has already been sold; the caller deletes the order and its lines only
// after this succeeds.
func (s *Service) ReversePurchase(ctx context.Context, purchaseOrderID id.ID) error {
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		reversed, err := s.lots.StageReversal(ctx, purchaseOrderID)
		if err != nil {
			return err
		}

		// Store scope is only known once the order's lots are loaded; check
		// every group before touching anything.
		for _, r := range reversed {
			if !storeAccessAllowed(ctx, r.StoreID) {
				return apperror.NewForbidden("no access to store").
					WithDetail("store_id", r.StoreID.String())
			}
		}

		for _, r := range reversed {
			prod, err := s.products.GetForUpdate(ctx, r.ProductID)
			if err != nil {
				return fmt.Errorf("lock product: %w", err)
			}

			summaryDelta, err := s.units.Convert(ctx, r.Quantity, r.UnitID, prod.DefaultUnitID)
			if err != nil {
				return err
			}

			if _, err := s.records.GetForUpdate(ctx, r.ProductID, r.StoreID, r.UnitID); err != nil {
				return fmt.Errorf("lock stock record: %w", err)
			}

			if err := s.records.AddQuantity(ctx, r.ProductID, r.StoreID, r.UnitID, r.Quantity.Neg()); err != nil {
				return fmt.Errorf("deduct from stock record: %w", err)
			}

			if err := s.products.AddToSummary(ctx, r.ProductID, summaryDelta.Neg()); err != nil {
				return fmt.Errorf("deduct from summary counter: %w", err)
			}
		}

		if err := s.lots.CommitReversal(ctx, purchaseOrderID); err != nil {
			return err
		}

		s.recordAudit(ctx, AuditReversePurchase, purchaseOrderID, map[string]any{
			"reversed_groups": len(reversed),
		})

		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "purchase reversed", "purchase_order_id", purchaseOrderID)
	return nil
}

// lockOrSeedRecord locks the per-unit stock record, creating it on first
// touch. A new record is seeded from the product summary counter converted
// into the requested unit: the documented one-time migration of the legacy
// fallback into authoritative form. After seeding, reads for this triple
// never consult the counter again.
//
// The caller must already hold the product row lock.
func (s *Service) lockOrSeedRecord(ctx context.Context, prod *product.Product, storeID, unitID id.ID) (*stock.Record, error) {
	rec, err := s.records.GetForUpdate(ctx, prod.ID, storeID, unitID)
	if err != nil {
		return nil, fmt.Errorf("lock stock record: %w", err)
	}
	if rec != nil {
		return rec, nil
	}

	seed := prod.StockOnHand
	if prod.DefaultUnitID != unitID {
		seed, err = s.units.Convert(ctx, prod.StockOnHand, prod.DefaultUnitID, unitID)
		if err != nil {
			if !apperror.IsIncompatibleUnits(err) {
				return nil, err
			}
			// The counter carries no availability for an unrelated unit.
			seed = 0
		}
	}

	rec = &stock.Record{
		ProductID: prod.ID,
		StoreID:   storeID,
		UnitID:    unitID,
		Quantity:  seed,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.records.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("seed stock record: %w", err)
	}

	logger.Debug(ctx, "seeded stock record from summary counter",
		"product_id", prod.ID,
		"unit_id", unitID,
		"seed_quantity", seed,
	)

	return rec, nil
}

// storeAccessAllowed enforces the token's store scope when a user context is
// present. Internal callers without one are trusted.
func storeAccessAllowed(ctx context.Context, storeID id.ID) bool {
	if appctx.GetUser(ctx) == nil {
		return true
	}
	return appctx.HasStoreAccess(ctx, storeID.String())
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID id.ID, changes map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, action, entityID, changes); err != nil {
		logger.Warn(ctx, "audit record failed", "action", action, "error", err)
	}
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kasir/internal/core/apperror"
	"kasir/internal/core/id"
	"kasir/internal/core/types"
	"kasir/internal/domain/costing"
	"kasir/internal/domain/mutation"
	"kasir/internal/domain/stock"
	"kasir/internal/infrastructure/http/v1/dto"
)

// StockHandler handles stock mutation and availability endpoints.
type StockHandler struct {
	*BaseHandler
	mutations *mutation.Service
	resolver  *stock.Resolver
	costs     *costing.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, mutations *mutation.Service, resolver *stock.Resolver, costs *costing.Service) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		mutations:   mutations,
		resolver:    resolver,
		costs:       costs,
	}
}

// Receive handles POST /stock/receipts - record incoming stock.
func (h *StockHandler) Receive(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ReceiptRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if !h.RequireStoreAccess(c, req.StoreID) {
		return
	}

	unitCost, err := types.NewMoneyFromString(req.UnitCost)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid unit cost").WithDetail("unitCost", req.UnitCost))
		return
	}

	params := mutation.ReceiveParams{
		ProductID:       id.MustParse(req.ProductID),
		StoreID:         id.MustParse(req.StoreID),
		UnitID:          id.MustParse(req.UnitID),
		Quantity:        req.Quantity,
		UnitCost:        unitCost,
		PurchaseOrderID: id.MustParse(req.PurchaseOrderID),
	}

	if err := h.mutations.ReceivePurchase(ctx, params); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "stock received")
}

// Deduct handles POST /stock/deductions - deduct stock for a sale.
func (h *StockHandler) Deduct(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.DeductionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if !h.RequireStoreAccess(c, req.StoreID) {
		return
	}

	err := h.mutations.DeductForSale(ctx,
		id.MustParse(req.ProductID),
		id.MustParse(req.StoreID),
		id.MustParse(req.UnitID),
		req.Quantity,
	)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "stock deducted")
}

// ReversePurchase handles DELETE /stock/purchase-orders/:id - undo a received purchase.
func (h *StockHandler) ReversePurchase(c *gin.Context) {
	ctx := c.Request.Context()

	poID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid purchase order id"))
		return
	}

	if err := h.mutations.ReversePurchase(ctx, poID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// GetAvailable handles GET /stock/available - available quantity in one unit.
func (h *StockHandler) GetAvailable(c *gin.Context) {
	ctx := c.Request.Context()

	var q dto.AvailabilityQuery
	if !h.BindQuery(c, &q) {
		return
	}
	if q.UnitID == "" {
		h.Error(c, apperror.NewValidation("unitId is required"))
		return
	}
	if !h.RequireStoreAccess(c, q.StoreID) {
		return
	}

	available, err := h.resolver.GetAvailable(ctx,
		id.MustParse(q.ProductID),
		id.MustParse(q.StoreID),
		id.MustParse(q.UnitID),
	)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AvailableResponse{
		ProductID: q.ProductID,
		StoreID:   q.StoreID,
		UnitID:    q.UnitID,
		Available: available.String(),
	})
}

// GetAvailability handles GET /stock/availability - all per-unit records.
func (h *StockHandler) GetAvailability(c *gin.Context) {
	ctx := c.Request.Context()

	var q dto.AvailabilityQuery
	if !h.BindQuery(c, &q) {
		return
	}
	if !h.RequireStoreAccess(c, q.StoreID) {
		return
	}

	records, err := h.resolver.GetAvailability(ctx,
		id.MustParse(q.ProductID),
		id.MustParse(q.StoreID),
	)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromStockRecords(q.ProductID, q.StoreID, records))
}

// GetAverageCost handles GET /stock/average-cost - weighted average cost per unit.
func (h *StockHandler) GetAverageCost(c *gin.Context) {
	ctx := c.Request.Context()

	var q dto.AvailabilityQuery
	if !h.BindQuery(c, &q) {
		return
	}
	if !h.RequireStoreAccess(c, q.StoreID) {
		return
	}

	costs, err := h.costs.AverageCost(ctx,
		id.MustParse(q.ProductID),
		id.MustParse(q.StoreID),
	)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromUnitCosts(q.ProductID, q.StoreID, costs))
}

package dto

import (
	"time"

	"kasir/internal/core/types"
	"kasir/internal/domain/lots"
	"kasir/internal/domain/stock"
)

// --- Request DTOs ---

// ReceiptRequest records incoming stock from a purchase order line.
type ReceiptRequest struct {
	ProductID       string         `json:"productId" binding:"required,uuid"`
	StoreID         string         `json:"storeId" binding:"required,uuid"`
	UnitID          string         `json:"unitId" binding:"required,uuid"`
	Quantity        types.Quantity `json:"quantity" binding:"required"`
	UnitCost        string         `json:"unitCost" binding:"required"`
	PurchaseOrderID string         `json:"purchaseOrderId" binding:"required,uuid"`
}

// DeductionRequest deducts stock for a sale line.
type DeductionRequest struct {
	ProductID string         `json:"productId" binding:"required,uuid"`
	StoreID   string         `json:"storeId" binding:"required,uuid"`
	UnitID    string         `json:"unitId" binding:"required,uuid"`
	Quantity  types.Quantity `json:"quantity" binding:"required"`
}

// AvailabilityQuery filters the availability endpoints.
type AvailabilityQuery struct {
	ProductID string `form:"productId" binding:"required,uuid"`
	StoreID   string `form:"storeId" binding:"required,uuid"`
	UnitID    string `form:"unitId" binding:"omitempty,uuid"`
}

// --- Response DTOs ---

// AvailableResponse is the available quantity in one unit.
type AvailableResponse struct {
	ProductID string `json:"productId"`
	StoreID   string `json:"storeId"`
	UnitID    string `json:"unitId"`
	Available string `json:"available"`
}

// StockRecordResponse is a per-unit stock record.
type StockRecordResponse struct {
	UnitID    string    `json:"unitId"`
	Quantity  string    `json:"quantity"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AvailabilityResponse lists per-unit stock for a product at a store.
type AvailabilityResponse struct {
	ProductID string                `json:"productId"`
	StoreID   string                `json:"storeId"`
	Records   []StockRecordResponse `json:"records"`
}

// FromStockRecords maps domain records to the availability response.
func FromStockRecords(productID, storeID string, records []*stock.Record) AvailabilityResponse {
	resp := AvailabilityResponse{
		ProductID: productID,
		StoreID:   storeID,
		Records:   make([]StockRecordResponse, 0, len(records)),
	}
	for _, r := range records {
		resp.Records = append(resp.Records, StockRecordResponse{
			UnitID:    r.UnitID.String(),
			Quantity:  r.Quantity.String(),
			UpdatedAt: r.UpdatedAt,
		})
	}
	return resp
}

// UnitCostResponse is the weighted-average cost for one unit.
type UnitCostResponse struct {
	UnitID            string `json:"unitId"`
	AverageCost       string `json:"averageCost"`
	RemainingQuantity string `json:"remainingQuantity"`
}

// AverageCostResponse lists per-unit average costs for a product at a store.
type AverageCostResponse struct {
	ProductID string             `json:"productId"`
	StoreID   string             `json:"storeId"`
	Costs     []UnitCostResponse `json:"costs"`
}

// FromUnitCosts maps domain average costs to the response.
func FromUnitCosts(productID, storeID string, costs []lots.UnitCost) AverageCostResponse {
	resp := AverageCostResponse{
		ProductID: productID,
		StoreID:   storeID,
		Costs:     make([]UnitCostResponse, 0, len(costs)),
	}
	for _, c := range costs {
		resp.Costs = append(resp.Costs, UnitCostResponse{
			UnitID:            c.UnitID.String(),
			AverageCost:       c.AverageCost.String(),
			RemainingQuantity: c.RemainingQuantity.String(),
		})
	}
	return resp
}

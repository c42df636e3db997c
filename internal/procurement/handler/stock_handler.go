package handler

import (
	"github.com/francohenker/carDetailing-sub000/internal/procurement/service"
	"github.com/gin-gonic/gin"
)

// StockHandler stock monitor, consumption and thresholds
type StockHandler struct {
	stock      *service.StockService
	monitor    *service.StockMonitor
	thresholds *service.ThresholdService
}

func NewStockHandler(stock *service.StockService, monitor *service.StockMonitor, thresholds *service.ThresholdService) *StockHandler {
	return &StockHandler{stock: stock, monitor: monitor, thresholds: thresholds}
}

// CheckLevels manual stock scan
// POST /api/v1/procurement/stock/check
func (h *StockHandler) CheckLevels(c *gin.Context) {
	result := h.monitor.CheckStockLevelsAndNotify(c.Request.Context(), service.TriggerManual)
	Success(c, result)
}

// Consume stock used by a detailing service
// POST /api/v1/procurement/stock/consume
func (h *StockHandler) Consume(c *gin.Context) {
	var req service.ConsumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}
	changes, err := h.stock.Consume(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, changes)
}

// ListLow GET /api/v1/procurement/stock/low
func (h *StockHandler) ListLow(c *gin.Context) {
	items, err := h.stock.ListLowStock(c.Request.Context())
	if err != nil {
		InternalError(c, "list low stock: "+err.Error())
		return
	}
	Success(c, items)
}

// ListMovements GET /api/v1/procurement/stock/movements?product_id=xxx&reason=xxx&reference_id=xxx
func (h *StockHandler) ListMovements(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"product_id":   c.Query("product_id"),
		"reason":       c.Query("reason"),
		"reference_id": c.Query("reference_id"),
	}
	items, total, err := h.stock.ListMovements(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "list stock movements: "+err.Error())
		return
	}
	Success(c, listResponse(items, page, pageSize, total))
}

// GetThresholds GET /api/v1/procurement/thresholds
func (h *StockHandler) GetThresholds(c *gin.Context) {
	t, err := h.thresholds.GetQuotationThresholds(c.Request.Context())
	if err != nil {
		InternalError(c, "load thresholds: "+err.Error())
		return
	}
	Success(c, t)
}

// UpdateThresholds PUT /api/v1/procurement/thresholds
func (h *StockHandler) UpdateThresholds(c *gin.Context) {
	var req service.UpdateThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}
	t, err := h.thresholds.Update(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, t)
}

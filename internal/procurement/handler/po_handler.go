package handler

import (
	"time"

	"github.com/francohenker/carDetailing-sub000/internal/procurement/service"
	"github.com/gin-gonic/gin"
)

// PurchaseOrderHandler purchase orders
type PurchaseOrderHandler struct {
	svc *service.PurchaseOrderService
}

func NewPurchaseOrderHandler(svc *service.PurchaseOrderService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{svc: svc}
}

func orderFilters(c *gin.Context) map[string]string {
	return map[string]string{
		"supplier_id": c.Query("supplier_id"),
		"status":      c.Query("status"),
		"automatic":   c.Query("automatic"),
		"search":      c.Query("search"),
	}
}

// List purchase orders
// GET /api/v1/procurement/purchase-orders?supplier_id=xxx&status=xxx&automatic=xxx&search=xxx
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, orderFilters(c))
	if err != nil {
		InternalError(c, "list purchase orders: "+err.Error())
		return
	}
	Success(c, listResponse(items, page, pageSize, total))
}

// Export GET /api/v1/procurement/purchase-orders/export
func (h *PurchaseOrderHandler) Export(c *gin.Context) {
	f, filename, err := h.svc.ExportOrders(c.Request.Context(), orderFilters(c))
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}

// Get GET /api/v1/procurement/purchase-orders/:id
func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	po, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, po)
}

// Create manual purchase order
// POST /api/v1/procurement/purchase-orders
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req service.CreatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}
	po, err := h.svc.Create(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, po)
}

type createFromQuotationRequest struct {
	ReceivedAt *time.Time `json:"received_at"`
}

// CreateFromQuotation POST /api/v1/procurement/purchase-orders/from-quotation/:responseId
func (h *PurchaseOrderHandler) CreateFromQuotation(c *gin.Context) {
	var req createFromQuotationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}
	po, err := h.svc.CreateFromQuotation(c.Request.Context(), c.Param("responseId"), req.ReceivedAt, GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, po)
}

// UpdateStatus PUT /api/v1/procurement/purchase-orders/:id/status
func (h *PurchaseOrderHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}
	po, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), &req, GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, po)
}

// UpdateItem partial receipt
// PUT /api/v1/procurement/purchase-orders/:id/items/:itemId
func (h *PurchaseOrderHandler) UpdateItem(c *gin.Context) {
	var req service.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.QuantityReceived == nil && req.Notes == nil {
		BadRequest(c, "quantity_received or notes is required")
		return
	}
	po, err := h.svc.UpdateItem(c.Request.Context(), c.Param("id"), c.Param("itemId"), &req, GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, po)
}

// Delete DELETE /api/v1/procurement/purchase-orders/:id
func (h *PurchaseOrderHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), GetUserID(c)); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}

package handler

import (
	"github.com/francohenker/carDetailing-sub000/internal/middleware"
	"github.com/francohenker/carDetailing-sub000/internal/procurement/entity"
	"github.com/francohenker/carDetailing-sub000/internal/procurement/service"
	"github.com/gin-gonic/gin"
)

// QuotationHandler quotation requests and responses
type QuotationHandler struct {
	svc *service.QuotationService
}

func NewQuotationHandler(svc *service.QuotationService) *QuotationHandler {
	return &QuotationHandler{svc: svc}
}

// ListRequests quotation requests
// GET /api/v1/procurement/quotations?status=xxx&automatic=true&product_id=xxx&supplier_id=xxx
func (h *QuotationHandler) ListRequests(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status":      c.Query("status"),
		"automatic":   c.Query("automatic"),
		"product_id":  c.Query("product_id"),
		"supplier_id": c.Query("supplier_id"),
	}

	items, total, err := h.svc.ListRequests(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "list quotation requests: "+err.Error())
		return
	}
	Success(c, listResponse(items, page, pageSize, total))
}

// GetRequest GET /api/v1/procurement/quotations/:id
func (h *QuotationHandler) GetRequest(c *gin.Context) {
	qr, err := h.svc.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, qr)
}

// CreateRequest manual quotation request
// POST /api/v1/procurement/quotations
func (h *QuotationHandler) CreateRequest(c *gin.Context) {
	var req service.CreateQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}
	qr, err := h.svc.CreateRequest(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, qr)
}

// ListResponses GET /api/v1/procurement/quotations/:id/responses
func (h *QuotationHandler) ListResponses(c *gin.Context) {
	items, err := h.svc.GetResponses(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	if items == nil {
		items = []entity.QuotationResponse{}
	}
	Success(c, items)
}

// Respond supplier answer to a request
// POST /api/v1/procurement/quotations/:id/responses
func (h *QuotationHandler) Respond(c *gin.Context) {
	var req service.SupplierResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}
	// supplier accounts answer only for the supplier their token is bound to
	if !middleware.HasRole(c, middleware.RoleAdmin) {
		own := c.GetString("supplier_id")
		if own == "" {
			Error(c, 40313, "token is not bound to a supplier")
			return
		}
		if req.SupplierID == "" {
			req.SupplierID = own
		}
		if req.SupplierID != own {
			Error(c, 40314, "cannot respond on behalf of another supplier")
			return
		}
	}
	if req.SupplierID == "" {
		BadRequest(c, "supplier_id is required")
		return
	}
	resp, err := h.svc.SupplierRespond(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, resp)
}

type selectWinnerRequest struct {
	ResponseID string `json:"response_id" binding:"required"`
}

// SelectWinner POST /api/v1/procurement/quotations/:id/winner
func (h *QuotationHandler) SelectWinner(c *gin.Context) {
	var req selectWinnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}
	resp, err := h.svc.SelectWinner(c.Request.Context(), c.Param("id"), req.ResponseID, GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, resp)
}

// Reject POST /api/v1/procurement/quotations/:id/reject
func (h *QuotationHandler) Reject(c *gin.Context) {
	if err := h.svc.RejectQuotation(c.Request.Context(), c.Param("id"), GetUserID(c)); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}

// MarkAsReceived POST /api/v1/procurement/quotations/:id/received
func (h *QuotationHandler) MarkAsReceived(c *gin.Context) {
	if err := h.svc.MarkAsReceived(c.Request.Context(), c.Param("id"), GetUserID(c)); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}

// SendSupplierEmail manual quotation request mailed to one supplier
// POST /api/v1/procurement/suppliers/:id/quotation-email
func (h *QuotationHandler) SendSupplierEmail(c *gin.Context) {
	var req service.SupplierEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}
	qr, err := h.svc.SendSupplierEmail(c.Request.Context(), c.Param("id"), &req, GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, qr)
}

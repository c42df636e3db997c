package handler

import (
	"net/http"
	"strconv"

	"github.com/francohenker/carDetailing-sub000/internal/procurement/service"
	"github.com/gin-gonic/gin"
)

// Handlers procurement handlers
type Handlers struct {
	Quotation     *QuotationHandler
	PurchaseOrder *PurchaseOrderHandler
	Stock         *StockHandler
}

// NewHandlers builds every handler over the services
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Quotation:     NewQuotationHandler(svc.Quotation),
		PurchaseOrder: NewPurchaseOrderHandler(svc.PurchaseOrder),
		Stock:         NewStockHandler(svc.Stock, svc.Monitor, svc.Threshold),
	}
}

// === response helpers ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = http.StatusInternalServerError
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// HandleError maps service error kinds to responses; unknown errors become 500
func HandleError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch service.KindOf(err) {
	case service.KindNotFound:
		NotFound(c, err.Error())
	case service.KindInvalidState:
		BadRequest(c, err.Error())
	case service.KindConflict:
		Conflict(c, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

func GetUserID(c *gin.Context) string {
	return c.GetString("user_id")
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

func listResponse(items interface{}, page, pageSize int, total int64) ListResponse {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	}
}

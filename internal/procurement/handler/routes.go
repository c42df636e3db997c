package handler

import (
	"github.com/francohenker/carDetailing-sub000/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Register mounts the procurement routes on an authenticated group
func (h *Handlers) Register(authorized *gin.RouterGroup) {
	admin := middleware.RequireRole(middleware.RoleAdmin)

	procurement := authorized.Group("/procurement")
	{
		quotations := procurement.Group("/quotations")
		{
			quotations.GET("", h.Quotation.ListRequests)
			quotations.POST("", admin, h.Quotation.CreateRequest)
			quotations.GET("/:id", h.Quotation.GetRequest)
			quotations.GET("/:id/responses", h.Quotation.ListResponses)
			quotations.POST("/:id/responses", middleware.RequireRole("supplier"), h.Quotation.Respond)
			quotations.POST("/:id/winner", admin, h.Quotation.SelectWinner)
			quotations.POST("/:id/reject", admin, h.Quotation.Reject)
			quotations.POST("/:id/received", admin, h.Quotation.MarkAsReceived)
		}

		procurement.POST("/suppliers/:id/quotation-email", admin, h.Quotation.SendSupplierEmail)

		orders := procurement.Group("/purchase-orders")
		{
			orders.GET("", h.PurchaseOrder.List)
			orders.GET("/export", h.PurchaseOrder.Export)
			orders.GET("/:id", h.PurchaseOrder.Get)
			orders.POST("", admin, h.PurchaseOrder.Create)
			orders.POST("/from-quotation/:responseId", admin, h.PurchaseOrder.CreateFromQuotation)
			orders.PUT("/:id/status", admin, h.PurchaseOrder.UpdateStatus)
			orders.PUT("/:id/items/:itemId", admin, h.PurchaseOrder.UpdateItem)
			orders.DELETE("/:id", admin, h.PurchaseOrder.Delete)
		}

		stock := procurement.Group("/stock")
		{
			stock.POST("/check", admin, h.Stock.CheckLevels)
			stock.POST("/consume", middleware.RequireRole("employee"), h.Stock.Consume)
			stock.GET("/low", h.Stock.ListLow)
			stock.GET("/movements", h.Stock.ListMovements)
		}

		procurement.GET("/thresholds", h.Stock.GetThresholds)
		procurement.PUT("/thresholds", admin, h.Stock.UpdateThresholds)
	}
}

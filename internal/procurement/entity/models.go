package entity

// Models every procurement model, for AutoMigrate
func Models() []interface{} {
	return []interface{}{
		&Supplier{},
		&Product{},
		&User{},
		&QuotationThreshold{},
		&QuotationRequest{},
		&QuotationResponse{},
		&PurchaseOrder{},
		&PurchaseOrderItem{},
		&StockMovement{},
	}
}

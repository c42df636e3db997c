package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockMovement stock ledger row (positive in, negative out)
type StockMovement struct {
	ID            string          `json:"id" gorm:"primaryKey;size:32"`
	ProductID     string          `json:"product_id" gorm:"size:32;not null;index"`
	Quantity      decimal.Decimal `json:"quantity" gorm:"type:decimal(12,3);not null"`
	StockBefore   decimal.Decimal `json:"stock_before" gorm:"type:decimal(12,3);not null"`
	StockAfter    decimal.Decimal `json:"stock_after" gorm:"type:decimal(12,3);not null"`
	Reason        string          `json:"reason" gorm:"size:30;not null"`     // purchase_receipt/service_consumption/adjust
	ReferenceType string          `json:"reference_type" gorm:"size:30"`      // purchase_order/service/manual
	ReferenceID   string          `json:"reference_id" gorm:"size:64;index"`
	CreatedBy     string          `json:"created_by" gorm:"size:32"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (StockMovement) TableName() string {
	return "stock_movements"
}

// Movement reasons
const (
	MovementPurchaseReceipt    = "purchase_receipt"
	MovementServiceConsumption = "service_consumption"
	MovementAdjust             = "adjust"
)

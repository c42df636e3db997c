package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseOrder commitment to buy from one supplier
type PurchaseOrder struct {
	ID                  string          `json:"id" gorm:"primaryKey;size:32"`
	OrderNumber         string          `json:"order_number" gorm:"size:20;not null;uniqueIndex"`
	SupplierID          string          `json:"supplier_id" gorm:"size:32;not null;index"`
	QuotationResponseID *string         `json:"quotation_response_id" gorm:"size:32;uniqueIndex"`
	Status              string          `json:"status" gorm:"size:20;not null;default:PENDING;index"`
	TotalAmount         decimal.Decimal `json:"total_amount" gorm:"type:decimal(15,2);not null;default:0"`
	IsAutomatic         bool            `json:"is_automatic" gorm:"default:false"`
	ReceivedAt          *time.Time      `json:"received_at"`
	ReceivedBy          *string         `json:"received_by" gorm:"size:32"`
	Notes               string          `json:"notes" gorm:"type:text"`
	CreatedBy           string          `json:"created_by" gorm:"size:32"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`

	Supplier *Supplier           `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
	Items    []PurchaseOrderItem `json:"items,omitempty" gorm:"foreignKey:PurchaseOrderID"`
}

func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// PurchaseOrderItem one product line of an order
type PurchaseOrderItem struct {
	ID               string          `json:"id" gorm:"primaryKey;size:32"`
	PurchaseOrderID  string          `json:"purchase_order_id" gorm:"size:32;not null;index"`
	ProductID        string          `json:"product_id" gorm:"size:32;not null"`
	UnitPrice        decimal.Decimal `json:"unit_price" gorm:"type:decimal(15,2);not null"`
	QuantityOrdered  decimal.Decimal `json:"quantity_ordered" gorm:"type:decimal(12,3);not null"`
	QuantityReceived decimal.Decimal `json:"quantity_received" gorm:"type:decimal(12,3);not null;default:0"`
	Subtotal         decimal.Decimal `json:"subtotal" gorm:"type:decimal(15,2);not null"`
	Notes            string          `json:"notes" gorm:"type:text"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

func (PurchaseOrderItem) TableName() string {
	return "purchase_order_items"
}

// Remaining quantity still to be received
func (i *PurchaseOrderItem) Remaining() decimal.Decimal {
	return i.QuantityOrdered.Sub(i.QuantityReceived)
}

// PurchaseOrder statuses
const (
	POStatusPending  = "PENDING"
	POStatusPartial  = "PARTIAL"
	POStatusReceived = "RECEIVED"
)

// DeriveOrderStatus status implied by ordered vs received totals
func DeriveOrderStatus(items []PurchaseOrderItem) string {
	ordered := decimal.Zero
	received := decimal.Zero
	for _, item := range items {
		ordered = ordered.Add(item.QuantityOrdered)
		received = received.Add(item.QuantityReceived)
	}
	switch {
	case received.IsZero():
		return POStatusPending
	case received.LessThan(ordered):
		return POStatusPartial
	default:
		return POStatusReceived
	}
}

// OrderTotal sum of item subtotals
func OrderTotal(items []PurchaseOrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal)
	}
	return total
}

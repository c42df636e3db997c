package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product detailing consumable held in stock
type Product struct {
	ID           string          `json:"id" gorm:"primaryKey;size:32"`
	Name         string          `json:"name" gorm:"size:200;not null"`
	Unit         string          `json:"unit" gorm:"size:20;default:unit"`
	CurrentStock decimal.Decimal `json:"current_stock" gorm:"type:decimal(12,3);not null;default:0"`
	MinimumStock decimal.Decimal `json:"minimum_stock" gorm:"type:decimal(12,3);not null;default:0"`
	Priority     string          `json:"priority" gorm:"size:10;not null;default:MEDIUM;index"` // HIGH/MEDIUM/LOW
	// LowStockAlertedAt last admin alert of the current shortage; cleared on restock
	LowStockAlertedAt *time.Time `json:"low_stock_alerted_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Suppliers []Supplier `json:"suppliers,omitempty" gorm:"many2many:product_suppliers"`
}

func (Product) TableName() string {
	return "products"
}

// IsLow stock at or below the minimum
func (p *Product) IsLow() bool {
	return p.CurrentStock.LessThanOrEqual(p.MinimumStock)
}

// Priority tiers
const (
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
	PriorityLow    = "LOW"
)

// Priorities evaluation order of the stock monitor
var Priorities = []string{PriorityHigh, PriorityMedium, PriorityLow}

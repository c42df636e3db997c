package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// QuotationRequest price solicitation sent to suppliers for a set of products
type QuotationRequest struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	Status      string    `json:"status" gorm:"size:20;not null;default:PENDING;index"`
	Notes       string    `json:"notes" gorm:"type:text"`
	IsAutomatic bool      `json:"is_automatic" gorm:"default:false"`
	CreatedBy   string    `json:"created_by" gorm:"size:32"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Products  []Product           `json:"products,omitempty" gorm:"many2many:quotation_request_products"`
	Suppliers []Supplier          `json:"suppliers,omitempty" gorm:"many2many:quotation_request_suppliers"`
	Responses []QuotationResponse `json:"responses,omitempty" gorm:"foreignKey:QuotationRequestID"`
}

func (QuotationRequest) TableName() string {
	return "quotation_requests"
}

// ProductIDs ids of the loaded product set
func (r *QuotationRequest) ProductIDs() []string {
	ids := make([]string, 0, len(r.Products))
	for _, p := range r.Products {
		ids = append(ids, p.ID)
	}
	return ids
}

// HasSupplier reports whether the supplier was invited
func (r *QuotationRequest) HasSupplier(supplierID string) bool {
	for _, s := range r.Suppliers {
		if s.ID == supplierID {
			return true
		}
	}
	return false
}

// QuotationRequest statuses
const (
	QuotationStatusPending   = "PENDING"
	QuotationStatusCompleted = "COMPLETED"
	QuotationStatusCancelled = "CANCELLED"
	QuotationStatusFinished  = "FINISHED"
)

// ValidQuotationTransitions allowed request status moves; nothing returns to PENDING.
// COMPLETED to CANCELLED is manual abandonment before any goods arrive.
var ValidQuotationTransitions = map[string][]string{
	QuotationStatusPending:   {QuotationStatusCompleted, QuotationStatusCancelled},
	QuotationStatusCompleted: {QuotationStatusFinished, QuotationStatusCancelled},
	QuotationStatusCancelled: {},
	QuotationStatusFinished:  {},
}

// CanTransition checks a request status move against ValidQuotationTransitions
func CanTransition(from, to string) bool {
	for _, s := range ValidQuotationTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// QuotationResponse supplier reply to a request
type QuotationResponse struct {
	ID                 string          `json:"id" gorm:"primaryKey;size:32"`
	QuotationRequestID string          `json:"quotation_request_id" gorm:"size:32;not null;uniqueIndex:idx_quotation_response_supplier"`
	SupplierID         string          `json:"supplier_id" gorm:"size:32;not null;uniqueIndex:idx_quotation_response_supplier"`
	Items              QuoteItems      `json:"items" gorm:"type:jsonb"`
	TotalAmount        decimal.Decimal `json:"total_amount" gorm:"type:decimal(15,2);not null;default:0"`
	DeliveryDays       int             `json:"delivery_days"`
	PaymentTerms       string          `json:"payment_terms" gorm:"size:200"`
	Notes              string          `json:"notes" gorm:"type:text"`
	Status             string          `json:"status" gorm:"size:20;not null;default:PENDING"`
	IsWinner           bool            `json:"is_winner" gorm:"default:false"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`

	Supplier *Supplier `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
}

func (QuotationResponse) TableName() string {
	return "quotation_responses"
}

// QuotationResponse statuses
const (
	ResponseStatusPending  = "PENDING"
	ResponseStatusAccepted = "ACCEPTED"
	ResponseStatusRejected = "REJECTED"
)

// QuoteItem per-product price line of a response
type QuoteItem struct {
	ProductID    string          `json:"product_id"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     decimal.Decimal `json:"quantity"`
	Availability string          `json:"availability,omitempty"`
}

// QuoteItems stored as a jsonb column
type QuoteItems []QuoteItem

func (q QuoteItems) Value() (driver.Value, error) {
	if q == nil {
		return "[]", nil
	}
	b, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (q *QuoteItems) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*q = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("quote items: unsupported column type")
	}
	return json.Unmarshal(data, q)
}

// Total sum of unit price x quantity, rounded to cents
func (q QuoteItems) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range q {
		total = total.Add(item.UnitPrice.Mul(item.Quantity))
	}
	return total.Round(2)
}

package entity

import "time"

// QuotationThreshold number of low products per tier that triggers automatic quotations
type QuotationThreshold struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	High      int       `json:"high" gorm:"not null"`
	Medium    int       `json:"medium" gorm:"not null"`
	Low       int       `json:"low" gorm:"not null"`
	UpdatedBy string    `json:"updated_by" gorm:"size:32"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (QuotationThreshold) TableName() string {
	return "quotation_thresholds"
}

// ForPriority trigger count of one tier
func (t QuotationThreshold) ForPriority(priority string) int {
	switch priority {
	case PriorityHigh:
		return t.High
	case PriorityMedium:
		return t.Medium
	case PriorityLow:
		return t.Low
	}
	return 0
}

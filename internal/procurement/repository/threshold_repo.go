package repository

import (
	"context"

	"github.com/francohenker/carDetailing-sub000/internal/procurement/entity"
	"gorm.io/gorm"
)

// ThresholdRepository singleton row of quotation thresholds
type ThresholdRepository struct {
	db *gorm.DB
}

func NewThresholdRepository(db *gorm.DB) *ThresholdRepository {
	return &ThresholdRepository{db: db}
}

// Get returns ErrNotFound when no row was ever saved
func (r *ThresholdRepository) Get(ctx context.Context) (*entity.QuotationThreshold, error) {
	var t entity.QuotationThreshold
	if err := r.db.WithContext(ctx).Order("id ASC").First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// Save inserts or updates the singleton
func (r *ThresholdRepository) Save(ctx context.Context, t *entity.QuotationThreshold) error {
	if t.ID == 0 {
		t.ID = 1
	}
	return r.db.WithContext(ctx).Save(t).Error
}

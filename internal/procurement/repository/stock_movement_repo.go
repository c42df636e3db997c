package repository

import (
	"context"

	"github.com/francohenker/carDetailing-sub000/internal/procurement/entity"
	"gorm.io/gorm"
)

// StockMovementRepository stock ledger
type StockMovementRepository struct {
	db *gorm.DB
}

func NewStockMovementRepository(db *gorm.DB) *StockMovementRepository {
	return &StockMovementRepository{db: db}
}

func (r *StockMovementRepository) WithTx(tx *gorm.DB) *StockMovementRepository {
	return &StockMovementRepository{db: tx}
}

func (r *StockMovementRepository) Create(ctx context.Context, m *entity.StockMovement) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// FindAll lists ledger rows, newest first
func (r *StockMovementRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.StockMovement, int64, error) {
	var items []entity.StockMovement
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.StockMovement{})
	if productID := filters["product_id"]; productID != "" {
		query = query.Where("product_id = ?", productID)
	}
	if reason := filters["reason"]; reason != "" {
		query = query.Where("reason = ?", reason)
	}
	if refID := filters["reference_id"]; refID != "" {
		query = query.Where("reference_id = ?", refID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

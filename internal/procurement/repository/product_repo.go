package repository

import (
	"context"
	"time"

	"github.com/francohenker/carDetailing-sub000/internal/procurement/entity"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductRepository product store and stock row access
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// WithTx binds the repository to a transaction
func (r *ProductRepository) WithTx(tx *gorm.DB) *ProductRepository {
	return &ProductRepository{db: tx}
}

// FindByID finds a product with its suppliers
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	var p entity.Product
	if err := r.db.WithContext(ctx).Preload("Suppliers").Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// FindByIDs loads the non-deleted products among ids
func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) ([]entity.Product, error) {
	var items []entity.Product
	if len(ids) == 0 {
		return items, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&items).Error
	return items, err
}

// FindLowStock products at or below minimum stock; empty priority means every tier.
// Suppliers are preloaded, inactive ones excluded.
func (r *ProductRepository) FindLowStock(ctx context.Context, priority string) ([]entity.Product, error) {
	var items []entity.Product
	query := r.db.WithContext(ctx).
		Preload("Suppliers", "is_active = ?", true).
		Where("current_stock <= minimum_stock")
	if priority != "" {
		query = query.Where("priority = ?", priority)
	}
	err := query.Order("name ASC").Find(&items).Error
	return items, err
}

// LockByID reads a product with a row lock, soft-deleted included
func (r *ProductRepository) LockByID(ctx context.Context, id string) (*entity.Product, error) {
	var p entity.Product
	if err := r.db.WithContext(ctx).Unscoped().Clauses(forUpdate).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// UpdateStock writes the current stock; callers hold the row lock.
// restocked ends the shortage, so its next one is alerted again.
func (r *ProductRepository) UpdateStock(ctx context.Context, id string, stock decimal.Decimal, restocked bool) error {
	fields := map[string]interface{}{"current_stock": stock}
	if restocked {
		fields["low_stock_alerted_at"] = nil
	}
	return r.db.WithContext(ctx).Model(&entity.Product{}).Where("id = ?", id).Updates(fields).Error
}

// MarkLowStockAlerted stamps the admin alert of the current shortage
func (r *ProductRepository) MarkLowStockAlerted(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&entity.Product{}).Where("id IN ?", ids).
		Update("low_stock_alerted_at", at).Error
}

package repository

import (
	"context"

	"github.com/francohenker/carDetailing-sub000/internal/procurement/entity"
	"gorm.io/gorm"
)

// SupplierRepository read access to suppliers
type SupplierRepository struct {
	db *gorm.DB
}

func NewSupplierRepository(db *gorm.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

func (r *SupplierRepository) WithTx(tx *gorm.DB) *SupplierRepository {
	return &SupplierRepository{db: tx}
}

// FindByID finds a supplier
func (r *SupplierRepository) FindByID(ctx context.Context, id string) (*entity.Supplier, error) {
	var s entity.Supplier
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// FindByIDs loads the suppliers among ids
func (r *SupplierRepository) FindByIDs(ctx context.Context, ids []string) ([]entity.Supplier, error) {
	var items []entity.Supplier
	if len(ids) == 0 {
		return items, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&items).Error
	return items, err
}

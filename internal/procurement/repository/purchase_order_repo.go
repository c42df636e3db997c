package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/francohenker/carDetailing-sub000/internal/procurement/entity"
	"gorm.io/gorm"
)

// orderNumberLockKey advisory lock key serializing order number allocation
const orderNumberLockKey = 7_340_101

// PurchaseOrderRepository purchase orders and items
type PurchaseOrderRepository struct {
	db *gorm.DB
}

func NewPurchaseOrderRepository(db *gorm.DB) *PurchaseOrderRepository {
	return &PurchaseOrderRepository{db: db}
}

func (r *PurchaseOrderRepository) WithTx(tx *gorm.DB) *PurchaseOrderRepository {
	return &PurchaseOrderRepository{db: tx}
}

func (r *PurchaseOrderRepository) filtered(ctx context.Context, filters map[string]string) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&entity.PurchaseOrder{})
	if supplierID := filters["supplier_id"]; supplierID != "" {
		query = query.Where("supplier_id = ?", supplierID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	switch filters["automatic"] {
	case "true":
		query = query.Where("is_automatic = ?", true)
	case "false":
		query = query.Where("is_automatic = ?", false)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("order_number ILIKE ?", "%"+search+"%")
	}
	return query
}

// FindAll lists purchase orders, newest first
func (r *PurchaseOrderRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	var items []entity.PurchaseOrder
	var total int64

	query := r.filtered(ctx, filters)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.
		Preload("Supplier").
		Preload("Items").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error

	return items, total, err
}

// FindForExport every order matching the filters, with item products
func (r *PurchaseOrderRepository) FindForExport(ctx context.Context, filters map[string]string) ([]entity.PurchaseOrder, error) {
	var items []entity.PurchaseOrder
	err := r.filtered(ctx, filters).
		Preload("Supplier").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Items.Product", func(db *gorm.DB) *gorm.DB {
			return db.Unscoped()
		}).
		Order("order_number ASC").
		Find(&items).Error
	return items, err
}

// FindByID loads an order with supplier and items
func (r *PurchaseOrderRepository) FindByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Supplier").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where("id = ?", id).
		First(&po).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &po, nil
}

// LockByID reads the order row with a row lock and loads its items
func (r *PurchaseOrderRepository) LockByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	if err := r.db.WithContext(ctx).Clauses(forUpdate).Where("id = ?", id).First(&po).Error; err != nil {
		return nil, notFound(err)
	}
	if err := r.db.WithContext(ctx).Where("purchase_order_id = ?", id).
		Order("created_at ASC, id ASC").Find(&po.Items).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

// FindByQuotationResponseID the order generated from a quotation response
func (r *PurchaseOrderRepository) FindByQuotationResponseID(ctx context.Context, responseID string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := r.db.WithContext(ctx).Where("quotation_response_id = ?", responseID).
		Order("created_at ASC").First(&po).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &po, nil
}

// Create inserts the order and its items
func (r *PurchaseOrderRepository) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	return r.db.WithContext(ctx).Omit("Supplier", "Items.Product").Create(po).Error
}

// UpdateFields partial update of an order
func (r *PurchaseOrderRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	return r.db.WithContext(ctx).Model(&entity.PurchaseOrder{}).Where("id = ?", id).Updates(fields).Error
}

// SaveItem persists quantity received and notes of an item
func (r *PurchaseOrderRepository) SaveItem(ctx context.Context, item *entity.PurchaseOrderItem) error {
	return r.db.WithContext(ctx).Model(&entity.PurchaseOrderItem{}).Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"quantity_received": item.QuantityReceived,
			"notes":             item.Notes,
			"updated_at":        time.Now(),
		}).Error
}

// Delete removes an order and its items
func (r *PurchaseOrderRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("purchase_order_id = ?", id).Delete(&entity.PurchaseOrderItem{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.PurchaseOrder{}).Error
}

// NextOrderNumber allocates OC-{year}-{5 digits}, sequence restarting every year.
// Must run inside a transaction; the advisory lock is held until it ends.
func (r *PurchaseOrderRepository) NextOrderNumber(ctx context.Context, now time.Time) (string, error) {
	if err := r.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(?)", orderNumberLockKey).Error; err != nil {
		return "", err
	}

	year := now.Year()
	var seq int
	err := r.db.WithContext(ctx).
		Model(&entity.PurchaseOrder{}).
		Select("COALESCE(MAX(CAST(split_part(order_number, '-', 3) AS integer)), 0)").
		Where("order_number LIKE ?", fmt.Sprintf("OC-%d-%%", year)).
		Scan(&seq).Error
	if err != nil {
		return "", err
	}
	return FormatOrderNumber(year, seq+1), nil
}

// FormatOrderNumber OC-2026-00042
func FormatOrderNumber(year, seq int) string {
	return fmt.Sprintf("OC-%d-%05d", year, seq)
}

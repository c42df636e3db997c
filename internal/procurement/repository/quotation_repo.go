package repository

import (
	"context"
	"time"

	"github.com/francohenker/carDetailing-sub000/internal/procurement/entity"
	"gorm.io/gorm"
)

// QuotationRepository quotation requests and responses
type QuotationRepository struct {
	db *gorm.DB
}

func NewQuotationRepository(db *gorm.DB) *QuotationRepository {
	return &QuotationRepository{db: db}
}

func (r *QuotationRepository) WithTx(tx *gorm.DB) *QuotationRepository {
	return &QuotationRepository{db: tx}
}

// FindAll lists quotation requests, newest first
func (r *QuotationRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.QuotationRequest, int64, error) {
	var items []entity.QuotationRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.QuotationRequest{})

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	switch filters["automatic"] {
	case "true":
		query = query.Where("is_automatic = ?", true)
	case "false":
		query = query.Where("is_automatic = ?", false)
	}
	if productID := filters["product_id"]; productID != "" {
		query = query.Where("id IN (?)", r.db.Table("quotation_request_products").
			Select("quotation_request_id").Where("product_id = ?", productID))
	}
	if supplierID := filters["supplier_id"]; supplierID != "" {
		query = query.Where("id IN (?)", r.db.Table("quotation_request_suppliers").
			Select("quotation_request_id").Where("supplier_id = ?", supplierID))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.
		Preload("Products").
		Preload("Suppliers").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error

	return items, total, err
}

// FindByID loads a request with products, suppliers and responses
func (r *QuotationRepository) FindByID(ctx context.Context, id string) (*entity.QuotationRequest, error) {
	var req entity.QuotationRequest
	err := r.db.WithContext(ctx).
		Preload("Products").
		Preload("Suppliers").
		Preload("Responses", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Responses.Supplier").
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

// LockByID reads the bare request row with a row lock
func (r *QuotationRepository) LockByID(ctx context.Context, id string) (*entity.QuotationRequest, error) {
	var req entity.QuotationRequest
	if err := r.db.WithContext(ctx).Clauses(forUpdate).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

// Create inserts the request and its join rows; products and suppliers must already exist
func (r *QuotationRepository) Create(ctx context.Context, req *entity.QuotationRequest) error {
	return r.db.WithContext(ctx).Omit("Products.*", "Suppliers.*", "Responses").Create(req).Error
}

// UpdateStatus sets the request status
func (r *QuotationRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.db.WithContext(ctx).Model(&entity.QuotationRequest{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error
}

// HasPendingForProducts reports whether a PENDING request covers any of the products
func (r *QuotationRepository) HasPendingForProducts(ctx context.Context, productIDs []string) (bool, error) {
	if len(productIDs) == 0 {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.QuotationRequest{}).
		Where("status = ?", entity.QuotationStatusPending).
		Where("id IN (?)", r.db.Table("quotation_request_products").
			Select("quotation_request_id").Where("product_id IN ?", productIDs)).
		Count(&count).Error
	return count > 0, err
}

// FindPendingOverlapping ids of PENDING requests, other than excludeID, sharing a product
func (r *QuotationRepository) FindPendingOverlapping(ctx context.Context, excludeID string, productIDs []string) ([]string, error) {
	var ids []string
	if len(productIDs) == 0 {
		return ids, nil
	}
	err := r.db.WithContext(ctx).Model(&entity.QuotationRequest{}).
		Where("status = ? AND id <> ?", entity.QuotationStatusPending, excludeID).
		Where("id IN (?)", r.db.Table("quotation_request_products").
			Select("quotation_request_id").Where("product_id IN ?", productIDs)).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// FindProductIDs product ids of a request
func (r *QuotationRepository) FindProductIDs(ctx context.Context, requestID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Table("quotation_request_products").
		Where("quotation_request_id = ?", requestID).
		Pluck("product_id", &ids).Error
	return ids, err
}

// IsSupplierInvited checks the request/supplier join table
func (r *QuotationRepository) IsSupplierInvited(ctx context.Context, requestID, supplierID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Table("quotation_request_suppliers").
		Where("quotation_request_id = ? AND supplier_id = ?", requestID, supplierID).
		Count(&count).Error
	return count > 0, err
}

// FindResponses responses of a request in arrival order
func (r *QuotationRepository) FindResponses(ctx context.Context, requestID string) ([]entity.QuotationResponse, error) {
	var items []entity.QuotationResponse
	err := r.db.WithContext(ctx).
		Preload("Supplier").
		Where("quotation_request_id = ?", requestID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// FindResponseByID finds one response
func (r *QuotationRepository) FindResponseByID(ctx context.Context, id string) (*entity.QuotationResponse, error) {
	var resp entity.QuotationResponse
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&resp).Error; err != nil {
		return nil, notFound(err)
	}
	return &resp, nil
}

// FindResponseBySupplier returns ErrNotFound when the supplier has not answered
func (r *QuotationRepository) FindResponseBySupplier(ctx context.Context, requestID, supplierID string) (*entity.QuotationResponse, error) {
	var resp entity.QuotationResponse
	err := r.db.WithContext(ctx).
		Where("quotation_request_id = ? AND supplier_id = ?", requestID, supplierID).
		First(&resp).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &resp, nil
}

// FindWinner the winning response of a request
func (r *QuotationRepository) FindWinner(ctx context.Context, requestID string) (*entity.QuotationResponse, error) {
	var resp entity.QuotationResponse
	err := r.db.WithContext(ctx).
		Where("quotation_request_id = ? AND is_winner = ?", requestID, true).
		First(&resp).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &resp, nil
}

func (r *QuotationRepository) CreateResponse(ctx context.Context, resp *entity.QuotationResponse) error {
	return r.db.WithContext(ctx).Omit("Supplier").Create(resp).Error
}

// RejectResponses marks every response of the request REJECTED, except exceptID when set
func (r *QuotationRepository) RejectResponses(ctx context.Context, requestID, exceptID string) error {
	query := r.db.WithContext(ctx).Model(&entity.QuotationResponse{}).
		Where("quotation_request_id = ?", requestID)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	return query.Updates(map[string]interface{}{
		"status":     entity.ResponseStatusRejected,
		"is_winner":  false,
		"updated_at": time.Now(),
	}).Error
}

// AcceptResponse marks the response ACCEPTED and winner
func (r *QuotationRepository) AcceptResponse(ctx context.Context, responseID string) error {
	return r.db.WithContext(ctx).Model(&entity.QuotationResponse{}).Where("id = ?", responseID).
		Updates(map[string]interface{}{
			"status":     entity.ResponseStatusAccepted,
			"is_winner":  true,
			"updated_at": time.Now(),
		}).Error
}

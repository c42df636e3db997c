package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound = errors.New("record not found")
)

// forUpdate row lock for the duration of the surrounding transaction
var forUpdate = clause.Locking{Strength: "UPDATE"}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Repositories procurement repositories
type Repositories struct {
	Product       *ProductRepository
	Supplier      *SupplierRepository
	User          *UserRepository
	Threshold     *ThresholdRepository
	Quotation     *QuotationRepository
	PurchaseOrder *PurchaseOrderRepository
	StockMovement *StockMovementRepository
}

// NewRepositories builds all procurement repositories on one connection
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Product:       NewProductRepository(db),
		Supplier:      NewSupplierRepository(db),
		User:          NewUserRepository(db),
		Threshold:     NewThresholdRepository(db),
		Quotation:     NewQuotationRepository(db),
		PurchaseOrder: NewPurchaseOrderRepository(db),
		StockMovement: NewStockMovementRepository(db),
	}
}

func paginate(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/francohenker/carDetailing-sub000/internal/procurement/entity"
	"github.com/francohenker/carDetailing-sub000/internal/procurement/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StockService single mutation point for product stock
type StockService struct {
	db      *gorm.DB
	repos   *repository.Repositories
	monitor *StockMonitor
	logger  *zap.Logger
}

func NewStockService(db *gorm.DB, repos *repository.Repositories, logger *zap.Logger) *StockService {
	return &StockService{db: db, repos: repos, logger: logger.Named("stock")}
}

// SetMonitor wires the monitor evaluated after consumption
func (s *StockService) SetMonitor(m *StockMonitor) {
	s.monitor = m
}

// Adjustment one signed stock change
type Adjustment struct {
	ProductID     string
	Delta         decimal.Decimal
	Reason        string
	ReferenceType string
	ReferenceID   string
	ActorID       string
}

// StockChange result of an adjustment
type StockChange struct {
	Product entity.Product
	Before  decimal.Decimal
	After   decimal.Decimal
	// Crossed the product went from above minimum to at-or-below it
	Crossed bool
}

// Adjust applies a delta under the product row lock and writes a ledger row.
// tx must be an open transaction; the lock is held until it ends.
func (s *StockService) Adjust(ctx context.Context, tx *gorm.DB, adj Adjustment) (*StockChange, error) {
	products := s.repos.Product.WithTx(tx)

	product, err := products.LockByID(ctx, adj.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("product %s not found", adj.ProductID)
		}
		return nil, fmt.Errorf("lock product: %w", err)
	}

	before := product.CurrentStock
	after := before.Add(adj.Delta)
	if after.IsNegative() {
		return nil, invalidState("insufficient stock for %s: current %s, change %s",
			product.Name, before.String(), adj.Delta.String())
	}

	if err := products.UpdateStock(ctx, product.ID, after, after.GreaterThan(product.MinimumStock)); err != nil {
		return nil, fmt.Errorf("update stock: %w", err)
	}

	movement := &entity.StockMovement{
		ID:            uuid.New().String()[:32],
		ProductID:     product.ID,
		Quantity:      adj.Delta,
		StockBefore:   before,
		StockAfter:    after,
		Reason:        adj.Reason,
		ReferenceType: adj.ReferenceType,
		ReferenceID:   adj.ReferenceID,
		CreatedBy:     adj.ActorID,
	}
	if err := s.repos.StockMovement.WithTx(tx).Create(ctx, movement); err != nil {
		return nil, fmt.Errorf("record stock movement: %w", err)
	}

	product.CurrentStock = after
	return &StockChange{
		Product: *product,
		Before:  before,
		After:   after,
		Crossed: before.GreaterThan(product.MinimumStock) && after.LessThanOrEqual(product.MinimumStock),
	}, nil
}

// ConsumeItem one consumed product
type ConsumeItem struct {
	ProductID string          `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// ConsumeRequest stock consumed by a detailing service
type ConsumeRequest struct {
	Items       []ConsumeItem `json:"items" binding:"required,min=1,dive"`
	ReferenceID string        `json:"reference_id"`
}

// Consume decrements stock for a service and re-evaluates the monitor for products that crossed their minimum
func (s *StockService) Consume(ctx context.Context, req *ConsumeRequest, actorID string) ([]StockChange, error) {
	seen := make(map[string]bool, len(req.Items))
	for _, item := range req.Items {
		if !item.Quantity.IsPositive() {
			return nil, invalidState("consumed quantity for product %s must be positive", item.ProductID)
		}
		if seen[item.ProductID] {
			return nil, conflict("product %s appears more than once", item.ProductID)
		}
		seen[item.ProductID] = true
	}

	// product rows are locked in id order so concurrent writers cannot deadlock
	items := make([]ConsumeItem, len(req.Items))
	copy(items, req.Items)
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

	var changes []StockChange
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			change, err := s.Adjust(ctx, tx, Adjustment{
				ProductID:     item.ProductID,
				Delta:         item.Quantity.Neg(),
				Reason:        entity.MovementServiceConsumption,
				ReferenceType: "service",
				ReferenceID:   req.ReferenceID,
				ActorID:       actorID,
			})
			if err != nil {
				return err
			}
			changes = append(changes, *change)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var crossed []entity.Product
	for _, c := range changes {
		if c.Crossed {
			crossed = append(crossed, c.Product)
		}
	}
	if len(crossed) > 0 && s.monitor != nil {
		s.monitor.EvaluateAfterMutation(ctx, crossed)
	}
	return changes, nil
}

// ListLowStock products at or below minimum stock, every tier
func (s *StockService) ListLowStock(ctx context.Context) ([]entity.Product, error) {
	return s.repos.Product.FindLowStock(ctx, "")
}

// ListMovements stock ledger rows
func (s *StockService) ListMovements(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.StockMovement, int64, error) {
	return s.repos.StockMovement.FindAll(ctx, page, pageSize, filters)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/francohenker/carDetailing-sub000/internal/procurement/entity"
	"github.com/francohenker/carDetailing-sub000/internal/procurement/repository"
	"github.com/francohenker/carDetailing-sub000/internal/shared/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// QuotationFinalizer finishes the quotation request behind a received order
type QuotationFinalizer interface {
	FinalizeIfComplete(ctx context.Context, tx *gorm.DB, requestID string) error
}

// PurchaseOrderService ordering, partial receipt and stock reconciliation
type PurchaseOrderService struct {
	db        *gorm.DB
	repos     *repository.Repositories
	stock     *StockService
	finalizer QuotationFinalizer
	metrics   *metrics.Metrics
	logger    *zap.Logger
	nf        nonFatal
}

func NewPurchaseOrderService(db *gorm.DB, repos *repository.Repositories, stock *StockService, m *metrics.Metrics, logger *zap.Logger) *PurchaseOrderService {
	logger = logger.Named("purchase-orders")
	return &PurchaseOrderService{
		db:      db,
		repos:   repos,
		stock:   stock,
		metrics: m,
		logger:  logger,
		nf:      nonFatal{logger: logger, metrics: m},
	}
}

// SetQuotationFinalizer wires the quotation finalization port
func (s *PurchaseOrderService) SetQuotationFinalizer(f QuotationFinalizer) {
	s.finalizer = f
}

// POItemInput one ordered product
type POItemInput struct {
	ProductID string          `json:"product_id" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Notes     string          `json:"notes"`
}

// CreatePurchaseOrderRequest manual or automatic purchase order
type CreatePurchaseOrderRequest struct {
	SupplierID          string        `json:"supplier_id" binding:"required"`
	QuotationResponseID *string       `json:"quotation_response_id"`
	Items               []POItemInput `json:"items" binding:"required,min=1,dive"`
	Notes               string        `json:"notes"`
	Automatic           bool          `json:"-"`
}

// Create validates and stores a PENDING purchase order
func (s *PurchaseOrderService) Create(ctx context.Context, req *CreatePurchaseOrderRequest, userID string) (*entity.PurchaseOrder, error) {
	var po *entity.PurchaseOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		po, err = s.create(ctx, tx, req, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.RecordCreated(po)
	return s.Get(ctx, po.ID)
}

func (s *PurchaseOrderService) create(ctx context.Context, tx *gorm.DB, req *CreatePurchaseOrderRequest, userID string) (*entity.PurchaseOrder, error) {
	if len(req.Items) == 0 {
		return nil, invalidState("a purchase order needs at least one item")
	}

	if _, err := s.repos.Supplier.WithTx(tx).FindByID(ctx, req.SupplierID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("supplier %s not found", req.SupplierID)
		}
		return nil, err
	}

	orders := s.repos.PurchaseOrder.WithTx(tx)
	if req.QuotationResponseID != nil && *req.QuotationResponseID != "" {
		responseID := *req.QuotationResponseID
		if _, err := s.repos.Quotation.WithTx(tx).FindResponseByID(ctx, responseID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, notFoundError("quotation response %s not found", responseID)
			}
			return nil, err
		}
		if existing, err := orders.FindByQuotationResponseID(ctx, responseID); err == nil {
			return nil, conflict("purchase order %s already exists for quotation response %s", existing.OrderNumber, responseID)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	} else {
		req.QuotationResponseID = nil
	}

	seen := make(map[string]bool, len(req.Items))
	productIDs := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		if seen[item.ProductID] {
			return nil, conflict("product %s appears more than once in the order", item.ProductID)
		}
		if !item.Quantity.IsPositive() || item.UnitPrice.IsNegative() {
			return nil, invalidState("item for product %s needs a positive quantity and a non-negative unit price", item.ProductID)
		}
		seen[item.ProductID] = true
		productIDs = append(productIDs, item.ProductID)
	}
	products, err := s.repos.Product.WithTx(tx).FindByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	if missing := missingIDs(productIDs, productIDsOf(products)); len(missing) > 0 {
		return nil, notFoundError("products not found: %v", missing)
	}

	number, err := orders.NextOrderNumber(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("allocate order number: %w", err)
	}

	po := &entity.PurchaseOrder{
		ID:                  uuid.New().String()[:32],
		OrderNumber:         number,
		SupplierID:          req.SupplierID,
		QuotationResponseID: req.QuotationResponseID,
		Status:              entity.POStatusPending,
		IsAutomatic:         req.Automatic,
		Notes:               req.Notes,
		CreatedBy:           userID,
	}
	for _, item := range req.Items {
		po.Items = append(po.Items, entity.PurchaseOrderItem{
			ID:               uuid.New().String()[:32],
			PurchaseOrderID:  po.ID,
			ProductID:        item.ProductID,
			UnitPrice:        item.UnitPrice,
			QuantityOrdered:  item.Quantity,
			QuantityReceived: decimal.Zero,
			Subtotal:         item.UnitPrice.Mul(item.Quantity).Round(2),
			Notes:            item.Notes,
		})
	}
	po.TotalAmount = entity.OrderTotal(po.Items)

	if err := orders.Create(ctx, po); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflict("purchase order already exists for quotation response %s", *req.QuotationResponseID)
		}
		return nil, fmt.Errorf("create purchase order: %w", err)
	}

	return po, nil
}

// RecordCreated counts and logs an order once its transaction has committed
func (s *PurchaseOrderService) RecordCreated(po *entity.PurchaseOrder) {
	s.metrics.PurchaseOrderCreated(po.IsAutomatic)
	s.logger.Info("purchase order created",
		zap.String("id", po.ID),
		zap.String("order_number", po.OrderNumber),
		zap.String("supplier_id", po.SupplierID),
		zap.Bool("automatic", po.IsAutomatic),
		zap.String("total", po.TotalAmount.StringFixed(2)))
}

// CreateFromQuotation builds an automatic order from a quotation response.
// A receipt timestamp also finishes the quotation request behind it.
func (s *PurchaseOrderService) CreateFromQuotation(ctx context.Context, responseID string, receivedAt *time.Time, userID string) (*entity.PurchaseOrder, error) {
	var finalizeErr error
	var po *entity.PurchaseOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		po, err = s.CreateFromQuotationResponseTx(ctx, tx, responseID, receivedAt, userID)
		if err != nil {
			return err
		}
		if receivedAt != nil {
			finalizeErr = s.finalizeQuotation(ctx, tx, po)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.RecordCreated(po)
	s.reportFinalize(po, finalizeErr)
	return s.Get(ctx, po.ID)
}

// CreateFromQuotationResponseTx creates the order inside the caller's transaction.
// A receipt timestamp drives the new order straight to RECEIVED. The caller records
// the creation after commit and owns the quotation request.
func (s *PurchaseOrderService) CreateFromQuotationResponseTx(ctx context.Context, tx *gorm.DB, responseID string, receivedAt *time.Time, userID string) (*entity.PurchaseOrder, error) {
	resp, err := s.repos.Quotation.WithTx(tx).FindResponseByID(ctx, responseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("quotation response %s not found", responseID)
		}
		return nil, err
	}

	items := make([]POItemInput, 0, len(resp.Items))
	for _, q := range resp.Items {
		items = append(items, POItemInput{
			ProductID: q.ProductID,
			UnitPrice: q.UnitPrice,
			Quantity:  q.Quantity,
			Notes:     q.Availability,
		})
	}

	po, err := s.create(ctx, tx, &CreatePurchaseOrderRequest{
		SupplierID:          resp.SupplierID,
		QuotationResponseID: &resp.ID,
		Items:               items,
		Notes:               fmt.Sprintf("Generated from quotation request %s", resp.QuotationRequestID),
		Automatic:           true,
	}, userID)
	if err != nil {
		return nil, err
	}

	if receivedAt != nil {
		if err := s.receiveAll(ctx, tx, po, receivedAt, &userID, userID); err != nil {
			return nil, err
		}
	}
	return po, nil
}

// UpdateStatusRequest status override
type UpdateStatusRequest struct {
	Status     string     `json:"status" binding:"required,oneof=PENDING PARTIAL RECEIVED"`
	ReceivedBy *string    `json:"received_by"`
	ReceivedAt *time.Time `json:"received_at"`
}

// UpdateStatus direct status override. RECEIVED receives every outstanding quantity;
// PENDING and PARTIAL must agree with the received quantities.
func (s *PurchaseOrderService) UpdateStatus(ctx context.Context, orderID string, req *UpdateStatusRequest, userID string) (*entity.PurchaseOrder, error) {
	var finalizeErr error
	var received bool
	var po *entity.PurchaseOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		po, err = s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}

		switch req.Status {
		case entity.POStatusReceived:
			if po.Status == entity.POStatusReceived {
				return nil
			}
			receivedBy := req.ReceivedBy
			if receivedBy == nil {
				receivedBy = &userID
			}
			if err := s.receiveAll(ctx, tx, po, req.ReceivedAt, receivedBy, userID); err != nil {
				return err
			}
			received = true
			finalizeErr = s.finalizeQuotation(ctx, tx, po)
			return nil
		case entity.POStatusPending, entity.POStatusPartial:
			derived := entity.DeriveOrderStatus(po.Items)
			if derived != req.Status {
				return invalidState("purchase order %s is %s by its received quantities and cannot be set to %s",
					po.OrderNumber, derived, req.Status)
			}
			if req.Status == entity.POStatusPartial && po.ReceivedBy == nil && req.ReceivedBy != nil {
				return s.repos.PurchaseOrder.WithTx(tx).UpdateFields(ctx, po.ID, map[string]interface{}{
					"received_by": *req.ReceivedBy,
				})
			}
			return nil
		default:
			return invalidState("unknown purchase order status %s", req.Status)
		}
	})
	if err != nil {
		return nil, err
	}
	if received {
		s.logger.Info("purchase order received",
			zap.String("id", po.ID), zap.String("order_number", po.OrderNumber), zap.String("by", userID))
	}
	s.reportFinalize(po, finalizeErr)
	return s.Get(ctx, orderID)
}

// ForceReceivedTx drives an order to RECEIVED inside the caller's transaction.
// The caller owns the quotation request behind the order.
func (s *PurchaseOrderService) ForceReceivedTx(ctx context.Context, tx *gorm.DB, orderID, userID string) error {
	po, err := s.lockOrder(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if po.Status == entity.POStatusReceived {
		return nil
	}
	return s.receiveAll(ctx, tx, po, nil, &userID, userID)
}

// receiveAll receives the outstanding quantity of every item and stamps the order RECEIVED.
// po must be locked by tx.
func (s *PurchaseOrderService) receiveAll(ctx context.Context, tx *gorm.DB, po *entity.PurchaseOrder, receivedAt *time.Time, receivedBy *string, userID string) error {
	orders := s.repos.PurchaseOrder.WithTx(tx)
	if len(po.Items) == 0 {
		return invalidState("purchase order %s has no items to receive", po.OrderNumber)
	}

	for _, i := range itemsByProduct(po.Items) {
		item := &po.Items[i]
		remaining := item.Remaining()
		if !remaining.IsPositive() {
			continue
		}
		if _, err := s.stock.Adjust(ctx, tx, Adjustment{
			ProductID:     item.ProductID,
			Delta:         remaining,
			Reason:        entity.MovementPurchaseReceipt,
			ReferenceType: "purchase_order",
			ReferenceID:   po.ID,
			ActorID:       userID,
		}); err != nil {
			return err
		}
		item.QuantityReceived = item.QuantityOrdered
		if err := orders.SaveItem(ctx, item); err != nil {
			return err
		}
	}

	at := time.Now()
	if po.ReceivedAt != nil {
		at = *po.ReceivedAt
	}
	if receivedAt != nil {
		at = *receivedAt
	}
	fields := map[string]interface{}{
		"status":      entity.POStatusReceived,
		"received_at": at,
	}
	if receivedBy != nil {
		fields["received_by"] = *receivedBy
	}
	if err := orders.UpdateFields(ctx, po.ID, fields); err != nil {
		return err
	}
	po.Status = entity.POStatusReceived
	po.ReceivedAt = &at
	return nil
}

// itemsByProduct item indexes in product id order, the lock order for stock rows
func itemsByProduct(items []entity.PurchaseOrderItem) []int {
	order := make([]int, len(items))
	for i := range items {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return items[order[a]].ProductID < items[order[b]].ProductID })
	return order
}

// UpdateItemRequest partial receipt of one item
type UpdateItemRequest struct {
	QuantityReceived *decimal.Decimal `json:"quantity_received"`
	Notes            *string          `json:"notes"`
}

// UpdateItem partial receipt: applies the received delta to stock and re-derives the order status
func (s *PurchaseOrderService) UpdateItem(ctx context.Context, orderID, itemID string, req *UpdateItemRequest, userID string) (*entity.PurchaseOrder, error) {
	var finalizeErr error
	var po *entity.PurchaseOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		po, err = s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}

		var item *entity.PurchaseOrderItem
		for i := range po.Items {
			if po.Items[i].ID == itemID {
				item = &po.Items[i]
				break
			}
		}
		if item == nil {
			return notFoundError("item %s not found in purchase order %s", itemID, po.OrderNumber)
		}

		if req.Notes != nil {
			item.Notes = *req.Notes
		}
		if req.QuantityReceived != nil {
			qty := *req.QuantityReceived
			if qty.IsNegative() {
				return invalidState("quantity received %s must not be negative", qty.String())
			}
			if qty.GreaterThan(item.QuantityOrdered) {
				return invalidState("quantity received %s exceeds quantity ordered %s", qty.String(), item.QuantityOrdered.String())
			}
			delta := qty.Sub(item.QuantityReceived)
			if !delta.IsZero() {
				if _, err := s.stock.Adjust(ctx, tx, Adjustment{
					ProductID:     item.ProductID,
					Delta:         delta,
					Reason:        entity.MovementPurchaseReceipt,
					ReferenceType: "purchase_order",
					ReferenceID:   po.ID,
					ActorID:       userID,
				}); err != nil {
					return err
				}
			}
			item.QuantityReceived = qty
		}

		orders := s.repos.PurchaseOrder.WithTx(tx)
		if err := orders.SaveItem(ctx, item); err != nil {
			return err
		}

		status := entity.DeriveOrderStatus(po.Items)
		fields := map[string]interface{}{"status": status}
		switch status {
		case entity.POStatusPartial:
			if po.ReceivedBy == nil {
				fields["received_by"] = userID
			}
			if po.ReceivedAt != nil {
				fields["received_at"] = nil
			}
		case entity.POStatusReceived:
			if po.ReceivedAt == nil {
				fields["received_at"] = time.Now()
			}
			if po.ReceivedBy == nil {
				fields["received_by"] = userID
			}
		case entity.POStatusPending:
			if po.ReceivedAt != nil {
				fields["received_at"] = nil
			}
		}
		if err := orders.UpdateFields(ctx, po.ID, fields); err != nil {
			return err
		}

		if status == entity.POStatusReceived {
			finalizeErr = s.finalizeQuotation(ctx, tx, po)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.reportFinalize(po, finalizeErr)
	return s.Get(ctx, orderID)
}

// Delete removes a PENDING order
func (s *PurchaseOrderService) Delete(ctx context.Context, orderID, userID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		po, err := s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if po.Status != entity.POStatusPending {
			return invalidState("purchase order %s is %s and cannot be deleted", po.OrderNumber, po.Status)
		}
		return s.repos.PurchaseOrder.WithTx(tx).Delete(ctx, po.ID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("purchase order deleted", zap.String("id", orderID), zap.String("by", userID))
	return nil
}

// Get loads an order with supplier and items
func (s *PurchaseOrderService) Get(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	po, err := s.repos.PurchaseOrder.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("purchase order %s not found", id)
		}
		return nil, err
	}
	return po, nil
}

// List lists purchase orders
func (s *PurchaseOrderService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	return s.repos.PurchaseOrder.FindAll(ctx, page, pageSize, filters)
}

// ListForExport every order matching the filters
func (s *PurchaseOrderService) ListForExport(ctx context.Context, filters map[string]string) ([]entity.PurchaseOrder, error) {
	return s.repos.PurchaseOrder.FindForExport(ctx, filters)
}

func (s *PurchaseOrderService) lockOrder(ctx context.Context, tx *gorm.DB, id string) (*entity.PurchaseOrder, error) {
	po, err := s.repos.PurchaseOrder.WithTx(tx).LockByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("purchase order %s not found", id)
		}
		return nil, err
	}
	return po, nil
}

// finalizeQuotation runs the quotation cascade in a savepoint; the returned error is non-fatal
func (s *PurchaseOrderService) finalizeQuotation(ctx context.Context, tx *gorm.DB, po *entity.PurchaseOrder) error {
	if po.QuotationResponseID == nil || s.finalizer == nil {
		return nil
	}
	return tx.Transaction(func(sp *gorm.DB) error {
		resp, err := s.repos.Quotation.WithTx(sp).FindResponseByID(ctx, *po.QuotationResponseID)
		if err != nil {
			return fmt.Errorf("load quotation response %s: %w", *po.QuotationResponseID, err)
		}
		return s.finalizer.FinalizeIfComplete(ctx, sp, resp.QuotationRequestID)
	})
}

func (s *PurchaseOrderService) reportFinalize(po *entity.PurchaseOrder, err error) {
	if err == nil || po == nil {
		return
	}
	s.nf.report(OpFinalizeQuotation, err, zap.String("purchase_order_id", po.ID))
}

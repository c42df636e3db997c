package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/francohenker/carDetailing-sub000/internal/procurement/entity"
	"github.com/francohenker/carDetailing-sub000/internal/procurement/repository"
	"github.com/francohenker/carDetailing-sub000/internal/shared/mail"
	"github.com/francohenker/carDetailing-sub000/internal/shared/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PurchaseOrderPort purchase order operations the orchestrator drives
type PurchaseOrderPort interface {
	CreateFromQuotationResponseTx(ctx context.Context, tx *gorm.DB, responseID string, receivedAt *time.Time, actorID string) (*entity.PurchaseOrder, error)
	ForceReceivedTx(ctx context.Context, tx *gorm.DB, orderID, actorID string) error
	RecordCreated(po *entity.PurchaseOrder)
}

// QuotationService quotation request/response life cycle
type QuotationService struct {
	db      *gorm.DB
	repos   *repository.Repositories
	orders  PurchaseOrderPort
	mailer  mail.Sender
	metrics *metrics.Metrics
	logger  *zap.Logger
	nf      nonFatal
}

func NewQuotationService(db *gorm.DB, repos *repository.Repositories, mailer mail.Sender, m *metrics.Metrics, logger *zap.Logger) *QuotationService {
	logger = logger.Named("quotations")
	return &QuotationService{
		db:      db,
		repos:   repos,
		mailer:  mailer,
		metrics: m,
		logger:  logger,
		nf:      nonFatal{logger: logger, metrics: m},
	}
}

// SetPurchaseOrderPort wires purchase order generation
func (s *QuotationService) SetPurchaseOrderPort(p PurchaseOrderPort) {
	s.orders = p
}

// CreateQuotationRequest manual or automatic quotation request
type CreateQuotationRequest struct {
	ProductIDs  []string `json:"product_ids" binding:"required,min=1"`
	SupplierIDs []string `json:"supplier_ids" binding:"required,min=1"`
	Notes       string   `json:"notes"`
	Automatic   bool     `json:"-"`
}

// CreateRequest validates both id sets and stores a PENDING request
func (s *QuotationService) CreateRequest(ctx context.Context, req *CreateQuotationRequest, userID string) (*entity.QuotationRequest, error) {
	productIDs := uniqueIDs(req.ProductIDs)
	supplierIDs := uniqueIDs(req.SupplierIDs)
	if len(productIDs) == 0 || len(supplierIDs) == 0 {
		return nil, invalidState("a quotation request needs at least one product and one supplier")
	}

	products, err := s.repos.Product.FindByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	if missing := missingIDs(productIDs, productIDsOf(products)); len(missing) > 0 {
		return nil, notFoundError("products not found: %v", missing)
	}
	suppliers, err := s.repos.Supplier.FindByIDs(ctx, supplierIDs)
	if err != nil {
		return nil, err
	}
	if missing := missingIDs(supplierIDs, supplierIDsOf(suppliers)); len(missing) > 0 {
		return nil, notFoundError("suppliers not found: %v", missing)
	}

	qr := &entity.QuotationRequest{
		ID:          uuid.New().String()[:32],
		Status:      entity.QuotationStatusPending,
		Notes:       req.Notes,
		IsAutomatic: req.Automatic,
		CreatedBy:   userID,
		Products:    products,
		Suppliers:   suppliers,
	}
	if err := s.repos.Quotation.Create(ctx, qr); err != nil {
		return nil, fmt.Errorf("create quotation request: %w", err)
	}

	s.metrics.QuotationCreated(req.Automatic)
	s.logger.Info("quotation request created",
		zap.String("id", qr.ID),
		zap.Bool("automatic", qr.IsAutomatic),
		zap.Int("products", len(products)),
		zap.Int("suppliers", len(suppliers)))
	return qr, nil
}

// ListRequests lists quotation requests
func (s *QuotationService) ListRequests(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.QuotationRequest, int64, error) {
	return s.repos.Quotation.FindAll(ctx, page, pageSize, filters)
}

// GetRequest loads a request with products, suppliers and responses
func (s *QuotationService) GetRequest(ctx context.Context, id string) (*entity.QuotationRequest, error) {
	qr, err := s.repos.Quotation.FindByID(ctx, id)
	if err != nil {
		return nil, s.requestErr(id, err)
	}
	return qr, nil
}

// GetResponses responses of a request
func (s *QuotationService) GetResponses(ctx context.Context, requestID string) ([]entity.QuotationResponse, error) {
	qr, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return qr.Responses, nil
}

// QuoteInput one quoted product
type QuoteInput struct {
	ProductID    string          `json:"product_id" binding:"required"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     decimal.Decimal `json:"quantity"`
	Availability string          `json:"availability"`
}

// SupplierResponseRequest supplier reply
type SupplierResponseRequest struct {
	SupplierID   string       `json:"supplier_id"`
	Quotes       []QuoteInput `json:"quotes" binding:"required,min=1,dive"`
	DeliveryDays int          `json:"delivery_days" binding:"min=0"`
	PaymentTerms string       `json:"payment_terms"`
	Notes        string       `json:"notes"`
}

// SupplierRespond records the one response a supplier may give to a PENDING request
func (s *QuotationService) SupplierRespond(ctx context.Context, requestID string, req *SupplierResponseRequest) (*entity.QuotationResponse, error) {
	if req.SupplierID == "" {
		return nil, invalidState("a response needs the responding supplier")
	}

	var resp *entity.QuotationResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quotations := s.repos.Quotation.WithTx(tx)

		qr, err := quotations.LockByID(ctx, requestID)
		if err != nil {
			return s.requestErr(requestID, err)
		}
		if qr.Status != entity.QuotationStatusPending {
			return invalidState("quotation request %s is %s and no longer accepts responses", requestID, qr.Status)
		}

		invited, err := quotations.IsSupplierInvited(ctx, requestID, req.SupplierID)
		if err != nil {
			return err
		}
		if !invited {
			return invalidState("supplier %s was not invited to quotation request %s", req.SupplierID, requestID)
		}

		if _, err := quotations.FindResponseBySupplier(ctx, requestID, req.SupplierID); err == nil {
			return conflict("supplier %s already responded to quotation request %s", req.SupplierID, requestID)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		productIDs, err := quotations.FindProductIDs(ctx, requestID)
		if err != nil {
			return err
		}
		requested := make(map[string]bool, len(productIDs))
		for _, id := range productIDs {
			requested[id] = true
		}

		items := make(entity.QuoteItems, 0, len(req.Quotes))
		quoted := make(map[string]bool, len(req.Quotes))
		for _, q := range req.Quotes {
			if !requested[q.ProductID] {
				return invalidState("product %s is not part of quotation request %s", q.ProductID, requestID)
			}
			if quoted[q.ProductID] {
				return conflict("product %s is quoted more than once", q.ProductID)
			}
			if q.UnitPrice.IsNegative() || !q.Quantity.IsPositive() {
				return invalidState("quote for product %s needs a non-negative price and a positive quantity", q.ProductID)
			}
			quoted[q.ProductID] = true
			items = append(items, entity.QuoteItem{
				ProductID:    q.ProductID,
				UnitPrice:    q.UnitPrice,
				Quantity:     q.Quantity,
				Availability: q.Availability,
			})
		}

		resp = &entity.QuotationResponse{
			ID:                 uuid.New().String()[:32],
			QuotationRequestID: requestID,
			SupplierID:         req.SupplierID,
			Items:              items,
			TotalAmount:        items.Total(),
			DeliveryDays:       req.DeliveryDays,
			PaymentTerms:       req.PaymentTerms,
			Notes:              req.Notes,
			Status:             entity.ResponseStatusPending,
		}
		if err := quotations.CreateResponse(ctx, resp); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return conflict("supplier %s already responded to quotation request %s", req.SupplierID, requestID)
			}
			return fmt.Errorf("create quotation response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("quotation response received",
		zap.String("request_id", requestID),
		zap.String("supplier_id", req.SupplierID),
		zap.String("total", resp.TotalAmount.StringFixed(2)))
	return resp, nil
}

// SelectWinner accepts one response, rejects the rest, completes the request and
// generates the purchase order. Order generation failure keeps the selection.
func (s *QuotationService) SelectWinner(ctx context.Context, requestID, responseID, userID string) (*entity.QuotationResponse, error) {
	var productIDs []string
	var autoErr error
	var created *entity.PurchaseOrder

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quotations := s.repos.Quotation.WithTx(tx)

		qr, err := quotations.LockByID(ctx, requestID)
		if err != nil {
			return s.requestErr(requestID, err)
		}
		if qr.Status != entity.QuotationStatusPending {
			return alreadyResolved(requestID)
		}

		resp, err := quotations.FindResponseByID(ctx, responseID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFoundError("quotation response %s not found", responseID)
			}
			return err
		}
		if resp.QuotationRequestID != requestID {
			return invalidState("quotation response %s does not belong to request %s", responseID, requestID)
		}

		if err := quotations.RejectResponses(ctx, requestID, responseID); err != nil {
			return err
		}
		if err := quotations.AcceptResponse(ctx, responseID); err != nil {
			return err
		}
		if err := quotations.UpdateStatus(ctx, requestID, entity.QuotationStatusCompleted); err != nil {
			return err
		}

		if productIDs, err = quotations.FindProductIDs(ctx, requestID); err != nil {
			return err
		}

		if s.orders != nil {
			autoErr = tx.Transaction(func(sp *gorm.DB) error {
				po, err := s.orders.CreateFromQuotationResponseTx(ctx, sp, responseID, nil, userID)
				if err != nil {
					return err
				}
				created = po
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created != nil && autoErr == nil {
		s.orders.RecordCreated(created)
	}
	if autoErr != nil {
		s.nf.report(OpAutoPurchaseOrder, autoErr,
			zap.String("request_id", requestID), zap.String("response_id", responseID))
	}

	if cancelled, err := s.CancelOverlapping(ctx, requestID, productIDs); err != nil {
		s.nf.report(OpCancelOverlapping, err, zap.String("request_id", requestID))
	} else if len(cancelled) > 0 {
		s.logger.Info("overlapping quotation requests cancelled",
			zap.String("accepted", requestID), zap.Strings("cancelled", cancelled))
	}

	s.logger.Info("quotation winner selected",
		zap.String("request_id", requestID), zap.String("response_id", responseID), zap.String("by", userID))
	return s.repos.Quotation.FindResponseByID(ctx, responseID)
}

// CancelOverlapping cancels every other PENDING request sharing a product with the accepted one
func (s *QuotationService) CancelOverlapping(ctx context.Context, acceptedID string, productIDs []string) ([]string, error) {
	candidates, err := s.repos.Quotation.FindPendingOverlapping(ctx, acceptedID, productIDs)
	if err != nil || len(candidates) == 0 {
		return nil, err
	}

	var cancelled []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quotations := s.repos.Quotation.WithTx(tx)
		for _, id := range candidates {
			qr, err := quotations.LockByID(ctx, id)
			if err != nil {
				return err
			}
			if qr.Status != entity.QuotationStatusPending {
				continue
			}
			if err := quotations.UpdateStatus(ctx, id, entity.QuotationStatusCancelled); err != nil {
				return err
			}
			if err := quotations.RejectResponses(ctx, id, ""); err != nil {
				return err
			}
			cancelled = append(cancelled, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// RejectQuotation abandons a request: CANCELLED, every response REJECTED.
// A COMPLETED request can be abandoned while its purchase order is still PENDING;
// that order is deleted with it. Once stock was received the request is kept.
func (s *QuotationService) RejectQuotation(ctx context.Context, requestID, userID string) error {
	seen, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	var orderID string
	if seen.Status == entity.QuotationStatusCompleted {
		if orderID, err = s.winningOrderID(ctx, requestID); err != nil {
			return err
		}
	}

	var deleted string
	// purchase order lock is taken before the request lock, as on the receipt path
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := s.repos.PurchaseOrder.WithTx(tx)
		var po *entity.PurchaseOrder
		if orderID != "" {
			var err error
			if po, err = orders.LockByID(ctx, orderID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return invalidState("quotation request %s changed while being rejected, retry", requestID)
				}
				return err
			}
			if po.Status != entity.POStatusPending {
				return invalidState("quotation request %s cannot be rejected: purchase order %s is already %s",
					requestID, po.OrderNumber, po.Status)
			}
		}

		quotations := s.repos.Quotation.WithTx(tx)
		qr, err := quotations.LockByID(ctx, requestID)
		if err != nil {
			return s.requestErr(requestID, err)
		}
		if qr.Status != seen.Status {
			return invalidState("quotation request %s changed while being rejected, retry", requestID)
		}
		switch {
		case qr.Status == entity.QuotationStatusCancelled:
			return quotations.RejectResponses(ctx, requestID, "")
		case !entity.CanTransition(qr.Status, entity.QuotationStatusCancelled):
			return invalidState("quotation request %s is %s; received goods cannot be rejected", requestID, qr.Status)
		}

		if po != nil {
			if err := orders.Delete(ctx, po.ID); err != nil {
				return err
			}
			deleted = po.OrderNumber
		}
		if err := quotations.UpdateStatus(ctx, requestID, entity.QuotationStatusCancelled); err != nil {
			return err
		}
		return quotations.RejectResponses(ctx, requestID, "")
	})
	if err != nil {
		return err
	}
	s.logger.Info("quotation request rejected",
		zap.String("request_id", requestID),
		zap.String("previous_status", seen.Status),
		zap.String("deleted_order", deleted),
		zap.String("by", userID))
	return nil
}

// winningOrderID purchase order generated from the winning response, "" when there is none
func (s *QuotationService) winningOrderID(ctx context.Context, requestID string) (string, error) {
	winner, err := s.repos.Quotation.FindWinner(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	po, err := s.repos.PurchaseOrder.FindByQuotationResponseID(ctx, winner.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return po.ID, nil
}

// MarkAsReceived finishes a COMPLETED request, forcing its purchase order to RECEIVED when one exists
func (s *QuotationService) MarkAsReceived(ctx context.Context, requestID, userID string) error {
	qr, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if qr.Status != entity.QuotationStatusCompleted {
		return invalidState("quotation request %s is %s; only COMPLETED requests can be marked as received", requestID, qr.Status)
	}
	winner, err := s.repos.Quotation.FindWinner(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalidState("quotation request %s has no winning response", requestID)
		}
		return err
	}

	var orderID string
	if po, err := s.repos.PurchaseOrder.FindByQuotationResponseID(ctx, winner.ID); err == nil {
		orderID = po.ID
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	// purchase order lock is taken before the request lock, as on the receipt path
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if orderID != "" && s.orders != nil {
			if err := s.orders.ForceReceivedTx(ctx, tx, orderID, userID); err != nil {
				return err
			}
		}

		quotations := s.repos.Quotation.WithTx(tx)
		current, err := quotations.LockByID(ctx, requestID)
		if err != nil {
			return err
		}
		switch current.Status {
		case entity.QuotationStatusFinished:
			return nil
		case entity.QuotationStatusCompleted:
			return quotations.UpdateStatus(ctx, requestID, entity.QuotationStatusFinished)
		default:
			return alreadyResolved(requestID)
		}
	})
	if err != nil {
		return err
	}

	s.logger.Info("quotation request marked as received",
		zap.String("request_id", requestID), zap.String("purchase_order_id", orderID), zap.String("by", userID))
	return nil
}

// FinalizeIfComplete moves a COMPLETED request to FINISHED inside tx; other states are left alone
func (s *QuotationService) FinalizeIfComplete(ctx context.Context, tx *gorm.DB, requestID string) error {
	quotations := s.repos.Quotation.WithTx(tx)
	qr, err := quotations.LockByID(ctx, requestID)
	if err != nil {
		return s.requestErr(requestID, err)
	}
	if qr.Status != entity.QuotationStatusCompleted {
		return nil
	}
	return quotations.UpdateStatus(ctx, requestID, entity.QuotationStatusFinished)
}

// SupplierEmailRequest manual solicitation of one supplier
type SupplierEmailRequest struct {
	ProductIDs []string `json:"product_ids" binding:"required,min=1"`
	Message    string   `json:"message"`
}

// SendSupplierEmail creates a manual request for one supplier and mails it
func (s *QuotationService) SendSupplierEmail(ctx context.Context, supplierID string, req *SupplierEmailRequest, userID string) (*entity.QuotationRequest, error) {
	supplier, err := s.repos.Supplier.FindByID(ctx, supplierID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("supplier %s not found", supplierID)
		}
		return nil, err
	}

	qr, err := s.CreateRequest(ctx, &CreateQuotationRequest{
		ProductIDs:  req.ProductIDs,
		SupplierIDs: []string{supplierID},
		Notes:       req.Message,
	}, userID)
	if err != nil {
		return nil, err
	}

	s.NotifySupplier(ctx, qr, supplier, req.Message)
	return qr, nil
}

// NotifySupplier mails the supplier the products of a request; failures are non-fatal
func (s *QuotationService) NotifySupplier(ctx context.Context, qr *entity.QuotationRequest, supplier *entity.Supplier, message string) {
	if supplier.Email == "" {
		s.logger.Warn("supplier has no email, quotation request not mailed",
			zap.String("supplier_id", supplier.ID), zap.String("request_id", qr.ID))
		return
	}

	lines := make([]mail.ProductLine, 0, len(qr.Products))
	for _, p := range qr.Products {
		lines = append(lines, mail.ProductLine{Name: p.Name, Unit: p.Unit})
	}
	subject, html, text, err := mail.RenderQuotationRequest(mail.QuotationRequestMail{
		SupplierName: supplier.Name,
		RequestID:    qr.ID,
		Message:      message,
		Products:     lines,
	})
	if err == nil {
		err = s.mailer.SendHTML(ctx, []string{supplier.Email}, subject, html, text)
	}
	if err != nil {
		s.nf.report(OpSupplierMail, err, zap.String("supplier_id", supplier.ID), zap.String("request_id", qr.ID))
		return
	}
	s.metrics.MailSent("quotation_request")
}

func (s *QuotationService) requestErr(id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFoundError("quotation request %s not found", id)
	}
	return err
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func missingIDs(want, got []string) []string {
	found := make(map[string]bool, len(got))
	for _, id := range got {
		found[id] = true
	}
	var missing []string
	for _, id := range want {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

func productIDsOf(products []entity.Product) []string {
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return ids
}

func supplierIDsOf(suppliers []entity.Supplier) []string {
	ids := make([]string, 0, len(suppliers))
	for _, s := range suppliers {
		ids = append(ids, s.ID)
	}
	return ids
}

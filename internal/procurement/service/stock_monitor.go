package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/francohenker/carDetailing-sub000/internal/procurement/entity"
	"github.com/francohenker/carDetailing-sub000/internal/procurement/repository"
	"github.com/francohenker/carDetailing-sub000/internal/shared/mail"
	"github.com/francohenker/carDetailing-sub000/internal/shared/metrics"
	"go.uber.org/zap"
)

// Scan triggers
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerMutation = "stock_mutation"
)

// ScanResult summary of one evaluation pass
type ScanResult struct {
	Trigger         string            `json:"trigger"`
	LowStock        map[string]int    `json:"low_stock"`
	CreatedRequests []string          `json:"created_requests"`
	SkippedTiers    map[string]string `json:"skipped_tiers"`
	SkippedProducts []string          `json:"skipped_products"`
	AlertsSent      int               `json:"alerts_sent"`
}

// StockMonitor decides when shortages start automatic procurement.
// Every pass recomputes shortages from persisted stock levels.
type StockMonitor struct {
	repos      *repository.Repositories
	quotations *QuotationService
	thresholds ThresholdSource
	mailer     mail.Sender
	metrics    *metrics.Metrics
	logger     *zap.Logger
	nf         nonFatal
}

func NewStockMonitor(repos *repository.Repositories, quotations *QuotationService, thresholds ThresholdSource, mailer mail.Sender, m *metrics.Metrics, logger *zap.Logger) *StockMonitor {
	logger = logger.Named("stock-monitor")
	return &StockMonitor{
		repos:      repos,
		quotations: quotations,
		thresholds: thresholds,
		mailer:     mailer,
		metrics:    m,
		logger:     logger,
		nf:         nonFatal{logger: logger, metrics: m},
	}
}

// CheckStockLevelsAndNotify full pass: admin digest plus procurement per tier.
// A manual pass mails every shortage; scheduled passes mail only shortages not yet alerted.
func (m *StockMonitor) CheckStockLevelsAndNotify(ctx context.Context, trigger string) *ScanResult {
	return m.evaluate(ctx, trigger, true)
}

// EvaluateAfterMutation alerts admins about the products that just crossed their
// minimum and re-runs the procurement decision
func (m *StockMonitor) EvaluateAfterMutation(ctx context.Context, crossed []entity.Product) *ScanResult {
	result := m.evaluate(ctx, TriggerMutation, false)
	result.AlertsSent = m.alertAdmins(ctx, crossed)
	return result
}

func (m *StockMonitor) evaluate(ctx context.Context, trigger string, digest bool) *ScanResult {
	m.metrics.StockScan(trigger)
	result := &ScanResult{
		Trigger:      trigger,
		LowStock:     make(map[string]int, len(entity.Priorities)),
		SkippedTiers: make(map[string]string),
	}

	tiers := make(map[string][]entity.Product, len(entity.Priorities))
	var all []entity.Product
	for _, priority := range entity.Priorities {
		products, err := m.repos.Product.FindLowStock(ctx, priority)
		if err != nil {
			m.logger.Error("low stock query failed", zap.String("priority", priority), zap.Error(err))
			result.SkippedTiers[priority] = "query failed"
			continue
		}
		tiers[priority] = products
		all = append(all, products...)
		result.LowStock[priority] = len(products)
		m.metrics.SetLowStock(priority, len(products))
	}

	if digest {
		alert := all
		if trigger != TriggerManual {
			alert = notYetAlerted(all)
		}
		result.AlertsSent = m.alertAdmins(ctx, alert)
	}

	thresholds, err := m.thresholds.GetQuotationThresholds(ctx)
	if err != nil {
		m.nf.report(OpThresholdFetch, err)
		for _, priority := range entity.Priorities {
			if _, skipped := result.SkippedTiers[priority]; !skipped {
				result.SkippedTiers[priority] = "thresholds unavailable"
			}
		}
		return result
	}

	for _, priority := range entity.Priorities {
		if _, skipped := result.SkippedTiers[priority]; skipped {
			continue
		}
		m.evaluateTier(ctx, priority, tiers[priority], thresholds.ForPriority(priority), result)
	}

	m.logger.Info("stock evaluation finished",
		zap.String("trigger", trigger),
		zap.Any("low_stock", result.LowStock),
		zap.Int("created_requests", len(result.CreatedRequests)))
	return result
}

func (m *StockMonitor) evaluateTier(ctx context.Context, priority string, products []entity.Product, threshold int, result *ScanResult) {
	if len(products) == 0 {
		result.SkippedTiers[priority] = "no shortage"
		return
	}
	if len(products) < threshold {
		result.SkippedTiers[priority] = fmt.Sprintf("below threshold (%d/%d)", len(products), threshold)
		return
	}

	ids := productIDsOf(products)
	pending, err := m.repos.Quotation.HasPendingForProducts(ctx, ids)
	if err != nil {
		m.logger.Error("pending quotation check failed", zap.String("priority", priority), zap.Error(err))
		result.SkippedTiers[priority] = "pending check failed"
		return
	}
	if pending {
		m.logger.Info("pending quotation already covers shortage, tier skipped",
			zap.String("priority", priority), zap.Strings("products", ids))
		result.SkippedTiers[priority] = "pending request exists"
		return
	}

	suppliers, bySupplier := groupBySupplier(products)
	for _, p := range products {
		if len(p.Suppliers) == 0 {
			m.logger.Warn("product has no active suppliers, cannot be procured automatically",
				zap.String("product_id", p.ID), zap.String("product", p.Name))
			result.SkippedProducts = append(result.SkippedProducts, p.ID)
		}
	}

	for _, supplier := range suppliers {
		supplierProducts := bySupplier[supplier.ID]
		qr, err := m.quotations.CreateRequest(ctx, &CreateQuotationRequest{
			ProductIDs:  productIDsOf(supplierProducts),
			SupplierIDs: []string{supplier.ID},
			Notes:       fmt.Sprintf("Automatic request: %s priority products at or below minimum stock", priority),
			Automatic:   true,
		}, "")
		if err != nil {
			m.nf.report(OpAutomaticQuotation, err,
				zap.String("priority", priority), zap.String("supplier_id", supplier.ID))
			continue
		}
		result.CreatedRequests = append(result.CreatedRequests, qr.ID)

		s := supplier
		m.quotations.NotifySupplier(ctx, qr, &s, "")
	}
}

// groupBySupplier distinct suppliers of the products, ordered by name, and the products each carries
func groupBySupplier(products []entity.Product) ([]entity.Supplier, map[string][]entity.Product) {
	var suppliers []entity.Supplier
	bySupplier := make(map[string][]entity.Product)
	for _, p := range products {
		for _, s := range p.Suppliers {
			if _, ok := bySupplier[s.ID]; !ok {
				suppliers = append(suppliers, s)
			}
			bySupplier[s.ID] = append(bySupplier[s.ID], p)
		}
	}
	sort.Slice(suppliers, func(i, j int) bool {
		if suppliers[i].Name == suppliers[j].Name {
			return suppliers[i].ID < suppliers[j].ID
		}
		return suppliers[i].Name < suppliers[j].Name
	})
	return suppliers, bySupplier
}

func notYetAlerted(products []entity.Product) []entity.Product {
	var fresh []entity.Product
	for _, p := range products {
		if p.LowStockAlertedAt == nil {
			fresh = append(fresh, p)
		}
	}
	return fresh
}

// alertAdmins mails each administrator the shortage digest and stamps the alerted products;
// returns mails handed to the gateway
func (m *StockMonitor) alertAdmins(ctx context.Context, products []entity.Product) int {
	if len(products) == 0 {
		return 0
	}
	admins, err := m.repos.User.FindAdmins(ctx)
	if err != nil {
		m.nf.report(OpLowStockAlert, err)
		return 0
	}
	if len(admins) == 0 {
		m.logger.Debug("no administrators to alert")
		return 0
	}

	lines := make([]mail.ProductLine, 0, len(products))
	for _, p := range products {
		lines = append(lines, mail.ProductLine{
			Name:         p.Name,
			CurrentStock: p.CurrentStock.String(),
			MinimumStock: p.MinimumStock.String(),
			Priority:     p.Priority,
			Unit:         p.Unit,
		})
	}
	subject, html, text, err := mail.RenderLowStockAlert(mail.LowStockAlertMail{Products: lines})
	if err != nil {
		m.nf.report(OpLowStockAlert, err)
		return 0
	}

	sent := 0
	for _, admin := range admins {
		if err := m.mailer.SendHTML(ctx, []string{admin.Email}, subject, html, text); err != nil {
			m.nf.report(OpLowStockAlert, err, zap.String("user_id", admin.ID))
			continue
		}
		m.metrics.MailSent("low_stock_alert")
		sent++
	}
	if sent > 0 {
		if err := m.repos.Product.MarkLowStockAlerted(ctx, productIDsOf(products), time.Now()); err != nil {
			m.nf.report(OpLowStockAlert, err)
		}
	}
	return sent
}

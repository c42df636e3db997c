package service

import (
	"github.com/francohenker/carDetailing-sub000/internal/config"
	"github.com/francohenker/carDetailing-sub000/internal/procurement/entity"
	"github.com/francohenker/carDetailing-sub000/internal/procurement/repository"
	"github.com/francohenker/carDetailing-sub000/internal/shared/mail"
	"github.com/francohenker/carDetailing-sub000/internal/shared/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services procurement services
type Services struct {
	Stock         *StockService
	Threshold     *ThresholdService
	Quotation     *QuotationService
	PurchaseOrder *PurchaseOrderService
	Monitor       *StockMonitor
	Scheduler     *Scheduler
}

// NewServices builds the services and wires the ports between them.
// rdb may be nil.
func NewServices(db *gorm.DB, repos *repository.Repositories, rdb *redis.Client, mailer mail.Sender, m *metrics.Metrics, cfg *config.Config, logger *zap.Logger) *Services {
	stock := NewStockService(db, repos, logger)
	thresholds := NewThresholdService(repos.Threshold, entity.QuotationThreshold{
		High:   cfg.Procurement.ThresholdHigh,
		Medium: cfg.Procurement.ThresholdMedium,
		Low:    cfg.Procurement.ThresholdLow,
	}, logger)
	quotations := NewQuotationService(db, repos, mailer, m, logger)
	orders := NewPurchaseOrderService(db, repos, stock, m, logger)
	monitor := NewStockMonitor(repos, quotations, thresholds, mailer, m, logger)

	quotations.SetPurchaseOrderPort(orders)
	orders.SetQuotationFinalizer(quotations)
	stock.SetMonitor(monitor)

	return &Services{
		Stock:         stock,
		Threshold:     thresholds,
		Quotation:     quotations,
		PurchaseOrder: orders,
		Monitor:       monitor,
		Scheduler: NewScheduler(monitor, rdb, SchedulerConfig{
			Spec:    cfg.Procurement.ScanSchedule,
			LockKey: cfg.Procurement.ScanLockKey,
			LockTTL: cfg.Procurement.ScanLockTTL,
		}, logger),
	}
}

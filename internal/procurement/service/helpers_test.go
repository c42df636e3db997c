package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/francohenker/carDetailing-sub000/internal/config"
	"github.com/francohenker/carDetailing-sub000/internal/procurement/entity"
	"github.com/francohenker/carDetailing-sub000/internal/procurement/repository"
	"github.com/francohenker/carDetailing-sub000/internal/shared/metrics"
	"github.com/francohenker/carDetailing-sub000/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type sentMail struct {
	To      []string
	Subject string
}

// recordingMailer keeps every message; err makes every send fail
type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (r *recordingMailer) SendHTML(_ context.Context, to []string, subject, _, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, sentMail{To: to, Subject: subject})
	return nil
}

func (r *recordingMailer) to(addr string) []sentMail {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentMail
	for _, m := range r.sent {
		for _, a := range m.To {
			if a == addr {
				out = append(out, m)
			}
		}
	}
	return out
}

type fixture struct {
	db      *gorm.DB
	repos   *repository.Repositories
	svc     *Services
	mailer  *recordingMailer
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	mailer := &recordingMailer{}
	m := metrics.New("test", prometheus.NewRegistry())
	cfg := &config.Config{Procurement: config.ProcurementConfig{
		ScanSchedule:    "@every 1h",
		ScanLockKey:     "test:stock-scan",
		ScanLockTTL:     time.Minute,
		ThresholdHigh:   1,
		ThresholdMedium: 3,
		ThresholdLow:    5,
	}}
	return &fixture{
		db:      db,
		repos:   repos,
		svc:     NewServices(db, repos, nil, mailer, m, cfg, zap.NewNop()),
		mailer:  mailer,
		metrics: m,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// requestFor the only quotation request sent to supplierID
func (f *fixture) requestFor(t *testing.T, supplierID string) entity.QuotationRequest {
	t.Helper()
	list, _, err := f.svc.Quotation.ListRequests(context.Background(), 1, 50, map[string]string{"supplier_id": supplierID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	return list[0]
}

func (f *fixture) requestStatus(t *testing.T, id string) string {
	t.Helper()
	qr, err := f.svc.Quotation.GetRequest(context.Background(), id)
	require.NoError(t, err)
	return qr.Status
}

// manualRequest a PENDING request for products from suppliers
func (f *fixture) manualRequest(t *testing.T, products []*entity.Product, suppliers ...*entity.Supplier) *entity.QuotationRequest {
	t.Helper()
	req := &CreateQuotationRequest{}
	for _, p := range products {
		req.ProductIDs = append(req.ProductIDs, p.ID)
	}
	for _, s := range suppliers {
		req.SupplierIDs = append(req.SupplierIDs, s.ID)
	}
	qr, err := f.svc.Quotation.CreateRequest(context.Background(), req, "admin-1")
	require.NoError(t, err)
	return qr
}

// respond a single-line quote
func (f *fixture) respond(t *testing.T, requestID string, supplier *entity.Supplier, product *entity.Product, price, qty string) *entity.QuotationResponse {
	t.Helper()
	resp, err := f.svc.Quotation.SupplierRespond(context.Background(), requestID, &SupplierResponseRequest{
		SupplierID: supplier.ID,
		Quotes: []QuoteInput{{
			ProductID: product.ID,
			UnitPrice: dec(price),
			Quantity:  dec(qty),
		}},
		DeliveryDays: 3,
	})
	require.NoError(t, err)
	return resp
}

// manualOrder a PENDING order with one item per product
func (f *fixture) manualOrder(t *testing.T, supplier *entity.Supplier, lines map[*entity.Product]string) *entity.PurchaseOrder {
	t.Helper()
	req := &CreatePurchaseOrderRequest{SupplierID: supplier.ID}
	for p, qty := range lines {
		req.Items = append(req.Items, POItemInput{ProductID: p.ID, UnitPrice: dec("10"), Quantity: dec(qty)})
	}
	po, err := f.svc.PurchaseOrder.Create(context.Background(), req, "admin-1")
	require.NoError(t, err)
	return po
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "expected %s, got %s", want, got.String())
}

func counterValue(c prometheus.Collector) float64 {
	return promtest.ToFloat64(c)
}

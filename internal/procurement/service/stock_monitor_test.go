package service

import (
	"context"
	"errors"
	"testing"

	"github.com/francohenker/carDetailing-sub000/internal/procurement/entity"
	"github.com/francohenker/carDetailing-sub000/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanSkipsTierWithPendingRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alpha := testutil.SeedSupplier(t, f.db, "Alpha", "alpha@example.com")
	testutil.SeedProduct(t, f.db, "Shampoo", "2", "10", entity.PriorityHigh, alpha)

	first := f.svc.Monitor.CheckStockLevelsAndNotify(ctx, TriggerManual)
	require.Len(t, first.CreatedRequests, 1)

	second := f.svc.Monitor.CheckStockLevelsAndNotify(ctx, TriggerManual)
	assert.Empty(t, second.CreatedRequests)
	assert.Equal(t, "pending request exists", second.SkippedTiers[entity.PriorityHigh])

	_, total, err := f.svc.Quotation.ListRequests(ctx, 1, 20, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestScanRespectsThresholds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alpha := testutil.SeedSupplier(t, f.db, "Alpha", "alpha@example.com")
	testutil.SeedProduct(t, f.db, "Wax", "1", "5", entity.PriorityMedium, alpha)
	testutil.SeedProduct(t, f.db, "Foam", "1", "5", entity.PriorityMedium, alpha)

	result := f.svc.Monitor.CheckStockLevelsAndNotify(ctx, TriggerManual)
	assert.Empty(t, result.CreatedRequests)
	assert.Equal(t, 2, result.LowStock[entity.PriorityMedium])
	assert.Equal(t, "below threshold (2/3)", result.SkippedTiers[entity.PriorityMedium])

	zero := 0
	two := 2
	_, err := f.svc.Threshold.Update(ctx, &UpdateThresholdRequest{Medium: &two, High: &zero}, "admin-1")
	require.NoError(t, err)

	result = f.svc.Monitor.CheckStockLevelsAndNotify(ctx, TriggerManual)
	require.Len(t, result.CreatedRequests, 1)
	assert.Equal(t, "no shortage", result.SkippedTiers[entity.PriorityHigh])

	qr, err := f.svc.Quotation.GetRequest(ctx, result.CreatedRequests[0])
	require.NoError(t, err)
	assert.True(t, qr.IsAutomatic)
	assert.Len(t, qr.Products, 2)
	require.Len(t, qr.Suppliers, 1)
	assert.Equal(t, alpha.ID, qr.Suppliers[0].ID)
}

func TestZeroThresholdTriggersOnAnyShortage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alpha := testutil.SeedSupplier(t, f.db, "Alpha", "alpha@example.com")
	testutil.SeedProduct(t, f.db, "Wax", "1", "5", entity.PriorityLow, alpha)

	zero := 0
	_, err := f.svc.Threshold.Update(ctx, &UpdateThresholdRequest{Low: &zero}, "admin-1")
	require.NoError(t, err)

	result := f.svc.Monitor.CheckStockLevelsAndNotify(ctx, TriggerManual)
	require.Len(t, result.CreatedRequests, 1)
	_, skipped := result.SkippedTiers[entity.PriorityLow]
	assert.False(t, skipped)
	assert.Equal(t, "no shortage", result.SkippedTiers[entity.PriorityMedium])
}

func TestScanGroupsProductsBySupplier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alpha := testutil.SeedSupplier(t, f.db, "Alpha", "alpha@example.com")
	beta := testutil.SeedSupplier(t, f.db, "Beta", "")
	inactive := testutil.SeedSupplier(t, f.db, "Gamma", "gamma@example.com")
	require.NoError(t, f.db.Model(inactive).Update("is_active", false).Error)

	shampoo := testutil.SeedProduct(t, f.db, "Shampoo", "0", "4", entity.PriorityHigh, alpha, beta, inactive)
	wax := testutil.SeedProduct(t, f.db, "Wax", "1", "4", entity.PriorityHigh, beta)
	orphan := testutil.SeedProduct(t, f.db, "Orphan", "1", "4", entity.PriorityHigh, inactive)

	result := f.svc.Monitor.CheckStockLevelsAndNotify(ctx, TriggerSchedule)
	require.Len(t, result.CreatedRequests, 2)
	assert.Equal(t, []string{orphan.ID}, result.SkippedProducts)

	reqAlpha := f.requestFor(t, alpha.ID)
	reqBeta := f.requestFor(t, beta.ID)
	assert.ElementsMatch(t, []string{shampoo.ID}, reqAlpha.ProductIDs())
	assert.ElementsMatch(t, []string{shampoo.ID, wax.ID}, reqBeta.ProductIDs())

	list, _, err := f.svc.Quotation.ListRequests(ctx, 1, 20, map[string]string{"supplier_id": inactive.ID})
	require.NoError(t, err)
	assert.Empty(t, list)

	// beta has no email; only alpha is mailed
	assert.Len(t, f.mailer.to("alpha@example.com"), 1)
	assert.Empty(t, f.mailer.to("gamma@example.com"))
}

func TestScanSurvivesMailFailures(t *testing.T) {
	f := newFixture(t)
	f.mailer.err = errors.New("smtp unavailable")
	ctx := context.Background()
	alpha := testutil.SeedSupplier(t, f.db, "Alpha", "alpha@example.com")
	testutil.SeedAdmin(t, f.db, "Admin", "admin@example.com")
	testutil.SeedProduct(t, f.db, "Shampoo", "2", "10", entity.PriorityHigh, alpha)

	result := f.svc.Monitor.CheckStockLevelsAndNotify(ctx, TriggerManual)
	require.Len(t, result.CreatedRequests, 1)
	assert.Equal(t, 0, result.AlertsSent)
	assert.Equal(t, 1.0, counterValue(f.metrics.DownstreamFailures.WithLabelValues(OpSupplierMail)))
	assert.Equal(t, 1.0, counterValue(f.metrics.DownstreamFailures.WithLabelValues(OpLowStockAlert)))
	assert.Equal(t, entity.QuotationStatusPending, f.requestStatus(t, result.CreatedRequests[0]))
}

func TestScheduledDigestOnlyMailsNewShortages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alpha := testutil.SeedSupplier(t, f.db, "Alpha", "alpha@example.com")
	testutil.SeedAdmin(t, f.db, "Admin", "admin@example.com")
	wax := testutil.SeedProduct(t, f.db, "Wax", "1", "5", entity.PriorityLow, alpha)

	first := f.svc.Monitor.CheckStockLevelsAndNotify(ctx, TriggerSchedule)
	assert.Equal(t, 1, first.AlertsSent)

	second := f.svc.Monitor.CheckStockLevelsAndNotify(ctx, TriggerSchedule)
	assert.Equal(t, 0, second.AlertsSent)
	assert.Equal(t, 1, second.LowStock[entity.PriorityLow])

	manual := f.svc.Monitor.CheckStockLevelsAndNotify(ctx, TriggerManual)
	assert.Equal(t, 1, manual.AlertsSent, "a manual pass mails every shortage")

	// restocking ends the shortage; the next one is alerted again
	po := f.manualOrder(t, alpha, map[*entity.Product]string{wax: "9"})
	_, err := f.svc.PurchaseOrder.UpdateStatus(ctx, po.ID, &UpdateStatusRequest{Status: entity.POStatusReceived}, "employee-1")
	require.NoError(t, err)
	_, err = f.svc.Stock.Consume(ctx, &ConsumeRequest{Items: []ConsumeItem{{ProductID: wax.ID, Quantity: dec("6")}}}, "employee-1")
	require.NoError(t, err)
	assert.Len(t, f.mailer.to("admin@example.com"), 3, "crossing alert after the restock")

	f.svc.Monitor.CheckStockLevelsAndNotify(ctx, TriggerSchedule)
	assert.Len(t, f.mailer.to("admin@example.com"), 3, "crossing alert already covered the new shortage")
}

type failingThresholds struct{}

func (failingThresholds) GetQuotationThresholds(context.Context) (entity.QuotationThreshold, error) {
	return entity.QuotationThreshold{}, errors.New("settings store unavailable")
}

func TestScanSkipsProcurementWithoutThresholds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alpha := testutil.SeedSupplier(t, f.db, "Alpha", "alpha@example.com")
	testutil.SeedAdmin(t, f.db, "Admin", "admin@example.com")
	testutil.SeedProduct(t, f.db, "Shampoo", "2", "10", entity.PriorityHigh, alpha)
	f.svc.Monitor.thresholds = failingThresholds{}

	result := f.svc.Monitor.CheckStockLevelsAndNotify(ctx, TriggerManual)
	assert.Empty(t, result.CreatedRequests)
	assert.Equal(t, 1, result.AlertsSent)
	for _, p := range entity.Priorities {
		assert.Equal(t, "thresholds unavailable", result.SkippedTiers[p])
	}
	assert.Equal(t, 1.0, counterValue(f.metrics.DownstreamFailures.WithLabelValues(OpThresholdFetch)))
}

func TestThresholds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	current, err := f.svc.Threshold.GetQuotationThresholds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, current.High)
	assert.Equal(t, 3, current.Medium)
	assert.Equal(t, 5, current.Low)

	negative := -1
	_, err = f.svc.Threshold.Update(ctx, &UpdateThresholdRequest{Low: &negative}, "admin-1")
	assert.True(t, errors.Is(err, ErrInvalidState))

	four := 4
	updated, err := f.svc.Threshold.Update(ctx, &UpdateThresholdRequest{Low: &four}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 1, updated.High)
	assert.Equal(t, 4, updated.Low)

	current, err = f.svc.Threshold.GetQuotationThresholds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, current.Low)
	assert.Equal(t, "admin-1", current.UpdatedBy)
}

func TestSchedulerRunOnceWithoutRedis(t *testing.T) {
	f := newFixture(t)
	alpha := testutil.SeedSupplier(t, f.db, "Alpha", "alpha@example.com")
	testutil.SeedProduct(t, f.db, "Shampoo", "2", "10", entity.PriorityHigh, alpha)

	assert.True(t, f.svc.Scheduler.RunOnce(context.Background()))
	assert.Equal(t, 1.0, counterValue(f.metrics.StockScans.WithLabelValues(TriggerSchedule)))

	_, total, err := f.svc.Quotation.ListRequests(context.Background(), 1, 20, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

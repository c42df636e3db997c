package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/francohenker/carDetailing-sub000/internal/procurement/entity"
	"github.com/francohenker/carDetailing-sub000/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsume(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alpha := testutil.SeedSupplier(t, f.db, "Alpha", "alpha@example.com")
	wax := testutil.SeedProduct(t, f.db, "Wax", "8", "5", entity.PriorityLow, alpha)
	foam := testutil.SeedProduct(t, f.db, "Foam", "3", "1", entity.PriorityLow, alpha)

	changes, err := f.svc.Stock.Consume(ctx, &ConsumeRequest{
		Items: []ConsumeItem{
			{ProductID: wax.ID, Quantity: dec("1.5")},
			{ProductID: foam.ID, Quantity: dec("1")},
		},
		ReferenceID: "service-42",
	}, "employee-1")
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assertDecimal(t, "6.5", testutil.ProductStock(t, f.db, wax.ID))
	assertDecimal(t, "2", testutil.ProductStock(t, f.db, foam.ID))
	assert.False(t, changes[0].Crossed)

	movements, total, err := f.svc.Stock.ListMovements(ctx, 1, 20, map[string]string{"reference_id": "service-42"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, m := range movements {
		assert.Equal(t, entity.MovementServiceConsumption, m.Reason)
		assert.True(t, m.Quantity.IsNegative())
		assertDecimal(t, m.StockAfter.String(), m.StockBefore.Add(m.Quantity))
	}
}

func TestConsumeIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alpha := testutil.SeedSupplier(t, f.db, "Alpha", "alpha@example.com")
	wax := testutil.SeedProduct(t, f.db, "Wax", "8", "5", entity.PriorityLow, alpha)
	foam := testutil.SeedProduct(t, f.db, "Foam", "1", "1", entity.PriorityLow, alpha)

	_, err := f.svc.Stock.Consume(ctx, &ConsumeRequest{Items: []ConsumeItem{
		{ProductID: wax.ID, Quantity: dec("2")},
		{ProductID: foam.ID, Quantity: dec("2")},
	}}, "employee-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.Contains(t, err.Error(), "insufficient stock for Foam")
	assertDecimal(t, "8", testutil.ProductStock(t, f.db, wax.ID))

	_, err = f.svc.Stock.Consume(ctx, &ConsumeRequest{Items: []ConsumeItem{
		{ProductID: wax.ID, Quantity: dec("1")},
		{ProductID: wax.ID, Quantity: dec("1")},
	}}, "employee-1")
	assert.True(t, errors.Is(err, ErrConflict))

	_, err = f.svc.Stock.Consume(ctx, &ConsumeRequest{Items: []ConsumeItem{
		{ProductID: wax.ID, Quantity: dec("0")},
	}}, "employee-1")
	assert.True(t, errors.Is(err, ErrInvalidState))

	_, err = f.svc.Stock.Consume(ctx, &ConsumeRequest{Items: []ConsumeItem{
		{ProductID: "missing", Quantity: dec("1")},
	}}, "employee-1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestConcurrentConsumptionNeverGoesNegative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alpha := testutil.SeedSupplier(t, f.db, "Alpha", "alpha@example.com")
	wax := testutil.SeedProduct(t, f.db, "Wax", "10", "0", entity.PriorityLow, alpha)

	const workers = 12
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Stock.Consume(ctx, &ConsumeRequest{Items: []ConsumeItem{{ProductID: wax.ID, Quantity: dec("1")}}}, "employee-1")
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidState), "unexpected error: %v", err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assertDecimal(t, "0", testutil.ProductStock(t, f.db, wax.ID))
}

func TestConsumeAlertsWhenMinimumIsCrossed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alpha := testutil.SeedSupplier(t, f.db, "Alpha", "alpha@example.com")
	testutil.SeedAdmin(t, f.db, "Admin", "admin@example.com")
	wax := testutil.SeedProduct(t, f.db, "Wax", "11", "10", entity.PriorityLow, alpha)

	changes, err := f.svc.Stock.Consume(ctx, &ConsumeRequest{Items: []ConsumeItem{{ProductID: wax.ID, Quantity: dec("2")}}}, "employee-1")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.True(t, changes[0].Crossed)

	alerts := f.mailer.to("admin@example.com")
	require.Len(t, alerts, 1)
	assert.Equal(t, "Low stock alert: Wax", alerts[0].Subject)
	// one LOW product is below the LOW threshold of 5
	assert.Empty(t, f.mailer.to("alpha@example.com"))

	// already below minimum: no new crossing, no new alert
	_, err = f.svc.Stock.Consume(ctx, &ConsumeRequest{Items: []ConsumeItem{{ProductID: wax.ID, Quantity: dec("1")}}}, "employee-1")
	require.NoError(t, err)
	assert.Len(t, f.mailer.to("admin@example.com"), 1)
}

func TestListLowStock(t *testing.T) {
	f := newFixture(t)
	alpha := testutil.SeedSupplier(t, f.db, "Alpha", "alpha@example.com")
	testutil.SeedProduct(t, f.db, "Wax", "5", "5", entity.PriorityLow, alpha)
	testutil.SeedProduct(t, f.db, "Foam", "2", "1", entity.PriorityHigh, alpha)
	testutil.SeedProduct(t, f.db, "Shampoo", "0", "3", entity.PriorityHigh)

	low, err := f.svc.Stock.ListLowStock(context.Background())
	require.NoError(t, err)
	names := make([]string, 0, len(low))
	for _, p := range low {
		names = append(names, p.Name)
	}
	assert.ElementsMatch(t, []string{"Wax", "Shampoo"}, names)
}

func TestConsumptionInOppositeOrdersSerializes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alpha := testutil.SeedSupplier(t, f.db, "Alpha", "alpha@example.com")
	wax := testutil.SeedProduct(t, f.db, "Wax", "100", "0", entity.PriorityLow, alpha)
	foam := testutil.SeedProduct(t, f.db, "Foam", "100", "0", entity.PriorityLow, alpha)

	const rounds = 20
	var wg sync.WaitGroup
	errs := make(chan error, 2*rounds)
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.svc.Stock.Consume(ctx, &ConsumeRequest{Items: []ConsumeItem{
				{ProductID: wax.ID, Quantity: dec("1")},
				{ProductID: foam.ID, Quantity: dec("1")},
			}}, "employee-1")
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := f.svc.Stock.Consume(ctx, &ConsumeRequest{Items: []ConsumeItem{
				{ProductID: foam.ID, Quantity: dec("1")},
				{ProductID: wax.ID, Quantity: dec("1")},
			}}, "employee-1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assertDecimal(t, "60", testutil.ProductStock(t, f.db, wax.ID))
	assertDecimal(t, "60", testutil.ProductStock(t, f.db, foam.ID))
}

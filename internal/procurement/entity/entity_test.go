package entity

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func item(ordered, received string) PurchaseOrderItem {
	return PurchaseOrderItem{QuantityOrdered: dec(ordered), QuantityReceived: dec(received)}
}

func TestDeriveOrderStatus(t *testing.T) {
	tests := []struct {
		name  string
		items []PurchaseOrderItem
		want  string
	}{
		{"nothing received", []PurchaseOrderItem{item("20", "0"), item("5", "0")}, POStatusPending},
		{"one line partial", []PurchaseOrderItem{item("20", "7"), item("5", "0")}, POStatusPartial},
		{"one line complete other pending", []PurchaseOrderItem{item("20", "20"), item("5", "0")}, POStatusPartial},
		{"all received", []PurchaseOrderItem{item("20", "20"), item("5", "5")}, POStatusReceived},
		{"fractional", []PurchaseOrderItem{item("1.5", "1.5")}, POStatusReceived},
		{"no items", nil, POStatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveOrderStatus(tt.items))
		})
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(QuotationStatusPending, QuotationStatusCompleted))
	assert.True(t, CanTransition(QuotationStatusPending, QuotationStatusCancelled))
	assert.True(t, CanTransition(QuotationStatusCompleted, QuotationStatusFinished))
	assert.True(t, CanTransition(QuotationStatusCompleted, QuotationStatusCancelled))

	assert.False(t, CanTransition(QuotationStatusPending, QuotationStatusFinished))
	assert.False(t, CanTransition(QuotationStatusFinished, QuotationStatusCancelled))
	assert.False(t, CanTransition(QuotationStatusCancelled, QuotationStatusPending))
	assert.False(t, CanTransition(QuotationStatusFinished, QuotationStatusPending))
	assert.False(t, CanTransition("UNKNOWN", QuotationStatusPending))
}

func TestQuoteItemsTotalRoundsToCents(t *testing.T) {
	items := QuoteItems{
		{ProductID: "a", UnitPrice: dec("500"), Quantity: dec("20")},
		{ProductID: "b", UnitPrice: dec("0.333"), Quantity: dec("1")},
	}
	assert.Equal(t, "10000.33", items.Total().StringFixed(2))
}

func TestQuoteItemsScanValue(t *testing.T) {
	items := QuoteItems{{ProductID: "p1", UnitPrice: dec("12.5"), Quantity: dec("3"), Availability: "48h"}}
	v, err := items.Value()
	require.NoError(t, err)

	var back QuoteItems
	require.NoError(t, back.Scan([]byte(v.(string))))
	require.Len(t, back, 1)
	assert.Equal(t, "p1", back[0].ProductID)
	assert.True(t, back[0].UnitPrice.Equal(dec("12.5")))
	assert.Equal(t, "48h", back[0].Availability)

	assert.Error(t, back.Scan(42))

	var empty QuoteItems
	v, err = empty.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestThresholdForPriority(t *testing.T) {
	th := QuotationThreshold{High: 1, Medium: 3, Low: 0}
	assert.Equal(t, 1, th.ForPriority(PriorityHigh))
	assert.Equal(t, 3, th.ForPriority(PriorityMedium))
	assert.Equal(t, 0, th.ForPriority(PriorityLow))
	assert.Equal(t, 0, th.ForPriority("URGENT"))
}

func TestProductIsLow(t *testing.T) {
	p := Product{CurrentStock: dec("10"), MinimumStock: dec("10")}
	assert.True(t, p.IsLow())
	p.CurrentStock = dec("10.001")
	assert.False(t, p.IsLow())
}

package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRenderQuotationRequest(t *testing.T) {
	subject, html, text, err := RenderQuotationRequest(QuotationRequestMail{
		SupplierName: "Acme <Chem>",
		RequestID:    "req-1",
		Message:      "Urgent please",
		Products:     []ProductLine{{Name: "Shampoo", Unit: "l"}, {Name: "Wax"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Quotation request", subject)
	assert.Contains(t, html, "Acme &lt;Chem&gt;")
	assert.Contains(t, html, "<td>Shampoo</td>")
	assert.Contains(t, text, "- Shampoo (l)")
	assert.Contains(t, text, "- Wax\n")
	assert.Contains(t, text, "Urgent please")
}

func TestRenderLowStockAlertSubject(t *testing.T) {
	subject, html, text, err := RenderLowStockAlert(LowStockAlertMail{Products: []ProductLine{
		{Name: "Shampoo", Priority: "HIGH", CurrentStock: "2", MinimumStock: "10"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "Low stock alert: Shampoo", subject)
	assert.Contains(t, html, "<td>HIGH</td>")
	assert.Contains(t, text, "stock 2 / minimum 10")

	many := make([]ProductLine, 5)
	for i := range many {
		many[i] = ProductLine{Name: "p"}
	}
	subject, _, _, err = RenderLowStockAlert(LowStockAlertMail{Products: many})
	require.NoError(t, err)
	assert.Equal(t, "Low stock alert: 5 products", subject)
}

func TestNewSenderFallsBackToLog(t *testing.T) {
	s := NewSender(Config{}, zap.NewNop())
	_, ok := s.(*LogSender)
	require.True(t, ok)
	assert.NoError(t, s.SendHTML(context.Background(), []string{"a@b.c"}, "s", "<p>h</p>", "h"))

	s = NewSender(Config{Host: "smtp.example.com", Port: 587}, zap.NewNop())
	_, ok = s.(*SMTPSender)
	assert.True(t, ok)
}

func TestSMTPSenderRejectsInvalidFrom(t *testing.T) {
	s := NewSMTPSender(Config{Host: "localhost", Port: 25, From: "not an address"}, zap.NewNop())
	err := s.SendHTML(context.Background(), []string{"a@b.c"}, "s", "h", "t")
	assert.Error(t, err)
}

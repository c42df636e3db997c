package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"
)

// ProductLine one product row of a notification
type ProductLine struct {
	Name         string
	CurrentStock string
	MinimumStock string
	Priority     string
	Unit         string
}

// QuotationRequestMail supplier-facing quotation request
type QuotationRequestMail struct {
	SupplierName string
	RequestID    string
	Message      string
	Products     []ProductLine
}

// LowStockAlertMail admin digest of under-stock products
type LowStockAlertMail struct {
	Products []ProductLine
}

var quotationHTML = template.Must(template.New("quotation").Parse(`<html><body>
<p>Hello {{.SupplierName}},</p>
<p>We would like to receive a quotation for the following products{{if .RequestID}} (request <strong>{{.RequestID}}</strong>){{end}}:</p>
<table border="1" cellpadding="4" cellspacing="0">
<tr><th>Product</th><th>Unit</th></tr>
{{range .Products}}<tr><td>{{.Name}}</td><td>{{.Unit}}</td></tr>
{{end}}</table>
{{if .Message}}<p>{{.Message}}</p>{{end}}
<p>Please include unit prices, available quantities, delivery time and payment terms.</p>
</body></html>`))

var quotationText = texttemplate.Must(texttemplate.New("quotation").Parse(`Hello {{.SupplierName}},

We would like to receive a quotation for the following products{{if .RequestID}} (request {{.RequestID}}){{end}}:
{{range .Products}}- {{.Name}}{{if .Unit}} ({{.Unit}}){{end}}
{{end}}{{if .Message}}
{{.Message}}
{{end}}
Please include unit prices, available quantities, delivery time and payment terms.
`))

var lowStockHTML = template.Must(template.New("low_stock").Parse(`<html><body>
<p>The following products are at or below their minimum stock:</p>
<table border="1" cellpadding="4" cellspacing="0">
<tr><th>Product</th><th>Priority</th><th>Current</th><th>Minimum</th></tr>
{{range .Products}}<tr><td>{{.Name}}</td><td>{{.Priority}}</td><td>{{.CurrentStock}}</td><td>{{.MinimumStock}}</td></tr>
{{end}}</table>
</body></html>`))

var lowStockText = texttemplate.Must(texttemplate.New("low_stock").Parse(`The following products are at or below their minimum stock:
{{range .Products}}- {{.Name}} [{{.Priority}}] stock {{.CurrentStock}} / minimum {{.MinimumStock}}
{{end}}`))

// RenderQuotationRequest returns subject, html and plain text bodies
func RenderQuotationRequest(data QuotationRequestMail) (string, string, string, error) {
	html, text, err := render(quotationHTML, quotationText, data)
	if err != nil {
		return "", "", "", err
	}
	return "Quotation request", html, text, nil
}

// RenderLowStockAlert returns subject, html and plain text bodies
func RenderLowStockAlert(data LowStockAlertMail) (string, string, string, error) {
	html, text, err := render(lowStockHTML, lowStockText, data)
	if err != nil {
		return "", "", "", err
	}
	names := make([]string, 0, len(data.Products))
	for _, p := range data.Products {
		names = append(names, p.Name)
	}
	subject := fmt.Sprintf("Low stock alert: %s", strings.Join(names, ", "))
	if len(names) > 3 {
		subject = fmt.Sprintf("Low stock alert: %d products", len(names))
	}
	return subject, html, text, nil
}

func render(h *template.Template, t *texttemplate.Template, data interface{}) (string, string, error) {
	var hb, tb bytes.Buffer
	if err := h.Execute(&hb, data); err != nil {
		return "", "", err
	}
	if err := t.Execute(&tb, data); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}

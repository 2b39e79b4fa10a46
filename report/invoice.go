package report

import (
	"bytes"
	"html/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/cedarline-erp/cedarline-erp/internal/billing/invoices"
)

// invoiceTemplate is a deliberately plain printable layout; styling stays
// inline so the document renders the same with or without network access.
var invoiceTemplate = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Number}}</title>
<style>
	body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; color: #222; margin: 40px; }
	h1 { font-size: 20px; margin-bottom: 0; }
	.muted { color: #777; }
	table { width: 100%; border-collapse: collapse; margin-top: 24px; }
	th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #ddd; }
	th { background: #f5f5f5; }
	td.num, th.num { text-align: right; }
	.totals { margin-top: 16px; text-align: right; font-size: 14px; }
</style>
</head>
<body>
	<h1>Invoice {{.Number}}</h1>
	<p class="muted">Order #{{.OrderID}} &middot; Status: {{.Status}}{{if .IssuedAt}} &middot; Issued {{.IssuedAt}}{{end}}</p>
	<table>
		<thead>
			<tr>
				<th>Product</th>
				<th class="num">Qty</th>
				<th class="num">Unit USD</th>
				<th class="num">Unit LBP</th>
				<th class="num">Discount</th>
			</tr>
		</thead>
		<tbody>
		{{range .Items}}
			<tr>
				<td>{{.Product}}</td>
				<td class="num">{{.Quantity}}</td>
				<td class="num">{{.UnitUSD}}</td>
				<td class="num">{{.UnitLBP}}</td>
				<td class="num">{{.Discount}}</td>
			</tr>
		{{end}}
		</tbody>
	</table>
	<div class="totals">
		{{if .TotalUSD}}<div>Total USD: <strong>{{.TotalUSD}}</strong></div>{{end}}
		{{if .TotalLBP}}<div>Total LBP: <strong>{{.TotalLBP}}</strong></div>{{end}}
	</div>
</body>
</html>`))

type invoiceView struct {
	Number   string
	OrderID  int64
	Status   string
	IssuedAt string
	Items    []invoiceItemView
	TotalUSD string
	TotalLBP string
}

type invoiceItemView struct {
	Product  string
	Quantity string
	UnitUSD  string
	UnitLBP  string
	Discount string
}

// InvoiceHTML renders the printable document for one invoice.
func InvoiceHTML(inv *invoices.Invoice, items []invoices.InvoiceItem) (string, error) {
	p := message.NewPrinter(language.English)

	view := invoiceView{
		Number:  inv.Number,
		OrderID: inv.OrderID,
		Status:  string(inv.Status),
	}
	if inv.IssuedAt != nil {
		view.IssuedAt = inv.IssuedAt.Format(time.DateOnly)
	}
	if inv.Total.USD != 0 {
		view.TotalUSD = p.Sprintf("%.2f", inv.Total.USD)
	}
	if inv.Total.LBP != 0 {
		view.TotalLBP = p.Sprintf("%.0f", inv.Total.LBP)
	}
	for _, it := range items {
		row := invoiceItemView{
			Product:  "-",
			Quantity: p.Sprintf("%.2f", it.Quantity),
			UnitUSD:  p.Sprintf("%.2f", it.UnitPriceUSD),
			UnitLBP:  p.Sprintf("%.0f", it.UnitPriceLBP),
			Discount: p.Sprintf("%.2f%%", it.DiscountPercent),
		}
		if it.ProductID != nil {
			row.Product = p.Sprintf("Product #%d", *it.ProductID)
		}
		view.Items = append(view.Items, row)
	}

	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

package proposal

import (
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/upb/agency-backoffice/models"
)

var proposalTemplate = template.Must(template.New("proposal").Parse(`{{.Proposal.Title}}
Prepared for {{.ClientName}} by {{.Agency}}
Date: {{.Date}}
{{with .Brief}}
Overview
{{.}}
{{end}}
Scope and investment
{{range .Lines}}- {{.Description}}: {{.Quantity}} x {{.UnitPrice}} = {{.Amount}}
{{end}}
Subtotal: {{.Subtotal}}
{{- if .Discount}}
Discount ({{.DiscountPct}}%): -{{.Discount}}
{{- end}}
{{- if .Tax}}
Tax ({{.TaxPct}}%): {{.Tax}}
{{- end}}
Total: {{.Total}}
{{with .ValidUntil}}
This proposal is valid until {{.}}.
{{end}}`))

var contractTemplate = template.Must(template.New("contract").Parse(`SERVICES AGREEMENT

This agreement is made on {{.Date}} between {{.Agency}} ("Agency") and {{.ClientName}} ("Client"){{with .Client.Email}}, contact {{.}}{{end}}.

1. Services
The Agency will deliver the services accepted in the proposal "{{.Proposal.Title}}":
{{range .Lines}}- {{.Description}} ({{.Quantity}} x {{.UnitPrice}})
{{end}}
2. Fees
The Client will pay {{.Total}} for the services above{{if .Tax}}, including {{.Tax}} of tax{{end}}{{if .Discount}}, after a discount of {{.Discount}}{{end}}.

3. Payment terms
Invoices are due within {{.DueDays}} days of issue. Late invoices are marked overdue and work may be paused until they are settled.

4. Term and termination
This agreement starts on the date above. Either party may end it with 30 days written notice. Work delivered up to the end date is billable.

5. Confidentiality
Each party keeps the other's non-public information confidential during the agreement and for two years after it ends.

Accepted by the Client on {{.AcceptedOn}}.

{{.Agency}}
{{.ClientName}}
`))

type lineView struct {
	Description string
	Quantity    int64
	UnitPrice   string
	Amount      string
}

type documentData struct {
	Agency      string
	Client      *models.Client
	ClientName  string
	Proposal    *models.Proposal
	Brief       string
	Date        string
	Lines       []lineView
	Subtotal    string
	Discount    string
	DiscountPct string
	Tax         string
	TaxPct      string
	Total       string
	ValidUntil  string
	DueDays     int
	AcceptedOn  string
}

func newDocumentData(agency string, client *models.Client, p *models.Proposal, now time.Time) (*documentData, error) {
	totals, err := models.CalculateTotals(p.LineItems, p.DiscountPct, p.TaxPct)
	if err != nil {
		return nil, err
	}

	money := func(cents int64) string { return models.FormatMoney(cents, p.Currency) }
	data := &documentData{
		Agency:      agency,
		Client:      client,
		ClientName:  clientName(client),
		Proposal:    p,
		Date:        now.Format("January 2, 2006"),
		Lines:       make([]lineView, 0, len(p.LineItems)),
		Subtotal:    money(totals.SubtotalCents),
		DiscountPct: percent(p.DiscountPct),
		TaxPct:      percent(p.TaxPct),
		Total:       money(totals.TotalCents),
	}
	if totals.DiscountCents > 0 {
		data.Discount = money(totals.DiscountCents)
	}
	if totals.TaxCents > 0 {
		data.Tax = money(totals.TaxCents)
	}
	for _, item := range p.LineItems {
		data.Lines = append(data.Lines, lineView{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   money(item.UnitPriceCents),
			Amount:      money(item.AmountCents()),
		})
	}
	if p.ValidUntil != nil {
		data.ValidUntil = p.ValidUntil.Format("January 2, 2006")
	}
	if p.DecidedAt != nil {
		data.AcceptedOn = p.DecidedAt.Format("January 2, 2006")
	}
	return data, nil
}

func render(tmpl *template.Template, data *documentData) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(b.String()) + "\n", nil
}

func clientName(c *models.Client) string {
	if c.Company != "" {
		return c.Company
	}
	return c.Name
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

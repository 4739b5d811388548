package tax

import (
	"github.com/shopspring/decimal"

	"github.com/castlemilk/taxledger/backend/internal/model"
)

// Estimate rates. Each figure is an independent formula over net profit or
// the supplied deductible amounts; none feeds back into net profit.
var (
	seTaxableShare = decimal.RequireFromString("0.9235")
	seTaxRate      = decimal.RequireFromString("0.153")
	qbiRate        = decimal.RequireFromString("0.20")
	creditRate     = decimal.RequireFromString("0.06")
)

// Summarize aggregates the canonical transaction list and the invoice list
// into a period tax summary.
//
// Each transaction contributes its externally-analyzed deductible amount when
// one is attached, otherwise its raw amount. Line totals and TotalExpenses are
// summed from those same per-transaction addends, so the invariant
// TotalExpenses == sum of line totals holds exactly. Gross income is the sum
// of paid invoice amounts; net profit may be negative, but the tax estimates
// clamp at zero.
func Summarize(transactions []*model.Transaction, invoices []*model.Invoice, table []Line) *model.TaxSummary {
	totals := make(map[string]*model.LineTotal, len(table))
	lines := make([]model.LineTotal, len(table))
	for i, l := range table {
		lines[i] = model.LineTotal{LineID: l.ID, Code: l.Code, Label: l.Label, Total: decimal.Zero}
		totals[l.ID] = &lines[i]
	}

	analyzedDeductible := decimal.Zero
	for _, txn := range transactions {
		lineID := Classify(txn, table)
		lt, ok := totals[lineID]
		if !ok {
			lt = totals[FallbackLineID]
		}
		amount := txn.DeductibleOrAmount()
		lt.Total = lt.Total.Add(amount)
		lt.Count++

		if txn.Analysis != nil && txn.Analysis.DeductibleAmount != nil {
			analyzedDeductible = analyzedDeductible.Add(*txn.Analysis.DeductibleAmount)
		}
	}

	totalExpenses := decimal.Zero
	for i := range lines {
		totalExpenses = totalExpenses.Add(lines[i].Total)
	}

	grossIncome := decimal.Zero
	for _, inv := range invoices {
		if inv.Status == model.InvoicePaid {
			grossIncome = grossIncome.Add(inv.Amount)
		}
	}

	netProfit := grossIncome.Sub(totalExpenses)
	clamped := netProfit
	if clamped.IsNegative() {
		clamped = decimal.Zero
	}

	return &model.TaxSummary{
		GrossIncome:       grossIncome,
		Lines:             lines,
		TotalExpenses:     totalExpenses,
		NetProfit:         netProfit,
		SelfEmploymentTax: clamped.Mul(seTaxableShare).Mul(seTaxRate),
		QBIDeduction:      clamped.Mul(qbiRate),
		EstimatedCredit:   analyzedDeductible.Mul(creditRate),
	}
}

package model

import "github.com/shopspring/decimal"

// LineTotal is the aggregate for one reporting line.
type LineTotal struct {
	LineID string          `json:"line_id"`
	Code   string          `json:"code"`
	Label  string          `json:"label"`
	Total  decimal.Decimal `json:"total"`
	Count  int             `json:"count"`
}

// TaxSummary is the per-period aggregate over the canonical ledger and the
// invoice list. It is recomputed on read, never persisted. TotalExpenses is
// the exact sum of the line totals, which are themselves built from the same
// per-transaction amounts, so the two can never drift apart.
type TaxSummary struct {
	GrossIncome       decimal.Decimal `json:"gross_income"`
	Lines             []LineTotal     `json:"lines"`
	TotalExpenses     decimal.Decimal `json:"total_expenses"`
	NetProfit         decimal.Decimal `json:"net_profit"`
	SelfEmploymentTax decimal.Decimal `json:"self_employment_tax"`
	QBIDeduction      decimal.Decimal `json:"qbi_deduction"`
	EstimatedCredit   decimal.Decimal `json:"estimated_credit"`
}

package tax

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlemilk/taxledger/backend/internal/model"
)

func expense(id, category, amount string) *model.Transaction {
	return &model.Transaction{
		ID:       id,
		Vendor:   "Vendor " + id,
		Date:     model.Day(2025, time.February, 10),
		Category: category,
		Amount:   decimal.RequireFromString(amount),
	}
}

func lineTotal(s *model.TaxSummary, lineID string) decimal.Decimal {
	for _, l := range s.Lines {
		if l.LineID == lineID {
			return l.Total
		}
	}
	return decimal.Zero
}

func TestSummarizeLineTotals(t *testing.T) {
	txns := []*model.Transaction{
		expense("t1", "Rent", "1000"),
		expense("t2", "Software/SaaS", "40"),
		expense("t3", "Mystery", "25"),
	}

	s := Summarize(txns, nil, DefaultTable)

	assert.True(t, lineTotal(s, "rent").Equal(decimal.RequireFromString("1000")))
	// Software and the unclassifiable record both roll into the fallback line.
	assert.True(t, lineTotal(s, "other").Equal(decimal.RequireFromString("65")))
	assert.True(t, s.TotalExpenses.Equal(decimal.RequireFromString("1065")))
}

func TestSummarizeExpensesEqualLineSum(t *testing.T) {
	txns := []*model.Transaction{
		expense("t1", "Rent", "1234.56"),
		expense("t2", "travel", "99.99"),
		expense("t3", "", "0.01"),
		expense("t4", "meals", "45.00"),
	}

	s := Summarize(txns, nil, DefaultTable)

	sum := decimal.Zero
	for _, l := range s.Lines {
		sum = sum.Add(l.Total)
	}
	assert.True(t, s.TotalExpenses.Equal(sum))
	assert.True(t, s.TotalExpenses.Equal(decimal.RequireFromString("1379.56")))
}

func TestSummarizeGrossIncomeCountsOnlyPaidInvoices(t *testing.T) {
	invoices := []*model.Invoice{
		{ID: "i1", Status: model.InvoicePaid, Amount: decimal.RequireFromString("300")},
		{ID: "i2", Status: model.InvoicePaid, Amount: decimal.RequireFromString("200")},
		{ID: "i3", Status: model.InvoiceSent, Amount: decimal.RequireFromString("9999")},
		{ID: "i4", Status: model.InvoiceDraft, Amount: decimal.RequireFromString("9999")},
	}

	s := Summarize(nil, invoices, DefaultTable)
	assert.True(t, s.GrossIncome.Equal(decimal.RequireFromString("500")))
}

func TestSummarizeNegativeNetProfitClampsEstimates(t *testing.T) {
	txns := []*model.Transaction{expense("t1", "Rent", "800")}
	invoices := []*model.Invoice{
		{ID: "i1", Status: model.InvoicePaid, Amount: decimal.RequireFromString("500")},
	}

	s := Summarize(txns, invoices, DefaultTable)

	// Net profit is reported as-is, but the estimates never go negative.
	assert.True(t, s.NetProfit.Equal(decimal.RequireFromString("-300")))
	assert.True(t, s.SelfEmploymentTax.IsZero())
	assert.True(t, s.QBIDeduction.IsZero())
}

func TestSummarizeEstimates(t *testing.T) {
	txns := []*model.Transaction{expense("t1", "Rent", "1065")}
	invoices := []*model.Invoice{
		{ID: "i1", Status: model.InvoicePaid, Amount: decimal.RequireFromString("10000")},
	}

	s := Summarize(txns, invoices, DefaultTable)

	require.True(t, s.NetProfit.Equal(decimal.RequireFromString("8935")))
	assert.True(t, s.SelfEmploymentTax.Equal(decimal.RequireFromString("1262.4752925")))
	assert.True(t, s.QBIDeduction.Equal(decimal.RequireFromString("1787")))
}

func TestSummarizeDeductibleOverride(t *testing.T) {
	deductible := decimal.RequireFromString("60")
	analyzed := expense("t1", "Rent", "100")
	analyzed.Analysis = &model.Analysis{DeductibleAmount: &deductible}

	s := Summarize([]*model.Transaction{analyzed, expense("t2", "meals", "50")}, nil, DefaultTable)

	// The analyzed amount replaces the raw amount in the line total, and only
	// analyzed amounts feed the credit estimate.
	assert.True(t, lineTotal(s, "rent").Equal(decimal.RequireFromString("60")))
	assert.True(t, s.TotalExpenses.Equal(decimal.RequireFromString("110")))
	assert.True(t, s.EstimatedCredit.Equal(decimal.RequireFromString("3.6")))
}

package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlemilk/taxledger/backend/internal/model"
)

func seedSummaryFixture(t *testing.T, svc *LedgerService) {
	t.Helper()
	ctx := context.Background()

	_, err := svc.CreateTransaction(ctx, tenant, &model.Transaction{
		Vendor:   "Landlord LLC",
		Date:     model.Day(2025, time.February, 1),
		Amount:   decimal.RequireFromString("1000"),
		Category: "Rent",
	})
	require.NoError(t, err)

	invoice, err := svc.CreateInvoice(ctx, tenant, &model.Invoice{
		Client:   "Globex",
		Amount:   decimal.RequireFromString("2500"),
		Status:   model.InvoicePaid,
		IssuedAt: model.Day(2025, time.January, 5),
	})
	require.NoError(t, err)
	require.NotEmpty(t, invoice.ID)
}

func TestExportTaxSummaryCSV(t *testing.T) {
	svc := newTestService()
	seedSummaryFixture(t, svc)

	export, err := svc.ExportTaxSummary(context.Background(), tenant, ExportCSV)
	require.NoError(t, err)

	assert.Equal(t, "tax-summary.csv", export.Filename)
	assert.Equal(t, "text/csv", export.ContentType)

	body := string(export.Data)
	assert.Contains(t, body, "Gross Income,2500.00")
	assert.Contains(t, body, "Line 20b: Rent or lease,1000.00")
	assert.Contains(t, body, "Total Expenses,1000.00")
	assert.Contains(t, body, "Net Profit,1500.00")
}

func TestExportTaxSummaryDefaultsToCSV(t *testing.T) {
	svc := newTestService()
	seedSummaryFixture(t, svc)

	export, err := svc.ExportTaxSummary(context.Background(), tenant, "")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", export.ContentType)
}

func TestExportTaxSummaryJSON(t *testing.T) {
	svc := newTestService()
	seedSummaryFixture(t, svc)

	export, err := svc.ExportTaxSummary(context.Background(), tenant, ExportJSON)
	require.NoError(t, err)
	assert.Equal(t, "application/json", export.ContentType)

	var summary model.TaxSummary
	require.NoError(t, json.Unmarshal(export.Data, &summary))
	assert.True(t, summary.GrossIncome.Equal(decimal.RequireFromString("2500")))
	assert.True(t, summary.NetProfit.Equal(decimal.RequireFromString("1500")))
}

func TestExportTaxSummaryUnknownFormat(t *testing.T) {
	svc := newTestService()
	_, err := svc.ExportTaxSummary(context.Background(), tenant, "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported export format")
}

func TestExportReceiptArchiveRequiresVault(t *testing.T) {
	svc := newTestService()
	_, err := svc.ExportReceiptArchive(context.Background(), tenant)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vault is not configured")
}

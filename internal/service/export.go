package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/castlemilk/taxledger/backend/internal/vault"
)

// ExportFormat selects the tax summary export encoding.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportJSON ExportFormat = "json"
)

// Export is a rendered document ready to hand to the caller.
type Export struct {
	Data        []byte
	Filename    string
	ContentType string
}

// ExportTaxSummary renders the current tax summary as CSV or JSON.
func (s *LedgerService) ExportTaxSummary(ctx context.Context, tenantID string, format ExportFormat) (*Export, error) {
	summary, err := s.TaxSummary(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	switch format {
	case ExportJSON:
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal JSON: %w", err)
		}
		return &Export{Data: data, Filename: "tax-summary.json", ContentType: "application/json"}, nil

	case ExportCSV, "":
		var buf strings.Builder
		w := csv.NewWriter(&buf)
		_ = w.Write([]string{"Field", "Amount"})
		_ = w.Write([]string{"Gross Income", summary.GrossIncome.StringFixed(2)})
		for _, line := range summary.Lines {
			_ = w.Write([]string{fmt.Sprintf("Line %s: %s", line.Code, line.Label), line.Total.StringFixed(2)})
		}
		_ = w.Write([]string{"Total Expenses", summary.TotalExpenses.StringFixed(2)})
		_ = w.Write([]string{"Net Profit", summary.NetProfit.StringFixed(2)})
		_ = w.Write([]string{"Self-Employment Tax Estimate", summary.SelfEmploymentTax.StringFixed(2)})
		_ = w.Write([]string{"QBI Deduction Estimate", summary.QBIDeduction.StringFixed(2)})
		_ = w.Write([]string{"Credit Estimate", summary.EstimatedCredit.StringFixed(2)})
		w.Flush()
		return &Export{Data: []byte(buf.String()), Filename: "tax-summary.csv", ContentType: "text/csv"}, nil

	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// ExportReceiptArchive builds a ZIP of every linked receipt document, grouped
// into folders by the reporting line of the linked transaction.
func (s *LedgerService) ExportReceiptArchive(ctx context.Context, tenantID string) (*Export, error) {
	if s.vault == nil {
		return nil, fmt.Errorf("document vault is not configured")
	}

	txns, err := s.Transactions(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]int, len(txns))
	for i, txn := range txns {
		byID[txn.ID] = i
	}

	allReceipts, err := s.store.ListReceipts(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}

	var entries []vault.ArchiveEntry
	for _, r := range allReceipts {
		if r.LinkedTransactionID == "" {
			continue
		}
		idx, ok := byID[r.LinkedTransactionID]
		if !ok {
			continue
		}
		txn := txns[idx]
		line := s.ClassifyTransaction(txn)
		entries = append(entries, vault.ArchiveEntry{
			Receipt: r,
			Folder:  fmt.Sprintf("%s-%s", line.Code, strings.ReplaceAll(line.Label, " ", "")),
			Label:   fmt.Sprintf("%s_%s", txn.Vendor, txn.Date.Format("2006-01-02")),
		})
	}

	data, count, err := s.vault.ExportArchive(ctx, entries)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("tenant", tenantID).Int("receipts", count).Msg("exported receipt archive")

	return &Export{Data: data, Filename: "receipts.zip", ContentType: "application/zip"}, nil
}

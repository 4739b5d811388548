// Package service wires the merge, matching, linking and classification
// pipelines over the store. Every read recomputes its view from a fresh
// snapshot; recomputation is idempotent and side-effect-free.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/castlemilk/taxledger/backend/internal/bills"
	"github.com/castlemilk/taxledger/backend/internal/merge"
	"github.com/castlemilk/taxledger/backend/internal/model"
	"github.com/castlemilk/taxledger/backend/internal/receipts"
	"github.com/castlemilk/taxledger/backend/internal/store"
	"github.com/castlemilk/taxledger/backend/internal/tax"
	"github.com/castlemilk/taxledger/backend/internal/vault"
)

// LedgerService is the engine boundary: it ingests source batches, exposes the
// canonical transaction list and the derived bill, receipt and tax views, and
// applies the explicit mutations (create/edit/delete, link/unlink) after which
// every view recomputes.
type LedgerService struct {
	store    store.Store
	linker   *receipts.Linker
	vault    *vault.Vault
	taxTable []tax.Line
	log      zerolog.Logger
}

// NewLedgerService creates a service over the given store. The vault is
// optional; document operations report unavailable without one.
func NewLedgerService(st store.Store, log zerolog.Logger) *LedgerService {
	return &LedgerService{
		store:    st,
		linker:   receipts.NewLinker(st),
		taxTable: tax.DefaultTable,
		log:      log,
	}
}

// SetVault attaches the receipt document vault.
func (s *LedgerService) SetVault(v *vault.Vault) {
	s.vault = v
}

// SyncResult reports what a source sync did. Skipped records were dropped for
// missing required fields; the sync itself still succeeds.
type SyncResult struct {
	Source   model.TransactionSource `json:"source"`
	Accepted int                     `json:"accepted"`
	Skipped  int                     `json:"skipped"`
}

// SyncSource replaces the cached batch for (tenant, source) with a fresh
// fetch. Records missing required fields are dropped one by one and logged,
// never failing the batch. A source that could not be fetched at all syncs an
// empty batch so the merge degrades instead of aborting.
func (s *LedgerService) SyncSource(ctx context.Context, tenantID string, batch *model.SourceBatch) (*SyncResult, error) {
	if batch.Source == "" {
		return nil, fmt.Errorf("source is required")
	}
	if batch.FetchedAt.IsZero() {
		batch.FetchedAt = time.Now().UTC()
	}

	kept := make([]*model.Transaction, 0, len(batch.Transactions))
	skipped := 0
	for _, txn := range batch.Transactions {
		if txn.ID == "" {
			txn.ID = uuid.New().String()
		}
		txn.Source = batch.Source
		txn.Verified = batch.Verified
		txn.Date = model.DateOnly(txn.Date)
		if !merge.Valid(txn) {
			skipped++
			s.log.Warn().
				Str("tenant", tenantID).
				Str("source", string(batch.Source)).
				Str("external_id", txn.ExternalID).
				Msg("dropping invalid record from sync")
			continue
		}
		kept = append(kept, txn)
	}
	batch.Transactions = kept

	if err := s.store.ReplaceSourceBatch(ctx, tenantID, batch); err != nil {
		return nil, fmt.Errorf("failed to replace source batch: %w", err)
	}

	s.log.Info().
		Str("tenant", tenantID).
		Str("source", string(batch.Source)).
		Int("accepted", len(kept)).
		Int("skipped", skipped).
		Msg("source synced")

	return &SyncResult{Source: batch.Source, Accepted: len(kept), Skipped: skipped}, nil
}

// Transactions recomputes the canonical deduplicated transaction list from
// the cached source batches.
func (s *LedgerService) Transactions(ctx context.Context, tenantID string) ([]*model.Transaction, error) {
	batches, err := s.store.ListSourceBatches(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list source batches: %w", err)
	}
	result := merge.MergeWithReport(batches)
	if result.Skipped > 0 {
		s.log.Warn().
			Str("tenant", tenantID).
			Int("skipped", result.Skipped).
			Msg("merge dropped invalid cached records")
	}
	return result.Transactions, nil
}

// CreateTransaction adds a manual entry. Manual entries live in the cached
// manual batch and are never bank-verified.
func (s *LedgerService) CreateTransaction(ctx context.Context, tenantID string, txn *model.Transaction) (*model.Transaction, error) {
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	txn.Source = model.SourceManual
	txn.Verified = false
	txn.Date = model.DateOnly(txn.Date)
	if !merge.Valid(txn) {
		return nil, fmt.Errorf("transaction is missing required fields")
	}

	batch, err := s.store.GetSourceBatch(ctx, tenantID, model.SourceManual)
	if err != nil {
		batch = &model.SourceBatch{Source: model.SourceManual}
	}
	batch.Transactions = append(batch.Transactions, txn)
	batch.FetchedAt = time.Now().UTC()

	if err := s.store.ReplaceSourceBatch(ctx, tenantID, batch); err != nil {
		return nil, fmt.Errorf("failed to store manual transaction: %w", err)
	}
	return txn, nil
}

// DeleteTransaction removes a transaction from its cached batch and unlinks
// any receipts pointing at it, so the payment and link views are clean on the
// next recompute.
func (s *LedgerService) DeleteTransaction(ctx context.Context, tenantID, transactionID string) error {
	batches, err := s.store.ListSourceBatches(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to list source batches: %w", err)
	}

	found := false
	for i := range batches {
		batch := &batches[i]
		kept := batch.Transactions[:0]
		for _, txn := range batch.Transactions {
			if txn.ID == transactionID {
				found = true
				continue
			}
			kept = append(kept, txn)
		}
		if len(kept) != len(batch.Transactions) {
			batch.Transactions = kept
			if err := s.store.ReplaceSourceBatch(ctx, tenantID, batch); err != nil {
				return fmt.Errorf("failed to update source batch: %w", err)
			}
		}
	}
	if !found {
		return fmt.Errorf("transaction not found: %s", transactionID)
	}

	linked, err := s.linker.ReceiptsFor(ctx, tenantID, transactionID)
	if err != nil {
		return fmt.Errorf("failed to list linked receipts: %w", err)
	}
	for _, r := range linked {
		if err := s.linker.Unlink(ctx, tenantID, r.ID); err != nil {
			return fmt.Errorf("failed to unlink receipt %s: %w", r.ID, err)
		}
	}
	return nil
}

// AttachAnalysis stores the externally-computed tax opinion on a transaction.
// The record arrives asynchronously after the transaction is created.
func (s *LedgerService) AttachAnalysis(ctx context.Context, tenantID, transactionID string, analysis *model.Analysis) error {
	batches, err := s.store.ListSourceBatches(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to list source batches: %w", err)
	}
	for i := range batches {
		batch := &batches[i]
		for _, txn := range batch.Transactions {
			if txn.ID == transactionID {
				txn.Analysis = analysis
				if err := s.store.ReplaceSourceBatch(ctx, tenantID, batch); err != nil {
					return fmt.Errorf("failed to update source batch: %w", err)
				}
				return nil
			}
		}
	}
	return fmt.Errorf("transaction not found: %s", transactionID)
}

// findTransaction locates one transaction in the canonical list.
func (s *LedgerService) findTransaction(ctx context.Context, tenantID, transactionID string) (*model.Transaction, error) {
	txns, err := s.Transactions(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for _, txn := range txns {
		if txn.ID == transactionID {
			return txn, nil
		}
	}
	return nil, fmt.Errorf("transaction not found: %s", transactionID)
}

// Bill operations

// CreateBill stores a bill. Provider is the sole matching seed and must be
// non-empty.
func (s *LedgerService) CreateBill(ctx context.Context, tenantID string, bill *model.Bill) (*model.Bill, error) {
	if bill.Provider == "" {
		return nil, fmt.Errorf("bill provider is required")
	}
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	bill.DueDate = model.DateOnly(bill.DueDate)
	if err := s.store.CreateBill(ctx, tenantID, bill); err != nil {
		return nil, fmt.Errorf("failed to create bill: %w", err)
	}
	return bill, nil
}

// UpdateBill replaces a bill's fields. Matching stays computed on read; no
// match state is ever persisted onto the bill.
func (s *LedgerService) UpdateBill(ctx context.Context, tenantID string, bill *model.Bill) error {
	if bill.Provider == "" {
		return fmt.Errorf("bill provider is required")
	}
	bill.DueDate = model.DateOnly(bill.DueDate)
	if err := s.store.UpdateBill(ctx, tenantID, bill); err != nil {
		return fmt.Errorf("failed to update bill: %w", err)
	}
	return nil
}

// DeleteBill removes a bill.
func (s *LedgerService) DeleteBill(ctx context.Context, tenantID, billID string) error {
	if err := s.store.DeleteBill(ctx, tenantID, billID); err != nil {
		return fmt.Errorf("failed to delete bill: %w", err)
	}
	return nil
}

// BillsWithPayments recomputes the bill-with-payments view over the canonical
// transaction list.
func (s *LedgerService) BillsWithPayments(ctx context.Context, tenantID string, now time.Time) ([]*model.BillWithPayments, error) {
	billList, err := s.store.ListBills(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	txns, err := s.Transactions(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return bills.Match(billList, txns, now), nil
}

// Receipt operations

// AddReceipt registers a document in the vault index.
func (s *LedgerService) AddReceipt(ctx context.Context, tenantID string, receipt *model.Receipt) (*model.Receipt, error) {
	if receipt.ID == "" {
		receipt.ID = uuid.New().String()
	}
	if receipt.CapturedAt.IsZero() {
		receipt.CapturedAt = time.Now().UTC()
	}
	if err := s.store.CreateReceipt(ctx, tenantID, receipt); err != nil {
		return nil, fmt.Errorf("failed to create receipt: %w", err)
	}
	return receipt, nil
}

// DeleteReceipt removes a receipt. Deletion is independent of link state.
func (s *LedgerService) DeleteReceipt(ctx context.Context, tenantID, receiptID string) error {
	if err := s.store.DeleteReceipt(ctx, tenantID, receiptID); err != nil {
		return fmt.Errorf("failed to delete receipt: %w", err)
	}
	return nil
}

// ListReceipts returns the receipt vault index.
func (s *LedgerService) ListReceipts(ctx context.Context, tenantID string) ([]*model.Receipt, error) {
	out, err := s.store.ListReceipts(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	return out, nil
}

// LinkReceipt points a receipt at a transaction, replacing any prior link.
func (s *LedgerService) LinkReceipt(ctx context.Context, tenantID, receiptID, transactionID string) error {
	return s.linker.Link(ctx, tenantID, receiptID, transactionID)
}

// UnlinkReceipt clears a receipt's link.
func (s *LedgerService) UnlinkReceipt(ctx context.Context, tenantID, receiptID string) error {
	return s.linker.Unlink(ctx, tenantID, receiptID)
}

// ReceiptsFor returns the receipts linked to a transaction.
func (s *LedgerService) ReceiptsFor(ctx context.Context, tenantID, transactionID string) ([]*model.Receipt, error) {
	return s.linker.ReceiptsFor(ctx, tenantID, transactionID)
}

// SuggestReceipts proposes candidate receipts for a transaction by temporal
// proximity, falling back to recency when nothing is close.
func (s *LedgerService) SuggestReceipts(ctx context.Context, tenantID, transactionID string) ([]*model.ReceiptSuggestion, error) {
	txn, err := s.findTransaction(ctx, tenantID, transactionID)
	if err != nil {
		return nil, err
	}
	return s.linker.Suggest(ctx, tenantID, txn)
}

// Invoice operations

// CreateInvoice stores an invoice.
func (s *LedgerService) CreateInvoice(ctx context.Context, tenantID string, invoice *model.Invoice) (*model.Invoice, error) {
	if invoice.ID == "" {
		invoice.ID = uuid.New().String()
	}
	if invoice.Status == "" {
		invoice.Status = model.InvoiceDraft
	}
	if err := s.store.CreateInvoice(ctx, tenantID, invoice); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	return invoice, nil
}

// UpdateInvoice replaces an invoice's fields.
func (s *LedgerService) UpdateInvoice(ctx context.Context, tenantID string, invoice *model.Invoice) error {
	if err := s.store.UpdateInvoice(ctx, tenantID, invoice); err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	return nil
}

// DeleteInvoice removes an invoice.
func (s *LedgerService) DeleteInvoice(ctx context.Context, tenantID, invoiceID string) error {
	if err := s.store.DeleteInvoice(ctx, tenantID, invoiceID); err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	return nil
}

// ListInvoices returns the invoice list.
func (s *LedgerService) ListInvoices(ctx context.Context, tenantID string) ([]*model.Invoice, error) {
	out, err := s.store.ListInvoices(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return out, nil
}

// TaxSummary recomputes the period aggregate from the canonical transaction
// list and the invoice list.
func (s *LedgerService) TaxSummary(ctx context.Context, tenantID string) (*model.TaxSummary, error) {
	txns, err := s.Transactions(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	invoices, err := s.store.ListInvoices(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return tax.Summarize(txns, invoices, s.taxTable), nil
}

// ClassifyTransaction returns the reporting line a transaction rolls up into.
func (s *LedgerService) ClassifyTransaction(txn *model.Transaction) tax.Line {
	return tax.LineByID(s.taxTable, tax.Classify(txn, s.taxTable))
}

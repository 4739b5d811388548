// Package receipts maintains the receipt-to-transaction link table and the
// suggestion query that proposes candidate receipts for a transaction.
package receipts

import (
	"context"
	"fmt"
	"sort"

	"github.com/castlemilk/taxledger/backend/internal/model"
)

const (
	// suggestWindowDays bounds the calendar-day distance for date-proximate
	// suggestions, inclusive on both ends.
	suggestWindowDays = 7
	// fallbackLimit caps the recency fallback when the window is empty.
	fallbackLimit = 5
)

// Store is the slice of persistence the linker needs. The full store.Store
// satisfies it.
type Store interface {
	GetReceipt(ctx context.Context, tenantID, receiptID string) (*model.Receipt, error)
	UpdateReceipt(ctx context.Context, tenantID string, receipt *model.Receipt) error
	ListReceipts(ctx context.Context, tenantID string) ([]*model.Receipt, error)
}

// Linker applies link operations against persisted receipt state. Links live
// on the receipt record itself, so the one-link-per-receipt invariant holds by
// construction.
type Linker struct {
	store Store
}

// NewLinker creates a linker over the given store.
func NewLinker(store Store) *Linker {
	return &Linker{store: store}
}

// Link points a receipt at a transaction, overwriting any prior link. Linking
// a receipt to the transaction it already points at is a no-op, not an error.
func (l *Linker) Link(ctx context.Context, tenantID, receiptID, transactionID string) error {
	receipt, err := l.store.GetReceipt(ctx, tenantID, receiptID)
	if err != nil {
		return fmt.Errorf("get receipt: %w", err)
	}
	if receipt.LinkedTransactionID == transactionID {
		return nil
	}
	receipt.LinkedTransactionID = transactionID
	if err := l.store.UpdateReceipt(ctx, tenantID, receipt); err != nil {
		return fmt.Errorf("update receipt: %w", err)
	}
	return nil
}

// Unlink clears a receipt's link. Unlinking an unlinked receipt is a no-op.
func (l *Linker) Unlink(ctx context.Context, tenantID, receiptID string) error {
	receipt, err := l.store.GetReceipt(ctx, tenantID, receiptID)
	if err != nil {
		return fmt.Errorf("get receipt: %w", err)
	}
	if receipt.LinkedTransactionID == "" {
		return nil
	}
	receipt.LinkedTransactionID = ""
	if err := l.store.UpdateReceipt(ctx, tenantID, receipt); err != nil {
		return fmt.Errorf("update receipt: %w", err)
	}
	return nil
}

// ReceiptsFor returns the receipts currently linked to a transaction. The
// index is recomputed from the full link set on every call, so it reflects
// unlink operations immediately.
func (l *Linker) ReceiptsFor(ctx context.Context, tenantID, transactionID string) ([]*model.Receipt, error) {
	all, err := l.store.ListReceipts(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	return FilterLinked(all, transactionID), nil
}

// Suggest proposes candidate receipts for a transaction.
func (l *Linker) Suggest(ctx context.Context, tenantID string, txn *model.Transaction) ([]*model.ReceiptSuggestion, error) {
	all, err := l.store.ListReceipts(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	return Suggest(txn, all), nil
}

// FilterLinked picks the receipts linked to the given transaction.
func FilterLinked(all []*model.Receipt, transactionID string) []*model.Receipt {
	var out []*model.Receipt
	for _, r := range all {
		if r.LinkedTransactionID == transactionID {
			out = append(out, r)
		}
	}
	return out
}

// Suggest returns unlinked receipts captured within 7 calendar days of the
// transaction date, nearest first. When the window is empty it falls back to
// the most recently captured unlinked receipts, bounded and tagged so callers
// can present them as lower confidence.
func Suggest(txn *model.Transaction, all []*model.Receipt) []*model.ReceiptSuggestion {
	var unlinked []*model.Receipt
	for _, r := range all {
		if r.LinkedTransactionID == "" {
			unlinked = append(unlinked, r)
		}
	}

	var window []*model.ReceiptSuggestion
	for _, r := range unlinked {
		delta := model.DaysBetween(txn.Date, r.CapturedAt)
		if abs(delta) <= suggestWindowDays {
			window = append(window, &model.ReceiptSuggestion{
				Receipt:    r,
				DayDelta:   delta,
				Confidence: model.ConfidenceDateProximate,
			})
		}
	}
	if len(window) > 0 {
		sort.SliceStable(window, func(i, j int) bool {
			ai, aj := abs(window[i].DayDelta), abs(window[j].DayDelta)
			if ai != aj {
				return ai < aj
			}
			return window[i].Receipt.CapturedAt.After(window[j].Receipt.CapturedAt)
		})
		return window
	}

	sort.SliceStable(unlinked, func(i, j int) bool {
		return unlinked[i].CapturedAt.After(unlinked[j].CapturedAt)
	})
	if len(unlinked) > fallbackLimit {
		unlinked = unlinked[:fallbackLimit]
	}
	out := make([]*model.ReceiptSuggestion, 0, len(unlinked))
	for _, r := range unlinked {
		out = append(out, &model.ReceiptSuggestion{
			Receipt:    r,
			DayDelta:   model.DaysBetween(txn.Date, r.CapturedAt),
			Confidence: model.ConfidenceFallback,
		})
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Package model defines the entity shapes shared by the reconciliation
// pipelines: transactions, source batches, bills, receipts, invoices and the
// derived views computed from them.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionSource identifies which feed a transaction came from. The
// declaration order is also the merge priority order: bank feeds first, then
// card imports, manual entries and finally the remote store.
type TransactionSource string

const (
	SourceBankSyncA   TransactionSource = "bank-sync-a"
	SourceBankSyncB   TransactionSource = "bank-sync-b"
	SourceCardImport  TransactionSource = "card-import"
	SourceManual      TransactionSource = "manual"
	SourceRemoteStore TransactionSource = "remote-store"
)

// SourcePriority returns the merge precedence of a source, lower is earlier.
// Unknown sources sort after every known one.
func SourcePriority(s TransactionSource) int {
	switch s {
	case SourceBankSyncA:
		return 0
	case SourceBankSyncB:
		return 1
	case SourceCardImport:
		return 2
	case SourceManual:
		return 3
	case SourceRemoteStore:
		return 4
	default:
		return 5
	}
}

// Attachment is an inline document carried on a transaction.
type Attachment struct {
	ID          string `json:"id" firestore:"id"`
	Filename    string `json:"filename" firestore:"filename"`
	ContentType string `json:"content_type" firestore:"contentType"`
	StoragePath string `json:"storage_path" firestore:"storagePath"`
}

// Analysis is the externally-computed tax opinion attached to a transaction
// after creation. The engine only reads it; DeductibleAmount, when present,
// replaces the raw amount in deduction aggregates.
type Analysis struct {
	DeductibleAmount *decimal.Decimal `json:"deductible_amount,omitempty" firestore:"deductibleAmount,omitempty"`
	RiskLabel        string           `json:"risk_label" firestore:"riskLabel"`
	RuleRefs         []string         `json:"rule_refs,omitempty" firestore:"ruleRefs,omitempty"`
}

// Transaction is one entry of the canonical ledger. Amount is always a
// positive magnitude; direction is implied by context. Date carries no time
// component (UTC midnight).
type Transaction struct {
	ID          string            `json:"id" firestore:"id"`
	Date        time.Time         `json:"date" firestore:"date"`
	Vendor      string            `json:"vendor" firestore:"vendor"`
	Amount      decimal.Decimal   `json:"amount" firestore:"amount"`
	Category    string            `json:"category" firestore:"category"`
	Context     string            `json:"context,omitempty" firestore:"context,omitempty"`
	Source      TransactionSource `json:"source" firestore:"source"`
	ExternalID  string            `json:"external_id,omitempty" firestore:"externalId,omitempty"`
	Verified    bool              `json:"verified" firestore:"verified"`
	Attachments []Attachment      `json:"attachments,omitempty" firestore:"attachments,omitempty"`
	Analysis    *Analysis         `json:"analysis,omitempty" firestore:"analysis,omitempty"`
}

// DeductibleOrAmount returns the externally-supplied deductible amount when an
// analysis is attached, otherwise the raw amount. Unanalyzed transactions are
// provisionally treated as fully deductible.
func (t *Transaction) DeductibleOrAmount() decimal.Decimal {
	if t.Analysis != nil && t.Analysis.DeductibleAmount != nil {
		return *t.Analysis.DeductibleAmount
	}
	return t.Amount
}

// SourceBatch is one source's last-fetched set of raw transactions. Batches
// are pre-ordered by the source; the merge engine never reorders within one.
type SourceBatch struct {
	Source       TransactionSource `json:"source" firestore:"source"`
	Verified     bool              `json:"verified" firestore:"verified"`
	FetchedAt    time.Time         `json:"fetched_at" firestore:"fetchedAt"`
	Transactions []*Transaction    `json:"transactions" firestore:"transactions"`
}

// DateOnly strips the time component, keeping the calendar day in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Day builds a calendar date in UTC.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the signed number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

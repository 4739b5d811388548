// Package merge combines per-source transaction batches into the canonical
// deduplicated ledger.
package merge

import (
	"sort"
	"strings"

	"github.com/castlemilk/taxledger/backend/internal/model"
)

// Result is the outcome of a merge. Skipped counts raw records dropped for
// missing required fields; the merge itself never fails.
type Result struct {
	Transactions []*model.Transaction
	Skipped      int
}

// Merge combines source batches into one deduplicated list. See MergeWithReport.
func Merge(batches []model.SourceBatch) []*model.Transaction {
	return MergeWithReport(batches).Transactions
}

// MergeWithReport merges batches and reports how many records were dropped.
//
// Two records are the same economic event when they share the natural key
// (vendor, date, amount), compared exactly and case-sensitively. Precedence
// among duplicates: bank-verified beats unverified; among verified records the
// most recently fetched batch wins; otherwise the first record in
// source-priority order survives. The losing record is discarded whole, its id
// included. Output is the concatenation of batches in source-priority order
// with within-batch order preserved.
//
// Only the freshest batch per source participates: a fresh sync replaces the
// prior cache for that source in full, not incrementally. The function is pure
// with respect to its inputs.
func MergeWithReport(batches []model.SourceBatch) Result {
	latest := latestPerSource(batches)

	sort.SliceStable(latest, func(i, j int) bool {
		pi, pj := model.SourcePriority(latest[i].Source), model.SourcePriority(latest[j].Source)
		if pi != pj {
			return pi < pj
		}
		return latest[i].Source < latest[j].Source
	})

	var skipped int
	winners := make(map[string]candidate)

	for i := range latest {
		b := &latest[i]
		for _, txn := range b.Transactions {
			if !Valid(txn) {
				skipped++
				continue
			}
			key := naturalKey(txn)
			cur, ok := winners[key]
			if !ok {
				winners[key] = candidate{txn: txn, batch: b}
				continue
			}
			if beats(candidate{txn: txn, batch: b}, cur) {
				winners[key] = candidate{txn: txn, batch: b}
			}
		}
	}

	var out []*model.Transaction
	for i := range latest {
		b := &latest[i]
		for _, txn := range b.Transactions {
			if !Valid(txn) {
				continue
			}
			if winners[naturalKey(txn)].txn == txn {
				out = append(out, txn)
			}
		}
	}

	return Result{Transactions: out, Skipped: skipped}
}

// latestPerSource keeps only the freshest batch for each source.
func latestPerSource(batches []model.SourceBatch) []model.SourceBatch {
	bySource := make(map[model.TransactionSource]model.SourceBatch)
	for _, b := range batches {
		cur, ok := bySource[b.Source]
		if !ok || !b.FetchedAt.Before(cur.FetchedAt) {
			bySource[b.Source] = b
		}
	}
	out := make([]model.SourceBatch, 0, len(bySource))
	for _, b := range bySource {
		out = append(out, b)
	}
	return out
}

// candidate pairs a record with the batch it arrived in.
type candidate struct {
	txn   *model.Transaction
	batch *model.SourceBatch
}

// beats reports whether candidate a takes precedence over the current winner b.
func beats(a, b candidate) bool {
	if a.txn.Verified != b.txn.Verified {
		return a.txn.Verified
	}
	if a.txn.Verified && b.txn.Verified {
		return a.batch.FetchedAt.After(b.batch.FetchedAt)
	}
	// Both unverified: first in priority order stays.
	return false
}

// Valid reports whether a raw record carries the required fields. Invalid
// records are dropped individually; one bad record never fails a batch.
func Valid(t *model.Transaction) bool {
	if t == nil || t.ID == "" {
		return false
	}
	if strings.TrimSpace(t.Vendor) == "" {
		return false
	}
	if t.Date.IsZero() {
		return false
	}
	if t.Amount.IsNegative() {
		return false
	}
	return true
}

// naturalKey identifies the economic event: exact vendor, calendar date and
// decimal amount. The amount is canonicalized through big.Rat so 40 and 40.00
// collide.
func naturalKey(t *model.Transaction) string {
	return t.Vendor + "\x00" + model.DateOnly(t.Date).Format("2006-01-02") + "\x00" + t.Amount.Rat().RatString()
}

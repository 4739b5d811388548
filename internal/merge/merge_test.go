package merge

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlemilk/taxledger/backend/internal/model"
)

func txn(id, vendor, date, amount string) *model.Transaction {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return &model.Transaction{
		ID:     id,
		Vendor: vendor,
		Date:   d,
		Amount: decimal.RequireFromString(amount),
	}
}

func batch(source model.TransactionSource, verified bool, fetchedAt time.Time, txns ...*model.Transaction) model.SourceBatch {
	for _, t := range txns {
		t.Source = source
		t.Verified = verified
	}
	return model.SourceBatch{Source: source, Verified: verified, FetchedAt: fetchedAt, Transactions: txns}
}

func ids(txns []*model.Transaction) []string {
	out := make([]string, 0, len(txns))
	for _, t := range txns {
		out = append(out, t.ID)
	}
	return out
}

func TestMergeDeduplicatesByNaturalKey(t *testing.T) {
	fetched := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("verified beats unverified", func(t *testing.T) {
		bank := batch(model.SourceBankSyncA, true, fetched,
			txn("bank-1", "Acme Hosting", "2025-02-10", "40.00"))
		manual := batch(model.SourceManual, false, fetched,
			txn("manual-1", "Acme Hosting", "2025-02-10", "40.00"))

		got := Merge([]model.SourceBatch{manual, bank})
		require.Len(t, got, 1)
		assert.Equal(t, "bank-1", got[0].ID)
	})

	t.Run("amount representations collide", func(t *testing.T) {
		a := batch(model.SourceBankSyncA, true, fetched,
			txn("a-1", "Acme Hosting", "2025-02-10", "40"))
		b := batch(model.SourceManual, false, fetched,
			txn("b-1", "Acme Hosting", "2025-02-10", "40.00"))

		got := Merge([]model.SourceBatch{a, b})
		require.Len(t, got, 1)
		assert.Equal(t, "a-1", got[0].ID)
	})

	t.Run("vendor comparison is exact and case sensitive", func(t *testing.T) {
		a := batch(model.SourceBankSyncA, true, fetched,
			txn("a-1", "Acme Hosting", "2025-02-10", "40.00"))
		b := batch(model.SourceManual, false, fetched,
			txn("b-1", "ACME HOSTING", "2025-02-10", "40.00"))

		got := Merge([]model.SourceBatch{a, b})
		assert.Len(t, got, 2)
	})

	t.Run("both verified freshest batch wins", func(t *testing.T) {
		older := batch(model.SourceBankSyncA, true, fetched,
			txn("old-1", "Acme Hosting", "2025-02-10", "40.00"))
		newer := batch(model.SourceBankSyncB, true, fetched.Add(time.Hour),
			txn("new-1", "Acme Hosting", "2025-02-10", "40.00"))

		got := Merge([]model.SourceBatch{older, newer})
		require.Len(t, got, 1)
		assert.Equal(t, "new-1", got[0].ID)
	})

	t.Run("both unverified first in priority order stays", func(t *testing.T) {
		card := batch(model.SourceCardImport, false, fetched,
			txn("card-1", "Acme Hosting", "2025-02-10", "40.00"))
		manual := batch(model.SourceManual, false, fetched,
			txn("manual-1", "Acme Hosting", "2025-02-10", "40.00"))

		got := Merge([]model.SourceBatch{manual, card})
		require.Len(t, got, 1)
		assert.Equal(t, "card-1", got[0].ID)
	})
}

func TestMergeFreshSyncReplacesPriorCache(t *testing.T) {
	older := batch(model.SourceBankSyncA, true, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		txn("stale-1", "Old Vendor", "2025-02-01", "10.00"),
		txn("stale-2", "Acme Hosting", "2025-02-10", "40.00"))
	newer := batch(model.SourceBankSyncA, true, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
		txn("fresh-1", "Acme Hosting", "2025-02-10", "40.00"))

	got := Merge([]model.SourceBatch{older, newer})
	require.Len(t, got, 1)
	// The stale batch is replaced whole, not merged incrementally.
	assert.Equal(t, "fresh-1", got[0].ID)
}

func TestMergeOutputOrder(t *testing.T) {
	fetched := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	bankB := batch(model.SourceBankSyncB, true, fetched,
		txn("b-1", "Vendor One", "2025-02-01", "1.00"),
		txn("b-2", "Vendor Two", "2025-02-02", "2.00"))
	bankA := batch(model.SourceBankSyncA, true, fetched,
		txn("a-1", "Vendor Three", "2025-02-03", "3.00"))
	manual := batch(model.SourceManual, false, fetched,
		txn("m-1", "Vendor Four", "2025-02-04", "4.00"))

	// Input order does not matter; output follows source priority with
	// within-batch order preserved.
	got := Merge([]model.SourceBatch{manual, bankB, bankA})
	assert.Equal(t, []string{"a-1", "b-1", "b-2", "m-1"}, ids(got))
}

func TestMergeDropsInvalidRecords(t *testing.T) {
	fetched := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	noVendor := txn("bad-1", "  ", "2025-02-01", "5.00")
	negative := txn("bad-2", "Acme", "2025-02-01", "-5.00")
	noDate := &model.Transaction{ID: "bad-3", Vendor: "Acme", Amount: decimal.RequireFromString("5.00")}
	good := txn("good-1", "Acme", "2025-02-02", "5.00")

	result := MergeWithReport([]model.SourceBatch{
		batch(model.SourceBankSyncA, true, fetched, noVendor, negative, noDate, good),
	})

	assert.Equal(t, 3, result.Skipped)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "good-1", result.Transactions[0].ID)
}

func TestMergeIsIdempotent(t *testing.T) {
	fetched := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	batches := []model.SourceBatch{
		batch(model.SourceBankSyncA, true, fetched,
			txn("a-1", "Acme Hosting", "2025-02-10", "40.00"),
			txn("a-2", "Coffee Shop", "2025-02-11", "4.50")),
		batch(model.SourceManual, false, fetched,
			txn("m-1", "Acme Hosting", "2025-02-10", "40.00")),
	}

	first := Merge(batches)
	second := Merge(batches)
	assert.Equal(t, ids(first), ids(second))
}

func TestMergeEmptyInput(t *testing.T) {
	assert.Empty(t, Merge(nil))
	assert.Empty(t, Merge([]model.SourceBatch{}))
}

package receipts

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlemilk/taxledger/backend/internal/model"
	"github.com/castlemilk/taxledger/backend/internal/store"
)

const tenant = "tenant-1"

func newLinkerWithReceipts(t *testing.T, receiptList ...*model.Receipt) (*Linker, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	for _, r := range receiptList {
		require.NoError(t, st.CreateReceipt(context.Background(), tenant, r))
	}
	return NewLinker(st), st
}

func TestLinkIsExclusive(t *testing.T) {
	ctx := context.Background()
	linker, _ := newLinkerWithReceipts(t,
		&model.Receipt{ID: "r1", CapturedAt: model.Day(2025, time.February, 10)})

	require.NoError(t, linker.Link(ctx, tenant, "r1", "txn-a"))

	// Relinking moves the receipt; the old transaction loses it.
	require.NoError(t, linker.Link(ctx, tenant, "r1", "txn-b"))

	forA, err := linker.ReceiptsFor(ctx, tenant, "txn-a")
	require.NoError(t, err)
	assert.Empty(t, forA)

	forB, err := linker.ReceiptsFor(ctx, tenant, "txn-b")
	require.NoError(t, err)
	require.Len(t, forB, 1)
	assert.Equal(t, "r1", forB[0].ID)
}

func TestLinkIdempotent(t *testing.T) {
	ctx := context.Background()
	linker, st := newLinkerWithReceipts(t,
		&model.Receipt{ID: "r1", CapturedAt: model.Day(2025, time.February, 10)})

	require.NoError(t, linker.Link(ctx, tenant, "r1", "txn-a"))
	require.NoError(t, linker.Link(ctx, tenant, "r1", "txn-a"))

	got, err := st.GetReceipt(ctx, tenant, "r1")
	require.NoError(t, err)
	assert.Equal(t, "txn-a", got.LinkedTransactionID)
}

func TestUnlinkIdempotent(t *testing.T) {
	ctx := context.Background()
	linker, _ := newLinkerWithReceipts(t,
		&model.Receipt{ID: "r1", CapturedAt: model.Day(2025, time.February, 10)})

	require.NoError(t, linker.Unlink(ctx, tenant, "r1"))

	require.NoError(t, linker.Link(ctx, tenant, "r1", "txn-a"))
	require.NoError(t, linker.Unlink(ctx, tenant, "r1"))
	require.NoError(t, linker.Unlink(ctx, tenant, "r1"))

	forA, err := linker.ReceiptsFor(ctx, tenant, "txn-a")
	require.NoError(t, err)
	assert.Empty(t, forA)
}

func TestLinkUnknownReceipt(t *testing.T) {
	linker, _ := newLinkerWithReceipts(t)
	err := linker.Link(context.Background(), tenant, "missing", "txn-a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSuggestDateWindow(t *testing.T) {
	txn := &model.Transaction{ID: "txn-a", Date: model.Day(2025, time.February, 10)}

	receipts := []*model.Receipt{
		{ID: "six-before", CapturedAt: model.Day(2025, time.February, 4)},
		{ID: "seven-after", CapturedAt: model.Day(2025, time.February, 17)},
		{ID: "eight-after", CapturedAt: model.Day(2025, time.February, 18)},
		{ID: "same-day-linked", CapturedAt: model.Day(2025, time.February, 10), LinkedTransactionID: "txn-z"},
	}

	got := Suggest(txn, receipts)
	require.Len(t, got, 2)

	// Nearest first. The window is inclusive at seven days; eight is out and
	// linked receipts never appear.
	assert.Equal(t, "six-before", got[0].Receipt.ID)
	assert.Equal(t, -6, got[0].DayDelta)
	assert.Equal(t, model.ConfidenceDateProximate, got[0].Confidence)

	assert.Equal(t, "seven-after", got[1].Receipt.ID)
	assert.Equal(t, 7, got[1].DayDelta)
}

func TestSuggestFallbackToRecency(t *testing.T) {
	txn := &model.Transaction{ID: "txn-a", Date: model.Day(2025, time.February, 10)}

	var receipts []*model.Receipt
	for i := 0; i < 7; i++ {
		receipts = append(receipts, &model.Receipt{
			ID:         fmt.Sprintf("r%d", i),
			CapturedAt: model.Day(2025, time.June, 1+i),
		})
	}

	got := Suggest(txn, receipts)
	require.Len(t, got, 5)
	assert.Equal(t, "r6", got[0].Receipt.ID)
	assert.Equal(t, "r2", got[4].Receipt.ID)
	for _, s := range got {
		assert.Equal(t, model.ConfidenceFallback, s.Confidence)
	}
}

func TestSuggestEmptyVault(t *testing.T) {
	txn := &model.Transaction{ID: "txn-a", Date: model.Day(2025, time.February, 10)}
	assert.Empty(t, Suggest(txn, nil))
}

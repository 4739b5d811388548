package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/castlemilk/taxledger/backend/internal/model"
)

// MemoryStore implements Store with in-memory maps. It is used for local
// development and in tests.
type MemoryStore struct {
	mu sync.RWMutex

	// Keyed by tenant id, then entity id (source name for batches).
	batches  map[string]map[model.TransactionSource]*model.SourceBatch
	bills    map[string]map[string]*model.Bill
	receipts map[string]map[string]*model.Receipt
	invoices map[string]map[string]*model.Invoice
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		batches:  make(map[string]map[model.TransactionSource]*model.SourceBatch),
		bills:    make(map[string]map[string]*model.Bill),
		receipts: make(map[string]map[string]*model.Receipt),
		invoices: make(map[string]map[string]*model.Invoice),
	}
}

// Source batch operations

func (m *MemoryStore) ReplaceSourceBatch(ctx context.Context, tenantID string, batch *model.SourceBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if batch.Source == "" {
		return fmt.Errorf("source batch missing source")
	}
	if m.batches[tenantID] == nil {
		m.batches[tenantID] = make(map[model.TransactionSource]*model.SourceBatch)
	}
	m.batches[tenantID][batch.Source] = cloneBatch(batch)
	return nil
}

func (m *MemoryStore) GetSourceBatch(ctx context.Context, tenantID string, source model.TransactionSource) (*model.SourceBatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	batch, ok := m.batches[tenantID][source]
	if !ok {
		return nil, fmt.Errorf("source batch not found: %s", source)
	}
	return cloneBatch(batch), nil
}

func (m *MemoryStore) ListSourceBatches(ctx context.Context, tenantID string) ([]model.SourceBatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.SourceBatch
	for _, batch := range m.batches[tenantID] {
		out = append(out, *cloneBatch(batch))
	}
	sort.Slice(out, func(i, j int) bool {
		return model.SourcePriority(out[i].Source) < model.SourcePriority(out[j].Source)
	})
	return out, nil
}

// Bill operations

func (m *MemoryStore) CreateBill(ctx context.Context, tenantID string, bill *model.Bill) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if m.bills[tenantID] == nil {
		m.bills[tenantID] = make(map[string]*model.Bill)
	}
	b := *bill
	m.bills[tenantID][bill.ID] = &b
	return nil
}

func (m *MemoryStore) GetBill(ctx context.Context, tenantID, billID string) (*model.Bill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bill, ok := m.bills[tenantID][billID]
	if !ok {
		return nil, fmt.Errorf("bill not found: %s", billID)
	}
	b := *bill
	return &b, nil
}

func (m *MemoryStore) UpdateBill(ctx context.Context, tenantID string, bill *model.Bill) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.bills[tenantID][bill.ID]; !ok {
		return fmt.Errorf("bill not found: %s", bill.ID)
	}
	b := *bill
	m.bills[tenantID][bill.ID] = &b
	return nil
}

func (m *MemoryStore) DeleteBill(ctx context.Context, tenantID, billID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.bills[tenantID], billID)
	return nil
}

func (m *MemoryStore) ListBills(ctx context.Context, tenantID string) ([]*model.Bill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.Bill
	for _, bill := range m.bills[tenantID] {
		b := *bill
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Receipt operations

func (m *MemoryStore) CreateReceipt(ctx context.Context, tenantID string, receipt *model.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if receipt.ID == "" {
		receipt.ID = uuid.New().String()
	}
	if m.receipts[tenantID] == nil {
		m.receipts[tenantID] = make(map[string]*model.Receipt)
	}
	r := *receipt
	m.receipts[tenantID][receipt.ID] = &r
	return nil
}

func (m *MemoryStore) GetReceipt(ctx context.Context, tenantID, receiptID string) (*model.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	receipt, ok := m.receipts[tenantID][receiptID]
	if !ok {
		return nil, fmt.Errorf("receipt not found: %s", receiptID)
	}
	r := *receipt
	return &r, nil
}

func (m *MemoryStore) UpdateReceipt(ctx context.Context, tenantID string, receipt *model.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.receipts[tenantID][receipt.ID]; !ok {
		return fmt.Errorf("receipt not found: %s", receipt.ID)
	}
	r := *receipt
	m.receipts[tenantID][receipt.ID] = &r
	return nil
}

func (m *MemoryStore) DeleteReceipt(ctx context.Context, tenantID, receiptID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.receipts[tenantID], receiptID)
	return nil
}

func (m *MemoryStore) ListReceipts(ctx context.Context, tenantID string) ([]*model.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.Receipt
	for _, receipt := range m.receipts[tenantID] {
		r := *receipt
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CapturedAt.Equal(out[j].CapturedAt) {
			return out[i].CapturedAt.Before(out[j].CapturedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Invoice operations

func (m *MemoryStore) CreateInvoice(ctx context.Context, tenantID string, invoice *model.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if invoice.ID == "" {
		invoice.ID = uuid.New().String()
	}
	if m.invoices[tenantID] == nil {
		m.invoices[tenantID] = make(map[string]*model.Invoice)
	}
	inv := *invoice
	m.invoices[tenantID][invoice.ID] = &inv
	return nil
}

func (m *MemoryStore) GetInvoice(ctx context.Context, tenantID, invoiceID string) (*model.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	invoice, ok := m.invoices[tenantID][invoiceID]
	if !ok {
		return nil, fmt.Errorf("invoice not found: %s", invoiceID)
	}
	inv := *invoice
	return &inv, nil
}

func (m *MemoryStore) UpdateInvoice(ctx context.Context, tenantID string, invoice *model.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.invoices[tenantID][invoice.ID]; !ok {
		return fmt.Errorf("invoice not found: %s", invoice.ID)
	}
	inv := *invoice
	m.invoices[tenantID][invoice.ID] = &inv
	return nil
}

func (m *MemoryStore) DeleteInvoice(ctx context.Context, tenantID, invoiceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.invoices[tenantID], invoiceID)
	return nil
}

func (m *MemoryStore) ListInvoices(ctx context.Context, tenantID string) ([]*model.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.Invoice
	for _, invoice := range m.invoices[tenantID] {
		inv := *invoice
		out = append(out, &inv)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].IssuedAt.Before(out[j].IssuedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// cloneBatch copies a batch and its transaction slice so callers hold an
// immutable snapshot.
func cloneBatch(b *model.SourceBatch) *model.SourceBatch {
	out := *b
	out.Transactions = make([]*model.Transaction, len(b.Transactions))
	for i, txn := range b.Transactions {
		t := *txn
		out.Transactions[i] = &t
	}
	return &out
}

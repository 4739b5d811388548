// Package store persists the state the reconciliation engine depends on but
// does not own: per-tenant cached source batches, bills, receipts (including
// their transaction links) and invoices.
package store

import (
	"context"

	"github.com/castlemilk/taxledger/backend/internal/model"
)

// Store defines the database operations used by the service. All operations
// are scoped to an already-resolved tenant id.
type Store interface {
	// Source batch cache. ReplaceSourceBatch overwrites the prior cached
	// batch for (tenant, source) in full: a fresh sync invalidates every
	// previously cached record from that source.
	ReplaceSourceBatch(ctx context.Context, tenantID string, batch *model.SourceBatch) error
	GetSourceBatch(ctx context.Context, tenantID string, source model.TransactionSource) (*model.SourceBatch, error)
	ListSourceBatches(ctx context.Context, tenantID string) ([]model.SourceBatch, error)

	// Bill operations
	CreateBill(ctx context.Context, tenantID string, bill *model.Bill) error
	GetBill(ctx context.Context, tenantID, billID string) (*model.Bill, error)
	UpdateBill(ctx context.Context, tenantID string, bill *model.Bill) error
	DeleteBill(ctx context.Context, tenantID, billID string) error
	ListBills(ctx context.Context, tenantID string) ([]*model.Bill, error)

	// Receipt operations. Link state lives on the receipt record, so link
	// and unlink writes go through UpdateReceipt.
	CreateReceipt(ctx context.Context, tenantID string, receipt *model.Receipt) error
	GetReceipt(ctx context.Context, tenantID, receiptID string) (*model.Receipt, error)
	UpdateReceipt(ctx context.Context, tenantID string, receipt *model.Receipt) error
	DeleteReceipt(ctx context.Context, tenantID, receiptID string) error
	ListReceipts(ctx context.Context, tenantID string) ([]*model.Receipt, error)

	// Invoice operations
	CreateInvoice(ctx context.Context, tenantID string, invoice *model.Invoice) error
	GetInvoice(ctx context.Context, tenantID, invoiceID string) (*model.Invoice, error)
	UpdateInvoice(ctx context.Context, tenantID string, invoice *model.Invoice) error
	DeleteInvoice(ctx context.Context, tenantID, invoiceID string) error
	ListInvoices(ctx context.Context, tenantID string) ([]*model.Invoice, error)
}

package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/castlemilk/taxledger/backend/internal/model"
)

// FirestoreStore implements the Store interface using Firestore. Documents
// live under tenants/{tenantID}/{collection}; decimal amounts are stored as
// strings to avoid float drift in the database.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a new Firestore-backed store.
func NewFirestoreStore(client *firestore.Client) Store {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) tenant(tenantID string) *firestore.DocumentRef {
	return s.client.Collection("tenants").Doc(tenantID)
}

// Document shapes. Amounts are decimal strings.

type transactionDoc struct {
	ID          string             `firestore:"id"`
	Date        time.Time          `firestore:"date"`
	Vendor      string             `firestore:"vendor"`
	Amount      string             `firestore:"amount"`
	Category    string             `firestore:"category"`
	Context     string             `firestore:"context,omitempty"`
	Source      string             `firestore:"source"`
	ExternalID  string             `firestore:"externalId,omitempty"`
	Verified    bool               `firestore:"verified"`
	Attachments []model.Attachment `firestore:"attachments,omitempty"`
	Analysis    *analysisDoc       `firestore:"analysis,omitempty"`
}

type analysisDoc struct {
	DeductibleAmount string   `firestore:"deductibleAmount,omitempty"`
	RiskLabel        string   `firestore:"riskLabel"`
	RuleRefs         []string `firestore:"ruleRefs,omitempty"`
}

type sourceBatchDoc struct {
	Source       string           `firestore:"source"`
	Verified     bool             `firestore:"verified"`
	FetchedAt    time.Time        `firestore:"fetchedAt"`
	Transactions []transactionDoc `firestore:"transactions"`
}

type billDoc struct {
	ID        string     `firestore:"id"`
	Category  string     `firestore:"category"`
	Provider  string     `firestore:"provider"`
	Amount    string     `firestore:"amount"`
	DueDate   time.Time  `firestore:"dueDate"`
	Frequency string     `firestore:"frequency"`
	IsPaid    bool       `firestore:"isPaid"`
	PaidDate  *time.Time `firestore:"paidDate,omitempty"`
}

type invoiceDoc struct {
	ID       string     `firestore:"id"`
	Client   string     `firestore:"client"`
	Amount   string     `firestore:"amount"`
	Status   string     `firestore:"status"`
	IssuedAt time.Time  `firestore:"issuedAt"`
	PaidAt   *time.Time `firestore:"paidAt,omitempty"`
}

// Source batch operations

func (s *FirestoreStore) ReplaceSourceBatch(ctx context.Context, tenantID string, batch *model.SourceBatch) error {
	if batch.Source == "" {
		return fmt.Errorf("source batch missing source")
	}
	doc := toBatchDoc(batch)
	_, err := s.tenant(tenantID).Collection("sourceBatches").Doc(string(batch.Source)).Set(ctx, doc)
	if err != nil {
		return fmt.Errorf("replace source batch %s: %w", batch.Source, err)
	}
	return nil
}

func (s *FirestoreStore) GetSourceBatch(ctx context.Context, tenantID string, source model.TransactionSource) (*model.SourceBatch, error) {
	snap, err := s.tenant(tenantID).Collection("sourceBatches").Doc(string(source)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("source batch not found: %s", source)
		}
		return nil, fmt.Errorf("get source batch %s: %w", source, err)
	}
	var doc sourceBatchDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("parse source batch: %w", err)
	}
	return fromBatchDoc(&doc)
}

func (s *FirestoreStore) ListSourceBatches(ctx context.Context, tenantID string) ([]model.SourceBatch, error) {
	iter := s.tenant(tenantID).Collection("sourceBatches").Documents(ctx)
	defer iter.Stop()

	var out []model.SourceBatch
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list source batches: %w", err)
		}
		var doc sourceBatchDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("parse source batch: %w", err)
		}
		batch, err := fromBatchDoc(&doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *batch)
	}
	return out, nil
}

// Bill operations

func (s *FirestoreStore) CreateBill(ctx context.Context, tenantID string, bill *model.Bill) error {
	_, err := s.tenant(tenantID).Collection("bills").Doc(bill.ID).Set(ctx, toBillDoc(bill))
	return err
}

func (s *FirestoreStore) GetBill(ctx context.Context, tenantID, billID string) (*model.Bill, error) {
	snap, err := s.tenant(tenantID).Collection("bills").Doc(billID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("bill not found: %s", billID)
		}
		return nil, fmt.Errorf("get bill: %w", err)
	}
	var doc billDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("parse bill: %w", err)
	}
	return fromBillDoc(&doc)
}

func (s *FirestoreStore) UpdateBill(ctx context.Context, tenantID string, bill *model.Bill) error {
	_, err := s.tenant(tenantID).Collection("bills").Doc(bill.ID).Set(ctx, toBillDoc(bill))
	return err
}

func (s *FirestoreStore) DeleteBill(ctx context.Context, tenantID, billID string) error {
	_, err := s.tenant(tenantID).Collection("bills").Doc(billID).Delete(ctx)
	return err
}

func (s *FirestoreStore) ListBills(ctx context.Context, tenantID string) ([]*model.Bill, error) {
	iter := s.tenant(tenantID).Collection("bills").OrderBy("dueDate", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []*model.Bill
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list bills: %w", err)
		}
		var doc billDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("parse bill: %w", err)
		}
		bill, err := fromBillDoc(&doc)
		if err != nil {
			return nil, err
		}
		out = append(out, bill)
	}
	return out, nil
}

// Receipt operations

func (s *FirestoreStore) CreateReceipt(ctx context.Context, tenantID string, receipt *model.Receipt) error {
	_, err := s.tenant(tenantID).Collection("receipts").Doc(receipt.ID).Set(ctx, receipt)
	return err
}

func (s *FirestoreStore) GetReceipt(ctx context.Context, tenantID, receiptID string) (*model.Receipt, error) {
	snap, err := s.tenant(tenantID).Collection("receipts").Doc(receiptID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("receipt not found: %s", receiptID)
		}
		return nil, fmt.Errorf("get receipt: %w", err)
	}
	var receipt model.Receipt
	if err := snap.DataTo(&receipt); err != nil {
		return nil, fmt.Errorf("parse receipt: %w", err)
	}
	return &receipt, nil
}

func (s *FirestoreStore) UpdateReceipt(ctx context.Context, tenantID string, receipt *model.Receipt) error {
	_, err := s.tenant(tenantID).Collection("receipts").Doc(receipt.ID).Set(ctx, receipt)
	return err
}

func (s *FirestoreStore) DeleteReceipt(ctx context.Context, tenantID, receiptID string) error {
	_, err := s.tenant(tenantID).Collection("receipts").Doc(receiptID).Delete(ctx)
	return err
}

func (s *FirestoreStore) ListReceipts(ctx context.Context, tenantID string) ([]*model.Receipt, error) {
	iter := s.tenant(tenantID).Collection("receipts").OrderBy("capturedAt", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []*model.Receipt
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list receipts: %w", err)
		}
		var receipt model.Receipt
		if err := snap.DataTo(&receipt); err != nil {
			return nil, fmt.Errorf("parse receipt: %w", err)
		}
		out = append(out, &receipt)
	}
	return out, nil
}

// Invoice operations

func (s *FirestoreStore) CreateInvoice(ctx context.Context, tenantID string, invoice *model.Invoice) error {
	_, err := s.tenant(tenantID).Collection("invoices").Doc(invoice.ID).Set(ctx, toInvoiceDoc(invoice))
	return err
}

func (s *FirestoreStore) GetInvoice(ctx context.Context, tenantID, invoiceID string) (*model.Invoice, error) {
	snap, err := s.tenant(tenantID).Collection("invoices").Doc(invoiceID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("invoice not found: %s", invoiceID)
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	var doc invoiceDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("parse invoice: %w", err)
	}
	return fromInvoiceDoc(&doc)
}

func (s *FirestoreStore) UpdateInvoice(ctx context.Context, tenantID string, invoice *model.Invoice) error {
	_, err := s.tenant(tenantID).Collection("invoices").Doc(invoice.ID).Set(ctx, toInvoiceDoc(invoice))
	return err
}

func (s *FirestoreStore) DeleteInvoice(ctx context.Context, tenantID, invoiceID string) error {
	_, err := s.tenant(tenantID).Collection("invoices").Doc(invoiceID).Delete(ctx)
	return err
}

func (s *FirestoreStore) ListInvoices(ctx context.Context, tenantID string) ([]*model.Invoice, error) {
	iter := s.tenant(tenantID).Collection("invoices").OrderBy("issuedAt", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []*model.Invoice
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list invoices: %w", err)
		}
		var doc invoiceDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("parse invoice: %w", err)
		}
		invoice, err := fromInvoiceDoc(&doc)
		if err != nil {
			return nil, err
		}
		out = append(out, invoice)
	}
	return out, nil
}

// Conversions

func toBatchDoc(b *model.SourceBatch) *sourceBatchDoc {
	doc := &sourceBatchDoc{
		Source:       string(b.Source),
		Verified:     b.Verified,
		FetchedAt:    b.FetchedAt,
		Transactions: make([]transactionDoc, 0, len(b.Transactions)),
	}
	for _, txn := range b.Transactions {
		doc.Transactions = append(doc.Transactions, *toTransactionDoc(txn))
	}
	return doc
}

func fromBatchDoc(doc *sourceBatchDoc) (*model.SourceBatch, error) {
	batch := &model.SourceBatch{
		Source:       model.TransactionSource(doc.Source),
		Verified:     doc.Verified,
		FetchedAt:    doc.FetchedAt,
		Transactions: make([]*model.Transaction, 0, len(doc.Transactions)),
	}
	for i := range doc.Transactions {
		txn, err := fromTransactionDoc(&doc.Transactions[i])
		if err != nil {
			return nil, err
		}
		batch.Transactions = append(batch.Transactions, txn)
	}
	return batch, nil
}

func toTransactionDoc(t *model.Transaction) *transactionDoc {
	doc := &transactionDoc{
		ID:          t.ID,
		Date:        t.Date,
		Vendor:      t.Vendor,
		Amount:      t.Amount.String(),
		Category:    t.Category,
		Context:     t.Context,
		Source:      string(t.Source),
		ExternalID:  t.ExternalID,
		Verified:    t.Verified,
		Attachments: t.Attachments,
	}
	if t.Analysis != nil {
		a := &analysisDoc{RiskLabel: t.Analysis.RiskLabel, RuleRefs: t.Analysis.RuleRefs}
		if t.Analysis.DeductibleAmount != nil {
			a.DeductibleAmount = t.Analysis.DeductibleAmount.String()
		}
		doc.Analysis = a
	}
	return doc
}

func fromTransactionDoc(doc *transactionDoc) (*model.Transaction, error) {
	amount, err := decimal.NewFromString(doc.Amount)
	if err != nil {
		return nil, fmt.Errorf("parse transaction amount %q: %w", doc.Amount, err)
	}
	txn := &model.Transaction{
		ID:          doc.ID,
		Date:        doc.Date,
		Vendor:      doc.Vendor,
		Amount:      amount,
		Category:    doc.Category,
		Context:     doc.Context,
		Source:      model.TransactionSource(doc.Source),
		ExternalID:  doc.ExternalID,
		Verified:    doc.Verified,
		Attachments: doc.Attachments,
	}
	if doc.Analysis != nil {
		a := &model.Analysis{RiskLabel: doc.Analysis.RiskLabel, RuleRefs: doc.Analysis.RuleRefs}
		if doc.Analysis.DeductibleAmount != "" {
			d, err := decimal.NewFromString(doc.Analysis.DeductibleAmount)
			if err != nil {
				return nil, fmt.Errorf("parse deductible amount %q: %w", doc.Analysis.DeductibleAmount, err)
			}
			a.DeductibleAmount = &d
		}
		txn.Analysis = a
	}
	return txn, nil
}

func toBillDoc(b *model.Bill) *billDoc {
	return &billDoc{
		ID:        b.ID,
		Category:  string(b.Category),
		Provider:  b.Provider,
		Amount:    b.Amount.String(),
		DueDate:   b.DueDate,
		Frequency: string(b.Frequency),
		IsPaid:    b.IsPaid,
		PaidDate:  b.PaidDate,
	}
}

func fromBillDoc(doc *billDoc) (*model.Bill, error) {
	amount, err := decimal.NewFromString(doc.Amount)
	if err != nil {
		return nil, fmt.Errorf("parse bill amount %q: %w", doc.Amount, err)
	}
	return &model.Bill{
		ID:        doc.ID,
		Category:  model.BillCategory(doc.Category),
		Provider:  doc.Provider,
		Amount:    amount,
		DueDate:   doc.DueDate,
		Frequency: model.BillFrequency(doc.Frequency),
		IsPaid:    doc.IsPaid,
		PaidDate:  doc.PaidDate,
	}, nil
}

func toInvoiceDoc(inv *model.Invoice) *invoiceDoc {
	return &invoiceDoc{
		ID:       inv.ID,
		Client:   inv.Client,
		Amount:   inv.Amount.String(),
		Status:   string(inv.Status),
		IssuedAt: inv.IssuedAt,
		PaidAt:   inv.PaidAt,
	}
}

func fromInvoiceDoc(doc *invoiceDoc) (*model.Invoice, error) {
	amount, err := decimal.NewFromString(doc.Amount)
	if err != nil {
		return nil, fmt.Errorf("parse invoice amount %q: %w", doc.Amount, err)
	}
	return &model.Invoice{
		ID:       doc.ID,
		Client:   doc.Client,
		Amount:   amount,
		Status:   model.InvoiceStatus(doc.Status),
		IssuedAt: doc.IssuedAt,
		PaidAt:   doc.PaidAt,
	}, nil
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the lifecycle state of an issued invoice.
type InvoiceStatus string

const (
	InvoiceDraft InvoiceStatus = "draft"
	InvoiceSent  InvoiceStatus = "sent"
	InvoicePaid  InvoiceStatus = "paid"
)

// Invoice is an issued income document. Only paid invoices count toward gross
// income.
type Invoice struct {
	ID       string          `json:"id" firestore:"id"`
	Client   string          `json:"client" firestore:"client"`
	Amount   decimal.Decimal `json:"amount" firestore:"amount"`
	Status   InvoiceStatus   `json:"status" firestore:"status"`
	IssuedAt time.Time       `json:"issued_at" firestore:"issuedAt"`
	PaidAt   *time.Time      `json:"paid_at,omitempty" firestore:"paidAt,omitempty"`
}

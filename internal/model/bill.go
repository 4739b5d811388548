package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillCategory is the closed set of recurring bill kinds.
type BillCategory string

const (
	BillRent        BillCategory = "rent"
	BillElectricity BillCategory = "electricity"
	BillGas         BillCategory = "gas"
	BillWater       BillCategory = "water"
	BillTrash       BillCategory = "trash"
	BillInternet    BillCategory = "internet"
	BillPhone       BillCategory = "phone"
	BillInsurance   BillCategory = "insurance"
	BillOther       BillCategory = "other"
)

// BillFrequency is how often a bill recurs.
type BillFrequency string

const (
	FrequencyMonthly   BillFrequency = "monthly"
	FrequencyQuarterly BillFrequency = "quarterly"
	FrequencyAnnually  BillFrequency = "annually"
	FrequencyOneTime   BillFrequency = "one-time"
)

// Bill is a user-declared recurring obligation. Provider is the sole seed for
// payment matching and must be non-empty.
type Bill struct {
	ID        string          `json:"id" firestore:"id"`
	Category  BillCategory    `json:"category" firestore:"category"`
	Provider  string          `json:"provider" firestore:"provider"`
	Amount    decimal.Decimal `json:"amount" firestore:"amount"`
	DueDate   time.Time       `json:"due_date" firestore:"dueDate"`
	Frequency BillFrequency   `json:"frequency" firestore:"frequency"`
	IsPaid    bool            `json:"is_paid" firestore:"isPaid"`
	PaidDate  *time.Time      `json:"paid_date,omitempty" firestore:"paidDate,omitempty"`
}

// BillStatus is the derived payment state of a bill.
type BillStatus string

const (
	BillStatusPaid     BillStatus = "paid"
	BillStatusOverdue  BillStatus = "overdue"
	BillStatusDueSoon  BillStatus = "due-soon"
	BillStatusUpcoming BillStatus = "upcoming"
)

// BillWithPayments is a bill plus the transactions that plausibly paid it.
// It is recomputed on read, never persisted.
type BillWithPayments struct {
	Bill      *Bill           `json:"bill"`
	Payments  []*Transaction  `json:"payments"`
	TotalPaid decimal.Decimal `json:"total_paid"`
	Status    BillStatus      `json:"status"`
}

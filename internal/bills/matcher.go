// Package bills reconciles user-declared recurring bills against the
// canonical transaction list.
package bills

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/castlemilk/taxledger/backend/internal/model"
)

// dueSoonWindow is how far ahead a due date still counts as "due soon".
const dueSoonWindow = 7

// Match produces a BillWithPayments view for every bill. A transaction is a
// payment candidate when the bill's keyword (first whitespace token of the
// provider, case-folded) appears inside the transaction vendor, or the folded
// vendor appears inside the folded full provider name. Containment runs both
// ways to tolerate abbreviations on either side.
//
// Matching is unbounded in time and deliberately many-to-many: a transaction
// may pay several bills with overlapping provider substrings, and a one-word
// provider like "Water" can over-attribute payments. That is the accepted
// heuristic, not a defect; adding a date window would change observable
// results.
func Match(billList []*model.Bill, transactions []*model.Transaction, now time.Time) []*model.BillWithPayments {
	out := make([]*model.BillWithPayments, 0, len(billList))
	for _, bill := range billList {
		out = append(out, matchOne(bill, transactions, now))
	}
	return out
}

func matchOne(bill *model.Bill, transactions []*model.Transaction, now time.Time) *model.BillWithPayments {
	keyword := providerKeyword(bill.Provider)
	provider := strings.ToLower(strings.TrimSpace(bill.Provider))

	var payments []*model.Transaction
	total := decimal.Zero
	for _, txn := range transactions {
		vendor := strings.ToLower(txn.Vendor)
		if keyword == "" {
			continue
		}
		if strings.Contains(vendor, keyword) || strings.Contains(provider, vendor) {
			payments = append(payments, txn)
			total = total.Add(txn.Amount)
		}
	}

	return &model.BillWithPayments{
		Bill:      bill,
		Payments:  payments,
		TotalPaid: total,
		Status:    deriveStatus(bill, now),
	}
}

// providerKeyword derives the matching seed: the first whitespace-delimited
// token of the provider name, case-folded.
func providerKeyword(provider string) string {
	fields := strings.Fields(strings.ToLower(provider))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// deriveStatus computes the payment state from the user flag and the due date.
// Dates compare as calendar days: Overdue means strictly before today, DueSoon
// means due within the next 7 days inclusive.
func deriveStatus(bill *model.Bill, now time.Time) model.BillStatus {
	if bill.IsPaid {
		return model.BillStatusPaid
	}
	today := model.DateOnly(now)
	due := model.DateOnly(bill.DueDate)
	switch {
	case due.Before(today):
		return model.BillStatusOverdue
	case model.DaysBetween(today, due) <= dueSoonWindow:
		return model.BillStatusDueSoon
	default:
		return model.BillStatusUpcoming
	}
}

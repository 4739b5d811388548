package tax

import (
	"strings"

	"github.com/castlemilk/taxledger/backend/internal/model"
)

// Classify maps a transaction's free-text category to a reporting line id.
//
// The table is walked in declared order and the first line with a matching
// keyword wins: classification is a deterministic, order-sensitive function,
// not a best-match search. A keyword matches when it appears inside the
// case-folded category or the category appears inside the keyword, the same
// bidirectional containment the bill matcher uses. A transaction with an
// empty or unrecognized category classifies to the fallback line; this
// function cannot fail.
func Classify(txn *model.Transaction, table []Line) string {
	return classifyCategory(txn.Category, table)
}

func classifyCategory(category string, table []Line) string {
	folded := strings.ToLower(strings.TrimSpace(category))
	if folded == "" {
		return FallbackLineID
	}
	for _, line := range table {
		for _, kw := range line.Keywords {
			if strings.Contains(folded, kw) || strings.Contains(kw, folded) {
				return line.ID
			}
		}
	}
	return FallbackLineID
}

// Package tax maps free-text transaction categories onto a fixed table of
// reporting lines and aggregates per-line totals into a period summary.
package tax

// Line is one reporting line of the classification table: a stable id, the
// Schedule C code and label it rolls up to, and the keywords that capture it.
type Line struct {
	ID       string
	Code     string
	Label    string
	Keywords []string
}

// FallbackLineID is the designated line for transactions no rule captures.
// It is a real line in the table, never empty-matched away.
const FallbackLineID = "other"

// DefaultTable is the classification table. It is closed and ordered: the
// classifier walks it top to bottom and the first matching line wins, so the
// order here is the tie-break precedence. The fallback line sits last and also
// carries the software/subscription keywords.
var DefaultTable = []Line{
	{ID: "advertising", Code: "8", Label: "Advertising", Keywords: []string{"advertising", "marketing", "promotion"}},
	{ID: "car_truck", Code: "9", Label: "Car and truck expenses", Keywords: []string{"vehicle", "mileage", "car", "fuel"}},
	{ID: "contract_labor", Code: "11", Label: "Contract labor", Keywords: []string{"contractor", "freelance", "subcontractor"}},
	{ID: "insurance", Code: "15", Label: "Insurance", Keywords: []string{"insurance", "premium"}},
	{ID: "legal_professional", Code: "17", Label: "Legal and professional services", Keywords: []string{"legal", "accounting", "attorney", "lawyer", "cpa", "bookkeeping"}},
	{ID: "office", Code: "18", Label: "Office expense", Keywords: []string{"office", "postage", "stationery"}},
	{ID: "rent", Code: "20b", Label: "Rent or lease", Keywords: []string{"rent", "lease"}},
	{ID: "supplies", Code: "22", Label: "Supplies", Keywords: []string{"supplies", "equipment", "hardware"}},
	{ID: "travel", Code: "24a", Label: "Travel", Keywords: []string{"travel", "flight", "airfare", "hotel", "lodging"}},
	{ID: "meals", Code: "24b", Label: "Meals", Keywords: []string{"meal", "meals", "dining", "restaurant"}},
	{ID: "utilities", Code: "25", Label: "Utilities", Keywords: []string{"utilities", "utility", "electric", "internet", "phone", "water", "gas", "power"}},
	{ID: FallbackLineID, Code: "27a", Label: "Other expenses", Keywords: []string{"software", "saas", "subscription", "dues", "bank fee", "education", "misc"}},
}

// LineByID looks a line up in a table. Returns the fallback line when the id
// is unknown.
func LineByID(table []Line, id string) Line {
	var fallback Line
	for _, l := range table {
		if l.ID == id {
			return l
		}
		if l.ID == FallbackLineID {
			fallback = l
		}
	}
	return fallback
}

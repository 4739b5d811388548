package model

import "time"

// Receipt is a vaulted supporting document. A receipt links to at most one
// transaction at a time; the transaction-side lookup is a derived index.
type Receipt struct {
	ID                  string    `json:"id" firestore:"id"`
	CapturedAt          time.Time `json:"captured_at" firestore:"capturedAt"`
	DocumentRef         string    `json:"document_ref" firestore:"documentRef"`
	LinkedTransactionID string    `json:"linked_transaction_id,omitempty" firestore:"linkedTransactionId,omitempty"`
}

// SuggestionConfidence distinguishes date-window receipt suggestions from the
// lower-confidence recency fallback; the two are presented differently.
type SuggestionConfidence string

const (
	ConfidenceDateProximate SuggestionConfidence = "date-proximate"
	ConfidenceFallback      SuggestionConfidence = "fallback"
)

// ReceiptSuggestion is one candidate receipt for a transaction.
type ReceiptSuggestion struct {
	Receipt    *Receipt             `json:"receipt"`
	DayDelta   int                  `json:"day_delta"`
	Confidence SuggestionConfidence `json:"confidence"`
}

package models

import "time"

// CheckoutParams describes a hosted-checkout session to be created with the
// payment processor. Amounts are in minor units (cents).
type CheckoutParams struct {
	AmountMinorUnits int64
	Currency         string
	Description      string
	SuccessURL       string
	CancelURL        string
	TransactionID    string // attached as opaque session metadata
	CustomerEmail    string
}

// CheckoutSession is the processor's view of a hosted-checkout session.
// PaymentStatus is the only trusted source of truth for "was this paid".
type CheckoutSession struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	Status        string            `json:"status"`         // open, complete, expired
	PaymentStatus string            `json:"payment_status"` // paid, unpaid, no_payment_required
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
	ExpiresAt     int64             `json:"expires_at"`
}

// Paid reports whether the processor considers the session settled
func (s *CheckoutSession) Paid() bool {
	return s.PaymentStatus == "paid"
}

// Expired reports whether the processor-side session can no longer be reused
func (s *CheckoutSession) Expired() bool {
	if s.Status == "expired" {
		return true
	}
	return s.ExpiresAt > 0 && time.Now().Unix() >= s.ExpiresAt
}

// WebhookEvent is the envelope of a processor-pushed notification
type WebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object CheckoutSession `json:"object"`
	} `json:"data"`
}

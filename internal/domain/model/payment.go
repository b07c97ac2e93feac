package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // checkout created; awaiting provider callback
	PaymentStatusSucceeded PaymentStatus = "succeeded" // confirmed by provider and fully activated
	PaymentStatusFailed    PaymentStatus = "failed"    // rejected by provider
)

// PaymentAttempt records one provider order and its lifecycle.
// Rows are never deleted; they are the audit trail reconciliation runs over.
type PaymentAttempt struct {
	ID            string  // UUID, internal
	OrderID       string  // ULID, unique, shared with the provider
	PaymentID     *string // provider-assigned id; nil until the provider confirms
	UserID        int64   // Telegram user id
	PlanID        string
	AmountKopecks int64 // integer kopecks, never floats
	Status        PaymentStatus
	CreatedAt     time.Time
	CompletedAt   *time.Time // set when status becomes terminal
}

// Terminal reports whether the attempt reached a final state.
func (p *PaymentAttempt) Terminal() bool {
	return p.Status == PaymentStatusSucceeded || p.Status == PaymentStatusFailed
}

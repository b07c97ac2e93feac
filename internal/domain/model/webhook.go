package model

import "time"

// WebhookStatus is the provider-reported payment status.
type WebhookStatus string

const (
	WebhookStatusAuthorized WebhookStatus = "AUTHORIZED"
	WebhookStatusConfirmed  WebhookStatus = "CONFIRMED"
	WebhookStatusRejected   WebhookStatus = "REJECTED"
)

// WebhookDelivery is one row in the dedup ledger. The unique key is
// (OrderID, Status); the ledger is append-only and read before any mutation.
type WebhookDelivery struct {
	OrderID    string
	Status     WebhookStatus
	PaymentID  string
	Payload    []byte // raw provider body, kept for audit
	ReceivedAt time.Time
}

// DiscrepancyKind classifies what a reconciliation sweep found.
type DiscrepancyKind string

const (
	// Payment says succeeded but no active entitlement exists.
	DiscrepancyMissingEntitlement DiscrepancyKind = "missing_entitlement"
	// Active entitlement with no succeeded payment behind it.
	DiscrepancyOrphanEntitlement DiscrepancyKind = "orphan_entitlement"
)

// ReconciliationFinding is ephemeral; it lives for one sweep and for alerting.
type ReconciliationFinding struct {
	OrderID    string
	UserID     int64
	Kind       DiscrepancyKind
	DetectedAt time.Time
}

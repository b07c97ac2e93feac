package model

import "time"

// Entitlement grants one user access to one feature module until ExpiresAt.
// One row per (user, module); a single payment may create several.
// ExpiresAt is always ActivatedAt + plan duration, computed once by the
// activation engine; expiration flips IsActive but never deletes the row.
type Entitlement struct {
	UserID      int64
	ModuleCode  string
	PlanID      string
	ActivatedAt time.Time
	ExpiresAt   time.Time
	IsActive    bool
}

// Expired reports whether the entitlement is past its expiration at t.
func (e *Entitlement) Expired(t time.Time) bool {
	return !t.Before(e.ExpiresAt)
}

package model

import (
	"time"

	"ege-billing/internal/domain"
)

// Plan is a purchasable subscription plan. Modules lists the feature areas the
// plan entitles (one entitlement row per module); RoleGranting plans additionally
// provision a teacher profile with RoleTier.
type Plan struct {
	ID            string
	Name          string
	Modules       []string
	DurationDays  int
	PriceKopecks  int64
	RoleGranting  bool
	RoleTier      string // e.g. "teacher_basic"; empty unless RoleGranting
	CreatedAt     time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// Duration returns the entitlement lifetime at day granularity. Durations are
// stored and applied in days only; nothing downstream re-derives them from
// timestamp arithmetic.
func (p *Plan) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

// NewPlan validates and constructs a plan.
func NewPlan(id, name string, modules []string, durationDays int, priceKopecks int64, roleGranting bool, roleTier string) (*Plan, error) {
	if id == "" || name == "" || len(modules) == 0 || durationDays <= 0 || priceKopecks < 0 {
		return nil, domain.ErrInvalidArgument
	}
	if roleGranting && roleTier == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Plan{
		ID:           id,
		Name:         name,
		Modules:      modules,
		DurationDays: durationDays,
		PriceKopecks: priceKopecks,
		RoleGranting: roleGranting,
		RoleTier:     roleTier,
		CreatedAt:    time.Now(),
	}, nil
}

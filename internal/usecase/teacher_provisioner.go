// File: internal/usecase/teacher_provisioner.go
package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"ege-billing/internal/domain"
	"ege-billing/internal/domain/model"
	"ege-billing/internal/domain/ports/repository"
)

// TeacherProvisioner creates or extends the auxiliary teacher profile for
// role-granting plans. It runs only inside the activation transaction and
// takes the expiration the engine computed; it never derives its own, so the
// profile and the teacher_mode entitlement cannot disagree.
type TeacherProvisioner struct {
	profiles repository.TeacherProfileRepository
	log      *zerolog.Logger
}

func NewTeacherProvisioner(profiles repository.TeacherProfileRepository, logger *zerolog.Logger) *TeacherProvisioner {
	l := logger.With().Str("component", "TeacherProvisioner").Logger()
	return &TeacherProvisioner{profiles: profiles, log: &l}
}

func (tp *TeacherProvisioner) Provision(ctx context.Context, tx repository.Tx, userID int64, plan *model.Plan, expiresAt time.Time) error {
	// A caller passing a non-role plan here means the catalog row and the
	// activation path disagree. Hard-fail so the whole transaction rolls
	// back rather than silently skipping the profile.
	if plan.IsZero() || !plan.RoleGranting || plan.RoleTier == "" {
		return domain.ErrNotRoleGranting
	}

	existing, err := tp.profiles.FindByUser(ctx, tx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	if existing != nil {
		existing.RoleTier = plan.RoleTier
		existing.Active = true
		existing.ExpiresAt = expiresAt
		return tp.profiles.Upsert(ctx, tx, existing)
	}

	code, err := tp.uniqueCode(ctx, tx)
	if err != nil {
		return err
	}
	profile := &model.TeacherProfile{
		UserID:      userID,
		TeacherCode: code,
		RoleTier:    plan.RoleTier,
		Active:      true,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now().UTC(),
	}
	tp.log.Info().Int64("user_id", userID).Str("tier", plan.RoleTier).Msg("creating teacher profile")
	return tp.profiles.Upsert(ctx, tx, profile)
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// uniqueCode generates a short shareable teacher code, retrying on the rare
// collision.
func (tp *TeacherProvisioner) uniqueCode(ctx context.Context, tx repository.Tx) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		b := make([]byte, 6)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}
		for i := range b {
			b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
		}
		code := string(b)
		taken, err := tp.profiles.CodeExists(ctx, tx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", domain.ErrOperationFailed
}

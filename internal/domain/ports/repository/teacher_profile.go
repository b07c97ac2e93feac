package repository

import (
	"context"

	"ege-billing/internal/domain/model"
)

// TeacherProfileRepository is the port for auxiliary teacher profiles.
type TeacherProfileRepository interface {
	Upsert(ctx context.Context, tx Tx, p *model.TeacherProfile) error
	FindByUser(ctx context.Context, tx Tx, userID int64) (*model.TeacherProfile, error)
	CodeExists(ctx context.Context, tx Tx, code string) (bool, error)
}

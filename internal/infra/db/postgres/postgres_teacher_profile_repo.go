package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ege-billing/internal/domain"
	"ege-billing/internal/domain/model"
	"ege-billing/internal/domain/ports/repository"
)

var _ repository.TeacherProfileRepository = (*teacherProfileRepo)(nil)

type teacherProfileRepo struct{ pool *pgxpool.Pool }

func NewTeacherProfileRepo(pool *pgxpool.Pool) *teacherProfileRepo {
	return &teacherProfileRepo{pool: pool}
}

func (r *teacherProfileRepo) Upsert(ctx context.Context, tx repository.Tx, p *model.TeacherProfile) error {
	const q = `
INSERT INTO teacher_profiles (user_id, teacher_code, role_tier, active, expires_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (user_id) DO UPDATE SET
  role_tier=$3, active=$4, expires_at=$5;`
	_, err := execSQL(ctx, r.pool, tx, q, p.UserID, p.TeacherCode, p.RoleTier, p.Active, p.ExpiresAt, p.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *teacherProfileRepo) FindByUser(ctx context.Context, tx repository.Tx, userID int64) (*model.TeacherProfile, error) {
	const q = `SELECT user_id, teacher_code, role_tier, active, expires_at, created_at FROM teacher_profiles WHERE user_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	p := &model.TeacherProfile{}
	if err := row.Scan(&p.UserID, &p.TeacherCode, &p.RoleTier, &p.Active, &p.ExpiresAt, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *teacherProfileRepo) CodeExists(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM teacher_profiles WHERE teacher_code=$1);`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}

package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"logi-match/internal/domain"
)

// ErrProfileNotFound indica que la identidad no tiene perfil registrado.
var ErrProfileNotFound = errors.New("profile not found")

type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (domain.Profile, error)
}

type PgProfileRepository struct {
	db DBTX
}

func NewPgProfileRepository(db DBTX) *PgProfileRepository {
	return &PgProfileRepository{db: db}
}

func (r *PgProfileRepository) GetByUserID(ctx context.Context, userID string) (domain.Profile, error) {
	const query = `
		SELECT id::text, user_id::text, COALESCE(name, ''), COALESCE(role, ''), COALESCE(region, ''), created_at
		FROM profiles
		WHERE user_id::text = $1
		LIMIT 1
	`
	var profile domain.Profile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.Name,
		&profile.Role,
		&profile.Region,
		&profile.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Profile{}, ErrProfileNotFound
	}
	return profile, err
}

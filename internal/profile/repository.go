package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("profile not found")

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	CountByRole(ctx context.Context, role Role) (int, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	var p Profile
	err := r.db.QueryRow(ctx, `
		SELECT id, email, COALESCE(full_name, ''), role, created_at, updated_at
		FROM profiles
		WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to get profile %s: %w", id, err)
	}
	return &p, nil
}

func (r *postgresRepository) CountByRole(ctx context.Context, role Role) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE role = $1`, string(role)).Scan(&count); err != nil {
		return 0, fmt.Errorf("repository: failed to count profiles with role %s: %w", role, err)
	}
	return count, nil
}

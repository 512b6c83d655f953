package menu

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	ListAvailable(ctx context.Context, category string, limit int) ([]Item, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Item, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const itemColumns = `id, name, COALESCE(description, ''), price, COALESCE(image_url, ''),
	category, available, created_at, updated_at`

// ListAvailable returns items on sale, optionally restricted to one category.
// A limit of zero returns every match.
func (r *postgresRepository) ListAvailable(ctx context.Context, category string, limit int) ([]Item, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+itemColumns+`
		FROM menu_items
		WHERE available AND ($1 = '' OR category = $1)
		ORDER BY category, name
		LIMIT NULLIF($2::int, 0)`,
		category, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query menu items: %w", err)
	}

	items, err := pgx.CollectRows(rows, scanItem)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to scan menu items: %w", err)
	}
	return items, nil
}

// GetByIDs loads the given items regardless of availability. Missing ids are
// simply absent from the result.
func (r *postgresRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Item, error) {
	result := make(map[uuid.UUID]Item, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.db.Query(ctx, `SELECT `+itemColumns+` FROM menu_items WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query menu items by ids: %w", err)
	}

	items, err := pgx.CollectRows(rows, scanItem)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to scan menu items: %w", err)
	}

	for _, item := range items {
		result[item.ID] = item
	}
	return result, nil
}

func scanItem(row pgx.CollectableRow) (Item, error) {
	var item Item
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.Price,
		&item.ImageURL,
		&item.Category,
		&item.Available,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

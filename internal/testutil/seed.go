package testutil

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func SeedMenuItem(t *testing.T, pool *pgxpool.Pool, name string, price float64, available bool) uuid.UUID {
	t.Helper()

	id := uuid.Must(uuid.NewV4())
	_, err := pool.Exec(context.Background(),
		`INSERT INTO menu_items (id, name, price, image_url, category, available) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, name, price, "https://cdn.example.com/"+name+".png", "pastry", available)
	require.NoError(t, err)

	return id
}

func SeedProfile(t *testing.T, pool *pgxpool.Pool, email, role string) uuid.UUID {
	t.Helper()

	id := uuid.Must(uuid.NewV4())
	_, err := pool.Exec(context.Background(),
		`INSERT INTO profiles (id, email, full_name, role) VALUES ($1, $2, $3, $4)`,
		id, email, "Test "+role, role)
	require.NoError(t, err)

	return id
}

package menu

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

// PopularLimit is how many items the storefront home page features.
const PopularLimit = 3

type Service interface {
	List(ctx context.Context, category string) ([]Item, error)
	Popular(ctx context.Context) ([]Item, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Item, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context, category string) ([]Item, error) {
	items, err := s.repo.ListAvailable(ctx, category, 0)
	if err != nil {
		log.Error().Err(err).Str("category", category).Msg("service: failed to list menu")
		return nil, fmt.Errorf("service: failed to list menu: %w", err)
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

func (s *service) Popular(ctx context.Context) ([]Item, error) {
	items, err := s.repo.ListAvailable(ctx, "", PopularLimit)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list popular items")
		return nil, fmt.Errorf("service: failed to list popular items: %w", err)
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

func (s *service) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Item, error) {
	items, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load menu items: %w", err)
	}
	return items, nil
}

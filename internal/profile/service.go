package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

type Service interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	CountCustomers(ctx context.Context) (int, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to get profile")
		return nil, fmt.Errorf("service: failed to get profile: %w", err)
	}
	return p, nil
}

func (s *service) CountCustomers(ctx context.Context) (int, error) {
	return s.repo.CountByRole(ctx, RoleCustomer)
}

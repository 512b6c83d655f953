package order

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

// CustomerCounter reports how many profiles hold the customer role.
type CustomerCounter interface {
	CountCustomers(ctx context.Context) (int, error)
}

// Projector serves the read side: order histories, the kitchen queue and
// dashboard figures. Failed reads return an empty, non-nil result with the error.
type Projector struct {
	repo      Repository
	customers CustomerCounter
	location  *time.Location
}

func NewProjector(repo Repository, customers CustomerCounter) *Projector {
	return &Projector{
		repo:      repo,
		customers: customers,
		location:  time.UTC,
	}
}

func (p *Projector) CustomerOrders(ctx context.Context, userID uuid.UUID, q Query) ([]Order, error) {
	orders, err := p.repo.ListByUserID(ctx, userID, q)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("projector: failed to load customer orders")
		return []Order{}, fmt.Errorf("projector: customer orders: %w", err)
	}
	return orders, nil
}

func (p *Projector) OrdersByEmail(ctx context.Context, email string, q Query) ([]Order, error) {
	orders, err := p.repo.ListByEmail(ctx, email, q)
	if err != nil {
		log.Error().Err(err).Str("customer_email", email).Msg("projector: failed to load orders by email")
		return []Order{}, fmt.Errorf("projector: orders by email: %w", err)
	}
	return orders, nil
}

// Queue lists orders still being worked on, oldest first.
func (p *Projector) Queue(ctx context.Context) ([]Order, error) {
	orders, err := p.repo.ListActive(ctx)
	if err != nil {
		log.Error().Err(err).Msg("projector: failed to load order queue")
		return []Order{}, fmt.Errorf("projector: order queue: %w", err)
	}
	return orders, nil
}

// DashboardStats aggregates order figures; "today" starts at midnight of now.
func (p *Projector) DashboardStats(ctx context.Context, now time.Time) (*DashboardStats, error) {
	local := now.In(p.location)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, p.location)

	stats, err := p.repo.Stats(ctx, dayStart)
	if err != nil {
		log.Error().Err(err).Msg("projector: failed to aggregate dashboard stats")
		return &DashboardStats{}, fmt.Errorf("projector: dashboard stats: %w", err)
	}

	customers, err := p.customers.CountCustomers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("projector: failed to count customers")
		return &DashboardStats{}, fmt.Errorf("projector: dashboard stats: %w", err)
	}
	stats.TotalCustomers = customers

	return stats, nil
}

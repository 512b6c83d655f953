package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrUnknownStatus           = errors.New("unknown order status")
	ErrEmptyOrder              = errors.New("order must contain at least one item")
	ErrInvalidItem             = errors.New("invalid order item")
)

type Service interface {
	CreateOrder(ctx context.Context, orderInput *Order) (*Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus OrderStatus) (*Order, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID, paymentIntentID string) error
	CancelByPaymentIntent(ctx context.Context, paymentIntentID string) error
	SetStripeSession(ctx context.Context, orderID uuid.UUID, sessionID string) error
}

type service struct {
	orderRepo Repository
}

func NewService(orderRepo Repository) Service {
	return &service{
		orderRepo: orderRepo,
	}
}

// CreateOrder stores a pending order. The total is always the sum of the
// item lines; whatever the caller put in Total is overwritten.
func (s *service) CreateOrder(ctx context.Context, orderInput *Order) (*Order, error) {
	if len(orderInput.Items) == 0 {
		log.Warn().Msg("service: attempt to create order with no items")
		return nil, ErrEmptyOrder
	}

	for i := range orderInput.Items {
		item := &orderInput.Items[i]

		if item.MenuItemID == uuid.Nil {
			return nil, fmt.Errorf("%w: menu item id cannot be nil", ErrInvalidItem)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity for menu item %s must be greater than zero", ErrInvalidItem, item.MenuItemID)
		}
		if item.Price < 0 {
			return nil, fmt.Errorf("%w: price for menu item %s cannot be negative", ErrInvalidItem, item.MenuItemID)
		}
	}

	orderInput.Status = StatusPending
	orderInput.Total = orderInput.ItemsTotal()

	if _, err := s.orderRepo.CreateOrder(ctx, orderInput); err != nil {
		log.Error().Err(err).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().Stringer("order_id", orderInput.ID).Stringer("user_id", orderInput.UserID).Float64("total", orderInput.Total).Msg("service: order created")

	return orderInput, nil
}

func (s *service) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to fetch order by id")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}

	return order, nil
}

// UpdateOrderStatus applies a status change allowed by the transition table.
// Setting the current status again is a no-op.
func (s *service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus OrderStatus) (*Order, error) {
	if _, ok := allowedTransitions[newStatus]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, newStatus)
	}

	currentOrder, err := s.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if currentOrder.Status == newStatus {
		log.Info().Stringer("order_id", orderID).Stringer("status", newStatus).Msg("service: order status is already the same, no update needed")
		return currentOrder, nil
	}

	if !CanTransition(currentOrder.Status, newStatus) {
		log.Warn().
			Stringer("order_id", orderID).
			Stringer("current_status", currentOrder.Status).
			Stringer("new_status", newStatus).
			Msg("service: invalid status transition attempt")
		return nil, fmt.Errorf("%w: from %s to %s", ErrInvalidStatusTransition, currentOrder.Status, newStatus)
	}

	if err := s.orderRepo.UpdateOrderStatus(ctx, orderID, currentOrder.Status, newStatus); err != nil {
		if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrStatusConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service: failed to update order status: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Stringer("old_status", currentOrder.Status).Stringer("new_status", newStatus).Msg("service: order status updated")

	currentOrder.Status = newStatus
	return currentOrder, nil
}

// MarkPaid moves a pending order to paid and records the payment intent.
// Repeating it for an order that is already paid is a no-op.
func (s *service) MarkPaid(ctx context.Context, orderID uuid.UUID, paymentIntentID string) error {
	currentOrder, err := s.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}

	if currentOrder.Status == StatusPaid {
		return nil
	}

	if !CanTransition(currentOrder.Status, StatusPaid) {
		return fmt.Errorf("%w: from %s to %s", ErrInvalidStatusTransition, currentOrder.Status, StatusPaid)
	}

	if err := s.orderRepo.MarkPaid(ctx, orderID, currentOrder.Status, paymentIntentID); err != nil {
		if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrStatusConflict) {
			return err
		}
		return fmt.Errorf("service: failed to mark order paid: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Str("payment_intent_id", paymentIntentID).Msg("service: order paid")
	return nil
}

// CancelByPaymentIntent cancels the order that carries paymentIntentID.
// It returns ErrOrderNotFound when no order carries it.
func (s *service) CancelByPaymentIntent(ctx context.Context, paymentIntentID string) error {
	orderID, err := s.orderRepo.FindIDByPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return err
	}

	_, err = s.UpdateOrderStatus(ctx, orderID, StatusCancelled)
	return err
}

func (s *service) SetStripeSession(ctx context.Context, orderID uuid.UUID, sessionID string) error {
	if err := s.orderRepo.SetStripeSession(ctx, orderID, sessionID); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return err
		}
		return fmt.Errorf("service: failed to record checkout session: %w", err)
	}
	return nil
}

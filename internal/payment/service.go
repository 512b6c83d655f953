package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BrightCodeshub/BakeryShop/internal/order"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v82"
	"golang.org/x/sync/errgroup"
)

// OrderUpdater is the slice of the order service the webhook drives.
type OrderUpdater interface {
	MarkPaid(ctx context.Context, orderID uuid.UUID, paymentIntentID string) error
	CancelByPaymentIntent(ctx context.Context, paymentIntentID string) error
}

type Service interface {
	HandleEvent(ctx context.Context, event *Event) error
	Invoices(ctx context.Context, email string) ([]Invoice, error)
}

type service struct {
	repo   Repository
	orders OrderUpdater
}

func NewService(repo Repository, orders OrderUpdater) Service {
	return &service{
		repo:   repo,
		orders: orders,
	}
}

// HandleEvent applies a verified gateway event at most once. Any returned
// error should make the gateway redeliver the event.
func (s *service) HandleEvent(ctx context.Context, event *Event) error {
	logger := log.With().Str("event_id", event.ID).Str("event_type", event.Type).Logger()

	if event.ID != "" {
		processed, err := s.repo.IsEventProcessed(ctx, event.ID)
		if err != nil {
			return err
		}
		if processed {
			logger.Info().Msg("webhook event already processed, skipping")
			return nil
		}
	}

	var err error
	switch event.Type {
	case EventCheckoutSessionCompleted:
		err = s.handleCheckoutCompleted(ctx, event)
	case EventPaymentIntentSucceeded:
		err = s.handleIntentSucceeded(ctx, event)
	case EventPaymentIntentPaymentFailed:
		err = s.handleIntentFailed(ctx, event)
	default:
		logger.Info().Msg("unhandled webhook event type")
	}
	if err != nil {
		logger.Error().Err(err).Msg("webhook event processing failed")
		return err
	}

	if event.ID != "" {
		if err := s.repo.MarkEventProcessed(ctx, event.ID, event.Type); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) handleCheckoutCompleted(ctx context.Context, event *Event) error {
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data, &cs); err != nil {
		return fmt.Errorf("payment: failed to decode checkout session: %w", err)
	}

	logger := log.With().Str("event_id", event.ID).Str("session_id", cs.ID).Logger()

	rawOrderID := cs.Metadata["orderId"]
	if rawOrderID == "" {
		logger.Warn().Msg("checkout session has no orderId metadata, ignoring")
		return nil
	}
	orderID, err := uuid.FromString(rawOrderID)
	if err != nil {
		logger.Warn().Str("order_id", rawOrderID).Msg("checkout session carries a malformed orderId, ignoring")
		return nil
	}

	intentID := ""
	if cs.PaymentIntent != nil {
		intentID = cs.PaymentIntent.ID
	}

	err = s.orders.MarkPaid(ctx, orderID, intentID)
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		logger.Warn().Stringer("order_id", orderID).Msg("checkout completed for unknown order, ignoring")
		return nil
	case errors.Is(err, order.ErrInvalidStatusTransition):
		logger.Warn().Err(err).Stringer("order_id", orderID).Msg("order cannot become paid, recording payment only")
	case err != nil:
		return err
	}

	if intentID == "" {
		logger.Warn().Stringer("order_id", orderID).Msg("checkout session has no payment intent, payment row not recorded")
		return nil
	}

	p := &Payment{
		OrderID:               orderID,
		StripePaymentIntentID: intentID,
		Amount:                order.FromCents(cs.AmountTotal),
		Status:                StatusSucceeded,
	}
	created, err := s.repo.CreatePayment(ctx, p)
	if err != nil {
		return err
	}
	if !created {
		logger.Info().Str("payment_intent_id", intentID).Msg("payment already recorded")
		return nil
	}

	logger.Info().Stringer("order_id", orderID).Str("payment_intent_id", intentID).Float64("amount", p.Amount).Msg("payment recorded")
	return nil
}

func (s *service) handleIntentSucceeded(ctx context.Context, event *Event) error {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data, &pi); err != nil {
		return fmt.Errorf("payment: failed to decode payment intent: %w", err)
	}

	receiptURL := ""
	if pi.LatestCharge != nil {
		receiptURL = pi.LatestCharge.ReceiptURL
	}

	updated, err := s.repo.UpdateStatusByIntent(ctx, pi.ID, StatusSucceeded, receiptURL)
	if err != nil {
		return err
	}
	if updated == 0 {
		log.Info().Str("payment_intent_id", pi.ID).Msg("no payment for succeeded intent yet")
	}
	return nil
}

// handleIntentFailed marks the payment failed and cancels its order. The two
// updates run concurrently and neither waits on the other's failure.
func (s *service) handleIntentFailed(ctx context.Context, event *Event) error {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data, &pi); err != nil {
		return fmt.Errorf("payment: failed to decode payment intent: %w", err)
	}

	var g errgroup.Group

	g.Go(func() error {
		_, err := s.repo.UpdateStatusByIntent(ctx, pi.ID, StatusFailed, "")
		return err
	})

	g.Go(func() error {
		err := s.orders.CancelByPaymentIntent(ctx, pi.ID)
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			return nil
		case errors.Is(err, order.ErrInvalidStatusTransition):
			log.Warn().Err(err).Str("payment_intent_id", pi.ID).Msg("order for failed payment cannot be cancelled")
			return nil
		}
		return err
	})

	return g.Wait()
}

func (s *service) Invoices(ctx context.Context, email string) ([]Invoice, error) {
	invoices, err := s.repo.ListInvoicesByEmail(ctx, email)
	if err != nil {
		log.Error().Err(err).Str("customer_email", email).Msg("service: failed to load invoices")
		return []Invoice{}, fmt.Errorf("service: failed to load invoices: %w", err)
	}
	if invoices == nil {
		invoices = []Invoice{}
	}
	return invoices, nil
}

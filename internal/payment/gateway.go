package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// MinimumChargeCents is the smallest session amount the gateway accepts.
const MinimumChargeCents int64 = 50

var (
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrNoLineItems        = errors.New("checkout session needs at least one line item")
)

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params SessionParams) (*Session, error)
}

type sessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeGateway opens hosted checkout sessions. Calls go through a circuit
// breaker that opens after five consecutive outages; rejected requests do
// not count towards it.
type StripeGateway struct {
	sessions sessionCreator
	currency string
	breaker  *gobreaker.CircuitBreaker[*stripe.CheckoutSession]
}

func NewStripeGateway(secretKey, currency string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return newStripeGateway(api.CheckoutSessions, currency)
}

func newStripeGateway(sessions sessionCreator, currency string) *StripeGateway {
	settings := gobreaker.Settings{
		Name:        "stripe-checkout",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: isHealthyResponse,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Stringer("from", from).Stringer("to", to).Msg("circuit breaker state changed")
		},
	}

	return &StripeGateway{
		sessions: sessions,
		currency: currency,
		breaker:  gobreaker.NewCircuitBreaker[*stripe.CheckoutSession](settings),
	}
}

// isHealthyResponse reports whether err still proves Stripe is reachable.
// Client errors other than 429 are the caller's fault.
func isHealthyResponse(err error) bool {
	if err == nil {
		return true
	}
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	status := stripeErr.HTTPStatusCode
	return status >= 400 && status < 500 && status != http.StatusTooManyRequests
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p SessionParams) (*Session, error) {
	if len(p.LineItems) == 0 {
		return nil, ErrNoLineItems
	}

	params := g.buildParams(p)
	params.Context = ctx

	cs, err := g.breaker.Execute(func() (*stripe.CheckoutSession, error) {
		return g.sessions.New(params)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
		}
		return nil, fmt.Errorf("gateway: failed to create checkout session for order %s: %w", p.OrderID, err)
	}

	return &Session{ID: cs.ID, URL: cs.URL}, nil
}

func (g *StripeGateway) buildParams(p SessionParams) *stripe.CheckoutSessionParams {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(p.LineItems))
	for _, item := range p.LineItems {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.ImageURL != "" {
			productData.Images = stripe.StringSlice([]string{item.ImageURL})
		}

		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(g.currency),
				ProductData: productData,
				UnitAmount:  stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(p.SuccessURL),
		CancelURL:          stripe.String(p.CancelURL),
	}
	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}
	params.AddMetadata("orderId", p.OrderID)

	return params
}

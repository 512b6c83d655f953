package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BrightCodeshub/BakeryShop/internal/cart"
	"github.com/BrightCodeshub/BakeryShop/internal/menu"
	"github.com/BrightCodeshub/BakeryShop/internal/order"
	"github.com/BrightCodeshub/BakeryShop/internal/payment"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

type OrderService interface {
	CreateOrder(ctx context.Context, orderInput *order.Order) (*order.Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus order.OrderStatus) (*order.Order, error)
	SetStripeSession(ctx context.Context, orderID uuid.UUID, sessionID string) error
}

type MenuReader interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]menu.Item, error)
}

type CartClearer interface {
	Clear(ctx context.Context, cartID string) error
}

type PlaceOrderRequest struct {
	// UserID is uuid.Nil for guests; an anonymous id is generated then.
	UserID        uuid.UUID
	CustomerEmail string
	Items         []cart.Item
	// ClientTotal, when set, must match the total computed from menu prices.
	ClientTotal *float64
	CartID      string
}

type Result struct {
	OrderID   uuid.UUID `json:"order_id"`
	SessionID string    `json:"session_id"`
	URL       string    `json:"url"`
	Total     float64   `json:"total"`
}

type SessionRequest struct {
	OrderID       string
	CustomerEmail string
	Items         []cart.Item
}

type Service struct {
	orders  OrderService
	menu    MenuReader
	gateway payment.Gateway
	carts   CartClearer
	siteURL string
}

func NewService(orders OrderService, menu MenuReader, gateway payment.Gateway, carts CartClearer, siteURL string) *Service {
	return &Service{
		orders:  orders,
		menu:    menu,
		gateway: gateway,
		carts:   carts,
		siteURL: strings.TrimRight(siteURL, "/"),
	}
}

// PlaceOrder turns a cart into a pending order and a hosted payment session.
// Prices come from the menu, never from the request. When the gateway call
// fails the stored order is cancelled before the error is returned.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Result, error) {
	lines, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.menuItemID)
	}
	catalog, err := s.menu.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	draft := &order.Order{
		UserID:        req.UserID,
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		Items:         make([]order.OrderItem, 0, len(lines)),
	}
	for _, l := range lines {
		item, ok := catalog[l.menuItemID]
		if !ok {
			return nil, invalid("items", "unknown menu item %s", l.menuItemID)
		}
		if !item.Available {
			return nil, invalid("items", "%s is no longer available", item.Name)
		}
		draft.Items = append(draft.Items, order.OrderItem{
			MenuItemID:       item.ID,
			Quantity:         l.quantity,
			Price:            item.Price,
			MenuItemName:     item.Name,
			MenuItemImageURL: item.ImageURL,
		})
	}

	serverTotal := draft.ItemsTotal()
	if req.ClientTotal != nil && order.ToCents(*req.ClientTotal) != order.ToCents(serverTotal) {
		log.Warn().Float64("client_total", *req.ClientTotal).Float64("server_total", serverTotal).Msg("checkout: client total mismatch")
		return nil, invalid("total", "cart total %.2f does not match current prices (%.2f)", *req.ClientTotal, serverTotal)
	}
	if order.ToCents(serverTotal) < payment.MinimumChargeCents {
		return nil, invalid("total", "order total %.2f is below the minimum charge of %.2f", serverTotal, order.FromCents(payment.MinimumChargeCents))
	}

	if draft.UserID == uuid.Nil {
		draft.UserID, err = uuid.NewV4()
		if err != nil {
			return nil, fmt.Errorf("checkout: failed to generate anonymous user id: %w", err)
		}
	}

	created, err := s.orders.CreateOrder(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	session, err := s.openSession(ctx, created)
	if err != nil {
		s.compensate(ctx, created.ID, err)
		return nil, err
	}

	if req.CartID != "" && s.carts != nil {
		if err := s.carts.Clear(ctx, req.CartID); err != nil {
			log.Warn().Err(err).Str("cart_id", req.CartID).Stringer("order_id", created.ID).Msg("checkout: failed to clear cart after order")
		}
	}

	log.Info().Stringer("order_id", created.ID).Str("session_id", session.ID).Float64("total", created.Total).Msg("checkout: order placed")

	return &Result{
		OrderID:   created.ID,
		SessionID: session.ID,
		URL:       session.URL,
		Total:     created.Total,
	}, nil
}

// CreateSession opens a payment session for an order that already exists.
// Line items are taken from the stored order so the charged amount always
// matches its total.
func (s *Service) CreateSession(ctx context.Context, req SessionRequest) (*payment.Session, error) {
	if req.OrderID == "" || len(req.Items) == 0 || strings.TrimSpace(req.CustomerEmail) == "" {
		return nil, invalid("request", "Missing required fields")
	}

	orderID, err := uuid.FromString(req.OrderID)
	if err != nil {
		return nil, invalid("orderId", "invalid order id %q", req.OrderID)
	}

	existing, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			return nil, invalid("orderId", "order %s not found", orderID)
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if existing.Status != order.StatusPending {
		return nil, invalid("orderId", "order is %s, not awaiting payment", existing.Status)
	}
	if !strings.EqualFold(existing.CustomerEmail, strings.TrimSpace(req.CustomerEmail)) {
		return nil, invalid("customerEmail", "email does not match the order")
	}

	return s.openSession(ctx, existing)
}

func (s *Service) openSession(ctx context.Context, o *order.Order) (*payment.Session, error) {
	lineItems := make([]payment.LineItem, 0, len(o.Items))
	for _, item := range o.Items {
		lineItems = append(lineItems, payment.LineItem{
			Name:       item.MenuItemName,
			ImageURL:   item.MenuItemImageURL,
			UnitAmount: order.ToCents(item.Price),
			Quantity:   int64(item.Quantity),
		})
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payment.SessionParams{
		OrderID:       o.ID.String(),
		CustomerEmail: o.CustomerEmail,
		LineItems:     lineItems,
		SuccessURL:    s.siteURL + "/order/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.siteURL + "/order/cart",
	})
	if err != nil {
		log.Error().Err(err).Stringer("order_id", o.ID).Msg("checkout: payment session request failed")
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	// The webhook correlates on the orderId metadata, so a lost session id
	// does not block payment.
	if err := s.orders.SetStripeSession(ctx, o.ID, session.ID); err != nil {
		log.Error().Err(err).Stringer("order_id", o.ID).Str("session_id", session.ID).Msg("checkout: failed to record session id")
	}

	return session, nil
}

func (s *Service) compensate(ctx context.Context, orderID uuid.UUID, cause error) {
	ctx = context.WithoutCancel(ctx)
	if _, err := s.orders.UpdateOrderStatus(ctx, orderID, order.StatusCancelled); err != nil {
		log.Error().Err(err).AnErr("cause", cause).Stringer("order_id", orderID).Msg("checkout: failed to cancel order after gateway failure")
		return
	}
	log.Warn().AnErr("cause", cause).Stringer("order_id", orderID).Msg("checkout: order cancelled after gateway failure")
}

type line struct {
	menuItemID uuid.UUID
	quantity   int
}

// validate checks the request shape and merges repeated menu items.
func (s *Service) validate(req PlaceOrderRequest) ([]line, error) {
	if len(req.Items) == 0 {
		return nil, invalid("items", "cart is empty")
	}
	if strings.TrimSpace(req.CustomerEmail) == "" {
		return nil, invalid("customer_email", "email is required")
	}

	lines := make([]line, 0, len(req.Items))
	index := make(map[uuid.UUID]int, len(req.Items))
	for _, item := range req.Items {
		id, err := uuid.FromString(item.ID)
		if err != nil {
			return nil, invalid("items", "invalid menu item id %q", item.ID)
		}
		if item.Quantity < 1 {
			return nil, invalid("items", "quantity for %s must be at least 1", item.ID)
		}
		if i, ok := index[id]; ok {
			lines[i].quantity += item.Quantity
			continue
		}
		index[id] = len(lines)
		lines = append(lines, line{menuItemID: id, quantity: item.Quantity})
	}
	return lines, nil
}

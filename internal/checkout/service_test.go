package checkout_test

import (
	"context"
	"errors"
	"testing"

	"github.com/BrightCodeshub/BakeryShop/internal/cart"
	"github.com/BrightCodeshub/BakeryShop/internal/checkout"
	"github.com/BrightCodeshub/BakeryShop/internal/menu"
	"github.com/BrightCodeshub/BakeryShop/internal/order"
	"github.com/BrightCodeshub/BakeryShop/internal/payment"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, o *order.Order) (*order.Order, error) {
	args := m.Called(ctx, o)
	if fn, ok := args.Get(0).(func(context.Context, *order.Order) *order.Order); ok {
		return fn(ctx, o), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) GetOrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status order.OrderStatus) (*order.Order, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) SetStripeSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	return m.Called(ctx, id, sessionID).Error(0)
}

type MockMenuReader struct {
	mock.Mock
}

func (m *MockMenuReader) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]menu.Item, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]menu.Item), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, p payment.SessionParams) (*payment.Session, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Session), args.Error(1)
}

type MockCartClearer struct {
	mock.Mock
}

func (m *MockCartClearer) Clear(ctx context.Context, cartID string) error {
	return m.Called(ctx, cartID).Error(0)
}

type fixture struct {
	orders  *MockOrderService
	menu    *MockMenuReader
	gateway *MockGateway
	carts   *MockCartClearer
	svc     *checkout.Service
}

func newFixture() *fixture {
	f := &fixture{
		orders:  new(MockOrderService),
		menu:    new(MockMenuReader),
		gateway: new(MockGateway),
		carts:   new(MockCartClearer),
	}
	f.svc = checkout.NewService(f.orders, f.menu, f.gateway, f.carts, "https://bakery.example.com/")
	return f
}

func (f *fixture) assertExpectations(t *testing.T) {
	f.orders.AssertExpectations(t)
	f.menu.AssertExpectations(t)
	f.gateway.AssertExpectations(t)
	f.carts.AssertExpectations(t)
}

var croissantID = uuid.Must(uuid.FromString("0b8f6a2e-3c1d-4e5f-8a9b-7c6d5e4f3a21"))

func croissantMenu() map[uuid.UUID]menu.Item {
	return map[uuid.UUID]menu.Item{
		croissantID: {ID: croissantID, Name: "Croissant", Price: 3.50, ImageURL: "https://cdn.example.com/croissant.png", Available: true},
	}
}

func croissantCart() []cart.Item {
	return []cart.Item{{ID: croissantID.String(), Name: "Croissant", Price: 3.50, Quantity: 2}}
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestService_PlaceOrder_Croissants(t *testing.T) {
	f := newFixture()
	orderID := uuid.Must(uuid.NewV4())

	f.menu.On("GetByIDs", mock.Anything, []uuid.UUID{croissantID}).Return(croissantMenu(), nil).Once()

	var stored *order.Order
	f.orders.On("CreateOrder", mock.Anything, mock.AnythingOfType("*order.Order")).
		Run(func(args mock.Arguments) {
			o := args.Get(1).(*order.Order)
			o.ID = orderID
			o.Status = order.StatusPending
			o.Total = o.ItemsTotal()
			stored = o
		}).
		Return(func(ctx context.Context, o *order.Order) *order.Order { return o }, nil).Once()

	f.gateway.On("CreateCheckoutSession", mock.Anything, payment.SessionParams{
		OrderID:       orderID.String(),
		CustomerEmail: "a@b.com",
		LineItems: []payment.LineItem{
			{Name: "Croissant", ImageURL: "https://cdn.example.com/croissant.png", UnitAmount: 350, Quantity: 2},
		},
		SuccessURL: "https://bakery.example.com/order/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  "https://bakery.example.com/order/cart",
	}).Return(&payment.Session{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil).Once()

	f.orders.On("SetStripeSession", mock.Anything, orderID, "cs_test_1").Return(nil).Once()
	f.carts.On("Clear", mock.Anything, "cart-1").Return(nil).Once()

	result, err := f.svc.PlaceOrder(context.Background(), checkout.PlaceOrderRequest{
		CustomerEmail: "a@b.com",
		Items:         croissantCart(),
		ClientTotal:   floatPtr(7.00),
		CartID:        "cart-1",
	})
	require.NoError(t, err)

	assert.Equal(t, orderID, result.OrderID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", result.URL)
	assert.Equal(t, 7.00, result.Total)

	require.NotNil(t, stored)
	assert.Equal(t, 7.00, stored.Total)
	assert.Equal(t, order.StatusPending, stored.Status)
	assert.NotEqual(t, uuid.Nil, stored.UserID, "guests get an anonymous id")
	require.Len(t, stored.Items, 1)
	assert.Equal(t, 2, stored.Items[0].Quantity)
	assert.Equal(t, 3.50, stored.Items[0].Price)

	f.assertExpectations(t)
}

func TestService_PlaceOrder_Validation(t *testing.T) {
	tests := []struct {
		name      string
		req       checkout.PlaceOrderRequest
		menu      map[uuid.UUID]menu.Item
		wantField string
	}{
		{
			name:      "empty_cart",
			req:       checkout.PlaceOrderRequest{CustomerEmail: "a@b.com"},
			wantField: "items",
		},
		{
			name:      "missing_email",
			req:       checkout.PlaceOrderRequest{Items: croissantCart()},
			wantField: "customer_email",
		},
		{
			name: "bad_item_id",
			req: checkout.PlaceOrderRequest{CustomerEmail: "a@b.com", Items: []cart.Item{
				{ID: "croissant", Price: 3.50, Quantity: 1},
			}},
			wantField: "items",
		},
		{
			name: "zero_quantity",
			req: checkout.PlaceOrderRequest{CustomerEmail: "a@b.com", Items: []cart.Item{
				{ID: croissantID.String(), Price: 3.50, Quantity: 0},
			}},
			wantField: "items",
		},
		{
			name:      "unknown_menu_item",
			req:       checkout.PlaceOrderRequest{CustomerEmail: "a@b.com", Items: croissantCart()},
			menu:      map[uuid.UUID]menu.Item{},
			wantField: "items",
		},
		{
			name: "unavailable_item",
			req:  checkout.PlaceOrderRequest{CustomerEmail: "a@b.com", Items: croissantCart()},
			menu: map[uuid.UUID]menu.Item{
				croissantID: {ID: croissantID, Name: "Croissant", Price: 3.50, Available: false},
			},
			wantField: "items",
		},
		{
			name:      "client_total_mismatch",
			req:       checkout.PlaceOrderRequest{CustomerEmail: "a@b.com", Items: croissantCart(), ClientTotal: floatPtr(1.00)},
			menu:      croissantMenu(),
			wantField: "total",
		},
		{
			name: "below_minimum_charge",
			req: checkout.PlaceOrderRequest{CustomerEmail: "a@b.com", Items: []cart.Item{
				{ID: croissantID.String(), Quantity: 1},
			}},
			menu: map[uuid.UUID]menu.Item{
				croissantID: {ID: croissantID, Name: "Tasting crumb", Price: 0.25, Available: true},
			},
			wantField: "total",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.menu != nil {
				f.menu.On("GetByIDs", mock.Anything, mock.Anything).Return(tt.menu, nil).Once()
			}

			result, err := f.svc.PlaceOrder(context.Background(), tt.req)

			assert.Nil(t, result)
			var validationErr *checkout.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.wantField, validationErr.Field)
			f.orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
			f.assertExpectations(t)
		})
	}
}

func TestService_PlaceOrder_MergesRepeatedItems(t *testing.T) {
	f := newFixture()
	orderID := uuid.Must(uuid.NewV4())
	userID := uuid.Must(uuid.NewV4())

	f.menu.On("GetByIDs", mock.Anything, []uuid.UUID{croissantID}).Return(croissantMenu(), nil).Once()
	f.orders.On("CreateOrder", mock.Anything, mock.MatchedBy(func(o *order.Order) bool {
		return len(o.Items) == 1 && o.Items[0].Quantity == 3 && o.UserID == userID
	})).Run(func(args mock.Arguments) {
		o := args.Get(1).(*order.Order)
		o.ID = orderID
		o.Total = o.ItemsTotal()
	}).Return(func(ctx context.Context, o *order.Order) *order.Order { return o }, nil).Once()
	f.gateway.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Return(&payment.Session{ID: "cs_1", URL: "https://pay"}, nil).Once()
	f.orders.On("SetStripeSession", mock.Anything, orderID, "cs_1").Return(nil).Once()

	result, err := f.svc.PlaceOrder(context.Background(), checkout.PlaceOrderRequest{
		UserID:        userID,
		CustomerEmail: "a@b.com",
		Items: []cart.Item{
			{ID: croissantID.String(), Quantity: 1},
			{ID: croissantID.String(), Quantity: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 10.50, result.Total)
	f.assertExpectations(t)
}

func TestService_PlaceOrder_GatewayFailureCancelsOrder(t *testing.T) {
	f := newFixture()
	orderID := uuid.Must(uuid.NewV4())
	gatewayErr := errors.New("stripe: card_declined")

	f.menu.On("GetByIDs", mock.Anything, mock.Anything).Return(croissantMenu(), nil).Once()
	f.orders.On("CreateOrder", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*order.Order).ID = orderID
	}).Return(func(ctx context.Context, o *order.Order) *order.Order { return o }, nil).Once()
	f.gateway.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return(nil, gatewayErr).Once()
	f.orders.On("UpdateOrderStatus", mock.Anything, orderID, order.StatusCancelled).
		Return(&order.Order{ID: orderID, Status: order.StatusCancelled}, nil).Once()

	result, err := f.svc.PlaceOrder(context.Background(), checkout.PlaceOrderRequest{
		CustomerEmail: "a@b.com",
		Items:         croissantCart(),
		CartID:        "cart-1",
	})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, checkout.ErrGateway)
	assert.ErrorIs(t, err, gatewayErr)
	f.carts.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestService_PlaceOrder_PersistenceFailure(t *testing.T) {
	f := newFixture()
	dbErr := errors.New("connection refused")

	f.menu.On("GetByIDs", mock.Anything, mock.Anything).Return(croissantMenu(), nil).Once()
	f.orders.On("CreateOrder", mock.Anything, mock.Anything).Return(nil, dbErr).Once()

	_, err := f.svc.PlaceOrder(context.Background(), checkout.PlaceOrderRequest{
		CustomerEmail: "a@b.com",
		Items:         croissantCart(),
	})

	assert.ErrorIs(t, err, checkout.ErrPersistence)
	f.gateway.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestService_PlaceOrder_CartClearFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	orderID := uuid.Must(uuid.NewV4())

	f.menu.On("GetByIDs", mock.Anything, mock.Anything).Return(croissantMenu(), nil).Once()
	f.orders.On("CreateOrder", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*order.Order).ID = orderID
	}).Return(func(ctx context.Context, o *order.Order) *order.Order { return o }, nil).Once()
	f.gateway.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Return(&payment.Session{ID: "cs_1", URL: "https://pay"}, nil).Once()
	f.orders.On("SetStripeSession", mock.Anything, orderID, "cs_1").Return(nil).Once()
	f.carts.On("Clear", mock.Anything, "cart-1").Return(errors.New("redis down")).Once()

	result, err := f.svc.PlaceOrder(context.Background(), checkout.PlaceOrderRequest{
		CustomerEmail: "a@b.com",
		Items:         croissantCart(),
		CartID:        "cart-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay", result.URL)
	f.assertExpectations(t)
}

func TestService_CreateSession(t *testing.T) {
	orderID := uuid.Must(uuid.NewV4())
	pending := &order.Order{
		ID:            orderID,
		Status:        order.StatusPending,
		CustomerEmail: "a@b.com",
		Total:         7.00,
		Items: []order.OrderItem{
			{MenuItemID: croissantID, Quantity: 2, Price: 3.50, MenuItemName: "Croissant"},
		},
	}

	t.Run("uses_stored_prices", func(t *testing.T) {
		f := newFixture()
		f.orders.On("GetOrderByID", mock.Anything, orderID).Return(pending, nil).Once()
		f.gateway.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(p payment.SessionParams) bool {
			return len(p.LineItems) == 1 && p.LineItems[0].UnitAmount == 350 && p.LineItems[0].Quantity == 2
		})).Return(&payment.Session{ID: "cs_1", URL: "https://pay"}, nil).Once()
		f.orders.On("SetStripeSession", mock.Anything, orderID, "cs_1").Return(nil).Once()

		session, err := f.svc.CreateSession(context.Background(), checkout.SessionRequest{
			OrderID:       orderID.String(),
			CustomerEmail: "a@b.com",
			Items:         []cart.Item{{ID: croissantID.String(), Price: 0.01, Quantity: 2}},
		})
		require.NoError(t, err)
		assert.Equal(t, "https://pay", session.URL)
		f.assertExpectations(t)
	})

	t.Run("missing_fields", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.CreateSession(context.Background(), checkout.SessionRequest{OrderID: orderID.String()})

		var validationErr *checkout.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "Missing required fields", validationErr.Message)
	})

	t.Run("order_not_pending", func(t *testing.T) {
		f := newFixture()
		paid := *pending
		paid.Status = order.StatusPaid
		f.orders.On("GetOrderByID", mock.Anything, orderID).Return(&paid, nil).Once()

		_, err := f.svc.CreateSession(context.Background(), checkout.SessionRequest{
			OrderID:       orderID.String(),
			CustomerEmail: "a@b.com",
			Items:         croissantCart(),
		})
		var validationErr *checkout.ValidationError
		assert.ErrorAs(t, err, &validationErr)
		f.assertExpectations(t)
	})

	t.Run("unknown_order", func(t *testing.T) {
		f := newFixture()
		f.orders.On("GetOrderByID", mock.Anything, orderID).Return(nil, order.ErrOrderNotFound).Once()

		_, err := f.svc.CreateSession(context.Background(), checkout.SessionRequest{
			OrderID:       orderID.String(),
			CustomerEmail: "a@b.com",
			Items:         croissantCart(),
		})
		var validationErr *checkout.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "orderId", validationErr.Field)
		f.gateway.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})
}

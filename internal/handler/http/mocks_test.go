package http_test

import (
	"context"
	"testing"
	"time"

	"github.com/BrightCodeshub/BakeryShop/internal/auth"
	"github.com/BrightCodeshub/BakeryShop/internal/checkout"
	"github.com/BrightCodeshub/BakeryShop/internal/menu"
	"github.com/BrightCodeshub/BakeryShop/internal/order"
	"github.com/BrightCodeshub/BakeryShop/internal/payment"
	"github.com/BrightCodeshub/BakeryShop/internal/profile"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "handler-test-secret"

type MockMenuService struct {
	mock.Mock
}

func (m *MockMenuService) List(ctx context.Context, category string) ([]menu.Item, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]menu.Item), args.Error(1)
}

func (m *MockMenuService) Popular(ctx context.Context) ([]menu.Item, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]menu.Item), args.Error(1)
}

func (m *MockMenuService) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]menu.Item, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]menu.Item), args.Error(1)
}

type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) PlaceOrder(ctx context.Context, req checkout.PlaceOrderRequest) (*checkout.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Result), args.Error(1)
}

func (m *MockCheckoutService) CreateSession(ctx context.Context, req checkout.SessionRequest) (*payment.Session, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Session), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) HandleEvent(ctx context.Context, event *payment.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockPaymentService) Invoices(ctx context.Context, email string) ([]payment.Invoice, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payment.Invoice), args.Error(1)
}

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(payload []byte, signature string) (*payment.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Event), args.Error(1)
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, o *order.Order) (*order.Order, error) {
	args := m.Called(ctx, o)
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

func (m *MockOrderService) MarkPaid(ctx context.Context, id uuid.UUID, intentID string) error {
	return m.Called(ctx, id, intentID).Error(0)
}

func (m *MockOrderService) CancelByPaymentIntent(ctx context.Context, intentID string) error {
	return m.Called(ctx, intentID).Error(0)
}

func (m *MockOrderService) SetStripeSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	return m.Called(ctx, id, sessionID).Error(0)
}

type MockProjector struct {
	mock.Mock
}

func (m *MockProjector) CustomerOrders(ctx context.Context, userID uuid.UUID, q order.Query) ([]order.Order, error) {
	args := m.Called(ctx, userID, q)
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockProjector) OrdersByEmail(ctx context.Context, email string, q order.Query) ([]order.Order, error) {
	args := m.Called(ctx, email, q)
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockProjector) Queue(ctx context.Context) ([]order.Order, error) {
	args := m.Called(ctx)
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockProjector) DashboardStats(ctx context.Context, now time.Time) (*order.DashboardStats, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(*order.DashboardStats), args.Error(1)
}

// testAccounts is an in-memory profile table for the authenticator.
type testAccounts map[uuid.UUID]*profile.Profile

func (a testAccounts) GetByID(ctx context.Context, id uuid.UUID) (*profile.Profile, error) {
	p, ok := a[id]
	if !ok {
		return nil, profile.ErrNotFound
	}
	return p, nil
}

var (
	customerID = uuid.Must(uuid.FromString("5a0b6b1e-8f3a-4c55-9a2e-1d4f7c3b9e10"))
	employeeID = uuid.Must(uuid.FromString("6b1c7c2f-9a4b-4d66-8b3f-2e5a8d4c0f21"))
	managerID  = uuid.Must(uuid.FromString("7c2d8d3a-0b5c-4e77-9c4a-3f6b9e5d1a32"))
)

func newTestAuthenticator() *auth.Authenticator {
	return auth.NewAuthenticator(testJWTSecret, testAccounts{
		customerID: {ID: customerID, Email: "a@b.com", Role: profile.RoleCustomer},
		employeeID: {ID: employeeID, Email: "baker@bakery.com", Role: profile.RoleEmployee},
		managerID:  {ID: managerID, Email: "boss@bakery.com", Role: profile.RoleManager},
	})
}

func bearerFor(t *testing.T, userID uuid.UUID, email string) string {
	t.Helper()
	token, err := auth.NewToken(testJWTSecret, userID, email, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

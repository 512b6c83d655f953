package payment

import (
	"encoding/json"
	"time"

	"github.com/gofrs/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

type Payment struct {
	ID                    uuid.UUID `json:"id"`
	OrderID               uuid.UUID `json:"order_id"`
	StripePaymentIntentID string    `json:"stripe_payment_intent_id"`
	Amount                float64   `json:"amount"`
	Status                Status    `json:"status"`
	ReceiptURL            string    `json:"receipt_url,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Invoice is a payment shown together with the order it settled.
type Invoice struct {
	Payment
	OrderStatus   string  `json:"order_status"`
	OrderTotal    float64 `json:"order_total"`
	CustomerEmail string  `json:"customer_email"`
}

// Event types the webhook reacts to.
const (
	EventCheckoutSessionCompleted   = "checkout.session.completed"
	EventPaymentIntentSucceeded     = "payment_intent.succeeded"
	EventPaymentIntentPaymentFailed = "payment_intent.payment_failed"
)

// Event is a verified gateway notification. Data holds the raw event object.
type Event struct {
	ID   string
	Type string
	Data json.RawMessage
}

type LineItem struct {
	Name       string
	ImageURL   string
	UnitAmount int64
	Quantity   int64
}

type SessionParams struct {
	OrderID       string
	CustomerEmail string
	LineItems     []LineItem
	SuccessURL    string
	CancelURL     string
}

type Session struct {
	ID  string
	URL string
}

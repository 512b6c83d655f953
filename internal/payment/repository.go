package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	// CreatePayment inserts p unless a payment for the same intent exists.
	// It reports whether a row was written.
	CreatePayment(ctx context.Context, p *Payment) (bool, error)
	UpdateStatusByIntent(ctx context.Context, paymentIntentID string, status Status, receiptURL string) (int64, error)
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
	ListInvoicesByEmail(ctx context.Context, email string) ([]Invoice, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreatePayment(ctx context.Context, p *Payment) (bool, error) {
	if p.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return false, fmt.Errorf("repository: failed to generate payment ID: %w", err)
		}
		p.ID = id
	}
	now := time.Now().UTC()

	cmdTag, err := r.db.Exec(ctx, `
		INSERT INTO payments (id, order_id, stripe_payment_intent_id, amount, status, receipt_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
		ON CONFLICT (stripe_payment_intent_id) DO NOTHING`,
		p.ID, p.OrderID, p.StripePaymentIntentID, p.Amount, string(p.Status), p.ReceiptURL, now, now,
	)
	if err != nil {
		return false, fmt.Errorf("repository: failed to insert payment for order %s: %w", p.OrderID, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return false, nil
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return true, nil
}

func (r *postgresRepository) UpdateStatusByIntent(ctx context.Context, paymentIntentID string, status Status, receiptURL string) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE payments
		SET status = $1, receipt_url = COALESCE(NULLIF($2, ''), receipt_url), updated_at = $3
		WHERE stripe_payment_intent_id = $4`,
		string(status), receiptURL, time.Now().UTC(), paymentIntentID,
	)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to update payment %s: %w", paymentIntentID, err)
	}
	return cmdTag.RowsAffected(), nil
}

func (r *postgresRepository) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM webhook_events WHERE id = $1)`, eventID).Scan(&exists); err != nil {
		return false, fmt.Errorf("repository: failed to look up event %s: %w", eventID, err)
	}
	return exists, nil
}

func (r *postgresRepository) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO webhook_events (id, type) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		eventID, eventType,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to record event %s: %w", eventID, err)
	}
	return nil
}

func (r *postgresRepository) ListInvoicesByEmail(ctx context.Context, email string) ([]Invoice, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.order_id, p.stripe_payment_intent_id, p.amount, p.status,
			COALESCE(p.receipt_url, ''), p.created_at, p.updated_at,
			o.status, o.total, o.customer_email
		FROM payments p
		JOIN orders o ON o.id = p.order_id
		WHERE o.customer_email = $1
		ORDER BY p.created_at DESC`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query invoices: %w", err)
	}

	invoices, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Invoice, error) {
		var inv Invoice
		err := row.Scan(
			&inv.ID,
			&inv.OrderID,
			&inv.StripePaymentIntentID,
			&inv.Amount,
			&inv.Status,
			&inv.ReceiptURL,
			&inv.CreatedAt,
			&inv.UpdatedAt,
			&inv.OrderStatus,
			&inv.OrderTotal,
			&inv.CustomerEmail,
		)
		return inv, err
	})
	if err != nil {
		return nil, fmt.Errorf("repository: failed to scan invoices: %w", err)
	}
	return invoices, nil
}

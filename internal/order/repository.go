package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrDuplicateOrderID = errors.New("order with this ID already exists")
	// ErrStatusConflict means the stored status changed between read and write.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

type Repository interface {
	CreateOrder(ctx context.Context, order *Order) (uuid.UUID, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindIDByPaymentIntent(ctx context.Context, paymentIntentID string) (uuid.UUID, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from, to OrderStatus) error
	MarkPaid(ctx context.Context, orderID uuid.UUID, from OrderStatus, paymentIntentID string) error
	SetStripeSession(ctx context.Context, orderID uuid.UUID, sessionID string) error
	ListByUserID(ctx context.Context, userID uuid.UUID, q Query) ([]Order, error)
	ListByEmail(ctx context.Context, email string, q Query) ([]Order, error)
	ListActive(ctx context.Context) ([]Order, error)
	Stats(ctx context.Context, dayStart time.Time) (*DashboardStats, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const orderColumns = `id, user_id, status, total, customer_email,
	COALESCE(payment_intent_id, ''), COALESCE(stripe_session_id, ''), created_at, updated_at`

func (r *postgresRepository) CreateOrder(ctx context.Context, orderInput *Order) (orderID uuid.UUID, err error) {
	finalOrderID := orderInput.ID
	if finalOrderID == uuid.Nil {
		finalOrderID, err = uuid.NewV4()
		if err != nil {
			return uuid.Nil, fmt.Errorf("repository: failed to generate order ID: %w", err)
		}
	}
	orderInput.ID = finalOrderID

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic_value", p).Stringer("order_id", finalOrderID).Msg("Panic recovered during CreateOrder, rolling back")
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", finalOrderID).Msg("Failed to rollback transaction")
			}
		} else if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
			orderID = uuid.Nil
		}
	}()

	now := time.Now().UTC()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, status, total, customer_email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		finalOrderID,
		orderInput.UserID,
		string(orderInput.Status),
		orderInput.Total,
		orderInput.CustomerEmail,
		now,
		now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			err = ErrDuplicateOrderID
			return uuid.Nil, err
		}
		return uuid.Nil, fmt.Errorf("repository: failed to insert order: %w", err)
	}
	orderInput.CreatedAt = now
	orderInput.UpdatedAt = now

	batch := &pgx.Batch{}
	for i := range orderInput.Items {
		item := &orderInput.Items[i]

		item.ID, err = uuid.NewV4()
		if err != nil {
			return uuid.Nil, fmt.Errorf("repository: failed to generate order item ID: %w", err)
		}
		item.OrderID = finalOrderID
		item.CreatedAt = now

		batch.Queue(`
			INSERT INTO order_items (id, order_id, menu_item_id, quantity, price, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			item.ID, item.OrderID, item.MenuItemID, item.Quantity, item.Price, item.CreatedAt)
	}

	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to insert order items for order %s: %w", finalOrderID, err)
	}

	return finalOrderID, nil
}

func (r *postgresRepository) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", orderID, err)
	}

	byID := map[uuid.UUID]*Order{order.ID: order}
	if err := r.attachItems(ctx, byID, []uuid.UUID{order.ID}); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *postgresRepository) FindIDByPaymentIntent(ctx context.Context, paymentIntentID string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx,
		`SELECT id FROM orders WHERE payment_intent_id = $1 ORDER BY created_at DESC LIMIT 1`,
		paymentIntentID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrOrderNotFound
		}
		return uuid.Nil, fmt.Errorf("repository: failed to find order by payment intent %s: %w", paymentIntentID, err)
	}
	return id, nil
}

// UpdateOrderStatus moves the order from one status to another. It returns
// ErrStatusConflict when the stored status is no longer from.
func (r *postgresRepository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from, to OrderStatus) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4`,
		string(to), time.Now().UTC(), orderID, string(from),
	)
	if err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Stringer("status", to).Msg("repository: failed to update order status")
		return fmt.Errorf("repository: failed to update order status %s: %w", orderID, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return r.missOrConflict(ctx, orderID)
	}
	return nil
}

func (r *postgresRepository) MarkPaid(ctx context.Context, orderID uuid.UUID, from OrderStatus, paymentIntentID string) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET status = $1, payment_intent_id = COALESCE(NULLIF($2, ''), payment_intent_id), updated_at = $3
		WHERE id = $4 AND status = $5`,
		string(StatusPaid), paymentIntentID, time.Now().UTC(), orderID, string(from),
	)
	if err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Msg("repository: failed to mark order paid")
		return fmt.Errorf("repository: failed to mark order %s paid: %w", orderID, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return r.missOrConflict(ctx, orderID)
	}
	return nil
}

func (r *postgresRepository) SetStripeSession(ctx context.Context, orderID uuid.UUID, sessionID string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE orders SET stripe_session_id = $1, updated_at = $2 WHERE id = $3`,
		sessionID, time.Now().UTC(), orderID,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to set checkout session for order %s: %w", orderID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *postgresRepository) ListByUserID(ctx context.Context, userID uuid.UUID, q Query) ([]Order, error) {
	return r.listOrders(ctx, "user_id", userID, q)
}

func (r *postgresRepository) ListByEmail(ctx context.Context, email string, q Query) ([]Order, error) {
	return r.listOrders(ctx, "customer_email", email, q)
}

func (r *postgresRepository) ListActive(ctx context.Context) ([]Order, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status NOT IN ($1, $2)
		ORDER BY created_at ASC`,
		string(StatusCompleted), string(StatusCancelled),
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query active orders: %w", err)
	}

	return r.collectOrders(ctx, rows)
}

func (r *postgresRepository) Stats(ctx context.Context, dayStart time.Time) (*DashboardStats, error) {
	var stats DashboardStats
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE created_at >= $1),
			COALESCE(SUM(total) FILTER (WHERE status = $2), 0),
			COALESCE(SUM(total) FILTER (WHERE status = $2 AND created_at >= $1), 0)
		FROM orders`,
		dayStart, string(StatusCompleted),
	).Scan(&stats.TotalOrders, &stats.TodayOrders, &stats.TotalRevenue, &stats.TodayRevenue)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to aggregate order stats: %w", err)
	}
	return &stats, nil
}

// listOrders filters on column, which must be a trusted identifier.
func (r *postgresRepository) listOrders(ctx context.Context, column string, value any, q Query) ([]Order, error) {
	q = q.normalized()

	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE `+column+` = $1
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at < $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`,
		value, nullableTime(q.From), nullableTime(q.To), q.Limit, q.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders by %s: %w", column, err)
	}

	return r.collectOrders(ctx, rows)
}

func (r *postgresRepository) collectOrders(ctx context.Context, rows pgx.Rows) ([]Order, error) {
	defer rows.Close()

	ordersMap := make(map[uuid.UUID]*Order)
	var orderIDs []uuid.UUID

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		ordersMap[order.ID] = order
		orderIDs = append(orderIDs, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating orders: %w", err)
	}
	rows.Close()

	if len(orderIDs) == 0 {
		return []Order{}, nil
	}

	if err := r.attachItems(ctx, ordersMap, orderIDs); err != nil {
		return nil, err
	}

	result := make([]Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		result = append(result, *ordersMap[id])
	}
	return result, nil
}

func (r *postgresRepository) attachItems(ctx context.Context, ordersMap map[uuid.UUID]*Order, orderIDs []uuid.UUID) error {
	rows, err := r.db.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.menu_item_id, oi.quantity, oi.price, oi.created_at,
			mi.name, COALESCE(mi.image_url, '')
		FROM order_items oi
		JOIN menu_items mi ON mi.id = oi.menu_item_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.created_at, oi.id`,
		orderIDs,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.MenuItemID,
			&item.Quantity,
			&item.Price,
			&item.CreatedAt,
			&item.MenuItemName,
			&item.MenuItemImageURL,
		); err != nil {
			return fmt.Errorf("repository: failed to scan order item: %w", err)
		}

		if order, ok := ordersMap[item.OrderID]; ok {
			order.Items = append(order.Items, item)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("repository: failed iterating order items: %w", err)
	}
	return nil
}

func (r *postgresRepository) missOrConflict(ctx context.Context, orderID uuid.UUID) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
		return fmt.Errorf("repository: failed to check order %s: %w", orderID, err)
	}
	if !exists {
		return ErrOrderNotFound
	}
	return ErrStatusConflict
}

func scanOrder(row pgx.Row) (*Order, error) {
	var order Order
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.Status,
		&order.Total,
		&order.CustomerEmail,
		&order.PaymentIntentID,
		&order.StripeSessionID,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	order.Items = make([]OrderItem, 0)
	return &order, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

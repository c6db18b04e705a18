package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"teleshop/db"
	"teleshop/models"
)

var (
	ErrInvalidStatus = errors.New("invalid order status")
	ErrInvalidOrder  = errors.New("invalid order")
	ErrInvalidFilter = errors.New("invalid order filter")
	ErrUnknownUser   = errors.New("unknown user")
)

// StatusAllExceptCompleted is an OrderFilter status matching every unfinished order.
const StatusAllExceptCompleted = "all_except_completed"

// OrderFilter narrows ListOrders. The zero value applies no filter.
type OrderFilter struct {
	// Status is an order status, StatusAllExceptCompleted, or empty for any.
	Status string
	// From and To bound created_at as [From, To). The range applies only when
	// both are set.
	From, To time.Time
}

func (f OrderFilter) Validate() error {
	if f.Status != "" && f.Status != StatusAllExceptCompleted && !models.OrderStatus(f.Status).Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, f.Status)
	}
	if f.hasRange() && !f.From.Before(f.To) {
		return fmt.Errorf("%w: empty date range %s..%s", ErrInvalidFilter, f.From.Format(time.DateOnly), f.To.Format(time.DateOnly))
	}
	return nil
}

func (f OrderFilter) hasRange() bool {
	return !f.From.IsZero() && !f.To.IsZero()
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const orderColumns = `
	o.id, o.status, o.created_at, o.address, o.delivery_time, o.comment,
	u.id, u.username, COALESCE(u.telegram_id, ''), u.is_staff`

func scanOrder(row pgx.Row) (models.Order, error) {
	var (
		o      models.Order
		status string
	)
	err := row.Scan(
		&o.ID, &status, &o.CreatedAt, &o.Address, &o.DeliveryTime, &o.Comment,
		&o.Owner.ID, &o.Owner.Username, &o.Owner.TelegramID, &o.Owner.IsStaff,
	)
	o.Status = models.OrderStatus(status)
	return o, err
}

// ValidateOrderInput checks a checkout before anything is written.
func ValidateOrderInput(input models.CreateOrderInput) error {
	if input.UserID <= 0 {
		return fmt.Errorf("%w: user is required", ErrInvalidOrder)
	}
	if len(input.Items) == 0 {
		return fmt.Errorf("%w: no items", ErrInvalidOrder)
	}
	for _, it := range input.Items {
		if it.ProductID <= 0 || it.Quantity <= 0 {
			return fmt.Errorf("%w: product %d quantity %d", ErrInvalidOrder, it.ProductID, it.Quantity)
		}
	}
	return nil
}

// CreateOrder inserts the order with status created and its items in one
// transaction and returns the stored snapshot.
func CreateOrder(ctx context.Context, input models.CreateOrderInput) (models.Order, error) {
	if err := ValidateOrderInput(input); err != nil {
		return models.Order{}, err
	}
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return models.Order{}, err
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, input.UserID).Scan(&exists); err != nil {
		return models.Order{}, err
	}
	if !exists {
		return models.Order{}, fmt.Errorf("%w: %d", ErrUnknownUser, input.UserID)
	}

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (user_id, status, address, delivery_time, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		input.UserID, string(models.OrderStatusCreated), input.Address, input.DeliveryTime, input.Comment,
	).Scan(&id)
	if err != nil {
		return models.Order{}, fmt.Errorf("insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for _, it := range input.Items {
		batch.Queue(`INSERT INTO order_items (order_id, product_id, quantity) VALUES ($1, $2, $3)`,
			id, it.ProductID, it.Quantity)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return models.Order{}, fmt.Errorf("insert order items: %w", err)
	}

	order, ok, err := getOrder(ctx, tx, id)
	if err != nil {
		return models.Order{}, err
	}
	if !ok {
		return models.Order{}, fmt.Errorf("order %d vanished inside its own transaction", id)
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

// UpdateOrderStatus sets the status of an order and returns the snapshot after
// the write together with the status it had right before. ok is false if the
// order does not exist.
func UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus) (after models.Order, before models.OrderStatus, ok bool, err error) {
	if !status.Valid() {
		return models.Order{}, "", false, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return models.Order{}, "", false, err
	}
	defer tx.Rollback(ctx)

	var prev string
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&prev)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Order{}, "", false, nil
	}
	if err != nil {
		return models.Order{}, "", false, err
	}

	if _, err := tx.Exec(ctx, `UPDATE orders SET status = $1, updated_at = now() WHERE id = $2`, string(status), orderID); err != nil {
		return models.Order{}, "", false, fmt.Errorf("update status: %w", err)
	}
	after, ok, err = getOrder(ctx, tx, orderID)
	if err != nil || !ok {
		return models.Order{}, "", ok, err
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Order{}, "", false, err
	}
	return after, models.OrderStatus(prev), true, nil
}

// GetOrder loads one order with its owner and items.
func GetOrder(ctx context.Context, orderID int64) (models.Order, bool, error) {
	return getOrder(ctx, db.Pool, orderID)
}

func getOrder(ctx context.Context, q querier, orderID int64) (models.Order, bool, error) {
	o, err := scanOrder(q.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE o.id = $1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Order{}, false, nil
	}
	if err != nil {
		return models.Order{}, false, err
	}
	items, err := loadItems(ctx, q, []int64{o.ID})
	if err != nil {
		return models.Order{}, false, err
	}
	o.Items = items[o.ID]
	return o, true, nil
}

// ListOrders returns every order newest first for staff, and the user's own
// unfinished orders otherwise, narrowed by filter.
func ListOrders(ctx context.Context, userID int64, isStaff bool, filter OrderFilter) ([]models.Order, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	query, args := listOrdersQuery(userID, isStaff, filter)
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	items, err := loadItems(ctx, db.Pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func listOrdersQuery(userID int64, isStaff bool, filter OrderFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	completed := string(models.OrderStatusCompleted)

	if !isStaff {
		where = append(where, "o.user_id = "+arg(userID), "o.status <> "+arg(completed))
	}
	switch filter.Status {
	case "":
	case StatusAllExceptCompleted:
		if isStaff {
			where = append(where, "o.status <> "+arg(completed))
		}
	default:
		where = append(where, "o.status = "+arg(filter.Status))
	}
	if filter.hasRange() {
		where = append(where, "o.created_at >= "+arg(filter.From), "o.created_at < "+arg(filter.To))
	}

	var b strings.Builder
	b.WriteString(`
		SELECT ` + orderColumns + `
		FROM orders o
		JOIN users u ON u.id = o.user_id`)
	if len(where) > 0 {
		b.WriteString("\n\t\tWHERE " + strings.Join(where, " AND "))
	}
	b.WriteString("\n\t\tORDER BY o.created_at DESC, o.id DESC")
	return b.String(), args
}

func loadItems(ctx context.Context, q querier, orderIDs []int64) (map[int64][]models.OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT oi.order_id, oi.quantity, p.id, p.name, p.price::text, p.image
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, oi.id`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[int64][]models.OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			orderID int64
			it      models.OrderItem
			price   string
		)
		if err := rows.Scan(&orderID, &it.Quantity, &it.Product.ID, &it.Product.Name, &price, &it.Product.ImagePath); err != nil {
			return nil, err
		}
		if it.Product.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("product %d price %q: %w", it.Product.ID, price, err)
		}
		items[orderID] = append(items[orderID], it)
	}
	return items, rows.Err()
}

// ParseDeliveryTime accepts RFC 3339 or "2006-01-02 15:04" in loc. An empty
// string means no delivery time.
func ParseDeliveryTime(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", s, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: delivery time %q", ErrInvalidOrder, s)
	}
	return &t, nil
}

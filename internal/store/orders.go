package store

import (
	"context"
	"fmt"
	"strings"

	"farm-store/internal/models"
)

const orderColumns = `id, user_id, customer_name, customer_email, phone, address, product, quantity,
	total_price, status, payment_method, payment_status, notes, created_at, updated_at`

// CreateOrder inserts a new order and fills in its id and timestamps
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (user_id, customer_name, customer_email, phone, address, product,
			quantity, total_price, status, payment_method, payment_status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	row := s.db.QueryRowxContext(ctx, query,
		order.UserID, order.CustomerName, order.CustomerEmail, order.Phone, order.Address,
		order.Product, order.Quantity, order.TotalPrice, order.Status, order.PaymentMethod,
		order.PaymentStatus, order.Notes)

	return row.Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	return &order, nil
}

// UpdateOrderStatus sets the fulfilment status and returns the updated row
func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING "+orderColumns,
		status, id)
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	return &order, nil
}

// UpdatePaymentOutcome writes the payment axis (and the order status when
// non-empty) in one statement. Orders already marked Paid are left alone, so
// ErrNotFound is returned both for unknown ids and for settled payments.
func (s *Store) UpdatePaymentOutcome(ctx context.Context, id int64, paymentStatus models.PaymentStatus, status models.OrderStatus) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, `
		UPDATE orders
		SET payment_status = $1,
			status = COALESCE(NULLIF($2, ''), status),
			updated_at = NOW()
		WHERE id = $3 AND payment_status <> $4
		RETURNING `+orderColumns,
		paymentStatus, string(status), id, models.PaymentStatusPaid)
	if err != nil {
		return nil, notFound(err, "unsettled order", id)
	}
	return &order, nil
}

// DeleteOrder removes an order permanently
func (s *Store) DeleteOrder(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: order %d", ErrNotFound, id)
	}
	return nil
}

// ListOrders returns orders newest first
func (s *Store) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	query, args := buildListOrdersQuery(filter)

	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders, query, args...)
	return orders, err
}

func buildListOrdersQuery(filter models.OrderFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString("SELECT " + orderColumns + " FROM orders")
	if len(conds) > 0 {
		b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args
}

// GetDashboardTotals computes all-time order count, user count and revenue
func (s *Store) GetDashboardTotals(ctx context.Context) (*models.DashboardTotals, error) {
	var totals models.DashboardTotals
	err := s.db.GetContext(ctx, &totals, `
		SELECT
			(SELECT COUNT(*) FROM orders) AS total_orders,
			(SELECT COUNT(*) FROM users) AS total_users,
			(SELECT COALESCE(SUM(total_price), 0) FROM orders) AS total_revenue`)
	if err != nil {
		return nil, err
	}
	return &totals, nil
}

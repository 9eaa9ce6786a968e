package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"farm-store/internal/models"
	"farm-store/internal/store"
	"farm-store/internal/util"
)

// OrderService owns the order ledger: creation, payment outcome, status
// changes, deletion and verified tracking lookups.
type OrderService struct {
	orders   OrderRepository
	pricer   Pricer
	notifier Notifier
	logger   *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(orders OrderRepository, pricer Pricer, notifier Notifier) *OrderService {
	return &OrderService{
		orders:   orders,
		pricer:   pricer,
		notifier: notifier,
		logger:   util.GetLogger(),
	}
}

// CreateOrderRequest is the order form. Quantity is taken raw and coerced.
type CreateOrderRequest struct {
	UserID        *int64 `json:"-" form:"-"`
	CustomerEmail string `json:"-" form:"-"`
	CustomerName  string `json:"name" form:"name"`
	Phone         string `json:"phone" form:"phone"`
	Address       string `json:"address" form:"address"`
	Product       string `json:"product" form:"product"`
	Quantity      string `json:"quantity" form:"quantity"`
	PaymentMethod string `json:"payment_method" form:"payment_method"`
	Notes         string `json:"notes" form:"notes"`
}

// TrackingQuery is a customer's request to view an order. At least one of
// Phone, Email or UserID has to match the order for access to be granted.
type TrackingQuery struct {
	OrderID int64
	Phone   string
	Email   string
	UserID  int64
}

// CreateOrder validates the form, prices it from the catalog and persists a
// Pending order.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	name := strings.TrimSpace(req.CustomerName)
	phone := strings.TrimSpace(req.Phone)
	address := strings.TrimSpace(req.Address)

	if err := missingFields(map[string]string{
		"name":    name,
		"phone":   phone,
		"address": address,
	}, "name", "phone", "address"); err != nil {
		util.OrdersRejectedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	product := strings.TrimSpace(req.Product)
	quantity := models.ParseQuantity(req.Quantity)
	unitPrice := s.pricer.PriceOf(ctx, product)
	if unitPrice > 0 && int64(quantity) > math.MaxInt64/unitPrice {
		util.OrdersRejectedTotal.WithLabelValues("validation").Inc()
		return nil, &ValidationError{Fields: []string{"quantity"}, Reason: "quantity is too large"}
	}

	order := &models.Order{
		UserID:        req.UserID,
		CustomerName:  name,
		CustomerEmail: models.NormalizeEmail(req.CustomerEmail),
		Phone:         phone,
		Address:       address,
		Product:       product,
		Quantity:      quantity,
		TotalPrice:    unitPrice * int64(quantity),
		Status:        models.OrderStatusPending,
		PaymentMethod: models.ParsePaymentMethod(req.PaymentMethod),
		PaymentStatus: models.PaymentStatusPending,
		Notes:         strings.TrimSpace(req.Notes),
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		util.OrdersRejectedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	span.SetAttributes(attribute.Int64("order_id", order.ID))
	util.OrdersCreatedTotal.WithLabelValues(string(order.PaymentMethod)).Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.String("product", order.Product),
		zap.Int("quantity", order.Quantity),
		zap.Int64("total_price", order.TotalPrice),
		zap.String("payment_method", string(order.PaymentMethod)))

	s.notifier.NotifyOrderCreated(ctx, order)
	return order, nil
}

// GetOrder retrieves an order by ID
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	order, err := s.orders.GetOrderByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return order, nil
}

// RecordPaymentOutcome applies a simulated gateway result. Paid is terminal:
// a repeated success is a no-op and a later failure is ignored.
func (s *OrderService) RecordPaymentOutcome(ctx context.Context, id int64, succeeded bool) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.RecordPaymentOutcome", attribute.Int64("order_id", id))
	defer span.End()

	current, err := s.orders.GetOrderByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if current.PaymentStatus == models.PaymentStatusPaid {
		util.PaymentOutcomesTotal.WithLabelValues("already_paid").Inc()
		return current, nil
	}

	paymentStatus, status, outcome := models.PaymentStatusFailed, models.OrderStatus(""), "failed"
	if succeeded {
		paymentStatus, status, outcome = models.PaymentStatusPaid, models.OrderStatusPaid, "succeeded"
	}

	updated, err := s.orders.UpdatePaymentOutcome(ctx, id, paymentStatus, status)
	if errors.Is(err, store.ErrNotFound) {
		// Settled concurrently or deleted; report whatever is there now.
		return s.GetOrder(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record payment outcome: %w", err)
	}

	util.PaymentOutcomesTotal.WithLabelValues(outcome).Inc()
	s.logger.Info("Payment outcome recorded",
		zap.Int64("order_id", id),
		zap.String("payment_status", string(updated.PaymentStatus)),
		zap.String("status", string(updated.Status)))

	if succeeded {
		s.notifier.NotifyPaymentReceived(ctx, updated)
	}
	return updated, nil
}

// UpdateStatus sets the fulfilment status. Unknown values are stored as
// Pending (see models.CoerceOrderStatus).
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, rawStatus string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus", attribute.Int64("order_id", id))
	defer span.End()

	status := models.CoerceOrderStatus(rawStatus)
	if string(status) != strings.TrimSpace(rawStatus) {
		s.logger.Warn("Unrecognised order status coerced",
			zap.Int64("order_id", id),
			zap.String("requested", rawStatus),
			zap.String("stored", string(status)))
	}

	order, err := s.orders.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		return nil, translate(err)
	}

	util.OrderStatusUpdatesTotal.WithLabelValues(string(status)).Inc()
	s.logger.Info("Order status updated",
		zap.Int64("order_id", id),
		zap.String("status", string(status)))

	s.notifier.NotifyStatusChanged(ctx, order)
	return order, nil
}

// DeleteOrder permanently removes an order.
func (s *OrderService) DeleteOrder(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "OrderService.DeleteOrder", attribute.Int64("order_id", id))
	defer span.End()

	if err := s.orders.DeleteOrder(ctx, id); err != nil {
		return translate(err)
	}
	util.OrdersDeletedTotal.Inc()
	s.logger.Info("Order deleted", zap.Int64("order_id", id))
	return nil
}

// ListOrders returns orders newest first.
func (s *OrderService) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	orders, err := s.orders.ListOrders(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// FindForTracking returns the order only if the caller proves a link to it.
// A refused lookup carries no order data.
func (s *OrderService) FindForTracking(ctx context.Context, q TrackingQuery) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.FindForTracking", attribute.Int64("order_id", q.OrderID))
	defer span.End()

	order, err := s.orders.GetOrderByID(ctx, q.OrderID)
	if err != nil {
		util.TrackingLookupsTotal.WithLabelValues("not_found").Inc()
		return nil, translate(err)
	}

	if !canTrack(order, q) {
		util.TrackingLookupsTotal.WithLabelValues("denied").Inc()
		return nil, ErrAccessDenied
	}

	util.TrackingLookupsTotal.WithLabelValues("granted").Inc()
	return order, nil
}

func canTrack(order *models.Order, q TrackingQuery) bool {
	phone := strings.TrimSpace(q.Phone)
	if phone != "" && phone == order.Phone {
		return true
	}
	email := models.NormalizeEmail(q.Email)
	if email != "" && order.CustomerEmail != "" && email == models.NormalizeEmail(order.CustomerEmail) {
		return true
	}
	return order.OwnedBy(q.UserID)
}

// translate maps repository sentinels onto service errors.
func translate(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

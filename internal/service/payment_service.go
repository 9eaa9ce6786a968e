package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"farm-store/internal/models"
	"farm-store/internal/util"
)

// PaymentService drives the simulated online payment page. There is no real
// gateway; the customer picks the outcome.
type PaymentService struct {
	orders *OrderService
	logger *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(orders *OrderService) *PaymentService {
	return &PaymentService{
		orders: orders,
		logger: util.GetLogger(),
	}
}

// PaymentOrder loads an ONLINE order for its owner so the payment page can
// show the amount.
func (ps *PaymentService) PaymentOrder(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	order, err := ps.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.OwnedBy(userID) {
		return nil, ErrAccessDenied
	}
	if order.PaymentMethod != models.PaymentMethodOnline {
		return nil, &ValidationError{Fields: []string{"payment_method"}, Reason: "order is cash on delivery"}
	}
	return order, nil
}

// SimulatePayment records the outcome chosen on the payment page. Only the
// action "success" counts as a successful payment.
func (ps *PaymentService) SimulatePayment(ctx context.Context, userID, orderID int64, action string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.SimulatePayment", attribute.Int64("order_id", orderID))
	defer span.End()

	if _, err := ps.PaymentOrder(ctx, userID, orderID); err != nil {
		return nil, err
	}

	succeeded := strings.EqualFold(strings.TrimSpace(action), "success")
	ps.logger.Info("Simulated payment submitted",
		zap.Int64("order_id", orderID),
		zap.Int64("user_id", userID),
		zap.Bool("succeeded", succeeded))

	return ps.orders.RecordPaymentOutcome(ctx, orderID, succeeded)
}

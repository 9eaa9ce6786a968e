package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"farm-store/internal/models"
	"farm-store/internal/util"
)

// EventWriter is the publishing side of a Producer.
type EventWriter interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// OrderNotifier is what the publisher falls back to when Kafka is unavailable.
type OrderNotifier interface {
	NotifyOrderCreated(ctx context.Context, order *models.Order)
	NotifyStatusChanged(ctx context.Context, order *models.Order)
	NotifyPaymentReceived(ctx context.Context, order *models.Order)
}

// EventPublisher hands committed order changes to Kafka so notifications are
// sent off the request path. It satisfies the service Notifier contract.
type EventPublisher struct {
	producer EventWriter
	fallback OrderNotifier
	logger   *zap.Logger
}

// NewEventPublisher creates a new event publisher. fallback may be nil; when
// set it receives any event that could not be published.
func NewEventPublisher(producer EventWriter, fallback OrderNotifier) *EventPublisher {
	return &EventPublisher{
		producer: producer,
		fallback: fallback,
		logger:   util.GetLogger(),
	}
}

// NotifyOrderCreated publishes ORDER_CREATED
func (ep *EventPublisher) NotifyOrderCreated(ctx context.Context, order *models.Order) {
	if ep.publish(ctx, models.EventTypeOrderCreated, order) != nil && ep.fallback != nil {
		ep.fallback.NotifyOrderCreated(ctx, order)
	}
}

// NotifyStatusChanged publishes ORDER_STATUS_CHANGED
func (ep *EventPublisher) NotifyStatusChanged(ctx context.Context, order *models.Order) {
	if ep.publish(ctx, models.EventTypeStatusChanged, order) != nil && ep.fallback != nil {
		ep.fallback.NotifyStatusChanged(ctx, order)
	}
}

// NotifyPaymentReceived publishes ORDER_PAYMENT_RECEIVED
func (ep *EventPublisher) NotifyPaymentReceived(ctx context.Context, order *models.Order) {
	if ep.publish(ctx, models.EventTypePaymentReceived, order) != nil && ep.fallback != nil {
		ep.fallback.NotifyPaymentReceived(ctx, order)
	}
}

func (ep *EventPublisher) publish(ctx context.Context, eventType string, order *models.Order) error {
	event := &models.OrderEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: time.Now(),
		},
		Order: *order,
	}

	key := fmt.Sprintf("order-%d", order.ID)
	if err := ep.producer.PublishEvent(ctx, key, event); err != nil {
		ep.logger.Error("Failed to publish order event",
			zap.String("event_type", eventType),
			zap.Int64("order_id", order.ID),
			zap.Error(err))
		return err
	}
	return nil
}

// EventHandler routes consumed order events to registered callbacks.
type EventHandler struct {
	onOrderCreated    func(context.Context, *models.Order) error
	onStatusChanged   func(context.Context, *models.Order) error
	onPaymentReceived func(context.Context, *models.Order) error
	logger            *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnOrderCreated registers a handler for ORDER_CREATED events
func (eh *EventHandler) OnOrderCreated(handler func(context.Context, *models.Order) error) {
	eh.onOrderCreated = handler
}

// OnStatusChanged registers a handler for ORDER_STATUS_CHANGED events
func (eh *EventHandler) OnStatusChanged(handler func(context.Context, *models.Order) error) {
	eh.onStatusChanged = handler
}

// OnPaymentReceived registers a handler for ORDER_PAYMENT_RECEIVED events
func (eh *EventHandler) OnPaymentReceived(handler func(context.Context, *models.Order) error) {
	eh.onPaymentReceived = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var event models.OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal order event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("event_type", event.EventType),
		zap.String("event_id", event.EventID),
		zap.Int64("order_id", event.Order.ID))

	var handler func(context.Context, *models.Order) error
	switch event.EventType {
	case models.EventTypeOrderCreated:
		handler = eh.onOrderCreated
	case models.EventTypeStatusChanged:
		handler = eh.onStatusChanged
	case models.EventTypePaymentReceived:
		handler = eh.onPaymentReceived
	default:
		eh.logger.Warn("Unhandled event type", zap.String("event_type", event.EventType))
		return nil
	}

	if handler == nil {
		return nil
	}
	return handler(ctx, &event.Order)
}

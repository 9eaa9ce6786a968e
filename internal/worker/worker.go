package worker

import (
	"context"

	"go.uber.org/zap"

	"farm-store/internal/broker"
	"farm-store/internal/models"
	"farm-store/internal/util"
)

// Dispatcher sends the notifications for one order event.
type Dispatcher interface {
	NotifyOrderCreated(ctx context.Context, order *models.Order)
	NotifyStatusChanged(ctx context.Context, order *models.Order)
	NotifyPaymentReceived(ctx context.Context, order *models.Order)
}

// NotificationWorker consumes order events and sends the matching
// notifications.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, dispatcher Dispatcher) *NotificationWorker {
	return &NotificationWorker{
		consumer:     consumer,
		eventHandler: NewEventHandler(dispatcher),
		logger:       util.GetLogger(),
	}
}

// NewEventHandler wires dispatcher into a broker.EventHandler. Dispatch
// failures are absorbed by the dispatcher, so every event is committed.
func NewEventHandler(dispatcher Dispatcher) *broker.EventHandler {
	eh := broker.NewEventHandler()
	eh.OnOrderCreated(func(ctx context.Context, o *models.Order) error {
		dispatcher.NotifyOrderCreated(ctx, o)
		return nil
	})
	eh.OnStatusChanged(func(ctx context.Context, o *models.Order) error {
		dispatcher.NotifyStatusChanged(ctx, o)
		return nil
	})
	eh.OnPaymentReceived(func(ctx context.Context, o *models.Order) error {
		dispatcher.NotifyPaymentReceived(ctx, o)
		return nil
	})
	return eh
}

// Start blocks consuming events until ctx is cancelled.
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}

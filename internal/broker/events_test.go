package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farm-store/internal/models"
)

type capturedMessage struct {
	key   string
	value []byte
}

type fakeWriter struct {
	messages []capturedMessage
	err      error
}

func (f *fakeWriter) PublishEvent(_ context.Context, key string, event interface{}) error {
	if f.err != nil {
		return f.err
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	f.messages = append(f.messages, capturedMessage{key: key, value: raw})
	return nil
}

type countingNotifier struct {
	created, changed, paid int
}

func (c *countingNotifier) NotifyOrderCreated(context.Context, *models.Order)    { c.created++ }
func (c *countingNotifier) NotifyStatusChanged(context.Context, *models.Order)   { c.changed++ }
func (c *countingNotifier) NotifyPaymentReceived(context.Context, *models.Order) { c.paid++ }

func TestPublisherRoundTripThroughHandler(t *testing.T) {
	writer := &fakeWriter{}
	fallback := &countingNotifier{}
	pub := NewEventPublisher(writer, fallback)

	order := &models.Order{ID: 11, Product: "Curd (200g)", Status: models.OrderStatusDelivered}
	ctx := context.Background()
	pub.NotifyOrderCreated(ctx, order)
	pub.NotifyStatusChanged(ctx, order)
	pub.NotifyPaymentReceived(ctx, order)

	require.Len(t, writer.messages, 3)
	assert.Equal(t, "order-11", writer.messages[0].key)
	assert.Zero(t, fallback.created+fallback.changed+fallback.paid)

	var seen []string
	handler := NewEventHandler()
	record := func(kind string) func(context.Context, *models.Order) error {
		return func(_ context.Context, o *models.Order) error {
			assert.Equal(t, int64(11), o.ID)
			assert.Equal(t, models.OrderStatusDelivered, o.Status)
			seen = append(seen, kind)
			return nil
		}
	}
	handler.OnOrderCreated(record("created"))
	handler.OnStatusChanged(record("changed"))
	handler.OnPaymentReceived(record("paid"))

	for _, m := range writer.messages {
		require.NoError(t, handler.HandleMessage(ctx, kafka.Message{Key: []byte(m.key), Value: m.value}))
	}
	assert.Equal(t, []string{"created", "changed", "paid"}, seen)
}

func TestPublisherFallsBackWhenKafkaFails(t *testing.T) {
	fallback := &countingNotifier{}
	pub := NewEventPublisher(&fakeWriter{err: errors.New("broker down")}, fallback)

	order := &models.Order{ID: 3}
	pub.NotifyOrderCreated(context.Background(), order)
	pub.NotifyPaymentReceived(context.Background(), order)

	assert.Equal(t, 1, fallback.created)
	assert.Equal(t, 1, fallback.paid)
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	err := NewEventHandler().HandleMessage(context.Background(), kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)
}

func TestHandleMessageIgnoresUnknownType(t *testing.T) {
	raw, _ := json.Marshal(models.OrderEvent{BaseEvent: models.BaseEvent{EventType: "SOMETHING_ELSE"}})
	assert.NoError(t, NewEventHandler().HandleMessage(context.Background(), kafka.Message{Value: raw}))
}

func TestMessageEventType(t *testing.T) {
	event := &models.OrderEvent{BaseEvent: models.BaseEvent{EventType: models.EventTypeStatusChanged}}
	te, ok := interface{}(event).(typedEvent)
	require.True(t, ok)
	assert.Equal(t, models.EventTypeStatusChanged, te.Type())

	msg := kafka.Message{Headers: []kafka.Header{{Key: headerEventType, Value: []byte(te.Type())}}}
	assert.Equal(t, models.EventTypeStatusChanged, messageEventType(msg))
	assert.Equal(t, "unknown", messageEventType(kafka.Message{}))
}

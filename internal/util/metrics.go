package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farm_orders_created_total",
		Help: "Total number of orders created",
	}, []string{"payment_method"})

	OrdersRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farm_orders_rejected_total",
		Help: "Total number of order submissions rejected before persisting",
	}, []string{"reason"})

	OrderStatusUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farm_order_status_updates_total",
		Help: "Total number of admin status updates by resulting status",
	}, []string{"status"})

	OrdersDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "farm_orders_deleted_total",
		Help: "Total number of orders deleted by an admin",
	})

	PaymentOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farm_payment_outcomes_total",
		Help: "Total number of simulated payment outcomes recorded",
	}, []string{"outcome"})

	TrackingLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farm_tracking_lookups_total",
		Help: "Total number of tracking lookups by result",
	}, []string{"result"})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farm_notifications_total",
		Help: "Total number of notification attempts by channel and result",
	}, []string{"channel", "result"})

	NotificationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "farm_notification_latency_seconds",
		Help:    "Latency of outbound notification calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"channel"})

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farm_events_published_total",
		Help: "Total number of order events written to Kafka",
	}, []string{"event_type", "result"})

	EventsConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farm_events_consumed_total",
		Help: "Total number of order events read by the notification worker",
	}, []string{"event_type", "result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)

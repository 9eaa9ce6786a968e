package service

import (
	"context"
	"time"

	"farm-store/internal/models"
)

// OrderRepository is the ledger persistence used by the services.
// *store.Store implements it.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) (*models.Order, error)
	UpdatePaymentOutcome(ctx context.Context, id int64, paymentStatus models.PaymentStatus, status models.OrderStatus) (*models.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	GetDashboardTotals(ctx context.Context) (*models.DashboardTotals, error)
}

// UserRepository is the credential persistence. *store.Store implements it.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

// Notifier receives ledger changes after they are committed. Implementations
// must not fail the caller; delivery problems are theirs to log.
type Notifier interface {
	NotifyOrderCreated(ctx context.Context, order *models.Order)
	NotifyStatusChanged(ctx context.Context, order *models.Order)
	NotifyPaymentReceived(ctx context.Context, order *models.Order)
}

// Pricer resolves the current unit price of a product by name.
type Pricer interface {
	PriceOf(ctx context.Context, product string) int64
}

// ResetMailer sends password reset links.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, to, link string, validFor time.Duration) error
}

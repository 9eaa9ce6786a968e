package models

import (
	"strconv"
	"strings"
	"time"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

// Order statuses
const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusPaid       OrderStatus = "Paid"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// OrderStatuses lists every recognised status in display order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusPaid,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// Valid reports whether s is one of the five recognised statuses.
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// CoerceOrderStatus maps admin input onto an OrderStatus. Unrecognised values
// become Pending instead of being rejected; existing clients rely on this.
func CoerceOrderStatus(raw string) OrderStatus {
	s := OrderStatus(strings.TrimSpace(raw))
	if s.Valid() {
		return s
	}
	return OrderStatusPending
}

// PaymentMethod is how the customer intends to pay.
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "COD"
	PaymentMethodOnline PaymentMethod = "ONLINE"
)

// ParsePaymentMethod treats anything other than ONLINE as cash on delivery.
func ParsePaymentMethod(raw string) PaymentMethod {
	if strings.EqualFold(strings.TrimSpace(raw), string(PaymentMethodOnline)) {
		return PaymentMethodOnline
	}
	return PaymentMethodCOD
}

// PaymentStatus is the payment axis of an order, independent of OrderStatus.
type PaymentStatus string

// Payment statuses
const (
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPaid    PaymentStatus = "Paid"
	PaymentStatusFailed  PaymentStatus = "Failed"
)

// ParseQuantity coerces form input to a positive quantity, defaulting to 1.
// Anything that does not fit the 32-bit quantity column also becomes 1.
func ParseQuantity(raw string) int {
	q, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
	if err != nil || q <= 0 {
		return 1
	}
	return int(q)
}

// User is a registered customer account
type User struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// NormalizeEmail lower-cases and trims an address for storage and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Order represents a customer order. TotalPrice is a snapshot taken at
// creation and is not recomputed when catalog prices change.
type Order struct {
	ID            int64         `db:"id" json:"id"`
	UserID        *int64        `db:"user_id" json:"user_id,omitempty"`
	CustomerName  string        `db:"customer_name" json:"customer_name"`
	CustomerEmail string        `db:"customer_email" json:"customer_email,omitempty"`
	Phone         string        `db:"phone" json:"phone"`
	Address       string        `db:"address" json:"address"`
	Product       string        `db:"product" json:"product"`
	Quantity      int           `db:"quantity" json:"quantity"`
	TotalPrice    int64         `db:"total_price" json:"total_price"`
	Status        OrderStatus   `db:"status" json:"status"`
	PaymentMethod PaymentMethod `db:"payment_method" json:"payment_method"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"payment_status"`
	Notes         string        `db:"notes" json:"notes"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// OwnedBy reports whether the order belongs to the given user.
func (o *Order) OwnedBy(userID int64) bool {
	return userID != 0 && o.UserID != nil && *o.UserID == userID
}

// OrderFilter narrows ListOrders. Zero values mean "no filter".
type OrderFilter struct {
	UserID *int64
	Status OrderStatus
	Limit  int
}

// DashboardTotals are all-time aggregates over the ledger.
type DashboardTotals struct {
	TotalOrders  int   `db:"total_orders" json:"total_orders"`
	TotalUsers   int   `db:"total_users" json:"total_users"`
	TotalRevenue int64 `db:"total_revenue" json:"total_revenue"`
}

// CatalogItem is a purchasable product. Price is in the smallest currency unit.
type CatalogItem struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// PaymentInstructions tell COD customers how to pay ahead if they want to.
type PaymentInstructions struct {
	BankAccount string `json:"bank_account"`
	UPI         string `json:"upi"`
	Note        string `json:"note"`
}

// Settings is the operator-editable singleton record.
type Settings struct {
	OwnerWhatsApp       string              `json:"owner_whatsapp"`
	OwnerEmail          string              `json:"owner_email"`
	PaymentInstructions PaymentInstructions `json:"payment_instructions"`
}

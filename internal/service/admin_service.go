package service

import (
	"context"
	"crypto/subtle"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"farm-store/internal/models"
	"farm-store/internal/notify"
	"farm-store/internal/util"
)

const recentOrdersOnDashboard = 6

var csvHeader = []string{
	"ID", "Customer", "Phone", "Address", "Product", "Quantity", "TotalPrice",
	"Status", "PaymentMethod", "PaymentStatus", "Email", "UserID", "Notes", "CreatedAt",
}

// Dashboard is the admin landing page.
type Dashboard struct {
	Totals       *models.DashboardTotals `json:"totals"`
	RecentOrders []models.Order          `json:"recent_orders"`
	Catalog      []models.CatalogItem    `json:"products"`
	Settings     *models.Settings        `json:"settings"`
}

// UserDetail is one customer with their orders.
type UserDetail struct {
	User   *models.User   `json:"user"`
	Orders []models.Order `json:"orders"`
}

// AdminService backs the operator console.
type AdminService struct {
	username string
	password string
	orders   OrderRepository
	users    UserRepository
	catalog  *CatalogService
	settings *SettingsService
	logger   *zap.Logger
}

func NewAdminService(username, password string, orders OrderRepository, users UserRepository, catalog *CatalogService, settings *SettingsService) *AdminService {
	return &AdminService{
		username: username,
		password: password,
		orders:   orders,
		users:    users,
		catalog:  catalog,
		settings: settings,
		logger:   util.GetLogger(),
	}
}

// Authenticate checks the shared admin credential and returns a fresh admin
// session id used to attribute later actions in the log.
func (s *AdminService) Authenticate(username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(s.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(password)), []byte(s.password)) == 1
	if !userOK || !passOK {
		s.logger.Warn("Admin login failed")
		return "", ErrInvalidCredentials
	}
	sid := uuid.New().String()
	s.logger.Info("Admin logged in", zap.String("admin_session", sid))
	return sid, nil
}

// Dashboard aggregates totals, recent orders, the catalog and settings.
// Totals are recomputed on every call.
func (s *AdminService) Dashboard(ctx context.Context) (*Dashboard, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.Dashboard")
	defer span.End()

	totals, err := s.orders.GetDashboardTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute totals: %w", err)
	}
	recent, err := s.orders.ListOrders(ctx, models.OrderFilter{Limit: recentOrdersOnDashboard})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent orders: %w", err)
	}
	catalog, err := s.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Totals:       totals,
		RecentOrders: recent,
		Catalog:      catalog,
		Settings:     settings,
	}, nil
}

// ExportOrdersCSV writes every order, newest first, with a header row.
func (s *AdminService) ExportOrdersCSV(ctx context.Context, w io.Writer) error {
	ctx, span := util.StartSpan(ctx, "AdminService.ExportOrdersCSV")
	defer span.End()

	orders, err := s.orders.ListOrders(ctx, models.OrderFilter{})
	if err != nil {
		return fmt.Errorf("failed to list orders: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i := range orders {
		if err := cw.Write(csvRow(&orders[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// lineFlattener keeps every exported order on one physical line.
var lineFlattener = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func csvRow(o *models.Order) []string {
	userID := ""
	if o.UserID != nil {
		userID = strconv.FormatInt(*o.UserID, 10)
	}
	createdAt := ""
	if !o.CreatedAt.IsZero() {
		createdAt = o.CreatedAt.Format("2006-01-02 15:04")
	}
	return []string{
		strconv.FormatInt(o.ID, 10),
		lineFlattener.Replace(o.CustomerName),
		lineFlattener.Replace(o.Phone),
		lineFlattener.Replace(o.Address),
		lineFlattener.Replace(o.Product),
		strconv.Itoa(o.Quantity),
		strconv.FormatInt(o.TotalPrice, 10),
		string(o.Status),
		string(o.PaymentMethod),
		string(o.PaymentStatus),
		lineFlattener.Replace(o.CustomerEmail),
		userID,
		lineFlattener.Replace(o.Notes),
		createdAt,
	}
}

func (s *AdminService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *AdminService) UserDetail(ctx context.Context, userID int64) (*UserDetail, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	orders, err := s.orders.ListOrders(ctx, models.OrderFilter{UserID: &userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return &UserDetail{User: user, Orders: orders}, nil
}

// CustomerChatLink opens a WhatsApp chat with the customer, pre-filled with
// the order's current status.
func (s *AdminService) CustomerChatLink(ctx context.Context, orderID int64) (string, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return "", translate(err)
	}
	return notify.WhatsAppLink(order.Phone, notify.StatusChatText(order)), nil
}

// OwnerChatLink opens a WhatsApp chat with the owner summarising the order.
func (s *AdminService) OwnerChatLink(ctx context.Context, orderID int64) (string, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return "", translate(err)
	}
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return "", err
	}
	return notify.WhatsAppLink(settings.OwnerWhatsApp, notify.OwnerChatText(order)), nil
}

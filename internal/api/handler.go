package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"farm-store/internal/models"
	"farm-store/internal/service"
	"farm-store/internal/token"
	"farm-store/internal/util"
)

// OrderLedger is the order operations the HTTP layer needs.
type OrderLedger interface {
	CreateOrder(ctx context.Context, req *service.CreateOrderRequest) (*models.Order, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	UpdateStatus(ctx context.Context, id int64, rawStatus string) (*models.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	FindForTracking(ctx context.Context, q service.TrackingQuery) (*models.Order, error)
}

type Payments interface {
	PaymentOrder(ctx context.Context, userID, orderID int64) (*models.Order, error)
	SimulatePayment(ctx context.Context, userID, orderID int64, action string) (*models.Order, error)
}

type Accounts interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	CheckResetToken(ctx context.Context, tok string) error
	ResetPassword(ctx context.Context, tok, newPassword string) error
	Profile(ctx context.Context, userID int64) (*service.Profile, error)
}

type Catalog interface {
	List(ctx context.Context) ([]models.CatalogItem, error)
	Add(ctx context.Context, in service.CatalogItemInput) (*models.CatalogItem, error)
	Update(ctx context.Context, id int64, in service.CatalogItemInput) (*models.CatalogItem, error)
	Delete(ctx context.Context, id int64) error
}

type Settings interface {
	GetSettings(ctx context.Context) (*models.Settings, error)
	UpdateSettings(ctx context.Context, u service.SettingsUpdate) (*models.Settings, error)
}

type Console interface {
	Authenticate(username, password string) (string, error)
	Dashboard(ctx context.Context) (*service.Dashboard, error)
	ExportOrdersCSV(ctx context.Context, w io.Writer) error
	ListUsers(ctx context.Context) ([]models.User, error)
	UserDetail(ctx context.Context, userID int64) (*service.UserDetail, error)
	CustomerChatLink(ctx context.Context, orderID int64) (string, error)
	OwnerChatLink(ctx context.Context, orderID int64) (string, error)
}

// Pinger is a dependency checked by /ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options wires a Handler. Limiter and the readiness checks are optional.
type Options struct {
	Orders         OrderLedger
	Payments       Payments
	Accounts       Accounts
	Catalog        Catalog
	Settings       Settings
	Console        Console
	TrackingTokens *token.Issuer
	TrackingMaxAge time.Duration
	Sessions       sessions.Store
	Limiter        RateLimiter
	SubmitWindow   time.Duration
	ReadyChecks    map[string]Pinger
}

// Handler contains HTTP handlers
type Handler struct {
	orders         OrderLedger
	payments       Payments
	accounts       Accounts
	catalog        Catalog
	settings       Settings
	console        Console
	tracking       *token.Issuer
	trackingMaxAge time.Duration
	sessions       sessions.Store
	limiter        RateLimiter
	submitWindow   time.Duration
	readyChecks    map[string]Pinger
	logger         *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(opts Options) *Handler {
	return &Handler{
		orders:         opts.Orders,
		payments:       opts.Payments,
		accounts:       opts.Accounts,
		catalog:        opts.Catalog,
		settings:       opts.Settings,
		console:        opts.Console,
		tracking:       opts.TrackingTokens,
		trackingMaxAge: opts.TrackingMaxAge,
		sessions:       opts.Sessions,
		limiter:        opts.Limiter,
		submitWindow:   opts.SubmitWindow,
		readyChecks:    opts.ReadyChecks,
		logger:         util.GetLogger(),
	}
}

// NewRouter returns an engine that only honours forwarding headers from
// trustedProxies. With none, ClientIP is always the peer address.
func NewRouter(trustedProxies []string) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(trustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	return router, nil
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	web := router.Group("/")
	web.Use(h.sessionMiddleware())
	{
		web.GET("/csrf", h.csrfToken)

		web.GET("/", h.listProducts)
		web.GET("/products", h.listProducts)

		web.POST("/register", h.register)
		web.POST("/login", h.login)
		web.GET("/logout", h.logout)
		web.POST("/logout", h.logout)
		web.POST("/reset-request", h.rateLimit(), h.requestReset)
		web.GET("/reset/:token", h.checkReset)
		web.POST("/reset/:token", h.resetPassword)

		web.GET("/order/success/:id", h.orderSuccess)
		web.GET("/track", h.trackForm)
		web.POST("/track", h.rateLimit(), h.track)

		customer := web.Group("/", requireUser())
		customer.GET("/order", h.orderForm)
		customer.POST("/order", h.rateLimit(), h.createOrder)
		customer.GET("/mock-pay/:id", h.paymentPage)
		customer.POST("/mock-pay/:id", h.submitPayment)
		customer.GET("/profile", h.profile)

		web.POST("/admin/login", h.adminLogin)
		web.GET("/admin/logout", h.adminLogout)

		admin := web.Group("/admin", requireAdmin())
		admin.GET("", h.adminDashboard)
		admin.GET("/orders", h.adminListOrders)
		admin.GET("/orders/export/csv", h.adminExportCSV)
		admin.GET("/orders/:id", h.adminGetOrder)
		admin.POST("/orders/:id/status", h.adminUpdateStatus)
		admin.POST("/orders/:id/delete", h.adminDeleteOrder)
		admin.GET("/orders/:id/whatsapp_user", h.adminWhatsAppCustomer)
		admin.GET("/orders/:id/whatsapp_owner", h.adminWhatsAppOwner)
		admin.GET("/users", h.adminListUsers)
		admin.GET("/users/:id", h.adminUserDetail)
		admin.GET("/products", h.adminListProducts)
		admin.POST("/products", h.adminAddProduct)
		admin.POST("/products/:id/edit", h.adminEditProduct)
		admin.POST("/products/:id/delete", h.adminDeleteProduct)
		admin.GET("/settings", h.adminGetSettings)
		admin.POST("/settings", h.adminUpdateSettings)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every backing service
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, p := range h.readyChecks {
		if err := p.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respondError maps service errors onto status codes. Anything unrecognised
// is logged and reported as a 500 without details.
func (h *Handler) respondError(c *gin.Context, err error, action string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "fields": verr.Fields})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, service.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
	case errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
	case errors.Is(err, service.ErrInvalidToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired link"})
	default:
		h.logger.Error("Failed to "+action, zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
}

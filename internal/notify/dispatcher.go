package notify

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"farm-store/internal/models"
	"farm-store/internal/token"
	"farm-store/internal/util"
)

const (
	channelEmail = "email"
	channelChat  = "whatsapp"
)

// EmailSender delivers a rendered email.
type EmailSender interface {
	SendEmail(ctx context.Context, to string, msg Message) error
}

// ChatSender delivers a short chat message to a phone number.
type ChatSender interface {
	SendChat(ctx context.Context, phone, text string) error
}

// SettingsSource supplies the current owner contact and payment instructions.
type SettingsSource interface {
	GetSettings(ctx context.Context) (*models.Settings, error)
}

// LinkBuilder produces the customer tracking link for an order.
type LinkBuilder interface {
	TrackingLink(order *models.Order) (string, error)
}

// TrackingLinks builds /order/success links carrying a signed token.
type TrackingLinks struct {
	Issuer  *token.Issuer
	BaseURL string
}

func (t TrackingLinks) TrackingLink(order *models.Order) (string, error) {
	tok, err := t.Issuer.Issue(order.ID, order.CustomerEmail)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/order/success/%d?token=%s", t.BaseURL, order.ID, url.QueryEscape(tok)), nil
}

// Config wires a Dispatcher. Mailer and Chat may be nil when the channel is
// not configured.
type Config struct {
	Mailer     EmailSender
	Chat       ChatSender
	Settings   SettingsSource
	Links      LinkBuilder
	OwnerEmail string
	ShopName   string
}

// Dispatcher sends order notifications over email and WhatsApp. Delivery
// failures are logged and counted, never returned to order callers.
type Dispatcher struct {
	mailer     EmailSender
	chat       ChatSender
	settings   SettingsSource
	links      LinkBuilder
	ownerEmail string
	shopName   string
	logger     *zap.Logger
}

func NewDispatcher(cfg Config) *Dispatcher {
	return &Dispatcher{
		mailer:     cfg.Mailer,
		chat:       cfg.Chat,
		settings:   cfg.Settings,
		links:      cfg.Links,
		ownerEmail: cfg.OwnerEmail,
		shopName:   cfg.ShopName,
		logger:     util.GetLogger(),
	}
}

// NotifyOrderCreated tells the owner about a new order and sends the customer
// a confirmation with a tracking link.
func (d *Dispatcher) NotifyOrderCreated(ctx context.Context, order *models.Order) {
	ctx, span := util.StartSpan(ctx, "Dispatcher.NotifyOrderCreated")
	defer span.End()

	settings := d.currentSettings(ctx)

	d.email(ctx, d.ownerAddress(settings), ownerNewOrder(order), order.ID)

	if order.CustomerEmail == "" {
		return
	}
	link := d.trackingLink(order)
	var pi models.PaymentInstructions
	if settings != nil {
		pi = settings.PaymentInstructions
	}
	d.email(ctx, order.CustomerEmail, customerOrderPlaced(order, d.shopName, link, pi), order.ID)
}

// NotifyStatusChanged tells the customer the order moved to a new status.
func (d *Dispatcher) NotifyStatusChanged(ctx context.Context, order *models.Order) {
	ctx, span := util.StartSpan(ctx, "Dispatcher.NotifyStatusChanged")
	defer span.End()

	if order.CustomerEmail != "" {
		d.email(ctx, order.CustomerEmail, customerStatusChanged(order, d.shopName), order.ID)
	}
	if order.Phone != "" {
		d.whatsApp(ctx, order.Phone, StatusChatText(order), order.ID)
	}
}

// NotifyPaymentReceived tells the owner and the customer that an online
// payment went through.
func (d *Dispatcher) NotifyPaymentReceived(ctx context.Context, order *models.Order) {
	ctx, span := util.StartSpan(ctx, "Dispatcher.NotifyPaymentReceived")
	defer span.End()

	d.email(ctx, d.ownerAddress(d.currentSettings(ctx)), ownerPaymentReceived(order), order.ID)

	if order.CustomerEmail != "" {
		d.email(ctx, order.CustomerEmail, customerPaymentReceived(order, d.trackingLink(order)), order.ID)
	}
}

// SendPasswordReset mails a reset link. Unlike the order notifications the
// error is returned so the caller can log it against the account.
func (d *Dispatcher) SendPasswordReset(ctx context.Context, to, link string, validFor time.Duration) error {
	if d.mailer == nil {
		d.logger.Info("Email not configured, password reset link not sent",
			zap.String("to", to))
		util.NotificationsTotal.WithLabelValues(channelEmail, "skipped").Inc()
		return nil
	}
	return d.deliver(channelEmail, func() error {
		return d.mailer.SendEmail(ctx, to, passwordReset(d.shopName, link, validFor))
	})
}

func (d *Dispatcher) email(ctx context.Context, to string, msg Message, orderID int64) {
	if to == "" {
		return
	}
	if d.mailer == nil {
		d.logger.Info("Email not configured, skipping",
			zap.Int64("order_id", orderID),
			zap.String("subject", msg.Subject))
		util.NotificationsTotal.WithLabelValues(channelEmail, "skipped").Inc()
		return
	}
	err := d.deliver(channelEmail, func() error {
		return d.mailer.SendEmail(ctx, to, msg)
	})
	if err != nil {
		d.logger.Warn("Failed to send email",
			zap.Int64("order_id", orderID),
			zap.String("to", to),
			zap.Error(err))
	}
}

func (d *Dispatcher) whatsApp(ctx context.Context, phone, text string, orderID int64) {
	if d.chat == nil {
		d.logger.Info("WhatsApp not configured, skipping",
			zap.Int64("order_id", orderID))
		util.NotificationsTotal.WithLabelValues(channelChat, "skipped").Inc()
		return
	}
	err := d.deliver(channelChat, func() error {
		return d.chat.SendChat(ctx, phone, text)
	})
	if err != nil {
		d.logger.Warn("Failed to send WhatsApp message",
			zap.Int64("order_id", orderID),
			zap.Error(err))
	}
}

func (d *Dispatcher) deliver(channel string, send func() error) error {
	start := time.Now()
	err := send()
	util.NotificationLatency.WithLabelValues(channel).Observe(time.Since(start).Seconds())
	if err != nil {
		util.NotificationsTotal.WithLabelValues(channel, "failed").Inc()
		return err
	}
	util.NotificationsTotal.WithLabelValues(channel, "sent").Inc()
	return nil
}

func (d *Dispatcher) currentSettings(ctx context.Context) *models.Settings {
	if d.settings == nil {
		return nil
	}
	s, err := d.settings.GetSettings(ctx)
	if err != nil {
		d.logger.Warn("Failed to load settings for notification", zap.Error(err))
		return nil
	}
	return s
}

func (d *Dispatcher) ownerAddress(s *models.Settings) string {
	if s != nil && s.OwnerEmail != "" {
		return s.OwnerEmail
	}
	return d.ownerEmail
}

func (d *Dispatcher) trackingLink(order *models.Order) string {
	if d.links == nil {
		return ""
	}
	link, err := d.links.TrackingLink(order)
	if err != nil {
		d.logger.Warn("Failed to build tracking link",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
		return ""
	}
	return link
}

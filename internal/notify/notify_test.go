package notify

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"farm-store/internal/models"
	"farm-store/internal/token"
	"farm-store/internal/util"
)

type sentEmail struct {
	to  string
	msg Message
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (f *fakeMailer) SendEmail(_ context.Context, to string, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{to: to, msg: msg})
	return nil
}

type fakeChat struct {
	phones []string
	texts  []string
	err    error
}

func (f *fakeChat) SendChat(_ context.Context, phone, text string) error {
	if f.err != nil {
		return f.err
	}
	f.phones = append(f.phones, phone)
	f.texts = append(f.texts, text)
	return nil
}

type staticSettings struct {
	settings *models.Settings
	err      error
}

func (s staticSettings) GetSettings(context.Context) (*models.Settings, error) {
	return s.settings, s.err
}

func sampleOrder() *models.Order {
	return &models.Order{
		ID:            7,
		CustomerName:  "Asha",
		CustomerEmail: "asha@example.com",
		Phone:         "+919800000000",
		Address:       "12 Lake Road",
		Product:       "Paneer (200g)",
		Quantity:      2,
		TotalPrice:    240,
		Status:        models.OrderStatusPending,
		PaymentMethod: models.PaymentMethodCOD,
		PaymentStatus: models.PaymentStatusPending,
	}
}

func newTestDispatcher(t *testing.T, mailer EmailSender, chat ChatSender, settings SettingsSource) *Dispatcher {
	t.Helper()
	issuer, err := token.NewIssuer([]byte("test-secret-0123456789"), "tracking")
	require.NoError(t, err)
	return NewDispatcher(Config{
		Mailer:     mailer,
		Chat:       chat,
		Settings:   settings,
		Links:      TrackingLinks{Issuer: issuer, BaseURL: "https://shop.example"},
		OwnerEmail: "fallback-owner@example.com",
		ShopName:   "MMVALI Farm",
	})
}

func TestNotifyOrderCreatedSendsOwnerAndCustomerMail(t *testing.T) {
	mailer := &fakeMailer{}
	settings := staticSettings{settings: &models.Settings{
		OwnerEmail: "owner@example.com",
		PaymentInstructions: models.PaymentInstructions{
			BankAccount: "Acct 0001",
			UPI:         "farm@upi",
		},
	}}
	d := newTestDispatcher(t, mailer, nil, settings)

	d.NotifyOrderCreated(context.Background(), sampleOrder())

	require.Len(t, mailer.sent, 2)
	assert.Equal(t, "owner@example.com", mailer.sent[0].to)
	assert.Equal(t, "New Order #7", mailer.sent[0].msg.Subject)

	customer := mailer.sent[1]
	assert.Equal(t, "asha@example.com", customer.to)
	assert.Contains(t, customer.msg.Body, "Total: ₹240")
	assert.Contains(t, customer.msg.Body, "https://shop.example/order/success/7?token=")
	assert.Contains(t, customer.msg.Body, "UPI: farm@upi")
}

func TestNotifyOrderCreatedFallsBackToConfiguredOwner(t *testing.T) {
	mailer := &fakeMailer{}
	d := newTestDispatcher(t, mailer, nil, staticSettings{err: errors.New("disk gone")})

	order := sampleOrder()
	order.CustomerEmail = ""
	d.NotifyOrderCreated(context.Background(), order)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "fallback-owner@example.com", mailer.sent[0].to)
}

func TestTrackingLinkVerifies(t *testing.T) {
	issuer, err := token.NewIssuer([]byte("test-secret-0123456789"), "tracking")
	require.NoError(t, err)
	links := TrackingLinks{Issuer: issuer, BaseURL: "https://shop.example"}

	link, err := links.TrackingLink(sampleOrder())
	require.NoError(t, err)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/order/success/7", u.Path)

	claims, err := issuer.Verify(u.Query().Get("token"), 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.ID)
	assert.Equal(t, "asha@example.com", claims.Email)
}

func TestNotifyStatusChangedUsesBothChannels(t *testing.T) {
	mailer := &fakeMailer{}
	chat := &fakeChat{}
	d := newTestDispatcher(t, mailer, chat, nil)

	order := sampleOrder()
	order.Status = models.OrderStatusDelivered
	d.NotifyStatusChanged(context.Background(), order)

	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].msg.Body, "Status: Delivered")
	require.Len(t, chat.texts, 1)
	assert.Equal(t, "+919800000000", chat.phones[0])
	assert.Contains(t, chat.texts[0], "status updated to Delivered")
}

func TestChannelFailuresAreSwallowed(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	previous := util.GetLogger()
	util.SetLogger(zap.New(core))
	t.Cleanup(func() { util.SetLogger(previous) })

	mailer := &fakeMailer{err: errors.New("smtp down")}
	chat := &fakeChat{err: errors.New("twilio down")}
	d := newTestDispatcher(t, mailer, chat, nil)

	assert.NotPanics(t, func() {
		d.NotifyOrderCreated(context.Background(), sampleOrder())
		d.NotifyStatusChanged(context.Background(), sampleOrder())
		d.NotifyPaymentReceived(context.Background(), sampleOrder())
	})

	assert.NotZero(t, logs.FilterMessage("Failed to send email").Len())
	assert.NotZero(t, logs.FilterMessage("Failed to send WhatsApp message").Len())
	for _, entry := range logs.All() {
		assert.Equal(t, sampleOrder().ID, entry.ContextMap()["order_id"])
	}
}

func TestUnconfiguredChannelsAreNoops(t *testing.T) {
	d := newTestDispatcher(t, nil, nil, nil)

	assert.NotPanics(t, func() {
		d.NotifyOrderCreated(context.Background(), sampleOrder())
		d.NotifyStatusChanged(context.Background(), sampleOrder())
	})
	assert.NoError(t, d.SendPasswordReset(context.Background(), "a@example.com", "https://x/reset/abc", time.Hour))
}

func TestSendPasswordResetReturnsError(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp down")}
	d := newTestDispatcher(t, mailer, nil, nil)

	err := d.SendPasswordReset(context.Background(), "a@example.com", "https://x/reset/abc", time.Hour)
	assert.Error(t, err)
}

func TestPasswordResetMessage(t *testing.T) {
	msg := passwordReset("MMVALI Farm", "https://x/reset/abc", time.Hour)
	assert.Equal(t, "Password Reset - MMVALI Farm", msg.Subject)
	assert.Contains(t, msg.Body, "https://x/reset/abc")
	assert.Contains(t, msg.Body, "Valid for 1 hour.")
}

func TestCustomerOrderPlacedOnline(t *testing.T) {
	order := sampleOrder()
	order.PaymentMethod = models.PaymentMethodOnline

	msg := customerOrderPlaced(order, "MMVALI Farm", "", models.PaymentInstructions{UPI: "farm@upi"})
	assert.Contains(t, msg.Body, "awaiting confirmation")
	assert.NotContains(t, msg.Body, "farm@upi")
	assert.NotContains(t, msg.Body, "Track:")
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "30 days", humanDuration(720*time.Hour))
	assert.Equal(t, "2 hours", humanDuration(2*time.Hour))
	assert.Equal(t, "45 minutes", humanDuration(45*time.Minute))
}

func TestWhatsAppLink(t *testing.T) {
	link := WhatsAppLink("whatsapp:+919800000000", "Order #7 ready")
	assert.Equal(t, "https://wa.me/919800000000?text=Order%20%237%20ready", link)
}

type fakeMessages struct {
	params *openapi.CreateMessageParams
	err    error
}

func (f *fakeMessages) CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM0001"
	return &openapi.ApiV2010Message{Sid: &sid}, nil
}

func TestTwilioClientCreatesWhatsAppMessage(t *testing.T) {
	messages := &fakeMessages{}
	c := NewTwilioClient("AC123", "secret", "+14155238886")
	c.messages = messages

	require.NoError(t, c.SendChat(context.Background(), "+919800000000", "hello"))
	require.NotNil(t, messages.params)
	assert.Equal(t, "whatsapp:+919800000000", *messages.params.To)
	assert.Equal(t, "whatsapp:+14155238886", *messages.params.From)
	assert.Equal(t, "hello", *messages.params.Body)
}

func TestTwilioClientReportsAPIError(t *testing.T) {
	apiErr := &client.TwilioRestError{Status: 400, Code: 21211, Message: "Invalid 'To' Phone Number"}
	c := NewTwilioClient("AC123", "secret", "+14155238886")
	c.messages = &fakeMessages{err: apiErr}

	err := c.SendChat(context.Background(), "nope", "hello")
	require.Error(t, err)
	var restErr *client.TwilioRestError
	require.True(t, errors.As(err, &restErr))
	assert.Equal(t, 21211, restErr.Code)
}

func TestTwilioClientHonoursCancelledContext(t *testing.T) {
	messages := &fakeMessages{}
	c := NewTwilioClient("AC123", "secret", "+14155238886")
	c.messages = messages

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.SendChat(ctx, "+919800000000", "hello"), context.Canceled)
	assert.Nil(t, messages.params)
}

func TestSMTPMessageHeaders(t *testing.T) {
	m := NewSMTPMailer("smtp.example.com", 587, "shop@example.com", "pw")

	email, err := m.newMessage("a@example.com", Message{Subject: "Order #1", Body: "Your order is confirmed."})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = email.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "Subject: Order #1")
	assert.Contains(t, raw, "shop@example.com")
	assert.Contains(t, raw, "a@example.com")
	assert.Contains(t, raw, "Your order is confirmed.")
}

func TestSMTPRejectsBadRecipient(t *testing.T) {
	m := NewSMTPMailer("smtp.example.com", 587, "shop@example.com", "pw")

	_, err := m.newMessage("not an address", Message{Subject: "x", Body: "y"})
	assert.Error(t, err)
}

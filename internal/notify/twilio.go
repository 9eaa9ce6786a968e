package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"farm-store/internal/util"
)

// messageCreator is the part of the Twilio REST API the client uses.
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// TwilioClient sends WhatsApp messages through the Twilio Messages API.
type TwilioClient struct {
	messages messageCreator
	from     string
	logger   *zap.Logger
}

func NewTwilioClient(accountSID, authToken, from string) *TwilioClient {
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioClient{
		messages: rest.Api,
		from:     whatsAppAddress(from),
		logger:   util.GetLogger(),
	}
}

// SendChat posts one WhatsApp message to phone
func (t *TwilioClient) SendChat(ctx context.Context, phone, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(whatsAppAddress(phone))
	params.SetFrom(t.from)
	params.SetBody(text)

	msg, err := t.messages.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio create message: %w", err)
	}
	if msg != nil && msg.Sid != nil {
		t.logger.Debug("WhatsApp message queued", zap.String("sid", *msg.Sid))
	}
	return nil
}

func whatsAppAddress(phone string) string {
	phone = strings.TrimSpace(phone)
	if strings.HasPrefix(phone, "whatsapp:") {
		return phone
	}
	return "whatsapp:" + phone
}

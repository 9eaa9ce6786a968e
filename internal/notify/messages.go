package notify

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"farm-store/internal/models"
)

// Message is a rendered email.
type Message struct {
	Subject string
	Body    string
}

func ownerNewOrder(o *models.Order) Message {
	return Message{
		Subject: fmt.Sprintf("New Order #%d", o.ID),
		Body: fmt.Sprintf("New order #%d\nCustomer: %s\nPhone: %s\nProduct: %s\nQty: %d\nTotal: ₹%d\nPayment: %s (%s)\nAddress:\n%s",
			o.ID, o.CustomerName, o.Phone, o.Product, o.Quantity, o.TotalPrice,
			o.PaymentMethod, o.PaymentStatus, o.Address),
	}
}

func ownerPaymentReceived(o *models.Order) Message {
	return Message{
		Subject: fmt.Sprintf("Payment received for Order #%d", o.ID),
		Body: fmt.Sprintf("Online payment confirmed for order #%d\nCustomer: %s\nPhone: %s\nProduct: %s\nQty: %d\nTotal: ₹%d",
			o.ID, o.CustomerName, o.Phone, o.Product, o.Quantity, o.TotalPrice),
	}
}

func customerOrderPlaced(o *models.Order, shop, link string, pi models.PaymentInstructions) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Thanks for your order #%d\n", o.ID)
	fmt.Fprintf(&b, "Product: %s\nQty: %d\nTotal: ₹%d\n", o.Product, o.Quantity, o.TotalPrice)
	if link != "" {
		fmt.Fprintf(&b, "Track: %s\n", link)
	}
	if o.PaymentMethod == models.PaymentMethodOnline {
		b.WriteString("Payment: Online (awaiting confirmation)\n")
	} else {
		b.WriteString("Payment: Cash on Delivery\n")
		if pi.BankAccount != "" || pi.UPI != "" {
			b.WriteString("Payment instructions (if you want to pay online):\n")
			if pi.BankAccount != "" {
				b.WriteString(pi.BankAccount + "\n")
			}
			if pi.UPI != "" {
				fmt.Fprintf(&b, "UPI: %s\n", pi.UPI)
			}
			if pi.Note != "" {
				b.WriteString(pi.Note + "\n")
			}
		}
	}
	return Message{
		Subject: fmt.Sprintf("Order #%d - %s", o.ID, shop),
		Body:    b.String(),
	}
}

func customerStatusChanged(o *models.Order, shop string) Message {
	return Message{
		Subject: fmt.Sprintf("Order #%d status update", o.ID),
		Body: fmt.Sprintf("Update for your order #%d\nStatus: %s\nProduct: %s\nQty: %d\nTotal: ₹%d\n\nThank you,\n%s",
			o.ID, o.Status, o.Product, o.Quantity, o.TotalPrice, shop),
	}
}

func customerPaymentReceived(o *models.Order, link string) Message {
	body := fmt.Sprintf("Payment received for order #%d.", o.ID)
	if link != "" {
		body += " Track: " + link
	}
	return Message{
		Subject: fmt.Sprintf("Order #%d - Payment received", o.ID),
		Body:    body,
	}
}

func passwordReset(shop, link string, validFor time.Duration) Message {
	return Message{
		Subject: "Password Reset - " + shop,
		Body:    fmt.Sprintf("Reset password: %s\nValid for %s. Check spam/junk if not visible.", link, humanDuration(validFor)),
	}
}

// StatusChatText is the short chat message sent on status changes and used
// for the admin "message customer" link.
func StatusChatText(o *models.Order) string {
	return fmt.Sprintf("Order #%d status updated to %s. Product: %s. Total ₹%d.",
		o.ID, o.Status, o.Product, o.TotalPrice)
}

// OwnerChatText summarises a new order for the owner's chat link.
func OwnerChatText(o *models.Order) string {
	return fmt.Sprintf("New order #%d - %s x%d. Customer: %s. Phone: %s",
		o.ID, o.Product, o.Quantity, o.CustomerName, o.Phone)
}

// WhatsAppLink builds a wa.me deep link that opens a chat with phone and
// pre-filled text.
func WhatsAppLink(phone, text string) string {
	digits := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(phone), "whatsapp:"), "+")
	return fmt.Sprintf("https://wa.me/%s?text=%s", digits, strings.ReplaceAll(url.QueryEscape(text), "+", "%20"))
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return plural(int(d/(24*time.Hour)), "day")
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	default:
		return plural(int(d/time.Minute), "minute")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

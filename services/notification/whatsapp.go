package notification

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/upb/agency-backoffice/models"
)

// WhatsAppSender sends text messages through the WhatsApp Cloud (Graph) API
type WhatsAppSender struct {
	token   string
	baseURL string
	version string
	http    *deliveryClient
}

// NewWhatsAppSender creates a WhatsApp sender
func NewWhatsAppSender(token, baseURL, version string, config ClientConfig) *WhatsAppSender {
	if baseURL == "" {
		baseURL = "https://graph.facebook.com"
	}
	if version == "" {
		version = "v19.0"
	}
	return &WhatsAppSender{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		version: version,
		http:    newDeliveryClient(models.ChannelWhatsApp, config),
	}
}

// Channel returns the whatsapp channel
func (s *WhatsAppSender) Channel() models.Channel {
	return models.ChannelWhatsApp
}

type whatsAppText struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type whatsAppMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsAppText `json:"text"`
}

// Send posts a text message from the envelope's phone number ID
func (s *WhatsAppSender) Send(ctx context.Context, env Envelope) error {
	to := NormalizePhone(env.To)
	if to == "" {
		return &DeliveryError{Channel: models.ChannelWhatsApp, StatusCode: 400, Message: "recipient has no usable phone number"}
	}
	if env.PhoneID == "" {
		return &DeliveryError{Channel: models.ChannelWhatsApp, StatusCode: 400, Message: "no sender phone number id"}
	}

	body := env.Body
	if env.Subject != "" {
		body = "*" + env.Subject + "*\n" + body
	}
	msg := whatsAppMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             whatsAppText{PreviewURL: true, Body: body},
	}

	url := fmt.Sprintf("%s/%s/%s/messages", s.baseURL, s.version, env.PhoneID)
	headers := map[string]string{"Authorization": "Bearer " + s.token}
	return s.http.postJSON(ctx, url, headers, msg)
}

// NormalizePhone keeps only the digits of an international number
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() < 7 {
		return ""
	}
	return b.String()
}

package notification

import (
	"context"
	"strings"

	"github.com/upb/agency-backoffice/models"
)

// SendGridSender sends email through the SendGrid v3 mail API
type SendGridSender struct {
	apiKey  string
	baseURL string
	http    *deliveryClient
}

// NewSendGridSender creates an email sender. baseURL defaults to the public API.
func NewSendGridSender(apiKey, baseURL string, config ClientConfig) *SendGridSender {
	if baseURL == "" {
		baseURL = "https://api.sendgrid.com"
	}
	return &SendGridSender{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newDeliveryClient(models.ChannelEmail, config),
	}
}

// Channel returns the email channel
func (s *SendGridSender) Channel() models.Channel {
	return models.ChannelEmail
}

type sendGridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridPersonalization struct {
	To []sendGridAddress `json:"to"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridMail struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendGridContent         `json:"content"`
}

// Send posts the message to /v3/mail/send
func (s *SendGridSender) Send(ctx context.Context, env Envelope) error {
	mail := sendGridMail{
		Personalizations: []sendGridPersonalization{{
			To: []sendGridAddress{{Email: env.To, Name: env.ToName}},
		}},
		From:    sendGridAddress{Email: env.FromEmail, Name: env.FromName},
		Subject: env.Subject,
		Content: []sendGridContent{{Type: "text/plain", Value: env.Body}},
	}
	headers := map[string]string{"Authorization": "Bearer " + s.apiKey}
	return s.http.postJSON(ctx, s.baseURL+"/v3/mail/send", headers, mail)
}

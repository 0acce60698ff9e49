package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// PushSender defines the interface for sending a web push notification.
type PushSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of PushSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// EmailMessage is an e-mail to a single recipient.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

// EmailSender delivers e-mails.
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
}

// SendGridSender sends e-mails through the SendGrid API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

// NewSendGridSender creates a SendGrid sender. It returns nil without an API key.
func NewSendGridSender(apiKey, fromEmail, fromName string) *SendGridSender {
	if apiKey == "" {
		return nil
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *SendGridSender) SendEmail(ctx context.Context, msg EmailMessage) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, msg.Body)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send to %s: %w", msg.To, err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send to %s: status %d", msg.To, resp.StatusCode)
	}
	return nil
}

// LogEmailSender logs e-mails instead of sending them.
type LogEmailSender struct {
	log zerolog.Logger
}

func NewLogEmailSender(log zerolog.Logger) *LogEmailSender {
	return &LogEmailSender{log: log.With().Str("channel", "email").Logger()}
}

func (s *LogEmailSender) SendEmail(_ context.Context, msg EmailMessage) error {
	s.log.Info().Str("to", msg.To).Str("subject", msg.Subject).Str("body", msg.Body).Msg("mock email")
	return nil
}

// SMSSender delivers text messages.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) error
}

// LogSMSSender logs text messages. There is no SMS gateway.
type LogSMSSender struct {
	log zerolog.Logger
}

func NewLogSMSSender(log zerolog.Logger) *LogSMSSender {
	return &LogSMSSender{log: log.With().Str("channel", "sms").Logger()}
}

func (s *LogSMSSender) SendSMS(_ context.Context, phone, message string) error {
	s.log.Info().Str("to", phone).Str("message", message).Msg("sms")
	return nil
}

package mailer

import (
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/atms-platform/atms-api/pkg/config"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// Message is a plain-text notification email.
type Message struct {
	ToName    string
	ToAddress string
	Subject   string
	Body      string
}

// Mailer delivers notification emails.
type Mailer interface {
	Send(msg Message) error
}

// SendgridMailer sends mail through the SendGrid v3 API.
type SendgridMailer struct {
	key    string
	from   *sgmail.Email
	logger *zap.Logger
}

// NewSendgridMailer builds a mailer from config.
func NewSendgridMailer(cfg config.MailConfig, logger *zap.Logger) *SendgridMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SendgridMailer{
		key:    cfg.SendgridKey,
		from:   sgmail.NewEmail(cfg.FromName, cfg.FromAddress),
		logger: logger,
	}
}

// Send delivers a single message synchronously.
func (m *SendgridMailer) Send(msg Message) error {
	personalization := sgmail.NewPersonalization()
	personalization.Subject = msg.Subject
	personalization.AddTos(sgmail.NewEmail(msg.ToName, msg.ToAddress))

	mail := sgmail.NewV3Mail()
	mail.SetFrom(m.from)
	mail.AddPersonalizations(personalization)
	mail.AddContent(sgmail.NewContent("text/plain", msg.Body))

	req := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(mail)

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("send mail: status %d: %s", res.StatusCode, res.Body)
	}

	m.logger.Debug("mail sent", zap.String("to", msg.ToAddress), zap.String("subject", msg.Subject))
	return nil
}

// NopMailer drops messages; used when mail is disabled.
type NopMailer struct{}

// Send implements Mailer.
func (NopMailer) Send(Message) error { return nil }

type observedMailer struct {
	next    Mailer
	observe func(success bool)
}

// WithObserver reports every delivery attempt to observe.
func WithObserver(next Mailer, observe func(success bool)) Mailer {
	if observe == nil {
		return next
	}
	return &observedMailer{next: next, observe: observe}
}

// Send implements Mailer.
func (m *observedMailer) Send(msg Message) error {
	err := m.next.Send(msg)
	m.observe(err == nil)
	return err
}

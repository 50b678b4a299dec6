package infra

import (
	"errors"
	"fmt"
	"net/smtp"

	"warehouse/internal/config"

	"github.com/jordan-wright/email"
)

// ErrMailerDisabled is returned when no SMTP host is configured.
var ErrMailerDisabled = errors.New("mailer: SMTP_HOST not configured")

// Mailer sends plain-text emails over SMTP. Every send goes through a circuit
// breaker so a dead relay fails fast instead of tying up workers.
type Mailer struct {
	host     string
	user     string
	password string
	addr     string
	breaker  *CircuitBreaker
	send     func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewMailer(cfg *config.Config, breaker *CircuitBreaker) *Mailer {
	if breaker == nil {
		breaker = NewCircuitBreaker(DefaultCBConfig())
	}
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		breaker:  breaker,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// Breaker exposes the SMTP circuit breaker for the health endpoint.
func (m *Mailer) Breaker() *CircuitBreaker { return m.breaker }

// Send implements worker.Sender.
func (m *Mailer) Send(to, subject, body string) error {
	if m.host == "" {
		return ErrMailerDisabled
	}
	e := email.NewEmail()
	e.From = m.user
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return m.breaker.Execute(func() error {
		return m.send(e, m.addr, auth)
	})
}

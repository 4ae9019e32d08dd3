// Package mail delivers supplier correspondence.
package mail

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/erazemk/nabava/internal/logger"
	gomail "github.com/wneessen/go-mail"
)

// Message is a plain-text email.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTP sends through an unauthenticated relay such as a local test server.
type SMTP struct {
	Host string
	Port int
	// Hostname is announced in HELO.
	Hostname string
}

// NewSMTP creates a mailer for host:port.
func NewSMTP(host string, port int) *SMTP {
	return &SMTP{Host: host, Port: port, Hostname: "localhost"}
}

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	m, err := Build(msg, time.Now())
	if err != nil {
		return err
	}

	c, err := gomail.NewClient(s.Host,
		gomail.WithPort(s.Port),
		gomail.WithTLSPolicy(gomail.NoTLS),
		gomail.WithHELO(s.Hostname),
	)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("sending mail to %s via %s:%d: %w", msg.To, s.Host, s.Port, err)
	}
	return nil
}

// Build turns msg into a MIME message. Addresses are parsed, so header
// injection through From or To fails here; the subject is encoded as an
// RFC 2047 word when it is not plain ASCII.
func Build(msg Message, date time.Time) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", msg.From, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	m.Subject(sanitizeHeader(msg.Subject))
	m.SetDateWithValue(date)
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)
	return m, nil
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}

// Log records messages instead of delivering them.
type Log struct {
	log *logger.Logger

	mu   sync.Mutex
	sent []Message
}

// NewLog creates a mailer that only logs. A nil logger discards output.
func NewLog(log *logger.Logger) *Log {
	if log == nil {
		log = logger.Nop()
	}
	return &Log{log: log}
}

func (l *Log) Send(ctx context.Context, msg Message) error {
	l.mu.Lock()
	l.sent = append(l.sent, msg)
	l.mu.Unlock()

	ctx = l.log.WithFields(ctx, map[string]any{"to": msg.To, "subject": msg.Subject})
	l.log.Info(ctx, "mail recorded")
	return nil
}

// Sent returns a copy of every recorded message.
func (l *Log) Sent() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Message(nil), l.sent...)
}

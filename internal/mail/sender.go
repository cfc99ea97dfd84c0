// Package mail delivers plain-text email over SMTP.
package mail

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/config"
	gomail "github.com/wneessen/go-mail"
)

const dialTimeout = 15 * time.Second

var ErrNotConfigured = errors.New("mail server is not configured")

type deliverFunc func(ctx context.Context, messages ...*gomail.Msg) error

type Sender struct {
	from    string
	deliver deliverFunc
}

// NewSender builds an SMTP sender using STARTTLS when the server offers it.
// An empty host yields a sender whose Send returns ErrNotConfigured.
func NewSender(cfg config.MailConfig) (*Sender, error) {
	s := &Sender{from: cfg.From}
	if cfg.Host == "" {
		return s, nil
	}

	port, err := strconv.Atoi(cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("invalid mail port %q: %w", cfg.Port, err)
	}

	opts := []gomail.Option{
		gomail.WithPort(port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(dialTimeout),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}
	s.deliver = client.DialAndSendWithContext
	return s, nil
}

func (s *Sender) Send(ctx context.Context, to, subject, body string) error {
	if s.deliver == nil || s.from == "" {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetBodyString(gomail.TypeTextPlain, body)

	if err := s.deliver(ctx, msg); err != nil {
		log.Error().Err(err).Str("to", to).Str("subject", subject).Msg("Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Info().Str("to", to).Str("subject", subject).Msg("Email sent")
	return nil
}

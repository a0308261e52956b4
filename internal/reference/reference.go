// Package reference sends the test message through go-mail, a full featured
// client, to tell server faults apart from strict-client faults.
package reference

import (
	"context"
	"fmt"
	"time"

	"github.com/OliverSchlueter/smtpcheck/internal/smtp"
	"github.com/wneessen/go-mail"
	"github.com/wneessen/go-mail/log"
)

type Configuration struct {
	Session smtp.SessionConfig
	Timeout time.Duration
	// Logger receives the go-mail wire log when set.
	Logger log.Logger
}

// Send delivers one test message with the same envelope as the diagnostic run.
func Send(ctx context.Context, config Configuration) error {
	cfg := config.Session.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	domain, err := smtp.DomainOf(cfg.Sender)
	if err != nil {
		return err
	}

	m := mail.NewMsg()
	if err := m.From(cfg.Sender); err != nil {
		return fmt.Errorf("failed to set From address: %w", err)
	}
	if err := m.To(cfg.Recipient); err != nil {
		return fmt.Errorf("failed to set To address: %w", err)
	}
	m.Subject(smtp.TestSubject)
	m.SetBodyString(mail.TypeTextPlain, smtp.TestBody)

	c, err := mail.NewClient(cfg.Host, clientOptions(cfg, domain, config)...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	return nil
}

func clientOptions(cfg smtp.SessionConfig, domain string, config Configuration) []mail.Option {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = smtp.DefaultTimeout
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.NoTLS),
		mail.WithTimeout(timeout),
		mail.WithHELO(domain),
	}

	if cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLoginNoEnc),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Password),
		)
	}

	if config.Logger != nil {
		opts = append(opts, mail.WithDebugLog(), mail.WithLogger(config.Logger))
	}

	return opts
}

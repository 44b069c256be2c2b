package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/vbonduro/hoardings/internal/domain"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
	Timeout  time.Duration
	// RequireTLS refuses to send over a plain connection.
	RequireTLS bool
}

// SMTPNotifier delivers one email per enquiry through an SMTP relay.
type SMTPNotifier struct {
	client *mail.Client
	from   string
	to     string
}

func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	policy := mail.TLSOpportunistic
	if cfg.RequireTLS {
		policy = mail.TLSMandatory
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(policy),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return &SMTPNotifier{client: client, from: cfg.From, to: cfg.To}, nil
}

func (n *SMTPNotifier) Notify(ctx context.Context, e *domain.Enquiry, h *domain.Hoarding) error {
	msg, err := n.buildMessage(Compose(n.to, e, h))
	if err != nil {
		return err
	}
	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send enquiry %d: %w", e.ID, err)
	}
	return nil
}

func (n *SMTPNotifier) buildMessage(m Message) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", n.from, err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", m.To, err)
	}
	if err := msg.ReplyTo(m.ReplyTo); err != nil {
		return nil, fmt.Errorf("invalid reply-to %q: %w", m.ReplyTo, err)
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextPlain, m.Body)
	return msg, nil
}

package notify

import (
	"context"
	"log/slog"

	"github.com/vbonduro/hoardings/internal/domain"
)

// LogNotifier writes the composed email to the log instead of sending it.
// It is used when no SMTP host is configured.
type LogNotifier struct {
	logger *slog.Logger
	to     string
}

func NewLogNotifier(logger *slog.Logger, to string) *LogNotifier {
	return &LogNotifier{logger: logger, to: to}
}

func (n *LogNotifier) Notify(ctx context.Context, e *domain.Enquiry, h *domain.Hoarding) error {
	m := Compose(n.to, e, h)
	n.logger.InfoContext(ctx, "enquiry notification",
		"to", m.To,
		"reply_to", m.ReplyTo,
		"subject", m.Subject,
		"body", m.Body,
	)
	return nil
}

package notifications

import (
	"context"
	"log/slog"
)

// LogMailer writes the link to the log instead of sending it. Only wired in
// dev, where there is usually no mail account.
type LogMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) *LogMailer {
	if log == nil {
		log = slog.Default()
	}
	return &LogMailer{log: log}
}

func (m *LogMailer) SendVerificationEmail(ctx context.Context, in SendLinkInput) error {
	m.log.InfoContext(ctx, "notification.verification_email", "email", in.Email, "link", in.Link)
	return nil
}

func (m *LogMailer) SendPasswordResetEmail(ctx context.Context, in SendLinkInput) error {
	m.log.InfoContext(ctx, "notification.password_reset_email", "email", in.Email, "link", in.Link)
	return nil
}

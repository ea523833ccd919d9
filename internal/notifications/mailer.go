package notifications

import (
	"context"
	"strings"
)

// SendLinkInput is everything a mailer needs to deliver a one-time link.
type SendLinkInput struct {
	Email string
	Name  string
	Link  string
}

type Mailer interface {
	SendVerificationEmail(ctx context.Context, in SendLinkInput) error
	SendPasswordResetEmail(ctx context.Context, in SendLinkInput) error
}

func VerificationLink(clientURL, token string) string {
	return strings.TrimRight(clientURL, "/") + "/verify-email/" + token
}

func ResetPasswordLink(clientURL, token string) string {
	return strings.TrimRight(clientURL, "/") + "/reset-password/" + token
}

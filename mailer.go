package authcore

import (
	"context"
	"fmt"
)

// EmailMessage is a rendered outbound email.
type EmailMessage struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers rendered messages. Delivery failures are non-fatal to the
// workflow that triggered them; callers log and move on.
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// MailerFunc adapts a function into a Mailer.
type MailerFunc func(ctx context.Context, msg EmailMessage) error

// Send satisfies the Mailer interface.
func (f MailerFunc) Send(ctx context.Context, msg EmailMessage) error {
	if f == nil {
		return nil
	}
	return f(ctx, msg)
}

type noopMailer struct{}

func (noopMailer) Send(context.Context, EmailMessage) error { return nil }

func normalizeMailer(m Mailer) Mailer {
	if m == nil {
		return noopMailer{}
	}
	return m
}

func renderMagicLinkEmail(identifier string, purpose MagicLinkPurpose, token string) EmailMessage {
	subject := "Your login link"
	action := "log in"
	if purpose == PurposeRecovery {
		subject = "Reset your password"
		action = "reset your password"
	}

	return EmailMessage{
		To:      identifier,
		Subject: subject,
		Body: fmt.Sprintf(
			"Use the link below to %s. It can be used once and expires shortly.\n\n%s\n",
			action, token,
		),
	}
}

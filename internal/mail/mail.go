// Package mail sends the contact form notification emails.
package mail

import (
	"context"
	"log/slog"
)

// Message is one outgoing HTML email.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of delivering them.
// It is used when no SMTP server is configured.
type LogSender struct{}

// Send implements Sender.
func (LogSender) Send(ctx context.Context, msg Message) error {
	slog.InfoContext(ctx, "email not sent (no SMTP server configured)",
		"from", msg.From,
		"to", msg.To,
		"subject", msg.Subject,
		"html_bytes", len(msg.HTML),
	)
	return nil
}

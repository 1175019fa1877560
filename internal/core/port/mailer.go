package port

import "context"

// MailMessage is a rendered outbound email.
type MailMessage struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// MailSender delivers a single message. Implementations are expected to
// bound delivery with the supplied context; the service treats a returned
// error as a degraded-success advisory, never as a reason to roll back.
type MailSender interface {
	Send(ctx context.Context, msg MailMessage) error
}

package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/arklim/social-platform-auth/internal/core/port"
	"github.com/arklim/social-platform-auth/internal/infra/logger"
)

// LogSender writes outbound mail to the log instead of delivering it.
// It is used when no SMTP host is configured, typically in local
// development.
type LogSender struct {
	log *zap.Logger
}

var _ port.MailSender = (*LogSender)(nil)

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg port.MailMessage) error {
	s.log.Info("mail delivery skipped, no smtp host configured",
		zap.String("to", logger.MaskEmail(msg.To)),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.TextBody),
	)
	return nil
}

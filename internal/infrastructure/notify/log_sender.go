package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-arena-booking/internal/domain/notification"
	"github.com/sanosuguru/go-arena-booking/internal/pkg/logger"
)

// LogSender はSMTP未設定の環境でメールをログに出すだけの Sender
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (LogSender) Send(ctx context.Context, msg notification.Message) error {
	logger.Ctx(ctx).Info("メール送信（ログのみ）",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("body_bytes", len(msg.HTML)),
	)
	return nil
}

package mailer

import (
	"context"

	"go.uber.org/zap"

	"github.com/d60-Lab/power-monitor/pkg/logger"
)

// LogMailer 本地调试用：只打日志不真正发送
type LogMailer struct{}

func NewLogMailer() *LogMailer { return &LogMailer{} }

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	logger.Info("email (log mailer)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}

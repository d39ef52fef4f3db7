package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/d60-Lab/power-monitor/config"
)

// ErrPermanent 投递失败且不值得重试（收件地址被拒等）。
// 其余错误一律视为可重试
var ErrPermanent = errors.New("permanent delivery failure")

// Message 一封待发通知邮件
type Message struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

// Mailer 外部邮件发送能力的边界。传输、模板、批量都不在本引擎职责内
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// FromConfig 按配置选择实现
func FromConfig(ctx context.Context, cfg *config.Config) (Mailer, error) {
	switch cfg.Email.Provider {
	case "ses":
		return NewSES(ctx, cfg.Email)
	case "log":
		return NewLogMailer(), nil
	}
	return nil, fmt.Errorf("unknown email provider: %s", cfg.Email.Provider)
}

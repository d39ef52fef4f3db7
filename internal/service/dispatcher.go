package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/power-monitor/internal/mailer"
	"github.com/d60-Lab/power-monitor/internal/model"
	"github.com/d60-Lab/power-monitor/internal/repository"
	"github.com/d60-Lab/power-monitor/pkg/logger"
)

// Dispatcher 把已获批的通知交给外部邮件能力并落结果。
// 失败不在本周期内重试；台账行已存在，带外补偿扫描可安全重发
type Dispatcher struct {
	mailer mailer.Mailer
	notifs repository.NotificationRepository
}

func NewDispatcher(m mailer.Mailer, notifs repository.NotificationRepository) *Dispatcher {
	return &Dispatcher{mailer: m, notifs: notifs}
}

// Dispatch 发送一条通知并把结果写回台账行
func (d *Dispatcher) Dispatch(ctx context.Context, recordID string, cand Candidate, reportedAt time.Time, postcodes []string) model.NotificationOutcome {
	msg := composeMessage(cand, reportedAt, postcodes)

	outcome := model.OutcomeSent
	if err := d.mailer.Send(ctx, msg); err != nil {
		if errors.Is(err, mailer.ErrPermanent) {
			outcome = model.OutcomeFailedPermanent
		} else {
			// 超时与其他瞬时失败都按可重试处理
			outcome = model.OutcomeFailedRetryable
		}
		logger.Warn("notification delivery failed",
			zap.String("record_id", recordID),
			zap.String("customer_id", cand.CustomerID),
			zap.String("outcome", string(outcome)),
			zap.Error(err))
	}

	if err := d.notifs.MarkOutcome(ctx, recordID, outcome); err != nil {
		logger.Error("mark notification outcome failed",
			zap.String("record_id", recordID),
			zap.Error(err))
	}
	return outcome
}

func composeMessage(cand Candidate, reportedAt time.Time, postcodes []string) mailer.Message {
	list := strings.Join(postcodes, ", ")
	return mailer.Message{
		To:      cand.Email,
		ToName:  cand.FirstName,
		Subject: fmt.Sprintf("Power Outage Alert for %s", list),
		Body: fmt.Sprintf("Hi %s\n\n"+
			"There are power outages for the following postcodes you are subscribed to: %s.\n\n"+
			"Occurred at: %s\n\n"+
			"Regards,\nUK Power Monitor Team",
			cand.FirstName, list, reportedAt.Format(time.RFC1123)),
	}
}

package normalize

import (
	"strings"

	"github.com/d60-Lab/power-monitor/internal/model"
)

// 各 DNO 状态词汇 → 三值规范状态。关键词按优先级匹配：
// 终态词优先，其次计划/上报词，最后进行中词
var (
	resolvedWords = []string{"restored", "resolved", "complete", "cancelled", "closed", "ended"}
	reportedWords = []string{"planned", "scheduled", "future", "raised", "reported", "pending"}
	ongoingWords  = []string{"fault", "unplanned", "in progress", "live", "active", "confirmed", "unscheduled", "power cut"}
)

// Status 把上游自由文本状态映射到规范状态。
// 空文本按首次上报处理；无法识别的非空文本按进行中处理（事件存在，状态不明）
func Status(raw string) model.OutageStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return model.StatusReported
	}
	for _, w := range resolvedWords {
		if strings.Contains(s, w) {
			return model.StatusResolved
		}
	}
	for _, w := range reportedWords {
		if strings.Contains(s, w) {
			return model.StatusReported
		}
	}
	for _, w := range ongoingWords {
		if strings.Contains(s, w) {
			return model.StatusOngoing
		}
	}
	return model.StatusOngoing
}

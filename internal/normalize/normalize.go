package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/d60-Lab/power-monitor/internal/model"
	"github.com/d60-Lab/power-monitor/internal/provider"
)

// ErrMalformedRecord 原始记录既无可用状态也无可用位置，无法规范化
var ErrMalformedRecord = errors.New("malformed record")

// CanonicalUpdate 规范化后的停电事件更新，Outage Store 的唯一输入
type CanonicalUpdate struct {
	Provider   model.SourceProvider
	NaturalKey string
	Status     model.OutageStatus
	ReportedAt time.Time
	SeenAt     time.Time
	// Postcodes 规范化后的受影响邮编集合（本次轮询的完整真值，非增量）
	Postcodes []string
}

// 上游时间文本的已知格式；NIE 的 "5:04 PM, 12 Mar" 缺年份，单独补
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"02/01/2006 15:04",
}

const nieTimeLayout = "3:04 PM, 2 Jan 2006"

func parseReportedAt(raw string, fallback time.Time) time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return fallback
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	if t, err := time.Parse(nieTimeLayout, fmt.Sprintf("%s %d", s, fallback.Year())); err == nil {
		return t
	}
	return fallback
}

// Record 纯函数规范化：邮编、状态词汇、指纹。
// 不可用的记录返回 ErrMalformedRecord，由调用方记日志后跳过
func Record(raw provider.RawRecord) (CanonicalUpdate, error) {
	postcodes := PostcodeList(raw.Postcodes)
	status := strings.TrimSpace(raw.Status)

	if status == "" && len(postcodes) == 0 {
		return CanonicalUpdate{}, fmt.Errorf("%w: provider=%s native_id=%q", ErrMalformedRecord, raw.Provider, raw.NativeID)
	}

	seenAt := raw.FetchedAt
	if seenAt.IsZero() {
		seenAt = time.Now()
	}
	reportedAt := parseReportedAt(raw.StartedAt, seenAt)

	key := strings.TrimSpace(raw.NativeID)
	if key == "" {
		key = Fingerprint(raw.Provider, reportedAt, postcodes)
	}

	return CanonicalUpdate{
		Provider:   raw.Provider,
		NaturalKey: key,
		Status:     Status(status),
		ReportedAt: reportedAt,
		SeenAt:     seenAt,
		Postcodes:  postcodes,
	}, nil
}

// Fingerprint 无原生 id 时的派生稳定标识：
// provider + 起始日期（天精度，容忍日内抖动）+ 排序后的区域前缀
func Fingerprint(p model.SourceProvider, reportedAt time.Time, postcodes []string) string {
	outwards := make([]string, 0, len(postcodes))
	seen := make(map[string]struct{}, len(postcodes))
	for _, pc := range postcodes {
		ow := OutwardCode(pc)
		if _, ok := seen[ow]; !ok {
			seen[ow] = struct{}{}
			outwards = append(outwards, ow)
		}
	}
	sort.Strings(outwards)

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s", p, reportedAt.Format("2006-01-02"), strings.Join(outwards, ","))
	return "fp_" + hex.EncodeToString(h.Sum(nil))[:32]
}

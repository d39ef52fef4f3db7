package normalize

import (
	"regexp"
	"strings"
)

// 英国邮编：outward（1-2 字母+数字[+字母] 或 字母+1-2 数字）+ inward（数字+2 字母）。
// 参考 https://ideal-postcodes.co.uk/guides/uk-postcode-format
var (
	fullPostcodeRe = regexp.MustCompile(`^([A-Z]{1,2}[0-9][A-Z0-9]?|[A-Z][0-9]{1,2})\s?([0-9][A-Z]{2})$`)
	outwardCodeRe  = regexp.MustCompile(`^([A-Z]{1,2}[0-9][A-Z0-9]?|[A-Z][0-9]{1,2})$`)
)

// Postcode 规范化单个邮编：去空白、大写、校验格式。
// 完整邮编返回 "OUT 1WD" 形式；单独的 outward code（区域级）原样返回；
// 非法输入返回空串
func Postcode(raw string) string {
	fields := strings.Fields(strings.ToUpper(raw))
	s := strings.Join(fields, "")
	if s == "" {
		return ""
	}

	if m := fullPostcodeRe.FindStringSubmatch(s); m != nil {
		return m[1] + " " + m[2]
	}
	// sector 粒度（"CH7 6"）：outward + 空格 + 单个数字，截断为 outward。
	// 空格是与四字符 outward（"DN55"）区分的唯一依据，必须先于 outward 判定
	if len(fields) == 2 && len(fields[1]) == 1 &&
		fields[1][0] >= '0' && fields[1][0] <= '9' &&
		outwardCodeRe.MatchString(fields[0]) {
		return fields[0]
	}
	if outwardCodeRe.MatchString(s) {
		return s
	}
	return ""
}

// OutwardCode 取邮编的区域前缀；入参须已规范化
func OutwardCode(postcode string) string {
	if i := strings.IndexByte(postcode, ' '); i > 0 {
		return postcode[:i]
	}
	return postcode
}

// IsAreaPattern 判断订阅模式是否为区域级（仅 outward code）
func IsAreaPattern(pattern string) bool {
	return !strings.Contains(pattern, " ") && outwardCodeRe.MatchString(pattern)
}

// PostcodeList 批量规范化：去非法、去重、保序
func PostcodeList(raws []string) []string {
	seen := make(map[string]struct{}, len(raws))
	out := make([]string, 0, len(raws))
	for _, raw := range raws {
		pc := Postcode(raw)
		if pc == "" {
			continue
		}
		if _, ok := seen[pc]; ok {
			continue
		}
		seen[pc] = struct{}{}
		out = append(out, pc)
	}
	return out
}

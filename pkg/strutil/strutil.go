// Package strutil 문자열 처리와 관련된 범용 유틸리티 함수를 제공합니다.
package strutil

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Truncate 문자열을 최대 바이트 길이(limit)로 잘라서 반환합니다.
// UTF-8 문자 경계를 존중하므로 멀티바이트 문자(한글, 이모지 등)가 중간에서 깨지지 않습니다.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(s) <= limit {
		return s
	}

	// 잘린 지점이 멀티바이트 문자의 중간이라면, 온전한 문자 경계까지 되돌아갑니다.
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}

	return s[:cut]
}

// TruncateWithEllipsis 문자열이 limit를 초과하는 경우 말줄임표(…)를 덧붙여 잘라냅니다.
// 말줄임표를 포함한 결과 전체가 limit 바이트를 넘지 않도록 보장합니다.
func TruncateWithEllipsis(s string, limit int) string {
	const ellipsis = "…" // 3 bytes

	if len(s) <= limit {
		return s
	}
	if limit <= len(ellipsis) {
		return Truncate(s, limit)
	}

	return Truncate(s, limit-len(ellipsis)) + ellipsis
}

// SplitAndTrim 문자열을 구분자로 분리한 후, 각 항목의 공백을 제거하고 빈 항목은 버립니다.
func SplitAndTrim(s, sep string) []string {
	var result []string
	for _, v := range strings.Split(s, sep) {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		result = append(result, v)
	}
	return result
}

// FormatBytes 바이트 크기를 사람이 읽기 쉬운 단위(B, KB, MB, ...)로 변환합니다.
func FormatBytes(size int64) string {
	const unit = 1024

	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.2f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

package torrent

import (
	"context"
	"errors"
	"net"
	"strings"

	apperrors "github.com/darkkaiser/torrent-bot/internal/pkg/errors"
)

// classifyTransportError 백엔드 API 호출 실패의 원인을 에러 타입으로 분류합니다.
//
// 구조화된 신호(context 취소, net.Error)를 먼저 검사하고, 백엔드 라이브러리가
// 상태 코드를 노출하지 않는 경우에 한해 에러 메시지 문자열 휴리스틱을 적용합니다.
// 문자열 휴리스틱은 이 함수 안에만 존재해야 합니다.
func classifyTransportError(err error) apperrors.ErrorType {
	if err == nil {
		return apperrors.Unknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout
	}
	if errors.Is(err, context.Canceled) {
		return apperrors.ExecutionFailed
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return apperrors.Timeout
		}
		return apperrors.Unavailable
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "forbidden"),
		strings.Contains(msg, "bad credentials"),
		strings.Contains(msg, "login failed"),
		strings.Contains(msg, "401"),
		strings.Contains(msg, "403"):
		return apperrors.Unauthorized

	case strings.Contains(msg, "not found"),
		strings.Contains(msg, "404"):
		return apperrors.NotFound

	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "unreachable"):
		return apperrors.Unavailable

	default:
		return apperrors.ExecutionFailed
	}
}

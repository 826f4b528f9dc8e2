package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStd = errors.New("standard error")

func TestNew(t *testing.T) {
	t.Run("타입과 메시지가 포함된 에러를 생성한다", func(t *testing.T) {
		err := New(NotFound, "토렌트를 찾을 수 없습니다")

		require.Error(t, err)
		assert.Equal(t, "[NotFound] 토렌트를 찾을 수 없습니다", err.Error())
	})

	t.Run("Newf는 포맷 문자열을 지원한다", func(t *testing.T) {
		err := Newf(InvalidInput, "잘못된 해시: %s", "abc")

		assert.Equal(t, "[InvalidInput] 잘못된 해시: abc", err.Error())
	})

	t.Run("생성 지점의 스택이 수집된다", func(t *testing.T) {
		err := New(Internal, "boom")

		var appErr *AppError
		require.True(t, errors.As(err, &appErr))
		require.NotEmpty(t, appErr.stack)
		assert.Equal(t, "errors_test.go", appErr.stack[0].File)
	})
}

func TestWrap(t *testing.T) {
	t.Run("원인 에러가 메시지에 포함된다", func(t *testing.T) {
		err := Wrap(errStd, ExecutionFailed, "목록 조회 실패")

		assert.Equal(t, "[ExecutionFailed] 목록 조회 실패: standard error", err.Error())
	})

	t.Run("nil 에러를 감싸면 nil을 반환한다", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, Internal, "무시됨"))
		assert.NoError(t, Wrapf(nil, Internal, "무시됨 %d", 1))
	})

	t.Run("Unwrap으로 원인 에러를 복원할 수 있다", func(t *testing.T) {
		err := Wrap(errStd, System, "래핑")

		assert.Equal(t, errStd, errors.Unwrap(err))
		assert.True(t, errors.Is(err, errStd))
	})
}

func TestIs(t *testing.T) {
	t.Run("체인 중간의 타입도 탐지한다", func(t *testing.T) {
		err := Wrap(Wrap(New(Unauthorized, "인증 만료"), ExecutionFailed, "호출 실패"), Internal, "처리 실패")

		assert.True(t, Is(err, Unauthorized))
		assert.True(t, Is(err, ExecutionFailed))
		assert.True(t, Is(err, Internal))
		assert.False(t, Is(err, NotFound))
	})

	t.Run("nil 및 표준 에러는 항상 false", func(t *testing.T) {
		assert.False(t, Is(nil, Internal))
		assert.False(t, Is(errStd, Internal))
	})
}

func TestRootCause(t *testing.T) {
	t.Run("가장 안쪽 에러를 반환한다", func(t *testing.T) {
		err := Wrap(Wrap(errStd, System, "1차"), Internal, "2차")

		assert.Equal(t, errStd, RootCause(err))
	})

	t.Run("nil은 nil을 반환한다", func(t *testing.T) {
		assert.NoError(t, RootCause(nil))
	})
}

func TestUnderlyingType(t *testing.T) {
	t.Run("가장 안쪽 AppError의 타입을 반환한다", func(t *testing.T) {
		err := Wrap(New(NotFound, "없음"), Internal, "조회 실패")

		assert.Equal(t, NotFound, UnderlyingType(err))
	})

	t.Run("외부 에러를 감싼 경우에도 래핑 타입을 반환한다", func(t *testing.T) {
		err := Wrap(errStd, Timeout, "요청 시간 초과")

		assert.Equal(t, Timeout, UnderlyingType(err))
	})

	t.Run("AppError가 없으면 Unknown을 반환한다", func(t *testing.T) {
		assert.Equal(t, Unknown, UnderlyingType(errStd))
		assert.Equal(t, Unknown, UnderlyingType(nil))
	})
}

func TestFormat(t *testing.T) {
	t.Run("%+v는 에러 체인과 스택을 출력한다", func(t *testing.T) {
		err := Wrap(New(ParsingFailed, "XML 파싱 실패"), ExecutionFailed, "검색 실패")

		out := fmt.Sprintf("%+v", err)

		assert.Contains(t, out, "[ExecutionFailed] 검색 실패")
		assert.Contains(t, out, "Caused by:")
		assert.Contains(t, out, "[ParsingFailed] XML 파싱 실패")
		// 스택은 체인의 Root에서만 출력된다.
		assert.Equal(t, 1, strings.Count(out, "Stack trace:"))
	})

	t.Run("%s와 %q는 Error()와 동일하다", func(t *testing.T) {
		err := New(Unavailable, "점검 중")

		assert.Equal(t, err.Error(), fmt.Sprintf("%s", err))
		assert.Equal(t, fmt.Sprintf("%q", err.Error()), fmt.Sprintf("%q", err))
	})
}

func TestErrorTypeString(t *testing.T) {
	cases := map[ErrorType]string{
		Unknown:         "Unknown",
		Internal:        "Internal",
		System:          "System",
		Unauthorized:    "Unauthorized",
		Forbidden:       "Forbidden",
		InvalidInput:    "InvalidInput",
		NotFound:        "NotFound",
		ExecutionFailed: "ExecutionFailed",
		ParsingFailed:   "ParsingFailed",
		Timeout:         "Timeout",
		Unavailable:     "Unavailable",
	}
	for errType, want := range cases {
		assert.Equal(t, want, errType.String())
	}
}

package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage(t *testing.T) {
	t.Parallel()

	t.Run("HTML 태그의 짝이 맞는 메시지는 HTML 모드로 전송된다", func(t *testing.T) {
		s, botAPI, _ := newTestService(nil)

		s.sendMessage(context.Background(), 12345, "<b>완료</b>되었습니다")

		last, ok := botAPI.lastSent()
		require.True(t, ok)
		assert.Equal(t, tgbotapi.ModeHTML, last.ParseMode)
	})

	t.Run("HTML 태그의 짝이 맞지 않는 메시지는 PlainText 모드로 전송된다", func(t *testing.T) {
		s, botAPI, _ := newTestService(nil)

		s.sendMessage(context.Background(), 12345, "토렌트 이름에 <b 태그가 깨진 경우")

		last, ok := botAPI.lastSent()
		require.True(t, ok)
		assert.Empty(t, last.ParseMode)
	})

	t.Run("길이 제한을 초과하는 메시지는 말줄임표와 함께 잘린다", func(t *testing.T) {
		s, botAPI, _ := newTestService(nil)

		s.sendMessage(context.Background(), 12345, strings.Repeat("가", 2000))

		last, ok := botAPI.lastSent()
		require.True(t, ok)
		assert.LessOrEqual(t, len(last.Text), messageMaxLength)
		assert.True(t, strings.HasSuffix(last.Text, "…"))
	})
}

func TestAttemptSendWithRetry(t *testing.T) {
	t.Parallel()

	t.Run("429 오류는 재시도 후 성공한다", func(t *testing.T) {
		s, botAPI, _ := newTestService(nil)

		failures := 1
		botAPI.sendFunc = func(c tgbotapi.MessageConfig) (tgbotapi.Message, error) {
			if failures > 0 {
				failures--
				return tgbotapi.Message{}, &tgbotapi.Error{Code: 429, Message: "Too Many Requests"}
			}
			return tgbotapi.Message{}, nil
		}

		err := s.attemptSendWithRetry(context.Background(), tgbotapi.NewMessage(12345, "재시도 테스트"), false)

		require.NoError(t, err)
		assert.Equal(t, 2, botAPI.sendAttempts)
	})

	t.Run("400 오류시 PlainText 모드로 전환하여 재시도한다", func(t *testing.T) {
		s, botAPI, _ := newTestService(nil)

		botAPI.sendFunc = func(c tgbotapi.MessageConfig) (tgbotapi.Message, error) {
			if c.ParseMode == tgbotapi.ModeHTML {
				return tgbotapi.Message{}, &tgbotapi.Error{Code: 400, Message: "Bad Request: can't parse entities"}
			}
			return tgbotapi.Message{}, nil
		}

		err := s.attemptSendWithRetry(context.Background(), tgbotapi.NewMessage(12345, "<b>깨진 태그"), true)

		require.NoError(t, err)

		last, ok := botAPI.lastSent()
		require.True(t, ok)
		assert.Empty(t, last.ParseMode)
	})

	t.Run("429를 제외한 4xx 오류는 재시도하지 않는다", func(t *testing.T) {
		s, botAPI, _ := newTestService(nil)

		botAPI.sendFunc = func(c tgbotapi.MessageConfig) (tgbotapi.Message, error) {
			return tgbotapi.Message{}, &tgbotapi.Error{Code: 403, Message: "Forbidden"}
		}

		err := s.attemptSendWithRetry(context.Background(), tgbotapi.NewMessage(12345, "차단된 채팅방"), false)

		require.Error(t, err)
		assert.Equal(t, 1, botAPI.sendAttempts)
	})

	t.Run("네트워크 오류는 최대 재시도 횟수까지 시도한다", func(t *testing.T) {
		s, botAPI, _ := newTestService(nil)

		botAPI.sendFunc = func(c tgbotapi.MessageConfig) (tgbotapi.Message, error) {
			return tgbotapi.Message{}, errors.New("network error")
		}

		err := s.attemptSendWithRetry(context.Background(), tgbotapi.NewMessage(12345, "실패 테스트"), false)

		require.Error(t, err)
		assert.Equal(t, maxSendRetries, botAPI.sendAttempts)
	})

	t.Run("컨텍스트가 취소되면 즉시 중단한다", func(t *testing.T) {
		s, botAPI, _ := newTestService(nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := s.attemptSendWithRetry(ctx, tgbotapi.NewMessage(12345, "취소 테스트"), false)

		require.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, botAPI.sendAttempts)
	})
}

func TestNotify(t *testing.T) {
	t.Parallel()

	t.Run("발송 요청은 큐에 등록된다", func(t *testing.T) {
		s, _, _ := newTestService(nil)

		assert.True(t, s.Notify("알림 메시지"))
		assert.Equal(t, 1, len(s.sendC))
	})

	t.Run("오류 알림에는 오류 표시가 접두된다", func(t *testing.T) {
		s, _, _ := newTestService(nil)

		require.True(t, s.NotifyError("디스크 공간 부족"))

		request := <-s.sendC
		assert.Contains(t, request.message, "오류가 발생하였습니다")
		assert.Contains(t, request.message, "디스크 공간 부족")
	})

	t.Run("큐가 가득 차면 메시지를 버리고 false를 반환한다", func(t *testing.T) {
		s, _, _ := newTestService(nil)
		s.sendC = make(chan sendRequest, 1)

		assert.True(t, s.Notify("첫번째"))
		assert.False(t, s.Notify("두번째"))
	})
}

func TestIsBalancedHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		expected bool
	}{
		{"태그 없음", "일반 텍스트", true},
		{"짝이 맞는 태그", "<b>굵게</b> <i>기울임</i>", true},
		{"속성을 가진 태그", `<a href="https://example.com">링크</a>`, true},
		{"닫는 태그 누락", "<b>굵게", false},
		{"여는 태그 누락", "굵게</b>", false},
		{"중첩 태그", "<b><code>해시</code></b>", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isBalancedHTML(tt.text))
		})
	}
}

package bot

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoll(t *testing.T) {
	t.Parallel()

	t.Run("마지막 커서 다음 위치부터 업데이트를 요청한다", func(t *testing.T) {
		s, botAPI, _ := newTestService(nil)

		var requestedOffset int
		botAPI.getUpdatesFunc = func(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
			requestedOffset = config.Offset
			return nil, nil
		}

		_, _, err := s.poll(context.Background(), 100)

		require.NoError(t, err)
		assert.Equal(t, 101, requestedOffset)
	})

	t.Run("커서는 수신한 업데이트의 최대 ID로 전진한다", func(t *testing.T) {
		s, botAPI, _ := newTestService(nil)

		botAPI.getUpdatesFunc = func(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
			return []tgbotapi.Update{{UpdateID: 7}, {UpdateID: 5}, {UpdateID: 6}}, nil
		}

		updates, cursor, err := s.poll(context.Background(), 4)

		require.NoError(t, err)
		assert.Equal(t, 7, cursor)

		// 업데이트는 ID 오름차순으로 정렬되어 반환된다.
		require.Len(t, updates, 3)
		assert.Equal(t, 5, updates[0].UpdateID)
		assert.Equal(t, 6, updates[1].UpdateID)
		assert.Equal(t, 7, updates[2].UpdateID)
	})

	t.Run("수신 실패시 커서가 전진하지 않는다", func(t *testing.T) {
		s, botAPI, _ := newTestService(nil)

		botAPI.getUpdatesFunc = func(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
			return nil, errors.New("network error")
		}

		updates, cursor, err := s.poll(context.Background(), 42)

		require.Error(t, err)
		assert.Nil(t, updates)
		assert.Equal(t, 42, cursor)
	})

	t.Run("수신할 업데이트가 없으면 커서가 유지된다", func(t *testing.T) {
		s, botAPI, _ := newTestService(nil)

		botAPI.getUpdatesFunc = func(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
			return nil, nil
		}

		updates, cursor, err := s.poll(context.Background(), 42)

		require.NoError(t, err)
		assert.Empty(t, updates)
		assert.Equal(t, 42, cursor)
	})

	t.Run("폴링 요청에 Long Polling 설정이 적용된다", func(t *testing.T) {
		s, botAPI, _ := newTestService(nil)

		var received tgbotapi.UpdateConfig
		botAPI.getUpdatesFunc = func(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
			received = config
			return nil, nil
		}

		_, _, err := s.poll(context.Background(), 0)

		require.NoError(t, err)
		assert.Equal(t, pollLimit, received.Limit)
		assert.Equal(t, pollTimeoutSeconds, received.Timeout)
	})
}

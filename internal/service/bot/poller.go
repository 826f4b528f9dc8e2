package bot

import (
	"context"
	"sort"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// receiveAndDispatch 텔레그램 서버로부터 메시지를 Long Polling으로 수신하여
// 명령어 디스패처로 전달하는 Receiver 루프입니다.
func (s *Service) receiveAndDispatch(ctx context.Context) {
	var cursor int

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		updates, newCursor, err := s.poll(ctx, cursor)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			// 수신 실패시 커서를 유지한채 잠시 대기후 재시도한다.
			s.logger.Warnf("텔레그램 메시지 수신이 실패했습니다(%s후 재시도): %v", pollRetryDelay, err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(pollRetryDelay):
			}
			continue
		}
		cursor = newCursor

		for _, update := range updates {
			if update.Message == nil || update.Message.Text == "" {
				continue
			}

			message := update.Message

			select {
			case <-ctx.Done():
				return
			case s.commandSemaphore <- struct{}{}:
			}

			s.workersWG.Add(1)
			go func() {
				defer s.workersWG.Done()
				defer func() { <-s.commandSemaphore }()

				s.dispatch(ctx, message)
			}()
		}
	}
}

// poll 마지막으로 처리한 Update ID 이후의 메시지를 수신합니다.
//
// 수신에 실패한 경우 커서를 그대로 반환하여 다음 호출에서 동일한 지점부터
// 다시 수신하도록 합니다.
func (s *Service) poll(ctx context.Context, cursor int) ([]tgbotapi.Update, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, cursor, err
	}

	updateConfig := tgbotapi.NewUpdate(cursor + 1)
	updateConfig.Limit = pollLimit
	updateConfig.Timeout = pollTimeoutSeconds

	updates, err := s.client.GetUpdates(updateConfig)
	if err != nil {
		return nil, cursor, err
	}

	sort.Slice(updates, func(i, j int) bool { return updates[i].UpdateID < updates[j].UpdateID })

	newCursor := cursor
	for _, update := range updates {
		if update.UpdateID > newCursor {
			newCursor = update.UpdateID
		}
	}

	return updates, newCursor, nil
}

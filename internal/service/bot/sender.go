package bot

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	applog "github.com/darkkaiser/torrent-bot/pkg/log"
	"github.com/darkkaiser/torrent-bot/pkg/strutil"
)

// Notify 알림 메시지의 발송을 요청합니다. service.Notifier 인터페이스 구현입니다.
//
// 발송 요청은 큐에 등록된 후 Sender 고루틴이 순차적으로 처리하므로 이 함수는
// 블로킹되지 않습니다. 큐가 가득 찬 경우 메시지를 버리고 false를 반환합니다.
func (s *Service) Notify(message string) bool {
	return s.enqueue(message)
}

// NotifyError 오류 알림 메시지의 발송을 요청합니다. service.Notifier 인터페이스 구현입니다.
func (s *Service) NotifyError(message string) bool {
	return s.enqueue("*** 오류가 발생하였습니다. ***\n\n" + message)
}

func (s *Service) enqueue(message string) bool {
	select {
	case s.sendC <- sendRequest{message: message}:
		return true
	default:
		applog.WithComponentAndFields(component, applog.Fields{
			"queue_size":     sendQueueSize,
			"message_length": len(message),
		}).Error("알림 발송 큐가 가득 차서 메시지가 유실되었습니다")
		return false
	}
}

// sendWorker 발송 큐의 알림 메시지를 순차적으로 전송하는 Sender 루프입니다.
//
// 서비스 중지시에는 큐에 남아있는 메시지를 제한 시간내에서 모두 발송한 후 종료합니다.
func (s *Service) sendWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.drainSendQueue()
			return
		case request := <-s.sendC:
			s.sendMessage(ctx, s.chatID, request.message)
		}
	}
}

// drainSendQueue 서비스 중지 시점에 발송 큐에 남아있는 메시지를 발송합니다.
func (s *Service) drainSendQueue() {
	remaining := len(s.sendC)
	if remaining == 0 {
		return
	}

	s.logger.Infof("발송 큐에 남아있는 %d건의 메시지를 발송합니다...", remaining)

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownDrainTimeout)
	defer cancel()

	for {
		select {
		case <-drainCtx.Done():
			s.logger.Warnf("발송 제한 시간이 초과되어 %d건의 메시지가 유실되었습니다", len(s.sendC))
			return
		case request := <-s.sendC:
			s.sendMessage(drainCtx, s.chatID, request.message)
		default:
			return
		}
	}
}

// replyTo 수신한 메시지의 채팅방으로 응답 메시지를 전송합니다.
func (s *Service) replyTo(ctx context.Context, message *tgbotapi.Message, text string) {
	s.sendMessage(ctx, message.Chat.ID, text)
}

// replyWithKeyboard 응답 키보드를 함께 첨부하여 응답 메시지를 전송합니다.
func (s *Service) replyWithKeyboard(ctx context.Context, message *tgbotapi.Message, text string) {
	messageConfig := tgbotapi.NewMessage(message.Chat.ID, text)
	messageConfig.ReplyMarkup = replyKeyboard()

	s.send(ctx, messageConfig, isBalancedHTML(text))
}

// sendMessage 메시지 한 건을 텔레그램 API로 전송합니다.
//
// 텔레그램 API의 길이 제한을 초과하는 메시지는 말줄임표를 붙여 잘라내며,
// HTML 태그의 짝이 맞지 않는 메시지는 PlainText 모드로 전송합니다.
func (s *Service) sendMessage(ctx context.Context, chatID int64, text string) {
	text = strutil.TruncateWithEllipsis(text, messageMaxLength)

	messageConfig := tgbotapi.NewMessage(chatID, text)
	s.send(ctx, messageConfig, isBalancedHTML(text))
}

func (s *Service) send(ctx context.Context, messageConfig tgbotapi.MessageConfig, useHTML bool) {
	if err := s.attemptSendWithRetry(ctx, messageConfig, useHTML); err != nil {
		applog.WithComponentAndFields(component, applog.Fields{
			"chat_id":        messageConfig.ChatID,
			"error":          err,
			"message_length": len(messageConfig.Text),
		}).Error("텔레그램 메시지 발송이 최종 실패하였습니다")
	}
}

// attemptSendWithRetry 텔레그램 메시지 전송을 시도하며, 실패시 자동으로 재시도합니다.
//
//   - Rate Limiter로 텔레그램 API의 전송 횟수 제한을 준수합니다.
//   - 일시적 오류(5xx, 네트워크 오류)는 최대 maxSendRetries회까지 재시도합니다.
//   - 429 오류시 서버가 Retry-After로 요청한 시간만큼 대기합니다.
//   - HTML 파싱 오류(400)시 PlainText 모드로 전환하여 재시도합니다.
func (s *Service) attemptSendWithRetry(ctx context.Context, messageConfig tgbotapi.MessageConfig, useHTML bool) error {
	if useHTML {
		messageConfig.ParseMode = tgbotapi.ModeHTML
	} else {
		messageConfig.ParseMode = ""
	}

	if err := s.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	var lastErr error

	for attempt := 1; attempt <= maxSendRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, err := s.client.Send(messageConfig)
		if err == nil {
			return nil
		}
		lastErr = err

		errCode, retryAfter := parseTelegramError(err)

		applog.WithComponentAndFields(component, applog.Fields{
			"chat_id": messageConfig.ChatID,
			"attempt": attempt,
			"code":    errCode,
			"error":   err,
		}).Warn("텔레그램 메시지 발송이 실패하였습니다")

		// 400 오류는 대부분 HTML 파싱 실패이므로 PlainText 모드로 전환하여 재시도한다.
		if useHTML && errCode == 400 {
			return s.attemptSendWithRetry(ctx, messageConfig, false)
		}

		if !shouldRetry(errCode) {
			return err
		}

		if attempt >= maxSendRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.delayForRetry(retryAfter)):
		}
	}

	return lastErr
}

// shouldRetry 주어진 HTTP 상태 코드를 기반으로 재시도 가능 여부를 판단합니다.
// 4xx 오류는 429(Rate Limit)를 제외하고 재시도가 불가능합니다.
func shouldRetry(statusCode int) bool {
	if statusCode >= 400 && statusCode < 500 {
		return statusCode == 429
	}

	// 5xx 서버 오류 및 네트워크 오류(errCode=0)는 재시도 가능
	return true
}

// delayForRetry 다음 재시도까지의 대기 시간을 계산합니다.
// 서버가 Retry-After로 대기 시간을 지정한 경우(429) 이를 우선 사용합니다.
func (s *Service) delayForRetry(retryAfter int) time.Duration {
	if retryAfter > 0 {
		return time.Duration(retryAfter) * time.Second
	}
	return s.retryDelay
}

// parseTelegramError 텔레그램 API 에러에서 에러 코드와 Retry-After 값을 추출합니다.
func parseTelegramError(err error) (code int, retryAfter int) {
	if apiErr, ok := err.(tgbotapi.Error); ok {
		return apiErr.Code, apiErr.ResponseParameters.RetryAfter
	}
	if apiErrPtr, ok := err.(*tgbotapi.Error); ok {
		return apiErrPtr.Code, apiErrPtr.ResponseParameters.RetryAfter
	}
	return 0, 0
}

// htmlTags 봇이 메시지 서식에 사용하는 HTML 태그 목록입니다.
var htmlTags = []string{"b", "i", "u", "s", "code", "pre", "a"}

// isBalancedHTML 메시지에 사용된 HTML 태그의 여닫는 짝이 맞는지 검사합니다.
//
// 토렌트 이름 등 외부에서 유입된 문자열이 이스케이프를 거치지 않고 포함되면
// 텔레그램의 HTML 파서가 400 오류를 반환하므로, 짝이 맞지 않는 메시지는
// 처음부터 PlainText 모드로 전송하기 위한 사전 검사입니다.
func isBalancedHTML(text string) bool {
	for _, tag := range htmlTags {
		// 속성을 가진 여는 태그(예: <a href="...">)도 함께 센다.
		opens := strings.Count(text, "<"+tag+">") + strings.Count(text, "<"+tag+" ")
		closes := strings.Count(text, "</"+tag+">")
		if opens != closes {
			return false
		}
	}
	return true
}

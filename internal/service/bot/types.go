package bot

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// component 봇 서비스의 로깅용 컴포넌트 이름
const component = "bot"

const (
	// messageMaxLength 텔레그램 메시지 전송 시 허용되는 최대 문자 길이입니다.
	//
	// 텔레그램 Bot API 공식 제한은 4096자이지만, HTML 태그 오버헤드를 고려하여
	// 안전 마진을 두고 3900자로 설정했습니다. 이를 초과하는 메시지는 말줄임표와 함께 잘립니다.
	messageMaxLength = 3900

	// pollTimeoutSeconds Long Polling 대기 시간 (초)
	pollTimeoutSeconds = 30

	// pollLimit 한 번의 폴링으로 수신하는 최대 업데이트 수
	pollLimit = 100

	// pollRetryDelay 폴링 실패 시 다음 시도까지의 대기 시간
	pollRetryDelay = 5 * time.Second

	// sendQueueSize 발송 대기 큐의 크기
	sendQueueSize = 100

	// commandSemaphoreSize 동시에 처리할 수 있는 명령어 수
	commandSemaphoreSize = 5

	// shutdownDrainTimeout 종료 시 큐에 남은 메시지를 처리하기 위해 대기하는 최대 시간
	shutdownDrainTimeout = 30 * time.Second

	// sendRetryDelay 발송 실패 시 재시도 전 기본 대기 시간
	sendRetryDelay = 2 * time.Second

	// maxSendRetries 발송 최대 재시도 횟수
	maxSendRetries = 3
)

// botClient 텔레그램 봇 API와의 통신을 추상화한 인터페이스입니다.
type botClient interface {
	// GetSelf 현재 봇의 사용자 정보를 반환합니다.
	GetSelf() tgbotapi.User

	// GetUpdates 지정된 오프셋부터의 업데이트를 Long Polling으로 수신합니다.
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)

	// Send 메시지를 전송합니다.
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)

	// Request 메시지 외의 API 요청(명령어 등록 등)을 수행합니다.
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// tgClient tgbotapi.BotAPI를 래핑하여 botClient 인터페이스를 구현하는 구조체입니다.
type tgClient struct {
	*tgbotapi.BotAPI
}

// GetSelf 현재 봇의 사용자 정보를 반환합니다.
func (c *tgClient) GetSelf() tgbotapi.User {
	return c.Self
}

// sendRequest 발송 큐에 등록되는 단일 발송 요청입니다.
type sendRequest struct {
	message string
}

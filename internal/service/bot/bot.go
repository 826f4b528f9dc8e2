// Package bot 텔레그램 봇 서비스를 제공합니다.
//
// 이 서비스는 Sender/Receiver 패턴으로 구성됩니다:
//   - Receiver: 텔레그램 서버로부터 메시지를 Long Polling으로 수신하여
//     명령어 디스패처로 전달합니다. 세마포어로 동시 처리 수를 제한합니다.
//   - Sender: 내부 컴포넌트(모니터, API 서버 등)의 알림 발송 요청을 채널로
//     수신하여 텔레그램 API로 전송합니다. Rate Limit과 재시도를 처리합니다.
//
// 두 흐름을 분리하여 알림 발송이 지연되어도 명령어 수신에는 영향을 주지 않습니다.
package bot

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/darkkaiser/torrent-bot/internal/config"
	"github.com/darkkaiser/torrent-bot/internal/jackett"
	"github.com/darkkaiser/torrent-bot/internal/jellyfin"
	apperrors "github.com/darkkaiser/torrent-bot/internal/pkg/errors"
	"github.com/darkkaiser/torrent-bot/internal/service"
	"github.com/darkkaiser/torrent-bot/internal/torrent"
	"github.com/darkkaiser/torrent-bot/internal/ytdl"
	applog "github.com/darkkaiser/torrent-bot/pkg/log"
)

// Service 텔레그램 봇 서비스입니다. service.Service와 service.Notifier를 구현합니다.
type Service struct {
	appConfig *config.AppConfig

	client botClient
	chatID int64

	torrentClient  torrent.Client
	jackettClient  *jackett.Client
	jellyfinClient *jellyfin.Client
	downloader     *ytdl.Downloader

	sendC       chan sendRequest
	rateLimiter *rate.Limiter
	retryDelay  time.Duration

	// commandSemaphore 명령어 처리 고루틴의 동시 실행 수를 제한합니다.
	commandSemaphore chan struct{}

	// workersWG Sender/Receiver 및 명령어 처리 고루틴의 종료를 대기합니다.
	workersWG sync.WaitGroup

	running   bool
	runningMu sync.Mutex

	logger *logrus.Entry
}

var (
	_ service.Service  = (*Service)(nil)
	_ service.Notifier = (*Service)(nil)
)

// NewService 새로운 텔레그램 봇 서비스를 생성합니다.
//
// jackettClient, jellyfinClient는 해당 기능이 비활성화된 경우 nil일 수 있습니다.
func NewService(appConfig *config.AppConfig, torrentClient torrent.Client, jackettClient *jackett.Client, jellyfinClient *jellyfin.Client, downloader *ytdl.Downloader) *Service {
	return &Service{
		appConfig: appConfig,

		chatID: appConfig.Telegram.ChatID,

		torrentClient:  torrentClient,
		jackettClient:  jackettClient,
		jellyfinClient: jellyfinClient,
		downloader:     downloader,

		sendC: make(chan sendRequest, sendQueueSize),

		// 텔레그램 API 정책(채팅방당 초당 1회)을 준수한다.
		rateLimiter: rate.NewLimiter(rate.Limit(1), 1),
		retryDelay:  sendRetryDelay,

		commandSemaphore: make(chan struct{}, commandSemaphoreSize),

		logger: applog.WithComponent(component),
	}
}

// Start 봇 서비스를 시작합니다.
func (s *Service) Start(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) error {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()

	s.logger.Info("텔레그램 봇 서비스 시작중...")

	if s.running {
		defer serviceStopWG.Done()
		s.logger.Warn("텔레그램 봇 서비스가 이미 시작됨!!!")
		return nil
	}

	if s.client == nil {
		botAPI, err := tgbotapi.NewBotAPI(s.appConfig.Telegram.BotToken)
		if err != nil {
			defer serviceStopWG.Done()
			return apperrors.Wrap(err, apperrors.Unauthorized, "텔레그램 봇 초기화에 실패했습니다")
		}
		s.client = &tgClient{botAPI}
	}

	if err := s.registerCommands(); err != nil {
		// 명령어 메뉴 등록 실패는 봇 동작에 치명적이지 않다.
		s.logger.Warnf("텔레그램 명령어 메뉴 등록에 실패했습니다: %v", err)
	}

	s.workersWG.Add(2)
	go func() {
		defer s.workersWG.Done()
		s.sendWorker(serviceStopCtx)
	}()
	go func() {
		defer s.workersWG.Done()
		s.receiveAndDispatch(serviceStopCtx)
	}()

	go s.waitForShutdown(serviceStopCtx, serviceStopWG)

	s.running = true

	applog.WithComponentAndFields(component, applog.Fields{
		"bot_username": s.client.GetSelf().UserName,
		"chat_id":      s.chatID,
	}).Info("텔레그램 봇 서비스 시작됨")

	return nil
}

// waitForShutdown 서비스의 종료 신호를 감지하고 리소스를 안전하게 정리합니다.
func (s *Service) waitForShutdown(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) {
	defer serviceStopWG.Done()

	<-serviceStopCtx.Done()

	s.logger.Info("텔레그램 봇 서비스 중지중...")

	s.workersWG.Wait()

	s.runningMu.Lock()
	s.running = false
	s.runningMu.Unlock()

	s.logger.Info("텔레그램 봇 서비스 중지됨")
}

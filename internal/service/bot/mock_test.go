package bot

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/darkkaiser/torrent-bot/internal/config"
	"github.com/darkkaiser/torrent-bot/internal/torrent"
	applog "github.com/darkkaiser/torrent-bot/pkg/log"
)

// fakeBotClient 테스트용 botClient 구현체입니다.
// 전송된 메시지를 기록하고, 폴링/전송 동작을 함수로 주입받아 시나리오를 구성합니다.
type fakeBotClient struct {
	mu sync.Mutex

	getUpdatesFunc func(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
	sendFunc       func(c tgbotapi.MessageConfig) (tgbotapi.Message, error)

	sentMessages []tgbotapi.MessageConfig
	requests     []tgbotapi.Chattable

	// sendAttempts 실패를 포함한 전체 Send 호출 횟수입니다.
	sendAttempts int
}

func (c *fakeBotClient) GetSelf() tgbotapi.User {
	return tgbotapi.User{ID: 99, UserName: "testbot"}
}

func (c *fakeBotClient) GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	if c.getUpdatesFunc != nil {
		return c.getUpdatesFunc(config)
	}
	return nil, nil
}

func (c *fakeBotClient) Send(chattable tgbotapi.Chattable) (tgbotapi.Message, error) {
	messageConfig, ok := chattable.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, nil
	}

	c.mu.Lock()
	c.sendAttempts++
	c.mu.Unlock()

	if c.sendFunc != nil {
		message, err := c.sendFunc(messageConfig)
		if err != nil {
			return message, err
		}
	}

	c.mu.Lock()
	c.sentMessages = append(c.sentMessages, messageConfig)
	c.mu.Unlock()

	return tgbotapi.Message{MessageID: len(c.sentMessages)}, nil
}

func (c *fakeBotClient) Request(chattable tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	c.mu.Lock()
	c.requests = append(c.requests, chattable)
	c.mu.Unlock()

	return &tgbotapi.APIResponse{Ok: true}, nil
}

// sent 지금까지 전송된 메시지들의 복사본을 반환합니다.
func (c *fakeBotClient) sent() []tgbotapi.MessageConfig {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]tgbotapi.MessageConfig(nil), c.sentMessages...)
}

// lastSent 마지막으로 전송된 메시지를 반환합니다. 전송된 메시지가 없으면 false를 반환합니다.
func (c *fakeBotClient) lastSent() (tgbotapi.MessageConfig, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.sentMessages) == 0 {
		return tgbotapi.MessageConfig{}, false
	}
	return c.sentMessages[len(c.sentMessages)-1], true
}

// fakeTorrentClient 테스트용 torrent.Client 구현체입니다.
type fakeTorrentClient struct {
	mu sync.Mutex

	torrents    []torrent.Snapshot
	torrentsErr error

	freeSpace    int64
	freeSpaceErr error

	// addErr URL별로 등록 실패를 시뮬레이션합니다.
	addErr map[string]error

	added   []string
	started []string
	stopped []string
	removed []string
}

var _ torrent.Client = (*fakeTorrentClient)(nil)

func (c *fakeTorrentClient) Login(ctx context.Context) error { return nil }

func (c *fakeTorrentClient) Torrents(ctx context.Context) ([]torrent.Snapshot, error) {
	if c.torrentsErr != nil {
		return nil, c.torrentsErr
	}
	return c.torrents, nil
}

func (c *fakeTorrentClient) AddByURL(ctx context.Context, url string) error {
	if err := c.addErr[url]; err != nil {
		return err
	}

	c.mu.Lock()
	c.added = append(c.added, url)
	c.mu.Unlock()
	return nil
}

func (c *fakeTorrentClient) Start(ctx context.Context, hash string) error {
	c.mu.Lock()
	c.started = append(c.started, hash)
	c.mu.Unlock()
	return nil
}

func (c *fakeTorrentClient) Stop(ctx context.Context, hash string) error {
	c.mu.Lock()
	c.stopped = append(c.stopped, hash)
	c.mu.Unlock()
	return nil
}

func (c *fakeTorrentClient) Remove(ctx context.Context, hash string, deleteData bool) error {
	c.mu.Lock()
	c.removed = append(c.removed, hash)
	c.mu.Unlock()
	return nil
}

func (c *fakeTorrentClient) FreeSpace(ctx context.Context) (int64, error) {
	if c.freeSpaceErr != nil {
		return 0, c.freeSpaceErr
	}
	return c.freeSpace, nil
}

// newTestService 테스트용 봇 서비스와 fake 클라이언트들을 생성합니다.
func newTestService(authorizedUserIDs []int64) (*Service, *fakeBotClient, *fakeTorrentClient) {
	appConfig := &config.AppConfig{
		Telegram: config.TelegramConfig{
			BotToken:          "123456789:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
			ChatID:            12345,
			AuthorizedUserIDs: authorizedUserIDs,
		},
	}

	botAPI := &fakeBotClient{}
	torrentClient := &fakeTorrentClient{}

	s := NewService(appConfig, torrentClient, nil, nil, nil)
	s.client = botAPI
	s.retryDelay = time.Millisecond
	s.rateLimiter = rate.NewLimiter(rate.Inf, 0)
	s.logger = applog.WithComponent(component)

	return s, botAPI, torrentClient
}

// newTestMessage 테스트용 수신 메시지를 생성합니다.
func newTestMessage(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID, UserName: "tester"},
		Chat:      &tgbotapi.Chat{ID: 12345},
		Text:      text,
	}
}

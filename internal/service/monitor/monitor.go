// Package monitor 토렌트 백엔드를 주기적으로 폴링하여 다운로드 완료를 감지하는 서비스를 제공합니다.
//
// 폴링 주기마다 전체 토렌트의 상태 스냅샷을 받아 직전 관측 상태와 비교하고,
// 다운로드중이던 토렌트가 완료 상태로 전이되면 Notifier를 통해 알림을 발송합니다.
// 완료 알림은 토렌트당 한 번만 발송됩니다.
package monitor

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/darkkaiser/torrent-bot/internal/config"
	"github.com/darkkaiser/torrent-bot/internal/service"
	"github.com/darkkaiser/torrent-bot/internal/torrent"
	"github.com/darkkaiser/torrent-bot/pkg/cronx"
	applog "github.com/darkkaiser/torrent-bot/pkg/log"
	"github.com/darkkaiser/torrent-bot/pkg/strutil"
)

const component = "monitor"

// watchState 개별 토렌트의 관측 이력입니다.
type watchState struct {
	class torrent.StateClass

	// notified 완료 알림을 이미 발송한 경우 true입니다. 한 번 발송된 토렌트는
	// 이후 상태가 바뀌어도 다시 알리지 않습니다.
	notified bool
}

// Service 토렌트 완료 감지 서비스입니다.
type Service struct {
	appConfig *config.AppConfig

	torrentClient torrent.Client
	notifier      service.Notifier

	// watched 해시별 관측 이력. 토렌트가 백엔드에서 제거되어도 항목을 유지하여
	// 동일 해시의 재등록시 중복 알림을 방지합니다.
	watched   map[string]*watchState
	watchedMu sync.Mutex

	cronRunner *cron.Cron

	workersWG sync.WaitGroup

	running   bool
	runningMu sync.Mutex

	logger *logrus.Entry
}

var _ service.Service = (*Service)(nil)

// NewService 새로운 토렌트 완료 감지 서비스를 생성합니다.
func NewService(appConfig *config.AppConfig, torrentClient torrent.Client, notifier service.Notifier) *Service {
	return &Service{
		appConfig: appConfig,

		torrentClient: torrentClient,
		notifier:      notifier,

		watched: make(map[string]*watchState),

		logger: applog.WithComponent(component),
	}
}

// Start 완료 감지 서비스를 시작합니다.
func (s *Service) Start(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) error {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()

	s.logger.Info("토렌트 완료 감지 서비스 시작중...")

	if s.running {
		defer serviceStopWG.Done()
		s.logger.Warn("토렌트 완료 감지 서비스가 이미 시작됨!!!")
		return nil
	}

	// 완료 감지 폴링과는 독립된 주기로 현황 요약을 발송한다.
	s.cronRunner = cron.New(cron.WithParser(cronx.StandardParser()))
	if _, err := s.cronRunner.AddFunc(s.appConfig.Monitor.SummaryTimeSpec, func() {
		s.sendSummary(serviceStopCtx)
	}); err != nil {
		defer serviceStopWG.Done()
		return err
	}
	s.cronRunner.Start()

	s.workersWG.Add(1)
	go func() {
		defer s.workersWG.Done()
		s.run(serviceStopCtx)
	}()
	go s.waitForShutdown(serviceStopCtx, serviceStopWG)

	s.running = true

	applog.WithComponentAndFields(component, applog.Fields{
		"poll_interval":     s.appConfig.Monitor.PollInterval,
		"summary_time_spec": s.appConfig.Monitor.SummaryTimeSpec,
	}).Info("토렌트 완료 감지 서비스 시작됨")

	return nil
}

// run 폴링 주기마다 토렌트 상태를 점검하는 메인 루프입니다.
func (s *Service) run(ctx context.Context) {
	ticker := time.NewTicker(s.appConfig.Monitor.PollIntervalDuration())
	defer ticker.Stop()

	// 서비스 시작 직후의 상태를 기준점으로 기록한다.
	s.checkOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkOnce(ctx)
		}
	}
}

// checkOnce 전체 토렌트의 현재 상태를 조회하여 직전 관측 상태와 비교합니다.
// 조회에 실패한 경우 이번 주기는 건너뛰며, 관측 이력은 변경하지 않습니다.
func (s *Service) checkOnce(ctx context.Context) {
	torrents, err := s.torrentClient.Torrents(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warnf("토렌트 상태 조회가 실패하여 이번 주기를 건너뜁니다: %v", err)
		return
	}

	for _, t := range torrents {
		if message, notify := s.observe(t); notify {
			if !s.notifier.Notify(message) {
				s.logger.Error("토렌트 완료 알림의 발송 요청이 실패하였습니다")
			}
		}
	}
}

// observe 토렌트 한 건의 상태 전이를 기록하고, 완료 알림 발송 여부를 판단합니다.
func (s *Service) observe(t torrent.Snapshot) (message string, notify bool) {
	s.watchedMu.Lock()
	defer s.watchedMu.Unlock()

	state, ok := s.watched[t.Hash]
	if !ok {
		// 처음 관측된 토렌트가 이미 완료 상태라면 과거에 완료된 것이므로 알리지 않는다.
		s.watched[t.Hash] = &watchState{
			class:    t.Class,
			notified: t.Class == torrent.ClassCompleted,
		}
		return "", false
	}

	previous := state.class
	state.class = t.Class

	if state.notified || t.Class != torrent.ClassCompleted || previous == torrent.ClassCompleted {
		return "", false
	}

	state.notified = true

	applog.WithComponentAndFields(component, applog.Fields{
		"hash": t.Hash,
		"name": t.Name,
	}).Info("토렌트 다운로드 완료 감지됨")

	return fmt.Sprintf("✅ 토렌트 다운로드가 완료되었습니다.\n%s", html.EscapeString(t.Name)), true
}

// sendSummary 현재 토렌트 현황과 디스크 여유 공간을 요약하여 발송합니다.
func (s *Service) sendSummary(ctx context.Context) {
	torrents, err := s.torrentClient.Torrents(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warnf("현황 요약을 위한 토렌트 상태 조회가 실패하였습니다: %v", err)
		return
	}

	message := formatSummary(torrents)

	if freeBytes, err := s.torrentClient.FreeSpace(ctx); err == nil {
		message += fmt.Sprintf("\n\n디스크 여유 공간: %s", strutil.FormatBytes(freeBytes))
	}

	if !s.notifier.Notify(message) {
		s.logger.Error("토렌트 현황 요약의 발송 요청이 실패하였습니다")
	}
}

// formatSummary 전체 토렌트의 상태를 요약한 HTML 메시지를 생성합니다.
func formatSummary(torrents []torrent.Snapshot) string {
	if len(torrents) == 0 {
		return "📊 <b>토렌트 현황</b>\n등록된 토렌트가 없습니다."
	}

	counts := make(map[torrent.StateClass]int)
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📊 <b>토렌트 현황</b> (전체 %d건)\n", len(torrents)))
	for _, t := range torrents {
		counts[t.Class]++

		sb.WriteString(fmt.Sprintf("\n• %s\n  %s · %.1f%%", html.EscapeString(t.Name), t.Class, t.Progress*100))
		if t.Class == torrent.ClassDownloading {
			sb.WriteString(fmt.Sprintf(" · ↓%s/s ↑%s/s", strutil.FormatBytes(t.DownloadRate), strutil.FormatBytes(t.UploadRate)))
		}
	}

	sb.WriteString(fmt.Sprintf("\n\n다운로드중 %d건 · 완료 %d건 · 일시정지 %d건 · 오류 %d건",
		counts[torrent.ClassDownloading],
		counts[torrent.ClassCompleted],
		counts[torrent.ClassPaused],
		counts[torrent.ClassErrored],
	))
	return sb.String()
}

// waitForShutdown 서비스의 종료 신호를 감지하고 리소스를 안전하게 정리합니다.
func (s *Service) waitForShutdown(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) {
	defer serviceStopWG.Done()

	<-serviceStopCtx.Done()

	s.logger.Info("토렌트 완료 감지 서비스 중지중...")

	s.workersWG.Wait()

	// 실행중인 요약 작업이 끝날 때까지 대기한다.
	<-s.cronRunner.Stop().Done()

	s.runningMu.Lock()
	s.running = false
	s.runningMu.Unlock()

	s.logger.Info("토렌트 완료 감지 서비스 중지됨")
}

// Package api 외부 애플리케이션이 텔레그램 알림을 발송할 수 있는 REST API 서버를 제공합니다.
//
// 설정 파일에 등록된 애플리케이션만 발송이 허용되며, 접수된 메시지는
// 텔레그램 봇 서비스의 발송 큐를 통해 전송됩니다.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/darkkaiser/torrent-bot/internal/config"
	apperrors "github.com/darkkaiser/torrent-bot/internal/pkg/errors"
	"github.com/darkkaiser/torrent-bot/internal/service"
	applog "github.com/darkkaiser/torrent-bot/pkg/log"
)

const component = "api"

// shutdownTimeout HTTP 서버 Graceful Shutdown의 최대 대기 시간
const shutdownTimeout = 5 * time.Second

// Service 알림 API 서버 서비스입니다.
type Service struct {
	appConfig *config.AppConfig

	notifier service.Notifier

	running   bool
	runningMu sync.Mutex

	logger *logrus.Entry
}

var _ service.Service = (*Service)(nil)

// NewService 새로운 알림 API 서버 서비스를 생성합니다.
func NewService(appConfig *config.AppConfig, notifier service.Notifier) *Service {
	return &Service{
		appConfig: appConfig,

		notifier: notifier,

		logger: applog.WithComponent(component),
	}
}

// Start 알림 API 서버를 시작합니다.
func (s *Service) Start(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) error {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()

	s.logger.Info("알림 API 서비스 시작중...")

	if s.notifier == nil {
		defer serviceStopWG.Done()
		return apperrors.New(apperrors.Internal, "Notifier 객체가 초기화되지 않았습니다")
	}

	if s.running {
		defer serviceStopWG.Done()
		s.logger.Warn("알림 API 서비스가 이미 시작됨!!!")
		return nil
	}

	go s.run(serviceStopCtx, serviceStopWG)

	s.running = true

	applog.WithComponentAndFields(component, applog.Fields{
		"listen_port": s.appConfig.NotifyAPI.ListenPort,
	}).Info("알림 API 서비스 시작됨")

	return nil
}

func (s *Service) run(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) {
	defer serviceStopWG.Done()

	e := s.buildServer()

	// 서비스 종료시 s.notifier를 정리하기 전에 HTTP 서버가 완전히 종료되었음을
	// 보장하기 위한 채널이다.
	httpServerDone := make(chan struct{})

	go func(listenPort int) {
		defer close(httpServerDone)

		err := e.Start(fmt.Sprintf(":%d", listenPort))

		// Start() 함수는 항상 nil이 아닌 error를 반환한다.
		if errors.Is(err, http.ErrServerClosed) {
			s.logger.Info("알림 API 서비스 > http 서버 중지됨")
		} else {
			applog.WithComponentAndFields(component, applog.Fields{
				"listen_port": listenPort,
				"error":       err,
			}).Error("알림 API 서비스 > http 서버를 구성하는 중에 치명적인 오류가 발생하였습니다")

			s.notifier.NotifyError(fmt.Sprintf("알림 API 서버의 시작이 실패하였습니다.(포트:%d)", listenPort))
		}
	}(s.appConfig.NotifyAPI.ListenPort)

	<-serviceStopCtx.Done()

	s.logger.Info("알림 API 서비스 중지중...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		s.logger.Error(err)
	}

	<-httpServerDone

	s.runningMu.Lock()
	s.running = false
	s.runningMu.Unlock()

	s.logger.Info("알림 API 서비스 중지됨")
}

// buildServer 라우팅과 핸들러가 구성된 echo 인스턴스를 생성합니다.
func (s *Service) buildServer() *echo.Echo {
	h := newHandler(s.appConfig, s.notifier)

	e := newRouter()
	e.GET("/health", h.healthHandler)

	grp := e.Group("/api/v1")
	{
		grp.POST("/notifications", h.notifyMessageSendHandler)
	}

	return e
}

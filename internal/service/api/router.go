package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	applog "github.com/darkkaiser/torrent-bot/pkg/log"
)

// requestsPerSecond 발신지 IP당 허용되는 초당 요청 수
const requestsPerSecond = 10

// newRouter 알림 API 서버의 공통 미들웨어가 적용된 echo 인스턴스를 생성합니다.
func newRouter() *echo.Echo {
	e := echo.New()

	e.HideBanner = true
	e.HidePort = true

	e.Use(requestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(middleware.BodyLimit("64K"))
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(requestsPerSecond))))

	echo.NotFoundHandler = func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "페이지를 찾을 수 없습니다.")
	}

	return e
}

// requestLogger 처리된 HTTP 요청을 Logrus로 기록하는 미들웨어를 생성합니다.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogRemoteIP: true,
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := applog.WithComponentAndFields(component, applog.Fields{
				"remote_ip": v.RemoteIP,
				"method":    v.Method,
				"uri":       v.URI,
				"status":    v.Status,
				"latency":   v.Latency,
			})

			if v.Error != nil {
				entry.WithField("error", v.Error).Warn("HTTP 요청 처리 실패")
			} else if v.Status >= http.StatusInternalServerError {
				entry.Warn("HTTP 요청 처리 실패")
			} else {
				entry.Log(logrus.DebugLevel, "HTTP 요청 처리됨")
			}
			return nil
		},
	})
}

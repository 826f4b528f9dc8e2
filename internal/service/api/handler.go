package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/darkkaiser/torrent-bot/internal/config"
	"github.com/darkkaiser/torrent-bot/internal/service"
	applog "github.com/darkkaiser/torrent-bot/pkg/log"
)

// notifyMessage 알림 발송 요청의 본문입니다.
type notifyMessage struct {
	ApplicationID string `json:"application_id"`
	Message       string `json:"message"`
	ErrorOccurred bool   `json:"error_occurred"`
}

// successResponse 표준 성공 응답입니다.
type successResponse struct {
	ResultCode int `json:"result_code"`
}

// handler 알림 API 요청을 처리합니다.
type handler struct {
	allowedApplications []config.ApplicationConfig

	notifier service.Notifier
}

func newHandler(appConfig *config.AppConfig, notifier service.Notifier) *handler {
	return &handler{
		allowedApplications: appConfig.NotifyAPI.Applications,

		notifier: notifier,
	}
}

// healthHandler 서버의 동작 여부를 반환합니다.
func (h *handler) healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// notifyMessageSendHandler 등록된 외부 애플리케이션의 알림 메시지를 접수하여
// 텔레그램 발송 큐에 등록합니다.
//
// 요청한 애플리케이션 ID가 등록되어 있고 app_key 쿼리 파라미터가 일치하는
// 경우에만 발송이 허용됩니다.
func (h *handler) notifyMessageSendHandler(c echo.Context) error {
	m := new(notifyMessage)
	if err := c.Bind(m); err != nil {
		return err
	}

	if strings.TrimSpace(m.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "알림 메시지(message)가 비어 있습니다.")
	}

	appKey := c.QueryParam("app_key")

	for _, application := range h.allowedApplications {
		if application.ID != m.ApplicationID {
			continue
		}

		if application.AppKey != appKey {
			return echo.NewHTTPError(http.StatusUnauthorized, fmt.Sprintf("APP_KEY가 유효하지 않습니다.(ID:%s)", m.ApplicationID))
		}

		title := application.Title
		if title == "" {
			title = application.ID
		}
		message := fmt.Sprintf("<b>【 %s 】</b>\n\n%s", title, m.Message)

		var accepted bool
		if m.ErrorOccurred {
			accepted = h.notifier.NotifyError(message)
		} else {
			accepted = h.notifier.Notify(message)
		}

		if !accepted {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "알림 발송 큐가 가득 차서 메시지를 접수할 수 없습니다.")
		}

		applog.WithComponentAndFields(component, applog.Fields{
			"application_id": m.ApplicationID,
			"message_length": len(m.Message),
		}).Info("알림 메시지 발송 접수됨")

		return c.JSON(http.StatusOK, successResponse{ResultCode: 0})
	}

	return echo.NewHTTPError(http.StatusUnauthorized, fmt.Sprintf("접근이 허용되지 않은 Application입니다.(ID:%s)", m.ApplicationID))
}

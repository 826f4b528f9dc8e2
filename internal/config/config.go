// Package config 애플리케이션 설정 파일의 로드와 유효성 검증을 담당합니다.
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/go-viper/mapstructure/v2"

	apperrors "github.com/darkkaiser/torrent-bot/internal/pkg/errors"
	"github.com/darkkaiser/torrent-bot/pkg/cronx"
)

const (
	// AppName 애플리케이션의 전역 고유 식별자입니다.
	AppName string = "torrent-bot"

	// DefaultFilename 실행 인자로 명시적인 경로가 제공되지 않을 경우 참조하는 기본 설정 파일명입니다.
	DefaultFilename = AppName + ".json"

	// 토렌트 백엔드 종류
	TorrentKindQBittorrent  = "qbittorrent"
	TorrentKindTransmission = "transmission"

	// ------------------------------------------------------------------------------------------------
	// 모니터링 기본값
	// ------------------------------------------------------------------------------------------------

	// DefaultPollInterval 토렌트 상태 폴링 주기 기본값
	DefaultPollInterval = "10s"

	// DefaultSummaryTimeSpec 진행 상황 요약 알림 발송 주기 기본값 (Cron 6필드 형식)
	DefaultSummaryTimeSpec = "0 */30 * * * *"
)

// AppConfig 애플리케이션의 모든 설정을 관장하는 최상위 루트 구조체
type AppConfig struct {
	Debug     bool            `json:"debug"`
	Telegram  TelegramConfig  `json:"telegram"`
	Torrent   TorrentConfig   `json:"torrent"`
	Monitor   MonitorConfig   `json:"monitor"`
	Jackett   JackettConfig   `json:"jackett"`
	Jellyfin  JellyfinConfig  `json:"jellyfin"`
	Ytdl      YtdlConfig      `json:"ytdl"`
	NotifyAPI NotifyAPIConfig `json:"notify_api"`
}

// validate 설정 파일 로드 직후, 각 설정 항목의 정합성과 필수 값의 유효성을 검증합니다.
func (c *AppConfig) validate() error {
	if err := c.Telegram.validate(); err != nil {
		return err
	}
	if err := c.Torrent.validate(); err != nil {
		return err
	}
	if err := c.Monitor.validate(); err != nil {
		return err
	}
	if err := c.Jackett.validate(); err != nil {
		return err
	}
	if err := c.Jellyfin.validate(); err != nil {
		return err
	}
	if err := c.Ytdl.validate(); err != nil {
		return err
	}
	if err := c.NotifyAPI.validate(); err != nil {
		return err
	}
	return nil
}

// TelegramConfig 텔레그램 봇 토큰, 알림 채팅 ID 및 사용 권한 정보를 담는 설정 구조체
type TelegramConfig struct {
	BotToken string `json:"bot_token" validate:"required,telegram_bot_token"`
	ChatID   int64  `json:"chat_id" validate:"required"`

	// AuthorizedUserIDs 봇 명령 실행이 허용된 텔레그램 사용자 ID 목록입니다.
	// 비어있으면 모든 사용자가 허용됩니다. 로드 이후 변경되지 않습니다.
	AuthorizedUserIDs []int64 `json:"authorized_user_ids"`
}

func (c *TelegramConfig) validate() error {
	return validateStruct(c, "Telegram")
}

// Authorized 주어진 사용자 ID가 봇 사용 권한을 가지는지 확인합니다.
func (c *TelegramConfig) Authorized(userID int64) bool {
	if len(c.AuthorizedUserIDs) == 0 {
		return true
	}
	return slices.Contains(c.AuthorizedUserIDs, userID)
}

// TorrentConfig 토렌트 백엔드(qBittorrent 또는 Transmission) 접속 정보를 담는 설정 구조체
type TorrentConfig struct {
	Kind        string `json:"kind" validate:"required,oneof=qbittorrent transmission"`
	URL         string `json:"url" validate:"required,url"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	DownloadDir string `json:"download_dir"`
}

func (c *TorrentConfig) validate() error {
	return validateStruct(c, "Torrent")
}

// MonitorConfig 토렌트 완료 감시 및 진행 상황 요약 주기를 정의하는 설정 구조체
type MonitorConfig struct {
	PollInterval    string `json:"poll_interval"`
	SummaryTimeSpec string `json:"summary_time_spec"`
}

func (c *MonitorConfig) validate() error {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.InvalidInput, "토렌트 상태 폴링 주기(poll_interval) 설정이 올바르지 않습니다: '%s' (예: 10s, 1m)", c.PollInterval)
	}
	if d <= 0 {
		return apperrors.Newf(apperrors.InvalidInput, "토렌트 상태 폴링 주기(poll_interval)는 0보다 커야 합니다: '%s'", c.PollInterval)
	}

	if err := cronx.Validate(c.SummaryTimeSpec); err != nil {
		return apperrors.Wrapf(err, apperrors.InvalidInput, "요약 알림 주기(summary_time_spec) 설정이 올바르지 않습니다: '%s'", c.SummaryTimeSpec)
	}

	return nil
}

// PollIntervalDuration 검증된 폴링 주기를 time.Duration으로 반환합니다.
func (c *MonitorConfig) PollIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		// validate()를 통과한 설정에서는 도달할 수 없다.
		return 10 * time.Second
	}
	return d
}

// JackettConfig Jackett 토렌트 검색 프록시 접속 정보를 담는 설정 구조체
//
// URL이 비어있으면 검색 기능은 비활성화됩니다.
type JackettConfig struct {
	URL        string   `json:"url" validate:"omitempty,url"`
	APIKey     string   `json:"api_key"`
	Indexers   []string `json:"indexers"`
	Categories []int    `json:"categories"`
}

// Enabled Jackett 검색 기능의 활성화 여부를 반환합니다.
func (c *JackettConfig) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

func (c *JackettConfig) validate() error {
	if !c.Enabled() {
		return nil
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return apperrors.New(apperrors.InvalidInput, "Jackett API 키(api_key)가 설정되지 않았습니다")
	}
	if len(c.Indexers) == 0 {
		return apperrors.New(apperrors.InvalidInput, "Jackett 인덱서(indexers) 목록이 비어있습니다")
	}
	return validateStruct(c, "Jackett")
}

// JellyfinConfig Jellyfin 미디어 서버 접속 정보를 담는 설정 구조체
//
// URL이 비어있으면 미디어 라이브러리 기능은 비활성화됩니다.
// 인증은 사용자명/비밀번호 또는 정적 API 키 중 하나를 사용합니다.
type JellyfinConfig struct {
	URL      string `json:"url" validate:"omitempty,url"`
	Username string `json:"username"`
	Password string `json:"password"`
	APIKey   string `json:"api_key"`
}

// Enabled Jellyfin 연동 기능의 활성화 여부를 반환합니다.
func (c *JellyfinConfig) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

func (c *JellyfinConfig) validate() error {
	if !c.Enabled() {
		return nil
	}
	if strings.TrimSpace(c.APIKey) == "" && strings.TrimSpace(c.Username) == "" {
		return apperrors.New(apperrors.InvalidInput, "Jellyfin 인증 정보(username 또는 api_key)가 설정되지 않았습니다")
	}
	return validateStruct(c, "Jellyfin")
}

// YtdlConfig yt-dlp 실행 파일을 이용한 동영상 다운로드 설정 구조체
type YtdlConfig struct {
	BinPath     string `json:"bin_path"`
	DownloadDir string `json:"download_dir"`
	Format      string `json:"format"`
}

// Enabled 동영상 다운로드 기능의 활성화 여부를 반환합니다.
// 실행 파일 경로와 포맷은 기본값이 있으므로 다운로드 경로만 확인한다.
func (c *YtdlConfig) Enabled() bool {
	return strings.TrimSpace(c.DownloadDir) != ""
}

func (c *YtdlConfig) validate() error {
	return nil
}

// NotifyAPIConfig 외부 애플리케이션의 알림 발송을 위한 REST API 서버 설정 구조체
type NotifyAPIConfig struct {
	Enabled      bool                `json:"enabled"`
	ListenPort   int                 `json:"listen_port" validate:"omitempty,min=1,max=65535"`
	Applications []ApplicationConfig `json:"applications"`
}

func (c *NotifyAPIConfig) validate() error {
	if !c.Enabled {
		return nil
	}

	if c.ListenPort < 1 || c.ListenPort > 65535 {
		return apperrors.New(apperrors.InvalidInput, "알림 API 서버 포트(listen_port)는 1에서 65535 사이의 값이어야 합니다")
	}

	if len(c.Applications) == 0 {
		return apperrors.New(apperrors.InvalidInput, "알림 API 서버가 활성화되었지만 등록된 애플리케이션(applications)이 없습니다")
	}

	// Applications 중복 ID 검사
	if err := checkUniqueField(c.Applications, "ID", "Application"); err != nil {
		return err
	}

	for _, app := range c.Applications {
		if strings.TrimSpace(app.ID) == "" {
			return apperrors.New(apperrors.InvalidInput, "애플리케이션 ID(id)가 설정되지 않았습니다")
		}
		if strings.TrimSpace(app.AppKey) == "" {
			return apperrors.Newf(apperrors.InvalidInput, "Application['%s']의 API 키(app_key)가 설정되지 않았습니다", app.ID)
		}
	}

	return nil
}

// VerifyRecommendations 서비스 운영의 안정성을 위해 권장되는 설정 준수 여부를 진단합니다.
// 강제적인 에러를 발생시키지는 않으나, 잠재적 위험 요소에 대한 경고 메시지를 반환합니다.
func (c *AppConfig) VerifyRecommendations() []string {
	var warnings []string

	if len(c.Telegram.AuthorizedUserIDs) == 0 {
		warnings = append(warnings, "허용된 사용자 목록(authorized_user_ids)이 비어있어 모든 텔레그램 사용자가 봇 명령을 실행할 수 있습니다")
	}

	if c.NotifyAPI.Enabled && c.NotifyAPI.ListenPort < 1024 {
		warnings = append(warnings, fmt.Sprintf("시스템 예약 포트(1-1023)를 사용하도록 설정되었습니다(port: %d). 이 경우 서버 구동 시 관리자 권한이 필요할 수 있습니다", c.NotifyAPI.ListenPort))
	}

	return warnings
}

// ApplicationConfig 알림 API를 사용할 수 있는 클라이언트 어플리케이션의 인증 정보를 정의하는 구조체
type ApplicationConfig struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	AppKey      string `json:"app_key"`
}

// Load 기본 설정 파일을 읽어 애플리케이션 설정을 로드합니다.
func Load() (*AppConfig, error) {
	return LoadWithFile(DefaultFilename)
}

// LoadWithFile 지정된 경로의 설정 파일을 읽어 AppConfig 객체를 생성합니다.
//
// 우선순위(낮음 → 높음): 기본값 → JSON 설정 파일 → 환경 변수
func LoadWithFile(filename string) (*AppConfig, error) {
	k := koanf.New(".")

	// 1. 기본값 로드 (가장 낮은 우선순위)
	err := k.Load(confmap.Provider(map[string]interface{}{
		"torrent.kind":              TorrentKindQBittorrent,
		"monitor.poll_interval":     DefaultPollInterval,
		"monitor.summary_time_spec": DefaultSummaryTimeSpec,
	}, "."), nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.System, "애플리케이션 기본 설정 로드에 실패했습니다")
	}

	// 2. JSON 설정 파일 로드 (기본값 덮어쓰기)
	if err := k.Load(file.Provider(filename), json.Parser()); err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrapf(err, apperrors.System, "설정 파일을 찾을 수 없습니다: '%s'", filename)
		}
		return nil, apperrors.Wrapf(err, apperrors.InvalidInput, "설정 파일 로드 중 오류가 발생했습니다: '%s'", filename)
	}

	// 3. 환경 변수 로드 (최우선 순위, JSON 설정 덮어쓰기)
	// 접두사: TBOT_
	// 구분자: 이중 언더스코어(__)를 점(.)으로 변환 (계층 구조 표현)
	// 예: TBOT_TELEGRAM__BOT_TOKEN -> telegram.bot_token
	if err := k.Load(env.Provider("TBOT_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "TBOT_")
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, apperrors.Wrap(err, apperrors.System, "환경 변수 로드에 실패했습니다")
	}

	// 4. 구조체 언마샬링 (Strict Validation 적용)
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "json",
		DecoderConfig: &mapstructure.DecoderConfig{
			ErrorUnused:      true, // 파일에 존재하지만 구조체에 없는 필드가 있을 경우 에러를 발생시킴
			WeaklyTypedInput: true,
		},
	}
	var appConfig AppConfig
	if err := k.UnmarshalWithConf("", &appConfig, unmarshalConf); err != nil {
		return nil, apperrors.Wrap(err, apperrors.System, "설정 데이터를 애플리케이션 구조체로 변환하는데 실패했습니다")
	}

	// 5. 유효성 검사 수행 (정합성 체크)
	if err := appConfig.validate(); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.InvalidInput, "설정 파일('%s')의 유효성 검증에 실패했습니다", filename)
	}

	return &appConfig, nil
}

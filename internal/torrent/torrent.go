// Package torrent 토렌트 백엔드(qBittorrent, Transmission)에 대한 공통 클라이언트 추상화를 제공합니다.
//
// 각 백엔드의 고유한 상태 어휘는 네 가지 상태 클래스(다운로드중, 일시정지, 완료, 오류)로
// 통합되며, 상위 서비스는 백엔드 종류와 무관하게 동일한 Snapshot 모델을 다룹니다.
package torrent

import (
	"context"

	"github.com/darkkaiser/torrent-bot/internal/config"
	apperrors "github.com/darkkaiser/torrent-bot/internal/pkg/errors"
)

// StateClass 백엔드별 토렌트 상태를 통합한 상태 클래스입니다.
type StateClass int

const (
	// ClassDownloading 다운로드 진행 중 (대기, 검사 포함)
	ClassDownloading StateClass = iota

	// ClassPaused 사용자에 의해 일시정지됨
	ClassPaused

	// ClassCompleted 다운로드 완료 (시딩 포함)
	ClassCompleted

	// ClassErrored 오류 또는 식별 불가 상태
	ClassErrored
)

// String StateClass의 문자열 표현을 반환합니다.
func (c StateClass) String() string {
	switch c {
	case ClassDownloading:
		return "Downloading"
	case ClassPaused:
		return "Paused"
	case ClassCompleted:
		return "Completed"
	default:
		return "Errored"
	}
}

// Snapshot 특정 시점에 관측된 단일 토렌트의 상태입니다.
type Snapshot struct {
	// Hash 토렌트의 고유 식별자 (info hash)
	Hash string

	// Name 토렌트 이름
	Name string

	// State 백엔드가 보고한 원본 상태 문자열
	State string

	// Class 통합 상태 클래스
	Class StateClass

	// Progress 다운로드 진행률 (0.0 ~ 1.0)
	Progress float64

	// DownloadRate 다운로드 속도 (bytes/s)
	DownloadRate int64

	// UploadRate 업로드 속도 (bytes/s)
	UploadRate int64
}

// Client 토렌트 백엔드에 대한 공통 조작 인터페이스입니다.
type Client interface {
	// Login 백엔드에 접속하여 세션을 수립합니다.
	Login(ctx context.Context) error

	// Torrents 현재 등록된 모든 토렌트의 상태 스냅샷을 반환합니다.
	Torrents(ctx context.Context) ([]Snapshot, error)

	// AddByURL 마그넷 링크 또는 토렌트 파일 URL을 백엔드에 등록합니다.
	AddByURL(ctx context.Context, url string) error

	// Start 일시정지된 토렌트를 재개합니다.
	Start(ctx context.Context, hash string) error

	// Stop 토렌트를 일시정지합니다.
	Stop(ctx context.Context, hash string) error

	// Remove 토렌트를 목록에서 제거합니다. deleteData가 true이면 데이터 파일도 함께 삭제합니다.
	Remove(ctx context.Context, hash string, deleteData bool) error

	// FreeSpace 다운로드 디렉터리가 위치한 디스크의 여유 공간(bytes)을 반환합니다.
	FreeSpace(ctx context.Context) (int64, error)
}

// NewClient 설정된 백엔드 종류에 맞는 토렌트 클라이언트를 생성합니다.
func NewClient(cfg *config.TorrentConfig) (Client, error) {
	switch cfg.Kind {
	case config.TorrentKindQBittorrent:
		return newQBittorrentClient(cfg), nil
	case config.TorrentKindTransmission:
		return newTransmissionClient(cfg)
	default:
		return nil, apperrors.Newf(apperrors.InvalidInput, "지원하지 않는 토렌트 백엔드입니다: '%s'", cfg.Kind)
	}
}

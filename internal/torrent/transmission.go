package torrent

import (
	"context"
	"net/url"

	"github.com/hekmon/transmissionrpc/v3"

	"github.com/darkkaiser/torrent-bot/internal/config"
	apperrors "github.com/darkkaiser/torrent-bot/internal/pkg/errors"
)

// transmissionTorrentFields TorrentGet 호출 시 요청하는 필드 목록입니다.
var transmissionTorrentFields = []string{
	"id", "hashString", "name", "status", "percentDone", "rateDownload", "rateUpload", "errorString",
}

// transmissionClient hekmon/transmissionrpc 라이브러리를 이용한 Transmission RPC 어댑터입니다.
//
// CSRF 세션 ID(X-Transmission-Session-Id) 갱신은 라이브러리가 담당합니다.
type transmissionClient struct {
	client      *transmissionrpc.Client
	downloadDir string
}

var _ Client = (*transmissionClient)(nil)

func newTransmissionClient(cfg *config.TorrentConfig) (*transmissionClient, error) {
	endpoint, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.InvalidInput, "Transmission RPC 주소가 올바르지 않습니다: '%s'", cfg.URL)
	}
	if cfg.Username != "" {
		endpoint.User = url.UserPassword(cfg.Username, cfg.Password)
	}

	client, err := transmissionrpc.New(endpoint, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Internal, "Transmission RPC 클라이언트 생성에 실패했습니다")
	}

	return &transmissionClient{
		client:      client,
		downloadDir: cfg.DownloadDir,
	}, nil
}

func (c *transmissionClient) Login(ctx context.Context) error {
	// Transmission은 명시적인 로그인 절차가 없어 RPC 버전 핸드셰이크로 접속을 검증한다.
	ok, serverVersion, serverMinimumVersion, err := c.client.RPCVersion(ctx)
	if err != nil {
		return classifyTRError(err, "Transmission 접속 확인에 실패했습니다")
	}
	if !ok {
		return apperrors.Newf(apperrors.Unavailable,
			"Transmission RPC 버전이 호환되지 않습니다 (서버: v%d, 최소 요구: v%d)", serverVersion, serverMinimumVersion)
	}
	return nil
}

func (c *transmissionClient) Torrents(ctx context.Context) ([]Snapshot, error) {
	torrents, err := c.client.TorrentGet(ctx, transmissionTorrentFields, nil)
	if err != nil {
		return nil, classifyTRError(err, "토렌트 목록 조회에 실패했습니다")
	}

	snapshots := make([]Snapshot, 0, len(torrents))
	for _, t := range torrents {
		// 요청한 필드가 누락된 비정상 응답은 건너뛴다.
		if t.HashString == nil || t.Status == nil {
			continue
		}

		var (
			name     string
			progress float64
			dlRate   int64
			upRate   int64
			errStr   string
		)
		if t.Name != nil {
			name = *t.Name
		}
		if t.PercentDone != nil {
			progress = *t.PercentDone
		}
		if t.RateDownload != nil {
			dlRate = *t.RateDownload
		}
		if t.RateUpload != nil {
			upRate = *t.RateUpload
		}
		if t.ErrorString != nil {
			errStr = *t.ErrorString
		}

		snapshots = append(snapshots, Snapshot{
			Hash:         *t.HashString,
			Name:         name,
			State:        transmissionStateName(*t.Status),
			Class:        ClassifyTRStatus(*t.Status, progress, errStr),
			Progress:     progress,
			DownloadRate: dlRate,
			UploadRate:   upRate,
		})
	}
	return snapshots, nil
}

func (c *transmissionClient) AddByURL(ctx context.Context, torrentURL string) error {
	payload := transmissionrpc.TorrentAddPayload{Filename: &torrentURL}
	if c.downloadDir != "" {
		dir := c.downloadDir
		payload.DownloadDir = &dir
	}

	if _, err := c.client.TorrentAdd(ctx, payload); err != nil {
		return classifyTRError(err, "토렌트 등록에 실패했습니다")
	}
	return nil
}

func (c *transmissionClient) Start(ctx context.Context, hash string) error {
	if err := c.client.TorrentStartHashes(ctx, []string{hash}); err != nil {
		return classifyTRError(err, "토렌트 재개에 실패했습니다")
	}
	return nil
}

func (c *transmissionClient) Stop(ctx context.Context, hash string) error {
	if err := c.client.TorrentStopHashes(ctx, []string{hash}); err != nil {
		return classifyTRError(err, "토렌트 일시정지에 실패했습니다")
	}
	return nil
}

func (c *transmissionClient) Remove(ctx context.Context, hash string, deleteData bool) error {
	id, err := c.resolveID(ctx, hash)
	if err != nil {
		return err
	}

	err = c.client.TorrentRemove(ctx, transmissionrpc.TorrentRemovePayload{
		IDs:             []int64{id},
		DeleteLocalData: deleteData,
	})
	if err != nil {
		return classifyTRError(err, "토렌트 삭제에 실패했습니다")
	}
	return nil
}

func (c *transmissionClient) FreeSpace(ctx context.Context) (int64, error) {
	dir := c.downloadDir
	if dir == "" {
		// 다운로드 디렉터리가 설정되지 않은 경우 서버 세션의 기본 디렉터리를 사용한다.
		args, err := c.client.SessionArgumentsGet(ctx, []string{"download-dir"})
		if err != nil {
			return 0, classifyTRError(err, "세션 정보 조회에 실패했습니다")
		}
		if args.DownloadDir == nil {
			return 0, apperrors.New(apperrors.ExecutionFailed, "서버의 기본 다운로드 디렉터리를 확인할 수 없습니다")
		}
		dir = *args.DownloadDir
	}

	free, _, err := c.client.FreeSpace(ctx, dir)
	if err != nil {
		return 0, classifyTRError(err, "디스크 여유 공간 조회에 실패했습니다")
	}
	return int64(free.Byte()), nil
}

// resolveID 토렌트 해시를 Transmission 내부 ID로 변환합니다.
func (c *transmissionClient) resolveID(ctx context.Context, hash string) (int64, error) {
	torrents, err := c.client.TorrentGetHashes(ctx, []string{"id", "hashString"}, []string{hash})
	if err != nil {
		return 0, classifyTRError(err, "토렌트 조회에 실패했습니다")
	}
	for _, t := range torrents {
		if t.ID != nil && t.HashString != nil && *t.HashString == hash {
			return *t.ID, nil
		}
	}
	return 0, apperrors.Newf(apperrors.NotFound, "해당 해시의 토렌트를 찾을 수 없습니다: '%s'", hash)
}

// ClassifyTRStatus Transmission 고유의 상태 어휘를 통합 상태 클래스로 변환합니다.
//
// Transmission은 완료 후 정지된 토렌트도 Stopped로 보고하므로
// 진행률이 100%인 Stopped 상태는 완료로 분류합니다.
func ClassifyTRStatus(status transmissionrpc.TorrentStatus, progress float64, errorString string) StateClass {
	if errorString != "" {
		return ClassErrored
	}

	switch status {
	case transmissionrpc.TorrentStatusCheckWait,
		transmissionrpc.TorrentStatusCheck,
		transmissionrpc.TorrentStatusDownloadWait,
		transmissionrpc.TorrentStatusDownload:
		return ClassDownloading

	case transmissionrpc.TorrentStatusStopped:
		if progress >= 1.0 {
			return ClassCompleted
		}
		return ClassPaused

	case transmissionrpc.TorrentStatusSeedWait,
		transmissionrpc.TorrentStatusSeed:
		return ClassCompleted

	default:
		// TorrentStatusIsolated 등
		return ClassErrored
	}
}

// transmissionStateName Transmission 상태 코드를 사람이 읽을 수 있는 이름으로 변환합니다.
func transmissionStateName(status transmissionrpc.TorrentStatus) string {
	switch status {
	case transmissionrpc.TorrentStatusStopped:
		return "stopped"
	case transmissionrpc.TorrentStatusCheckWait:
		return "checkWait"
	case transmissionrpc.TorrentStatusCheck:
		return "checking"
	case transmissionrpc.TorrentStatusDownloadWait:
		return "downloadWait"
	case transmissionrpc.TorrentStatusDownload:
		return "downloading"
	case transmissionrpc.TorrentStatusSeedWait:
		return "seedWait"
	case transmissionrpc.TorrentStatusSeed:
		return "seeding"
	default:
		return "isolated"
	}
}

// classifyTRError Transmission RPC 호출 실패를 에러 타입으로 분류합니다.
func classifyTRError(err error, message string) error {
	return apperrors.Wrap(err, classifyTransportError(err), message)
}

package torrent

import (
	"context"

	"github.com/autobrr/go-qbittorrent"

	"github.com/darkkaiser/torrent-bot/internal/config"
	apperrors "github.com/darkkaiser/torrent-bot/internal/pkg/errors"
)

// qbittorrentClient autobrr/go-qbittorrent 라이브러리를 이용한 qBittorrent WebUI API 어댑터입니다.
//
// 세션 쿠키 관리와 재로그인은 라이브러리가 담당합니다.
type qbittorrentClient struct {
	client      *qbittorrent.Client
	downloadDir string
}

var _ Client = (*qbittorrentClient)(nil)

func newQBittorrentClient(cfg *config.TorrentConfig) *qbittorrentClient {
	return &qbittorrentClient{
		client: qbittorrent.NewClient(qbittorrent.Config{
			Host:     cfg.URL,
			Username: cfg.Username,
			Password: cfg.Password,
		}),
		downloadDir: cfg.DownloadDir,
	}
}

func (c *qbittorrentClient) Login(ctx context.Context) error {
	if err := c.client.LoginCtx(ctx); err != nil {
		return classifyQBError(err, "qBittorrent 로그인에 실패했습니다")
	}
	return nil
}

func (c *qbittorrentClient) Torrents(ctx context.Context) ([]Snapshot, error) {
	torrents, err := c.client.GetTorrentsCtx(ctx, qbittorrent.TorrentFilterOptions{})
	if err != nil {
		return nil, classifyQBError(err, "토렌트 목록 조회에 실패했습니다")
	}

	snapshots := make([]Snapshot, 0, len(torrents))
	for _, t := range torrents {
		snapshots = append(snapshots, Snapshot{
			Hash:         t.Hash,
			Name:         t.Name,
			State:        string(t.State),
			Class:        ClassifyQBState(t.State),
			Progress:     t.Progress,
			DownloadRate: t.DlSpeed,
			UploadRate:   t.UpSpeed,
		})
	}
	return snapshots, nil
}

func (c *qbittorrentClient) AddByURL(ctx context.Context, url string) error {
	options := map[string]string{}
	if c.downloadDir != "" {
		options["savepath"] = c.downloadDir
	}

	if err := c.client.AddTorrentFromUrlCtx(ctx, url, options); err != nil {
		return classifyQBError(err, "토렌트 등록에 실패했습니다")
	}
	return nil
}

func (c *qbittorrentClient) Start(ctx context.Context, hash string) error {
	if err := c.client.ResumeCtx(ctx, []string{hash}); err != nil {
		return classifyQBError(err, "토렌트 재개에 실패했습니다")
	}
	return nil
}

func (c *qbittorrentClient) Stop(ctx context.Context, hash string) error {
	if err := c.client.PauseCtx(ctx, []string{hash}); err != nil {
		return classifyQBError(err, "토렌트 일시정지에 실패했습니다")
	}
	return nil
}

func (c *qbittorrentClient) Remove(ctx context.Context, hash string, deleteData bool) error {
	if err := c.client.DeleteTorrentsCtx(ctx, []string{hash}, deleteData); err != nil {
		return classifyQBError(err, "토렌트 삭제에 실패했습니다")
	}
	return nil
}

func (c *qbittorrentClient) FreeSpace(ctx context.Context) (int64, error) {
	// 디스크 여유 공간은 별도의 API가 없어 메인 데이터 동기화 응답의 서버 상태에서 읽는다.
	mainData, err := c.client.SyncMainDataCtx(ctx, 0)
	if err != nil {
		return 0, classifyQBError(err, "디스크 여유 공간 조회에 실패했습니다")
	}
	return int64(mainData.ServerState.FreeSpaceOnDisk), nil
}

// ClassifyQBState qBittorrent 고유의 상태 어휘를 통합 상태 클래스로 변환합니다.
func ClassifyQBState(state qbittorrent.TorrentState) StateClass {
	switch state {
	case qbittorrent.TorrentStateDownloading,
		qbittorrent.TorrentStateMetaDl,
		qbittorrent.TorrentStateAllocating,
		qbittorrent.TorrentStateStalledDl,
		qbittorrent.TorrentStateCheckingDl,
		qbittorrent.TorrentStateQueuedDl,
		qbittorrent.TorrentStateForcedDl,
		qbittorrent.TorrentStateCheckingResumeData:
		return ClassDownloading

	case qbittorrent.TorrentStatePausedDl,
		qbittorrent.TorrentStateStoppedDl:
		return ClassPaused

	case qbittorrent.TorrentStateUploading,
		qbittorrent.TorrentStateStalledUp,
		qbittorrent.TorrentStateCheckingUp,
		qbittorrent.TorrentStateQueuedUp,
		qbittorrent.TorrentStateForcedUp,
		qbittorrent.TorrentStatePausedUp,
		qbittorrent.TorrentStateStoppedUp,
		qbittorrent.TorrentStateMoving:
		return ClassCompleted

	default:
		// error, missingFiles, unknown
		return ClassErrored
	}
}

// classifyQBError qBittorrent API 호출 실패를 에러 타입으로 분류합니다.
func classifyQBError(err error, message string) error {
	return apperrors.Wrap(err, classifyTransportError(err), message)
}

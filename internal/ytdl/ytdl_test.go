package ytdl

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkkaiser/torrent-bot/internal/config"
	apperrors "github.com/darkkaiser/torrent-bot/internal/pkg/errors"
)

// fakeRunner 실제 프로세스 실행 없이 지정된 출력을 반환하는 commandRunner입니다.
type fakeRunner struct {
	stdout  string
	stderr  string
	err     error
	gotBin  string
	gotArgs []string
}

func (f *fakeRunner) Run(_ context.Context, bin string, args []string) ([]byte, []byte, error) {
	f.gotBin = bin
	f.gotArgs = args
	return []byte(f.stdout), []byte(f.stderr), f.err
}

func newTestDownloader(runner *fakeRunner) *Downloader {
	d := NewDownloader(&config.YtdlConfig{
		BinPath:     "/usr/local/bin/yt-dlp",
		DownloadDir: "/downloads/video",
	})
	d.runner = runner
	return d
}

func TestProbe(t *testing.T) {
	t.Run("JSON 출력에서 동영상 정보를 추출한다", func(t *testing.T) {
		runner := &fakeRunner{
			stdout: `{"id": "dQw4w9WgXcQ", "title": "Test Video", "uploader": "TestChannel", "duration": 213.5, "formats": [{}, {}, {}]}`,
		}
		d := newTestDownloader(runner)

		info, err := d.Probe(context.Background(), "https://youtu.be/dQw4w9WgXcQ")

		require.NoError(t, err)
		assert.Equal(t, "dQw4w9WgXcQ", info.ID)
		assert.Equal(t, "Test Video", info.Title)
		assert.Equal(t, "TestChannel", info.Uploader)
		assert.Equal(t, 213500*time.Millisecond, info.Duration)
		assert.Equal(t, 3, info.FormatCount)

		assert.Equal(t, "/usr/local/bin/yt-dlp", runner.gotBin)
		assert.Equal(t, []string{"-J", "--no-playlist", "https://youtu.be/dQw4w9WgXcQ"}, runner.gotArgs)
	})

	t.Run("id가 없는 출력은 ParsingFailed 에러를 반환한다", func(t *testing.T) {
		d := newTestDownloader(&fakeRunner{stdout: `{}`})

		_, err := d.Probe(context.Background(), "https://youtu.be/x")

		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ParsingFailed))
	})
}

func TestDownload(t *testing.T) {
	t.Run("마지막 출력 줄을 저장 경로로 반환한다", func(t *testing.T) {
		runner := &fakeRunner{stdout: "/downloads/video/Test Video [dQw4w9WgXcQ].mp4\n"}
		d := newTestDownloader(runner)

		path, err := d.Download(context.Background(), "https://youtu.be/dQw4w9WgXcQ")

		require.NoError(t, err)
		assert.Equal(t, "/downloads/video/Test Video [dQw4w9WgXcQ].mp4", path)
		assert.Contains(t, runner.gotArgs, "--no-playlist")
		assert.Contains(t, runner.gotArgs, defaultFormat)
	})

	t.Run("경로가 출력되지 않으면 에러를 반환한다", func(t *testing.T) {
		d := newTestDownloader(&fakeRunner{stdout: "  \n "})

		_, err := d.Download(context.Background(), "https://youtu.be/x")

		assert.Error(t, err)
	})
}

func TestClassifyYtdlError(t *testing.T) {
	execErr := errors.New("exit status 1")

	cases := []struct {
		name   string
		err    error
		stderr string
		want   apperrors.ErrorType
	}{
		{"삭제된 동영상", execErr, "ERROR: Video unavailable", apperrors.NotFound},
		{"비공개 동영상", execErr, "ERROR: Private video. Sign in", apperrors.NotFound},
		{"지원하지 않는 URL", execErr, "ERROR: Unsupported URL: http://example.com", apperrors.InvalidInput},
		{"네트워크 오류", execErr, "ERROR: unable to download video data", apperrors.Unavailable},
		{"알 수 없는 오류", execErr, "ERROR: something odd", apperrors.ExecutionFailed},
		{"실행 파일 없음", exec.ErrNotFound, "", apperrors.System},
		{"시간 초과", context.DeadlineExceeded, "", apperrors.Timeout},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := classifyYtdlError(c.err, c.stderr, "실패")

			assert.True(t, apperrors.Is(err, c.want), "got: %v", err)
		})
	}
}

// Package ytdl yt-dlp 실행 파일을 이용한 동영상 정보 조회 및 다운로드 기능을 제공합니다.
package ytdl

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/darkkaiser/torrent-bot/internal/config"
	apperrors "github.com/darkkaiser/torrent-bot/internal/pkg/errors"
	"github.com/darkkaiser/torrent-bot/pkg/log"
)

const (
	// defaultBinPath yt-dlp 실행 파일 기본 경로 (PATH 탐색)
	defaultBinPath = "yt-dlp"

	// defaultFormat 화질/음질 선택 표현식 기본값
	defaultFormat = "bestvideo*+bestaudio/best"

	// outputTemplate 다운로드 파일명 템플릿
	outputTemplate = "%(title)s [%(id)s].%(ext)s"
)

// VideoInfo 다운로드 없이 조회한 동영상의 기본 정보입니다.
type VideoInfo struct {
	ID          string
	Title       string
	Uploader    string
	Duration    time.Duration
	FormatCount int
}

// commandRunner 외부 프로세스 실행을 추상화합니다.
type commandRunner interface {
	Run(ctx context.Context, bin string, args []string) (stdout, stderr []byte, err error)
}

// execRunner os/exec 기반의 기본 commandRunner 구현체입니다.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, bin string, args []string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Downloader yt-dlp 실행 파일 래퍼입니다.
type Downloader struct {
	binPath     string
	downloadDir string
	format      string
	runner      commandRunner
	logger      *logrus.Entry
}

// NewDownloader 새로운 동영상 다운로더를 생성합니다.
func NewDownloader(cfg *config.YtdlConfig) *Downloader {
	binPath := cfg.BinPath
	if binPath == "" {
		binPath = defaultBinPath
	}
	format := cfg.Format
	if format == "" {
		format = defaultFormat
	}

	return &Downloader{
		binPath:     binPath,
		downloadDir: cfg.DownloadDir,
		format:      format,
		runner:      execRunner{},
		logger:      log.WithComponent("ytdl"),
	}
}

// Probe 다운로드 없이 동영상의 메타데이터를 조회합니다.
func (d *Downloader) Probe(ctx context.Context, url string) (*VideoInfo, error) {
	stdout, stderr, err := d.runner.Run(ctx, d.binPath, []string{"-J", "--no-playlist", url})
	if err != nil {
		return nil, classifyYtdlError(err, string(stderr), "동영상 정보 조회에 실패했습니다")
	}

	root := gjson.ParseBytes(stdout)
	if !root.Get("id").Exists() {
		return nil, apperrors.New(apperrors.ParsingFailed, "yt-dlp 응답에서 동영상 정보를 찾을 수 없습니다")
	}

	return &VideoInfo{
		ID:          root.Get("id").String(),
		Title:       root.Get("title").String(),
		Uploader:    root.Get("uploader").String(),
		Duration:    time.Duration(root.Get("duration").Float() * float64(time.Second)),
		FormatCount: int(root.Get("formats.#").Int()),
	}, nil
}

// Download 동영상을 다운로드하고 저장된 파일 경로를 반환합니다.
func (d *Downloader) Download(ctx context.Context, url string) (string, error) {
	args := []string{
		"--no-playlist",
		"--no-progress",
		"--no-simulate",
		"--print", "after_move:filepath",
		"-f", d.format,
		"-o", filepath.Join(d.downloadDir, outputTemplate),
		url,
	}

	d.logger.WithFields(logrus.Fields{"url": url}).Debug("동영상 다운로드를 시작합니다.")

	stdout, stderr, err := d.runner.Run(ctx, d.binPath, args)
	if err != nil {
		return "", classifyYtdlError(err, string(stderr), "동영상 다운로드에 실패했습니다")
	}

	// --print after_move:filepath 출력의 마지막 줄이 최종 파일 경로다.
	lines := strings.Split(strings.TrimSpace(string(stdout)), "\n")
	path := strings.TrimSpace(lines[len(lines)-1])
	if path == "" {
		return "", apperrors.New(apperrors.ExecutionFailed, "yt-dlp가 저장 경로를 보고하지 않았습니다")
	}

	return path, nil
}

// classifyYtdlError yt-dlp 실행 실패의 원인을 에러 타입으로 분류합니다.
//
// 종료 코드는 실패 원인을 구분하지 못하므로 stderr 문자열 휴리스틱을 사용합니다.
// 휴리스틱은 이 함수 안에만 존재해야 합니다.
func classifyYtdlError(err error, stderr, message string) error {
	if errors.Is(err, exec.ErrNotFound) {
		return apperrors.Wrap(err, apperrors.System, "yt-dlp 실행 파일을 찾을 수 없습니다")
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.Wrap(err, apperrors.Timeout, message)
	}

	msg := strings.ToLower(stderr)
	var errType apperrors.ErrorType
	switch {
	case strings.Contains(msg, "video unavailable"),
		strings.Contains(msg, "private video"),
		strings.Contains(msg, "has been removed"):
		errType = apperrors.NotFound

	case strings.Contains(msg, "unsupported url"),
		strings.Contains(msg, "is not a valid url"):
		errType = apperrors.InvalidInput

	case strings.Contains(msg, "unable to download"),
		strings.Contains(msg, "network"),
		strings.Contains(msg, "timed out"):
		errType = apperrors.Unavailable

	default:
		errType = apperrors.ExecutionFailed
	}

	if stderr != "" {
		return apperrors.Wrapf(err, errType, "%s: %s", message, firstLine(stderr))
	}
	return apperrors.Wrap(err, errType, message)
}

// firstLine 여러 줄 문자열의 첫 줄을 반환합니다.
func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx != -1 {
		return s[:idx]
	}
	return s
}

package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/darkkaiser/torrent-bot/internal/jackett"
	"github.com/darkkaiser/torrent-bot/internal/jellyfin"
	"github.com/darkkaiser/torrent-bot/internal/torrent"
	"github.com/darkkaiser/torrent-bot/internal/ytdl"
)

func TestFormatTorrentGroups(t *testing.T) {
	t.Parallel()

	t.Run("토렌트가 없으면 안내 메시지를 반환한다", func(t *testing.T) {
		assert.Equal(t, "등록된 토렌트가 없습니다.", formatTorrentGroups(nil))
	})

	t.Run("상태 그룹은 정해진 순서대로 표시된다", func(t *testing.T) {
		message := formatTorrentGroups([]torrent.Snapshot{
			{Hash: "cccc", Name: "오류 토렌트", Class: torrent.ClassErrored},
			{Hash: "aaaa", Name: "받는중 토렌트", Class: torrent.ClassDownloading, Progress: 0.25},
			{Hash: "bbbb", Name: "완료 토렌트", Class: torrent.ClassCompleted, Progress: 1.0},
		})

		activeIdx := strings.Index(message, "Active")
		finishedIdx := strings.Index(message, "Finished")
		stoppedIdx := strings.Index(message, "Stopped")

		assert.Less(t, activeIdx, finishedIdx)
		assert.Less(t, finishedIdx, stoppedIdx)
	})

	t.Run("진행중인 토렌트에만 전송 속도가 표시된다", func(t *testing.T) {
		message := formatTorrentGroups([]torrent.Snapshot{
			{Hash: "aaaa", Name: "받는중", Class: torrent.ClassDownloading, Progress: 0.5, DownloadRate: 1048576},
			{Hash: "bbbb", Name: "완료", Class: torrent.ClassCompleted, Progress: 1.0},
		})

		assert.Contains(t, message, "↓1.00 MB/s")
		assert.Equal(t, 1, strings.Count(message, "↓"))
	})

	t.Run("토렌트 이름의 HTML 특수문자는 이스케이프된다", func(t *testing.T) {
		message := formatTorrentGroups([]torrent.Snapshot{
			{Hash: "aaaa", Name: "이름<한글>&테스트", Class: torrent.ClassCompleted},
		})

		assert.Contains(t, message, "이름&lt;한글&gt;&amp;테스트")
	})
}

func TestFormatReleases(t *testing.T) {
	t.Parallel()

	t.Run("검색 결과가 없으면 안내 메시지를 반환한다", func(t *testing.T) {
		message := formatReleases("우분투", nil)
		assert.Contains(t, message, "검색 결과가 없습니다")
	})

	t.Run("최대 표시 개수를 초과하는 결과는 잘린다", func(t *testing.T) {
		var releases []jackett.Release
		for i := 0; i < maxReleasesShown+5; i++ {
			releases = append(releases, jackett.Release{Title: "릴리스", Indexer: "test"})
		}

		message := formatReleases("우분투", releases)

		assert.Contains(t, message, "15건 중 10건 표시")
		assert.Equal(t, maxReleasesShown, strings.Count(message, "릴리스"))
	})

	t.Run("릴리스 정보에는 크기와 시더 수가 포함된다", func(t *testing.T) {
		message := formatReleases("우분투", []jackett.Release{
			{Title: "Ubuntu 24.04", Link: "magnet:?xt=urn:btih:abc", Size: 1073741824, Seeders: 10, Leechers: 2, Indexer: "nyaa"},
		})

		assert.Contains(t, message, "Ubuntu 24.04")
		assert.Contains(t, message, "1.00 GB")
		assert.Contains(t, message, "S:10 L:2")
		assert.Contains(t, message, "nyaa")
	})
}

func TestFormatMediaItems(t *testing.T) {
	t.Parallel()

	t.Run("미디어가 없으면 안내 메시지를 반환한다", func(t *testing.T) {
		assert.Equal(t, "조회된 미디어가 없습니다.", formatMediaItems("제목", nil))
	})

	t.Run("미디어 정보에는 제작연도와 시청 여부가 포함된다", func(t *testing.T) {
		movie := jellyfin.Item{Name: "영화 제목", Type: "Movie", ProductionYear: 2024}
		movie.UserData.Played = true

		message := formatMediaItems("최근 추가", []jellyfin.Item{
			movie,
			{Name: "시리즈 제목", Type: "Series"},
		})

		assert.Contains(t, message, "영화 제목 (2024) · Movie · 시청함")
		assert.Contains(t, message, "시리즈 제목")
		assert.Equal(t, 1, strings.Count(message, "시청함"))
	})
}

func TestFormatVideoInfo(t *testing.T) {
	t.Parallel()

	message := formatVideoInfo(&ytdl.VideoInfo{
		ID:       "dQw4w9WgXcQ",
		Title:    "동영상 제목",
		Uploader: "채널명",
		Duration: 3725 * time.Second,
	})

	assert.Contains(t, message, "동영상 제목")
	assert.Contains(t, message, "채널명")
	assert.Contains(t, message, "1:02:05")
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0:05", formatDuration(5*time.Second))
	assert.Equal(t, "3:25", formatDuration(205*time.Second))
	assert.Equal(t, "1:00:00", formatDuration(time.Hour))
}

func TestShortHash(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "aaaa1111", shortHash("aaaa1111aaaa1111aaaa1111aaaa1111aaaa1111"))
	assert.Equal(t, "abc", shortHash("abc"))
}

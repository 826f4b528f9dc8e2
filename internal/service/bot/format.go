package bot

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/darkkaiser/torrent-bot/internal/jackett"
	"github.com/darkkaiser/torrent-bot/internal/jellyfin"
	"github.com/darkkaiser/torrent-bot/internal/torrent"
	"github.com/darkkaiser/torrent-bot/internal/ytdl"
	"github.com/darkkaiser/torrent-bot/pkg/strutil"
)

// 검색 결과 및 미디어 목록의 최대 표시 개수
const (
	maxReleasesShown   = 10
	maxMediaItemsShown = 15
)

// shortHashLength 토렌트 목록에 표시되는 해시 접두사 길이입니다.
const shortHashLength = 8

// stateGroupOrder 토렌트 목록에 그룹이 표시되는 순서입니다.
var stateGroupOrder = []torrent.StateClass{
	torrent.ClassDownloading,
	torrent.ClassPaused,
	torrent.ClassCompleted,
	torrent.ClassErrored,
}

// stateGroupHeader 상태 그룹별 목록 헤더입니다.
func stateGroupHeader(class torrent.StateClass) string {
	switch class {
	case torrent.ClassDownloading:
		return "🔄 <b>Active</b>"
	case torrent.ClassPaused:
		return "⏸ <b>Paused</b>"
	case torrent.ClassCompleted:
		return "✅ <b>Finished</b>"
	default:
		return "🚫 <b>Stopped</b>"
	}
}

// formatTorrentGroups 토렌트 목록을 상태별로 그룹화한 HTML 메시지를 생성합니다.
func formatTorrentGroups(torrents []torrent.Snapshot) string {
	if len(torrents) == 0 {
		return "등록된 토렌트가 없습니다."
	}

	groups := make(map[torrent.StateClass][]torrent.Snapshot)
	for _, t := range torrents {
		groups[t.Class] = append(groups[t.Class], t)
	}

	var sb strings.Builder
	for _, class := range stateGroupOrder {
		items := groups[class]
		if len(items) == 0 {
			continue
		}

		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(stateGroupHeader(class))
		sb.WriteString("\n")

		for _, t := range items {
			sb.WriteString(formatTorrentLine(t))
		}
	}
	return sb.String()
}

// formatTorrentLine 토렌트 한 건을 목록의 한 항목으로 포맷합니다.
func formatTorrentLine(t torrent.Snapshot) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("• %s\n", html.EscapeString(t.Name)))
	sb.WriteString(fmt.Sprintf("  <code>%s</code> · %.1f%%", shortHash(t.Hash), t.Progress*100))

	if t.Class == torrent.ClassDownloading {
		sb.WriteString(fmt.Sprintf(" · ↓%s/s ↑%s/s", strutil.FormatBytes(t.DownloadRate), strutil.FormatBytes(t.UploadRate)))
	}

	sb.WriteString("\n")
	return sb.String()
}

func shortHash(hash string) string {
	if len(hash) <= shortHashLength {
		return hash
	}
	return hash[:shortHashLength]
}

// formatDiskSpace 다운로드 디스크의 여유 공간 메시지를 생성합니다.
func formatDiskSpace(freeBytes int64) string {
	return fmt.Sprintf("💾 다운로드 디스크 여유 공간: <b>%s</b>", strutil.FormatBytes(freeBytes))
}

// formatReleases Jackett 검색 결과를 HTML 메시지로 생성합니다.
// 시더 수가 많은 순으로 최대 maxReleasesShown건까지만 표시합니다.
func formatReleases(query string, releases []jackett.Release) string {
	if len(releases) == 0 {
		return fmt.Sprintf("'%s'에 대한 검색 결과가 없습니다.", html.EscapeString(query))
	}

	shown := len(releases)
	if shown > maxReleasesShown {
		shown = maxReleasesShown
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔍 <b>'%s' 검색 결과</b> (%d건 중 %d건 표시)\n", html.EscapeString(query), len(releases), shown))

	for i := 0; i < shown; i++ {
		r := releases[i]

		sb.WriteString(fmt.Sprintf("\n%d. %s\n", i+1, html.EscapeString(r.Title)))
		sb.WriteString(fmt.Sprintf("  %s · S:%d L:%d · %s\n", strutil.FormatBytes(r.Size), r.Seeders, r.Leechers, html.EscapeString(r.Indexer)))
		sb.WriteString(fmt.Sprintf("  <code>%s</code>\n", html.EscapeString(r.Link)))
	}
	return sb.String()
}

// formatLibraries Jellyfin 라이브러리 목록 메시지를 생성합니다.
func formatLibraries(libraries []jellyfin.Item) string {
	if len(libraries) == 0 {
		return "등록된 라이브러리가 없습니다."
	}

	var sb strings.Builder
	sb.WriteString("🎬 <b>라이브러리 목록</b>\n")
	for _, lib := range libraries {
		sb.WriteString(fmt.Sprintf("\n• %s", html.EscapeString(lib.Name)))
	}
	return sb.String()
}

// formatMediaItems Jellyfin 미디어 목록 메시지를 생성합니다.
func formatMediaItems(title string, items []jellyfin.Item) string {
	if len(items) == 0 {
		return "조회된 미디어가 없습니다."
	}

	shown := len(items)
	if shown > maxMediaItemsShown {
		shown = maxMediaItemsShown
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>%s</b> (%d건)\n", html.EscapeString(title), len(items)))

	for i := 0; i < shown; i++ {
		item := items[i]

		sb.WriteString(fmt.Sprintf("\n• %s", html.EscapeString(item.Name)))
		if item.ProductionYear > 0 {
			sb.WriteString(fmt.Sprintf(" (%d)", item.ProductionYear))
		}
		if item.Type != "" {
			sb.WriteString(fmt.Sprintf(" · %s", item.Type))
		}
		if item.UserData.Played {
			sb.WriteString(" · 시청함")
		}
	}
	return sb.String()
}

// formatVideoInfo 다운로드할 동영상의 정보 메시지를 생성합니다.
func formatVideoInfo(info *ytdl.VideoInfo) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("▶️ <b>%s</b>\n", html.EscapeString(info.Title)))

	if info.Uploader != "" {
		sb.WriteString(fmt.Sprintf("채널: %s\n", html.EscapeString(info.Uploader)))
	}
	if info.Duration > 0 {
		sb.WriteString(fmt.Sprintf("길이: %s\n", formatDuration(info.Duration)))
	}
	sb.WriteString("\n동영상 다운로드를 시작합니다.")
	return sb.String()
}

// formatDuration 동영상 길이를 h:mm:ss 또는 m:ss 형식으로 변환합니다.
func formatDuration(d time.Duration) string {
	total := int(d.Round(time.Second).Seconds())

	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

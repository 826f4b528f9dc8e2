package bot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/darkkaiser/torrent-bot/internal/torrent"
	applog "github.com/darkkaiser/torrent-bot/pkg/log"
)

// queryTimeout 조회성 명령어가 백엔드 응답을 기다리는 최대 시간입니다.
// 동영상 다운로드처럼 장시간 실행되는 작업에는 적용하지 않습니다.
const queryTimeout = 1 * time.Minute

const (
	msgJackettDisabled  = "Jackett 검색 기능이 설정되지 않았습니다."
	msgJellyfinDisabled = "Jellyfin 연동 기능이 설정되지 않았습니다."
	msgYtdlDisabled     = "동영상 다운로드 기능이 설정되지 않았습니다."
)

// handleHelp 사용 가능한 명령어 목록을 도움말 메시지로 전송합니다.
func (s *Service) handleHelp(ctx context.Context, message *tgbotapi.Message) {
	var sb strings.Builder
	sb.WriteString("입력 가능한 명령어는 아래와 같습니다:\n")

	for _, c := range commandTable {
		sb.WriteString(fmt.Sprintf("\n%s%s\n%s", commandInitialCharacter, c.command, c.description))
		if c.argsUsage != "" {
			sb.WriteString(fmt.Sprintf("\n사용법: %s", c.argsUsage))
		}
		sb.WriteString("\n")
	}

	s.replyWithKeyboard(ctx, message, sb.String())
}

// handleTorrents 등록된 토렌트 목록을 상태별로 그룹화하여 전송합니다.
func (s *Service) handleTorrents(ctx context.Context, message *tgbotapi.Message) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	torrents, err := s.torrentClient.Torrents(queryCtx)
	if err != nil {
		s.replyError(ctx, message, "토렌트 목록 조회가 실패하였습니다.", err)
		return
	}

	s.replyTo(ctx, message, formatTorrentGroups(torrents))
}

// handleDiskSpace 다운로드 디스크의 여유 공간을 조회하여 전송합니다.
func (s *Service) handleDiskSpace(ctx context.Context, message *tgbotapi.Message) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	freeBytes, err := s.torrentClient.FreeSpace(queryCtx)
	if err != nil {
		s.replyError(ctx, message, "디스크 여유 공간 조회가 실패하였습니다.", err)
		return
	}

	s.replyTo(ctx, message, formatDiskSpace(freeBytes))
}

// handleTorrentControl 토렌트 일시정지/재개/삭제 명령어를 처리합니다.
// 인자로 받은 해시 접두사가 유일한 토렌트 하나를 가리킬 때에만 실행합니다.
func (s *Service) handleTorrentControl(ctx context.Context, message *tgbotapi.Message, command, args string) {
	if args == "" {
		c, _ := findBotCommand(command)
		s.replyTo(ctx, message, fmt.Sprintf("토렌트 해시를 입력하세요.\n사용법: %s", c.argsUsage))
		return
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	target, err := s.resolveTorrent(queryCtx, args)
	if err != nil {
		s.replyError(ctx, message, "토렌트 목록 조회가 실패하였습니다.", err)
		return
	}
	if target == nil {
		s.replyTo(ctx, message, fmt.Sprintf("'%s'와 일치하는 토렌트를 찾을 수 없거나, 여러 개의 토렌트가 일치합니다.", html.EscapeString(args)))
		return
	}

	var action string
	switch command {
	case commandPause:
		action = "일시정지"
		err = s.torrentClient.Stop(queryCtx, target.Hash)
	case commandResume:
		action = "다시 시작"
		err = s.torrentClient.Start(queryCtx, target.Hash)
	case commandDelete:
		action = "삭제"
		err = s.torrentClient.Remove(queryCtx, target.Hash, true)
	}

	if err != nil {
		s.replyError(ctx, message, fmt.Sprintf("토렌트 %s 요청이 실패하였습니다.", action), err)
		return
	}

	s.replyTo(ctx, message, fmt.Sprintf("✅ 토렌트 %s 요청이 완료되었습니다.\n%s", action, html.EscapeString(target.Name)))
}

// resolveTorrent 해시 접두사와 유일하게 일치하는 토렌트를 찾아 반환합니다.
// 일치하는 토렌트가 없거나 둘 이상이면 nil을 반환합니다.
func (s *Service) resolveTorrent(ctx context.Context, hashPrefix string) (*torrent.Snapshot, error) {
	torrents, err := s.torrentClient.Torrents(ctx)
	if err != nil {
		return nil, err
	}

	prefix := strings.ToLower(hashPrefix)

	var matched *torrent.Snapshot
	for i := range torrents {
		if strings.HasPrefix(strings.ToLower(torrents[i].Hash), prefix) {
			if matched != nil {
				return nil, nil
			}
			matched = &torrents[i]
		}
	}
	return matched, nil
}

// handleSearch Jackett 인덱서에서 토렌트를 검색하여 결과를 전송합니다.
func (s *Service) handleSearch(ctx context.Context, message *tgbotapi.Message, query string) {
	if s.jackettClient == nil {
		s.replyTo(ctx, message, msgJackettDisabled)
		return
	}
	if query == "" {
		s.replyTo(ctx, message, "검색어를 입력하세요.\n사용법: /search [검색어]")
		return
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	releases, err := s.jackettClient.Search(queryCtx, query, s.appConfig.Jackett.Indexers, s.appConfig.Jackett.Categories)
	if err != nil {
		s.replyError(ctx, message, "토렌트 검색이 실패하였습니다.", err)
		return
	}

	s.replyTo(ctx, message, formatReleases(query, releases))
}

// handleLibraries Jellyfin 라이브러리 목록을 조회하여 전송합니다.
func (s *Service) handleLibraries(ctx context.Context, message *tgbotapi.Message) {
	if s.jellyfinClient == nil {
		s.replyTo(ctx, message, msgJellyfinDisabled)
		return
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	libraries, err := s.jellyfinClient.Libraries(queryCtx)
	if err != nil {
		s.replyError(ctx, message, "라이브러리 목록 조회가 실패하였습니다.", err)
		return
	}

	s.replyTo(ctx, message, formatLibraries(libraries))
}

// handleRecentItems Jellyfin에 최근 추가된 미디어 목록을 조회하여 전송합니다.
func (s *Service) handleRecentItems(ctx context.Context, message *tgbotapi.Message) {
	if s.jellyfinClient == nil {
		s.replyTo(ctx, message, msgJellyfinDisabled)
		return
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	items, err := s.jellyfinClient.RecentItems(queryCtx, maxMediaItemsShown)
	if err != nil {
		s.replyError(ctx, message, "최근 추가된 미디어 조회가 실패하였습니다.", err)
		return
	}

	s.replyTo(ctx, message, formatMediaItems("🆕 최근 추가된 미디어", items))
}

// handleMediaSearch Jellyfin 미디어를 검색하여 결과를 전송합니다.
func (s *Service) handleMediaSearch(ctx context.Context, message *tgbotapi.Message, query string) {
	if s.jellyfinClient == nil {
		s.replyTo(ctx, message, msgJellyfinDisabled)
		return
	}
	if query == "" {
		s.replyTo(ctx, message, "검색어를 입력하세요.\n사용법: /jfsearch [검색어]")
		return
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	items, err := s.jellyfinClient.SearchItems(queryCtx, query, maxMediaItemsShown)
	if err != nil {
		s.replyError(ctx, message, "미디어 검색이 실패하였습니다.", err)
		return
	}

	s.replyTo(ctx, message, formatMediaItems(fmt.Sprintf("🔍 '%s' 검색 결과", query), items))
}

// handleDownload '/download [링크]' 명령어를 처리합니다.
func (s *Service) handleDownload(ctx context.Context, message *tgbotapi.Message, args string) {
	if args == "" {
		s.replyTo(ctx, message, "다운로드할 링크를 입력하세요.\n사용법: /download [링크]")
		return
	}

	links := findLinks(args)
	if len(links) == 0 {
		s.replyTo(ctx, message, "마그넷 또는 동영상 링크를 인식할 수 없습니다.")
		return
	}
	s.handleLinks(ctx, message, links)
}

// handleMagnetLink 마그넷 링크를 토렌트 백엔드에 등록합니다.
func (s *Service) handleMagnetLink(ctx context.Context, message *tgbotapi.Message, link foundLink) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if err := s.torrentClient.AddByURL(queryCtx, link.url); err != nil {
		s.replyError(ctx, message, "토렌트 등록이 실패하였습니다.", err)
		return
	}

	name := link.name
	if name == "" {
		name = shortHash(link.url)
	}
	s.replyTo(ctx, message, fmt.Sprintf("⬇️ 토렌트 다운로드가 시작되었습니다.\n%s", html.EscapeString(name)))
}

// handleVideoLink 동영상 링크의 정보를 조회한 후 다운로드를 실행합니다.
// 다운로드는 수 분 이상 걸릴 수 있으므로 시작/완료를 각각 알립니다.
func (s *Service) handleVideoLink(ctx context.Context, message *tgbotapi.Message, url string) {
	if s.downloader == nil {
		s.replyTo(ctx, message, msgYtdlDisabled)
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	info, err := s.downloader.Probe(probeCtx, url)
	cancel()
	if err != nil {
		s.replyError(ctx, message, "동영상 정보 조회가 실패하였습니다.", err)
		return
	}

	s.replyTo(ctx, message, formatVideoInfo(info))

	filepath, err := s.downloader.Download(ctx, url)
	if err != nil {
		s.replyError(ctx, message, fmt.Sprintf("동영상 다운로드가 실패하였습니다.\n%s", html.EscapeString(info.Title)), err)
		return
	}

	applog.WithComponentAndFields(component, applog.Fields{
		"url":      url,
		"filepath": filepath,
	}).Info("동영상 다운로드 완료")

	s.replyTo(ctx, message, fmt.Sprintf("✅ 동영상 다운로드가 완료되었습니다.\n%s", html.EscapeString(info.Title)))
}

// replyError 오류를 로그에 기록하고 사용자에게는 간략한 안내 메시지만 전송합니다.
func (s *Service) replyError(ctx context.Context, message *tgbotapi.Message, userMessage string, err error) {
	applog.WithComponentAndFields(component, applog.Fields{
		"user_id": message.From.ID,
	}).Errorf("%s: %v", userMessage, err)

	s.replyTo(ctx, message, fmt.Sprintf("⚠️ %s", userMessage))
}

package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	applog "github.com/darkkaiser/torrent-bot/pkg/log"
)

const (
	msgUnauthorizedUser = "⛔ 허가되지 않은 사용자입니다."
	msgUnknownCommand   = "'%s'는 등록되지 않은 명령어입니다.\n명령어를 모르시면 '%s%s'를 입력하세요."
	msgUnknownMessage   = "처리할 수 있는 명령어나 링크가 없습니다.\n명령어를 모르시면 '%s%s'를 입력하세요."
)

// dispatch 수신한 텔레그램 메시지 한 건을 처리합니다.
//
// 명령어('/'로 시작) 또는 응답 키보드 레이블이면 해당 핸들러를 호출하고,
// 그 외의 메시지는 본문에서 마그넷/동영상 링크를 찾아 다운로드를 시도합니다.
func (s *Service) dispatch(ctx context.Context, message *tgbotapi.Message) {
	defer func() {
		if r := recover(); r != nil {
			applog.WithComponentAndFields(component, applog.Fields{
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("텔레그램 명령어 처리중에 panic이 발생하였습니다")

			s.replyTo(ctx, message, "⚠️ 요청을 처리하는 중에 오류가 발생하였습니다.")
		}
	}()

	if message.From == nil || !s.appConfig.Telegram.Authorized(message.From.ID) {
		var userID int64
		if message.From != nil {
			userID = message.From.ID
		}
		applog.WithComponentAndFields(component, applog.Fields{
			"user_id": userID,
		}).Warn("허가되지 않은 사용자로부터 메시지가 수신되었습니다")

		s.replyTo(ctx, message, msgUnauthorizedUser)
		return
	}

	text := strings.TrimSpace(message.Text)
	if text == "" {
		return
	}

	// 응답 키보드 레이블을 해당 명령어로 변환한다.
	if c, found := findKeyboardCommand(text); found {
		text = commandInitialCharacter + c.command
	}

	if strings.HasPrefix(text, commandInitialCharacter) {
		s.dispatchCommand(ctx, message, text)
		return
	}

	// 일반 메시지는 본문에 포함된 링크를 찾아 처리한다.
	links := findLinks(text)
	if len(links) == 0 {
		s.replyTo(ctx, message, fmt.Sprintf(msgUnknownMessage, commandInitialCharacter, commandHelp))
		return
	}
	s.handleLinks(ctx, message, links)
}

// dispatchCommand '/'로 시작하는 명령어 메시지를 파싱하여 핸들러로 분기합니다.
func (s *Service) dispatchCommand(ctx context.Context, message *tgbotapi.Message, text string) {
	command := strings.TrimPrefix(text, commandInitialCharacter)

	var args string
	if idx := strings.IndexAny(command, " \n"); idx >= 0 {
		args = strings.TrimSpace(command[idx+1:])
		command = command[:idx]
	}

	// 봇이 그룹에 추가된 경우 '/command@botname' 형식으로 수신될 수 있다.
	if idx := strings.Index(command, "@"); idx >= 0 {
		command = command[:idx]
	}

	switch command {
	case commandStart, commandHelp:
		s.handleHelp(ctx, message)
	case commandTorrents:
		s.handleTorrents(ctx, message)
	case commandSpace:
		s.handleDiskSpace(ctx, message)
	case commandPause:
		s.handleTorrentControl(ctx, message, command, args)
	case commandResume:
		s.handleTorrentControl(ctx, message, command, args)
	case commandDelete:
		s.handleTorrentControl(ctx, message, command, args)
	case commandSearch:
		s.handleSearch(ctx, message, args)
	case commandDownload:
		s.handleDownload(ctx, message, args)
	case commandLibs:
		s.handleLibraries(ctx, message)
	case commandRecent:
		s.handleRecentItems(ctx, message)
	case commandJFSearch:
		s.handleMediaSearch(ctx, message, args)
	default:
		s.replyTo(ctx, message, fmt.Sprintf(msgUnknownCommand, text, commandInitialCharacter, commandHelp))
	}
}

// handleLinks 메시지 본문에서 발견된 링크들을 순서대로 처리합니다.
// 개별 링크의 처리 실패는 다른 링크의 처리에 영향을 주지 않습니다.
func (s *Service) handleLinks(ctx context.Context, message *tgbotapi.Message, links []foundLink) {
	for _, link := range links {
		switch link.kind {
		case linkMagnet:
			s.handleMagnetLink(ctx, message, link)
		case linkVideo:
			s.handleVideoLink(ctx, message, link.url)
		}
	}
}

package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	apperrors "github.com/darkkaiser/torrent-bot/internal/pkg/errors"
)

const commandInitialCharacter = "/"

// 봇 명령어 목록
const (
	commandStart    = "start"
	commandHelp     = "help"
	commandTorrents = "qtorrents"
	commandSpace    = "qespaco"
	commandPause    = "qpause"
	commandResume   = "qresume"
	commandDelete   = "qdelete"
	commandLibs     = "jflib"
	commandRecent   = "jfrecent"
	commandJFSearch = "jfsearch"
	commandSearch   = "search"
	commandDownload = "download"
)

// botCommand 봇이 처리하는 명령어 하나를 나타냅니다.
type botCommand struct {
	command     string
	description string

	// keyboardLabel 응답 키보드에 표시되는 레이블입니다. 비어있으면 키보드에 노출하지 않습니다.
	keyboardLabel string

	// argsUsage 명령어 인자 사용법 안내 문구입니다. 인자가 없는 명령어는 비워둡니다.
	argsUsage string
}

// commandTable 봇이 지원하는 전체 명령어 목록입니다. 도움말 및 명령어 메뉴 등록에 사용됩니다.
var commandTable = []botCommand{
	{command: commandTorrents, description: "토렌트 목록을 조회합니다.", keyboardLabel: "📄 토렌트 목록"},
	{command: commandSpace, description: "다운로드 디스크의 여유 공간을 조회합니다.", keyboardLabel: "💾 여유 공간"},
	{command: commandPause, description: "토렌트를 일시정지합니다.", argsUsage: "/qpause [해시]"},
	{command: commandResume, description: "토렌트를 다시 시작합니다.", argsUsage: "/qresume [해시]"},
	{command: commandDelete, description: "토렌트를 삭제합니다(데이터 포함).", argsUsage: "/qdelete [해시]"},
	{command: commandSearch, description: "Jackett 인덱서에서 토렌트를 검색합니다.", argsUsage: "/search [검색어]"},
	{command: commandDownload, description: "마그넷 또는 동영상 링크를 다운로드합니다.", argsUsage: "/download [링크]"},
	{command: commandLibs, description: "Jellyfin 라이브러리 목록을 조회합니다.", keyboardLabel: "🎬 라이브러리"},
	{command: commandRecent, description: "Jellyfin에 최근 추가된 미디어를 조회합니다.", keyboardLabel: "🆕 최근 추가"},
	{command: commandJFSearch, description: "Jellyfin 미디어를 검색합니다.", argsUsage: "/jfsearch [검색어]"},
	{command: commandHelp, description: "도움말을 표시합니다.", keyboardLabel: "❓ 도움말"},
}

// findBotCommand 주어진 명령어 문자열과 일치하는 봇 명령어를 찾아 반환합니다.
func findBotCommand(command string) (botCommand, bool) {
	for _, c := range commandTable {
		if command == c.command {
			return c, true
		}
	}
	return botCommand{}, false
}

// findKeyboardCommand 응답 키보드 레이블과 일치하는 봇 명령어를 찾아 반환합니다.
func findKeyboardCommand(label string) (botCommand, bool) {
	for _, c := range commandTable {
		if c.keyboardLabel != "" && label == c.keyboardLabel {
			return c, true
		}
	}
	return botCommand{}, false
}

// registerCommands 텔레그램 봇의 명령어 메뉴를 등록합니다.
func (s *Service) registerCommands() error {
	var commands []tgbotapi.BotCommand
	for _, c := range commandTable {
		commands = append(commands, tgbotapi.BotCommand{
			Command:     c.command,
			Description: c.description,
		})
	}

	if _, err := s.client.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		return apperrors.Wrap(err, apperrors.ExecutionFailed, "텔레그램 명령어 메뉴 등록이 실패하였습니다")
	}
	return nil
}

// replyKeyboard 자주 사용하는 명령어의 응답 키보드를 생성합니다.
func replyKeyboard() tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	var row []tgbotapi.KeyboardButton

	for _, c := range commandTable {
		if c.keyboardLabel == "" {
			continue
		}

		row = append(row, tgbotapi.NewKeyboardButton(c.keyboardLabel))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.ResizeKeyboard = true
	return keyboard
}

package bot

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// linkKind 메시지에서 발견된 링크의 종류입니다.
type linkKind int

const (
	linkMagnet linkKind = iota
	linkVideo
)

// foundLink 메시지 본문에서 발견된 다운로드 가능한 링크입니다.
type foundLink struct {
	kind linkKind
	url  string

	// name 마그넷 링크의 dn 파라미터에서 추출한 표시용 이름입니다. 없으면 빈 문자열입니다.
	name string
}

var (
	magnetRegex = regexp.MustCompile(`(?i)magnet:\?xt=urn:btih:[0-9a-fA-F]{40}[^\s<>"']*`)

	videoURLRegex = regexp.MustCompile(`(?i)https?://(?:www\.|m\.)?(?:youtube\.com/(?:watch\?[^\s<>"']+|shorts/[^\s<>"']+|embed/[^\s<>"']+)|youtu\.be/[^\s<>"']+)`)
)

// findLinks 메시지 본문에서 마그넷 링크와 동영상 링크를 모두 찾아
// 본문에 나타난 순서대로 반환합니다.
func findLinks(text string) []foundLink {
	type located struct {
		link  foundLink
		index int
	}
	var found []located

	for _, loc := range magnetRegex.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		found = append(found, located{
			link:  foundLink{kind: linkMagnet, url: raw, name: magnetDisplayName(raw)},
			index: loc[0],
		})
	}
	for _, loc := range videoURLRegex.FindAllStringIndex(text, -1) {
		found = append(found, located{
			link:  foundLink{kind: linkVideo, url: text[loc[0]:loc[1]]},
			index: loc[0],
		})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].index < found[j].index })

	links := make([]foundLink, 0, len(found))
	for _, f := range found {
		links = append(links, f.link)
	}
	return links
}

// magnetDisplayName 마그넷 링크의 dn 파라미터에서 표시용 이름을 추출합니다.
func magnetDisplayName(magnet string) string {
	idx := strings.Index(magnet, "?")
	if idx < 0 {
		return ""
	}

	values, err := url.ParseQuery(magnet[idx+1:])
	if err != nil {
		return ""
	}
	return values.Get("dn")
}

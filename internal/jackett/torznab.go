package jackett

import (
	"encoding/xml"
	"strconv"
	"strings"

	apperrors "github.com/darkkaiser/torrent-bot/internal/pkg/errors"
)

// enclosureTypeBitTorrent 마그넷 링크를 담는 enclosure의 MIME 타입
const enclosureTypeBitTorrent = "application/x-bittorrent"

// torznabError Torznab 응답의 루트 <error> 요소입니다. API 거부 시 반환됩니다.
type torznabError struct {
	XMLName     xml.Name `xml:"error"`
	Code        string   `xml:"code,attr"`
	Description string   `xml:"description,attr"`
}

// torznabFeed Torznab RSS 피드의 루트 구조입니다.
type torznabFeed struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []torznabItem `xml:"item"`
	} `xml:"channel"`
}

type torznabItem struct {
	Title      string             `xml:"title"`
	Link       string             `xml:"link"`
	PubDate    string             `xml:"pubDate"`
	Enclosures []torznabEnclosure `xml:"enclosure"`
	Attrs      []torznabAttr      `xml:"attr"`
}

type torznabEnclosure struct {
	URL  string `xml:"url,attr"`
	Type string `xml:"type,attr"`
}

type torznabAttr struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// parseTorznab Torznab XML 응답을 릴리스 목록으로 변환합니다.
//
// 루트가 <error> 요소이면 Jackett API가 요청을 거부한 것이므로 에러를 반환합니다.
// 다운로드 링크가 없는 항목은 건너뜁니다.
func parseTorznab(data []byte, indexer string) ([]Release, error) {
	var apiErr torznabError
	if err := xml.Unmarshal(data, &apiErr); err == nil {
		return nil, apperrors.Newf(apperrors.ExecutionFailed,
			"Jackett API 오류 (인덱서: '%s', 코드: %s): %s", indexer, apiErr.Code, apiErr.Description)
	}

	var feed torznabFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ParsingFailed, "Torznab 응답 파싱에 실패했습니다 (인덱서: '%s')", indexer)
	}

	var releases []Release
	for _, item := range feed.Channel.Items {
		link := selectLink(item)
		if link == "" {
			continue
		}

		release := Release{
			Title:   item.Title,
			Link:    link,
			PubDate: item.PubDate,
			Indexer: indexer,
		}

		var (
			seeders  = -1
			leechers = -1
			peers    = -1
		)
		for _, attr := range item.Attrs {
			switch attr.Name {
			case "size":
				if v, err := strconv.ParseInt(attr.Value, 10, 64); err == nil {
					release.Size = v
				}
			case "seeders":
				if v, err := strconv.Atoi(attr.Value); err == nil {
					seeders = v
				}
			case "leechers":
				if v, err := strconv.Atoi(attr.Value); err == nil {
					leechers = v
				}
			case "peers":
				if v, err := strconv.Atoi(attr.Value); err == nil {
					peers = v
				}
			}
		}

		if seeders >= 0 {
			release.Seeders = seeders
		}
		switch {
		case leechers >= 0:
			release.Leechers = leechers
		case peers >= 0 && seeders >= 0:
			// 일부 인덱서는 leechers 대신 peers(= seeders + leechers)만 보고한다.
			release.Leechers = max(0, peers-seeders)
		}

		releases = append(releases, release)
	}

	return releases, nil
}

// selectLink 항목에서 다운로드 링크를 선택합니다. 마그넷 enclosure를 최우선으로 합니다.
func selectLink(item torznabItem) string {
	for _, enc := range item.Enclosures {
		if enc.Type == enclosureTypeBitTorrent && strings.HasPrefix(enc.URL, "magnet:") {
			return enc.URL
		}
	}

	if strings.HasPrefix(item.Link, "http") || strings.HasPrefix(item.Link, "magnet:") {
		return item.Link
	}

	return ""
}

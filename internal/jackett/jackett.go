// Package jackett Jackett 토렌트 검색 프록시의 Torznab API 클라이언트를 제공합니다.
package jackett

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/darkkaiser/torrent-bot/internal/config"
	apperrors "github.com/darkkaiser/torrent-bot/internal/pkg/errors"
	"github.com/darkkaiser/torrent-bot/pkg/log"
)

const (
	// defaultRequestTimeout 인덱서별 검색 요청의 최대 대기 시간
	defaultRequestTimeout = 15 * time.Second

	// allIndexer 모든 인덱서를 통합 검색하는 Jackett의 집계 인덱서 ID
	allIndexer = "all"
)

// Release Torznab 검색 결과의 단일 릴리스 항목입니다.
type Release struct {
	Title    string
	Link     string
	Size     int64
	Seeders  int
	Leechers int
	PubDate  string
	Indexer  string
}

// Client Jackett Torznab API 클라이언트입니다.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Entry
}

// NewClient 새로운 Jackett 클라이언트를 생성합니다.
func NewClient(cfg *config.JackettConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		logger:     log.WithComponent("jackett"),
	}
}

// Search 주어진 검색어로 인덱서들을 검색하여 릴리스 목록을 반환합니다.
//
// 인덱서 목록이 비어있으면 Jackett의 'all' 집계 인덱서를 사용합니다.
// 개별 인덱서의 실패는 경고 로그 후 무시되며, 모든 인덱서가 실패한 경우에만
// 에러를 반환합니다.
func (c *Client) Search(ctx context.Context, query string, indexers []string, categories []int) ([]Release, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.New(apperrors.InvalidInput, "검색어가 비어있습니다")
	}

	effectiveIndexers := indexers
	if len(effectiveIndexers) == 0 {
		effectiveIndexers = []string{allIndexer}
	}

	var (
		releases  []Release
		succeeded int
		lastErr   error
	)
	for _, indexer := range effectiveIndexers {
		result, err := c.searchIndexer(ctx, indexer, query, categories)
		if err != nil {
			// 개별 인덱서의 실패가 전체 검색을 중단시키지 않는다.
			c.logger.WithFields(logrus.Fields{
				"indexer": indexer,
				"query":   query,
			}).Warnf("인덱서 검색에 실패했습니다: %v", err)
			lastErr = err
			continue
		}

		releases = append(releases, result...)
		succeeded++
	}

	if succeeded == 0 {
		return nil, apperrors.Wrapf(lastErr, apperrors.ExecutionFailed,
			"'%s' 검색이 모든 인덱서(%d개)에서 실패했습니다", query, len(effectiveIndexers))
	}

	return releases, nil
}

// searchIndexer 단일 인덱서에 대해 Torznab 검색을 수행합니다.
func (c *Client) searchIndexer(ctx context.Context, indexer, query string, categories []int) ([]Release, error) {
	endpoint := fmt.Sprintf("%s/api/v2.0/indexers/%s/results/torznab/", c.baseURL, indexer)

	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("t", "search")
	params.Set("q", query)
	if len(categories) > 0 {
		cats := make([]string, 0, len(categories))
		for _, cat := range categories {
			cats = append(cats, strconv.Itoa(cat))
		}
		params.Set("cat", strings.Join(cats, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Internal, "검색 요청 생성에 실패했습니다")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Unavailable, "Jackett 요청에 실패했습니다")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Newf(apperrors.ExecutionFailed, "Jackett이 비정상 응답을 반환했습니다 (HTTP %d)", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.System, "응답 본문 읽기에 실패했습니다")
	}

	return parseTorznab(body, indexer)
}

// Package jellyfin Jellyfin 미디어 서버 REST API 클라이언트를 제공합니다.
//
// 사용자명/비밀번호 인증(/Users/AuthenticateByName) 또는 정적 API 키를 지원하며,
// 발급된 토큰은 모든 요청의 X-Emby-Token 헤더로 전달됩니다.
// 토큰 만료(HTTP 401) 시 1회 재인증 후 요청을 재시도합니다.
package jellyfin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/darkkaiser/torrent-bot/internal/config"
	apperrors "github.com/darkkaiser/torrent-bot/internal/pkg/errors"
	"github.com/darkkaiser/torrent-bot/pkg/log"
)

const (
	// defaultRequestTimeout 단일 API 요청의 최대 대기 시간
	defaultRequestTimeout = 10 * time.Second

	// clientIdentity X-Emby-Authorization 헤더에 보고하는 클라이언트 식별 정보
	clientIdentity = `MediaBrowser Client="torrent-bot", Device="torrent-bot", DeviceId="torrent-bot", Version="1.0"`
)

// Item 미디어 라이브러리의 단일 항목입니다.
type Item struct {
	ID             string `json:"Id"`
	Name           string `json:"Name"`
	Type           string `json:"Type"`
	Overview       string `json:"Overview"`
	ProductionYear int    `json:"ProductionYear"`
	RunTimeTicks   int64  `json:"RunTimeTicks"`
	UserData       struct {
		Played bool `json:"Played"`
	} `json:"UserData"`
}

// SystemInfo Jellyfin 서버의 기본 정보입니다.
type SystemInfo struct {
	ServerName string `json:"ServerName"`
	Version    string `json:"Version"`
	ID         string `json:"Id"`
}

type itemsResponse struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
}

// Client Jellyfin REST API 클라이언트입니다. 여러 고루틴에서 동시에 사용할 수 있습니다.
type Client struct {
	baseURL    string
	username   string
	password   string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Entry

	mu          sync.Mutex
	accessToken string
	userID      string
}

// NewClient 새로운 Jellyfin 클라이언트를 생성합니다.
func NewClient(cfg *config.JellyfinConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		logger:     log.WithComponent("jellyfin"),
	}
}

// Authenticate 서버에 인증하여 액세스 토큰과 사용자 ID를 확보합니다.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.apiKey != "" {
		return c.authenticateWithAPIKey(ctx)
	}
	return c.authenticateByName(ctx)
}

// authenticateByName 사용자명/비밀번호로 인증합니다.
func (c *Client) authenticateByName(ctx context.Context) error {
	payload, err := json.Marshal(map[string]string{
		"Username": c.username,
		"Pw":       c.password,
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.Internal, "인증 요청 생성에 실패했습니다")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/Users/AuthenticateByName", bytes.NewReader(payload))
	if err != nil {
		return apperrors.Wrap(err, apperrors.Internal, "인증 요청 생성에 실패했습니다")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Emby-Authorization", clientIdentity)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.Unavailable, "Jellyfin 서버에 접속할 수 없습니다")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return apperrors.New(apperrors.Unauthorized, "Jellyfin 인증에 실패했습니다 (사용자명 또는 비밀번호 오류)")
	}
	if resp.StatusCode != http.StatusOK {
		return apperrors.Newf(apperrors.ExecutionFailed, "Jellyfin 인증이 비정상 응답을 반환했습니다 (HTTP %d)", resp.StatusCode)
	}

	var authResp struct {
		AccessToken string `json:"AccessToken"`
		User        struct {
			ID string `json:"Id"`
		} `json:"User"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return apperrors.Wrap(err, apperrors.ParsingFailed, "인증 응답 파싱에 실패했습니다")
	}
	if authResp.AccessToken == "" {
		return apperrors.New(apperrors.Unauthorized, "Jellyfin이 액세스 토큰을 반환하지 않았습니다")
	}

	c.mu.Lock()
	c.accessToken = authResp.AccessToken
	c.userID = authResp.User.ID
	c.mu.Unlock()

	c.logger.Debug("Jellyfin 사용자 인증에 성공하였습니다.")

	return nil
}

// authenticateWithAPIKey 정적 API 키를 토큰으로 사용하고, 사용자 목록에서 사용자 ID를 확보합니다.
func (c *Client) authenticateWithAPIKey(ctx context.Context) error {
	c.mu.Lock()
	c.accessToken = c.apiKey
	c.mu.Unlock()

	var users []struct {
		ID string `json:"Id"`
	}
	if err := c.get(ctx, "/Users", nil, &users); err != nil {
		return apperrors.Wrap(err, apperrors.Unauthorized, "API 키 검증에 실패했습니다")
	}
	if len(users) == 0 {
		return apperrors.New(apperrors.NotFound, "Jellyfin 서버에 등록된 사용자가 없습니다")
	}

	c.mu.Lock()
	c.userID = users[0].ID
	c.mu.Unlock()

	return nil
}

// token 현재 액세스 토큰을 반환합니다.
func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// UserID 인증된 사용자의 ID를 반환합니다.
func (c *Client) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// do 인증 토큰을 포함한 API 요청을 수행합니다. 401 응답 시 1회 재인증 후 재시도합니다.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, out interface{}) error {
	resp, err := c.doOnce(ctx, method, path, params)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()

		// 토큰이 만료되었을 수 있으므로 재인증 후 한 번만 재시도한다.
		c.logger.Debug("토큰이 만료되어 재인증을 시도합니다.")
		if err := c.Authenticate(ctx); err != nil {
			return err
		}

		resp, err = c.doOnce(ctx, method, path, params)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return apperrors.Newf(apperrors.NotFound, "요청한 리소스를 찾을 수 없습니다: %s", path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.Newf(apperrors.ExecutionFailed, "Jellyfin이 비정상 응답을 반환했습니다 (HTTP %d, %s)", resp.StatusCode, path)
	}

	if out == nil {
		// 응답 본문을 사용하지 않는 경우에도 커넥션 재사용을 위해 비운다.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Wrapf(err, apperrors.ParsingFailed, "Jellyfin 응답 파싱에 실패했습니다: %s", path)
	}
	return nil
}

func (c *Client) doOnce(ctx context.Context, method, path string, params url.Values) (*http.Response, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Internal, "API 요청 생성에 실패했습니다")
	}
	req.Header.Set("X-Emby-Token", c.token())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Unavailable, "Jellyfin 서버에 접속할 수 없습니다")
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, params, out)
}

// SystemInfo 서버의 이름과 버전 정보를 조회합니다.
func (c *Client) SystemInfo(ctx context.Context) (*SystemInfo, error) {
	var info SystemInfo
	if err := c.get(ctx, "/System/Info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Libraries 인증된 사용자가 볼 수 있는 라이브러리(View) 목록을 조회합니다.
func (c *Client) Libraries(ctx context.Context) ([]Item, error) {
	var resp itemsResponse
	if err := c.get(ctx, fmt.Sprintf("/Users/%s/Views", c.UserID()), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// RecentItems 최근 추가된 영화/시리즈 목록을 조회합니다.
func (c *Client) RecentItems(ctx context.Context, limit int) ([]Item, error) {
	params := url.Values{}
	params.Set("IncludeItemTypes", "Movie,Series")
	params.Set("SortBy", "DateCreated")
	params.Set("SortOrder", "Descending")
	params.Set("Recursive", "true")
	params.Set("Limit", strconv.Itoa(limit))
	params.Set("Fields", "ProductionYear")

	var resp itemsResponse
	if err := c.get(ctx, "/Items", params, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// SearchItems 검색어로 영화/시리즈를 검색합니다.
func (c *Client) SearchItems(ctx context.Context, query string, limit int) ([]Item, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.New(apperrors.InvalidInput, "검색어가 비어있습니다")
	}

	params := url.Values{}
	params.Set("searchTerm", query)
	params.Set("IncludeItemTypes", "Movie,Series")
	params.Set("Recursive", "true")
	params.Set("Limit", strconv.Itoa(limit))
	params.Set("Fields", "ProductionYear,Overview")

	var resp itemsResponse
	if err := c.get(ctx, "/Items", params, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// ItemDetails 단일 항목의 상세 정보를 조회합니다.
func (c *Client) ItemDetails(ctx context.Context, itemID string) (*Item, error) {
	var item Item
	if err := c.get(ctx, "/Items/"+itemID, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// MarkWatched 항목을 시청 완료로 표시합니다.
func (c *Client) MarkWatched(ctx context.Context, itemID string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/Users/%s/PlayedItems/%s", c.UserID(), itemID), nil, nil)
}

// MarkUnwatched 항목의 시청 완료 표시를 해제합니다.
func (c *Client) MarkUnwatched(ctx context.Context, itemID string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/Users/%s/PlayedItems/%s", c.UserID(), itemID), nil, nil)
}

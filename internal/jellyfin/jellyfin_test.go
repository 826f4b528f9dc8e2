package jellyfin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkkaiser/torrent-bot/internal/config"
	apperrors "github.com/darkkaiser/torrent-bot/internal/pkg/errors"
)

// newTestServer 인증과 주요 엔드포인트를 흉내내는 테스트 서버를 생성합니다.
func newTestServer(t *testing.T) (*httptest.Server, *int) {
	t.Helper()

	authCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/Users/AuthenticateByName", func(w http.ResponseWriter, r *http.Request) {
		authCalls++
		require.Equal(t, http.MethodPost, r.Method)
		require.NotEmpty(t, r.Header.Get("X-Emby-Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["Username"] != "media" || body["Pw"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		fmt.Fprintf(w, `{"AccessToken": "token-%d", "User": {"Id": "user-1"}}`, authCalls)
	})
	mux.HandleFunc("/System/Info", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Emby-Token") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"ServerName": "nas", "Version": "10.9.0", "Id": "srv-1"}`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &authCalls
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	return NewClient(&config.JellyfinConfig{
		URL:      serverURL,
		Username: "media",
		Password: "secret",
	})
}

func TestAuthenticate(t *testing.T) {
	t.Run("사용자명과 비밀번호로 토큰을 발급받는다", func(t *testing.T) {
		server, _ := newTestServer(t)
		client := newTestClient(t, server.URL)

		require.NoError(t, client.Authenticate(context.Background()))
		assert.Equal(t, "user-1", client.UserID())
		assert.Equal(t, "token-1", client.token())
	})

	t.Run("잘못된 자격증명은 Unauthorized 에러를 반환한다", func(t *testing.T) {
		server, _ := newTestServer(t)
		client := NewClient(&config.JellyfinConfig{
			URL:      server.URL,
			Username: "media",
			Password: "wrong",
		})

		err := client.Authenticate(context.Background())

		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.Unauthorized))
	})

	t.Run("API 키 인증은 사용자 목록에서 사용자 ID를 확보한다", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/Users", func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "static-key", r.Header.Get("X-Emby-Token"))
			fmt.Fprint(w, `[{"Id": "user-9"}]`)
		})
		server := httptest.NewServer(mux)
		t.Cleanup(server.Close)

		client := NewClient(&config.JellyfinConfig{URL: server.URL, APIKey: "static-key"})

		require.NoError(t, client.Authenticate(context.Background()))
		assert.Equal(t, "user-9", client.UserID())
	})
}

func TestDo(t *testing.T) {
	t.Run("401 응답 시 1회 재인증 후 재시도한다", func(t *testing.T) {
		expired := true
		mux := http.NewServeMux()
		authCalls := 0
		mux.HandleFunc("/Users/AuthenticateByName", func(w http.ResponseWriter, r *http.Request) {
			authCalls++
			expired = false
			fmt.Fprint(w, `{"AccessToken": "fresh", "User": {"Id": "user-1"}}`)
		})
		mux.HandleFunc("/System/Info", func(w http.ResponseWriter, r *http.Request) {
			if expired {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			fmt.Fprint(w, `{"ServerName": "nas", "Version": "10.9.0"}`)
		})
		server := httptest.NewServer(mux)
		t.Cleanup(server.Close)

		client := newTestClient(t, server.URL)

		info, err := client.SystemInfo(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "nas", info.ServerName)
		assert.Equal(t, 1, authCalls)
	})

	t.Run("404 응답은 NotFound 에러로 변환한다", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/Users/AuthenticateByName", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"AccessToken": "t", "User": {"Id": "u"}}`)
		})
		mux.HandleFunc("/Items/missing", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		server := httptest.NewServer(mux)
		t.Cleanup(server.Close)

		client := newTestClient(t, server.URL)
		require.NoError(t, client.Authenticate(context.Background()))

		_, err := client.ItemDetails(context.Background(), "missing")

		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.NotFound))
	})
}

func TestOperations(t *testing.T) {
	t.Run("검색 결과의 항목 목록을 반환한다", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/Items", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "duna", r.URL.Query().Get("searchTerm"))
			assert.Equal(t, "Movie,Series", r.URL.Query().Get("IncludeItemTypes"))
			fmt.Fprint(w, `{"Items": [{"Id": "i1", "Name": "Dune", "Type": "Movie", "ProductionYear": 2021}], "TotalRecordCount": 1}`)
		})
		server := httptest.NewServer(mux)
		t.Cleanup(server.Close)

		client := newTestClient(t, server.URL)

		items, err := client.SearchItems(context.Background(), "duna", 20)

		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Dune", items[0].Name)
		assert.Equal(t, 2021, items[0].ProductionYear)
	})

	t.Run("빈 검색어를 거부한다", func(t *testing.T) {
		client := newTestClient(t, "http://localhost:1")

		_, err := client.SearchItems(context.Background(), " ", 20)

		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.InvalidInput))
	})

	t.Run("시청 완료 표시는 사용자 범위 엔드포인트를 호출한다", func(t *testing.T) {
		var gotMethod, gotPath string
		mux := http.NewServeMux()
		mux.HandleFunc("/Users/AuthenticateByName", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"AccessToken": "t", "User": {"Id": "user-1"}}`)
		})
		mux.HandleFunc("/Users/user-1/PlayedItems/item-1", func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotPath = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		})
		server := httptest.NewServer(mux)
		t.Cleanup(server.Close)

		client := newTestClient(t, server.URL)
		require.NoError(t, client.Authenticate(context.Background()))

		require.NoError(t, client.MarkWatched(context.Background(), "item-1"))
		assert.Equal(t, http.MethodPost, gotMethod)
		assert.Equal(t, "/Users/user-1/PlayedItems/item-1", gotPath)

		require.NoError(t, client.MarkUnwatched(context.Background(), "item-1"))
		assert.Equal(t, http.MethodDelete, gotMethod)
	})
}

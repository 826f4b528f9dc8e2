package torrent

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkkaiser/torrent-bot/internal/config"
)

// newQBTestServer qBittorrent WebUI API를 흉내내는 테스트 서버를 생성합니다.
// 인증 정보가 비어있으면 라이브러리가 로그인 과정을 건너뛰므로 별도의 세션 처리는 하지 않는다.
func newQBTestServer(t *testing.T, handler http.HandlerFunc) *qbittorrentClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return newQBittorrentClient(&config.TorrentConfig{URL: server.URL})
}

func TestQBFreeSpace(t *testing.T) {
	t.Parallel()

	t.Run("서버 상태의 디스크 여유 공간을 반환한다", func(t *testing.T) {
		// int32 범위를 넘는 값으로 자릿수 손실 여부까지 확인한다.
		const freeSpace = int64(2_199_023_255_552) // 2 TiB

		client := newQBTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/v2/sync/maindata", r.URL.Path)

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"server_state":{"free_space_on_disk":%d}}`, freeSpace)
		})

		got, err := client.FreeSpace(context.Background())

		require.NoError(t, err)
		assert.Equal(t, freeSpace, got)
	})

	t.Run("조회 실패시 에러를 반환한다", func(t *testing.T) {
		client := newQBTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := client.FreeSpace(context.Background())

		assert.Error(t, err)
	})
}

package youtube

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"likesync/internal/domain"
)

type fakeAPI struct {
	mu       sync.Mutex
	calls    map[string]int
	requests []*http.Request
	routes   map[string]http.HandlerFunc
}

func newFakeAPI(t *testing.T) (*fakeAPI, *Client) {
	t.Helper()

	api := &fakeAPI{
		calls:  make(map[string]int),
		routes: make(map[string]http.HandlerFunc),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		api.calls[r.Method+" "+r.URL.Path]++
		api.requests = append(api.requests, r)
		h, ok := api.routes[r.Method+" "+r.URL.Path]
		api.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second},
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"}), logger)
	return api, client
}

func (a *fakeAPI) on(method, path string, status int, body string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.routes[method+" "+path] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func (a *fakeAPI) count(method, path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[method+" "+path]
}

func (a *fakeAPI) lastQuery(path string) map[string][]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := len(a.requests) - 1; i >= 0; i-- {
		if a.requests[i].URL.Path == path {
			return a.requests[i].URL.Query()
		}
	}
	return nil
}

const (
	channelsOK = `{"items":[{"id":"UC1","contentDetails":{"relatedPlaylists":{"likes":"LL1"}}}]}`

	playlistPage = `{
		"nextPageToken": "NEXT",
		"pageInfo": {"totalResults": 120, "resultsPerPage": 50},
		"items": [
			{"snippet": {"publishedAt": "2024-03-01T10:00:00Z"}, "contentDetails": {"videoId": "v1"}},
			{"snippet": {"publishedAt": "2024-02-01T10:00:00Z"}, "contentDetails": {"videoId": "v2"}},
			{"snippet": {"publishedAt": "2024-01-01T10:00:00Z"}, "contentDetails": {"videoId": "v3"}}
		]
	}`

	detailsPage = `{"items": [
		{
			"id": "v3",
			"snippet": {"title": "Third", "channelId": "C3", "channelTitle": "Chan 3",
				"publishedAt": "2020-01-01T00:00:00Z",
				"thumbnails": {"default": {"url": "https://img/v3/default.jpg"}}},
			"statistics": {"viewCount": "not-a-number"}
		},
		{
			"id": "v1",
			"snippet": {"title": "First", "channelId": "C1", "channelTitle": "Chan 1",
				"publishedAt": "2021-05-05T00:00:00Z",
				"thumbnails": {"default": {"url": "https://img/v1/default.jpg"}, "medium": {"url": "https://img/v1/medium.jpg"}}},
			"contentDetails": {"duration": "PT4M13S"},
			"statistics": {"viewCount": "1500", "likeCount": "42"}
		}
	]}`

	ratedPage = `{
		"nextPageToken": "R2",
		"items": [
			{"id": "r1", "snippet": {"title": "Rated", "channelTitle": "Chan", "publishedAt": "2022-02-02T00:00:00Z"},
			 "statistics": {"viewCount": "7", "likeCount": "3"}},
			{"id": "gone"}
		]
	}`
)

func TestListPage_PlaylistStrategy(t *testing.T) {
	api, client := newFakeAPI(t)
	api.on(http.MethodGet, "/channels", http.StatusOK, channelsOK)
	api.on(http.MethodGet, "/playlistItems", http.StatusOK, playlistPage)
	api.on(http.MethodGet, "/videos", http.StatusOK, detailsPage)

	page, err := client.ListPage(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, StrategyPlaylist, page.Strategy)
	assert.Equal(t, "playlist:LL1:NEXT", page.NextCursor)
	assert.Equal(t, 120, page.TotalCount)
	require.Len(t, page.Items, 2, "v2 has no details and must be dropped")

	first := page.Items[0]
	assert.Equal(t, "v1", first.ID)
	assert.Equal(t, "First", first.Title)
	assert.Equal(t, "Chan 1", first.OwnerName)
	assert.Equal(t, "C1", first.OwnerID)
	assert.Equal(t, "https://img/v1/medium.jpg", first.ThumbnailURL)
	assert.Equal(t, int64(1500), first.Views)
	assert.Equal(t, int64(42), first.Likes)
	assert.Equal(t, "PT4M13S", first.DurationToken)
	assert.Equal(t, "https://www.youtube.com/watch?v=v1", first.CanonicalURL)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), first.AddedAt)
	assert.Equal(t, time.Date(2021, 5, 5, 0, 0, 0, 0, time.UTC), first.CreatedAt)

	third := page.Items[1]
	assert.Equal(t, "v3", third.ID)
	assert.Equal(t, "https://img/v3/default.jpg", third.ThumbnailURL)
	assert.Equal(t, int64(0), third.Views)
	assert.Equal(t, int64(0), third.Likes)

	q := api.lastQuery("/playlistItems")
	assert.Equal(t, "LL1", q["playlistId"][0])
	assert.Equal(t, "50", q["maxResults"][0])
	assert.Equal(t, "v1,v2,v3", api.lastQuery("/videos")["id"][0])
}

func TestListPage_FallsBackWhenDescriptorMissing(t *testing.T) {
	api, client := newFakeAPI(t)
	api.on(http.MethodGet, "/channels", http.StatusOK, `{"items":[]}`)
	api.on(http.MethodGet, "/videos", http.StatusOK, ratedPage)

	page, err := client.ListPage(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, StrategyRating, page.Strategy)
	assert.Equal(t, "rating:R2", page.NextCursor)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "r1", page.Items[0].ID)
	assert.Equal(t, page.Items[0].CreatedAt, page.Items[0].AddedAt)
	assert.Equal(t, "", page.Items[0].ThumbnailURL)
	assert.Equal(t, "like", api.lastQuery("/videos")["myRating"][0])
	assert.Equal(t, 0, api.count(http.MethodGet, "/playlistItems"))
}

func TestListPage_FallbackConditions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(api *fakeAPI)
	}{
		{
			name: "descriptor access denied",
			setup: func(api *fakeAPI) {
				api.on(http.MethodGet, "/channels", http.StatusForbidden,
					`{"error":{"code":403,"message":"forbidden","errors":[{"reason":"forbidden"}]}}`)
			},
		},
		{
			name: "no related playlists",
			setup: func(api *fakeAPI) {
				api.on(http.MethodGet, "/channels", http.StatusOK, `{"items":[{"id":"UC1","contentDetails":{}}]}`)
			},
		},
		{
			name: "likes id missing",
			setup: func(api *fakeAPI) {
				api.on(http.MethodGet, "/channels", http.StatusOK,
					`{"items":[{"id":"UC1","contentDetails":{"relatedPlaylists":{"uploads":"UU1"}}}]}`)
			},
		},
		{
			name: "playlist probe fails",
			setup: func(api *fakeAPI) {
				api.on(http.MethodGet, "/channels", http.StatusOK, channelsOK)
				api.on(http.MethodGet, "/playlistItems", http.StatusNotFound,
					`{"error":{"code":404,"message":"playlistNotFound"}}`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, client := newFakeAPI(t)
			tt.setup(api)
			api.on(http.MethodGet, "/videos", http.StatusOK, ratedPage)

			page, err := client.ListPage(context.Background(), "")
			require.NoError(t, err)
			assert.Equal(t, StrategyRating, page.Strategy)
			assert.Len(t, page.Items, 1)
		})
	}
}

func TestListPage_TransientErrorsDoNotFallBack(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"server error", http.StatusServiceUnavailable, `{}`, domain.ErrRemoteUnavailable},
		{"too many requests", http.StatusTooManyRequests, `{}`, domain.ErrRateLimited},
		{"quota exceeded", http.StatusForbidden,
			`{"error":{"code":403,"message":"quota","errors":[{"reason":"quotaExceeded"}]}}`, domain.ErrRateLimited},
		{"malformed body", http.StatusOK, `{"items": [`, domain.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, client := newFakeAPI(t)
			api.on(http.MethodGet, "/channels", tt.status, tt.body)
			api.on(http.MethodGet, "/videos", http.StatusOK, ratedPage)

			page, err := client.ListPage(context.Background(), "")
			require.Error(t, err)
			assert.Nil(t, page)
			assert.ErrorIs(t, err, tt.want)

			var listErr *domain.ListError
			require.True(t, errors.As(err, &listErr))
			assert.Equal(t, StrategyPlaylist, listErr.Strategy)
			assert.Equal(t, 0, api.count(http.MethodGet, "/videos"))
		})
	}
}

func TestListPage_BothStrategiesFail(t *testing.T) {
	api, client := newFakeAPI(t)
	api.on(http.MethodGet, "/channels", http.StatusOK, `{"items":[]}`)
	api.on(http.MethodGet, "/videos", http.StatusForbidden, `{"error":{"code":403,"message":"denied"}}`)

	_, err := client.ListPage(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	var listErr *domain.ListError
	require.True(t, errors.As(err, &listErr))
	assert.Equal(t, StrategyRating, listErr.Strategy)
}

func TestListPage_ResumesWithIssuingStrategy(t *testing.T) {
	api, client := newFakeAPI(t)
	api.on(http.MethodGet, "/playlistItems", http.StatusOK, `{"items":[]}`)
	api.on(http.MethodGet, "/videos", http.StatusOK, ratedPage)

	page, err := client.ListPage(context.Background(), "playlist:LL1:NEXT")
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, "", page.NextCursor)
	assert.Equal(t, "NEXT", api.lastQuery("/playlistItems")["pageToken"][0])
	assert.Equal(t, 0, api.count(http.MethodGet, "/channels"))
	assert.Equal(t, 0, api.count(http.MethodGet, "/videos"), "empty page must not batch-resolve")

	page, err = client.ListPage(context.Background(), "rating:R2")
	require.NoError(t, err)
	assert.Equal(t, StrategyRating, page.Strategy)
	assert.Equal(t, "R2", api.lastQuery("/videos")["pageToken"][0])
}

func TestListPage_PlaylistCursorNeverFallsBack(t *testing.T) {
	api, client := newFakeAPI(t)
	api.on(http.MethodGet, "/playlistItems", http.StatusForbidden, `{"error":{"code":403,"message":"denied"}}`)
	api.on(http.MethodGet, "/videos", http.StatusOK, ratedPage)

	_, err := client.ListPage(context.Background(), "playlist:LL1:NEXT")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	var listErr *domain.ListError
	require.True(t, errors.As(err, &listErr))
	assert.Equal(t, "playlist:LL1:NEXT", listErr.Cursor)
	assert.Equal(t, 0, api.count(http.MethodGet, "/videos"))
}

func TestListPage_InvalidCursor(t *testing.T) {
	_, client := newFakeAPI(t)

	for _, cursor := range []string{"garbage", "playlist:LL1", "other:abc", "rating:"} {
		_, err := client.ListPage(context.Background(), cursor)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument, cursor)
	}
}

type failingTokens struct{}

func (failingTokens) Token() (*oauth2.Token, error) {
	return nil, errors.New("token expired")
}

func TestListPage_AuthRequired(t *testing.T) {
	api, client := newFakeAPI(t)
	api.on(http.MethodGet, "/channels", http.StatusOK, channelsOK)

	client.tokens = failingTokens{}
	_, err := client.ListPage(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	assert.Equal(t, 0, api.count(http.MethodGet, "/channels"))

	client.tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "revoked"})
	_, err = client.ListPage(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	assert.Equal(t, 0, api.count(http.MethodGet, "/videos"))
}

func TestRemoveItem(t *testing.T) {
	api, client := newFakeAPI(t)
	api.on(http.MethodPost, "/videos/rate", http.StatusNoContent, "")

	require.NoError(t, client.RemoveItem(context.Background(), "v1"))
	q := api.lastQuery("/videos/rate")
	assert.Equal(t, "v1", q["id"][0])
	assert.Equal(t, "none", q["rating"][0])

	api.on(http.MethodPost, "/videos/rate", http.StatusForbidden, `{"error":{"code":403,"message":"denied"}}`)
	err := client.RemoveItem(context.Background(), "v1")
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	assert.ErrorIs(t, client.RemoveItem(context.Background(), ""), domain.ErrInvalidArgument)
}

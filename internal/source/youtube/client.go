package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"likesync/internal/domain"
)

const (
	SourceID = "youtube"

	StrategyPlaylist = "playlist"
	StrategyRating   = "rating"

	DefaultPageSize = 50
)

// Config holds remote API configuration.
type Config struct {
	BaseURL  string
	PageSize int
	Timeout  time.Duration
}

// Client lists the liked collection of the token's owner. It tries the
// likes playlist first and falls back to the rating filter when the
// playlist is not reachable for this account.
type Client struct {
	httpClient *http.Client
	baseURL    string
	pageSize   int
	tokens     oauth2.TokenSource
	logger     *slog.Logger
}

// New creates a new client authenticated by tokens.
func New(cfg Config, tokens oauth2.TokenSource, logger *slog.Logger) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		pageSize: pageSize,
		tokens:   tokens,
		logger:   logger.With("source", SourceID),
	}
}

// ListPage returns one page of the collection. An empty cursor requests the
// first page; any other cursor must come from a previous page of this client.
func (c *Client) ListPage(ctx context.Context, cursor string) (*domain.Page, error) {
	if cursor != "" {
		return c.resume(ctx, cursor)
	}

	page, err := c.firstPlaylistPage(ctx)
	if err == nil {
		return page, nil
	}
	if !errors.Is(err, domain.ErrStrategyUnavailable) {
		return nil, &domain.ListError{Strategy: StrategyPlaylist, Err: err}
	}

	c.logger.Info("likes playlist unavailable, falling back to rating listing", "reason", err)

	page, err = c.ratedPage(ctx, "")
	if err != nil {
		return nil, &domain.ListError{Strategy: StrategyRating, Err: err}
	}
	return page, nil
}

func (c *Client) resume(ctx context.Context, cursor string) (*domain.Page, error) {
	strategy, rest, ok := strings.Cut(cursor, ":")
	if !ok || rest == "" {
		return nil, fmt.Errorf("%w: unrecognized cursor %q", domain.ErrInvalidArgument, cursor)
	}

	switch strategy {
	case StrategyPlaylist:
		playlistID, token, ok := strings.Cut(rest, ":")
		if !ok || playlistID == "" || token == "" {
			return nil, fmt.Errorf("%w: unrecognized cursor %q", domain.ErrInvalidArgument, cursor)
		}
		page, err := c.playlistPage(ctx, playlistID, token)
		if err != nil {
			return nil, &domain.ListError{Strategy: StrategyPlaylist, Cursor: cursor, Err: err}
		}
		return page, nil
	case StrategyRating:
		page, err := c.ratedPage(ctx, rest)
		if err != nil {
			return nil, &domain.ListError{Strategy: StrategyRating, Cursor: cursor, Err: err}
		}
		return page, nil
	default:
		return nil, fmt.Errorf("%w: unknown cursor strategy %q", domain.ErrInvalidArgument, strategy)
	}
}

// RemoveItem clears the like on a single video.
func (c *Client) RemoveItem(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty item id", domain.ErrInvalidArgument)
	}
	query := url.Values{
		"id":     {id},
		"rating": {"none"},
	}
	if err := c.do(ctx, http.MethodPost, "videos/rate", query, nil); err != nil {
		return fmt.Errorf("remove item %s: %w", id, err)
	}
	c.logger.Debug("removed item", "id", id)
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrAuthRequired, err)
	}

	endpoint := c.baseURL + "/" + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "likesync/1.0")
	token.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: execute request: %w", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", domain.ErrMalformedResponse, path, err)
	}
	return nil
}

var rateLimitReasons = map[string]bool{
	"quotaExceeded":         true,
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"dailyLimitExceeded":    true,
}

// statusError classifies a non-2xx response into the domain taxonomy.
func statusError(resp *http.Response) error {
	var apiErr APIError
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(body, &apiErr)

	msg := apiErr.Error.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	var kind error
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		kind = domain.ErrAuthRequired
	case resp.StatusCode == http.StatusTooManyRequests:
		kind = domain.ErrRateLimited
	case resp.StatusCode == http.StatusForbidden:
		kind = domain.ErrPermissionDenied
		for _, e := range apiErr.Error.Errors {
			if rateLimitReasons[e.Reason] {
				kind = domain.ErrRateLimited
				break
			}
		}
	case resp.StatusCode == http.StatusNotFound:
		kind = domain.ErrNotFound
	case resp.StatusCode >= 500:
		kind = domain.ErrRemoteUnavailable
	default:
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, msg)
	}
	return fmt.Errorf("%w: status %d: %s", kind, resp.StatusCode, msg)
}

func totalResults(info *PageInfo) int {
	if info == nil || info.TotalResults == nil {
		return 0
	}
	return *info.TotalResults
}

package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"likesync/internal/domain"
)

const videoParts = "snippet,contentDetails,statistics"

func (c *Client) firstPlaylistPage(ctx context.Context) (*domain.Page, error) {
	playlistID, err := c.describeLikesPlaylist(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.listPlaylistItems(ctx, playlistID, "")
	if err != nil {
		// The first listing call doubles as an access probe.
		if errors.Is(err, domain.ErrPermissionDenied) || errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: probe playlist %s: %w", domain.ErrStrategyUnavailable, playlistID, err)
		}
		return nil, err
	}

	return c.resolvePlaylistPage(ctx, playlistID, resp)
}

func (c *Client) playlistPage(ctx context.Context, playlistID, token string) (*domain.Page, error) {
	resp, err := c.listPlaylistItems(ctx, playlistID, token)
	if err != nil {
		return nil, err
	}
	return c.resolvePlaylistPage(ctx, playlistID, resp)
}

// describeLikesPlaylist resolves the id of the account's likes playlist.
// Every failure that means "this account has no usable likes playlist" is
// marked with ErrStrategyUnavailable.
func (c *Client) describeLikesPlaylist(ctx context.Context) (string, error) {
	query := url.Values{
		"part": {"contentDetails"},
		"mine": {"true"},
	}

	var resp ChannelListResponse
	if err := c.get(ctx, "channels", query, &resp); err != nil {
		if errors.Is(err, domain.ErrPermissionDenied) || errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("%w: describe collection: %w", domain.ErrStrategyUnavailable, err)
		}
		return "", fmt.Errorf("describe collection: %w", err)
	}

	switch {
	case len(resp.Items) == 0:
		return "", fmt.Errorf("%w: %w: no channel descriptor", domain.ErrStrategyUnavailable, domain.ErrShapeMismatch)
	case resp.Items[0].ContentDetails == nil || resp.Items[0].ContentDetails.RelatedPlaylists == nil:
		return "", fmt.Errorf("%w: %w: no related playlists", domain.ErrStrategyUnavailable, domain.ErrShapeMismatch)
	case resp.Items[0].ContentDetails.RelatedPlaylists.Likes == "":
		return "", fmt.Errorf("%w: %w: likes playlist id missing", domain.ErrStrategyUnavailable, domain.ErrShapeMismatch)
	}

	return resp.Items[0].ContentDetails.RelatedPlaylists.Likes, nil
}

func (c *Client) listPlaylistItems(ctx context.Context, playlistID, token string) (*PlaylistItemListResponse, error) {
	query := url.Values{
		"part":       {"snippet,contentDetails"},
		"playlistId": {playlistID},
		"maxResults": {strconv.Itoa(c.pageSize)},
	}
	if token != "" {
		query.Set("pageToken", token)
	}

	var resp PlaylistItemListResponse
	if err := c.get(ctx, "playlistItems", query, &resp); err != nil {
		return nil, fmt.Errorf("list playlist items: %w", err)
	}
	return &resp, nil
}

// resolvePlaylistPage batch-fetches video details for a playlist page and
// keeps playlist order. Entries without details are dropped.
func (c *Client) resolvePlaylistPage(ctx context.Context, playlistID string, resp *PlaylistItemListResponse) (*domain.Page, error) {
	page := &domain.Page{
		Strategy:   StrategyPlaylist,
		TotalCount: totalResults(resp.PageInfo),
		Items:      []domain.CollectionItem{},
	}
	if resp.NextPageToken != "" {
		page.NextCursor = StrategyPlaylist + ":" + playlistID + ":" + resp.NextPageToken
	}

	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.ContentDetails != nil && item.ContentDetails.VideoID != "" {
			ids = append(ids, item.ContentDetails.VideoID)
		}
	}
	if len(ids) == 0 {
		return page, nil
	}

	details, err := c.videoDetails(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, item := range resp.Items {
		if item.ContentDetails == nil {
			continue
		}
		v, ok := details[item.ContentDetails.VideoID]
		if !ok {
			c.logger.Debug("dropping item without details", "id", item.ContentDetails.VideoID)
			continue
		}
		addedAt := ""
		if item.Snippet != nil {
			addedAt = item.Snippet.PublishedAt
		}
		if mapped, ok := c.toItem(v, addedAt); ok {
			page.Items = append(page.Items, mapped)
		}
	}

	c.logger.Debug("fetched playlist page",
		"playlist_id", playlistID,
		"listed", len(resp.Items),
		"items", len(page.Items),
		"total", page.TotalCount,
	)

	return page, nil
}

func (c *Client) videoDetails(ctx context.Context, ids []string) (map[string]Video, error) {
	query := url.Values{
		"part": {videoParts},
		"id":   {strings.Join(ids, ",")},
	}

	var resp VideoListResponse
	if err := c.get(ctx, "videos", query, &resp); err != nil {
		return nil, fmt.Errorf("batch get details: %w", err)
	}

	details := make(map[string]Video, len(resp.Items))
	for _, v := range resp.Items {
		details[v.ID] = v
	}
	return details, nil
}

package youtube

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"likesync/internal/domain"
)

// ratedPage lists videos carrying the caller's like rating. The endpoint
// does not expose when the like happened, so AddedAt mirrors CreatedAt.
func (c *Client) ratedPage(ctx context.Context, token string) (*domain.Page, error) {
	query := url.Values{
		"part":       {videoParts},
		"myRating":   {"like"},
		"maxResults": {strconv.Itoa(c.pageSize)},
	}
	if token != "" {
		query.Set("pageToken", token)
	}

	var resp VideoListResponse
	if err := c.get(ctx, "videos", query, &resp); err != nil {
		return nil, fmt.Errorf("list rated videos: %w", err)
	}

	page := &domain.Page{
		Strategy:   StrategyRating,
		TotalCount: totalResults(resp.PageInfo),
		Items:      make([]domain.CollectionItem, 0, len(resp.Items)),
	}
	if resp.NextPageToken != "" {
		page.NextCursor = StrategyRating + ":" + resp.NextPageToken
	}

	for _, v := range resp.Items {
		if item, ok := c.toItem(v, ""); ok {
			page.Items = append(page.Items, item)
		}
	}

	c.logger.Debug("fetched rating page",
		"items", len(page.Items),
		"total", page.TotalCount,
	)

	return page, nil
}

package youtube

import (
	"time"

	"likesync/internal/domain"
)

const watchURL = "https://www.youtube.com/watch?v="

// thumbnailOrder is the preference order for thumbnail resolutions.
var thumbnailOrder = []string{"medium", "default"}

// toItem maps a video resource onto a CollectionItem. An empty addedAt
// means the listing has no separate "added" time and CreatedAt is used.
// Videos without snippet metadata (deleted or private upstream) are rejected.
func (c *Client) toItem(v Video, addedAt string) (domain.CollectionItem, bool) {
	if v.ID == "" || v.Snippet == nil {
		return domain.CollectionItem{}, false
	}

	item := domain.CollectionItem{
		ID:           v.ID,
		Title:        v.Snippet.Title,
		OwnerName:    v.Snippet.ChannelTitle,
		OwnerID:      v.Snippet.ChannelID,
		CreatedAt:    c.parseTime(v.ID, v.Snippet.PublishedAt),
		ThumbnailURL: pickThumbnail(v.Snippet.Thumbnails),
		CanonicalURL: watchURL + v.ID,
	}

	if addedAt != "" {
		item.AddedAt = c.parseTime(v.ID, addedAt)
	} else {
		item.AddedAt = item.CreatedAt
	}

	if v.ContentDetails != nil {
		item.DurationToken = v.ContentDetails.Duration
	}
	if v.Statistics != nil {
		item.Views = int64(v.Statistics.ViewCount)
		item.Likes = int64(v.Statistics.LikeCount)
	}

	return item, true
}

func (c *Client) parseTime(id, value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		c.logger.Warn("failed to parse date", "id", id, "date", value)
		return time.Time{}
	}
	return t
}

func pickThumbnail(thumbs map[string]Thumbnail) string {
	for _, key := range thumbnailOrder {
		if t, ok := thumbs[key]; ok && t.URL != "" {
			return t.URL
		}
	}
	return ""
}

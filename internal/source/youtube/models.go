package youtube

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ChannelListResponse is the "describe my collection" response.
type ChannelListResponse struct {
	Items []Channel `json:"items"`
}

type Channel struct {
	ID             string                 `json:"id"`
	ContentDetails *ChannelContentDetails `json:"contentDetails"`
}

type ChannelContentDetails struct {
	RelatedPlaylists *RelatedPlaylists `json:"relatedPlaylists"`
}

type RelatedPlaylists struct {
	Likes string `json:"likes"`
}

type PageInfo struct {
	TotalResults   *int `json:"totalResults"`
	ResultsPerPage int  `json:"resultsPerPage"`
}

type PlaylistItemListResponse struct {
	NextPageToken string         `json:"nextPageToken"`
	PageInfo      *PageInfo      `json:"pageInfo"`
	Items         []PlaylistItem `json:"items"`
}

type PlaylistItem struct {
	ID             string                      `json:"id"`
	Snippet        *PlaylistItemSnippet        `json:"snippet"`
	ContentDetails *PlaylistItemContentDetails `json:"contentDetails"`
}

type PlaylistItemSnippet struct {
	Title       string `json:"title"`
	PublishedAt string `json:"publishedAt"` // when the video entered the playlist
}

type PlaylistItemContentDetails struct {
	VideoID string `json:"videoId"`
}

type VideoListResponse struct {
	NextPageToken string    `json:"nextPageToken"`
	PageInfo      *PageInfo `json:"pageInfo"`
	Items         []Video   `json:"items"`
}

type Video struct {
	ID             string               `json:"id"`
	Snippet        *VideoSnippet        `json:"snippet"`
	ContentDetails *VideoContentDetails `json:"contentDetails"`
	Statistics     *VideoStatistics     `json:"statistics"`
}

type VideoSnippet struct {
	Title        string               `json:"title"`
	ChannelID    string               `json:"channelId"`
	ChannelTitle string               `json:"channelTitle"`
	PublishedAt  string               `json:"publishedAt"`
	Thumbnails   map[string]Thumbnail `json:"thumbnails"`
}

type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type VideoContentDetails struct {
	Duration string `json:"duration"`
}

type VideoStatistics struct {
	ViewCount Count `json:"viewCount"`
	LikeCount Count `json:"likeCount"`
}

// APIError is the error envelope returned with non-2xx responses.
type APIError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason  string `json:"reason"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"error"`
}

// Count decodes engagement counters sent as JSON strings (or numbers).
// Absent or non-numeric values decode to 0 instead of failing the page.
type Count int64

func (c *Count) UnmarshalJSON(data []byte) error {
	raw := string(bytes.Trim(data, `"`))
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		*c = 0
		return nil
	}
	*c = Count(n)
	return nil
}

var _ json.Unmarshaler = (*Count)(nil)

package domain

import "time"

// CollectionItem is one liked video, normalized from either listing strategy.
type CollectionItem struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	OwnerName     string    `json:"ownerName"`
	OwnerID       string    `json:"ownerId"`
	CreatedAt     time.Time `json:"createdAt"`
	AddedAt       time.Time `json:"addedAt"` // equals CreatedAt under the rating strategy
	ThumbnailURL  string    `json:"thumbnailUrl"`
	Views         int64     `json:"views"`
	Likes         int64     `json:"likes"`
	DurationToken string    `json:"durationToken"`
	CanonicalURL  string    `json:"canonicalUrl"`
}

// Page is a single response of the remote listing.
// An empty NextCursor means the end of the collection.
type Page struct {
	Items      []CollectionItem
	NextCursor string
	TotalCount int
	Strategy   string
}

type Snapshot struct {
	Items            []CollectionItem `json:"items"`
	TotalRemoteCount int              `json:"totalRemoteCount"`
	ResumeCursor     string           `json:"resumeCursor"`
}

// Order names a presentation-only ordering of a snapshot.
type Order string

const (
	OrderNewest     Order = "newest"
	OrderOldest     Order = "oldest"
	OrderMostViewed Order = "most-viewed"
	OrderMostLiked  Order = "most-liked"
)

func (o Order) Valid() bool {
	switch o {
	case OrderNewest, OrderOldest, OrderMostViewed, OrderMostLiked:
		return true
	}
	return false
}

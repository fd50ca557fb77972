package domain

import "time"

// PageResult is returned by the first-page and next-page sync operations.
type PageResult struct {
	Items      []CollectionItem `json:"items"`
	Count      int              `json:"count"`
	NextCursor string           `json:"nextCursor,omitempty"`
	TotalCount int              `json:"totalCount"`
	// Merged is the full cached collection after the page was applied.
	Merged []CollectionItem `json:"merged,omitempty"`
	// Empty reports a collection with no items at all, which is not an error.
	Empty bool `json:"empty"`
}

// DrainResult holds everything accumulated by a drain run.
type DrainResult struct {
	Items              []CollectionItem `json:"items"`
	TotalCount         int              `json:"totalCount"`
	Pages              int              `json:"pages"`
	Completeness       float64          `json:"completeness"`
	SafetyLimitReached bool             `json:"safetyLimitReached"`
	ResumeCursor       string           `json:"resumeCursor,omitempty"`
}

// RemovalReport describes a bulk removal. A non-empty Failures map is the
// partial batch failure condition; it is reported, not returned as an error.
type RemovalReport struct {
	Succeeded []string          `json:"succeeded"`
	Failures  map[string]string `json:"failures,omitempty"`
	Remaining int               `json:"remaining"`
}

func (r *RemovalReport) Partial() bool {
	return len(r.Failures) > 0 && len(r.Succeeded) > 0
}

// SyncStats holds statistics about a scheduled export run.
type SyncStats struct {
	Identity           string
	Fetched            int
	Pages              int
	TotalCount         int
	SafetyLimitReached bool
	Published          bool
	Duration           time.Duration
}

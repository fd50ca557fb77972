package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"likesync/internal/domain"
)

// CollectionLister is the remote side of the collection: paged listing
// plus the per-item "unlike" action.
type CollectionLister interface {
	ListPage(ctx context.Context, cursor string) (*domain.Page, error)
	RemoveItem(ctx context.Context, id string) error
}

// LocalCache is a durable key-value surface. Set is not assumed to be
// atomic across keys.
type LocalCache interface {
	Get(ctx context.Context, keys []string) (map[string][]byte, error)
	Set(ctx context.Context, values map[string][]byte) error
}

type UsageStore interface {
	// Get returns nil and no error for an identity never seen before.
	Get(ctx context.Context, identity string) (*domain.UsageRecord, error)
	Save(ctx context.Context, record *domain.UsageRecord) error
}

type CredentialProvider interface {
	GetToken(ctx context.Context) (*domain.Credential, error)
	Revoke(ctx context.Context) error
}

type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoURL string) (*domain.Transcript, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, transcript *domain.Transcript) (string, error)
}

type Publisher interface {
	PublishExport(ctx context.Context, identity string, result *domain.DrainResult) error
	PublishRemoval(ctx context.Context, identity string, report *domain.RemovalReport) error
	Close() error
}

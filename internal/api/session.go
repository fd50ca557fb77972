package api

import (
	"context"
	"fmt"
	"log/slog"

	"likesync/internal/auth"
	"likesync/internal/config"
	"likesync/internal/service"
	"likesync/internal/source/youtube"
)

// Session bundles the services bound to one signed-in identity.
type Session struct {
	Identity string
	Sync     *service.SyncService
	Export   *service.ExportService
	Sessions *service.SessionService
}

// SessionResolver turns the bearer token of a request into a Session.
type SessionResolver interface {
	Resolve(ctx context.Context, bearer string) (*Session, error)
}

// TokenSessions builds a Session per request from the caller's access
// token. The identity is looked up through the userinfo endpoint, so an
// invalid token fails here before any collection call is made.
type TokenSessions struct {
	cfg       *config.Config
	cache     service.LocalCache
	publisher service.Publisher
	logger    *slog.Logger
}

func NewTokenSessions(cfg *config.Config, cache service.LocalCache, publisher service.Publisher, logger *slog.Logger) *TokenSessions {
	return &TokenSessions{
		cfg:       cfg,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
	}
}

func (t *TokenSessions) Resolve(ctx context.Context, bearer string) (*Session, error) {
	provider := auth.NewStatic(auth.ConfigFrom(t.cfg.OAuth), bearer, t.logger)

	cred, err := provider.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}

	client := youtube.New(youtube.Config{
		BaseURL:  t.cfg.API.BaseURL,
		PageSize: t.cfg.API.PageSize,
		Timeout:  t.cfg.API.Timeout,
	}, provider, t.logger)

	sync := service.NewSyncService(client, t.cache, cred.Identity, t.logger, t.cfg.Sync)

	return &Session{
		Identity: cred.Identity,
		Sync:     sync,
		Export:   service.NewExportService(sync, t.publisher, t.logger),
		Sessions: service.NewSessionService(provider, sync, t.logger),
	}, nil
}

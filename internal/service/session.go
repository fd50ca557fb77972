package service

import (
	"context"
	"fmt"
	"log/slog"
)

// SessionService ends a signed-in session.
type SessionService struct {
	credentials CredentialProvider
	sync        *SyncService
	logger      *slog.Logger
}

func NewSessionService(credentials CredentialProvider, sync *SyncService, logger *slog.Logger) *SessionService {
	return &SessionService{
		credentials: credentials,
		sync:        sync,
		logger:      logger.With("component", "session"),
	}
}

// SignOut revokes the credential and clears the cached collection. The
// cache is cleared even if revocation fails, and the revocation error is
// still returned.
func (s *SessionService) SignOut(ctx context.Context) error {
	revokeErr := s.credentials.Revoke(ctx)
	if revokeErr != nil {
		s.logger.Warn("revoke failed", "error", revokeErr)
	}

	if err := s.sync.Reset(ctx); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}

	if revokeErr != nil {
		return fmt.Errorf("sign out: revoke: %w", revokeErr)
	}
	s.logger.Info("signed out", "identity", s.sync.Identity())
	return nil
}

// Package auth supplies bearer credentials for the remote collection API.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"likesync/internal/config"
	"likesync/internal/domain"
)

// Config holds the endpoints used to refresh, introspect and revoke tokens.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	AuthURL      string
	RevokeURL    string
	UserInfoURL  string
	Timeout      time.Duration
}

func ConfigFrom(c config.OAuthConfig) Config {
	return Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		AuthURL:      c.AuthURL,
		RevokeURL:    c.RevokeURL,
		UserInfoURL:  c.UserInfoURL,
	}
}

// Provider resolves a token and the identity it belongs to. Token
// acquisition itself (consent screens, code exchange) happens elsewhere;
// Provider only refreshes, introspects and revokes.
type Provider struct {
	tokens     oauth2.TokenSource
	httpClient *http.Client
	cfg        Config
	logger     *slog.Logger

	mu       sync.Mutex
	identity string
	revoked  bool
}

// NewStatic wraps an access token handed in by a caller, e.g. the bearer
// token of an incoming request.
func NewStatic(cfg Config, accessToken string, logger *slog.Logger) *Provider {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	return newProvider(cfg, ts, logger)
}

// NewRefreshing builds a provider that mints access tokens from a stored
// refresh token, used by unattended exports.
func NewRefreshing(ctx context.Context, cfg Config, refreshToken string, logger *slog.Logger) *Provider {
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.AuthURL,
			TokenURL: cfg.TokenURL,
		},
	}
	ts := oc.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	return newProvider(cfg, ts, logger)
}

func newProvider(cfg Config, ts oauth2.TokenSource, logger *slog.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Provider{
		tokens:     oauth2.ReuseTokenSource(nil, ts),
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		logger:     logger.With("component", "auth"),
	}
}

// Token implements oauth2.TokenSource. Expired or revoked credentials
// surface as domain.ErrAuthRequired.
func (p *Provider) Token() (*oauth2.Token, error) {
	p.mu.Lock()
	revoked := p.revoked
	p.mu.Unlock()
	if revoked {
		return nil, fmt.Errorf("%w: credential revoked", domain.ErrAuthRequired)
	}

	tok, err := p.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAuthRequired, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", domain.ErrAuthRequired)
	}
	return tok, nil
}

type userInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
}

// GetToken returns the current token together with the identity that owns
// it. The identity is looked up once and cached.
func (p *Provider) GetToken(ctx context.Context) (*domain.Credential, error) {
	tok, err := p.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	identity := p.identity
	p.mu.Unlock()
	if identity != "" {
		return &domain.Credential{Token: tok.AccessToken, Identity: identity}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	tok.SetAuthHeader(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo: %w", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: userinfo status %d", domain.ErrAuthRequired, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: userinfo status %d", domain.ErrRemoteUnavailable, resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: decode userinfo: %w", domain.ErrMalformedResponse, err)
	}

	identity = info.Email
	if identity == "" {
		identity = info.Sub
	}
	if identity == "" {
		return nil, errors.New("userinfo: no identity in response")
	}

	p.mu.Lock()
	p.identity = identity
	p.mu.Unlock()

	return &domain.Credential{Token: tok.AccessToken, Identity: identity}, nil
}

// Revoke invalidates the token upstream. The provider refuses to hand out
// tokens afterwards even if the upstream call fails.
func (p *Provider) Revoke(ctx context.Context) error {
	tok, err := p.Token()
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.revoked = true
	p.mu.Unlock()

	form := url.Values{"token": {tok.AccessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.RevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: revoke: %w", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	// An already invalid token is reported as 400; the outcome is the same.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		return fmt.Errorf("revoke: unexpected status %d", resp.StatusCode)
	}

	p.logger.Info("credential revoked")
	return nil
}

package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"likesync/internal/config"
	"likesync/internal/domain"
)

type fakeAccounts struct {
	server       *httptest.Server
	userinfo     atomic.Int32
	revoked      atomic.Value
	userStatus   int
	userBody     string
	revokeStatus int
}

func newFakeAccounts(t *testing.T) *fakeAccounts {
	f := &fakeAccounts{
		userStatus:   http.StatusOK,
		userBody:     `{"sub":"1234","email":"user@example.com"}`,
		revokeStatus: http.StatusOK,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		f.userinfo.Add(1)
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(f.userStatus)
		_, _ = io.WriteString(w, f.userBody)
	})
	mux.HandleFunc("/revoke", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		f.revoked.Store(r.PostForm.Get("token"))
		w.WriteHeader(f.revokeStatus)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAccounts) config() Config {
	return ConfigFrom(config.OAuthConfig{
		UserInfoURL: f.server.URL + "/userinfo",
		RevokeURL:   f.server.URL + "/revoke",
	})
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetToken_ResolvesAndCachesIdentity(t *testing.T) {
	accounts := newFakeAccounts(t)
	p := NewStatic(accounts.config(), "tok-1", discard())

	cred, err := p.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", cred.Token)
	assert.Equal(t, "user@example.com", cred.Identity)

	_, err = p.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), accounts.userinfo.Load())
}

func TestGetToken_FallsBackToSubject(t *testing.T) {
	accounts := newFakeAccounts(t)
	accounts.userBody = `{"sub":"1234"}`

	cred, err := NewStatic(accounts.config(), "tok-1", discard()).GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1234", cred.Identity)
}

func TestGetToken_InvalidToken(t *testing.T) {
	accounts := newFakeAccounts(t)

	_, err := NewStatic(accounts.config(), "wrong", discard()).GetToken(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
}

func TestGetToken_EmptyToken(t *testing.T) {
	accounts := newFakeAccounts(t)

	_, err := NewStatic(accounts.config(), "", discard()).GetToken(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	assert.Zero(t, accounts.userinfo.Load())
}

func TestGetToken_UpstreamFailure(t *testing.T) {
	accounts := newFakeAccounts(t)
	accounts.userStatus = http.StatusServiceUnavailable

	_, err := NewStatic(accounts.config(), "tok-1", discard()).GetToken(context.Background())
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
}

func TestRevoke(t *testing.T) {
	accounts := newFakeAccounts(t)
	p := NewStatic(accounts.config(), "tok-1", discard())

	require.NoError(t, p.Revoke(context.Background()))
	assert.Equal(t, "tok-1", accounts.revoked.Load())

	_, err := p.Token()
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
}

func TestRevoke_AlreadyInvalidIsFine(t *testing.T) {
	accounts := newFakeAccounts(t)
	accounts.revokeStatus = http.StatusBadRequest

	assert.NoError(t, NewStatic(accounts.config(), "tok-1", discard()).Revoke(context.Background()))
}

func TestRevoke_UnexpectedStatus(t *testing.T) {
	accounts := newFakeAccounts(t)
	accounts.revokeStatus = http.StatusInternalServerError
	p := NewStatic(accounts.config(), "tok-1", discard())

	assert.Error(t, p.Revoke(context.Background()))

	_, err := p.Token()
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
}

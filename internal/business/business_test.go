package business

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/taskboard-client/internal/config"
	"github.com/openkcm/taskboard-client/pkg/session"
)

func TestOpenStore(t *testing.T) {
	tests := []struct {
		name    string
		store   config.TokenStore
		wantErr string
	}{
		{
			name:  "Memory",
			store: config.TokenStore{Type: config.TokenStoreMemory},
		},
		{
			name: "File",
			store: config.TokenStore{
				Type: config.TokenStoreFile,
				File: config.FileStore{Path: filepath.Join(t.TempDir(), "session.yaml")},
			},
		},
		{
			name:  "Default is file",
			store: config.TokenStore{File: config.FileStore{Path: filepath.Join(t.TempDir(), "session.yaml")}},
		},
		{
			name:    "Unknown type",
			store:   config.TokenStore{Type: "etcd"},
			wantErr: "unknown token store type",
		},
		{
			name: "Invalid valkey password ref",
			store: config.TokenStore{
				Type: config.TokenStoreValKey,
				ValKey: config.ValKey{
					Host:     commoncfg.SourceRef{Source: "embedded", Value: "localhost:6379"},
					User:     commoncfg.SourceRef{Source: "embedded", Value: "user"},
					Password: commoncfg.SourceRef{Source: "file", File: commoncfg.CredentialFile{Path: "/nonexistent/file"}},
				},
			},
			wantErr: "failed to make valkey options from config",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{TokenStore: tt.store}

			store, closeFn, err := openStore(t.Context(), cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			defer closeFn()
			assert.False(t, store.Authenticated())
		})
	}
}

func TestValkeyClientFromConfig_WithMTLS(t *testing.T) {
	cfg := &config.Config{
		TokenStore: config.TokenStore{
			ValKey: config.ValKey{
				Host:     commoncfg.SourceRef{Source: "embedded", Value: "localhost:6379"},
				User:     commoncfg.SourceRef{Source: "embedded", Value: "user"},
				Password: commoncfg.SourceRef{Source: "embedded", Value: "pass"},
				SecretRef: commoncfg.SecretRef{
					Type: commoncfg.MTLSSecretType,
					MTLS: commoncfg.MTLS{
						Cert:    commoncfg.SourceRef{Source: "file", File: commoncfg.CredentialFile{Path: "/nonexistent/cert.pem"}},
						CertKey: commoncfg.SourceRef{Source: "file", File: commoncfg.CredentialFile{Path: "/nonexistent/key.pem"}},
					},
				},
			},
		},
	}

	_, err := valkeyClientFromConfig(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "mTLS config from secret ref")
}

func TestLoadHTTPClient(t *testing.T) {
	cfg := &config.Config{API: config.API{Timeout: 3 * time.Second}}

	client := loadHTTPClient(cfg, nil)
	assert.Equal(t, 3*time.Second, client.Timeout)
	assert.Nil(t, client.Transport)
}

// fakeAPI issues A1/R1 on login. The first project listing after login is
// rejected as if A1 had expired, the refresh then issues A2/R2.
type fakeAPI struct {
	refreshes atomic.Int32
	expired   atomic.Bool
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, _ *http.Request) {
		f.expired.Store(true)
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "A1", "refresh_token": "R1"})
	})
	mux.HandleFunc("GET /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer R1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid refresh token"})
			return
		}
		f.refreshes.Add(1)
		f.expired.Store(false)
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "A2", "refresh_token": "R2"})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /projects", func(w http.ResponseWriter, r *http.Request) {
		if f.expired.Load() || r.Header.Get("Authorization") != "Bearer A2" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
			return
		}
		writeJSON(w, http.StatusOK, []map[string]any{{"_id": "p1", "title": "Apollo"}})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestApp(t *testing.T, api *fakeAPI) *App {
	t.Helper()

	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		API:        config.API{BaseURL: srv.URL + "/", Timeout: 5 * time.Second},
		Auth:       config.Auth{RefreshTimeout: 2 * time.Second},
		TokenStore: config.TokenStore{Type: config.TokenStoreMemory},
	}

	app, err := NewApp(t.Context(), cfg, LogNavigator{})
	require.NoError(t, err)
	t.Cleanup(app.Close)

	return app
}

func TestApp_SessionLifecycle(t *testing.T) {
	api := &fakeAPI{}
	app := newTestApp(t, api)

	require.ErrorIs(t, app.RequireSession(t.Context()), ErrNotLoggedIn)

	status, err := app.Login(t.Context(), session.Credentials{Email: "ana@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.True(t, status.Authenticated)
	assert.Equal(t, "ana@example.com", status.Identity)

	projects, err := app.Client.ListProjects(t.Context())
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "Apollo", projects[0].Title)
	assert.Equal(t, int32(1), api.refreshes.Load(), "expired access token is refreshed once")

	access, _, err := app.Store.AccessToken(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "A2", access)

	require.NoError(t, app.Session.Logout(t.Context()))
	status, err = app.Status(t.Context())
	require.NoError(t, err)
	assert.False(t, status.Authenticated)
}

func TestApp_RefreshFailureEndsSession(t *testing.T) {
	api := &fakeAPI{}
	app := newTestApp(t, api)

	require.NoError(t, app.Store.SetTokens(t.Context(), "A0", "stale"))

	_, err := app.Client.ListProjects(t.Context())
	require.Error(t, err)

	assert.ErrorIs(t, app.RequireSession(t.Context()), ErrNotLoggedIn)
	assert.Zero(t, api.refreshes.Load())
}

func TestKeepAliveMain_StopsWithContext(t *testing.T) {
	cfg := &config.Config{
		API:        config.API{BaseURL: "http://127.0.0.1:1/"},
		TokenStore: config.TokenStore{Type: config.TokenStoreMemory},
		Refresher:  config.Refresher{Interval: 10 * time.Millisecond},
	}

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	assert.NoError(t, KeepAliveMain(ctx, cfg))
}

func TestLogNavigator(t *testing.T) {
	assert.NotPanics(t, func() {
		LogNavigator{}.Navigate(t.Context(), session.ViewLogin)
		LogNavigator{}.Navigate(t.Context(), session.ViewProjects)
	})
}

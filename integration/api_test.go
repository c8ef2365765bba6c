//go:build integration

package integration_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

const (
	testEmail    = "ana@example.com"
	testPassword = "secret"
)

// fakeAPI hands out numbered token pairs. A refresh with the current refresh
// token moves to the next generation, expire makes the current access token
// stale without rotating it.
type fakeAPI struct {
	*httptest.Server

	mu         sync.Mutex
	generation int
	expired    bool
	refreshes  int
	logouts    int
}

func startAPI(t *testing.T) *fakeAPI {
	t.Helper()

	api := &fakeAPI{}
	api.Server = httptest.NewServer(api.handler())
	t.Cleanup(api.Close)

	return api
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil ||
			creds.Email != testEmail || creds.Password != testPassword {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid credentials"})
			return
		}

		f.mu.Lock()
		f.generation++
		f.expired = false
		tokens := f.tokensLocked()
		f.mu.Unlock()

		writeJSON(w, http.StatusOK, tokens)
	})

	mux.HandleFunc("GET /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		if r.Header.Get("Authorization") != fmt.Sprintf("Bearer R%d", f.generation) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid refresh token"})
			return
		}

		f.generation++
		f.expired = false
		f.refreshes++
		writeJSON(w, http.StatusOK, f.tokensLocked())
	})

	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		f.logouts++
		f.mu.Unlock()

		writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
	})

	mux.HandleFunc("GET /projects", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
			return
		}

		writeJSON(w, http.StatusOK, []map[string]any{
			{"_id": "p1", "title": "Apollo", "description": "Moon", "members": []any{}},
		})
	})

	return mux
}

func (f *fakeAPI) tokensLocked() map[string]string {
	return map[string]string{
		"access_token":  fmt.Sprintf("A%d", f.generation),
		"refresh_token": fmt.Sprintf("R%d", f.generation),
		"token_type":    "bearer",
	}
}

func (f *fakeAPI) authorized(r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return !f.expired && r.Header.Get("Authorization") == fmt.Sprintf("Bearer A%d", f.generation)
}

func (f *fakeAPI) expire() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.expired = true
}

func (f *fakeAPI) rotate() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.generation++
}

func (f *fakeAPI) stats() (generation, refreshes, logouts int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.generation, f.refreshes, f.logouts
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

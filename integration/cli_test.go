//go:build integration

package integration_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionStatus struct {
	Authenticated bool   `json:"authenticated"`
	Identity      string `json:"identity"`
}

type project struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
}

func status(t *testing.T, istat *infraStat) sessionStatus {
	t.Helper()

	out, err := istat.Taskboard(t, "-o", "json", "auth", "status")
	require.NoError(t, err)

	var got sessionStatus
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)

	return got
}

func TestSessionLifecycle(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, istat *infraStat)

		// storedAccessToken reads the access token from the token store.
		storedAccessToken func(t *testing.T, istat *infraStat) string
	}{
		{
			name: "file token store",
			prepare: func(t *testing.T, istat *infraStat) {
				istat.PrepareFileStore(t)
			},
			storedAccessToken: func(t *testing.T, istat *infraStat) string {
				dat, err := os.ReadFile(filepath.Join(istat.Procdir, "session.yaml"))
				if os.IsNotExist(err) {
					return ""
				}
				require.NoError(t, err)

				var values map[string]string
				require.NoError(t, yaml.Unmarshal(dat, &values))

				return values["access_token"]
			},
		},
		{
			name: "valkey token store",
			prepare: func(t *testing.T, istat *infraStat) {
				istat.PrepareValKey(t, "it")
			},
			storedAccessToken: func(t *testing.T, istat *infraStat) string {
				v, err := istat.ValKey.Do(t.Context(), istat.ValKey.B().Get().Key("it:session:access_token").Build()).ToString()
				if err != nil {
					return ""
				}

				return v
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			istat := initInfra(t)
			defer istat.Close(t.Context())

			tt.prepare(t, &istat)
			istat.PrepareConfig(t)

			assert.False(t, status(t, &istat).Authenticated)

			_, err := istat.Taskboard(t, "auth", "login", "--email", testEmail, "--password", "wrong")
			require.Error(t, err, "rejected credentials fail the command")
			assert.False(t, status(t, &istat).Authenticated)

			out, err := istat.Taskboard(t, "-o", "json", "auth", "login", "--email", testEmail, "--password", testPassword)
			require.NoError(t, err)

			var loggedIn sessionStatus
			require.NoError(t, json.Unmarshal([]byte(out), &loggedIn), out)
			assert.True(t, loggedIn.Authenticated)
			assert.Equal(t, testEmail, loggedIn.Identity)
			assert.Equal(t, "A1", tt.storedAccessToken(t, &istat))

			// The access token expires between commands, the next call
			// refreshes it and replays the request.
			istat.API.expire()

			out, err = istat.Taskboard(t, "-o", "json", "projects", "list")
			require.NoError(t, err)

			var projects []project
			require.NoError(t, json.Unmarshal([]byte(out), &projects), out)
			require.Len(t, projects, 1)
			assert.Equal(t, "Apollo", projects[0].Title)

			generation, refreshes, _ := istat.API.stats()
			assert.Equal(t, 2, generation)
			assert.Equal(t, 1, refreshes)
			assert.Equal(t, "A2", tt.storedAccessToken(t, &istat))

			_, err = istat.Taskboard(t, "auth", "logout")
			require.NoError(t, err)

			_, _, logouts := istat.API.stats()
			assert.Equal(t, 1, logouts)
			assert.False(t, status(t, &istat).Authenticated)
			assert.Empty(t, tt.storedAccessToken(t, &istat))

			_, err = istat.Taskboard(t, "projects", "list")
			assert.Error(t, err, "no session left to refresh")
		})
	}
}

func TestRejectedRefreshEndsSession(t *testing.T) {
	istat := initInfra(t)
	defer istat.Close(t.Context())

	istat.PrepareFileStore(t)
	istat.PrepareConfig(t)

	_, err := istat.Taskboard(t, "auth", "login", "--email", testEmail, "--password", testPassword)
	require.NoError(t, err)

	// The pair is rotated elsewhere, the stored refresh token is no longer
	// accepted.
	istat.API.rotate()

	_, err = istat.Taskboard(t, "auth", "refresh")
	require.Error(t, err)

	assert.False(t, status(t, &istat).Authenticated)
}

//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeepAlive(t *testing.T) {
	tests := []struct {
		name string
		args []string
		bin  string
	}{
		{
			name: "standalone binary",
			bin:  "keepalive",
		},
		{
			name: "taskboard sub command",
			bin:  "taskboard",
			args: []string{"keepalive"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			istat := initInfra(t)
			defer istat.Close(t.Context())

			istat.PrepareValKey(t, "keepalive")
			istat.SetRefreshInterval(200 * time.Millisecond)
			istat.PrepareConfig(t)

			_, err := istat.Taskboard(t, "auth", "login", "--email", testEmail, "--password", testPassword)
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(t.Context(), 30*time.Second)
			defer cancel()

			var logs bytes.Buffer

			cmd := istat.Command(ctx, tt.bin, tt.args...)
			cmd.Stdout = &logs
			cmd.Stderr = &logs
			require.NoError(t, cmd.Start())

			assert.Eventually(t, func() bool {
				_, refreshes, _ := istat.API.stats()
				return refreshes >= 3
			}, 10*time.Second, 50*time.Millisecond, "tokens are refreshed periodically")

			require.NoError(t, cmd.Process.Signal(syscall.SIGTERM))
			err = cmd.Wait()
			if err != nil {
				t.Logf("keepalive output: %s", logs.String())
			}
			assert.NoError(t, err, "keep alive stops cleanly on SIGTERM")

			// The CLI sees the pair the loop stored last.
			generation, _, _ := istat.API.stats()
			stored, err := istat.ValKey.Do(t.Context(), istat.ValKey.B().Get().Key("keepalive:session:access_token").Build()).ToString()
			require.NoError(t, err)
			assert.Equal(t, "A"+strconv.Itoa(generation), stored)
			assert.True(t, status(t, &istat).Authenticated)
		})
	}
}

func TestKeepAliveVersion(t *testing.T) {
	istat := initInfra(t)

	out, err := istat.Command(t.Context(), "keepalive", "-version").Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "integration")
}

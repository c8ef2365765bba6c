//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"io/fs"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"

	"github.com/openkcm/taskboard-client/internal/dbtest/valkeytest"
)

type closeFunc func(ctx context.Context)

type infraStat struct {
	API            *fakeAPI
	ValKey         valkey.Client
	ConfigFilePath string
	Procdir        string
	Bindir         string
	Cfg            map[string]any

	closeFuncs []closeFunc
}

func initInfra(t *testing.T) (istat infraStat) {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err, "failed to get wd")
	istat.Bindir = wd

	// Each process runs in its own directory since the config is read from
	// $PWD/config.yaml.
	istat.Procdir = t.TempDir()
	istat.ConfigFilePath = filepath.Join(istat.Procdir, "config.yaml")

	err = yaml.Unmarshal([]byte(validConfig), &istat.Cfg)
	require.NoError(t, err, "failed to parse config")

	istat.API = startAPI(t)
	istat.Cfg["api"] = map[string]any{
		"baseURL": istat.API.URL + "/",
		"timeout": "5s",
	}
	istat.Cfg["status"] = map[string]any{
		"enabled": true,
		"address": freeAddress(t),
	}

	// Logs share stdout with the command output.
	istat.Cfg["logger"] = map[string]any{"level": "error", "format": "text"}

	return istat
}

func freeAddress(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "failed to find a free port")
	defer l.Close()

	return l.Addr().String()
}

func (istat *infraStat) PrepareFileStore(t *testing.T) {
	t.Helper()

	istat.Cfg["tokenStore"] = map[string]any{
		"type": "file",
		"file": map[string]any{"path": filepath.Join(istat.Procdir, "session.yaml")},
	}
}

func (istat *infraStat) PrepareValKey(t *testing.T, prefix string) {
	t.Helper()

	vkClient, vkAddr, vkTerminate := valkeytest.Start(t.Context())

	istat.ValKey = vkClient
	istat.closeFuncs = append(istat.closeFuncs, vkTerminate)

	embedded := func(value string) map[string]any {
		return map[string]any{"source": "embedded", "value": value}
	}
	istat.Cfg["tokenStore"] = map[string]any{
		"type": "valkey",
		"valkey": map[string]any{
			"host":     embedded(vkAddr),
			"user":     embedded(""),
			"password": embedded(""),
			"prefix":   prefix,
		},
	}
}

func (istat *infraStat) SetRefreshInterval(interval time.Duration) {
	istat.Cfg["refresher"] = map[string]any{"interval": interval.String()}
}

// PrepareConfig writes a config file for running the test into the ConfigFilePath.
func (istat *infraStat) PrepareConfig(t *testing.T) {
	t.Helper()

	dat, err := yaml.Marshal(istat.Cfg)
	require.NoError(t, err, "failed to encode config")

	err = os.WriteFile(istat.ConfigFilePath, dat, fs.ModePerm)
	require.NoError(t, err, "failed to write config file")
}

// Command prepares a binary to run inside the process directory.
func (istat *infraStat) Command(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, filepath.Join(istat.Bindir, name), args...)
	cmd.Dir = istat.Procdir
	cmd.Env = append(os.Environ(), "HOME="+istat.Procdir)

	return cmd
}

// Taskboard runs the CLI to completion and returns its standard output.
func (istat *infraStat) Taskboard(t *testing.T, args ...string) (string, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(t.Context(), 30*time.Second)
	defer cancel()

	var stdout, stderr bytes.Buffer

	cmd := istat.Command(ctx, "taskboard", args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		t.Logf("taskboard %v: %s", args, stderr.String())
	}

	return stdout.String(), err
}

func (istat *infraStat) Close(ctx context.Context) {
	for _, close := range istat.closeFuncs {
		close(ctx)
	}
}

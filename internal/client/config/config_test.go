package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() Config {
	var c Config
	c.LoadDefaults()
	return c
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()
	assert.Equal(t, "http://127.0.0.1:8080", c.ServerURL)
	assert.Equal(t, 30*time.Second, c.RequestTimeout)
	assert.Equal(t, 3*time.Second, c.OnlineCheckInterval)
	assert.Equal(t, 5*time.Minute, c.SyncInterval)
	assert.Equal(t, 200, c.BatchSize)
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileOverlaysOnlyPresentKeys(t *testing.T) {
	path := writeFile(t, `
server_url = "https://sync.example.com"
account_id = "42"
request_timeout = "5s"
batch_size = 50
lock_dir = ""
`)
	got, err := Load(path, nil)
	require.NoError(t, err)

	want := defaults()
	want.ServerURL = "https://sync.example.com"
	want.AccountID = "42"
	want.RequestTimeout = 5 * time.Second
	want.BatchSize = 50
	want.LockDir = ""
	want.expandPaths()
	assert.Empty(t, cmp.Diff(&want, got))
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	path := writeFile(t, `
server_url = "https://sync.example.com"
account_id = "42"
`)
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f := RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-a", "7", "--sync-interval", "1m", "--db", "/tmp/x.db", "--batch-size", "10"}))

	got, err := Load(path, f)
	require.NoError(t, err)
	assert.Equal(t, "https://sync.example.com", got.ServerURL, "unset flag keeps file value")
	assert.Equal(t, "7", got.AccountID)
	assert.Equal(t, time.Minute, got.SyncInterval)
	assert.Equal(t, "/tmp/x.db", got.DatabasePath)
	assert.Equal(t, 10, got.BatchSize)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"), nil)
	assert.Error(t, err, "an explicit missing file is an error")

	_, err = Load(writeFile(t, `server_url = `), nil)
	assert.ErrorContains(t, err, "reading config from")

	_, err = Load(writeFile(t, `sever_url = "typo"`), nil)
	assert.ErrorContains(t, err, `unknown key "sever_url"`)

	_, err = Load(writeFile(t, `sync_interval = "soon"`), nil)
	assert.Error(t, err)
}

func TestLoad_MissingDefaultFileIsFine(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	got, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080", got.ServerURL)
	assert.True(t, filepath.IsAbs(got.DatabasePath))
}

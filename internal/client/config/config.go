package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/lexisync/internal/filex"
)

const DefaultPath = "~/.lexisync/config.toml"

// Config holds runtime settings for the lexisync CLI.
type Config struct {
	ServerURL           string        `toml:"server_url"`
	DatabasePath        string        `toml:"database_path"`
	AccountID           string        `toml:"account_id"`
	RequestTimeout      time.Duration `toml:"request_timeout"`
	OnlineCheckInterval time.Duration `toml:"online_check_interval"`
	SyncInterval        time.Duration `toml:"sync_interval"`
	BatchSize           int           `toml:"batch_size"`
	LockDir             string        `toml:"lock_dir"`
	LogFile             string        `toml:"log_file"`
	LogLevel            string        `toml:"log_level"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DatabasePath = "~/.lexisync/lexisync.db"
	c.AccountID = ""
	c.RequestTimeout = 30 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
	c.SyncInterval = 5 * time.Minute
	c.BatchSize = 200
	c.LockDir = "~/.lexisync/locks"
	c.LogFile = "~/.lexisync/lexisync.log"
	c.LogLevel = "info"
}

// Load applies defaults, then the TOML file at path, then the flags that
// were set. An empty path reads DefaultPath if it exists.
func Load(path string, f *Flags) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if err := cfg.readFile(filex.ExpandHome(path)); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if f != nil {
		f.apply(cfg)
	}
	cfg.expandPaths()
	return cfg, nil
}

// readFile overlays the keys present in the file; absent keys keep their
// current values.
func (c *Config) readFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	md, err := toml.Decode(string(b), c)
	if err != nil {
		return fmt.Errorf("reading config from %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("reading config from %s: unknown key %q", path, undecoded[0].String())
	}
	return nil
}

func (c *Config) expandPaths() {
	c.DatabasePath = filex.ExpandHome(c.DatabasePath)
	c.LockDir = filex.ExpandHome(c.LockDir)
	c.LogFile = filex.ExpandHome(c.LogFile)
}

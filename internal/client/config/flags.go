package config

import (
	"time"

	"github.com/spf13/pflag"
)

// Flags are the command-line overrides. Only flags the user actually set
// override the file.
type Flags struct {
	fs *pflag.FlagSet

	ConfigPath          string
	ServerURL           string
	DatabasePath        string
	AccountID           string
	RequestTimeout      time.Duration
	OnlineCheckInterval time.Duration
	SyncInterval        time.Duration
	BatchSize           int
	LockDir             string
	LogFile             string
	LogLevel            string
}

// RegisterFlags defines the configuration flags on fs, usually a cobra
// command's persistent flags.
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	var d Config
	d.LoadDefaults()

	f := &Flags{fs: fs}
	fs.StringVarP(&f.ConfigPath, "config", "c", "", "config file (default "+DefaultPath+")")
	fs.StringVarP(&f.ServerURL, "server", "s", d.ServerURL, "sync server base URL")
	fs.StringVarP(&f.DatabasePath, "db", "d", d.DatabasePath, "local database file")
	fs.StringVarP(&f.AccountID, "account", "a", d.AccountID, "account id")
	fs.DurationVar(&f.RequestTimeout, "request-timeout", d.RequestTimeout, "sync request timeout")
	fs.DurationVarP(&f.OnlineCheckInterval, "online-check-interval", "i", d.OnlineCheckInterval, "online status check interval")
	fs.DurationVar(&f.SyncInterval, "sync-interval", d.SyncInterval, "periodic sync interval for watch")
	fs.IntVar(&f.BatchSize, "batch-size", d.BatchSize, "queued records sent per sync request")
	fs.StringVar(&f.LockDir, "lock-dir", d.LockDir, "directory for sync lock files, empty to disable")
	fs.StringVar(&f.LogFile, "log-file", d.LogFile, "log file, empty for stderr")
	fs.StringVar(&f.LogLevel, "log-level", d.LogLevel, "debug, info, warn or error")
	return f
}

func (f *Flags) apply(c *Config) {
	set := func(name string, apply func()) {
		if f.fs != nil && f.fs.Changed(name) {
			apply()
		}
	}
	set("server", func() { c.ServerURL = f.ServerURL })
	set("db", func() { c.DatabasePath = f.DatabasePath })
	set("account", func() { c.AccountID = f.AccountID })
	set("request-timeout", func() { c.RequestTimeout = f.RequestTimeout })
	set("online-check-interval", func() { c.OnlineCheckInterval = f.OnlineCheckInterval })
	set("sync-interval", func() { c.SyncInterval = f.SyncInterval })
	set("batch-size", func() { c.BatchSize = f.BatchSize })
	set("lock-dir", func() { c.LockDir = f.LockDir })
	set("log-file", func() { c.LogFile = f.LogFile })
	set("log-level", func() { c.LogLevel = f.LogLevel })
}

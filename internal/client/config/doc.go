// Package config loads runtime configuration for the lexisync CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional TOML file, ~/.lexisync/config.toml or the file named by --config.
//  3. Command-line flags, which override earlier values when given.
//
// # TOML schema
//
// Durations are strings such as "30s" or "5m":
//
//	server_url            = "http://127.0.0.1:8080"
//	database_path         = "~/.lexisync/lexisync.db"
//	account_id            = "42"
//	request_timeout       = "30s"
//	online_check_interval = "3s"
//	sync_interval         = "5m"
//	batch_size            = 200
//	lock_dir              = "~/.lexisync/locks"
//	log_file              = "~/.lexisync/lexisync.log"
//	log_level             = "info"
//
// An empty lock_dir disables the cross-process sync lock; an empty log_file
// logs to stderr.
package config

// Package config loads runtime configuration for attendkeeper.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-s string   local store backend: sqlite | redis
//	-d string   SQLite database path
//	-r string   Redis address (redis backend)
//	-b string   sync backend: none | firestore | postgres
//	-i int      online status check interval (seconds)
//	-e string   export directory
//	-m string   metrics listen address, empty disables
//	-l string   log level: debug | info | warn | error
//
// # JSON schema
//
// Intervals use timex.Duration, so "5s" and integer nanoseconds both work:
//
//	{
//	  "store_backend": "sqlite",
//	  "sqlite_path": "attendkeeper.db",
//	  "sync_backend": "firestore",
//	  "firestore_project": "classroom-attendance",
//	  "firestore_credentials": "/etc/attendkeeper/sa.json",
//	  "sync_min_interval": "5s",
//	  "online_check_interval": "10s",
//	  "scan_cooldown": "1s",
//	  "log_file": "attendkeeper.log"
//	}
package config

package config

import "time"

const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"

	SyncNone      = "none"
	SyncFirestore = "firestore"
	SyncPostgres  = "postgres"
)

// Config holds runtime settings for the attendkeeper front-end.
type Config struct {
	StoreBackend string
	SQLitePath   string
	RedisAddr    string
	RedisPrefix  string

	SyncBackend          string
	FirestoreProject     string
	FirestoreCredentials string
	RemoteDSN            string

	SyncMinInterval     time.Duration
	OnlineCheckInterval time.Duration
	ScanCooldown        time.Duration

	ExportDir      string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string

	MetricsAddr string

	LogLevel  string
	LogFormat string
	LogFile   string
}

// LoadDefaults populates c with values suitable for a single offline device.
func (c *Config) LoadDefaults() {
	c.StoreBackend = StoreSQLite
	c.SQLitePath = "attendkeeper.db"
	c.RedisAddr = "127.0.0.1:6379"
	c.RedisPrefix = "attendkeeper:"
	c.SyncBackend = SyncNone
	c.SyncMinInterval = 5 * time.Second
	c.OnlineCheckInterval = 10 * time.Second
	c.ScanCooldown = time.Second
	c.ExportDir = "exports"
	c.S3Region = "us-east-1"
	c.LogLevel = "warn"
	c.LogFormat = "json"
}

// LoadConfig applies defaults, then the JSON file, then flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

// SyncEnabled reports whether a remote document store is configured.
func (c *Config) SyncEnabled() bool {
	return c.SyncBackend != "" && c.SyncBackend != SyncNone
}

// S3Enabled reports whether exports should also go to a bucket.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

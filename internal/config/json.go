package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/attendkeeper/internal/flagx"
	"github.com/dmitrijs2005/attendkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Empty fields leave the
// current value in place.
type JsonConfig struct {
	StoreBackend string `json:"store_backend"`
	SQLitePath   string `json:"sqlite_path"`
	RedisAddr    string `json:"redis_addr"`
	RedisPrefix  string `json:"redis_prefix"`

	SyncBackend          string `json:"sync_backend"`
	FirestoreProject     string `json:"firestore_project"`
	FirestoreCredentials string `json:"firestore_credentials"`
	RemoteDSN            string `json:"remote_dsn"`

	SyncMinInterval     timex.Duration `json:"sync_min_interval"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	ScanCooldown        timex.Duration `json:"scan_cooldown"`

	ExportDir      string `json:"export_dir"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
	S3AccessKey    string `json:"s3_access_key"`
	S3SecretKey    string `json:"s3_secret_key"`

	MetricsAddr string `json:"metrics_addr"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
	LogFile   string `json:"log_file"`
}

// parseJson overlays cfg with the file named by -c/-config. Read or decode
// errors panic.
func parseJson(cfg *Config) {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc JsonConfig) apply(cfg *Config) {
	setString(&cfg.StoreBackend, jc.StoreBackend)
	setString(&cfg.SQLitePath, jc.SQLitePath)
	setString(&cfg.RedisAddr, jc.RedisAddr)
	setString(&cfg.RedisPrefix, jc.RedisPrefix)
	setString(&cfg.SyncBackend, jc.SyncBackend)
	setString(&cfg.FirestoreProject, jc.FirestoreProject)
	setString(&cfg.FirestoreCredentials, jc.FirestoreCredentials)
	setString(&cfg.RemoteDSN, jc.RemoteDSN)
	setString(&cfg.ExportDir, jc.ExportDir)
	setString(&cfg.S3Bucket, jc.S3Bucket)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3BaseEndpoint, jc.S3BaseEndpoint)
	setString(&cfg.S3AccessKey, jc.S3AccessKey)
	setString(&cfg.S3SecretKey, jc.S3SecretKey)
	setString(&cfg.MetricsAddr, jc.MetricsAddr)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)
	setString(&cfg.LogFile, jc.LogFile)

	if jc.SyncMinInterval.Duration > 0 {
		cfg.SyncMinInterval = jc.SyncMinInterval.Duration
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.ScanCooldown.Duration > 0 {
		cfg.ScanCooldown = jc.ScanCooldown.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	BackupAPIURL   string
	BackupAPIToken string
	// Client certificate, CA bundle and server name override for reaching
	// the backup API over TLS. All optional.
	BackupAPITLSCert       string
	BackupAPITLSKey        string
	BackupAPICACert        string
	BackupAPITLSServerName string

	HTTPListenAddr    string
	MetricsListenAddr string
	LogLevel          string
	ServiceName       string
	CORSOrigins       []string
	SessionFile       string

	// LogFile additionally writes logs to a rotated file when set.
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int

	QueryRetry  int
	QueryGCTime time.Duration

	ExportS3Bucket    string
	ExportS3Prefix    string
	ExportS3Region    string
	ExportS3Endpoint  string
	ExportS3AccessKey string
	ExportS3SecretKey string
}

func Load() (*Config, error) {
	retry, err := strconv.Atoi(getEnv("QUERY_RETRY", "3"))
	if err != nil {
		return nil, fmt.Errorf("parse QUERY_RETRY: %w", err)
	}
	gcTime, err := time.ParseDuration(getEnv("QUERY_GC_TIME", "5m"))
	if err != nil {
		return nil, fmt.Errorf("parse QUERY_GC_TIME: %w", err)
	}
	logMaxSize, err := strconv.Atoi(getEnv("LOG_MAX_SIZE_MB", "100"))
	if err != nil {
		return nil, fmt.Errorf("parse LOG_MAX_SIZE_MB: %w", err)
	}
	logMaxBackups, err := strconv.Atoi(getEnv("LOG_MAX_BACKUPS", "5"))
	if err != nil {
		return nil, fmt.Errorf("parse LOG_MAX_BACKUPS: %w", err)
	}

	cfg := &Config{
		BackupAPIURL:           getEnv("BACKUP_API_URL", ""),
		BackupAPIToken:         getEnv("BACKUP_API_TOKEN", ""),
		BackupAPITLSCert:       getEnv("BACKUP_API_TLS_CERT", ""),
		BackupAPITLSKey:        getEnv("BACKUP_API_TLS_KEY", ""),
		BackupAPICACert:        getEnv("BACKUP_API_CA_CERT", ""),
		BackupAPITLSServerName: getEnv("BACKUP_API_TLS_SERVER_NAME", ""),
		HTTPListenAddr:         getEnv("HTTP_LISTEN_ADDR", ":8095"),
		MetricsListenAddr:      getEnv("METRICS_LISTEN_ADDR", ""),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		ServiceName:            getEnv("SERVICE_NAME", "backup-dashboard"),
		LogFile:                getEnv("LOG_FILE", ""),
		LogMaxSizeMB:           logMaxSize,
		LogMaxBackups:          logMaxBackups,
		CORSOrigins:            splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		SessionFile:            getEnv("SESSION_FILE", ""),
		QueryRetry:             retry,
		QueryGCTime:            gcTime,
		ExportS3Bucket:         getEnv("EXPORT_S3_BUCKET", ""),
		ExportS3Prefix:         getEnv("EXPORT_S3_PREFIX", "backup-history"),
		ExportS3Region:         getEnv("EXPORT_S3_REGION", "us-east-1"),
		ExportS3Endpoint:       getEnv("EXPORT_S3_ENDPOINT", ""),
		ExportS3AccessKey:      getEnv("EXPORT_S3_ACCESS_KEY", ""),
		ExportS3SecretKey:      getEnv("EXPORT_S3_SECRET_KEY", ""),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var missing []string
	if c.BackupAPIURL == "" {
		missing = append(missing, "BACKUP_API_URL")
	}
	if c.HTTPListenAddr == "" {
		missing = append(missing, "HTTP_LISTEN_ADDR")
	}
	if c.ExportS3Bucket != "" && (c.ExportS3AccessKey == "" || c.ExportS3SecretKey == "") {
		missing = append(missing, "EXPORT_S3_ACCESS_KEY", "EXPORT_S3_SECRET_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	u, err := url.Parse(c.BackupAPIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("BACKUP_API_URL must be an absolute http(s) URL, got %q", c.BackupAPIURL)
	}
	if c.QueryRetry < 0 {
		return fmt.Errorf("QUERY_RETRY must not be negative")
	}
	if (c.BackupAPITLSCert == "") != (c.BackupAPITLSKey == "") {
		return fmt.Errorf("BACKUP_API_TLS_CERT and BACKUP_API_TLS_KEY must be set together")
	}
	return nil
}

// S3ExportEnabled reports whether exports can be uploaded to S3.
func (c *Config) S3ExportEnabled() bool {
	return c.ExportS3Bucket != ""
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

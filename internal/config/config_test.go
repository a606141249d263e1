package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BACKUP_API_URL", "BACKUP_API_TOKEN", "HTTP_LISTEN_ADDR", "METRICS_LISTEN_ADDR",
		"LOG_LEVEL", "LOG_FILE", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS", "SERVICE_NAME", "CORS_ORIGINS", "SESSION_FILE", "QUERY_RETRY", "QUERY_GC_TIME",
		"EXPORT_S3_BUCKET", "EXPORT_S3_PREFIX", "EXPORT_S3_REGION", "EXPORT_S3_ENDPOINT",
		"EXPORT_S3_ACCESS_KEY", "EXPORT_S3_SECRET_KEY",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "", cfg.BackupAPIURL)
	assert.Equal(t, ":8095", cfg.HTTPListenAddr)
	assert.Equal(t, "", cfg.MetricsListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "backup-dashboard", cfg.ServiceName)
	assert.Equal(t, "", cfg.LogFile)
	assert.Equal(t, 100, cfg.LogMaxSizeMB)
	assert.Equal(t, 5, cfg.LogMaxBackups)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, 3, cfg.QueryRetry)
	assert.Equal(t, 5*time.Minute, cfg.QueryGCTime)
	assert.Equal(t, "backup-history", cfg.ExportS3Prefix)
	assert.Equal(t, "us-east-1", cfg.ExportS3Region)
	assert.False(t, cfg.S3ExportEnabled())
}

func TestLoad_AllEnvVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("BACKUP_API_URL", "https://backups.example.com/api")
	t.Setenv("BACKUP_API_TOKEN", "tok")
	t.Setenv("HTTP_LISTEN_ADDR", ":7071")
	t.Setenv("METRICS_LISTEN_ADDR", ":9100")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SERVICE_NAME", "dash")
	t.Setenv("LOG_FILE", "/var/log/backupdash/dashboard.log")
	t.Setenv("LOG_MAX_BACKUPS", "2")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("SESSION_FILE", "/tmp/session.yaml")
	t.Setenv("QUERY_RETRY", "0")
	t.Setenv("QUERY_GC_TIME", "90s")
	t.Setenv("EXPORT_S3_BUCKET", "exports")
	t.Setenv("EXPORT_S3_ENDPOINT", "http://minio:9000")
	t.Setenv("EXPORT_S3_ACCESS_KEY", "ak")
	t.Setenv("EXPORT_S3_SECRET_KEY", "sk")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://backups.example.com/api", cfg.BackupAPIURL)
	assert.Equal(t, "tok", cfg.BackupAPIToken)
	assert.Equal(t, ":7071", cfg.HTTPListenAddr)
	assert.Equal(t, ":9100", cfg.MetricsListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "dash", cfg.ServiceName)
	assert.Equal(t, "/var/log/backupdash/dashboard.log", cfg.LogFile)
	assert.Equal(t, 2, cfg.LogMaxBackups)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, "/tmp/session.yaml", cfg.SessionFile)
	assert.Equal(t, 0, cfg.QueryRetry)
	assert.Equal(t, 90*time.Second, cfg.QueryGCTime)
	assert.True(t, cfg.S3ExportEnabled())
	assert.Equal(t, "http://minio:9000", cfg.ExportS3Endpoint)
	require.NoError(t, cfg.Validate())
}

func TestLoad_InvalidNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("QUERY_RETRY", "many")
	_, err := Load()
	assert.ErrorContains(t, err, "QUERY_RETRY")

	clearEnv(t)
	t.Setenv("QUERY_GC_TIME", "5 minutes")
	_, err = Load()
	assert.ErrorContains(t, err, "QUERY_GC_TIME")

	clearEnv(t)
	t.Setenv("LOG_MAX_SIZE_MB", "big")
	_, err = Load()
	assert.ErrorContains(t, err, "LOG_MAX_SIZE_MB")
}

func TestValidate_MissingFields(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BACKUP_API_URL")
	assert.Contains(t, err.Error(), "HTTP_LISTEN_ADDR")
}

func TestValidate_S3CredentialsRequired(t *testing.T) {
	cfg := &Config{BackupAPIURL: "http://localhost:8080", HTTPListenAddr: ":8095", ExportS3Bucket: "exports"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EXPORT_S3_ACCESS_KEY")
}

func TestValidate_BadURL(t *testing.T) {
	for _, u := range []string{"localhost:8080", "ftp://backups", "/api"} {
		cfg := &Config{BackupAPIURL: u, HTTPListenAddr: ":8095"}
		assert.Error(t, cfg.Validate(), u)
	}
}

func TestValidate_TLSPair(t *testing.T) {
	cfg := &Config{BackupAPIURL: "https://backups", HTTPListenAddr: ":8095", BackupAPITLSCert: "cert.pem"}
	assert.ErrorContains(t, cfg.Validate(), "BACKUP_API_TLS_CERT and BACKUP_API_TLS_KEY")
}

func TestValidate_OK(t *testing.T) {
	cfg := &Config{BackupAPIURL: "http://localhost:8080", HTTPListenAddr: ":8095", QueryRetry: 3}
	assert.NoError(t, cfg.Validate())
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	body := `
history:
  backend: postgres
  file_path: /var/lib/parcelsync/history.json
  database:
    host: localhost
    port: 5432
    username: parcelsync
    password: secret
    name: parcelsync
    ssl_mode: disable
redis:
  host: localhost
  port: 6379
kafka:
  host: localhost
  port: 9092
  parcel_updated_topic_name: parcel.updated
parcelsync:
  http_addr: :8080
  credentials_file: /var/lib/parcelsync/.env
  refresh_interval_seconds: 1800
  fetch_timeout_seconds: 15
  fetch_concurrency: 4
  cache_directory_ttl_seconds: 600
  notify_mode: desktop
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, "postgres", cfg.History.Backend)
	require.Equal(t, "/var/lib/parcelsync/history.json", cfg.History.FilePath)
	require.Equal(t, 5432, cfg.History.Database.Port)
	require.Equal(t, "disable", cfg.History.Database.SSLMode)
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, "parcel.updated", cfg.Kafka.ParcelUpdatedTopicName)
	require.Equal(t, ":8080", cfg.ParcelSync.HTTPAddr)
	require.Equal(t, 1800, cfg.ParcelSync.RefreshIntervalSeconds)
	require.Equal(t, 4, cfg.ParcelSync.FetchConcurrency)
	require.Equal(t, 600, cfg.ParcelSync.CacheDirectoryTTLSeconds)
	require.Equal(t, "desktop", cfg.ParcelSync.NotifyMode)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("history: [not: a map"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

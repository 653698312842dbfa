package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	History    HistoryConfig    `yaml:"history"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	ParcelSync ParcelSyncConfig `yaml:"parcelsync"`
}

type HistoryConfig struct {
	// Backend: "file" (default) или "postgres".
	Backend  string         `yaml:"backend"`
	FilePath string         `yaml:"file_path"`
	Database DatabaseConfig `yaml:"database"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type KafkaConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	ParcelUpdatedTopicName string `yaml:"parcel_updated_topic_name"`
	NotificationsTopicName string `yaml:"notifications_topic_name"`
}

type ParcelSyncConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	CredentialsFile string `yaml:"credentials_file"`

	// CarrierMode: "trackql" (default) или "fake" для локального демо.
	CarrierMode string `yaml:"carrier_mode"`

	RefreshIntervalSeconds int `yaml:"refresh_interval_seconds"`
	FetchTimeoutSeconds    int `yaml:"fetch_timeout_seconds"`

	// FetchConcurrency caps batch fan-out. 0 means one worker per parcel,
	// which is what the original app did.
	FetchConcurrency int `yaml:"fetch_concurrency"`

	// CacheDirectoryTTLSeconds > 0 caches the carrier directory in redis.
	// 0 keeps the per-fetch directory lookup of the reference behaviour.
	CacheDirectoryTTLSeconds int `yaml:"cache_directory_ttl_seconds"`

	// NotifyMode: "desktop" (notify-send), "kafka" или "log".
	NotifyMode string `yaml:"notify_mode"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}

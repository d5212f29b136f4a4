package config

import "time"

const (
	NetworkMemory = "memory"
	NetworkRedis  = "redis"

	HistorySQLite   = "sqlite"
	HistoryPostgres = "postgres"
)

// Config holds client configuration values.
type Config struct {
	ClientID   string            `mapstructure:"client_id" yaml:"client_id"`
	Username   string            `mapstructure:"username" yaml:"username"`
	ChatAddr   string            `mapstructure:"chat_addr" yaml:"chat_addr"`
	Properties map[string]string `mapstructure:"properties" yaml:"properties"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// Network selects the presence and chat transport: "memory" or "redis".
	Network     string `mapstructure:"network" yaml:"network"`
	RedisAddr   string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPrefix string `mapstructure:"redis_prefix" yaml:"redis_prefix"`

	EnableHistory bool `mapstructure:"enable_history" yaml:"enable_history"`
	// HistoryDriver is "sqlite" (HistoryPath) or "postgres" (HistoryDSN).
	HistoryDriver string `mapstructure:"history_driver" yaml:"history_driver"`
	HistoryPath   string `mapstructure:"history_path" yaml:"history_path"`
	HistoryDSN    string `mapstructure:"history_dsn" yaml:"history_dsn"`

	HTTPAddr          string        `mapstructure:"http_addr" yaml:"http_addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// APISecret enables bearer token checks on the HTTP API when set.
	APISecret   string        `mapstructure:"api_secret" yaml:"api_secret"`
	APITokenTTL time.Duration `mapstructure:"api_token_ttl" yaml:"api_token_ttl"`

	// SimulatedPeers are extra participants logged in alongside the local user.
	SimulatedPeers []PeerConfig `mapstructure:"simulated_peers" yaml:"simulated_peers"`
}

// PeerConfig describes one simulated participant.
type PeerConfig struct {
	Name       string            `mapstructure:"name" yaml:"name"`
	Status     string            `mapstructure:"status" yaml:"status"`
	Properties map[string]string `mapstructure:"properties" yaml:"properties"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Username:          "me",
		ChatAddr:          "127.0.0.1:9999",
		LogLevel:          "info",
		LogFormat:         "console",
		Network:           NetworkMemory,
		RedisAddr:         "127.0.0.1:6379",
		RedisPrefix:       "wirechat",
		HistoryDriver:     HistorySQLite,
		HistoryPath:       "history.db",
		HTTPAddr:          "127.0.0.1:8090",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		APITokenTTL:       24 * time.Hour,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.ClientID != "" {
		c.ClientID = other.ClientID
	}
	if other.Username != "" {
		c.Username = other.Username
	}
	if other.ChatAddr != "" {
		c.ChatAddr = other.ChatAddr
	}
	if len(other.Properties) > 0 {
		c.Properties = other.Properties
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.EnableHistory {
		c.EnableHistory = true
	}
	if other.Network != "" {
		c.Network = other.Network
	}
	if other.RedisAddr != "" {
		c.RedisAddr = other.RedisAddr
	}
	if other.RedisPrefix != "" {
		c.RedisPrefix = other.RedisPrefix
	}
	if other.HistoryDriver != "" {
		c.HistoryDriver = other.HistoryDriver
	}
	if other.HistoryDSN != "" {
		c.HistoryDSN = other.HistoryDSN
	}
	if other.HistoryPath != "" {
		c.HistoryPath = other.HistoryPath
	}
	if other.HTTPAddr != "" {
		c.HTTPAddr = other.HTTPAddr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.APISecret != "" {
		c.APISecret = other.APISecret
	}
	if other.APITokenTTL != 0 {
		c.APITokenTTL = other.APITokenTTL
	}
	if len(other.SimulatedPeers) > 0 {
		c.SimulatedPeers = other.SimulatedPeers
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/wirechat-client/internal/utils"
)

const (
	envPrefix            = "WIRECHAT_CLIENT"
	envConfigDefaultPath = "WIRECHAT_CLIENT_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "client.yaml"
)

var (
	ErrInvalidClientID = errors.New("client_id must be a UUID")
	ErrMissingUsername = errors.New("username is required")
	ErrInvalidPeer     = errors.New("simulated peer needs a name")
	ErrUnknownNetwork  = errors.New("unknown network")
	ErrUnknownHistory  = errors.New("unknown history driver")
	ErrMissingDSN      = errors.New("history_dsn is required for postgres")
)

// Load builds configuration from defaults, optional config file, env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars < caller overrides.
// A missing client id is generated and written back so the identity is stable across runs.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("client_id", cfg.ClientID)
	v.SetDefault("username", cfg.Username)
	v.SetDefault("chat_addr", cfg.ChatAddr)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("network", cfg.Network)
	v.SetDefault("redis_addr", cfg.RedisAddr)
	v.SetDefault("redis_prefix", cfg.RedisPrefix)
	v.SetDefault("enable_history", cfg.EnableHistory)
	v.SetDefault("history_driver", cfg.HistoryDriver)
	v.SetDefault("history_path", cfg.HistoryPath)
	v.SetDefault("history_dsn", cfg.HistoryDSN)
	v.SetDefault("http_addr", cfg.HTTPAddr)
	v.SetDefault("read_header_timeout", cfg.ReadHeaderTimeout)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	v.SetDefault("api_secret", cfg.APISecret)
	v.SetDefault("api_token_ttl", cfg.APITokenTTL)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			cfg.ClientID = utils.NewID()
			if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil && logger != nil {
				logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
			} else if logger != nil {
				logger.Info().Str("path", configPath).Msg("created default config")
			}
			// try reading again in case it was just written
			if readErr := v.ReadInConfig(); readErr != nil && logger != nil {
				logger.Warn().Err(readErr).Str("path", configPath).Msg("failed to read config after writing default")
			}
		} else {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
	}

	generatedID := cfg.ClientID
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.ClientID == "" {
		if generatedID == "" {
			generatedID = utils.NewID()
		}
		cfg.ClientID = generatedID
		if logger != nil {
			logger.Info().Str("client_id", cfg.ClientID).Msg("generated client id")
		}
	}

	return cfg, configPath, nil
}

// Validate checks the values the client cannot start without.
func (c Config) Validate() error {
	if !utils.IsID(c.ClientID) {
		return fmt.Errorf("%w: %q", ErrInvalidClientID, c.ClientID)
	}
	if strings.TrimSpace(c.Username) == "" {
		return ErrMissingUsername
	}
	switch c.Network {
	case NetworkMemory, NetworkRedis:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownNetwork, c.Network)
	}
	if c.EnableHistory {
		switch c.HistoryDriver {
		case HistorySQLite:
		case HistoryPostgres:
			if c.HistoryDSN == "" {
				return ErrMissingDSN
			}
		default:
			return fmt.Errorf("%w: %q", ErrUnknownHistory, c.HistoryDriver)
		}
	}
	for i, p := range c.SimulatedPeers {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w (peer #%d)", ErrInvalidPeer, i)
		}
	}
	return nil
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

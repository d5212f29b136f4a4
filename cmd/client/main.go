package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-client/internal/app"
	"github.com/vovakirdan/wirechat-client/internal/auth"
	"github.com/vovakirdan/wirechat-client/internal/config"
	"github.com/vovakirdan/wirechat-client/internal/log"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		overrides  config.Config
	)

	cmd := &cobra.Command{
		Use:           "wirechat-client",
		Short:         "Presence-aware chat client with a local inspection API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bootLogger := log.New("info", "console")

			cfg, resolvedPath, err := config.Load(bootLogger, configPath)
			if err != nil {
				bootLogger.Error().Err(err).Msg("failed to load config")
				return err
			}
			cfg.UpdateFrom(overrides)

			logger := log.New(cfg.LogLevel, cfg.LogFormat)
			logger.Info().
				Str("config_path", resolvedPath).
				Str("client_id", cfg.ClientID).
				Str("username", cfg.Username).
				Msg("configuration loaded")

			application, err := app.New(cmd.Context(), &cfg, logger)
			if err != nil {
				logger.Error().Err(err).Msg("failed to initialize app")
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info().Str("http_addr", cfg.HTTPAddr).Msg("starting wirechat client")
			if err := application.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("client exited with error")
				return fmt.Errorf("run: %w", err)
			}
			logger.Info().Msg("client stopped")
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ./client.yaml)")

	flags := cmd.Flags()
	flags.StringVar(&overrides.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&overrides.Username, "username", "", "display name announced on login")
	flags.StringVar(&overrides.HTTPAddr, "http-addr", "", "HTTP listen address")
	flags.BoolVar(&overrides.EnableHistory, "history", false, "record status history to sqlite")

	cmd.AddCommand(newTokenCommand(&configPath))
	return cmd
}

func newTokenCommand(configPath *string) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the inspection API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := log.NewWithWriter(cmd.ErrOrStderr(), "warn", "console")

			cfg, _, err := config.Load(logger, *configPath)
			if err != nil {
				return err
			}
			if cfg.APISecret == "" {
				return errors.New("api_secret is not configured")
			}
			if ttl == 0 {
				ttl = cfg.APITokenTTL
			}

			token, err := auth.GenerateToken(auth.NewJWTConfig(cfg.APISecret, cfg.ClientID, ttl), cfg.ClientID, subject)
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "cli", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default api_token_ttl)")
	return cmd
}

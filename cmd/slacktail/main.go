// slacktail streams Slack RTM events to stdout as JSON lines.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/slacksocket/slacksocket"
	"github.com/slacksocket/slacksocket/internal/config"
	"github.com/slacksocket/slacksocket/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath  string
		token       string
		logLevel    string
		noTranslate bool
		eventTypes  []string
	)

	cmd := &cobra.Command{
		Use:          "slacktail",
		Short:        "Stream Slack RTM events to stdout as JSON lines",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := config.Load(log.New(logLevel), configPath)
			if err != nil {
				return fmt.Errorf("load config %s: %w", path, err)
			}

			// Flags win over file and env.
			if token != "" {
				cfg.Token = token
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if noTranslate {
				cfg.Translate = false
			}
			if len(eventTypes) > 0 {
				cfg.EventTypes = eventTypes
			}

			if cfg.Token == "" {
				return errors.New("no token: set --token, SLACKSOCKET_TOKEN, or the config file")
			}

			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	cmd.Flags().StringVar(&token, "token", "", "Slack API token")
	cmd.Flags().StringVar(&logLevel, "log-level", config.Default().LogLevel, "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&noTranslate, "no-translate", false, "deliver raw identifiers instead of display names")
	cmd.Flags().StringSliceVar(&eventTypes, "type", nil, "event type(s) to stream (default all)")

	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.New(cfg.LogLevel)

	client, err := slacksocket.New(ctx, cfg.Token,
		slacksocket.WithLogger(logger),
		slacksocket.WithTranslation(cfg.Translate),
		slacksocket.WithAPIBaseURL(cfg.APIBaseURL),
		slacksocket.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		slacksocket.WithEventTypes(cfg.EventTypes...),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	logger.Info().Str("team", client.Team()).Str("user", client.Self()).Msg("connected")

	for ev := range client.Events(ctx) {
		fmt.Println(ev.JSON())
	}

	if err := client.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("connection lost: %w", err)
	}
	logger.Info().Msg("stream ended")
	return nil
}

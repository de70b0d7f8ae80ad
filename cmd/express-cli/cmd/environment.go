package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/express-cli/internal/config"
	domain "github.com/oshokin/express-cli/internal/domain/express"
	"github.com/oshokin/express-cli/internal/layout"
	"github.com/oshokin/express-cli/internal/logger"
	"github.com/oshokin/express-cli/internal/telemetry"
)

// environment holds what every subcommand needs.
type environment struct {
	layout  *layout.Layout
	config  *config.Config
	tracker telemetry.Tracker
	client  *telemetry.Client
}

// newEnvironment builds the layout, loads settings and opens the telemetry session.
// Telemetry problems are logged and never fail the command.
func newEnvironment(ctx context.Context, v *viper.Viper) (*environment, error) {
	l, err := newLayout(v.GetString(flagHome))
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig(v.GetString(flagConfig), l)
	if err != nil {
		return nil, err
	}

	env := &environment{
		layout:  l,
		config:  cfg,
		tracker: telemetry.Nop{},
	}

	if cfg.TelemetryWriteKey == "" {
		logger.Debug(ctx, "Telemetry is disabled")

		return env, nil
	}

	client, err := telemetry.NewClient(ctx, telemetryConfig(cfg))
	if err != nil {
		logger.WarnKV(ctx, "Telemetry is unavailable", "error", err)

		return env, nil
	}

	session, err := client.NewSession()
	if err != nil {
		logger.WarnKV(ctx, "Telemetry is unavailable", "error", err)

		if closeErr := client.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Unable to close telemetry client", "error", closeErr)
		}

		return env, nil
	}

	if err = session.SendIdentify(); err != nil {
		logger.WarnKV(ctx, "Unable to identify telemetry session", "error", err)
	}

	env.client = client
	env.tracker = session

	return env, nil
}

// close flushes pending telemetry events.
func (e *environment) close(ctx context.Context) {
	if e.client == nil {
		return
	}

	if err := e.client.Close(); err != nil {
		logger.WarnKV(ctx, "Unable to flush telemetry events", "error", err)
	}
}

// telemetryConfig derives the sink settings; delivered batches are logged at debug level.
func telemetryConfig(cfg *config.Config) telemetry.Config {
	return telemetry.Config{
		WriteKey: cfg.TelemetryWriteKey,
		Endpoint: cfg.TelemetryEndpoint,
		Verbose:  logger.Level() == zapcore.DebugLevel,
	}
}

func newLayout(home string) (*layout.Layout, error) {
	if home == "" {
		return layout.FromUserHome()
	}

	return layout.New(home)
}

// loadConfig reads an explicitly named settings file or the optional default one.
func loadConfig(path string, l *layout.Layout) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}

		return cfg, nil
	}

	cfg, err := config.LoadOrDefault(l.SettingsFile())
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", l.SettingsFile(), err)
	}

	return cfg, nil
}

// printOutcome writes the result message, green when the tree changed.
func printOutcome(w io.Writer, outcome domain.Outcome) {
	paint := color.New(color.FgYellow)
	if outcome.Changed() {
		paint = color.New(color.FgGreen, color.Bold)
	}

	_, _ = paint.Fprintln(w, outcome.String())
}

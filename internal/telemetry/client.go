package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/analytics-go/v3"

	"github.com/oshokin/express-cli/internal/logger"
)

var errWriteKeyRequired = errors.New("telemetry write key must be provided")

// ErrorHandler is called for every message the sink rejected.
type ErrorHandler func(err error, message analytics.Message)

// Config configures the telemetry client.
type Config struct {
	// WriteKey authorizes submissions.
	WriteKey string
	// Endpoint overrides the Segment API endpoint.
	Endpoint string
	// OnError handles rejected messages. Defaults to logging a warning.
	OnError ErrorHandler
	// Verbose logs every delivered batch.
	Verbose bool
}

// Client owns the connection to the analytics sink.
type Client struct {
	api analytics.Client
}

// NewClient creates a client for cfg.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.WriteKey == "" {
		return nil, errWriteKeyRequired
	}

	onError := cfg.OnError
	if onError == nil {
		onError = func(err error, _ analytics.Message) {
			logger.WarnKV(ctx, "Telemetry event was rejected", "error", err)
		}
	}

	api, err := analytics.NewWithConfig(cfg.WriteKey, analytics.Config{
		Endpoint: cfg.Endpoint,
		Verbose:  cfg.Verbose,
		Logger:   sinkLogger{ctx: ctx},
		Callback: callback{onError: onError},
	})
	if err != nil {
		return nil, fmt.Errorf("create telemetry client: %w", err)
	}

	return &Client{api: api}, nil
}

// NewSession opens a session on this client.
func (c *Client) NewSession() (*Session, error) {
	return newSession(c.api)
}

// Close flushes queued events and stops the client.
func (c *Client) Close() error {
	return c.api.Close()
}

// callback routes delivery results to the configured handler.
type callback struct {
	onError ErrorHandler
}

func (callback) Success(analytics.Message) {}

func (c callback) Failure(message analytics.Message, err error) {
	c.onError(err, message)
}

// sinkLogger forwards the analytics client logs to the scoped zap logger.
type sinkLogger struct {
	ctx context.Context //nolint:containedctx // The sink logger has no other way to reach the scoped logger.
}

func (l sinkLogger) Logf(format string, args ...any) {
	logger.Debugf(l.ctx, "telemetry: "+format, args...)
}

func (l sinkLogger) Errorf(format string, args ...any) {
	logger.Warnf(l.ctx, "telemetry: "+format, args...)
}

package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/express-cli/internal/config"
	"github.com/oshokin/express-cli/internal/layout"
	"github.com/oshokin/express-cli/internal/logger"
	"github.com/oshokin/express-cli/internal/testutil/releasetest"
)

// execute runs the root command with args and returns its standard output.
// Flag values leak between runs of the shared command, so they are reset first.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		require.NoError(t, f.Value.Set(f.DefValue))
		f.Changed = false
	})

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()

	return out.String(), err
}

// writeConfig saves settings pointing at the release index of server.
func writeConfig(t *testing.T, server *releasetest.Server) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "express-cli.yaml")
	require.NoError(t, config.Save(path, &config.Config{ReleaseIndexURL: server.IndexURL()}))

	return path
}

func TestInitAndUpgrade(t *testing.T) {
	home := t.TempDir()
	server := releasetest.NewServer(t, "v1.0.0", releasetest.Release(t, "platform9-express-1a1a1a", "v1"))
	cfgPath := writeConfig(t, server)

	flags := []string{"--home", home, "--config", cfgPath, "--log-level", "error"}

	out, err := execute(t, append([]string{"init"}, flags...)...)
	require.NoError(t, err)
	require.Contains(t, out, "Platform9 Express initialization complete")

	out, err = execute(t, append([]string{"init"}, flags...)...)
	require.NoError(t, err)
	require.Contains(t, out, "Platform9 Express already initialized")

	out, err = execute(t, append([]string{"upgrade"}, flags...)...)
	require.NoError(t, err)
	require.Contains(t, out, "Platform9 Express is already the latest version")

	server.SetRelease("v2.0.0", releasetest.Release(t, "platform9-express-2b2b2b", "v2"))

	out, err = execute(t, append([]string{"upgrade"}, flags...)...)
	require.NoError(t, err)
	require.Contains(t, out, "Platform9 Express upgrade complete")

	l, err := layout.New(home)
	require.NoError(t, err)

	contents, err := os.ReadFile(l.VersionFile())
	require.NoError(t, err)
	require.Equal(t, "v2.0.0\n", string(contents))
}

// TestInit_Environment reads the flags from EXPRESS_CLI_* variables.
func TestInit_Environment(t *testing.T) {
	home := t.TempDir()
	server := releasetest.NewServer(t, "v1.0.0", releasetest.Release(t, "platform9-express-1a1a1a", "v1"))

	t.Setenv("EXPRESS_CLI_HOME", home)
	t.Setenv("EXPRESS_CLI_CONFIG", writeConfig(t, server))
	t.Setenv("EXPRESS_CLI_LOG_LEVEL", "error")

	out, err := execute(t, "init")
	require.NoError(t, err)
	require.Contains(t, out, "initialization complete")

	l, err := layout.New(home)
	require.NoError(t, err)
	require.DirExists(t, l.PayloadDir())
}

// TestInit_DefaultConfig picks up the settings file inside the install root.
func TestInit_DefaultConfig(t *testing.T) {
	home := t.TempDir()
	server := releasetest.NewServer(t, "v1.0.0", releasetest.Release(t, "platform9-express-1a1a1a", "v1"))

	l, err := layout.New(home)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(l.RootDir, layout.DirMode))
	require.NoError(t, config.Save(l.SettingsFile(), &config.Config{ReleaseIndexURL: server.IndexURL()}))

	_, err = execute(t, "init", "--home", home, "--log-level", "error")
	require.NoError(t, err)
	require.Equal(t, 1, server.Downloads())
}

func TestUpgrade_NotInstalled(t *testing.T) {
	server := releasetest.NewServer(t, "v1.0.0", releasetest.Release(t, "platform9-express-1a1a1a", "v1"))

	_, err := execute(t, "upgrade", "--home", t.TempDir(), "--config", writeConfig(t, server), "--log-level", "error")
	require.Error(t, err)
	require.Zero(t, server.Downloads())
}

func TestRoot_BadFlags(t *testing.T) {
	_, err := execute(t, "init", "--home", t.TempDir(), "--log-level", "loud")
	require.ErrorContains(t, err, "unknown log level")

	_, err = execute(t, "init", "--home", t.TempDir(), "--config", filepath.Join(t.TempDir(), "missing.yaml"),
		"--log-level", "error")
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestTelemetryConfig turns on sink logging only at debug level.
func TestTelemetryConfig(t *testing.T) {
	cfg := config.Default()
	cfg.TelemetryWriteKey = "write-key"
	cfg.TelemetryEndpoint = "http://127.0.0.1:1"

	t.Cleanup(func() {
		logger.SetLevel(zapcore.InfoLevel)
	})

	require.NoError(t, applyLogLevel("debug"))

	got := telemetryConfig(cfg)
	require.Equal(t, "write-key", got.WriteKey)
	require.Equal(t, "http://127.0.0.1:1", got.Endpoint)
	require.True(t, got.Verbose)

	require.NoError(t, applyLogLevel("info"))
	require.False(t, telemetryConfig(cfg).Verbose)
}

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oshokin/express-cli/internal/logger"
	"github.com/oshokin/express-cli/internal/version"
)

const (
	// envPrefix prefixes environment variables overriding persistent flags.
	envPrefix = "EXPRESS_CLI"

	flagHome     = "home"
	flagConfig   = "config"
	flagLogLevel = "log-level"
)

var (
	// settings merges persistent flags with EXPRESS_CLI_* environment variables.
	settings = newSettings()

	// rootCmd represents the base command grouping init and upgrade.
	rootCmd = &cobra.Command{
		Use:   version.ProgramName,
		Short: "Install and upgrade Platform9 Express",
		Long: `Installs and upgrades the Platform9 Express toolset.

The latest release is resolved from the GitHub releases API or from a release
index configured in the settings file. The release archive is unpacked into
<home>/pf9/pf9-express/express and the installed version is recorded next to it.

Flags may also be set through environment variables, e.g. EXPRESS_CLI_HOME.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return applyLogLevel(settings.GetString(flagLogLevel))
		},
	}
)

// Execute runs the express-cli CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newSettings() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return v
}

func applyLogLevel(value string) error {
	level, ok := logger.ParseLogLevel(value)
	if !ok {
		return fmt.Errorf("unknown log level %q", value)
	}

	logger.SetLevel(level)

	return nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()

	// Setup command flags with consistent naming and descriptions.
	flags.String(flagHome, "", "base directory of the installation (defaults to the user's home)")
	flags.StringP(flagConfig, "c", "", "path to configuration file (defaults to <home>/pf9/express-cli.yaml)")
	flags.String(flagLogLevel, "info", "log level: debug, info, warn or error")

	for _, name := range []string{flagHome, flagConfig, flagLogLevel} {
		if err := settings.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(initCmd, upgradeCmd)
}

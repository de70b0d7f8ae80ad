package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/express-cli/internal/service/installer"
)

// initCmd installs Platform9 Express when it is not present yet.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Install the latest Platform9 Express release",
	Long: `Downloads the latest Platform9 Express release and unpacks it into the
installation directory. Nothing is downloaded when the installation directory
already exists.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Setup graceful shutdown handling.
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		env, err := newEnvironment(ctx, settings)
		if err != nil {
			return err
		}

		defer env.close(ctx)

		outcome, err := installer.Run(ctx, &installer.Options{
			Layout:  env.layout,
			Config:  env.config,
			Tracker: env.tracker,
		})
		if err != nil {
			return err
		}

		printOutcome(cmd.OutOrStdout(), outcome)

		return nil
	},
}

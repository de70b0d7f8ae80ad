package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/express-cli/internal/service/upgrader"
)

// upgradeCmd replaces the installed release with the latest one.
var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Upgrade Platform9 Express to the latest release",
	Long: `Compares the installed version with the latest release and, when they
differ, swaps the new release in place of the installed one. The previous
release is kept in express-bak until the new one is in place and recorded.`,
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

		outcome, err := upgrader.Run(ctx, &upgrader.Options{
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

package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/lexisync/internal/client/config"
	"github.com/spf13/cobra"
)

type runFunc func(ctx context.Context, cmd *cobra.Command, a *App, args []string) error

// appRunner turns a runFunc into a cobra RunE that loads config and opens
// the App for the duration of the command.
type appRunner func(run runFunc) func(*cobra.Command, []string) error

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lexisync",
		Short:         "Offline-first vocabulary trainer with server sync",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := config.RegisterFlags(root.PersistentFlags())

	withApp := func(run runFunc) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.ConfigPath, flags)
			if err != nil {
				return fmt.Errorf("reading config: %w", err)
			}

			a, err := NewApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("initializing app: %w", err)
			}
			defer a.Close()

			return run(cmd.Context(), cmd, a, args)
		}
	}

	root.AddCommand(
		newCardCmd(withApp),
		newReviewCmd(withApp),
		newDueCmd(withApp),
		newProfileCmd(withApp),
		newTokenCmd(withApp),
		newSyncCmd(withApp),
		newWatchCmd(withApp),
		newRejectsCmd(withApp),
		newStatusCmd(withApp),
	)

	return root
}

// Execute runs the CLI with ctx attached to every command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

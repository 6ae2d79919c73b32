package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

const pingTimeout = 3 * time.Second

func newTokenCmd(withApp appRunner) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the bearer token used for sync",
	}

	setCmd := &cobra.Command{
		Use:   "set <token>",
		Short: "Store the bearer token for the account",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *App, args []string) error {
			if err := a.repos.Watermarks(a.db).SetToken(ctx, a.accountID, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "token saved")
			return nil
		}),
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *App, _ []string) error {
			if err := a.repos.Watermarks(a.db).SetToken(ctx, a.accountID, ""); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "token cleared")
			return nil
		}),
	}

	tokenCmd.AddCommand(setCmd, clearCmd)
	return tokenCmd
}

func newSyncCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync round now",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *App, _ []string) error {
			res, err := a.syncer.Sync(ctx, a.accountID)
			if err != nil {
				return fmt.Errorf("sync failed, local changes are kept: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"sent %d (applied %d, rejected %d, skipped %d), pulled %d, deleted %d, deferred %d, dropped %d, parked %d in %d round(s)\n",
				res.Sent, res.Applied, res.Rejected, res.Skipped, res.Pulled, res.Deleted, res.Deferred, res.Dropped, res.Parked, res.Rounds)
			fmt.Fprintf(cmd.OutOrStdout(), "synced up to %s\n", res.NewSyncTime)
			return nil
		}),
	}
}

func newWatchCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Sync periodically and on reconnect until interrupted",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *App, _ []string) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "watching %s every %s, ctrl-c to stop\n", a.config.ServerURL, a.config.SyncInterval)
			a.watcher().Run(ctx)
			return nil
		}),
	}
}

func newRejectsCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "rejects",
		Short: "List local changes the server refused",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *App, _ []string) error {
			rejects, err := a.syncer.Rejects(ctx, a.accountID)
			if err != nil {
				return err
			}
			if len(rejects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no rejected changes")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "QUEUE ID\tTABLE\tOP\tENTITY\tSTATUS\tREASON")
			for _, r := range rejects {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.TableName, r.Operation, r.EntityID, r.Status, r.Reason)
			}
			return w.Flush()
		}),
	}
}

func newStatusCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show local sync state and whether the server is reachable",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *App, _ []string) error {
			marks := a.repos.Watermarks(a.db)
			since, err := marks.Get(ctx, a.accountID)
			if err != nil {
				return err
			}
			token, err := marks.Token(ctx, a.accountID)
			if err != nil {
				return err
			}
			queued, err := a.repos.Queue(a.db).Count(ctx, a.accountID)
			if err != nil {
				return err
			}
			rejects, err := a.syncer.Rejects(ctx, a.accountID)
			if err != nil {
				return err
			}
			parked, err := a.repos.Queue(a.db).ListParked(ctx, a.accountID)
			if err != nil {
				return err
			}
			accounts, err := marks.Accounts(ctx)
			if err != nil {
				return err
			}

			online := "online"
			pctx, cancel := context.WithTimeout(ctx, pingTimeout)
			if err := a.client.Ping(pctx); err != nil {
				online = "offline"
			}
			cancel()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "account:   %s\n", a.accountID)
			fmt.Fprintf(out, "server:    %s (%s)\n", a.config.ServerURL, online)
			fmt.Fprintf(out, "token:     %t\n", token != "")
			fmt.Fprintf(out, "last sync: %s\n", since)
			fmt.Fprintf(out, "queued:    %d\n", queued)
			fmt.Fprintf(out, "rejected:  %d\n", len(rejects))
			fmt.Fprintf(out, "parked:    %d\n", len(parked))
			if len(accounts) > 1 {
				fmt.Fprintf(out, "accounts on this device: %d\n", len(accounts))
			}
			return nil
		}),
	}
}

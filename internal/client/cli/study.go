package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/lexisync/internal/client/scheduler"
	"github.com/dmitrijs2005/lexisync/internal/models"
	"github.com/spf13/cobra"
)

func newCardCmd(withApp appRunner) *cobra.Command {
	cardCmd := &cobra.Command{
		Use:   "card",
		Short: "Manage vocabulary cards",
	}

	var example string
	addCmd := &cobra.Command{
		Use:   "add <word> <meaning>",
		Short: "Add a new card, due now",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *App, args []string) error {
			c, err := a.study.AddCard(ctx, a.accountID, args[0], args[1], example)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", c.ID)
			return nil
		}),
	}
	addCmd.Flags().StringVarP(&example, "example", "e", "", "example sentence")

	deleteCmd := &cobra.Command{
		Use:   "delete <card-id>",
		Short: "Delete a card",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *App, args []string) error {
			if err := a.study.DeleteCard(ctx, a.accountID, models.ID(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		}),
	}

	cardCmd.AddCommand(addCmd, deleteCmd)
	return cardCmd
}

func newReviewCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "review <card-id> <rating>",
		Short: "Grade a card: again, hard, good, easy (or 1-4)",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *App, args []string) error {
			rating, err := parseRating(args[1])
			if err != nil {
				return err
			}
			c, _, err := a.study.Review(ctx, a.accountID, models.ID(args[0]), rating)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s next due %s\n", c.Word, c.DueDate)
			return nil
		}),
	}
}

func parseRating(s string) (int, error) {
	switch strings.ToLower(s) {
	case "again":
		return scheduler.Again, nil
	case "hard":
		return scheduler.Hard, nil
	case "good":
		return scheduler.Good, nil
	case "easy":
		return scheduler.Easy, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < scheduler.Again || n > scheduler.Easy {
		return 0, fmt.Errorf("invalid rating %q", s)
	}
	return n, nil
}

func newDueCmd(withApp appRunner) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List cards due for review",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *App, _ []string) error {
			cards, err := a.study.Due(ctx, a.accountID, limit)
			if err != nil {
				return err
			}
			if len(cards) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing due")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tWORD\tMEANING\tDUE")
			for _, c := range cards {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.Word, c.Meaning, c.DueDate)
			}
			return w.Flush()
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum cards to list, 0 for all")
	return cmd
}

func newProfileCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "profile <username>",
		Short: "Set the account's display name",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *App, args []string) error {
			u, err := a.study.SetProfile(ctx, a.accountID, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "profile %s is %s\n", u.ID, u.Username)
			return nil
		}),
	}
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// rememberQuery records a --query expression that evaluated successfully.
func (a *App) rememberQuery(expr string) {
	ctx := context.Background()
	if err := a.queries.Add(ctx, expr); err != nil {
		a.logger.Warn(ctx, "query history not saved", "error", err)
	}
}

func (a *App) historyCmd() *cobra.Command {
	var wipe bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently used --query expressions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.init(ctx, cmd); err != nil {
				return err
			}
			if wipe {
				return a.queries.Clear(ctx)
			}
			queries, err := a.queries.Queries(ctx)
			if err != nil {
				return err
			}
			for _, q := range queries {
				if _, err := fmt.Fprintln(a.streams.Out, q); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&wipe, "clear", false, "Forget the recorded expressions")
	return cmd
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/richardissailing/fantastic-spoon/modules/changes/board"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
)

func newBoardCmd(flags *globalFlags) *cobra.Command {
	var (
		width    int
		statuses []string
	)
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show change requests as a board with one column per status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.client()
			if err != nil {
				return err
			}
			var opts []board.Option
			if len(statuses) > 0 {
				cols, err := parseStatuses(statuses)
				if err != nil {
					return withCode(exitValidation, err)
				}
				opts = append(opts, board.WithColumns(cols...))
			}

			b := board.New(client, client, opts...)
			if err := b.Load(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), board.Render(b.Columns(), width))
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 160, "total render width in cells")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "columns to show, in order (default all)")
	return cmd
}

func parseStatuses(values []string) ([]change.Status, error) {
	out := make([]change.Status, 0, len(values))
	for _, v := range values {
		s, err := change.ParseStatus(strings.ToUpper(strings.TrimSpace(v)))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

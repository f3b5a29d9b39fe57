package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/richardissailing/fantastic-spoon/modules/changes/board"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/lifecycle"
)

// confirmFunc asks the user to approve a guarded move.
type confirmFunc func(prompt string) (bool, error)

func huhConfirm(prompt string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(prompt).
		Affirmative("Complete").
		Negative("Cancel").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

func newMoveCmd(flags *globalFlags) *cobra.Command {
	var (
		comment string
		yes     bool
	)
	cmd := &cobra.Command{
		Use:   "move <id> <status>",
		Short: "Move a change request to another status",
		Long:  `Evaluates the move locally, asks for confirmation before completing, then submits it. The request is left untouched when the move is refused.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return withCode(exitValidation, fmt.Errorf("invalid change id %q", args[0]))
			}
			to, err := change.ParseStatus(strings.ToUpper(args[1]))
			if err != nil {
				return withCode(exitValidation, err)
			}
			client, err := flags.client()
			if err != nil {
				return err
			}
			confirm := huhConfirm
			if yes {
				confirm = func(string) (bool, error) { return true, nil }
			}
			b := board.New(client, singleLoader{client: client, id: id})
			if err := b.Load(cmd.Context()); err != nil {
				return err
			}
			return runMove(cmd.Context(), cmd.OutOrStdout(), b, board.Move{ID: id, To: to, Index: -1, Comment: comment}, confirm)
		},
	}
	cmd.Flags().StringVarP(&comment, "comment", "m", "", "comment recorded with the transition")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the completion confirmation")
	return cmd
}

// singleLoader puts only the moved request on the board.
type singleLoader struct {
	client *board.APIClient
	id     uuid.UUID
}

func (l singleLoader) List(ctx context.Context) ([]change.ChangeRequest, error) {
	c, err := l.client.Get(ctx, l.id)
	if err != nil {
		return nil, err
	}
	return []change.ChangeRequest{c}, nil
}

func runMove(ctx context.Context, out io.Writer, b *board.Board, m board.Move, confirm confirmFunc) error {
	res, err := b.Move(ctx, m)
	if err != nil {
		return withCode(exitNotFound, err)
	}
	if res.Outcome == board.OutcomeConfirmationRequired {
		ok, err := confirm(res.Message)
		if err != nil {
			return err
		}
		if !ok {
			return withCode(exitAborted, errors.New("move cancelled"))
		}
		m.Confirmed = true
		if res, err = b.Move(ctx, m); err != nil {
			return withCode(exitNotFound, err)
		}
	}

	switch res.Outcome {
	case board.OutcomeCommitted:
		fmt.Fprintf(out, "%s is now %s\n", res.Change.ID(), res.Change.Status().Label())
		return nil
	case board.OutcomeIgnored, board.OutcomeReordered:
		fmt.Fprintf(out, "%s is already %s\n", m.ID, m.To.Label())
		return nil
	case board.OutcomeRejected, board.OutcomeReverted:
		if res.Err != nil {
			return withCode(exitCode(res.Err), errors.New(lifecycle.UserMessage(res.Err)))
		}
		return withCode(exitRejected, errors.New(res.Message))
	default:
		return fmt.Errorf("unexpected move outcome %q", res.Outcome)
	}
}

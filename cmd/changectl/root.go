package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/richardissailing/fantastic-spoon/modules/changes/board"
	"github.com/richardissailing/fantastic-spoon/pkg/commands"
)

type globalFlags struct {
	api         string
	actor       string
	actorHeader string
}

func (g *globalFlags) client() (*board.APIClient, error) {
	actorID, err := uuid.Parse(g.actor)
	if err != nil {
		return nil, withCode(exitValidation, fmt.Errorf("--actor must be a user id: %w", err))
	}
	return board.NewAPIClient(g.api, actorID, board.WithActorHeader(g.actorHeader))
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:           "changectl",
		Short:         "Change request lifecycle tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&flags.api, "api", envOr("CHANGECTL_API", "http://localhost:3200"), "base URL of the change API")
	cmd.PersistentFlags().StringVar(&flags.actor, "actor", os.Getenv("CHANGECTL_ACTOR"), "id of the user performing the action")
	cmd.PersistentFlags().StringVar(&flags.actorHeader, "actor-header", envOr("CHANGECTL_ACTOR_HEADER", "X-Actor-ID"), "header carrying the actor id")

	cmd.AddCommand(commands.NewUtilityCommands()...)
	cmd.AddCommand(newBoardCmd(flags))
	cmd.AddCommand(newMoveCmd(flags))
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(exitCode(err))
	}
}

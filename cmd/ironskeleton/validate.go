package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tatianab/ironskeleton/internal/theme"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <theme-dir>",
		Short: "Load a theme and report config errors without starting a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := theme.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d scenes, %d triggers, initial scene %q\n",
				t.Manifest.Title, len(t.Graph.Scenes), len(t.Triggers), t.Graph.InitialSceneID)
			return nil
		},
	}
}

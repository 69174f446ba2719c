package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"blockwork/internal/config"
	"blockwork/internal/workspace"
)

func newReplayCommand(dir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <workspaceId>",
		Short: "Rebuild a workspace from its journal and print a summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*dir)
			if err != nil {
				return err
			}
			store, err := openJournal(*dir)
			if err != nil {
				return err
			}
			defer store.Close()

			ws := workspace.New(args[0], cfg.WorkspaceOptions(), nil)
			if err := ws.ReplayJournal(store); err != nil {
				return err
			}

			fmt.Printf("Workspace %s\n", ws.ID())
			fmt.Printf("  blocks:    %d (%d top-level)\n", len(ws.AllBlocks()), len(ws.TopBlocks()))
			fmt.Printf("  frames:    %d\n", len(ws.TopFrames()))
			fmt.Printf("  variables: %d\n", len(ws.Variables()))
			for _, f := range ws.TopFrames() {
				r := f.Rect()
				fmt.Printf("  frame %s %q at (%.0f,%.0f) %d block(s)\n",
					f.ID(), f.Title(), r.Left, r.Top, len(f.Blocks()))
			}
			return nil
		},
	}
	return cmd
}

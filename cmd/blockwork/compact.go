package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"blockwork/internal/config"
	"blockwork/internal/journal"
)

func newCompactCommand(dir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Prune every workspace's journal down to the configured cap",
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

			ids, err := store.Workspaces()
			if err != nil {
				return err
			}
			c := journal.NewCompactor(store, cfg.Journal.MaxEvents)
			c.SetWorkspaces(ids)
			c.Run()
			fmt.Printf("Compacted %d workspace(s) to at most %d events each\n",
				len(ids), cfg.Journal.MaxEvents)
			return nil
		},
	}
	return cmd
}

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"blockwork/internal/config"
	"blockwork/internal/domain"
	"blockwork/internal/journal"
)

func newEventsCommand(dir *string) *cobra.Command {
	var group string

	cmd := &cobra.Command{
		Use:   "events [workspaceId]",
		Short: "List journaled events, or the journaled workspaces when no ID is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openJournal(*dir)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 0 {
				ids, err := store.Workspaces()
				if err != nil {
					return err
				}
				if len(ids) == 0 {
					fmt.Println("Journal is empty")
					return nil
				}
				for _, id := range ids {
					fmt.Println(id)
				}
				return nil
			}

			wsID := args[0]
			var recs []domain.EventRecord
			if group != "" {
				recs, err = store.ListGroup(wsID, group)
			} else {
				recs, err = store.ListEvents(wsID)
			}
			if err != nil {
				return err
			}
			for _, r := range recs {
				elem := r.Element
				if elem != "" {
					elem = "/" + elem
				}
				fmt.Printf("%s  %-20s %-36s group=%s\n",
					r.RecordedAt.Format("2006-01-02 15:04:05"), r.Kind+elem, r.TargetID, r.GroupID)
			}
			fmt.Printf("%d event(s)\n", len(recs))
			return nil
		},
	}

	cmd.Flags().StringVarP(&group, "group", "g", "", "show only one gesture group")
	return cmd
}

func openJournal(dir string) (*journal.Store, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if cfg.Journal.Path == "" {
		return nil, fmt.Errorf("journal is disabled in %s", config.FileName)
	}
	return journal.Open(filepath.Join(dir, cfg.Journal.Path))
}

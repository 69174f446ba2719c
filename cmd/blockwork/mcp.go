package main

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"blockwork/internal/collab"
	"blockwork/internal/config"
	"blockwork/internal/events"
	"blockwork/internal/journal"
	mcpserver "blockwork/internal/mcp"
	"blockwork/internal/workspace"
)

func newMcpCommand(dir *string) *cobra.Command {
	var defaultWS string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the editor over MCP on stdin/stdout",
		Long: `Loads blockwork.yaml, rebuilds every journaled workspace, wires the
journal, compaction schedule and collaboration feed, and serves the MCP
toolset on stdio until the client disconnects.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*dir)
			if err != nil {
				return err
			}

			var emitter events.Emitter
			var pub *collab.Publisher
			sessionID := cfg.Collab.SessionID
			collabDir := filepath.Join(*dir, cfg.Collab.Dir)
			if cfg.Collab.Enabled {
				if sessionID == "" {
					sessionID = uuid.New().String()
				}
				pub, err = collab.NewPublisher(collabDir, sessionID)
				if err != nil {
					return fmt.Errorf("open collab feed: %w", err)
				}
				emitter = pub
			}

			var store *journal.Store
			ids := []string{defaultWS}
			if cfg.Journal.Path != "" {
				store, err = journal.Open(filepath.Join(*dir, cfg.Journal.Path))
				if err != nil {
					return err
				}
				defer store.Close()

				persisted, err := store.Workspaces()
				if err != nil {
					return err
				}
				for _, id := range persisted {
					if id != defaultWS {
						ids = append(ids, id)
					}
				}
			}

			hub := workspace.NewHub()
			for _, id := range ids {
				ws := workspace.New(id, cfg.WorkspaceOptions(), emitter)
				if store != nil {
					if err := ws.ReplayJournal(store); err != nil {
						return err
					}
					ws.SetJournal(store)
				}
				ws.SetHub(hub)
			}

			if store != nil && cfg.Journal.CompactCron != "" {
				c := journal.NewCompactor(store, cfg.Journal.MaxEvents)
				c.SetLister(func() []string {
					var out []string
					for _, ws := range hub.Workspaces() {
						out = append(out, ws.ID())
					}
					return out
				})
				if err := c.Start(cfg.Journal.CompactCron); err != nil {
					return fmt.Errorf("start compactor: %w", err)
				}
				defer c.Stop()
			}

			if cfg.Collab.Enabled {
				feed := collab.NewFeed(hub, collabDir, sessionID)
				if err := feed.Start(); err != nil {
					return fmt.Errorf("start collab feed: %w", err)
				}
				defer feed.Stop()
				log.Printf("collab feed at %s as session %s (publishing to %s)",
					collabDir, sessionID, pub.Path())
			}

			return mcpserver.New(hub).ServeStdio()
		},
	}

	cmd.Flags().StringVarP(&defaultWS, "workspace", "w", "main", "workspace created when the journal has none")
	return cmd
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	var dir string

	rootCmd := &cobra.Command{
		Use:   "blockwork",
		Short: "Blockwork - visual block editor core",
		Long: `Blockwork is the headless core of a visual block editor: block and
frame drag gestures, event-sourced undo/redo, a persistent event journal
and a shared-directory collaboration feed. The mcp command exposes the
editor over the Model Context Protocol for tool-driven editing.`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
	}

	rootCmd.PersistentFlags().StringVarP(&dir, "dir", "d", ".", "project directory holding blockwork.yaml")

	rootCmd.AddCommand(newInitCommand(&dir))
	rootCmd.AddCommand(newEventsCommand(&dir))
	rootCmd.AddCommand(newReplayCommand(&dir))
	rootCmd.AddCommand(newCompactCommand(&dir))
	rootCmd.AddCommand(newMcpCommand(&dir))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

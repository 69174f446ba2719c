package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"blockwork/internal/config"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Workspace.Scale != 1 || cfg.Workspace.MaxUndo == 0 {
		t.Fatalf("defaults not applied: %+v", cfg.Workspace)
	}
	if cfg.Journal.CompactCron != "@hourly" {
		t.Fatalf("journal defaults not applied: %+v", cfg.Journal)
	}
}

func TestLoadParsesAndFillsGaps(t *testing.T) {
	dir := t.TempDir()
	raw := `workspace:
  scale: 2
  gridSpacing: 40
  trashArea:
    left: 200
    top: 200
    right: 300
    bottom: 300
journal:
  path: custom.db
collab:
  enabled: true
  sessionId: alice
`
	if err := os.WriteFile(filepath.Join(dir, config.FileName), []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Workspace.Scale != 2 || cfg.Workspace.GridSpacing != 40 {
		t.Fatalf("workspace section mangled: %+v", cfg.Workspace)
	}
	if cfg.Workspace.TrashArea == nil || cfg.Workspace.TrashArea.Right != 300 {
		t.Fatalf("trash area mangled: %+v", cfg.Workspace.TrashArea)
	}
	// Unset fields fall back to defaults.
	if cfg.Workspace.MaxUndo == 0 || cfg.Journal.MaxEvents == 0 {
		t.Fatalf("gaps not filled: %+v", cfg)
	}
	if !cfg.Collab.Enabled || cfg.Collab.SessionID != "alice" {
		t.Fatalf("collab section mangled: %+v", cfg.Collab)
	}

	opts := cfg.WorkspaceOptions()
	if opts.Scale != 2 || opts.GridSpacing != 40 || opts.TrashArea == nil {
		t.Fatalf("options conversion mangled: %+v", opts)
	}
}

func TestSaveRoundTrips(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Workspace.GridSpacing = 32
	if err := config.Save(cfg, dir); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := config.Load(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Workspace.GridSpacing != 32 {
		t.Fatalf("round trip lost a value: %+v", got.Workspace)
	}
}

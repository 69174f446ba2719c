// Package config loads the editor-core configuration from blockwork.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"blockwork/internal/workspace"
	"blockwork/pkg/geometry"
)

// FileName is the config file looked up in the project directory.
const FileName = "blockwork.yaml"

// Config is the blockwork.yaml schema.
type Config struct {
	// Workspace behavior
	Workspace WorkspaceConfig `yaml:"workspace"`

	// Journal persistence
	Journal JournalConfig `yaml:"journal"`

	// Collaboration feed
	Collab CollabConfig `yaml:"collab"`
}

// WorkspaceConfig maps onto workspace.Options.
type WorkspaceConfig struct {
	Scale          float64        `yaml:"scale"`
	MaxUndo        int            `yaml:"maxUndo"`
	SnapRadius     float64        `yaml:"snapRadius"`
	GridSpacing    float64        `yaml:"gridSpacing"`
	ToolboxDeletes bool           `yaml:"toolboxDeletes"`
	TrashArea      *geometry.Rect `yaml:"trashArea,omitempty"`
	ToolboxArea    *geometry.Rect `yaml:"toolboxArea,omitempty"`
	Viewport       geometry.Rect  `yaml:"viewport"`
}

// JournalConfig controls the SQLite event journal.
type JournalConfig struct {
	// Path of the journal database; empty disables persistence.
	Path string `yaml:"path"`
	// MaxEvents bounds each workspace's journal after compaction.
	MaxEvents int `yaml:"maxEvents"`
	// CompactCron schedules compaction; empty disables it.
	CompactCron string `yaml:"compactCron"`
}

// CollabConfig controls the shared-directory event feed.
type CollabConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Dir       string `yaml:"dir"`
	SessionID string `yaml:"sessionId"`
}

// Load reads the config from dir, falling back to defaults when the file
// does not exist.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", FileName, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Save writes the config to dir.
func Save(cfg *Config, dir string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, FileName), data, 0644)
}

// DefaultConfig returns the defaults used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Workspace: WorkspaceConfig{
			Scale:      1,
			MaxUndo:    workspace.DefaultMaxUndo,
			SnapRadius: 20,
		},
		Journal: JournalConfig{
			Path:        "blockwork.db",
			MaxEvents:   10000,
			CompactCron: "@hourly",
		},
		Collab: CollabConfig{
			Dir: "feed",
		},
	}
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Workspace.Scale <= 0 {
		cfg.Workspace.Scale = def.Workspace.Scale
	}
	if cfg.Workspace.MaxUndo <= 0 {
		cfg.Workspace.MaxUndo = def.Workspace.MaxUndo
	}
	if cfg.Workspace.SnapRadius <= 0 {
		cfg.Workspace.SnapRadius = def.Workspace.SnapRadius
	}
	if cfg.Journal.MaxEvents <= 0 {
		cfg.Journal.MaxEvents = def.Journal.MaxEvents
	}
	if cfg.Collab.Dir == "" {
		cfg.Collab.Dir = def.Collab.Dir
	}
}

// WorkspaceOptions converts the workspace section to workspace.Options.
func (c *Config) WorkspaceOptions() workspace.Options {
	w := c.Workspace
	return workspace.Options{
		Scale:          w.Scale,
		MaxUndo:        w.MaxUndo,
		TrashArea:      w.TrashArea,
		ToolboxArea:    w.ToolboxArea,
		ToolboxDeletes: w.ToolboxDeletes,
		Viewport:       w.Viewport,
		SnapRadius:     w.SnapRadius,
		GridSpacing:    w.GridSpacing,
	}
}

// Package journal persists the workspace event stream to SQLite. The
// journal is append-only during a session; compaction trims the oldest
// events on a schedule so long sessions do not grow the file unboundedly.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"blockwork/internal/domain"
)

// Store is the SQLite-backed JournalStore.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the journal database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite only supports one writer — limit to single connection to prevent SQLITE_BUSY
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			group_id TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			element TEXT NOT NULL DEFAULT '',
			target_id TEXT NOT NULL,
			old_json TEXT NOT NULL DEFAULT '',
			new_json TEXT NOT NULL DEFAULT '',
			seq INTEGER NOT NULL DEFAULT 0,
			recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_workspace ON events(workspace_id, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_events_group ON events(workspace_id, group_id)`,
	}
	for _, m := range migrations {
		if _, err := s.conn.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// AppendEvent writes one event record. The per-workspace sequence number is
// assigned here; timestamps alone cannot order events fired within the same
// millisecond of a gesture.
func (s *Store) AppendEvent(rec *domain.EventRecord) error {
	if rec == nil {
		return fmt.Errorf("append event: nil record")
	}
	var seq int64
	if err := s.conn.QueryRow(
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM events WHERE workspace_id = ?`,
		rec.WorkspaceID,
	).Scan(&seq); err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	_, err := s.conn.Exec(
		`INSERT INTO events (id, workspace_id, group_id, kind, element, target_id, old_json, new_json, seq, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.WorkspaceID, rec.GroupID, rec.Kind, rec.Element,
		rec.TargetID, rec.OldJSON, rec.NewJSON, seq, rec.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Workspaces returns the distinct workspace IDs present in the journal.
func (s *Store) Workspaces() ([]string, error) {
	rows, err := s.conn.Query(`SELECT DISTINCT workspace_id FROM events ORDER BY workspace_id`)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan workspace id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ListEvents returns a workspace's events in append order.
func (s *Store) ListEvents(workspaceID string) ([]domain.EventRecord, error) {
	return s.query(
		`SELECT id, workspace_id, group_id, kind, element, target_id, old_json, new_json, recorded_at
		 FROM events WHERE workspace_id = ? ORDER BY seq ASC`, workspaceID,
	)
}

// ListGroup returns the events of one gesture group in append order.
func (s *Store) ListGroup(workspaceID, groupID string) ([]domain.EventRecord, error) {
	return s.query(
		`SELECT id, workspace_id, group_id, kind, element, target_id, old_json, new_json, recorded_at
		 FROM events WHERE workspace_id = ? AND group_id = ? ORDER BY seq ASC`,
		workspaceID, groupID,
	)
}

func (s *Store) query(q string, args ...any) ([]domain.EventRecord, error) {
	rows, err := s.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []domain.EventRecord
	for rows.Next() {
		var r domain.EventRecord
		if err := rows.Scan(&r.ID, &r.WorkspaceID, &r.GroupID, &r.Kind, &r.Element,
			&r.TargetID, &r.OldJSON, &r.NewJSON, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// PruneIfNeeded removes the oldest events once a workspace's journal
// exceeds maxEvents. Whole gesture groups are dropped together; replaying a
// half gesture would leave the workspace in a state no user ever saw.
func (s *Store) PruneIfNeeded(workspaceID string, maxEvents int) error {
	if maxEvents <= 0 {
		return nil
	}
	var count int
	if err := s.conn.QueryRow(
		`SELECT COUNT(*) FROM events WHERE workspace_id = ?`, workspaceID,
	).Scan(&count); err != nil {
		return fmt.Errorf("count events: %w", err)
	}
	if count <= maxEvents {
		return nil
	}
	toDelete := count - maxEvents

	// The cutoff is the seq of the last event slated for deletion,
	// widened to the end of its gesture group.
	var cutoff int64
	if err := s.conn.QueryRow(
		`SELECT seq FROM events WHERE workspace_id = ?
		 ORDER BY seq ASC LIMIT 1 OFFSET ?`, workspaceID, toDelete-1,
	).Scan(&cutoff); err != nil {
		return fmt.Errorf("find prune cutoff: %w", err)
	}
	var group string
	if err := s.conn.QueryRow(
		`SELECT group_id FROM events WHERE workspace_id = ? AND seq = ?`,
		workspaceID, cutoff,
	).Scan(&group); err != nil {
		return fmt.Errorf("find cutoff group: %w", err)
	}
	if group != "" {
		if err := s.conn.QueryRow(
			`SELECT MAX(seq) FROM events WHERE workspace_id = ? AND group_id = ?`,
			workspaceID, group,
		).Scan(&cutoff); err != nil {
			return fmt.Errorf("widen cutoff to group: %w", err)
		}
	}

	if _, err := s.conn.Exec(
		`DELETE FROM events WHERE workspace_id = ? AND seq <= ?`,
		workspaceID, cutoff,
	); err != nil {
		return fmt.Errorf("prune events: %w", err)
	}
	return nil
}

var _ domain.JournalStore = (*Store)(nil)

// Package collab ingests event feeds written by collaborating sessions.
// Each peer appends its serialized event records to a JSON file in a shared
// directory; the feed watches the directory and applies new records to the
// matching workspace. Records are applied with recording suspended, so a
// peer's edits never pollute the local undo stack or journal.
package collab

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"blockwork/internal/domain"
	"blockwork/internal/workspace"
)

const debounce = 500 * time.Millisecond

// Feed tails a directory of peer event files and applies their records to
// the hub's workspaces.
type Feed struct {
	hub *workspace.Hub
	dir string

	// sessionID filters out files this session wrote itself.
	sessionID string

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc

	mu      sync.Mutex
	applied map[string]int // records already applied per file
}

// NewFeed creates a feed over dir for the hub's workspaces. sessionID names
// the local session; files whose basename starts with it are ignored.
func NewFeed(hub *workspace.Hub, dir, sessionID string) *Feed {
	return &Feed{
		hub:       hub,
		dir:       dir,
		sessionID: sessionID,
		applied:   make(map[string]int),
	}
}

// Start begins watching. Existing feed files are ingested first so a late
// joiner catches up before tailing.
func (f *Feed) Start() error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("create feed directory: %w", err)
	}

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return fmt.Errorf("read feed directory: %w", err)
	}
	for _, e := range entries {
		if f.isPeerFile(e.Name()) {
			f.ingest(filepath.Join(f.dir, e.Name()))
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(f.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %q: %w", f.dir, err)
	}
	f.watcher = watcher

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go f.loop(ctx)
	log.Printf("collab feed: watching %q", f.dir)
	return nil
}

// Stop tears the watcher down.
func (f *Feed) Stop() {
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	if f.watcher != nil {
		f.watcher.Close()
		f.watcher = nil
	}
}

func (f *Feed) isPeerFile(name string) bool {
	if !strings.HasSuffix(name, ".json") {
		return false
	}
	return f.sessionID == "" || !strings.HasPrefix(name, f.sessionID)
}

func (f *Feed) loop(ctx context.Context) {
	timers := make(map[string]*time.Timer)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !f.isPeerFile(filepath.Base(event.Name)) {
				continue
			}
			// Writers append in bursts; coalesce to one ingest per burst.
			path := event.Name
			if t, exists := timers[path]; exists {
				t.Stop()
			}
			timers[path] = time.AfterFunc(debounce, func() {
				f.ingest(path)
			})
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("collab feed: watcher error: %v", err)
		}
	}
}

// ingest applies any records in path that have not been applied yet. The
// file holds a JSON array that peers only ever append to, so the applied
// count doubles as a resume cursor.
func (f *Feed) ingest(path string) {
	recs, err := ReadFile(path)
	if err != nil {
		log.Printf("collab feed: read %q: %v", path, err)
		return
	}

	f.mu.Lock()
	start := f.applied[path]
	if start > len(recs) {
		// The peer rewrote its file from scratch; start over.
		start = 0
	}
	pending := recs[start:]
	f.applied[path] = len(recs)
	f.mu.Unlock()

	// The workspaces are single-actor structures; applying from the
	// debounce goroutine must serialize with every other editor.
	f.hub.Sync(func() {
		for i := range pending {
			rec := &pending[i]
			ws := f.hub.ByID(rec.WorkspaceID)
			if ws == nil {
				log.Printf("collab feed: no workspace %q for record %s", rec.WorkspaceID, rec.ID)
				continue
			}
			if err := ws.ApplyRecord(rec); err != nil {
				log.Printf("collab feed: %v", err)
			}
		}
	})
	if len(pending) > 0 {
		log.Printf("collab feed: applied %d record(s) from %q", len(pending), filepath.Base(path))
	}
}

// ReadFile decodes one feed file.
func ReadFile(path string) ([]domain.EventRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var recs []domain.EventRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("parse feed file: %w", err)
	}
	return recs, nil
}

// WriteFile serializes records to a feed file, for the publishing side.
func WriteFile(path string, recs []domain.EventRecord) error {
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

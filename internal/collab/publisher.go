package collab

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"blockwork/internal/domain"
)

// Publisher is an events.Emitter that mirrors every fired event record into
// this session's feed file for peers to tail. Out-of-band notifications
// (names without the event: prefix) are not part of the feed.
type Publisher struct {
	path string

	mu   sync.Mutex
	recs []domain.EventRecord
}

// NewPublisher creates a publisher writing to <dir>/<sessionID>.json.
func NewPublisher(dir, sessionID string) (*Publisher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Publisher{path: filepath.Join(dir, sessionID+".json")}, nil
}

// Path returns the feed file this publisher writes.
func (p *Publisher) Path() string { return p.path }

func (p *Publisher) Emit(_ context.Context, name string, data any) {
	if !strings.HasPrefix(name, "event:") {
		return
	}
	rec, ok := data.(*domain.EventRecord)
	if !ok {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recs = append(p.recs, *rec)
	if err := WriteFile(p.path, p.recs); err != nil {
		log.Printf("collab publisher: write %q: %v", p.path, err)
	}
}

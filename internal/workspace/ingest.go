package workspace

import (
	"fmt"
	"log"

	"blockwork/internal/domain"
	"blockwork/internal/events"
)

// ApplyRecord decodes a journal record and applies it forward with
// recording suspended: ingesting a peer's feed or a persisted journal must
// not re-journal the events or grow the undo stack.
func (ws *Workspace) ApplyRecord(rec *domain.EventRecord) error {
	ev, err := events.Decode(rec)
	if err != nil {
		return fmt.Errorf("apply record %s: %w", rec.ID, err)
	}
	ws.rec.Disable()
	defer ws.rec.Enable()
	ws.apply(ev, true)
	return nil
}

// ReplayJournal rebuilds the workspace from its persisted event stream.
// Notification kinds are skipped; a record that fails to decode is logged
// and skipped rather than aborting the rebuild halfway.
func (ws *Workspace) ReplayJournal(store domain.JournalStore) error {
	recs, err := store.ListEvents(ws.id)
	if err != nil {
		return fmt.Errorf("replay journal: %w", err)
	}
	for i := range recs {
		switch events.Kind(recs[i].Kind) {
		case events.KindDragOutside, events.KindFrameEndDrag:
			continue
		}
		if err := ws.ApplyRecord(&recs[i]); err != nil {
			log.Printf("workspace %s: %v", ws.id, err)
		}
	}
	return nil
}

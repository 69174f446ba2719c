package collab_test

import (
	"path/filepath"
	"testing"

	"blockwork/internal/collab"
	"blockwork/internal/domain"
	"blockwork/internal/events"
	"blockwork/internal/workspace"
	"blockwork/pkg/geometry"
)

func TestFeedFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peer.json")
	recs := []domain.EventRecord{
		{ID: "e1", WorkspaceID: "ws", Kind: "block_create", TargetID: "b1", NewJSON: `{"id":"b1","type":"op","x":5,"y":6}`},
		{ID: "e2", WorkspaceID: "ws", Kind: "block_move", TargetID: "b1", OldJSON: `{"point":{"x":5,"y":6}}`, NewJSON: `{"point":{"x":50,"y":60}}`},
	}
	if err := collab.WriteFile(path, recs); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := collab.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || got[0].ID != "e1" || got[1].Kind != "block_move" {
		t.Fatalf("round trip mangled records: %+v", got)
	}
}

func TestApplyRecordDoesNotRecord(t *testing.T) {
	ws := workspace.New("ws", workspace.Options{}, nil)

	rec := &domain.EventRecord{
		ID: "e1", WorkspaceID: "ws", Kind: "block_create", TargetID: "b1",
		NewJSON: `{"id":"b1","type":"op","x":5,"y":6}`,
	}
	if err := ws.ApplyRecord(rec); err != nil {
		t.Fatalf("apply: %v", err)
	}

	b := ws.BlockByID("b1")
	if b == nil {
		t.Fatal("ingested create did not build the block")
	}
	if !b.Position().Equals(geometry.NewPoint(5, 6)) {
		t.Fatalf("ingested block at %v, want (5,6)", b.Position())
	}
	if ws.UndoDepth() != 0 {
		t.Fatal("peer record grew the local undo stack")
	}
}

func TestDecodedEventsSurviveRecordCycle(t *testing.T) {
	src := workspace.New("ws-src", workspace.Options{}, nil)
	b := src.CreateBlock("op", geometry.NewPoint(50, 50))
	f := src.CreateFrame("g", geometry.Rect{Left: 0, Top: 0, Right: 100, Bottom: 100})
	f.SetTitle("renamed")

	// Serialize everything the source fired, then rebuild a fresh
	// workspace from the records alone.
	ev1 := &events.BlockCreate{State: b.State()}
	ev2 := &events.FrameCreate{State: f.State()}
	dst := workspace.New("ws-dst", workspace.Options{}, nil)
	for _, ev := range []events.Event{ev1, ev2} {
		rec, err := ev.Record()
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		rec.WorkspaceID = "ws-dst"
		rec.Kind = string(ev.Kind())
		rec.TargetID = targetOf(ev)
		if err := dst.ApplyRecord(rec); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}

	if dst.BlockByID(b.ID()) == nil {
		t.Fatal("block did not survive the record cycle")
	}
	got := dst.FrameByID(f.ID())
	if got == nil {
		t.Fatal("frame did not survive the record cycle")
	}
	if got.Title() != "renamed" {
		t.Fatalf("frame title = %q, want the post-retitle title", got.Title())
	}
	if dst.BlockByID(b.ID()).FrameID() != f.ID() {
		t.Fatal("membership did not survive the record cycle")
	}
}

func targetOf(ev events.Event) string {
	switch e := ev.(type) {
	case *events.BlockCreate:
		return e.State.ID
	case *events.FrameCreate:
		return e.State.ID
	default:
		return ""
	}
}

func TestFeedIngestsExistingFilesOnStart(t *testing.T) {
	dir := t.TempDir()
	hub := workspace.NewHub()
	ws := workspace.New("ws", workspace.Options{}, nil)
	ws.SetHub(hub)

	recs := []domain.EventRecord{
		{ID: "e1", WorkspaceID: "ws", Kind: "block_create", TargetID: "b1",
			NewJSON: `{"id":"b1","type":"op","x":5,"y":6}`},
	}
	if err := collab.WriteFile(filepath.Join(dir, "peer.json"), recs); err != nil {
		t.Fatal(err)
	}

	feed := collab.NewFeed(hub, dir, "local")
	if err := feed.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer feed.Stop()

	if ws.BlockByID("b1") == nil {
		t.Fatal("catch-up ingest missed the existing feed file")
	}
}

func TestFeedSkipsOwnSessionFiles(t *testing.T) {
	dir := t.TempDir()
	hub := workspace.NewHub()
	ws := workspace.New("ws", workspace.Options{}, nil)
	ws.SetHub(hub)

	recs := []domain.EventRecord{
		{ID: "e1", WorkspaceID: "ws", Kind: "block_create", TargetID: "b1",
			NewJSON: `{"id":"b1","type":"op","x":5,"y":6}`},
	}
	if err := collab.WriteFile(filepath.Join(dir, "local.json"), recs); err != nil {
		t.Fatal(err)
	}

	feed := collab.NewFeed(hub, dir, "local")
	if err := feed.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer feed.Stop()

	if ws.BlockByID("b1") != nil {
		t.Fatal("feed replayed this session's own records")
	}
}

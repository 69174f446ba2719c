package events_test

import (
	"encoding/json"
	"testing"

	"blockwork/internal/events"
	"blockwork/pkg/geometry"
)

// ─────────────────────────────────────────────────────────────
// Interface conformance
// ─────────────────────────────────────────────────────────────

// Every variant embeds Base as a field, so the shared accessor must not be
// called Base: the promoted method would be shadowed and no variant would
// satisfy the interface. This list is the compile-time guard.
func TestEveryVariantSatisfiesEvent(t *testing.T) {
	variants := []events.Event{
		&events.BlockCreate{},
		&events.BlockDelete{},
		&events.BlockMove{},
		&events.BlockChange{},
		&events.FrameCreate{},
		&events.FrameDelete{},
		&events.FrameRetitle{},
		&events.FrameChange{},
		&events.FrameEndDrag{},
		&events.DragOutside{},
		&events.CommentMove{},
		&events.VarCreate{},
		&events.VarRename{},
		&events.VarDelete{},
	}
	for _, ev := range variants {
		ev.Meta().Group = "g"
		if ev.Meta().Group != "g" {
			t.Errorf("%s: Meta must expose the variant's shared metadata", ev.Kind())
		}
	}
}

// ─────────────────────────────────────────────────────────────
// Null-event detection
// ─────────────────────────────────────────────────────────────

func TestBlockMove_IsNull(t *testing.T) {
	ev := &events.BlockMove{
		Old: events.MoveAnchor{Point: geometry.NewPoint(10, 20)},
		New: events.MoveAnchor{Point: geometry.NewPoint(10, 20)},
	}
	if !ev.IsNull() {
		t.Error("identical anchors must be a null event")
	}

	ev.New.Point.X = 11
	if ev.IsNull() {
		t.Error("moved block must not be a null event")
	}

	ev.New.Point.X = 10
	ev.New.ParentID = "other"
	if ev.IsNull() {
		t.Error("replug with same position must not be a null event")
	}
}

func TestFrameChange_IsNull(t *testing.T) {
	r := geometry.NewRect(0, 0, 100, 100)
	same := &events.FrameChange{
		Element: events.ElementRect,
		Old:     events.FrameValue{Rect: &r},
		New:     events.FrameValue{Rect: &r},
	}
	if !same.IsNull() {
		t.Error("unchanged rect must be null")
	}

	r2 := geometry.NewRect(0, 0, 120, 100)
	diff := &events.FrameChange{
		Element: events.ElementRect,
		Old:     events.FrameValue{Rect: &r},
		New:     events.FrameValue{Rect: &r2},
	}
	if diff.IsNull() {
		t.Error("resized rect must not be null")
	}

	blocks := &events.FrameChange{
		Element: events.ElementBlocks,
		Old:     events.FrameValue{BlockIDs: []string{"a", "b"}},
		New:     events.FrameValue{BlockIDs: []string{"a"}},
	}
	if blocks.IsNull() {
		t.Error("membership change must not be null")
	}
}

func TestFrameRetitle_IsNull(t *testing.T) {
	ev := &events.FrameRetitle{Old: "loops", New: "loops"}
	if !ev.IsNull() {
		t.Error("same title must be null")
	}
}

// ─────────────────────────────────────────────────────────────
// Recorder
// ─────────────────────────────────────────────────────────────

func TestRecorder_GroupLifecycle(t *testing.T) {
	r := events.NewRecorder()
	if r.Group() != "" {
		t.Fatal("new recorder must have no open group")
	}

	r.SetGroup(true)
	first := r.Group()
	if first == "" {
		t.Fatal("SetGroup(true) must open a group")
	}

	// Re-opening keeps the existing group (nested gestures coalesce).
	r.SetGroup(true)
	if r.Group() != first {
		t.Error("nested SetGroup(true) must keep the outer group")
	}

	r.SetGroup(false)
	if r.Group() != "" {
		t.Error("SetGroup(false) must close the group")
	}

	r.SetGroup(true)
	if r.Group() == first {
		t.Error("a new group must get a fresh ID")
	}
}

func TestRecorder_DisableNesting(t *testing.T) {
	r := events.NewRecorder()
	r.Disable()
	r.Disable()
	r.Enable()
	if r.Enabled() {
		t.Error("one Enable must not lift two Disables")
	}
	r.Enable()
	if !r.Enabled() {
		t.Error("matched Enables must restore recording")
	}
	// Extra Enable is a no-op, not a negative counter.
	r.Enable()
	r.Disable()
	if r.Enabled() {
		t.Error("Disable after extra Enable must still suspend")
	}
}

// ─────────────────────────────────────────────────────────────
// Serialization
// ─────────────────────────────────────────────────────────────

func TestBlockMove_Record(t *testing.T) {
	ev := &events.BlockMove{
		Old: events.MoveAnchor{Point: geometry.NewPoint(1, 2)},
		New: events.MoveAnchor{ParentID: "p1", InputName: "SUBSTACK", Point: geometry.NewPoint(3, 4)},
	}
	ev.WorkspaceID = "ws"
	ev.TargetID = "b1"
	ev.Group = "g1"

	rec, err := ev.Record()
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.Kind != string(events.KindBlockMove) || rec.TargetID != "b1" || rec.GroupID != "g1" {
		t.Errorf("unexpected record header: %+v", rec)
	}

	var anchor events.MoveAnchor
	if err := json.Unmarshal([]byte(rec.NewJSON), &anchor); err != nil {
		t.Fatalf("decode new payload: %v", err)
	}
	if anchor.ParentID != "p1" || anchor.Point.X != 3 {
		t.Errorf("unexpected new anchor: %+v", anchor)
	}
}

func TestFrameChange_RecordCarriesElement(t *testing.T) {
	ev := &events.FrameChange{
		Element: events.ElementBlocks,
		Old:     events.FrameValue{BlockIDs: []string{"a"}},
		New:     events.FrameValue{BlockIDs: []string{"a", "b"}},
	}
	rec, err := ev.Record()
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.Element != string(events.ElementBlocks) {
		t.Errorf("expected element 'blocks', got %q", rec.Element)
	}
}

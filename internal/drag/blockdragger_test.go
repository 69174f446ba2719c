package drag_test

import (
	"testing"

	"blockwork/internal/drag"
	"blockwork/internal/events"
	"blockwork/internal/workspace"
	"blockwork/pkg/geometry"
)

func newDragWorkspace(t *testing.T, opts workspace.Options) (*workspace.Workspace, *events.MockEmitter) {
	t.Helper()
	em := &events.MockEmitter{}
	return workspace.New("ws-drag", opts, em), em
}

func countEmitted(em *events.MockEmitter, name string) int {
	n := 0
	for _, e := range em.Events {
		if e.Name == name {
			n++
		}
	}
	return n
}

// stubPreviewer records Update calls and returns scripted verdicts.
type stubPreviewer struct {
	wouldDelete  bool
	wouldConnect bool
	applied      bool
	lastRadius   float64
	updates      int
}

func (p *stubPreviewer) Update(_ geometry.Point, snapRadius float64, _ workspace.AreaKind, _ bool) {
	p.updates++
	p.lastRadius = snapRadius
}
func (p *stubPreviewer) WouldDeleteBlock() bool  { return p.wouldDelete }
func (p *stubPreviewer) WouldConnectBlock() bool { return p.wouldConnect }
func (p *stubPreviewer) ApplyConnections()       { p.applied = true }

func TestPreviewerGetsSnapRadiusAndDeleteVerdict(t *testing.T) {
	p := &stubPreviewer{wouldDelete: true}
	ws, _ := newDragWorkspace(t, workspace.Options{SnapRadius: 35})
	b := ws.CreateBlock("op", geometry.NewPoint(10, 10))

	d := drag.NewBlockDragger(ws, p, nil)
	d.StartDrag(b, geometry.NewPoint(10, 10), geometry.Point{})
	d.Drag(geometry.NewPoint(20, 20), geometry.NewPoint(10, 10))

	if p.updates == 0 {
		t.Fatal("previewer never updated during the drag")
	}
	if p.lastRadius != 35 {
		t.Fatalf("previewer got snap radius %v, want the configured 35", p.lastRadius)
	}
	if !d.WouldDelete() {
		t.Fatal("previewer delete verdict must count toward WouldDelete")
	}

	d.EndDrag(geometry.NewPoint(20, 20), geometry.NewPoint(10, 10), nil)
	if ws.BlockByID(b.ID()) != nil {
		t.Fatal("previewer delete verdict must count at the drop")
	}
}

func TestPickupOverTrashSeedsWouldDelete(t *testing.T) {
	trash := geometry.Rect{Left: 0, Top: 0, Right: 100, Bottom: 100}
	ws, _ := newDragWorkspace(t, workspace.Options{TrashArea: &trash})
	b := ws.CreateBlock("op", geometry.NewPoint(10, 10))

	d := drag.NewBlockDragger(ws, nil, nil)
	d.StartDrag(b, geometry.NewPoint(10, 10), geometry.Point{})
	if !d.WouldDelete() {
		t.Fatal("picked up over the trash, WouldDelete must be true before the first move")
	}
	d.EndDrag(geometry.NewPoint(300, 300), geometry.NewPoint(290, 290), nil)
	if ws.BlockByID(b.ID()) == nil {
		t.Fatal("dropped away from the trash must not delete")
	}
}

func TestDragMovesAndUndoesAsOneUnit(t *testing.T) {
	ws, _ := newDragWorkspace(t, workspace.Options{Scale: 2})
	b := ws.CreateBlock("op", geometry.NewPoint(10, 10))
	depth := ws.UndoDepth()

	d := drag.NewBlockDragger(ws, nil, nil)
	if !d.StartDrag(b, geometry.NewPoint(0, 0), geometry.NewPoint(0, 0)) {
		t.Fatal("start refused")
	}
	d.Drag(geometry.NewPoint(30, 40), geometry.NewPoint(30, 40))
	d.EndDrag(geometry.NewPoint(30, 40), geometry.NewPoint(30, 40), nil)

	// A 30x40 pixel delta at scale 2 is 15x20 workspace units.
	if !b.Position().Equals(geometry.NewPoint(25, 30)) {
		t.Fatalf("dropped at %v, want (25,30)", b.Position())
	}
	if ws.UndoDepth() != depth+1 {
		t.Fatalf("gesture recorded %d entries, want 1", ws.UndoDepth()-depth)
	}

	ws.Undo(false)
	if !b.Position().Equals(geometry.NewPoint(10, 10)) {
		t.Fatalf("undo put the block at %v, want (10,10)", b.Position())
	}
}

func TestStartUnplugsWithoutJump(t *testing.T) {
	ws, _ := newDragWorkspace(t, workspace.Options{})
	parent := ws.CreateBlock("p", geometry.NewPoint(0, 0))
	child := ws.CreateBlock("c", geometry.NewPoint(5, 30))
	if err := child.ConnectTo(parent, ""); err != nil {
		t.Fatal(err)
	}

	d := drag.NewBlockDragger(ws, nil, nil)
	// 8 pixels accumulated before the drag threshold tripped.
	d.StartDrag(child, geometry.NewPoint(0, 0), geometry.NewPoint(8, 0))

	if !child.IsTopLevel() {
		t.Fatal("dragged block still plugged in")
	}
	if !child.Position().Equals(geometry.NewPoint(13, 30)) {
		t.Fatalf("post-unplug position = %v, want pre-drag plus the threshold delta", child.Position())
	}
	d.EndDrag(geometry.NewPoint(0, 0), geometry.NewPoint(8, 0), nil)
}

func TestDragRefusedWhenLockedOrImmovable(t *testing.T) {
	ws, _ := newDragWorkspace(t, workspace.Options{})
	b := ws.CreateBlock("op", geometry.NewPoint(0, 0))
	d := drag.NewBlockDragger(ws, nil, nil)

	ws.Lock()
	if d.StartDrag(b, geometry.Point{}, geometry.Point{}) {
		t.Fatal("drag started on a locked workspace")
	}
	ws.Unlock()

	b.SetMovable(false)
	if d.StartDrag(b, geometry.Point{}, geometry.Point{}) {
		t.Fatal("drag started on an immovable block")
	}
}

func TestTentativeDeleteTracksPointer(t *testing.T) {
	trash := geometry.Rect{Left: 200, Top: 200, Right: 300, Bottom: 300}
	ws, _ := newDragWorkspace(t, workspace.Options{TrashArea: &trash})
	b := ws.CreateBlock("op", geometry.NewPoint(0, 0))

	d := drag.NewBlockDragger(ws, nil, nil)
	d.StartDrag(b, geometry.NewPoint(0, 0), geometry.Point{})

	d.Drag(geometry.NewPoint(250, 250), geometry.NewPoint(250, 250))
	if !d.WouldDelete() {
		t.Fatal("over the trash but WouldDelete is false")
	}
	d.Drag(geometry.NewPoint(50, 50), geometry.NewPoint(50, 50))
	if d.WouldDelete() {
		t.Fatal("left the trash but WouldDelete stuck")
	}
	if ws.BlockByID(b.ID()) == nil {
		t.Fatal("tentative determination deleted the block")
	}
	d.EndDrag(geometry.NewPoint(50, 50), geometry.NewPoint(50, 50), nil)
}

func TestDeleteDropUndoRestoresPreDragPosition(t *testing.T) {
	trash := geometry.Rect{Left: 200, Top: 200, Right: 300, Bottom: 300}
	ws, _ := newDragWorkspace(t, workspace.Options{TrashArea: &trash})
	b := ws.CreateBlock("op", geometry.NewPoint(10, 10))

	d := drag.NewBlockDragger(ws, nil, nil)
	d.StartDrag(b, geometry.NewPoint(0, 0), geometry.Point{})
	d.Drag(geometry.NewPoint(250, 250), geometry.NewPoint(250, 250))
	d.EndDrag(geometry.NewPoint(250, 250), geometry.NewPoint(250, 250), nil)

	if ws.BlockByID(b.ID()) != nil {
		t.Fatal("drop on the trash did not delete")
	}

	ws.Undo(false)
	restored := ws.BlockByID(b.ID())
	if restored == nil {
		t.Fatal("undo did not restore the deleted block")
	}
	if !restored.Position().Equals(geometry.NewPoint(10, 10)) {
		t.Fatalf("restored at %v, want the pre-drag (10,10), not the trash position", restored.Position())
	}
}

func TestDeleteDropUndoRestoresFrameMembership(t *testing.T) {
	trash := geometry.Rect{Left: 400, Top: 400, Right: 500, Bottom: 500}
	ws, _ := newDragWorkspace(t, workspace.Options{TrashArea: &trash})
	f := ws.CreateFrame("loops", geometry.Rect{Left: 0, Top: 0, Right: 200, Bottom: 200})
	b := ws.CreateBlock("op", geometry.NewPoint(50, 50))
	ws.RefreshFrameMemberships()
	if b.FrameID() != f.ID() {
		t.Fatal("fixture: block must start as a frame member")
	}

	d := drag.NewBlockDragger(ws, nil, nil)
	d.StartDrag(b, geometry.NewPoint(50, 50), geometry.Point{})
	d.Drag(geometry.NewPoint(400, 400), geometry.NewPoint(400, 400))
	d.EndDrag(geometry.NewPoint(450, 450), geometry.NewPoint(400, 400), nil)
	if ws.BlockByID(b.ID()) != nil {
		t.Fatal("drop on the trash did not delete")
	}

	ws.Undo(false)
	restored := ws.BlockByID(b.ID())
	if restored == nil {
		t.Fatal("undo did not restore the deleted block")
	}
	if !restored.Position().Equals(geometry.NewPoint(50, 50)) {
		t.Fatalf("restored at %v, want the pre-drag (50,50)", restored.Position())
	}
	if restored.FrameID() != f.ID() {
		t.Fatalf("restored FrameID = %q, want %q: undo must rebuild frame membership", restored.FrameID(), f.ID())
	}
	found := false
	for _, m := range f.Blocks() {
		if m.ID() == restored.ID() {
			found = true
		}
	}
	if !found {
		t.Fatal("frame does not list the restored block as a member")
	}
}

func TestToolboxDropHonorsPolicy(t *testing.T) {
	toolbox := geometry.Rect{Left: 0, Top: 0, Right: 100, Bottom: 600}
	ws, _ := newDragWorkspace(t, workspace.Options{ToolboxArea: &toolbox})
	b := ws.CreateBlock("op", geometry.NewPoint(300, 10))

	d := drag.NewBlockDragger(ws, nil, nil)
	d.StartDrag(b, geometry.NewPoint(300, 10), geometry.Point{})
	d.EndDrag(geometry.NewPoint(50, 50), geometry.NewPoint(-250, 40), nil)
	if ws.BlockByID(b.ID()) == nil {
		t.Fatal("toolbox drop deleted although ToolboxDeletes is off")
	}
}

func TestOutsideDropCancelsGesture(t *testing.T) {
	ws, _ := newDragWorkspace(t, workspace.Options{
		Viewport: geometry.Rect{Left: 0, Top: 0, Right: 1000, Bottom: 800},
	})
	b := ws.CreateBlock("op", geometry.NewPoint(10, 10))
	depth := ws.UndoDepth()

	d := drag.NewBlockDragger(ws, nil, nil)
	d.StartDrag(b, geometry.NewPoint(500, 400), geometry.Point{})
	d.Drag(geometry.NewPoint(1500, 400), geometry.NewPoint(1000, 0))
	d.EndDrag(geometry.NewPoint(1500, 400), geometry.NewPoint(1000, 0), nil)

	if !b.Position().Equals(geometry.NewPoint(10, 10)) {
		t.Fatalf("cancelled drag left the block at %v", b.Position())
	}
	if ws.UndoDepth() != depth {
		t.Fatalf("cancelled gesture left %d entries on the undo stack", ws.UndoDepth()-depth)
	}
}

func TestOutsideEventsFireOnEdgeTransitionsOnly(t *testing.T) {
	ws, em := newDragWorkspace(t, workspace.Options{
		Viewport: geometry.Rect{Left: 0, Top: 0, Right: 1000, Bottom: 800},
	})
	b := ws.CreateBlock("op", geometry.NewPoint(10, 10))

	d := drag.NewBlockDragger(ws, nil, nil)
	d.StartDrag(b, geometry.NewPoint(500, 400), geometry.Point{})
	d.Drag(geometry.NewPoint(1500, 400), geometry.NewPoint(1000, 0)) // out
	d.Drag(geometry.NewPoint(1600, 400), geometry.NewPoint(1100, 0)) // still out
	d.Drag(geometry.NewPoint(500, 400), geometry.NewPoint(0, 0))     // back in
	d.EndDrag(geometry.NewPoint(500, 400), geometry.NewPoint(0, 0), nil)

	if got := countEmitted(em, "event:drag_outside"); got != 2 {
		t.Fatalf("emitted %d outside transitions, want 2", got)
	}
}

func TestRecheckNilAbortsAndUnwinds(t *testing.T) {
	ws, _ := newDragWorkspace(t, workspace.Options{})
	b := ws.CreateBlock("op", geometry.NewPoint(10, 10))
	depth := ws.UndoDepth()

	d := drag.NewBlockDragger(ws, nil, nil)
	d.StartDrag(b, geometry.NewPoint(0, 0), geometry.Point{})
	d.Drag(geometry.NewPoint(100, 0), geometry.NewPoint(100, 0))
	d.EndDrag(geometry.NewPoint(100, 0), geometry.NewPoint(100, 0),
		func(*workspace.Block) *workspace.Block { return nil })

	if d.IsDragging() {
		t.Fatal("dragger stuck in the dragging state")
	}
	if ws.UndoDepth() != depth {
		t.Fatal("aborted gesture left events on the undo stack")
	}
}

func TestBatchDragSharesDeltaAndUndo(t *testing.T) {
	ws, _ := newDragWorkspace(t, workspace.Options{})
	a := ws.CreateBlock("a", geometry.NewPoint(0, 0))
	b := ws.CreateBlock("b", geometry.NewPoint(100, 0))
	c := ws.CreateBlock("c", geometry.NewPoint(200, 0))
	depth := ws.UndoDepth()

	d := drag.NewBlockDragger(ws, nil, nil)
	d.SetBatch([]*workspace.Block{b, c})
	d.StartDrag(a, geometry.NewPoint(0, 0), geometry.Point{})
	d.Drag(geometry.NewPoint(0, 50), geometry.NewPoint(0, 50))
	d.EndDrag(geometry.NewPoint(0, 50), geometry.NewPoint(0, 50), nil)

	for _, blk := range []*workspace.Block{a, b, c} {
		if blk.Position().Y != 50 {
			t.Fatalf("block %s at %v, want y=50", blk.ID(), blk.Position())
		}
	}
	if ws.UndoDepth() != depth+3 {
		t.Fatalf("batch gesture pushed %d entries, want 3 in one group", ws.UndoDepth()-depth)
	}

	ws.Undo(false)
	for _, blk := range []*workspace.Block{a, b, c} {
		if blk.Position().Y != 0 {
			t.Fatalf("block %s not restored by the single group undo", blk.ID())
		}
	}
}

func TestSnapToGridAfterDrop(t *testing.T) {
	ws, _ := newDragWorkspace(t, workspace.Options{GridSpacing: 40})
	b := ws.CreateBlock("op", geometry.NewPoint(0, 0))

	d := drag.NewBlockDragger(ws, nil, nil)
	d.StartDrag(b, geometry.NewPoint(0, 0), geometry.Point{})
	d.EndDrag(geometry.NewPoint(57, 63), geometry.NewPoint(57, 63), nil)

	if !b.Position().Equals(geometry.NewPoint(40, 80)) {
		t.Fatalf("dropped at %v, want the grid point (40,80)", b.Position())
	}
}

func TestAnchoredCommentsTrackTheStack(t *testing.T) {
	ws, _ := newDragWorkspace(t, workspace.Options{})
	b := ws.CreateBlock("op", geometry.NewPoint(0, 0))
	c := ws.CreateComment(b.ID(), "note", geometry.NewPoint(30, -10))

	d := drag.NewBlockDragger(ws, nil, nil)
	d.StartDrag(b, geometry.NewPoint(0, 0), geometry.Point{})
	d.Drag(geometry.NewPoint(20, 20), geometry.NewPoint(20, 20))
	d.EndDrag(geometry.NewPoint(20, 20), geometry.NewPoint(20, 20), nil)

	if !c.Position().Equals(geometry.NewPoint(50, 10)) {
		t.Fatalf("comment at %v, want (50,10)", c.Position())
	}
}

func TestDeletedCallbackRunsDeferred(t *testing.T) {
	trash := geometry.Rect{Left: 200, Top: 200, Right: 300, Bottom: 300}
	ws, _ := newDragWorkspace(t, workspace.Options{TrashArea: &trash})
	b := ws.CreateBlock("op", geometry.NewPoint(10, 10))

	var deletedID string
	var undo func()
	d := drag.NewBlockDragger(ws, nil, nil)
	d.OnDeleted = func(id string, u func()) { deletedID, undo = id, u }

	d.StartDrag(b, geometry.NewPoint(0, 0), geometry.Point{})
	d.EndDrag(geometry.NewPoint(250, 250), geometry.NewPoint(250, 250), nil)
	if deletedID != "" {
		t.Fatal("deletion callback ran synchronously")
	}

	ws.Tasks().Flush()
	if deletedID != b.ID() {
		t.Fatalf("callback got %q, want %q", deletedID, b.ID())
	}
	undo()
	if ws.BlockByID(b.ID()) == nil {
		t.Fatal("callback undo closure did not restore the block")
	}
}

func TestProcedureDeletionRollsBackWithOrphans(t *testing.T) {
	trash := geometry.Rect{Left: 200, Top: 200, Right: 300, Bottom: 300}
	ws, em := newDragWorkspace(t, workspace.Options{TrashArea: &trash})

	def := ws.CreateBlock(workspace.TypeProcedureDefinition, geometry.NewPoint(10, 10))
	def.SetProccode("jump %s")
	call := ws.CreateBlock(workspace.TypeProcedureCall, geometry.NewPoint(50, 50))
	call.SetProccode("jump %s")

	d := drag.NewBlockDragger(ws, nil, nil)
	d.StartDrag(def, geometry.NewPoint(0, 0), geometry.Point{})
	d.EndDrag(geometry.NewPoint(250, 250), geometry.NewPoint(250, 250), nil)
	if ws.BlockByID(def.ID()) != nil {
		t.Fatal("definition not deleted by the drop")
	}

	// The orphan check runs one tick later, after the graph settles.
	ws.Tasks().Flush()
	if ws.BlockByID(def.ID()) == nil {
		t.Fatal("deletion with live call sites was not rolled back")
	}
	if countEmitted(em, "procedure:deletion-rolled-back") != 1 {
		t.Fatal("rollback warning not emitted")
	}
}

func TestProcedureDeletionSticksWithoutCallers(t *testing.T) {
	trash := geometry.Rect{Left: 200, Top: 200, Right: 300, Bottom: 300}
	ws, em := newDragWorkspace(t, workspace.Options{TrashArea: &trash})

	def := ws.CreateBlock(workspace.TypeProcedureDefinition, geometry.NewPoint(10, 10))
	def.SetProccode("jump %s")

	d := drag.NewBlockDragger(ws, nil, nil)
	d.StartDrag(def, geometry.NewPoint(0, 0), geometry.Point{})
	d.EndDrag(geometry.NewPoint(250, 250), geometry.NewPoint(250, 250), nil)
	ws.Tasks().Flush()

	if ws.BlockByID(def.ID()) != nil {
		t.Fatal("caller-free deletion was rolled back")
	}
	if countEmitted(em, "procedure:deletion-rolled-back") != 0 {
		t.Fatal("spurious rollback warning")
	}
}

func TestGlobalProcedureChecksSiblingWorkspaces(t *testing.T) {
	trash := geometry.Rect{Left: 200, Top: 200, Right: 300, Bottom: 300}
	hub := workspace.NewHub()
	ws, _ := newDragWorkspace(t, workspace.Options{TrashArea: &trash})
	ws.SetHub(hub)
	sibling := workspace.New("ws-sibling", workspace.Options{}, nil)
	sibling.SetHub(hub)

	def := ws.CreateBlock(workspace.TypeProcedureDefinitionGlobal, geometry.NewPoint(10, 10))
	def.SetProccode("walk %s")
	call := sibling.CreateBlock(workspace.TypeProcedureCall, geometry.NewPoint(0, 0))
	call.SetProccode("walk %s")

	d := drag.NewBlockDragger(ws, nil, nil)
	d.StartDrag(def, geometry.NewPoint(0, 0), geometry.Point{})
	d.EndDrag(geometry.NewPoint(250, 250), geometry.NewPoint(250, 250), nil)
	ws.Tasks().Flush()

	if ws.BlockByID(def.ID()) == nil {
		t.Fatal("global deletion ignored the call site in the sibling workspace")
	}
}

package drag

import (
	"blockwork/internal/domain"
	"blockwork/internal/events"
	"blockwork/internal/workspace"
	"blockwork/pkg/geometry"
)

// FrameDragger runs the drag lifecycle for a frame: simpler than the block
// dragger (frames do not connect, so there is no negotiation) but it must
// shift every contained block and its icon bubbles in lockstep.
type FrameDragger struct {
	ws *workspace.Workspace

	// OnDeleted mirrors BlockDragger.OnDeleted for frame deletions.
	OnDeleted func(frameID string, undo func())

	frame        *workspace.Frame
	gestureGroup string
	dragging     bool
	outside      bool

	lastWU        geometry.Point
	memberAnchors map[string]events.MoveAnchor
	commentStarts map[string]geometry.Point

	batch []*batchBlock
}

// NewFrameDragger creates an idle frame dragger.
func NewFrameDragger(ws *workspace.Workspace) *FrameDragger {
	return &FrameDragger{ws: ws}
}

// IsDragging reports whether a gesture is in flight.
func (d *FrameDragger) IsDragging() bool { return d.dragging }

// SetBatch registers co-selected top-level blocks gathered for a
// multi-select drag; they move with the frame and are offered for disposal
// with it. Frame members are filtered out at StartDrag since they already
// ride along.
func (d *FrameDragger) SetBatch(blocks []*workspace.Block) {
	d.batch = nil
	for _, b := range blocks {
		if b != nil && b.IsTopLevel() {
			d.batch = append(d.batch, &batchBlock{block: b})
		}
	}
}

// StartDrag begins the gesture: raises the frame in z-order, suspends
// workspace auto-resize and snapshots member and bubble positions so they
// can be translated in lockstep. Membership is frozen until the drop.
func (d *FrameDragger) StartDrag(f *workspace.Frame, pointer geometry.Point) bool {
	if d.dragging || f == nil || d.ws.IsLocked() || f.IsLocked() {
		return false
	}
	if f.Lifecycle() != workspace.FrameIdle {
		return false
	}
	d.frame = f
	filtered := d.batch[:0]
	for _, m := range d.batch {
		if m.block.FrameID() != f.ID() {
			filtered = append(filtered, m)
		}
	}
	d.batch = filtered
	d.dragging = true
	d.outside = false
	d.lastWU = geometry.Point{}

	d.ws.Recorder().SetGroup(true)
	d.gestureGroup = d.ws.Recorder().Group()
	d.ws.BringFrameToFront(f)
	d.ws.SetResizesEnabled(false)
	f.BeginDrag()

	d.memberAnchors = make(map[string]events.MoveAnchor)
	d.commentStarts = make(map[string]geometry.Point)
	for _, b := range f.Blocks() {
		parentID, input, pos := b.Anchor()
		d.memberAnchors[b.ID()] = events.MoveAnchor{ParentID: parentID, InputName: input, Point: pos}
		for _, desc := range b.Descendants() {
			for _, c := range d.ws.CommentsForBlock(desc.ID()) {
				d.commentStarts[c.ID()] = c.Position()
			}
		}
	}
	for _, m := range d.batch {
		pID, input, p := m.block.Anchor()
		m.anchor = events.MoveAnchor{ParentID: pID, InputName: input, Point: p}
		m.startPos = p
	}
	return true
}

// Drag translates the rectangle and everything riding on it by the
// accumulated pixel delta. No delete-area or connection negotiation runs
// per move; only outside-viewport transitions are tracked.
func (d *FrameDragger) Drag(pointer, delta geometry.Point) bool {
	if !d.dragging {
		return false
	}
	wu := d.ws.WorkspaceUnits(delta)
	incr := wu.Sub(d.lastWU)
	d.lastWU = wu

	d.frame.MoveDuringDrag(incr)
	for id := range d.memberAnchors {
		if b := d.ws.BlockByID(id); b != nil {
			b.MoveBy(incr)
		}
	}
	for _, m := range d.batch {
		m.block.MoveTo(m.startPos.Add(wu))
	}
	for id, start := range d.commentStarts {
		if c := d.ws.CommentByID(id); c != nil {
			c.MoveBy(start.Add(wu).Sub(c.Position()))
		}
	}

	outside := !d.ws.InsideViewport(pointer)
	if outside != d.outside {
		d.outside = outside
		ev := &events.DragOutside{Outside: outside}
		d.ws.Recorder().Stamp(&ev.Base, d.ws.ID(), d.frame.ID())
		ev.RecordUndo = false
		d.ws.Fire(ev)
	}
	return outside
}

// EndDrag commits or cancels the gesture. A drop on a delete area disposes
// the frame, its members and any batch-dragged siblings as one undoable
// unit; a drop outside the viewport cancels the whole gesture.
func (d *FrameDragger) EndDrag(pointer, delta geometry.Point) {
	if !d.dragging {
		return
	}
	outside := d.Drag(pointer, delta)
	d.dragging = false

	frameID := d.frame.ID()
	endState := d.frame.State()
	var batchStates []domain.BlockState
	for _, m := range d.batch {
		batchStates = append(batchStates, m.block.State())
	}

	area := d.ws.DeleteAreaAt(pointer)
	deleted := d.ws.AreaDeletes(area) && d.frame.IsDeletable()

	// Commit the movement first, one consolidated move per member with the
	// old anchor from drag start, so that undoing a delete-drop walks the
	// frame and its blocks all the way back to their pre-drag positions.
	d.frame.EndDrag()
	for id, anchor := range d.memberAnchors {
		if b := d.ws.BlockByID(id); b != nil {
			d.ws.FireBlockMove(b, anchor)
		}
	}
	for _, m := range d.batch {
		d.ws.FireBlockMove(m.block, m.anchor)
	}

	if deleted {
		for _, m := range d.batch {
			if m.block.IsDeletable() {
				d.ws.DisposeBlock(m.block)
			}
		}
		d.frame.Dispose(false)
	}

	// Diagnostic end-drag snapshot for persistence and collaboration.
	snap := &events.FrameEndDrag{
		Frames: []domain.FrameState{endState},
		Blocks: batchStates,
	}
	d.ws.Recorder().Stamp(&snap.Base, d.ws.ID(), frameID)
	snap.RecordUndo = false
	d.ws.Fire(snap)

	d.ws.SetResizesEnabled(true)
	d.ws.RefreshFrameMemberships()
	d.ws.Recorder().SetGroup(false)

	if outside {
		// Same policy as block drags: out of the viewport is a cancel.
		if d.gestureGroup != "" && d.ws.TopUndoGroup() == d.gestureGroup {
			d.ws.Undo(false)
		}
		d.reset()
		return
	}
	if deleted && d.OnDeleted != nil {
		ws := d.ws
		cb := d.OnDeleted
		ws.Tasks().Defer("notify-frame-deletion", func() {
			cb(frameID, func() { ws.Undo(false) })
		})
	}
	d.reset()
}

func (d *FrameDragger) reset() {
	d.frame = nil
	d.batch = nil
	d.memberAnchors = nil
	d.commentStarts = nil
	d.outside = false
	d.gestureGroup = ""
	d.lastWU = geometry.Point{}
}

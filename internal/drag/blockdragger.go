package drag

import (
	"log"
	"math"

	"blockwork/internal/events"
	"blockwork/internal/workspace"
	"blockwork/pkg/geometry"
)

// BlockDragger runs the drag lifecycle for one block stack: start, step,
// end. It owns no rendering; the gesture recognizer feeds it pointer
// positions and accumulated pixel deltas.
//
// States: Idle → Dragging → (Deleted | Placed) → Idle.
type BlockDragger struct {
	ws        *workspace.Workspace
	previewer ConnectionPreviewer
	surface   DragSurface

	// OnDeleted, when set, is notified (deferred, after the gesture
	// settles) with the deleted block's ID and an undo closure.
	OnDeleted func(blockID string, undo func())

	block        *workspace.Block
	startID      string
	gestureGroup string
	dragging     bool

	startAnchor   events.MoveAnchor
	startPos      geometry.Point
	commentStarts map[string]geometry.Point

	startedOverDelete bool
	wouldDelete       bool
	outside           bool

	batch []*batchBlock
}

type batchBlock struct {
	block    *workspace.Block
	startPos geometry.Point
	anchor   events.MoveAnchor
}

// NewBlockDragger creates an idle dragger bound to a workspace. Nil
// previewer/surface default to no-ops.
func NewBlockDragger(ws *workspace.Workspace, previewer ConnectionPreviewer, surface DragSurface) *BlockDragger {
	if previewer == nil {
		previewer = NopPreviewer{}
	}
	if surface == nil {
		surface = NopSurface{}
	}
	return &BlockDragger{ws: ws, previewer: previewer, surface: surface}
}

// IsDragging reports whether a gesture is in flight.
func (d *BlockDragger) IsDragging() bool { return d.dragging }

// SetBatch registers co-selected top-level blocks that move with the
// primary block, sharing its delta. Must be called before StartDrag.
func (d *BlockDragger) SetBatch(blocks []*workspace.Block) {
	d.batch = nil
	for _, b := range blocks {
		if b != nil && b.IsTopLevel() {
			d.batch = append(d.batch, &batchBlock{block: b})
		}
	}
}

// StartDrag begins the gesture. No-op when the workspace is locked, the
// block is not movable, or a gesture is already in flight. The pixel delta
// already accumulated before the drag threshold was crossed is applied so
// the block does not jump.
func (d *BlockDragger) StartDrag(b *workspace.Block, pointer, delta geometry.Point) bool {
	if d.dragging || b == nil || d.ws.IsLocked() || !b.IsMovable() {
		return false
	}
	d.block = b
	d.startID = b.ID()
	d.dragging = true
	d.outside = false

	// Every sub-event of the gesture coalesces into one undo unit.
	d.ws.Recorder().SetGroup(true)
	d.gestureGroup = d.ws.Recorder().Group()
	d.ws.SetResizesEnabled(false)

	parentID, inputName, pos := b.Anchor()
	d.startAnchor = events.MoveAnchor{ParentID: parentID, InputName: inputName, Point: pos}

	// A plugged block is unplugged first and translated to its pre-drag
	// absolute position plus the accumulated delta, to avoid a visual
	// jump.
	if !b.IsTopLevel() {
		b.Unplug()
		b.MoveTo(pos.Add(d.ws.WorkspaceUnits(delta)))
	}
	// Later moves add the live delta to the pre-drag position, so the
	// threshold translate above is not counted twice.
	d.startPos = pos

	d.commentStarts = make(map[string]geometry.Point)
	for _, desc := range b.Descendants() {
		for _, c := range d.ws.CommentsForBlock(desc.ID()) {
			d.commentStarts[c.ID()] = c.Position()
		}
	}

	for _, m := range d.batch {
		pID, input, p := m.block.Anchor()
		m.anchor = events.MoveAnchor{ParentID: pID, InputName: input, Point: p}
		m.startPos = p
	}

	b.SetDragging(true)
	d.surface.MoveToDragSurface(b)
	// Seed the tentative verdict so WouldDelete is right before the first
	// move; picking a block up over the trash already styles the cursor.
	d.startedOverDelete = d.ws.DeleteAreaAt(pointer) != workspace.AreaNone
	d.wouldDelete = d.startedOverDelete && b.IsDeletable()
	return true
}

// Drag is called on every pointer move. Returns whether the pointer is
// currently outside the injection viewport so the gesture recognizer can
// decide whether to keep tracking.
func (d *BlockDragger) Drag(pointer, delta geometry.Point) bool {
	if !d.dragging {
		return false
	}
	wu := d.ws.WorkspaceUnits(delta)

	// Move the stack; connections are not resolved until the drop.
	d.block.MoveTo(d.startPos.Add(wu))
	for _, m := range d.batch {
		m.block.MoveTo(m.startPos.Add(wu))
	}

	// Open icon bubbles track the stack.
	for id, start := range d.commentStarts {
		if c := d.ws.CommentByID(id); c != nil {
			c.MoveBy(start.Add(wu).Sub(c.Position()))
		}
	}

	area := d.ws.DeleteAreaAt(pointer)
	outside := !d.ws.InsideViewport(pointer)
	d.previewer.Update(wu, d.ws.Options().SnapRadius, area, outside)

	// Tentative delete eligibility, re-evaluated on every move. The
	// previewer's verdict counts: a preview that would orphan the stack
	// deletes it even away from a delete area.
	d.wouldDelete = d.block.IsDeletable() &&
		(d.ws.AreaDeletes(area) || d.previewer.WouldDeleteBlock())

	// Outside/inside notifications fire on edge transitions only.
	if outside != d.outside {
		d.outside = outside
		d.fireUI(&events.DragOutside{Outside: outside})
	}
	return outside
}

// WouldDelete reports the tentative per-move delete eligibility, consumed
// by the cursor-styling layer.
func (d *BlockDragger) WouldDelete() bool { return d.wouldDelete }

// EndDrag finishes the gesture. The recheck callback, when supplied, runs
// before connection application and before frame-membership recomputation:
// a collaborative peer may have mutated the dragged subtree mid-gesture,
// and a connection must never be applied against foreign state.
func (d *BlockDragger) EndDrag(pointer, delta geometry.Point, recheck RecheckFunc) {
	if !d.dragging {
		return
	}
	// One final step guarantees fresh internal state; the up-event delta
	// can differ from the last move's.
	outside := d.Drag(pointer, delta)
	d.dragging = false

	if recheck != nil {
		d.block = recheck(d.block)
	}
	if d.block == nil {
		// The peer deleted the block out from under us; nothing left to
		// place. Unwind whatever the gesture already recorded.
		d.finishCancelled()
		return
	}

	deleted := d.maybeDelete(pointer)
	if !deleted {
		d.block.SetDragging(false)
		d.surface.MoveOffDragSurface(d.block, d.block.Position())

		if recheck != nil {
			d.block = recheck(d.block)
		}

		if d.block != nil {
			d.snapToGrid(d.block)
			// The consolidated move event fires only if the block's
			// identity survived the rechecks.
			if d.block.ID() == d.startID {
				d.ws.FireBlockMove(d.block, d.startAnchor)
			}
			if d.previewer.WouldConnectBlock() {
				d.previewer.ApplyConnections()
			}
			d.bumpNeighbours(d.block)
		}
		for _, m := range d.batch {
			d.snapToGrid(m.block)
			d.ws.FireBlockMove(m.block, m.anchor)
		}
	}

	// One block move can evict from one frame and admit into another, so
	// membership is recomputed for the whole workspace, not incrementally.
	d.ws.RefreshFrameMemberships()
	d.ws.SetResizesEnabled(true)
	d.ws.Recorder().SetGroup(false)

	if outside {
		// Dragging out of the editor viewport is a cancel, not a delete.
		d.cancelGesture()
		d.reset()
		return
	}

	if deleted {
		d.notifyDeletionDeferred()
	}
	d.reset()
}

func (d *BlockDragger) finishCancelled() {
	d.ws.RefreshFrameMemberships()
	d.ws.SetResizesEnabled(true)
	d.ws.Recorder().SetGroup(false)
	d.cancelGesture()
	d.reset()
}

// cancelGesture unwinds the gesture's event group. A gesture that recorded
// nothing leaves the stacks alone.
func (d *BlockDragger) cancelGesture() {
	if d.gestureGroup != "" && d.ws.TopUndoGroup() == d.gestureGroup {
		d.ws.Undo(false)
	}
}

func (d *BlockDragger) reset() {
	d.block = nil
	d.batch = nil
	d.commentStarts = nil
	d.gestureGroup = ""
	d.wouldDelete = false
	d.outside = false
}

// maybeDelete performs the final delete determination and, for procedure
// definitions, schedules the orphan-call-site validation that can roll the
// deletion back.
func (d *BlockDragger) maybeDelete(pointer geometry.Point) bool {
	area := d.ws.DeleteAreaAt(pointer)
	if !d.block.IsDeletable() {
		return false
	}
	if !d.ws.AreaDeletes(area) && !d.previewer.WouldDeleteBlock() {
		return false
	}

	typ := d.block.Type()
	proccode := d.block.Proccode()
	blockID := d.block.ID()

	// Record the movement before the dispose so undoing the deletion
	// walks the stack back to its pre-drag anchor, not the trash can.
	d.ws.FireBlockMove(d.block, d.startAnchor)
	d.ws.DisposeBlock(d.block)
	for _, m := range d.batch {
		if m.block.IsDeletable() {
			d.ws.FireBlockMove(m.block, m.anchor)
			d.ws.DisposeBlock(m.block)
		}
	}

	// Orphan validation is deferred one tick: connection and graph state
	// must settle post-dispose before call sites can be enumerated.
	if typ == workspace.TypeProcedureDefinition || typ == workspace.TypeProcedureDefinitionGlobal {
		global := typ == workspace.TypeProcedureDefinitionGlobal
		ws := d.ws
		group := d.gestureGroup
		ws.Tasks().Defer("validate-procedure-deletion", func() {
			if proccode == "" {
				return
			}
			callers := ws.CallersOf(proccode, global)
			if len(callers) == 0 {
				return
			}
			if ws.DefinitionFor(proccode, blockID, global) != nil {
				return
			}
			if group == "" || ws.TopUndoGroup() != group {
				log.Printf("drag: deletion of %s no longer undoable, orphan rollback skipped", blockID)
				return
			}
			// Live call sites with no surviving definition: roll the
			// deletion back and warn instead of orphaning them.
			ws.Undo(false)
			ws.Notify("procedure:deletion-rolled-back", map[string]any{
				"blockId":  blockID,
				"proccode": proccode,
				"callers":  len(callers),
			})
		})
	}
	return true
}

func (d *BlockDragger) notifyDeletionDeferred() {
	if d.OnDeleted == nil {
		return
	}
	ws := d.ws
	blockID := d.startID
	cb := d.OnDeleted
	ws.Tasks().Defer("notify-deletion", func() {
		cb(blockID, func() { ws.Undo(false) })
	})
}

func (d *BlockDragger) snapToGrid(b *workspace.Block) {
	spacing := d.ws.Options().GridSpacing
	if spacing <= 0 || !b.IsTopLevel() {
		return
	}
	p := b.Position()
	b.MoveTo(geometry.NewPoint(
		math.Round(p.X/spacing)*spacing,
		math.Round(p.Y/spacing)*spacing,
	))
}

// bumpNeighbours nudges overlapping top-level stacks away from the dropped
// block so nothing lands exactly on top of it. Runs inside the gesture
// group so the nudges undo with the drop.
func (d *BlockDragger) bumpNeighbours(b *workspace.Block) {
	spacing := d.ws.Options().GridSpacing
	if spacing <= 0 {
		return
	}
	for _, other := range d.ws.TopBlocks() {
		if other == b || other.IsDragging() {
			continue
		}
		if other.Position().Distance(b.Position()) >= spacing/2 {
			continue
		}
		_, _, pos := other.Anchor()
		old := events.MoveAnchor{Point: pos}
		other.MoveBy(geometry.NewPoint(spacing, spacing))
		d.ws.FireBlockMove(other, old)
	}
}

func (d *BlockDragger) fireUI(ev *events.DragOutside) {
	d.ws.Recorder().Stamp(&ev.Base, d.ws.ID(), d.startID)
	ev.RecordUndo = false
	d.ws.Fire(ev)
}

package workspace

import (
	"log"
	"sort"

	"blockwork/internal/domain"
	"blockwork/internal/events"
	"blockwork/pkg/geometry"
)

// TitleHeight is the frame title-bar height in workspace units. The content
// rectangle a block must fall into is the frame rect shifted down by this
// amount.
const TitleHeight = 24

// FrameLifecycle is the frame's gesture state.
type FrameLifecycle int

const (
	FrameIdle FrameLifecycle = iota
	FrameDragging
	FrameResizing
	FrameDisposed
)

// Corner identifies which resize handle a resize gesture grabbed.
type Corner int

const (
	CornerTopLeft Corner = iota
	CornerTopRight
	CornerBottomLeft
	CornerBottomRight
)

// Frame is a rectangular grouping region owning a membership set of
// top-level blocks. Membership is decided by point-in-rectangle tests on
// the blocks' top-left corners; the workspace owns the blocks themselves.
type Frame struct {
	id    string
	ws    *Workspace
	title string
	color string

	rect    geometry.Rect
	blockDB map[string]*Block

	editable  bool
	deletable bool
	collapsed bool
	locked    bool

	state FrameLifecycle

	// Resize gesture bookkeeping.
	resizeCorner  Corner
	gestureORect  geometry.Rect // rect at gesture start
	gestureBlocks []string      // membership at gesture start, sorted
}

// ID returns the frame's unique ID.
func (f *Frame) ID() string { return f.id }

// Title returns the frame title.
func (f *Frame) Title() string { return f.title }

// Color returns the frame accent color.
func (f *Frame) Color() string { return f.color }

// Rect returns the frame rectangle in workspace units.
func (f *Frame) Rect() geometry.Rect { return f.rect }

// Lifecycle returns the frame's gesture state.
func (f *Frame) Lifecycle() FrameLifecycle { return f.state }

// IsEditable reports whether the frame title/flags may be edited.
func (f *Frame) IsEditable() bool { return f.editable }

// IsDeletable reports whether the frame may be dropped on a delete area.
func (f *Frame) IsDeletable() bool { return f.deletable }

// IsCollapsed reports the collapsed flag.
func (f *Frame) IsCollapsed() bool { return f.collapsed }

// IsLocked reports the locked flag.
func (f *Frame) IsLocked() bool { return f.locked }

// BlockIDs returns the member block IDs, sorted for determinism.
func (f *Frame) BlockIDs() []string {
	ids := make([]string, 0, len(f.blockDB))
	for id := range f.blockDB {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Blocks returns the member blocks.
func (f *Frame) Blocks() []*Block {
	out := make([]*Block, 0, len(f.blockDB))
	for _, id := range f.BlockIDs() {
		out = append(out, f.blockDB[id])
	}
	return out
}

// BoundingRect returns the rect including the title bar.
func (f *Frame) BoundingRect() geometry.Rect {
	r := f.rect
	r.Top -= TitleHeight
	return r
}

// contentContains applies the membership rule: the block's top-left point
// must lie strictly inside the content rectangle, which is the frame rect
// shifted down by the title height.
func (f *Frame) contentContains(p geometry.Point) bool {
	return p.X > f.rect.Left && p.X < f.rect.Right &&
		p.Y > f.rect.Top+TitleHeight && p.Y < f.rect.Bottom+TitleHeight
}

// RequestMoveInBlock adds a candidate block to the frame if it qualifies:
// top-level, positioned inside the content rect, and not already owned by
// another frame (members are never stolen). Returns whether the block is a
// member afterwards.
func (f *Frame) RequestMoveInBlock(b *Block) bool {
	if f.state == FrameDisposed || b == nil {
		return false
	}
	if b.frameID != "" && b.frameID != f.id {
		return false
	}
	if !b.IsTopLevel() || !f.contentContains(b.position) {
		// A block that stopped qualifying is evicted rather than kept.
		f.RequestMoveOutBlock(b)
		return false
	}
	if _, ok := f.blockDB[b.id]; !ok {
		f.blockDB[b.id] = b
		b.frameID = f.id
	}
	return true
}

// RequestMoveOutBlock removes a block from the membership set. No-op if the
// block is not a member.
func (f *Frame) RequestMoveOutBlock(b *Block) {
	if b == nil {
		return
	}
	if _, ok := f.blockDB[b.id]; !ok {
		return
	}
	delete(f.blockDB, b.id)
	if b.frameID == f.id {
		b.frameID = ""
	}
}

// UpdateOwnedBlocks re-scans membership from scratch: evicts members that
// moved outside or gained a parent, then adopts any unowned top-level block
// whose position falls inside. Fires a FrameChange('blocks') when the set
// changed. Idempotent when nothing moved.
func (f *Frame) UpdateOwnedBlocks() {
	if f.state == FrameDisposed {
		return
	}
	old := f.BlockIDs()

	for _, b := range f.Blocks() {
		if !b.IsTopLevel() || !f.contentContains(b.position) {
			f.RequestMoveOutBlock(b)
		}
	}
	for _, b := range f.ws.TopBlocks() {
		if b.frameID == "" && f.contentContains(b.position) {
			f.RequestMoveInBlock(b)
		}
	}

	f.fireBlocksChange(old, f.BlockIDs())
}

func (f *Frame) fireBlocksChange(old, new []string) {
	ev := &events.FrameChange{
		Element: events.ElementBlocks,
		Old:     events.FrameValue{BlockIDs: old},
		New:     events.FrameValue{BlockIDs: new},
	}
	f.ws.stamp(&ev.Base, f.id)
	f.ws.Fire(ev)
}

func (f *Frame) fireRectChange(old geometry.Rect) {
	oldCopy, newCopy := old, f.rect
	ev := &events.FrameChange{
		Element: events.ElementRect,
		Old:     events.FrameValue{Rect: &oldCopy},
		New:     events.FrameValue{Rect: &newCopy},
	}
	f.ws.stamp(&ev.Base, f.id)
	f.ws.Fire(ev)
}

// SetTitle retitles the frame, firing a FrameRetitle event.
func (f *Frame) SetTitle(title string) {
	if f.state == FrameDisposed || !f.editable {
		return
	}
	old := f.title
	f.title = title
	ev := &events.FrameRetitle{Old: old, New: title}
	f.ws.stamp(&ev.Base, f.id)
	f.ws.Fire(ev)
}

// SetColor changes the frame accent color.
func (f *Frame) SetColor(color string) {
	if f.state == FrameDisposed {
		return
	}
	old := f.color
	f.color = color
	ev := &events.FrameChange{
		Element: events.ElementColor,
		Old:     events.FrameValue{Color: old},
		New:     events.FrameValue{Color: color},
	}
	f.ws.stamp(&ev.Base, f.id)
	f.ws.Fire(ev)
}

// SetCollapsed toggles the collapsed flag.
func (f *Frame) SetCollapsed(collapsed bool) {
	f.setFlag(events.ElementCollapsed, &f.collapsed, collapsed)
}

// SetLocked toggles the locked flag.
func (f *Frame) SetLocked(locked bool) {
	f.setFlag(events.ElementLocked, &f.locked, locked)
}

func (f *Frame) setFlag(el events.Element, field *bool, v bool) {
	if f.state == FrameDisposed {
		return
	}
	old := *field
	*field = v
	oldV, newV := old, v
	ev := &events.FrameChange{
		Element: el,
		Old:     events.FrameValue{Flag: &oldV},
		New:     events.FrameValue{Flag: &newV},
	}
	f.ws.stamp(&ev.Base, f.id)
	f.ws.Fire(ev)
}

// ── Move protocol ──────────────────────────────────────────

// BeginDrag transitions the frame into the Dragging state and freezes
// membership for the duration of the gesture.
func (f *Frame) BeginDrag() {
	if f.state != FrameIdle {
		return
	}
	f.state = FrameDragging
	f.gestureORect = f.rect
	f.gestureBlocks = f.BlockIDs()
}

// MoveDuringDrag translates the rectangle by a workspace-unit delta without
// re-evaluating membership. Continuous re-scan while the frame itself moves
// would make blocks pop in and out mid-gesture; membership is re-scanned
// once at drag end.
func (f *Frame) MoveDuringDrag(delta geometry.Point) {
	if f.state != FrameDragging {
		return
	}
	f.rect = f.rect.Translate(delta)
}

// EndDrag leaves the Dragging state, fires the consolidated rect change and
// re-scans membership.
func (f *Frame) EndDrag() {
	if f.state != FrameDragging {
		return
	}
	f.state = FrameIdle
	f.fireRectChange(f.gestureORect)
	f.UpdateOwnedBlocks()
}

// MoveBy translates an idle frame immediately, firing the rect change. Used
// by non-gesture movers (replay, remote peers).
func (f *Frame) MoveBy(delta geometry.Point) {
	if f.state != FrameIdle {
		return
	}
	old := f.rect
	f.rect = f.rect.Translate(delta)
	f.fireRectChange(old)
	f.UpdateOwnedBlocks()
}

// ── Resize protocol ────────────────────────────────────────

// BeginResize starts a corner-resize gesture. Workspace auto-resize is
// suspended until EndResize.
func (f *Frame) BeginResize(corner Corner) {
	if f.state != FrameIdle {
		return
	}
	f.state = FrameResizing
	f.resizeCorner = corner
	f.gestureORect = f.rect
	f.ws.setResizesEnabled(false)
}

// ResizeBy applies a pointer delta in device pixels to the two edges the
// grabbed corner controls. The rect may become inverted mid-gesture; it is
// normalized at EndResize. Member blocks hold absolute workspace
// coordinates, so they stay put while only the rectangle moves.
func (f *Frame) ResizeBy(pixelDelta geometry.Point) {
	if f.state != FrameResizing {
		return
	}
	d := f.ws.WorkspaceUnits(pixelDelta)
	switch f.resizeCorner {
	case CornerTopLeft:
		f.rect.Left += d.X
		f.rect.Top += d.Y
	case CornerTopRight:
		f.rect.Right += d.X
		f.rect.Top += d.Y
	case CornerBottomLeft:
		f.rect.Left += d.X
		f.rect.Bottom += d.Y
	case CornerBottomRight:
		f.rect.Right += d.X
		f.rect.Bottom += d.Y
	}
}

// EndResize normalizes the rectangle, re-scans membership, fires the rect
// change and re-enables workspace auto-resize.
func (f *Frame) EndResize() {
	if f.state != FrameResizing {
		return
	}
	f.state = FrameIdle
	f.rect = f.rect.Normalized()
	f.UpdateOwnedBlocks()
	f.fireRectChange(f.gestureORect)
	f.ws.setResizesEnabled(true)
}

// ── Disposal ───────────────────────────────────────────────

// Dispose destroys the frame. Member blocks are disposed with it unless
// retainBlocks releases them to plain top-level status. Disposing a frame
// with an active drag or resize on its children is undefined; callers must
// finish the gesture first.
func (f *Frame) Dispose(retainBlocks bool) {
	if f.state == FrameDisposed {
		return
	}
	if _, ok := f.ws.frameDB[f.id]; !ok {
		log.Printf("workspace: dispose of unregistered frame %s skipped", f.id)
		return
	}

	st := f.State()
	members := f.Blocks()
	for _, b := range members {
		if retainBlocks {
			f.RequestMoveOutBlock(b)
		} else {
			// DisposeBlock snapshots the block before unregistering it,
			// so the delete event keeps the membership reference undo
			// needs to rebuild the frame's contents.
			f.ws.DisposeBlock(b)
		}
	}

	f.state = FrameDisposed
	f.ws.removeFrame(f)

	ev := &events.FrameDelete{State: st, RetainBlocks: retainBlocks}
	f.ws.stamp(&ev.Base, f.id)
	f.ws.Fire(ev)
}

// State snapshots the frame for event payloads and the journal.
func (f *Frame) State() domain.FrameState {
	return domain.FrameState{
		ID:        f.id,
		Title:     f.title,
		Rect:      f.rect,
		Color:     f.color,
		BlockIDs:  f.BlockIDs(),
		Collapsed: f.collapsed,
		Locked:    f.locked,
	}
}

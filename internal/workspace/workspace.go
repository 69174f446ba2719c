// Package workspace implements the editor core's aggregate root: the block
// and frame registries, the spatial containment engine, the symbol tables,
// and the event-sourced undo/redo stacks. Draggers mutate state exclusively
// through this package so that every structural change produces a
// reversible event.
package workspace

import (
	"context"
	"log"

	"github.com/google/uuid"

	"blockwork/internal/domain"
	"blockwork/internal/events"
	"blockwork/internal/sched"
	"blockwork/pkg/geometry"
)

// DefaultMaxUndo caps the undo stack. Exceeding the cap drops the oldest
// entries.
const DefaultMaxUndo = 1024

// AreaKind classifies what kind of drop zone a pointer position hits.
type AreaKind int

const (
	AreaNone AreaKind = iota
	AreaTrash
	AreaToolbox
)

// Options configures a workspace. Zero values get sensible defaults.
type Options struct {
	// Scale is the visual zoom factor; must be > 0.
	Scale float64
	// MaxUndo bounds the undo stack; 0 means DefaultMaxUndo.
	MaxUndo int
	// TrashArea and ToolboxArea are delete zones in device-pixel
	// coordinates. Nil disables the zone.
	TrashArea   *geometry.Rect
	ToolboxArea *geometry.Rect
	// ToolboxDeletes controls whether a drop on the toolbox deletes.
	ToolboxDeletes bool
	// Viewport is the injection viewport in device pixels. A pointer
	// outside it during a drag triggers the outside/inside transition
	// events; a drop outside cancels the gesture. The zero rect means
	// "everything is inside".
	Viewport geometry.Rect
	// SnapRadius is the connection snap distance handed to the
	// negotiation engine, in workspace units.
	SnapRadius float64
	// GridSpacing is the snap-to-grid pitch applied after a drop; 0
	// disables snapping.
	GridSpacing float64
}

func (o Options) withDefaults() Options {
	if o.Scale <= 0 {
		o.Scale = 1
	}
	if o.MaxUndo <= 0 {
		o.MaxUndo = DefaultMaxUndo
	}
	if o.SnapRadius <= 0 {
		o.SnapRadius = 20
	}
	return o
}

// Workspace is the aggregate root. All mutation happens on the gesture
// goroutine or through event replay; there is no internal locking, ordering
// invariants substitute for locks.
type Workspace struct {
	id   string
	opts Options

	parent *Workspace // non-nil for mutator workspaces

	topBlocks []*Block
	topFrames []*Frame // back-to-front; the last entry is frontmost

	blockDB   map[string]*Block
	frameDB   map[string]*Frame
	commentDB map[string]*Comment

	variables map[string]*domain.VariableState

	undoStack []events.Event
	redoStack []events.Event

	rec     *events.Recorder
	emitter events.Emitter
	journal domain.JournalStore
	tasks   *sched.Queue
	hub     *Hub

	selection      string
	locked         bool
	resizesEnabled bool
}

// New creates a workspace.
func New(id string, opts Options, emitter events.Emitter) *Workspace {
	if id == "" {
		id = uuid.New().String()
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Workspace{
		id:             id,
		opts:           opts.withDefaults(),
		blockDB:        make(map[string]*Block),
		frameDB:        make(map[string]*Frame),
		commentDB:      make(map[string]*Comment),
		variables:      make(map[string]*domain.VariableState),
		rec:            events.NewRecorder(),
		emitter:        emitter,
		tasks:          sched.New(),
		resizesEnabled: true,
	}
}

// NewMutator creates a nested mutator workspace. Mutator workspaces render
// at scale 1 regardless of zoom; coordinate transforms use the parent's
// scale instead.
func NewMutator(parent *Workspace, id string) *Workspace {
	ws := New(id, Options{Scale: 1, MaxUndo: parent.opts.MaxUndo}, parent.emitter)
	ws.parent = parent
	ws.hub = parent.hub
	return ws
}

// ID returns the workspace ID.
func (ws *Workspace) ID() string { return ws.id }

// Scale returns the visual zoom factor.
func (ws *Workspace) Scale() float64 { return ws.opts.Scale }

// SetScale changes the zoom factor. Ignores non-positive values.
func (ws *Workspace) SetScale(s float64) {
	if s > 0 {
		ws.opts.Scale = s
	}
}

// Options returns the workspace options.
func (ws *Workspace) Options() Options { return ws.opts }

// IsMutator reports whether this is a nested mutator workspace.
func (ws *Workspace) IsMutator() bool { return ws.parent != nil }

// Recorder returns the event recorder owned by this workspace.
func (ws *Workspace) Recorder() *events.Recorder { return ws.rec }

// Tasks returns the deferred-task queue. Production code starts it once;
// tests flush it explicitly.
func (ws *Workspace) Tasks() *sched.Queue { return ws.tasks }

// SetJournal attaches an event journal; every fired event is appended.
func (ws *Workspace) SetJournal(j domain.JournalStore) { ws.journal = j }

// SetHub registers the workspace with a hub of sibling workspaces, used by
// global-procedure validation.
func (ws *Workspace) SetHub(h *Hub) {
	ws.hub = h
	h.add(ws)
}

// Hub returns the sibling hub, or nil.
func (ws *Workspace) Hub() *Hub { return ws.hub }

// Lock freezes the workspace; draggers refuse to start while locked.
func (ws *Workspace) Lock() { ws.locked = true }

// Unlock unfreezes the workspace.
func (ws *Workspace) Unlock() { ws.locked = false }

// IsLocked reports whether the workspace is globally locked.
func (ws *Workspace) IsLocked() bool { return ws.locked }

// WorkspaceUnits converts a device-pixel delta to workspace units,
// applying the mutator parent-scale correction.
func (ws *Workspace) WorkspaceUnits(pixel geometry.Point) geometry.Point {
	parentScale := 0.0
	if ws.parent != nil {
		parentScale = ws.parent.Scale()
	}
	return geometry.WorkspaceUnits(pixel, ws.opts.Scale, ws.IsMutator(), parentScale)
}

// ── Delete areas and viewport ──────────────────────────────

// DeleteAreaAt classifies a pointer position (device pixels) against the
// configured drop zones.
func (ws *Workspace) DeleteAreaAt(p geometry.Point) AreaKind {
	if ws.opts.TrashArea != nil && ws.opts.TrashArea.ContainsStrict(p) {
		return AreaTrash
	}
	if ws.opts.ToolboxArea != nil && ws.opts.ToolboxArea.ContainsStrict(p) {
		return AreaToolbox
	}
	return AreaNone
}

// AreaDeletes reports whether a drop on the given area deletes the dragged
// element.
func (ws *Workspace) AreaDeletes(a AreaKind) bool {
	switch a {
	case AreaTrash:
		return true
	case AreaToolbox:
		return ws.opts.ToolboxDeletes
	default:
		return false
	}
}

// InsideViewport reports whether a pointer position (device pixels) is
// within the injection viewport. The zero viewport means unbounded.
func (ws *Workspace) InsideViewport(p geometry.Point) bool {
	v := ws.opts.Viewport
	if v.Width() == 0 && v.Height() == 0 {
		return true
	}
	return v.ContainsStrict(p)
}

// setResizesEnabled toggles workspace auto-resize. Draggers disable it for
// the duration of a gesture so scrollbars are not recomputed per move.
func (ws *Workspace) setResizesEnabled(v bool) { ws.resizesEnabled = v }

// ResizesEnabled reports the auto-resize flag, consumed by the rendering
// layer.
func (ws *Workspace) ResizesEnabled() bool { return ws.resizesEnabled }

// SetResizesEnabled is the exported toggle for the draggers.
func (ws *Workspace) SetResizesEnabled(v bool) { ws.resizesEnabled = v }

// ── Selection ──────────────────────────────────────────────

// SelectedID returns the currently selected entity ID, or "".
func (ws *Workspace) SelectedID() string { return ws.selection }

// SetSelected records the UI selection.
func (ws *Workspace) SetSelected(id string) { ws.selection = id }

// ── Block registry ─────────────────────────────────────────

// CreateBlock creates a top-level block, firing a BlockCreate event.
func (ws *Workspace) CreateBlock(typ string, pos geometry.Point) *Block {
	b := ws.buildBlock(domain.BlockState{ID: uuid.New().String(), Type: typ, X: pos.X, Y: pos.Y})
	ev := &events.BlockCreate{State: b.State()}
	ws.stamp(&ev.Base, b.id)
	ws.Fire(ev)
	return b
}

// buildBlock registers a block from a snapshot without firing events.
// Attachment and frame membership are restored by the caller when needed.
func (ws *Workspace) buildBlock(st domain.BlockState) *Block {
	if st.ID == "" {
		st.ID = uuid.New().String()
	}
	b := &Block{
		id:        st.ID,
		typ:       st.Type,
		ws:        ws,
		position:  geometry.NewPoint(st.X, st.Y),
		proccode:  st.Proccode,
		disabled:  st.Disabled,
		deletable: true,
		movable:   true,
		editable:  true,
	}
	if len(st.Fields) > 0 {
		b.fields = make(map[string]string, len(st.Fields))
		for k, v := range st.Fields {
			b.fields[k] = v
		}
	}
	ws.blockDB[b.id] = b
	ws.topBlocks = append(ws.topBlocks, b)
	return b
}

// DisposeBlock removes a block and its descendants, firing one BlockDelete
// carrying the subtree snapshot.
func (ws *Workspace) DisposeBlock(b *Block) {
	if b == nil {
		return
	}
	if _, ok := ws.blockDB[b.id]; !ok {
		return
	}
	st := b.State()
	var descendants []domain.BlockState
	for _, d := range b.Descendants() {
		if d != b {
			descendants = append(descendants, d.State())
		}
	}

	ws.unregisterSubtree(b)

	ev := &events.BlockDelete{State: st, Descendants: descendants}
	ws.stamp(&ev.Base, b.id)
	ws.Fire(ev)
}

func (ws *Workspace) unregisterSubtree(b *Block) {
	b.Unplug()
	ws.removeTopBlock(b)
	for _, d := range b.Descendants() {
		ws.evictFromFrame(d)
		delete(ws.blockDB, d.id)
		if ws.selection == d.id {
			ws.selection = ""
		}
	}
}

// restoreBlock rebuilds a block subtree from a BlockDelete snapshot. Used
// by undo replay; fires nothing.
func (ws *Workspace) restoreBlock(st domain.BlockState, descendants []domain.BlockState) *Block {
	root := ws.buildBlock(st)
	byID := map[string]*Block{root.id: root}
	for _, d := range descendants {
		byID[d.ID] = ws.buildBlock(d)
	}
	for _, d := range descendants {
		child := byID[d.ID]
		if parent, ok := byID[d.ParentID]; ok {
			_ = child.ConnectTo(parent, d.InputName)
		}
	}
	// The snapshot's membership is authoritative. The containment test must
	// not run here: the block still sits at its deletion position (the
	// trash area) until the group's BlockMove undo walks it back, so a
	// geometric claim would wrongly fail.
	if st.FrameID != "" {
		if f := ws.FrameByID(st.FrameID); f != nil {
			ws.adoptForReplay(f, root.id)
		}
	}
	return root
}

// BlockByID looks up a block; nil when absent.
func (ws *Workspace) BlockByID(id string) *Block { return ws.blockDB[id] }

// TopBlocks returns the top-level blocks in z-order.
func (ws *Workspace) TopBlocks() []*Block {
	out := make([]*Block, len(ws.topBlocks))
	copy(out, ws.topBlocks)
	return out
}

// AllBlocks returns every registered block.
func (ws *Workspace) AllBlocks() []*Block {
	out := make([]*Block, 0, len(ws.blockDB))
	for _, b := range ws.topBlocks {
		out = append(out, b.Descendants()...)
	}
	return out
}

func (ws *Workspace) addTopBlock(b *Block) {
	for _, t := range ws.topBlocks {
		if t == b {
			return
		}
	}
	ws.topBlocks = append(ws.topBlocks, b)
}

func (ws *Workspace) removeTopBlock(b *Block) {
	for i, t := range ws.topBlocks {
		if t == b {
			ws.topBlocks = append(ws.topBlocks[:i], ws.topBlocks[i+1:]...)
			return
		}
	}
}

func (ws *Workspace) evictFromFrame(b *Block) {
	if b.frameID == "" {
		return
	}
	if f := ws.frameDB[b.frameID]; f != nil {
		f.RequestMoveOutBlock(b)
	} else {
		b.frameID = ""
	}
}

// FireBlockMove emits the consolidated move event for a block whose anchor
// changed from old to its current state.
func (ws *Workspace) FireBlockMove(b *Block, old events.MoveAnchor) {
	parentID, inputName, pos := b.Anchor()
	ev := &events.BlockMove{
		Old: old,
		New: events.MoveAnchor{ParentID: parentID, InputName: inputName, Point: pos},
	}
	ws.stamp(&ev.Base, b.id)
	ws.Fire(ev)
}

// ── Frame registry ─────────────────────────────────────────

// CreateFrame creates a frame, firing FrameCreate, and immediately adopts
// qualifying top-level blocks.
func (ws *Workspace) CreateFrame(title string, rect geometry.Rect) *Frame {
	f := ws.buildFrame(domain.FrameState{ID: uuid.New().String(), Title: title, Rect: rect.Normalized()})
	ev := &events.FrameCreate{State: f.State()}
	ws.stamp(&ev.Base, f.id)
	ws.Fire(ev)
	f.UpdateOwnedBlocks()
	return f
}

func (ws *Workspace) buildFrame(st domain.FrameState) *Frame {
	if st.ID == "" {
		st.ID = uuid.New().String()
	}
	f := &Frame{
		id:        st.ID,
		ws:        ws,
		title:     st.Title,
		color:     st.Color,
		rect:      st.Rect.Normalized(),
		blockDB:   make(map[string]*Block),
		editable:  true,
		deletable: true,
		collapsed: st.Collapsed,
		locked:    st.Locked,
	}
	ws.frameDB[f.id] = f
	ws.topFrames = append(ws.topFrames, f)
	return f
}

// restoreFrame rebuilds a frame from a FrameDelete snapshot, re-claiming
// the listed members that still exist. Fires nothing.
func (ws *Workspace) restoreFrame(st domain.FrameState) *Frame {
	f := ws.buildFrame(st)
	for _, id := range st.BlockIDs {
		if b := ws.blockDB[id]; b != nil {
			f.RequestMoveInBlock(b)
		}
	}
	return f
}

// FrameByID looks up a frame; nil when absent.
func (ws *Workspace) FrameByID(id string) *Frame { return ws.frameDB[id] }

// TopFrames returns the frames back-to-front.
func (ws *Workspace) TopFrames() []*Frame {
	out := make([]*Frame, len(ws.topFrames))
	copy(out, ws.topFrames)
	return out
}

// BringFrameToFront raises a frame to the top of the z-order.
func (ws *Workspace) BringFrameToFront(f *Frame) {
	for i, t := range ws.topFrames {
		if t == f {
			ws.topFrames = append(ws.topFrames[:i], ws.topFrames[i+1:]...)
			ws.topFrames = append(ws.topFrames, f)
			return
		}
	}
}

func (ws *Workspace) removeFrame(f *Frame) {
	delete(ws.frameDB, f.id)
	for i, t := range ws.topFrames {
		if t == f {
			ws.topFrames = append(ws.topFrames[:i], ws.topFrames[i+1:]...)
			return
		}
	}
}

// moveFrameToRegistryEnd re-inserts a frame at the end of the lookup order
// so the 'blocks' replay retry pass visits it again last.
func (ws *Workspace) moveFrameToRegistryEnd(f *Frame) {
	ws.BringFrameToFront(f)
}

// RefreshFrameMemberships recomputes membership for every frame. Evictions
// run first, then adoption front-to-back so that when two frames both
// contain an unowned block, the topmost frame in z-order wins. A block
// still inside its current frame is never stolen.
func (ws *Workspace) RefreshFrameMemberships() {
	for _, f := range ws.topFrames {
		for _, b := range f.Blocks() {
			if !b.IsTopLevel() || !f.contentContains(b.position) {
				f.RequestMoveOutBlock(b)
			}
		}
	}
	snapshot := ws.TopFrames()
	for i := len(snapshot) - 1; i >= 0; i-- {
		snapshot[i].UpdateOwnedBlocks()
	}
}

// ── Comments ───────────────────────────────────────────────

// CreateComment adds a workspace comment, optionally anchored to a block.
func (ws *Workspace) CreateComment(blockID, text string, pos geometry.Point) *Comment {
	c := &Comment{
		id:       uuid.New().String(),
		blockID:  blockID,
		ws:       ws,
		position: pos,
		text:     text,
		open:     true,
	}
	ws.commentDB[c.id] = c
	return c
}

// CommentByID looks up a comment; nil when absent.
func (ws *Workspace) CommentByID(id string) *Comment { return ws.commentDB[id] }

// CommentsForBlock returns the comments anchored to a block.
func (ws *Workspace) CommentsForBlock(blockID string) []*Comment {
	var out []*Comment
	for _, c := range ws.commentDB {
		if c.blockID == blockID {
			out = append(out, c)
		}
	}
	return out
}

// DisposeComment removes a comment.
func (ws *Workspace) DisposeComment(c *Comment) {
	if c != nil {
		delete(ws.commentDB, c.id)
	}
}

// ── Lifecycle ──────────────────────────────────────────────

// Clear disposes all blocks, frames and comments and resets the symbol
// tables and history, keeping the workspace itself alive. Fires nothing.
func (ws *Workspace) Clear() {
	ws.rec.Disable()
	defer ws.rec.Enable()

	for _, f := range ws.TopFrames() {
		f.Dispose(true)
	}
	for _, b := range ws.TopBlocks() {
		ws.DisposeBlock(b)
	}
	ws.topBlocks = nil
	ws.topFrames = nil
	ws.blockDB = make(map[string]*Block)
	ws.frameDB = make(map[string]*Frame)
	ws.commentDB = make(map[string]*Comment)
	ws.variables = make(map[string]*domain.VariableState)
	ws.undoStack = nil
	ws.redoStack = nil
	ws.selection = ""
}

// ── Event firing ───────────────────────────────────────────

func (ws *Workspace) stamp(b *events.Base, targetID string) {
	ws.rec.Stamp(b, ws.id, targetID)
}

// Fire records an event: pushes it onto the undo stack, appends it to the
// journal and hands the serialized record to the emitter. Null events and
// events fired while recording is suspended are dropped.
func (ws *Workspace) Fire(ev events.Event) {
	if !ws.rec.Enabled() || ev.IsNull() {
		return
	}
	if ev.Meta().RecordUndo && undoable(ev) {
		ws.undoStack = append(ws.undoStack, ev)
		ws.redoStack = nil
		if excess := len(ws.undoStack) - ws.opts.MaxUndo; excess > 0 {
			// FIFO trim: the oldest entries actually go away.
			ws.undoStack = append([]events.Event(nil), ws.undoStack[excess:]...)
		}
	}

	rec, err := ev.Record()
	if err != nil {
		log.Printf("workspace %s: serialize %s event: %v", ws.id, ev.Kind(), err)
		return
	}
	rec.ID = uuid.New().String()
	if ws.journal != nil {
		if err := ws.journal.AppendEvent(rec); err != nil {
			log.Printf("workspace %s: journal append: %v", ws.id, err)
		}
	}
	ws.emitter.Emit(context.Background(), "event:"+string(ev.Kind()), rec)
}

// undoable filters out the pure-UI kinds that replay cannot reverse.
func undoable(ev events.Event) bool {
	switch ev.Kind() {
	case events.KindDragOutside, events.KindFrameEndDrag:
		return false
	default:
		return true
	}
}

// Notify hands an out-of-band notification (not an event record) to the
// emitter: procedure-rollback warnings, deletion notices.
func (ws *Workspace) Notify(name string, data any) {
	ws.emitter.Emit(context.Background(), name, data)
}

// UndoDepth returns the number of entries on the undo stack.
func (ws *Workspace) UndoDepth() int { return len(ws.undoStack) }

// TopUndoGroup returns the group ID of the newest undo entry, or "".
// Draggers use it to make sure a gesture cancel unwinds their own group
// and not an unrelated earlier one.
func (ws *Workspace) TopUndoGroup() string {
	if len(ws.undoStack) == 0 {
		return ""
	}
	return ws.undoStack[len(ws.undoStack)-1].Meta().Group
}

// RedoDepth returns the number of entries on the redo stack.
func (ws *Workspace) RedoDepth() int { return len(ws.redoStack) }

// Undo pops one event group from the undo stack (or the redo stack when
// redo is true) and replays it in the appropriate direction. Events sharing
// a group ID with the popped event are replayed together so a whole gesture
// reverts atomically.
func (ws *Workspace) Undo(redo bool) {
	from, to := &ws.undoStack, &ws.redoStack
	if redo {
		from, to = &ws.redoStack, &ws.undoStack
	}
	if len(*from) == 0 {
		return
	}

	// Clear any UI selection with recording suspended so replay does not
	// pollute the log with phantom selection churn.
	ws.rec.Disable()
	defer ws.rec.Enable()
	ws.selection = ""

	batch := []events.Event{pop(from)}
	if group := batch[0].Meta().Group; group != "" {
		for len(*from) > 0 && (*from)[len(*from)-1].Meta().Group == group {
			batch = append(batch, pop(from))
		}
	}

	for _, ev := range batch {
		*to = append(*to, ev)
		ws.apply(ev, redo)
	}
}

func pop(s *[]events.Event) events.Event {
	ev := (*s)[len(*s)-1]
	*s = (*s)[:len(*s)-1]
	return ev
}

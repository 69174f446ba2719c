// Package events defines the reversible change records fired by every
// structural mutation in the editor core, plus the Recorder that tags them
// with gesture groups. Each record carries enough state to replay forward
// (redo) or backward (undo); the workspace package owns the replay dispatch.
package events

import (
	"encoding/json"
	"reflect"
	"time"

	"blockwork/internal/domain"
	"blockwork/pkg/geometry"
)

// Kind discriminates the closed set of event variants.
type Kind string

const (
	KindBlockCreate  Kind = "block_create"
	KindBlockDelete  Kind = "block_delete"
	KindBlockMove    Kind = "block_move"
	KindBlockChange  Kind = "block_change"
	KindFrameCreate  Kind = "frame_create"
	KindFrameDelete  Kind = "frame_delete"
	KindFrameRetitle Kind = "frame_retitle"
	KindFrameChange  Kind = "frame_change"
	KindFrameEndDrag Kind = "frame_end_drag"
	KindDragOutside  Kind = "drag_outside"
	KindCommentMove  Kind = "comment_move"
	KindVarCreate    Kind = "var_create"
	KindVarRename    Kind = "var_rename"
	KindVarDelete    Kind = "var_delete"
)

// Element selects which facet of a frame a FrameChange touches.
type Element string

const (
	ElementRect      Element = "rect"
	ElementBlocks    Element = "blocks"
	ElementColor     Element = "color"
	ElementCollapsed Element = "collapsed"
	ElementLocked    Element = "locked"
)

// Event is one reversible state transition.
type Event interface {
	Kind() Kind
	// Meta exposes the shared metadata (group, undo flag, timestamps).
	// Named Meta rather than Base: the embedded field would shadow a
	// method of the same name on every variant.
	Meta() *Base
	// IsNull reports whether old and new payloads are equal; null events
	// are never pushed onto the undo stack.
	IsNull() bool
	// Record serializes the event for the journal and for external
	// persistence/collaboration consumers.
	Record() (*domain.EventRecord, error)
}

// Base holds the fields shared by every event variant.
type Base struct {
	WorkspaceID string
	TargetID    string
	Group       string
	RecordUndo  bool
	Time        time.Time
}

func (b *Base) Meta() *Base { return b }

func (b *Base) record(kind Kind, element Element, old, new any) (*domain.EventRecord, error) {
	rec := &domain.EventRecord{
		WorkspaceID: b.WorkspaceID,
		GroupID:     b.Group,
		Kind:        string(kind),
		Element:     string(element),
		TargetID:    b.TargetID,
		RecordedAt:  b.Time,
	}
	if old != nil {
		data, err := json.Marshal(old)
		if err != nil {
			return nil, err
		}
		rec.OldJSON = string(data)
	}
	if new != nil {
		data, err := json.Marshal(new)
		if err != nil {
			return nil, err
		}
		rec.NewJSON = string(data)
	}
	return rec, nil
}

// ── Block events ───────────────────────────────────────────

// MoveAnchor describes where a block is attached: either a parent connection
// (ParentID + InputName) or a free workspace position.
type MoveAnchor struct {
	ParentID  string         `json:"parentId,omitempty"`
	InputName string         `json:"inputName,omitempty"`
	Point     geometry.Point `json:"point"`
}

// BlockCreate records a block entering the workspace.
type BlockCreate struct {
	Base
	State domain.BlockState
}

func (e *BlockCreate) Kind() Kind   { return KindBlockCreate }
func (e *BlockCreate) IsNull() bool { return false }
func (e *BlockCreate) Record() (*domain.EventRecord, error) {
	return e.record(KindBlockCreate, "", nil, e.State)
}

// BlockDelete records a block (and subtree snapshot) leaving the workspace.
type BlockDelete struct {
	Base
	State domain.BlockState
	// Descendants snapshots the disposed subtree so undo can rebuild it.
	Descendants []domain.BlockState
}

func (e *BlockDelete) Kind() Kind   { return KindBlockDelete }
func (e *BlockDelete) IsNull() bool { return false }
func (e *BlockDelete) Record() (*domain.EventRecord, error) {
	return e.record(KindBlockDelete, "", struct {
		State       domain.BlockState   `json:"state"`
		Descendants []domain.BlockState `json:"descendants,omitempty"`
	}{e.State, e.Descendants}, nil)
}

// BlockMove records a block's anchor changing: reposition, plug, or unplug.
// A whole drag gesture collapses into one BlockMove (old anchor captured at
// drag start, new anchor at drop).
type BlockMove struct {
	Base
	Old MoveAnchor
	New MoveAnchor
}

func (e *BlockMove) Kind() Kind { return KindBlockMove }
func (e *BlockMove) IsNull() bool {
	return e.Old.ParentID == e.New.ParentID &&
		e.Old.InputName == e.New.InputName &&
		e.Old.Point.Equals(e.New.Point)
}
func (e *BlockMove) Record() (*domain.EventRecord, error) {
	return e.record(KindBlockMove, "", e.Old, e.New)
}

// BlockChange records a scalar block mutation (field value, disabled flag).
type BlockChange struct {
	Base
	Element string
	Name    string
	Old     string
	New     string
}

func (e *BlockChange) Kind() Kind   { return KindBlockChange }
func (e *BlockChange) IsNull() bool { return e.Old == e.New }
func (e *BlockChange) Record() (*domain.EventRecord, error) {
	type payload struct {
		Element string `json:"element"`
		Name    string `json:"name,omitempty"`
		Value   string `json:"value"`
	}
	return e.record(KindBlockChange, "",
		payload{e.Element, e.Name, e.Old},
		payload{e.Element, e.Name, e.New})
}

// ── Frame events ───────────────────────────────────────────

// FrameCreate records a frame entering the workspace.
type FrameCreate struct {
	Base
	State domain.FrameState
}

func (e *FrameCreate) Kind() Kind   { return KindFrameCreate }
func (e *FrameCreate) IsNull() bool { return false }
func (e *FrameCreate) Record() (*domain.EventRecord, error) {
	return e.record(KindFrameCreate, "", nil, e.State)
}

// FrameDelete records a frame leaving the workspace. Member blocks are
// captured so a group undo can restore the frame and its members together.
type FrameDelete struct {
	Base
	State        domain.FrameState
	RetainBlocks bool
}

func (e *FrameDelete) Kind() Kind   { return KindFrameDelete }
func (e *FrameDelete) IsNull() bool { return false }
func (e *FrameDelete) Record() (*domain.EventRecord, error) {
	return e.record(KindFrameDelete, "", e.State, nil)
}

// FrameRetitle records a frame title edit.
type FrameRetitle struct {
	Base
	Old string
	New string
}

func (e *FrameRetitle) Kind() Kind   { return KindFrameRetitle }
func (e *FrameRetitle) IsNull() bool { return e.Old == e.New }
func (e *FrameRetitle) Record() (*domain.EventRecord, error) {
	return e.record(KindFrameRetitle, "", e.Old, e.New)
}

// FrameValue is the polymorphic payload of a FrameChange; exactly the
// fields relevant to the Element are set.
type FrameValue struct {
	Rect     *geometry.Rect `json:"rect,omitempty"`
	BlockIDs []string       `json:"blockIds,omitempty"`
	Color    string         `json:"color,omitempty"`
	Flag     *bool          `json:"flag,omitempty"`
}

// FrameChange records a mutation of one frame facet. Replay dispatches on
// Element: 'blocks' diffs member-ID lists, 'rect' re-applies geometry, the
// rest call the matching setter.
type FrameChange struct {
	Base
	Element Element
	Old     FrameValue
	New     FrameValue
}

func (e *FrameChange) Kind() Kind { return KindFrameChange }
func (e *FrameChange) IsNull() bool {
	return reflect.DeepEqual(e.Old, e.New)
}
func (e *FrameChange) Record() (*domain.EventRecord, error) {
	return e.record(KindFrameChange, e.Element, e.Old, e.New)
}

// FrameEndDrag carries a diagnostic snapshot of the frame and any
// batch-dragged siblings at the moment a frame drag ends. Not undoable.
type FrameEndDrag struct {
	Base
	Frames []domain.FrameState
	Blocks []domain.BlockState
}

func (e *FrameEndDrag) Kind() Kind   { return KindFrameEndDrag }
func (e *FrameEndDrag) IsNull() bool { return false }
func (e *FrameEndDrag) Record() (*domain.EventRecord, error) {
	return e.record(KindFrameEndDrag, "", nil, struct {
		Frames []domain.FrameState `json:"frames,omitempty"`
		Blocks []domain.BlockState `json:"blocks,omitempty"`
	}{e.Frames, e.Blocks})
}

// ── UI and symbol-table events ─────────────────────────────

// DragOutside fires once per edge transition of the pointer leaving or
// re-entering the injection viewport during a drag. Not undoable.
type DragOutside struct {
	Base
	Outside bool
}

func (e *DragOutside) Kind() Kind   { return KindDragOutside }
func (e *DragOutside) IsNull() bool { return false }
func (e *DragOutside) Record() (*domain.EventRecord, error) {
	return e.record(KindDragOutside, "", nil, e.Outside)
}

// CommentMove records a workspace comment changing position.
type CommentMove struct {
	Base
	Old geometry.Point
	New geometry.Point
}

func (e *CommentMove) Kind() Kind   { return KindCommentMove }
func (e *CommentMove) IsNull() bool { return e.Old.Equals(e.New) }
func (e *CommentMove) Record() (*domain.EventRecord, error) {
	return e.record(KindCommentMove, "", e.Old, e.New)
}

// VarCreate records a variable entering the symbol table.
type VarCreate struct {
	Base
	State domain.VariableState
}

func (e *VarCreate) Kind() Kind   { return KindVarCreate }
func (e *VarCreate) IsNull() bool { return false }
func (e *VarCreate) Record() (*domain.EventRecord, error) {
	return e.record(KindVarCreate, "", nil, e.State)
}

// VarRename records a variable rename.
type VarRename struct {
	Base
	Old string
	New string
}

func (e *VarRename) Kind() Kind   { return KindVarRename }
func (e *VarRename) IsNull() bool { return e.Old == e.New }
func (e *VarRename) Record() (*domain.EventRecord, error) {
	return e.record(KindVarRename, "", e.Old, e.New)
}

// VarDelete records a variable leaving the symbol table.
type VarDelete struct {
	Base
	State domain.VariableState
}

func (e *VarDelete) Kind() Kind   { return KindVarDelete }
func (e *VarDelete) IsNull() bool { return false }
func (e *VarDelete) Record() (*domain.EventRecord, error) {
	return e.record(KindVarDelete, "", e.State, nil)
}

package workspace

import (
	"fmt"
	"sort"

	"blockwork/internal/domain"
	"blockwork/internal/events"
	"blockwork/pkg/geometry"
)

// Block type strings the core gives special treatment. Everything else is
// opaque to the drag/undo machinery.
const (
	TypeProcedureDefinition       = "procedures_definition"
	TypeProcedureDefinitionGlobal = "procedures_definition_global"
	TypeProcedureCall             = "procedures_call"
)

// Block is one node in a tree of connectable units. Position is always kept
// in absolute workspace units, including for child blocks, so moving a
// subtree is a uniform translation.
type Block struct {
	id  string
	typ string
	ws  *Workspace

	position geometry.Point

	// Attachment. A block with a parent is not top-level and cannot be
	// owned by a frame.
	parent      *Block
	parentInput string // "" means stacked under the parent's next connection
	children    []childSlot

	// frameID is a weak membership reference; the frame does not own the
	// block.
	frameID string

	fields   map[string]string
	proccode string // procedure definition/call correlation

	deletable bool
	movable   bool
	editable  bool
	disabled  bool
	dragging  bool
}

type childSlot struct {
	input string
	block *Block
}

// ID returns the block's unique ID.
func (b *Block) ID() string { return b.id }

// Type returns the block's opcode string.
func (b *Block) Type() string { return b.typ }

// Position returns the block's absolute position in workspace units.
func (b *Block) Position() geometry.Point { return b.position }

// Parent returns the parent block, or nil for a top-level block.
func (b *Block) Parent() *Block { return b.parent }

// ParentID returns the parent block's ID, or "".
func (b *Block) ParentID() string {
	if b.parent == nil {
		return ""
	}
	return b.parent.id
}

// ParentInput returns the name of the parent input this block plugs into,
// or "" for a plain stack attachment.
func (b *Block) ParentInput() string { return b.parentInput }

// IsTopLevel reports whether the block has no parent connection.
func (b *Block) IsTopLevel() bool { return b.parent == nil }

// FrameID returns the owning frame's ID, or "" when the block is frameless.
func (b *Block) FrameID() string { return b.frameID }

// IsDeletable reports whether the block may be dropped on a delete area.
func (b *Block) IsDeletable() bool { return b.deletable }

// IsMovable reports whether the block may be dragged.
func (b *Block) IsMovable() bool { return b.movable }

// IsEditable reports whether the block's fields may be edited.
func (b *Block) IsEditable() bool { return b.editable }

// IsDragging reports whether the block is mid-gesture.
func (b *Block) IsDragging() bool { return b.dragging }

// SetDragging marks the block and its subtree as mid-gesture. The rendering
// layer uses the flag to style the dragged stack.
func (b *Block) SetDragging(v bool) {
	for _, d := range b.Descendants() {
		d.dragging = v
	}
}

// Proccode returns the procedure code for definition and call blocks, "".
func (b *Block) Proccode() string { return b.proccode }

// SetProccode tags the block with a procedure code.
func (b *Block) SetProccode(code string) { b.proccode = code }

// Field returns a field value.
func (b *Block) Field(name string) string { return b.fields[name] }

// SetField sets a field value, firing a BlockChange event.
func (b *Block) SetField(name, value string) {
	if !b.editable {
		return
	}
	old := b.fields[name]
	if b.fields == nil {
		b.fields = make(map[string]string)
	}
	b.fields[name] = value
	if b.ws != nil {
		ev := &events.BlockChange{Element: "field", Name: name, Old: old, New: value}
		b.ws.stamp(&ev.Base, b.id)
		b.ws.Fire(ev)
	}
}

// SetDisabled toggles the disabled flag, firing a BlockChange event.
func (b *Block) SetDisabled(v bool) {
	old := b.disabled
	b.disabled = v
	if b.ws != nil {
		ev := &events.BlockChange{
			Element: "disabled",
			Old:     boolString(old),
			New:     boolString(v),
		}
		b.ws.stamp(&ev.Base, b.id)
		b.ws.Fire(ev)
	}
}

func boolString(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// SetDeletable changes the deletable flag.
func (b *Block) SetDeletable(v bool) { b.deletable = v }

// SetMovable changes the movable flag.
func (b *Block) SetMovable(v bool) { b.movable = v }

// SetEditable changes the editable flag.
func (b *Block) SetEditable(v bool) { b.editable = v }

// Anchor captures the block's current attachment for a BlockMove payload.
func (b *Block) Anchor() (parentID, inputName string, pos geometry.Point) {
	return b.ParentID(), b.parentInput, b.position
}

// Children returns the directly attached child blocks.
func (b *Block) Children() []*Block {
	out := make([]*Block, 0, len(b.children))
	for _, c := range b.children {
		out = append(out, c.block)
	}
	return out
}

// Descendants returns the block and every transitively attached child, in
// depth-first order.
func (b *Block) Descendants() []*Block {
	out := []*Block{b}
	for _, c := range b.children {
		out = append(out, c.block.Descendants()...)
	}
	return out
}

// MoveBy translates the block and its whole subtree by a delta.
func (b *Block) MoveBy(delta geometry.Point) {
	for _, d := range b.Descendants() {
		d.position = d.position.Add(delta)
	}
}

// MoveTo places the block at an absolute position, carrying its subtree.
func (b *Block) MoveTo(pos geometry.Point) {
	b.MoveBy(pos.Sub(b.position))
}

// Unplug disconnects the block from its parent, making it top-level. The
// subtree keeps its absolute position. No-op for top-level blocks.
func (b *Block) Unplug() {
	if b.parent == nil {
		return
	}
	p := b.parent
	for i, c := range p.children {
		if c.block == b {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	b.parent = nil
	b.parentInput = ""
	if b.ws != nil {
		b.ws.addTopBlock(b)
	}
}

// ConnectTo attaches the block under parent at the named input ("" stacks
// it on the parent's next connection). A connected block leaves the
// top-level list and is evicted from any frame.
func (b *Block) ConnectTo(parent *Block, inputName string) error {
	if parent == nil {
		return fmt.Errorf("connect block %s: nil parent", b.id)
	}
	if parent == b {
		return fmt.Errorf("connect block %s: cannot connect to itself", b.id)
	}
	b.Unplug()
	b.parent = parent
	b.parentInput = inputName
	parent.children = append(parent.children, childSlot{input: inputName, block: b})
	if b.ws != nil {
		b.ws.removeTopBlock(b)
		b.ws.evictFromFrame(b)
	}
	return nil
}

// State snapshots the block for event payloads and the journal.
func (b *Block) State() domain.BlockState {
	st := domain.BlockState{
		ID:        b.id,
		Type:      b.typ,
		X:         b.position.X,
		Y:         b.position.Y,
		ParentID:  b.ParentID(),
		InputName: b.parentInput,
		FrameID:   b.frameID,
		Proccode:  b.proccode,
		Disabled:  b.disabled,
	}
	if len(b.fields) > 0 {
		st.Fields = make(map[string]string, len(b.fields))
		for k, v := range b.fields {
			st.Fields[k] = v
		}
	}
	if len(b.children) > 0 {
		ids := make([]string, 0, len(b.children))
		for _, c := range b.children {
			ids = append(ids, c.block.id)
		}
		sort.Strings(ids)
		st.ChildIDs = ids
	}
	return st
}

// Comment is a workspace-level note bubble, optionally anchored to a block.
// Anchored comments track their block during drags.
type Comment struct {
	id      string
	blockID string
	ws      *Workspace

	position geometry.Point
	text     string
	open     bool
}

// ID returns the comment's unique ID.
func (c *Comment) ID() string { return c.id }

// BlockID returns the anchor block's ID, or "" for a free comment.
func (c *Comment) BlockID() string { return c.blockID }

// Position returns the comment's position in workspace units.
func (c *Comment) Position() geometry.Point { return c.position }

// Text returns the comment text.
func (c *Comment) Text() string { return c.text }

// MoveBy translates the comment.
func (c *Comment) MoveBy(delta geometry.Point) {
	c.position = c.position.Add(delta)
}

// State snapshots the comment.
func (c *Comment) State() domain.CommentState {
	return domain.CommentState{
		ID:      c.id,
		BlockID: c.blockID,
		X:       c.position.X,
		Y:       c.position.Y,
		Text:    c.text,
		Open:    c.open,
	}
}

package workspace

import (
	"log"

	"blockwork/internal/events"
	"blockwork/pkg/geometry"
)

// apply replays one event in the given direction. Recording is suspended by
// the caller, so nothing here fires back into the log. Missing entities are
// logged and skipped; replaying a long history must never corrupt the
// stacks by throwing halfway through.
func (ws *Workspace) apply(ev events.Event, forward bool) {
	switch e := ev.(type) {
	case *events.BlockCreate:
		if forward {
			if ws.blockDB[e.TargetID] == nil {
				ws.buildBlock(e.State)
			}
		} else {
			b := ws.BlockByID(e.TargetID)
			if b == nil {
				ws.skip("block", e.TargetID, "create undo")
				return
			}
			ws.DisposeBlock(b)
		}

	case *events.BlockDelete:
		if forward {
			b := ws.BlockByID(e.TargetID)
			if b == nil {
				ws.skip("block", e.TargetID, "delete redo")
				return
			}
			ws.DisposeBlock(b)
		} else {
			ws.restoreBlock(e.State, e.Descendants)
		}

	case *events.BlockMove:
		b := ws.BlockByID(e.TargetID)
		if b == nil {
			ws.skip("block", e.TargetID, "move replay")
			return
		}
		anchor := e.Old
		if forward {
			anchor = e.New
		}
		ws.applyAnchor(b, anchor)

	case *events.BlockChange:
		b := ws.BlockByID(e.TargetID)
		if b == nil {
			ws.skip("block", e.TargetID, "change replay")
			return
		}
		val := e.Old
		if forward {
			val = e.New
		}
		switch e.Element {
		case "field":
			if b.fields == nil {
				b.fields = make(map[string]string)
			}
			b.fields[e.Name] = val
		case "disabled":
			b.disabled = val == "true"
		default:
			log.Printf("workspace %s: unknown block change element %q", ws.id, e.Element)
		}

	case *events.FrameCreate:
		if forward {
			if ws.frameDB[e.TargetID] == nil {
				ws.restoreFrame(e.State)
			}
		} else {
			f := ws.FrameByID(e.TargetID)
			if f == nil {
				ws.skip("frame", e.TargetID, "create undo")
				return
			}
			f.Dispose(true)
		}

	case *events.FrameDelete:
		if forward {
			f := ws.FrameByID(e.TargetID)
			if f == nil {
				ws.skip("frame", e.TargetID, "delete redo")
				return
			}
			// Member block deletions carry their own events in the
			// group; the frame releases its members here.
			f.Dispose(true)
		} else {
			ws.restoreFrame(e.State)
		}

	case *events.FrameRetitle:
		f := ws.FrameByID(e.TargetID)
		if f == nil {
			ws.skip("frame", e.TargetID, "retitle replay")
			return
		}
		if forward {
			f.title = e.New
		} else {
			f.title = e.Old
		}

	case *events.FrameChange:
		ws.applyFrameChange(e, forward)

	case *events.CommentMove:
		c := ws.CommentByID(e.TargetID)
		if c == nil {
			ws.skip("comment", e.TargetID, "move replay")
			return
		}
		if forward {
			c.position = e.New
		} else {
			c.position = e.Old
		}

	case *events.VarCreate:
		if forward {
			st := e.State
			ws.variables[st.ID] = &st
		} else {
			delete(ws.variables, e.State.ID)
		}

	case *events.VarRename:
		v := ws.variables[e.TargetID]
		if v == nil {
			ws.skip("variable", e.TargetID, "rename replay")
			return
		}
		if forward {
			v.Name = e.New
		} else {
			v.Name = e.Old
		}

	case *events.VarDelete:
		if forward {
			delete(ws.variables, e.State.ID)
		} else {
			st := e.State
			ws.variables[st.ID] = &st
		}

	default:
		// DragOutside and FrameEndDrag are notifications, not state.
	}
}

func (ws *Workspace) skip(kind, id, op string) {
	log.Printf("workspace %s: %s %s vanished, %s skipped", ws.id, kind, id, op)
}

func (ws *Workspace) applyAnchor(b *Block, anchor events.MoveAnchor) {
	if anchor.ParentID == "" {
		b.Unplug()
		b.MoveTo(anchor.Point)
		return
	}
	parent := ws.BlockByID(anchor.ParentID)
	if parent == nil {
		ws.skip("block", anchor.ParentID, "reconnect")
		b.Unplug()
		b.MoveTo(anchor.Point)
		return
	}
	if err := b.ConnectTo(parent, anchor.InputName); err != nil {
		log.Printf("workspace %s: reconnect %s: %v", ws.id, b.id, err)
	}
	b.MoveTo(anchor.Point)
}

// applyFrameChange dispatches over the element kind, per the event's
// command/memento contract.
func (ws *Workspace) applyFrameChange(e *events.FrameChange, forward bool) {
	f := ws.FrameByID(e.TargetID)
	if f == nil {
		ws.skip("frame", e.TargetID, "change replay")
		return
	}
	val := e.Old
	if forward {
		val = e.New
	}

	switch e.Element {
	case events.ElementRect:
		if val.Rect != nil {
			f.rect = val.Rect.Normalized()
		}

	case events.ElementBlocks:
		ws.applyMembership(f, val.BlockIDs)

	case events.ElementColor:
		f.color = val.Color

	case events.ElementCollapsed:
		if val.Flag != nil {
			f.collapsed = *val.Flag
		}

	case events.ElementLocked:
		if val.Flag != nil {
			f.locked = *val.Flag
		}

	default:
		log.Printf("workspace %s: unknown frame change element %q", ws.id, e.Element)
	}
}

// applyMembership diffs the current member set against the target list.
// Adoption trusts the event rather than re-running the containment test:
// the matching rect event in the same group may not have replayed yet. A
// block that is momentarily non-top-level fails adoption; the frame is
// re-inserted at the end of the lookup order and the block retried once,
// which resolves the common case of a reconnect event later in the batch.
func (ws *Workspace) applyMembership(f *Frame, target []string) {
	want := make(map[string]bool, len(target))
	for _, id := range target {
		want[id] = true
	}

	for _, b := range f.Blocks() {
		if !want[b.id] {
			f.RequestMoveOutBlock(b)
		}
	}

	var retry []string
	for _, id := range target {
		if !ws.adoptForReplay(f, id) {
			retry = append(retry, id)
		}
	}
	if len(retry) == 0 {
		return
	}
	ws.moveFrameToRegistryEnd(f)
	for _, id := range retry {
		if !ws.adoptForReplay(f, id) {
			ws.skip("block", id, "frame adoption")
		}
	}
}

func (ws *Workspace) adoptForReplay(f *Frame, id string) bool {
	b := ws.BlockByID(id)
	if b == nil || !b.IsTopLevel() {
		return false
	}
	if b.frameID != "" && b.frameID != f.id {
		return false
	}
	f.blockDB[b.id] = b
	b.frameID = f.id
	return true
}

// MoveCommentTo moves a comment and fires the CommentMove event.
func (ws *Workspace) MoveCommentTo(c *Comment, pos geometry.Point) {
	old := c.position
	c.position = pos
	ev := &events.CommentMove{Old: old, New: pos}
	ws.stamp(&ev.Base, c.id)
	ws.Fire(ev)
}

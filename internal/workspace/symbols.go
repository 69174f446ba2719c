package workspace

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"blockwork/internal/domain"
	"blockwork/internal/events"
)

// ─────────────────────────────────────────────────────────────
// Variable and procedure symbol tables
// ─────────────────────────────────────────────────────────────

// CreateVariable adds a variable to the symbol table, firing VarCreate.
func (ws *Workspace) CreateVariable(name, typ string) *domain.VariableState {
	v := &domain.VariableState{ID: uuid.New().String(), Name: name, Type: typ}
	ws.variables[v.ID] = v
	ev := &events.VarCreate{State: *v}
	ws.stamp(&ev.Base, v.ID)
	ws.Fire(ev)
	return v
}

// RenameVariable renames a variable, firing VarRename. No-op for unknown
// IDs.
func (ws *Workspace) RenameVariable(id, name string) {
	v := ws.variables[id]
	if v == nil {
		return
	}
	old := v.Name
	v.Name = name
	ev := &events.VarRename{Old: old, New: name}
	ws.stamp(&ev.Base, id)
	ws.Fire(ev)
}

// DeleteVariable removes a variable, firing VarDelete. No-op for unknown
// IDs.
func (ws *Workspace) DeleteVariable(id string) {
	v := ws.variables[id]
	if v == nil {
		return
	}
	delete(ws.variables, id)
	ev := &events.VarDelete{State: *v}
	ws.stamp(&ev.Base, id)
	ws.Fire(ev)
}

// VariableByID looks up a variable; nil when absent.
func (ws *Workspace) VariableByID(id string) *domain.VariableState {
	return ws.variables[id]
}

// Variables returns the symbol table sorted by name.
func (ws *Workspace) Variables() []domain.VariableState {
	out := make([]domain.VariableState, 0, len(ws.variables))
	for _, v := range ws.variables {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ── Procedures ─────────────────────────────────────────────

func isDefinitionType(typ string) bool {
	return typ == TypeProcedureDefinition || typ == TypeProcedureDefinitionGlobal
}

// DefinitionFor returns a live procedure-definition block for the given
// proccode, excluding the block with skipID. Global procedures are searched
// across every sibling workspace registered with the hub.
func (ws *Workspace) DefinitionFor(proccode, skipID string, global bool) *Block {
	scopes := []*Workspace{ws}
	if global && ws.hub != nil {
		scopes = ws.hub.Workspaces()
	}
	for _, scope := range scopes {
		for _, b := range scope.AllBlocks() {
			if isDefinitionType(b.typ) && b.proccode == proccode && b.id != skipID {
				return b
			}
		}
	}
	return nil
}

// CallersOf returns every live call block referencing the proccode. Global
// procedures are searched across sibling workspaces.
func (ws *Workspace) CallersOf(proccode string, global bool) []*Block {
	scopes := []*Workspace{ws}
	if global && ws.hub != nil {
		scopes = ws.hub.Workspaces()
	}
	var out []*Block
	for _, scope := range scopes {
		for _, b := range scope.AllBlocks() {
			if b.typ == TypeProcedureCall && b.proccode == proccode {
				out = append(out, b)
			}
		}
	}
	return out
}

// ─────────────────────────────────────────────────────────────
// Hub
// Sibling workspaces sharing global procedures.
// ─────────────────────────────────────────────────────────────

// Hub tracks the workspaces of one editing session (targets in a multi-
// sprite project, sibling documents in a collaborative one) so that
// global-procedure validation can look across all of them.
type Hub struct {
	mu   sync.Mutex
	list []*Workspace

	// editMu serializes mutation of the member workspaces, which are
	// lock-free single-actor structures. Every actor that edits them off
	// the gesture goroutine (tool handlers, feed ingestion) runs under
	// Sync.
	editMu sync.Mutex
}

// NewHub creates an empty hub.
func NewHub() *Hub { return &Hub{} }

// Sync runs fn while holding the hub's edit lock.
func (h *Hub) Sync(fn func()) {
	h.editMu.Lock()
	defer h.editMu.Unlock()
	fn()
}

func (h *Hub) add(ws *Workspace) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range h.list {
		if w == ws {
			return
		}
	}
	h.list = append(h.list, ws)
}

// Workspaces returns the registered workspaces.
func (h *Hub) Workspaces() []*Workspace {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Workspace, len(h.list))
	copy(out, h.list)
	return out
}

// ByID finds a registered workspace, or nil.
func (h *Hub) ByID(id string) *Workspace {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range h.list {
		if w.id == id {
			return w
		}
	}
	return nil
}

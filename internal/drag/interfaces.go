// Package drag implements the block and frame drag state machines. The
// draggers turn pointer deltas into workspace mutations, delegating snap
// previews to the connection negotiation engine and rendering to the drag
// surface, both external collaborators behind interfaces here.
package drag

import (
	"blockwork/internal/workspace"
	"blockwork/pkg/geometry"
)

// ConnectionPreviewer is the insertion-marker manager: given the current
// drag delta it tracks the nearest compatible connection within the snap
// radius and previews the would-be result. Candidate selection (minimum
// Euclidean distance, fixed kind-preference tie-break) is its own contract;
// the draggers only consume the verdict.
type ConnectionPreviewer interface {
	Update(delta geometry.Point, snapRadius float64, area workspace.AreaKind, outside bool)
	// WouldDeleteBlock is the previewer's delete verdict for the current
	// preview; the dragger folds it into its own delete-area test.
	WouldDeleteBlock() bool
	WouldConnectBlock() bool
	ApplyConnections()
}

// DragSurface is the rendering layer's dedicated drag layer. Moving the
// dragged stack onto it avoids reflowing the whole canvas per pointer move.
type DragSurface interface {
	MoveToDragSurface(b *workspace.Block)
	MoveOffDragSurface(b *workspace.Block, pos geometry.Point)
}

// RecheckFunc reconciles the dragged block against externally-sourced
// mutations (a collaborative peer may have deleted or replaced it
// mid-gesture). It may return the same block, a replacement, or nil to
// abort. The draggers call it at the documented checkpoints and never
// assume the block survived.
type RecheckFunc func(*workspace.Block) *workspace.Block

// NopPreviewer is the do-nothing negotiation engine used headless and in
// tests.
type NopPreviewer struct{}

func (NopPreviewer) Update(geometry.Point, float64, workspace.AreaKind, bool) {}
func (NopPreviewer) WouldDeleteBlock() bool                          { return false }
func (NopPreviewer) WouldConnectBlock() bool                         { return false }
func (NopPreviewer) ApplyConnections()                               {}

// NopSurface is the do-nothing drag surface.
type NopSurface struct{}

func (NopSurface) MoveToDragSurface(*workspace.Block)                  {}
func (NopSurface) MoveOffDragSurface(*workspace.Block, geometry.Point) {}

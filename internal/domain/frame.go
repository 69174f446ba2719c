package domain

import "blockwork/pkg/geometry"

// FrameState is the serializable snapshot of a frame: its rectangle, title
// and the IDs of its member blocks. Membership is a set, not ownership;
// the workspace owns the blocks.
type FrameState struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Rect      geometry.Rect `json:"rect"`
	Color     string        `json:"color,omitempty"`
	BlockIDs  []string      `json:"blockIds,omitempty"`
	Collapsed bool          `json:"collapsed,omitempty"`
	Locked    bool          `json:"locked,omitempty"`
}

package events

import (
	"time"

	"github.com/google/uuid"
)

// Recorder tracks the recording and grouping state for one workspace. It is
// owned by the workspace and passed to the draggers; there is no package
// global. Disable/Enable nest, so replay code can suspend recording around
// selection churn without clobbering an outer suspension.
type Recorder struct {
	disabled int
	group    string
}

// NewRecorder creates a Recorder with recording enabled and no open group.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Enabled reports whether events should currently be recorded.
func (r *Recorder) Enabled() bool { return r.disabled == 0 }

// Disable suspends recording. Calls nest; each Disable needs a matching
// Enable.
func (r *Recorder) Disable() { r.disabled++ }

// Enable lifts one level of suspension.
func (r *Recorder) Enable() {
	if r.disabled > 0 {
		r.disabled--
	}
}

// SetGroup opens (true) or closes (false) an event group. Opening while a
// group is already open keeps the existing group, so a gesture nested in a
// larger operation coalesces into the outer undo unit.
func (r *Recorder) SetGroup(open bool) {
	if !open {
		r.group = ""
		return
	}
	if r.group == "" {
		r.group = uuid.New().String()
	}
}

// SetGroupID joins an explicit group, used when replaying a remote peer's
// gesture under its original correlation tag.
func (r *Recorder) SetGroupID(id string) { r.group = id }

// Group returns the currently open group ID, or "" if none.
func (r *Recorder) Group() string { return r.group }

// Stamp fills the shared fields of a freshly constructed event.
func (r *Recorder) Stamp(b *Base, workspaceID, targetID string) {
	b.WorkspaceID = workspaceID
	b.TargetID = targetID
	b.Group = r.group
	b.RecordUndo = true
	b.Time = time.Now()
}

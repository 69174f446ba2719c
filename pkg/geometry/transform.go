package geometry

// WorkspaceUnits converts a pointer-movement delta in device pixels into
// workspace units. Mutator (nested) workspaces render at a fixed scale of 1
// regardless of visual zoom, so for them the division uses the parent
// workspace's scale instead of their own.
//
// Pure and deterministic. A scale of 0 is undefined behavior; callers must
// guarantee scale > 0.
func WorkspaceUnits(pixel Point, scale float64, isMutator bool, parentScale float64) Point {
	s := scale
	if isMutator {
		s = parentScale
	}
	return Point{X: pixel.X / s, Y: pixel.Y / s}
}

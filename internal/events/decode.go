package events

import (
	"encoding/json"
	"fmt"

	"blockwork/internal/domain"
)

// Decode rebuilds an Event from its journal record, inverting the payload
// encoding of each variant's Record method. Used when replaying a persisted
// journal and when ingesting a collaborator's event feed.
func Decode(rec *domain.EventRecord) (Event, error) {
	base := Base{
		WorkspaceID: rec.WorkspaceID,
		TargetID:    rec.TargetID,
		Group:       rec.GroupID,
		Time:        rec.RecordedAt,
	}

	switch Kind(rec.Kind) {
	case KindBlockCreate:
		ev := &BlockCreate{Base: base}
		if err := unmarshal(rec.NewJSON, &ev.State); err != nil {
			return nil, err
		}
		return ev, nil

	case KindBlockDelete:
		ev := &BlockDelete{Base: base}
		var payload struct {
			State       domain.BlockState   `json:"state"`
			Descendants []domain.BlockState `json:"descendants,omitempty"`
		}
		if err := unmarshal(rec.OldJSON, &payload); err != nil {
			return nil, err
		}
		ev.State, ev.Descendants = payload.State, payload.Descendants
		return ev, nil

	case KindBlockMove:
		ev := &BlockMove{Base: base}
		if err := unmarshal(rec.OldJSON, &ev.Old); err != nil {
			return nil, err
		}
		if err := unmarshal(rec.NewJSON, &ev.New); err != nil {
			return nil, err
		}
		return ev, nil

	case KindBlockChange:
		type payload struct {
			Element string `json:"element"`
			Name    string `json:"name,omitempty"`
			Value   string `json:"value"`
		}
		var before, after payload
		if err := unmarshal(rec.OldJSON, &before); err != nil {
			return nil, err
		}
		if err := unmarshal(rec.NewJSON, &after); err != nil {
			return nil, err
		}
		return &BlockChange{
			Base: base, Element: after.Element, Name: after.Name,
			Old: before.Value, New: after.Value,
		}, nil

	case KindFrameCreate:
		ev := &FrameCreate{Base: base}
		if err := unmarshal(rec.NewJSON, &ev.State); err != nil {
			return nil, err
		}
		return ev, nil

	case KindFrameDelete:
		// Member deletions travel as their own records, so a decoded
		// frame delete always releases rather than cascades.
		ev := &FrameDelete{Base: base, RetainBlocks: true}
		if err := unmarshal(rec.OldJSON, &ev.State); err != nil {
			return nil, err
		}
		return ev, nil

	case KindFrameRetitle:
		ev := &FrameRetitle{Base: base}
		if err := unmarshal(rec.OldJSON, &ev.Old); err != nil {
			return nil, err
		}
		if err := unmarshal(rec.NewJSON, &ev.New); err != nil {
			return nil, err
		}
		return ev, nil

	case KindFrameChange:
		ev := &FrameChange{Base: base, Element: Element(rec.Element)}
		if err := unmarshal(rec.OldJSON, &ev.Old); err != nil {
			return nil, err
		}
		if err := unmarshal(rec.NewJSON, &ev.New); err != nil {
			return nil, err
		}
		return ev, nil

	case KindCommentMove:
		ev := &CommentMove{Base: base}
		if err := unmarshal(rec.OldJSON, &ev.Old); err != nil {
			return nil, err
		}
		if err := unmarshal(rec.NewJSON, &ev.New); err != nil {
			return nil, err
		}
		return ev, nil

	case KindVarCreate:
		ev := &VarCreate{Base: base}
		if err := unmarshal(rec.NewJSON, &ev.State); err != nil {
			return nil, err
		}
		return ev, nil

	case KindVarRename:
		ev := &VarRename{Base: base}
		if err := unmarshal(rec.OldJSON, &ev.Old); err != nil {
			return nil, err
		}
		if err := unmarshal(rec.NewJSON, &ev.New); err != nil {
			return nil, err
		}
		return ev, nil

	case KindVarDelete:
		ev := &VarDelete{Base: base}
		if err := unmarshal(rec.OldJSON, &ev.State); err != nil {
			return nil, err
		}
		return ev, nil

	case KindDragOutside, KindFrameEndDrag:
		return nil, fmt.Errorf("decode event: %s is a notification, not state", rec.Kind)

	default:
		return nil, fmt.Errorf("decode event: unknown kind %q", rec.Kind)
	}
}

func unmarshal(data string, v any) error {
	if data == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("decode event payload: %w", err)
	}
	return nil
}

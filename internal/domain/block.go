package domain

// BlockState is the serializable snapshot of a block, as recorded in event
// payloads and the journal. It carries membership and attachment by ID only;
// live object graphs stay inside the workspace package.
type BlockState struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	X         float64           `json:"x"`
	Y         float64           `json:"y"`
	ParentID  string            `json:"parentId,omitempty"`
	InputName string            `json:"inputName,omitempty"`
	FrameID   string            `json:"frameId,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Proccode  string            `json:"proccode,omitempty"`
	Disabled  bool              `json:"disabled,omitempty"`
	ChildIDs  []string          `json:"childIds,omitempty"`
}

// CommentState is the serializable snapshot of a workspace comment bubble.
type CommentState struct {
	ID      string  `json:"id"`
	BlockID string  `json:"blockId,omitempty"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Text    string  `json:"text"`
	Open    bool    `json:"open,omitempty"`
}

// VariableState identifies a workspace variable for event payloads.
type VariableState struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

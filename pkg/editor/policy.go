package editor

// NodeState carries the server-asserted flags of the selected tree node.
type NodeState struct {
	Editable   bool `json:"editable"`
	Authorized bool `json:"authorized"`
	Published  bool `json:"published"`
}

func (s NodeState) Enabled() bool {
	return s.Editable && s.Authorized && !s.Published
}

// Policy toggles control availability for a node state.
// AlwaysDisabled and Allowlist are keyed by control ID.
type Policy struct {
	AlwaysDisabled map[string]bool
	Allowlist      map[string]bool
}

const (
	PrimaryButtonID    = "update_btn"
	NewVersionButtonID = "newversion_btn"
)

func DefaultPolicy() Policy {
	return Policy{
		AlwaysDisabled: map[string]bool{
			"senotypeid":     true,
			"submitterfirst": true,
			"submitterlast":  true,
			"submitteremail": true,
		},
		Allowlist: map[string]bool{
			PrimaryButtonID:    true,
			NewVersionButtonID: true,
		},
	}
}

// Apply walks every control and list. The disabled state of allowlisted
// buttons belongs to the tracker and the tree and is left alone.
func (p Policy) Apply(f *Form, s NodeState) {
	enabled := s.Enabled()
	for _, c := range f.controls {
		switch {
		case c.Kind == KindHidden:
			continue
		case c.Kind == KindButton:
			if p.Allowlist[c.ID] {
				c.Hidden = false
				continue
			}
			c.Hidden = !enabled
			c.Disabled = !enabled
		case p.AlwaysDisabled[c.ID]:
			c.Disabled = true
			c.Tinted = false
		default:
			c.Disabled = !enabled
			c.Tinted = enabled && c.External
		}
	}
	for _, l := range f.lists {
		l.setLocked(!enabled)
	}
}

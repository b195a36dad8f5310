package editor

import (
	"slices"

	"github.com/sennetconsortium/senotype-editor/pkg/eventbus"
)

type ScalarValue struct {
	ID      string
	Value   string
	Checked bool
}

type ListSnapshot struct {
	Name    string
	Entries []Entry
}

// Snapshot is an immutable copy of every comparable value on the form.
type Snapshot struct {
	Scalars []ScalarValue
	Lists   []ListSnapshot
}

func (s Snapshot) Equal(other Snapshot) bool {
	if !slices.Equal(s.Scalars, other.Scalars) {
		return false
	}
	return slices.EqualFunc(s.Lists, other.Lists, func(a, b ListSnapshot) bool {
		return a.Name == b.Name && slices.Equal(a.Entries, b.Entries)
	})
}

// TakeSnapshot copies named, non-structural controls and the real rows of every list.
func TakeSnapshot(f *Form) Snapshot {
	var s Snapshot
	for _, c := range f.controls {
		if c.Name == "" || c.Structural || c.Kind == KindButton {
			continue
		}
		s.Scalars = append(s.Scalars, ScalarValue{ID: c.ID, Value: c.Value, Checked: c.Checked})
	}
	for _, l := range f.lists {
		ls := ListSnapshot{Name: l.kind.Name}
		for _, e := range l.entries {
			if !e.placeholder() {
				ls.Entries = append(ls.Entries, e)
			}
		}
		s.Lists = append(s.Lists, ls)
	}
	return s
}

// Tracker gates the primary action on the difference between the form and its baseline.
type Tracker struct {
	form     *Form
	primary  string
	baseline *Snapshot
	dirty    bool
}

// NewTracker subscribes to every form mutation on bus; primaryID names the gated button.
func NewTracker(form *Form, bus eventbus.EventBus, primaryID string) *Tracker {
	t := &Tracker{form: form, primary: primaryID}
	bus.Subscribe(func(*ControlChanged) { t.Recompute() })
	bus.Subscribe(func(*ListMutated) { t.Recompute() })
	bus.Subscribe(func(*ErrorsReported) { t.Recompute() })
	return t
}

func (t *Tracker) CaptureBaseline() {
	s := TakeSnapshot(t.form)
	t.baseline = &s
	t.Recompute()
}

func (t *Tracker) Baseline() (Snapshot, bool) {
	if t.baseline == nil {
		return Snapshot{}, false
	}
	return *t.baseline, true
}

// IsDirty is true when the form differs from the baseline or validation errors are displayed.
func (t *Tracker) IsDirty() bool {
	if len(t.form.errors) > 0 {
		return true
	}
	if t.baseline == nil {
		return false
	}
	return !TakeSnapshot(t.form).Equal(*t.baseline)
}

// Recompute refreshes the primary control's disabled state and returns the dirty flag.
func (t *Tracker) Recompute() bool {
	t.dirty = t.IsDirty()
	if c, ok := t.form.byID[t.primary]; ok {
		c.Disabled = !t.dirty
	}
	return t.dirty
}

func (t *Tracker) Dirty() bool { return t.dirty }

package editor

import (
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/sennetconsortium/senotype-editor/pkg/eventbus"
)

type ControlKind string

const (
	KindText     ControlKind = "text"
	KindTextarea ControlKind = "textarea"
	KindHidden   ControlKind = "hidden"
	KindCheckbox ControlKind = "checkbox"
	KindRadio    ControlKind = "radio"
	KindSelect   ControlKind = "select"
	KindButton   ControlKind = "button"
)

// Control is one scalar element of the edit surface.
// Radio buttons share a Name and differ by ID and Value.
type Control struct {
	ID       string      `json:"id"`
	Name     string      `json:"name,omitempty"`
	Kind     ControlKind `json:"kind"`
	Value    string      `json:"value"`
	Checked  bool        `json:"checked,omitempty"`
	Disabled bool        `json:"disabled"`
	Hidden   bool        `json:"hidden,omitempty"`
	Tinted   bool        `json:"tinted,omitempty"`
	// External marks values sourced from a third-party vocabulary.
	External bool `json:"external,omitempty"`
	// Structural controls steer navigation and never count as edits.
	Structural bool `json:"-"`
}

func (c *Control) checkable() bool {
	return c.Kind == KindCheckbox || c.Kind == KindRadio
}

type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type UIState struct {
	OpenDialog string `json:"open_dialog,omitempty"`
	Focus      string `json:"focus,omitempty"`
	Loading    string `json:"loading,omitempty"`
}

// Form is the edit surface: ordered scalar controls plus registered list editors.
type Form struct {
	bus      eventbus.EventBus
	log      logrus.FieldLogger
	controls []*Control
	byID     map[string]*Control
	lists    []*ListEditor
	byList   map[string]*ListEditor
	errors   []FieldError
	UI       UIState
}

// NewForm subscribes to list mutations before any tracker can, so an edited
// list drops its reported error ahead of the dirty recompute.
func NewForm(bus eventbus.EventBus, log logrus.FieldLogger) *Form {
	f := &Form{
		bus:    bus,
		log:    log,
		byID:   map[string]*Control{},
		byList: map[string]*ListEditor{},
	}
	bus.Subscribe(func(e *ListMutated) { f.clearErrors(e.List, e.List+"-list") })
	return f
}

// AddControl registers a control; a second control with the same ID replaces the first.
func (f *Form) AddControl(c Control) *Control {
	if existing, ok := f.byID[c.ID]; ok {
		*existing = c
		return existing
	}
	ctl := &c
	f.controls = append(f.controls, ctl)
	f.byID[c.ID] = ctl
	return ctl
}

func (f *Form) Control(id string) (*Control, bool) {
	c, ok := f.byID[id]
	return c, ok
}

func (f *Form) Controls() []*Control {
	return f.controls
}

func (f *Form) lookup(id string) (*Control, error) {
	c, ok := f.byID[id]
	if !ok {
		f.log.WithField("control", id).Warn("editor: control not found")
		return nil, ErrUnknownControl
	}
	if c.Disabled {
		return nil, ErrReadOnly
	}
	return c, nil
}

func (f *Form) SetValue(id, value string) error {
	c, err := f.lookup(id)
	if err != nil {
		return err
	}
	if c.checkable() {
		return f.SetChecked(id, value != "" && value != "false" && value != "0")
	}
	if c.Value == value {
		return nil
	}
	c.Value = value
	f.changed(c)
	return nil
}

// SetChecked toggles a checkbox, or selects a radio and clears its siblings.
func (f *Form) SetChecked(id string, checked bool) error {
	c, err := f.lookup(id)
	if err != nil {
		return err
	}
	if !c.checkable() {
		return nil
	}
	if c.Kind == KindRadio && checked {
		for _, other := range f.controls {
			if other != c && other.Kind == KindRadio && other.Name == c.Name {
				other.Checked = false
			}
		}
	}
	if c.Checked == checked {
		return nil
	}
	c.Checked = checked
	f.changed(c)
	return nil
}

// Force sets a value without the read-only check; used for structural fields.
func (f *Form) Force(id, value string) {
	if c, ok := f.byID[id]; ok {
		c.Value = value
		return
	}
	f.log.WithField("control", id).Warn("editor: control not found")
}

func (f *Form) changed(c *Control) {
	if c.Structural {
		return
	}
	f.clearErrors(c.ID, c.Name)
	f.bus.Publish(&ControlChanged{ID: c.ID})
	f.bus.Publish(&FormChanged{Source: c.ID})
}

// RegisterList creates the list editor for kind, or returns the existing one.
func (f *Form) RegisterList(kind ListKind) *ListEditor {
	if l, ok := f.byList[kind.Name]; ok {
		return l
	}
	l := &ListEditor{kind: kind, bus: f.bus}
	f.lists = append(f.lists, l)
	f.byList[kind.Name] = l
	return l
}

func (f *Form) List(name string) (*ListEditor, bool) {
	l, ok := f.byList[name]
	return l, ok
}

func (f *Form) Lists() []*ListEditor {
	return f.lists
}

func (f *Form) SetErrors(errs []FieldError) {
	f.errors = append([]FieldError(nil), errs...)
	f.bus.Publish(&ErrorsReported{Count: len(f.errors)})
}

func (f *Form) Errors() []FieldError {
	return f.errors
}

// clearErrors drops reported errors for the edited field. Errors without a
// field stay until the next save attempt.
func (f *Form) clearErrors(fields ...string) {
	var kept []FieldError
	for _, e := range f.errors {
		if e.Field == "" || !slices.Contains(fields, e.Field) {
			kept = append(kept, e)
		}
	}
	f.errors = kept
}

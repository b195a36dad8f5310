package editor

import (
	"fmt"
	"net/url"
)

type SubmitAction string

const (
	SubmitUpdate     SubmitAction = "update"
	SubmitNewVersion SubmitAction = "new_version"
)

func ParseSubmitAction(raw string) (SubmitAction, error) {
	switch SubmitAction(raw) {
	case SubmitUpdate, SubmitNewVersion:
		return SubmitAction(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSubmit, raw)
}

// SubmissionForm is the flat wire payload posted to the server.
type SubmissionForm struct {
	fields []Field
}

func (s *SubmissionForm) Clear()          { s.fields = s.fields[:0] }
func (s *SubmissionForm) Fields() []Field { return s.fields }
func (s *SubmissionForm) Len() int        { return len(s.fields) }

func (s *SubmissionForm) Values() url.Values {
	v := url.Values{}
	for _, f := range s.fields {
		v.Add(f.Name, f.Value)
	}
	return v
}

// Assemble clears dst and copies every named control, then every list's
// positional fields, then the action discriminator. Unchecked checkboxes
// and radios are skipped; disabled controls are included.
func Assemble(f *Form, dst *SubmissionForm, action SubmitAction) error {
	if _, err := ParseSubmitAction(string(action)); err != nil {
		return err
	}
	dst.Clear()
	for _, c := range f.controls {
		if c.Name == "" || c.Kind == KindButton || c.Structural {
			continue
		}
		if c.checkable() && !c.Checked {
			continue
		}
		dst.fields = append(dst.fields, Field{Name: c.Name, Value: c.Value})
	}
	for _, l := range f.lists {
		dst.fields = append(dst.fields, l.Fields()...)
	}
	dst.fields = append(dst.fields, Field{Name: "action", Value: string(action)})
	return nil
}

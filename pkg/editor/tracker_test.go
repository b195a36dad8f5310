package editor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTrackedForm(t *testing.T) (*Form, *Tracker, *ListEditor) {
	t.Helper()
	form, bus := newTestForm(t)
	for _, c := range baseControls() {
		form.AddControl(c)
	}
	form.AddControl(Control{ID: SelectedNodeField, Name: SelectedNodeField, Kind: KindHidden, Structural: true})
	markers := form.RegisterList(markerKind)
	tracker := NewTracker(form, bus, PrimaryButtonID)
	tracker.CaptureBaseline()
	return form, tracker, markers
}

func primaryDisabled(t *testing.T, form *Form) bool {
	t.Helper()
	c, ok := form.Control(PrimaryButtonID)
	require.True(t, ok)
	return c.Disabled
}

func TestTracker_FieldChangeAndRevert(t *testing.T) {
	t.Parallel()

	form, tracker, _ := newTrackedForm(t)
	require.True(t, primaryDisabled(t, form))
	require.False(t, tracker.IsDirty())

	require.NoError(t, form.SetValue("senotypename", "Changed"))
	require.False(t, primaryDisabled(t, form))
	require.True(t, tracker.Dirty())

	require.NoError(t, form.SetValue("senotypename", "Senescent fibroblast"))
	require.True(t, primaryDisabled(t, form))
	require.False(t, tracker.Dirty())
}

func TestTracker_CheckedState(t *testing.T) {
	t.Parallel()

	form, tracker, _ := newTrackedForm(t)

	require.NoError(t, form.SetChecked("sex-female", true))
	require.True(t, tracker.Dirty())
	male, _ := form.Control("sex-male")
	require.False(t, male.Checked)

	require.NoError(t, form.SetChecked("sex-male", true))
	require.False(t, tracker.Dirty())

	require.NoError(t, form.SetValue("has_age", "on"))
	require.True(t, tracker.Dirty())
	require.NoError(t, form.SetChecked("has_age", false))
	require.False(t, tracker.Dirty())
}

func TestTracker_ListAddThenRemove(t *testing.T) {
	t.Parallel()

	form, tracker, markers := newTrackedForm(t)

	_, err := markers.Add("HGNC:1100", "HGNC:1100 (BRCA1)", ActionNone)
	require.NoError(t, err)
	require.False(t, primaryDisabled(t, form))

	require.NoError(t, markers.Remove(0))
	require.Zero(t, markers.Len())
	require.True(t, primaryDisabled(t, form))

	baseline, ok := tracker.Baseline()
	require.True(t, ok)
	require.True(t, TakeSnapshot(form).Equal(baseline))
}

func TestTracker_IgnoresStructuralFields(t *testing.T) {
	t.Parallel()

	form, tracker, _ := newTrackedForm(t)
	form.Force(SelectedNodeField, "SNT9")
	require.False(t, tracker.Recompute())
}

func TestTracker_ErrorsForceEnable(t *testing.T) {
	t.Parallel()

	form, tracker, _ := newTrackedForm(t)
	form.SetErrors([]FieldError{{Field: "senotypename", Message: "required"}})
	require.False(t, primaryDisabled(t, form))
	require.True(t, tracker.Dirty())

	form.SetErrors(nil)
	require.True(t, primaryDisabled(t, form))
}

func TestTracker_EditingClearsFieldErrors(t *testing.T) {
	t.Parallel()

	form, tracker, markers := newTrackedForm(t)
	form.SetErrors([]FieldError{
		{Field: "senotypename", Message: "required"},
		{Field: "marker", Message: "at least one marker"},
	})
	require.True(t, tracker.Dirty())

	require.NoError(t, form.SetValue("senotypename", "Changed"))
	require.NoError(t, form.SetValue("senotypename", "Senescent fibroblast"))
	require.Equal(t, []FieldError{{Field: "marker", Message: "at least one marker"}}, form.Errors())
	require.True(t, tracker.Dirty(), "the list error still forces the primary action")

	_, err := markers.Add("HGNC:1100", "HGNC:1100 (BRCA1)", ActionNone)
	require.NoError(t, err)
	require.NoError(t, markers.Remove(0))
	require.Empty(t, form.Errors())
	require.False(t, tracker.Dirty())
	require.True(t, primaryDisabled(t, form))
}

func TestTracker_GeneralErrorsSurviveEdits(t *testing.T) {
	t.Parallel()

	form, tracker, _ := newTrackedForm(t)
	form.SetErrors([]FieldError{{Message: "save failed"}})
	require.NoError(t, form.SetValue("senotypename", "Changed"))
	require.NoError(t, form.SetValue("senotypename", "Senescent fibroblast"))
	require.Len(t, form.Errors(), 1)
	require.True(t, tracker.Dirty())
}

func TestForm_UnknownAndReadOnly(t *testing.T) {
	t.Parallel()

	form, _, _ := newTrackedForm(t)
	require.ErrorIs(t, form.SetValue("nope", "x"), ErrUnknownControl)

	c, _ := form.Control("senotypename")
	c.Disabled = true
	require.ErrorIs(t, form.SetValue("senotypename", "x"), ErrReadOnly)
}

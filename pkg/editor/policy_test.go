package editor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPolicy_Apply(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		state   NodeState
		enabled bool
	}{
		{name: "editable authorized draft", state: NodeState{Editable: true, Authorized: true}, enabled: true},
		{name: "published", state: NodeState{Editable: true, Authorized: true, Published: true}},
		{name: "not authorized", state: NodeState{Editable: true}},
		{name: "not editable", state: NodeState{Authorized: true}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			form, _ := newTestForm(t)
			for _, c := range baseControls() {
				form.AddControl(c)
			}
			form.AddControl(Control{ID: "hidden", Name: "hidden", Kind: KindHidden})
			list := form.RegisterList(markerKind)

			DefaultPolicy().Apply(form, tc.state)

			name, _ := form.Control("senotypename")
			require.Equal(t, !tc.enabled, name.Disabled)

			for _, id := range []string{"senotypeid", "submitterfirst", "submitterlast", "submitteremail"} {
				c, _ := form.Control(id)
				require.True(t, c.Disabled, id)
			}

			doi, _ := form.Control("doi")
			require.Equal(t, tc.enabled, doi.Tinted)
			require.False(t, name.Tinted)

			search, _ := form.Control("marker-search-btn")
			require.Equal(t, !tc.enabled, search.Hidden)

			for _, id := range []string{PrimaryButtonID, NewVersionButtonID} {
				c, _ := form.Control(id)
				require.False(t, c.Hidden, id)
			}

			hidden, _ := form.Control("hidden")
			require.False(t, hidden.Disabled)
			require.Equal(t, !tc.enabled, list.Locked())
		})
	}
}

func TestAssemble(t *testing.T) {
	t.Parallel()

	form, _ := newTestForm(t)
	for _, c := range baseControls() {
		form.AddControl(c)
	}
	form.AddControl(Control{ID: SelectedNodeField, Name: SelectedNodeField, Kind: KindHidden, Value: "SNT1", Structural: true})
	markers := form.RegisterList(markerKind)
	regs := form.RegisterList(regmarkerKind)
	_, err := markers.Add("HGNC:1100", "", ActionNone)
	require.NoError(t, err)
	_, err = regs.Add("HGNC:1101", "", ActionDown)
	require.NoError(t, err)
	DefaultPolicy().Apply(form, NodeState{Editable: true, Authorized: true})

	var dst SubmissionForm
	dst.fields = []Field{{Name: "stale", Value: "x"}}
	require.NoError(t, Assemble(form, &dst, SubmitUpdate))

	values := dst.Values()
	require.Empty(t, values.Get("stale"))
	require.Equal(t, "SNT123.ABCD.456", values.Get("senotypeid"))
	require.Equal(t, []string{"male"}, values["sex"])
	require.NotContains(t, values, "has_age")
	require.NotContains(t, values, SelectedNodeField)
	require.NotContains(t, values, PrimaryButtonID)
	require.Equal(t, "HGNC:1100", values.Get("marker-0"))
	require.Equal(t, "HGNC:1101", values.Get("regmarker-0"))
	require.Equal(t, "down_regulates", values.Get("regmarker-action-0"))
	require.Equal(t, "update", values.Get("action"))

	fields := dst.Fields()
	require.Equal(t, Field{Name: "action", Value: "update"}, fields[len(fields)-1])

	require.NoError(t, Assemble(form, &dst, SubmitNewVersion))
	require.Equal(t, "new_version", dst.Values().Get("action"))
	require.Len(t, dst.Values()["action"], 1)

	require.ErrorIs(t, Assemble(form, &dst, SubmitAction("delete")), ErrUnknownSubmit)
}

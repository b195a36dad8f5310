package editor

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListEditor_FieldsStayContiguous(t *testing.T) {
	t.Parallel()

	form, _ := newTestForm(t)
	list := form.RegisterList(regmarkerKind)
	rng := rand.New(rand.NewSource(7))
	actions := []Action{ActionUp, ActionDown, ActionInconclusive}

	for step := 0; step < 300; step++ {
		if list.Len() > 0 && rng.Intn(3) == 0 {
			require.NoError(t, list.Remove(rng.Intn(list.Len())))
		} else {
			_, err := list.Add(fmt.Sprintf("HGNC:%d", rng.Intn(20)), "", actions[rng.Intn(len(actions))])
			require.NoError(t, err)
		}

		fields := list.Fields()
		require.Len(t, fields, 2*list.Len())
		for i := 0; i < list.Len(); i++ {
			require.Equal(t, fmt.Sprintf("regmarker-%d", i), fields[2*i].Name)
			require.Equal(t, fmt.Sprintf("regmarker-action-%d", i), fields[2*i+1].Name)
		}
	}
}

func TestListEditor_DuplicateSuppression(t *testing.T) {
	t.Parallel()

	t.Run("plain list uses the code", func(t *testing.T) {
		form, _ := newTestForm(t)
		list := form.RegisterList(markerKind)

		added, err := list.Add("HGNC:1100", "HGNC:1100 (BRCA1)", ActionNone)
		require.NoError(t, err)
		require.True(t, added)

		added, err = list.Add("HGNC:1100", "something else", ActionNone)
		require.NoError(t, err)
		require.False(t, added)

		added, err = list.Add("HGNC:1101", "HGNC:1100 (BRCA1)", ActionNone)
		require.NoError(t, err)
		require.True(t, added)
		require.Equal(t, 2, list.Len())
	})

	t.Run("action is ignored on plain lists", func(t *testing.T) {
		form, _ := newTestForm(t)
		list := form.RegisterList(markerKind)
		_, err := list.Add("HGNC:1100", "", ActionUp)
		require.NoError(t, err)
		added, err := list.Add("HGNC:1100", "", ActionDown)
		require.NoError(t, err)
		require.False(t, added)
		require.Equal(t, ActionNone, list.Entries()[0].Action)
	})

	t.Run("regulating markers use code and direction", func(t *testing.T) {
		form, _ := newTestForm(t)
		list := form.RegisterList(regmarkerKind)

		added, err := list.Add("HGNC:1100", "", ActionUp)
		require.NoError(t, err)
		require.True(t, added)
		added, err = list.Add("HGNC:1100", "", ActionDown)
		require.NoError(t, err)
		require.True(t, added)
		require.Equal(t, 2, list.Len())

		added, err = list.Add("HGNC:1100", "", ActionUp)
		require.NoError(t, err)
		require.False(t, added)
		require.Equal(t, 2, list.Len())
	})

	t.Run("regulating markers need a direction", func(t *testing.T) {
		form, _ := newTestForm(t)
		list := form.RegisterList(regmarkerKind)
		_, err := list.Add("HGNC:1100", "", ActionNone)
		require.ErrorIs(t, err, ErrActionRequired)
	})
}

func TestListEditor_AddPurgesPlaceholders(t *testing.T) {
	t.Parallel()

	form, bus := newTestForm(t)
	list := form.RegisterList(markerKind)
	list.Load([]Entry{{Key: ""}, {Key: "HGNC:1100"}, {Key: "  "}})

	var ops []ListOp
	bus.Subscribe(func(e *ListMutated) { ops = append(ops, e.Op) })

	added, err := list.Add("HGNC:1100", "", ActionNone)
	require.NoError(t, err)
	require.False(t, added)
	require.Equal(t, []ListOp{ListPurged}, ops)
	require.Equal(t, []Entry{{Key: "HGNC:1100"}}, list.Entries())

	_, err = list.Add("  ", "", ActionNone)
	require.ErrorIs(t, err, ErrEmptyKey)
}

func TestListEditor_RemoveAndErrors(t *testing.T) {
	t.Parallel()

	form, _ := newTestForm(t)
	list := form.RegisterList(markerKind)
	for _, k := range []string{"A:1", "A:2", "A:3"} {
		_, err := list.Add(k, "", ActionNone)
		require.NoError(t, err)
	}

	require.NoError(t, list.Remove(0))
	require.Equal(t, []Field{{Name: "marker-0", Value: "A:2"}, {Name: "marker-1", Value: "A:3"}}, list.Fields())

	require.ErrorIs(t, list.Remove(5), ErrIndexOutOfRange)

	found, err := list.RemoveKey("A:3", ActionNone)
	require.NoError(t, err)
	require.True(t, found)
	found, err = list.RemoveKey("A:3", ActionNone)
	require.NoError(t, err)
	require.False(t, found)

	list.setLocked(true)
	_, err = list.Add("A:9", "", ActionNone)
	require.ErrorIs(t, err, ErrReadOnly)
	require.ErrorIs(t, list.Remove(0), ErrReadOnly)
}

func TestListEditor_Links(t *testing.T) {
	t.Parallel()

	form, _ := newTestForm(t)
	citations := form.RegisterList(citationKind)
	_, err := citations.Add("PMID:12345", "", ActionNone)
	require.NoError(t, err)

	href, title, ok := citations.Link(0)
	require.True(t, ok)
	require.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/12345", href)
	require.Equal(t, "PMID:12345", title)

	_, _, ok = citations.Link(3)
	require.False(t, ok)

	regs := form.RegisterList(regmarkerKind)
	_, err = regs.Add("HGNC:1", "", ActionUp)
	require.NoError(t, err)
	_, _, ok = regs.Link(0)
	require.False(t, ok)
}

func TestParseAction(t *testing.T) {
	t.Parallel()

	cases := map[string]Action{
		"1":                        ActionUp,
		"up":                       ActionUp,
		"UP_Regulates":             ActionUp,
		"-1":                       ActionDown,
		"down":                     ActionDown,
		"down_regulates":           ActionDown,
		"0":                        ActionInconclusive,
		" inconclusive ":           ActionInconclusive,
		"inconclusively_regulates": ActionInconclusive,
	}
	for raw, want := range cases {
		got, err := ParseAction(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}

	_, err := ParseAction("sideways")
	require.ErrorIs(t, err, ErrInvalidAction)
}

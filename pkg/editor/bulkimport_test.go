package editor

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func markerImporter() (Importer, *stubFetcher) {
	fetcher := &stubFetcher{responses: map[string]string{
		"genes/HGNC:1100":     results(LookupResult{ID: "HGNC:1100", Description: "BRCA1"}),
		"genes/HGNC:11998":    results(LookupResult{ID: "HGNC:11998", Description: "TP53"}),
		"proteins/P04637":     results(LookupResult{ID: "UNIPROTKB:P04637", Description: "Cellular tumor antigen p53"}),
		"genes/HGNC:99999999": results(),
	}}
	return Importer{Fetcher: fetcher, Profiles: map[string]LookupProfile{"gene": geneProfile, "protein": proteinProfile}}, fetcher
}

func TestImport_AllOrNothing(t *testing.T) {
	t.Parallel()

	csv := "Type,ID\ngene,HGNC:1100\ngene,HGNC:99999999\nprotein,P04637\n"
	rows, parseErrs, err := ReadCSV(strings.NewReader(csv), false)
	require.NoError(t, err)
	require.Empty(t, parseErrs)
	require.Len(t, rows, 3)

	im, fetcher := markerImporter()
	report := im.Validate(context.Background(), "marker", rows, parseErrs)
	require.False(t, report.Ready())
	require.Len(t, report.Errors, 1)
	require.Equal(t, 3, report.Errors[0].Line)
	require.Contains(t, report.Errors[0].Error(), "row 2")
	require.Equal(t, []string{"genes/HGNC:1100", "genes/HGNC:99999999", "proteins/P04637"}, fetcher.calls)

	form, _ := newTestForm(t)
	list := form.RegisterList(markerKind)
	added, err := CommitImport(list, report)
	require.ErrorIs(t, err, ErrImportIncomplete)
	require.Zero(t, added)
	require.Zero(t, list.Len())
}

func TestImport_RejectsCodeTheVocabularyDidNotReturn(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{responses: map[string]string{
		"genes/HGNC:1100":  results(LookupResult{ID: "HGNC:1100", Description: "BRCA1"}),
		"genes/HGNC:11000": results(LookupResult{ID: "HGNC:1100", Description: "BRCA1"}),
	}}
	im := Importer{Fetcher: fetcher, Profiles: map[string]LookupProfile{"gene": geneProfile}}
	rows, _, err := ReadCSV(strings.NewReader("type,id\ngene,HGNC:1100\ngene,HGNC:11000\n"), false)
	require.NoError(t, err)

	report := im.Validate(context.Background(), "marker", rows, nil)
	require.False(t, report.Ready())
	require.Len(t, report.Records, 1)
	require.Len(t, report.Errors, 1)
	require.Equal(t, 3, report.Errors[0].Line)
	require.Contains(t, report.Errors[0].Error(), "not found")

	form, _ := newTestForm(t)
	list := form.RegisterList(markerKind)
	added, err := CommitImport(list, report)
	require.ErrorIs(t, err, ErrImportIncomplete)
	require.Zero(t, added)
}

func TestPickMatch(t *testing.T) {
	t.Parallel()

	brca1 := LookupResult{ID: "HGNC:1100", Description: "BRCA1"}
	tp53 := LookupResult{ID: "HGNC:11998", Description: "TP53"}
	p53 := LookupResult{ID: "UNIPROTKB:P04637", Description: "Cellular tumor antigen p53"}
	cases := []struct {
		name    string
		results []LookupResult
		id      string
		want    LookupResult
		ok      bool
	}{
		{name: "exact code", results: []LookupResult{tp53, brca1}, id: "hgnc:1100", want: brca1, ok: true},
		{name: "other prefixed code", results: []LookupResult{brca1}, id: "HGNC:11000"},
		{name: "bare local part", results: []LookupResult{p53}, id: "P04637", want: p53, ok: true},
		{name: "bare symbol", results: []LookupResult{tp53, brca1}, id: "BRCA1", want: brca1, ok: true},
		{name: "bare single result", results: []LookupResult{brca1}, id: "brca-1", want: brca1, ok: true},
		{name: "bare ambiguous", results: []LookupResult{tp53, brca1}, id: "BRC"},
		{name: "nothing returned", id: "BRCA1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok := pickMatch(tc.results, tc.id)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestImport_CommitUsesDuplicatePolicy(t *testing.T) {
	t.Parallel()

	csv := "\xef\xbb\xbftype,id,ACTION\ngene,HGNC:1100,1\ngene,HGNC:1100,down\ngene,HGNC:1100,up_regulates\n"
	rows, parseErrs, err := ReadCSV(strings.NewReader(csv), true)
	require.NoError(t, err)
	require.Empty(t, parseErrs)

	im, _ := markerImporter()
	report := im.Validate(context.Background(), "regmarker", rows, nil)
	require.True(t, report.Ready())

	form, _ := newTestForm(t)
	list := form.RegisterList(regmarkerKind)
	added, err := CommitImport(list, report)
	require.NoError(t, err)
	require.Equal(t, 2, added)
	require.Equal(t, []Entry{
		{Key: "HGNC:1100", Display: "HGNC:1100 (BRCA1)", Action: ActionUp},
		{Key: "HGNC:1100", Display: "HGNC:1100 (BRCA1)", Action: ActionDown},
	}, list.Entries())
}

func TestReadCSV_Validation(t *testing.T) {
	t.Parallel()

	t.Run("missing action column", func(t *testing.T) {
		rows, errs, err := ReadCSV(strings.NewReader("type,id\ngene,HGNC:1\n"), true)
		require.NoError(t, err)
		require.Empty(t, rows)
		require.Len(t, errs, 1)
		require.Contains(t, errs[0].Message, "action")
	})

	t.Run("bad rows are reported by line", func(t *testing.T) {
		csv := "type,id,action\nrna,X,1\ngene,,1\n\ngene,HGNC:1,sideways\ngene,HGNC:2,-1\n"
		rows, errs, err := ReadCSV(strings.NewReader(csv), true)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.Equal(t, ImportRow{Line: 6, Type: "gene", ID: "HGNC:2", Action: ActionDown}, rows[0])

		lines := make([]int, 0, len(errs))
		for _, e := range errs {
			lines = append(lines, e.Line)
		}
		require.Equal(t, []int{2, 3, 5}, lines)
	})

	t.Run("empty file", func(t *testing.T) {
		_, errs, err := ReadCSV(strings.NewReader(""), false)
		require.NoError(t, err)
		require.Len(t, errs, 1)
	})
}

func TestReadXLSX(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"TYPE", "Id"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"gene", "HGNC:11998"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"protein", "P04637"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	rows, errs, err := ReadXLSX(&buf, false)
	require.NoError(t, err)
	require.Empty(t, errs)
	require.Equal(t, []ImportRow{
		{Line: 2, Type: "gene", ID: "HGNC:11998"},
		{Line: 3, Type: "protein", ID: "P04637"},
	}, rows)

	im, _ := markerImporter()
	report := im.Validate(context.Background(), "marker", rows, errs)
	require.True(t, report.Ready())
	require.Equal(t, "UNIPROTKB:P04637", report.Records[1].Result.ID)
}

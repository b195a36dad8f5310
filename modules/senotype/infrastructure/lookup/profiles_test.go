package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sennetconsortium/senotype-editor/pkg/configuration"
	"github.com/sennetconsortium/senotype-editor/pkg/editor"
)

func testProfiles(base string) map[string]editor.LookupProfile {
	return Profiles(configuration.LookupOptions{
		OntologyURL:  base + "/ontology",
		EUtilsURL:    base + "/eutils",
		SciCrunchURL: base + "/scicrunch",
		DataCiteURL:  base + "/datacite",
		EntityURL:    base + "/entity",
	})
}

func TestProfiles_BuildQuery(t *testing.T) {
	t.Parallel()

	p := testProfiles("https://x")
	cases := []struct {
		profile string
		query   string
		want    string
	}{
		{Gene, "HGNC:1100", "https://x/ontology/genes/1100"},
		{Gene, "brca1", "https://x/ontology/genes/brca1"},
		{Protein, "UNIPROTKB:P38398", "https://x/ontology/proteins/P38398"},
		{CellType, "fibroblast", "https://x/ontology/celltypes/fibroblast"},
		{Citation, "PMID:12345", "https://x/eutils/esummary.fcgi?db=pubmed&id=12345&retmode=json"},
		{Citation, "cellular senescence", "https://x/eutils/esearch.fcgi?db=pubmed&retmax=20&retmode=json&term=cellular+senescence"},
		{Origin, "CVCL_0023", "https://x/scicrunch/RRID:CVCL_0023.json"},
		{DOI, "https://doi.org/10.1000/xyz", "https://x/datacite/dois/10.1000%2Fxyz"},
		{Dataset, "SNT123.ABCD.456", "https://x/entity/entities/SNT123.ABCD.456"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, p[tc.profile].BuildQuery(tc.query), "%s %q", tc.profile, tc.query)
	}
}

func TestProfiles_ParseResponse(t *testing.T) {
	t.Parallel()

	p := testProfiles("https://x")
	cases := []struct {
		name    string
		profile string
		body    string
		want    []editor.LookupResult
	}{
		{
			name:    "gene",
			profile: Gene,
			body:    `[{"hgnc_id":"HGNC:1100","approved_symbol":"BRCA1","approved_name":"BRCA1 DNA repair associated"}]`,
			want:    []editor.LookupResult{{ID: "HGNC:1100", Description: "BRCA1"}},
		},
		{
			name:    "unknown gene message",
			profile: Gene,
			body:    `{"message":"No genes match"}`,
		},
		{
			name:    "protein",
			profile: Protein,
			body:    `[{"uniprotkb_id":"P38398","recommended_name":["Breast cancer type 1 susceptibility protein"]}]`,
			want:    []editor.LookupResult{{ID: "UNIPROTKB:P38398", Description: "Breast cancer type 1 susceptibility protein"}},
		},
		{
			name:    "cell type",
			profile: CellType,
			body:    `[{"cell_type":{"id":"CL:0000057","name":"fibroblast"}}]`,
			want:    []editor.LookupResult{{ID: "CL:0000057", Description: "fibroblast"}},
		},
		{
			name:    "origin",
			profile: Origin,
			body:    `{"hits":{"hits":[{"_source":{"item":{"curie":"RRID:CVCL_0023","name":"A-549"}}}]}}`,
			want:    []editor.LookupResult{{ID: "RRID:CVCL_0023", Description: "A-549"}},
		},
		{
			name:    "doi",
			profile: DOI,
			body:    `{"data":{"id":"10.1000/xyz","attributes":{"doi":"10.1000/xyz","titles":[{"title":"Senotype X"}]}}}`,
			want:    []editor.LookupResult{{ID: "https://doi.org/10.1000/xyz", Description: "Senotype X"}},
		},
		{
			name:    "dataset",
			profile: Dataset,
			body:    `{"uuid":"abc","sennet_id":"SNT123.ABCD.456","entity_type":"Dataset","title":"RNAseq of lung"}`,
			want: []editor.LookupResult{{
				ID: "SNT123.ABCD.456", Description: "RNAseq of lung",
				LinkHref: "/dataset/portal/abc", LinkTitle: "abc",
			}},
		},
		{
			name:    "sample is not a dataset",
			profile: Dataset,
			body:    `{"uuid":"abc","sennet_id":"SNT123.ABCD.456","entity_type":"Sample"}`,
		},
		{
			name:    "empty body",
			profile: Citation,
			body:    ``,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, next, err := p[tc.profile].ParseResponse([]byte(tc.body))
			require.NoError(t, err)
			require.Empty(t, next)
			if len(tc.want) == 0 {
				require.Empty(t, got)
				return
			}
			require.Equal(t, tc.want, got)
		})
	}
}

func TestProfiles_MalformedBody(t *testing.T) {
	t.Parallel()

	_, _, err := testProfiles("https://x")[Gene].ParseResponse([]byte(`[{"hgnc_id":`))
	require.Error(t, err)
}

func TestCitation_TwoStepLookup(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/eutils/esearch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "senescence", r.URL.Query().Get("term"))
		_, _ = w.Write([]byte(`{"esearchresult":{"idlist":["111","222"]}}`))
	})
	mux.HandleFunc("/eutils/esummary.fcgi", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "111,222", r.URL.Query().Get("id"))
		_, _ = w.Write([]byte(`{"result":{"uids":["111","222"],"111":{"title":"First paper"},"222":{"title":"Second paper"}}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	f, _ := newTestFetcher(t, 1)
	results, err := editor.RunLookup(context.Background(), f, testProfiles(srv.URL)[Citation], "senescence")
	require.NoError(t, err)
	require.Equal(t, []editor.LookupResult{
		{ID: "PMID:111", Description: "First paper", LinkHref: "/citation/detail/PMID:111", LinkTitle: "PMID:111"},
		{ID: "PMID:222", Description: "Second paper", LinkHref: "/citation/detail/PMID:222", LinkTitle: "PMID:222"},
	}, results)
}

func TestGene_UnknownTermHasNoResults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	f, _ := newTestFetcher(t, 1)
	results, err := editor.RunLookup(context.Background(), f, testProfiles(srv.URL)[Gene], "HGNC:0")
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestLinks(t *testing.T) {
	t.Parallel()

	l := NewLinks(configuration.LinkOptions{
		HGNCURL:      "https://hgnc/#!/hgnc_id/",
		UniProtURL:   "https://uniprot/",
		OBOURL:       "http://obo/",
		PubMedURL:    "https://pubmed/",
		SciCrunchURL: "https://scicrunch/",
		DOIURL:       "https://doi.org/",
		PortalURL:    "https://portal/dataset?uuid=",
	})
	cases := []struct {
		id   string
		want string
	}{
		{"HGNC:1100", "https://hgnc/#!/hgnc_id/HGNC:1100"},
		{"UNIPROTKB:P38398", "https://uniprot/P38398"},
		{"CL:0000057", "http://obo/CL_0000057"},
		{"PMID:42", "https://pubmed/42"},
		{"RRID:CVCL_0023", "https://scicrunch/RRID:CVCL_0023"},
		{"https://doi.org/10.1000/xyz", "https://doi.org/10.1000/xyz"},
	}
	for _, tc := range cases {
		got, ok := l.Resolve(tc.id)
		require.True(t, ok, tc.id)
		require.Equal(t, tc.want, got)
	}

	_, ok := l.Resolve("plain")
	require.False(t, ok)
	got, ok := l.Portal("abc")
	require.True(t, ok)
	require.Equal(t, "https://portal/dataset?uuid=abc", got)
}

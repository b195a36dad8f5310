package lookup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sennetconsortium/senotype-editor/pkg/configuration"
)

func TestOrgans(t *testing.T) {
	t.Parallel()

	require.Equal(t, "https://onto/organs?application_context=sennet", OrgansQuery("https://onto/"))

	organs, err := ParseOrgans([]byte(`[
		{"organ_uberon":"UBERON:0002113","term":"Kidney"},
		{"organ_uberon":"UBERON:0002168","term":"Left lung","category":{"term":"Lung"}}
	]`))
	require.NoError(t, err)
	require.Len(t, organs, 2)

	links := NewLinks(configuration.LinkOptions{OrgansURL: "https://portal/organs/"})
	require.Equal(t, "https://portal/organs", links.OrganHome())

	cases := []struct {
		uberon string
		want   string
		found  bool
	}{
		{"UBERON:0002113", "https://portal/organs/kidney", true},
		{"uberon:0002168", "https://portal/organs/lung", true},
		{"UBERON:0000000", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		organ, ok := FindOrgan(organs, tc.uberon)
		require.Equal(t, tc.found, ok, tc.uberon)
		if !ok {
			continue
		}
		got, ok := links.Organ(organ)
		require.True(t, ok)
		require.Equal(t, tc.want, got)
	}

	_, ok := links.Organ(Organ{UBERON: "UBERON:1"})
	require.False(t, ok, "an organ without a term has no page")
}

func TestParseOrgans_EdgeBodies(t *testing.T) {
	t.Parallel()

	organs, err := ParseOrgans(nil)
	require.NoError(t, err)
	require.Empty(t, organs)

	organs, err = ParseOrgans([]byte(`{"message":"no organs"}`))
	require.NoError(t, err)
	require.Empty(t, organs)

	_, err = ParseOrgans([]byte(`[{"organ_uberon":`))
	require.Error(t, err)
}

func TestParseFTUTree(t *testing.T) {
	t.Parallel()

	csv := "\ufefforgan_label,organ_iri,ftu_label,ftu_iri,ftu_part_label,ftu_part_iri\n" +
		"kidney,http://x/UBERON_0002113,nephron,http://x/UBERON_0001285,podocyte,http://x/CL_0000653\n" +
		"lung,http://x/UBERON_0002048,alveolus,http://x/UBERON_0002299,AT1 cell,http://x/CL_0002062\n" +
		"kidney,http://x/UBERON_0002113,nephron,http://x/UBERON_0001285,mesangial cell,http://x/CL_0000650\n" +
		"kidney,http://x/UBERON_0002113,collecting duct,http://x/UBERON_0001232,principal cell,http://x/CL_1001431\n"

	tree, err := ParseFTUTree(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, tree, 2)

	kidney := tree[0]
	require.Equal(t, "organ_UBERON_0002113", kidney.ID)
	require.Equal(t, FTUData{Value: "UBERON_0002113", IRI: "http://x/UBERON_0002113"}, kidney.Data)
	require.Len(t, kidney.Children, 2)
	require.Equal(t, "nephron", kidney.Children[0].Text)
	require.Len(t, kidney.Children[0].Children, 2)
	require.Equal(t, "organ_UBERON_0002113_ftu_UBERON_0001285_part_CL_0000650", kidney.Children[0].Children[1].ID)
	require.Equal(t, "collecting duct", kidney.Children[1].Text)
	require.Equal(t, "lung", tree[1].Text)
}

func TestParseFTUTree_Invalid(t *testing.T) {
	t.Parallel()

	tree, err := ParseFTUTree(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, tree)

	_, err = ParseFTUTree(strings.NewReader("organ_label,organ_iri\nkidney,http://x/K\n"))
	require.ErrorContains(t, err, "ftu_label")
}

package lookup

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/go-faster/errors"
)

// FTUNode is a node of the organ > functional tissue unit > part tree.
type FTUNode struct {
	ID       string    `json:"id"`
	Text     string    `json:"text"`
	Data     FTUData   `json:"data"`
	Children []FTUNode `json:"children,omitempty"`
}

type FTUData struct {
	Value string `json:"value"`
	IRI   string `json:"iri"`
}

var ftuColumns = []string{
	"organ_label", "organ_iri",
	"ftu_label", "ftu_iri",
	"ftu_part_label", "ftu_part_iri",
}

// iriCode is the last path segment of an IRI.
func iriCode(iri string) string {
	iri = strings.TrimSpace(iri)
	if i := strings.LastIndex(iri, "/"); i >= 0 {
		return iri[i+1:]
	}
	return iri
}

// ParseFTUTree builds the FTU tree from the HRA 2D FTU parts CSV. Organs
// and FTUs keep the order of their first row; every row adds one part.
func ParseFTUTree(r io.Reader) ([]FTUNode, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read ftu header")
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, name := range ftuColumns {
		if _, ok := col[name]; !ok {
			return nil, errors.Errorf("ftu csv: missing column %q", name)
		}
	}

	var organs []*FTUNode
	organIdx := map[string]*FTUNode{}
	ftuIdx := map[*FTUNode]map[string]int{}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read ftu row")
		}
		field := func(name string) string {
			if i := col[name]; i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}

		organVal := iriCode(field("organ_iri"))
		organ, ok := organIdx[organVal]
		if !ok {
			organ = &FTUNode{
				ID:   "organ_" + organVal,
				Text: field("organ_label"),
				Data: FTUData{Value: organVal, IRI: field("organ_iri")},
			}
			organIdx[organVal] = organ
			ftuIdx[organ] = map[string]int{}
			organs = append(organs, organ)
		}

		ftuVal := iriCode(field("ftu_iri"))
		i, ok := ftuIdx[organ][ftuVal]
		if !ok {
			organ.Children = append(organ.Children, FTUNode{
				ID:   organ.ID + "_ftu_" + ftuVal,
				Text: field("ftu_label"),
				Data: FTUData{Value: ftuVal, IRI: field("ftu_iri")},
			})
			i = len(organ.Children) - 1
			ftuIdx[organ][ftuVal] = i
		}
		ftu := &organ.Children[i]

		partVal := iriCode(field("ftu_part_iri"))
		ftu.Children = append(ftu.Children, FTUNode{
			ID:   ftu.ID + "_part_" + partVal,
			Text: field("ftu_part_label"),
			Data: FTUData{Value: partVal, IRI: field("ftu_part_iri")},
		})
	}

	out := make([]FTUNode, 0, len(organs))
	for _, o := range organs {
		out = append(out, *o)
	}
	return out, nil
}

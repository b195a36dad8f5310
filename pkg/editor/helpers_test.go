package editor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/sennetconsortium/senotype-editor/pkg/eventbus"
)

type stubProfile struct {
	name string
	base string
}

func (p stubProfile) Name() string { return p.name }

func (p stubProfile) BuildQuery(q string) string { return p.base + "/" + q }

func (p stubProfile) ParseResponse(body []byte) ([]LookupResult, string, error) {
	if next, ok := strings.CutPrefix(string(body), "next:"); ok {
		return nil, next, nil
	}
	var out []LookupResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, "", err
	}
	return out, "", nil
}

func (p stubProfile) BuildLink(id string) (string, string) {
	return "https://example.org/" + id, id
}

func (p stubProfile) FormatDisplay(r LookupResult) string {
	return TruncateDisplay(r.ID, r.Description, 40)
}

type stubFetcher struct {
	mu        sync.Mutex
	responses map[string]string
	calls     []string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	body, ok := f.responses[url]
	if !ok {
		return nil, errors.New("status 404")
	}
	return []byte(body), nil
}

func results(rs ...LookupResult) string {
	b, _ := json.Marshal(rs)
	return string(b)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestForm(t *testing.T) (*Form, eventbus.EventBus) {
	t.Helper()
	bus := eventbus.NewEventPublisher(quietLogger())
	return NewForm(bus, quietLogger()), bus
}

var (
	markerKind = ListKind{
		Name:      "marker",
		Predicate: "has_characterizing_marker_set",
		External:  true,
		Link:      &LinkTemplate{URL: "https://www.genenames.org/data/gene-symbol-report/#!/hgnc_id/{id}"},
	}
	regmarkerKind = ListKind{
		Name:        "regmarker",
		Predicate:   "regulates",
		Directional: true,
		External:    true,
	}
	citationKind = ListKind{
		Name:      "citation",
		Predicate: "has_citation",
		External:  true,
		Link:      &LinkTemplate{URL: "https://pubmed.ncbi.nlm.nih.gov/{id}", SubCode: true},
	}
)

func baseControls() []Control {
	return []Control{
		{ID: "senotypeid", Name: "senotypeid", Kind: KindText, Value: "SNT123.ABCD.456"},
		{ID: "senotypename", Name: "senotypename", Kind: KindText, Value: "Senescent fibroblast"},
		{ID: "senotypedescription", Name: "senotypedescription", Kind: KindTextarea, Value: "desc"},
		{ID: "doi", Name: "doi", Kind: KindText, External: true},
		{ID: "submitterfirst", Name: "submitterfirst", Kind: KindText, Value: "Ada"},
		{ID: "submitterlast", Name: "submitterlast", Kind: KindText, Value: "Lovelace"},
		{ID: "submitteremail", Name: "submitteremail", Kind: KindText, Value: "ada@example.org"},
		{ID: "sex-male", Name: "sex", Kind: KindRadio, Value: "male", Checked: true},
		{ID: "sex-female", Name: "sex", Kind: KindRadio, Value: "female"},
		{ID: "has_age", Name: "has_age", Kind: KindCheckbox, Value: "y"},
		{ID: PrimaryButtonID, Kind: KindButton},
		{ID: NewVersionButtonID, Kind: KindButton},
		{ID: "marker-search-btn", Kind: KindButton},
	}
}

func groupTree(leafEditable bool) []NodeSnapshot {
	return []NodeSnapshot{{
		ID:   "Senotype",
		Text: "Senotype",
		Children: []NodeSnapshot{
			{
				ID:   "rootwrap_SNT1",
				Text: "Fibroblast (1 version)",
				Icon: IconGroup,
				Children: []NodeSnapshot{
					{ID: "SNT1", Text: "Version 1 (SNT1)", Icon: IconFile, Editable: leafEditable, Authorized: true},
				},
			},
			{ID: NewNodeID, Text: "new", Icon: IconFile, Editable: true, Authorized: true},
		},
	}}
}

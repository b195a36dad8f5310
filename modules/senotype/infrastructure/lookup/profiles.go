package lookup

import (
	"bytes"
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-faster/errors"

	"github.com/sennetconsortium/senotype-editor/pkg/configuration"
	"github.com/sennetconsortium/senotype-editor/pkg/editor"
)

// Profile names.
const (
	Gene     = "gene"
	Protein  = "protein"
	CellType = "celltype"
	Citation = "citation"
	Origin   = "origin"
	DOI      = "doi"
	Dataset  = "dataset"
)

// Local redirect routes; {id} is the identity key.
const (
	HGNCPath      = "/bio/hgnc/detail/{id}"
	UniProtPath   = "/bio/uniprotkb/detail/{id}"
	OBOPath       = "/bio/obo/detail/{id}"
	CitationPath  = "/citation/detail/{id}"
	OriginPath    = "/origin/detail/{id}"
	DOIPath       = "/doi/detail/{id}"
	DatasetPath   = "/dataset/detail/{id}"
	PortalPath    = "/dataset/portal/{id}"
	AnyDetailPath = "/detail/{id}"
)

const displayLength = 40

var pmidPattern = regexp.MustCompile(`^(?i:PMID:)?\s*(\d+)$`)

// Profiles builds every lookup profile against the configured endpoints.
func Profiles(opts configuration.LookupOptions) map[string]editor.LookupProfile {
	return map[string]editor.LookupProfile{
		Gene:     &geneProfile{base: strings.TrimRight(opts.OntologyURL, "/")},
		Protein:  &proteinProfile{base: strings.TrimRight(opts.OntologyURL, "/")},
		CellType: &cellTypeProfile{base: strings.TrimRight(opts.OntologyURL, "/")},
		Citation: &citationProfile{base: strings.TrimRight(opts.EUtilsURL, "/"), apiKey: opts.EUtilsAPIKey},
		Origin:   &originProfile{base: strings.TrimRight(opts.SciCrunchURL, "/")},
		DOI:      &doiProfile{base: strings.TrimRight(opts.DataCiteURL, "/")},
		Dataset:  &datasetProfile{base: strings.TrimRight(opts.EntityURL, "/")},
	}
}

// link fills a local redirect route.
func link(path, id string) (string, string) {
	return editor.LinkTemplate{URL: path}.Build(id)
}

// objectBody reports whether body is a JSON object. The ontology API answers
// unknown identifiers with an object carrying a message instead of a list.
func objectBody(body []byte) bool {
	b := bytes.TrimSpace(body)
	return len(b) > 0 && b[0] == '{'
}

func stripPrefix(q, prefix string) string {
	q = strings.TrimSpace(q)
	if len(q) > len(prefix) && strings.EqualFold(q[:len(prefix)], prefix) {
		return q[len(prefix):]
	}
	return q
}

func withPrefix(prefix, code string) string {
	if code == "" || strings.HasPrefix(strings.ToUpper(code), prefix) {
		return code
	}
	return prefix + code
}

type geneProfile struct{ base string }

func (p *geneProfile) Name() string { return Gene }

func (p *geneProfile) BuildQuery(q string) string {
	return p.base + "/genes/" + url.PathEscape(stripPrefix(q, "HGNC:"))
}

func (p *geneProfile) ParseResponse(body []byte) ([]editor.LookupResult, string, error) {
	if len(bytes.TrimSpace(body)) == 0 || objectBody(body) {
		return nil, "", nil
	}
	var genes []struct {
		HGNCID         string `json:"hgnc_id"`
		ApprovedSymbol string `json:"approved_symbol"`
		ApprovedName   string `json:"approved_name"`
	}
	if err := json.Unmarshal(body, &genes); err != nil {
		return nil, "", errors.Wrap(err, "decode genes")
	}
	out := make([]editor.LookupResult, 0, len(genes))
	for _, g := range genes {
		if g.HGNCID == "" {
			continue
		}
		desc := g.ApprovedSymbol
		if desc == "" {
			desc = g.ApprovedName
		}
		out = append(out, editor.LookupResult{ID: withPrefix("HGNC:", g.HGNCID), Description: desc})
	}
	return out, "", nil
}

func (p *geneProfile) BuildLink(id string) (string, string) { return link(HGNCPath, id) }

func (p *geneProfile) FormatDisplay(r editor.LookupResult) string {
	return editor.TruncateDisplay(r.ID, r.Description, displayLength)
}

type proteinProfile struct{ base string }

func (p *proteinProfile) Name() string { return Protein }

func (p *proteinProfile) BuildQuery(q string) string {
	return p.base + "/proteins/" + url.PathEscape(stripPrefix(q, "UNIPROTKB:"))
}

func (p *proteinProfile) ParseResponse(body []byte) ([]editor.LookupResult, string, error) {
	if len(bytes.TrimSpace(body)) == 0 || objectBody(body) {
		return nil, "", nil
	}
	var proteins []struct {
		UniProtKBID     string   `json:"uniprotkb_id"`
		RecommendedName []string `json:"recommended_name"`
		EntryName       string   `json:"entry_name"`
	}
	if err := json.Unmarshal(body, &proteins); err != nil {
		return nil, "", errors.Wrap(err, "decode proteins")
	}
	out := make([]editor.LookupResult, 0, len(proteins))
	for _, pr := range proteins {
		if pr.UniProtKBID == "" {
			continue
		}
		desc := pr.EntryName
		if len(pr.RecommendedName) > 0 {
			desc = pr.RecommendedName[0]
		}
		out = append(out, editor.LookupResult{ID: withPrefix("UNIPROTKB:", pr.UniProtKBID), Description: desc})
	}
	return out, "", nil
}

func (p *proteinProfile) BuildLink(id string) (string, string) { return link(UniProtPath, id) }

func (p *proteinProfile) FormatDisplay(r editor.LookupResult) string {
	return editor.TruncateDisplay(r.ID, r.Description, displayLength)
}

type cellTypeProfile struct{ base string }

func (p *cellTypeProfile) Name() string { return CellType }

func (p *cellTypeProfile) BuildQuery(q string) string {
	return p.base + "/celltypes/" + url.PathEscape(strings.TrimSpace(q))
}

func (p *cellTypeProfile) ParseResponse(body []byte) ([]editor.LookupResult, string, error) {
	if len(bytes.TrimSpace(body)) == 0 || objectBody(body) {
		return nil, "", nil
	}
	var cells []struct {
		CellType struct {
			ID         string `json:"id"`
			Name       string `json:"name"`
			Definition string `json:"definition"`
		} `json:"cell_type"`
	}
	if err := json.Unmarshal(body, &cells); err != nil {
		return nil, "", errors.Wrap(err, "decode cell types")
	}
	out := make([]editor.LookupResult, 0, len(cells))
	for _, c := range cells {
		if c.CellType.ID == "" {
			continue
		}
		out = append(out, editor.LookupResult{ID: c.CellType.ID, Description: c.CellType.Name})
	}
	return out, "", nil
}

func (p *cellTypeProfile) BuildLink(id string) (string, string) { return link(OBOPath, id) }

func (p *cellTypeProfile) FormatDisplay(r editor.LookupResult) string {
	return editor.TruncateDisplay(r.ID, r.Description, displayLength)
}

// citationProfile searches PubMed through EUtils. A free text query runs
// esearch first and follows up with esummary for the returned ids; a PMID
// goes straight to esummary.
type citationProfile struct {
	base   string
	apiKey string
}

const maxCitations = 20

func (p *citationProfile) Name() string { return Citation }

func (p *citationProfile) BuildQuery(q string) string {
	q = strings.TrimSpace(q)
	if m := pmidPattern.FindStringSubmatch(q); m != nil {
		return p.summaryURL([]string{m[1]})
	}
	v := url.Values{}
	v.Set("db", "pubmed")
	v.Set("retmode", "json")
	v.Set("retmax", "20")
	v.Set("term", q)
	p.key(v)
	return p.base + "/esearch.fcgi?" + v.Encode()
}

func (p *citationProfile) summaryURL(ids []string) string {
	v := url.Values{}
	v.Set("db", "pubmed")
	v.Set("retmode", "json")
	v.Set("id", strings.Join(ids, ","))
	p.key(v)
	return p.base + "/esummary.fcgi?" + v.Encode()
}

func (p *citationProfile) key(v url.Values) {
	if p.apiKey != "" {
		v.Set("api_key", p.apiKey)
	}
}

func (p *citationProfile) ParseResponse(body []byte) ([]editor.LookupResult, string, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, "", nil
	}
	var env struct {
		Search *struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, "", errors.Wrap(err, "decode eutils")
	}
	if env.Search != nil {
		ids := env.Search.IDList
		if len(ids) == 0 {
			return nil, "", nil
		}
		if len(ids) > maxCitations {
			ids = ids[:maxCitations]
		}
		return nil, p.summaryURL(ids), nil
	}
	var uids []string
	if raw, ok := env.Result["uids"]; ok {
		if err := json.Unmarshal(raw, &uids); err != nil {
			return nil, "", errors.Wrap(err, "decode eutils uids")
		}
	}
	out := make([]editor.LookupResult, 0, len(uids))
	for _, uid := range uids {
		var doc struct {
			Title string `json:"title"`
			Error string `json:"error"`
		}
		if err := json.Unmarshal(env.Result[uid], &doc); err != nil || doc.Error != "" {
			continue
		}
		out = append(out, editor.LookupResult{ID: "PMID:" + uid, Description: doc.Title})
	}
	return out, "", nil
}

func (p *citationProfile) BuildLink(id string) (string, string) { return link(CitationPath, id) }

func (p *citationProfile) FormatDisplay(r editor.LookupResult) string {
	return editor.TruncateDisplay(r.ID, r.Description, displayLength)
}

// originProfile resolves RRIDs through the SciCrunch resolver.
type originProfile struct{ base string }

func (p *originProfile) Name() string { return Origin }

func (p *originProfile) BuildQuery(q string) string {
	return p.base + "/" + url.PathEscape(withPrefix("RRID:", strings.TrimSpace(q))) + ".json"
}

func (p *originProfile) ParseResponse(body []byte) ([]editor.LookupResult, string, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, "", nil
	}
	var resp struct {
		Hits struct {
			Hits []struct {
				Source struct {
					Item struct {
						Curie       string `json:"curie"`
						Identifier  string `json:"identifier"`
						Name        string `json:"name"`
						Description string `json:"description"`
					} `json:"item"`
					RRID struct {
						Curie string `json:"curie"`
					} `json:"rrid"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, "", errors.Wrap(err, "decode scicrunch")
	}
	out := make([]editor.LookupResult, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		item := h.Source.Item
		id := h.Source.RRID.Curie
		if id == "" {
			id = item.Curie
		}
		if id == "" && item.Identifier != "" {
			id = withPrefix("RRID:", item.Identifier)
		}
		if id == "" {
			continue
		}
		desc := item.Name
		if desc == "" {
			desc = item.Description
		}
		out = append(out, editor.LookupResult{ID: id, Description: desc})
	}
	return out, "", nil
}

func (p *originProfile) BuildLink(id string) (string, string) { return link(OriginPath, id) }

func (p *originProfile) FormatDisplay(r editor.LookupResult) string {
	return editor.TruncateDisplay(r.ID, r.Description, displayLength)
}

// doiProfile resolves a DOI through DataCite. The stored value is the doi.org URL.
type doiProfile struct{ base string }

const doiOrg = "https://doi.org/"

func (p *doiProfile) Name() string { return DOI }

func (p *doiProfile) BuildQuery(q string) string {
	q = stripPrefix(stripPrefix(q, doiOrg), "doi:")
	return p.base + "/dois/" + url.PathEscape(q)
}

func (p *doiProfile) ParseResponse(body []byte) ([]editor.LookupResult, string, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, "", nil
	}
	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, "", errors.Wrap(err, "decode datacite")
	}
	type record struct {
		ID         string `json:"id"`
		Attributes struct {
			DOI    string `json:"doi"`
			Titles []struct {
				Title string `json:"title"`
			} `json:"titles"`
		} `json:"attributes"`
	}
	var records []record
	data := bytes.TrimSpace(resp.Data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return nil, "", nil
	case data[0] == '[':
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, "", errors.Wrap(err, "decode datacite records")
		}
	default:
		var r record
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, "", errors.Wrap(err, "decode datacite record")
		}
		records = append(records, r)
	}
	out := make([]editor.LookupResult, 0, len(records))
	for _, r := range records {
		doi := r.Attributes.DOI
		if doi == "" {
			doi = r.ID
		}
		if doi == "" {
			continue
		}
		var title string
		if len(r.Attributes.Titles) > 0 {
			title = r.Attributes.Titles[0].Title
		}
		out = append(out, editor.LookupResult{ID: doiOrg + doi, Description: title})
	}
	return out, "", nil
}

func (p *doiProfile) BuildLink(id string) (string, string) {
	return link(DOIPath, stripPrefix(id, doiOrg))
}

func (p *doiProfile) FormatDisplay(r editor.LookupResult) string {
	return editor.TruncateDisplay(r.ID, r.Description, displayLength)
}

// datasetProfile reads a SenNet entity. Requests carry the session's token.
type datasetProfile struct{ base string }

func (p *datasetProfile) Name() string { return Dataset }

func (p *datasetProfile) BuildQuery(q string) string {
	return p.base + "/entities/" + url.PathEscape(strings.TrimSpace(q))
}

// Entity is the subset of a SenNet entity the editor reads.
type Entity struct {
	UUID       string `json:"uuid"`
	SenNetID   string `json:"sennet_id"`
	EntityType string `json:"entity_type"`
	Title      string `json:"title"`
}

func (p *datasetProfile) ParseResponse(body []byte) ([]editor.LookupResult, string, error) {
	e, err := ParseEntity(body)
	if err != nil || e == nil {
		return nil, "", err
	}
	if e.EntityType != "" && !strings.EqualFold(e.EntityType, "Dataset") {
		return nil, "", nil
	}
	id := e.SenNetID
	if id == "" {
		id = e.UUID
	}
	r := editor.LookupResult{ID: id, Description: e.Title}
	if e.UUID != "" {
		r.LinkHref, r.LinkTitle = link(PortalPath, e.UUID)
	}
	return []editor.LookupResult{r}, "", nil
}

// ParseEntity decodes an entity API response; an empty body yields nil.
func ParseEntity(body []byte) (*Entity, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var e Entity
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, errors.Wrap(err, "decode entity")
	}
	if e.UUID == "" && e.SenNetID == "" {
		return nil, nil
	}
	return &e, nil
}

func (p *datasetProfile) BuildLink(id string) (string, string) { return link(DatasetPath, id) }

func (p *datasetProfile) FormatDisplay(r editor.LookupResult) string {
	return editor.TruncateDisplay(r.ID, r.Description, displayLength)
}

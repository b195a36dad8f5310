package lookup

import (
	"net/url"
	"strings"

	"github.com/sennetconsortium/senotype-editor/pkg/configuration"
)

// Sources that the /bio/{sab}/detail route understands.
const (
	SABHGNC      = "hgnc"
	SABUniProtKB = "uniprotkb"
	SABOBO       = "obo"
)

// Links maps identity keys to the external pages behind the local redirect routes.
type Links struct {
	opts configuration.LinkOptions
}

func NewLinks(opts configuration.LinkOptions) Links {
	return Links{opts: opts}
}

// Bio resolves a biological vocabulary code: HGNC:1100, UNIPROTKB:P38398 or CL:0000057.
func (l Links) Bio(sab, id string) (string, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", false
	}
	switch strings.ToLower(sab) {
	case SABHGNC:
		return l.opts.HGNCURL + withPrefix("HGNC:", id), true
	case SABUniProtKB:
		return l.opts.UniProtURL + url.PathEscape(stripPrefix(id, "UNIPROTKB:")), true
	case SABOBO:
		return l.opts.OBOURL + url.PathEscape(strings.Replace(id, ":", "_", 1)), true
	}
	return "", false
}

func (l Links) Citation(id string) (string, bool) {
	m := pmidPattern.FindStringSubmatch(strings.TrimSpace(id))
	if m == nil {
		return "", false
	}
	return l.opts.PubMedURL + m[1], true
}

func (l Links) Origin(id string) (string, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", false
	}
	return l.opts.SciCrunchURL + url.PathEscape(withPrefix("RRID:", id)), true
}

func (l Links) DOI(id string) (string, bool) {
	id = stripPrefix(id, doiOrg)
	if id == "" {
		return "", false
	}
	return l.opts.DOIURL + id, true
}

// Portal resolves a dataset uuid to its data portal page.
func (l Links) Portal(uuid string) (string, bool) {
	uuid = strings.TrimSpace(uuid)
	if uuid == "" {
		return "", false
	}
	return l.opts.PortalURL + url.QueryEscape(uuid), true
}

// OrganHome is the data portal organs index.
func (l Links) OrganHome() string {
	return strings.TrimRight(l.opts.OrgansURL, "/")
}

// Organ resolves an organ to its data portal page.
func (l Links) Organ(o Organ) (string, bool) {
	term := o.SearchTerm()
	if term == "" {
		return "", false
	}
	return l.OrganHome() + "/" + url.PathEscape(term), true
}

// Resolve guesses the vocabulary of id from its prefix.
func (l Links) Resolve(id string) (string, bool) {
	id = strings.TrimSpace(id)
	prefix, _, ok := strings.Cut(id, ":")
	switch {
	case strings.HasPrefix(strings.ToLower(id), "https://doi.org/"):
		return l.DOI(id)
	case !ok:
		return "", false
	}
	switch strings.ToUpper(prefix) {
	case "HGNC":
		return l.Bio(SABHGNC, id)
	case "UNIPROTKB":
		return l.Bio(SABUniProtKB, id)
	case "PMID":
		return l.Citation(id)
	case "RRID":
		return l.Origin(id)
	case "DOI":
		return l.DOI(strings.TrimSpace(id[len(prefix)+1:]))
	}
	return l.Bio(SABOBO, id)
}

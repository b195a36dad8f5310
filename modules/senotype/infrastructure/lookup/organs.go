package lookup

import (
	"encoding/json"
	"strings"

	"github.com/go-faster/errors"
)

// OrganPath is the local redirect route for an UBERON organ code.
const OrganPath = "/organs/{id}"

// Organ is one entry of the ontology API organs endpoint.
type Organ struct {
	UBERON   string `json:"organ_uberon"`
	Term     string `json:"term"`
	Category *struct {
		Term string `json:"term"`
	} `json:"category"`
}

// SearchTerm is the slug the data portal organs page is keyed by. Lateral
// organs such as the left lung use the term of their category.
func (o Organ) SearchTerm() string {
	term := o.Term
	if o.Category != nil && o.Category.Term != "" {
		term = o.Category.Term
	}
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(term)), " ", "-")
}

func OrgansQuery(ontologyURL string) string {
	return strings.TrimRight(ontologyURL, "/") + "/organs?application_context=sennet"
}

func ParseOrgans(body []byte) ([]Organ, error) {
	if len(body) == 0 || objectBody(body) {
		return nil, nil
	}
	var organs []Organ
	if err := json.Unmarshal(body, &organs); err != nil {
		return nil, errors.Wrap(err, "decode organs")
	}
	return organs, nil
}

func FindOrgan(organs []Organ, uberon string) (Organ, bool) {
	uberon = strings.TrimSpace(uberon)
	for _, o := range organs {
		if uberon != "" && strings.EqualFold(o.UBERON, uberon) {
			return o, true
		}
	}
	return Organ{}, false
}

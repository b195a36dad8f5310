package valueset

import (
	"context"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Term is one code of a closed vocabulary attached to an assertion predicate.
type Term struct {
	PredicateIRI  string `db:"predicate_iri" yaml:"predicate_iri" json:"predicate_iri,omitempty"`
	PredicateTerm string `db:"predicate_term" yaml:"predicate_term" json:"predicate_term"`
	Code          string `db:"valueset_code" yaml:"code" json:"code"`
	Term          string `db:"valueset_term" yaml:"term" json:"term"`
}

type Repository interface {
	All(ctx context.Context) ([]Term, error)
}

// Set indexes terms by predicate. A predicate may be given as IRI or term.
type Set struct {
	byPredicate map[string][]Term
}

func NewSet(terms []Term) *Set {
	s := &Set{byPredicate: make(map[string][]Term)}
	for _, t := range terms {
		s.byPredicate[t.PredicateTerm] = append(s.byPredicate[t.PredicateTerm], t)
		if t.PredicateIRI != "" && t.PredicateIRI != t.PredicateTerm {
			s.byPredicate[t.PredicateIRI] = append(s.byPredicate[t.PredicateIRI], t)
		}
	}
	return s
}

func (s *Set) Find(predicate string) []Term {
	if s == nil {
		return nil
	}
	return s.byPredicate[predicate]
}

// Term returns the label of code under predicate, or "" when unknown.
func (s *Set) Term(predicate, code string) string {
	for _, t := range s.Find(predicate) {
		if t.Code == code {
			return t.Term
		}
	}
	return ""
}

// Search filters the predicate's terms by a fuzzy match on code or label,
// best matches first. An empty query returns the whole valueset.
func (s *Set) Search(predicate, q string) []Term {
	terms := s.Find(predicate)
	q = strings.TrimSpace(q)
	if q == "" {
		return terms
	}
	type ranked struct {
		term     Term
		distance int
	}
	var hits []ranked
	for _, t := range terms {
		best := -1
		for _, target := range []string{t.Term, t.Code} {
			if d := fuzzy.RankMatchNormalizedFold(q, target); d >= 0 && (best < 0 || d < best) {
				best = d
			}
		}
		if best >= 0 {
			hits = append(hits, ranked{term: t, distance: best})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].distance < hits[j].distance })
	out := make([]Term, len(hits))
	for i, h := range hits {
		out[i] = h.term
	}
	return out
}

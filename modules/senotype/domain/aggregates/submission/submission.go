package submission

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("senotype not found")
	ErrPublished     = errors.New("senotype is published and cannot be changed")
	ErrNotAuthorized = errors.New("senotype belongs to another submitter")
	ErrOpenVersion   = errors.New("senotype already has an unpublished version")
	ErrInvalidID     = errors.New("senotype id is empty")
)

// Submission is the stored senotype document.
type Submission struct {
	Senotype   Senotype    `json:"senotype"`
	Submitter  Submitter   `json:"submitter"`
	Assertions []Assertion `json:"assertions,omitempty"`
}

type Senotype struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Definition string     `json:"definition"`
	DOI        string     `json:"doi,omitempty"`
	Provenance Provenance `json:"provenance"`
}

type Provenance struct {
	Predecessor string `json:"predecessor,omitempty"`
	Successor   string `json:"successor,omitempty"`
}

type Submitter struct {
	Name  Name   `json:"name"`
	Email string `json:"email"`
}

type Name struct {
	First string `json:"first"`
	Last  string `json:"last"`
}

type Assertion struct {
	Predicate Predicate `json:"predicate"`
	Objects   []Object  `json:"objects"`
}

type Predicate struct {
	IRI  string `json:"IRI,omitempty"`
	Term string `json:"term"`
}

// Object is one assertion object. Context objects (age, bmi) carry a
// value with optional bounds and unit; everything else is a code.
type Object struct {
	Code       string           `json:"code,omitempty"`
	Term       string           `json:"term,omitempty"`
	Type       string           `json:"type,omitempty"`
	Value      *decimal.Decimal `json:"value,omitempty"`
	LowerBound *decimal.Decimal `json:"lowerbound,omitempty"`
	UpperBound *decimal.Decimal `json:"upperbound,omitempty"`
	Unit       string           `json:"unit,omitempty"`
}

func (s Submission) ID() string { return s.Senotype.ID }

// Published reports whether a DOI has been minted for this version.
func (s Submission) Published() bool {
	return strings.TrimSpace(s.Senotype.DOI) != ""
}

// AuthorizedFor reports whether email is the submitter of record.
func (s Submission) AuthorizedFor(email string) bool {
	email = strings.TrimSpace(email)
	return email != "" && strings.EqualFold(strings.TrimSpace(s.Submitter.Email), email)
}

// Objects returns the objects asserted under predicate term, optionally
// restricted to objects of type typ.
func (s Submission) Objects(predicate, typ string) []Object {
	var out []Object
	for _, a := range s.Assertions {
		if a.Predicate.Term != predicate && a.Predicate.IRI != predicate {
			continue
		}
		for _, o := range a.Objects {
			if typ != "" && o.Type != typ {
				continue
			}
			out = append(out, o)
		}
	}
	return out
}

// Context returns the context object of type typ, if present.
func (s Submission) Context(typ string) (Object, bool) {
	objs := s.Objects(PredicateContext, typ)
	if len(objs) == 0 {
		return Object{}, false
	}
	return objs[0], true
}

// Assert appends objects under predicate, merging into an existing assertion.
func (s *Submission) Assert(predicate string, objs ...Object) {
	if len(objs) == 0 {
		return
	}
	for i := range s.Assertions {
		if s.Assertions[i].Predicate.Term == predicate {
			s.Assertions[i].Objects = append(s.Assertions[i].Objects, objs...)
			return
		}
	}
	s.Assertions = append(s.Assertions, Assertion{
		Predicate: Predicate{IRI: PredicateIRIs[predicate], Term: predicate},
		Objects:   objs,
	})
}

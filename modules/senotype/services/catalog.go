package services

import (
	"github.com/sennetconsortium/senotype-editor/modules/senotype/domain/aggregates/submission"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/infrastructure/lookup"
	"github.com/sennetconsortium/senotype-editor/pkg/editor"
)

// FieldFTU picks a path in the FTU tree served at /ftu. The library has no
// place for it, so it starts empty on every open.
const FieldFTU = "ftu"

// Units preset on the context controls.
const (
	AgeUnit = "year"
	BMIUnit = "kg/m^2"
)

var listLinks = map[string]string{
	"celltype":  lookup.OBOPath,
	"citation":  lookup.CitationPath,
	"origin":    lookup.OriginPath,
	"dataset":   lookup.DatasetPath,
	"location":  lookup.OrganPath,
	"marker":    lookup.AnyDetailPath,
	"regmarker": lookup.AnyDetailPath,
}

// Catalog maps the repeatable field inventory onto editor list kinds and
// lookup profiles.
type Catalog struct {
	profiles map[string]editor.LookupProfile
}

func NewCatalog(profiles map[string]editor.LookupProfile) *Catalog {
	return &Catalog{profiles: profiles}
}

func (c *Catalog) Profile(name string) (editor.LookupProfile, bool) {
	p, ok := c.profiles[name]
	return p, ok
}

func (c *Catalog) Kind(l submission.ListField) editor.ListKind {
	k := editor.ListKind{
		Name:        l.Name,
		Prefix:      l.Name,
		Predicate:   l.Predicate,
		Directional: l.Directional,
		External:    l.Vocabulary == submission.VocabularyLookup,
	}
	if path, ok := listLinks[l.Name]; ok {
		k.Link = &editor.LinkTemplate{URL: path}
	}
	return k
}

// Sources returns the list's lookup profiles, default first.
func (c *Catalog) Sources(l submission.ListField) []editor.LookupProfile {
	var out []editor.LookupProfile
	for _, name := range l.Sources {
		if p, ok := c.profiles[name]; ok {
			out = append(out, p)
		}
	}
	return out
}

// ImportProfiles are the profiles marker import rows are validated against, keyed by row type.
func (c *Catalog) ImportProfiles() map[string]editor.LookupProfile {
	out := map[string]editor.LookupProfile{}
	for _, name := range []string{lookup.Gene, lookup.Protein} {
		if p, ok := c.profiles[name]; ok {
			out[name] = p
		}
	}
	return out
}

func (c *Catalog) Scalars() []editor.ScalarLookup {
	p, ok := c.profiles[lookup.DOI]
	if !ok {
		return nil
	}
	return []editor.ScalarLookup{{Name: lookup.DOI, ControlID: submission.FieldDOI, Profile: p}}
}

// Controls lays out the scalar controls of the edit form, filled from values.
func (c *Catalog) Controls(values map[string]string) []editor.Control {
	text := func(id string) editor.Control {
		return editor.Control{ID: id, Name: id, Kind: editor.KindText, Value: values[id]}
	}
	controls := []editor.Control{
		text(submission.FieldID),
		text(submission.FieldName),
		{ID: submission.FieldDefinition, Name: submission.FieldDefinition, Kind: editor.KindTextarea, Value: values[submission.FieldDefinition]},
		{ID: submission.FieldDOI, Name: submission.FieldDOI, Kind: editor.KindText, Value: values[submission.FieldDOI], External: true},
		text(submission.FieldSubmitterFirst),
		text(submission.FieldSubmitterLast),
		text(submission.FieldSubmitterEmail),
		text(submission.FieldAgeValue),
		text(submission.FieldAgeLower),
		text(submission.FieldAgeUpper),
		{ID: submission.FieldAgeUnit, Name: submission.FieldAgeUnit, Kind: editor.KindSelect, Value: valueOr(values[submission.FieldAgeUnit], AgeUnit)},
		text(submission.FieldBMIValue),
		text(submission.FieldBMILower),
		text(submission.FieldBMIUpper),
		{ID: submission.FieldBMIUnit, Name: submission.FieldBMIUnit, Kind: editor.KindSelect, Value: valueOr(values[submission.FieldBMIUnit], BMIUnit)},
		{ID: FieldFTU, Name: FieldFTU, Kind: editor.KindSelect, Value: values[FieldFTU]},
	}
	for _, l := range submission.Lists {
		if l.Vocabulary == submission.VocabularyLookup {
			controls = append(controls, editor.Control{ID: l.Name + "-search-btn", Kind: editor.KindButton})
		}
	}
	if _, ok := c.profiles[lookup.DOI]; ok {
		controls = append(controls, editor.Control{ID: lookup.DOI + "-search-btn", Kind: editor.KindButton})
	}
	for _, name := range []string{"marker", "regmarker"} {
		controls = append(controls, editor.Control{ID: name + "-import-btn", Kind: editor.KindButton})
	}
	return controls
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

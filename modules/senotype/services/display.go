package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/sennetconsortium/senotype-editor/modules/senotype/domain/aggregates/submission"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/domain/entities/valueset"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/infrastructure/lookup"
	"github.com/sennetconsortium/senotype-editor/pkg/editor"
)

// DisplayResolver renders stored codes the way the lookup dialogs would.
// Codes are resolved one at a time; a failed lookup falls back to the bare code.
type DisplayResolver struct {
	catalog *Catalog
	fetcher editor.Fetcher
	log     logrus.FieldLogger
}

func NewDisplayResolver(catalog *Catalog, fetcher editor.Fetcher, log logrus.FieldLogger) *DisplayResolver {
	return &DisplayResolver{catalog: catalog, fetcher: fetcher, log: log}
}

// Lists builds every list of the form from sub. Empty lists get one placeholder row.
func (r *DisplayResolver) Lists(ctx context.Context, sub submission.Submission, vs *valueset.Set) []editor.ListSetup {
	setups := make([]editor.ListSetup, 0, len(submission.Lists))
	for _, l := range submission.Lists {
		entries := r.entries(ctx, l, sub, vs)
		if len(entries) == 0 {
			entries = []editor.Entry{{}}
		}
		setups = append(setups, editor.ListSetup{
			Kind:    r.catalog.Kind(l),
			Entries: entries,
			Sources: r.catalog.Sources(l),
		})
	}
	return setups
}

func (r *DisplayResolver) entries(ctx context.Context, l submission.ListField, sub submission.Submission, vs *valueset.Set) []editor.Entry {
	if l.Directional {
		var out []editor.Entry
		for _, p := range submission.RegulationPredicates {
			for _, o := range sub.Objects(p, "") {
				e := r.entry(ctx, l, o, vs)
				e.Action = editor.Action(p)
				out = append(out, e)
			}
		}
		return out
	}
	objs := sub.Objects(l.Predicate, l.ContextType)
	out := make([]editor.Entry, 0, len(objs))
	for _, o := range objs {
		if strings.TrimSpace(o.Code) == "" {
			continue
		}
		out = append(out, r.entry(ctx, l, o, vs))
	}
	return out
}

func (r *DisplayResolver) entry(ctx context.Context, l submission.ListField, o submission.Object, vs *valueset.Set) editor.Entry {
	e := editor.Entry{Key: o.Code, Display: o.Code}
	if l.Vocabulary == submission.VocabularyValueset {
		term := o.Term
		if term == "" {
			term = vs.Term(l.Predicate, o.Code)
		}
		e.Display = editor.TruncateDisplay(o.Code, term, 0)
		return e
	}
	for _, p := range r.candidates(l, o.Code) {
		if ctx.Err() != nil {
			break
		}
		results, err := editor.RunLookup(ctx, r.fetcher, p, o.Code)
		if err != nil {
			r.log.WithError(err).WithField("code", o.Code).Warn("display: lookup failed")
			continue
		}
		for _, res := range results {
			if strings.EqualFold(res.ID, o.Code) {
				e.Display = p.FormatDisplay(res)
				return e
			}
		}
	}
	return e
}

// candidates orders the list's sources so the one matching the code prefix is tried first.
func (r *DisplayResolver) candidates(l submission.ListField, code string) []editor.LookupProfile {
	sources := r.catalog.Sources(l)
	if len(sources) < 2 {
		return sources
	}
	want := ""
	switch prefix, _, _ := strings.Cut(strings.ToUpper(code), ":"); prefix {
	case "HGNC":
		want = lookup.Gene
	case "UNIPROTKB":
		want = lookup.Protein
	}
	out := make([]editor.LookupProfile, 0, len(sources))
	for _, p := range sources {
		if p.Name() == want {
			out = append(out, p)
		}
	}
	for _, p := range sources {
		if p.Name() != want {
			out = append(out, p)
		}
	}
	return out
}

// FormValues flattens the scalar fields of sub into control values.
func FormValues(sub submission.Submission) map[string]string {
	v := map[string]string{
		submission.FieldID:             sub.Senotype.ID,
		submission.FieldName:           sub.Senotype.Name,
		submission.FieldDefinition:     sub.Senotype.Definition,
		submission.FieldDOI:            sub.Senotype.DOI,
		submission.FieldSubmitterFirst: sub.Submitter.Name.First,
		submission.FieldSubmitterLast:  sub.Submitter.Name.Last,
		submission.FieldSubmitterEmail: sub.Submitter.Email,
	}
	if o, ok := sub.Context(submission.ContextAge); ok {
		v[submission.FieldAgeValue] = decimalString(o.Value)
		v[submission.FieldAgeLower] = decimalString(o.LowerBound)
		v[submission.FieldAgeUpper] = decimalString(o.UpperBound)
		v[submission.FieldAgeUnit] = o.Unit
	}
	if o, ok := sub.Context(submission.ContextBMI); ok {
		v[submission.FieldBMIValue] = decimalString(o.Value)
		v[submission.FieldBMILower] = decimalString(o.LowerBound)
		v[submission.FieldBMIUpper] = decimalString(o.UpperBound)
		v[submission.FieldBMIUnit] = o.Unit
	}
	return v
}

func decimalString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

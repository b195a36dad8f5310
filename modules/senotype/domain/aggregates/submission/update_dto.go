package submission

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/sennetconsortium/senotype-editor/pkg/constants"
)

const (
	ActionUpdate     = "update"
	ActionNewVersion = "new_version"
)

var maxAge = decimal.NewFromInt(90)

// UpdateDTO is the decoded wire payload of the update form.
type UpdateDTO struct {
	SenotypeID     string `form:"senotypeid" validate:"required"`
	Name           string `form:"senotypename" validate:"required"`
	Definition     string `form:"senotypedescription" validate:"required"`
	DOI            string `form:"doi"`
	SubmitterFirst string `form:"submitterfirst" validate:"required"`
	SubmitterLast  string `form:"submitterlast" validate:"required"`
	SubmitterEmail string `form:"submitteremail" validate:"required,email"`
	AgeValue       string `form:"agevalue"`
	AgeLower       string `form:"agelowerbound"`
	AgeUpper       string `form:"ageupperbound"`
	AgeUnit        string `form:"ageunit"`
	BMIValue       string `form:"bmivalue"`
	BMILower       string `form:"bmilowerbound"`
	BMIUpper       string `form:"bmiupperbound"`
	BMIUnit        string `form:"bmiunit"`
	Action         string `form:"action" validate:"required,oneof=update new_version"`

	Lists map[string][]ListEntry `form:"-"`
}

type ListEntry struct {
	Code   string
	Action string
}

var fieldIDs = map[string]string{
	"SenotypeID":     FieldID,
	"Name":           FieldName,
	"Definition":     FieldDefinition,
	"SubmitterFirst": FieldSubmitterFirst,
	"SubmitterLast":  FieldSubmitterLast,
	"SubmitterEmail": FieldSubmitterEmail,
	"Action":         "action",
}

func (d *UpdateDTO) Normalize() {
	for _, p := range []*string{
		&d.SenotypeID, &d.Name, &d.Definition, &d.DOI,
		&d.SubmitterFirst, &d.SubmitterLast, &d.SubmitterEmail,
		&d.AgeValue, &d.AgeLower, &d.AgeUpper, &d.AgeUnit,
		&d.BMIValue, &d.BMILower, &d.BMIUpper, &d.BMIUnit, &d.Action,
	} {
		*p = strings.TrimSpace(*p)
	}
}

// ReadLists collects the indexed list fields ({name}-{i}, {name}-action-{i})
// in index order. Blank codes are dropped.
func (d *UpdateDTO) ReadLists(values url.Values) {
	d.Lists = make(map[string][]ListEntry, len(Lists))
	for _, l := range Lists {
		prefix := l.Name + "-"
		var idx []int
		for key := range values {
			rest, ok := strings.CutPrefix(key, prefix)
			if !ok {
				continue
			}
			if i, err := strconv.Atoi(rest); err == nil && i >= 0 {
				idx = append(idx, i)
			}
		}
		sort.Ints(idx)
		for _, i := range idx {
			code := strings.TrimSpace(values.Get(fmt.Sprintf("%s%d", prefix, i)))
			if code == "" {
				continue
			}
			entry := ListEntry{Code: code}
			if l.Directional {
				entry.Action = strings.TrimSpace(values.Get(fmt.Sprintf("%saction-%d", prefix, i)))
			}
			d.Lists[l.Name] = append(d.Lists[l.Name], entry)
		}
	}
}

// Ok validates the payload and returns field errors keyed by control id.
func (d *UpdateDTO) Ok() (map[string]string, bool) {
	d.Normalize()
	errs := map[string]string{}

	if err := constants.Validate.Struct(d); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				id := fieldIDs[fe.StructField()]
				if id == "" {
					id = strings.ToLower(fe.StructField())
				}
				errs[id] = validationMessage(fe)
			}
		} else {
			errs["form"] = err.Error()
		}
	}

	if field, msg := validateAgeRange(d.AgeValue, d.AgeLower, d.AgeUpper); msg != "" {
		errs[field] = msg
	}
	for id, raw := range map[string]string{FieldBMIValue: d.BMIValue, FieldBMILower: d.BMILower, FieldBMIUpper: d.BMIUpper} {
		if _, err := parseNumber(raw); err != nil {
			errs[id] = "BMI must be a number."
		}
	}
	for _, l := range Lists {
		if !l.Directional {
			continue
		}
		for i, e := range d.Lists[l.Name] {
			if !validRegulation(e.Action) {
				errs[fmt.Sprintf("%s-action-%d", l.Name, i)] = "Regulating action is required."
			}
		}
	}
	return errs, len(errs) == 0
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Invalid email address."
	case "oneof":
		return fmt.Sprintf("Must be one of: %s.", fe.Param())
	}
	return fmt.Sprintf("Failed %s validation.", fe.Tag())
}

func validRegulation(action string) bool {
	for _, p := range RegulationPredicates {
		if action == p {
			return true
		}
	}
	return false
}

func parseNumber(raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// validateAgeRange checks ages are numbers in [0, 90] with lower <= value <= upper.
func validateAgeRange(value, lower, upper string) (string, string) {
	fields := []struct {
		id  string
		raw string
	}{{FieldAgeValue, value}, {FieldAgeLower, lower}, {FieldAgeUpper, upper}}

	parsed := make([]*decimal.Decimal, len(fields))
	for i, f := range fields {
		d, err := parseNumber(f.raw)
		if err != nil {
			return f.id, "Ages must be numbers."
		}
		if d != nil && d.IsNegative() {
			return f.id, "Age must be positive."
		}
		if d != nil && d.GreaterThan(maxAge) {
			return f.id, "Ages over 89 years must be set to 90 years."
		}
		parsed[i] = d
	}
	v, lo, hi := parsed[0], parsed[1], parsed[2]
	switch {
	case lo != nil && v != nil && lo.GreaterThan(*v):
		return FieldAgeValue, "The age must be >= the age lower bound."
	case v != nil && hi != nil && v.GreaterThan(*hi):
		return FieldAgeValue, "The age must be <= the age upper bound."
	case lo != nil && hi != nil && lo.GreaterThan(*hi):
		return FieldAgeLower, "The age lower bound must be <= the age upper bound."
	}
	return "", ""
}

// ToSubmission builds the stored document. Provenance is left to the caller.
func (d *UpdateDTO) ToSubmission(id string) Submission {
	s := Submission{
		Senotype: Senotype{
			ID:         id,
			Name:       d.Name,
			Definition: d.Definition,
			DOI:        d.DOI,
		},
		Submitter: Submitter{
			Name:  Name{First: d.SubmitterFirst, Last: d.SubmitterLast},
			Email: d.SubmitterEmail,
		},
	}
	for _, l := range Lists {
		entries := d.Lists[l.Name]
		if l.Directional {
			for _, p := range RegulationPredicates {
				var objs []Object
				for _, e := range entries {
					if e.Action == p {
						objs = append(objs, Object{Code: e.Code})
					}
				}
				s.Assert(p, objs...)
			}
			continue
		}
		objs := make([]Object, 0, len(entries))
		for _, e := range entries {
			objs = append(objs, Object{Code: e.Code, Type: l.ContextType})
		}
		s.Assert(l.Predicate, objs...)
	}
	if o, ok := contextObject(ContextAge, d.AgeValue, d.AgeLower, d.AgeUpper, d.AgeUnit); ok {
		s.Assert(PredicateContext, o)
	}
	if o, ok := contextObject(ContextBMI, d.BMIValue, d.BMILower, d.BMIUpper, d.BMIUnit); ok {
		s.Assert(PredicateContext, o)
	}
	return s
}

func contextObject(typ, value, lower, upper, unit string) (Object, bool) {
	if value == "" && lower == "" && upper == "" {
		return Object{}, false
	}
	v, _ := parseNumber(value)
	lo, _ := parseNumber(lower)
	hi, _ := parseNumber(upper)
	return Object{Type: typ, Value: v, LowerBound: lo, UpperBound: hi, Unit: unit}, true
}

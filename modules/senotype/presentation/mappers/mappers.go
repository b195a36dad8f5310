package mappers

import (
	"sort"

	"github.com/sennetconsortium/senotype-editor/modules/senotype/domain/entities/valueset"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/presentation/viewmodels"
	"github.com/sennetconsortium/senotype-editor/pkg/editor"
)

func ValuesetOptions(terms []valueset.Term) []viewmodels.ValuesetOption {
	out := make([]viewmodels.ValuesetOption, 0, len(terms))
	for _, t := range terms {
		out = append(out, viewmodels.ValuesetOption{ID: t.Code, Label: t.Term})
	}
	return out
}

// FieldErrors turns validation messages keyed by control id into editor
// field errors ordered by control id.
func FieldErrors(errs map[string]string) []editor.FieldError {
	out := make([]editor.FieldError, 0, len(errs))
	for field, msg := range errs {
		out = append(out, editor.FieldError{Field: field, Message: msg})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

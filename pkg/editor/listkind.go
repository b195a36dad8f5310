package editor

import (
	"net/url"
	"strings"
)

// Action is the regulation direction carried by directional marker entries.
type Action string

const (
	ActionNone         Action = ""
	ActionUp           Action = "up_regulates"
	ActionDown         Action = "down_regulates"
	ActionInconclusive Action = "inconclusively_regulates"
)

// ParseAction accepts the numeric, short and predicate spellings of a regulation direction.
func ParseAction(raw string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "+1", "up", "up_regulates":
		return ActionUp, nil
	case "-1", "down", "down_regulates":
		return ActionDown, nil
	case "0", "inconclusive", "inconclusively_regulates":
		return ActionInconclusive, nil
	}
	return ActionNone, ErrInvalidAction
}

// Short returns the compact direction label used in display text.
func (a Action) Short() string {
	switch a {
	case ActionUp:
		return "up"
	case ActionDown:
		return "down"
	case ActionInconclusive:
		return "inconclusive"
	}
	return ""
}

// LinkTemplate builds the "view externally" link for a list entry.
// {id} in URL is replaced with the identity key, or with the part after the
// first ':' when SubCode is set (HGNC:1100 -> 1100).
type LinkTemplate struct {
	URL     string
	Title   string
	SubCode bool
}

func (t LinkTemplate) Build(key string) (string, string) {
	code := key
	if t.SubCode {
		if _, after, ok := strings.Cut(key, ":"); ok {
			code = after
		}
	}
	href := strings.ReplaceAll(t.URL, "{id}", url.PathEscape(code))
	title := t.Title
	if title == "" {
		title = key
	}
	return href, title
}

// ListKind parameterizes one repeatable list editor.
type ListKind struct {
	Name        string
	Prefix      string
	Predicate   string
	Directional bool
	External    bool
	Link        *LinkTemplate
}

func (k ListKind) prefix() string {
	if k.Prefix != "" {
		return k.Prefix
	}
	return k.Name
}

func (k ListKind) ContainerID() string     { return k.Name + "-list" }
func (k ListKind) SearchInputID() string   { return k.Name + "-search-input" }
func (k ListKind) SearchResultsID() string { return k.Name + "-search-results" }
func (k ListKind) DialogID() string        { return k.Name + "SearchModal" }

package editor

import (
	"context"
	"fmt"
	"strings"
)

// LookupResult is one candidate returned by an external vocabulary.
type LookupResult struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	LinkHref    string `json:"link_href,omitempty"`
	LinkTitle   string `json:"link_title,omitempty"`
}

// Fetcher retrieves a raw response body for a fully built request URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// LookupProfile adapts one external vocabulary. ParseResponse may return a
// follow-up URL in next for two-step protocols; the follow-up response is
// parsed by the same profile.
type LookupProfile interface {
	Name() string
	BuildQuery(query string) string
	ParseResponse(body []byte) (results []LookupResult, next string, err error)
	BuildLink(id string) (href, title string)
	FormatDisplay(r LookupResult) string
}

// LookupTarget receives a chosen result.
type LookupTarget interface {
	Accept(r LookupResult, display string, action Action) (bool, error)
}

const maxLookupHops = 3

// RunLookup executes the profile's request chain for query.
func RunLookup(ctx context.Context, f Fetcher, p LookupProfile, query string) ([]LookupResult, error) {
	url := p.BuildQuery(query)
	for hop := 0; hop < maxLookupHops; hop++ {
		body, err := f.Fetch(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("%s lookup: %w", p.Name(), err)
		}
		results, next, err := p.ParseResponse(body)
		if err != nil {
			return nil, fmt.Errorf("%s lookup: parse: %w", p.Name(), err)
		}
		if next == "" {
			for i := range results {
				if results[i].LinkHref == "" {
					results[i].LinkHref, results[i].LinkTitle = p.BuildLink(results[i].ID)
				}
			}
			return results, nil
		}
		url = next
	}
	return nil, fmt.Errorf("%s lookup: too many follow-up requests", p.Name())
}

// TruncateDisplay renders "id (description)" with the description cut to n runes.
func TruncateDisplay(id, description string, n int) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return id
	}
	if r := []rune(description); n > 0 && len(r) > n {
		description = string(r[:n]) + "..."
	}
	return fmt.Sprintf("%s (%s)", id, description)
}

type LookupStatus string

const (
	LookupIdle    LookupStatus = "idle"
	LookupLoading LookupStatus = "loading"
	LookupReady   LookupStatus = "ready"
	LookupFailed  LookupStatus = "failed"
)

// Ticket identifies one issued query. It is run outside the session lock.
type Ticket struct {
	Binding string
	Query   string
	Seq     uint64
	profile LookupProfile
}

type Outcome struct {
	Ticket
	Results []LookupResult
	Err     error
}

func (t Ticket) Run(ctx context.Context, f Fetcher) Outcome {
	results, err := RunLookup(ctx, f, t.profile, t.Query)
	return Outcome{Ticket: t, Results: results, Err: err}
}

// Binding couples one search input and results area to a lookup profile and a target.
type Binding struct {
	Name      string
	InputID   string
	ResultsID string
	DialogID  string
	// FocusID is the element that receives focus before the dialog closes.
	FocusID string

	profile   LookupProfile
	sources   map[string]LookupProfile
	target    LookupTarget
	lastQuery string
	seq       uint64
	status    LookupStatus
	results   []LookupResult
	message   string
}

// NewListBinding binds a list kind's search widgets to its list editor.
func NewListBinding(kind ListKind, list *ListEditor, sources ...LookupProfile) *Binding {
	b := &Binding{
		Name:      kind.Name,
		InputID:   kind.SearchInputID(),
		ResultsID: kind.SearchResultsID(),
		DialogID:  kind.DialogID(),
		FocusID:   kind.ContainerID(),
		target:    list,
		status:    LookupIdle,
		sources:   map[string]LookupProfile{},
	}
	for i, p := range sources {
		if i == 0 {
			b.profile = p
		}
		b.sources[p.Name()] = p
	}
	return b
}

// NewScalarBinding binds a search dialog that fills a single control.
func NewScalarBinding(name string, form *Form, controlID string, profile LookupProfile) *Binding {
	return &Binding{
		Name:      name,
		InputID:   name + "-search-input",
		ResultsID: name + "-search-results",
		DialogID:  name + "SearchModal",
		FocusID:   controlID,
		profile:   profile,
		sources:   map[string]LookupProfile{profile.Name(): profile},
		target:    &scalarTarget{form: form, id: controlID},
		status:    LookupIdle,
	}
}

func (b *Binding) Source() string {
	if b.profile == nil {
		return ""
	}
	return b.profile.Name()
}

func (b *Binding) Profile() LookupProfile { return b.profile }
func (b *Binding) Status() LookupStatus   { return b.status }
func (b *Binding) Message() string        { return b.message }
func (b *Binding) LastQuery() string      { return b.lastQuery }

func (b *Binding) Results() []LookupResult {
	return append([]LookupResult(nil), b.results...)
}

// SetSource switches between the binding's profiles; the next input is always re-issued.
func (b *Binding) SetSource(name string) error {
	p, ok := b.sources[name]
	if !ok {
		return fmt.Errorf("%w: source %q", ErrUnknownBinding, name)
	}
	b.profile = p
	b.lastQuery = ""
	b.results = nil
	b.message = ""
	b.status = LookupIdle
	return nil
}

// Issue registers query as the latest one. Blank or repeated queries issue nothing.
func (b *Binding) Issue(query string) (Ticket, bool) {
	query = strings.TrimSpace(query)
	if query == "" || query == b.lastQuery || b.profile == nil {
		return Ticket{}, false
	}
	b.lastQuery = query
	b.seq++
	b.status = LookupLoading
	return Ticket{Binding: b.Name, Query: query, Seq: b.seq, profile: b.profile}, true
}

// Resolve applies an outcome unless a newer query or another source superseded it.
func (b *Binding) Resolve(o Outcome) bool {
	if o.profile == nil || o.Query != b.lastQuery || o.profile.Name() != b.Source() {
		return false
	}
	if o.Err != nil {
		b.results = nil
		b.message = "Lookup failed: " + o.Err.Error()
		b.status = LookupFailed
		return true
	}
	b.results = o.Results
	b.message = ""
	if len(o.Results) == 0 {
		b.message = "No results"
	}
	b.status = LookupReady
	return true
}

// Choose hands result idx to the target.
func (b *Binding) Choose(idx int, action Action) (bool, error) {
	if idx < 0 || idx >= len(b.results) {
		return false, fmt.Errorf("%w: %s result %d", ErrIndexOutOfRange, b.Name, idx)
	}
	r := b.results[idx]
	added, err := b.target.Accept(r, b.profile.FormatDisplay(r), action)
	if err != nil {
		b.message = err.Error()
		return false, err
	}
	return added, nil
}

// Reset clears results so a reopened dialog starts empty.
func (b *Binding) Reset() {
	b.lastQuery = ""
	b.results = nil
	b.message = ""
	b.status = LookupIdle
}

type scalarTarget struct {
	form *Form
	id   string
}

func (s *scalarTarget) Accept(r LookupResult, _ string, _ Action) (bool, error) {
	c, ok := s.form.Control(s.id)
	if !ok {
		return false, ErrUnknownControl
	}
	if c.Value == r.ID {
		return false, nil
	}
	return true, s.form.SetValue(s.id, r.ID)
}

package editor

import "sort"

type EntryState struct {
	Index     int     `json:"index"`
	Key       string  `json:"key"`
	Display   string  `json:"display"`
	Action    Action  `json:"action,omitempty"`
	Fields    []Field `json:"fields"`
	LinkHref  string  `json:"link_href,omitempty"`
	LinkTitle string  `json:"link_title,omitempty"`
}

type ListState struct {
	Name        string       `json:"name"`
	Predicate   string       `json:"predicate,omitempty"`
	ContainerID string       `json:"container_id"`
	Directional bool         `json:"directional,omitempty"`
	Locked      bool         `json:"locked,omitempty"`
	Entries     []EntryState `json:"entries"`
}

type LookupState struct {
	Name      string         `json:"name"`
	Source    string         `json:"source"`
	Sources   []string       `json:"sources,omitempty"`
	InputID   string         `json:"input_id"`
	ResultsID string         `json:"results_id"`
	DialogID  string         `json:"dialog_id"`
	Query     string         `json:"query,omitempty"`
	Status    LookupStatus   `json:"status"`
	Message   string         `json:"message,omitempty"`
	Results   []LookupResult `json:"results,omitempty"`
}

// State is the render model of a session.
type State struct {
	SessionID         string        `json:"session_id"`
	Revision          uint64        `json:"revision"`
	Selection         string        `json:"selection_state"`
	SelectedNode      string        `json:"selected_node,omitempty"`
	FocusedNode       string        `json:"focused_node,omitempty"`
	Tree              []VisibleNode `json:"tree"`
	Node              NodeState     `json:"node"`
	Controls          []Control     `json:"controls"`
	Lists             []ListState   `json:"lists"`
	Lookups           []LookupState `json:"lookups"`
	Errors            []FieldError  `json:"errors,omitempty"`
	UI                UIState       `json:"ui"`
	Dirty             bool          `json:"dirty"`
	PrimaryEnabled    bool          `json:"primary_enabled"`
	NewVersionEnabled bool          `json:"new_version_enabled"`
	PendingImport     *ImportReport `json:"pending_import,omitempty"`
	Navigation        *Navigation   `json:"navigation,omitempty"`
}

func (e *Editor) state() State {
	s := State{
		SessionID:  e.id,
		Revision:   e.revision,
		Selection:  e.tree.SelectionState().String(),
		Tree:       e.tree.Visible(),
		Node:       e.node,
		Errors:     e.form.Errors(),
		UI:         e.form.UI,
		Dirty:      e.tracker.Dirty(),
		Navigation: e.navigation,
	}
	if n := e.tree.Selected(); n != nil {
		s.SelectedNode = n.ID
	}
	if n := e.tree.Focused(); n != nil {
		s.FocusedNode = n.ID
	}
	for _, c := range e.form.Controls() {
		s.Controls = append(s.Controls, *c)
		switch c.ID {
		case PrimaryButtonID:
			s.PrimaryEnabled = !c.Disabled
		case NewVersionButtonID:
			s.NewVersionEnabled = !c.Disabled
		}
	}
	for _, l := range e.form.Lists() {
		ls := ListState{
			Name:        l.kind.Name,
			Predicate:   l.kind.Predicate,
			ContainerID: l.kind.ContainerID(),
			Directional: l.kind.Directional,
			Locked:      l.locked,
			Entries:     []EntryState{},
		}
		fields := l.Fields()
		per := 1
		if l.kind.Directional {
			per = 2
		}
		for i, entry := range l.entries {
			es := EntryState{
				Index:   i,
				Key:     entry.Key,
				Display: entry.Display,
				Action:  entry.Action,
				Fields:  fields[i*per : (i+1)*per],
			}
			es.LinkHref, es.LinkTitle, _ = l.Link(i)
			ls.Entries = append(ls.Entries, es)
		}
		s.Lists = append(s.Lists, ls)
	}
	names := make([]string, 0, len(e.bindings))
	for name := range e.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b := e.bindings[name]
		ls := LookupState{
			Name:      b.Name,
			Source:    b.Source(),
			InputID:   b.InputID,
			ResultsID: b.ResultsID,
			DialogID:  b.DialogID,
			Query:     b.lastQuery,
			Status:    b.status,
			Message:   b.message,
			Results:   b.Results(),
		}
		if len(b.sources) > 1 {
			for src := range b.sources {
				ls.Sources = append(ls.Sources, src)
			}
			sort.Strings(ls.Sources)
		}
		s.Lookups = append(s.Lookups, ls)
	}
	if e.pending != nil {
		p := *e.pending
		s.PendingImport = &p
	}
	return s
}

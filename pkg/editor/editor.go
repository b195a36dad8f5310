package editor

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sennetconsortium/senotype-editor/pkg/eventbus"
)

// SelectedNodeField is the hidden field carrying the node chosen in the tree.
const SelectedNodeField = "selected_node_id"

type ListSetup struct {
	Kind    ListKind
	Entries []Entry
	// Sources are the lookup profiles offered by the list's search dialog, default first.
	Sources []LookupProfile
}

type ScalarLookup struct {
	Name      string
	ControlID string
	Profile   LookupProfile
}

// Config describes everything a session needs at page load.
type Config struct {
	SessionID      string
	Tree           []NodeSnapshot
	SelectedID     string
	Node           NodeState
	Controls       []Control
	Lists          []ListSetup
	Scalars        []ScalarLookup
	ImportProfiles map[string]LookupProfile
	Fetcher        Fetcher
	Errors         []FieldError
	Policy         *Policy
	Logger         logrus.FieldLogger
}

// Navigation is the terminal request produced when the user picks a leaf.
type Navigation struct {
	NodeID string  `json:"node_id"`
	Fields []Field `json:"fields"`
}

// Editor is one page lifetime of the edit surface. All mutations are
// serialized by mu; lookups and imports release it while waiting on the network.
type Editor struct {
	mu         sync.Mutex
	id         string
	log        logrus.FieldLogger
	bus        eventbus.EventBus
	form       *Form
	tree       *Tree
	tracker    *Tracker
	policy     Policy
	node       NodeState
	bindings   map[string]*Binding
	fetcher    Fetcher
	importer   Importer
	pending    *ImportReport
	submission SubmissionForm
	navigation *Navigation
	revision   uint64
}

func New(cfg Config) *Editor {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("session", cfg.SessionID)
	bus := eventbus.NewEventPublisher(log)

	e := &Editor{
		id:       cfg.SessionID,
		log:      log,
		bus:      bus,
		form:     NewForm(bus, log),
		node:     cfg.Node,
		bindings: map[string]*Binding{},
		fetcher:  cfg.Fetcher,
		importer: Importer{Fetcher: cfg.Fetcher, Profiles: cfg.ImportProfiles},
	}
	e.policy = DefaultPolicy()
	if cfg.Policy != nil {
		e.policy = *cfg.Policy
	}

	for _, c := range cfg.Controls {
		e.form.AddControl(c)
	}
	if _, ok := e.form.Control(SelectedNodeField); !ok {
		e.form.AddControl(Control{ID: SelectedNodeField, Name: SelectedNodeField, Kind: KindHidden, Structural: true})
	}
	for _, id := range []string{PrimaryButtonID, NewVersionButtonID} {
		if _, ok := e.form.Control(id); !ok {
			e.form.AddControl(Control{ID: id, Kind: KindButton})
		}
	}
	for _, setup := range cfg.Lists {
		l := e.form.RegisterList(setup.Kind)
		l.Load(setup.Entries)
		if len(setup.Sources) > 0 {
			e.bindings[setup.Kind.Name] = NewListBinding(setup.Kind, l, setup.Sources...)
		}
	}
	for _, s := range cfg.Scalars {
		if _, ok := e.form.Control(s.ControlID); !ok {
			log.WithField("control", s.ControlID).Warn("editor: lookup bound to missing control")
			continue
		}
		e.bindings[s.Name] = NewScalarBinding(s.Name, e.form, s.ControlID, s.Profile)
	}

	e.tracker = NewTracker(e.form, bus, PrimaryButtonID)
	bus.Subscribe(func(*FormChanged) { e.revision++ })

	e.tree = NewTree(e, log)
	e.tree.Initialize(cfg.Tree, cfg.SelectedID)
	if n := e.tree.Selected(); n != nil {
		e.form.Force(SelectedNodeField, n.ID)
	}

	e.policy.Apply(e.form, e.node)
	if len(cfg.Errors) > 0 {
		e.form.SetErrors(cfg.Errors)
	}
	e.tracker.CaptureBaseline()
	e.refreshNewVersion()
	return e
}

func (e *Editor) ID() string { return e.id }

// Navigate implements Navigator. The session is finished once it returns.
func (e *Editor) Navigate(n *TreeNode) {
	e.form.Force(SelectedNodeField, n.ID)
	e.form.UI.Loading = fmt.Sprintf("Loading %s...", n.ID)
	if c, ok := e.form.Control(PrimaryButtonID); ok {
		c.Disabled = true
	}
	e.navigation = &Navigation{NodeID: n.ID, Fields: []Field{{Name: SelectedNodeField, Value: n.ID}}}
	e.log.WithField("node", n.ID).Info("editor: navigating to submission")
}

func (e *Editor) refreshNewVersion() {
	if c, ok := e.form.Control(NewVersionButtonID); ok {
		c.Disabled = !e.tree.NewVersionEnabled()
	}
}

func (e *Editor) binding(name string) (*Binding, error) {
	b, ok := e.bindings[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBinding, name)
	}
	return b, nil
}

func (e *Editor) list(name string) (*ListEditor, error) {
	l, ok := e.form.List(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownList, name)
	}
	return l, nil
}

// Command is one user interaction with the edit surface.
type Command struct {
	Type    string `json:"type"`
	Node    string `json:"node,omitempty"`
	Control string `json:"control,omitempty"`
	Value   string `json:"value,omitempty"`
	Checked *bool  `json:"checked,omitempty"`
	List    string `json:"list,omitempty"`
	Index   int    `json:"index,omitempty"`
	Key     string `json:"key,omitempty"`
	Display string `json:"display,omitempty"`
	Action  string `json:"action,omitempty"`
	Source  string `json:"source,omitempty"`
	Query   string `json:"query,omitempty"`
	Submit  string `json:"submit,omitempty"`
}

const (
	CmdSelectNode       = "select_node"
	CmdRestoreSelection = "restore_selection"
	CmdFocusNode        = "focus_node"
	CmdToggleNode       = "toggle_node"
	CmdSetField         = "set_field"
	CmdOpenDialog       = "open_dialog"
	CmdCloseDialog      = "close_dialog"
	CmdLookupSource     = "lookup_source"
	CmdLookupInput      = "lookup_input"
	CmdLookupSelect     = "lookup_select"
	CmdValuesetAdd      = "valueset_add"
	CmdRemoveEntry      = "remove_entry"
	CmdCommitImport     = "commit_import"
	CmdDiscardImport    = "discard_import"
	CmdSubmit           = "submit"
)

// Result is returned by every command.
type Result struct {
	State      State       `json:"state"`
	Submission []Field     `json:"submission,omitempty"`
	Navigation *Navigation `json:"navigation,omitempty"`
	Added      int         `json:"added,omitempty"`
}

// Apply executes cmd. Lookup input is the only command that suspends; the
// session lock is released while the request is in flight.
func (e *Editor) Apply(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Type == CmdLookupInput {
		return e.lookupInput(ctx, cmd)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.navigation != nil {
		return nil, ErrSessionClosed
	}
	res := &Result{}
	if err := e.apply(cmd, res); err != nil {
		return nil, err
	}
	res.State = e.state()
	return res, nil
}

func (e *Editor) apply(cmd Command, res *Result) error {
	switch cmd.Type {
	case CmdSelectNode:
		navigated, err := e.tree.Select(cmd.Node)
		if err != nil {
			return err
		}
		if navigated {
			res.Navigation = e.navigation
			return nil
		}
		e.refreshNewVersion()
	case CmdRestoreSelection:
		if err := e.tree.RestoreSelection(cmd.Node); err != nil {
			return err
		}
		e.refreshNewVersion()
	case CmdFocusNode:
		if cmd.Node == "" {
			e.tree.Blur()
			return nil
		}
		return e.tree.Focus(cmd.Node)
	case CmdToggleNode:
		return e.tree.Toggle(cmd.Node)
	case CmdSetField:
		if cmd.Checked != nil {
			return e.form.SetChecked(cmd.Control, *cmd.Checked)
		}
		return e.form.SetValue(cmd.Control, cmd.Value)
	case CmdOpenDialog:
		b, err := e.binding(cmd.List)
		if err != nil {
			return err
		}
		b.Reset()
		e.form.UI.OpenDialog = b.DialogID
		e.form.UI.Focus = b.InputID
	case CmdCloseDialog:
		e.closeDialog(cmd.List)
	case CmdLookupSource:
		b, err := e.binding(cmd.List)
		if err != nil {
			return err
		}
		return b.SetSource(cmd.Source)
	case CmdLookupSelect:
		b, err := e.binding(cmd.List)
		if err != nil {
			return err
		}
		action, err := optionalAction(cmd.Action)
		if err != nil {
			return err
		}
		added, err := b.Choose(cmd.Index, action)
		if err != nil {
			return err
		}
		if added {
			res.Added = 1
		}
		e.closeDialog(cmd.List)
	case CmdValuesetAdd:
		l, err := e.list(cmd.List)
		if err != nil {
			return err
		}
		action, err := optionalAction(cmd.Action)
		if err != nil {
			return err
		}
		added, err := l.Add(cmd.Key, cmd.Display, action)
		if err != nil {
			return err
		}
		if added {
			res.Added = 1
		}
	case CmdRemoveEntry:
		l, err := e.list(cmd.List)
		if err != nil {
			return err
		}
		return l.Remove(cmd.Index)
	case CmdCommitImport:
		if e.pending == nil {
			return ErrNoImport
		}
		l, err := e.list(e.pending.List)
		if err != nil {
			return err
		}
		added, err := CommitImport(l, e.pending)
		if err != nil {
			return err
		}
		res.Added = added
		e.pending = nil
	case CmdDiscardImport:
		e.pending = nil
	case CmdSubmit:
		fields, err := e.submit(cmd.Submit)
		if err != nil {
			return err
		}
		res.Submission = fields
	default:
		return fmt.Errorf("editor: unknown command %q", cmd.Type)
	}
	return nil
}

func optionalAction(raw string) (Action, error) {
	if strings.TrimSpace(raw) == "" {
		return ActionNone, nil
	}
	return ParseAction(raw)
}

// closeDialog moves focus to a visible element before hiding the dialog.
func (e *Editor) closeDialog(name string) {
	if b, ok := e.bindings[name]; ok {
		e.form.UI.Focus = b.FocusID
	} else {
		e.form.UI.Focus = ""
	}
	e.form.UI.OpenDialog = ""
}

func (e *Editor) submit(raw string) ([]Field, error) {
	action, err := ParseSubmitAction(raw)
	if err != nil {
		return nil, err
	}
	trigger := PrimaryButtonID
	if action == SubmitNewVersion {
		trigger = NewVersionButtonID
	}
	if c, ok := e.form.Control(trigger); ok && c.Disabled {
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, trigger)
	}
	if err := Assemble(e.form, &e.submission, action); err != nil {
		return nil, err
	}
	return append([]Field(nil), e.submission.Fields()...), nil
}

func (e *Editor) lookupInput(ctx context.Context, cmd Command) (*Result, error) {
	e.mu.Lock()
	if e.navigation != nil {
		e.mu.Unlock()
		return nil, ErrSessionClosed
	}
	b, err := e.binding(cmd.List)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	ticket, issued := b.Issue(cmd.Query)
	e.mu.Unlock()

	if issued {
		outcome := ticket.Run(ctx, e.fetcher)
		e.mu.Lock()
		if !b.Resolve(outcome) {
			e.log.WithField("query", outcome.Query).Debug("editor: discarding superseded lookup response")
		}
		e.mu.Unlock()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return &Result{State: e.state()}, nil
}

// Import validates a marker file for list without holding the session lock
// during lookups. The report becomes the pending import.
func (e *Editor) Import(ctx context.Context, list, filename string, r io.Reader) (*ImportReport, error) {
	e.mu.Lock()
	l, err := e.list(list)
	closed := e.navigation != nil
	e.mu.Unlock()
	if closed {
		return nil, ErrSessionClosed
	}
	if err != nil {
		return nil, err
	}
	directional := l.Kind().Directional

	var rows []ImportRow
	var parseErrs []ImportError
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		rows, parseErrs, err = ReadXLSX(r, directional)
	default:
		rows, parseErrs, err = ReadCSV(r, directional)
	}
	if err != nil {
		return nil, err
	}
	report := e.importer.Validate(ctx, list, rows, parseErrs)
	sort.SliceStable(report.Errors, func(i, j int) bool { return report.Errors[i].Line < report.Errors[j].Line })

	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = report
	return report, nil
}

// ReportErrors displays server validation errors; the primary action is forced on while any are shown.
func (e *Editor) ReportErrors(errs []FieldError) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.form.SetErrors(errs)
}

func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state()
}

func (e *Editor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Dirty()
}

func (e *Editor) Revision() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revision
}

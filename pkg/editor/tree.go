package editor

import (
	"github.com/sirupsen/logrus"
)

// NewNodeID is the synthetic leaf that starts a brand new definition.
const NewNodeID = "new"

type NodeIcon string

const (
	IconDecorative NodeIcon = ""
	IconGroup      NodeIcon = "group"
	IconFile       NodeIcon = "file"
)

// NodeSnapshot is the wire shape of a tree node as delivered by the server.
type NodeSnapshot struct {
	ID         string         `json:"id"`
	Text       string         `json:"text"`
	Icon       NodeIcon       `json:"icon,omitempty"`
	Editable   bool           `json:"editable"`
	Authorized bool           `json:"authorized"`
	Published  bool           `json:"published,omitempty"`
	Opened     bool           `json:"opened,omitempty"`
	Children   []NodeSnapshot `json:"children,omitempty"`
}

type TreeNode struct {
	ID         string
	Label      string
	Icon       NodeIcon
	Editable   bool
	Authorized bool
	Published  bool
	Children   []*TreeNode
	Parent     *TreeNode
	open       bool
}

func (n *TreeNode) IsLeaf() bool { return n.Icon == IconFile }
func (n *TreeNode) Open() bool   { return n.open }

func (n *TreeNode) State() NodeState {
	return NodeState{Editable: n.Editable, Authorized: n.Authorized, Published: n.Published}
}

type SelectionState int

const (
	Idle SelectionState = iota
	ProgrammaticSelectionInFlight
	UserSelectionInFlight
)

func (s SelectionState) String() string {
	switch s {
	case ProgrammaticSelectionInFlight:
		return "programmatic"
	case UserSelectionInFlight:
		return "user"
	}
	return "idle"
}

// Navigator performs the terminal navigation triggered by a user picking a leaf.
type Navigator interface {
	Navigate(node *TreeNode)
}

// Tree is the selection tree controller. Selection and focus are tracked separately.
type Tree struct {
	log      logrus.FieldLogger
	nav      Navigator
	roots    []*TreeNode
	index    map[string]*TreeNode
	selected *TreeNode
	focused  *TreeNode
	state    SelectionState
}

func NewTree(nav Navigator, log logrus.FieldLogger) *Tree {
	return &Tree{nav: nav, log: log, index: map[string]*TreeNode{}}
}

// Initialize builds the tree from snapshot and restores the selection to
// initialID, or to the first root when initialID is unknown. An empty
// snapshot leaves an inert tree.
func (t *Tree) Initialize(snapshot []NodeSnapshot, initialID string) {
	t.roots = nil
	t.index = map[string]*TreeNode{}
	t.selected, t.focused = nil, nil
	t.state = Idle
	for _, s := range snapshot {
		if n := t.build(s, nil); n != nil {
			t.roots = append(t.roots, n)
		}
	}
	if len(t.roots) == 0 {
		t.log.Debug("editor: empty tree snapshot")
		return
	}
	target := initialID
	if _, ok := t.index[target]; !ok {
		target = t.roots[0].ID
	}
	_ = t.RestoreSelection(target)
}

func (t *Tree) build(s NodeSnapshot, parent *TreeNode) *TreeNode {
	if _, dup := t.index[s.ID]; dup || s.ID == "" {
		t.log.WithField("node", s.ID).Warn("editor: skipping duplicate or blank tree node")
		return nil
	}
	n := &TreeNode{
		ID:         s.ID,
		Label:      s.Text,
		Icon:       s.Icon,
		Editable:   s.Editable,
		Authorized: s.Authorized,
		Published:  s.Published,
		Parent:     parent,
		open:       s.Opened,
	}
	t.index[n.ID] = n
	for _, c := range s.Children {
		if child := t.build(c, n); child != nil {
			n.Children = append(n.Children, child)
		}
	}
	return n
}

func (t *Tree) Empty() bool                    { return len(t.roots) == 0 }
func (t *Tree) Roots() []*TreeNode             { return t.roots }
func (t *Tree) Selected() *TreeNode            { return t.selected }
func (t *Tree) Focused() *TreeNode             { return t.focused }
func (t *Tree) SelectionState() SelectionState { return t.state }

func (t *Tree) Node(id string) (*TreeNode, bool) {
	n, ok := t.index[id]
	return n, ok
}

func (t *Tree) find(id string) (*TreeNode, error) {
	n, ok := t.index[id]
	if !ok {
		return nil, ErrUnknownNode
	}
	return n, nil
}

// Select handles a user-initiated selection. Picking a leaf hands the node to
// the navigator and reports true. Selections arriving while a programmatic
// restore is in flight never navigate.
func (t *Tree) Select(id string) (bool, error) {
	if t.Empty() {
		return false, nil
	}
	n, err := t.find(id)
	if err != nil {
		return false, err
	}
	if t.state == ProgrammaticSelectionInFlight {
		t.choose(n)
		return false, nil
	}
	t.state = UserSelectionInFlight
	defer func() { t.state = Idle }()

	t.choose(n)
	if !n.IsLeaf() || t.nav == nil {
		return false, nil
	}
	t.nav.Navigate(n)
	return true, nil
}

// RestoreSelection selects id on behalf of code rather than the user. It
// never navigates; the state returns to Idle once the selection is handled.
func (t *Tree) RestoreSelection(id string) error {
	if t.Empty() {
		return nil
	}
	n, err := t.find(id)
	if err != nil {
		return err
	}
	t.state = ProgrammaticSelectionInFlight
	defer func() { t.state = Idle }()
	t.choose(n)
	return nil
}

func (t *Tree) choose(n *TreeNode) {
	t.selected = n
	for p := n.Parent; p != nil; p = p.Parent {
		p.open = true
	}
}

// Focus moves the single focus marker to id.
func (t *Tree) Focus(id string) error {
	n, err := t.find(id)
	if err != nil {
		return err
	}
	t.focused = n
	return nil
}

func (t *Tree) Blur() { t.focused = nil }

func (t *Tree) Toggle(id string) error {
	n, err := t.find(id)
	if err != nil {
		return err
	}
	n.open = !n.open
	return nil
}

type VisibleNode struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Icon        NodeIcon `json:"icon,omitempty"`
	Depth       int      `json:"depth"`
	HasChildren bool     `json:"has_children,omitempty"`
	Open        bool     `json:"open,omitempty"`
	Selected    bool     `json:"selected,omitempty"`
	Focused     bool     `json:"focused,omitempty"`
}

// Visible flattens the tree, descending only into open nodes.
func (t *Tree) Visible() []VisibleNode {
	var out []VisibleNode
	var walk func(nodes []*TreeNode, depth int)
	walk = func(nodes []*TreeNode, depth int) {
		for _, n := range nodes {
			out = append(out, VisibleNode{
				ID:          n.ID,
				Label:       n.Label,
				Icon:        n.Icon,
				Depth:       depth,
				HasChildren: len(n.Children) > 0,
				Open:        n.open,
				Selected:    n == t.selected,
				Focused:     n == t.focused,
			})
			if n.open {
				walk(n.Children, depth+1)
			}
		}
	}
	walk(t.roots, 0)
	return out
}

// NewVersionEnabled decides whether a new version may branch from the
// selected node. The scope is the nearest group at or above the selection;
// it is blocked while any real leaf in that scope is still editable.
func (t *Tree) NewVersionEnabled() bool {
	n := t.selected
	if n == nil || n.Parent == nil || n.ID == NewNodeID {
		return false
	}
	scope := n
	for scope != nil && scope.Icon != IconGroup {
		scope = scope.Parent
	}
	if scope == nil || scope.Parent == nil {
		scope = n.Parent
	}
	if len(scope.Children) == 0 {
		return true
	}
	return !hasOpenBranch(scope)
}

func hasOpenBranch(n *TreeNode) bool {
	for _, c := range n.Children {
		if c.IsLeaf() && c.ID != NewNodeID && c.Editable && !c.Published {
			return true
		}
		if hasOpenBranch(c) {
			return true
		}
	}
	return false
}

package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sennetconsortium/senotype-editor/modules/senotype/domain/aggregates/submission"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/domain/entities/valueset"
	"github.com/sennetconsortium/senotype-editor/pkg/editor"
)

const (
	RootNodeID   = "Senotype"
	groupPrefix  = "rootwrap_"
	maxChainSize = 1000
)

// IsGroupNode reports whether id names the root or a version group. Those
// nodes only organize the tree and carry no submission.
func IsGroupNode(id string) bool {
	return id == RootNodeID || strings.HasPrefix(id, groupPrefix)
}

// SenlibService reads the senotype library and its vocabularies.
type SenlibService struct {
	repo      submission.Repository
	valuesets valueset.Repository
	log       logrus.FieldLogger
}

func NewSenlibService(repo submission.Repository, valuesets valueset.Repository, log logrus.FieldLogger) *SenlibService {
	return &SenlibService{repo: repo, valuesets: valuesets, log: log}
}

func (s *SenlibService) Get(ctx context.Context, id string) (submission.Submission, error) {
	return s.repo.Get(ctx, id)
}

func (s *SenlibService) Valuesets(ctx context.Context) (*valueset.Set, error) {
	terms, err := s.valuesets.All(ctx)
	if err != nil {
		return nil, err
	}
	return valueset.NewSet(terms), nil
}

// Tree builds the version forest as seen by email, opening the group that
// holds selectedID.
func (s *SenlibService) Tree(ctx context.Context, email, selectedID string) ([]editor.NodeSnapshot, error) {
	all, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	return BuildTree(all, email, selectedID), nil
}

// Chain returns the versions linked to id by provenance, oldest first.
func (s *SenlibService) Chain(ctx context.Context, id string) ([]submission.Submission, error) {
	all, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	byID := index(all)
	if _, ok := byID[id]; !ok {
		return nil, submission.ErrNotFound
	}
	return chainFrom(byID, headOf(byID, id)), nil
}

func index(all []submission.Submission) map[string]submission.Submission {
	byID := make(map[string]submission.Submission, len(all))
	for _, sub := range all {
		byID[sub.ID()] = sub
	}
	return byID
}

// headOf follows successors from id to the latest version.
func headOf(byID map[string]submission.Submission, id string) string {
	seen := map[string]bool{}
	for !seen[id] && len(seen) < maxChainSize {
		seen[id] = true
		next := byID[id].Senotype.Provenance.Successor
		if _, ok := byID[next]; !ok || next == "" {
			return id
		}
		id = next
	}
	return id
}

// chainFrom walks predecessors from head and returns the chain oldest first.
func chainFrom(byID map[string]submission.Submission, head string) []submission.Submission {
	var chain []submission.Submission
	seen := map[string]bool{}
	for id := head; id != "" && !seen[id]; {
		sub, ok := byID[id]
		if !ok {
			break
		}
		seen[id] = true
		chain = append(chain, sub)
		id = sub.Senotype.Provenance.Predecessor
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// BuildTree groups submissions into provenance chains. Each chain becomes a
// group whose child is the latest version, and each version's child is its
// predecessor. The synthetic new node is appended after the groups.
func BuildTree(all []submission.Submission, email, selectedID string) []editor.NodeSnapshot {
	byID := index(all)
	heads := map[string]bool{}
	for _, sub := range all {
		heads[headOf(byID, sub.ID())] = true
	}
	headIDs := make([]string, 0, len(heads))
	for id := range heads {
		headIDs = append(headIDs, id)
	}
	sort.Slice(headIDs, func(i, j int) bool {
		a, b := strings.ToLower(byID[headIDs[i]].Senotype.Name), strings.ToLower(byID[headIDs[j]].Senotype.Name)
		if a != b {
			return a < b
		}
		return headIDs[i] < headIDs[j]
	})

	root := editor.NodeSnapshot{ID: RootNodeID, Text: RootNodeID, Opened: true}
	for _, head := range headIDs {
		chain := chainFrom(byID, head)
		latest := chain[len(chain)-1]
		group := editor.NodeSnapshot{
			ID:         groupPrefix + head,
			Text:       fmt.Sprintf("%s (%d %s)", latest.Senotype.Name, len(chain), plural(len(chain), "version")),
			Icon:       editor.IconGroup,
			Authorized: latest.AuthorizedFor(email),
		}
		var child *editor.NodeSnapshot
		for i, sub := range chain {
			leaf := editor.NodeSnapshot{
				ID:         sub.ID(),
				Text:       fmt.Sprintf("Version %d (%s)", i+1, sub.ID()),
				Icon:       editor.IconFile,
				Editable:   !sub.Published(),
				Authorized: sub.AuthorizedFor(email),
				Published:  sub.Published(),
			}
			if sub.ID() == selectedID {
				group.Opened = true
			}
			if child != nil {
				leaf.Children = []editor.NodeSnapshot{*child}
			}
			child = &leaf
		}
		if group.Opened {
			openPath(child, selectedID)
		}
		group.Children = []editor.NodeSnapshot{*child}
		root.Children = append(root.Children, group)
	}
	root.Children = append(root.Children, editor.NodeSnapshot{
		ID:         editor.NewNodeID,
		Text:       "New senotype",
		Icon:       editor.IconFile,
		Editable:   true,
		Authorized: true,
	})
	return []editor.NodeSnapshot{root}
}

// openPath opens every version above the selected one so it is visible.
func openPath(n *editor.NodeSnapshot, selectedID string) bool {
	if n.ID == selectedID {
		return true
	}
	for i := range n.Children {
		if openPath(&n.Children[i], selectedID) {
			n.Opened = true
			return true
		}
	}
	return false
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

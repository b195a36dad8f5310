package persistence

import (
	"context"
	"os"
	"sort"
	"sync"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"

	"github.com/sennetconsortium/senotype-editor/modules/senotype/domain/aggregates/submission"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/domain/entities/valueset"
)

// MemoryRepository keeps senotypes in process. Used when no database is
// configured and by tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]submission.Submission
}

func NewMemoryRepository(seed ...submission.Submission) *MemoryRepository {
	r := &MemoryRepository{items: make(map[string]submission.Submission, len(seed))}
	for _, s := range seed {
		r.items[s.ID()] = s
	}
	return r
}

func (r *MemoryRepository) All(_ context.Context) ([]submission.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]submission.Submission, 0, len(r.items))
	for _, s := range r.items {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (submission.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.items[id]
	if !ok {
		return submission.Submission{}, submission.ErrNotFound
	}
	return s, nil
}

func (r *MemoryRepository) Save(_ context.Context, s submission.Submission) error {
	if s.ID() == "" {
		return submission.ErrInvalidID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[s.ID()] = s
	return nil
}

func (r *MemoryRepository) SaveVersion(_ context.Context, predecessor, successor submission.Submission) error {
	if predecessor.ID() == "" || successor.ID() == "" {
		return submission.ErrInvalidID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[successor.ID()] = successor
	r.items[predecessor.ID()] = predecessor
	return nil
}

// Fixture is the YAML document used to seed the memory and sqlite backends.
type Fixture struct {
	Valuesets []valueset.Term `yaml:"valuesets"`
}

func LoadFixture(path string) (*Fixture, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read valueset fixture")
	}
	var f Fixture
	if err := yaml.Unmarshal(body, &f); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return &f, nil
}

// StaticValuesets serves a fixed list of terms.
type StaticValuesets []valueset.Term

func (s StaticValuesets) All(context.Context) ([]valueset.Term, error) {
	return s, nil
}

package services

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/sennetconsortium/senotype-editor/modules/senotype/infrastructure/lookup"
)

// CSVFetcher downloads a document with an explicit Accept header.
type CSVFetcher interface {
	FetchAs(ctx context.Context, url, accept string) ([]byte, error)
}

// FTUService serves the FTU path tree behind the ftu selector. The HRA CSV
// changes rarely, so the parsed tree is kept for ttl.
type FTUService struct {
	fetcher CSVFetcher
	url     string
	ttl     time.Duration
	log     logrus.FieldLogger
	now     func() time.Time

	mu      sync.RWMutex
	tree    []lookup.FTUNode
	fetched time.Time
}

func NewFTUService(fetcher CSVFetcher, url string, ttl time.Duration, log logrus.FieldLogger) *FTUService {
	return &FTUService{fetcher: fetcher, url: url, ttl: ttl, log: log, now: time.Now}
}

func (s *FTUService) cached() ([]lookup.FTUNode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fetched.IsZero() || s.now().Sub(s.fetched) >= s.ttl {
		return s.tree, false
	}
	return s.tree, true
}

// Tree returns the FTU tree. A failed refresh falls back to the last tree
// that loaded and only errors when there is none.
func (s *FTUService) Tree(ctx context.Context) ([]lookup.FTUNode, error) {
	if tree, fresh := s.cached(); fresh {
		return tree, nil
	}
	if s.url == "" {
		return nil, nil
	}
	body, err := s.fetcher.FetchAs(ctx, s.url, "text/csv")
	if err == nil {
		var tree []lookup.FTUNode
		if tree, err = lookup.ParseFTUTree(bytes.NewReader(body)); err == nil {
			s.mu.Lock()
			s.tree, s.fetched = tree, s.now()
			s.mu.Unlock()
			s.log.WithField("organs", len(tree)).Debug("ftu: tree refreshed")
			return tree, nil
		}
	}
	stale, _ := s.cached()
	if stale != nil {
		s.log.WithError(err).Warn("ftu: refresh failed, serving cached tree")
		return stale, nil
	}
	return nil, errors.Wrap(err, "load ftu tree")
}

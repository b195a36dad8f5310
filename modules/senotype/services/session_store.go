package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sennetconsortium/senotype-editor/pkg/editor"
	"github.com/sennetconsortium/senotype-editor/pkg/metrics"
)

var ErrSessionNotFound = errors.New("editor session not found or expired")

// Session is one open edit page.
type Session struct {
	Editor *editor.Editor
	Email  string
	NodeID string

	expires time.Time
}

// SessionStore keeps live editor sessions until they go idle for ttl.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	metrics  *metrics.Editor
	log      logrus.FieldLogger
}

func NewSessionStore(ttl time.Duration, m *metrics.Editor, log logrus.FieldLogger) *SessionStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &SessionStore{
		sessions: map[string]*Session{},
		ttl:      ttl,
		now:      time.Now,
		metrics:  m,
		log:      log,
	}
}

func (s *SessionStore) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := sess.Editor.ID()
	if _, exists := s.sessions[id]; !exists {
		s.metrics.SessionOpened()
	}
	sess.expires = s.now().Add(s.ttl)
	s.sessions[id] = sess
}

// Get returns a live session and extends its lifetime.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.After(sess.expires) {
		s.remove(id)
		return nil, false
	}
	sess.expires = now.Add(s.ttl)
	return sess, true
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(id)
}

func (s *SessionStore) remove(id string) {
	if _, ok := s.sessions[id]; ok {
		delete(s.sessions, id)
		s.metrics.SessionClosed()
	}
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops expired sessions and reports how many went.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, sess := range s.sessions {
		if now.After(sess.expires) {
			s.remove(id)
			n++
		}
	}
	return n
}

// Run sweeps periodically until ctx is done.
func (s *SessionStore) Run(ctx context.Context) {
	interval := s.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Sweep(); n > 0 {
				s.log.WithField("expired", n).Debug("editor: swept idle sessions")
			}
		}
	}
}

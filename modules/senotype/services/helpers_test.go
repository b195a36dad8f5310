package services

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/sennetconsortium/senotype-editor/modules/senotype/domain/aggregates/submission"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/domain/entities/valueset"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/infrastructure/lookup"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/infrastructure/persistence"
	"github.com/sennetconsortium/senotype-editor/pkg/configuration"
	"github.com/sennetconsortium/senotype-editor/pkg/editor"
	"github.com/sennetconsortium/senotype-editor/pkg/metrics"
)

const owner = "owner@example.org"

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func senotype(id, name, email string, published bool) submission.Submission {
	s := submission.Submission{
		Senotype:  submission.Senotype{ID: id, Name: name, Definition: name + " definition"},
		Submitter: submission.Submitter{Name: submission.Name{First: "Ada", Last: "Lovelace"}, Email: email},
	}
	if published {
		s.Senotype.DOI = "https://doi.org/10.1000/" + id
	}
	return s
}

// chain links subs oldest first.
func chain(subs ...submission.Submission) []submission.Submission {
	for i := range subs {
		if i > 0 {
			subs[i].Senotype.Provenance.Predecessor = subs[i-1].ID()
		}
		if i < len(subs)-1 {
			subs[i].Senotype.Provenance.Successor = subs[i+1].ID()
		}
	}
	return subs
}

var testValuesets = persistence.StaticValuesets{
	{PredicateTerm: submission.PredicateHallmark, Code: "SENHM:0000001", Term: "cell cycle arrest"},
}

// ontologyServer answers gene lookups for HGNC:1100 and 404s everything else.
func ontologyServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/genes/1100", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"hgnc_id":"HGNC:1100","approved_symbol":"BRCA1"}]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type fixture struct {
	repo     *persistence.MemoryRepository
	senlib   *SenlibService
	editor   *EditorService
	sessions *SessionStore
	metrics  *metrics.Editor
}

func newFixture(t *testing.T, seed ...submission.Submission) *fixture {
	t.Helper()
	srv := ontologyServer(t)
	log := quietLogger()
	m := metrics.NewEditor(prometheus.NewRegistry())
	repo := persistence.NewMemoryRepository(seed...)
	senlib := NewSenlibService(repo, testValuesets, log)
	profiles := lookup.Profiles(configuration.LookupOptions{OntologyURL: srv.URL, EntityURL: srv.URL})
	fetcher := lookup.NewHTTPFetcher(lookup.FetcherOptions{Attempts: 1, BackoffBase: time.Millisecond, Logger: log, Metrics: m})
	sessions := NewSessionStore(time.Hour, m, log)
	return &fixture{
		repo:     repo,
		senlib:   senlib,
		sessions: sessions,
		metrics:  m,
		editor: NewEditorService(EditorServiceOptions{
			Senlib:    senlib,
			Catalog:   NewCatalog(profiles),
			Fetcher:   fetcher,
			Sessions:  sessions,
			EntityURL: srv.URL,
			Logger:    log,
		}),
	}
}

func control(t *testing.T, s editor.State, id string) editor.Control {
	t.Helper()
	for _, c := range s.Controls {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("control %q not in state", id)
	return editor.Control{}
}

func list(t *testing.T, s editor.State, name string) editor.ListState {
	t.Helper()
	for _, l := range s.Lists {
		if l.Name == name {
			return l
		}
	}
	t.Fatalf("list %q not in state", name)
	return editor.ListState{}
}

var _ valueset.Repository = testValuesets

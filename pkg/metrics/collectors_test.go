package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestEditor_NilIsSafe(t *testing.T) {
	t.Parallel()

	var m *Editor
	require.NotPanics(t, func() {
		m.ObserveLookup("ontology", "ok", time.Now())
		m.Retry("ontology")
		m.Submitted("update", "ok")
		m.SessionOpened()
		m.SessionClosed()
	})
}

func TestEditor_Counts(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewEditor(reg)

	m.Retry("eutils")
	m.Retry("eutils")
	m.Submitted("update", "ok")
	m.Submitted("new_version", "conflict")
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.ObserveLookup("ontology", "ok", time.Now())

	require.InDelta(t, 2, testutil.ToFloat64(m.LookupRetries.WithLabelValues("eutils")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.Submissions.WithLabelValues("new_version", "conflict")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.Sessions), 0)
	require.Equal(t, 1, testutil.CollectAndCount(m.LookupDuration))

	n, err := testutil.GatherAndCount(reg, "senotype_submissions_total")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestPrometheusController(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		gatherer func() prometheus.Gatherer
		want     string
		absent   string
	}{
		{
			name:     "default registry",
			gatherer: func() prometheus.Gatherer { return nil },
			want:     "go_goroutines",
		},
		{
			name: "editor registry",
			gatherer: func() prometheus.Gatherer {
				reg := prometheus.NewRegistry()
				NewEditor(reg).Submitted("update", "ok")
				return reg
			},
			want:   `senotype_submissions_total{action="update",outcome="ok"} 1`,
			absent: "go_goroutines",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			router := mux.NewRouter()
			NewPrometheusController("/metrics", tc.gatherer()).Register(router)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			require.Equal(t, http.StatusOK, rr.Code)
			require.True(t, strings.Contains(rr.Body.String(), tc.want))
			if tc.absent != "" {
				require.False(t, strings.Contains(rr.Body.String(), tc.absent))
			}
		})
	}
}

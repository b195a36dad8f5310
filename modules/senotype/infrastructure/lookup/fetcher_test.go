package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/sennetconsortium/senotype-editor/pkg/metrics"
)

func newTestFetcher(t *testing.T, attempts int) (*HTTPFetcher, *metrics.Editor) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	m := metrics.NewEditor(prometheus.NewRegistry())
	return NewHTTPFetcher(FetcherOptions{
		Attempts:    attempts,
		BackoffBase: time.Millisecond,
		BackoffMax:  5 * time.Millisecond,
		Logger:      logger,
		Metrics:     m,
	}), m
}

func TestHTTPFetcher_RetriesThrottledResponses(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	t.Cleanup(srv.Close)

	f, m := newTestFetcher(t, 5)
	body, err := f.Fetch(context.Background(), srv.URL+"/genes/1100")
	require.NoError(t, err)
	require.Equal(t, "[]", string(body))
	require.EqualValues(t, 3, calls.Load())
	require.InDelta(t, 2, testutil.ToFloat64(m.LookupRetries), 0)
}

func TestHTTPFetcher_GivesUpAfterAttempts(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	f, _ := newTestFetcher(t, 3)
	_, err := f.Fetch(context.Background(), srv.URL)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusBadGateway, se.Status)
	require.EqualValues(t, 3, calls.Load())
}

func TestHTTPFetcher_StatusHandling(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "not found is empty", status: http.StatusNotFound},
		{name: "bad request is not retried", status: http.StatusBadRequest, wantErr: true},
		{name: "forbidden is not retried", status: http.StatusForbidden, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tc.status)
			}))
			t.Cleanup(srv.Close)

			f, _ := newTestFetcher(t, 5)
			body, err := f.Fetch(context.Background(), srv.URL)
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				require.Empty(t, body)
			}
			require.EqualValues(t, 1, calls.Load())
		})
	}
}

func TestHTTPFetcher_TokenOnlyForListedHosts(t *testing.T) {
	t.Parallel()

	auth := make(chan string, 2)
	entity := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth <- r.Header.Get("Authorization")
	}))
	t.Cleanup(entity.Close)
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth <- r.Header.Get("Authorization")
	}))
	t.Cleanup(other.Close)

	base, _ := newTestFetcher(t, 1)
	f := base.WithToken("secret", entity.URL)

	_, err := f.Fetch(context.Background(), entity.URL+"/entities/SNT123")
	require.NoError(t, err)
	require.Equal(t, "Bearer secret", <-auth)

	_, err = f.Fetch(context.Background(), other.URL+"/genes/1")
	require.NoError(t, err)
	require.Empty(t, <-auth)
}

func TestHTTPFetcher_StopsOnCancel(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	logger, _ := test.NewNullLogger()
	f := NewHTTPFetcher(FetcherOptions{Attempts: 5, BackoffBase: time.Hour, BackoffMax: time.Hour, Logger: logger})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := f.Fetch(ctx, srv.URL)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedactAPIKey(t *testing.T) {
	t.Parallel()

	p := &citationProfile{base: "https://eutils.example/entrez/eutils", apiKey: "k3y"}
	f, _ := newTestFetcher(t, 1)
	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1"+"/esearch.fcgi?api_key=k3y&term=x")
	require.Error(t, err)
	require.NotContains(t, err.Error(), "k3y")
	require.Contains(t, p.BuildQuery("senescence"), "api_key=k3y")
}

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/sennetconsortium/senotype-editor/pkg/composables"
	"github.com/sennetconsortium/senotype-editor/pkg/configuration"
	"github.com/sennetconsortium/senotype-editor/pkg/httpapi"
)

var authOptions = configuration.AuthOptions{
	EmailHeader:     "X-Auth-Email",
	FirstNameHeader: "X-Auth-First-Name",
	LastNameHeader:  "X-Auth-Last-Name",
	TokenHeader:     "X-Auth-Token",
}

func TestWithIdentity(t *testing.T) {
	t.Parallel()

	var got *composables.Identity
	h := WithIdentity(authOptions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = composables.UseIdentity(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/edit", nil)
	req.Header.Set("X-Auth-Email", " grace@example.org ")
	req.Header.Set("X-Auth-First-Name", "Grace")
	req.Header.Set("X-Auth-Last-Name", "Hopper")
	req.Header.Set("X-Auth-Token", "Bearer t0k")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, &composables.Identity{Email: "grace@example.org", FirstName: "Grace", LastName: "Hopper", Token: "t0k"}, got)

	got = nil
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/edit", nil))
	require.Nil(t, got)
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	router := mux.NewRouter()
	router.Use(RateLimit(RateLimitConfig{RequestsPerPeriod: 2, Period: time.Minute}))
	router.HandleFunc("/lookup/gene", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/lookup/gene", nil))
		codes = append(codes, rr.Code)
		if rr.Code == http.StatusTooManyRequests {
			var env httpapi.ErrorEnvelope
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
			require.Equal(t, "RATE_LIMITED", env.Code)
		}
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestWithLogger_RecoversPanics(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		path   string
		accept string
		json   bool
	}{
		{name: "session api gets an envelope", path: "/edit/sessions/abc/commands", json: true},
		{name: "json clients get an envelope", path: "/edit", accept: "application/json", json: true},
		{name: "pages get plain text", path: "/edit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			logger, hook := test.NewNullLogger()
			h := WithLogger(logger, DefaultLoggerOptions())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				panic("boom")
			}))
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			req.Header.Set("X-Request-Id", "req-1")
			if tc.accept != "" {
				req.Header.Set("Accept", tc.accept)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			require.Equal(t, http.StatusInternalServerError, rr.Code)
			if tc.json {
				var env httpapi.ErrorEnvelope
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
				require.Equal(t, "INTERNAL_SERVER_ERROR", env.Code)
				require.Equal(t, "req-1", env.Meta["request_id"])
			} else {
				require.Contains(t, rr.Body.String(), "Internal Server Error")
			}

			var logged bool
			for _, e := range hook.AllEntries() {
				if e.Message == "panic recovered in request handler" {
					logged = true
				}
			}
			require.True(t, logged)
		})
	}
}

func TestWithLogger_ProvidesRequestLogger(t *testing.T) {
	t.Parallel()

	logger, hook := test.NewNullLogger()
	h := WithLogger(logger, DefaultLoggerOptions())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		composables.UseLogger(r.Context()).Info("inside")
		w.WriteHeader(http.StatusAccepted)
	}))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "req-2")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code)
	var inside bool
	for _, e := range hook.AllEntries() {
		if e.Message == "inside" {
			inside = true
			require.Equal(t, "req-2", e.Data["request-id"])
		}
	}
	require.True(t, inside)
}

func TestProvideDB_NilPassesThrough(t *testing.T) {
	t.Parallel()

	var err error
	h := ProvideDB(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err = composables.UseDB(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.ErrorIs(t, err, composables.ErrNoDB)
}

package lookup

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/sennetconsortium/senotype-editor/pkg/configuration"
	"github.com/sennetconsortium/senotype-editor/pkg/metrics"
)

const maxBodySize = 8 << 20

// StatusError is returned for a response that is neither 2xx nor 404.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Status)
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

type FetcherOptions struct {
	Client      *http.Client
	Attempts    int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	Logger      logrus.FieldLogger
	Metrics     *metrics.Editor
}

// HTTPFetcher performs GET requests against the external vocabularies,
// retrying throttled and failed attempts with exponential backoff.
// A 404 yields an empty body and no error.
type HTTPFetcher struct {
	client     *http.Client
	attempts   int
	base       time.Duration
	maxBackoff time.Duration
	log        logrus.FieldLogger
	metrics    *metrics.Editor

	token      string
	tokenHosts map[string]bool

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewHTTPFetcher(opts FetcherOptions) *HTTPFetcher {
	f := &HTTPFetcher{
		client:     opts.Client,
		attempts:   opts.Attempts,
		base:       opts.BackoffBase,
		maxBackoff: opts.BackoffMax,
		log:        opts.Logger,
		metrics:    opts.Metrics,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: 20 * time.Second}
	}
	if f.attempts <= 0 {
		f.attempts = 1
	}
	if f.maxBackoff <= 0 {
		f.maxBackoff = 30 * time.Second
	}
	if f.log == nil {
		f.log = logrus.StandardLogger()
	}
	return f
}

// NewFetcherFromConfig builds a fetcher from the lookup settings.
func NewFetcherFromConfig(opts configuration.LookupOptions, log logrus.FieldLogger, m *metrics.Editor) *HTTPFetcher {
	return NewHTTPFetcher(FetcherOptions{
		Client:      &http.Client{Timeout: opts.Timeout},
		Attempts:    opts.Retries,
		BackoffBase: opts.BackoffBase,
		BackoffMax:  opts.BackoffMax,
		Logger:      log,
		Metrics:     m,
	})
}

// WithToken returns a copy that sends token as a bearer credential to the
// given base URLs' hosts only.
func (f *HTTPFetcher) WithToken(token string, baseURLs ...string) *HTTPFetcher {
	c := &HTTPFetcher{
		client:     f.client,
		attempts:   f.attempts,
		base:       f.base,
		maxBackoff: f.maxBackoff,
		log:        f.log,
		metrics:    f.metrics,
		token:      token,
		tokenHosts: map[string]bool{},
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec
	}
	for _, raw := range baseURLs {
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			c.tokenHosts[u.Host] = true
		}
	}
	return c
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	return f.FetchAs(ctx, rawURL, "application/json")
}

// FetchAs is Fetch with an explicit Accept header, for sources such as the
// HRA CSV downloads that negotiate on it.
func (f *HTTPFetcher) FetchAs(ctx context.Context, rawURL, accept string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse lookup url")
	}
	log := f.log.WithField("host", u.Host)

	var lastErr error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		if attempt > 1 {
			f.metrics.Retry(u.Host)
			wait := backoff(attempt-1, f.base, f.maxBackoff) + f.jitter()
			log.WithFields(logrus.Fields{"attempt": attempt, "wait": wait}).WithError(lastErr).Debug("lookup: retrying")
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
		}
		body, retry, err := f.once(ctx, u, accept)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	log.WithError(lastErr).Warn("lookup: request failed")
	return nil, lastErr
}

func (f *HTTPFetcher) once(ctx context.Context, u *url.URL, accept string) ([]byte, bool, error) {
	started := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, false, errors.Wrap(err, "build lookup request")
	}
	req.Header.Set("Accept", accept)
	if f.token != "" && f.tokenHosts[u.Host] {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.metrics.ObserveLookup(u.Host, "error", started)
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, true, errors.Wrapf(err, "GET %s", redact(u))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		f.metrics.ObserveLookup(u.Host, "not_found", started)
		return nil, false, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		f.metrics.ObserveLookup(u.Host, "status", started)
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, retryable(resp.StatusCode), &StatusError{URL: redact(u), Status: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		f.metrics.ObserveLookup(u.Host, "error", started)
		return nil, true, errors.Wrap(err, "read lookup response")
	}
	f.metrics.ObserveLookup(u.Host, "ok", started)
	return body, false, nil
}

func (f *HTTPFetcher) jitter() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return jitter(f.rnd, f.base/2)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// redact drops api keys from URLs that end up in errors and logs.
func redact(u *url.URL) string {
	q := u.Query()
	if q.Get("api_key") == "" {
		return u.String()
	}
	c := *u
	q.Set("api_key", "REDACTED")
	c.RawQuery = q.Encode()
	return c.String()
}

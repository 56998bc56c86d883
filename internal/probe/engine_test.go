package probe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdh8316/usercheck/internal/catalog"
)

// backend serves:
//
//	/status/<code>/<user>   responds with code
//	/sleep/<ms>/<user>      sleeps then responds 200
//	/redirect/<user>        302 to /status/200/<user>
//	/hang/<user>            blocks until the client goes away
//	/echo/<user>            200 if X-User header equals <user>
type backend struct {
	*httptest.Server
	hits     atomic.Int64
	inFlight atomic.Int64
	peak     atomic.Int64
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Close)
	return b
}

func (b *backend) serve(w http.ResponseWriter, r *http.Request) {
	b.hits.Add(1)
	n := b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	for {
		p := b.peak.Load()
		if n <= p || b.peak.CompareAndSwap(p, n) {
			break
		}
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch parts[0] {
	case "status":
		code, _ := strconv.Atoi(parts[1])
		w.WriteHeader(code)
	case "sleep":
		ms, _ := strconv.Atoi(parts[1])
		select {
		case <-time.After(time.Duration(ms) * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		w.WriteHeader(http.StatusOK)
	case "redirect":
		http.Redirect(w, r, "/status/200/"+parts[1], http.StatusFound)
	case "hang":
		select {
		case <-r.Context().Done():
		case <-time.After(10 * time.Second):
		}
	case "echo":
		if r.Header.Get("X-User") == parts[1] && r.UserAgent() == "test-agent" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (b *backend) entry(name, path string) catalog.SiteEntry {
	return catalog.SiteEntry{Name: name, URL: b.URL + path}
}

func newTestEngine(b *backend, opts Options) *Engine {
	if opts.UserAgent == "" {
		opts.UserAgent = "test-agent"
	}
	return NewEngine(b.Client(), opts, nil)
}

func withoutTiming(rs []Result) []Result {
	out := make([]Result, len(rs))
	for i, r := range rs {
		r.Elapsed = 0
		out[i] = r
	}
	return out
}

func TestProbeClassifiesInCatalogOrder(t *testing.T) {
	b := newBackend(t)
	sites := catalog.New(
		b.entry("slow-ok", "/sleep/150/{}"),
		b.entry("ok", "/status/200/{}"),
		b.entry("missing", "/status/404/{}"),
		b.entry("moved", "/status/301/{}"),
		b.entry("forbidden", "/status/403/{}"),
		b.entry("broken", "/status/500/{}"),
		b.entry("redirected", "/redirect/{}"),
	)

	results, err := newTestEngine(b, Options{}).Probe(context.Background(), "alice", sites)
	require.NoError(t, err)
	require.Len(t, results, sites.Len())

	want := []struct {
		site   string
		status string
		code   int
	}{
		{"slow-ok", "Found", 200},
		{"ok", "Found", 200},
		{"missing", "Not Found", 404},
		{"moved", "Not Found", 301},
		{"forbidden", "Not Found", 403},
		{"broken", "Not Found", 500},
		{"redirected", "Found", 200},
	}
	for i, w := range want {
		assert.Equal(t, w.site, results[i].Site)
		assert.Equal(t, w.status, results[i].Status(), w.site)
		assert.Equal(t, w.code, results[i].StatusCode, w.site)
	}
	assert.Equal(t, b.URL+"/status/200/alice", results[1].URL)
}

func TestProbeTimeout(t *testing.T) {
	b := newBackend(t)
	sites := catalog.New(
		b.entry("hang", "/hang/{}"),
		b.entry("ok", "/status/200/{}"),
	)

	start := time.Now()
	results, err := newTestEngine(b, Options{Timeout: 100 * time.Millisecond}).Probe(context.Background(), "alice", sites)
	elapsed := time.Since(start)
	require.NoError(t, err)

	assert.Less(t, elapsed, 2*time.Second)
	assert.Equal(t, Error, results[0].Outcome.Kind)
	assert.NotEmpty(t, results[0].Outcome.Message)
	assert.True(t, strings.HasPrefix(results[0].Status(), "Error: "))
	assert.Equal(t, 0, results[0].StatusCode)
	assert.Equal(t, Found, results[1].Outcome.Kind)
}

func TestProbeConcurrencyBound(t *testing.T) {
	b := newBackend(t)
	var entries []catalog.SiteEntry
	for i := 0; i < 10; i++ {
		entries = append(entries, b.entry(fmt.Sprintf("site%d", i), "/sleep/100/{}"))
	}

	start := time.Now()
	results, err := newTestEngine(b, Options{Concurrency: 2}).Probe(context.Background(), "alice", catalog.New(entries...))
	elapsed := time.Since(start)
	require.NoError(t, err)
	require.Len(t, results, 10)

	for _, r := range results {
		assert.Equal(t, Found, r.Outcome.Kind, r.Site)
	}
	assert.EqualValues(t, 2, b.peak.Load())
	assert.GreaterOrEqual(t, elapsed, 450*time.Millisecond)
	assert.Less(t, elapsed, 950*time.Millisecond)
}

func TestProbeIsolatesTransportErrors(t *testing.T) {
	b := newBackend(t)

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	sites := catalog.New(
		b.entry("ok", "/status/200/{}"),
		catalog.SiteEntry{Name: "dead", URL: deadURL + "/{}"},
		b.entry("missing", "/status/404/{}"),
	)

	results, err := newTestEngine(b, Options{}).Probe(context.Background(), "alice", sites)
	require.NoError(t, err)

	assert.Equal(t, "Found", results[0].Status())
	assert.Equal(t, Error, results[1].Outcome.Kind)
	assert.NotContains(t, results[1].Outcome.Message, "\n")
	assert.Equal(t, "Not Found", results[2].Status())
}

func TestProbeIsRepeatable(t *testing.T) {
	b := newBackend(t)
	sites := catalog.New(
		b.entry("a", "/status/200/{}"),
		b.entry("b", "/status/404/{}"),
		b.entry("c", "/sleep/20/{}"),
	)
	e := newTestEngine(b, Options{})

	first, err := e.Probe(context.Background(), "alice", sites)
	require.NoError(t, err)
	second, err := e.Probe(context.Background(), "alice", sites)
	require.NoError(t, err)

	assert.Equal(t, withoutTiming(first), withoutTiming(second))
	assert.EqualValues(t, 6, b.hits.Load())
}

func TestProbeConfigurationErrors(t *testing.T) {
	b := newBackend(t)
	e := newTestEngine(b, Options{})
	ctx := context.Background()

	_, err := e.Probe(ctx, "  ", catalog.New(b.entry("ok", "/status/200/{}")))
	assert.True(t, errors.Is(err, ErrEmptyUsername))

	_, err = e.Probe(ctx, "alice", catalog.New())
	assert.True(t, errors.Is(err, catalog.ErrEmptyCatalog))

	_, err = e.Probe(ctx, "alice", catalog.New(
		b.entry("ok", "/status/200/{}"),
		catalog.SiteEntry{Name: "broken", URL: "not a url"},
	))
	assert.True(t, errors.Is(err, catalog.ErrMalformedTemplate))

	assert.Zero(t, b.hits.Load(), "no request may be sent for an invalid configuration")
}

func TestProbeExpandsHeaders(t *testing.T) {
	b := newBackend(t)
	entry := b.entry("echo", "/echo/{}")
	entry.Headers = map[string]string{"X-User": "{}"}

	results, err := newTestEngine(b, Options{}).Probe(context.Background(), "carol", catalog.New(entry))
	require.NoError(t, err)
	assert.Equal(t, "Found", results[0].Status())
}

func TestProbeRegexCheckSkipsRequest(t *testing.T) {
	b := newBackend(t)
	entry := b.entry("strict", "/status/200/{}")
	entry.RegexCheck = `^[a-z]{3,}$`

	e := newTestEngine(b, Options{})

	results, err := e.Probe(context.Background(), "A!", catalog.New(entry))
	require.NoError(t, err)
	assert.Equal(t, "Not Found", results[0].Status())
	assert.Zero(t, b.hits.Load())

	results, err = e.Probe(context.Background(), "alice", catalog.New(entry))
	require.NoError(t, err)
	assert.Equal(t, "Found", results[0].Status())
	assert.EqualValues(t, 1, b.hits.Load())
}

func TestProbeCanceledContextStillReportsEverySite(t *testing.T) {
	b := newBackend(t)
	sites := catalog.New(
		b.entry("a", "/status/200/{}"),
		b.entry("b", "/status/200/{}"),
		b.entry("c", "/status/200/{}"),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := newTestEngine(b, Options{Concurrency: 1}).Probe(ctx, "alice", sites)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, sites.Names()[i], r.Site)
		assert.Equal(t, Error, r.Outcome.Kind)
		assert.Equal(t, "context canceled", r.Outcome.Message)
	}
}

func TestProbeDeadline(t *testing.T) {
	b := newBackend(t)
	sites := catalog.New(
		b.entry("fast", "/status/200/{}"),
		b.entry("hang1", "/hang/{}"),
		b.entry("hang2", "/hang/{}"),
	)

	start := time.Now()
	results, err := newTestEngine(b, Options{Deadline: 200 * time.Millisecond}).Probe(context.Background(), "alice", sites)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.Equal(t, "Found", results[0].Status())
	assert.Equal(t, Error, results[1].Outcome.Kind)
	assert.Equal(t, Error, results[2].Outcome.Kind)
}

func TestProbeRequestsPerSecond(t *testing.T) {
	b := newBackend(t)
	var entries []catalog.SiteEntry
	for i := 0; i < 5; i++ {
		entries = append(entries, b.entry(fmt.Sprintf("site%d", i), "/status/200/{}"))
	}

	start := time.Now()
	_, err := newTestEngine(b, Options{RequestsPerSecond: 20}).Probe(context.Background(), "alice", catalog.New(entries...))
	require.NoError(t, err)

	// Burst of one, then 50ms between starts.
	assert.GreaterOrEqual(t, time.Since(start), 180*time.Millisecond)
}

func TestProbeOnResult(t *testing.T) {
	b := newBackend(t)
	sites := catalog.New(
		b.entry("a", "/status/200/{}"),
		b.entry("b", "/status/404/{}"),
		b.entry("c", "/sleep/30/{}"),
	)

	seen := map[string]string{}
	e := newTestEngine(b, Options{OnResult: func(r Result) {
		seen[r.Site] = r.Status()
	}})

	_, err := e.Probe(context.Background(), "alice", sites)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "Found", "b": "Not Found", "c": "Found"}, seen)
}

func TestValidate(t *testing.T) {
	b := newBackend(t)

	good := b.entry("good", "/status/{}/x")
	good.UsernameClaimed, good.UsernameUnclaimed = "200", "404"

	inverted := b.entry("inverted", "/status/{}/x")
	inverted.UsernameClaimed, inverted.UsernameUnclaimed = "404", "200"

	unchecked := b.entry("unchecked", "/status/200/{}")

	failures, err := newTestEngine(b, Options{}).Validate(context.Background(), catalog.New(good, inverted, unchecked))
	require.NoError(t, err)
	require.Len(t, failures, 2)

	assert.Equal(t, "inverted", failures[0].Site)
	assert.Empty(t, failures[0].Reason)
	assert.Equal(t, "Not Found", failures[0].Claimed.Status())
	assert.Equal(t, "Found", failures[0].Unclaimed.Status())

	assert.Equal(t, "unchecked", failures[1].Site)
	assert.NotEmpty(t, failures[1].Reason)
}

func TestValidateDeadline(t *testing.T) {
	b := newBackend(t)

	good := b.entry("good", "/status/{}/x")
	good.UsernameClaimed, good.UsernameUnclaimed = "200", "404"

	stuck := b.entry("stuck", "/hang/{}")
	stuck.UsernameClaimed, stuck.UsernameUnclaimed = "alice", "nobody"

	start := time.Now()
	failures, err := newTestEngine(b, Options{Deadline: 200 * time.Millisecond}).Validate(context.Background(), catalog.New(good, stuck))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Len(t, failures, 1)
	assert.Equal(t, "stuck", failures[0].Site)
	assert.Equal(t, Error, failures[0].Claimed.Outcome.Kind)
	assert.Equal(t, Error, failures[0].Unclaimed.Outcome.Kind)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "Found", Outcome{Kind: Found}.String())
	assert.Equal(t, "Not Found", Outcome{Kind: NotFound}.String())
	assert.Equal(t, "Error: boom", Outcome{Kind: Error, Message: "boom"}.String())
	assert.Equal(t, "Unknown", Outcome{}.String())
}

func TestErrorMessage(t *testing.T) {
	msg := errorMessage(&url.Error{Op: "Get", URL: "http://x.example/", Err: errors.New("dial tcp: connection refused")})
	assert.Equal(t, "dial tcp: connection refused", msg)
	assert.Equal(t, "request failed", errorMessage(errors.New("  ")))
	assert.Equal(t, "first", errorMessage(errors.New("first\nsecond")))
}

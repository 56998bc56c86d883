package probe

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tdh8316/usercheck/internal/catalog"
	"github.com/tdh8316/usercheck/internal/httpx"
)

const DefaultConcurrency = 32

var ErrEmptyUsername = errors.New("username is empty")

// Engine probes catalog sites for a username. One Engine may serve many
// Probe calls; calls share no results.
type Engine struct {
	client httpx.Doer
	opts   Options
	log    logrus.FieldLogger

	// Compiled regexCheck expressions keyed by expression text.
	regexCache sync.Map
}

func NewEngine(client httpx.Doer, opts Options, logger logrus.FieldLogger) *Engine {
	if opts.Timeout <= 0 {
		opts.Timeout = httpx.DefaultTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.UserAgent == "" {
		opts.UserAgent = httpx.DefaultUserAgent
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}

	return &Engine{
		client: client,
		opts:   opts,
		log:    logger,
	}
}

// Probe issues one GET per catalog entry and returns one result per entry in
// catalog order. Per-site failures are reported in the results; the returned
// error is only for a blank username or an invalid catalog, both detected
// before any request is sent.
func (e *Engine) Probe(ctx context.Context, username string, sites *catalog.Catalog) ([]Result, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrEmptyUsername
	}
	if err := sites.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid catalog")
	}

	if e.opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Deadline)
		defer cancel()
	}

	entries := sites.Entries()
	results := make([]Result, len(entries))
	limiter := e.newLimiter()

	var mu sync.Mutex
	report := func(r Result) {
		if e.opts.OnResult == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		e.opts.OnResult(r)
	}

	start := time.Now()
	var g errgroup.Group
	g.SetLimit(e.opts.Concurrency)
	for i, entry := range entries {
		g.Go(func() error {
			// Each unit owns results[i].
			results[i] = e.probeSite(ctx, username, entry, limiter)
			report(results[i])
			return nil
		})
	}
	_ = g.Wait()

	e.log.WithFields(logrus.Fields{
		"username": username,
		"sites":    len(entries),
		"elapsed":  time.Since(start).Round(time.Millisecond),
	}).Info("probe finished")

	return results, nil
}

func (e *Engine) newLimiter() *rate.Limiter {
	if e.opts.RequestsPerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(e.opts.RequestsPerSecond), 1)
}

func (e *Engine) probeSite(ctx context.Context, username string, entry catalog.SiteEntry, limiter *rate.Limiter) (res Result) {
	start := time.Now()
	res = Result{
		Site: entry.Name,
		URL:  catalog.ExpandString(entry.URL, username),
	}
	log := e.log.WithFields(logrus.Fields{"site": entry.Name, "url": res.URL})
	defer func() {
		res.Elapsed = time.Since(start)
		log.WithFields(logrus.Fields{
			"status":  res.StatusCode,
			"outcome": res.Status(),
			"elapsed": res.Elapsed.Round(time.Millisecond),
		}).Debug("site probed")
	}()

	if entry.RegexCheck != "" {
		ok, err := e.matchUsername(entry.RegexCheck, username)
		if err != nil {
			res.Outcome = errorOutcome(err)
			return res
		}
		if !ok {
			// Username not valid for this site => treat as not found (no request).
			res.Outcome = Outcome{Kind: NotFound}
			return res
		}
	}

	if err := ctx.Err(); err != nil {
		res.Outcome = errorOutcome(err)
		return res
	}
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			res.Outcome = errorOutcome(err)
			return res
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	headers, _ := catalog.Expand(entry.Headers, username).(map[string]string)
	req, err := httpx.NewGet(reqCtx, res.URL, e.opts.UserAgent, headers)
	if err != nil {
		res.Outcome = errorOutcome(err)
		return res
	}

	resp, err := e.client.Do(req)
	if err != nil {
		res.Outcome = errorOutcome(err)
		return res
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	res.Outcome = classify(resp.StatusCode)
	return res
}

func classify(status int) Outcome {
	if status == http.StatusOK {
		return Outcome{Kind: Found}
	}
	return Outcome{Kind: NotFound}
}

func (e *Engine) matchUsername(expr, username string) (bool, error) {
	re, err := e.regex(expr)
	if err != nil {
		return false, errors.Wrap(err, "invalid regexCheck")
	}
	ok, err := re.MatchString(username)
	if err != nil {
		return false, errors.Wrap(err, "regexCheck match")
	}
	return ok, nil
}

func (e *Engine) regex(expr string) (*regexp2.Regexp, error) {
	if v, ok := e.regexCache.Load(expr); ok {
		return v.(*regexp2.Regexp), nil
	}
	re, err := regexp2.Compile(expr, 0)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = time.Second
	v, _ := e.regexCache.LoadOrStore(expr, re)
	return v.(*regexp2.Regexp), nil
}

package probe

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/tdh8316/usercheck/internal/catalog"
)

// Validate checks each site against its known claimed and unclaimed
// usernames and returns the sites that misclassify, in catalog order.
// Options.Deadline bounds the whole run the same way it bounds Probe.
func (e *Engine) Validate(ctx context.Context, sites *catalog.Catalog) ([]ValidationFailure, error) {
	if err := sites.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid catalog")
	}

	parent := ctx
	if e.opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Deadline)
		defer cancel()
	}

	entries := sites.Entries()
	slots := make([]*ValidationFailure, len(entries))
	limiter := e.newLimiter()

	var g errgroup.Group
	g.SetLimit(e.opts.Concurrency)
	for i, entry := range entries {
		g.Go(func() error {
			f := ValidationFailure{
				Site:              entry.Name,
				UsernameClaimed:   entry.UsernameClaimed,
				UsernameUnclaimed: entry.UsernameUnclaimed,
			}
			if entry.UsernameClaimed == "" || entry.UsernameUnclaimed == "" {
				f.Reason = "missing username_claimed/username_unclaimed in catalog"
				slots[i] = &f
				return nil
			}

			f.Claimed = e.probeSite(ctx, entry.UsernameClaimed, entry, limiter)
			f.Unclaimed = e.probeSite(ctx, entry.UsernameUnclaimed, entry, limiter)
			if f.Claimed.Exists() && f.Unclaimed.Outcome.Kind == NotFound {
				return nil
			}
			slots[i] = &f
			return nil
		})
	}
	_ = g.Wait()

	var failures []ValidationFailure
	for _, f := range slots {
		if f != nil {
			failures = append(failures, *f)
		}
	}
	// The deadline shows up as Error outcomes; only the caller's ctx is an error.
	return failures, parent.Err()
}

package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"ado-pulse/internal/azdo"
	"ado-pulse/internal/dataset"
	"ado-pulse/internal/record"
	"ado-pulse/internal/search"
	"ado-pulse/internal/stats"
)

// Options configures the engine's query predicate and normalization rules.
type Options struct {
	Tag          string
	MatchMode    record.MatchMode
	ItemTypes    []string
	ClosedStates record.ClosedStates

	// CacheDir, when set, receives a dataset snapshot after each successful
	// refresh and seeds the store on startup.
	CacheDir string
}

// RefreshResult reports the outcome of one refresh cycle.
type RefreshResult struct {
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Timestamp time.Time `json:"timestamp"`
}

// Engine wires the fetcher, normalizer and store together and exposes the
// read API the presenter consumes. It assumes at most one refresh in flight;
// the host serializes concurrent triggers.
type Engine struct {
	fetcher azdo.Fetcher
	store   *dataset.Store
	opts    Options
}

// New creates an engine over the given fetcher and store.
func New(fetcher azdo.Fetcher, store *dataset.Store, opts Options) *Engine {
	if opts.MatchMode == "" {
		opts.MatchMode = record.MatchExact
	}
	if opts.ClosedStates == nil {
		opts.ClosedStates = record.DefaultClosedStates()
	}
	return &Engine{fetcher: fetcher, store: store, opts: opts}
}

// LoadCache seeds the store from the last saved snapshot, if any.
func (e *Engine) LoadCache() error {
	if e.opts.CacheDir == "" {
		return nil
	}
	return e.store.LoadSnapshot(e.opts.CacheDir)
}

// Refresh fetches both record families, normalizes them and replaces the
// dataset in a single atomic swap. Per-record normalization failures are
// counted and never abort the cycle; a transport failure or cancellation
// leaves the previous snapshot untouched.
func (e *Engine) Refresh(ctx context.Context) (RefreshResult, error) {
	spec, err := azdo.BuildQuerySpec(e.opts.Tag, azdo.QueryOptions{
		MatchMode: e.opts.MatchMode,
		ItemTypes: e.opts.ItemTypes,
	})
	if err != nil {
		return RefreshResult{}, err
	}

	var rawWorkItems, rawTestResults []json.RawMessage

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rawWorkItems, err = e.fetcher.FetchWorkItems(gctx, spec)
		return err
	})
	g.Go(func() error {
		var err error
		rawTestResults, err = e.fetcher.FetchTestResults(gctx, spec)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Msg("Refresh failed, keeping previous dataset")
		return RefreshResult{}, err
	}

	records := make([]record.Record, 0, len(rawWorkItems)+len(rawTestResults))
	failed := 0
	seen := make(map[string]bool)

	collect := func(rec record.Record, err error) {
		if err != nil {
			failed++
			log.Debug().Err(err).Msg("Dropping malformed record")
			return
		}
		// The test-runs endpoint has no server-side tag filter, and for
		// work items the structured query matched against the raw tag
		// blob; re-apply the configured token semantics here. Untagged
		// test results stay in: they are already scoped by the run query.
		if len(rec.Tags) > 0 && !rec.Tags.Matches(spec.Tag, spec.MatchMode) {
			return
		}
		key := string(rec.Kind) + ":" + rec.ID
		if seen[key] {
			return
		}
		seen[key] = true
		records = append(records, rec)
	}

	for _, raw := range rawTestResults {
		collect(record.NormalizeTestResult(raw, e.opts.ClosedStates))
	}
	for _, raw := range rawWorkItems {
		collect(record.NormalizeWorkItem(raw, e.opts.ClosedStates))
	}

	now := time.Now().UTC()
	e.store.Replace(records, now)

	if e.opts.CacheDir != "" {
		if err := e.store.SaveSnapshot(e.opts.CacheDir); err != nil {
			log.Warn().Err(err).Msg("Failed to save dataset snapshot")
		}
	}

	log.Info().Int("succeeded", len(records)).Int("failed", failed).Msg("Refresh complete")
	return RefreshResult{Succeeded: len(records), Failed: failed, Timestamp: now}, nil
}

// Summary computes the summary metrics over the current snapshot.
func (e *Engine) Summary() stats.Summary {
	records, _ := e.store.Current()
	return stats.Summarize(records, time.Now().UTC())
}

// Trend computes the daily trend series over the current snapshot.
func (e *Engine) Trend(days int) stats.Series {
	records, _ := e.store.Current()
	return stats.Trend(records, days, time.Now().UTC(), stats.DefaultTrendTolerance)
}

// Search filters the current snapshot without mutating it.
func (e *Engine) Search(criteria search.Criteria) []record.Record {
	records, _ := e.store.Current()
	return search.Filter(records, criteria)
}

// Raw returns the opaque upstream structure of one record for detail and
// deep-link rendering. Ids are only unique within a record family, so an
// explicit kind narrows the lookup; with kind empty, a work item wins an id
// collision with a test result.
func (e *Engine) Raw(kind record.Kind, id string) (json.RawMessage, bool) {
	records, _ := e.store.Current()
	var fallback json.RawMessage
	for _, r := range records {
		if r.ID != id {
			continue
		}
		if kind != "" {
			if r.Kind == kind {
				return r.Raw, true
			}
			continue
		}
		if r.Kind == record.KindWorkItem {
			return r.Raw, true
		}
		if fallback == nil {
			fallback = r.Raw
		}
	}
	return fallback, fallback != nil
}

// LastRefreshedAt returns the timestamp of the refresh that produced the
// current snapshot, zero if the store was never populated.
func (e *Engine) LastRefreshedAt() time.Time {
	_, refreshedAt := e.store.Current()
	return refreshedAt
}

// DatasetSize returns the record count of the current snapshot.
func (e *Engine) DatasetSize() int {
	return e.store.Len()
}

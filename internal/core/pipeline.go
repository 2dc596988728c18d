package core

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/semaphore"

	"dashfeed/internal/types"
)

// Fetcher retrieves the raw payload behind a feed URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ParseFunc decodes a payload into items, using label when the feed has no
// title of its own.
type ParseFunc func(data []byte, label string) ([]types.FeedItem, error)

// Outcome is what RunAll collected. Batches are in completion order.
type Outcome struct {
	Batches  []types.SourceBatch
	Failures []types.SourceFailure
}

type Pipeline struct {
	fetcher     Fetcher
	parse       ParseFunc
	logger      *slog.Logger
	concurrency int
}

func NewPipeline(fetcher Fetcher, parse ParseFunc, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		fetcher: fetcher,
		parse:   parse,
		logger:  logger,
	}
}

// WithConcurrency caps how many sources are fetched at once. Zero removes
// the cap.
func (p *Pipeline) WithConcurrency(n int) *Pipeline {
	if n < 0 {
		n = 0
	}
	p.concurrency = n
	return p
}

// Aggregate fetches every source concurrently and returns the newest limit
// items across all of them. Per-source failures never fail the call; they
// are reported in AggregateResult.Failures.
func (p *Pipeline) Aggregate(ctx context.Context, sources []types.Source, limit int) (types.AggregateResult, error) {
	if len(sources) == 0 {
		return types.AggregateResult{}, types.ErrNoSources
	}
	if limit < 0 {
		return types.AggregateResult{}, types.ErrNegativeLimit
	}

	outcome := p.RunAll(ctx, sources, limit)
	items := Merge(outcome.Batches, limit)

	p.logger.Info("Aggregation finished",
		"sources", len(sources),
		"succeeded", len(outcome.Batches),
		"failed", len(outcome.Failures),
		"items", len(items))

	return types.AggregateResult{
		Items:    items,
		Failures: outcome.Failures,
	}, nil
}

type workerResult struct {
	index int
	batch types.SourceBatch
	err   error
}

// RunAll starts one worker per source and collects their results as they
// complete. If ctx is done first, batches already delivered are kept and
// the sources still in flight are recorded as cancelled.
func (p *Pipeline) RunAll(ctx context.Context, sources []types.Source, limit int) Outcome {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sem *semaphore.Weighted
	if p.concurrency > 0 {
		sem = semaphore.NewWeighted(int64(p.concurrency))
	}

	// Buffered so workers never block on a collector that stopped listening.
	results := make(chan workerResult, len(sources))
	var wg sync.WaitGroup

	for i, src := range sources {
		i, src := i, src
		wg.Add(1)
		go func() {
			defer wg.Done()

			if sem != nil {
				if err := sem.Acquire(ctx, 1); err != nil {
					results <- workerResult{index: i, err: cancelled(src, err)}
					return
				}
				defer sem.Release(1)
			}

			batch, err := p.runSource(ctx, src, limit)
			results <- workerResult{index: i, batch: batch, err: err}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	done := make([]bool, len(sources))
	var out Outcome

	record := func(r workerResult) {
		done[r.index] = true
		src := sources[r.index]
		if r.err != nil {
			p.logger.Debug("Source dropped", "url", src.URL, "error", r.err)
			out.Failures = append(out.Failures, types.SourceFailure{Source: src, Err: r.err})
			return
		}
		out.Batches = append(out.Batches, r.batch)
	}

	for {
		select {
		case r, ok := <-results:
			if !ok {
				return out
			}
			record(r)
		case <-ctx.Done():
			drain(results, record)
			for i, src := range sources {
				if !done[i] {
					p.logger.Debug("Source cancelled", "url", src.URL)
					out.Failures = append(out.Failures, types.SourceFailure{Source: src, Err: cancelled(src, ctx.Err())})
				}
			}
			return out
		}
	}
}

func drain(results <-chan workerResult, record func(workerResult)) {
	for {
		select {
		case r, ok := <-results:
			if !ok {
				return
			}
			record(r)
		default:
			return
		}
	}
}

func cancelled(src types.Source, err error) error {
	return &types.WorkerError{Source: src.URL, Stage: types.StageCancelled, Err: err}
}

func (p *Pipeline) runSource(ctx context.Context, src types.Source, limit int) (types.SourceBatch, error) {
	data, err := p.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return types.SourceBatch{}, &types.WorkerError{Source: src.URL, Stage: types.StageFetch, Err: err}
	}

	items, err := p.parse(data, src.Label())
	if err != nil {
		return types.SourceBatch{}, &types.WorkerError{Source: src.URL, Stage: types.StageParse, Err: err}
	}

	p.logger.Debug("Feed retrieved", "url", src.URL, "items", len(items))

	return types.SourceBatch{
		Source: src,
		Items:  takeNewest(items, limit),
	}, nil
}

// Merge is the second half of the two-stage reduce: every batch is already
// the local top-limit of its source, so the global top-limit is among them.
func Merge(batches []types.SourceBatch, limit int) []types.FeedItem {
	total := 0
	for _, b := range batches {
		total += len(b.Items)
	}

	all := make([]types.FeedItem, 0, total)
	for _, b := range batches {
		all = append(all, b.Items...)
	}

	return takeNewest(all, limit)
}

// takeNewest sorts newest first, keeping the input order of equal dates,
// and cuts to limit.
func takeNewest(items []types.FeedItem, limit int) []types.FeedItem {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b types.FeedItem) int {
		return b.PubDate.Compare(a.PubDate)
	})

	if limit = max(limit, 0); limit < len(sorted) {
		sorted = sorted[:limit]
	}
	return sorted
}

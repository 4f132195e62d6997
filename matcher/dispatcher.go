package matcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/campusfind/campusfind/store"
)

// Dispatcher reacts to record-creation events by running matching passes as
// independent background tasks. Pass failures are logged and swallowed:
// matching is best-effort enrichment and must never block or roll back the
// record creation that triggered it. A failed pass leaves stale or absent
// matches until the next successful pass for the same request.
type Dispatcher struct {
	engine      *Engine
	store       *store.Store
	metrics     *Metrics
	opts        *Options
	sem         *semaphore.Weighted
	wg          sync.WaitGroup
	passTimeout time.Duration
}

// NewDispatcher creates a dispatcher. opts configures every triggered pass
// (nil selects the defaults); concurrency bounds simultaneous passes during
// the found-item fan-out; passTimeout bounds each pass (the pass fails on
// expiry rather than hanging). metrics may be nil.
func NewDispatcher(engine *Engine, s *store.Store, metrics *Metrics, opts *Options, concurrency int64, passTimeout time.Duration) *Dispatcher {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.DistanceThreshold <= 0 {
		opts.DistanceThreshold = DefaultDistanceThreshold
	}
	if concurrency <= 0 {
		concurrency = 8
	}
	if passTimeout <= 0 {
		passTimeout = 2 * time.Minute
	}
	return &Dispatcher{
		engine:      engine,
		store:       s,
		metrics:     metrics,
		opts:        opts,
		sem:         semaphore.NewWeighted(concurrency),
		passTimeout: passTimeout,
	}
}

// OnRequestCreated matches the new request against all found items, in the
// background, with default options.
func (d *Dispatcher) OnRequestCreated(requestID string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.runPass("request_created", requestID)
	}()
}

// OnFoundItemCreated re-matches every currently existing request against the
// inventory, concurrently and independently: one failing pass never prevents
// the others. This is O(open requests) work per insertion, bounded by the
// dispatcher's concurrency limit.
func (d *Dispatcher) OnFoundItemCreated(foundItemID string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.passTimeout)
		defer cancel()

		requests, err := d.store.ListLostRequests(ctx, &store.FindLostRequest{
			ExcludeEmbedding: true,
		})
		if err != nil {
			slog.Error("failed to list requests for found-item fan-out",
				"found_item_id", foundItemID,
				"error", err,
			)
			d.metrics.passOutcome("found_item_created", "fanout_list_failed")
			return
		}

		slog.Info("fanning out matching for new found item",
			"found_item_id", foundItemID,
			"requests", len(requests),
		)

		var passWg sync.WaitGroup
		for i, request := range requests {
			if err := d.sem.Acquire(ctx, 1); err != nil {
				// The shared fan-out deadline expired; everything not yet
				// dispatched is shed, one counter tick per dropped request.
				dropped := len(requests) - i
				slog.Warn("found-item fan-out truncated",
					"found_item_id", foundItemID,
					"dropped", dropped,
					"error", err,
				)
				for range dropped {
					d.metrics.passOutcome("found_item_created", "fanout_truncated")
				}
				break
			}
			passWg.Add(1)
			go func(requestID string) {
				defer passWg.Done()
				defer d.sem.Release(1)
				d.runPass("found_item_created", requestID)
			}(request.ID)
		}
		passWg.Wait()
	}()
}

// Wait blocks until all in-flight passes complete. Used on shutdown and in
// tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// runPass executes one matching pass with the dispatcher's configured
// options, logging and swallowing any failure.
func (d *Dispatcher) runPass(trigger, requestID string) {
	ctx, cancel := context.WithTimeout(context.Background(), d.passTimeout)
	defer cancel()

	result, err := d.engine.MatchRequest(ctx, requestID, d.opts)
	if err != nil {
		slog.Error("matching pass failed",
			"trigger", trigger,
			"request_id", requestID,
			"error", err,
		)
		d.metrics.passOutcome(trigger, "failed")
		return
	}
	d.metrics.passOutcome(trigger, "succeeded")
	slog.Debug("matching pass succeeded",
		"trigger", trigger,
		"request_id", requestID,
		"matches", len(result.Matches),
	)
}

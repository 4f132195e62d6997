package matcher

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/campusfind/campusfind/ai"
	"github.com/campusfind/campusfind/store"
)

const (
	// DefaultLimit is the default candidate cap for a matching pass.
	DefaultLimit = 10
	// DefaultDistanceThreshold is the default max acceptable cosine distance
	// on the [0, 2] scale.
	DefaultDistanceThreshold = 0.6
)

// Prefilters are equality filters applied to the candidate pool before vector
// search.
type Prefilters struct {
	Category *string
	Campus   *string
}

// Options control a matching pass. The zero value of a field selects its
// default.
type Options struct {
	// Limit is the candidate cap for the k-NN query. Negative or zero limits
	// are rejected; use DefaultOptions for the default.
	Limit int
	// DistanceThreshold is the max acceptable distance; candidates beyond it
	// are discarded after retrieval. Zero or negative selects the default.
	DistanceThreshold float64
	Prefilters        Prefilters
}

// DefaultOptions returns the default matching options.
func DefaultOptions() *Options {
	return &Options{
		Limit:             DefaultLimit,
		DistanceThreshold: DefaultDistanceThreshold,
	}
}

// Result is the outcome of one matching pass.
type Result struct {
	RequestID string
	Matches   []*store.Match
}

// Engine computes and persists matches between lost-item requests and
// found-item inventory. All dependencies are injected; the engine holds no
// mutable state and is safe for concurrent passes over distinct requests.
type Engine struct {
	store    *store.Store
	embedder ai.EmbeddingService
	metrics  *Metrics
	// embedTimeout bounds each provider call; zero means the caller's
	// context deadline alone applies.
	embedTimeout time.Duration
}

// NewEngine creates a matching engine. metrics may be nil; a non-positive
// embedTimeout disables the per-call provider deadline.
func NewEngine(s *store.Store, embedder ai.EmbeddingService, metrics *Metrics, embedTimeout time.Duration) *Engine {
	return &Engine{
		store:        s,
		embedder:     embedder,
		metrics:      metrics,
		embedTimeout: embedTimeout,
	}
}

// EnsureRequestEmbedding returns the request's stored vector, computing and
// persisting it on first access. Exactly one durable write happens per
// record, on the first successful computation.
func (e *Engine) EnsureRequestEmbedding(ctx context.Context, request *store.LostRequest) ([]float32, error) {
	if request.HasEmbedding() {
		e.metrics.embeddingCacheHit()
		return request.Embedding, nil
	}

	vector, err := e.embed(ctx, request.ID, request.Description)
	if err != nil {
		return nil, err
	}
	if _, err := e.store.UpdateLostRequest(ctx, &store.UpdateLostRequest{
		ID:        request.ID,
		Embedding: vector,
	}); err != nil {
		return nil, errors.Wrap(err, "failed to persist request embedding")
	}
	request.Embedding = vector
	return vector, nil
}

// EnsureFoundItemEmbedding returns the found item's stored vector, computing
// and persisting it on first access.
func (e *Engine) EnsureFoundItemEmbedding(ctx context.Context, item *store.FoundItem) ([]float32, error) {
	if item.HasEmbedding() {
		e.metrics.embeddingCacheHit()
		return item.Embedding, nil
	}

	vector, err := e.embed(ctx, item.ID, item.Description)
	if err != nil {
		return nil, err
	}
	if _, err := e.store.UpdateFoundItem(ctx, &store.UpdateFoundItem{
		ID:        item.ID,
		Embedding: vector,
	}); err != nil {
		return nil, errors.Wrap(err, "failed to persist found item embedding")
	}
	item.Embedding = vector
	return vector, nil
}

func (e *Engine) embed(ctx context.Context, recordID, description string) ([]float32, error) {
	if strings.TrimSpace(description) == "" {
		return nil, &MissingDescriptionError{RecordID: recordID}
	}
	if e.embedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.embedTimeout)
		defer cancel()
	}
	e.metrics.embeddingCall()
	vector, err := e.embedder.Embed(ctx, description)
	if err != nil {
		return nil, &EmbeddingProviderError{Err: err}
	}
	return vector, nil
}

// MatchRequest runs one full matching pass for the request: ensure its
// embedding, k-NN query the found-item inventory, convert distances to
// confidence, rank, and replace the request's stored match set wholesale.
//
// The distance threshold is applied client-side to the top-limit nearest
// candidates only, after retrieval. A pass can therefore return fewer than
// limit matches even when more candidates beyond the cap would qualify. This
// windowed cutoff is deliberate; the limit is never raised iteratively to
// satisfy the threshold.
func (e *Engine) MatchRequest(ctx context.Context, requestID string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Limit <= 0 {
		return nil, errors.Errorf("invalid limit %d: must be positive", opts.Limit)
	}
	threshold := opts.DistanceThreshold
	if threshold <= 0 {
		threshold = DefaultDistanceThreshold
	}

	start := time.Now()
	slog.Info("starting matching pass",
		"request_id", requestID,
		"limit", opts.Limit,
		"distance_threshold", threshold,
	)

	request, err := e.store.GetLostRequest(ctx, requestID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load request")
	}
	if request == nil {
		return nil, &RequestNotFoundError{RequestID: requestID}
	}

	vector, err := e.EnsureRequestEmbedding(ctx, request)
	if err != nil {
		return nil, err
	}

	candidates, err := e.store.FindNearestFoundItems(ctx, &store.VectorSearchOptions{
		Vector:   vector,
		Limit:    opts.Limit,
		Category: opts.Prefilters.Category,
		Campus:   opts.Prefilters.Campus,
	})
	if err != nil {
		if errors.Is(err, store.ErrVectorIndexMissing) {
			return nil, &VectorIndexMissingError{Err: err}
		}
		return nil, errors.Wrap(err, "failed to search found items")
	}

	// Candidates arrive nearest first; rank is the position in that order,
	// which is also confidence-descending.
	matches := []*store.Match{}
	for _, candidate := range candidates {
		if candidate.Distance > threshold {
			slog.Debug("discarding candidate beyond threshold",
				"request_id", requestID,
				"found_item_id", candidate.FoundItemID,
				"distance", candidate.Distance,
			)
			continue
		}
		matches = append(matches, &store.Match{
			ID:          shortuuid.New(),
			RequestID:   requestID,
			FoundItemID: candidate.FoundItemID,
			Distance:    candidate.Distance,
			Confidence:  DistanceToConfidence(candidate.Distance),
			Rank:        int32(len(matches)),
			Status:      store.MatchStatusPending,
		})
	}

	// Full replace, even when empty: a prior non-empty set must be cleared.
	if err := e.store.ReplaceMatches(ctx, requestID, matches); err != nil {
		return nil, errors.Wrap(err, "failed to replace matches")
	}

	e.metrics.passCompleted(time.Since(start), len(matches))
	slog.Info("matching pass completed",
		"request_id", requestID,
		"candidates", len(candidates),
		"matches", len(matches),
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return &Result{
		RequestID: requestID,
		Matches:   matches,
	}, nil
}

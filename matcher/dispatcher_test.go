package matcher

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusfind/campusfind/store"
)

func newTestDispatcher(driver *fakeDriver, embedder *fakeEmbedder) *Dispatcher {
	engine := newTestEngine(driver, embedder)
	return NewDispatcher(engine, engine.store, nil, nil, 4, 5*time.Second)
}

func TestOnRequestCreatedRunsPass(t *testing.T) {
	ctx := context.Background()
	driver := newFakeDriver()
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	dispatcher := newTestDispatcher(driver, embedder)

	_, err := driver.CreateLostRequest(ctx, &store.LostRequest{ID: "req-1", Description: "lost phone"})
	require.NoError(t, err)
	driver.nearest = []*store.FoundItemDistance{{FoundItemID: "item-1", Distance: 0.2}}

	dispatcher.OnRequestCreated("req-1")
	dispatcher.Wait()

	stored, err := driver.ListMatches(ctx, &store.FindMatch{RequestID: strPtr("req-1")})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "item-1", stored[0].FoundItemID)
}

func TestOnFoundItemCreatedFansOutToAllRequests(t *testing.T) {
	ctx := context.Background()
	driver := newFakeDriver()
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	dispatcher := newTestDispatcher(driver, embedder)

	for _, id := range []string{"req-1", "req-2", "req-3"} {
		_, err := driver.CreateLostRequest(ctx, &store.LostRequest{ID: id, Description: "lost item " + id})
		require.NoError(t, err)
	}
	driver.nearest = []*store.FoundItemDistance{{FoundItemID: "item-1", Distance: 0.3}}

	dispatcher.OnFoundItemCreated("item-1")
	dispatcher.Wait()

	assert.Equal(t, 3, driver.matchReplaces)
	for _, id := range []string{"req-1", "req-2", "req-3"} {
		stored, err := driver.ListMatches(ctx, &store.FindMatch{RequestID: strPtr(id)})
		require.NoError(t, err)
		assert.Len(t, stored, 1, "request %s", id)
	}
}

func TestOnFoundItemCreatedIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	driver := newFakeDriver()
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	dispatcher := newTestDispatcher(driver, embedder)

	// req-bad has no description: its pass fails with a missing-description
	// error. The other pass must still complete.
	_, err := driver.CreateLostRequest(ctx, &store.LostRequest{ID: "req-bad", Description: ""})
	require.NoError(t, err)
	_, err = driver.CreateLostRequest(ctx, &store.LostRequest{ID: "req-good", Description: "brown jacket"})
	require.NoError(t, err)
	driver.nearest = []*store.FoundItemDistance{{FoundItemID: "item-1", Distance: 0.1}}

	dispatcher.OnFoundItemCreated("item-1")
	dispatcher.Wait()

	good, err := driver.ListMatches(ctx, &store.FindMatch{RequestID: strPtr("req-good")})
	require.NoError(t, err)
	assert.Len(t, good, 1)
	bad, err := driver.ListMatches(ctx, &store.FindMatch{RequestID: strPtr("req-bad")})
	require.NoError(t, err)
	assert.Empty(t, bad)
}

func TestDispatcherUsesConfiguredOptions(t *testing.T) {
	ctx := context.Background()
	driver := newFakeDriver()
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	engine := newTestEngine(driver, embedder)
	// A loose threshold admits a candidate the default 0.6 would discard,
	// and limit 1 drops the second one.
	dispatcher := NewDispatcher(engine, engine.store, nil, &Options{
		Limit:             1,
		DistanceThreshold: 1.5,
	}, 4, 5*time.Second)

	_, err := driver.CreateLostRequest(ctx, &store.LostRequest{ID: "req-1", Description: "old bicycle"})
	require.NoError(t, err)
	driver.nearest = []*store.FoundItemDistance{
		{FoundItemID: "item-far", Distance: 1.2},
		{FoundItemID: "item-farther", Distance: 1.4},
	}

	dispatcher.OnRequestCreated("req-1")
	dispatcher.Wait()

	stored, err := driver.ListMatches(ctx, &store.FindMatch{RequestID: strPtr("req-1")})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "item-far", stored[0].FoundItemID)
}

func TestOnFoundItemCreatedCountsTruncatedFanOut(t *testing.T) {
	ctx := context.Background()
	driver := newFakeDriver()
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	engine := newTestEngine(driver, embedder)
	metrics := NewMetrics(prometheus.NewRegistry())
	// A fan-out deadline that expires before any pass can be admitted.
	dispatcher := NewDispatcher(engine, engine.store, metrics, nil, 1, time.Nanosecond)

	for _, id := range []string{"req-1", "req-2", "req-3"} {
		_, err := driver.CreateLostRequest(ctx, &store.LostRequest{ID: id, Description: "lost item " + id})
		require.NoError(t, err)
	}

	dispatcher.OnFoundItemCreated("item-1")
	dispatcher.Wait()

	truncated := metrics.passOutcomes.WithLabelValues("found_item_created", "fanout_truncated")
	assert.InDelta(t, 3, testutil.ToFloat64(truncated), 0.1)
}

func TestOnRequestCreatedSwallowsEngineErrors(t *testing.T) {
	ctx := context.Background()
	driver := newFakeDriver()
	embedder := &fakeEmbedder{err: errors.New("provider down")}
	dispatcher := newTestDispatcher(driver, embedder)

	_, err := driver.CreateLostRequest(ctx, &store.LostRequest{ID: "req-1", Description: "lost glasses"})
	require.NoError(t, err)

	// Must not panic or block; the failure is logged and swallowed.
	dispatcher.OnRequestCreated("req-1")
	dispatcher.Wait()

	assert.Equal(t, 0, driver.matchReplaces)
}

package query

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// counter returns a fetch func yielding 1, 2, 3... and the call count.
func counter() (func(context.Context) (int, error), *atomic.Int32) {
	var n atomic.Int32
	return func(context.Context) (int, error) {
		return int(n.Add(1)), nil
	}, &n
}

func newTestClient(clock *testClock) *Client {
	return NewClient(WithStaleTime(time.Minute), WithClock(clock.Now), WithLogger(quiet))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "alerts", Key("alerts"))
	assert.Equal(t, "alerts/coin/bitcoin", Key("alerts", "coin", "bitcoin"))
}

func TestFetchServesFreshFromCache(t *testing.T) {
	c := newTestClient(newTestClock())
	fn, calls := counter()
	ctx := context.Background()

	v, err := Fetch(ctx, c, "watchlist", fn)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = Fetch(ctx, c, "watchlist", fn)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.EqualValues(t, 1, calls.Load())
}

func TestFetchStaleReturnsCachedAndRefreshes(t *testing.T) {
	clock := newTestClock()
	c := newTestClient(clock)
	fn, calls := counter()
	ctx := context.Background()

	_, err := Fetch(ctx, c, "alerts", fn)
	require.NoError(t, err)

	clock.Advance(59 * time.Second)
	v, _ := Fetch(ctx, c, "alerts", fn)
	assert.Equal(t, 1, v)
	assert.EqualValues(t, 1, calls.Load(), "still fresh before the stale time")

	clock.Advance(time.Second)
	v, _ = Fetch(ctx, c, "alerts", fn)
	assert.Equal(t, 1, v, "stale data is returned immediately")

	c.Wait()
	assert.EqualValues(t, 2, calls.Load())
	v, _ = Fetch(ctx, c, "alerts", fn)
	assert.Equal(t, 2, v)
}

func TestFetchDeduplicatesConcurrentLoads(t *testing.T) {
	c := newTestClient(newTestClock())
	release := make(chan struct{})
	var calls atomic.Int32
	fn := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "done", nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = Fetch(context.Background(), c, "watchlist", fn)
		}()
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, r := range results {
		assert.Equal(t, "done", r)
	}
}

func TestFetchErrorsAreNotCached(t *testing.T) {
	c := newTestClient(newTestClock())
	boom := errors.New("boom")
	var calls atomic.Int32
	fn := func(context.Context) (int, error) {
		if calls.Add(1) == 1 {
			return 0, boom
		}
		return 7, nil
	}

	_, err := Fetch(context.Background(), c, "watchlist", fn)
	require.ErrorIs(t, err, boom)

	v, err := Fetch(context.Background(), c, "watchlist", fn)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestInvalidateMatchesFamilyOnly(t *testing.T) {
	c := newTestClient(newTestClock())
	ctx := context.Background()

	keys := []string{"watchlist", "watchlist/extra", "alerts", "alerts/coin/bitcoin", "watchlists"}
	counts := map[string]*atomic.Int32{}
	fns := map[string]func(context.Context) (int, error){}
	for _, k := range keys {
		fns[k], counts[k] = counter()
		_, err := Fetch(ctx, c, k, fns[k])
		require.NoError(t, err)
	}

	c.Invalidate("watchlist")
	for _, k := range keys {
		_, err := Fetch(ctx, c, k, fns[k])
		require.NoError(t, err)
	}

	assert.EqualValues(t, 2, counts["watchlist"].Load())
	assert.EqualValues(t, 2, counts["watchlist/extra"].Load())
	assert.EqualValues(t, 1, counts["alerts"].Load())
	assert.EqualValues(t, 1, counts["alerts/coin/bitcoin"].Load())
	assert.EqualValues(t, 1, counts["watchlists"].Load())

	c.InvalidateAll()
	_, _ = Fetch(ctx, c, "alerts", fns["alerts"])
	assert.EqualValues(t, 2, counts["alerts"].Load())
}

func TestInvalidateDuringFetchDiscardsResult(t *testing.T) {
	c := newTestClient(newTestClock())
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	fn := func(context.Context) (int, error) {
		n := calls.Add(1)
		if n == 1 {
			close(started)
			<-release
		}
		return int(n), nil
	}

	done := make(chan int)
	go func() {
		v, _ := Fetch(context.Background(), c, "alerts", fn)
		done <- v
	}()

	<-started
	c.Invalidate("alerts")
	close(release)
	assert.Equal(t, 1, <-done, "the caller still gets its own result")

	v, err := Fetch(context.Background(), c, "alerts", fn)
	require.NoError(t, err)
	assert.Equal(t, 2, v, "the pre-invalidation result was not cached")
}

func TestFetchAfterInvalidateDoesNotJoinEarlierFetch(t *testing.T) {
	c := newTestClient(newTestClock())
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	fn := func(context.Context) (int, error) {
		n := calls.Add(1)
		if n == 1 {
			close(started)
			<-release
		}
		return int(n), nil
	}

	first := make(chan int)
	go func() {
		v, _ := Fetch(context.Background(), c, "watchlist", fn)
		first <- v
	}()
	<-started
	c.Invalidate("watchlist")

	v, err := Fetch(context.Background(), c, "watchlist", fn)
	require.NoError(t, err)
	assert.Equal(t, 2, v, "a fetch issued after the invalidation runs fn again")

	close(release)
	assert.Equal(t, 1, <-first)
	assert.EqualValues(t, 2, calls.Load())

	v, err = Fetch(context.Background(), c, "watchlist", fn)
	require.NoError(t, err)
	assert.Equal(t, 2, v, "the fresh result is cached, the earlier one is not")
}

func TestFetchAfterInvalidateAllDoesNotJoinEarlierFetch(t *testing.T) {
	c := newTestClient(newTestClock())
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	fn := func(context.Context) (int, error) {
		n := calls.Add(1)
		if n == 1 {
			close(started)
			<-release
		}
		return int(n), nil
	}

	first := make(chan int)
	go func() {
		v, _ := Fetch(context.Background(), c, Key("alerts", "coin", "bitcoin"), fn)
		first <- v
	}()
	<-started
	c.InvalidateAll()

	v, err := Fetch(context.Background(), c, Key("alerts", "coin", "bitcoin"), fn)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	close(release)
	assert.Equal(t, 1, <-first)
}

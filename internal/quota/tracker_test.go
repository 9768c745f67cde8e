package quota

import (
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTracker() (*Tracker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewTracker(WithClock(clock.Now)), clock
}

func TestCanCall_UnknownProvider(t *testing.T) {
	tr, _ := newTestTracker()
	assert.True(t, tr.CanCall("nasa"))
}

func TestCanCall_BlockedUntilReset(t *testing.T) {
	tr, clock := newTestTracker()
	tr.Init("nasa", 1000)
	require.True(t, tr.CanCall("nasa"))

	tr.Record("nasa", 0, clock.Now().Add(10*time.Minute))
	assert.False(t, tr.CanCall("nasa"))

	clock.Advance(9 * time.Minute)
	assert.False(t, tr.CanCall("nasa"))

	clock.Advance(2 * time.Minute)
	assert.True(t, tr.CanCall("nasa"))
}

func TestCanCall_ZeroRemainingWithoutReset(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Record("noaa", 0, time.Time{})
	assert.True(t, tr.CanCall("noaa"))
}

func TestObserve(t *testing.T) {
	tr, clock := newTestTracker()
	tr.Init("nasa", 1000)

	reset := clock.Now().Add(time.Hour).Unix()
	h := http.Header{}
	h.Set(HeaderLimit, "2000")
	h.Set(HeaderRemaining, "0")
	h.Set(HeaderReset, strconv.FormatInt(reset, 10))

	require.True(t, tr.Observe("nasa", h))

	s, ok := tr.Get("nasa")
	require.True(t, ok)
	assert.Equal(t, 2000, s.Limit)
	assert.Equal(t, 0, s.Remaining)
	assert.Equal(t, reset, s.ResetAt.Unix())
	assert.False(t, tr.CanCall("nasa"))
}

func TestObserve_DeltaSecondsReset(t *testing.T) {
	tr, clock := newTestTracker()

	h := http.Header{}
	h.Set(HeaderRemaining, "0")
	h.Set(HeaderReset, "60")
	tr.Observe("sentinel_hub", h)

	s, _ := tr.Get("sentinel_hub")
	assert.Equal(t, clock.Now().Add(time.Minute), s.ResetAt)
}

func TestObserve_RetryAfter(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		value     string
		remaining string
		wantReset time.Time
	}{
		{"delta seconds", "3600", "", start.Add(time.Hour)},
		{"http date", start.Add(30 * time.Minute).Format(http.TimeFormat), "", start.Add(30 * time.Minute)},
		{"overrides remaining", "120", "42", start.Add(2 * time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, clock := newTestTracker()

			h := http.Header{}
			h.Set(HeaderRetry, tt.value)
			if tt.remaining != "" {
				h.Set(HeaderRemaining, tt.remaining)
			}
			require.True(t, tr.Observe("nasa", h))

			s, ok := tr.Get("nasa")
			require.True(t, ok)
			assert.Equal(t, 0, s.Remaining)
			assert.True(t, tt.wantReset.Equal(s.ResetAt))
			assert.False(t, tr.CanCall("nasa"))

			clock.Advance(tt.wantReset.Sub(clock.Now()) + time.Second)
			assert.True(t, tr.CanCall("nasa"))
		})
	}
}

func TestObserve_RetryAfterInvalid(t *testing.T) {
	for _, v := range []string{"soon", "-5"} {
		tr, _ := newTestTracker()
		h := http.Header{}
		h.Set(HeaderRetry, v)
		assert.False(t, tr.Observe("nasa", h), v)
		assert.True(t, tr.CanCall("nasa"), v)
	}
}

func TestObserve_NoHeadersLeavesStateUnchanged(t *testing.T) {
	tr, clock := newTestTracker()
	tr.Record("nasa", 3, clock.Now().Add(time.Hour))

	assert.False(t, tr.Observe("nasa", http.Header{}))
	assert.False(t, tr.Observe("nasa", nil))

	bad := http.Header{}
	bad.Set(HeaderRemaining, "lots")
	assert.False(t, tr.Observe("nasa", bad))

	s, _ := tr.Get("nasa")
	assert.Equal(t, 3, s.Remaining)
}

func TestMarkCallAndSnapshot(t *testing.T) {
	tr, clock := newTestTracker()
	tr.Init("world_bank", 0)
	tr.MarkCall("noaa")
	tr.MarkCall("noaa")

	snap := tr.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "noaa", snap[0].Provider)
	assert.Equal(t, 2, snap[0].Calls)
	assert.Equal(t, clock.Now(), snap[0].LastCall)
	assert.Equal(t, "world_bank", snap[1].Provider)
	assert.True(t, snap[1].LastCall.IsZero())
}

func TestTracker_ConcurrentAccess(t *testing.T) {
	tr, clock := newTestTracker()
	tr.Init("nasa", 1000)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr.MarkCall("nasa")
			tr.Record("nasa", 1000-i, clock.Now().Add(time.Hour))
			_ = tr.CanCall("nasa")
			_ = tr.Snapshot()
		}(i)
	}
	wg.Wait()

	s, _ := tr.Get("nasa")
	assert.Equal(t, 50, s.Calls)
}

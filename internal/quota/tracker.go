// Package quota tracks per-provider call budgets reported by response headers.
package quota

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Standard quota headers (api.nasa.gov and most api-umbrella deployments)
const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
	HeaderRetry     = "Retry-After" // delta-seconds or HTTP-date
)

// resetEpochThreshold separates unix timestamps from delta-seconds in HeaderReset
const resetEpochThreshold = 1_000_000_000

// State is one provider's tracked quota.
// Ephemeral: never persisted across restarts.
type State struct {
	Provider  string    `json:"provider"`
	Limit     int       `json:"limit,omitempty"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at,omitempty"`  // zero when unknown
	LastCall  time.Time `json:"last_call,omitempty"` // zero before the first call
	Calls     int       `json:"calls"`
}

// Exhausted reports whether calls must wait for the reset at now.
// A zero ResetAt with no remaining calls is treated as unknown, not blocked.
func (s State) Exhausted(now time.Time) bool {
	return s.Remaining <= 0 && !s.ResetAt.IsZero() && now.Before(s.ResetAt)
}

// Tracker is the process-wide quota table, safe for concurrent use
// ⭐ SSOT: 프로바이더별 남은 호출 수는 여기서만 관리
type Tracker struct {
	mu     sync.Mutex
	now    func() time.Time
	states map[string]*State
}

// Option configures a Tracker
type Option func(*Tracker)

// WithClock injects the time source (tests)
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker creates an empty tracker
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		now:    time.Now,
		states: make(map[string]*State),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Init seeds a provider with its default ceiling
func (t *Tracker) Init(provider string, ceiling int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.states[provider] = &State{
		Provider:  provider,
		Limit:     ceiling,
		Remaining: ceiling,
	}
}

// CanCall is true unless remaining <= 0 and the reset time has not passed.
// Unknown providers may always be called.
func (t *Tracker) CanCall(provider string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.states[provider]
	if !ok {
		return true
	}
	return !s.Exhausted(t.now())
}

// Record overwrites the tracked remaining count and reset time
func (t *Tracker) Record(provider string, remaining int, resetAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.stateLocked(provider)
	s.Remaining = remaining
	s.ResetAt = resetAt
}

// MarkCall notes that a request was issued to provider
func (t *Tracker) MarkCall(provider string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.stateLocked(provider)
	s.LastCall = t.now()
	s.Calls++
}

// Observe updates state from quota headers.
// Retry-After means no calls until that time, whatever remaining says.
// Responses without a remaining or Retry-After header leave state unchanged;
// returns whether anything was recorded.
func (t *Tracker) Observe(provider string, h http.Header) bool {
	if h == nil {
		return false
	}
	remaining, hasRemaining := headerInt(h, HeaderRemaining)
	retryAt, hasRetry := t.retryAfter(h)
	if !hasRemaining && !hasRetry {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.stateLocked(provider)
	if hasRemaining {
		s.Remaining = remaining
		if limit, ok := headerInt(h, HeaderLimit); ok {
			s.Limit = limit
		}
		if reset, ok := headerInt(h, HeaderReset); ok {
			s.ResetAt = t.resetTime(int64(reset))
		}
	}
	if hasRetry {
		s.Remaining = 0
		if retryAt.After(s.ResetAt) {
			s.ResetAt = retryAt
		}
	}
	return true
}

// Get returns a copy of one provider's state
func (t *Tracker) Get(provider string) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.states[provider]
	if !ok {
		return State{}, false
	}
	return *s, true
}

// Snapshot returns copies of all states sorted by provider
func (t *Tracker) Snapshot() []State {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]State, 0, len(t.states))
	for _, s := range t.states {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}

func (t *Tracker) stateLocked(provider string) *State {
	s, ok := t.states[provider]
	if !ok {
		s = &State{Provider: provider}
		t.states[provider] = s
	}
	return s
}

// resetTime interprets X-RateLimit-Reset as unix seconds or seconds from now
func (t *Tracker) resetTime(v int64) time.Time {
	if v >= resetEpochThreshold {
		return time.Unix(v, 0)
	}
	return t.now().Add(time.Duration(v) * time.Second)
}

// retryAfter parses Retry-After as delta-seconds or an HTTP-date
func (t *Tracker) retryAfter(h http.Header) (time.Time, bool) {
	raw := strings.TrimSpace(h.Get(HeaderRetry))
	if raw == "" {
		return time.Time{}, false
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs < 0 {
			return time.Time{}, false
		}
		return t.now().Add(time.Duration(secs) * time.Second), true
	}
	at, err := http.ParseTime(raw)
	if err != nil {
		return time.Time{}, false
	}
	return at, true
}

func headerInt(h http.Header, key string) (int, bool) {
	raw := strings.TrimSpace(h.Get(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

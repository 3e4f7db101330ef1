package querycache

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrDisabled is returned by Refetch and Get while the enabled predicate
// reports false.
var ErrDisabled = errors.New("query disabled")

// Status is the lifecycle state of a query.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of a query's state. Fetched is true once
// any fetch has completed, successful or not.
type Snapshot[T any] struct {
	Status    Status
	Data      T
	Err       error
	Fetched   bool
	Stale     bool
	UpdatedAt time.Time
}

// Fetcher loads a query's data.
type Fetcher[T any] func(ctx context.Context) (T, error)

type options struct {
	staleTime time.Duration
	enabled   func() bool
	now       func() time.Time
}

// Option configures a Query.
type Option func(*options)

// WithStaleTime sets how long successful data is served by Get without a
// refetch. Zero means always refetch.
func WithStaleTime(d time.Duration) Option {
	return func(o *options) { o.staleTime = d }
}

// WithEnabled gates fetching on fn.
func WithEnabled(fn func() bool) Option {
	return func(o *options) { o.enabled = fn }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Query is a cached, deduplicated fetch of one value.
type Query[T any] struct {
	key   string
	fetch Fetcher[T]
	opts  options
	group singleflight.Group

	mu    sync.Mutex
	state Snapshot[T]
	gen   uint64
}

// NewQuery creates a query and registers it with c under key. A nil cache
// leaves the query unregistered.
func NewQuery[T any](c *Cache, key string, fetch Fetcher[T], opts ...Option) *Query[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	q := &Query[T]{key: key, fetch: fetch, opts: o}
	if c != nil {
		c.Register(key, q)
	}
	return q
}

// Key returns the query's cache key.
func (q *Query[T]) Key() string {
	return q.key
}

// Enabled reports whether the enabled predicate allows fetching.
func (q *Query[T]) Enabled() bool {
	return q.opts.enabled == nil || q.opts.enabled()
}

// Snapshot returns the current state.
func (q *Query[T]) Snapshot() Snapshot[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Invalidate marks cached data stale so the next Get refetches. A fetch in
// flight when Invalidate is called stores its result as stale.
func (q *Query[T]) Invalidate() {
	q.mu.Lock()
	q.gen++
	q.state.Stale = true
	q.mu.Unlock()
}

// Reset drops cached data and returns the query to idle.
func (q *Query[T]) Reset() {
	q.mu.Lock()
	q.gen++
	q.state = Snapshot[T]{}
	q.mu.Unlock()
}

// Get returns fresh cached data, or refetches when the data is missing,
// stale, failed or older than the stale time.
func (q *Query[T]) Get(ctx context.Context) (T, error) {
	q.mu.Lock()
	s := q.state
	fresh := s.Status == StatusSuccess && !s.Stale &&
		q.opts.staleTime > 0 && q.opts.now().Sub(s.UpdatedAt) < q.opts.staleTime
	q.mu.Unlock()
	if fresh {
		return s.Data, nil
	}
	return q.Refetch(ctx)
}

// Refetch runs the fetcher, joining a fetch already in flight.
func (q *Query[T]) Refetch(ctx context.Context) (T, error) {
	var zero T
	if !q.Enabled() {
		return zero, ErrDisabled
	}

	// Joined callers must not inherit the first caller's cancellation.
	fetchCtx := context.WithoutCancel(ctx)
	ch := q.group.DoChan(q.key, func() (any, error) {
		q.mu.Lock()
		q.state.Status = StatusLoading
		gen := q.gen
		q.mu.Unlock()

		data, err := q.fetch(fetchCtx)

		q.mu.Lock()
		defer q.mu.Unlock()
		q.state.Fetched = true
		q.state.UpdatedAt = q.opts.now()
		q.state.Stale = q.gen != gen
		if err != nil {
			q.state.Status = StatusError
			q.state.Err = err
			return zero, err
		}
		q.state.Status = StatusSuccess
		q.state.Data = data
		q.state.Err = nil
		return data, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

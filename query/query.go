// Package query caches the results of remote reads and tracks the state of
// remote writes.
//
// Reads are keyed, considered fresh for a stale time, collected after a
// period without use, de-duplicated while in flight and retried with
// exponential backoff unless the failure is a client error. Writes
// (Mutation) are never retried.
package query

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/goliatone/go-errors"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultStaleTime = 5 * time.Minute
	DefaultGCTime    = 10 * time.Minute
	// DefaultMaxRetries is the number of retries after the first failure.
	DefaultMaxRetries = 2
	// DefaultFetchTimeout bounds a shared read, retries included.
	DefaultFetchTimeout = time.Minute
)

// Logger is the subset of the portal logger used here.
type Logger interface {
	Debug(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// RetryPolicy decides whether a failed read is tried again. failureCount
// is zero for the first failure.
type RetryPolicy func(failureCount int, err error) bool

// DefaultRetry retries up to DefaultMaxRetries times and never on 4xx.
func DefaultRetry(failureCount int, err error) bool {
	var sc StatusCoder
	if errors.As(err, &sc) {
		if s := sc.StatusCode(); s >= http.StatusBadRequest && s < http.StatusInternalServerError {
			return false
		}
	}
	return failureCount < DefaultMaxRetries
}

// DefaultBackOff doubles from one second up to thirty.
func DefaultBackOff() backoff.BackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     time.Second,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         30 * time.Second,
	}
}

// Status of a read.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is the outcome of Fetch.
type Result[T any] struct {
	Data      T
	Err       error
	Status    Status
	UpdatedAt time.Time
	FromCache bool
}

func (r Result[T]) IsIdle() bool    { return r.Status == StatusIdle }
func (r Result[T]) IsSuccess() bool { return r.Status == StatusSuccess }
func (r Result[T]) IsError() bool   { return r.Status == StatusError }

type entry struct {
	data        any
	err         error
	status      Status
	updatedAt   time.Time
	lastUsed    time.Time
	invalidated bool
}

type cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	keys    map[string]Key
	group   singleflight.Group

	staleTime    time.Duration
	gcTime       time.Duration
	fetchTimeout time.Duration
	retry        RetryPolicy
	newBackOff func() backoff.BackOff
	logger     Logger
	now        func() time.Time
}

// Client is a view over a shared cache. Scoped clients see only the keys
// under their scope, so one cache can serve many sessions.
type Client struct {
	cache *cache
	scope Key
}

// Option configures a Client.
type Option func(*cache)

func WithStaleTime(d time.Duration) Option {
	return func(c *cache) {
		if d >= 0 {
			c.staleTime = d
		}
	}
}

func WithGCTime(d time.Duration) Option {
	return func(c *cache) {
		if d > 0 {
			c.gcTime = d
		}
	}
}

// WithFetchTimeout bounds a shared read. The read outlives the caller that
// started it, so this is its only deadline.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *cache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

func WithRetry(p RetryPolicy) Option {
	return func(c *cache) {
		if p != nil {
			c.retry = p
		}
	}
}

func WithBackOff(fn func() backoff.BackOff) Option {
	return func(c *cache) {
		if fn != nil {
			c.newBackOff = fn
		}
	}
}

func WithLogger(l Logger) Option {
	return func(c *cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *cache) {
		if now != nil {
			c.now = now
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &cache{
		entries:    make(map[string]*entry),
		keys:       make(map[string]Key),
		staleTime:    DefaultStaleTime,
		gcTime:       DefaultGCTime,
		fetchTimeout: DefaultFetchTimeout,
		retry:        DefaultRetry,
		newBackOff:   DefaultBackOff,
		logger:       nopLogger{},
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return &Client{cache: c}
}

// Scoped returns a client whose keys live under prefix.
func (c *Client) Scoped(prefix ...string) *Client {
	return &Client{cache: c.cache, scope: c.scope.with(prefix)}
}

// Scope returns the key prefix of the client.
func (c *Client) Scope() Key {
	return c.scope
}

func (c *Client) full(k Key) Key {
	return c.scope.with(k)
}

// FetchOption tunes a single Fetch.
type FetchOption func(*fetchConfig)

type fetchConfig struct {
	enabled   bool
	staleTime time.Duration
}

// Enabled gates the fetch; a disabled fetch returns an idle result.
func Enabled(ok bool) FetchOption {
	return func(c *fetchConfig) {
		c.enabled = ok
	}
}

// StaleTime overrides the client stale time for one fetch.
func StaleTime(d time.Duration) FetchOption {
	return func(c *fetchConfig) {
		c.staleTime = d
	}
}

// Fetch returns the cached value under key while it is fresh, otherwise it
// calls fn, retrying per the client policy, and caches the outcome.
// Concurrent fetches of one key share a single call. The call keeps the
// values of the ctx that started it but not its cancellation; a caller
// whose ctx ends stops waiting and gets ctx.Err() without touching the
// cached entry.
func Fetch[T any](ctx context.Context, c *Client, key Key, fn func(context.Context) (T, error), opts ...FetchOption) Result[T] {
	cfg := fetchConfig{enabled: true, staleTime: c.cache.staleTime}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if !cfg.enabled {
		return Result[T]{Status: StatusIdle}
	}

	full := c.full(key)
	id := full.String()

	if res, ok := cached[T](c.cache, id, cfg.staleTime); ok {
		return res
	}

	done := c.cache.group.DoChan(id, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cache.fetchTimeout)
		defer cancel()

		v, err := c.cache.run(shared, func() (any, error) {
			return fn(shared)
		})
		c.cache.store(full, v, err)
		return nil, nil
	})

	select {
	case <-done:
	case <-ctx.Done():
		res := snapshot[T](c.cache, id)
		res.Err = ctx.Err()
		res.Status = StatusError
		return res
	}

	return snapshot[T](c.cache, id)
}

func cached[T any](c *cache, id string, stale time.Duration) (Result[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok || e.invalidated || e.status != StatusSuccess {
		return Result[T]{}, false
	}

	now := c.now()
	if now.Sub(e.updatedAt) >= stale {
		return Result[T]{}, false
	}

	e.lastUsed = now
	res := toResult[T](e)
	res.FromCache = true
	return res, true
}

func snapshot[T any](c *cache, id string) Result[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return Result[T]{Status: StatusIdle}
	}
	e.lastUsed = c.now()
	return toResult[T](e)
}

func toResult[T any](e *entry) Result[T] {
	res := Result[T]{Err: e.err, Status: e.status, UpdatedAt: e.updatedAt}
	if v, ok := e.data.(T); ok {
		res.Data = v
	}
	return res
}

func (c *cache) run(ctx context.Context, op func() (any, error)) (any, error) {
	failures := 0
	v, err := backoff.Retry(ctx, func() (any, error) {
		v, err := op()
		if err == nil {
			return v, nil
		}
		retry := c.retry(failures, err)
		failures++
		if !retry {
			return nil, backoff.Permanent(err)
		}
		c.logger.Debug("query failed, retrying", "attempt", failures, "error", err)
		return nil, err
	},
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxElapsedTime(0),
	)

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	return v, err
}

func (c *cache) store(key Key, v any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := key.String()
	now := c.now()
	e, ok := c.entries[id]
	if !ok {
		e = &entry{}
		c.entries[id] = e
		c.keys[id] = key
	}

	e.updatedAt = now
	e.lastUsed = now
	e.invalidated = false
	if err != nil {
		// keep the last good data around, like a stale read would
		e.err = err
		e.status = StatusError
		return
	}
	e.data = v
	e.err = nil
	e.status = StatusSuccess
}

// GetQueryData returns the cached value under key, fresh or not.
func GetQueryData[T any](c *Client, key Key) (T, bool) {
	var zero T

	c.cache.mu.Lock()
	defer c.cache.mu.Unlock()

	e, ok := c.cache.entries[c.full(key).String()]
	if !ok || e.data == nil {
		return zero, false
	}
	v, ok := e.data.(T)
	return v, ok
}

// SetQueryData replaces the cached value under key and marks it fresh.
func (c *Client) SetQueryData(key Key, v any) {
	c.cache.store(c.full(key), v, nil)
}

// InvalidateQueries marks every key under prefix as stale; the next Fetch
// calls the backend again.
func (c *Client) InvalidateQueries(prefix Key) int {
	return c.cache.each(c.full(prefix), func(_ string, e *entry) {
		e.invalidated = true
	})
}

// RemoveQueries drops every key under prefix.
func (c *Client) RemoveQueries(prefix Key) int {
	return c.cache.each(c.full(prefix), func(id string, _ *entry) {
		delete(c.cache.entries, id)
		delete(c.cache.keys, id)
	})
}

// Clear drops every key visible to the client.
func (c *Client) Clear() int {
	return c.RemoveQueries(nil)
}

// Len returns the number of keys visible to the client.
func (c *Client) Len() int {
	return c.cache.each(c.scope, func(string, *entry) {})
}

func (c *cache) each(prefix Key, fn func(id string, e *entry)) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for id, e := range c.entries {
		if !c.keys[id].HasPrefix(prefix) {
			continue
		}
		fn(id, e)
		n++
	}
	return n
}

// Collect drops entries unused for longer than the GC time and returns how
// many were removed. It applies to the whole cache, regardless of scope.
func (c *Client) Collect() int {
	c.cache.mu.Lock()
	defer c.cache.mu.Unlock()

	now := c.cache.now()
	n := 0
	for id, e := range c.cache.entries {
		if now.Sub(e.lastUsed) > c.cache.gcTime {
			delete(c.cache.entries, id)
			delete(c.cache.keys, id)
			n++
		}
	}
	return n
}

// RunCollector calls Collect every interval until ctx is done.
func (c *Client) RunCollector(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = c.cache.gcTime / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Collect(); n > 0 {
				c.cache.logger.Debug("query cache collected", "entries", n)
			}
		}
	}
}

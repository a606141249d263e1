// Package querycache is a process-wide keyed store of server-derived data.
//
// Each key has at most one fetch in flight. Readers attach to the in-flight
// fetch instead of issuing another request. Invalidation marks a whole key
// family stale without evicting data; keys with active subscribers are
// refetched immediately, all others on their next read. Results are applied
// in last-issued-wins order per key: a fetch superseded by a newer one is
// discarded whenever it resolves.
package querycache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

var (
	// ErrClosed is returned by reads on a closed cache.
	ErrClosed = errors.New("query cache closed")
	// ErrNoLoader is returned when a key is read before any loader was registered for it.
	ErrNoLoader = errors.New("query cache: no loader for key")
)

// Loader fetches the value for a key. The context is cancelled when the
// fetch is superseded or the cache is closed.
type Loader func(ctx context.Context) (any, error)

// Listener receives the state of a key after every change.
type Listener func(State)

// State is a snapshot of one cache entry.
type State struct {
	Value      any
	HasValue   bool
	Err        error
	IsFetching bool
	IsStale    bool
	UpdatedAt  time.Time
}

// Stats are cumulative counters since the cache was created.
type Stats struct {
	Hits         uint64
	Misses       uint64
	Fetches      uint64
	Deduplicated uint64
	Superseded   uint64
	Errors       uint64
	Entries      int
}

type entry struct {
	key    Key
	loader Loader

	value     any
	hasValue  bool
	err       error
	updatedAt time.Time
	stale     bool

	generation uint64
	fetching   bool
	cancel     context.CancelFunc
	done       chan struct{}

	subs      map[uint64]Listener
	idleSince time.Time
}

func (e *entry) state() State {
	return State{
		Value:      e.value,
		HasValue:   e.hasValue,
		Err:        e.err,
		IsFetching: e.fetching,
		IsStale:    e.stale,
		UpdatedAt:  e.updatedAt,
	}
}

type notification struct {
	listeners []Listener
	state     State
}

func (n notification) fire() {
	for _, l := range n.listeners {
		l(n.state)
	}
}

// Cache is a keyed store of fetched values shared by every reader in the process.
type Cache struct {
	logger zerolog.Logger
	now    func() time.Time

	retries   uint64
	retryBase time.Duration
	gcTime    time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	entries   map[Key]*entry
	nextSubID uint64
	stats     Stats
	closed    bool

	janitorDone chan struct{}
}

// New creates a cache. Call Close on shutdown to stop background work.
func New(logger zerolog.Logger, opts ...Option) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		logger:    logger.With().Str("component", "query-cache").Logger(),
		now:       time.Now,
		retries:   DefaultRetries,
		retryBase: DefaultRetryBase,
		gcTime:    DefaultGCTime,
		ctx:       ctx,
		cancel:    cancel,
		entries:   make(map[Key]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.gcTime > 0 {
		c.janitorDone = make(chan struct{})
		go c.janitor()
	}
	return c
}

// Fetch returns the value for key. A fresh cached value is returned without a
// request. A stale cached value is returned immediately while a background
// refresh runs. Without a cached value Fetch waits for the in-flight fetch,
// starting one if none is running.
func (c *Cache) Fetch(ctx context.Context, key Key, loader Loader) (any, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	e := c.entryLocked(key, loader)
	if e.loader == nil {
		c.mu.Unlock()
		return nil, ErrNoLoader
	}

	if e.hasValue {
		c.stats.Hits++
		v := e.value
		var n notification
		if e.stale && !e.fetching {
			c.startFetchLocked(e)
			n = c.notificationLocked(e)
		}
		c.mu.Unlock()
		n.fire()
		return v, nil
	}

	var n notification
	if e.fetching {
		c.stats.Deduplicated++
	} else {
		c.stats.Misses++
		c.startFetchLocked(e)
		n = c.notificationLocked(e)
	}
	done := e.done
	c.mu.Unlock()
	n.fire()

	return c.wait(ctx, e, done)
}

// wait blocks until the latest fetch of e settles. A fetch superseded while
// waiting hands the wait over to its successor.
func (c *Cache) wait(ctx context.Context, e *entry, done chan struct{}) (any, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-done:
		}

		c.mu.Lock()
		if e.fetching && e.done != done {
			done = e.done
			c.mu.Unlock()
			continue
		}
		v, err := e.value, e.err
		c.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// Peek returns the current state of key without triggering a fetch.
func (c *Cache) Peek(key Key) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return State{}
	}
	return e.state()
}

// Invalidate marks every entry of family stale and returns how many were
// marked. Entries with subscribers or a fetch in flight are refetched now,
// superseding any in-flight fetch; the rest refetch on their next read.
func (c *Cache) Invalidate(family string) int {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0
	}
	var ns []notification
	marked := 0
	for _, e := range c.entries {
		if e.key.Family != family {
			continue
		}
		e.stale = true
		marked++
		if (len(e.subs) > 0 || e.fetching) && e.loader != nil {
			c.startFetchLocked(e)
		}
		ns = append(ns, c.notificationLocked(e))
	}
	c.mu.Unlock()

	c.logger.Debug().Str("family", family).Int("marked", marked).Msg("invalidated key family")
	for _, n := range ns {
		n.fire()
	}
	return marked
}

// Refetch starts a new fetch for key, superseding one already in flight.
func (c *Cache) Refetch(key Key) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if c.closed || !ok || e.loader == nil {
		c.mu.Unlock()
		return
	}
	c.startFetchLocked(e)
	n := c.notificationLocked(e)
	c.mu.Unlock()
	n.fire()
}

// Subscription keeps a key active until Unsubscribe is called.
type Subscription struct {
	c    *Cache
	key  Key
	id   uint64
	once sync.Once
}

func (s *Subscription) Key() Key { return s.key }

// Unsubscribe detaches the listener. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.c.unsubscribe(s.key, s.id)
	})
}

// Subscribe registers listener for key and fetches the key if it has no
// value yet or is stale. The listener is called outside the cache lock, never
// from within Subscribe itself.
func (c *Cache) Subscribe(key Key, loader Loader, listener Listener) (*Subscription, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	e := c.entryLocked(key, loader)
	if e.loader == nil {
		c.mu.Unlock()
		return nil, ErrNoLoader
	}
	c.nextSubID++
	id := c.nextSubID
	e.subs[id] = listener
	e.idleSince = time.Time{}

	switch {
	case e.fetching:
		c.stats.Deduplicated++
	case !e.hasValue:
		c.stats.Misses++
		c.startFetchLocked(e)
	case e.stale:
		c.stats.Hits++
		c.startFetchLocked(e)
	default:
		c.stats.Hits++
	}
	c.mu.Unlock()

	return &Subscription{c: c, key: key, id: id}, nil
}

func (c *Cache) unsubscribe(key Key, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return
	}
	delete(e.subs, id)
	if len(e.subs) == 0 {
		e.idleSince = c.now()
	}
}

// Subscribers returns the number of active subscriptions for key.
func (c *Cache) Subscribers(key Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return len(e.subs)
	}
	return 0
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = len(c.entries)
	return s
}

// Close cancels in-flight fetches and stops the janitor.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancel()
	c.mu.Unlock()

	if c.janitorDone != nil {
		<-c.janitorDone
	}
}

func (c *Cache) entryLocked(key Key, loader Loader) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{
			key:       key,
			subs:      make(map[uint64]Listener),
			idleSince: c.now(),
		}
		c.entries[key] = e
	}
	if loader != nil {
		e.loader = loader
	}
	return e
}

func (c *Cache) notificationLocked(e *entry) notification {
	if len(e.subs) == 0 {
		return notification{}
	}
	ls := make([]Listener, 0, len(e.subs))
	for _, l := range e.subs {
		if l != nil {
			ls = append(ls, l)
		}
	}
	return notification{listeners: ls, state: e.state()}
}

// startFetchLocked issues a new generation for e. Any fetch already in
// flight is cancelled and its result will be discarded.
func (c *Cache) startFetchLocked(e *entry) {
	if e.cancel != nil {
		e.cancel()
		c.stats.Superseded++
	}
	if !e.fetching {
		e.fetching = true
		e.done = make(chan struct{})
	}
	e.generation++
	gen := e.generation
	ctx, cancel := context.WithCancel(c.ctx)
	e.cancel = cancel
	c.stats.Fetches++

	go c.run(ctx, cancel, e, gen, e.loader)
}

func (c *Cache) run(ctx context.Context, cancel context.CancelFunc, e *entry, gen uint64, loader Loader) {
	v, err := c.load(ctx, loader)
	cancel()

	c.mu.Lock()
	if gen != e.generation {
		c.mu.Unlock()
		c.logger.Debug().Str("key", e.key.String()).Uint64("generation", gen).Msg("discarded superseded fetch")
		return
	}
	e.fetching = false
	e.cancel = nil
	if err != nil {
		e.err = err
		c.stats.Errors++
	} else {
		e.value = v
		e.hasValue = true
		e.err = nil
		e.stale = false
		e.updatedAt = c.now()
	}
	close(e.done)
	n := c.notificationLocked(e)
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn().Err(err).Str("key", e.key.String()).Msg("fetch failed")
	}
	n.fire()
}

func (c *Cache) load(ctx context.Context, loader Loader) (any, error) {
	if c.retries == 0 {
		return loader(ctx)
	}

	var v any
	backoff := retry.WithCappedDuration(maxRetryDelay, retry.NewExponential(c.retryBase))
	backoff = retry.WithMaxRetries(c.retries, backoff)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		v, err = loader(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}

func (c *Cache) janitor() {
	defer close(c.janitorDone)

	interval := c.gcTime / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

// collect removes entries idle for longer than the GC time.
func (c *Cache) collect() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if len(e.subs) > 0 || e.fetching || e.idleSince.IsZero() {
			continue
		}
		if now.Sub(e.idleSince) >= c.gcTime {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debug().Int("removed", removed).Msg("collected idle entries")
	}
	return removed
}

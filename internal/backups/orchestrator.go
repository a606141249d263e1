package backups

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/backupdash/internal/model"
	"github.com/edvin/backupdash/internal/notify"
	"github.com/edvin/backupdash/internal/querycache"
	"github.com/edvin/backupdash/internal/validate"
)

// ErrClosed is returned by every operation on a closed Orchestrator.
var ErrClosed = errors.New("backup orchestrator closed")

const DefaultMutationTimeout = 30 * time.Second

// State is a snapshot of the history view and mutation lifecycles.
type State struct {
	// Backups is nil until a page has ever been loaded.
	Backups    []model.Backup
	Pagination *model.Pagination

	IsLoading         bool
	IsPlaceholderData bool
	// Error is the last fetch error of the current page. It is cleared by
	// the next successful fetch.
	Error error

	Page   int
	Limit  int
	Search string

	IsCreating   bool
	IsScheduling bool
	IsUpdating   bool
	IsDisabling  bool
}

type Option func(*Orchestrator)

// WithPlaceholderData keeps the previous page visible while a newly selected
// page or search has not loaded yet. Enabled by default.
func WithPlaceholderData(enabled bool) Option {
	return func(o *Orchestrator) { o.placeholder = enabled }
}

// WithMutationTimeout bounds each backend call made by a mutation.
func WithMutationTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.mutationTimeout = d
		}
	}
}

// Orchestrator owns the history view's page and search, one live cache
// subscription for the selected page, and the four mutations.
type Orchestrator struct {
	cache  *querycache.Cache
	api    API
	sink   notify.Sink
	logger zerolog.Logger

	placeholder     bool
	mutationTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	page     int
	search   string
	key      querycache.Key
	sub      *querycache.Subscription
	previous *model.BackupPage
	pending  map[notify.Operation]int
	watchers map[uint64]func(State)
	nextID   uint64
	closed   bool

	changed    chan struct{}
	dispatched chan struct{}
	mutations  sync.WaitGroup
}

// New creates an Orchestrator showing page 1 with no search and subscribes
// to that page.
func New(cache *querycache.Cache, api API, sink notify.Sink, logger zerolog.Logger, opts ...Option) (*Orchestrator, error) {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		cache:           cache,
		api:             api,
		sink:            sink,
		logger:          logger.With().Str("component", "backup-orchestrator").Logger(),
		placeholder:     true,
		mutationTimeout: DefaultMutationTimeout,
		ctx:             ctx,
		cancel:          cancel,
		page:            1,
		pending:         make(map[notify.Operation]int),
		watchers:        make(map[uint64]func(State)),
		changed:         make(chan struct{}, 1),
		dispatched:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.sink == nil {
		o.sink = notify.NewLogSink(logger)
	}

	o.mu.Lock()
	err := o.resubscribeLocked()
	o.mu.Unlock()
	if err != nil {
		cancel()
		return nil, err
	}

	go o.dispatch()
	return o, nil
}

func (o *Orchestrator) params() model.ListBackupsParams {
	return model.ListBackupsParams{Page: o.page, Limit: model.DefaultPageSize, Search: o.search}
}

// resubscribeLocked moves the live subscription to the key of the current
// page and search. The value shown for the old key is kept as placeholder.
func (o *Orchestrator) resubscribeLocked() error {
	params := o.params()
	key := BackupsKey(params)
	if o.sub != nil && o.key == key {
		return nil
	}
	if o.sub != nil {
		if st := o.cache.Peek(o.key); st.HasValue {
			o.previous = st.Value.(*model.BackupPage)
		}
		o.sub.Unsubscribe()
		o.sub = nil
	}

	sub, err := o.cache.Subscribe(key, backupsLoader(o.api, params), func(querycache.State) {
		o.signal()
	})
	if err != nil {
		return err
	}
	o.key = key
	o.sub = sub
	o.logger.Debug().Str("key", key.String()).Msg("subscribed to history page")
	return nil
}

// State returns the current snapshot.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stateLocked()
}

func (o *Orchestrator) stateLocked() State {
	s := State{
		Page:         o.page,
		Limit:        model.DefaultPageSize,
		Search:       o.search,
		IsCreating:   o.pending[notify.OpCreateBackup] > 0,
		IsScheduling: o.pending[notify.OpCreateSchedule] > 0,
		IsUpdating:   o.pending[notify.OpUpdateSchedule] > 0,
		IsDisabling:  o.pending[notify.OpDisableSchedule] > 0,
	}

	cur := o.cache.Peek(o.key)
	s.Error = cur.Err
	switch {
	case cur.HasValue:
		page := cur.Value.(*model.BackupPage)
		s.Backups = page.Data
		s.Pagination = &page.Pagination
	case o.placeholder && o.previous != nil:
		s.Backups = o.previous.Data
		s.Pagination = &o.previous.Pagination
		s.IsPlaceholderData = true
	default:
		s.IsLoading = cur.IsFetching
	}
	return s
}

// SetPage selects a history page. Pages start at 1.
func (o *Orchestrator) SetPage(page int) error {
	if err := validate.Page(page); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	o.page = page
	if err := o.resubscribeLocked(); err != nil {
		return err
	}
	o.signal()
	return nil
}

// SetSearch filters the history. The selected page is kept.
func (o *Orchestrator) SetSearch(search string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	o.search = search
	if err := o.resubscribeLocked(); err != nil {
		return err
	}
	o.signal()
	return nil
}

// Refresh refetches the current page, superseding a fetch in flight.
func (o *Orchestrator) Refresh() {
	o.mu.Lock()
	key, closed := o.key, o.closed
	o.mu.Unlock()
	if !closed {
		o.cache.Refetch(key)
	}
}

// Watch calls fn with a fresh snapshot after every change, starting with the
// current state. Calls are serialized and never made while a lock is held,
// so fn may call back into the Orchestrator.
func (o *Orchestrator) Watch(fn func(State)) (cancel func()) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return func() {}
	}
	o.nextID++
	id := o.nextID
	o.watchers[id] = fn
	o.mu.Unlock()
	o.signal()

	return func() {
		o.mu.Lock()
		delete(o.watchers, id)
		o.mu.Unlock()
	}
}

// signal schedules a dispatch. Pending signals coalesce.
func (o *Orchestrator) signal() {
	select {
	case o.changed <- struct{}{}:
	default:
	}
}

func (o *Orchestrator) dispatch() {
	defer close(o.dispatched)
	for {
		select {
		case <-o.ctx.Done():
			return
		case <-o.changed:
		}

		o.mu.Lock()
		st := o.stateLocked()
		fns := make([]func(State), 0, len(o.watchers))
		for _, fn := range o.watchers {
			fns = append(fns, fn)
		}
		o.mu.Unlock()

		for _, fn := range fns {
			fn(st)
		}
	}
}

// Close drops the page subscription, waits for running mutations and stops
// watchers. Mutations still in flight are cancelled.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	if o.sub != nil {
		o.sub.Unsubscribe()
		o.sub = nil
	}
	o.watchers = make(map[uint64]func(State))
	o.mu.Unlock()

	o.cancel()
	o.mutations.Wait()
	<-o.dispatched
}

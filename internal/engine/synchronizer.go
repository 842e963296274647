package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/seedsindex/internal/index"
	"github.com/roach88/seedsindex/internal/ledger"
	"github.com/roach88/seedsindex/internal/record"
)

// DefaultBootstrapConcurrency bounds parallel Value calls during bootstrap.
const DefaultBootstrapConcurrency = 4

// Stats counts what the synchronizer has done since Start.
type Stats struct {
	Events    uint64 `json:"events"`    // live events received
	Processed uint64 `json:"processed"` // live events run through apply
	Applied   uint64 `json:"applied"`   // records upserted
	Removed   uint64 `json:"removed"`   // entries deleted
	Skipped   uint64 `json:"skipped"`   // fetch or decode failures
}

// Synchronizer mirrors the ledger into an index.Cache.
//
// Thread-safety model:
//   - Start: called once, blocks until LIVE or failure
//   - Shutdown, State, Stats, Cache: safe from any goroutine
//   - cache mutations from the ledger happen only on the run loop
//
// The Synchronizer owns the gateway and closes it on Shutdown.
type Synchronizer struct {
	gateway     ledger.Gateway
	cache       *index.Cache
	queue       *eventQueue
	concurrency int
	subRange    ledger.BlockRange

	state atomic.Int32

	mu     sync.Mutex
	sub    ledger.Subscription
	cancel context.CancelFunc
	wg     sync.WaitGroup

	ready    chan struct{}
	stopped  chan struct{}
	failed   chan struct{}
	errc     chan error
	fatal    error
	failOnce sync.Once
	stopOnce sync.Once

	events    atomic.Uint64
	processed atomic.Uint64
	applied   atomic.Uint64
	removed   atomic.Uint64
	skipped   atomic.Uint64
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithBootstrapConcurrency sets how many keys are fetched in parallel
// during bootstrap. Values below 1 mean sequential.
func WithBootstrapConcurrency(n int) Option {
	return func(s *Synchronizer) {
		if n < 1 {
			n = 1
		}
		s.concurrency = n
	}
}

// WithSubscribeRange sets the block range of the live subscription.
// Default: ledger.Latest. When a bounded range runs out the synchronizer
// stays LIVE and stops receiving updates; it does not report a drop.
func WithSubscribeRange(r ledger.BlockRange) Option {
	return func(s *Synchronizer) {
		s.subRange = r
	}
}

// WithCache makes the synchronizer fill c instead of a fresh cache.
func WithCache(c *index.Cache) Option {
	return func(s *Synchronizer) {
		s.cache = c
	}
}

// New creates an unstarted Synchronizer over gw.
func New(gw ledger.Gateway, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		gateway:     gw,
		queue:       newEventQueue(),
		concurrency: DefaultBootstrapConcurrency,
		subRange:    ledger.Latest,
		ready:       make(chan struct{}),
		stopped:     make(chan struct{}),
		failed:      make(chan struct{}),
		errc:        make(chan error, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = index.New()
	}
	return s
}

// Cache returns the cache this synchronizer fills.
func (s *Synchronizer) Cache() *index.Cache {
	return s.cache
}

// State returns the current lifecycle stage.
func (s *Synchronizer) State() State {
	return State(s.state.Load())
}

// Stats returns a snapshot of the counters.
func (s *Synchronizer) Stats() Stats {
	return Stats{
		Events:    s.events.Load(),
		Processed: s.processed.Load(),
		Applied:   s.applied.Load(),
		Removed:   s.removed.Load(),
		Skipped:   s.skipped.Load(),
	}
}

// Ready is closed once bootstrap has been fully applied.
func (s *Synchronizer) Ready() <-chan struct{} {
	return s.ready
}

// Err delivers at most one fatal error: the live subscription was lost.
func (s *Synchronizer) Err() <-chan error {
	return s.errc
}

// Start subscribes, bootstraps and blocks until the synchronizer is LIVE.
//
// On failure the instance is shut down and must be discarded.
// ctx bounds initialization only; the live stream runs until Shutdown.
func (s *Synchronizer) Start(ctx context.Context) error {
	if !s.transition(StateUnstarted, StateSubscribing) {
		if s.State() == StateShutdown {
			return ErrShutdown
		}
		return ErrAlreadyStarted
	}
	slog.Info("synchronizer starting", "state", StateSubscribing)

	if err := s.start(ctx); err != nil {
		slog.Error("synchronizer start failed", "error", err)
		if serr := s.Shutdown(); serr != nil {
			slog.Warn("shutdown after failed start", "error", serr)
		}
		return err
	}
	return nil
}

func (s *Synchronizer) start(ctx context.Context) error {
	sub, err := s.gateway.Subscribe(ctx, s.subRange)
	if err != nil {
		return NewLedgerUnavailableError("subscribe", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	s.mu.Lock()
	if s.State() == StateShutdown {
		s.mu.Unlock()
		cancel()
		sub.Unsubscribe()
		return ErrShutdown
	}
	s.sub = sub
	s.cancel = cancel
	s.wg.Add(2)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.forward(runCtx, sub)
	}()
	go func() {
		defer s.wg.Done()
		s.run(runCtx)
	}()

	if !s.transition(StateSubscribing, StateBootstrapping) {
		return ErrShutdown
	}
	slog.Info("subscribed to ledger updates", "state", StateBootstrapping)

	if err := s.bootstrap(ctx); err != nil {
		return err
	}

	select {
	case <-s.ready:
		return nil
	case <-s.failed:
		return s.fatal
	case <-s.stopped:
		return ErrShutdown
	case <-ctx.Done():
		return ctx.Err()
	}
}

// bootstrap enumerates all keys and enqueues each value, then the marker.
func (s *Synchronizer) bootstrap(ctx context.Context) error {
	keys, err := s.gateway.Keys(ctx)
	if err != nil {
		return NewLedgerUnavailableError("enumerate keys", err)
	}
	slog.Info("bootstrap started", "keys", len(keys), "concurrency", s.concurrency)

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, key := range keys {
		g.Go(func() error {
			s.fetch(ctx, key)
			return nil
		})
	}
	_ = g.Wait()

	if s.State() == StateShutdown {
		return ErrShutdown
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.queue.Enqueue(Event{Type: EventTypeBootstrapDone}) {
		return ErrShutdown
	}
	return nil
}

// fetch reads one key. Failures are logged and the key is skipped.
func (s *Synchronizer) fetch(ctx context.Context, key ledger.Key) {
	value, ok, err := s.gateway.Value(ctx, key)
	if err != nil {
		s.skipped.Add(1)
		slog.Warn("bootstrap fetch failed",
			"key", key.Hex(),
			"error", &SyncError{Code: ErrCodeFetchFailed, Message: "read value", Key: key.Hex(), Err: err},
		)
		return
	}
	if !ok {
		value = ""
	}
	if !s.queue.Enqueue(Event{Type: EventTypeBootstrap, Key: key, Value: value}) {
		slog.Debug("discarding bootstrap result after shutdown", "key", key.Hex())
	}
}

// forward moves live events from the subscription into the queue.
// It runs on a single goroutine, so ledger order is preserved.
func (s *Synchronizer) forward(ctx context.Context, sub ledger.Subscription) {
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				s.drop(errors.New("event stream closed"))
				return
			}
			if ev.Key == (ledger.Key{}) {
				slog.Warn("ignoring event without key", "block", ev.Block)
				continue
			}
			s.events.Add(1)
			if !s.queue.Enqueue(Event{Type: EventTypeLive, Key: ev.Key, Value: ev.Value, Block: ev.Block}) {
				return
			}

		case err := <-sub.Err():
			if errors.Is(err, ledger.ErrRangeComplete) {
				slog.Info("live subscription range complete", "state", s.State())
				return
			}
			s.drop(err)
			return

		case <-ctx.Done():
			return
		}
	}
}

func (s *Synchronizer) drop(cause error) {
	if s.State() == StateShutdown {
		return
	}
	s.failOnce.Do(func() {
		err := NewSubscriptionDroppedError(cause)
		s.fatal = err
		slog.Error("live subscription lost", "state", s.State(), "error", err)
		s.errc <- err
		close(s.failed)
	})
}

// run is the single-writer apply loop. It follows the shape of a classic
// event loop: drain what is queued, then wait for a signal or cancellation.
//
// ERROR HANDLING: a failing event is logged and the loop continues.
func (s *Synchronizer) run(ctx context.Context) {
	slog.Debug("apply loop starting")

	for {
		event, ok := s.queue.TryDequeue()
		if ok {
			if err := s.processEvent(event); err != nil {
				logEventError(event, err)
			}
			if event.Type == EventTypeLive {
				s.processed.Add(1)
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Debug("apply loop stopping: context cancelled")
			s.queue.Close()
			return

		case <-s.queue.Wait():
			// The signal channel closes with the queue, so a closed and
			// drained queue ends the loop. A stale signal just loops.
			if s.queue.Len() == 0 && s.queue.Closed() {
				slog.Debug("apply loop stopping: queue closed")
				return
			}
		}
	}
}

// processEvent routes an event to its handler.
// Called only from run.
func (s *Synchronizer) processEvent(event Event) error {
	if s.State() == StateShutdown {
		return nil
	}

	switch event.Type {
	case EventTypeLive, EventTypeBootstrap:
		return s.apply(event.Key, event.Value)

	case EventTypeBootstrapDone:
		if s.transition(StateBootstrapping, StateLive) {
			slog.Info("bootstrap complete",
				"state", StateLive,
				"records", s.cache.Len(),
				"skipped", s.skipped.Load(),
			)
			close(s.ready)
		}
		return nil

	default:
		return fmt.Errorf("unknown event type: %d", event.Type)
	}
}

// apply is the one rule for bootstrap reads and live events: an empty
// value removes the key, anything else overwrites it.
func (s *Synchronizer) apply(key ledger.Key, value string) error {
	id := key.Hex()

	if value == "" {
		if s.cache.Remove(id) {
			s.removed.Add(1)
			slog.Debug("record removed", "key", id)
		}
		return nil
	}

	r, err := record.Decode(value)
	if err != nil {
		s.skipped.Add(1)
		return &SyncError{Code: ErrCodeDecodeFailed, Message: "undecodable record", Key: id, Err: err}
	}

	s.cache.Upsert(id, r)
	s.applied.Add(1)
	slog.Debug("record applied", "key", id, "location", r.Location, "topics", len(r.Topics))
	return nil
}

// Shutdown cancels the subscription, stops the apply loop and closes the
// gateway. The cache keeps its last state but is no longer updated.
// Calling Shutdown more than once is a no-op.
func (s *Synchronizer) Shutdown() error {
	var err error
	s.stopOnce.Do(func() {
		prev := State(s.state.Swap(int32(StateShutdown)))
		slog.Info("synchronizer shutting down", "from", prev)
		close(s.stopped)

		s.mu.Lock()
		sub, cancel := s.sub, s.cancel
		s.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if sub != nil {
			sub.Unsubscribe()
		}
		s.queue.Close()
		s.wg.Wait()

		if cerr := s.gateway.Close(); cerr != nil {
			err = fmt.Errorf("close gateway: %w", cerr)
		}

		st := s.Stats()
		slog.Info("synchronizer stopped",
			"events", st.Events,
			"applied", st.Applied,
			"removed", st.Removed,
			"skipped", st.Skipped,
		)
	})
	return err
}

func (s *Synchronizer) transition(from, to State) bool {
	return s.state.CompareAndSwap(int32(from), int32(to))
}

// logEventError logs a failed event with enough context to find the entry
// on the ledger.
func logEventError(event Event, err error) {
	switch event.Type {
	case EventTypeLive:
		slog.Warn("live event skipped",
			"error", err,
			"key", event.Key.Hex(),
			"block", event.Block,
		)
	case EventTypeBootstrap:
		slog.Warn("bootstrap entry skipped",
			"error", err,
			"key", event.Key.Hex(),
		)
	default:
		slog.Error("event processing failed",
			"error", err,
			"event_type", event.Type,
		)
	}
}

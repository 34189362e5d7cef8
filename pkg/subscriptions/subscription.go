package subscriptions

import (
	"context"
	"sync"

	"task-sync-backend/pkg/database"
	"task-sync-backend/pkg/models"
)

// State tracks a subscription's lifecycle.
type State int

const (
	StateDetached State = iota
	StateAttaching
	StateAttached
	StateFailed
)

// channelBuffer bounds how far a slow consumer may fall behind before the
// oldest snapshot is dropped. Every snapshot is a full re-query, so dropping
// an old one loses nothing the next one does not carry.
const channelBuffer = 16

// Subscription keeps a live, tri-state view of one query. Attaching opens a
// change feed, runs the query, and re-runs it whenever a matching change
// event arrives. Consumers read Result values: Loading first, then a
// Success or Error per reconciliation.
type Subscription[T any] struct {
	db         database.DatabaseInterface
	collection string
	query      func(key string) (T, error)

	mu     sync.Mutex
	state  State
	key    string
	ch     chan models.Result[T]
	cancel context.CancelFunc
	gen    uint64
}

// NewSubscription creates a detached subscription over one query. The
// collection names the change events that invalidate the query's result.
func NewSubscription[T any](db database.DatabaseInterface, collection string, query func(key string) (T, error)) *Subscription[T] {
	return &Subscription[T]{
		db:         db,
		collection: collection,
		query:      query,
	}
}

// CurrentState returns the lifecycle state.
func (s *Subscription[T]) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Attach starts (or re-targets) the subscription on a key and returns the
// channel carrying its results. Attaching again with the same key while
// live is a no-op returning the existing channel. Attaching with a new key
// stops the old stream first; nothing stale is delivered on the new
// channel. After a failure, Attach starts a fresh attempt.
func (s *Subscription[T]) Attach(ctx context.Context, key string) <-chan models.Result[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if (s.state == StateAttaching || s.state == StateAttached) && s.key == key {
		return s.ch
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	s.gen++
	gen := s.gen
	ch := make(chan models.Result[T], channelBuffer)
	// The first result is always Loading, delivered before any query runs.
	ch <- models.Loading[T]()

	runCtx, cancel := context.WithCancel(ctx)
	s.state = StateAttaching
	s.key = key
	s.ch = ch
	s.cancel = cancel

	go s.run(runCtx, gen, key, ch)
	return ch
}

// Detach stops the subscription. The result channel closes once the stream
// goroutine exits. Detaching a detached subscription is a no-op.
func (s *Subscription[T]) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.state = StateDetached
	s.ch = nil
}

// run owns the channel: it alone sends after the initial Loading, and it
// closes the channel on exit.
func (s *Subscription[T]) run(ctx context.Context, gen uint64, key string, ch chan models.Result[T]) {
	defer close(ch)

	// Listen before the first query so no change slips between the
	// snapshot and the feed.
	events, err := s.db.Listen(ctx)
	if err != nil {
		s.fail(gen, ch, err)
		return
	}

	if !s.reconcile(gen, key, ch) {
		return
	}
	s.setState(gen, StateAttached)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !ev.Matches(s.collection, key) {
				continue
			}
			if !s.reconcile(gen, key, ch) {
				return
			}
		}
	}
}

// reconcile runs the query once and publishes the outcome. Returns false
// when the stream should stop (stale generation or query failure).
func (s *Subscription[T]) reconcile(gen uint64, key string, ch chan models.Result[T]) bool {
	value, err := s.query(key)
	if err != nil {
		s.fail(gen, ch, err)
		return false
	}
	return s.publish(gen, ch, models.Success(value))
}

func (s *Subscription[T]) fail(gen uint64, ch chan models.Result[T], err error) {
	if s.publish(gen, ch, models.Failure[T](err)) {
		s.setState(gen, StateFailed)
	}
}

// publish delivers a result unless the stream has been superseded. A full
// buffer drops the oldest pending result to make room.
func (s *Subscription[T]) publish(gen uint64, ch chan models.Result[T], r models.Result[T]) bool {
	s.mu.Lock()
	current := s.gen == gen
	s.mu.Unlock()
	if !current {
		return false
	}

	for {
		select {
		case ch <- r:
			return true
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

func (s *Subscription[T]) setState(gen uint64, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.state = state
	}
}

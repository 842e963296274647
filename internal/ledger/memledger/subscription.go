package memledger

import (
	"sync"

	"github.com/roach88/seedsindex/internal/ledger"
)

// subscription buffers events without bound so writers never block on a
// slow consumer. pump moves them onto the delivery channel in order.
type subscription struct {
	owner *Ledger

	mu      sync.Mutex
	backlog []ledger.Event
	failed  error
	signal  chan struct{}

	events chan ledger.Event
	errc   chan error
	done   chan struct{}
	once   sync.Once
}

func newSubscription(owner *Ledger) *subscription {
	return &subscription{
		owner:  owner,
		signal: make(chan struct{}, 1),
		events: make(chan ledger.Event),
		errc:   make(chan error, 1),
		done:   make(chan struct{}),
	}
}

func (s *subscription) Events() <-chan ledger.Event { return s.events }

func (s *subscription) Err() <-chan error { return s.errc }

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		s.owner.remove(s)
	})
}

func (s *subscription) deliver(ev ledger.Event) {
	s.mu.Lock()
	s.backlog = append(s.backlog, ev)
	s.mu.Unlock()
	s.wake()
}

// fail reports err after every event already queued has been delivered.
func (s *subscription) fail(err error) {
	s.mu.Lock()
	s.failed = err
	s.mu.Unlock()
	s.wake()
}

func (s *subscription) wake() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscription) pump() {
	for {
		s.mu.Lock()
		if len(s.backlog) == 0 {
			err := s.failed
			s.mu.Unlock()
			if err != nil {
				s.errc <- err
				return
			}
			select {
			case <-s.signal:
				continue
			case <-s.done:
				return
			}
		}
		ev := s.backlog[0]
		s.backlog[0] = ledger.Event{}
		s.backlog = s.backlog[1:]
		s.mu.Unlock()

		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/seedsindex/internal/ledger"
)

// pollBatch caps rows read per poll so one busy interval can't stall a tick.
const pollBatch = 500

type subscription struct {
	id     string
	l      *Ledger
	after  uint64  // last delivered seq
	to     *uint64 // inclusive upper bound, nil for open-ended
	events chan ledger.Event
	errc   chan error
	done   chan struct{}
	once   sync.Once
}

// Subscribe polls the update log. A nil r.From starts after the current
// head, so only updates written after this call are delivered.
func (l *Ledger) Subscribe(ctx context.Context, r ledger.BlockRange) (ledger.Subscription, error) {
	var after uint64
	if r.From != nil {
		if *r.From > 0 {
			after = *r.From - 1
		}
	} else {
		head, err := l.head(ctx)
		if err != nil {
			return nil, fmt.Errorf("subscribe: %w", err)
		}
		after = head
	}

	s := &subscription{
		id:     uuid.NewString(),
		l:      l,
		after:  after,
		to:     r.To,
		events: make(chan ledger.Event),
		errc:   make(chan error, 1),
		done:   make(chan struct{}),
	}
	slog.Debug("sqlite subscription opened", "subscription_id", s.id, "after_seq", after)
	go s.run(context.WithoutCancel(ctx))
	return s, nil
}

func (s *subscription) Events() <-chan ledger.Event { return s.events }

func (s *subscription) Err() <-chan error { return s.errc }

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		slog.Debug("sqlite subscription closed", "subscription_id", s.id)
	})
}

func (s *subscription) run(ctx context.Context) {
	ticker := time.NewTicker(s.l.pollInterval)
	defer ticker.Stop()

	for {
		if err := s.poll(ctx); err != nil {
			select {
			case <-s.done:
			default:
				s.errc <- err
			}
			return
		}

		select {
		case <-s.done:
			return
		case <-ticker.C:
		}
	}
}

// poll delivers every update after s.after. It returns ErrRangeComplete
// once the bounded range has been delivered.
func (s *subscription) poll(ctx context.Context) error {
	for {
		rows, err := s.l.db.QueryContext(ctx,
			`SELECT seq, key, value FROM updates WHERE seq > ? ORDER BY seq ASC LIMIT ?`,
			s.after, pollBatch,
		)
		if err != nil {
			return fmt.Errorf("poll updates: %w", err)
		}

		batch, err := scanEvents(rows)
		if err != nil {
			return fmt.Errorf("poll updates: %w", err)
		}

		for _, ev := range batch {
			if s.to != nil && ev.Block > *s.to {
				return ledger.ErrRangeComplete
			}
			select {
			case s.events <- ev:
				s.after = ev.Block
			case <-s.done:
				return nil
			}
		}

		if s.to != nil && s.after >= *s.to {
			return ledger.ErrRangeComplete
		}
		if len(batch) < pollBatch {
			return nil
		}
	}
}

func scanEvents(rows *sql.Rows) ([]ledger.Event, error) {
	defer rows.Close()

	var out []ledger.Event
	for rows.Next() {
		var seq int64
		var rawKey, v string
		if err := rows.Scan(&seq, &rawKey, &v); err != nil {
			return nil, err
		}
		k, err := ledger.ParseKey(rawKey)
		if err != nil {
			return nil, err
		}
		out = append(out, ledger.Event{Key: k, Value: v, Block: uint64(seq)})
	}
	return out, rows.Err()
}

package evm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"

	"github.com/roach88/seedsindex/internal/ledger"
)

type subscription struct {
	g       *Gateway
	bounded bool
	logs    chan types.Log
	sub     event.Subscription
	events  chan ledger.Event
	errc    chan error
	done    chan struct{}
	once    sync.Once
}

// Subscribe streams IndexUpdate events. Open-ended ranges use WatchLogs;
// bounded ranges replay history with FilterLogs and then complete.
func (g *Gateway) Subscribe(ctx context.Context, r ledger.BlockRange) (ledger.Subscription, error) {
	var (
		logs chan types.Log
		sub  event.Subscription
		err  error
	)
	if r.To == nil {
		logs, sub, err = g.contract.WatchLogs(&bind.WatchOpts{Start: r.From, Context: ctx}, eventIndexUpdate)
	} else {
		var start uint64
		if r.From != nil {
			start = *r.From
		}
		logs, sub, err = g.contract.FilterLogs(&bind.FilterOpts{Start: start, End: r.To, Context: ctx}, eventIndexUpdate)
	}
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", eventIndexUpdate, err)
	}

	s := &subscription{
		g:       g,
		bounded: r.To != nil,
		logs:    logs,
		sub:     sub,
		events:  make(chan ledger.Event),
		errc:    make(chan error, 1),
		done:    make(chan struct{}),
	}
	go s.run()
	return s, nil
}

func (s *subscription) Events() <-chan ledger.Event { return s.events }

func (s *subscription) Err() <-chan error { return s.errc }

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		s.sub.Unsubscribe()
	})
}

func (s *subscription) run() {
	for {
		select {
		case lg := <-s.logs:
			if !s.forward(lg) {
				return
			}
		case err, ok := <-s.sub.Err():
			if !ok || err == nil {
				if !s.bounded {
					return
				}
				// FilterLogs finished sending; flush what is buffered.
				if !s.drain() {
					return
				}
				err = ledger.ErrRangeComplete
			}
			select {
			case <-s.done:
			default:
				s.errc <- err
			}
			return
		case <-s.done:
			return
		}
	}
}

func (s *subscription) drain() bool {
	for {
		select {
		case lg := <-s.logs:
			if !s.forward(lg) {
				return false
			}
		default:
			return true
		}
	}
}

// forward delivers one log. It returns false once unsubscribed.
func (s *subscription) forward(lg types.Log) bool {
	if lg.Removed {
		slog.Warn("ignoring log removed by reorg", "block", lg.BlockNumber, "tx", lg.TxHash.Hex())
		return true
	}
	ev, err := decodeLog(s.g.abi, lg)
	if err != nil {
		slog.Warn("ignoring undecodable log", "block", lg.BlockNumber, "error", err)
		return true
	}
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

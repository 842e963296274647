package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seedsindex/internal/ledger"
)

func keyN(n int) ledger.Key {
	var k ledger.Key
	k[30] = byte(n >> 8)
	k[31] = byte(n)
	return k
}

func TestEventQueue_EnqueueDequeue(t *testing.T) {
	q := newEventQueue()

	ok := q.Enqueue(Event{Type: EventTypeLive, Key: keyN(1), Value: "v"})
	require.True(t, ok, "enqueue should succeed")

	got, ok := q.TryDequeue()
	require.True(t, ok, "dequeue should succeed")
	assert.Equal(t, EventTypeLive, got.Type)
	assert.Equal(t, keyN(1), got.Key)
	assert.Equal(t, "v", got.Value)
}

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()

	for i := 1; i <= 3; i++ {
		q.Enqueue(Event{Type: EventTypeBootstrap, Key: keyN(i)})
	}

	for i := 1; i <= 3; i++ {
		e, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, keyN(i), e.Key)
	}
}

func TestEventQueue_TryDequeue_Empty(t *testing.T) {
	q := newEventQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestEventQueue_Wait_SignalsOnEnqueue(t *testing.T) {
	q := newEventQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(Event{Type: EventTypeLive, Key: keyN(7)})
	}()

	select {
	case <-q.Wait():
		e, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, keyN(7), e.Key)
	case <-time.After(time.Second):
		t.Fatal("wait was not signalled")
	}
}

func TestEventQueue_Close_WakesWaiters(t *testing.T) {
	q := newEventQueue()

	done := make(chan struct{})
	go func() {
		<-q.Wait()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("close did not wake waiter")
	}
	assert.True(t, q.Closed())
}

func TestEventQueue_Close_Idempotent(t *testing.T) {
	q := newEventQueue()
	q.Close()
	assert.NotPanics(t, q.Close)
}

func TestEventQueue_Enqueue_AfterClose(t *testing.T) {
	q := newEventQueue()
	q.Close()

	ok := q.Enqueue(Event{Type: EventTypeLive, Key: keyN(1)})
	assert.False(t, ok, "enqueue after close should return false")
}

func TestEventQueue_Len(t *testing.T) {
	q := newEventQueue()

	assert.Equal(t, 0, q.Len())

	q.Enqueue(Event{Type: EventTypeLive, Key: keyN(1)})
	assert.Equal(t, 1, q.Len())

	q.Enqueue(Event{Type: EventTypeLive, Key: keyN(2)})
	assert.Equal(t, 2, q.Len())

	q.TryDequeue()
	assert.Equal(t, 1, q.Len())

	q.TryDequeue()
	assert.Equal(t, 0, q.Len())
}

func TestEventQueue_ThreadSafe(t *testing.T) {
	q := newEventQueue()

	const producers = 10
	const eventsPerProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(producerID int) {
			defer wg.Done()
			for i := 0; i < eventsPerProducer; i++ {
				q.Enqueue(Event{Type: EventTypeBootstrap, Key: keyN(producerID*1000 + i)})
			}
		}(p)
	}

	received := 0
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		for received < producers*eventsPerProducer {
			if _, ok := q.TryDequeue(); !ok {
				time.Sleep(time.Millisecond)
				continue
			}
			received++
		}
	}()

	wg.Wait()

	select {
	case <-consumerDone:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer timeout")
	}
	assert.Equal(t, producers*eventsPerProducer, received)
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "live", EventTypeLive.String())
	assert.Equal(t, "bootstrap", EventTypeBootstrap.String())
	assert.Equal(t, "bootstrap_done", EventTypeBootstrapDone.String())
	assert.Equal(t, "unknown", EventType(0).String())
}

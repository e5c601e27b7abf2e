package push

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/equipdesk/equipdesk/internal/domain"
	"github.com/equipdesk/equipdesk/internal/events"
)

// snapshotSource is a mutable backing result set with a fetch counter.
type snapshotSource struct {
	mu      sync.Mutex
	tickets []domain.Ticket
	fetches atomic.Int64
}

func (s *snapshotSource) set(tickets []domain.Ticket) {
	s.mu.Lock()
	s.tickets = tickets
	s.mu.Unlock()
}

func (s *snapshotSource) fetch(ctx context.Context) ([]domain.Ticket, error) {
	s.fetches.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Ticket{}, s.tickets...), nil
}

type collector struct {
	mu        sync.Mutex
	snapshots [][]domain.Ticket
}

func (c *collector) onChange(snapshot []domain.Ticket) {
	c.mu.Lock()
	c.snapshots = append(c.snapshots, snapshot)
	c.mu.Unlock()
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.snapshots)
}

func (c *collector) last() []domain.Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.snapshots) == 0 {
		return nil
	}
	return c.snapshots[len(c.snapshots)-1]
}

func ticketEvent(ticketID string) events.Event {
	return events.Event{Type: events.EventTicketAssigned, TicketID: ticketID}
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	hub := NewHub(zap.NewNop())
	defer hub.Close()

	source := &snapshotSource{}
	source.set([]domain.Ticket{{ID: "t1", TicketNumber: 1}})

	col := &collector{}
	sub := hub.Subscribe(QuerySpec{Key: "tickets:all", Fetch: source.fetch}, col.onChange)
	defer sub.Unsubscribe()

	require.Eventually(t, func() bool { return col.count() >= 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "t1", col.last()[0].ID)
}

func TestDispatchRefetchesAndDeliversFullSet(t *testing.T) {
	hub := NewHub(zap.NewNop())
	defer hub.Close()

	source := &snapshotSource{}
	source.set([]domain.Ticket{{ID: "t1"}})

	col := &collector{}
	sub := hub.Subscribe(QuerySpec{
		Key:     "tickets:open",
		Matches: func(e events.Event) bool { return true },
		Fetch:   source.fetch,
	}, col.onChange)
	defer sub.Unsubscribe()

	require.Eventually(t, func() bool { return col.count() >= 1 }, time.Second, 5*time.Millisecond)

	source.set([]domain.Ticket{{ID: "t1"}, {ID: "t2"}})
	hub.Dispatch(context.Background(), ticketEvent("t2"))

	require.Eventually(t, func() bool { return len(col.last()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestSameKeySharesOneChannel(t *testing.T) {
	hub := NewHub(zap.NewNop())
	defer hub.Close()

	source := &snapshotSource{}
	source.set([]domain.Ticket{{ID: "t1"}})
	spec := QuerySpec{
		Key:     "tickets:tech:j.lopez",
		Matches: func(e events.Event) bool { return true },
		Fetch:   source.fetch,
	}

	a, b := &collector{}, &collector{}
	subA := hub.Subscribe(spec, a.onChange)
	defer subA.Unsubscribe()
	subB := hub.Subscribe(spec, b.onChange)
	defer subB.Unsubscribe()

	require.Eventually(t, func() bool { return a.count() >= 1 && b.count() >= 1 }, time.Second, 5*time.Millisecond)

	// Let any pending initial refetches drain before measuring.
	time.Sleep(50 * time.Millisecond)
	before := source.fetches.Load()
	aBefore, bBefore := a.count(), b.count()

	hub.Dispatch(context.Background(), ticketEvent("t1"))
	require.Eventually(t, func() bool { return a.count() > aBefore && b.count() > bBefore }, time.Second, 5*time.Millisecond)

	// One shared refetch serves both subscribers.
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, before+1, source.fetches.Load())
}

func TestUnmatchedEventDoesNotRefetch(t *testing.T) {
	hub := NewHub(zap.NewNop())
	defer hub.Close()

	source := &snapshotSource{}
	col := &collector{}
	sub := hub.Subscribe(QuerySpec{
		Key:     "ticket:t1",
		Matches: func(e events.Event) bool { return e.TicketID == "t1" },
		Fetch:   source.fetch,
	}, col.onChange)
	defer sub.Unsubscribe()

	require.Eventually(t, func() bool { return source.fetches.Load() >= 1 }, time.Second, 5*time.Millisecond)
	before := source.fetches.Load()

	hub.Dispatch(context.Background(), ticketEvent("other"))
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, before, source.fetches.Load())
}

func TestUnsubscribeIsIdempotentAndStopsDelivery(t *testing.T) {
	hub := NewHub(zap.NewNop())

	source := &snapshotSource{}
	source.set([]domain.Ticket{{ID: "t1"}})
	col := &collector{}
	sub := hub.Subscribe(QuerySpec{
		Key:     "tickets:all",
		Matches: func(e events.Event) bool { return true },
		Fetch:   source.fetch,
	}, col.onChange)

	require.Eventually(t, func() bool { return col.count() >= 1 }, time.Second, 5*time.Millisecond)

	sub.Unsubscribe()
	sub.Unsubscribe() // second call is a no-op

	delivered := col.count()
	hub.Dispatch(context.Background(), ticketEvent("t1"))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, delivered, col.count())
}

func TestUnsubscribeRacingDeliveries(t *testing.T) {
	hub := NewHub(zap.NewNop())
	defer hub.Close()

	source := &snapshotSource{}
	source.set([]domain.Ticket{{ID: "t1"}})

	// Churn subscriptions while dispatching; nothing should panic or deliver
	// to a cancelled handle after consume stops.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			col := &collector{}
			sub := hub.Subscribe(QuerySpec{
				Key:     "tickets:all",
				Matches: func(e events.Event) bool { return true },
				Fetch:   source.fetch,
			}, col.onChange)
			hub.Dispatch(context.Background(), ticketEvent("t1"))
			sub.Unsubscribe()
		}()
	}
	wg.Wait()
}

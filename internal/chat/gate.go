// Package chat derives per-ticket chat availability from the push stream.
package chat

import (
	"context"
	"sync"

	"github.com/equipdesk/equipdesk/internal/domain"
	"github.com/equipdesk/equipdesk/internal/events"
	"github.com/equipdesk/equipdesk/internal/push"
)

// IsOpen reports whether the ticket accepts chat messages right now. Callers
// must re-check at submission time, not only at render time.
func IsOpen(t *domain.Ticket) bool {
	return t != nil && t.ChatOpen()
}

// Gate observes one ticket over the push stream and tracks whether its chat
// is open. The first observed open-to-closed transition fires the notify
// callback once; it does not re-fire while the ticket stays closed.
type Gate struct {
	mu     sync.Mutex
	open   bool
	seen   bool
	notify func()
	sub    *push.Subscription
}

// TicketQuery builds the single-ticket query spec a gate subscribes to.
func TicketQuery(ticketID string, fetch func(ctx context.Context) (*domain.Ticket, error)) push.QuerySpec {
	return push.QuerySpec{
		Key: "ticket:" + ticketID,
		Matches: func(event events.Event) bool {
			return event.TicketID == ticketID
		},
		Fetch: func(ctx context.Context) ([]domain.Ticket, error) {
			ticket, err := fetch(ctx)
			if err != nil {
				return nil, err
			}
			if ticket == nil {
				return nil, nil
			}
			return []domain.Ticket{*ticket}, nil
		},
	}
}

// NewGate subscribes to the ticket's push channel. notify may be nil.
func NewGate(hub *push.Hub, spec push.QuerySpec, notify func()) *Gate {
	g := &Gate{notify: notify}
	g.sub = hub.Subscribe(spec, g.observe)
	return g
}

func (g *Gate) observe(snapshot []domain.Ticket) {
	var ticket *domain.Ticket
	if len(snapshot) > 0 {
		ticket = &snapshot[0]
	}
	nowOpen := IsOpen(ticket)

	g.mu.Lock()
	wasOpen := g.open
	g.open = nowOpen
	g.seen = true
	fire := wasOpen && !nowOpen && g.notify != nil
	notify := g.notify
	g.mu.Unlock()

	if fire {
		notify()
	}
}

// Open reports the last observed chat availability.
func (g *Gate) Open() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

// Ready reports whether at least one snapshot has arrived.
func (g *Gate) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seen
}

// Close cancels the underlying subscription. Idempotent.
func (g *Gate) Close() {
	g.sub.Unsubscribe()
}

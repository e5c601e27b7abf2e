// Package push maintains live subscriptions against ticket queries and fans
// change notifications out to local consumers. Delivery is snapshot-replace:
// subscribers receive the full current result set on every relevant change,
// never a diff.
package push

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/equipdesk/equipdesk/internal/domain"
	"github.com/equipdesk/equipdesk/internal/events"
)

// QuerySpec describes one logical query shape. Matches decides whether an
// event may have changed the result set; Fetch loads the full current set.
type QuerySpec struct {
	Key     string
	Matches func(events.Event) bool
	Fetch   func(ctx context.Context) ([]domain.Ticket, error)
}

// Subscription is a live handle on one query. It must be cancelled exactly
// once per Subscribe; extra Unsubscribe calls are no-ops.
type Subscription struct {
	hub  *Hub
	key  string
	id   int64
	snap chan []domain.Ticket
	done chan struct{}
	once sync.Once
}

// Unsubscribe detaches the consumer. Safe to call from teardown paths that
// race an in-flight delivery: the consumer loop stops before any further
// callback runs.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		s.hub.remove(s.key, s.id)
	})
}

// publish hands a snapshot to the subscriber, conflating when the consumer
// lags: only the newest result set matters.
func (s *Subscription) publish(snapshot []domain.Ticket) {
	for {
		select {
		case <-s.done:
			return
		case s.snap <- snapshot:
			return
		default:
		}
		select {
		case <-s.snap:
		default:
		}
	}
}

func (s *Subscription) consume(onChange func([]domain.Ticket), hook func()) {
	for {
		select {
		case <-s.done:
			return
		case snapshot := <-s.snap:
			onChange(snapshot)
			if hook != nil {
				hook()
			}
		}
	}
}

// channel is the shared fetch loop behind every subscriber of one query key.
type channel struct {
	spec   QuerySpec
	subs   map[int64]*Subscription
	kick   chan struct{}
	stop   chan struct{}
	nextID int64
}

// Hub owns one channel per distinct query key in use.
type Hub struct {
	mu         sync.Mutex
	channels   map[string]*channel
	logger     *zap.Logger
	onDelivery func()
}

// Option configures optional hub behavior.
type Option func(*Hub)

// WithDeliveryHook observes every snapshot handed to a subscriber.
func WithDeliveryHook(hook func()) Option {
	return func(h *Hub) { h.onDelivery = hook }
}

// NewHub builds an empty hub.
func NewHub(logger *zap.Logger, opts ...Option) *Hub {
	h := &Hub{
		channels: make(map[string]*channel),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe attaches onChange to the query. Consumers of the same key share
// one underlying channel; the first subscriber's spec wins. An initial
// snapshot is fetched and delivered asynchronously.
func (h *Hub) Subscribe(spec QuerySpec, onChange func([]domain.Ticket)) *Subscription {
	h.mu.Lock()
	ch, ok := h.channels[spec.Key]
	if !ok {
		ch = &channel{
			spec: spec,
			subs: make(map[int64]*Subscription),
			kick: make(chan struct{}, 1),
			stop: make(chan struct{}),
		}
		h.channels[spec.Key] = ch
		go h.run(ch)
	}
	ch.nextID++
	sub := &Subscription{
		hub:  h,
		key:  spec.Key,
		id:   ch.nextID,
		snap: make(chan []domain.Ticket, 1),
		done: make(chan struct{}),
	}
	ch.subs[sub.id] = sub
	h.mu.Unlock()

	go sub.consume(onChange, h.onDelivery)
	ch.signal()
	return sub
}

// Dispatch routes a committed change event to every channel whose query it
// may affect. Each affected channel refetches its full result set.
func (h *Hub) Dispatch(ctx context.Context, event events.Event) {
	h.mu.Lock()
	var affected []*channel
	for _, ch := range h.channels {
		if ch.spec.Matches == nil || ch.spec.Matches(event) {
			affected = append(affected, ch)
		}
	}
	h.mu.Unlock()

	for _, ch := range affected {
		ch.signal()
	}
}

// Bind subscribes the hub to every ticket event on the dispatcher.
func (h *Hub) Bind(dispatcher events.Dispatcher) {
	for _, eventType := range events.TicketEvents() {
		dispatcher.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
			h.Dispatch(ctx, event)
			return nil
		})
	}
}

// Close stops every channel. Outstanding subscriptions become inert.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, ch := range h.channels {
		close(ch.stop)
		delete(h.channels, key)
	}
}

func (ch *channel) signal() {
	select {
	case ch.kick <- struct{}{}:
	default:
	}
}

// run is the single fetch loop for one query key. Refetches are serialized,
// so per-key deliveries preserve source order; nothing is guaranteed across
// distinct keys.
func (h *Hub) run(ch *channel) {
	for {
		select {
		case <-ch.stop:
			return
		case <-ch.kick:
		}

		snapshot, err := ch.spec.Fetch(context.Background())
		if err != nil {
			if h.logger != nil {
				h.logger.Warn("subscription refetch failed",
					zap.String("query", ch.spec.Key), zap.Error(err))
			}
			continue
		}

		h.mu.Lock()
		subs := make([]*Subscription, 0, len(ch.subs))
		for _, sub := range ch.subs {
			subs = append(subs, sub)
		}
		h.mu.Unlock()

		for _, sub := range subs {
			sub.publish(snapshot)
		}
	}
}

func (h *Hub) remove(key string, id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch, ok := h.channels[key]
	if !ok {
		return
	}
	delete(ch.subs, id)
	if len(ch.subs) == 0 {
		close(ch.stop)
		delete(h.channels, key)
	}
}

package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/equipdesk/equipdesk/internal/auth"
	"github.com/equipdesk/equipdesk/internal/chat"
	"github.com/equipdesk/equipdesk/internal/domain"
	"github.com/equipdesk/equipdesk/internal/events"
	"github.com/equipdesk/equipdesk/internal/push"
	apperrors "github.com/equipdesk/equipdesk/pkg/util"
)

type chatFixture struct {
	tickets    *memTicketRepo
	messages   *memChatRepo
	ticketSvc  *TicketService
	chatSvc    *ChatService
	dispatcher events.Dispatcher
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	tickets := newMemTicketRepo()
	messages := newMemChatRepo(tickets)
	technicians := newMemProfileRepo(domain.RoleTechnician,
		&domain.Profile{ID: "tech-1", FirstName: "J.", LastName: "Lopez", Email: "jlopez@acme.test"})
	dispatcher := events.NewInMemoryDispatcher()

	return &chatFixture{
		tickets:  tickets,
		messages: messages,
		ticketSvc: NewTicketService(TicketServiceDeps{
			Tickets:     tickets,
			Technicians: technicians,
			Dispatcher:  dispatcher,
			Logger:      zap.NewNop(),
		}),
		chatSvc: NewChatService(ChatServiceDeps{
			Tickets:    tickets,
			Messages:   messages,
			Dispatcher: dispatcher,
			Logger:     zap.NewNop(),
		}),
		dispatcher: dispatcher,
	}
}

func (f *chatFixture) assignedTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket := createOpenTicket(t, f.ticketSvc)
	assigned, err := f.ticketSvc.Assign(context.Background(), adminSess, ticket.ID, "jlopez@acme.test", domain.TicketPriorityHigh)
	require.NoError(t, err)
	return assigned
}

func TestChatClosedUntilAssignment(t *testing.T) {
	f := newChatFixture(t)
	ticket := createOpenTicket(t, f.ticketSvc)

	_, err := f.chatSvc.Post(context.Background(), employeeSess, ticket.ID, "anyone there?")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "CHAT_CLOSED"))
}

func TestChatOpenForParticipantsAfterAssignment(t *testing.T) {
	f := newChatFixture(t)
	ticket := f.assignedTicket(t)

	msg, err := f.chatSvc.Post(context.Background(), employeeSess, ticket.ID, "it jams on page two")
	require.NoError(t, err)
	assert.Equal(t, "maria@acme.test", msg.SenderEmail)
	assert.Equal(t, "Maria Soto", msg.SenderName)

	_, err = f.chatSvc.Post(context.Background(), techSess, ticket.ID, "on my way")
	require.NoError(t, err)

	thread, err := f.chatSvc.List(context.Background(), employeeSess, ticket.ID)
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, "it jams on page two", thread[0].Body)
	assert.Equal(t, "on my way", thread[1].Body)
}

func TestChatHiddenFromNonParticipants(t *testing.T) {
	f := newChatFixture(t)
	ticket := f.assignedTicket(t)

	stranger := &auth.Session{Email: "pedro@acme.test", Role: domain.RoleEmployee}
	_, err := f.chatSvc.Post(context.Background(), stranger, ticket.ID, "hello")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	otherTech := &auth.Session{Email: "other@acme.test", Role: domain.RoleTechnician}
	_, err = f.chatSvc.List(context.Background(), otherTech, ticket.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestChatRejectsMessageAfterResolve(t *testing.T) {
	f := newChatFixture(t)
	ticket := f.assignedTicket(t)

	_, err := f.chatSvc.Post(context.Background(), employeeSess, ticket.ID, "still broken")
	require.NoError(t, err)

	_, err = f.ticketSvc.Resolve(context.Background(), techSess, ticket.ID)
	require.NoError(t, err)

	_, err = f.chatSvc.Post(context.Background(), employeeSess, ticket.ID, "wait, one more thing")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "CHAT_CLOSED"))

	// The thread stays readable after chat closes.
	thread, err := f.chatSvc.List(context.Background(), employeeSess, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, thread, 1)
}

func TestChatMessageRacingResolveIsRejected(t *testing.T) {
	f := newChatFixture(t)
	ticket := f.assignedTicket(t)

	// The resolve lands between the openness pre-check and the append; the
	// store-side check must still reject the message.
	f.messages.beforeAppend = func() {
		f.tickets.resolveNow(ticket.ID)
	}

	_, err := f.chatSvc.Post(context.Background(), employeeSess, ticket.ID, "sneaking in")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "CHAT_CLOSED"))

	thread, err := f.chatSvc.List(context.Background(), employeeSess, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, thread)
}

func TestResolveFiresChatClosedNoticeExactlyOnce(t *testing.T) {
	f := newChatFixture(t)
	ticket := f.assignedTicket(t)

	hub := push.NewHub(zap.NewNop())
	hub.Bind(f.dispatcher)
	defer hub.Close()

	var notices int32
	spec := chat.TicketQuery(ticket.ID, func(ctx context.Context) (*domain.Ticket, error) {
		return f.tickets.GetByID(ctx, ticket.ID)
	})
	gate := chat.NewGate(hub, spec, func() {
		atomic.AddInt32(&notices, 1)
	})
	defer gate.Close()

	require.Eventually(t, gate.Open, time.Second, 5*time.Millisecond)

	_, err := f.ticketSvc.Resolve(context.Background(), techSess, ticket.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&notices) == 1
	}, time.Second, 5*time.Millisecond)

	// Later deliveries of the still-closed ticket never re-fire the notice.
	for i := 0; i < 5; i++ {
		f.dispatcher.Publish(context.Background(), events.Event{
			ID:       "evt-extra",
			Type:     events.EventChatMessageAdded,
			TicketID: ticket.ID,
		})
	}
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&notices))
	assert.False(t, gate.Open())
}

func TestChatPublishesMessageEvents(t *testing.T) {
	f := newChatFixture(t)
	ticket := f.assignedTicket(t)

	var got []events.Event
	f.dispatcher.Subscribe(events.EventChatMessageAdded, func(ctx context.Context, e events.Event) error {
		got = append(got, e)
		return nil
	})

	_, err := f.chatSvc.Post(context.Background(), techSess, ticket.ID, "checking the fuser")
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, ticket.ID, got[0].TicketID)
	assert.Equal(t, domain.RoleTechnician, got[0].Actor.Role)
}

package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/equipdesk/equipdesk/internal/domain"
	"github.com/equipdesk/equipdesk/internal/repository"
	apperrors "github.com/equipdesk/equipdesk/pkg/util"
)

// memTicketRepo mirrors the store's commit semantics in memory: conditional
// updates re-check the expected state under the same lock that guards the
// records, so racing commands resolve exactly like they do against the
// database.
type memTicketRepo struct {
	mu      sync.Mutex
	records map[string]*domain.Ticket
	counter int64
	nextID  int64
	getErr  error
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{records: make(map[string]*domain.Ticket)}
}

func (r *memTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	ticket.ID = fmt.Sprintf("tkt-%d", r.nextID)
	ticket.CreatedAt = time.Now()
	copied := *ticket
	r.records[ticket.ID] = &copied
	return nil
}

func (r *memTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	ticket, ok := r.records[id]
	if !ok {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	copied := *ticket
	return &copied, nil
}

func (r *memTicketRepo) GetByNumber(ctx context.Context, number int64) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.records {
		if ticket.TicketNumber == number {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, apperrors.NewNotFound("ticket", nil)
}

func (r *memTicketRepo) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.records {
		if filter.EmployeeEmail != nil && ticket.EmployeeEmail != *filter.EmployeeEmail {
			continue
		}
		if filter.TechnicianEmail != nil &&
			(ticket.TechnicianEmail == nil || *ticket.TechnicianEmail != *filter.TechnicianEmail) {
			continue
		}
		if filter.EquipmentID != nil && ticket.EquipmentID != *filter.EquipmentID {
			continue
		}
		if filter.Location != nil && ticket.Location != *filter.Location {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, status := range filter.Statuses {
				if ticket.Status == status {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		result = append(result, *ticket)
	}
	return result, nil
}

func (r *memTicketRepo) UpdateConditional(ctx context.Context, ticket *domain.Ticket, expect repository.Precondition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.records[ticket.ID]
	if !ok {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticket.ID})
	}
	if current.Status != expect.Status {
		return apperrors.NewConcurrentModification(ticket.ID)
	}
	if expect.Unassigned && current.Assigned() {
		return apperrors.NewConcurrentModification(ticket.ID)
	}
	copied := *ticket
	r.records[ticket.ID] = &copied
	return nil
}

func (r *memTicketRepo) NextTicketNumber(ctx context.Context) (int64, error) {
	return atomic.AddInt64(&r.counter, 1), nil
}

func (r *memTicketRepo) AggregateCounts(ctx context.Context) (*repository.DashboardCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := &repository.DashboardCounts{
		ByStatus:   make(map[domain.TicketStatus]int64),
		ByPriority: make(map[domain.TicketPriority]int64),
		ByLocation: make(map[string]int64),
	}
	for _, ticket := range r.records {
		counts.Total++
		counts.ByStatus[ticket.Status]++
		counts.ByLocation[ticket.Location]++
		if ticket.Priority != nil {
			counts.ByPriority[*ticket.Priority]++
		}
	}
	return counts, nil
}

// resolveNow flips the stored ticket to Resolved directly, bypassing the
// service path. Used to model a concurrent commit landing between a caller's
// read and its write.
func (r *memTicketRepo) resolveNow(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket, ok := r.records[id]; ok {
		now := time.Now()
		ticket.Status = domain.TicketStatusResolved
		ticket.FinishedAt = &now
	}
}

// memChatRepo arbitrates openness against the ticket repo under its lock,
// like the conditional INSERT does in the store.
type memChatRepo struct {
	mu           sync.Mutex
	tickets      *memTicketRepo
	messages     map[string][]domain.ChatMessage
	nextID       int64
	beforeAppend func()
}

func newMemChatRepo(tickets *memTicketRepo) *memChatRepo {
	return &memChatRepo{tickets: tickets, messages: make(map[string][]domain.ChatMessage)}
}

func (r *memChatRepo) Append(ctx context.Context, msg *domain.ChatMessage) error {
	if r.beforeAppend != nil {
		r.beforeAppend()
	}
	r.tickets.mu.Lock()
	ticket, ok := r.tickets.records[msg.TicketID]
	open := ok && ticket.ChatOpen()
	r.tickets.mu.Unlock()
	if !ok {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": msg.TicketID})
	}
	if !open {
		return apperrors.NewChatClosed(msg.TicketID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	msg.ID = fmt.Sprintf("msg-%d", r.nextID)
	msg.CreatedAt = time.Now()
	r.messages[msg.TicketID] = append(r.messages[msg.TicketID], *msg)
	return nil
}

func (r *memChatRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ChatMessage{}, r.messages[ticketID]...), nil
}

// memProfileRepo holds one role's profiles keyed by email.
type memProfileRepo struct {
	role     domain.Role
	profiles map[string]*domain.Profile
}

func newMemProfileRepo(role domain.Role, profiles ...*domain.Profile) *memProfileRepo {
	byEmail := make(map[string]*domain.Profile, len(profiles))
	for _, p := range profiles {
		p.Role = role
		byEmail[p.Email] = p
	}
	return &memProfileRepo{role: role, profiles: byEmail}
}

func (r *memProfileRepo) Role() domain.Role { return r.role }

func (r *memProfileRepo) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	profile, ok := r.profiles[email]
	if !ok {
		return nil, apperrors.NewNotFound("profile", nil)
	}
	copied := *profile
	return &copied, nil
}

func (r *memProfileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	for _, profile := range r.profiles {
		if profile.ID == id {
			copied := *profile
			return &copied, nil
		}
	}
	return nil, apperrors.NewNotFound("profile", nil)
}

func (r *memProfileRepo) List(ctx context.Context, limit, offset int) ([]domain.Profile, error) {
	var result []domain.Profile
	for _, profile := range r.profiles {
		result = append(result, *profile)
	}
	return result, nil
}

// memFeedbackRepo enforces one rating per ticket.
type memFeedbackRepo struct {
	mu       sync.Mutex
	byTicket map[string]*domain.Feedback
	nextID   int64
}

func newMemFeedbackRepo() *memFeedbackRepo {
	return &memFeedbackRepo{byTicket: make(map[string]*domain.Feedback)}
}

func (r *memFeedbackRepo) Create(ctx context.Context, fb *domain.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byTicket[fb.TicketID]; exists {
		return apperrors.NewConflict("feedback already submitted for ticket",
			map[string]any{"ticket_id": fb.TicketID})
	}
	r.nextID++
	fb.ID = fmt.Sprintf("fb-%d", r.nextID)
	fb.CreatedAt = time.Now()
	copied := *fb
	r.byTicket[fb.TicketID] = &copied
	return nil
}

func (r *memFeedbackRepo) GetByTicket(ctx context.Context, ticketID string) (*domain.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fb, ok := r.byTicket[ticketID]
	if !ok {
		return nil, apperrors.NewNotFound("feedback", nil)
	}
	copied := *fb
	return &copied, nil
}

func (r *memFeedbackRepo) ListByTechnician(ctx context.Context, technicianEmail string) ([]domain.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Feedback
	for _, fb := range r.byTicket {
		if fb.TechnicianEmail == technicianEmail {
			result = append(result, *fb)
		}
	}
	return result, nil
}

// memLocationRepo counts fetches so cache behavior is observable.
type memLocationRepo struct {
	mu        sync.Mutex
	locations []domain.Location
	calls     int
}

func (r *memLocationRepo) List(ctx context.Context) ([]domain.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return append([]domain.Location{}, r.locations...), nil
}

func (r *memLocationRepo) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, loc := range r.locations {
		if loc.ID == id {
			copied := loc
			return &copied, nil
		}
	}
	return nil, apperrors.NewNotFound("location", nil)
}

type memEquipmentRepo struct {
	mu        sync.Mutex
	equipment []domain.Equipment
	calls     int
}

func (r *memEquipmentRepo) List(ctx context.Context) ([]domain.Equipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return append([]domain.Equipment{}, r.equipment...), nil
}

func (r *memEquipmentRepo) ListByLocation(ctx context.Context, location string) ([]domain.Equipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Equipment
	for _, eq := range r.equipment {
		if eq.Location == location {
			result = append(result, eq)
		}
	}
	return result, nil
}

func (r *memEquipmentRepo) GetByID(ctx context.Context, id string) (*domain.Equipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, eq := range r.equipment {
		if eq.ID == id {
			copied := eq
			return &copied, nil
		}
	}
	return nil, apperrors.NewNotFound("equipment", nil)
}

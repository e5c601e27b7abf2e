package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/equipdesk/equipdesk/internal/cache"
	"github.com/equipdesk/equipdesk/internal/config"
	"github.com/equipdesk/equipdesk/internal/domain"
	"github.com/equipdesk/equipdesk/internal/events"
)

func testTTLs() config.CacheConfig {
	return config.CacheConfig{
		EquipmentTTL:     5 * time.Minute,
		DeviceHistoryTTL: 15 * time.Minute,
		LocationsTTL:     10 * time.Minute,
		DashboardTTL:     5 * time.Minute,
	}
}

func TestLocationsAreServedFromCache(t *testing.T) {
	locations := &memLocationRepo{locations: []domain.Location{
		{ID: "loc-1", NameLocal: "Playas", Status: "ACTIVE"},
		{ID: "loc-2", NameLocal: "Centro", Status: "ACTIVE"},
	}}
	svc := NewDirectoryService(DirectoryServiceDeps{
		Locations: locations,
		Equipment: &memEquipmentRepo{},
		Tickets:   newMemTicketRepo(),
		Cache:     cache.New(zap.NewNop()),
		TTL:       testTTLs(),
	})

	first, stale, err := svc.Locations(context.Background())
	require.NoError(t, err)
	assert.False(t, stale)
	assert.Len(t, first, 2)

	// Within the TTL the repository is not consulted again.
	second, _, err := svc.Locations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, locations.calls)
}

func TestEquipmentByLocationFiltersSharedEntry(t *testing.T) {
	equipment := &memEquipmentRepo{equipment: []domain.Equipment{
		{ID: "eq-1", Name: "Printer A", Location: "Playas"},
		{ID: "eq-2", Name: "Printer B", Location: "Centro"},
		{ID: "eq-3", Name: "Scanner", Location: "Playas"},
	}}
	svc := NewDirectoryService(DirectoryServiceDeps{
		Locations: &memLocationRepo{},
		Equipment: equipment,
		Tickets:   newMemTicketRepo(),
		Cache:     cache.New(zap.NewNop()),
		TTL:       testTTLs(),
	})

	playas, _, err := svc.EquipmentByLocation(context.Background(), "Playas")
	require.NoError(t, err)
	assert.Len(t, playas, 2)

	centro, _, err := svc.EquipmentByLocation(context.Background(), "Centro")
	require.NoError(t, err)
	assert.Len(t, centro, 1)

	// Both site screens share one registry fetch.
	assert.Equal(t, 1, equipment.calls)
}

func TestDeviceHistoryIsKeyedPerEquipment(t *testing.T) {
	tickets := newMemTicketRepo()
	technicians := newMemProfileRepo(domain.RoleTechnician,
		&domain.Profile{ID: "tech-1", FirstName: "J.", LastName: "Lopez", Email: "jlopez@acme.test"})
	ticketSvc := NewTicketService(TicketServiceDeps{
		Tickets:     tickets,
		Technicians: technicians,
		Dispatcher:  events.NewInMemoryDispatcher(),
		Logger:      zap.NewNop(),
	})
	for _, equipmentID := range []string{"eq-17", "eq-17", "eq-99"} {
		_, err := ticketSvc.Create(context.Background(), employeeSess, CreateTicketInput{
			ProblemType: "Hardware",
			Description: "history entry",
			Location:    "Playas",
			EquipmentID: equipmentID,
		})
		require.NoError(t, err)
	}

	svc := NewDirectoryService(DirectoryServiceDeps{
		Locations: &memLocationRepo{},
		Equipment: &memEquipmentRepo{},
		Tickets:   tickets,
		Cache:     cache.New(zap.NewNop()),
		TTL:       testTTLs(),
	})

	history, _, err := svc.DeviceHistory(context.Background(), "eq-17")
	require.NoError(t, err)
	assert.Len(t, history, 2)

	other, _, err := svc.DeviceHistory(context.Background(), "eq-99")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestDashboardCountsAggregateAndGate(t *testing.T) {
	tickets := newMemTicketRepo()
	technicians := newMemProfileRepo(domain.RoleTechnician,
		&domain.Profile{ID: "tech-1", FirstName: "J.", LastName: "Lopez", Email: "jlopez@acme.test"})
	ticketSvc := NewTicketService(TicketServiceDeps{
		Tickets:     tickets,
		Technicians: technicians,
		Dispatcher:  events.NewInMemoryDispatcher(),
		Logger:      zap.NewNop(),
	})

	first := createOpenTicket(t, ticketSvc)
	_, err := ticketSvc.Assign(context.Background(), adminSess, first.ID, "jlopez@acme.test", domain.TicketPriorityHigh)
	require.NoError(t, err)
	_, err = ticketSvc.Resolve(context.Background(), techSess, first.ID)
	require.NoError(t, err)
	createOpenTicket(t, ticketSvc)

	svc := NewDashboardService(DashboardServiceDeps{
		Tickets: tickets,
		Cache:   cache.New(zap.NewNop()),
		TTL:     testTTLs(),
	})

	counts, _, err := svc.Counts(context.Background(), adminSess)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts.Total)
	assert.Equal(t, int64(1), counts.ByStatus[domain.TicketStatusResolved])
	assert.Equal(t, int64(1), counts.ByStatus[domain.TicketStatusOpen])
	assert.Equal(t, int64(1), counts.ByPriority[domain.TicketPriorityHigh])
	assert.Equal(t, int64(2), counts.ByLocation["Playas"])

	_, _, err = svc.Counts(context.Background(), employeeSess)
	require.Error(t, err)
}

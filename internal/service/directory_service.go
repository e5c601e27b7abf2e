package service

import (
	"context"

	"github.com/equipdesk/equipdesk/internal/cache"
	"github.com/equipdesk/equipdesk/internal/config"
	"github.com/equipdesk/equipdesk/internal/domain"
	"github.com/equipdesk/equipdesk/internal/repository"
)

// Cache keys for the directory screens. Device history is keyed per
// equipment id; the others are single shared entries.
const (
	locationsCacheKey    = "locationsCache"
	equipmentCacheKey    = "equipmentsCache"
	deviceTicketsKeyBase = "deviceTickets_"
)

// DirectoryServiceDeps bundles the directory service dependencies.
type DirectoryServiceDeps struct {
	Locations   repository.LocationRepository
	Equipment   repository.EquipmentRepository
	Tickets     repository.TicketRepository
	Technicians repository.ProfileRepository
	Cache       *cache.Cache
	TTL         config.CacheConfig
}

// DirectoryService serves the slow-moving reference data behind the ticket
// form and the device detail screens, through the stale-while-revalidate
// cache.
type DirectoryService struct {
	locations   repository.LocationRepository
	equipment   repository.EquipmentRepository
	tickets     repository.TicketRepository
	technicians repository.ProfileRepository
	cache       *cache.Cache
	ttl         config.CacheConfig
}

// NewDirectoryService wires a directory service.
func NewDirectoryService(deps DirectoryServiceDeps) *DirectoryService {
	return &DirectoryService{
		locations:   deps.Locations,
		equipment:   deps.Equipment,
		tickets:     deps.Tickets,
		technicians: deps.Technicians,
		cache:       deps.Cache,
		ttl:         deps.TTL,
	}
}

// Locations lists every site. Stale values are served while a background
// refresh runs; the stale flag lets callers render a refresh indicator.
func (s *DirectoryService) Locations(ctx context.Context) ([]domain.Location, bool, error) {
	return cache.Fetch(ctx, s.cache, locationsCacheKey, s.ttl.LocationsTTL,
		func(ctx context.Context) ([]domain.Location, error) {
			return s.locations.List(ctx)
		})
}

// Equipment lists the whole device registry.
func (s *DirectoryService) Equipment(ctx context.Context) ([]domain.Equipment, bool, error) {
	return cache.Fetch(ctx, s.cache, equipmentCacheKey, s.ttl.EquipmentTTL,
		func(ctx context.Context) ([]domain.Equipment, error) {
			return s.equipment.List(ctx)
		})
}

// EquipmentByLocation lists the devices at one site. Not cached separately;
// it filters the shared registry entry so one fetch serves every site screen.
func (s *DirectoryService) EquipmentByLocation(ctx context.Context, location string) ([]domain.Equipment, bool, error) {
	all, stale, err := s.Equipment(ctx)
	if err != nil {
		return nil, false, err
	}
	var result []domain.Equipment
	for _, eq := range all {
		if eq.Location == location {
			result = append(result, eq)
		}
	}
	return result, stale, nil
}

// Technicians lists the technician roster for the assignment picker.
// Administrator only; the picker always shows live data, so no cache.
func (s *DirectoryService) Technicians(ctx context.Context, limit, offset int) ([]domain.Profile, error) {
	return s.technicians.List(ctx, limit, offset)
}

// DeviceHistory lists every ticket ever filed against one device, cached per
// equipment id.
func (s *DirectoryService) DeviceHistory(ctx context.Context, equipmentID string) ([]domain.Ticket, bool, error) {
	key := deviceTicketsKeyBase + equipmentID
	return cache.Fetch(ctx, s.cache, key, s.ttl.DeviceHistoryTTL,
		func(ctx context.Context) ([]domain.Ticket, error) {
			id := equipmentID
			return s.tickets.List(ctx, repository.TicketFilter{EquipmentID: &id, Limit: 200})
		})
}

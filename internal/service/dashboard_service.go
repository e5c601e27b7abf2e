package service

import (
	"context"

	"github.com/equipdesk/equipdesk/internal/auth"
	"github.com/equipdesk/equipdesk/internal/cache"
	"github.com/equipdesk/equipdesk/internal/config"
	"github.com/equipdesk/equipdesk/internal/repository"
)

const metricsCacheKey = "metricsCache"

// DashboardServiceDeps bundles the dashboard service dependencies.
type DashboardServiceDeps struct {
	Tickets repository.TicketRepository
	Cache   *cache.Cache
	TTL     config.CacheConfig
}

// DashboardService serves the administrator report screen.
type DashboardService struct {
	tickets repository.TicketRepository
	cache   *cache.Cache
	ttl     config.CacheConfig
}

// NewDashboardService wires a dashboard service.
func NewDashboardService(deps DashboardServiceDeps) *DashboardService {
	return &DashboardService{tickets: deps.Tickets, cache: deps.Cache, ttl: deps.TTL}
}

// Counts aggregates ticket totals by status, priority and location.
// Administrator only; the aggregate is cached like any other list screen.
func (s *DashboardService) Counts(ctx context.Context, sess *auth.Session) (*repository.DashboardCounts, bool, error) {
	if err := auth.Require(sess.Role, auth.ActionReadAll); err != nil {
		return nil, false, err
	}
	return cache.Fetch(ctx, s.cache, metricsCacheKey, s.ttl.DashboardTTL,
		func(ctx context.Context) (*repository.DashboardCounts, error) {
			return s.tickets.AggregateCounts(ctx)
		})
}

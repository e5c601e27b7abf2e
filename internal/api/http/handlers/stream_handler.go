package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/equipdesk/equipdesk/internal/api/dto"
	"github.com/equipdesk/equipdesk/internal/auth"
	"github.com/equipdesk/equipdesk/internal/cache"
	"github.com/equipdesk/equipdesk/internal/domain"
	"github.com/equipdesk/equipdesk/internal/push"
	"github.com/equipdesk/equipdesk/internal/repository"
	apperrors "github.com/equipdesk/equipdesk/pkg/util"
)

const streamHeartbeat = 15 * time.Second

// StreamHandler serves the live ticket list over SSE. Each connection holds
// one hub subscription; snapshots delivered over it also land in the cache,
// so the pull path picks up pushed data without waiting out its TTL.
type StreamHandler struct {
	hub     *push.Hub
	cache   *cache.Cache
	tickets repository.TicketRepository
	logger  *zap.Logger
}

// NewStreamHandler constructs handler.
func NewStreamHandler(hub *push.Hub, cacheLayer *cache.Cache, tickets repository.TicketRepository, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{hub: hub, cache: cacheLayer, tickets: tickets, logger: logger}
}

// Tickets GET /tickets/stream.
func (h *StreamHandler) Tickets(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	spec, err := h.querySpecFor(sess)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	key := spec.Key
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		snapshots := make(chan []domain.Ticket, 1)
		sub := h.hub.Subscribe(spec, func(snapshot []domain.Ticket) {
			h.cache.Put(key, snapshot)
			// Conflate: only the newest snapshot matters to this client.
			for {
				select {
				case snapshots <- snapshot:
					return
				default:
				}
				select {
				case <-snapshots:
				default:
				}
			}
		})
		defer sub.Unsubscribe()

		heartbeat := time.NewTicker(streamHeartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case snapshot := <-snapshots:
				data, err := json.Marshal(dto.FromTickets(snapshot))
				if err != nil {
					h.logger.Warn("stream encode failed", zap.Error(err))
					continue
				}
				if _, err := fmt.Fprintf(w, "event: tickets\ndata: %s\n\n", data); err != nil {
					return
				}
			case <-heartbeat.C:
				if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
					return
				}
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}))
	return nil
}

// querySpecFor maps the session onto its list query. The key doubles as the
// cache key of the same list screen.
func (h *StreamHandler) querySpecFor(sess *auth.Session) (push.QuerySpec, error) {
	switch sess.Role {
	case domain.RoleEmployee:
		email := sess.Email
		return push.QuerySpec{
			Key: "myTickets_" + email,
			Fetch: func(ctx context.Context) ([]domain.Ticket, error) {
				return h.tickets.List(ctx, repository.TicketFilter{EmployeeEmail: &email})
			},
		}, nil
	case domain.RoleTechnician:
		email := sess.Email
		return push.QuerySpec{
			Key: "assignedTickets_" + email,
			Fetch: func(ctx context.Context) ([]domain.Ticket, error) {
				return h.tickets.List(ctx, repository.TicketFilter{TechnicianEmail: &email})
			},
		}, nil
	case domain.RoleAdministrator:
		return push.QuerySpec{
			Key: "allTickets",
			Fetch: func(ctx context.Context) ([]domain.Ticket, error) {
				return h.tickets.List(ctx, repository.TicketFilter{Limit: 200})
			},
		}, nil
	default:
		return push.QuerySpec{}, apperrors.NewUnauthorized("unknown role")
	}
}

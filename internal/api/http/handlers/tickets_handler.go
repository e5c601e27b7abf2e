package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/equipdesk/equipdesk/internal/api/dto"
	"github.com/equipdesk/equipdesk/internal/auth"
	"github.com/equipdesk/equipdesk/internal/domain"
	"github.com/equipdesk/equipdesk/internal/observability"
	"github.com/equipdesk/equipdesk/internal/repository"
	"github.com/equipdesk/equipdesk/internal/service"
	apperrors "github.com/equipdesk/equipdesk/pkg/util"
)

// TicketsHandler serves the ticket commands and the scoped reads.
type TicketsHandler struct {
	service *service.TicketService
	metrics *observability.Metrics
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, metrics *observability.Metrics) *TicketsHandler {
	return &TicketsHandler{service: ticketService, metrics: metrics}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.Create(c.UserContext(), sess, service.CreateTicketInput{
		ProblemType: strings.TrimSpace(req.ProblemType),
		Description: strings.TrimSpace(req.Description),
		Location:    strings.TrimSpace(req.Location),
		EquipmentID: strings.TrimSpace(req.EquipmentID),
	})
	h.record("CREATE", err)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.service.List(c.UserContext(), sess, parseTicketQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTickets(tickets)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.service.Get(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// GetTicketByNumber GET /tickets/number/:number.
func (h *TicketsHandler) GetTicketByNumber(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	number, err := strconv.ParseInt(c.Params("number"), 10, 64)
	if err != nil {
		return apperrors.NewValidationError("invalid ticket number", nil)
	}
	ticket, err := h.service.GetByNumber(c.UserContext(), sess, number)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// AssignTicket POST /tickets/:id/assign.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TechnicianEmail == "" {
		return apperrors.NewValidationError("technician_email required", nil)
	}

	ticket, err := h.service.Assign(c.UserContext(), sess, c.Params("id"), req.TechnicianEmail, req.Priority)
	h.record("ASSIGN", err)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// DenyTicket POST /tickets/:id/deny.
func (h *TicketsHandler) DenyTicket(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.service.Deny(c.UserContext(), sess, c.Params("id"))
	h.record("DENY", err)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// ReactivateTicket POST /tickets/:id/reactivate.
func (h *TicketsHandler) ReactivateTicket(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.service.Reactivate(c.UserContext(), sess, c.Params("id"))
	h.record("REACTIVATE", err)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// ResolveTicket POST /tickets/:id/resolve.
func (h *TicketsHandler) ResolveTicket(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.service.Resolve(c.UserContext(), sess, c.Params("id"))
	h.record("RESOLVE", err)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

func (h *TicketsHandler) record(command string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = strings.ToLower(apperrors.ToDomainError(err).Code)
	}
	h.metrics.RecordCommand(command, outcome)
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	if location := c.Query("location"); location != "" {
		filter.Location = &location
	}
	if equipmentID := c.Query("equipment_id"); equipmentID != "" {
		filter.EquipmentID = &equipmentID
	}
	filter.Limit = c.QueryInt("limit", 50)
	filter.Offset = c.QueryInt("offset", 0)
	return filter
}

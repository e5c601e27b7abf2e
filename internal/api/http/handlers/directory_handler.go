package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/equipdesk/equipdesk/internal/api/dto"
	"github.com/equipdesk/equipdesk/internal/auth"
	"github.com/equipdesk/equipdesk/internal/domain"
	"github.com/equipdesk/equipdesk/internal/service"
	apperrors "github.com/equipdesk/equipdesk/pkg/util"
)

// DirectoryHandler serves reference data and the dashboard aggregate.
type DirectoryHandler struct {
	directory *service.DirectoryService
	dashboard *service.DashboardService
}

// NewDirectoryHandler constructs handler.
func NewDirectoryHandler(directoryService *service.DirectoryService, dashboardService *service.DashboardService) *DirectoryHandler {
	return &DirectoryHandler{directory: directoryService, dashboard: dashboardService}
}

// ListLocations GET /locations.
func (h *DirectoryHandler) ListLocations(c *fiber.Ctx) error {
	locations, stale, err := h.directory.Locations(c.UserContext())
	if err != nil {
		return err
	}
	result := make([]dto.LocationResponse, 0, len(locations))
	for _, loc := range locations {
		result = append(result, dto.LocationResponse{
			ID:           loc.ID,
			NameLocal:    loc.NameLocal,
			Status:       loc.Status,
			OpeningHours: loc.OpeningHours,
		})
	}
	return c.JSON(fiber.Map{"data": result, "stale": stale})
}

// ListEquipment GET /equipment. An optional location query narrows the set.
func (h *DirectoryHandler) ListEquipment(c *fiber.Ctx) error {
	var (
		equipment []domain.Equipment
		stale     bool
		err       error
	)
	if location := c.Query("location"); location != "" {
		equipment, stale, err = h.directory.EquipmentByLocation(c.UserContext(), location)
	} else {
		equipment, stale, err = h.directory.Equipment(c.UserContext())
	}
	if err != nil {
		return err
	}

	result := make([]dto.EquipmentResponse, 0, len(equipment))
	for _, eq := range equipment {
		result = append(result, dto.EquipmentResponse{
			ID:           eq.ID,
			Name:         eq.Name,
			Category:     eq.Category,
			SerialNumber: eq.SerialNumber,
			Location:     eq.Location,
			Status:       eq.Status,
			CreatedAt:    eq.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": result, "stale": stale})
}

// DeviceHistory GET /equipment/:id/tickets.
func (h *DirectoryHandler) DeviceHistory(c *fiber.Ctx) error {
	tickets, stale, err := h.directory.DeviceHistory(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTickets(tickets), "stale": stale})
}

// ListTechnicians GET /technicians. Administrator only.
func (h *DirectoryHandler) ListTechnicians(c *fiber.Ctx) error {
	technicians, err := h.directory.Technicians(c.UserContext(),
		c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	result := make([]fiber.Map, 0, len(technicians))
	for _, tech := range technicians {
		result = append(result, fiber.Map{
			"email":    tech.Email,
			"name":     tech.FullName(),
			"location": tech.Location,
		})
	}
	return c.JSON(fiber.Map{"data": result})
}

// Dashboard GET /dashboard. Administrator only.
func (h *DirectoryHandler) Dashboard(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	counts, stale, err := h.dashboard.Counts(c.UserContext(), sess)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": counts, "stale": stale})
}

package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/equipdesk/equipdesk/internal/api/dto"
	"github.com/equipdesk/equipdesk/internal/auth"
	"github.com/equipdesk/equipdesk/internal/service"
	apperrors "github.com/equipdesk/equipdesk/pkg/util"
)

// ChatHandler serves the per-ticket conversation thread and feedback.
type ChatHandler struct {
	chat     *service.ChatService
	feedback *service.FeedbackService
}

// NewChatHandler constructs handler.
func NewChatHandler(chatService *service.ChatService, feedbackService *service.FeedbackService) *ChatHandler {
	return &ChatHandler{chat: chatService, feedback: feedbackService}
}

// ListMessages GET /tickets/:id/messages.
func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	messages, err := h.chat.List(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromChatMessages(messages)})
}

// PostMessage POST /tickets/:id/messages.
func (h *ChatHandler) PostMessage(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.PostMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	msg, err := h.chat.Post(c.UserContext(), sess, c.Params("id"), strings.TrimSpace(req.Body))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.FromChatMessage(msg)})
}

// SubmitFeedback POST /tickets/:id/feedback.
func (h *ChatHandler) SubmitFeedback(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.SubmitFeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	fb, err := h.feedback.Submit(c.UserContext(), sess, c.Params("id"), req.Rating, strings.TrimSpace(req.Comment))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.FromFeedback(fb)})
}

// GetFeedback GET /tickets/:id/feedback.
func (h *ChatHandler) GetFeedback(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	fb, err := h.feedback.ForTicket(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromFeedback(fb)})
}

// ListTechnicianFeedback GET /technicians/:email/feedback.
func (h *ChatHandler) ListTechnicianFeedback(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	entries, err := h.feedback.ForTechnician(c.UserContext(), sess, c.Params("email"))
	if err != nil {
		return err
	}
	result := make([]dto.FeedbackResponse, 0, len(entries))
	for i := range entries {
		result = append(result, dto.FromFeedback(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": result})
}

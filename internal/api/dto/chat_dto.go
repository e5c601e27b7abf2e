package dto

import (
	"time"

	"github.com/equipdesk/equipdesk/internal/domain"
)

// PostMessageRequest payload.
type PostMessageRequest struct {
	Body string `json:"body"`
}

// ChatMessageResponse is the wire shape of one chat message.
type ChatMessageResponse struct {
	ID          string    `json:"id"`
	TicketID    string    `json:"ticket_id"`
	SenderEmail string    `json:"sender_email"`
	SenderName  string    `json:"sender_name"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

// FromChatMessage maps a domain message.
func FromChatMessage(m *domain.ChatMessage) ChatMessageResponse {
	return ChatMessageResponse{
		ID:          m.ID,
		TicketID:    m.TicketID,
		SenderEmail: m.SenderEmail,
		SenderName:  m.SenderName,
		Body:        m.Body,
		CreatedAt:   m.CreatedAt,
	}
}

// FromChatMessages maps a thread.
func FromChatMessages(messages []domain.ChatMessage) []ChatMessageResponse {
	result := make([]ChatMessageResponse, 0, len(messages))
	for i := range messages {
		result = append(result, FromChatMessage(&messages[i]))
	}
	return result
}

// SubmitFeedbackRequest payload.
type SubmitFeedbackRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// FeedbackResponse is the wire shape of one rating.
type FeedbackResponse struct {
	ID              string                `json:"id"`
	TicketID        string                `json:"ticket_id"`
	TechnicianEmail string                `json:"technician_email"`
	Rating          int                   `json:"rating"`
	Comment         string                `json:"comment"`
	Status          domain.FeedbackStatus `json:"status"`
	CreatedAt       time.Time             `json:"created_at"`
}

// FromFeedback maps a domain feedback record.
func FromFeedback(fb *domain.Feedback) FeedbackResponse {
	return FeedbackResponse{
		ID:              fb.ID,
		TicketID:        fb.TicketID,
		TechnicianEmail: fb.TechnicianEmail,
		Rating:          fb.Rating,
		Comment:         fb.Comment,
		Status:          fb.Status,
		CreatedAt:       fb.CreatedAt,
	}
}

package dto

import (
	"time"

	"github.com/equipdesk/equipdesk/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the token and the resolved session.
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      domain.Role `json:"role"`
}

// LocationResponse is the wire shape of one site.
type LocationResponse struct {
	ID           string                `json:"id"`
	NameLocal    string                `json:"name_local"`
	Status       domain.LocationStatus `json:"status"`
	OpeningHours string                `json:"opening_hours"`
}

// EquipmentResponse is the wire shape of one device.
type EquipmentResponse struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Category     string                 `json:"category"`
	SerialNumber string                 `json:"serial_number"`
	Location     string                 `json:"location"`
	Status       domain.EquipmentStatus `json:"status"`
	CreatedAt    time.Time              `json:"created_at"`
}

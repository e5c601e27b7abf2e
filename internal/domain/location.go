package domain

// LocationStatus marks whether a site is operating.
type LocationStatus string

const (
	LocationStatusActive   LocationStatus = "ACTIVE"
	LocationStatusInactive LocationStatus = "INACTIVE"
)

// Location is a physical site of the organization.
type Location struct {
	ID           string
	NameLocal    string
	Status       LocationStatus
	OpeningHours string
}

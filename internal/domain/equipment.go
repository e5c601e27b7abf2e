package domain

import "time"

// EquipmentStatus marks whether a device is in service.
type EquipmentStatus string

const (
	EquipmentStatusActive   EquipmentStatus = "ACTIVE"
	EquipmentStatusRetired  EquipmentStatus = "RETIRED"
	EquipmentStatusInRepair EquipmentStatus = "IN_REPAIR"
)

// Equipment is a registered device tickets are filed against.
type Equipment struct {
	ID           string
	Name         string
	Category     string
	SerialNumber string
	Location     string
	Status       EquipmentStatus
	CreatedAt    time.Time
}

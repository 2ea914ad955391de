package domain

import (
	"time"

	"github.com/google/uuid"
)

// ServiceCategory classifies a service record.
type ServiceCategory string

// Valid service categories.
const (
	ServiceMaintenance ServiceCategory = "maintenance"
	ServiceRepair      ServiceCategory = "repair"
	ServiceUpgrade     ServiceCategory = "upgrade"
	ServiceInspection  ServiceCategory = "inspection"
)

// ParseServiceCategory maps a free-form string to a ServiceCategory,
// falling back to ServiceMaintenance for anything unrecognized.
func ParseServiceCategory(s string) ServiceCategory {
	switch ServiceCategory(normalizeEnum(s)) {
	case ServiceRepair, ServiceUpgrade, ServiceInspection:
		return ServiceCategory(normalizeEnum(s))
	}
	return ServiceMaintenance
}

// ServiceRecord is one maintenance/repair/upgrade/inspection event on a
// vehicle. Import matches loose receipt files to service records by title
// text, so Title is the soft key within one vehicle.
type ServiceRecord struct {
	ID          uuid.UUID
	VehicleID   uuid.UUID
	Title       string
	Category    ServiceCategory
	Date        time.Time
	Cost        *float64
	Odometer    *int
	Shop        string
	Description string
	CreatedAt   time.Time
}

// Receipt is a file attachment on a service record.
type Receipt struct {
	ID              uuid.UUID
	ServiceRecordID uuid.UUID
	StoragePath     string
	FileName        string
	CreatedAt       time.Time
}

// MileageEntry is a point-in-time odometer reading.
// History entries are append-only — never edited after creation.
type MileageEntry struct {
	ID         uuid.UUID
	VehicleID  uuid.UUID
	Mileage    int
	RecordedAt time.Time
	Notes      string
	CreatedAt  time.Time
}

// ValueEntry is a point-in-time estimated-value reading.
// History entries are append-only — never edited after creation.
type ValueEntry struct {
	ID         uuid.UUID
	VehicleID  uuid.UUID
	Value      float64
	RecordedAt time.Time
	Notes      string
	CreatedAt  time.Time
}

// Package domain contains the core data types for the GarageKeeper application.
// This package has zero external dependencies beyond uuid/time and is imported
// by every other internal package (repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// VehicleType classifies what kind of vehicle a record describes.
type VehicleType string

// Valid vehicle types.
const (
	VehicleMotorcycle VehicleType = "motorcycle"
	VehicleCar        VehicleType = "car"
	VehicleBoat       VehicleType = "boat"
	VehicleTrailer    VehicleType = "trailer"
	VehicleOther      VehicleType = "other"
)

// ParseVehicleType maps a free-form string to a VehicleType, falling back to
// VehicleOther for anything unrecognized. Import paths call this so a CSV cell
// like "Motorbike" never fails a row outright.
func ParseVehicleType(s string) VehicleType {
	switch VehicleType(normalizeEnum(s)) {
	case VehicleMotorcycle, VehicleCar, VehicleBoat, VehicleTrailer:
		return VehicleType(normalizeEnum(s))
	}
	switch normalizeEnum(s) {
	case "motorbike", "bike", "moto":
		return VehicleMotorcycle
	case "truck", "suv", "van", "auto", "automobile":
		return VehicleCar
	}
	return VehicleOther
}

// VehicleStatus is the lifecycle state of a vehicle.
type VehicleStatus string

// Valid vehicle statuses.
const (
	StatusActive      VehicleStatus = "active"
	StatusSold        VehicleStatus = "sold"
	StatusTraded      VehicleStatus = "traded"
	StatusMaintenance VehicleStatus = "maintenance"
)

// ParseVehicleStatus maps a free-form string to a VehicleStatus, falling back
// to StatusActive when the value is empty or unrecognized.
func ParseVehicleStatus(s string) VehicleStatus {
	switch VehicleStatus(normalizeEnum(s)) {
	case StatusSold, StatusTraded, StatusMaintenance:
		return VehicleStatus(normalizeEnum(s))
	}
	return StatusActive
}

// SaleInfo records the structured outcome of a sale or trade.
// It is derived either from explicit columns or from a recognized
// "SOLD ..."/"TRADED ..." prefix in free-text notes.
type SaleInfo struct {
	Type   string  `json:"type"`             // "sold" or "traded"
	Date   string  `json:"date,omitempty"`   // "2006-01-02" formatted, empty when unknown
	Amount float64 `json:"amount,omitempty"` // 0 when unknown
	Notes  string  `json:"notes,omitempty"`
}

// Vehicle is the top-level aggregate of the collection.
// Photos, documents, service records, and history entries all belong to
// exactly one vehicle and are cascade-deleted with it.
//
// Name doubles as the vehicle's folder key in exported archives, so it is
// sanitized (`: / \ ?` become `-`) before being used as a path segment.
type Vehicle struct {
	ID               uuid.UUID
	Name             string
	Make             string
	Model            string
	Year             int
	Type             VehicleType
	VIN              string
	PlateNumber      string
	Mileage          int
	TabExpiration    *time.Time
	Status           VehicleStatus
	Notes            string
	PurchasePrice    *float64
	PurchaseDate     *time.Time
	Nickname         string
	MaintenanceNotes string
	EstimatedValue   *float64
	SaleInfo         *SaleInfo
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// normalizeEnum lowercases and trims a raw enum cell value.
func normalizeEnum(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		if r == ' ' || r == '\t' {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

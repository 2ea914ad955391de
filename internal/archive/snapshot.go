package archive

import (
	"encoding/json"
	"fmt"

	"github.com/pkordes/garagekeeper/backend/internal/domain"
)

// Snapshot is the denormalized per-vehicle JSON written to
// vehicle-data/<vehicleFolder>.json. It carries everything needed for a
// lossless single-vehicle re-import, with attachments referenced by the
// file names they were exported under.
type Snapshot struct {
	Vehicle        SnapshotVehicle    `json:"vehicle"`
	Photos         []SnapshotPhoto    `json:"photos,omitempty"`
	Documents      []SnapshotDocument `json:"documents,omitempty"`
	ServiceRecords []SnapshotService  `json:"service_records,omitempty"`
	MileageHistory []SnapshotHistory  `json:"mileage_history,omitempty"`
	ValueHistory   []SnapshotHistory  `json:"value_history,omitempty"`
}

// SnapshotVehicle mirrors the vehicle CSV row in JSON form.
type SnapshotVehicle struct {
	Name             string           `json:"name"`
	Make             string           `json:"make,omitempty"`
	Model            string           `json:"model,omitempty"`
	Year             int              `json:"year,omitempty"`
	Type             string           `json:"vehicle_type,omitempty"`
	VIN              string           `json:"vin,omitempty"`
	PlateNumber      string           `json:"plate_number,omitempty"`
	Mileage          int              `json:"mileage,omitempty"`
	TabExpiration    string           `json:"tab_expiration,omitempty"`
	Status           string           `json:"status,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	PurchasePrice    *float64         `json:"purchase_price,omitempty"`
	PurchaseDate     string           `json:"purchase_date,omitempty"`
	Nickname         string           `json:"nickname,omitempty"`
	MaintenanceNotes string           `json:"maintenance_notes,omitempty"`
	EstimatedValue   *float64         `json:"estimated_value,omitempty"`
	SaleInfo         *domain.SaleInfo `json:"sale_info,omitempty"`
}

// SnapshotPhoto references a photo by its exported file name.
type SnapshotPhoto struct {
	FileName     string `json:"file_name"`
	Caption      string `json:"caption,omitempty"`
	DisplayOrder int    `json:"display_order"`
	IsShowcase   bool   `json:"is_showcase,omitempty"`
}

// SnapshotDocument references a document by its exported file name.
type SnapshotDocument struct {
	Title      string   `json:"title"`
	Type       string   `json:"document_type,omitempty"`
	Expiration string   `json:"expiration,omitempty"`
	Cost       *float64 `json:"cost,omitempty"`
	FileName   string   `json:"file_name,omitempty"`
	MimeType   string   `json:"mime_type,omitempty"`
	Notes      string   `json:"notes,omitempty"`
}

// SnapshotService carries one service record with its receipt file names.
type SnapshotService struct {
	Title        string   `json:"title"`
	Category     string   `json:"category,omitempty"`
	Date         string   `json:"date,omitempty"`
	Cost         *float64 `json:"cost,omitempty"`
	Odometer     *int     `json:"odometer,omitempty"`
	Shop         string   `json:"shop,omitempty"`
	Description  string   `json:"description,omitempty"`
	ReceiptFiles []string `json:"receipt_files,omitempty"`
}

// SnapshotHistory is one mileage or value reading.
type SnapshotHistory struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
	Notes string  `json:"notes,omitempty"`
}

// SnapshotVehicleFromDomain flattens a vehicle for the snapshot.
func SnapshotVehicleFromDomain(v domain.Vehicle) SnapshotVehicle {
	sv := SnapshotVehicle{
		Name: v.Name, Make: v.Make, Model: v.Model, Year: v.Year,
		Type: string(v.Type), VIN: v.VIN, PlateNumber: v.PlateNumber,
		Mileage: v.Mileage, Status: string(v.Status), Notes: v.Notes,
		PurchasePrice: v.PurchasePrice, Nickname: v.Nickname,
		MaintenanceNotes: v.MaintenanceNotes, EstimatedValue: v.EstimatedValue,
		SaleInfo: v.SaleInfo,
	}
	if v.TabExpiration != nil {
		sv.TabExpiration = v.TabExpiration.Format("2006-01-02")
	}
	if v.PurchaseDate != nil {
		sv.PurchaseDate = v.PurchaseDate.Format("2006-01-02")
	}
	return sv
}

// ToDomain materializes the snapshot vehicle. The zero-value fallbacks
// mirror VehicleRow.ToDomain.
func (sv SnapshotVehicle) ToDomain() domain.Vehicle {
	v := domain.Vehicle{
		Name: sv.Name, Make: sv.Make, Model: sv.Model, Year: sv.Year,
		Type: domain.ParseVehicleType(sv.Type), VIN: sv.VIN,
		PlateNumber: sv.PlateNumber, Mileage: sv.Mileage,
		Notes:         sv.Notes,
		PurchasePrice: sv.PurchasePrice, Nickname: sv.Nickname,
		MaintenanceNotes: sv.MaintenanceNotes,
		EstimatedValue:   sv.EstimatedValue, SaleInfo: sv.SaleInfo,
	}
	v.Status = domain.ParseVehicleStatus(sv.Status)
	v.TabExpiration = parseDatePtr(sv.TabExpiration)
	v.PurchaseDate = parseDatePtr(sv.PurchaseDate)
	return v
}

// EncodeSnapshot marshals a snapshot with stable, readable indentation.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("archive.EncodeSnapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot unmarshals one vehicle-data JSON member.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("archive.DecodeSnapshot: %w: %v", domain.ErrFormat, err)
	}
	if s.Vehicle.Name == "" {
		return nil, fmt.Errorf("archive.DecodeSnapshot: snapshot has no vehicle name: %w", domain.ErrFormat)
	}
	return &s, nil
}

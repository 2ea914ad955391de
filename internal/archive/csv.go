package archive

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkordes/garagekeeper/backend/internal/csvmap"
	"github.com/pkordes/garagekeeper/backend/internal/domain"
)

// CSVFileName is the archive member name of the comprehensive CSV,
// relative to the archive root.
const CSVFileName = "csv/collection-export.csv"

// record_type discriminator values.
const (
	recordVehicle  = "vehicle"
	recordService  = "service"
	recordDocument = "document"
	recordMileage  = "mileage"
)

// csvHeader is the superset header of the comprehensive CSV: one file
// carries all four record types, discriminated by the record_type column,
// with non-applicable columns left empty per row. Shared column names
// (vehicle_name, notes, mileage) serve every type that uses them.
var csvHeader = []string{
	"record_type",
	"vehicle_name", "make", "model", "year", "vehicle_type", "vin",
	"plate_number", "mileage", "tab_expiration", "status", "notes",
	"purchase_price", "purchase_date", "nickname", "maintenance_notes",
	"estimated_value", "sale_info_type", "sale_info_date",
	"sale_info_amount", "sale_info_notes",
	"service_date", "service_title", "service_description", "service_cost",
	"service_odometer", "service_shop", "service_category",
	"service_receipt_files",
	"document_title", "document_type", "document_expiration",
	"document_file_name", "document_file_type",
	"recorded_date",
}

// VehicleRow is one record_type=vehicle line. All fields are the literal
// CSV cell values; conversions to and from domain types live on the row.
type VehicleRow struct {
	VehicleName, Make, Model, Year, VehicleType, VIN, PlateNumber,
	Mileage, TabExpiration, Status, Notes, PurchasePrice, PurchaseDate,
	Nickname, MaintenanceNotes, EstimatedValue,
	SaleInfoType, SaleInfoDate, SaleInfoAmount, SaleInfoNotes string
}

// ServiceRow is one record_type=service line. ReceiptFiles is a
// comma-joined list of file names resolved against receipts/<vehicle>/.
type ServiceRow struct {
	VehicleName, Date, Title, Description, Cost, Odometer, Shop,
	Category, ReceiptFiles string
}

// DocumentRow is one record_type=document line. Cost has no CSV column; it
// rides the JSON snapshot only and is populated when a snapshot is merged
// into the commit set.
type DocumentRow struct {
	VehicleName, Title, Type, Expiration, Notes, FileName, FileType string

	Cost *float64
}

// MileageRow is one record_type=mileage line.
type MileageRow struct {
	VehicleName, Mileage, RecordedDate, Notes string
}

// CSVData is the comprehensive CSV split by record type.
type CSVData struct {
	Vehicles  []VehicleRow
	Services  []ServiceRow
	Documents []DocumentRow
	Mileage   []MileageRow
}

// EncodeCSV serializes d into comprehensive CSV bytes, vehicles first, then
// services, documents, and mileage, preserving slice order within each type.
func EncodeCSV(d CSVData) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	//nolint:errcheck — bytes.Buffer writes never fail.
	w.Write(csvHeader)
	for _, r := range d.Vehicles {
		w.Write(rowToRecord(map[string]string{
			"record_type": recordVehicle, "vehicle_name": r.VehicleName,
			"make": r.Make, "model": r.Model, "year": r.Year,
			"vehicle_type": r.VehicleType, "vin": r.VIN,
			"plate_number": r.PlateNumber, "mileage": r.Mileage,
			"tab_expiration": r.TabExpiration, "status": r.Status,
			"notes": r.Notes, "purchase_price": r.PurchasePrice,
			"purchase_date": r.PurchaseDate, "nickname": r.Nickname,
			"maintenance_notes": r.MaintenanceNotes,
			"estimated_value":   r.EstimatedValue,
			"sale_info_type":    r.SaleInfoType, "sale_info_date": r.SaleInfoDate,
			"sale_info_amount": r.SaleInfoAmount, "sale_info_notes": r.SaleInfoNotes,
		}))
	}
	for _, r := range d.Services {
		w.Write(rowToRecord(map[string]string{
			"record_type": recordService, "vehicle_name": r.VehicleName,
			"service_date": r.Date, "service_title": r.Title,
			"service_description": r.Description, "service_cost": r.Cost,
			"service_odometer": r.Odometer, "service_shop": r.Shop,
			"service_category":      r.Category,
			"service_receipt_files": r.ReceiptFiles,
		}))
	}
	for _, r := range d.Documents {
		w.Write(rowToRecord(map[string]string{
			"record_type": recordDocument, "vehicle_name": r.VehicleName,
			"document_title": r.Title, "document_type": r.Type,
			"document_expiration": r.Expiration, "notes": r.Notes,
			"document_file_name": r.FileName, "document_file_type": r.FileType,
		}))
	}
	for _, r := range d.Mileage {
		w.Write(rowToRecord(map[string]string{
			"record_type": recordMileage, "vehicle_name": r.VehicleName,
			"mileage": r.Mileage, "recorded_date": r.RecordedDate,
			"notes": r.Notes,
		}))
	}
	w.Flush()
	return buf.Bytes()
}

// DecodeCSV parses comprehensive CSV bytes and splits the rows by their
// record_type. Column position is irrelevant — cells are read by header
// name, so older exports with fewer columns still decode.
// Returns domain.ErrFormat when the payload has no record_type column.
func DecodeCSV(data []byte) (CSVData, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return CSVData{}, fmt.Errorf("archive.DecodeCSV: read header: %w", domain.ErrFormat)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.ToLower(h))] = i
	}
	if _, ok := idx["record_type"]; !ok {
		return CSVData{}, fmt.Errorf("archive.DecodeCSV: no record_type column: %w", domain.ErrFormat)
	}

	var out CSVData
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// One mangled line must not sink the whole archive.
			continue
		}
		cell := func(name string) string {
			i, ok := idx[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		switch cell("record_type") {
		case recordVehicle:
			out.Vehicles = append(out.Vehicles, VehicleRow{
				VehicleName: cell("vehicle_name"), Make: cell("make"),
				Model: cell("model"), Year: cell("year"),
				VehicleType: cell("vehicle_type"), VIN: cell("vin"),
				PlateNumber: cell("plate_number"), Mileage: cell("mileage"),
				TabExpiration: cell("tab_expiration"), Status: cell("status"),
				Notes:         cell("notes"),
				PurchasePrice: cell("purchase_price"),
				PurchaseDate:  cell("purchase_date"), Nickname: cell("nickname"),
				MaintenanceNotes: cell("maintenance_notes"),
				EstimatedValue:   cell("estimated_value"),
				SaleInfoType:     cell("sale_info_type"),
				SaleInfoDate:     cell("sale_info_date"),
				SaleInfoAmount:   cell("sale_info_amount"),
				SaleInfoNotes:    cell("sale_info_notes"),
			})
		case recordService:
			out.Services = append(out.Services, ServiceRow{
				VehicleName: cell("vehicle_name"), Date: cell("service_date"),
				Title:       cell("service_title"),
				Description: cell("service_description"),
				Cost:        cell("service_cost"), Odometer: cell("service_odometer"),
				Shop: cell("service_shop"), Category: cell("service_category"),
				ReceiptFiles: cell("service_receipt_files"),
			})
		case recordDocument:
			out.Documents = append(out.Documents, DocumentRow{
				VehicleName: cell("vehicle_name"), Title: cell("document_title"),
				Type:       cell("document_type"),
				Expiration: cell("document_expiration"), Notes: cell("notes"),
				FileName: cell("document_file_name"),
				FileType: cell("document_file_type"),
			})
		case recordMileage:
			out.Mileage = append(out.Mileage, MileageRow{
				VehicleName: cell("vehicle_name"), Mileage: cell("mileage"),
				RecordedDate: cell("recorded_date"), Notes: cell("notes"),
			})
		}
	}
	return out, nil
}

// IsComprehensiveCSV reports whether data looks like our interchange CSV,
// i.e. its header carries a record_type column.
func IsComprehensiveCSV(data []byte) bool {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return false
	}
	for _, h := range header {
		if strings.TrimSpace(strings.ToLower(h)) == "record_type" {
			return true
		}
	}
	return false
}

// rowToRecord lays out named cells in csvHeader order.
func rowToRecord(cells map[string]string) []string {
	record := make([]string, len(csvHeader))
	for i, name := range csvHeader {
		record[i] = cells[name]
	}
	return record
}

// ---- domain conversions ----------------------------------------------------

// VehicleRowFromDomain flattens a vehicle into its CSV row form.
func VehicleRowFromDomain(v domain.Vehicle) VehicleRow {
	row := VehicleRow{
		VehicleName: v.Name, Make: v.Make, Model: v.Model,
		VehicleType: string(v.Type), VIN: v.VIN, PlateNumber: v.PlateNumber,
		Status: string(v.Status), Notes: v.Notes, Nickname: v.Nickname,
		MaintenanceNotes: v.MaintenanceNotes,
	}
	if v.Year != 0 {
		row.Year = strconv.Itoa(v.Year)
	}
	if v.Mileage != 0 {
		row.Mileage = strconv.Itoa(v.Mileage)
	}
	if v.TabExpiration != nil {
		row.TabExpiration = v.TabExpiration.Format("2006-01-02")
	}
	if v.PurchasePrice != nil {
		row.PurchasePrice = formatFloat(*v.PurchasePrice)
	}
	if v.PurchaseDate != nil {
		row.PurchaseDate = v.PurchaseDate.Format("2006-01-02")
	}
	if v.EstimatedValue != nil {
		row.EstimatedValue = formatFloat(*v.EstimatedValue)
	}
	if v.SaleInfo != nil {
		row.SaleInfoType = v.SaleInfo.Type
		row.SaleInfoDate = v.SaleInfo.Date
		if v.SaleInfo.Amount != 0 {
			row.SaleInfoAmount = formatFloat(v.SaleInfo.Amount)
		}
		row.SaleInfoNotes = v.SaleInfo.Notes
	}
	return row
}

// ToDomain materializes the row into a vehicle. Unparseable optional cells
// degrade to zero values rather than failing the row; only a missing name
// makes the row unusable, which the caller checks.
func (r VehicleRow) ToDomain() domain.Vehicle {
	v := domain.Vehicle{
		Name: r.VehicleName, Make: r.Make, Model: r.Model,
		Type: domain.ParseVehicleType(r.VehicleType), VIN: r.VIN,
		PlateNumber: r.PlateNumber, Nickname: r.Nickname,
		MaintenanceNotes: r.MaintenanceNotes,
	}
	if y, err := strconv.Atoi(r.Year); err == nil {
		v.Year = y
	}
	if m, err := strconv.Atoi(r.Mileage); err == nil {
		v.Mileage = m
	}
	v.TabExpiration = parseDatePtr(r.TabExpiration)
	v.PurchaseDate = parseDatePtr(r.PurchaseDate)
	if p, err := strconv.ParseFloat(r.PurchasePrice, 64); err == nil {
		v.PurchasePrice = &p
	}
	if p, err := strconv.ParseFloat(r.EstimatedValue, 64); err == nil {
		v.EstimatedValue = &p
	}

	// Explicit status wins; otherwise look for a SOLD/TRADED notes prefix,
	// which is how loose exports round-trip status through free text.
	if r.Status != "" {
		v.Status = domain.ParseVehicleStatus(r.Status)
		v.Notes = r.Notes
	} else {
		ex := csvmap.ExtractStatusFromNotes(r.Notes)
		v.Status = ex.Status
		v.SaleInfo = ex.SaleInfo
		v.Notes = ex.Notes
	}
	if r.SaleInfoType != "" {
		info := &domain.SaleInfo{Type: r.SaleInfoType, Notes: r.SaleInfoNotes}
		if d, err := csvmap.ParseFlexibleDate(r.SaleInfoDate); err == nil {
			info.Date = d
		}
		if a, err := strconv.ParseFloat(r.SaleInfoAmount, 64); err == nil {
			info.Amount = a
		}
		v.SaleInfo = info
	}
	return v
}

// ReceiptFileList splits the comma-joined receipt file names.
func (r ServiceRow) ReceiptFileList() []string {
	if strings.TrimSpace(r.ReceiptFiles) == "" {
		return nil
	}
	var out []string
	for _, name := range strings.Split(r.ReceiptFiles, ",") {
		if t := strings.TrimSpace(name); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// parseDatePtr parses a flexible date cell into a *time.Time, nil when
// empty or unparseable.
func parseDatePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	d, err := csvmap.ParseFlexibleDate(s)
	if err != nil {
		return nil
	}
	t, err := csvmap.ParseCanonicalDate(d)
	if err != nil {
		return nil
	}
	return &t
}

// formatFloat renders a money/value cell without trailing zeros.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

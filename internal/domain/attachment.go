package domain

import (
	"time"

	"github.com/google/uuid"
)

// Photo is one gallery image belonging to a vehicle.
// DisplayOrder defines gallery position and stays contiguous per vehicle;
// import assigns new photos sequentially after the current maximum.
// At most one photo per vehicle should have IsShowcase set — enforced by
// convention in the service layer, not by a database constraint.
type Photo struct {
	ID           uuid.UUID
	VehicleID    uuid.UUID
	StoragePath  string
	FileName     string
	Caption      string
	DisplayOrder int
	IsShowcase   bool
	CreatedAt    time.Time
}

// DocumentType classifies a vehicle document.
type DocumentType string

// Valid document types.
const (
	DocTitle        DocumentType = "title"
	DocRegistration DocumentType = "registration"
	DocInsurance    DocumentType = "insurance"
	DocReceipt      DocumentType = "receipt"
	DocManual       DocumentType = "manual"
	DocOther        DocumentType = "other"
)

// ParseDocumentType maps a free-form string to a DocumentType, falling back
// to DocOther for anything unrecognized.
func ParseDocumentType(s string) DocumentType {
	switch DocumentType(normalizeEnum(s)) {
	case DocTitle, DocRegistration, DocInsurance, DocReceipt, DocManual:
		return DocumentType(normalizeEnum(s))
	}
	return DocOther
}

// Document is a titled file attachment (title, registration, scan, ...)
// belonging to a vehicle. Import matches loose files to documents by
// title text, so Title is the soft key within one vehicle.
type Document struct {
	ID          uuid.UUID
	VehicleID   uuid.UUID
	Title       string
	Type        DocumentType
	Expiration  *time.Time
	Cost        *float64
	StoragePath string
	FileName    string
	MimeType    string
	Notes       string
	CreatedAt   time.Time
}

package csvmap

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkordes/garagekeeper/backend/internal/domain"
)

// salePrefix recognizes notes of the form
//
//	SOLD
//	SOLD 7/25/2024
//	TRADED 7/25/2024 - $12,000
//	sold $9500
//
// Group 1 is the verb, group 2 an optional date, group 3 an optional amount.
var salePrefix = regexp.MustCompile(`(?i)^\s*(SOLD|TRADED)\b[\s:\-]*([0-9][0-9/\-]*)?[\s:\-]*(?:\$\s*)?([\d,]+(?:\.\d+)?)?`)

// ExtractedStatus is the result of reading a sale/trade marker out of
// free-text notes.
type ExtractedStatus struct {
	Status   domain.VehicleStatus
	SaleInfo *domain.SaleInfo
	// Notes is the input with the recognized prefix stripped.
	Notes string
}

// ExtractStatusFromNotes derives a vehicle status and structured sale info
// from a notes value beginning with SOLD or TRADED, stripping the recognized
// prefix from the returned notes. This lets a status round-trip through
// free-text notes when the CSV has no explicit status column.
//
// Notes without a recognized prefix come back unchanged with StatusActive
// and nil SaleInfo.
func ExtractStatusFromNotes(notes string) ExtractedStatus {
	m := salePrefix.FindStringSubmatch(notes)
	if m == nil || m[1] == "" {
		return ExtractedStatus{Status: domain.StatusActive, Notes: notes}
	}

	status := domain.StatusSold
	if strings.EqualFold(m[1], "TRADED") {
		status = domain.StatusTraded
	}

	info := &domain.SaleInfo{Type: string(status)}
	if m[2] != "" {
		if d, err := ParseFlexibleDate(m[2]); err == nil {
			info.Date = d
		} else if m[3] == "" {
			// "SOLD 12000": with no dollar sign, a bare amount lands in the
			// date group. A group that is not a date is read as the amount.
			if amt, err := strconv.ParseFloat(m[2], 64); err == nil {
				info.Amount = amt
			}
		}
	}
	if m[3] != "" {
		raw := strings.ReplaceAll(m[3], ",", "")
		if amt, err := strconv.ParseFloat(raw, 64); err == nil {
			info.Amount = amt
		}
	}

	rest := strings.TrimSpace(notes[len(m[0]):])
	rest = strings.TrimLeft(rest, "-–: ")
	return ExtractedStatus{Status: status, SaleInfo: info, Notes: strings.TrimSpace(rest)}
}

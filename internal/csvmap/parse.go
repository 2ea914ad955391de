package csvmap

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkordes/garagekeeper/backend/internal/domain"
)

// RowIssue describes why a CSV row was excluded from the commit set.
// Line is 1-based and counts physical CSV lines including any banner.
type RowIssue struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ParseResult is the outcome of parsing one loose CSV.
// Vehicles holds the importable rows; Issues the excluded ones. Mapping is
// the auto-detected column mapping so the caller can show it for override.
type ParseResult struct {
	Vehicles []domain.Vehicle
	Issues   []RowIssue
	Mapping  map[Field]int
	Headers  []string
}

// Parse reads a loose vehicle CSV: detects and drops a banner row, auto-maps
// the header (unless overrideMapping is non-nil, in which case it is used
// as-is), and maps every data row to a vehicle. Rows missing a name or with
// fewer than two non-empty cells are excluded and reported as issues.
//
// Returns domain.ErrFormat when the payload has no usable header.
func Parse(data []byte, overrideMapping map[Field]int) (ParseResult, error) {
	lineOffset := 0
	if hasPreamble(data) {
		// Drop only the first physical line; the rest goes to encoding/csv
		// untouched so quoted multi-line cells still parse.
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			data = data[i+1:]
			lineOffset = 1
		}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return ParseResult{}, fmt.Errorf("csvmap.Parse: no header line: %w", domain.ErrFormat)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1 // user CSVs have ragged rows; tolerate them

	headers, err := r.Read()
	if err != nil {
		return ParseResult{}, fmt.Errorf("csvmap.Parse: read header: %w", domain.ErrFormat)
	}

	mapping := overrideMapping
	if mapping == nil {
		mapping = MapHeaders(headers)
	}
	if _, ok := mapping[FieldName]; !ok {
		return ParseResult{}, fmt.Errorf("csvmap.Parse: no column maps to the vehicle name: %w", domain.ErrFormat)
	}

	result := ParseResult{Mapping: mapping, Headers: headers}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := lineOffset
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				line += perr.Line
			}
			result.Issues = append(result.Issues, RowIssue{Line: line, Reason: "unparseable row"})
			continue
		}
		line, _ := r.FieldPos(0)
		line += lineOffset
		if countNonEmpty(record) < 2 {
			// Guards against trailing blank rows and stray single-cell lines.
			continue
		}
		v, issue := mapRow(record, mapping)
		if issue != "" {
			result.Issues = append(result.Issues, RowIssue{Line: line, Reason: issue})
			continue
		}
		result.Vehicles = append(result.Vehicles, v)
	}
	return result, nil
}

// hasPreamble reports whether the first line is a title/banner row rather
// than a header: either it has no commas at all, or fewer than half the
// commas of the second line.
func hasPreamble(data []byte) bool {
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return false
	}
	first := bytes.Count(data[:i], []byte(","))
	rest := data[i+1:]
	j := bytes.IndexByte(rest, '\n')
	if j < 0 {
		j = len(rest)
	}
	second := bytes.Count(rest[:j], []byte(","))
	if first == 0 {
		return second > 0
	}
	return first*2 < second
}

// mapRow materializes one CSV record into a vehicle via the column mapping.
// Returns a non-empty issue string when the row must be excluded.
func mapRow(record []string, mapping map[Field]int) (domain.Vehicle, string) {
	cell := func(f Field) string {
		idx, ok := mapping[f]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	name := cell(FieldName)
	if name == "" {
		return domain.Vehicle{}, "missing vehicle name"
	}

	v := domain.Vehicle{
		Name:             name,
		Make:             cell(FieldMake),
		Model:            cell(FieldModel),
		Type:             domain.ParseVehicleType(cell(FieldType)),
		VIN:              cell(FieldVIN),
		PlateNumber:      cell(FieldPlateNumber),
		Nickname:         cell(FieldNickname),
		MaintenanceNotes: cell(FieldMaintenanceNotes),
		Status:           domain.StatusActive,
	}

	if s := cell(FieldYear); s != "" {
		if y, err := strconv.Atoi(s); err == nil {
			v.Year = y
		}
	}
	if s := cell(FieldMileage); s != "" {
		if m, err := strconv.Atoi(stripThousands(s)); err == nil {
			v.Mileage = m
		}
	}
	if s := cell(FieldPurchasePrice); s != "" {
		if p, err := parseMoney(s); err == nil {
			v.PurchasePrice = &p
		}
	}
	if s := cell(FieldEstimatedValue); s != "" {
		if p, err := parseMoney(s); err == nil {
			v.EstimatedValue = &p
		}
	}
	if s := cell(FieldPurchaseDate); s != "" {
		if d, err := ParseFlexibleDate(s); err == nil {
			if t, err := ParseCanonicalDate(d); err == nil {
				v.PurchaseDate = &t
			}
		}
	}
	if s := cell(FieldTabExpiration); s != "" {
		if d, err := ParseFlexibleDate(s); err == nil {
			if t, err := ParseCanonicalDate(d); err == nil {
				v.TabExpiration = &t
			}
		}
	}

	// Explicit status column wins; otherwise a SOLD/TRADED prefix in the
	// notes derives the status and the prefix is stripped from what we store.
	notes := cell(FieldNotes)
	if s := cell(FieldStatus); s != "" {
		v.Status = domain.ParseVehicleStatus(s)
		v.Notes = notes
	} else {
		ex := ExtractStatusFromNotes(notes)
		v.Status = ex.Status
		v.SaleInfo = ex.SaleInfo
		v.Notes = ex.Notes
	}

	return v, ""
}

// countNonEmpty returns how many cells in the record are non-blank.
func countNonEmpty(record []string) int {
	n := 0
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return n
}

// stripThousands drops commas so "12,450" parses as an integer.
func stripThousands(s string) string {
	return strings.ReplaceAll(s, ",", "")
}

// parseMoney parses "$12,000.50" style cells.
func parseMoney(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	return strconv.ParseFloat(stripThousands(s), 64)
}

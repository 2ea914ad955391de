// Package csvmap turns loose, user-authored CSVs into vehicle rows.
// It owns header auto-mapping, banner-row detection, flexible date parsing,
// and the notes-based status extractor. Nothing here touches the database.
package csvmap

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// canonicalDate is the normalized date form used everywhere downstream.
const canonicalDate = "2006-01-02"

// ParseFlexibleDate accepts the date shapes people actually type into
// spreadsheets — M/D, M/D/YY, M/D/YYYY, and ISO YYYY-MM-DD — and normalizes
// them to "2006-01-02". M/D with no year assumes the current year.
func ParseFlexibleDate(s string) (string, error) {
	return parseFlexibleDateAt(s, time.Now())
}

// parseFlexibleDateAt is ParseFlexibleDate with an injectable "now" so the
// year-less M/D form is testable.
func parseFlexibleDateAt(s string, now time.Time) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty date")
	}

	// ISO forms first: exact canonical, then full timestamps people paste
	// out of other tools.
	for _, layout := range []string{canonicalDate, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(canonicalDate), nil
		}
	}

	parts := strings.Split(s, "/")
	if len(parts) < 2 || len(parts) > 3 {
		return "", fmt.Errorf("unrecognized date %q", s)
	}

	month, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || month < 1 || month > 12 {
		return "", fmt.Errorf("unrecognized date %q", s)
	}
	day, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || day < 1 || day > 31 {
		return "", fmt.Errorf("unrecognized date %q", s)
	}

	year := now.Year()
	if len(parts) == 3 {
		y, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return "", fmt.Errorf("unrecognized date %q", s)
		}
		switch {
		case y < 100:
			year = 2000 + y
		default:
			year = y
		}
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (2/30 → 3/1 or 3/2); reject that rather
	// than silently storing a different day than the user wrote.
	if int(t.Month()) != month || t.Day() != day {
		return "", fmt.Errorf("impossible date %q", s)
	}
	return t.Format(canonicalDate), nil
}

// ParseCanonicalDate parses a "2006-01-02" string into a UTC time.
func ParseCanonicalDate(s string) (time.Time, error) {
	return time.Parse(canonicalDate, s)
}

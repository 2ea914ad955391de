// Package match implements the fuzzy identifier matching used by the import
// pipeline to bind loosely-named folders and files to vehicle and service
// records. All functions are pure — no I/O, deterministic for a given input.
package match

import (
	"math"
	"path/filepath"
	"strings"
	"unicode"
)

// AcceptanceFloor is the minimum confidence at which a match is proposed
// automatically. Anything below is surfaced unmatched and requires manual
// selection. The floor favors recall: a plausible match is always shown to
// the user for confirmation, never committed on its own.
const AcceptanceFloor = 50

// Normalize lowercases a label and strips everything but letters and digits.
// "2021 Honda CBR-650F" and "honda cbr 650f" normalize to comparable forms.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Score rates the similarity between a candidate label (folder or file name)
// and a target label (record name or title) on a 0..100 scale:
//
//	100 — identical after normalization
//	 85 — one normalized form contains the other
//	15..85 — proportional word-set overlap
//	  0 — nothing in common
func Score(candidate, target string) int {
	nc, nt := Normalize(candidate), Normalize(target)
	if nc == "" || nt == "" {
		return 0
	}
	if nc == nt {
		return 100
	}
	if strings.Contains(nc, nt) || strings.Contains(nt, nc) {
		return 85
	}

	cw := wordSet(candidate)
	tw := wordSet(target)
	overlap := 0
	for w := range cw {
		if tw[w] {
			overlap++
		}
	}
	if overlap == 0 {
		return 0
	}
	longest := len(cw)
	if len(tw) > longest {
		longest = len(tw)
	}
	return int(math.Round(float64(overlap)/float64(longest)*70)) + 15
}

// Candidate is one proposed binding produced by Best or FileToRecord.
type Candidate struct {
	Index      int // position in the caller's candidate slice
	Confidence int // 0..100
}

// Best scores label against every target and returns the highest-scoring
// candidate at or above AcceptanceFloor. Ties resolve to the first target
// encountered, so the caller's ordering (typically alphabetical) is the
// tiebreak. Returns ok=false when nothing clears the floor.
func Best(label string, targets []string) (Candidate, bool) {
	best := Candidate{Index: -1}
	for i, t := range targets {
		if s := Score(label, t); s > best.Confidence {
			best = Candidate{Index: i, Confidence: s}
		}
	}
	if best.Confidence < AcceptanceFloor {
		return Candidate{Index: -1}, false
	}
	return best, true
}

// FileToRecord matches a file to one of a set of record titles by its base
// name with the extension stripped. "Oil Change.pdf" is scored as "Oil Change".
func FileToRecord(fileName string, titles []string) (Candidate, bool) {
	base := filepath.Base(fileName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return Best(base, titles)
}

// wordSet splits the original (un-normalized) label on whitespace and
// returns the set of normalized words. Words that normalize to nothing
// (pure punctuation) are dropped.
func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		if n := Normalize(w); n != "" {
			set[n] = true
		}
	}
	return set
}

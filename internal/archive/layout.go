package archive

import (
	"path"
	"strings"
)

// Layout identifies which of the two supported on-disk generations an
// uploaded archive uses. Detection happens at read time from the member
// path list — archives carry no version field.
type Layout int

// Supported layouts.
const (
	LayoutUnknown Layout = iota
	// LayoutFlat is the current generation: top-level images/, documents/,
	// and receipts/ folders, each with one subfolder per vehicle.
	LayoutFlat
	// LayoutLegacy is the original generation: a motorcycles/ folder with
	// one subfolder per vehicle, each holding images/{photos,documents,receipts}.
	LayoutLegacy
)

// legacyMarker is the path segment that identifies a legacy archive.
const legacyMarker = "motorcycles"

// flatMarkers are the path segments that identify a flat archive and the
// attachment type each maps to.
var flatMarkers = map[string]attachmentKind{
	"images":    kindPhoto,
	"documents": kindDocument,
	"receipts":  kindReceipt,
}

type attachmentKind int

const (
	kindPhoto attachmentKind = iota
	kindDocument
	kindReceipt
)

// IsJunkPath reports whether a zip member should always be discarded:
// anything under __MACOSX, and dot/AppleDouble files (".", "._" prefixes).
func IsJunkPath(p string) bool {
	for _, seg := range strings.Split(path.Clean(p), "/") {
		if seg == "__MACOSX" {
			return true
		}
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// DetectLayout classifies an archive by its member paths and infers the
// root prefix (everything preceding the first recognized marker segment).
// A legacy marker anywhere wins over flat markers. Junk paths are ignored.
func DetectLayout(paths []string) (Layout, string) {
	// Legacy wins over flat: legacy archives contain images/ segments too
	// (motorcycles/<vehicle>/images/photos), so scan for the legacy marker
	// across all paths before concluding flat.
	for _, p := range paths {
		if IsJunkPath(p) {
			continue
		}
		segs := strings.Split(path.Clean(p), "/")
		for i, seg := range segs {
			if seg == legacyMarker {
				return LayoutLegacy, strings.Join(segs[:i], "/")
			}
		}
	}
	for _, p := range paths {
		if IsJunkPath(p) {
			continue
		}
		segs := strings.Split(path.Clean(p), "/")
		for i, seg := range segs {
			if _, ok := flatMarkers[seg]; ok {
				return LayoutFlat, strings.Join(segs[:i], "/")
			}
		}
	}
	return LayoutUnknown, ""
}

// stripPrefix removes the inferred root prefix from a member path and
// returns the remaining segments. ok is false when the path does not sit
// under the prefix.
func stripPrefix(p, prefix string) ([]string, bool) {
	clean := path.Clean(p)
	if prefix != "" {
		if !strings.HasPrefix(clean, prefix+"/") {
			return nil, false
		}
		clean = clean[len(prefix)+1:]
	}
	if clean == "" || clean == "." {
		return nil, false
	}
	return strings.Split(clean, "/"), true
}

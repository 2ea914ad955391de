package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/pkordes/garagekeeper/backend/internal/domain"
)

// Archive member directories under the root, current (flat) generation.
const (
	dirVehicleData = "vehicle-data"
	dirImages      = "images"
	dirDocuments   = "documents"
	dirReceipts    = "receipts"

	// ReportFileName is the export-report.json member carrying the skip list.
	ReportFileName = "export-report.json"
)

// legacy nested subfolder names under motorcycles/<vehicle>/images/.
const (
	legacyPhotos    = "photos"
	legacyDocuments = "documents"
	legacyReceipts  = "receipts"
)

// Write serializes a Bundle into zip bytes under the given root folder name.
// Member order follows Bundle.Folders, then csv and report, so two exports
// of the same data produce byte-comparable layouts.
func Write(b *Bundle, root string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	add := func(name string, data []byte) error {
		w, err := zw.Create(path.Join(root, name))
		if err != nil {
			return fmt.Errorf("archive.Write: create %s: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("archive.Write: write %s: %w", name, err)
		}
		return nil
	}

	for _, f := range b.Folders {
		if f.Snapshot != nil {
			data, err := EncodeSnapshot(*f.Snapshot)
			if err != nil {
				return nil, err
			}
			if err := add(path.Join(dirVehicleData, f.Folder+".json"), data); err != nil {
				return nil, err
			}
		}
		for _, p := range f.Photos {
			if err := add(path.Join(dirImages, f.Folder, p.Name), p.Data); err != nil {
				return nil, err
			}
		}
		for _, d := range f.Documents {
			if err := add(path.Join(dirDocuments, f.Folder, d.Name), d.Data); err != nil {
				return nil, err
			}
		}
		for _, r := range f.Receipts {
			if err := add(path.Join(dirReceipts, f.Folder, r.Name), r.Data); err != nil {
				return nil, err
			}
		}
	}

	if b.CSV != nil {
		if err := add(CSVFileName, b.CSV); err != nil {
			return nil, err
		}
	}
	if b.Report != nil {
		if err := add(ReportFileName, b.Report); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("archive.Write: close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// Read parses uploaded zip bytes into a normalized Bundle, detecting which
// layout generation the archive uses. Regardless of layout the result is
// the same shape: one VehicleFolder per vehicle with photos, documents, and
// receipts file lists, plus the comprehensive CSV and any vehicle-data
// snapshots found.
//
// Returns domain.ErrFormat when the bytes are not a zip, or when the
// archive contains neither a recognizable layout, a comprehensive CSV, nor
// a vehicle snapshot.
func Read(data []byte) (*Bundle, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("archive.Read: not a zip archive: %w", domain.ErrFormat)
	}

	var paths []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || IsJunkPath(f.Name) {
			continue
		}
		paths = append(paths, f.Name)
	}

	layout, prefix := DetectLayout(paths)
	b := &Bundle{}
	recognized := false

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || IsJunkPath(f.Name) {
			continue
		}
		content, err := readMember(f)
		if err != nil {
			return nil, err
		}

		segs, ok := stripPrefix(f.Name, prefix)
		if !ok {
			segs = strings.Split(path.Clean(f.Name), "/")
		}

		switch {
		case isCSVMember(segs, f.Name):
			if IsComprehensiveCSV(content) || b.CSV == nil {
				b.CSV = content
			}
			recognized = true
		case hasSegment(segs[:len(segs)-1], dirVehicleData) && strings.HasSuffix(segs[len(segs)-1], ".json"):
			snap, err := DecodeSnapshot(content)
			if err != nil {
				continue // a corrupt snapshot must not sink the rest
			}
			folder := strings.TrimSuffix(segs[len(segs)-1], ".json")
			b.Folder(folder).Snapshot = snap
			recognized = true
		default:
			if placeAttachment(b, layout, segs, content) {
				recognized = true
			}
		}
	}

	if !recognized {
		return nil, fmt.Errorf("archive.Read: no recognizable archive content: %w", domain.ErrFormat)
	}
	return b, nil
}

// placeAttachment assigns one member to the right folder and file list for
// the detected layout. Returns false for members that belong to neither.
func placeAttachment(b *Bundle, layout Layout, segs []string, content []byte) bool {
	switch layout {
	case LayoutFlat:
		// <marker>/<vehicle>/<file...>
		if len(segs) < 3 {
			return false
		}
		kind, ok := flatMarkers[segs[0]]
		if !ok {
			return false
		}
		appendFile(b.Folder(segs[1]), kind, File{Name: segs[len(segs)-1], Data: content})
		return true

	case LayoutLegacy:
		// motorcycles/<vehicle>/images/{photos,documents,receipts}/<file...>
		if len(segs) < 5 || segs[0] != legacyMarker || segs[2] != dirImages {
			return false
		}
		var kind attachmentKind
		switch segs[3] {
		case legacyPhotos:
			kind = kindPhoto
		case legacyDocuments:
			kind = kindDocument
		case legacyReceipts:
			kind = kindReceipt
		default:
			return false
		}
		appendFile(b.Folder(segs[1]), kind, File{Name: segs[len(segs)-1], Data: content})
		return true
	}
	return false
}

// appendFile adds a file to the folder list matching kind.
func appendFile(f *VehicleFolder, kind attachmentKind, file File) {
	switch kind {
	case kindPhoto:
		f.Photos = append(f.Photos, file)
	case kindDocument:
		f.Documents = append(f.Documents, file)
	case kindReceipt:
		f.Receipts = append(f.Receipts, file)
	}
}

// isCSVMember recognizes the comprehensive CSV: a member under a csv/
// directory, or a .csv sitting at or directly under the root.
func isCSVMember(segs []string, full string) bool {
	if !strings.HasSuffix(strings.ToLower(full), ".csv") {
		return false
	}
	if hasSegment(segs[:len(segs)-1], "csv") {
		return true
	}
	return len(segs) <= 2
}

// hasSegment reports whether any path segment equals want.
func hasSegment(segs []string, want string) bool {
	for _, s := range segs {
		if s == want {
			return true
		}
	}
	return false
}

// readMember decompresses one zip member fully into memory.
func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("archive.Read: open %s: %w", f.Name, err)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("archive.Read: read %s: %w", f.Name, err)
	}
	return content, nil
}

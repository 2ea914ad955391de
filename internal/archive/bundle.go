// Package archive is the layout codec for portable collection archives.
// It converts between archive bytes (zip) and the in-memory Bundle, knows
// both supported on-disk layouts (flat and legacy nested), and owns the
// comprehensive CSV schema and the per-vehicle JSON snapshot format.
// Nothing in this package touches the database or object storage.
package archive

// File is one binary member of a vehicle folder. Name is the base file name
// only — the folder placement is implied by which list the file sits in.
type File struct {
	Name string
	Data []byte
}

// VehicleFolder groups everything exported or imported for one vehicle,
// keyed by its sanitized folder name.
type VehicleFolder struct {
	Folder    string
	Snapshot  *Snapshot // parsed vehicle-data JSON; nil when absent
	Photos    []File
	Documents []File
	Receipts  []File
}

// Bundle is the transient in-memory unit the codec produces and consumes.
// It exists only for the duration of one export or import operation and is
// never persisted. Folders preserves insertion order so zip layout and
// import processing are deterministic.
type Bundle struct {
	Folders []*VehicleFolder

	// CSV is the comprehensive CSV payload. Present on every export; on
	// import it is nil when the upload carried no structured CSV.
	CSV []byte

	// Report is the export-report.json payload (skip list). Export only.
	Report []byte

	byFolder map[string]*VehicleFolder
}

// Folder returns the VehicleFolder for name, creating it on first use.
func (b *Bundle) Folder(name string) *VehicleFolder {
	if b.byFolder == nil {
		b.byFolder = make(map[string]*VehicleFolder)
	}
	if f, ok := b.byFolder[name]; ok {
		return f
	}
	f := &VehicleFolder{Folder: name}
	b.byFolder[name] = f
	b.Folders = append(b.Folders, f)
	return f
}

// Lookup returns the VehicleFolder for name without creating it.
func (b *Bundle) Lookup(name string) (*VehicleFolder, bool) {
	f, ok := b.byFolder[name]
	return f, ok
}

// FileCount returns the total number of binary members across all folders.
func (b *Bundle) FileCount() int {
	n := 0
	for _, f := range b.Folders {
		n += len(f.Photos) + len(f.Documents) + len(f.Receipts)
	}
	return n
}

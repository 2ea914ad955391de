package service

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/pkordes/garagekeeper/backend/internal/archive"
	"github.com/pkordes/garagekeeper/backend/internal/csvmap"
	"github.com/pkordes/garagekeeper/backend/internal/domain"
	"github.com/pkordes/garagekeeper/backend/internal/match"
	"github.com/pkordes/garagekeeper/backend/internal/repo"
)

// AttachKind says what the files of a loose folder submission are.
// The wizard asks the user; it cannot be inferred from the files alone.
type AttachKind string

// Valid attach kinds.
const (
	AttachPhotos    AttachKind = "photos"
	AttachDocuments AttachKind = "documents"
	AttachReceipts  AttachKind = "receipts"
)

// LooseFile is one file from a dropped folder tree, with its relative path.
type LooseFile struct {
	Path string
	Data []byte
}

// Upload is the raw material of one import: a structured archive, or a
// loose CSV and/or folder tree. Exactly one of Archive and (CSV, Files)
// should be populated.
type Upload struct {
	Archive []byte
	CSV     []byte
	Files   []LooseFile
	Target  AttachKind
}

// FolderBinding is one proposed folder-to-vehicle match. A write is never
// committed from Proposed alone — always from Resolved after the user has
// had the chance to override.
type FolderBinding struct {
	Folder     string     `json:"folder"`
	Proposed   *uuid.UUID `json:"proposed,omitempty"`
	Confidence int        `json:"confidence"`
	Override   *uuid.UUID `json:"override,omitempty"`
}

// Resolved returns the vehicle this folder binds to: the override when set,
// otherwise the proposal. ok=false means the folder is unbound and its
// files are skipped at commit.
func (b FolderBinding) Resolved() (uuid.UUID, bool) {
	if b.Override != nil {
		return *b.Override, true
	}
	if b.Proposed != nil {
		return *b.Proposed, true
	}
	return uuid.UUID{}, false
}

// ReceiptBinding is one proposed file-to-service-record match inside a
// bound vehicle folder.
type ReceiptBinding struct {
	Folder     string     `json:"folder"`
	FileName   string     `json:"fileName"`
	Proposed   *uuid.UUID `json:"proposed,omitempty"`
	Confidence int        `json:"confidence"`
	Override   *uuid.UUID `json:"override,omitempty"`
}

// Resolved returns the service record this file binds to.
func (b ReceiptBinding) Resolved() (uuid.UUID, bool) {
	if b.Override != nil {
		return *b.Override, true
	}
	if b.Proposed != nil {
		return *b.Proposed, true
	}
	return uuid.UUID{}, false
}

// Analysis is everything the wizard needs to show before commit: the parsed
// rows, the match plan, the row issues, and the capacity facts. The handler
// stages it between the analyze and commit calls.
type Analysis struct {
	// FromArchive distinguishes the structured-archive path from the loose
	// CSV/folder path.
	FromArchive bool

	// Bundle holds the binary files, keyed by folder. For the loose path
	// each folder's files sit in the list matching Target.
	Bundle *archive.Bundle

	// Data is the commit set: vehicles plus dependent rows. On the archive
	// path snapshots are merged in for folders the CSV does not cover.
	Data archive.CSVData

	// NewVehicles are the importable vehicle rows, in input order.
	NewVehicles []domain.Vehicle

	// Issues are rows excluded from NewVehicles, with line and reason.
	Issues []csvmap.RowIssue

	// Mapping and Headers expose the loose-CSV column mapping for override.
	Mapping map[csvmap.Field]int
	Headers []string

	// Folders and Receipts are the match plan for loose folder trees.
	Folders  []FolderBinding
	Receipts []ReceiptBinding

	Target AttachKind

	// RequiredSlots is how many new vehicles the commit would create;
	// Plan is the capacity fact it is checked against.
	RequiredSlots int
	Plan          domain.PlanInfo
}

// ImportService reconciles uploaded bytes against the existing collection,
// producing an Analysis for the user to confirm. Nothing here writes.
type ImportService struct {
	vehicles repo.VehicleRepo
	services repo.ServiceRecordRepo
	plan     PlanLookup
}

// NewImportService constructs an ImportService.
func NewImportService(vehicles repo.VehicleRepo, services repo.ServiceRecordRepo, plan PlanLookup) *ImportService {
	return &ImportService{vehicles: vehicles, services: services, plan: plan}
}

// Analyze parses the upload and builds the match plan.
// overrideMapping, when non-nil, replaces the auto-detected loose-CSV
// column mapping (the user corrected it and re-ran the analysis).
//
// Returns domain.ErrFormat when the upload carries nothing recognizable.
func (s *ImportService) Analyze(ctx context.Context, up Upload, overrideMapping map[csvmap.Field]int) (*Analysis, error) {
	var a *Analysis
	var err error

	switch {
	case len(up.Archive) > 0:
		a, err = s.analyzeArchive(up.Archive)
	case len(up.CSV) > 0 || len(up.Files) > 0:
		a, err = s.analyzeLoose(ctx, up, overrideMapping)
	default:
		return nil, fmt.Errorf("service.ImportService.Analyze: empty upload: %w", domain.ErrFormat)
	}
	if err != nil {
		return nil, err
	}

	a.RequiredSlots = len(a.NewVehicles)
	plan, err := s.plan.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.ImportService.Analyze: plan lookup: %w", err)
	}
	a.Plan = plan
	return a, nil
}

// analyzeArchive handles the structured-archive path. Vehicle names inside
// the archive are authoritative identifiers assigned at export time, so no
// folder matching happens here.
func (s *ImportService) analyzeArchive(data []byte) (*Analysis, error) {
	b, err := archive.Read(data)
	if err != nil {
		return nil, fmt.Errorf("service.ImportService.Analyze: %w", err)
	}

	a := &Analysis{FromArchive: true, Bundle: b}

	if b.CSV != nil {
		d, err := archive.DecodeCSV(b.CSV)
		if err != nil {
			return nil, fmt.Errorf("service.ImportService.Analyze: %w", err)
		}
		a.Data = d
	}

	// Snapshots cover folders the CSV misses (single-vehicle exports, or
	// archives carrying no CSV at all). The CSV row wins when both exist.
	seen := make(map[string]bool, len(a.Data.Vehicles))
	for _, row := range a.Data.Vehicles {
		seen[archive.SanitizeFolderName(row.VehicleName)] = true
	}
	for _, f := range b.Folders {
		if f.Snapshot == nil || seen[f.Folder] {
			continue
		}
		mergeSnapshot(&a.Data, f.Snapshot)
	}

	for i, row := range a.Data.Vehicles {
		v := row.ToDomain()
		if v.Name == "" {
			a.Issues = append(a.Issues, csvmap.RowIssue{Line: i + 2, Reason: "missing vehicle name"})
			continue
		}
		a.NewVehicles = append(a.NewVehicles, v)
	}
	return a, nil
}

// analyzeLoose handles plain CSVs and dropped folder trees.
func (s *ImportService) analyzeLoose(ctx context.Context, up Upload, overrideMapping map[csvmap.Field]int) (*Analysis, error) {
	a := &Analysis{Target: up.Target}
	if a.Target == "" {
		a.Target = AttachPhotos
	}

	if len(up.CSV) > 0 {
		res, err := csvmap.Parse(up.CSV, overrideMapping)
		if err != nil {
			return nil, fmt.Errorf("service.ImportService.Analyze: %w", err)
		}
		a.NewVehicles = res.Vehicles
		a.Issues = res.Issues
		a.Mapping = res.Mapping
		a.Headers = res.Headers
	}

	if len(up.Files) == 0 {
		return a, nil
	}

	existing, err := s.vehicles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.ImportService.Analyze: list vehicles: %w", err)
	}
	names := make([]string, len(existing))
	for i, v := range existing {
		names[i] = v.Name
	}

	a.Bundle = &archive.Bundle{}
	for _, folder := range groupByFolder(up.Files) {
		vf := a.Bundle.Folder(folder.name)
		for _, f := range folder.files {
			file := archive.File{Name: path.Base(f.Path), Data: f.Data}
			switch a.Target {
			case AttachDocuments:
				vf.Documents = append(vf.Documents, file)
			case AttachReceipts:
				vf.Receipts = append(vf.Receipts, file)
			default:
				vf.Photos = append(vf.Photos, file)
			}
		}

		binding := FolderBinding{Folder: folder.name}
		var boundTo *uuid.UUID
		if c, ok := match.Best(folder.name, names); ok {
			id := existing[c.Index].ID
			binding.Proposed = &id
			binding.Confidence = c.Confidence
			boundTo = &id
		}
		a.Folders = append(a.Folders, binding)

		// Every receipt file gets a binding, even in an unmatched folder:
		// a manual folder override can still bind its files, and commit
		// reports any left unresolved instead of dropping them.
		if a.Target == AttachReceipts {
			if err := s.proposeReceipts(ctx, a, vf, boundTo); err != nil {
				return nil, err
			}
		}
	}
	return a, nil
}

// proposeReceipts emits one binding per file in the folder. When the folder
// is bound to a vehicle, each file is scored against that vehicle's existing
// service-record titles; otherwise the bindings carry no proposal.
func (s *ImportService) proposeReceipts(ctx context.Context, a *Analysis, vf *archive.VehicleFolder, vehicleID *uuid.UUID) error {
	var records []domain.ServiceRecord
	if vehicleID != nil {
		var err error
		records, err = s.services.ListByVehicle(ctx, *vehicleID)
		if err != nil {
			return fmt.Errorf("service.ImportService.Analyze: list service records: %w", err)
		}
	}
	titles := make([]string, len(records))
	for i, r := range records {
		titles[i] = r.Title
	}

	for _, f := range vf.Receipts {
		binding := ReceiptBinding{Folder: vf.Folder, FileName: f.Name}
		if c, ok := match.FileToRecord(f.Name, titles); ok {
			id := records[c.Index].ID
			binding.Proposed = &id
			binding.Confidence = c.Confidence
		}
		a.Receipts = append(a.Receipts, binding)
	}
	return nil
}

// mergeSnapshot appends a snapshot's vehicle and children to the commit set
// as CSV-equivalent rows, so commit has a single input shape.
func mergeSnapshot(d *archive.CSVData, snap *archive.Snapshot) {
	sv := snap.Vehicle
	row := archive.VehicleRowFromDomain(sv.ToDomain())
	d.Vehicles = append(d.Vehicles, row)

	for _, svc := range snap.ServiceRecords {
		sr := archive.ServiceRow{
			VehicleName: sv.Name, Date: svc.Date, Title: svc.Title,
			Description: svc.Description, Shop: svc.Shop,
			Category:     svc.Category,
			ReceiptFiles: strings.Join(svc.ReceiptFiles, ","),
		}
		if svc.Cost != nil {
			sr.Cost = strconv.FormatFloat(*svc.Cost, 'f', -1, 64)
		}
		if svc.Odometer != nil {
			sr.Odometer = strconv.Itoa(*svc.Odometer)
		}
		d.Services = append(d.Services, sr)
	}
	for _, doc := range snap.Documents {
		d.Documents = append(d.Documents, archive.DocumentRow{
			VehicleName: sv.Name, Title: doc.Title, Type: doc.Type,
			Expiration: doc.Expiration, Notes: doc.Notes,
			FileName: doc.FileName, FileType: doc.MimeType,
			Cost: doc.Cost,
		})
	}
	for _, m := range snap.MileageHistory {
		d.Mileage = append(d.Mileage, archive.MileageRow{
			VehicleName: sv.Name, Mileage: strconv.Itoa(int(m.Value)),
			RecordedDate: m.Date, Notes: m.Notes,
		})
	}
}

// looseFolder groups the files sharing one top-level folder name.
type looseFolder struct {
	name  string
	files []LooseFile
}

// groupByFolder buckets loose files by their first path segment, dropping
// junk paths and files with no containing folder. Folders come back sorted
// by name so the match plan is deterministic.
func groupByFolder(files []LooseFile) []looseFolder {
	byName := map[string][]LooseFile{}
	for _, f := range files {
		p := path.Clean(strings.ReplaceAll(f.Path, `\`, "/"))
		if archive.IsJunkPath(p) {
			continue
		}
		segs := strings.Split(p, "/")
		if len(segs) < 2 {
			continue
		}
		byName[segs[0]] = append(byName[segs[0]], f)
	}

	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]looseFolder, 0, len(names))
	for _, n := range names {
		out = append(out, looseFolder{name: n, files: byName[n]})
	}
	return out
}

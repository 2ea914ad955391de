package service

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/garagekeeper/backend/internal/archive"
	"github.com/pkordes/garagekeeper/backend/internal/csvmap"
	"github.com/pkordes/garagekeeper/backend/internal/domain"
	"github.com/pkordes/garagekeeper/backend/internal/repo"
	"github.com/pkordes/garagekeeper/backend/internal/storage"
)

// CommitService executes a confirmed Analysis against the store and object
// storage. It works in a strict dependency order — vehicles, then dependent
// rows, then receipts, then photos — strictly sequentially, so display
// orders and outcomes are deterministic and reproducible.
//
// One item's failure never aborts the batch: every outcome lands in the
// summary's counters. Only capacity (before any write) and cancellation
// stop the run.
type CommitService struct {
	vehicles repo.VehicleRepo
	photos   repo.PhotoRepo
	docs     repo.DocumentRepo
	services repo.ServiceRecordRepo
	history  repo.HistoryRepo
	plan     PlanLookup
	attach   attacher
}

// NewCommitService constructs a CommitService.
func NewCommitService(
	vehicles repo.VehicleRepo,
	photos repo.PhotoRepo,
	docs repo.DocumentRepo,
	services repo.ServiceRecordRepo,
	history repo.HistoryRepo,
	plan PlanLookup,
	store storage.BlobStore,
) *CommitService {
	return &CommitService{
		vehicles: vehicles, photos: photos, docs: docs,
		services: services, history: history, plan: plan,
		attach: attacher{store: store},
	}
}

// commitState carries the name→id maps built while inserting vehicles.
type commitState struct {
	// byName maps the raw vehicle_name of this batch to its new id.
	// Last write wins on duplicate names; each overwrite is counted.
	byName map[string]uuid.UUID

	// byFolder maps sanitized folder names (batch-created and, on the
	// loose path, binding-resolved existing vehicles) to ids.
	byFolder map[string]uuid.UUID

	// records maps a created service record back to its receipt file names
	// so step three can locate and upload them.
	records []createdRecord
}

type createdRecord struct {
	id           uuid.UUID
	vehicleName  string
	title        string
	receiptFiles []string
}

// Commit runs the whole confirmed plan. The capacity check is fail-closed:
// if the batch needs more slots than the plan allows, nothing at all is
// written and domain.ErrCapacity is returned.
//
// Returns domain.ErrCancelled (and no summary) if ctx is cancelled mid-run.
func (s *CommitService) Commit(ctx context.Context, a *Analysis, progress ProgressFunc) (domain.ImportSummary, error) {
	var sum domain.ImportSummary

	plan, err := s.plan.Get(ctx)
	if err != nil {
		return sum, wrapCommit("plan lookup", err)
	}
	if len(a.NewVehicles) > plan.RemainingSlots() {
		return sum, fmt.Errorf(
			"service.CommitService.Commit: %d vehicles to import but only %d slots remain: %w",
			len(a.NewVehicles), plan.RemainingSlots(), domain.ErrCapacity)
	}

	st := &commitState{
		byName:   make(map[string]uuid.UUID, len(a.NewVehicles)),
		byFolder: make(map[string]uuid.UUID, len(a.NewVehicles)),
	}
	for _, b := range a.Folders {
		if id, ok := b.Resolved(); ok {
			st.byFolder[b.Folder] = id
		}
	}

	if err := s.commitVehicles(ctx, a, st, &sum, progress); err != nil {
		return domain.ImportSummary{}, err
	}
	if err := s.commitDependents(ctx, a, st, &sum, progress); err != nil {
		return domain.ImportSummary{}, err
	}
	if err := s.commitReceipts(ctx, a, st, &sum, progress); err != nil {
		return domain.ImportSummary{}, err
	}
	if err := s.commitPhotos(ctx, a, st, &sum, progress); err != nil {
		return domain.ImportSummary{}, err
	}
	if err := s.commitLooseDocuments(ctx, a, st, &sum); err != nil {
		return domain.ImportSummary{}, err
	}
	return sum, nil
}

// commitVehicles inserts the new vehicle rows and builds the name→id maps.
func (s *CommitService) commitVehicles(ctx context.Context, a *Analysis, st *commitState, sum *domain.ImportSummary, progress ProgressFunc) error {
	for i, v := range a.NewVehicles {
		if err := ctx.Err(); err != nil {
			return domain.ErrCancelled
		}
		report(progress, Progress{
			Phase: PhaseVehicles, Current: i + 1, Total: len(a.NewVehicles), Message: v.Name,
		})

		created, err := s.vehicles.Create(ctx, v)
		if err != nil {
			if domain.Cancelled(err) {
				return domain.ErrCancelled
			}
			sum.VehiclesFailed++
			sum.Skipped = append(sum.Skipped, domain.SkippedFile{
				Vehicle: v.Name, Description: "vehicle row", Reason: err.Error(),
			})
			continue
		}
		sum.VehiclesCreated++

		// Duplicate names within one batch are ambiguous: the later row's
		// id takes the children (last write wins), and the collision is
		// surfaced through the skip counter.
		if _, dup := st.byName[v.Name]; dup {
			sum.RowsSkipped++
		}
		st.byName[v.Name] = created.ID
		st.byFolder[archive.SanitizeFolderName(v.Name)] = created.ID
	}
	return nil
}

// commitDependents inserts service records, documents, and mileage rows
// that reference a vehicle created in this batch. Rows naming an unknown
// vehicle are skipped with a counter, not failed.
func (s *CommitService) commitDependents(ctx context.Context, a *Analysis, st *commitState, sum *domain.ImportSummary, progress ProgressFunc) error {
	for i, row := range a.Data.Services {
		if err := ctx.Err(); err != nil {
			return domain.ErrCancelled
		}
		report(progress, Progress{
			Phase: PhaseServices, Current: i + 1, Total: len(a.Data.Services), Message: row.Title,
		})

		vehicleID, ok := st.byName[row.VehicleName]
		if !ok {
			sum.RowsSkipped++
			continue
		}
		rec := domain.ServiceRecord{
			VehicleID: vehicleID,
			Title:     row.Title,
			Category:  domain.ParseServiceCategory(row.Category),
			Date:      parseDateOr(row.Date, time.Time{}),
			Shop:      row.Shop, Description: row.Description,
		}
		if c, err := strconv.ParseFloat(row.Cost, 64); err == nil {
			rec.Cost = &c
		}
		if o, err := strconv.Atoi(row.Odometer); err == nil {
			rec.Odometer = &o
		}

		created, err := s.services.Create(ctx, rec)
		if err != nil {
			if domain.Cancelled(err) {
				return domain.ErrCancelled
			}
			sum.Skipped = append(sum.Skipped, domain.SkippedFile{
				Vehicle: row.VehicleName, Description: "service record " + row.Title, Reason: err.Error(),
			})
			continue
		}
		sum.ServicesCreated++
		st.records = append(st.records, createdRecord{
			id: created.ID, vehicleName: row.VehicleName,
			title: row.Title, receiptFiles: row.ReceiptFileList(),
		})
	}

	for _, row := range a.Data.Documents {
		if err := ctx.Err(); err != nil {
			return domain.ErrCancelled
		}
		vehicleID, ok := st.byName[row.VehicleName]
		if !ok {
			sum.RowsSkipped++
			continue
		}
		if err := s.commitDocumentRow(ctx, a, row, vehicleID, sum); err != nil {
			return err
		}
	}

	for _, row := range a.Data.Mileage {
		if err := ctx.Err(); err != nil {
			return domain.ErrCancelled
		}
		vehicleID, ok := st.byName[row.VehicleName]
		if !ok {
			sum.RowsSkipped++
			continue
		}
		m, err := strconv.Atoi(row.Mileage)
		if err != nil {
			sum.RowsSkipped++
			continue
		}
		entry := domain.MileageEntry{
			VehicleID: vehicleID, Mileage: m,
			RecordedAt: parseDateOr(row.RecordedDate, time.Now().UTC()),
			Notes:      row.Notes,
		}
		if _, err := s.history.CreateMileage(ctx, entry); err != nil {
			if domain.Cancelled(err) {
				return domain.ErrCancelled
			}
			sum.Skipped = append(sum.Skipped, domain.SkippedFile{
				Vehicle: row.VehicleName, Description: "mileage entry", Reason: err.Error(),
			})
			continue
		}
		sum.MileageCreated++
	}

	return s.commitValueHistory(ctx, a, st, sum)
}

// commitValueHistory inserts snapshot value readings. Value history only
// travels in snapshots — the comprehensive CSV has no record type for it.
func (s *CommitService) commitValueHistory(ctx context.Context, a *Analysis, st *commitState, sum *domain.ImportSummary) error {
	if a.Bundle == nil {
		return nil
	}
	for _, f := range a.Bundle.Folders {
		if f.Snapshot == nil {
			continue
		}
		vehicleID, ok := st.byFolder[f.Folder]
		if !ok {
			continue
		}
		for _, h := range f.Snapshot.ValueHistory {
			if err := ctx.Err(); err != nil {
				return domain.ErrCancelled
			}
			entry := domain.ValueEntry{
				VehicleID: vehicleID, Value: h.Value,
				RecordedAt: parseDateOr(h.Date, time.Now().UTC()),
				Notes:      h.Notes,
			}
			if _, err := s.history.CreateValue(ctx, entry); err != nil {
				if domain.Cancelled(err) {
					return domain.ErrCancelled
				}
				sum.Skipped = append(sum.Skipped, domain.SkippedFile{
					Vehicle: f.Snapshot.Vehicle.Name, Description: "value entry", Reason: err.Error(),
				})
				continue
			}
			sum.ValuesCreated++
		}
	}
	return nil
}

// commitDocumentRow inserts one document, uploading its file first when the
// archive carries one.
func (s *CommitService) commitDocumentRow(ctx context.Context, a *Analysis, row archive.DocumentRow, vehicleID uuid.UUID, sum *domain.ImportSummary) error {
	doc := domain.Document{
		VehicleID: vehicleID,
		Title:     row.Title,
		Type:      domain.ParseDocumentType(row.Type),
		Cost:      row.Cost,
		Notes:     row.Notes,
		FileName:  row.FileName,
		MimeType:  row.FileType,
	}
	if t, err := csvmap.ParseCanonicalDate(row.Expiration); err == nil {
		doc.Expiration = &t
	}

	data := findBundleFile(a.Bundle, archive.SanitizeFolderName(row.VehicleName), row.FileName, AttachDocuments)
	if data == nil {
		// Metadata-only document; nothing to upload.
		if _, err := s.docs.Create(ctx, doc); err != nil {
			if domain.Cancelled(err) {
				return domain.ErrCancelled
			}
			sum.Skipped = append(sum.Skipped, domain.SkippedFile{
				Vehicle: row.VehicleName, Description: "document " + row.Title, Reason: err.Error(),
			})
			return nil
		}
		sum.DocumentsCreated++
		return nil
	}

	doc.StoragePath = storagePathFor("documents", vehicleID, row.FileName)
	err := s.attach.run(ctx, doc.StoragePath, data, func(ctx context.Context) error {
		_, err := s.docs.Create(ctx, doc)
		return err
	})
	if err != nil {
		if domain.Cancelled(err) {
			return domain.ErrCancelled
		}
		sum.Skipped = append(sum.Skipped, domain.SkippedFile{
			Vehicle: row.VehicleName, Description: "document " + row.Title, Reason: err.Error(),
		})
		return nil
	}
	sum.DocumentsCreated++
	return nil
}

// commitReceipts uploads and links receipt files: first those named by rows
// of this batch, then the loose bindings resolved to existing records.
func (s *CommitService) commitReceipts(ctx context.Context, a *Analysis, st *commitState, sum *domain.ImportSummary, progress ProgressFunc) error {
	for i, rec := range st.records {
		report(progress, Progress{
			Phase: PhaseReceipts, Current: i + 1, Total: len(st.records), Message: rec.title,
		})
		folder := archive.SanitizeFolderName(rec.vehicleName)
		for _, name := range rec.receiptFiles {
			if err := ctx.Err(); err != nil {
				return domain.ErrCancelled
			}
			data := findBundleFile(a.Bundle, folder, name, AttachReceipts)
			if data == nil {
				sum.Skipped = append(sum.Skipped, domain.SkippedFile{
					Vehicle: rec.vehicleName, Description: "receipt " + name,
					Reason: "file not present in upload",
				})
				continue
			}
			if err := s.linkReceipt(ctx, rec.vehicleName, rec.id, name, data, sum); err != nil {
				return err
			}
		}
	}

	for _, b := range a.Receipts {
		if err := ctx.Err(); err != nil {
			return domain.ErrCancelled
		}
		recordID, ok := b.Resolved()
		if !ok {
			sum.Skipped = append(sum.Skipped, domain.SkippedFile{
				Vehicle: b.Folder, Description: "receipt " + b.FileName,
				Reason: "no matching service record",
			})
			continue
		}
		data := findBundleFile(a.Bundle, b.Folder, b.FileName, AttachReceipts)
		if data == nil {
			continue
		}
		if err := s.linkReceipt(ctx, b.Folder, recordID, b.FileName, data, sum); err != nil {
			return err
		}
	}
	return nil
}

// linkReceipt runs the two-phase upload+insert for one receipt file.
func (s *CommitService) linkReceipt(ctx context.Context, vehicle string, recordID uuid.UUID, name string, data []byte, sum *domain.ImportSummary) error {
	storagePath := storagePathFor("receipts", recordID, name)
	err := s.attach.run(ctx, storagePath, data, func(ctx context.Context) error {
		_, err := s.services.CreateReceipt(ctx, domain.Receipt{
			ServiceRecordID: recordID, StoragePath: storagePath, FileName: name,
		})
		return err
	})
	if err != nil {
		if domain.Cancelled(err) {
			return domain.ErrCancelled
		}
		sum.Skipped = append(sum.Skipped, domain.SkippedFile{
			Vehicle: vehicle, Description: "receipt " + name, Reason: err.Error(),
		})
		return nil
	}
	sum.ReceiptsUploaded++
	return nil
}

// commitPhotos uploads photos per vehicle in archive order, assigning
// display_order sequentially from the vehicle's current maximum. The first
// photo of a vehicle with no showcase becomes the showcase, unless a
// snapshot already flags one.
func (s *CommitService) commitPhotos(ctx context.Context, a *Analysis, st *commitState, sum *domain.ImportSummary, progress ProgressFunc) error {
	if a.Bundle == nil {
		return nil
	}
	for _, f := range a.Bundle.Folders {
		if len(f.Photos) == 0 {
			continue
		}
		vehicleID, ok := st.byFolder[f.Folder]
		if !ok {
			for range f.Photos {
				sum.Skipped = append(sum.Skipped, domain.SkippedFile{
					Vehicle: f.Folder, Description: "photos",
					Reason: "folder not matched to a vehicle",
				})
				break
			}
			continue
		}

		next, err := s.photos.NextDisplayOrder(ctx, vehicleID)
		if err != nil {
			return wrapCommit("next display order", err)
		}
		hasShowcase, err := s.photos.HasShowcase(ctx, vehicleID)
		if err != nil {
			return wrapCommit("has showcase", err)
		}

		for i, file := range f.Photos {
			if err := ctx.Err(); err != nil {
				return domain.ErrCancelled
			}
			report(progress, Progress{
				Phase: PhasePhotos, Current: i + 1, Total: len(f.Photos),
				Message: fmt.Sprintf("%s: %s", f.Folder, file.Name),
			})

			photo := domain.Photo{
				VehicleID:    vehicleID,
				FileName:     file.Name,
				DisplayOrder: next,
			}
			if meta, ok := snapshotPhoto(f.Snapshot, file.Name); ok {
				photo.Caption = meta.Caption
				photo.IsShowcase = meta.IsShowcase && !hasShowcase
			}
			if !hasShowcase && !photo.IsShowcase && !snapshotFlagsShowcase(f.Snapshot) && i == 0 {
				photo.IsShowcase = true
			}
			photo.StoragePath = storagePathFor("photos", vehicleID, file.Name)

			err := s.attach.run(ctx, photo.StoragePath, file.Data, func(ctx context.Context) error {
				_, err := s.photos.Create(ctx, photo)
				return err
			})
			if err != nil {
				if domain.Cancelled(err) {
					return domain.ErrCancelled
				}
				sum.Skipped = append(sum.Skipped, domain.SkippedFile{
					Vehicle: f.Folder, Description: "photo " + file.Name, Reason: err.Error(),
				})
				continue
			}
			if photo.IsShowcase {
				hasShowcase = true
			}
			sum.PhotosUploaded++
			next++
		}
	}
	return nil
}

// commitLooseDocuments attaches loose document files to their bound
// vehicles. The archive path never reaches here — its documents are created
// from rows in commitDependents.
func (s *CommitService) commitLooseDocuments(ctx context.Context, a *Analysis, st *commitState, sum *domain.ImportSummary) error {
	if a.Bundle == nil || a.FromArchive || a.Target != AttachDocuments {
		return nil
	}
	for _, f := range a.Bundle.Folders {
		vehicleID, ok := st.byFolder[f.Folder]
		if !ok {
			for _, file := range f.Documents {
				sum.Skipped = append(sum.Skipped, domain.SkippedFile{
					Vehicle: f.Folder, Description: "document " + file.Name,
					Reason: "folder not matched to a vehicle",
				})
			}
			continue
		}
		for _, file := range f.Documents {
			if err := ctx.Err(); err != nil {
				return domain.ErrCancelled
			}
			doc := domain.Document{
				VehicleID:   vehicleID,
				Title:       strings.TrimSuffix(file.Name, path.Ext(file.Name)),
				Type:        domain.DocOther,
				FileName:    file.Name,
				MimeType:    contentTypeFor(file.Name),
				StoragePath: storagePathFor("documents", vehicleID, file.Name),
			}
			err := s.attach.run(ctx, doc.StoragePath, file.Data, func(ctx context.Context) error {
				_, err := s.docs.Create(ctx, doc)
				return err
			})
			if err != nil {
				if domain.Cancelled(err) {
					return domain.ErrCancelled
				}
				sum.Skipped = append(sum.Skipped, domain.SkippedFile{
					Vehicle: f.Folder, Description: "document " + file.Name, Reason: err.Error(),
				})
				continue
			}
			sum.DocumentsCreated++
		}
	}
	return nil
}

// ---- helpers ---------------------------------------------------------------

// findBundleFile locates a named file in a folder's list for the given kind.
func findBundleFile(b *archive.Bundle, folder, name string, kind AttachKind) []byte {
	if b == nil {
		return nil
	}
	f, ok := b.Lookup(folder)
	if !ok {
		return nil
	}
	var list []archive.File
	switch kind {
	case AttachPhotos:
		list = f.Photos
	case AttachDocuments:
		list = f.Documents
	case AttachReceipts:
		list = f.Receipts
	}
	for _, file := range list {
		if file.Name == name {
			return file.Data
		}
	}
	return nil
}

// snapshotPhoto looks up a photo's snapshot metadata by exported file name.
func snapshotPhoto(s *archive.Snapshot, name string) (archive.SnapshotPhoto, bool) {
	if s == nil {
		return archive.SnapshotPhoto{}, false
	}
	for _, p := range s.Photos {
		if p.FileName == name {
			return p, true
		}
	}
	return archive.SnapshotPhoto{}, false
}

// snapshotFlagsShowcase reports whether any snapshot photo carries the
// showcase flag, in which case the first-photo fallback must not fire.
func snapshotFlagsShowcase(s *archive.Snapshot) bool {
	if s == nil {
		return false
	}
	for _, p := range s.Photos {
		if p.IsShowcase {
			return true
		}
	}
	return false
}

// storagePathFor builds the storage object key for an attachment.
func storagePathFor(kind string, owner uuid.UUID, name string) string {
	return kind + "/" + owner.String() + "/" + name
}

// parseDateOr parses a flexible date cell, returning fallback when the cell
// is empty or unparseable.
func parseDateOr(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	if d, err := csvmap.ParseFlexibleDate(s); err == nil {
		if t, err := csvmap.ParseCanonicalDate(d); err == nil {
			return t
		}
	}
	return fallback
}

func wrapCommit(op string, err error) error {
	if domain.Cancelled(err) {
		return domain.ErrCancelled
	}
	return fmt.Errorf("service.CommitService: %s: %w", op, err)
}

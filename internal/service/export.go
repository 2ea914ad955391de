package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/pkordes/garagekeeper/backend/internal/archive"
	"github.com/pkordes/garagekeeper/backend/internal/domain"
	"github.com/pkordes/garagekeeper/backend/internal/repo"
	"github.com/pkordes/garagekeeper/backend/internal/storage"
)

// archiveRoot is the single top-level folder inside every exported zip.
const archiveRoot = "garage-export"

// ExportService assembles portable archives from a collection's relational
// data plus its binary attachments in object storage.
type ExportService struct {
	vehicles repo.VehicleRepo
	photos   repo.PhotoRepo
	docs     repo.DocumentRepo
	services repo.ServiceRecordRepo
	history  repo.HistoryRepo
	store    storage.BlobStore
}

// NewExportService constructs an ExportService backed by the provided repos
// and blob store.
func NewExportService(
	vehicles repo.VehicleRepo,
	photos repo.PhotoRepo,
	docs repo.DocumentRepo,
	services repo.ServiceRecordRepo,
	history repo.HistoryRepo,
	store storage.BlobStore,
) *ExportService {
	return &ExportService{
		vehicles: vehicles, photos: photos, docs: docs,
		services: services, history: history, store: store,
	}
}

// ExportResult is the finished archive plus the skip list of attachments
// that could not be fetched. Skipped files are excluded from Data but the
// export as a whole still succeeds.
type ExportResult struct {
	Data    []byte
	Skipped []domain.SkippedFile
}

// ExportCollection builds an archive of every vehicle in the collection.
// Returns domain.ErrCancelled if ctx is cancelled mid-run; no partial
// archive is returned in that case.
func (s *ExportService) ExportCollection(ctx context.Context, progress ProgressFunc) (ExportResult, error) {
	all, err := s.vehicles.List(ctx)
	if err != nil {
		return ExportResult{}, fmt.Errorf("service.ExportService.ExportCollection: %w", err)
	}
	return s.export(ctx, all, progress)
}

// ExportVehicle builds a single-vehicle archive.
// Returns domain.ErrNotFound if the vehicle does not exist.
func (s *ExportService) ExportVehicle(ctx context.Context, id uuid.UUID, progress ProgressFunc) (ExportResult, error) {
	v, err := s.vehicles.GetByID(ctx, id)
	if err != nil {
		return ExportResult{}, fmt.Errorf("service.ExportService.ExportVehicle: %w", err)
	}
	return s.export(ctx, []domain.Vehicle{v}, progress)
}

// export walks the vehicle list strictly sequentially: one vehicle at a
// time, one blob download in flight at a time. This bounds memory and makes
// de-duplicated file names and archive member order deterministic.
func (s *ExportService) export(ctx context.Context, list []domain.Vehicle, progress ProgressFunc) (ExportResult, error) {
	b := &archive.Bundle{}
	var csvData archive.CSVData
	var skipped []domain.SkippedFile

	for i, v := range list {
		if err := ctx.Err(); err != nil {
			return ExportResult{}, domain.ErrCancelled
		}
		report(progress, Progress{
			Phase: PhaseVehicles, Current: i + 1, Total: len(list), Message: v.Name,
		})

		folderSnapshot, vehicleSkips, err := s.exportVehicle(ctx, v, b, &csvData, progress)
		if err != nil {
			return ExportResult{}, err
		}
		skipped = append(skipped, vehicleSkips...)
		b.Folder(archive.SanitizeFolderName(v.Name)).Snapshot = folderSnapshot
		csvData.Vehicles = append(csvData.Vehicles, archive.VehicleRowFromDomain(v))
	}

	report(progress, Progress{Phase: PhaseCSV, Current: 1, Total: 1, Message: "generating CSV"})
	b.CSV = archive.EncodeCSV(csvData)

	// The skip list travels inside the archive so the user still has it
	// after downloading, not just in the ephemeral API response.
	if reportJSON, err := json.MarshalIndent(struct {
		Skipped []domain.SkippedFile `json:"skipped"`
	}{Skipped: skipped}, "", "  "); err == nil {
		b.Report = reportJSON
	}

	report(progress, Progress{Phase: PhaseFinalize, Current: 1, Total: 1, Message: "writing archive"})
	data, err := archive.Write(b, archiveRoot)
	if err != nil {
		return ExportResult{}, fmt.Errorf("service.ExportService.export: %w", err)
	}
	return ExportResult{Data: data, Skipped: skipped}, nil
}

// exportVehicle fetches one vehicle's children and attachments into the
// bundle and accumulates its CSV rows. Unfetchable attachments land in the
// returned skip list; only store/context errors abort.
func (s *ExportService) exportVehicle(
	ctx context.Context,
	v domain.Vehicle,
	b *archive.Bundle,
	csvData *archive.CSVData,
	progress ProgressFunc,
) (*archive.Snapshot, []domain.SkippedFile, error) {
	folder := b.Folder(archive.SanitizeFolderName(v.Name))
	snap := &archive.Snapshot{Vehicle: archive.SnapshotVehicleFromDomain(v)}
	var skipped []domain.SkippedFile

	photos, err := s.photos.ListByVehicle(ctx, v.ID)
	if err != nil {
		return nil, nil, wrapExport("list photos", err)
	}
	dedup := archive.NewDeduper()
	for i, p := range photos {
		if err := ctx.Err(); err != nil {
			return nil, nil, domain.ErrCancelled
		}
		report(progress, Progress{
			Phase: PhasePhotos, Current: i + 1, Total: len(photos),
			Message: fmt.Sprintf("%s: photo %d/%d", v.Name, i+1, len(photos)),
		})
		name := dedup.Unique(exportFileName(p.Caption, p.FileName))
		data, err := s.store.Download(ctx, p.StoragePath)
		if err != nil {
			if domain.Cancelled(err) {
				return nil, nil, domain.ErrCancelled
			}
			skipped = append(skipped, domain.SkippedFile{
				Vehicle: v.Name, Description: "photo " + name, Reason: err.Error(),
			})
			continue
		}
		folder.Photos = append(folder.Photos, archive.File{Name: name, Data: data})
		snap.Photos = append(snap.Photos, archive.SnapshotPhoto{
			FileName: name, Caption: p.Caption,
			DisplayOrder: p.DisplayOrder, IsShowcase: p.IsShowcase,
		})
	}

	docs, err := s.docs.ListByVehicle(ctx, v.ID)
	if err != nil {
		return nil, nil, wrapExport("list documents", err)
	}
	dedup = archive.NewDeduper()
	for i, d := range docs {
		if err := ctx.Err(); err != nil {
			return nil, nil, domain.ErrCancelled
		}
		report(progress, Progress{
			Phase: PhaseDocuments, Current: i + 1, Total: len(docs),
			Message: fmt.Sprintf("%s: document %d/%d", v.Name, i+1, len(docs)),
		})
		sd := archive.SnapshotDocument{
			Title: d.Title, Type: string(d.Type), Cost: d.Cost,
			MimeType: d.MimeType, Notes: d.Notes,
		}
		if d.Expiration != nil {
			sd.Expiration = d.Expiration.Format("2006-01-02")
		}
		docRow := archive.DocumentRow{
			VehicleName: v.Name, Title: d.Title, Type: string(d.Type),
			Expiration: sd.Expiration, Notes: d.Notes, FileType: d.MimeType,
		}
		if d.StoragePath != "" {
			name := dedup.Unique(exportFileName(d.Title, d.FileName))
			data, err := s.store.Download(ctx, d.StoragePath)
			if err != nil {
				if domain.Cancelled(err) {
					return nil, nil, domain.ErrCancelled
				}
				skipped = append(skipped, domain.SkippedFile{
					Vehicle: v.Name, Description: "document " + d.Title, Reason: err.Error(),
				})
				continue
			}
			folder.Documents = append(folder.Documents, archive.File{Name: name, Data: data})
			sd.FileName = name
			docRow.FileName = name
		}
		snap.Documents = append(snap.Documents, sd)
		csvData.Documents = append(csvData.Documents, docRow)
	}

	if err := s.exportServices(ctx, v, folder, snap, csvData, &skipped, progress); err != nil {
		return nil, nil, err
	}
	if err := s.exportHistory(ctx, v, snap, csvData); err != nil {
		return nil, nil, err
	}
	return snap, skipped, nil
}

// exportServices fetches service records and their receipts.
func (s *ExportService) exportServices(
	ctx context.Context,
	v domain.Vehicle,
	folder *archive.VehicleFolder,
	snap *archive.Snapshot,
	csvData *archive.CSVData,
	skipped *[]domain.SkippedFile,
	progress ProgressFunc,
) error {
	records, err := s.services.ListByVehicle(ctx, v.ID)
	if err != nil {
		return wrapExport("list service records", err)
	}
	dedup := archive.NewDeduper()
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return domain.ErrCancelled
		}
		report(progress, Progress{
			Phase: PhaseServices, Current: i + 1, Total: len(records),
			Message: fmt.Sprintf("%s: %s", v.Name, rec.Title),
		})

		ss := archive.SnapshotService{
			Title: rec.Title, Category: string(rec.Category),
			Date: rec.Date.Format("2006-01-02"), Cost: rec.Cost,
			Odometer: rec.Odometer, Shop: rec.Shop, Description: rec.Description,
		}

		receipts, err := s.services.ListReceipts(ctx, rec.ID)
		if err != nil {
			return wrapExport("list receipts", err)
		}
		for _, rcpt := range receipts {
			if err := ctx.Err(); err != nil {
				return domain.ErrCancelled
			}
			name := dedup.Unique(exportFileName(rec.Title, rcpt.FileName))
			data, err := s.store.Download(ctx, rcpt.StoragePath)
			if err != nil {
				if domain.Cancelled(err) {
					return domain.ErrCancelled
				}
				*skipped = append(*skipped, domain.SkippedFile{
					Vehicle: v.Name, Description: "receipt for " + rec.Title, Reason: err.Error(),
				})
				continue
			}
			folder.Receipts = append(folder.Receipts, archive.File{Name: name, Data: data})
			ss.ReceiptFiles = append(ss.ReceiptFiles, name)
		}

		snap.ServiceRecords = append(snap.ServiceRecords, ss)
		row := archive.ServiceRow{
			VehicleName: v.Name, Date: ss.Date, Title: rec.Title,
			Description: rec.Description, Shop: rec.Shop,
			Category:     string(rec.Category),
			ReceiptFiles: strings.Join(ss.ReceiptFiles, ","),
		}
		if rec.Cost != nil {
			row.Cost = formatMoney(*rec.Cost)
		}
		if rec.Odometer != nil {
			row.Odometer = fmt.Sprintf("%d", *rec.Odometer)
		}
		csvData.Services = append(csvData.Services, row)
	}
	return nil
}

// exportHistory fetches mileage and value histories. These carry no blobs,
// so there is nothing to skip — only store errors can fail here.
func (s *ExportService) exportHistory(
	ctx context.Context,
	v domain.Vehicle,
	snap *archive.Snapshot,
	csvData *archive.CSVData,
) error {
	if err := ctx.Err(); err != nil {
		return domain.ErrCancelled
	}
	miles, err := s.history.ListMileage(ctx, v.ID)
	if err != nil {
		return wrapExport("list mileage", err)
	}
	for _, m := range miles {
		snap.MileageHistory = append(snap.MileageHistory, archive.SnapshotHistory{
			Date: m.RecordedAt.Format("2006-01-02"), Value: float64(m.Mileage), Notes: m.Notes,
		})
		csvData.Mileage = append(csvData.Mileage, archive.MileageRow{
			VehicleName: v.Name, Mileage: fmt.Sprintf("%d", m.Mileage),
			RecordedDate: m.RecordedAt.Format("2006-01-02"), Notes: m.Notes,
		})
	}

	values, err := s.history.ListValues(ctx, v.ID)
	if err != nil {
		return wrapExport("list values", err)
	}
	for _, e := range values {
		snap.ValueHistory = append(snap.ValueHistory, archive.SnapshotHistory{
			Date: e.RecordedAt.Format("2006-01-02"), Value: e.Value, Notes: e.Notes,
		})
	}
	return nil
}

// exportFileName picks the archive file name for an attachment: the caption
// or title when present (keeping the original extension), otherwise the
// original file name.
func exportFileName(label, original string) string {
	if label == "" {
		if original == "" {
			return "file"
		}
		return original
	}
	if ext := path.Ext(original); ext != "" {
		return label + ext
	}
	return label
}

func formatMoney(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func wrapExport(op string, err error) error {
	if domain.Cancelled(err) {
		return domain.ErrCancelled
	}
	return fmt.Errorf("service.ExportService: %s: %w", op, err)
}

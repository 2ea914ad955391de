package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/garagekeeper/backend/internal/archive"
	"github.com/pkordes/garagekeeper/backend/internal/domain"
	"github.com/pkordes/garagekeeper/backend/internal/service"
)

// commitMocks bundles every collaborator so tests can override selectively.
type commitMocks struct {
	vehicles *mockVehicleRepo
	photos   *mockPhotoRepo
	docs     *mockDocumentRepo
	services *mockServiceRecordRepo
	history  *mockHistoryRepo
	store    *memBlobStore
	plan     fixedPlan
}

func defaultCommitMocks() *commitMocks {
	return &commitMocks{
		vehicles: &mockVehicleRepo{},
		photos:   &mockPhotoRepo{},
		docs:     &mockDocumentRepo{},
		services: &mockServiceRecordRepo{},
		history:  &mockHistoryRepo{},
		store:    newMemBlobStore(),
		plan:     fixedPlan{info: domain.PlanInfo{VehicleCount: 0, VehicleLimit: 10}},
	}
}

func (m *commitMocks) newService() *service.CommitService {
	return service.NewCommitService(m.vehicles, m.photos, m.docs, m.services, m.history, m.plan, m.store)
}

// bumblebeeAnalysis is the reference scenario: two vehicles, three
// photos for Bumblebee (two with de-duplicated "Garage" names), no documents.
func bumblebeeAnalysis() *service.Analysis {
	b := &archive.Bundle{}
	f := b.Folder("Bumblebee")
	f.Photos = append(f.Photos,
		archive.File{Name: "Garage.jpg", Data: []byte("a")},
		archive.File{Name: "Garage-2.jpg", Data: []byte("b")},
		archive.File{Name: "Trackday.jpg", Data: []byte("c")},
	)
	return &service.Analysis{
		FromArchive: true,
		Bundle:      b,
		NewVehicles: []domain.Vehicle{
			{Name: "Bumblebee", Make: "Honda", Type: domain.VehicleMotorcycle, Status: domain.StatusActive},
			{Name: "Wrench", Make: "Suzuki", Type: domain.VehicleMotorcycle, Status: domain.StatusActive},
		},
	}
}

// ---- capacity --------------------------------------------------------------

func TestCommitService_CapacityFailClosed(t *testing.T) {
	m := defaultCommitMocks()
	m.plan = fixedPlan{info: domain.PlanInfo{VehicleCount: 9, VehicleLimit: 10}}

	created := 0
	m.vehicles.create = func(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error) {
		created++
		v.ID = uuid.New()
		return v, nil
	}

	_, err := m.newService().Commit(context.Background(), bumblebeeAnalysis(), nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCapacity)
	assert.Equal(t, 0, created, "capacity rejection must happen before any write")
	assert.Empty(t, m.store.objects, "no blob may be uploaded either")
}

// ---- example scenario ------------------------------------------------------

func TestCommitService_ExampleScenario(t *testing.T) {
	m := defaultCommitMocks()

	var photoRows []domain.Photo
	m.photos.create = func(ctx context.Context, p domain.Photo) (domain.Photo, error) {
		photoRows = append(photoRows, p)
		p.ID = uuid.New()
		return p, nil
	}

	sum, err := m.newService().Commit(context.Background(), bumblebeeAnalysis(), nil)

	require.NoError(t, err)
	assert.Equal(t, 2, sum.VehiclesCreated)
	assert.Equal(t, 3, sum.PhotosUploaded)
	assert.Equal(t, 0, sum.VehiclesFailed)
	assert.False(t, sum.Failed())

	// Photos keep archive order, get sequential display orders from 0, and
	// the first becomes showcase since the vehicle had none.
	require.Len(t, photoRows, 3)
	assert.Equal(t, "Garage.jpg", photoRows[0].FileName)
	assert.Equal(t, "Garage-2.jpg", photoRows[1].FileName)
	assert.Equal(t, "Trackday.jpg", photoRows[2].FileName)
	for i, p := range photoRows {
		assert.Equal(t, i, p.DisplayOrder)
	}
	assert.True(t, photoRows[0].IsShowcase)
	assert.False(t, photoRows[1].IsShowcase)

	// Each photo's blob must exist under the path its row references.
	for _, p := range photoRows {
		assert.Contains(t, m.store.objects, p.StoragePath)
	}
}

// ---- dependency order and reference errors ---------------------------------

func TestCommitService_DependentRows(t *testing.T) {
	m := defaultCommitMocks()

	a := bumblebeeAnalysis()
	a.Data.Services = []archive.ServiceRow{
		{VehicleName: "Bumblebee", Title: "Oil Change", Category: "maintenance",
			Date: "2024-03-10", Cost: "89.50"},
		{VehicleName: "Ghost", Title: "Orphan", Category: "repair"},
	}
	a.Data.Documents = []archive.DocumentRow{
		{VehicleName: "Wrench", Title: "Title", Type: "title"},
	}
	a.Data.Mileage = []archive.MileageRow{
		{VehicleName: "Bumblebee", Mileage: "12450", RecordedDate: "2024-03-10"},
		{VehicleName: "Ghost", Mileage: "1"},
	}

	var serviceVehicles []uuid.UUID
	m.services.create = func(ctx context.Context, rec domain.ServiceRecord) (domain.ServiceRecord, error) {
		serviceVehicles = append(serviceVehicles, rec.VehicleID)
		rec.ID = uuid.New()
		return rec, nil
	}

	sum, err := m.newService().Commit(context.Background(), a, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, sum.VehiclesCreated)
	assert.Equal(t, 1, sum.ServicesCreated)
	assert.Equal(t, 1, sum.DocumentsCreated)
	assert.Equal(t, 1, sum.MileageCreated)
	assert.Equal(t, 2, sum.RowsSkipped, "rows naming an unknown vehicle are counted, not fatal")
	require.Len(t, serviceVehicles, 1)
	assert.NotEqual(t, uuid.UUID{}, serviceVehicles[0], "service row must reference the new vehicle id")
}

func TestCommitService_SnapshotDocumentCostSurvives(t *testing.T) {
	m := defaultCommitMocks()

	cost := 42.50
	a := &service.Analysis{
		NewVehicles: []domain.Vehicle{
			{Name: "Wrench", Make: "Suzuki", Type: domain.VehicleMotorcycle, Status: domain.StatusActive},
		},
		Data: archive.CSVData{
			Documents: []archive.DocumentRow{
				{VehicleName: "Wrench", Title: "Title Papers", Type: "title", Cost: &cost},
			},
		},
	}

	var created []domain.Document
	m.docs.create = func(ctx context.Context, d domain.Document) (domain.Document, error) {
		created = append(created, d)
		d.ID = uuid.New()
		return d, nil
	}

	sum, err := m.newService().Commit(context.Background(), a, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, sum.DocumentsCreated)
	require.Len(t, created, 1)
	require.NotNil(t, created[0].Cost)
	assert.Equal(t, 42.50, *created[0].Cost)
}

func TestCommitService_DuplicateNames_LastWriteWins(t *testing.T) {
	m := defaultCommitMocks()

	first := uuid.New()
	second := uuid.New()
	calls := 0
	m.vehicles.create = func(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error) {
		calls++
		if calls == 1 {
			v.ID = first
		} else {
			v.ID = second
		}
		return v, nil
	}

	var recVehicle uuid.UUID
	m.services.create = func(ctx context.Context, rec domain.ServiceRecord) (domain.ServiceRecord, error) {
		recVehicle = rec.VehicleID
		rec.ID = uuid.New()
		return rec, nil
	}

	a := &service.Analysis{
		NewVehicles: []domain.Vehicle{{Name: "Twin"}, {Name: "Twin"}},
	}
	a.Data.Services = []archive.ServiceRow{{VehicleName: "Twin", Title: "Oil"}}

	sum, err := m.newService().Commit(context.Background(), a, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, sum.VehiclesCreated)
	assert.Equal(t, 1, sum.RowsSkipped, "the name collision is surfaced")
	assert.Equal(t, second, recVehicle, "children attach to the later id")
}

func TestCommitService_VehicleFailureDoesNotAbortBatch(t *testing.T) {
	m := defaultCommitMocks()

	m.vehicles.create = func(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error) {
		if v.Name == "Bumblebee" {
			return domain.Vehicle{}, errors.New("insert failed")
		}
		v.ID = uuid.New()
		return v, nil
	}

	sum, err := m.newService().Commit(context.Background(), bumblebeeAnalysis(), nil)

	require.NoError(t, err)
	assert.Equal(t, 1, sum.VehiclesCreated)
	assert.Equal(t, 1, sum.VehiclesFailed)
	assert.True(t, sum.Failed())
	assert.Equal(t, 0, sum.PhotosUploaded, "photos of the failed vehicle are skipped")
}

// ---- upload-then-link ------------------------------------------------------

func TestCommitService_CompensatingDeleteOnLinkFailure(t *testing.T) {
	m := defaultCommitMocks()

	m.photos.create = func(ctx context.Context, p domain.Photo) (domain.Photo, error) {
		return domain.Photo{}, errors.New("row insert failed")
	}

	sum, err := m.newService().Commit(context.Background(), bumblebeeAnalysis(), nil)

	require.NoError(t, err)
	assert.Equal(t, 0, sum.PhotosUploaded)
	assert.Len(t, sum.Skipped, 3)
	assert.Len(t, m.store.deletes, 3, "every failed link must delete its uploaded blob")
	assert.Empty(t, m.store.objects, "no orphaned blobs may remain")
}

// ---- receipts --------------------------------------------------------------

func TestCommitService_ReceiptsUploadAndLink(t *testing.T) {
	m := defaultCommitMocks()

	a := bumblebeeAnalysis()
	a.Bundle.Folder("Bumblebee").Receipts = []archive.File{
		{Name: "Oil Change.jpg", Data: []byte("r")},
	}
	a.Data.Services = []archive.ServiceRow{
		{VehicleName: "Bumblebee", Title: "Oil Change", Category: "maintenance",
			Date: "2024-03-10", ReceiptFiles: "Oil Change.jpg, missing.jpg"},
	}

	var receipts []domain.Receipt
	m.services.createReceipt = func(ctx context.Context, r domain.Receipt) (domain.Receipt, error) {
		receipts = append(receipts, r)
		r.ID = uuid.New()
		return r, nil
	}

	sum, err := m.newService().Commit(context.Background(), a, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, sum.ReceiptsUploaded)
	require.Len(t, receipts, 1)
	assert.Equal(t, "Oil Change.jpg", receipts[0].FileName)
	assert.Contains(t, m.store.objects, receipts[0].StoragePath)

	// The file named by the row but absent from the upload is reported.
	require.Len(t, sum.Skipped, 1)
	assert.Contains(t, sum.Skipped[0].Description, "missing.jpg")
}

// ---- loose path ------------------------------------------------------------

func TestCommitService_LooseReceiptBindings(t *testing.T) {
	m := defaultCommitMocks()

	recordID := uuid.New()
	vehicleID := uuid.New()
	b := &archive.Bundle{}
	b.Folder("Bumblebee").Receipts = []archive.File{
		{Name: "Oil Change.pdf", Data: []byte("r")},
		{Name: "mystery.pdf", Data: []byte("m")},
	}
	a := &service.Analysis{
		Bundle: b,
		Target: service.AttachReceipts,
		Folders: []service.FolderBinding{
			{Folder: "Bumblebee", Proposed: &vehicleID, Confidence: 100},
		},
		Receipts: []service.ReceiptBinding{
			{Folder: "Bumblebee", FileName: "Oil Change.pdf", Proposed: &recordID, Confidence: 100},
			{Folder: "Bumblebee", FileName: "mystery.pdf"},
		},
	}

	var linked []domain.Receipt
	m.services.createReceipt = func(ctx context.Context, r domain.Receipt) (domain.Receipt, error) {
		linked = append(linked, r)
		r.ID = uuid.New()
		return r, nil
	}

	sum, err := m.newService().Commit(context.Background(), a, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, sum.ReceiptsUploaded)
	require.Len(t, linked, 1)
	assert.Equal(t, recordID, linked[0].ServiceRecordID)
	require.Len(t, sum.Skipped, 1)
	assert.Equal(t, "no matching service record", sum.Skipped[0].Reason)
}

func TestCommitService_OverriddenFolderReceiptsAreAccounted(t *testing.T) {
	m := defaultCommitMocks()

	// A folder bound only by manual override: its receipt file has a binding
	// with no proposal. The commit must surface it in the summary rather
	// than dropping it without a trace.
	vehicleID := uuid.New()
	b := &archive.Bundle{}
	b.Folder("Old Bike Stuff").Receipts = []archive.File{
		{Name: "Chain Kit.pdf", Data: []byte("r")},
	}
	a := &service.Analysis{
		Bundle: b,
		Target: service.AttachReceipts,
		Folders: []service.FolderBinding{
			{Folder: "Old Bike Stuff", Override: &vehicleID},
		},
		Receipts: []service.ReceiptBinding{
			{Folder: "Old Bike Stuff", FileName: "Chain Kit.pdf"},
		},
	}

	sum, err := m.newService().Commit(context.Background(), a, nil)

	require.NoError(t, err)
	assert.Zero(t, sum.ReceiptsUploaded)
	require.Len(t, sum.Skipped, 1)
	assert.Equal(t, "receipt Chain Kit.pdf", sum.Skipped[0].Description)
	assert.Equal(t, "no matching service record", sum.Skipped[0].Reason)
	assert.Empty(t, m.store.objects)

	// Pinning the binding to a record uploads and links the file.
	recordID := uuid.New()
	a.Receipts[0].Override = &recordID
	var linked []domain.Receipt
	m.services.createReceipt = func(ctx context.Context, r domain.Receipt) (domain.Receipt, error) {
		linked = append(linked, r)
		r.ID = uuid.New()
		return r, nil
	}

	sum, err = m.newService().Commit(context.Background(), a, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, sum.ReceiptsUploaded)
	assert.Empty(t, sum.Skipped)
	require.Len(t, linked, 1)
	assert.Equal(t, recordID, linked[0].ServiceRecordID)
}

func TestCommitService_LooseDocumentAttach(t *testing.T) {
	m := defaultCommitMocks()

	vehicleID := uuid.New()
	b := &archive.Bundle{}
	b.Folder("Bumblebee").Documents = []archive.File{
		{Name: "Insurance Card.pdf", Data: []byte("d")},
	}
	a := &service.Analysis{
		Bundle: b,
		Target: service.AttachDocuments,
		Folders: []service.FolderBinding{
			{Folder: "Bumblebee", Proposed: &vehicleID, Confidence: 100},
		},
	}

	var docs []domain.Document
	m.docs.create = func(ctx context.Context, d domain.Document) (domain.Document, error) {
		docs = append(docs, d)
		d.ID = uuid.New()
		return d, nil
	}

	sum, err := m.newService().Commit(context.Background(), a, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, sum.DocumentsCreated)
	require.Len(t, docs, 1)
	assert.Equal(t, vehicleID, docs[0].VehicleID)
	assert.Equal(t, "Insurance Card", docs[0].Title)
	assert.Contains(t, m.store.objects, docs[0].StoragePath)
}

// ---- showcase and display order --------------------------------------------

func TestCommitService_PhotosAppendAfterExisting(t *testing.T) {
	m := defaultCommitMocks()
	m.photos.nextDisplayOrder = func(ctx context.Context, vehicleID uuid.UUID) (int, error) {
		return 4, nil
	}
	m.photos.hasShowcase = func(ctx context.Context, vehicleID uuid.UUID) (bool, error) {
		return true, nil
	}

	var rows []domain.Photo
	m.photos.create = func(ctx context.Context, p domain.Photo) (domain.Photo, error) {
		rows = append(rows, p)
		p.ID = uuid.New()
		return p, nil
	}

	_, err := m.newService().Commit(context.Background(), bumblebeeAnalysis(), nil)

	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []int{4, 5, 6}, []int{rows[0].DisplayOrder, rows[1].DisplayOrder, rows[2].DisplayOrder})
	for _, p := range rows {
		assert.False(t, p.IsShowcase, "a vehicle with a showcase keeps it")
	}
}

func TestCommitService_SnapshotShowcaseFlagWins(t *testing.T) {
	m := defaultCommitMocks()

	a := bumblebeeAnalysis()
	f, _ := a.Bundle.Lookup("Bumblebee")
	f.Snapshot = &archive.Snapshot{
		Vehicle: archive.SnapshotVehicle{Name: "Bumblebee"},
		Photos: []archive.SnapshotPhoto{
			{FileName: "Garage.jpg", Caption: "Garage"},
			{FileName: "Garage-2.jpg", Caption: "Garage"},
			{FileName: "Trackday.jpg", Caption: "Trackday", IsShowcase: true},
		},
	}

	var rows []domain.Photo
	m.photos.create = func(ctx context.Context, p domain.Photo) (domain.Photo, error) {
		rows = append(rows, p)
		p.ID = uuid.New()
		return p, nil
	}

	_, err := m.newService().Commit(context.Background(), a, nil)

	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.False(t, rows[0].IsShowcase, "snapshot flag suppresses the first-photo fallback")
	assert.True(t, rows[2].IsShowcase)
	assert.Equal(t, "Garage", rows[0].Caption)
}

// ---- cancellation ----------------------------------------------------------

func TestCommitService_Cancelled(t *testing.T) {
	m := defaultCommitMocks()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.newService().Commit(ctx, bumblebeeAnalysis(), nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCancelled)
}

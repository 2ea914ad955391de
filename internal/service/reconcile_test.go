package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/garagekeeper/backend/internal/archive"
	"github.com/pkordes/garagekeeper/backend/internal/csvmap"
	"github.com/pkordes/garagekeeper/backend/internal/domain"
	"github.com/pkordes/garagekeeper/backend/internal/service"
)

// newImportService wires an ImportService over a fixed existing collection.
func newImportService(existing []domain.Vehicle, records map[uuid.UUID][]domain.ServiceRecord) *service.ImportService {
	vehicles := &mockVehicleRepo{
		list: func(ctx context.Context) ([]domain.Vehicle, error) { return existing, nil },
	}
	services := &mockServiceRecordRepo{
		listByVehicle: func(ctx context.Context, vehicleID uuid.UUID) ([]domain.ServiceRecord, error) {
			return records[vehicleID], nil
		},
	}
	plan := fixedPlan{info: domain.PlanInfo{VehicleCount: len(existing), VehicleLimit: 10}}
	return service.NewImportService(vehicles, services, plan)
}

// buildArchive writes a two-vehicle archive for the archive-path tests.
func buildArchive(t *testing.T) []byte {
	t.Helper()
	b := &archive.Bundle{}
	b.CSV = archive.EncodeCSV(archive.CSVData{
		Vehicles: []archive.VehicleRow{
			{VehicleName: "Bumblebee", Make: "Honda", Year: "2021", VehicleType: "motorcycle"},
			{VehicleName: "Wrench", Make: "Suzuki", VehicleType: "motorcycle"},
		},
		Services: []archive.ServiceRow{
			{VehicleName: "Bumblebee", Title: "Oil Change", Category: "maintenance",
				Date: "2024-03-10", ReceiptFiles: "receipt.jpg"},
		},
	})
	f := b.Folder("Bumblebee")
	f.Photos = append(f.Photos,
		archive.File{Name: "Garage.jpg", Data: []byte("a")},
		archive.File{Name: "Garage-2.jpg", Data: []byte("b")},
		archive.File{Name: "Trackday.jpg", Data: []byte("c")},
	)
	f.Receipts = append(f.Receipts, archive.File{Name: "receipt.jpg", Data: []byte("r")})

	data, err := archive.Write(b, "garage-export")
	require.NoError(t, err)
	return data
}

// ---- archive path ----------------------------------------------------------

func TestImportService_Analyze_Archive(t *testing.T) {
	svc := newImportService(nil, nil)

	a, err := svc.Analyze(context.Background(), service.Upload{Archive: buildArchive(t)}, nil)

	require.NoError(t, err)
	assert.True(t, a.FromArchive)
	require.Len(t, a.NewVehicles, 2)
	assert.Equal(t, "Bumblebee", a.NewVehicles[0].Name)
	assert.Equal(t, "Wrench", a.NewVehicles[1].Name)
	assert.Equal(t, 2, a.RequiredSlots)
	require.Len(t, a.Data.Services, 1)
	assert.Equal(t, []string{"receipt.jpg"}, a.Data.Services[0].ReceiptFileList())
	assert.Empty(t, a.Folders, "archive names are authoritative; no folder matching")
}

func TestImportService_Analyze_SnapshotOnlyArchive(t *testing.T) {
	b := &archive.Bundle{}
	odo := 500
	cost := 42.50
	b.Folder("Wrench").Snapshot = &archive.Snapshot{
		Vehicle: archive.SnapshotVehicle{Name: "Wrench", Make: "Suzuki"},
		ServiceRecords: []archive.SnapshotService{
			{Title: "Chain Adjust", Category: "maintenance", Odometer: &odo},
		},
		Documents: []archive.SnapshotDocument{
			{Title: "Title Papers", Type: "title", Cost: &cost},
		},
	}
	data, err := archive.Write(b, "garage-export")
	require.NoError(t, err)

	svc := newImportService(nil, nil)
	a, err := svc.Analyze(context.Background(), service.Upload{Archive: data}, nil)

	require.NoError(t, err)
	require.Len(t, a.NewVehicles, 1)
	assert.Equal(t, "Wrench", a.NewVehicles[0].Name)
	require.Len(t, a.Data.Services, 1)
	assert.Equal(t, "Chain Adjust", a.Data.Services[0].Title)
	assert.Equal(t, "500", a.Data.Services[0].Odometer)
	require.Len(t, a.Data.Documents, 1)
	require.NotNil(t, a.Data.Documents[0].Cost)
	assert.Equal(t, 42.50, *a.Data.Documents[0].Cost)
}

func TestImportService_Analyze_UnrecognizedBytes(t *testing.T) {
	svc := newImportService(nil, nil)

	_, err := svc.Analyze(context.Background(), service.Upload{Archive: []byte("not a zip")}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFormat)
}

func TestImportService_Analyze_EmptyUpload(t *testing.T) {
	svc := newImportService(nil, nil)

	_, err := svc.Analyze(context.Background(), service.Upload{}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFormat)
}

// ---- loose path ------------------------------------------------------------

func TestImportService_Analyze_LooseCSV(t *testing.T) {
	csv := []byte("Vehicle Name,Brand,Model,Miles\nBumblebee,Honda,CBR650F,\"12,450\"\n")
	svc := newImportService(nil, nil)

	a, err := svc.Analyze(context.Background(), service.Upload{CSV: csv}, nil)

	require.NoError(t, err)
	assert.False(t, a.FromArchive)
	require.Len(t, a.NewVehicles, 1)
	assert.Equal(t, "Bumblebee", a.NewVehicles[0].Name)
	assert.Equal(t, "Honda", a.NewVehicles[0].Make)
	assert.Equal(t, 12450, a.NewVehicles[0].Mileage)
	assert.Equal(t, 0, a.Mapping[csvmap.FieldName])
	assert.Equal(t, 1, a.RequiredSlots)
}

func TestImportService_Analyze_FolderMatching(t *testing.T) {
	bee := domain.Vehicle{ID: uuid.New(), Name: "2021 Honda CBR650F"}
	wrench := domain.Vehicle{ID: uuid.New(), Name: "Wrench"}
	svc := newImportService([]domain.Vehicle{bee, wrench}, nil)

	a, err := svc.Analyze(context.Background(), service.Upload{
		Target: service.AttachPhotos,
		Files: []service.LooseFile{
			{Path: "Honda CBR 650F/IMG_1.jpg", Data: []byte("a")},
			{Path: "Honda CBR 650F/IMG_2.jpg", Data: []byte("b")},
			{Path: "Random Stuff/whatever.jpg", Data: []byte("c")},
			{Path: "__MACOSX/Honda CBR 650F/._IMG_1.jpg", Data: []byte("junk")},
		},
	}, nil)

	require.NoError(t, err)
	require.Len(t, a.Folders, 2)

	// "Honda CBR 650F" vs "2021 Honda CBR650F" clears the floor and is
	// auto-proposed; "Random Stuff" matches nothing and stays unbound.
	honda := a.Folders[0]
	assert.Equal(t, "Honda CBR 650F", honda.Folder)
	require.NotNil(t, honda.Proposed)
	assert.Equal(t, bee.ID, *honda.Proposed)
	assert.GreaterOrEqual(t, honda.Confidence, 50)

	random := a.Folders[1]
	assert.Equal(t, "Random Stuff", random.Folder)
	assert.Nil(t, random.Proposed)
	_, bound := random.Resolved()
	assert.False(t, bound)

	// Files landed in the photos list of their folder.
	f, ok := a.Bundle.Lookup("Honda CBR 650F")
	require.True(t, ok)
	assert.Len(t, f.Photos, 2)
}

func TestImportService_Analyze_ReceiptMatching(t *testing.T) {
	bee := domain.Vehicle{ID: uuid.New(), Name: "Bumblebee"}
	oil := domain.ServiceRecord{ID: uuid.New(), VehicleID: bee.ID, Title: "Oil Change"}
	tires := domain.ServiceRecord{ID: uuid.New(), VehicleID: bee.ID, Title: "New Tires"}
	svc := newImportService([]domain.Vehicle{bee},
		map[uuid.UUID][]domain.ServiceRecord{bee.ID: {tires, oil}})

	a, err := svc.Analyze(context.Background(), service.Upload{
		Target: service.AttachReceipts,
		Files: []service.LooseFile{
			{Path: "Bumblebee/Oil Change.pdf", Data: []byte("r1")},
			{Path: "Bumblebee/mystery.pdf", Data: []byte("r2")},
		},
	}, nil)

	require.NoError(t, err)
	require.Len(t, a.Receipts, 2)

	byFile := map[string]service.ReceiptBinding{}
	for _, b := range a.Receipts {
		byFile[b.FileName] = b
	}
	oilBinding := byFile["Oil Change.pdf"]
	require.NotNil(t, oilBinding.Proposed)
	assert.Equal(t, oil.ID, *oilBinding.Proposed)
	assert.Equal(t, 100, oilBinding.Confidence)

	assert.Nil(t, byFile["mystery.pdf"].Proposed)
}

func TestImportService_Analyze_ReceiptBindingsInUnmatchedFolder(t *testing.T) {
	bee := domain.Vehicle{ID: uuid.New(), Name: "Bumblebee"}
	svc := newImportService([]domain.Vehicle{bee}, nil)

	// "Old Bike Stuff" matches no vehicle, but its receipt files still get
	// bindings so a manual folder override at commit can bind them.
	a, err := svc.Analyze(context.Background(), service.Upload{
		Target: service.AttachReceipts,
		Files: []service.LooseFile{
			{Path: "Old Bike Stuff/Oil Change.pdf", Data: []byte("r1")},
			{Path: "Old Bike Stuff/Chain Kit.pdf", Data: []byte("r2")},
		},
	}, nil)

	require.NoError(t, err)
	require.Len(t, a.Folders, 1)
	assert.Nil(t, a.Folders[0].Proposed)

	require.Len(t, a.Receipts, 2)
	for _, b := range a.Receipts {
		assert.Equal(t, "Old Bike Stuff", b.Folder)
		assert.Nil(t, b.Proposed)
		assert.Zero(t, b.Confidence)
	}
}

func TestImportService_Analyze_OverrideBinding(t *testing.T) {
	other := uuid.New()
	b := service.FolderBinding{Folder: "x", Override: &other}

	id, ok := b.Resolved()

	require.True(t, ok)
	assert.Equal(t, other, id, "an override beats the proposal")
}

package archive_test

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/garagekeeper/backend/internal/archive"
	"github.com/pkordes/garagekeeper/backend/internal/domain"
)

// buildZip assembles an in-memory zip from name→content pairs.
func buildZip(t *testing.T, members map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestWriteRead_RoundTrip(t *testing.T) {
	b := &archive.Bundle{}
	f := b.Folder("Bumblebee")
	f.Snapshot = &archive.Snapshot{
		Vehicle: archive.SnapshotVehicle{Name: "Bumblebee", Make: "Honda"},
		Photos:  []archive.SnapshotPhoto{{FileName: "Garage.jpg", DisplayOrder: 0, IsShowcase: true}},
	}
	f.Photos = append(f.Photos, archive.File{Name: "Garage.jpg", Data: []byte("jpegbytes")})
	f.Documents = append(f.Documents, archive.File{Name: "Title.pdf", Data: []byte("pdfbytes")})
	f.Receipts = append(f.Receipts, archive.File{Name: "Oil Change.jpg", Data: []byte("receiptbytes")})
	b.CSV = archive.EncodeCSV(archive.CSVData{
		Vehicles: []archive.VehicleRow{{VehicleName: "Bumblebee"}},
	})

	data, err := archive.Write(b, "garage-export")
	require.NoError(t, err)

	got, err := archive.Read(data)
	require.NoError(t, err)

	require.Len(t, got.Folders, 1)
	gf := got.Folders[0]
	assert.Equal(t, "Bumblebee", gf.Folder)
	require.NotNil(t, gf.Snapshot)
	assert.Equal(t, "Bumblebee", gf.Snapshot.Vehicle.Name)
	assert.True(t, gf.Snapshot.Photos[0].IsShowcase)
	require.Len(t, gf.Photos, 1)
	assert.Equal(t, "Garage.jpg", gf.Photos[0].Name)
	assert.Equal(t, []byte("jpegbytes"), gf.Photos[0].Data)
	require.Len(t, gf.Documents, 1)
	assert.Equal(t, []byte("pdfbytes"), gf.Documents[0].Data)
	require.Len(t, gf.Receipts, 1)
	assert.True(t, archive.IsComprehensiveCSV(got.CSV))
}

func TestRead_LegacyLayout(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"export/motorcycles/Bumblebee/images/photos/front.jpg": []byte("a"),
		"export/motorcycles/Bumblebee/images/documents/t.pdf":  []byte("b"),
		"export/motorcycles/Bumblebee/images/receipts/oil.jpg": []byte("c"),
		"export/motorcycles/Wrench/images/photos/side.jpg":     []byte("d"),
		"__MACOSX/export/motorcycles/Bumblebee/._ignored.jpg":  []byte("junk"),
		"export/motorcycles/Bumblebee/images/photos/.DS_Store": []byte("junk"),
	})

	got, err := archive.Read(data)

	require.NoError(t, err)
	require.Len(t, got.Folders, 2)

	bee, ok := got.Lookup("Bumblebee")
	require.True(t, ok)
	assert.Len(t, bee.Photos, 1)
	assert.Len(t, bee.Documents, 1)
	assert.Len(t, bee.Receipts, 1)

	wrench, ok := got.Lookup("Wrench")
	require.True(t, ok)
	assert.Len(t, wrench.Photos, 1)
	assert.Equal(t, 4, got.FileCount())
}

func TestRead_FlatLayoutWithRootPrefix(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"my-export/images/Wrench/side.jpg":    []byte("a"),
		"my-export/receipts/Wrench/oil.jpg":   []byte("b"),
		"my-export/csv/collection-export.csv": []byte("record_type,vehicle_name\nvehicle,Wrench\n"),
		"my-export/vehicle-data/Wrench.json":  []byte(`{"vehicle":{"name":"Wrench"}}`),
	})

	got, err := archive.Read(data)

	require.NoError(t, err)
	wrench, ok := got.Lookup("Wrench")
	require.True(t, ok)
	assert.Len(t, wrench.Photos, 1)
	assert.Len(t, wrench.Receipts, 1)
	require.NotNil(t, wrench.Snapshot)
	assert.Equal(t, "Wrench", wrench.Snapshot.Vehicle.Name)
	assert.True(t, archive.IsComprehensiveCSV(got.CSV))
}

func TestRead_CSVOnlyArchive(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"export/csv/collection-export.csv": []byte("record_type,vehicle_name\nvehicle,Wrench\n"),
	})

	got, err := archive.Read(data)

	require.NoError(t, err)
	require.NotNil(t, got.CSV)
	assert.Empty(t, got.Folders)
}

func TestRead_NotAZip(t *testing.T) {
	_, err := archive.Read([]byte("definitely not a zip"))

	assert.ErrorIs(t, err, domain.ErrFormat)
}

func TestRead_NoRecognizableContent(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"random/file.txt": []byte("hello"),
	})

	_, err := archive.Read(data)

	assert.ErrorIs(t, err, domain.ErrFormat)
}

func TestRead_CorruptSnapshotSkipped(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"vehicle-data/Bad.json":  []byte("{not json"),
		"vehicle-data/Good.json": []byte(`{"vehicle":{"name":"Good"}}`),
	})

	got, err := archive.Read(data)

	require.NoError(t, err)
	require.Len(t, got.Folders, 1)
	assert.Equal(t, "Good", got.Folders[0].Folder)
}

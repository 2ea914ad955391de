package service_test

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/pkordes/garagekeeper/backend/internal/domain"
	"github.com/pkordes/garagekeeper/backend/internal/repo"
	"github.com/pkordes/garagekeeper/backend/internal/service"
	"github.com/pkordes/garagekeeper/backend/internal/storage"
)

// ---- mock repos ------------------------------------------------------------

// mockVehicleRepo is a hand-written test double for repo.VehicleRepo.
// Unset fields fall back to benign defaults so tests only wire what they use.
type mockVehicleRepo struct {
	create  func(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error)
	getByID func(ctx context.Context, id uuid.UUID) (domain.Vehicle, error)
	list    func(ctx context.Context) ([]domain.Vehicle, error)
	count   func(ctx context.Context) (int, error)
	delete  func(ctx context.Context, id uuid.UUID) error
}

func (m *mockVehicleRepo) Create(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error) {
	if m.create != nil {
		return m.create(ctx, v)
	}
	v.ID = uuid.New()
	return v, nil
}
func (m *mockVehicleRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Vehicle, error) {
	if m.getByID != nil {
		return m.getByID(ctx, id)
	}
	return domain.Vehicle{}, domain.ErrNotFound
}
func (m *mockVehicleRepo) List(ctx context.Context) ([]domain.Vehicle, error) {
	if m.list != nil {
		return m.list(ctx)
	}
	return nil, nil
}
func (m *mockVehicleRepo) Count(ctx context.Context) (int, error) {
	if m.count != nil {
		return m.count(ctx)
	}
	return 0, nil
}
func (m *mockVehicleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.delete != nil {
		return m.delete(ctx, id)
	}
	return nil
}

var _ repo.VehicleRepo = (*mockVehicleRepo)(nil)

// mockPhotoRepo is a hand-written test double for repo.PhotoRepo.
type mockPhotoRepo struct {
	create           func(ctx context.Context, p domain.Photo) (domain.Photo, error)
	listByVehicle    func(ctx context.Context, vehicleID uuid.UUID) ([]domain.Photo, error)
	nextDisplayOrder func(ctx context.Context, vehicleID uuid.UUID) (int, error)
	hasShowcase      func(ctx context.Context, vehicleID uuid.UUID) (bool, error)
}

func (m *mockPhotoRepo) Create(ctx context.Context, p domain.Photo) (domain.Photo, error) {
	if m.create != nil {
		return m.create(ctx, p)
	}
	p.ID = uuid.New()
	return p, nil
}
func (m *mockPhotoRepo) ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]domain.Photo, error) {
	if m.listByVehicle != nil {
		return m.listByVehicle(ctx, vehicleID)
	}
	return nil, nil
}
func (m *mockPhotoRepo) NextDisplayOrder(ctx context.Context, vehicleID uuid.UUID) (int, error) {
	if m.nextDisplayOrder != nil {
		return m.nextDisplayOrder(ctx, vehicleID)
	}
	return 0, nil
}
func (m *mockPhotoRepo) HasShowcase(ctx context.Context, vehicleID uuid.UUID) (bool, error) {
	if m.hasShowcase != nil {
		return m.hasShowcase(ctx, vehicleID)
	}
	return false, nil
}

var _ repo.PhotoRepo = (*mockPhotoRepo)(nil)

// mockDocumentRepo is a hand-written test double for repo.DocumentRepo.
type mockDocumentRepo struct {
	create        func(ctx context.Context, d domain.Document) (domain.Document, error)
	listByVehicle func(ctx context.Context, vehicleID uuid.UUID) ([]domain.Document, error)
}

func (m *mockDocumentRepo) Create(ctx context.Context, d domain.Document) (domain.Document, error) {
	if m.create != nil {
		return m.create(ctx, d)
	}
	d.ID = uuid.New()
	return d, nil
}
func (m *mockDocumentRepo) ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]domain.Document, error) {
	if m.listByVehicle != nil {
		return m.listByVehicle(ctx, vehicleID)
	}
	return nil, nil
}

var _ repo.DocumentRepo = (*mockDocumentRepo)(nil)

// mockServiceRecordRepo is a hand-written test double for repo.ServiceRecordRepo.
type mockServiceRecordRepo struct {
	create        func(ctx context.Context, rec domain.ServiceRecord) (domain.ServiceRecord, error)
	listByVehicle func(ctx context.Context, vehicleID uuid.UUID) ([]domain.ServiceRecord, error)
	createReceipt func(ctx context.Context, rcpt domain.Receipt) (domain.Receipt, error)
	listReceipts  func(ctx context.Context, recordID uuid.UUID) ([]domain.Receipt, error)
}

func (m *mockServiceRecordRepo) Create(ctx context.Context, rec domain.ServiceRecord) (domain.ServiceRecord, error) {
	if m.create != nil {
		return m.create(ctx, rec)
	}
	rec.ID = uuid.New()
	return rec, nil
}
func (m *mockServiceRecordRepo) ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]domain.ServiceRecord, error) {
	if m.listByVehicle != nil {
		return m.listByVehicle(ctx, vehicleID)
	}
	return nil, nil
}
func (m *mockServiceRecordRepo) CreateReceipt(ctx context.Context, rcpt domain.Receipt) (domain.Receipt, error) {
	if m.createReceipt != nil {
		return m.createReceipt(ctx, rcpt)
	}
	rcpt.ID = uuid.New()
	return rcpt, nil
}
func (m *mockServiceRecordRepo) ListReceipts(ctx context.Context, recordID uuid.UUID) ([]domain.Receipt, error) {
	if m.listReceipts != nil {
		return m.listReceipts(ctx, recordID)
	}
	return nil, nil
}

var _ repo.ServiceRecordRepo = (*mockServiceRecordRepo)(nil)

// mockHistoryRepo is a hand-written test double for repo.HistoryRepo.
type mockHistoryRepo struct {
	createMileage func(ctx context.Context, e domain.MileageEntry) (domain.MileageEntry, error)
	createValue   func(ctx context.Context, e domain.ValueEntry) (domain.ValueEntry, error)
	listMileage   func(ctx context.Context, vehicleID uuid.UUID) ([]domain.MileageEntry, error)
	listValues    func(ctx context.Context, vehicleID uuid.UUID) ([]domain.ValueEntry, error)
}

func (m *mockHistoryRepo) CreateMileage(ctx context.Context, e domain.MileageEntry) (domain.MileageEntry, error) {
	if m.createMileage != nil {
		return m.createMileage(ctx, e)
	}
	e.ID = uuid.New()
	return e, nil
}
func (m *mockHistoryRepo) CreateValue(ctx context.Context, e domain.ValueEntry) (domain.ValueEntry, error) {
	if m.createValue != nil {
		return m.createValue(ctx, e)
	}
	e.ID = uuid.New()
	return e, nil
}
func (m *mockHistoryRepo) ListMileage(ctx context.Context, vehicleID uuid.UUID) ([]domain.MileageEntry, error) {
	if m.listMileage != nil {
		return m.listMileage(ctx, vehicleID)
	}
	return nil, nil
}
func (m *mockHistoryRepo) ListValues(ctx context.Context, vehicleID uuid.UUID) ([]domain.ValueEntry, error) {
	if m.listValues != nil {
		return m.listValues(ctx, vehicleID)
	}
	return nil, nil
}

var _ repo.HistoryRepo = (*mockHistoryRepo)(nil)

// ---- mock blob store -------------------------------------------------------

// memBlobStore is an in-memory storage.BlobStore that records deletes, for
// asserting the compensating-delete path.
type memBlobStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	deletes  []string
	download func(ctx context.Context, path string) ([]byte, error)
	upload   func(ctx context.Context, path string, data []byte, contentType string) error
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{objects: map[string][]byte{}}
}

func (m *memBlobStore) Download(ctx context.Context, path string) ([]byte, error) {
	if m.download != nil {
		return m.download(ctx, path)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}
func (m *memBlobStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	if m.upload != nil {
		return m.upload(ctx, path, data, contentType)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = data
	return nil
}
func (m *memBlobStore) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, path)
	m.deletes = append(m.deletes, path)
	return nil
}

var _ storage.BlobStore = (*memBlobStore)(nil)

// ---- mock plan lookup ------------------------------------------------------

// fixedPlan is a PlanLookup returning a constant fact.
type fixedPlan struct {
	info domain.PlanInfo
	err  error
}

func (p fixedPlan) Get(ctx context.Context) (domain.PlanInfo, error) {
	return p.info, p.err
}

var _ service.PlanLookup = fixedPlan{}

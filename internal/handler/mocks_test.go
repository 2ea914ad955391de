package handler_test

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/pkordes/garagekeeper/backend/internal/csvmap"
	"github.com/pkordes/garagekeeper/backend/internal/domain"
	"github.com/pkordes/garagekeeper/backend/internal/handler"
	"github.com/pkordes/garagekeeper/backend/internal/service"
)

// Mock servicers with overridable function fields.
// Each method falls back to a benign default when its field is nil, so tests
// only set the behavior they care about.

type mockVehicleServicer struct {
	list    func(ctx context.Context) ([]domain.Vehicle, error)
	getByID func(ctx context.Context, id uuid.UUID) (domain.Vehicle, error)
	delete  func(ctx context.Context, id uuid.UUID) error
}

func (m *mockVehicleServicer) List(ctx context.Context) ([]domain.Vehicle, error) {
	if m.list != nil {
		return m.list(ctx)
	}
	return []domain.Vehicle{}, nil
}

func (m *mockVehicleServicer) GetByID(ctx context.Context, id uuid.UUID) (domain.Vehicle, error) {
	if m.getByID != nil {
		return m.getByID(ctx, id)
	}
	return domain.Vehicle{}, domain.ErrNotFound
}

func (m *mockVehicleServicer) Delete(ctx context.Context, id uuid.UUID) error {
	if m.delete != nil {
		return m.delete(ctx, id)
	}
	return nil
}

type mockExportServicer struct {
	exportCollection func(ctx context.Context, progress service.ProgressFunc) (service.ExportResult, error)
	exportVehicle    func(ctx context.Context, id uuid.UUID, progress service.ProgressFunc) (service.ExportResult, error)
}

func (m *mockExportServicer) ExportCollection(ctx context.Context, progress service.ProgressFunc) (service.ExportResult, error) {
	if m.exportCollection != nil {
		return m.exportCollection(ctx, progress)
	}
	return service.ExportResult{Data: []byte("PK")}, nil
}

func (m *mockExportServicer) ExportVehicle(ctx context.Context, id uuid.UUID, progress service.ProgressFunc) (service.ExportResult, error) {
	if m.exportVehicle != nil {
		return m.exportVehicle(ctx, id, progress)
	}
	return service.ExportResult{Data: []byte("PK")}, nil
}

type mockImportServicer struct {
	analyze func(ctx context.Context, up service.Upload, overrideMapping map[csvmap.Field]int) (*service.Analysis, error)
}

func (m *mockImportServicer) Analyze(ctx context.Context, up service.Upload, overrideMapping map[csvmap.Field]int) (*service.Analysis, error) {
	if m.analyze != nil {
		return m.analyze(ctx, up, overrideMapping)
	}
	return &service.Analysis{}, nil
}

type mockCommitServicer struct {
	commit func(ctx context.Context, a *service.Analysis, progress service.ProgressFunc) (domain.ImportSummary, error)
}

func (m *mockCommitServicer) Commit(ctx context.Context, a *service.Analysis, progress service.ProgressFunc) (domain.ImportSummary, error) {
	if m.commit != nil {
		return m.commit(ctx, a, progress)
	}
	return domain.ImportSummary{}, nil
}

type mockPlanServicer struct {
	get func(ctx context.Context) (domain.PlanInfo, error)
}

func (m *mockPlanServicer) Get(ctx context.Context) (domain.PlanInfo, error) {
	if m.get != nil {
		return m.get(ctx)
	}
	return domain.PlanInfo{VehicleLimit: 2}, nil
}

// Compile-time checks that the mocks satisfy the handler interfaces.
var (
	_ handler.VehicleServicer = (*mockVehicleServicer)(nil)
	_ handler.ExportServicer  = (*mockExportServicer)(nil)
	_ handler.ImportServicer  = (*mockImportServicer)(nil)
	_ handler.CommitServicer  = (*mockCommitServicer)(nil)
	_ handler.PlanServicer    = (*mockPlanServicer)(nil)
)

// serverMocks bundles one mock per dependency plus the shared staging area.
type serverMocks struct {
	vehicles *mockVehicleServicer
	exports  *mockExportServicer
	imports  *mockImportServicer
	commits  *mockCommitServicer
	plan     *mockPlanServicer
	staging  *service.Staging
}

func newServerMocks() *serverMocks {
	return &serverMocks{
		vehicles: &mockVehicleServicer{},
		exports:  &mockExportServicer{},
		imports:  &mockImportServicer{},
		commits:  &mockCommitServicer{},
		plan:     &mockPlanServicer{},
		staging:  service.NewStaging(),
	}
}

// router wires the mocks into a Server and returns its route table,
// so tests exercise real URL matching and parameter parsing.
func (m *serverMocks) router() http.Handler {
	return handler.NewServer(m.vehicles, m.exports, m.imports, m.commits, m.plan, m.staging).Routes()
}

// Package handler implements the HTTP handlers for the GarageKeeper API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, vehicle.go, export.go, imports.go, plan.go) but all share
// the same Server struct so they can access its dependencies.
package handler

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/garagekeeper/backend/internal/csvmap"
	"github.com/pkordes/garagekeeper/backend/internal/domain"
	"github.com/pkordes/garagekeeper/backend/internal/service"
)

// VehicleServicer defines the business operations the vehicle handler depends
// on. Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the database or service layer.
type VehicleServicer interface {
	List(ctx context.Context) ([]domain.Vehicle, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Vehicle, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ExportServicer defines the export operations the handler depends on.
type ExportServicer interface {
	ExportCollection(ctx context.Context, progress service.ProgressFunc) (service.ExportResult, error)
	ExportVehicle(ctx context.Context, id uuid.UUID, progress service.ProgressFunc) (service.ExportResult, error)
}

// ImportServicer analyzes an upload into a reviewable match plan.
type ImportServicer interface {
	Analyze(ctx context.Context, up service.Upload, overrideMapping map[csvmap.Field]int) (*service.Analysis, error)
}

// CommitServicer applies a confirmed match plan to the store.
type CommitServicer interface {
	Commit(ctx context.Context, a *service.Analysis, progress service.ProgressFunc) (domain.ImportSummary, error)
}

// PlanServicer reports the account's vehicle capacity.
type PlanServicer interface {
	Get(ctx context.Context) (domain.PlanInfo, error)
}

// Server holds the dependencies shared by all API endpoints.
// The staging area is the concrete in-memory type rather than an interface:
// it has no I/O, so tests use the real thing.
type Server struct {
	vehicles VehicleServicer
	exports  ExportServicer
	imports  ImportServicer
	commits  CommitServicer
	plan     PlanServicer
	staging  *service.Staging
}

// NewServer constructs the Server with all its dependencies.
func NewServer(
	vehicles VehicleServicer,
	exports ExportServicer,
	imports ImportServicer,
	commits CommitServicer,
	plan PlanServicer,
	staging *service.Staging,
) *Server {
	return &Server{
		vehicles: vehicles,
		exports:  exports,
		imports:  imports,
		commits:  commits,
		plan:     plan,
		staging:  staging,
	}
}

// Routes returns the chi router with every endpoint registered.
// Mount it in main.go under the middleware chain.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)

	r.Get("/vehicles", s.ListVehicles)
	r.Get("/vehicles/{vehicleID}", s.GetVehicle)
	r.Delete("/vehicles/{vehicleID}", s.DeleteVehicle)
	r.Post("/vehicles/{vehicleID}/export", s.ExportVehicle)

	r.Post("/export", s.ExportCollection)

	r.Post("/import/analyze", s.AnalyzeImport)
	r.Post("/import/commit", s.CommitImport)

	r.Get("/plan", s.GetPlan)

	return r
}

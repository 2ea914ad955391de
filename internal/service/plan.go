package service

import (
	"context"
	"fmt"

	"github.com/pkordes/garagekeeper/backend/internal/domain"
	"github.com/pkordes/garagekeeper/backend/internal/repo"
)

// proVehicleLimit is the ceiling on a pro account. Effectively "unlimited"
// for a personal collection while still bounding runaway imports.
const proVehicleLimit = 100

// PlanLookup supplies the capacity fact the import pipeline checks against.
type PlanLookup interface {
	Get(ctx context.Context) (domain.PlanInfo, error)
}

// PlanService computes PlanInfo from the configured plan tier and the
// current vehicle count. The pre-check built on it is best-effort — the
// store re-checks its own constraints at insert time.
type PlanService struct {
	vehicles  repo.VehicleRepo
	freeLimit int
	pro       bool
}

var _ PlanLookup = (*PlanService)(nil)

// NewPlanService constructs a PlanService. freeLimit is the non-pro vehicle
// ceiling from configuration.
func NewPlanService(vehicles repo.VehicleRepo, freeLimit int, pro bool) *PlanService {
	return &PlanService{vehicles: vehicles, freeLimit: freeLimit, pro: pro}
}

// Get returns the current plan facts.
func (s *PlanService) Get(ctx context.Context) (domain.PlanInfo, error) {
	count, err := s.vehicles.Count(ctx)
	if err != nil {
		return domain.PlanInfo{}, fmt.Errorf("service.PlanService.Get: %w", err)
	}
	info := domain.PlanInfo{IsPro: s.pro, VehicleCount: count, VehicleLimit: s.freeLimit}
	if s.pro {
		info.VehicleLimit = proVehicleLimit
	}
	return info, nil
}

package domain

// PlanInfo is the billing fact consumed by the import pipeline.
// It is produced elsewhere (plan lookup + vehicle count) and treated as
// read-only here. The capacity pre-check built on it is best-effort: the
// store re-checks the authoritative limit at insert time.
type PlanInfo struct {
	IsPro        bool `json:"isPro"`
	VehicleCount int  `json:"vehicleCount"`
	VehicleLimit int  `json:"vehicleLimit"`
}

// RemainingSlots returns how many more vehicles the plan allows.
// Never negative.
func (p PlanInfo) RemainingSlots() int {
	if n := p.VehicleLimit - p.VehicleCount; n > 0 {
		return n
	}
	return 0
}

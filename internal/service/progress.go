// Package service contains the business logic for the GarageKeeper API:
// the export assembler, the import reconciler, and the commit executor.
// Services validate inputs, enforce business rules, and orchestrate repo and
// storage calls. No SQL lives here — services depend on repo interfaces,
// not implementations.
package service

// Phase names reported during a long-running export or commit.
const (
	PhaseVehicles  = "vehicles"
	PhasePhotos    = "photos"
	PhaseDocuments = "documents"
	PhaseServices  = "services"
	PhaseReceipts  = "receipts"
	PhaseHistory   = "history"
	PhaseCSV       = "csv"
	PhaseFinalize  = "finalize"
)

// Progress is one discrete progress tick. Current/Total are scoped to the
// phase, not the whole run; Message is display text ("Bumblebee: photo 2/3").
type Progress struct {
	Phase   string `json:"phase"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// ProgressFunc receives progress ticks. Implementations must be fast and
// must not block; pipelines call it inline between I/O steps. A nil
// ProgressFunc is valid and means "don't report".
type ProgressFunc func(Progress)

// report invokes fn if set.
func report(fn ProgressFunc, p Progress) {
	if fn != nil {
		fn(p)
	}
}

package domain

// SkippedFile describes one attachment that could not be fetched (export)
// or uploaded (import). Vehicle and Description give the user enough
// context to retry the narrower operation by hand.
type SkippedFile struct {
	Vehicle     string `json:"vehicle"`
	Description string `json:"description"`
	Reason      string `json:"reason"`
}

// ImportSummary is the aggregate result of one commit run.
// The executor never aborts the batch on a single item's failure; instead
// every outcome lands in one of these counters so the user can reconcile
// by hand. A summary is returned even when some categories are all zero.
type ImportSummary struct {
	VehiclesCreated  int `json:"vehiclesCreated"`
	VehiclesFailed   int `json:"vehiclesFailed"`
	ServicesCreated  int `json:"servicesCreated"`
	DocumentsCreated int `json:"documentsCreated"`
	MileageCreated   int `json:"mileageCreated"`
	ValuesCreated    int `json:"valuesCreated"`
	PhotosUploaded   int `json:"photosUploaded"`
	ReceiptsUploaded int `json:"receiptsUploaded"`

	// RowsSkipped counts dependent rows whose vehicle name had no id in the
	// current batch (reference errors) plus duplicate-name overwrites.
	RowsSkipped int `json:"rowsSkipped"`

	// Skipped lists files that failed to upload or link, with reasons.
	Skipped []SkippedFile `json:"skipped,omitempty"`
}

// Failed reports whether anything in the run went wrong.
func (s ImportSummary) Failed() bool {
	return s.VehiclesFailed > 0 || s.RowsSkipped > 0 || len(s.Skipped) > 0
}

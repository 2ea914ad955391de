package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/garagekeeper/backend/internal/domain"
)

// VehicleResponse is the API shape of a vehicle. Date-only fields use the
// openapi date type so they serialize as "2006-01-02" rather than RFC 3339
// timestamps.
type VehicleResponse struct {
	ID               uuid.UUID           `json:"id"`
	Name             string              `json:"name"`
	Make             string              `json:"make,omitempty"`
	Model            string              `json:"model,omitempty"`
	Year             int                 `json:"year,omitempty"`
	Type             string              `json:"type"`
	VIN              string              `json:"vin,omitempty"`
	PlateNumber      string              `json:"plateNumber,omitempty"`
	Mileage          int                 `json:"mileage"`
	TabExpiration    *openapi_types.Date `json:"tabExpiration,omitempty"`
	Status           string              `json:"status"`
	Notes            string              `json:"notes,omitempty"`
	Nickname         string              `json:"nickname,omitempty"`
	MaintenanceNotes string              `json:"maintenanceNotes,omitempty"`
	PurchasePrice    *float64            `json:"purchasePrice,omitempty"`
	PurchaseDate     *openapi_types.Date `json:"purchaseDate,omitempty"`
	EstimatedValue   *float64            `json:"estimatedValue,omitempty"`
	SaleInfo         *domain.SaleInfo    `json:"saleInfo,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

// VehicleListResponse wraps the collection listing.
type VehicleListResponse struct {
	Vehicles []VehicleResponse `json:"vehicles"`
}

// vehicleFromDomain converts the domain aggregate to its API shape.
func vehicleFromDomain(v domain.Vehicle) VehicleResponse {
	return VehicleResponse{
		ID:               v.ID,
		Name:             v.Name,
		Make:             v.Make,
		Model:            v.Model,
		Year:             v.Year,
		Type:             string(v.Type),
		VIN:              v.VIN,
		PlateNumber:      v.PlateNumber,
		Mileage:          v.Mileage,
		TabExpiration:    dateOrNil(v.TabExpiration),
		Status:           string(v.Status),
		Notes:            v.Notes,
		Nickname:         v.Nickname,
		MaintenanceNotes: v.MaintenanceNotes,
		PurchasePrice:    v.PurchasePrice,
		PurchaseDate:     dateOrNil(v.PurchaseDate),
		EstimatedValue:   v.EstimatedValue,
		SaleInfo:         v.SaleInfo,
		CreatedAt:        v.CreatedAt,
		UpdatedAt:        v.UpdatedAt,
	}
}

// dateOrNil converts an optional timestamp to an optional date.
func dateOrNil(t *time.Time) *openapi_types.Date {
	if t == nil {
		return nil
	}
	return &openapi_types.Date{Time: *t}
}

// ListVehicles handles GET /vehicles.
func (s *Server) ListVehicles(w http.ResponseWriter, r *http.Request) {
	list, err := s.vehicles.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]VehicleResponse, 0, len(list))
	for _, v := range list {
		out = append(out, vehicleFromDomain(v))
	}
	respondJSON(w, http.StatusOK, VehicleListResponse{Vehicles: out})
}

// GetVehicle handles GET /vehicles/{vehicleID}.
func (s *Server) GetVehicle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseVehicleID(w, r)
	if !ok {
		return
	}
	v, err := s.vehicles.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, vehicleFromDomain(v))
}

// DeleteVehicle handles DELETE /vehicles/{vehicleID}.
// Photos, documents, service records, and history entries cascade with the row.
func (s *Server) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseVehicleID(w, r)
	if !ok {
		return
	}
	if err := s.vehicles.Delete(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseVehicleID reads the {vehicleID} URL parameter. On a malformed value it
// writes the 400 response itself and returns ok=false.
func parseVehicleID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "vehicleID"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, requestBody("invalid vehicle id"))
		return uuid.Nil, false
	}
	return id, true
}

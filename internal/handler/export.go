package handler

import (
	"net/http"
	"strconv"

	"github.com/pkordes/garagekeeper/backend/internal/service"
)

// skippedHeader carries the number of attachments the export could not fetch.
// The full skip list with reasons lives inside the archive itself
// (export-report.json); the header lets the client surface a warning without
// unpacking the download.
const skippedHeader = "X-Export-Skipped"

// ExportCollection handles POST /export.
// The whole collection is assembled into one zip and returned as the body.
func (s *Server) ExportCollection(w http.ResponseWriter, r *http.Request) {
	res, err := s.exports.ExportCollection(r.Context(), nil)
	if err != nil {
		respondError(w, err)
		return
	}
	writeArchive(w, "garage-export.zip", res)
}

// ExportVehicle handles POST /vehicles/{vehicleID}/export.
func (s *Server) ExportVehicle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseVehicleID(w, r)
	if !ok {
		return
	}
	res, err := s.exports.ExportVehicle(r.Context(), id, nil)
	if err != nil {
		respondError(w, err)
		return
	}
	writeArchive(w, "vehicle-export.zip", res)
}

// writeArchive sends a finished export as a zip download.
func writeArchive(w http.ResponseWriter, filename string, res service.ExportResult) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.Header().Set(skippedHeader, strconv.Itoa(len(res.Skipped)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

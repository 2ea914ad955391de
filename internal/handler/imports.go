package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"

	"github.com/pkordes/garagekeeper/backend/internal/csvmap"
	"github.com/pkordes/garagekeeper/backend/internal/domain"
	"github.com/pkordes/garagekeeper/backend/internal/service"
)

// multipartMemory is the in-memory threshold for multipart parsing; larger
// parts spill to temp files. The total body size is capped by middleware.
const multipartMemory = 32 << 20

// VehiclePreview is one importable row shown for review before commit.
// It carries no ID: these vehicles do not exist yet.
type VehiclePreview struct {
	Name     string `json:"name"`
	Make     string `json:"make,omitempty"`
	Model    string `json:"model,omitempty"`
	Year     int    `json:"year,omitempty"`
	Type     string `json:"type"`
	Mileage  int    `json:"mileage"`
	Status   string `json:"status"`
	Nickname string `json:"nickname,omitempty"`
}

// AnalyzeResponse is the reviewable match plan returned by POST /import/analyze.
// Token identifies the staged upload; the client echoes it back to
// POST /import/commit along with any overrides to the proposed bindings.
type AnalyzeResponse struct {
	Token         string                   `json:"token"`
	FromArchive   bool                     `json:"fromArchive"`
	Vehicles      []VehiclePreview         `json:"vehicles"`
	Issues        []csvmap.RowIssue        `json:"issues,omitempty"`
	Mapping       map[csvmap.Field]int     `json:"mapping,omitempty"`
	Headers       []string                 `json:"headers,omitempty"`
	Folders       []service.FolderBinding  `json:"folders,omitempty"`
	Receipts      []service.ReceiptBinding `json:"receipts,omitempty"`
	Target        string                   `json:"target"`
	RequiredSlots int                      `json:"requiredSlots"`
	Plan          domain.PlanInfo          `json:"plan"`
}

// FolderOverride pins a folder to a vehicle, replacing the proposed match.
type FolderOverride struct {
	Folder    string    `json:"folder"`
	VehicleID uuid.UUID `json:"vehicleId"`
}

// ReceiptOverride pins a receipt file to a service record.
type ReceiptOverride struct {
	Folder   string    `json:"folder"`
	FileName string    `json:"fileName"`
	RecordID uuid.UUID `json:"recordId"`
}

// CommitRequest is the body of POST /import/commit.
type CommitRequest struct {
	Token    string            `json:"token"`
	Folders  []FolderOverride  `json:"folders,omitempty"`
	Receipts []ReceiptOverride `json:"receipts,omitempty"`
}

// AnalyzeImport handles POST /import/analyze.
//
// The multipart form takes either an "archive" part (a previously exported
// zip) or any combination of a "csv" part and repeated "files" parts (a loose
// folder tree, with relative paths in the part filenames). Optional fields:
// "target" selects what loose files attach as (photos, documents, receipts),
// and "mapping" is a JSON object overriding the auto-detected CSV column
// mapping. Nothing is written; the upload is staged under the returned token.
func (s *Server) AnalyzeImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxed *http.MaxBytesError
		if errors.As(err, &maxed) {
			respondJSON(w, http.StatusRequestEntityTooLarge, errorBody("too_large", "upload exceeds the size limit"))
			return
		}
		respondJSON(w, http.StatusBadRequest, requestBody("expected a multipart form"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	up, overrideMapping, err := uploadFromForm(r.MultipartForm)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, requestBody(err.Error()))
		return
	}

	a, err := s.imports.Analyze(r.Context(), up, overrideMapping)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := AnalyzeResponse{
		Token:         s.staging.Put(a),
		FromArchive:   a.FromArchive,
		Vehicles:      make([]VehiclePreview, 0, len(a.NewVehicles)),
		Issues:        a.Issues,
		Mapping:       a.Mapping,
		Headers:       a.Headers,
		Folders:       a.Folders,
		Receipts:      a.Receipts,
		Target:        string(a.Target),
		RequiredSlots: a.RequiredSlots,
		Plan:          a.Plan,
	}
	for _, v := range a.NewVehicles {
		resp.Vehicles = append(resp.Vehicles, VehiclePreview{
			Name:     v.Name,
			Make:     v.Make,
			Model:    v.Model,
			Year:     v.Year,
			Type:     string(v.Type),
			Mileage:  v.Mileage,
			Status:   string(v.Status),
			Nickname: v.Nickname,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

// CommitImport handles POST /import/commit.
// It retrieves the staged analysis by token (single use), applies the
// caller's binding overrides, and executes the commit. The summary is
// returned even when individual items were skipped; only capacity,
// cancellation, and infrastructure failures abort the run.
func (s *Server) CommitImport(w http.ResponseWriter, r *http.Request) {
	var req CommitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, requestBody("invalid request body"))
		return
	}
	if req.Token == "" {
		respondJSON(w, http.StatusBadRequest, requestBody("token is required"))
		return
	}

	a, ok := s.staging.Take(req.Token)
	if !ok {
		respondJSON(w, http.StatusNotFound, errorBody("not_found", "upload token expired or already used"))
		return
	}
	applyOverrides(a, req)

	summary, err := s.commits.Commit(r.Context(), a, nil)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// applyOverrides copies the caller's decisions onto the staged match plan.
// Overrides referencing unknown folders or files are ignored: the plan the
// client saw is the source of truth for what can be overridden.
func applyOverrides(a *service.Analysis, req CommitRequest) {
	for _, o := range req.Folders {
		for i := range a.Folders {
			if a.Folders[i].Folder == o.Folder {
				id := o.VehicleID
				a.Folders[i].Override = &id
			}
		}
	}
	for _, o := range req.Receipts {
		for i := range a.Receipts {
			if a.Receipts[i].Folder == o.Folder && a.Receipts[i].FileName == o.FileName {
				id := o.RecordID
				a.Receipts[i].Override = &id
			}
		}
	}
}

// uploadFromForm assembles a service.Upload from the parsed multipart form.
func uploadFromForm(form *multipart.Form) (service.Upload, map[csvmap.Field]int, error) {
	var up service.Upload
	var err error

	if up.Archive, err = formFileBytes(form, "archive"); err != nil {
		return service.Upload{}, nil, err
	}
	if up.CSV, err = formFileBytes(form, "csv"); err != nil {
		return service.Upload{}, nil, err
	}
	for _, fh := range form.File["files"] {
		data, err := readPart(fh)
		if err != nil {
			return service.Upload{}, nil, err
		}
		up.Files = append(up.Files, service.LooseFile{Path: fh.Filename, Data: data})
	}

	up.Target, err = parseTarget(formValue(form, "target"))
	if err != nil {
		return service.Upload{}, nil, err
	}

	overrideMapping, err := parseMappingOverride(formValue(form, "mapping"))
	if err != nil {
		return service.Upload{}, nil, err
	}
	return up, overrideMapping, nil
}

// formFileBytes reads the first file part under key, or nil when absent.
func formFileBytes(form *multipart.Form, key string) ([]byte, error) {
	fhs := form.File[key]
	if len(fhs) == 0 {
		return nil, nil
	}
	return readPart(fhs[0])
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, errors.New("could not read uploaded file " + fh.Filename)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.New("could not read uploaded file " + fh.Filename)
	}
	return data, nil
}

func formValue(form *multipart.Form, key string) string {
	if vs := form.Value[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// parseTarget validates the attach-kind form field. Empty defaults to photos
// downstream.
func parseTarget(s string) (service.AttachKind, error) {
	switch kind := service.AttachKind(s); kind {
	case "", service.AttachPhotos, service.AttachDocuments, service.AttachReceipts:
		return kind, nil
	default:
		return "", errors.New("target must be one of photos, documents, receipts")
	}
}

// parseMappingOverride decodes the optional JSON column-mapping override,
// e.g. {"name":0,"make":2}.
func parseMappingOverride(s string) (map[csvmap.Field]int, error) {
	if s == "" {
		return nil, nil
	}
	var raw map[string]int
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, errors.New("mapping must be a JSON object of field to column index")
	}
	mapping := make(map[csvmap.Field]int, len(raw))
	for k, v := range raw {
		mapping[csvmap.Field(k)] = v
	}
	return mapping, nil
}

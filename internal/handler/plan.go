package handler

import "net/http"

// GetPlan handles GET /plan.
// The response is the same capacity fact the import pre-check uses, so the
// client can warn about the vehicle limit before uploading anything.
func (s *Server) GetPlan(w http.ResponseWriter, r *http.Request) {
	info, err := s.plan.Get(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

package attempt

import (
	"encoding/json"
	"net/http"

	"feed-ledger/internal/domain/entity"
	"feed-ledger/internal/handler/http/respond"
	"feed-ledger/internal/usecase/feedhealth"
)

type RecordHandler struct{ Svc *feedhealth.Service }

// ServeHTTP stores one fetch attempt and answers 201 with its id.
func (h RecordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	id, err := h.Svc.RecordAttempt(r.Context(), req.URL, entity.AttemptStatus(req.Status), req.Response.toEntity())
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, recordResponse{ID: id})
}

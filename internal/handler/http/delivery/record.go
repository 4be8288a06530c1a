package delivery

import (
	"encoding/json"
	"net/http"

	"feed-ledger/internal/handler/http/respond"
	deliveryUC "feed-ledger/internal/usecase/delivery"
)

type GetHandler struct{ Svc *deliveryUC.Service }

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Svc.GetDeliveryRecord(r.Context(), r.PathValue("id"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTO(rec))
}

type UpdateStatusHandler struct{ Svc *deliveryUC.Service }

// ServeHTTP finalizes a pending record. Repeating the same patch on an already
// finalized record answers 200 with the stored record; any other change to a
// finalized record answers 409.
func (h UpdateStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	rec, err := h.Svc.UpdateDeliveryStatus(r.Context(), r.PathValue("id"), req.toEntity())
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTO(rec))
}

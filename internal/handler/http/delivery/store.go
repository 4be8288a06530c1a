package delivery

import (
	"encoding/json"
	"net/http"

	"feed-ledger/internal/domain/entity"
	"feed-ledger/internal/handler/http/respond"
	deliveryUC "feed-ledger/internal/usecase/delivery"
)

type StoreHandler struct{ Svc *deliveryUC.Service }

// ServeHTTP stores a batch of delivery outcomes for the feed in the path.
// The batch is all or nothing.
func (h StoreHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req storeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	states := make([]entity.DeliveryState, len(req.States))
	for i, s := range req.States {
		states[i] = s.toEntity()
	}

	if err := h.Svc.Store(r.Context(), r.PathValue("feedID"), states); err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, storeResponse{Stored: len(states)})
}

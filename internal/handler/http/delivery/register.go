// Package delivery serves the delivery ledger and quota counts.
package delivery

import (
	"net/http"

	deliveryUC "feed-ledger/internal/usecase/delivery"
)

// Register mounts the delivery routes on mux. /deliveries/count is more
// specific than /deliveries/{id} and wins for GET.
func Register(mux *http.ServeMux, svc *deliveryUC.Service) {
	mux.Handle("POST /feeds/{feedID}/deliveries", StoreHandler{svc})
	mux.Handle("GET /deliveries/count", CountHandler{svc})
	mux.Handle("GET /deliveries/{id}", GetHandler{svc})
	mux.Handle("PATCH /deliveries/{id}", UpdateStatusHandler{svc})
}

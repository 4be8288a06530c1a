// Package attempt serves the fetch attempt store and failure streak queries.
package attempt

import (
	"net/http"

	"feed-ledger/internal/usecase/feedhealth"
)

// Register mounts the attempt routes on mux.
func Register(mux *http.ServeMux, svc *feedhealth.Service) {
	mux.Handle("POST /attempts", RecordHandler{svc})
	mux.Handle("GET /attempts/latest", LatestHandler{svc})
	mux.Handle("GET /attempts/exists", ExistsHandler{svc})
	mux.Handle("GET /feeds/health", HealthHandler{svc})
}

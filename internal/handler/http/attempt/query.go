package attempt

import (
	"net/http"

	"feed-ledger/internal/domain/entity"
	"feed-ledger/internal/handler/http/respond"
	"feed-ledger/internal/repository"
	"feed-ledger/internal/usecase/feedhealth"
)

type LatestHandler struct{ Svc *feedhealth.Service }

// ServeHTTP answers 404 when the url has never been attempted.
func (h LatestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	latest, err := h.Svc.GetLatestRequest(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	if latest == nil {
		respond.Error(w, entity.ErrNotFound)
		return
	}
	respond.JSON(w, http.StatusOK, toDTO(latest))
}

type ExistsHandler struct{ Svc *feedhealth.Service }

func (h ExistsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	after, err := parseTime("after", q.Get("after"))
	if err != nil {
		respond.Error(w, err)
		return
	}

	filter := repository.AttemptFilter{URL: q.Get("url"), Status: entity.AttemptStatus(q.Get("status"))}
	exists, err := h.Svc.RequestExistsAfterTime(r.Context(), filter, after)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, existsResponse{Exists: exists})
}

type HealthHandler struct{ Svc *feedhealth.Service }

// ServeHTTP reports the current failure streak of a feed. threshold is a Go
// duration such as "36h"; the service default applies when it is omitted.
func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	url := q.Get("url")
	threshold, err := parseDuration("threshold", q.Get("threshold"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	if threshold == 0 {
		threshold = h.Svc.DefaultThreshold()
	}

	ctx := r.Context()
	latest, err := h.Svc.GetLatestRequest(ctx, url)
	if err != nil {
		respond.Error(w, err)
		return
	}
	earliest, err := h.Svc.GetEarliestFailedAttempt(ctx, url)
	if err != nil {
		respond.Error(w, err)
		return
	}
	past, err := h.Svc.IsPastFailureThreshold(ctx, url, threshold)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, HealthDTO{
		URL:              url,
		ThresholdSeconds: int64(threshold.Seconds()),
		PastThreshold:    past,
		Latest:           toDTO(latest),
		EarliestFailure:  toDTO(earliest),
	})
}

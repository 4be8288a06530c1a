package delivery

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"feed-ledger/internal/domain/entity"
	"feed-ledger/internal/handler/http/respond"
	"feed-ledger/internal/repository"
	deliveryUC "feed-ledger/internal/usecase/delivery"
)

// maxWindowSeconds keeps window_seconds * time.Second inside time.Duration.
const maxWindowSeconds = math.MaxInt64 / int64(time.Second)

type CountHandler struct{ Svc *deliveryUC.Service }

// ServeHTTP counts distinct articles that consumed quota for feed_id or
// medium_id over the last window_seconds. With limit it also reports what is
// left of that limit, derived from the same count.
func (h CountHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	windowSeconds, err := parsePositiveInt("window_seconds", q.Get("window_seconds"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	if windowSeconds > maxWindowSeconds {
		respond.Error(w, &entity.ValidationError{
			Field:   "window_seconds",
			Message: fmt.Sprintf("must not exceed %d", maxWindowSeconds),
		})
		return
	}
	window := time.Duration(windowSeconds) * time.Second
	filter := repository.DeliveryCountFilter{FeedID: q.Get("feed_id"), MediumID: q.Get("medium_id")}

	resp := CountDTO{WindowSeconds: windowSeconds}
	var limit *int64
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respond.Error(w, &entity.ValidationError{Field: "limit", Message: "must be an integer"})
			return
		}
		if _, err := deliveryUC.Remaining(0, n); err != nil {
			respond.Error(w, err)
			return
		}
		limit = &n
	}

	resp.Count, err = h.Svc.CountDeliveriesInPastTimeframe(r.Context(), filter, window)
	if err != nil {
		respond.Error(w, err)
		return
	}
	if limit != nil {
		remaining, err := deliveryUC.Remaining(resp.Count, *limit)
		if err != nil {
			respond.Error(w, err)
			return
		}
		resp.Limit = limit
		resp.Remaining = &remaining
	}
	respond.JSON(w, http.StatusOK, resp)
}

func parsePositiveInt(field, raw string) (int64, error) {
	if raw == "" {
		return 0, &entity.ValidationError{Field: field, Message: "is required"}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, &entity.ValidationError{Field: field, Message: "must be a positive integer"}
	}
	return n, nil
}

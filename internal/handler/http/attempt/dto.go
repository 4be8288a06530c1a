package attempt

import (
	"time"

	"feed-ledger/internal/domain/entity"
)

type ResponseDTO struct {
	StatusCode   int    `json:"statusCode"`
	Text         string `json:"text,omitempty"`
	IsCloudflare bool   `json:"isCloudflare"`
}

type DTO struct {
	ID        int64        `json:"id"`
	URL       string       `json:"url"`
	Status    string       `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	Response  *ResponseDTO `json:"response,omitempty"`
}

type recordRequest struct {
	URL      string       `json:"url"`
	Status   string       `json:"status"`
	Response *ResponseDTO `json:"response"`
}

type recordResponse struct {
	ID int64 `json:"id"`
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

// HealthDTO is the failure streak view of one feed.
type HealthDTO struct {
	URL              string `json:"url"`
	ThresholdSeconds int64  `json:"thresholdSeconds"`
	PastThreshold    bool   `json:"pastThreshold"`
	Latest           *DTO   `json:"latest"`
	EarliestFailure  *DTO   `json:"earliestFailure"`
}

func toDTO(a *entity.Attempt) *DTO {
	if a == nil {
		return nil
	}
	dto := &DTO{
		ID:        a.ID,
		URL:       a.URL,
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt,
	}
	if a.Response != nil {
		dto.Response = &ResponseDTO{
			StatusCode:   a.Response.StatusCode,
			Text:         a.Response.Text,
			IsCloudflare: a.Response.IsCloudflare,
		}
	}
	return dto
}

func (r *ResponseDTO) toEntity() *entity.Response {
	if r == nil {
		return nil
	}
	return &entity.Response{StatusCode: r.StatusCode, Text: r.Text, IsCloudflare: r.IsCloudflare}
}

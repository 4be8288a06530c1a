package delivery

import (
	"time"

	"feed-ledger/internal/domain/entity"
)

// StateDTO is one delivery outcome in a store request.
type StateDTO struct {
	ID              string `json:"id"`
	MediumID        string `json:"mediumId"`
	ArticleIDHash   string `json:"articleIdHash"`
	Status          string `json:"status"`
	ErrorCode       string `json:"errorCode,omitempty"`
	InternalMessage string `json:"internalMessage,omitempty"`
	ExternalDetail  string `json:"externalDetail,omitempty"`
	ContentType     string `json:"contentType,omitempty"`
	Parent          string `json:"parent,omitempty"`
}

type storeRequest struct {
	States []StateDTO `json:"states"`
}

type storeResponse struct {
	Stored int `json:"stored"`
}

// RecordDTO is the stored view of a delivery record.
type RecordDTO struct {
	ID              string    `json:"id"`
	FeedID          string    `json:"feedId"`
	MediumID        string    `json:"mediumId"`
	ArticleIDHash   string    `json:"articleIdHash"`
	ArticleID       string    `json:"articleId,omitempty"`
	Status          string    `json:"status"`
	ErrorCode       string    `json:"errorCode,omitempty"`
	InternalMessage string    `json:"internalMessage,omitempty"`
	ExternalDetail  string    `json:"externalDetail,omitempty"`
	ContentType     string    `json:"contentType,omitempty"`
	Parent          string    `json:"parent,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// patchRequest leaves a field untouched when it is absent from the body.
type patchRequest struct {
	Status          string  `json:"status"`
	ErrorCode       *string `json:"errorCode"`
	InternalMessage *string `json:"internalMessage"`
	ArticleID       *string `json:"articleId"`
}

// CountDTO is the answer of a quota count. Remaining is set only when a limit was given.
type CountDTO struct {
	Count         int64  `json:"count"`
	WindowSeconds int64  `json:"windowSeconds"`
	Limit         *int64 `json:"limit,omitempty"`
	Remaining     *int64 `json:"remaining,omitempty"`
}

func (s StateDTO) toEntity() entity.DeliveryState {
	return entity.DeliveryState{
		ID:              s.ID,
		MediumID:        s.MediumID,
		ArticleIDHash:   s.ArticleIDHash,
		Status:          entity.DeliveryStatus(s.Status),
		ErrorCode:       entity.ErrorCode(s.ErrorCode),
		InternalMessage: s.InternalMessage,
		ExternalDetail:  s.ExternalDetail,
		ContentType:     entity.ContentType(s.ContentType),
		Parent:          s.Parent,
	}
}

func (p patchRequest) toEntity() entity.DeliveryStatusPatch {
	patch := entity.DeliveryStatusPatch{
		Status:          entity.DeliveryStatus(p.Status),
		InternalMessage: p.InternalMessage,
		ArticleID:       p.ArticleID,
	}
	if p.ErrorCode != nil {
		code := entity.ErrorCode(*p.ErrorCode)
		patch.ErrorCode = &code
	}
	return patch
}

func toDTO(r *entity.DeliveryRecord) RecordDTO {
	return RecordDTO{
		ID:              r.ID,
		FeedID:          r.FeedID,
		MediumID:        r.MediumID,
		ArticleIDHash:   r.ArticleIDHash,
		ArticleID:       r.ArticleID,
		Status:          string(r.Status),
		ErrorCode:       string(r.ErrorCode),
		InternalMessage: r.InternalMessage,
		ExternalDetail:  r.ExternalDetail,
		ContentType:     string(r.ContentType),
		Parent:          r.Parent,
		CreatedAt:       r.CreatedAt,
	}
}

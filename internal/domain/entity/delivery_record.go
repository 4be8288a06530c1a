package entity

import (
	"fmt"
	"time"
)

// DeliveryStatus is the state of one article delivery toward one medium.
type DeliveryStatus string

const (
	DeliveryStatusPendingDelivery DeliveryStatus = "pending-delivery"
	DeliveryStatusSent            DeliveryStatus = "sent"
	DeliveryStatusFailed          DeliveryStatus = "failed"
	DeliveryStatusRejected        DeliveryStatus = "rejected"
	DeliveryStatusFilteredOut     DeliveryStatus = "filtered-out"
)

// CountableDeliveryStatuses returns the statuses that consume delivery quota.
func CountableDeliveryStatuses() []DeliveryStatus {
	return []DeliveryStatus{DeliveryStatusSent, DeliveryStatusRejected}
}

// Valid reports whether s is one of the known delivery statuses.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryStatusPendingDelivery, DeliveryStatusSent, DeliveryStatusFailed,
		DeliveryStatusRejected, DeliveryStatusFilteredOut:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is allowed out of s.
func (s DeliveryStatus) IsTerminal() bool {
	switch s {
	case DeliveryStatusSent, DeliveryStatusFailed, DeliveryStatusRejected, DeliveryStatusFilteredOut:
		return true
	case DeliveryStatusPendingDelivery:
		return false
	default:
		return false
	}
}

// IsCountable reports whether a record in status s counts against a quota.
func (s DeliveryStatus) IsCountable() bool {
	switch s {
	case DeliveryStatusSent, DeliveryStatusRejected:
		return true
	case DeliveryStatusPendingDelivery, DeliveryStatusFailed, DeliveryStatusFilteredOut:
		return false
	default:
		return false
	}
}

// CarriesError reports whether records in status s may hold an error code and internal message.
func (s DeliveryStatus) CarriesError() bool {
	switch s {
	case DeliveryStatusFailed, DeliveryStatusRejected:
		return true
	case DeliveryStatusPendingDelivery, DeliveryStatusSent, DeliveryStatusFilteredOut:
		return false
	default:
		return false
	}
}

// CanFinalizeTo reports whether a record in status s may be moved to next.
// The only transition is pending-delivery -> sent | failed | rejected.
func (s DeliveryStatus) CanFinalizeTo(next DeliveryStatus) bool {
	switch s {
	case DeliveryStatusPendingDelivery:
		switch next {
		case DeliveryStatusSent, DeliveryStatusFailed, DeliveryStatusRejected:
			return true
		case DeliveryStatusPendingDelivery, DeliveryStatusFilteredOut:
			return false
		default:
			return false
		}
	case DeliveryStatusSent, DeliveryStatusFailed, DeliveryStatusRejected, DeliveryStatusFilteredOut:
		return false
	default:
		return false
	}
}

// ErrorCode classifies why a delivery failed or was rejected.
type ErrorCode string

const (
	ErrorCodeInternal             ErrorCode = "user-feeds/internal-error"
	ErrorCodeNoChannelOrWebhook   ErrorCode = "user-feeds/no-channel-or-webhook"
	ErrorCodeThirdPartyInternal   ErrorCode = "user-feeds/third-party-internal"
	ErrorCodeThirdPartyBadRequest ErrorCode = "user-feeds/third-party-bad-request"
	ErrorCodeThirdPartyForbidden  ErrorCode = "user-feeds/third-party-forbidden"
	ErrorCodeThirdPartyNotFound   ErrorCode = "user-feeds/third-party-not-found"
	ErrorCodeArticleProcessing    ErrorCode = "user-feeds/article-processing-error"
)

// Valid reports whether c is a known error code.
func (c ErrorCode) Valid() bool {
	switch c {
	case ErrorCodeInternal, ErrorCodeNoChannelOrWebhook, ErrorCodeThirdPartyInternal,
		ErrorCodeThirdPartyBadRequest, ErrorCodeThirdPartyForbidden, ErrorCodeThirdPartyNotFound,
		ErrorCodeArticleProcessing:
		return true
	default:
		return false
	}
}

// ContentType describes the payload shape of a pending delivery.
type ContentType string

const (
	ContentTypeDiscordArticleMessage ContentType = "discord-article-message"
	ContentTypeDiscordThreadCreation ContentType = "discord-thread-creation"
)

// Valid reports whether c is a known content type.
func (c ContentType) Valid() bool {
	switch c {
	case ContentTypeDiscordArticleMessage, ContentTypeDiscordThreadCreation:
		return true
	default:
		return false
	}
}

// DeliveryRecord is the durable outcome of delivering one article to one medium.
// Optional string fields use "" for absent. Parent holds the id of another record
// in the same message chain; it is a reference, never an owned value.
type DeliveryRecord struct {
	ID              string
	FeedID          string
	MediumID        string
	ArticleIDHash   string
	ArticleID       string
	Status          DeliveryStatus
	ErrorCode       ErrorCode
	InternalMessage string
	ExternalDetail  string
	ContentType     ContentType
	Parent          string
	CreatedAt       time.Time
}

// DeliveryState is what the delivery pipeline reports for one article and medium
// in a single store call.
type DeliveryState struct {
	ID              string
	MediumID        string
	ArticleIDHash   string
	Status          DeliveryStatus
	ErrorCode       ErrorCode
	InternalMessage string
	ExternalDetail  string
	ContentType     ContentType
	Parent          string
}

// Validate checks the state on its own; parent resolution happens at store time.
func (s DeliveryState) Validate() error {
	if s.ID == "" {
		return &ValidationError{Field: "id", Message: "is required"}
	}
	if s.MediumID == "" {
		return &ValidationError{Field: "mediumId", Message: "is required"}
	}
	if !s.Status.Valid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("invalid delivery status %q", s.Status)}
	}
	if err := validateErrorFields(s.Status, s.ErrorCode, s.InternalMessage != ""); err != nil {
		return err
	}
	if s.ContentType != "" && !s.ContentType.Valid() {
		return &ValidationError{Field: "contentType", Message: fmt.Sprintf("invalid content type %q", s.ContentType)}
	}
	if s.Parent != "" && s.Parent == s.ID {
		return &ValidationError{Field: "parent", Message: "cannot reference itself"}
	}
	return nil
}

// ToRecord builds the record persisted for this state.
func (s DeliveryState) ToRecord(feedID string, createdAt time.Time) *DeliveryRecord {
	return &DeliveryRecord{
		ID:              s.ID,
		FeedID:          feedID,
		MediumID:        s.MediumID,
		ArticleIDHash:   s.ArticleIDHash,
		Status:          s.Status,
		ErrorCode:       s.ErrorCode,
		InternalMessage: s.InternalMessage,
		ExternalDetail:  s.ExternalDetail,
		ContentType:     s.ContentType,
		Parent:          s.Parent,
		CreatedAt:       createdAt,
	}
}

// DeliveryStatusPatch finalizes a pending record. Nil fields are left unchanged.
type DeliveryStatusPatch struct {
	Status          DeliveryStatus
	ErrorCode       *ErrorCode
	InternalMessage *string
	ArticleID       *string
}

// Validate checks that the patch describes a legal finalization target.
func (p DeliveryStatusPatch) Validate() error {
	if !p.Status.Valid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("invalid delivery status %q", p.Status)}
	}
	if !DeliveryStatusPendingDelivery.CanFinalizeTo(p.Status) {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("cannot finalize to %q", p.Status)}
	}
	var code ErrorCode
	if p.ErrorCode != nil {
		code = *p.ErrorCode
	}
	return validateErrorFields(p.Status, code, p.InternalMessage != nil && *p.InternalMessage != "")
}

// Apply returns a copy of r with the patch applied.
func (p DeliveryStatusPatch) Apply(r DeliveryRecord) DeliveryRecord {
	r.Status = p.Status
	if p.ErrorCode != nil {
		r.ErrorCode = *p.ErrorCode
	}
	if p.InternalMessage != nil {
		r.InternalMessage = *p.InternalMessage
	}
	if p.ArticleID != nil {
		r.ArticleID = *p.ArticleID
	}
	return r
}

// MatchedBy reports whether applying p to r would leave r unchanged.
func (r *DeliveryRecord) MatchedBy(p DeliveryStatusPatch) bool {
	return p.Apply(*r) == *r
}

func validateErrorFields(status DeliveryStatus, code ErrorCode, hasMessage bool) error {
	if status.CarriesError() {
		if code != "" && !code.Valid() {
			return &ValidationError{Field: "errorCode", Message: fmt.Sprintf("invalid error code %q", code)}
		}
		return nil
	}
	if code != "" {
		return &ValidationError{Field: "errorCode", Message: fmt.Sprintf("must be empty for status %q", status)}
	}
	if hasMessage {
		return &ValidationError{Field: "internalMessage", Message: fmt.Sprintf("must be empty for status %q", status)}
	}
	return nil
}

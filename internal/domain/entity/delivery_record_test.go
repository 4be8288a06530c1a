package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func allDeliveryStatuses() []DeliveryStatus {
	return []DeliveryStatus{
		DeliveryStatusPendingDelivery,
		DeliveryStatusSent,
		DeliveryStatusFailed,
		DeliveryStatusRejected,
		DeliveryStatusFilteredOut,
	}
}

func TestDeliveryStatus_Classification(t *testing.T) {
	tests := []struct {
		status       DeliveryStatus
		terminal     bool
		countable    bool
		carriesError bool
	}{
		{DeliveryStatusPendingDelivery, false, false, false},
		{DeliveryStatusSent, true, true, false},
		{DeliveryStatusFailed, true, false, true},
		{DeliveryStatusRejected, true, true, true},
		{DeliveryStatusFilteredOut, true, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.True(t, tt.status.Valid())
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
			assert.Equal(t, tt.countable, tt.status.IsCountable())
			assert.Equal(t, tt.carriesError, tt.status.CarriesError())
		})
	}

	unknown := DeliveryStatus("rate-limited")
	assert.False(t, unknown.Valid())
	assert.False(t, unknown.IsTerminal())
	assert.False(t, unknown.IsCountable())
}

func TestCountableDeliveryStatuses(t *testing.T) {
	var countable []DeliveryStatus
	for _, s := range allDeliveryStatuses() {
		if s.IsCountable() {
			countable = append(countable, s)
		}
	}
	assert.ElementsMatch(t, countable, CountableDeliveryStatuses())
}

func TestDeliveryStatus_CanFinalizeTo(t *testing.T) {
	allowed := map[DeliveryStatus]bool{
		DeliveryStatusSent:     true,
		DeliveryStatusFailed:   true,
		DeliveryStatusRejected: true,
	}

	for _, from := range allDeliveryStatuses() {
		for _, to := range allDeliveryStatuses() {
			want := from == DeliveryStatusPendingDelivery && allowed[to]
			assert.Equal(t, want, from.CanFinalizeTo(to), "%s -> %s", from, to)
		}
	}
}

func TestDeliveryState_Validate(t *testing.T) {
	tests := []struct {
		name  string
		state DeliveryState
		field string
	}{
		{"sent", DeliveryState{ID: "1", MediumID: "m", Status: DeliveryStatusSent, ArticleIDHash: "hash"}, ""},
		{"failed with error", DeliveryState{ID: "1", MediumID: "m", Status: DeliveryStatusFailed,
			ErrorCode: ErrorCodeNoChannelOrWebhook, InternalMessage: "internal-message"}, ""},
		{"rejected with detail", DeliveryState{ID: "1", MediumID: "m", Status: DeliveryStatusRejected,
			ErrorCode: ErrorCodeThirdPartyBadRequest, ExternalDetail: `{"code":50035}`}, ""},
		{"pending with parent", DeliveryState{ID: "2", MediumID: "m", Status: DeliveryStatusPendingDelivery,
			ContentType: ContentTypeDiscordArticleMessage, Parent: "1"}, ""},
		{"missing id", DeliveryState{MediumID: "m", Status: DeliveryStatusSent}, "id"},
		{"missing medium", DeliveryState{ID: "1", Status: DeliveryStatusSent}, "mediumId"},
		{"unknown status", DeliveryState{ID: "1", MediumID: "m", Status: "queued"}, "status"},
		{"error code on sent", DeliveryState{ID: "1", MediumID: "m", Status: DeliveryStatusSent,
			ErrorCode: ErrorCodeInternal}, "errorCode"},
		{"message on filtered", DeliveryState{ID: "1", MediumID: "m", Status: DeliveryStatusFilteredOut,
			InternalMessage: "blocked"}, "internalMessage"},
		{"unknown error code", DeliveryState{ID: "1", MediumID: "m", Status: DeliveryStatusFailed,
			ErrorCode: "boom"}, "errorCode"},
		{"unknown content type", DeliveryState{ID: "1", MediumID: "m", Status: DeliveryStatusPendingDelivery,
			ContentType: "email"}, "contentType"},
		{"self parent", DeliveryState{ID: "1", MediumID: "m", Status: DeliveryStatusPendingDelivery,
			Parent: "1"}, "parent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.state.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var validationErr *ValidationError
			if assert.True(t, errors.As(err, &validationErr), "got %v", err) {
				assert.Equal(t, tt.field, validationErr.Field)
			}
		})
	}
}

func TestDeliveryState_ToRecord(t *testing.T) {
	createdAt := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	state := DeliveryState{
		ID:              "id-2",
		MediumID:        "medium-id",
		ArticleIDHash:   "hash2",
		Status:          DeliveryStatusRejected,
		ErrorCode:       ErrorCodeThirdPartyForbidden,
		InternalMessage: "missing permissions",
		ExternalDetail:  "Missing Access",
		Parent:          "id-1",
	}

	want := &DeliveryRecord{
		ID:              "id-2",
		FeedID:          "feed-id",
		MediumID:        "medium-id",
		ArticleIDHash:   "hash2",
		Status:          DeliveryStatusRejected,
		ErrorCode:       ErrorCodeThirdPartyForbidden,
		InternalMessage: "missing permissions",
		ExternalDetail:  "Missing Access",
		Parent:          "id-1",
		CreatedAt:       createdAt,
	}

	if diff := cmp.Diff(want, state.ToRecord("feed-id", createdAt)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDeliveryStatusPatch_Validate(t *testing.T) {
	code := ErrorCodeNoChannelOrWebhook
	msg := "internal-message"
	empty := ""

	tests := []struct {
		name    string
		patch   DeliveryStatusPatch
		wantErr bool
	}{
		{"sent", DeliveryStatusPatch{Status: DeliveryStatusSent}, false},
		{"failed with details", DeliveryStatusPatch{Status: DeliveryStatusFailed, ErrorCode: &code, InternalMessage: &msg}, false},
		{"sent with empty message", DeliveryStatusPatch{Status: DeliveryStatusSent, InternalMessage: &empty}, false},
		{"back to pending", DeliveryStatusPatch{Status: DeliveryStatusPendingDelivery}, true},
		{"filtered out", DeliveryStatusPatch{Status: DeliveryStatusFilteredOut}, true},
		{"unknown", DeliveryStatusPatch{Status: "done"}, true},
		{"sent with error code", DeliveryStatusPatch{Status: DeliveryStatusSent, ErrorCode: &code}, true},
		{"sent with message", DeliveryStatusPatch{Status: DeliveryStatusSent, InternalMessage: &msg}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDeliveryStatusPatch_ApplyAndMatch(t *testing.T) {
	record := DeliveryRecord{
		ID:            "id-1",
		FeedID:        "feed-id",
		MediumID:      "1",
		ArticleIDHash: "hash",
		Status:        DeliveryStatusPendingDelivery,
		ContentType:   ContentTypeDiscordArticleMessage,
		CreatedAt:     time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	code := ErrorCodeNoChannelOrWebhook
	msg := "internal-message"
	articleID := "article-id"
	patch := DeliveryStatusPatch{Status: DeliveryStatusFailed, ErrorCode: &code, InternalMessage: &msg, ArticleID: &articleID}

	got := patch.Apply(record)

	want := record
	want.Status = DeliveryStatusFailed
	want.ErrorCode = code
	want.InternalMessage = msg
	want.ArticleID = articleID
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, DeliveryStatusPendingDelivery, record.Status, "Apply must not mutate its argument")

	assert.True(t, got.MatchedBy(patch))
	assert.True(t, got.MatchedBy(DeliveryStatusPatch{Status: DeliveryStatusFailed}))
	assert.False(t, got.MatchedBy(DeliveryStatusPatch{Status: DeliveryStatusSent}))
	other := "other"
	assert.False(t, got.MatchedBy(DeliveryStatusPatch{Status: DeliveryStatusFailed, InternalMessage: &other}))
}

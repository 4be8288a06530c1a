// Package entity defines the core domain entities of the fetch-health and delivery ledger:
// fetch attempts with their optional responses, and per-medium article delivery records,
// together with their closed status sets, validation rules, and domain errors.
package entity

import (
	"fmt"
	"time"
)

// AttemptStatus is the outcome of a single feed fetch attempt.
type AttemptStatus string

const (
	// AttemptStatusOK means the feed was fetched successfully.
	AttemptStatusOK AttemptStatus = "OK"
	// AttemptStatusFailed means the remote answered with a non-success response.
	AttemptStatusFailed AttemptStatus = "FAILED"
	// AttemptStatusFetchError means no usable response was obtained (DNS, TLS, timeout, ...).
	AttemptStatusFetchError AttemptStatus = "FETCH_ERROR"
)

// FailureAttemptStatuses lists the statuses that extend a failure streak.
func FailureAttemptStatuses() []AttemptStatus {
	return []AttemptStatus{AttemptStatusFailed, AttemptStatusFetchError}
}

// Valid reports whether s is one of the known attempt statuses.
func (s AttemptStatus) Valid() bool {
	switch s {
	case AttemptStatusOK, AttemptStatusFailed, AttemptStatusFetchError:
		return true
	default:
		return false
	}
}

// IsFailure reports whether s counts toward a failure streak.
func (s AttemptStatus) IsFailure() bool {
	switch s {
	case AttemptStatusFailed, AttemptStatusFetchError:
		return true
	case AttemptStatusOK:
		return false
	default:
		return false
	}
}

// Response is the raw response metadata captured for an attempt.
// It is owned by exactly one Attempt and never changes after creation.
type Response struct {
	ID           int64
	StatusCode   int
	Text         string
	IsCloudflare bool
}

// Attempt is one fetch try against a feed URL.
// ID is assigned by the store and increases with insertion order, so (CreatedAt, ID)
// gives a total order for attempts of the same URL.
type Attempt struct {
	ID        int64
	URL       string
	Status    AttemptStatus
	CreatedAt time.Time
	Response  *Response
}

// Before reports whether a sorts strictly before other in (CreatedAt, ID) order.
func (a *Attempt) Before(other *Attempt) bool {
	if !a.CreatedAt.Equal(other.CreatedAt) {
		return a.CreatedAt.Before(other.CreatedAt)
	}
	return a.ID < other.ID
}

// Validate checks the fields the caller is responsible for.
func (a *Attempt) Validate() error {
	if err := ValidateFeedURL(a.URL); err != nil {
		return err
	}
	if !a.Status.Valid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("invalid attempt status %q", a.Status)}
	}
	if a.Response != nil && (a.Response.StatusCode < 0 || a.Response.StatusCode > 999) {
		return &ValidationError{Field: "response.statusCode", Message: "must be between 0 and 999"}
	}
	return nil
}

package models

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy for the sync layer. Transport code wraps these sentinels
// so callers can branch with errors.Is without string matching.
var (
	// ErrNetworkUnreachable: no candidate endpoint answered the liveness probe.
	ErrNetworkUnreachable = errors.New("no reachable endpoint")

	// ErrTimeout: a request was aborted by its deadline. Retryable.
	ErrTimeout = errors.New("request timed out")

	// ErrServerError: HTTP 5xx. Retryable.
	ErrServerError = errors.New("server error")

	// ErrClientError: HTTP 4xx. Fatal to the current call, never retried.
	ErrClientError = errors.New("client error")

	// ErrSchemaMismatch: recognized server-side data-shape error, degraded
	// to a soft success with zero records.
	ErrSchemaMismatch = errors.New("server schema mismatch")

	// ErrProviderUnavailable: the on-device health source denied access or
	// returned nothing. Surfaced immediately, never retried.
	ErrProviderUnavailable = errors.New("health provider unavailable")

	// ErrSyncInFlight: a runSync call arrived while another was active on
	// the same manager.
	ErrSyncInFlight = errors.New("sync already in progress")
)

// StatusError carries an HTTP status and body while wrapping the taxonomy
// sentinel that matches the status class.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Body)
}

// Unwrap maps the status class onto the taxonomy.
func (e *StatusError) Unwrap() error {
	switch {
	case e.Status >= 500:
		return ErrServerError
	case e.Status >= 400:
		return ErrClientError
	default:
		return nil
	}
}

// schemaMismatchMarkers are substrings of known, non-fatal backend errors
// caused by a column/shape drift between client payloads and the server
// tables. Matching errors degrade to a soft success instead of failing the
// user-visible operation.
var schemaMismatchMarkers = []string{
	"no such column",
	"unknown column",
	"invalid input syntax",
	"health_data schema",
}

// IsSchemaMismatch reports whether a server error body matches a known
// schema-drift pattern.
func IsSchemaMismatch(body string) bool {
	lower := strings.ToLower(body)
	for _, m := range schemaMismatchMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Retryable reports whether an error may be retried under the transport
// backoff policy.
func Retryable(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServerError) ||
		errors.Is(err, ErrNetworkUnreachable)
}

package core

import (
	"errors"
	"fmt"
)

// Sentinel errors. Wrap them with fmt.Errorf("...: %w", err) and test with errors.Is.
var (
	// ErrNotFound means the phone number, record or resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoData means the record exists but the requested section is unavailable.
	ErrNoData = errors.New("no data available")
	// ErrInvalidArgument means a caller supplied an out-of-range or malformed value.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUpstream means a remote API answered with a non-success status.
	ErrUpstream = errors.New("upstream error")
	// ErrGeocoding means a city could not be turned into coordinates.
	ErrGeocoding = errors.New("geocoding failed")
	// ErrNotConfigured means required credentials or settings are missing.
	ErrNotConfigured = errors.New("not configured")
)

// UpstreamError describes a non-2xx answer from a remote API.
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: API error: %d", e.Service, e.StatusCode)
}

// Unwrap makes errors.Is(err, ErrUpstream) hold for every UpstreamError.
func (e *UpstreamError) Unwrap() error {
	return ErrUpstream
}

// InvalidArgument builds an ErrInvalidArgument with a formatted reason.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// StatusOf returns the short status label used in API error envelopes.
func StatusOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid"
	case errors.Is(err, ErrGeocoding):
		return "geocoding_failed"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNoData):
		return "no_data"
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	default:
		return "failed"
	}
}

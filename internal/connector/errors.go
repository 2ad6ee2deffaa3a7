package connector

import "bitbucket.org/vron/connector-hub/internal/viator"

// The partner-facing error taxonomy. Codes are stable; the detail string
// names the offending tag or carries the backend fault text.
type apiError struct {
	code    string
	message string
}

var (
	errMalformed       = apiError{"VRONERR001", "Malformed or missing elements"}
	errInvalidAPIKey   = apiError{"VRONERR002", "Invalid API Key"}
	errBackendAuth     = apiError{"VRONERR003", "Backend authentication failed"}
	errNothingReturned = apiError{"VRONERR004", "Nothing returned"}
)

func (e apiError) response() *viator.RequestError {
	return &viator.RequestError{Code: e.code, Message: e.message}
}

func (e apiError) withTag(tag string) *viator.RequestError {
	return &viator.RequestError{Code: e.code, Message: e.message, Tag: tag}
}

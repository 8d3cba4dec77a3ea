// internal/utils/errors.go
package utils

import (
	"errors"
	"net/http"
)

// Domain-level errors used by the service layer to provide
// fine-grained failure reasons.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotAParty       = errors.New("not_a_party")
	ErrAlreadySigned   = errors.New("already_signed")

	ErrNoActiveSession  = errors.New("no_active_session")
	ErrContractNotFound = errors.New("contract_not_found")
	ErrPartyNotFound    = errors.New("party_not_found")

	// Verification failures returned by the signing API.
	ErrInvalidCode = errors.New("invalid_code")
	ErrCodeExpired = errors.New("code_expired")

	// For external service failures (the contract-signing API)
	ErrExternalServiceFailure = errors.New("external_service_failure")
)

// AppError for structured error handling from services to controllers.
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// HandleAppError centralizes responding to AppErrors.
func HandleAppError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		RespondErrorWithCode(w, appErr.StatusCode, appErr.Code, appErr.Message, nil, appErr.Err)
	} else {
		// Fallback for unexpected error types
		RespondErrorWithCode(w, http.StatusInternalServerError, ErrCodeInternal, "An unexpected error occurred", nil, err)
	}
}

// internal/controllers/signing_controller.go
package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/KrisCTer/roomie-sub002/internal/config"
	"github.com/KrisCTer/roomie-sub002/internal/dtos"
	"github.com/KrisCTer/roomie-sub002/internal/middleware"
	"github.com/KrisCTer/roomie-sub002/internal/services"
	"github.com/KrisCTer/roomie-sub002/internal/utils"
)

type SigningController struct {
	sessions *services.SessionManager
	cfg      *config.Config
}

func NewSigningController(sessions *services.SessionManager, cfg *config.Config) *SigningController {
	return &SigningController{sessions: sessions, cfg: cfg}
}

var signingValidate = validator.New()

// ---------------------------------------------------------------------
// Request plumbing helpers
// ---------------------------------------------------------------------

// requireIdentity extracts user id and contract id or writes the error
// response and reports failure.
func requireIdentity(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == nil {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authentication required", nil,
		)
		return uuid.Nil, uuid.Nil, false
	}

	contractID, err := uuid.Parse(mux.Vars(r)["contractId"])
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid contract id", nil, err,
		)
		return uuid.Nil, uuid.Nil, false
	}
	return *userID, contractID, true
}

// session resolves the caller's open session or writes a 404.
func (c *SigningController) session(w http.ResponseWriter, userID, contractID uuid.UUID) *services.SigningOrchestrator {
	orch, err := c.sessions.Get(userID, contractID)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusNotFound, utils.ErrCodeNoActiveSession, "No active signing session", nil,
		)
		return nil
	}
	return orch
}

// respondSigningError maps service-layer errors onto stable HTTP codes.
func respondSigningError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, utils.ErrUnauthenticated):
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authentication required", nil,
		)
	case errors.Is(err, utils.ErrNotAParty):
		utils.RespondErrorWithCode(
			w, http.StatusForbidden, utils.ErrCodeNotAParty, "You are not a party to this contract", nil,
		)
	case errors.Is(err, utils.ErrAlreadySigned):
		utils.RespondErrorWithCode(
			w, http.StatusConflict, utils.ErrCodeAlreadySigned, "Your signature is already on this contract", nil,
		)
	case errors.Is(err, utils.ErrContractNotFound):
		utils.RespondErrorWithCode(
			w, http.StatusNotFound, utils.ErrCodeNotFound, "Contract not found", nil,
		)
	case errors.Is(err, utils.ErrInvalidCode):
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidCode, "Invalid verification code", nil,
		)
	case errors.Is(err, utils.ErrCodeExpired):
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeCodeExpired, "Verification code expired", nil,
		)
	case errors.Is(err, utils.ErrExternalServiceFailure):
		utils.RespondErrorWithCode(
			w, http.StatusFailedDependency, utils.ErrCodeExternalServiceFailure,
			"The signing service is temporarily unavailable.", nil, err,
		)
	default:
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, "Signing request failed", nil, err,
		)
	}
}

// ---------------------------------------------------------------------
// Command endpoints
// ---------------------------------------------------------------------

// BeginSigning opens a signing session for the authenticated party.
func (c *SigningController) BeginSigning(w http.ResponseWriter, r *http.Request) {
	userID, contractID, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	orch, err := c.sessions.Begin(r.Context(), userID, contractID)
	if err != nil {
		respondSigningError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, orch.Snapshot())
}

// RequestCode asks the signing API to issue and deliver an OTP.
func (c *SigningController) RequestCode(w http.ResponseWriter, r *http.Request) {
	userID, contractID, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	orch := c.session(w, userID, contractID)
	if orch == nil {
		return
	}

	if err := orch.RequestOTP(r.Context()); err != nil {
		respondSigningError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, orch.Snapshot())
}

// ResendCode issues a replacement OTP once the cooldown has elapsed.
// Calls inside the cooldown are not errors; the snapshot shows the
// remaining wait.
func (c *SigningController) ResendCode(w http.ResponseWriter, r *http.Request) {
	userID, contractID, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	orch := c.session(w, userID, contractID)
	if orch == nil {
		return
	}

	if err := orch.ResendOTP(r.Context()); err != nil {
		respondSigningError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, orch.Snapshot())
}

// EnterCode replaces the code input buffer.
func (c *SigningController) EnterCode(w http.ResponseWriter, r *http.Request) {
	userID, contractID, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req dtos.EnterCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}
	if err := signingValidate.Struct(req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid code format", nil, err,
		)
		return
	}

	orch := c.session(w, userID, contractID)
	if orch == nil {
		return
	}
	if err := orch.SetCode(req.Code); err != nil {
		respondSigningError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, orch.Snapshot())
}

// SubmitCode verifies the buffered code and applies the signature.
func (c *SigningController) SubmitCode(w http.ResponseWriter, r *http.Request) {
	userID, contractID, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	orch := c.session(w, userID, contractID)
	if orch == nil {
		return
	}

	if err := orch.SubmitCode(r.Context()); err != nil {
		respondSigningError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, orch.Snapshot())
}

// CancelSigning tears down the session (modal close / explicit cancel).
func (c *SigningController) CancelSigning(w http.ResponseWriter, r *http.Request) {
	userID, contractID, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	c.sessions.Remove(userID, contractID)
	utils.RespondWithJSON(w, http.StatusOK, dtos.CancelSigningResponse{Message: "Signing cancelled"})
}

// SigningState returns the current presentation snapshot.
func (c *SigningController) SigningState(w http.ResponseWriter, r *http.Request) {
	userID, contractID, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	orch := c.session(w, userID, contractID)
	if orch == nil {
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, orch.Snapshot())
}

// internal/services/presentation.go
package services

import (
	"github.com/google/uuid"

	"github.com/KrisCTer/roomie-sub002/internal/models"
)

// SigningView is the derived projection the UI renders from: which
// buttons are enabled, the countdown text, and the current messages.
// It carries no state of its own and is recomputed on every read.
type SigningView struct {
	ContractID uuid.UUID           `json:"contract_id"`
	Role       models.PartyRole    `json:"role"`
	State      models.SessionState `json:"state"`

	CanRequestOTP bool `json:"can_request_otp"`
	CanResend     bool `json:"can_resend"`
	CanSubmit     bool `json:"can_submit"`
	IsBusy        bool `json:"is_busy"`

	// MM:SS while a code is pending, empty otherwise.
	CountdownLabel   string `json:"countdown_label"`
	RemainingSeconds int    `json:"remaining_seconds"`
	// Seconds until a resend becomes available; 0 when it already is.
	ResendWaitSeconds int `json:"resend_wait_seconds"`

	LastError  string `json:"last_error,omitempty"`
	LastNotice string `json:"last_notice,omitempty"`

	TenantSigned   bool                  `json:"tenant_signed"`
	LandlordSigned bool                  `json:"landlord_signed"`
	ContractStatus models.ContractStatus `json:"contract_status"`
}

// Snapshot projects the current session into view data.
func (o *SigningOrchestrator) Snapshot() SigningView {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.clk.Now()
	s := o.session

	view := SigningView{
		ContractID:     o.contract.ID,
		Role:           o.role,
		State:          s.State,
		LastError:      s.LastError,
		LastNotice:     s.LastNotice,
		TenantSigned:   o.contract.TenantSigned,
		LandlordSigned: o.contract.LandlordSigned,
		ContractStatus: o.contract.Status,
		IsBusy:         s.State == models.SessionOTPRequesting || s.State == models.SessionVerifying,
	}

	switch s.State {
	case models.SessionIdle, models.SessionOTPExpired:
		view.CanRequestOTP = !o.inFlight && CanSign(o.role, o.contract)
	case models.SessionOTPPending:
		view.RemainingSeconds = remainingSeconds(s.ExpiresAt, now)
		view.CountdownLabel = FormatCountdown(view.RemainingSeconds)
		view.ResendWaitSeconds = remainingSeconds(s.ResendAvailableAt, now)
		view.CanResend = !o.inFlight && view.ResendWaitSeconds == 0
		view.CanSubmit = !o.inFlight &&
			otpCodePattern.MatchString(s.OTPCode) &&
			view.RemainingSeconds > 0
	}

	return view
}

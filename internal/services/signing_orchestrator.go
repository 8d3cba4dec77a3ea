// internal/services/signing_orchestrator.go
package services

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/KrisCTer/roomie-sub002/internal/config"
	"github.com/KrisCTer/roomie-sub002/internal/models"
	"github.com/KrisCTer/roomie-sub002/internal/utils"
)

// ContractSigningService is the boundary to the external contract API.
// Code issuance, code validation and the actual signature application
// all happen on the far side of it.
type ContractSigningService interface {
	// RequestOTP triggers delivery of a one-time code to the party's
	// registered contact channel. Each call issues a new code that
	// invalidates any prior one.
	RequestOTP(ctx context.Context, contractID uuid.UUID, role models.PartyRole) error

	// VerifyAndSign applies the party's signature if the code checks
	// out, returning the updated contract. Failures map to
	// utils.ErrInvalidCode / utils.ErrCodeExpired where the API says so.
	VerifyAndSign(ctx context.Context, contractID uuid.UUID, role models.PartyRole, code string) (*models.Contract, error)

	GetContract(ctx context.Context, contractID uuid.UUID) (*models.Contract, error)
	GetParty(ctx context.Context, userID uuid.UUID) (*models.PartyProfile, error)
}

// User-facing copy surfaced through LastError / LastNotice.
const (
	noticeConfirmSigning = "You are about to sign this contract. Request a verification code to continue."
	noticeCodeSent       = "A verification code was sent to your registered contact."
	noticeSigned         = "Contract signed."

	errMsgCodeExpired     = "Your verification code has expired. Request a new one."
	errMsgInvalidCode     = "That code is not correct. Check it and try again."
	errMsgVerifyFailed    = "Verification failed. Please try again."
	errMsgSendFailed      = "Could not send a verification code. Please try again."
	errMsgContractReload  = "Could not load the contract. Please try again."
	errMsgNoLongerAllowed = "You are not eligible to sign this contract."
)

var otpCodePattern = regexp.MustCompile(`^[0-9]{6}$`)

// SigningOrchestrator drives one party's signing attempt on one
// contract: request a code, count down its validity, gate verify-and-
// sign behind the guards, and reconcile the resulting contract state.
//
// All transitions are serialized behind the mutex. Service calls are
// issued without holding it, guarded by the in-flight flag (at most one
// outstanding call) and the epoch counter: a response only applies if
// the session epoch still matches the one that issued the request, so a
// verify-success arriving after a cancel or a resend is discarded.
type SigningOrchestrator struct {
	svc ContractSigningService
	clk clock.Clock
	cfg *config.Config

	mu           sync.Mutex
	userID       uuid.UUID
	contract     *models.Contract
	role         models.PartyRole
	session      *models.SigningSession
	timer        *Timer
	epoch        uint64
	inFlight     bool
	lastActivity time.Time
}

func NewSigningOrchestrator(
	svc ContractSigningService,
	clk clock.Clock,
	cfg *config.Config,
	userID uuid.UUID,
	contract *models.Contract,
) *SigningOrchestrator {
	now := clk.Now()
	return &SigningOrchestrator{
		svc:          svc,
		clk:          clk,
		cfg:          cfg,
		userID:       userID,
		contract:     contract,
		role:         ResolveRole(userID, contract),
		session:      models.NewSigningSession(now),
		timer:        NewTimer(clk),
		lastActivity: now,
	}
}

// ---------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------

// Begin opens a fresh signing session. This is a hard authorization
// boundary, not a UI affordance: an unauthenticated caller, a
// non-party, or a party whose side is already signed is rejected before
// anything else happens. No network call is made here; the caller
// confirms and then requests a code.
func (o *SigningOrchestrator) Begin(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.touchLocked()

	if o.userID == uuid.Nil {
		return utils.ErrUnauthenticated
	}
	o.role = ResolveRole(o.userID, o.contract)
	if o.role == models.PartyNone {
		return utils.ErrNotAParty
	}
	if !CanSign(o.role, o.contract) {
		return utils.ErrAlreadySigned
	}

	o.resetLocked()
	o.session.SetNotice(noticeConfirmSigning)
	return nil
}

// RequestOTP asks the signing API to issue and deliver a fresh code.
// Allowed from IDLE and OTP_EXPIRED; a wrong-state or concurrent call
// is a no-op.
func (o *SigningOrchestrator) RequestOTP(ctx context.Context) error {
	o.mu.Lock()
	if o.inFlight ||
		(o.session.State != models.SessionIdle && o.session.State != models.SessionOTPExpired) {
		o.mu.Unlock()
		return nil
	}
	return o.requestCodeLocked(ctx)
}

// ResendOTP issues a replacement code from OTP_PENDING. Calls before
// the cooldown has elapsed are rejected silently: no state change, no
// network call.
func (o *SigningOrchestrator) ResendOTP(ctx context.Context) error {
	o.mu.Lock()
	if o.inFlight || o.session.State != models.SessionOTPPending {
		o.mu.Unlock()
		return nil
	}
	if o.clk.Now().Before(o.session.ResendAvailableAt) {
		o.mu.Unlock()
		return nil
	}
	return o.requestCodeLocked(ctx)
}

// requestCodeLocked performs the shared request flow. The caller holds
// the lock; ownership transfers here and the lock is released before
// any network I/O.
func (o *SigningOrchestrator) requestCodeLocked(ctx context.Context) error {
	o.touchLocked()
	o.session.ClearMessages()
	o.session.State = models.SessionOTPRequesting
	o.inFlight = true
	e := o.epoch
	o.mu.Unlock()

	// Reload the contract first: the other party may have signed, or
	// the contract may have moved on, since the session opened.
	contract, err := o.svc.GetContract(ctx, o.ContractID())
	if err != nil {
		o.settleRequestFailure(e, models.SessionIdle, errMsgContractReload)
		return err
	}
	role := ResolveRole(o.userID, contract)
	if !CanSign(role, contract) {
		o.settleAuthorizationFailure(e, contract, role)
		if role == models.PartyNone {
			return utils.ErrNotAParty
		}
		return utils.ErrAlreadySigned
	}

	err = o.svc.RequestOTP(ctx, contract.ID, role)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.epoch != e {
		// Session was reset while the call was outstanding.
		return nil
	}
	o.inFlight = false
	o.contract = contract
	o.role = role

	if err != nil {
		o.session.State = models.SessionIdle
		o.session.SetError(errMsgSendFailed)
		return err
	}

	o.epoch++
	issued := o.epoch
	now := o.clk.Now()
	o.session.State = models.SessionOTPPending
	o.session.OTPCode = ""
	o.session.ExpiresAt = now.Add(o.cfg.OTPValidity)
	o.session.ResendAvailableAt = now.Add(o.cfg.ResendCooldown)
	o.session.SetNotice(noticeCodeSent)
	o.timer.Start(o.cfg.OTPValidity, nil, func() { o.handleExpiry(issued) })
	return nil
}

// SetCode replaces the code input buffer. Only digits are accepted and
// the buffer never grows past the code length; input outside an
// OTP_PENDING session is dropped.
func (o *SigningOrchestrator) SetCode(code string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.touchLocked()

	if o.session.State != models.SessionOTPPending {
		return nil
	}
	if len(code) > o.cfg.OTPCodeLength {
		return utils.ErrInvalidCode
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return utils.ErrInvalidCode
		}
	}
	o.session.OTPCode = code
	return nil
}

// SubmitCode verifies the buffered code and applies the signature. The
// guards hold regardless of what the UI allowed: full 6-digit code,
// OTP_PENDING state, unexpired window, no outstanding call.
func (o *SigningOrchestrator) SubmitCode(ctx context.Context) error {
	o.mu.Lock()
	if o.inFlight || o.session.State == models.SessionVerifying {
		// A second submit while one is outstanding is a no-op.
		o.mu.Unlock()
		return nil
	}
	if o.session.State != models.SessionOTPPending {
		o.mu.Unlock()
		return nil
	}
	o.touchLocked()
	if !otpCodePattern.MatchString(o.session.OTPCode) {
		o.mu.Unlock()
		return utils.ErrInvalidCode
	}
	if !o.clk.Now().Before(o.session.ExpiresAt) {
		// The wall clock beat the timer; expire the session now rather
		// than issuing a verify that can only fail.
		o.timer.Stop()
		o.session.State = models.SessionOTPExpired
		o.session.OTPCode = ""
		o.session.SetError(errMsgCodeExpired)
		o.mu.Unlock()
		return utils.ErrCodeExpired
	}

	o.session.ClearMessages()
	o.session.State = models.SessionVerifying
	o.inFlight = true
	e := o.epoch
	code := o.session.OTPCode
	contractID := o.contract.ID
	role := o.role
	o.mu.Unlock()

	contract, err := o.svc.VerifyAndSign(ctx, contractID, role, code)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.epoch != e {
		// The session was reset or re-requested while the verify was
		// outstanding; do not apply a stale outcome.
		return nil
	}
	o.inFlight = false

	if err != nil {
		// Back to OTP_PENDING with the countdown untouched: a wrong
		// guess does not reset the clock.
		o.session.State = models.SessionOTPPending
		switch {
		case errors.Is(err, utils.ErrInvalidCode):
			o.session.SetError(errMsgInvalidCode)
		case errors.Is(err, utils.ErrCodeExpired):
			o.session.SetError(errMsgCodeExpired)
		default:
			o.session.SetError(errMsgVerifyFailed)
		}
		return err
	}

	o.epoch++
	o.timer.Stop()
	o.contract = contract
	o.session.State = models.SessionSigned
	o.session.OTPCode = ""
	o.session.SetNotice(noticeSigned)
	return nil
}

// Cancel tears the session down to a fresh IDLE: timer stopped, buffer
// and messages cleared, any in-flight response orphaned. Reopening
// always starts clean regardless of prior history.
func (o *SigningOrchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.touchLocked()
	o.resetLocked()
}

// Close releases the orchestrator's timer. Used on teardown paths that
// bypass Cancel (session reaping, shutdown).
func (o *SigningOrchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resetLocked()
}

// ---------------------------------------------------------------------
// Internals
// ---------------------------------------------------------------------

func (o *SigningOrchestrator) handleExpiry(issued uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.epoch != issued || o.session.State != models.SessionOTPPending {
		return
	}
	o.session.State = models.SessionOTPExpired
	o.session.OTPCode = ""
	o.session.SetError(errMsgCodeExpired)
}

// settleRequestFailure applies a request-phase failure unless the
// session has moved on in the meantime.
func (o *SigningOrchestrator) settleRequestFailure(e uint64, state models.SessionState, msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.epoch != e {
		return
	}
	o.inFlight = false
	o.session.State = state
	o.session.SetError(msg)
}

// settleAuthorizationFailure handles the re-check before requestOtp
// coming back negative: the session is dead until the user starts over.
func (o *SigningOrchestrator) settleAuthorizationFailure(e uint64, contract *models.Contract, role models.PartyRole) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.epoch != e {
		return
	}
	o.inFlight = false
	o.contract = contract
	o.role = role
	o.session.State = models.SessionFailed
	o.session.SetError(errMsgNoLongerAllowed)
}

// resetLocked returns the session to a pristine IDLE and orphans any
// outstanding work. Caller holds the lock.
func (o *SigningOrchestrator) resetLocked() {
	o.timer.Stop()
	o.epoch++
	o.inFlight = false
	o.session = models.NewSigningSession(o.clk.Now())
}

func (o *SigningOrchestrator) touchLocked() {
	o.lastActivity = o.clk.Now()
}

// ---------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------

func (o *SigningOrchestrator) UserID() uuid.UUID { return o.userID }

func (o *SigningOrchestrator) ContractID() uuid.UUID {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.contract.ID
}

func (o *SigningOrchestrator) Role() models.PartyRole {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.role
}

func (o *SigningOrchestrator) Contract() *models.Contract {
	o.mu.Lock()
	defer o.mu.Unlock()
	c := *o.contract
	return &c
}

// IdleFor reports how long ago the last command touched this session.
func (o *SigningOrchestrator) IdleFor() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.clk.Now().Sub(o.lastActivity)
}

// internal/models/signing_session.go
package models

import "time"

type SessionState string

const (
	SessionIdle          SessionState = "IDLE"
	SessionOTPRequesting SessionState = "OTP_REQUESTING"
	SessionOTPPending    SessionState = "OTP_PENDING"
	SessionOTPExpired    SessionState = "OTP_EXPIRED"
	SessionVerifying     SessionState = "VERIFYING"
	SessionSigned        SessionState = "SIGNED"
	SessionFailed        SessionState = "FAILED"
)

// SigningSession is the client-side state for one signing attempt. It
// lives in memory only; it is never written anywhere, so a reload of
// the surrounding UI forfeits any pending code.
//
// LastError and LastNotice are mutually exclusive and both are cleared
// by any state-changing command.
type SigningSession struct {
	State             SessionState `json:"state"`
	OTPCode           string       `json:"-"`
	ExpiresAt         time.Time    `json:"expires_at"`
	ResendAvailableAt time.Time    `json:"resend_available_at"`
	LastError         string       `json:"last_error,omitempty"`
	LastNotice        string       `json:"last_notice,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
}

// NewSigningSession returns a fresh IDLE session with an empty code buffer.
func NewSigningSession(now time.Time) *SigningSession {
	return &SigningSession{
		State:     SessionIdle,
		CreatedAt: now,
	}
}

// SetError records a user-facing error, displacing any notice.
func (s *SigningSession) SetError(msg string) {
	s.LastError = msg
	s.LastNotice = ""
}

// SetNotice records a user-facing notice, displacing any error.
func (s *SigningSession) SetNotice(msg string) {
	s.LastNotice = msg
	s.LastError = ""
}

// ClearMessages wipes both user-facing message slots.
func (s *SigningSession) ClearMessages() {
	s.LastError = ""
	s.LastNotice = ""
}

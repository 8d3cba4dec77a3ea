package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/KrisCTer/roomie-sub002/internal/config"
	"github.com/KrisCTer/roomie-sub002/internal/middleware"
	"github.com/KrisCTer/roomie-sub002/internal/models"
	"github.com/KrisCTer/roomie-sub002/internal/services"
	"github.com/KrisCTer/roomie-sub002/internal/utils"
)

// stubSigningAPI implements services.ContractSigningService in memory.
type stubSigningAPI struct {
	mu       sync.Mutex
	contract *models.Contract

	requestErr error
	verifyErr  error
}

func (s *stubSigningAPI) GetContract(ctx context.Context, contractID uuid.UUID) (*models.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if contractID != s.contract.ID {
		return nil, utils.ErrContractNotFound
	}
	c := *s.contract
	return &c, nil
}

func (s *stubSigningAPI) GetParty(ctx context.Context, userID uuid.UUID) (*models.PartyProfile, error) {
	return &models.PartyProfile{ID: userID}, nil
}

func (s *stubSigningAPI) RequestOTP(ctx context.Context, contractID uuid.UUID, role models.PartyRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestErr
}

func (s *stubSigningAPI) VerifyAndSign(
	ctx context.Context,
	contractID uuid.UUID,
	role models.PartyRole,
	code string,
) (*models.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.verifyErr != nil {
		return nil, s.verifyErr
	}
	switch role {
	case models.PartyTenant:
		s.contract.TenantSigned = true
	case models.PartyLandlord:
		s.contract.LandlordSigned = true
	}
	c := *s.contract
	return &c, nil
}

// controllerFixture wires the controller behind a router. Tests set
// userID to pick the caller identity; uuid.Nil means unauthenticated.
type controllerFixture struct {
	router *mux.Router
	api    *stubSigningAPI
	clk    *clock.Mock
	userID uuid.UUID
}

func newControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()
	api := &stubSigningAPI{
		contract: &models.Contract{
			ID:         uuid.New(),
			TenantID:   uuid.New(),
			LandlordID: uuid.New(),
			Status:     models.ContractStatusPendingSignature,
		},
	}
	clk := clock.NewMock()
	cfg := &config.Config{
		OTPValidity:    config.DefaultOTPValidity,
		ResendCooldown: config.DefaultResendCooldown,
		OTPCodeLength:  config.OTPCodeLength,
		SessionTTL:     config.DefaultSessionTTL,
	}
	sessions := services.NewSessionManager(api, clk, cfg)
	t.Cleanup(func() { sessions.ReapIdle(0) })

	fx := &controllerFixture{api: api, clk: clk}

	// Same contract shape AuthMiddleware has: the subject lands on the
	// request context, here with a test-controlled identity.
	identity := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if fx.userID != uuid.Nil {
				ctx := context.WithValue(r.Context(), middleware.ContextKeyUserID, fx.userID.String())
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}

	controller := NewSigningController(sessions, cfg)
	router := mux.NewRouter()
	router.Use(identity)
	router.HandleFunc("/contracts/{contractId}/begin", controller.BeginSigning).Methods("POST")
	router.HandleFunc("/contracts/{contractId}/request_code", controller.RequestCode).Methods("POST")
	router.HandleFunc("/contracts/{contractId}/resend_code", controller.ResendCode).Methods("POST")
	router.HandleFunc("/contracts/{contractId}/code", controller.EnterCode).Methods("PUT")
	router.HandleFunc("/contracts/{contractId}/submit", controller.SubmitCode).Methods("POST")
	router.HandleFunc("/contracts/{contractId}/cancel", controller.CancelSigning).Methods("POST")
	router.HandleFunc("/contracts/{contractId}/state", controller.SigningState).Methods("GET")
	fx.router = router

	return fx
}

func (f *controllerFixture) contractPath(suffix string) string {
	return "/contracts/" + f.api.contract.ID.String() + suffix
}

func (f *controllerFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) services.SigningView {
	t.Helper()
	var view services.SigningView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) utils.ErrorResponse {
	t.Helper()
	var body utils.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSigningFlowOverHTTP(t *testing.T) {
	fx := newControllerFixture(t)
	fx.userID = fx.api.contract.TenantID

	rec := fx.do(t, http.MethodPost, fx.contractPath("/begin"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeView(t, rec)
	require.Equal(t, models.SessionIdle, view.State)
	require.True(t, view.CanRequestOTP)

	rec = fx.do(t, http.MethodPost, fx.contractPath("/request_code"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeView(t, rec)
	require.Equal(t, models.SessionOTPPending, view.State)
	require.Equal(t, "05:00", view.CountdownLabel)

	rec = fx.do(t, http.MethodPut, fx.contractPath("/code"), map[string]string{"code": "123456"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, decodeView(t, rec).CanSubmit)

	rec = fx.do(t, http.MethodPost, fx.contractPath("/submit"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeView(t, rec)
	require.Equal(t, models.SessionSigned, view.State)
	require.True(t, view.TenantSigned)

	rec = fx.do(t, http.MethodGet, fx.contractPath("/state"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, models.SessionSigned, decodeView(t, rec).State)
}

func TestBeginWithoutIdentityIs401(t *testing.T) {
	fx := newControllerFixture(t)

	rec := fx.do(t, http.MethodPost, fx.contractPath("/begin"), nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, utils.ErrCodeUnauthorized, decodeError(t, rec).Code)
}

func TestBeginByNonPartyIs403(t *testing.T) {
	fx := newControllerFixture(t)
	fx.userID = uuid.New()

	rec := fx.do(t, http.MethodPost, fx.contractPath("/begin"), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, utils.ErrCodeNotAParty, decodeError(t, rec).Code)
}

func TestBeginOnUnknownContractIs404(t *testing.T) {
	fx := newControllerFixture(t)
	fx.userID = fx.api.contract.TenantID

	rec := fx.do(t, http.MethodPost, "/contracts/"+uuid.NewString()+"/begin", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, utils.ErrCodeNotFound, decodeError(t, rec).Code)
}

func TestBeginWithMalformedContractIDIs400(t *testing.T) {
	fx := newControllerFixture(t)
	fx.userID = fx.api.contract.TenantID

	rec := fx.do(t, http.MethodPost, "/contracts/not-a-uuid/begin", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, utils.ErrCodeInvalidPayload, decodeError(t, rec).Code)
}

func TestBeginByAlreadySignedPartyIs409(t *testing.T) {
	fx := newControllerFixture(t)
	fx.userID = fx.api.contract.TenantID
	fx.api.contract.TenantSigned = true

	rec := fx.do(t, http.MethodPost, fx.contractPath("/begin"), nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, utils.ErrCodeAlreadySigned, decodeError(t, rec).Code)
}

func TestCommandsWithoutSessionAre404(t *testing.T) {
	fx := newControllerFixture(t)
	fx.userID = fx.api.contract.TenantID

	for _, tc := range []struct {
		method, path string
		body         any
	}{
		{http.MethodPost, fx.contractPath("/request_code"), nil},
		{http.MethodPost, fx.contractPath("/resend_code"), nil},
		{http.MethodPut, fx.contractPath("/code"), map[string]string{"code": "123456"}},
		{http.MethodPost, fx.contractPath("/submit"), nil},
		{http.MethodGet, fx.contractPath("/state"), nil},
	} {
		rec := fx.do(t, tc.method, tc.path, tc.body)
		require.Equal(t, http.StatusNotFound, rec.Code, "%s %s", tc.method, tc.path)
		require.Equal(t, utils.ErrCodeNoActiveSession, decodeError(t, rec).Code)
	}
}

func TestEnterCodeRejectsNonNumericPayload(t *testing.T) {
	fx := newControllerFixture(t)
	fx.userID = fx.api.contract.TenantID

	rec := fx.do(t, http.MethodPut, fx.contractPath("/code"), map[string]string{"code": "12ab56"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, utils.ErrCodeValidation, decodeError(t, rec).Code)
}

func TestSubmitWithWrongCodeIs400AndSessionSurvives(t *testing.T) {
	fx := newControllerFixture(t)
	fx.userID = fx.api.contract.TenantID

	require.Equal(t, http.StatusOK, fx.do(t, http.MethodPost, fx.contractPath("/begin"), nil).Code)
	require.Equal(t, http.StatusOK, fx.do(t, http.MethodPost, fx.contractPath("/request_code"), nil).Code)
	require.Equal(t, http.StatusOK, fx.do(t, http.MethodPut, fx.contractPath("/code"), map[string]string{"code": "000000"}).Code)

	fx.api.mu.Lock()
	fx.api.verifyErr = utils.ErrInvalidCode
	fx.api.mu.Unlock()

	rec := fx.do(t, http.MethodPost, fx.contractPath("/submit"), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, utils.ErrCodeInvalidCode, decodeError(t, rec).Code)

	rec = fx.do(t, http.MethodGet, fx.contractPath("/state"), nil)
	view := decodeView(t, rec)
	require.Equal(t, models.SessionOTPPending, view.State)
	require.NotEmpty(t, view.LastError)
}

func TestRequestCodeUpstreamOutageIs424(t *testing.T) {
	fx := newControllerFixture(t)
	fx.userID = fx.api.contract.TenantID

	require.Equal(t, http.StatusOK, fx.do(t, http.MethodPost, fx.contractPath("/begin"), nil).Code)

	fx.api.mu.Lock()
	fx.api.requestErr = utils.ErrExternalServiceFailure
	fx.api.mu.Unlock()

	rec := fx.do(t, http.MethodPost, fx.contractPath("/request_code"), nil)
	require.Equal(t, http.StatusFailedDependency, rec.Code)
	require.Equal(t, utils.ErrCodeExternalServiceFailure, decodeError(t, rec).Code)
}

func TestCancelRemovesSession(t *testing.T) {
	fx := newControllerFixture(t)
	fx.userID = fx.api.contract.TenantID

	require.Equal(t, http.StatusOK, fx.do(t, http.MethodPost, fx.contractPath("/begin"), nil).Code)

	rec := fx.do(t, http.MethodPost, fx.contractPath("/cancel"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, http.MethodGet, fx.contractPath("/state"), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Cancelling again is still a 200: removal is idempotent.
	require.Equal(t, http.StatusOK, fx.do(t, http.MethodPost, fx.contractPath("/cancel"), nil).Code)
}

func TestResendInsideCooldownReportsWait(t *testing.T) {
	fx := newControllerFixture(t)
	fx.userID = fx.api.contract.TenantID

	require.Equal(t, http.StatusOK, fx.do(t, http.MethodPost, fx.contractPath("/begin"), nil).Code)
	require.Equal(t, http.StatusOK, fx.do(t, http.MethodPost, fx.contractPath("/request_code"), nil).Code)

	fx.clk.Add(10 * time.Second)
	rec := fx.do(t, http.MethodPost, fx.contractPath("/resend_code"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeView(t, rec)
	require.Equal(t, models.SessionOTPPending, view.State)
	require.False(t, view.CanResend)
	require.Equal(t, 50, view.ResendWaitSeconds)
}

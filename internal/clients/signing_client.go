// internal/clients/signing_client.go
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/KrisCTer/roomie-sub002/internal/models"
	"github.com/KrisCTer/roomie-sub002/internal/utils"
)

// SigningClient talks to the contract API that owns OTP issuance,
// code validation and signature application. It implements
// services.ContractSigningService.
//
// The client never retries on its own; recovery is always a distinct
// user action upstream.
type SigningClient struct {
	baseURL string
	http    *http.Client
}

func NewSigningClient(baseURL string, timeout time.Duration) *SigningClient {
	return &SigningClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type requestOTPPayload struct {
	Role string `json:"role"`
}

type verifyAndSignPayload struct {
	Role string `json:"role"`
	Code string `json:"code"`
}

type verifyAndSignResult struct {
	Signed   bool             `json:"signed"`
	Contract *models.Contract `json:"contract"`
}

// RequestOTP triggers delivery of a one-time code for the given party.
func (c *SigningClient) RequestOTP(ctx context.Context, contractID uuid.UUID, role models.PartyRole) error {
	url := fmt.Sprintf("%s/contracts/%s/signature/otp", c.baseURL, contractID)
	resp, err := c.post(ctx, url, requestOTPPayload{Role: role.Wire()})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return c.apiError(resp)
	}
	return nil
}

// VerifyAndSign applies the party's signature and returns the updated
// contract on success.
func (c *SigningClient) VerifyAndSign(
	ctx context.Context,
	contractID uuid.UUID,
	role models.PartyRole,
	code string,
) (*models.Contract, error) {
	url := fmt.Sprintf("%s/contracts/%s/signature", c.baseURL, contractID)
	resp, err := c.post(ctx, url, verifyAndSignPayload{Role: role.Wire(), Code: code})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp)
	}

	var result verifyAndSignResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decoding verify response: %v", utils.ErrExternalServiceFailure, err)
	}
	if !result.Signed || result.Contract == nil {
		return nil, fmt.Errorf("%w: verify response missing contract", utils.ErrExternalServiceFailure)
	}
	return result.Contract, nil
}

// GetContract fetches the contract by id.
func (c *SigningClient) GetContract(ctx context.Context, contractID uuid.UUID) (*models.Contract, error) {
	url := fmt.Sprintf("%s/contracts/%s", c.baseURL, contractID)
	var contract models.Contract
	if err := c.getJSON(ctx, url, &contract, utils.ErrContractNotFound); err != nil {
		return nil, err
	}
	return &contract, nil
}

// GetParty fetches the display profile for a signatory.
func (c *SigningClient) GetParty(ctx context.Context, userID uuid.UUID) (*models.PartyProfile, error) {
	url := fmt.Sprintf("%s/parties/%s", c.baseURL, userID)
	var party models.PartyProfile
	if err := c.getJSON(ctx, url, &party, utils.ErrPartyNotFound); err != nil {
		return nil, err
	}
	return &party, nil
}

// ---------------------------------------------------------------------
// HTTP plumbing
// ---------------------------------------------------------------------

func (c *SigningClient) post(ctx context.Context, url string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrExternalServiceFailure, err)
	}
	return resp, nil
}

func (c *SigningClient) getJSON(ctx context.Context, url string, out any, notFound error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrExternalServiceFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return notFound
	}
	if resp.StatusCode != http.StatusOK {
		return c.apiError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", utils.ErrExternalServiceFailure, err)
	}
	return nil
}

// apiError maps the API's error body to the sentinel errors the
// orchestrator branches on. Unknown 4xx codes and all 5xx responses
// surface as external service failures.
func (c *SigningClient) apiError(resp *http.Response) error {
	var body utils.ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)

	switch body.Code {
	case utils.ErrCodeInvalidCode:
		return utils.ErrInvalidCode
	case utils.ErrCodeCodeExpired:
		return utils.ErrCodeExpired
	case utils.ErrCodeAlreadySigned:
		return utils.ErrAlreadySigned
	case utils.ErrCodeNotAParty:
		return utils.ErrNotAParty
	case utils.ErrCodeNotFound:
		return utils.ErrContractNotFound
	}

	return fmt.Errorf("%w: signing api returned %d (%s)", utils.ErrExternalServiceFailure, resp.StatusCode, body.Code)
}

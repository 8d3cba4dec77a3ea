// internal/models/contract.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type ContractStatus string

const (
	ContractStatusDraft            ContractStatus = "DRAFT"
	ContractStatusPendingSignature ContractStatus = "PENDING_SIGNATURE"
	ContractStatusPendingPayment   ContractStatus = "PENDING_PAYMENT"
	ContractStatusActive           ContractStatus = "ACTIVE"
	ContractStatusExpired          ContractStatus = "EXPIRED"
	ContractStatusTerminated       ContractStatus = "TERMINATED"
)

// Contract is the rental contract as served by the contract API. The
// signing service only ever reads it; both signed flags and the status
// are owned server-side. A signed flag goes false->true exactly once,
// and status becomes ACTIVE only when both flags are true.
type Contract struct {
	ID         uuid.UUID `json:"id"`
	PropertyID uuid.UUID `json:"property_id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	LandlordID uuid.UUID `json:"landlord_id"`

	TenantSigned   bool           `json:"tenant_signed"`
	LandlordSigned bool           `json:"landlord_signed"`
	Status         ContractStatus `json:"status"`

	MonthlyRent float64    `json:"monthly_rent"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// PartyProfile holds the display data for either signatory.
type PartyProfile struct {
	ID          uuid.UUID `json:"id"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	PhoneNumber *string   `json:"phone_number,omitempty"`
}

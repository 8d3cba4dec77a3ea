// internal/services/party_resolver.go
package services

import (
	"github.com/google/uuid"

	"github.com/KrisCTer/roomie-sub002/internal/models"
)

// ResolveRole derives which side of the contract the authenticated user
// is on. Pure function: recompute whenever the identity or contract
// changes, never cache across either.
func ResolveRole(userID uuid.UUID, contract *models.Contract) models.PartyRole {
	if contract == nil || userID == uuid.Nil {
		return models.PartyNone
	}
	switch userID {
	case contract.TenantID:
		return models.PartyTenant
	case contract.LandlordID:
		return models.PartyLandlord
	default:
		return models.PartyNone
	}
}

// CanSign reports whether the given role is eligible to sign: the caller
// must be a party and their side must still be unsigned.
func CanSign(role models.PartyRole, contract *models.Contract) bool {
	if contract == nil {
		return false
	}
	switch role {
	case models.PartyTenant:
		return !contract.TenantSigned
	case models.PartyLandlord:
		return !contract.LandlordSigned
	default:
		return false
	}
}

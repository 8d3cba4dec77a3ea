package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/KrisCTer/roomie-sub002/internal/models"
)

func TestResolveRole(t *testing.T) {
	tenantID := uuid.New()
	landlordID := uuid.New()
	contract := &models.Contract{
		ID:         uuid.New(),
		TenantID:   tenantID,
		LandlordID: landlordID,
		Status:     models.ContractStatusPendingSignature,
	}

	require.Equal(t, models.PartyTenant, ResolveRole(tenantID, contract))
	require.Equal(t, models.PartyLandlord, ResolveRole(landlordID, contract))
	require.Equal(t, models.PartyNone, ResolveRole(uuid.New(), contract))
	require.Equal(t, models.PartyNone, ResolveRole(uuid.Nil, contract))
	require.Equal(t, models.PartyNone, ResolveRole(tenantID, nil))
}

func TestCanSign(t *testing.T) {
	contract := &models.Contract{
		ID:         uuid.New(),
		TenantID:   uuid.New(),
		LandlordID: uuid.New(),
		Status:     models.ContractStatusPendingSignature,
	}

	// Unsigned sides are eligible.
	require.True(t, CanSign(models.PartyTenant, contract))
	require.True(t, CanSign(models.PartyLandlord, contract))
	require.False(t, CanSign(models.PartyNone, contract))

	// A signed side is no longer eligible, independently of the other.
	contract.TenantSigned = true
	require.False(t, CanSign(models.PartyTenant, contract))
	require.True(t, CanSign(models.PartyLandlord, contract))

	contract.LandlordSigned = true
	require.False(t, CanSign(models.PartyLandlord, contract))

	require.False(t, CanSign(models.PartyTenant, nil))
}

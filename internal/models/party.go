// internal/models/party.go
package models

import "fmt"

// PartyRole says which side of the contract the authenticated user is
// on. It is derived, never stored.
type PartyRole string

const (
	PartyTenant   PartyRole = "TENANT"
	PartyLandlord PartyRole = "LANDLORD"
	PartyNone     PartyRole = "NONE"
)

// ParsePartyRole converts the wire form ("tenant", "landlord") to the enum.
func ParsePartyRole(s string) (PartyRole, error) {
	switch s {
	case "tenant", "TENANT":
		return PartyTenant, nil
	case "landlord", "LANDLORD":
		return PartyLandlord, nil
	default:
		return PartyNone, fmt.Errorf("invalid party role: %q", s)
	}
}

// Wire returns the lowercase form used in signing API payloads.
func (r PartyRole) Wire() string {
	switch r {
	case PartyTenant:
		return "tenant"
	case PartyLandlord:
		return "landlord"
	default:
		return "none"
	}
}

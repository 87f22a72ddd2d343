package oracle

import (
	"errors"

	"github.com/mintmesh/listing-ledger/internal/entity"
)

// ErrTransferDenied is returned by collaborators when a transfer or payout is
// refused by the underlying platform.
var ErrTransferDenied = errors.New("transfer denied")

// AssetOracle is the host platform's view of asset ownership. Transfer moves
// quantity units of the asset between identities and fails atomically.
type AssetOracle interface {
	OwnerOf(asset entity.AssetRef) (entity.Identity, error)
	BalanceOf(identity entity.Identity, asset entity.AssetRef) (uint64, error)
	IsApproved(identity entity.Identity, operator entity.Identity, asset entity.AssetRef) (bool, error)
	Transfer(asset entity.AssetRef, from, to entity.Identity, quantity uint64) error
}

// Currency settles payouts from the escrow the host platform holds for the
// duration of one operation. Reclaim pulls a completed payout back into the
// escrow so a failed later transfer can unwind the whole settlement.
type Currency interface {
	Pay(to entity.Identity, amount uint64) error
	Reclaim(from entity.Identity, amount uint64) error
	Native() bool
}

// RoyaltyOracle resolves the secondary-sale royalty for an asset. The
// returned amount never exceeds salePrice.
type RoyaltyOracle interface {
	RoyaltyInfo(asset entity.AssetRef, salePrice uint64) (entity.Identity, uint64, error)
}

type Role string

const (
	AdminRole  Role = "admin"
	PauserRole Role = "pauser"
)

// RoleChecker is a capability check against an externally supplied
// identity-to-role mapping.
type RoleChecker interface {
	HasRole(identity entity.Identity, role Role) bool
}

// StaticRoles is a RoleChecker backed by a fixed mapping.
type StaticRoles map[entity.Identity][]Role

func (s StaticRoles) HasRole(identity entity.Identity, role Role) bool {
	for _, r := range s[identity] {
		if r == role {
			return true
		}
	}
	return false
}

package raffle

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when a caller lacks the capability an
// operation requires.
var ErrUnauthorized = errors.New("unauthorized")

// AccessControl is the single capability check gating privileged operations.
// Every mutating entry point consults it before touching state instead of
// duplicating caller checks ad hoc.
type AccessControl struct {
	owner       string
	beneficiary string
}

// NewAccessControl configures the owner and beneficiary identities.
func NewAccessControl(owner, beneficiary string) *AccessControl {
	return &AccessControl{owner: owner, beneficiary: beneficiary}
}

// RequireOwner admits only the configured owner.
func (a *AccessControl) RequireOwner(caller string) error {
	return a.require(caller, a.owner, "owner")
}

// RequireBeneficiary admits only the configured beneficiary.
func (a *AccessControl) RequireBeneficiary(caller string) error {
	return a.require(caller, a.beneficiary, "beneficiary")
}

// RequireIdentity admits only the given identity; used for the winner, which
// is only known once a round settles.
func (a *AccessControl) RequireIdentity(caller, authorized, role string) error {
	return a.require(caller, authorized, role)
}

func (a *AccessControl) require(caller, authorized, role string) error {
	if caller == "" || caller != authorized {
		return fmt.Errorf("%w: caller %q is not the %s", ErrUnauthorized, caller, role)
	}
	return nil
}

// Beneficiary returns the configured beneficiary identity.
func (a *AccessControl) Beneficiary() string {
	return a.beneficiary
}

// Owner returns the configured owner identity.
func (a *AccessControl) Owner() string {
	return a.owner
}

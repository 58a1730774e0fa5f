package identity

import (
	"fmt"

	"tourbook-backend/internal/apperr"
	"tourbook-backend/internal/model"
)

// Decision is the outcome of a role check.
type Decision string

const (
	DecisionAllowed Decision = "allowed"
	DecisionDenied  Decision = "denied"
)

// RoleGate decides whether a resolved profile may perform a vendor or admin
// action. A nil profile has the customer role.
type RoleGate struct{}

func NewRoleGate() *RoleGate { return &RoleGate{} }

func (g *RoleGate) Check(p *model.Profile, roles ...model.Role) Decision {
	role := model.RoleCustomer
	if p != nil {
		role = p.Role
	}
	for _, r := range roles {
		if r == role {
			return DecisionAllowed
		}
	}
	return DecisionDenied
}

// Allow returns apperr.ErrForbidden unless the profile has one of roles.
func (g *RoleGate) Allow(p *model.Profile, roles ...model.Role) error {
	if g.Check(p, roles...) == DecisionAllowed {
		return nil
	}
	return fmt.Errorf("role %s: %w", roleOf(p), apperr.ErrForbidden)
}

// AllowOwner lets the owner of a resource through, and admins for any owner.
func (g *RoleGate) AllowOwner(p *model.Profile, ownerID string) error {
	if p != nil && (p.Role == model.RoleAdmin || p.ID == ownerID) {
		return nil
	}
	return fmt.Errorf("principal is not %s: %w", ownerID, apperr.ErrForbidden)
}

func roleOf(p *model.Profile) model.Role {
	if p == nil {
		return model.RoleCustomer
	}
	return p.Role
}

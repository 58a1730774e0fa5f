package identity

import "tourbook-backend/internal/model"

// Surface is the top-level navigation a client mounts after sign-in.
type Surface string

const (
	SurfaceCustomer Surface = "customer"
	SurfaceVendor   Surface = "vendor"
	SurfaceAdmin    Surface = "admin"
)

// SurfaceFor maps a profile to its surface. A nil profile is a customer.
func SurfaceFor(p *model.Profile) Surface {
	if p == nil {
		return SurfaceCustomer
	}
	switch p.Role {
	case model.RoleVendor:
		return SurfaceVendor
	case model.RoleAdmin:
		return SurfaceAdmin
	default:
		return SurfaceCustomer
	}
}

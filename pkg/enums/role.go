package enums

import "fmt"

// Role is the platform-level role carried in access tokens.
type Role string

const (
	RoleCustomer  Role = "customer"
	RoleShopOwner Role = "shop_owner"
	RoleStaff     Role = "staff"
	RoleAdmin     Role = "admin"
)

var validRoles = []Role{
	RoleCustomer,
	RoleShopOwner,
	RoleStaff,
	RoleAdmin,
}

// Capability names an action gated by role.
type Capability string

const (
	CapabilityManageShop         Capability = "manage_shop"
	CapabilityResolveComplaints  Capability = "resolve_complaints"
	CapabilityProcessWithdrawals Capability = "process_withdrawals"
)

var roleCapabilities = map[Role][]Capability{
	RoleShopOwner: {CapabilityManageShop},
	RoleStaff:     {CapabilityResolveComplaints},
	RoleAdmin:     {CapabilityResolveComplaints, CapabilityProcessWithdrawals},
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// Can reports whether the role grants the capability.
func (r Role) Can(c Capability) bool {
	for _, candidate := range roleCapabilities[r] {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}

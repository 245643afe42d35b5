package domain

import "strings"

// Role is the account role a caller authenticates with.
type Role string

// The seven account roles. Anything else is RoleAnonymous.
const (
	RoleAdmin            Role = "admin"
	RoleB2CVisitor       Role = "b2c_visitor"
	RoleCorporate        Role = "corporate"
	RoleHoreca           Role = "horeca"
	RoleSupplier         Role = "supplier"
	RoleSupplierMerchant Role = "supplier_merchant"
	RoleStorageClient    Role = "storage_client"

	RoleAnonymous Role = ""
)

// Roles lists every authenticated role.
func Roles() []Role {
	return []Role{
		RoleAdmin,
		RoleB2CVisitor,
		RoleCorporate,
		RoleHoreca,
		RoleSupplier,
		RoleSupplierMerchant,
		RoleStorageClient,
	}
}

// ParseRole maps a claim or header value to a Role. Unknown values are
// anonymous.
func ParseRole(s string) Role {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := capabilities[r]; ok {
		return r
	}
	return RoleAnonymous
}

func (r Role) String() string {
	if r == RoleAnonymous {
		return "anonymous"
	}
	return string(r)
}

// Capability is a permission a role may hold over the catalog.
type Capability uint8

const (
	// CapViewAllTiers allows reading every stored price tier.
	CapViewAllTiers Capability = 1 << iota
	// CapCreateProduct allows creating products.
	CapCreateProduct
	// CapOwnProducts marks roles that own the products they create.
	CapOwnProducts
	// CapManageAny allows mutating and restoring any product.
	CapManageAny
	// CapWholesale allows bulk pricing at or above the minimum quantity.
	CapWholesale
)

var capabilities = map[Role]Capability{
	RoleAdmin:            CapViewAllTiers | CapCreateProduct | CapManageAny,
	RoleB2CVisitor:       0,
	RoleCorporate:        CapWholesale,
	RoleHoreca:           0,
	RoleSupplier:         CapCreateProduct | CapOwnProducts | CapWholesale,
	RoleSupplierMerchant: CapCreateProduct | CapOwnProducts | CapWholesale,
	RoleStorageClient:    0,
	RoleAnonymous:        0,
}

// Can reports whether r holds capability c.
func (r Role) Can(c Capability) bool {
	return capabilities[r]&c == c
}

// IsSupplier reports whether r may be referenced as a product's supplier.
func (r Role) IsSupplier() bool {
	return r.Can(CapOwnProducts)
}

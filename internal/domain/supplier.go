package domain

// Supplier is the directory's view of a user referenced as a product owner.
type Supplier struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	IsDeleted bool   `json:"is_deleted"`
}

// IsActiveSupplier reports whether s may own products.
func (s *Supplier) IsActiveSupplier() bool {
	return s != nil && !s.IsDeleted && s.Role.IsSupplier()
}

// Actor is the authenticated caller performing an operation.
type Actor struct {
	UserID string
	Role   Role
}

// Anonymous reports whether the caller presented no identity.
func (a Actor) Anonymous() bool {
	return a.UserID == "" && a.Role == RoleAnonymous
}

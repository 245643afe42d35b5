// Package pricing decides which stored price a caller observes.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/utafrali/TradeCatalog/internal/domain"
)

// rule maps a role onto its tiers. bulk, when set, replaces base once the
// requested quantity reaches the product's wholesale minimum.
type rule struct {
	base domain.Tier
	bulk domain.Tier
}

var rules = map[domain.Role]rule{
	domain.RoleAdmin:            {base: domain.TierEndUser},
	domain.RoleB2CVisitor:       {base: domain.TierB2C},
	domain.RoleCorporate:        {base: domain.TierCorporate, bulk: domain.TierWholesale},
	domain.RoleHoreca:           {base: domain.TierHoreca},
	domain.RoleSupplier:         {base: domain.TierWholesale},
	domain.RoleSupplierMerchant: {base: domain.TierWholesale},
	domain.RoleStorageClient:    {base: domain.TierCorporate},
	domain.RoleAnonymous:        {base: domain.TierEndUser},
}

func ruleFor(role domain.Role) rule {
	if r, ok := rules[role]; ok {
		return r
	}
	return rules[domain.RoleAnonymous]
}

// Resolution is the price a caller observes. All is set only for roles that
// may view every tier.
type Resolution struct {
	Price decimal.Decimal
	Tier  domain.Tier
	All   *domain.Prices
}

// NormalizeQuantity treats anything below 1 as 1.
func NormalizeQuantity(quantity int) int {
	if quantity < 1 {
		return 1
	}
	return quantity
}

// TierFor returns the tier role observes at quantity for a product whose
// wholesale minimum is minQuantity.
func TierFor(role domain.Role, quantity, minQuantity int) domain.Tier {
	r := ruleFor(role)
	if r.bulk != "" && NormalizeQuantity(quantity) >= minQuantity {
		return r.bulk
	}
	return r.base
}

// Resolve returns the price role observes for p at quantity.
func Resolve(role domain.Role, p *domain.Product, quantity int) Resolution {
	tier := TierFor(role, quantity, p.WholesaleMinQuantity)
	res := Resolution{Price: p.Prices.Get(tier), Tier: tier}
	if role.Can(domain.CapViewAllTiers) {
		all := p.Prices
		res.All = &all
	}
	return res
}

// HasQuantityTier reports whether the price role observes depends on the
// requested quantity.
func HasQuantityTier(role domain.Role) bool {
	return ruleFor(role).bulk != ""
}

// WholesaleEligible reports whether role may buy p at wholesale for quantity.
func WholesaleEligible(role domain.Role, p *domain.Product, quantity int) bool {
	return role.Can(domain.CapWholesale) && NormalizeQuantity(quantity) >= p.WholesaleMinQuantity
}

// SQLExpr renders the price column role observes as a SQL expression.
// quantityArg is the placeholder holding the requested quantity.
func SQLExpr(role domain.Role, quantityArg string) string {
	r := ruleFor(role)
	if r.bulk == "" {
		return string(r.base)
	}
	return fmt.Sprintf("CASE WHEN %s >= wholesale_min_quantity THEN %s ELSE %s END", quantityArg, r.bulk, r.base)
}

package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/utafrali/TradeCatalog/internal/domain"
)

// CatalogValidator checks proposed catalog writes. It performs no I/O; the
// supplier reference is checked separately once the directory has resolved it.
type CatalogValidator struct{}

// NewCatalogValidator creates a CatalogValidator.
func NewCatalogValidator() *CatalogValidator {
	return &CatalogValidator{}
}

// ValidateCreate checks in on behalf of actor and returns the normalized
// product with defaults applied. ID and timestamps are left for the caller.
func (v *CatalogValidator) ValidateCreate(in *domain.CreateProductInput, actor domain.Actor) (*domain.Product, error) {
	if !actor.Role.Can(domain.CapCreateProduct) {
		return nil, domain.OwnershipViolation(fmt.Sprintf("role %s may not create products", actor.Role))
	}

	supplierID := strings.TrimSpace(in.SupplierID)
	if actor.Role.Can(domain.CapOwnProducts) {
		if supplierID != "" && supplierID != actor.UserID {
			return nil, domain.OwnershipViolation("suppliers may only create their own products")
		}
		supplierID = actor.UserID
	}

	p := &domain.Product{
		SupplierID:           supplierID,
		NameEn:               strings.TrimSpace(in.NameEn),
		NameAr:               strings.TrimSpace(in.NameAr),
		DescriptionEn:        strings.TrimSpace(in.DescriptionEn),
		DescriptionAr:        strings.TrimSpace(in.DescriptionAr),
		Category:             strings.TrimSpace(in.Category),
		Subcategory:          strings.TrimSpace(in.Subcategory),
		Unit:                 strings.TrimSpace(in.Unit),
		UnitSize:             domain.DefaultUnitSize,
		WholesaleMinQuantity: domain.DefaultWholesaleMinQuantity,
		IsAvailable:          true,
		Lifecycle:            domain.Active(),
	}
	if in.UnitSize != nil {
		p.UnitSize = *in.UnitSize
	}
	if in.WholesaleMinQuantity != nil {
		p.WholesaleMinQuantity = *in.WholesaleMinQuantity
	}
	if in.StockQuantity != nil {
		p.StockQuantity = *in.StockQuantity
	}
	if in.IsAvailable != nil {
		p.IsAvailable = *in.IsAvailable
	}

	prices := []*decimal.Decimal{in.EndUserPrice, in.RetailPriceB2C, in.RetailPriceCorporate, in.RetailPriceHoreca, in.WholesalePrice}
	for i, tier := range domain.Tiers() {
		if prices[i] == nil || prices[i].IsNegative() {
			return nil, domain.MissingRequiredField(string(tier))
		}
	}
	p.Prices = domain.Prices{
		EndUser:   *in.EndUserPrice,
		B2C:       *in.RetailPriceB2C,
		Corporate: *in.RetailPriceCorporate,
		Horeca:    *in.RetailPriceHoreca,
		Wholesale: *in.WholesalePrice,
	}

	if err := checkRecord(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ValidateUpdate applies patch to existing on behalf of actor and returns the
// merged product. existing is not modified.
func (v *CatalogValidator) ValidateUpdate(existing *domain.Product, patch *domain.UpdateProductInput, actor domain.Actor) (*domain.Product, error) {
	if existing.IsDeleted() {
		if actor.Role.Can(domain.CapManageAny) {
			return nil, domain.ProductDeleted(existing.ID)
		}
		return nil, domain.ProductNotFound(existing.ID)
	}
	if err := checkOwnership(existing, actor); err != nil {
		return nil, err
	}
	if patch.SupplierID != nil && strings.TrimSpace(*patch.SupplierID) != existing.SupplierID {
		return nil, domain.OwnershipViolation("a product's supplier cannot be reassigned")
	}

	p := existing.Clone()
	setString(&p.NameEn, patch.NameEn)
	setString(&p.NameAr, patch.NameAr)
	setString(&p.DescriptionEn, patch.DescriptionEn)
	setString(&p.DescriptionAr, patch.DescriptionAr)
	setString(&p.Category, patch.Category)
	setString(&p.Subcategory, patch.Subcategory)
	setString(&p.Unit, patch.Unit)
	setDecimal(&p.UnitSize, patch.UnitSize)
	setDecimal(&p.Prices.EndUser, patch.EndUserPrice)
	setDecimal(&p.Prices.B2C, patch.RetailPriceB2C)
	setDecimal(&p.Prices.Corporate, patch.RetailPriceCorporate)
	setDecimal(&p.Prices.Horeca, patch.RetailPriceHoreca)
	setDecimal(&p.Prices.Wholesale, patch.WholesalePrice)
	if patch.WholesaleMinQuantity != nil {
		p.WholesaleMinQuantity = *patch.WholesaleMinQuantity
	}
	if patch.StockQuantity != nil {
		p.StockQuantity = *patch.StockQuantity
	}
	if patch.IsAvailable != nil {
		p.IsAvailable = *patch.IsAvailable
	}

	for _, tier := range domain.Tiers() {
		if p.Prices.Get(tier).IsNegative() {
			return nil, domain.MissingRequiredField(string(tier))
		}
	}
	if err := checkRecord(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ValidateDelete reports whether deleting existing would change anything.
// Deleting a deleted product is a no-op.
func (v *CatalogValidator) ValidateDelete(existing *domain.Product, actor domain.Actor) (noop bool, err error) {
	if err := checkOwnership(existing, actor); err != nil {
		return false, err
	}
	return existing.IsDeleted(), nil
}

// ValidateRestore reports whether restoring existing would change anything.
// Only administrators may restore.
func (v *CatalogValidator) ValidateRestore(existing *domain.Product, actor domain.Actor) (noop bool, err error) {
	if !actor.Role.Can(domain.CapManageAny) {
		return false, domain.OwnershipViolation("only administrators may restore products")
	}
	return !existing.IsDeleted(), nil
}

// ValidateSupplier rejects unknown, deleted and non-supplier references. A nil
// supplier is unknown.
func (v *CatalogValidator) ValidateSupplier(s *domain.Supplier) error {
	if !s.IsActiveSupplier() {
		return domain.OwnershipViolation("supplier reference is not an active supplier")
	}
	return nil
}

func checkOwnership(p *domain.Product, actor domain.Actor) error {
	if actor.Role.Can(domain.CapManageAny) {
		return nil
	}
	if actor.Role.Can(domain.CapOwnProducts) && actor.UserID != "" && actor.UserID == p.SupplierID {
		return nil
	}
	return domain.OwnershipViolation("product belongs to another supplier")
}

// checkRecord enforces required text fields, quantity ranges and price
// ordering on a fully populated product.
func checkRecord(p *domain.Product) error {
	required := []struct {
		field string
		value string
	}{
		{"category", p.Category},
		{"unit", p.Unit},
		{"supplier_id", p.SupplierID},
		{"name_en", p.NameEn},
	}
	for _, r := range required {
		if r.value == "" {
			return domain.MissingRequiredField(r.field)
		}
	}

	switch {
	case p.WholesaleMinQuantity < 1:
		return domain.InvalidQuantity("wholesale_min_quantity", "wholesale_min_quantity must be at least 1")
	case p.StockQuantity < 0:
		return domain.InvalidQuantity("stock_quantity", "stock_quantity must not be negative")
	case !p.UnitSize.IsPositive():
		return domain.InvalidQuantity("unit_size", "unit_size must be greater than 0")
	}

	for _, tier := range []domain.Tier{domain.TierB2C, domain.TierCorporate, domain.TierHoreca} {
		if p.Prices.Wholesale.GreaterThan(p.Prices.Get(tier)) {
			return domain.PriceOrderingViolation(tier)
		}
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setDecimal(dst *decimal.Decimal, v *decimal.Decimal) {
	if v != nil {
		*dst = *v
	}
}

// ValidateImageChange checks that actor may attach or remove images on
// existing. A deleted product is hidden from everyone but administrators, who
// are told it is deleted.
func (v *CatalogValidator) ValidateImageChange(existing *domain.Product, actor domain.Actor) error {
	if existing.IsDeleted() {
		if actor.Role.Can(domain.CapManageAny) {
			return domain.ProductDeleted(existing.ID)
		}
		return domain.ProductNotFound(existing.ID)
	}
	return checkOwnership(existing, actor)
}

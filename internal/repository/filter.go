package repository

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/utafrali/TradeCatalog/internal/domain"
	"github.com/utafrali/TradeCatalog/internal/pricing"
	"github.com/utafrali/TradeCatalog/pkg/pagination"
)

// SearchFilter narrows a product scan. Price bounds apply to the price the
// caller's Role observes at Quantity. Deleted products never match.
type SearchFilter struct {
	Query         string
	Category      string
	Subcategory   string
	SupplierID    string
	AvailableOnly bool
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal

	Role     domain.Role
	Quantity int

	Page     int
	PageSize int
}

// Normalize trims text criteria and clamps quantity and pagination. A zero
// PageSize means the default page size.
func (f SearchFilter) Normalize() SearchFilter {
	f.Query = strings.TrimSpace(f.Query)
	f.Category = strings.TrimSpace(f.Category)
	f.Subcategory = strings.TrimSpace(f.Subcategory)
	f.SupplierID = strings.TrimSpace(f.SupplierID)
	f.Quantity = pricing.NormalizeQuantity(f.Quantity)

	if f.PageSize == 0 {
		f.PageSize = pagination.DefaultPageSize
	}
	p := pagination.Clamp(f.Page, f.PageSize)
	f.Page, f.PageSize = p.Page, p.PageSize
	return f
}

// Offset is the number of matches preceding the requested page.
func (f SearchFilter) Offset() int {
	return pagination.Params{Page: f.Page, PageSize: f.PageSize}.Offset()
}

// Matches reports whether p satisfies every criterion.
func (f SearchFilter) Matches(p *domain.Product) bool {
	if p.IsDeleted() {
		return false
	}
	if f.AvailableOnly && !p.IsAvailable {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Subcategory != "" && p.Subcategory != f.Subcategory {
		return false
	}
	if f.SupplierID != "" && p.SupplierID != f.SupplierID {
		return false
	}
	if f.Query != "" && !matchesText(p, f.Query) {
		return false
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := pricing.Resolve(f.Role, p, f.Quantity).Price
		if f.MinPrice != nil && price.LessThan(*f.MinPrice) {
			return false
		}
		if f.MaxPrice != nil && price.GreaterThan(*f.MaxPrice) {
			return false
		}
	}
	return true
}

func matchesText(p *domain.Product, query string) bool {
	q := strings.ToLower(query)
	for _, field := range []string{p.NameEn, p.NameAr, p.DescriptionEn, p.DescriptionAr} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

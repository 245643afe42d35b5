package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/TradeCatalog/internal/domain"
)

// ProductView is a product priced for one caller.
type ProductView struct {
	ID                   string          `json:"id"`
	SupplierID           string          `json:"supplier_id"`
	NameEn               string          `json:"name_en"`
	NameAr               string          `json:"name_ar"`
	DescriptionEn        string          `json:"description_en"`
	DescriptionAr        string          `json:"description_ar"`
	Category             string          `json:"category"`
	Subcategory          string          `json:"subcategory"`
	Unit                 string          `json:"unit"`
	UnitSize             decimal.Decimal `json:"unit_size"`
	Price                decimal.Decimal `json:"price"`
	PriceTier            domain.Tier     `json:"price_tier"`
	WholesaleEligible    bool            `json:"wholesale_eligible"`
	WholesaleMinQuantity *int            `json:"wholesale_min_quantity,omitempty"`
	IsAvailable          bool            `json:"is_available"`
	StockQuantity        int             `json:"stock_quantity"`
	Prices               *domain.Prices  `json:"prices,omitempty"`
	IsDeleted            *bool           `json:"is_deleted,omitempty"`
	DeletedAt            *time.Time      `json:"deleted_at,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// View prices p for role at quantity.
func View(p *domain.Product, role domain.Role, quantity int) ProductView {
	res := Resolve(role, p, quantity)
	v := ProductView{
		ID:                p.ID,
		SupplierID:        p.SupplierID,
		NameEn:            p.NameEn,
		NameAr:            p.NameAr,
		DescriptionEn:     p.DescriptionEn,
		DescriptionAr:     p.DescriptionAr,
		Category:          p.Category,
		Subcategory:       p.Subcategory,
		Unit:              p.Unit,
		UnitSize:          p.UnitSize,
		Price:             res.Price,
		PriceTier:         res.Tier,
		WholesaleEligible: WholesaleEligible(role, p, quantity),
		IsAvailable:       p.IsAvailable,
		StockQuantity:     p.StockQuantity,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	if HasQuantityTier(role) || res.All != nil {
		minQty := p.WholesaleMinQuantity
		v.WholesaleMinQuantity = &minQty
	}
	if res.All != nil {
		deleted := p.IsDeleted()
		v.Prices = res.All
		v.IsDeleted = &deleted
		v.DeletedAt = p.Lifecycle.DeletedTime()
	}
	return v
}

// Views prices every product in ps.
func Views(ps []domain.Product, role domain.Role, quantity int) []ProductView {
	out := make([]ProductView, 0, len(ps))
	for i := range ps {
		out = append(out, View(&ps[i], role, quantity))
	}
	return out
}

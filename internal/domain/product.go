package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Tier names one of the five stored price columns.
type Tier string

// Price tiers, named after their storage columns.
const (
	TierEndUser   Tier = "end_user_price"
	TierB2C       Tier = "retail_price_b2c"
	TierCorporate Tier = "retail_price_corporate"
	TierHoreca    Tier = "retail_price_horeca"
	TierWholesale Tier = "wholesale_price"
)

// Tiers returns all price tiers in column order.
func Tiers() []Tier {
	return []Tier{TierEndUser, TierB2C, TierCorporate, TierHoreca, TierWholesale}
}

// DefaultWholesaleMinQuantity applies when a new product omits the minimum.
const DefaultWholesaleMinQuantity = 5

// DefaultUnitSize is the unit size used when none is given.
var DefaultUnitSize = decimal.NewFromInt(1)

// Prices holds the five stored tiers of a product.
type Prices struct {
	EndUser   decimal.Decimal `json:"end_user_price"`
	B2C       decimal.Decimal `json:"retail_price_b2c"`
	Corporate decimal.Decimal `json:"retail_price_corporate"`
	Horeca    decimal.Decimal `json:"retail_price_horeca"`
	Wholesale decimal.Decimal `json:"wholesale_price"`
}

// Get returns the price stored for tier t.
func (p Prices) Get(t Tier) decimal.Decimal {
	switch t {
	case TierB2C:
		return p.B2C
	case TierCorporate:
		return p.Corporate
	case TierHoreca:
		return p.Horeca
	case TierWholesale:
		return p.Wholesale
	default:
		return p.EndUser
	}
}

// Lifecycle is either active or deleted at a point in time. The zero value
// is active.
type Lifecycle struct {
	deletedAt *time.Time
}

// Active returns the active lifecycle.
func Active() Lifecycle { return Lifecycle{} }

// DeletedAt returns a lifecycle soft-deleted at t.
func DeletedAt(t time.Time) Lifecycle {
	t = t.UTC()
	return Lifecycle{deletedAt: &t}
}

// IsDeleted reports whether the product is soft-deleted.
func (l Lifecycle) IsDeleted() bool { return l.deletedAt != nil }

// DeletedTime returns when the product was deleted, or nil when active.
func (l Lifecycle) DeletedTime() *time.Time {
	if l.deletedAt == nil {
		return nil
	}
	t := *l.deletedAt
	return &t
}

type lifecycleJSON struct {
	IsDeleted bool       `json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func (l Lifecycle) MarshalJSON() ([]byte, error) {
	return json.Marshal(lifecycleJSON{IsDeleted: l.IsDeleted(), DeletedAt: l.deletedAt})
}

func (l *Lifecycle) UnmarshalJSON(data []byte) error {
	var v lifecycleJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch {
	case v.DeletedAt != nil:
		*l = DeletedAt(*v.DeletedAt)
	case v.IsDeleted:
		*l = DeletedAt(time.Time{})
	default:
		*l = Active()
	}
	return nil
}

// Product is a catalog entry owned by one supplier.
type Product struct {
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
	Prices               Prices          `json:"prices"`
	WholesaleMinQuantity int             `json:"wholesale_min_quantity"`
	StockQuantity        int             `json:"stock_quantity"`
	IsAvailable          bool            `json:"is_available"`
	Lifecycle            Lifecycle       `json:"lifecycle"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// IsDeleted reports whether the product is soft-deleted.
func (p *Product) IsDeleted() bool { return p.Lifecycle.IsDeleted() }

// Clone returns a copy that shares no mutable state with p.
func (p *Product) Clone() *Product {
	c := *p
	c.Lifecycle = Lifecycle{deletedAt: p.Lifecycle.DeletedTime()}
	return &c
}

// CreateProductInput is a proposed new product. Pointer fields distinguish
// absent values from zero values.
type CreateProductInput struct {
	SupplierID           string           `json:"supplier_id" validate:"max=64"`
	NameEn               string           `json:"name_en" validate:"max=255"`
	NameAr               string           `json:"name_ar" validate:"max=255"`
	DescriptionEn        string           `json:"description_en"`
	DescriptionAr        string           `json:"description_ar"`
	Category             string           `json:"category" validate:"max=100"`
	Subcategory          string           `json:"subcategory" validate:"max=100"`
	Unit                 string           `json:"unit" validate:"max=50"`
	UnitSize             *decimal.Decimal `json:"unit_size"`
	EndUserPrice         *decimal.Decimal `json:"end_user_price"`
	RetailPriceB2C       *decimal.Decimal `json:"retail_price_b2c"`
	RetailPriceCorporate *decimal.Decimal `json:"retail_price_corporate"`
	RetailPriceHoreca    *decimal.Decimal `json:"retail_price_horeca"`
	WholesalePrice       *decimal.Decimal `json:"wholesale_price"`
	WholesaleMinQuantity *int             `json:"wholesale_min_quantity"`
	StockQuantity        *int             `json:"stock_quantity"`
	IsAvailable          *bool            `json:"is_available"`
}

// UpdateProductInput is a partial update. Nil fields are left unchanged.
type UpdateProductInput struct {
	SupplierID           *string          `json:"supplier_id" validate:"omitempty,max=64"`
	NameEn               *string          `json:"name_en" validate:"omitempty,max=255"`
	NameAr               *string          `json:"name_ar" validate:"omitempty,max=255"`
	DescriptionEn        *string          `json:"description_en"`
	DescriptionAr        *string          `json:"description_ar"`
	Category             *string          `json:"category" validate:"omitempty,max=100"`
	Subcategory          *string          `json:"subcategory" validate:"omitempty,max=100"`
	Unit                 *string          `json:"unit" validate:"omitempty,max=50"`
	UnitSize             *decimal.Decimal `json:"unit_size"`
	EndUserPrice         *decimal.Decimal `json:"end_user_price"`
	RetailPriceB2C       *decimal.Decimal `json:"retail_price_b2c"`
	RetailPriceCorporate *decimal.Decimal `json:"retail_price_corporate"`
	RetailPriceHoreca    *decimal.Decimal `json:"retail_price_horeca"`
	WholesalePrice       *decimal.Decimal `json:"wholesale_price"`
	WholesaleMinQuantity *int             `json:"wholesale_min_quantity"`
	StockQuantity        *int             `json:"stock_quantity"`
	IsAvailable          *bool            `json:"is_available"`
}

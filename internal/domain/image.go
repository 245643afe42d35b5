package domain

import "time"

// ProductImage is an additional image attached to a product. The image bytes
// live elsewhere; the catalog stores the reference and display metadata.
type ProductImage struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	URL       string    `json:"url"`
	AltText   string    `json:"alt_text"`
	IsPrimary bool      `json:"is_primary"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

// AddImageInput describes an image to attach to a product.
type AddImageInput struct {
	URL       string `json:"url" validate:"required,url,max=500"`
	AltText   string `json:"alt_text" validate:"max=200"`
	IsPrimary bool   `json:"is_primary"`
	SortOrder *int   `json:"sort_order" validate:"omitempty,min=0"`
}

package domain

import "encoding/json"

// Product is a catalog entry as served by the backend. The storefront never
// owns it; cart lines keep a snapshot.
type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Code         string          `json:"code"`
	SalePrice    Money           `json:"salePrice"`
	FinalPrice   *Money          `json:"finalPrice,omitempty"`
	Quantity     int             `json:"quantity"`
	Images       json.RawMessage `json:"images,omitempty"`
	BrandName    string          `json:"brandName,omitempty"`
	CategoryName string          `json:"categoryName,omitempty"`
	Status       string          `json:"status,omitempty"`
}

// Price is the unit price charged for the product: finalPrice when the
// backend computed a positive one, salePrice otherwise. Undiscounted
// products may carry finalPrice 0.
func (p Product) Price() Money {
	if p.FinalPrice != nil && *p.FinalPrice > 0 {
		return *p.FinalPrice
	}
	return p.SalePrice
}

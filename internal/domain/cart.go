package domain

// CartLineItem is one product in a cart. Quantity is always at least 1.
type CartLineItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// LineTotal is the snapshot price times the quantity.
func (l CartLineItem) LineTotal() Money {
	return l.Product.Price() * Money(l.Quantity)
}

// CartView is the cart as returned to the storefront pages.
type CartView struct {
	Items      []CartLineItem `json:"items"`
	TotalItems int            `json:"totalItems"`
	TotalPrice Money          `json:"totalPrice"`
}

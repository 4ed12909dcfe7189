package checkout

import (
	"github.com/gearvn/storefront/internal/discount"
	"github.com/gearvn/storefront/internal/domain"
)

// Totals is the price breakdown of a checkout.
type Totals struct {
	Subtotal     domain.Money `json:"subtotal"`
	Discount     domain.Money `json:"discount"`
	Discounted   domain.Money `json:"discounted"`
	ShippingCost domain.Money `json:"shippingCost"`
	Total        domain.Money `json:"total"`
}

// ComputeTotals prices items with the optional applied discount plus the
// flat shipping cost.
func ComputeTotals(items []domain.CartLineItem, applied *domain.AppliedDiscount) Totals {
	var subtotal domain.Money
	for _, l := range items {
		subtotal += l.LineTotal()
	}

	discounted := subtotal
	if applied != nil {
		discounted = discount.Apply(subtotal, applied.Record)
	}

	return Totals{
		Subtotal:     subtotal,
		Discount:     subtotal - discounted,
		Discounted:   discounted,
		ShippingCost: domain.ShippingCost,
		Total:        discounted + domain.ShippingCost,
	}
}

// BuildOrder projects the cart into the order payload. Each line is priced
// at finalPrice when present, salePrice otherwise.
func BuildOrder(items []domain.CartLineItem, in SubmitInput, applied *domain.AppliedDiscount) domain.Order {
	lines := make([]domain.OrderItem, len(items))
	for i, l := range items {
		lines[i] = domain.OrderItem{
			ProductID: l.Product.ID,
			Quantity:  l.Quantity,
			Price:     l.Product.Price(),
		}
	}

	order := domain.Order{
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		ShipmentMethod:  in.ShipmentMethod,
		Note:            in.Note,
		TotalAmount:     ComputeTotals(items, applied).Total,
		Items:           lines,
	}
	if applied != nil {
		order.DiscountCode = applied.Record.Code
	}
	return order
}

// StockViolation is a cart line that cannot be fulfilled from live stock.
type StockViolation struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	Missing   bool   `json:"missing,omitempty"`
}

// CheckStock compares each line with the live catalog and reports lines
// whose quantity exceeds the stock on hand or whose product is gone.
func CheckStock(items []domain.CartLineItem, live []domain.Product) []StockViolation {
	stock := make(map[string]domain.Product, len(live))
	for _, p := range live {
		stock[p.ID] = p
	}

	var violations []StockViolation
	for _, l := range items {
		p, ok := stock[l.Product.ID]
		if !ok {
			violations = append(violations, StockViolation{
				ProductID: l.Product.ID,
				Name:      l.Product.Name,
				Requested: l.Quantity,
				Missing:   true,
			})
			continue
		}
		if l.Quantity > p.Quantity {
			violations = append(violations, StockViolation{
				ProductID: l.Product.ID,
				Name:      l.Product.Name,
				Requested: l.Quantity,
				Available: p.Quantity,
			})
		}
	}
	return violations
}

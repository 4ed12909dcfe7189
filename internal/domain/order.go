package domain

// PaymentMethod is how the shopper pays.
type PaymentMethod string

const (
	PaymentCOD          PaymentMethod = "COD"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentVNPay        PaymentMethod = "VNPAY"
)

// ShipmentMethod is how the order is delivered.
type ShipmentMethod string

const (
	ShipmentStandard ShipmentMethod = "STANDARD"
	ShipmentExpress  ShipmentMethod = "EXPRESS"
)

// ShippingCost is the flat shipping fee added to every order.
const ShippingCost Money = 30_000

// OrderItem is one line of a submitted order.
type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Price     Money  `json:"price"`
}

// Order is the payload posted to the backend's order placement endpoint.
type Order struct {
	ShippingAddress string         `json:"shippingAddress"`
	PaymentMethod   PaymentMethod  `json:"paymentMethod"`
	ShipmentMethod  ShipmentMethod `json:"shipmentMethod"`
	Note            string         `json:"note"`
	DiscountCode    string         `json:"discountCode,omitempty"`
	TotalAmount     Money          `json:"totalAmount"`
	Items           []OrderItem    `json:"items"`
}

// PlacedOrder is what the backend returns after accepting an order. Only the
// fields the storefront shows are decoded.
type PlacedOrder struct {
	ID          string `json:"id,omitempty"`
	Status      string `json:"status,omitempty"`
	TotalAmount Money  `json:"totalAmount,omitempty"`
}

// UserInfo is the signed-in shopper as returned by the backend.
type UserInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
}

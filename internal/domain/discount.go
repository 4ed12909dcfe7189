package domain

import "github.com/shopspring/decimal"

// DiscountType discriminates how a discount reduces the subtotal.
type DiscountType string

const (
	DiscountPercentage  DiscountType = "PERCENTAGE"
	DiscountFixedAmount DiscountType = "FIXED_AMOUNT"
)

// Discount statuses.
const (
	DiscountStatusActive   = "ACTIVE"
	DiscountStatusInactive = "INACTIVE"
)

// DiscountRecord is a discount code as served by the backend.
type DiscountRecord struct {
	ID              string           `json:"id"`
	Code            string           `json:"code"`
	StartDate       Timestamp        `json:"startDate"`
	EndDate         Timestamp        `json:"endDate"`
	Status          string           `json:"status"`
	Quantity        int              `json:"quantity"`
	IsGlobal        bool             `json:"isGlobal"`
	Type            DiscountType     `json:"type"`
	DiscountPercent *decimal.Decimal `json:"discountPercent,omitempty"`
	DiscountAmount  Money            `json:"discountAmount,omitempty"`
}

// AppliedDiscount is the discount accepted for a checkout, with the code as
// the shopper typed it.
type AppliedDiscount struct {
	Record DiscountRecord `json:"record"`
	Input  string         `json:"input"`
}

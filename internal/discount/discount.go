// Package discount decides whether a discount code may be applied to a
// checkout and computes the discounted subtotal.
package discount

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gearvn/storefront/internal/domain"
	apperrors "github.com/gearvn/storefront/pkg/errors"
)

// FieldName is the form field validation messages are bound to.
const FieldName = "discountCode"

// Validation failures, in the order they are checked.
var (
	ErrCodeRequired  = errors.New("discount code is required")
	ErrCodeNotFound  = errors.New("discount code does not exist")
	ErrNotGlobal     = errors.New("discount code applies to specific products only")
	ErrInactive      = errors.New("discount code is inactive or expired")
	ErrExhausted     = errors.New("discount code has been fully redeemed")
	ErrOutsideWindow = errors.New("discount code is outside its validity period")
)

var rejections = map[error]struct {
	code    string
	reason  string
	message string
}{
	ErrCodeRequired:  {"DISCOUNT_CODE_REQUIRED", "required", "Please enter a discount code."},
	ErrCodeNotFound:  {"DISCOUNT_NOT_FOUND", "not_found", "This discount code does not exist."},
	ErrNotGlobal:     {"DISCOUNT_NOT_GLOBAL", "not_global", "This code only applies to specific products and cannot be used at checkout."},
	ErrInactive:      {"DISCOUNT_INACTIVE", "inactive", "This discount code is inactive or has expired."},
	ErrExhausted:     {"DISCOUNT_EXHAUSTED", "exhausted", "This discount code has no uses left."},
	ErrOutsideWindow: {"DISCOUNT_OUTSIDE_WINDOW", "outside_window", "This discount code is not valid at this time."},
}

// Validate returns the record matching code if it may be applied at now.
// The code is trimmed and matched case-insensitively. Checks short-circuit
// at the first failure. Naive record dates are read in now's location.
func Validate(code string, records []domain.DiscountRecord, now time.Time) (*domain.DiscountRecord, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrCodeRequired
	}

	var rec *domain.DiscountRecord
	for i := range records {
		if strings.EqualFold(strings.TrimSpace(records[i].Code), code) {
			rec = &records[i]
			break
		}
	}
	if rec == nil {
		return nil, ErrCodeNotFound
	}

	if !rec.IsGlobal {
		return nil, ErrNotGlobal
	}
	if rec.Status != domain.DiscountStatusActive {
		return nil, ErrInactive
	}
	if rec.Quantity <= 0 {
		return nil, ErrExhausted
	}
	if !InWindow(*rec, now) {
		return nil, ErrOutsideWindow
	}

	out := *rec
	return &out, nil
}

// InWindow reports whether now lies within [StartDate, EndDate], both ends
// inclusive. A date-only EndDate covers the whole day. An unset bound is
// open.
func InWindow(rec domain.DiscountRecord, now time.Time) bool {
	loc := now.Location()

	if !rec.StartDate.IsZero() && now.Before(rec.StartDate.At(loc)) {
		return false
	}
	if rec.EndDate.IsZero() {
		return true
	}
	end := rec.EndDate.At(loc)
	if rec.EndDate.DateOnly {
		return now.Before(end.AddDate(0, 0, 1))
	}
	return !now.After(end)
}

// Apply returns the subtotal after the discount. Percentage discounts are
// rounded half-up to whole dong; fixed amounts never drive the total below
// zero.
func Apply(subtotal domain.Money, rec domain.DiscountRecord) domain.Money {
	switch rec.Type {
	case domain.DiscountPercentage:
		if rec.DiscountPercent == nil {
			return subtotal
		}
		hundred := decimal.NewFromInt(100)
		factor := hundred.Sub(*rec.DiscountPercent).Div(hundred)
		total := subtotal.Decimal().Mul(factor).Round(0)
		if total.IsNegative() {
			return 0
		}
		return domain.Money(total.IntPart())
	case domain.DiscountFixedAmount:
		if rec.DiscountAmount >= subtotal {
			return 0
		}
		return subtotal - rec.DiscountAmount
	default:
		return subtotal
	}
}

// Reason returns a short label for a validation failure, used as a metric
// label. Unknown errors yield "other".
func Reason(err error) string {
	for sentinel, r := range rejections {
		if errors.Is(err, sentinel) {
			return r.reason
		}
	}
	return "other"
}

// AsAppError converts a validation failure into a 422 AppError whose message
// is shown next to the discount code field. Other errors are returned as-is.
func AsAppError(err error) error {
	for sentinel, r := range rejections {
		if errors.Is(err, sentinel) {
			appErr := apperrors.Rejected(r.code, r.message, err)
			appErr.Fields = map[string]string{FieldName: r.message}
			return appErr
		}
	}
	return err
}

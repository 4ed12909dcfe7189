package cart

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/gearvn/storefront/internal/domain"
)

// ErrMalformed is returned by Decode for stored data that is not a valid cart.
var ErrMalformed = errors.New("malformed stored cart")

type storedLine struct {
	Product  json.RawMessage `json:"product"`
	Quantity json.RawMessage `json:"quantity"`
}

// Decode parses a stored cart. It accepts only a JSON array whose every entry
// has a product with a non-empty string id and a positive integral numeric
// quantity, with no product appearing twice. Anything else is rejected as a
// whole.
func Decode(data []byte) ([]domain.CartLineItem, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: not a JSON array", ErrMalformed)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	items := make([]domain.CartLineItem, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, entry := range raw {
		line, err := decodeLine(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformed, i, err)
		}
		if _, dup := seen[line.Product.ID]; dup {
			return nil, fmt.Errorf("%w: entry %d: duplicate product %q", ErrMalformed, i, line.Product.ID)
		}
		seen[line.Product.ID] = struct{}{}
		items = append(items, line)
	}
	return items, nil
}

func decodeLine(entry json.RawMessage) (domain.CartLineItem, error) {
	var line storedLine
	if err := json.Unmarshal(entry, &line); err != nil {
		return domain.CartLineItem{}, errors.New("entry is not an object")
	}

	var ref struct {
		ID json.RawMessage `json:"id"`
	}
	if len(line.Product) == 0 || json.Unmarshal(line.Product, &ref) != nil {
		return domain.CartLineItem{}, errors.New("product is not an object")
	}
	var id string
	if json.Unmarshal(ref.ID, &id) != nil || id == "" {
		return domain.CartLineItem{}, errors.New("product id must be a non-empty string")
	}

	var product domain.Product
	if err := json.Unmarshal(line.Product, &product); err != nil {
		return domain.CartLineItem{}, fmt.Errorf("product: %v", err)
	}

	var qty float64
	if len(line.Quantity) == 0 || json.Unmarshal(line.Quantity, &qty) != nil {
		return domain.CartLineItem{}, errors.New("quantity must be a number")
	}
	if qty <= 0 || qty != math.Trunc(qty) || qty > math.MaxInt32 {
		return domain.CartLineItem{}, fmt.Errorf("quantity %v is not a positive integer", qty)
	}

	return domain.CartLineItem{Product: product, Quantity: int(qty)}, nil
}

package domain

import "errors"

// ErrInvalidQuantity is returned for a cart quantity that is not a positive integer.
var ErrInvalidQuantity = errors.New("quantity must be a positive integer")

// ErrInvalidProduct is returned for a product without an identifier.
var ErrInvalidProduct = errors.New("product must have an id")

// ErrExceedsStock reports that an add would put more of a product in the
// cart than is available.
var ErrExceedsStock = errors.New("quantity exceeds available stock")

package item

import "errors"

var (
	// ErrItemNotFound is returned when the item does not exist
	ErrItemNotFound = errors.New("item not found")

	// ErrItemNotAvailable is returned when the item is sold, removed, or
	// validly reserved by another account
	ErrItemNotAvailable = errors.New("item not available")

	// ErrNotOwner is returned when a mutation is attempted by a non-owner
	ErrNotOwner = errors.New("you do not own this item")

	// ErrInvalidPrice is returned when the listing price is outside the
	// configured bounds
	ErrInvalidPrice = errors.New("price outside allowed range")

	// ErrStatusImmutable is returned when a listing update tries to change
	// the lifecycle status directly
	ErrStatusImmutable = errors.New("status cannot be updated directly")

	ErrInternal = errors.New("internal item store error")
)

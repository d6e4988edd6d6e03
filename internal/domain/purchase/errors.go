package purchase

import "errors"

var (
	// ErrSelfPurchase is returned when a buyer attempts to buy their own item
	ErrSelfPurchase = errors.New("cannot purchase your own item")

	ErrInternal = errors.New("internal purchase error")
)

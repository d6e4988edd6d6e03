package ledger

import "errors"

var (
	// ErrInvalidAmount is returned when amount is <= 0
	ErrInvalidAmount = errors.New("invalid amount: must be greater than 0")

	// ErrSelfTransfer is returned when from and to are the same account
	ErrSelfTransfer = errors.New("cannot transfer to self")

	// ErrInsufficientFunds is returned when the sender balance is too low
	ErrInsufficientFunds = errors.New("insufficient coins")

	// ErrIdempotencyConflict is returned when an idempotency key is reused
	// with different transfer parameters
	ErrIdempotencyConflict = errors.New("idempotency key already used with different parameters")

	// ErrConcurrentConflict is returned on transactional conflicts; the call
	// may be retried safely when an idempotency key was supplied
	ErrConcurrentConflict = errors.New("concurrent conflict, retry")

	// ErrTransactionNotFound is returned when a ledger entry does not exist
	ErrTransactionNotFound = errors.New("transaction not found")

	ErrInternal = errors.New("internal ledger error")
)

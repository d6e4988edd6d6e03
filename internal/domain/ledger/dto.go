package ledger

type adminAdjustRequest struct {
	UserID         string `json:"user_id" validate:"required,uuid"`
	Amount         int64  `json:"amount" validate:"required,gt=0"`
	Description    string `json:"description" validate:"max=500"`
	IdempotencyKey string `json:"idempotency_key" validate:"max=128"`
}

type balanceResponse struct {
	Balance int64 `json:"balance"`
}

type transferResponse struct {
	TransactionID string `json:"transaction_id"`
	Balance       int64  `json:"balance"`
}

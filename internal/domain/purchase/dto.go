package purchase

type purchaseRequest struct {
	ItemID         string `json:"item_id" validate:"required,uuid"`
	IdempotencyKey string `json:"idempotency_key" validate:"omitempty,max=128"`
}

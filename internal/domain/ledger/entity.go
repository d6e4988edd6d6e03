package ledger

import (
	"time"

	"github.com/google/uuid"
)

// SystemAccountID is the reserved platform escrow/clearing account. Fee
// revenue accrues to it and reward payouts are funded from it. It is the only
// account allowed to go negative.
var SystemAccountID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// TransactionType defines supported coin transaction types.
type TransactionType string

const (
	TypeListingFee     TransactionType = "LISTING_FEE"
	TypeItemPurchase   TransactionType = "ITEM_PURCHASE"
	TypeSignupBonus    TransactionType = "SIGNUP_BONUS"
	TypeFirstPostBonus TransactionType = "FIRST_POST_BONUS"
	TypeFirstSaleBonus TransactionType = "FIRST_SALE_BONUS"
	TypeReferralBonus  TransactionType = "REFERRAL_BONUS"
	TypeAdminCredit    TransactionType = "ADMIN_CREDIT"
	TypeAdminDebit     TransactionType = "ADMIN_DEBIT"
	TypeRefund         TransactionType = "REFUND"
)

// TransactionStatus defines the lifecycle state of a transaction.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
	StatusRefunded  TransactionStatus = "REFUNDED"
)

// Account is a coin balance row. Accounts are created lazily on first credit.
type Account struct {
	AccountID uuid.UUID `db:"account_id" json:"account_id"`
	Balance   int64     `db:"balance" json:"balance"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Transaction is an immutable ledger entry. Once COMPLETED it is never
// mutated.
type Transaction struct {
	ID             uuid.UUID         `db:"id" json:"id"`
	Type           TransactionType   `db:"type" json:"type"`
	Amount         int64             `db:"amount" json:"amount"`
	FromAccount    uuid.UUID         `db:"from_account" json:"from_account"`
	ToAccount      uuid.UUID         `db:"to_account" json:"to_account"`
	Status         TransactionStatus `db:"status" json:"status"`
	ItemID         *uuid.UUID        `db:"item_id" json:"item_id,omitempty"`
	IdempotencyKey *string           `db:"idempotency_key" json:"idempotency_key,omitempty"`
	PlatformFee    *int64            `db:"platform_fee" json:"platform_fee,omitempty"`
	SellerAmount   *int64            `db:"seller_amount" json:"seller_amount,omitempty"`
	Description    string            `db:"description" json:"description"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
}

// TransferMeta carries the known metadata fields attached to a transfer.
type TransferMeta struct {
	ItemID       *uuid.UUID
	PlatformFee  *int64
	SellerAmount *int64
	Description  string
}

func validTransactionType(t TransactionType) bool {
	switch t {
	case TypeListingFee, TypeItemPurchase, TypeSignupBonus, TypeFirstPostBonus,
		TypeFirstSaleBonus, TypeReferralBonus, TypeAdminCredit, TypeAdminDebit, TypeRefund:
		return true
	}
	return false
}

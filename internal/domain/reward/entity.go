package reward

import (
	"time"

	"github.com/google/uuid"
)

// Profile tracks which one-time reward milestones an account has already
// crossed. The boolean flags arbitrate "first ever"; the ledger's idempotency
// keys arbitrate the coin grant itself.
type Profile struct {
	UserID               uuid.UUID  `db:"user_id" json:"user_id"`
	Email                string     `db:"email" json:"email"`
	ReferralCode         string     `db:"referral_code" json:"referral_code"`
	ReferredBy           *uuid.UUID `db:"referred_by" json:"referred_by,omitempty"`
	HasPostedFirstItem   bool       `db:"has_posted_first_item" json:"has_posted_first_item"`
	HasMadeFirstSale     bool       `db:"has_made_first_sale" json:"has_made_first_sale"`
	ReferralBonusPaidOut bool       `db:"referral_bonus_paid_out" json:"referral_bonus_paid_out"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

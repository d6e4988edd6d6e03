package item

import (
	"time"

	"github.com/google/uuid"
)

// ItemStatus defines the listing lifecycle state.
type ItemStatus string

const (
	StatusAvailable ItemStatus = "available"
	StatusReserved  ItemStatus = "reserved"
	StatusSold      ItemStatus = "sold"
	StatusRemoved   ItemStatus = "removed"
)

// Item is a marketplace listing. SOLD and REMOVED are terminal; a RESERVED
// item always carries reservedBy and reservedUntil.
type Item struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	CampusID      string     `db:"campus_id" json:"campus_id"`
	OwnerID       uuid.UUID  `db:"owner_id" json:"owner_id"`
	Title         string     `db:"title" json:"title"`
	Description   string     `db:"description" json:"description"`
	Price         int64      `db:"price" json:"price"`
	Status        ItemStatus `db:"status" json:"status"`
	ReservedBy    *uuid.UUID `db:"reserved_by" json:"reserved_by,omitempty"`
	ReservedUntil *time.Time `db:"reserved_until" json:"reserved_until,omitempty"`
	BuyerID       *uuid.UUID `db:"buyer_id" json:"buyer_id,omitempty"`
	SoldAt        *time.Time `db:"sold_at" json:"sold_at,omitempty"`
	SoldPrice     *int64     `db:"sold_price" json:"sold_price,omitempty"`
	RemovedBy     *uuid.UUID `db:"removed_by" json:"-"`
	RemovedAt     *time.Time `db:"removed_at" json:"-"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// ReservationExpired reports whether a reservation hold has lapsed. An
// expired hold is treated as if the item were available again.
func (i *Item) ReservationExpired(now time.Time) bool {
	return i.Status == StatusReserved && i.ReservedUntil != nil && !i.ReservedUntil.After(now)
}

// HeldByOther reports whether the item is validly reserved by someone other
// than the given account.
func (i *Item) HeldByOther(account uuid.UUID, now time.Time) bool {
	if i.Status != StatusReserved || i.ReservationExpired(now) {
		return false
	}
	return i.ReservedBy != nil && *i.ReservedBy != account
}

// Purchasable reports whether the given account can settle a purchase of this
// item right now. Self-purchase is checked separately by the orchestrator.
func (i *Item) Purchasable(buyer uuid.UUID, now time.Time) bool {
	switch i.Status {
	case StatusAvailable:
		return true
	case StatusReserved:
		return i.ReservationExpired(now) || (i.ReservedBy != nil && *i.ReservedBy == buyer)
	default:
		return false
	}
}

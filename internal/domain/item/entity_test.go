package item

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestReservationExpired(t *testing.T) {
	now := time.Now()
	holder := uuid.New()

	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name string
		item Item
		want bool
	}{
		{"available item", Item{Status: StatusAvailable}, false},
		{"active hold", Item{Status: StatusReserved, ReservedBy: &holder, ReservedUntil: &future}, false},
		{"lapsed hold", Item{Status: StatusReserved, ReservedBy: &holder, ReservedUntil: &past}, true},
		{"hold expiring exactly now", Item{Status: StatusReserved, ReservedBy: &holder, ReservedUntil: &now}, true},
		{"sold item", Item{Status: StatusSold}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.item.ReservationExpired(now); got != tt.want {
				t.Fatalf("ReservationExpired = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHeldByOther(t *testing.T) {
	now := time.Now()
	holder := uuid.New()
	other := uuid.New()

	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	active := Item{Status: StatusReserved, ReservedBy: &holder, ReservedUntil: &future}
	lapsed := Item{Status: StatusReserved, ReservedBy: &holder, ReservedUntil: &past}

	if !active.HeldByOther(other, now) {
		t.Fatal("active hold should block another account")
	}
	if active.HeldByOther(holder, now) {
		t.Fatal("active hold should not block its own holder")
	}
	if lapsed.HeldByOther(other, now) {
		t.Fatal("lapsed hold should not block anyone")
	}
}

func TestPurchasable(t *testing.T) {
	now := time.Now()
	holder := uuid.New()
	other := uuid.New()

	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name  string
		item  Item
		buyer uuid.UUID
		want  bool
	}{
		{"available", Item{Status: StatusAvailable}, other, true},
		{"reserved by buyer", Item{Status: StatusReserved, ReservedBy: &holder, ReservedUntil: &future}, holder, true},
		{"reserved by other", Item{Status: StatusReserved, ReservedBy: &holder, ReservedUntil: &future}, other, false},
		{"lapsed hold, any buyer", Item{Status: StatusReserved, ReservedBy: &holder, ReservedUntil: &past}, other, true},
		{"sold", Item{Status: StatusSold}, other, false},
		{"removed", Item{Status: StatusRemoved}, other, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.item.Purchasable(tt.buyer, now); got != tt.want {
				t.Fatalf("Purchasable = %v, want %v", got, tt.want)
			}
		})
	}
}

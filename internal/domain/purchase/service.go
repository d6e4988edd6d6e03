package purchase

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/unitrade/unitrade-api/internal/domain/item"
	"github.com/unitrade/unitrade-api/internal/domain/ledger"
)

// RewardNotifier receives sale domain events. Implementations must be
// idempotent; triggers may fire more than once.
type RewardNotifier interface {
	OnFirstSale(ctx context.Context, userID uuid.UUID)
}

// EventPublisher receives fire-and-forget realtime events.
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload interface{})
}

// Receipt is the outcome of a settled purchase. BuyerBalance is omitted when
// the post-commit balance read fails; it is informational, not part of the
// settlement.
type Receipt struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	ItemID        uuid.UUID `json:"item_id"`
	Price         int64     `json:"price"`
	PlatformFee   int64     `json:"platform_fee"`
	SellerAmount  int64     `json:"seller_amount"`
	BuyerBalance  *int64    `json:"buyer_balance,omitempty"`
	PurchasedAt   time.Time `json:"purchased_at"`
}

// Service orchestrates item purchases: the item state transition and both
// escrow legs commit or roll back as one database transaction.
type Service struct {
	db      *sqlx.DB
	items   *item.Repository
	ledger  *ledger.Repository
	rewards RewardNotifier
	events  EventPublisher
	feeRate float64
}

func NewService(db *sqlx.DB, items *item.Repository, ledgerRepo *ledger.Repository, rewards RewardNotifier, events EventPublisher, feeRate float64) *Service {
	return &Service{db: db, items: items, ledger: ledgerRepo, rewards: rewards, events: events, feeRate: feeRate}
}

// PlatformFee computes the fee withheld from the seller for a given price,
// rounded to the nearest coin.
func (s *Service) PlatformFee(price int64) int64 {
	return int64(math.Round(float64(price) * s.feeRate))
}

// Purchase settles an item sale. The item row lock is the arbitration point:
// of two concurrent buyers exactly one proceeds, the other observes the sold
// row. A replay of an already-settled purchase returns the original receipt.
func (s *Service) Purchase(ctx context.Context, buyerID, itemID uuid.UUID, idempotencyKey string) (*Receipt, error) {
	if idempotencyKey == "" {
		idempotencyKey = "item_purchase:" + itemID.String() + ":" + buyerID.String()
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	it, err := s.items.GetForUpdateTx(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	if it.OwnerID == buyerID {
		return nil, ErrSelfPurchase
	}

	now := time.Now()
	if it.Status == item.StatusSold {
		// A sold item settles again only for an exact replay: the presented
		// (or derived) key must resolve to the original settlement of this
		// item by this buyer. Anything else is a second spend.
		prior, err := s.ledger.LookupIdempotencyTx(ctx, tx, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if prior == nil || prior.Type != ledger.TypeItemPurchase || prior.FromAccount != buyerID ||
			prior.ItemID == nil || *prior.ItemID != itemID {
			return nil, item.ErrItemNotAvailable
		}
		return s.receiptFromPrior(ctx, buyerID, prior), nil
	}
	if !it.Purchasable(buyerID, now) {
		return nil, item.ErrItemNotAvailable
	}

	price := it.Price
	fee := s.PlatformFee(price)

	txnID, err := s.ledger.SettlePurchaseTx(ctx, tx, buyerID, it.OwnerID, price, fee, itemID, idempotencyKey)
	if err != nil {
		return nil, err
	}

	if err := s.items.MarkSoldTx(ctx, tx, itemID, buyerID, price); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	log.Info().
		Str("item_id", itemID.String()).
		Str("buyer_id", buyerID.String()).
		Str("seller_id", it.OwnerID.String()).
		Int64("price", price).
		Int64("platform_fee", fee).
		Msg("purchase settled")

	if s.rewards != nil {
		go s.rewards.OnFirstSale(context.WithoutCancel(ctx), it.OwnerID)
	}
	if s.events != nil {
		s.events.Publish(ctx, "item:sold", map[string]interface{}{
			"item_id":  itemID,
			"buyer_id": buyerID,
			"price":    price,
		})
		s.events.Publish(ctx, "balance:changed", map[string]interface{}{
			"accounts": []uuid.UUID{buyerID, it.OwnerID},
		})
	}

	return &Receipt{
		TransactionID: txnID,
		ItemID:        itemID,
		Price:         price,
		PlatformFee:   fee,
		SellerAmount:  price - fee,
		BuyerBalance:  s.readBuyerBalance(ctx, buyerID),
		PurchasedAt:   now,
	}, nil
}

// receiptFromPrior rebuilds the receipt of an already-settled purchase from
// its canonical buyer-leg transaction.
func (s *Service) receiptFromPrior(ctx context.Context, buyerID uuid.UUID, prior *ledger.Transaction) *Receipt {
	fee := int64(0)
	if prior.PlatformFee != nil {
		fee = *prior.PlatformFee
	}
	sellerAmount := prior.Amount - fee
	if prior.SellerAmount != nil {
		sellerAmount = *prior.SellerAmount
	}

	return &Receipt{
		TransactionID: prior.ID,
		ItemID:        *prior.ItemID,
		Price:         prior.Amount,
		PlatformFee:   fee,
		SellerAmount:  sellerAmount,
		BuyerBalance:  s.readBuyerBalance(ctx, buyerID),
		PurchasedAt:   prior.CreatedAt,
	}
}

func (s *Service) readBuyerBalance(ctx context.Context, buyerID uuid.UUID) *int64 {
	balance, err := s.ledger.GetBalance(ctx, buyerID)
	if err != nil {
		log.Warn().Err(err).Str("buyer_id", buyerID.String()).Msg("balance read after purchase failed")
		return nil
	}
	return &balance
}

package item

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/unitrade/unitrade-api/internal/domain/ledger"
)

// RewardNotifier receives listing domain events. Implementations must be
// idempotent; triggers may fire more than once.
type RewardNotifier interface {
	OnFirstListing(ctx context.Context, userID uuid.UUID)
}

// EventPublisher receives fire-and-forget realtime events.
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload interface{})
}

// Config carries the economy knobs for listings and reservations.
type Config struct {
	ListingFee      int64
	MinListingPrice int64
	MaxListingPrice int64
	ReservationTTL  time.Duration
}

type Service struct {
	db      *sqlx.DB
	repo    *Repository
	ledger  *ledger.Repository
	rewards RewardNotifier
	events  EventPublisher
	cfg     Config
}

func NewService(db *sqlx.DB, repo *Repository, ledgerRepo *ledger.Repository, rewards RewardNotifier, events EventPublisher, cfg Config) *Service {
	if cfg.ReservationTTL <= 0 {
		cfg.ReservationTTL = 5 * time.Minute
	}
	return &Service{db: db, repo: repo, ledger: ledgerRepo, rewards: rewards, events: events, cfg: cfg}
}

// CreateListing inserts a new available item and charges the listing fee, if
// configured, in the same atomic unit. The first-listing reward trigger fires
// after commit.
func (s *Service) CreateListing(ctx context.Context, ownerID uuid.UUID, campusID, title, description string, price int64) (*Item, error) {
	if price < s.cfg.MinListingPrice || price > s.cfg.MaxListingPrice {
		return nil, ErrInvalidPrice
	}

	it := &Item{
		ID:          uuid.New(),
		CampusID:    campusID,
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Price:       price,
		Status:      StatusAvailable,
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	if err := s.repo.CreateTx(ctx, tx, it); err != nil {
		return nil, err
	}

	if s.cfg.ListingFee > 0 {
		fee := s.cfg.ListingFee
		if _, err := s.ledger.TransferTx(ctx, tx, ledger.TransferParams{
			From:   ownerID,
			To:     ledger.SystemAccountID,
			Amount: fee,
			Type:   ledger.TypeListingFee,
			Meta: ledger.TransferMeta{
				ItemID:      &it.ID,
				Description: "listing fee",
			},
			IdempotencyKey: "listing_fee:" + it.ID.String(),
		}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	log.Info().
		Str("item_id", it.ID.String()).
		Str("owner_id", ownerID.String()).
		Int64("price", price).
		Msg("listing created")

	if s.rewards != nil {
		go s.rewards.OnFirstListing(context.WithoutCancel(ctx), ownerID)
	}
	if s.events != nil {
		s.events.Publish(ctx, "item:listed", it)
	}

	return it, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Item, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByCampus(ctx context.Context, campusID string, status ItemStatus, limit, offset int) ([]Item, error) {
	return s.repo.ListByCampus(ctx, campusID, status, limit, offset)
}

func (s *Service) ListMine(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Item, error) {
	return s.repo.ListByOwner(ctx, ownerID, limit, offset)
}

// UpdateListing applies owner edits to title/description/price. Lifecycle
// status never changes through this path.
func (s *Service) UpdateListing(ctx context.Context, userID, itemID uuid.UUID, title, description string, price int64) (*Item, error) {
	it, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if it.OwnerID != userID {
		return nil, ErrNotOwner
	}
	if price < s.cfg.MinListingPrice || price > s.cfg.MaxListingPrice {
		return nil, ErrInvalidPrice
	}

	if err := s.repo.UpdateListing(ctx, itemID, title, description, price); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, itemID)
}

// Remove soft-deletes a listing. Owners may remove their own items; admins
// may remove any non-sold item.
func (s *Service) Remove(ctx context.Context, userID, itemID uuid.UUID, isAdmin bool) error {
	it, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if it.OwnerID != userID && !isAdmin {
		return ErrNotOwner
	}

	if err := s.repo.Remove(ctx, itemID, userID); err != nil {
		return err
	}

	log.Info().
		Str("item_id", itemID.String()).
		Str("removed_by", userID.String()).
		Msg("listing removed")
	return nil
}

// Reserve places a time-boxed hold on the item. Re-reservation by the holder
// extends the hold; a lapsed hold by anyone else is ignored. Exactly one of
// two concurrent attempts wins the row lock; the other observes the committed
// hold and fails.
func (s *Service) Reserve(ctx context.Context, itemID, account uuid.UUID) (time.Time, error) {
	var until time.Time

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return until, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	it, err := s.repo.GetForUpdateTx(ctx, tx, itemID)
	if err != nil {
		return until, err
	}

	now := time.Now()
	switch {
	case it.Status == StatusAvailable:
	case it.ReservationExpired(now):
	case it.Status == StatusReserved && it.ReservedBy != nil && *it.ReservedBy == account:
		// extension of an active hold by the same account
	default:
		return until, ErrItemNotAvailable
	}

	until = now.Add(s.cfg.ReservationTTL)
	if err := s.repo.ReserveTx(ctx, tx, itemID, account, until); err != nil {
		return time.Time{}, err
	}

	if err := tx.Commit(); err != nil {
		return time.Time{}, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	log.Info().
		Str("item_id", itemID.String()).
		Str("reserved_by", account.String()).
		Time("reserved_until", until).
		Msg("item reserved")

	if s.events != nil {
		s.events.Publish(ctx, "item:reserved", map[string]interface{}{
			"item_id":        itemID,
			"reserved_until": until,
		})
	}

	return until, nil
}

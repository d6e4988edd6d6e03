package reward

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/unitrade/unitrade-api/internal/domain/ledger"
)

// Config carries the reward amounts and the signup email allow-list.
type Config struct {
	SignupBonus         int64
	FirstPostBonus      int64
	FirstSaleBonus      int64
	ReferralBonus       int64
	AllowedEmailDomains []string
}

// Service grants one-time coin rewards. Every grant is doubly guarded: a
// profile flag flipped under a row lock, and a deterministic ledger
// idempotency key. Either guard alone makes a duplicate grant impossible;
// together they also make retries cheap.
type Service struct {
	db     *sqlx.DB
	repo   *Repository
	ledger *ledger.Repository
	cfg    Config
}

func NewService(db *sqlx.DB, repo *Repository, ledgerRepo *ledger.Repository, cfg Config) *Service {
	return &Service{db: db, repo: repo, ledger: ledgerRepo, cfg: cfg}
}

func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return s.repo.GetProfile(ctx, userID)
}

// SignupBonus initialises the reward profile and grants the signup bonus.
// Only campus email domains qualify for coins; other addresses still get a
// profile, just without the bonus. Calling it again for the same user is a
// no-op that returns the existing profile.
func (s *Service) SignupBonus(ctx context.Context, userID uuid.UUID, email, referralCode string) (*Profile, error) {
	bonus := s.cfg.SignupBonus
	if !s.domainAllowed(email) {
		bonus = 0
	}

	var referredBy *uuid.UUID
	if referralCode != "" {
		referrer, err := s.repo.GetByReferralCode(ctx, referralCode)
		if err != nil {
			return nil, err
		}
		if referrer.UserID == userID {
			return nil, ErrSelfReferral
		}
		referredBy = &referrer.UserID
	}

	// A code collision aborts the transaction, so the whole unit retries
	// with a fresh code.
	var inserted bool
	for attempt := 0; ; attempt++ {
		code, err := generateReferralCode()
		if err != nil {
			return nil, fmt.Errorf("%w: generate referral code", ErrInternal)
		}

		inserted, err = s.signupTx(ctx, userID, email, code, referredBy, bonus)
		if err == nil {
			break
		}
		if errors.Is(err, ErrReferralCodeTaken) && attempt < 3 {
			continue
		}
		return nil, err
	}

	if inserted && bonus > 0 {
		log.Info().
			Str("user_id", userID.String()).
			Int64("amount", bonus).
			Msg("signup bonus granted")
	}

	return s.repo.GetProfile(ctx, userID)
}

func (s *Service) signupTx(ctx context.Context, userID uuid.UUID, email, code string, referredBy *uuid.UUID, bonus int64) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return false, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	inserted, err := s.repo.CreateProfileTx(ctx, tx, &Profile{
		UserID:       userID,
		Email:        email,
		ReferralCode: code,
		ReferredBy:   referredBy,
	})
	if err != nil {
		return false, err
	}

	if bonus > 0 {
		if _, err := s.ledger.TransferTx(ctx, tx, ledger.TransferParams{
			From:           ledger.SystemAccountID,
			To:             userID,
			Amount:         bonus,
			Type:           ledger.TypeSignupBonus,
			Meta:           ledger.TransferMeta{Description: "signup bonus"},
			IdempotencyKey: "signup_bonus:" + userID.String(),
		}); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%w: commit tx", ErrInternal)
	}
	return inserted, nil
}

// EnsureReferralCode returns the user's shareable code. Profiles always carry
// one from signup; this is the lookup surface for the share UI.
func (s *Service) EnsureReferralCode(ctx context.Context, userID uuid.UUID) (string, error) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	return profile.ReferralCode, nil
}

// OnFirstListing is the fire-and-forget trigger wired into the item service.
func (s *Service) OnFirstListing(ctx context.Context, userID uuid.UUID) {
	if err := s.grantFirstListing(ctx, userID); err != nil && !errors.Is(err, ErrProfileNotFound) {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("first listing reward failed")
	}
}

// OnFirstSale is the fire-and-forget trigger wired into the purchase service.
func (s *Service) OnFirstSale(ctx context.Context, userID uuid.UUID) {
	if err := s.grantFirstSale(ctx, userID); err != nil && !errors.Is(err, ErrProfileNotFound) {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("first sale reward failed")
	}
}

// grantFirstListing pays the first-listing bonus, and settles the referral
// bonus to both parties the first time the referred user lists something.
func (s *Service) grantFirstListing(ctx context.Context, userID uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	profile, err := s.repo.GetProfileForUpdateTx(ctx, tx, userID)
	if err != nil {
		return err
	}

	flipped, err := s.repo.MarkFirstListingTx(ctx, tx, userID)
	if err != nil {
		return err
	}
	if flipped {
		if _, err := s.ledger.TransferTx(ctx, tx, ledger.TransferParams{
			From:           ledger.SystemAccountID,
			To:             userID,
			Amount:         s.cfg.FirstPostBonus,
			Type:           ledger.TypeFirstPostBonus,
			Meta:           ledger.TransferMeta{Description: "first listing bonus"},
			IdempotencyKey: "first_post_bonus:" + userID.String(),
		}); err != nil {
			return err
		}
	}

	if profile.ReferredBy != nil && !profile.ReferralBonusPaidOut {
		referrerID := *profile.ReferredBy

		paid, err := s.repo.MarkReferralPaidTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		if paid {
			if _, err := s.ledger.TransferTx(ctx, tx, ledger.TransferParams{
				From:           ledger.SystemAccountID,
				To:             userID,
				Amount:         s.cfg.ReferralBonus,
				Type:           ledger.TypeReferralBonus,
				Meta:           ledger.TransferMeta{Description: "referral bonus"},
				IdempotencyKey: "referral_bonus:" + userID.String(),
			}); err != nil {
				return err
			}

			// The payout flag is per account on both sides: a referrer with
			// several referees is paid for the first one only. Referral chains
			// lock parent profiles after child profiles, so the order cannot
			// cycle.
			if _, err := s.repo.GetProfileForUpdateTx(ctx, tx, referrerID); err != nil {
				return err
			}
			referrerPaid, err := s.repo.MarkReferralPaidTx(ctx, tx, referrerID)
			if err != nil {
				return err
			}
			if referrerPaid {
				if _, err := s.ledger.TransferTx(ctx, tx, ledger.TransferParams{
					From:           ledger.SystemAccountID,
					To:             referrerID,
					Amount:         s.cfg.ReferralBonus,
					Type:           ledger.TypeReferralBonus,
					Meta:           ledger.TransferMeta{Description: "referral bonus"},
					IdempotencyKey: "referral_bonus:" + referrerID.String(),
				}); err != nil {
					return err
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tx", ErrInternal)
	}

	if flipped {
		log.Info().
			Str("user_id", userID.String()).
			Int64("amount", s.cfg.FirstPostBonus).
			Msg("first listing bonus granted")
	}
	return nil
}

func (s *Service) grantFirstSale(ctx context.Context, userID uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	if _, err := s.repo.GetProfileForUpdateTx(ctx, tx, userID); err != nil {
		return err
	}

	flipped, err := s.repo.MarkFirstSaleTx(ctx, tx, userID)
	if err != nil {
		return err
	}
	if flipped {
		if _, err := s.ledger.TransferTx(ctx, tx, ledger.TransferParams{
			From:           ledger.SystemAccountID,
			To:             userID,
			Amount:         s.cfg.FirstSaleBonus,
			Type:           ledger.TypeFirstSaleBonus,
			Meta:           ledger.TransferMeta{Description: "first sale bonus"},
			IdempotencyKey: "first_sale_bonus:" + userID.String(),
		}); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tx", ErrInternal)
	}

	if flipped {
		log.Info().
			Str("user_id", userID.String()).
			Int64("amount", s.cfg.FirstSaleBonus).
			Msg("first sale bonus granted")
	}
	return nil
}

func (s *Service) domainAllowed(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, allowed := range s.cfg.AllowedEmailDomains {
		if domain == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

func generateReferralCode() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

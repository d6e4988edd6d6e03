package reward

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const profileColumns = `
	user_id, email, referral_code, referred_by,
	has_posted_first_item, has_made_first_sale, referral_bonus_paid_out,
	created_at, updated_at`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	var p Profile
	err := r.db.GetContext(ctx, &p, `SELECT `+profileColumns+` FROM reward_profiles WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get profile", ErrInternal)
	}
	return &p, nil
}

func (r *Repository) GetByReferralCode(ctx context.Context, code string) (*Profile, error) {
	var p Profile
	err := r.db.GetContext(ctx, &p, `SELECT `+profileColumns+` FROM reward_profiles WHERE referral_code = $1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidReferralCode
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get profile by code", ErrInternal)
	}
	return &p, nil
}

// CreateProfileTx inserts a fresh profile. A duplicate signup leaves the
// existing row untouched and reports inserted=false. A collision on the
// generated referral code surfaces as ErrReferralCodeTaken.
func (r *Repository) CreateProfileTx(ctx context.Context, tx *sqlx.Tx, p *Profile) (bool, error) {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO reward_profiles (user_id, email, referral_code, referred_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO NOTHING
	`, p.UserID, p.Email, p.ReferralCode, p.ReferredBy)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return false, ErrReferralCodeTaken
		}
		return false, fmt.Errorf("%w: create profile", ErrInternal)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected", ErrInternal)
	}
	return rows == 1, nil
}

// GetProfileForUpdateTx locks the profile row; milestone flag flips and their
// coin grants must share this lock.
func (r *Repository) GetProfileForUpdateTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*Profile, error) {
	var p Profile
	err := tx.GetContext(ctx, &p, `SELECT `+profileColumns+` FROM reward_profiles WHERE user_id = $1 FOR UPDATE`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lock profile", ErrInternal)
	}
	return &p, nil
}

// MarkFirstListingTx flips the first-listing flag. Returns false when the
// flag was already set, meaning the milestone was claimed before.
func (r *Repository) MarkFirstListingTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (bool, error) {
	return r.flipFlag(ctx, tx, userID, "has_posted_first_item")
}

// MarkFirstSaleTx flips the first-sale flag.
func (r *Repository) MarkFirstSaleTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (bool, error) {
	return r.flipFlag(ctx, tx, userID, "has_made_first_sale")
}

// MarkReferralPaidTx flips the referral payout flag.
func (r *Repository) MarkReferralPaidTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (bool, error) {
	return r.flipFlag(ctx, tx, userID, "referral_bonus_paid_out")
}

func (r *Repository) flipFlag(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, column string) (bool, error) {
	// column is one of three fixed identifiers, never user input
	result, err := tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE reward_profiles
		SET %s = TRUE, updated_at = now()
		WHERE user_id = $1 AND %s = FALSE
	`, column, column), userID)
	if err != nil {
		return false, fmt.Errorf("%w: flip %s", ErrInternal, column)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected", ErrInternal)
	}
	return rows == 1, nil
}

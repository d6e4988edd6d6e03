package item

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const itemColumns = `
	id, campus_id, owner_id, title, description, price, status,
	reserved_by, reserved_until, buyer_id, sold_at, sold_price,
	removed_by, removed_at, created_at, updated_at`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, it *Item) error {
	return r.create(ctx, r.db, it)
}

// CreateTx inserts a listing inside the caller's transaction, so the listing
// fee charge and the listing itself commit or roll back together.
func (r *Repository) CreateTx(ctx context.Context, tx *sqlx.Tx, it *Item) error {
	return r.create(ctx, tx, it)
}

func (r *Repository) create(ctx context.Context, ext sqlx.ExtContext, it *Item) error {
	_, err := ext.ExecContext(ctx, `
		INSERT INTO items (id, campus_id, owner_id, title, description, price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, it.ID, it.CampusID, it.OwnerID, it.Title, it.Description, it.Price, string(it.Status))
	if err != nil {
		return fmt.Errorf("%w: create item", ErrInternal)
	}
	return nil
}

// GetByID loads an item, lazily releasing a stale reservation hold first.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	if err := r.ReleaseIfExpired(ctx, id); err != nil {
		return nil, err
	}

	var it Item
	err := r.db.GetContext(ctx, &it, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get item", ErrInternal)
	}
	return &it, nil
}

// GetForUpdateTx locks the item row inside the caller's transaction. This is
// the arbitration point for concurrent reserve/purchase attempts.
func (r *Repository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Item, error) {
	var it Item
	err := tx.GetContext(ctx, &it, `SELECT `+itemColumns+` FROM items WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lock item", ErrInternal)
	}
	return &it, nil
}

// ReleaseIfExpired reverts a lapsed reservation back to available. The guard
// in the WHERE clause makes it safe to call from any read path.
func (r *Repository) ReleaseIfExpired(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE items
		SET status = $2, reserved_by = NULL, reserved_until = NULL, updated_at = now()
		WHERE id = $1 AND status = $3 AND reserved_until <= now()
	`, id, string(StatusAvailable), string(StatusReserved))
	if err != nil {
		return fmt.Errorf("%w: release expired reservation", ErrInternal)
	}
	return nil
}

// ReserveTx places or extends a reservation hold inside the caller's
// transaction. The item row must already be locked via GetForUpdateTx.
func (r *Repository) ReserveTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, account uuid.UUID, until time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE items
		SET status = $2, reserved_by = $3, reserved_until = $4, updated_at = now()
		WHERE id = $1
	`, id, string(StatusReserved), account, until)
	if err != nil {
		return fmt.Errorf("%w: reserve item", ErrInternal)
	}
	return nil
}

// MarkSoldTx transitions the item to its terminal sold state and clears any
// reservation fields, inside the caller's transaction.
func (r *Repository) MarkSoldTx(ctx context.Context, tx *sqlx.Tx, id, buyer uuid.UUID, soldPrice int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE items
		SET status = $2, buyer_id = $3, sold_at = now(), sold_price = $4,
		    reserved_by = NULL, reserved_until = NULL, updated_at = now()
		WHERE id = $1
	`, id, string(StatusSold), buyer, soldPrice)
	if err != nil {
		return fmt.Errorf("%w: mark item sold", ErrInternal)
	}
	return nil
}

// UpdateListing applies owner edits to an available listing. The status guard
// keeps reserved, sold and removed rows untouchable: a reserver's settlement
// price can never shift under an active hold.
func (r *Repository) UpdateListing(ctx context.Context, id uuid.UUID, title, description string, price int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE items
		SET title = $2, description = $3, price = $4, updated_at = now()
		WHERE id = $1 AND status = $5
	`, id, title, description, price, string(StatusAvailable))
	if err != nil {
		return fmt.Errorf("%w: update item", ErrInternal)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows == 0 {
		return ErrItemNotAvailable
	}
	return nil
}

// Remove soft-deletes a listing. Sold items are terminal and stay sold.
func (r *Repository) Remove(ctx context.Context, id, removedBy uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE items
		SET status = $2, removed_by = $3, removed_at = now(),
		    reserved_by = NULL, reserved_until = NULL, updated_at = now()
		WHERE id = $1 AND status != $4
	`, id, string(StatusRemoved), removedBy, string(StatusSold))
	if err != nil {
		return fmt.Errorf("%w: remove item", ErrInternal)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows == 0 {
		return ErrItemNotAvailable
	}
	return nil
}

// ListByCampus returns listings for a campus, newest first. Stale holds show
// as reserved until a read of the individual item releases them; browse is a
// display surface, not an arbitration point.
func (r *Repository) ListByCampus(ctx context.Context, campusID string, status ItemStatus, limit, offset int) ([]Item, error) {
	if limit <= 0 {
		limit = 20
	}

	items := make([]Item, 0)
	query := `SELECT ` + itemColumns + ` FROM items WHERE campus_id = $1`
	args := []interface{}{campusID}

	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("%w: list items", ErrInternal)
	}
	return items, nil
}

// ListByOwner returns all of an owner's listings, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Item, error) {
	if limit <= 0 {
		limit = 20
	}

	items := make([]Item, 0)
	err := r.db.SelectContext(ctx, &items, `
		SELECT `+itemColumns+` FROM items
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list owner items", ErrInternal)
	}
	return items, nil
}

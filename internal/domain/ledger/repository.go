package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// TransferParams describes a single coin movement.
type TransferParams struct {
	From           uuid.UUID
	To             uuid.UUID
	Amount         int64
	Type           TransactionType
	Meta           TransferMeta
	IdempotencyKey string
}

// Repository provides balance and transaction ledger operations. All
// mutations run inside a database transaction; read-check-write never happens
// as separate calls.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// EnsureAccount lazily creates a zero-balance account row.
func (r *Repository) EnsureAccount(ctx context.Context, accountID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (account_id, balance)
		VALUES ($1, 0)
		ON CONFLICT (account_id) DO NOTHING
	`, accountID)
	return err
}

// GetBalance returns the committed balance; unknown accounts read as 0.
func (r *Repository) GetBalance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var balance int64
	err := r.db.GetContext(ctx, &balance, `SELECT balance FROM accounts WHERE account_id = $1`, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: get balance", ErrInternal)
	}
	return balance, nil
}

// GetTransaction returns a single ledger entry by id.
func (r *Repository) GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	var txn Transaction
	err := r.db.GetContext(ctx, &txn, `
		SELECT id, type, amount, from_account, to_account, status,
		       item_id, idempotency_key, platform_fee, seller_amount, description, created_at
		FROM ledger_transactions
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get transaction", ErrInternal)
	}
	return &txn, nil
}

// ListTransactions returns ledger entries where the account is either party,
// newest first.
func (r *Repository) ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 20
	}

	txns := make([]Transaction, 0)
	err := r.db.SelectContext(ctx, &txns, `
		SELECT id, type, amount, from_account, to_account, status,
		       item_id, idempotency_key, platform_fee, seller_amount, description, created_at
		FROM ledger_transactions
		WHERE from_account = $1 OR to_account = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list transactions", ErrInternal)
	}
	return txns, nil
}

// LookupIdempotencyKey returns the transaction previously completed under the
// key, or nil when the key is unseen.
func (r *Repository) LookupIdempotencyKey(ctx context.Context, key string) (*Transaction, error) {
	if key == "" {
		return nil, nil
	}

	var txnID uuid.UUID
	err := r.db.GetContext(ctx, &txnID, `SELECT transaction_id FROM idempotency_keys WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: idempotency lookup", ErrInternal)
	}
	return r.GetTransaction(ctx, txnID)
}

// LookupIdempotencyTx is LookupIdempotencyKey within a caller-owned
// transaction, so the check shares the caller's row locks and snapshot.
func (r *Repository) LookupIdempotencyTx(ctx context.Context, tx *sqlx.Tx, key string) (*Transaction, error) {
	return r.lookupIdempotencyTx(ctx, tx, key)
}

// Transfer moves coins between two accounts in its own transaction.
func (r *Repository) Transfer(ctx context.Context, p TransferParams) (uuid.UUID, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	txnID, err := r.TransferTx(ctx, tx, p)
	if err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, mapPgError(err)
	}
	return txnID, nil
}

// TransferTx moves coins within a caller-owned transaction. The caller is
// responsible for commit/rollback. Invariants: amount > 0, from != to, and a
// non-system sender never goes below zero.
func (r *Repository) TransferTx(ctx context.Context, tx *sqlx.Tx, p TransferParams) (uuid.UUID, error) {
	if p.Amount <= 0 {
		return uuid.Nil, ErrInvalidAmount
	}
	if p.From == p.To {
		return uuid.Nil, ErrSelfTransfer
	}
	if !validTransactionType(p.Type) {
		return uuid.Nil, fmt.Errorf("%w: unknown transaction type %q", ErrInternal, p.Type)
	}

	if prior, err := r.lookupIdempotencyTx(ctx, tx, p.IdempotencyKey); err != nil {
		return uuid.Nil, err
	} else if prior != nil {
		return r.checkPrior(prior, p)
	}

	if err := r.lockAccounts(ctx, tx, p.From, p.To); err != nil {
		return uuid.Nil, err
	}

	if err := r.applyDelta(ctx, tx, p.From, -p.Amount); err != nil {
		return uuid.Nil, err
	}
	if err := r.applyDelta(ctx, tx, p.To, p.Amount); err != nil {
		return uuid.Nil, err
	}

	txnID, err := r.insertTransactionTx(ctx, tx, p)
	if err != nil {
		return uuid.Nil, err
	}

	if err := r.recordIdempotencyTx(ctx, tx, p.IdempotencyKey, txnID); err != nil {
		return uuid.Nil, err
	}

	return txnID, nil
}

// SettlePurchaseTx applies both escrow legs of an item purchase as one atomic
// unit: the buyer is debited the full price, the seller is credited price
// minus the platform fee, and the fee remains on the system account. Two
// COMPLETED ITEM_PURCHASE entries are written; the buyer leg is the canonical
// transaction the idempotency key maps to.
func (r *Repository) SettlePurchaseTx(ctx context.Context, tx *sqlx.Tx, buyer, seller uuid.UUID, price, fee int64, itemID uuid.UUID, idempotencyKey string) (uuid.UUID, error) {
	if price <= 0 {
		return uuid.Nil, ErrInvalidAmount
	}
	if fee < 0 || fee >= price {
		return uuid.Nil, fmt.Errorf("%w: fee %d out of range for price %d", ErrInternal, fee, price)
	}
	if buyer == seller {
		return uuid.Nil, ErrSelfTransfer
	}

	sellerAmount := price - fee

	if prior, err := r.lookupIdempotencyTx(ctx, tx, idempotencyKey); err != nil {
		return uuid.Nil, err
	} else if prior != nil {
		if prior.Type != TypeItemPurchase || prior.Amount != price || prior.FromAccount != buyer {
			return uuid.Nil, ErrIdempotencyConflict
		}
		return prior.ID, nil
	}

	if err := r.lockAccounts(ctx, tx, buyer, seller, SystemAccountID); err != nil {
		return uuid.Nil, err
	}

	if err := r.applyDelta(ctx, tx, buyer, -price); err != nil {
		return uuid.Nil, err
	}
	if err := r.applyDelta(ctx, tx, seller, sellerAmount); err != nil {
		return uuid.Nil, err
	}
	if err := r.applyDelta(ctx, tx, SystemAccountID, fee); err != nil {
		return uuid.Nil, err
	}

	buyerLeg, err := r.insertTransactionTx(ctx, tx, TransferParams{
		From:   buyer,
		To:     SystemAccountID,
		Amount: price,
		Type:   TypeItemPurchase,
		Meta: TransferMeta{
			ItemID:       &itemID,
			PlatformFee:  &fee,
			SellerAmount: &sellerAmount,
			Description:  "item purchase",
		},
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return uuid.Nil, err
	}

	if _, err := r.insertTransactionTx(ctx, tx, TransferParams{
		From:   SystemAccountID,
		To:     seller,
		Amount: sellerAmount,
		Type:   TypeItemPurchase,
		Meta: TransferMeta{
			ItemID:      &itemID,
			PlatformFee: &fee,
			Description: "item sale payout",
		},
	}); err != nil {
		return uuid.Nil, err
	}

	if err := r.recordIdempotencyTx(ctx, tx, idempotencyKey, buyerLeg); err != nil {
		return uuid.Nil, err
	}

	return buyerLeg, nil
}

// lockAccounts creates missing rows and takes FOR UPDATE locks in a
// deterministic order so concurrent transfers touching the same accounts
// cannot deadlock.
func (r *Repository) lockAccounts(ctx context.Context, tx *sqlx.Tx, ids ...uuid.UUID) error {
	ordered := make([]uuid.UUID, len(ids))
	copy(ordered, ids)
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			if strings.Compare(ordered[j].String(), ordered[i].String()) < 0 {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			}
		}
	}

	for _, id := range ordered {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (account_id, balance)
			VALUES ($1, 0)
			ON CONFLICT (account_id) DO NOTHING
		`, id); err != nil {
			return mapPgError(err)
		}

		var balance int64
		if err := tx.GetContext(ctx, &balance, `SELECT balance FROM accounts WHERE account_id = $1 FOR UPDATE`, id); err != nil {
			return mapPgError(err)
		}
	}
	return nil
}

// applyDelta adjusts a locked account balance. The system clearing account is
// exempt from the non-negative check; every other account must stay >= 0.
func (r *Repository) applyDelta(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, delta int64) error {
	if delta < 0 && accountID != SystemAccountID {
		var balance int64
		if err := tx.GetContext(ctx, &balance, `SELECT balance FROM accounts WHERE account_id = $1`, accountID); err != nil {
			return mapPgError(err)
		}
		if balance+delta < 0 {
			return ErrInsufficientFunds
		}
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE accounts SET balance = balance + $2, updated_at = now()
		WHERE account_id = $1
	`, accountID, delta)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (r *Repository) insertTransactionTx(ctx context.Context, tx *sqlx.Tx, p TransferParams) (uuid.UUID, error) {
	id := uuid.New()

	var key *string
	if p.IdempotencyKey != "" {
		key = &p.IdempotencyKey
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_transactions (
			id, type, amount, from_account, to_account, status,
			item_id, idempotency_key, platform_fee, seller_amount, description
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, id, string(p.Type), p.Amount, p.From, p.To, string(StatusCompleted),
		p.Meta.ItemID, key, p.Meta.PlatformFee, p.Meta.SellerAmount, p.Meta.Description)
	if err != nil {
		return uuid.Nil, mapPgError(err)
	}
	return id, nil
}

func (r *Repository) lookupIdempotencyTx(ctx context.Context, tx *sqlx.Tx, key string) (*Transaction, error) {
	if key == "" {
		return nil, nil
	}

	var txn Transaction
	err := tx.GetContext(ctx, &txn, `
		SELECT t.id, t.type, t.amount, t.from_account, t.to_account, t.status,
		       t.item_id, t.idempotency_key, t.platform_fee, t.seller_amount, t.description, t.created_at
		FROM idempotency_keys k
		JOIN ledger_transactions t ON t.id = k.transaction_id
		WHERE k.key = $1
	`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapPgError(err)
	}
	return &txn, nil
}

func (r *Repository) recordIdempotencyTx(ctx context.Context, tx *sqlx.Tx, key string, txnID uuid.UUID) error {
	if key == "" {
		return nil
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO idempotency_keys (key, transaction_id)
		VALUES ($1, $2)
	`, key, txnID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			// Another request won the race on this key; the caller's writes
			// roll back and the winner's result stands.
			return ErrConcurrentConflict
		}
		return mapPgError(err)
	}
	return nil
}

// checkPrior verifies a replayed request matches the original before
// returning its result unchanged.
func (r *Repository) checkPrior(prior *Transaction, p TransferParams) (uuid.UUID, error) {
	if prior.Type != p.Type || prior.Amount != p.Amount || prior.FromAccount != p.From || prior.ToAccount != p.To {
		return uuid.Nil, ErrIdempotencyConflict
	}
	return prior.ID, nil
}

func mapPgError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01": // serialization failure, deadlock
			return ErrConcurrentConflict
		case "23505":
			return ErrConcurrentConflict
		case "23514": // balance check constraint
			return ErrInsufficientFunds
		}
	}
	return fmt.Errorf("%w: %v", ErrInternal, err)
}

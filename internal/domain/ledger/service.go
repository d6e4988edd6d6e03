package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Service wraps the repository with validation and logging. All balance
// mutation in the system flows through here or through the purchase
// orchestrator's settlement call; nothing writes balances directly.
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetBalance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	return s.repo.GetBalance(ctx, accountID)
}

func (s *Service) GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

func (s *Service) ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]Transaction, error) {
	return s.repo.ListTransactions(ctx, accountID, limit, offset)
}

// Transfer executes an atomic all-or-nothing coin movement. A previously seen
// idempotency key returns the original transaction id with no side effects.
func (s *Service) Transfer(ctx context.Context, p TransferParams) (uuid.UUID, error) {
	if p.Amount <= 0 {
		return uuid.Nil, ErrInvalidAmount
	}
	if p.From == p.To {
		return uuid.Nil, ErrSelfTransfer
	}

	txnID, err := s.repo.Transfer(ctx, p)
	if err != nil {
		return uuid.Nil, err
	}

	log.Info().
		Str("txn_id", txnID.String()).
		Str("from", p.From.String()).
		Str("to", p.To.String()).
		Int64("amount", p.Amount).
		Str("type", string(p.Type)).
		Msg("transfer completed")
	return txnID, nil
}

// AdminCredit issues coins from the platform account to a user.
func (s *Service) AdminCredit(ctx context.Context, adminID, userID uuid.UUID, amount int64, description, idempotencyKey string) (uuid.UUID, error) {
	txnID, err := s.Transfer(ctx, TransferParams{
		From:           SystemAccountID,
		To:             userID,
		Amount:         amount,
		Type:           TypeAdminCredit,
		Meta:           TransferMeta{Description: description},
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return uuid.Nil, err
	}

	log.Info().
		Str("admin_id", adminID.String()).
		Str("user_id", userID.String()).
		Int64("amount", amount).
		Msg("admin credit issued")
	return txnID, nil
}

// AdminDebit removes coins from a user back to the platform account. Fails
// with ErrInsufficientFunds when the user balance is too low.
func (s *Service) AdminDebit(ctx context.Context, adminID, userID uuid.UUID, amount int64, description, idempotencyKey string) (uuid.UUID, error) {
	txnID, err := s.Transfer(ctx, TransferParams{
		From:           userID,
		To:             SystemAccountID,
		Amount:         amount,
		Type:           TypeAdminDebit,
		Meta:           TransferMeta{Description: description},
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return uuid.Nil, err
	}

	log.Info().
		Str("admin_id", adminID.String()).
		Str("user_id", userID.String()).
		Int64("amount", amount).
		Msg("admin debit applied")
	return txnID, nil
}

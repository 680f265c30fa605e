package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const paymentColumns = `id, user_id, appointment_id, amount, payment_method, payment_details, status, created_at, updated_at`

type walletRepository struct {
	BaseRepository
}

func NewWalletRepository(base BaseRepository) repository.WalletRepository {
	return &walletRepository{base}
}

func (r *walletRepository) Get(ctx context.Context, userID uuid.UUID) (*model.Wallet, error) {
	w := model.Wallet{UserID: userID}
	err := r.db.GetContext(ctx, &w, `SELECT user_id, balance FROM wallets WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return &w, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &w, nil
}

func (r *walletRepository) ListPayments(ctx context.Context, userID uuid.UUID, page model.Pagination) ([]*model.Payment, error) {
	var payments []*model.Payment
	err := r.db.SelectContext(ctx, &payments, `
		SELECT `+paymentColumns+` FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, userID, page.Limit(), page.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

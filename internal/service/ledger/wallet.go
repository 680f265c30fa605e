package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// AddFunds tops up a wallet and records the payment with no appointment link.
func (s *Service) AddFunds(ctx context.Context, userID uuid.UUID, amount float64, method string) (wallet *model.Wallet, err error) {
	defer func() { s.record(opAddFunds, err) }()

	if amount <= 0 || amount > MaxTopUp {
		return nil, apperrors.NewInvalidInput(fmt.Sprintf("amount must be greater than 0 and at most %.0f", MaxTopUp), nil)
	}
	if !twoDecimals(amount) {
		return nil, apperrors.NewInvalidInput("amount can have at most two decimal places", nil)
	}
	m, err := model.ParsePaymentMethod(method)
	if err != nil {
		return nil, apperrors.NewInvalidInput(err.Error(), nil)
	}

	now := s.now().UTC()
	err = s.store.InTx(ctx, func(tx repository.LedgerTx) error {
		wallets, err := tx.LockWallets(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to lock wallet: %w", err)
		}
		if err := tx.AdjustWallet(ctx, userID, amount); err != nil {
			return fmt.Errorf("failed to credit wallet: %w", err)
		}
		if err := tx.InsertPayment(ctx, &model.Payment{
			Base:   model.NewBase(now),
			UserID: userID,
			Amount: amount,
			Method: m,
			Status: model.PaymentStatusCompleted,
		}); err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		wallet = &model.Wallet{UserID: userID, Balance: wallets[userID].Balance + amount}
		return s.enqueue(ctx, tx, model.EventWalletCredited, model.LedgerEvent{
			UserID:    userID,
			Amount:    amount,
			Recipient: userID,
			Message:   fmt.Sprintf("Rs %.2f has been added to your wallet.", amount),
		})
	})
	if err != nil {
		return nil, err
	}
	s.observeVolume("top_up", amount)
	return wallet, nil
}

// Package account serves the wallet view shared by patients and doctors.
package account

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

// Funder credits a wallet. The ledger service implements it.
type Funder interface {
	AddFunds(ctx context.Context, userID uuid.UUID, amount float64, method string) (*model.Wallet, error)
}

type Service struct {
	wallets repository.WalletRepository
	funder  Funder
}

func NewService(wallets repository.WalletRepository, funder Funder) *Service {
	return &Service{wallets: wallets, funder: funder}
}

// Summary returns the balance with one page of payments, newest first.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID, page model.Pagination) (*model.WalletSummary, error) {
	w, err := s.wallets.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	payments, err := s.wallets.ListPayments(ctx, userID, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	if payments == nil {
		payments = []*model.Payment{}
	}
	return &model.WalletSummary{Wallet: *w, Payments: payments}, nil
}

func (s *Service) AddFunds(ctx context.Context, userID uuid.UUID, req *model.AddFundsRequest) (*model.Wallet, error) {
	return s.funder.AddFunds(ctx, userID, req.Amount, req.Method)
}

package account

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/internal/service/ledger"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

func TestSummaryPagesPayments(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	sealer, err := security.NewSealer([]byte("0123456789abcdef"))
	require.NoError(t, err)
	svc := NewService(store.Wallets(), ledger.NewService(store, sealer, metrics.NewTestMetrics(), logger.Nop()))

	u := &model.User{Base: model.NewBase(time.Now()), Email: "p@example.com", Role: model.RolePatient}
	require.NoError(t, store.Users().Register(ctx, u, nil))

	empty, err := svc.Summary(ctx, u.ID, model.Pagination{})
	require.NoError(t, err)
	assert.Zero(t, empty.Balance)
	assert.NotNil(t, empty.Payments)

	for _, amount := range []float64{100, 250.5, 49.5} {
		_, err := svc.AddFunds(ctx, u.ID, &model.AddFundsRequest{Amount: amount, Method: "UPI"})
		require.NoError(t, err)
	}

	summary, err := svc.Summary(ctx, u.ID, model.Pagination{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 400.0, summary.Balance)
	require.Len(t, summary.Payments, 2)
	assert.Equal(t, 49.5, summary.Payments[0].Amount)
	assert.Equal(t, model.PaymentMethodUPI, summary.Payments[0].Method)

	other, err := svc.Summary(ctx, uuid.New(), model.Pagination{})
	require.NoError(t, err)
	assert.Empty(t, other.Payments)
}

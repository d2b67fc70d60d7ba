package wallet

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cakeverse/cakeverse-backend/internal/users"
	"github.com/cakeverse/cakeverse-backend/pkg/db"
	"github.com/cakeverse/cakeverse-backend/pkg/db/dbtest"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
)

func newTestService(t *testing.T) (*db.Client, Service) {
	t.Helper()
	client := dbtest.New(t)
	svc, err := NewService(NewRepository(client.DB()), users.NewRepository(client.DB()))
	require.NoError(t, err)
	return client, svc
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	if _, err := NewService(nil, nil); err == nil {
		t.Fatalf("expected missing repository error")
	}
	if _, err := NewService(NewRepository(nil), nil); err == nil {
		t.Fatalf("expected missing user directory error")
	}
}

func TestGetOrCreateCreatesOnceWithZeroBalance(t *testing.T) {
	client, svc := newTestService(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, client.DB(), enums.RoleCustomer)

	first, err := svc.GetOrCreate(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, first.Balance.IsZero())

	second, err := svc.GetOrCreate(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestGetOrCreateUnknownUser(t *testing.T) {
	_, svc := newTestService(t)
	_, err := svc.GetOrCreate(context.Background(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestDebitAndCreditKeepBalanceNonNegative(t *testing.T) {
	client, svc := newTestService(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, client.DB(), enums.RoleCustomer)
	wallet := dbtest.SeedWallet(t, client.DB(), user.ID, "1000")

	steps := []struct {
		debit   bool
		amount  int64
		wantErr pkgerrors.Code
		balance int64
	}{
		{debit: true, amount: 400, balance: 600},
		{debit: true, amount: 601, wantErr: pkgerrors.CodeInsufficient, balance: 600},
		{debit: false, amount: 150, balance: 750},
		{debit: true, amount: 750, balance: 0},
		{debit: true, amount: 1, wantErr: pkgerrors.CodeInsufficient, balance: 0},
		{debit: false, amount: 0, wantErr: pkgerrors.CodeValidation, balance: 0},
		{debit: true, amount: -5, wantErr: pkgerrors.CodeValidation, balance: 0},
	}

	for i, step := range steps {
		err := client.WithTx(ctx, func(tx *gorm.DB) error {
			amount := decimal.NewFromInt(step.amount)
			if step.debit {
				_, err := svc.Debit(ctx, tx, wallet.ID, amount)
				return err
			}
			_, err := svc.Credit(ctx, tx, wallet.ID, amount)
			return err
		})
		if step.wantErr != "" {
			require.True(t, pkgerrors.IsCode(err, step.wantErr), "step %d: expected %s got %v", i, step.wantErr, err)
		} else {
			require.NoError(t, err, "step %d", i)
		}
		balance := dbtest.Balance(t, client.DB(), wallet.ID)
		require.True(t, balance.Equal(decimal.NewFromInt(step.balance)), "step %d: balance %s", i, balance)
		require.False(t, balance.IsNegative())
	}
}

func TestDebitReturnsNewBalance(t *testing.T) {
	client, svc := newTestService(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, client.DB(), enums.RoleCustomer)
	wallet := dbtest.SeedWallet(t, client.DB(), user.ID, "250.75")

	var got decimal.Decimal
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		got, err = svc.Debit(ctx, tx, wallet.ID, decimal.RequireFromString("50.25"))
		return err
	}))
	require.Equal(t, "200.50", got.StringFixed(2))
}

func TestDebitUnknownWallet(t *testing.T) {
	client, svc := newTestService(t)
	ctx := context.Background()
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := svc.Debit(ctx, tx, uuid.New(), decimal.NewFromInt(1))
		return err
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestDebitRequiresAtomicUnit(t *testing.T) {
	_, svc := newTestService(t)
	_, err := svc.Debit(context.Background(), nil, uuid.New(), decimal.NewFromInt(1))
	require.Error(t, err)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	client, svc := newTestService(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, client.DB(), enums.RoleCustomer)
	wallet := dbtest.SeedWallet(t, client.DB(), user.ID, "1000")

	amounts := []int64{700, 600}
	errs := make([]error, len(amounts))
	var wg sync.WaitGroup
	for i, amount := range amounts {
		wg.Add(1)
		go func(i int, amount int64) {
			defer wg.Done()
			errs[i] = client.WithTx(ctx, func(tx *gorm.DB) error {
				_, err := svc.Debit(ctx, tx, wallet.ID, decimal.NewFromInt(amount))
				return err
			})
		}(i, amount)
	}
	wg.Wait()

	successes, insufficient := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case pkgerrors.IsCode(err, pkgerrors.CodeInsufficient):
			insufficient++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	require.Equal(t, 1, successes)
	require.Equal(t, 1, insufficient)

	balance := dbtest.Balance(t, client.DB(), wallet.ID)
	require.True(t, balance.Equal(decimal.NewFromInt(300)) || balance.Equal(decimal.NewFromInt(400)), "balance %s", balance)
}

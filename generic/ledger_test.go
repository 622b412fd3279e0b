package generic_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/warp/approval-ledger/generic"
	"github.com/warp/approval-ledger/generic/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var testNow = time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

func newLedger() *generic.Ledger {
	return generic.NewLedger(store.NewMemory(), generic.Deps{Clock: generic.FixedClock{T: testNow}})
}

func money(v float64) generic.Amount {
	return generic.NewAmount(v, generic.UnitCurrency)
}

func days(v float64) generic.Amount {
	return generic.NewAmount(v, generic.UnitDays)
}

func openTripWallet(t *testing.T, l *generic.Ledger, id generic.WalletID, budget float64) {
	t.Helper()
	_, err := l.Initialize(context.Background(), generic.InitializeInput{
		WalletID:   id,
		WalletKind: generic.WalletTripBudget,
		Opening:    money(budget),
		CauseID:    "open:" + string(id),
		Actor:      "mgr-1",
	})
	require.NoError(t, err)
}

func assertAmount(t *testing.T, want float64, got generic.Amount) {
	t.Helper()
	assert.Truef(t, got.Value.Equal(generic.NewAmount(want, got.Unit).Value), "want %v, got %s", want, got)
}

// =============================================================================
// INITIALIZE
// =============================================================================

func TestLedger_Initialize_OpensWallet(t *testing.T) {
	ctx := context.Background()
	l := newLedger()

	bal, err := l.Initialize(ctx, generic.InitializeInput{
		WalletID:   "trip:t-1",
		WalletKind: generic.WalletTripBudget,
		Opening:    money(1000),
		CauseID:    "trip-approve:t-1",
		Actor:      "mgr-1",
	})
	require.NoError(t, err)
	assertAmount(t, 1000, bal.Amount)
	assert.Equal(t, 1, bal.Count)
	assert.Equal(t, generic.WalletTripBudget, bal.Kind)

	txs, err := l.Transactions(ctx, "trip:t-1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, generic.TxAllocation, txs[0].Kind)
	assert.Equal(t, "mgr-1", txs[0].CreatedBy)
	assert.Equal(t, testNow, txs[0].CreatedAt)
}

func TestLedger_Initialize_Twice_ReturnsExistingBalance(t *testing.T) {
	// GIVEN: A wallet opened with 1000
	// WHEN: It is initialized again, even with another cause and amount
	// THEN: ErrAlreadyInitialized with the existing balance, nothing written
	ctx := context.Background()
	l := newLedger()
	openTripWallet(t, l, "trip:t-1", 1000)

	bal, err := l.Initialize(ctx, generic.InitializeInput{
		WalletID:   "trip:t-1",
		WalletKind: generic.WalletTripBudget,
		Opening:    money(5000),
		CauseID:    "somewhere-else",
	})
	require.ErrorIs(t, err, generic.ErrAlreadyInitialized)
	assertAmount(t, 1000, bal.Amount)

	txs, err := l.Transactions(ctx, "trip:t-1")
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestLedger_Initialize_WrongKind(t *testing.T) {
	ctx := context.Background()
	l := newLedger()
	openTripWallet(t, l, "trip:t-1", 1000)

	_, err := l.Initialize(ctx, generic.InitializeInput{
		WalletID:   "trip:t-1",
		WalletKind: generic.WalletLeaveBalance,
		Opening:    days(20),
		CauseID:    "open",
	})
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestLedger_Initialize_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		in   generic.InitializeInput
	}{
		{"missing wallet", generic.InitializeInput{WalletKind: generic.WalletTripBudget, Opening: money(1), CauseID: "c"}},
		{"missing cause", generic.InitializeInput{WalletID: "w", WalletKind: generic.WalletTripBudget, Opening: money(1)}},
		{"unknown kind", generic.InitializeInput{WalletID: "w", WalletKind: "points", Opening: money(1), CauseID: "c"}},
		{"negative opening", generic.InitializeInput{WalletID: "w", WalletKind: generic.WalletTripBudget, Opening: money(-1), CauseID: "c"}},
		{"zero allocation", generic.InitializeInput{WalletID: "w", WalletKind: generic.WalletTripBudget, Opening: money(0), CauseID: "c"}},
		{"consumption opening", generic.InitializeInput{WalletID: "w", WalletKind: generic.WalletTripBudget, Opening: money(1), CauseID: "c", Kind: generic.TxConsumption}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newLedger().Initialize(context.Background(), tt.in)
			var ve *generic.ValidationError
			assert.True(t, errors.As(err, &ve), "want ValidationError, got %v", err)
		})
	}
}

func TestLedger_Initialize_ZeroAccrualOpensLeaveWallet(t *testing.T) {
	bal, err := newLedger().Initialize(context.Background(), generic.InitializeInput{
		WalletID:   "leave:emp-1:2025",
		WalletKind: generic.WalletLeaveBalance,
		Opening:    days(0),
		CauseID:    "accrual:emp-1:2025",
		Kind:       generic.TxAccrual,
	})
	require.NoError(t, err)
	assert.True(t, bal.Amount.IsZero())
	assert.Equal(t, 1, bal.Count)
}

// =============================================================================
// APPEND
// =============================================================================

func TestLedger_Append_UninitializedWallet(t *testing.T) {
	_, err := newLedger().Append(context.Background(), generic.Entry{
		WalletID: "trip:missing",
		Amount:   money(-10),
		Kind:     generic.TxConsumption,
		CauseID:  "c-1",
	})
	assert.ErrorIs(t, err, generic.ErrWalletNotFound)
	assert.True(t, generic.IsNotInitialized(err))
}

func TestLedger_Append_DuplicateCause_IsNoOp(t *testing.T) {
	// GIVEN: A consumption of 300 for cause expense-approve:e-1
	// WHEN: The same (wallet, cause, kind) is appended again with another amount
	// THEN: The first transaction is returned with ErrDuplicateTransaction
	ctx := context.Background()
	l := newLedger()
	openTripWallet(t, l, "trip:t-1", 1000)

	entry := generic.Entry{
		WalletID: "trip:t-1",
		Amount:   money(-300),
		Kind:     generic.TxConsumption,
		CauseID:  "expense-approve:e-1",
	}
	first, err := l.Append(ctx, entry)
	require.NoError(t, err)

	entry.Amount = money(-999)
	again, err := l.Append(ctx, entry)
	require.ErrorIs(t, err, generic.ErrDuplicateTransaction)
	assert.True(t, generic.IsIdempotentReplay(err))
	assert.Equal(t, first.ID, again.ID)
	assertAmount(t, -300, again.Amount)

	bal, err := l.Balance(ctx, "trip:t-1")
	require.NoError(t, err)
	assertAmount(t, 700, bal.Amount)
}

func TestLedger_Append_SameCauseDifferentKind(t *testing.T) {
	ctx := context.Background()
	l := newLedger()
	openTripWallet(t, l, "trip:t-1", 1000)

	_, err := l.Append(ctx, generic.Entry{WalletID: "trip:t-1", Amount: money(-300), Kind: generic.TxConsumption, CauseID: "e-1"})
	require.NoError(t, err)
	_, err = l.Append(ctx, generic.Entry{WalletID: "trip:t-1", Amount: money(300), Kind: generic.TxRefund, CauseID: "e-1"})
	require.NoError(t, err)

	bal, err := l.Balance(ctx, "trip:t-1")
	require.NoError(t, err)
	assertAmount(t, 1000, bal.Amount)
	assert.Equal(t, 3, bal.Count)
}

func TestLedger_Append_NoOverdraft(t *testing.T) {
	ctx := context.Background()
	l := newLedger()
	openTripWallet(t, l, "trip:t-1", 100)

	_, err := l.Append(ctx, generic.Entry{
		WalletID:    "trip:t-1",
		Amount:      money(-150),
		Kind:        generic.TxConsumption,
		CauseID:     "e-1",
		NoOverdraft: true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrInsufficientBalance)
	assert.ErrorIs(t, err, generic.ErrNotAuthorized)

	var be *generic.BudgetExceededError
	require.ErrorAs(t, err, &be)
	assertAmount(t, 100, be.Available)
	assertAmount(t, 150, be.Requested)

	// Without the flag the wallet may go negative.
	_, err = l.Append(ctx, generic.Entry{WalletID: "trip:t-1", Amount: money(-150), Kind: generic.TxConsumption, CauseID: "e-1"})
	require.NoError(t, err)
	bal, err := l.Balance(ctx, "trip:t-1")
	require.NoError(t, err)
	assertAmount(t, -50, bal.Amount)
	assert.True(t, bal.IsOverdrawn())
}

func TestLedger_Append_UnitMismatch(t *testing.T) {
	ctx := context.Background()
	l := newLedger()
	openTripWallet(t, l, "trip:t-1", 100)

	_, err := l.Append(ctx, generic.Entry{WalletID: "trip:t-1", Amount: days(-1), Kind: generic.TxConsumption, CauseID: "c"})
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestLedger_Append_InvalidEntries(t *testing.T) {
	tests := []struct {
		name  string
		entry generic.Entry
	}{
		{"zero amount", generic.Entry{WalletID: "w", Amount: money(0), Kind: generic.TxAdjustment, CauseID: "c"}},
		{"positive consumption", generic.Entry{WalletID: "w", Amount: money(5), Kind: generic.TxConsumption, CauseID: "c"}},
		{"negative allocation", generic.Entry{WalletID: "w", Amount: money(-5), Kind: generic.TxAllocation, CauseID: "c"}},
		{"unknown kind", generic.Entry{WalletID: "w", Amount: money(5), Kind: "bonus", CauseID: "c"}},
		{"missing cause", generic.Entry{WalletID: "w", Amount: money(5), Kind: generic.TxAdjustment}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newLedger().Append(context.Background(), tt.entry)
			assert.ErrorIs(t, err, generic.ErrValidation)
		})
	}
}

// =============================================================================
// BALANCE
// =============================================================================

func TestLedger_Balance_NotInitialized(t *testing.T) {
	bal, err := newLedger().Balance(context.Background(), "trip:none")
	assert.ErrorIs(t, err, generic.ErrNotInitialized)
	assert.Equal(t, generic.WalletID("trip:none"), bal.WalletID)
	assert.Equal(t, 0, bal.Count)
}

func TestLedger_Balance_EqualsSumOfTransactions(t *testing.T) {
	// Balance is a fold: after any sequence of appends it equals the sum
	// of the recorded amounts, including reads served from the snapshot.
	ctx := context.Background()
	l := newLedger()
	openTripWallet(t, l, "trip:t-1", 1000)

	amounts := []float64{-120.5, -80, 40, -300, 25.25, -10}
	for i, a := range amounts {
		kind := generic.TxConsumption
		if a > 0 {
			kind = generic.TxAdjustment
		}
		_, err := l.Append(ctx, generic.Entry{
			WalletID: "trip:t-1",
			Amount:   money(a),
			Kind:     kind,
			CauseID:  string(rune('a' + i)),
		})
		require.NoError(t, err)

		bal, err := l.Balance(ctx, "trip:t-1")
		require.NoError(t, err)
		txs, err := l.Transactions(ctx, "trip:t-1")
		require.NoError(t, err)

		sum := generic.ZeroAmount(generic.UnitCurrency)
		for _, tx := range txs {
			sum = sum.Add(tx.Amount)
		}
		assert.True(t, sum.Equal(bal.Amount), "step %d: fold %s != balance %s", i, sum, bal.Amount)
		assert.Equal(t, len(txs), bal.Count)
	}
	bal, err := l.Balance(ctx, "trip:t-1")
	require.NoError(t, err)
	assertAmount(t, 554.75, bal.Amount)
}

func TestLedger_Transactions_OrderedBySequence(t *testing.T) {
	ctx := context.Background()
	l := newLedger()
	openTripWallet(t, l, "trip:t-1", 1000)
	for _, c := range []string{"a", "b", "c"} {
		_, err := l.Append(ctx, generic.Entry{WalletID: "trip:t-1", Amount: money(-1), Kind: generic.TxConsumption, CauseID: c})
		require.NoError(t, err)
	}

	txs, err := l.Transactions(ctx, "trip:t-1")
	require.NoError(t, err)
	require.Len(t, txs, 4)
	for i := 1; i < len(txs); i++ {
		assert.Greater(t, txs[i].Seq, txs[i-1].Seq)
	}

	empty, err := l.Transactions(ctx, "trip:none")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestLedger_ConcurrentAppends_NoOverdraft(t *testing.T) {
	// GIVEN: A wallet with 1000
	// WHEN: Two 600 consumptions race with NoOverdraft
	// THEN: Exactly one lands; the other sees a conflict or the budget check
	ctx := context.Background()
	l := newLedger()
	openTripWallet(t, l, "trip:t-1", 1000)

	errs := make([]error, 2)
	var g errgroup.Group
	for i := range errs {
		i := i
		g.Go(func() error {
			_, errs[i] = l.Append(ctx, generic.Entry{
				WalletID:    "trip:t-1",
				Amount:      money(-600),
				Kind:        generic.TxConsumption,
				CauseID:     []string{"e-1", "e-2"}[i],
				NoOverdraft: true,
			})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, generic.IsRetryable(err) || errors.Is(err, generic.ErrInsufficientBalance), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	bal, err := l.Balance(ctx, "trip:t-1")
	require.NoError(t, err)
	assertAmount(t, 400, bal.Amount)
}

func TestLedger_BoundToUnitOfWork_RollsBack(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	l := generic.NewLedger(mem, generic.Deps{})
	openTripWallet(t, l, "trip:t-1", 1000)

	boom := errors.New("boom")
	err := mem.WithTx(ctx, func(s generic.Store) error {
		bound := l.Bind(s)
		if _, err := bound.Append(ctx, generic.Entry{WalletID: "trip:t-1", Amount: money(-300), Kind: generic.TxConsumption, CauseID: "e-1"}); err != nil {
			return err
		}
		bal, err := bound.Balance(ctx, "trip:t-1")
		require.NoError(t, err)
		assertAmount(t, 700, bal.Amount)
		return boom
	})
	require.ErrorIs(t, err, boom)

	bal, err := l.Balance(ctx, "trip:t-1")
	require.NoError(t, err)
	assertAmount(t, 1000, bal.Amount)
}

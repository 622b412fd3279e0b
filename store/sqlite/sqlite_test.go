package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/approval-ledger/expense"
	"github.com/warp/approval-ledger/generic"
	"github.com/warp/approval-ledger/store/sqlite"
	"github.com/warp/approval-ledger/trip"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "approvals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func money(v float64) generic.Amount { return generic.NewAmount(v, generic.UnitCurrency) }

func tx(wallet generic.WalletID, cause string, amount float64) generic.Transaction {
	return generic.Transaction{
		ID:         generic.TransactionID(string(wallet) + "/" + cause),
		WalletID:   wallet,
		WalletKind: generic.WalletTripBudget,
		Amount:     money(amount),
		Kind:       generic.TxAllocation,
		CauseID:    cause,
		Reason:     "budget",
		CreatedBy:  "mgr-1",
		CreatedAt:  time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestStore_AppendLoadFind(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.Ping(ctx))

	first, err := s.AppendTransaction(ctx, tx("trip:t-1", "open", 1000), 0)
	require.NoError(t, err)
	assert.Positive(t, first.Seq)

	spend := tx("trip:t-1", "exp-1", -250.5)
	spend.Kind = generic.TxConsumption
	second, err := s.AppendTransaction(ctx, spend, 1)
	require.NoError(t, err)
	assert.Greater(t, second.Seq, first.Seq)

	txs, err := s.LoadTransactions(ctx, "trip:t-1")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.True(t, txs[1].Amount.Equal(money(-250.5)))
	assert.Equal(t, generic.UnitCurrency, txs[1].Amount.Unit)
	assert.Equal(t, generic.TxConsumption, txs[1].Kind)
	assert.Equal(t, "mgr-1", txs[1].CreatedBy)
	assert.True(t, txs[0].CreatedAt.Equal(first.CreatedAt))

	after, err := s.LoadTransactionsAfter(ctx, "trip:t-1", first.Seq)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, second.ID, after[0].ID)

	found, err := s.FindTransaction(ctx, spend.IdempotencyKey())
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, second.Seq, found.Seq)

	none, err := s.FindTransaction(ctx, "trip:t-1|missing|refund")
	require.NoError(t, err)
	assert.Nil(t, none)

	empty, err := s.LoadTransactions(ctx, "trip:unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_AppendRejectsDuplicatesAndStaleCounts(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	_, err := s.AppendTransaction(ctx, tx("trip:t-1", "open", 1000), 0)
	require.NoError(t, err)

	dup := tx("trip:t-1", "open", 1000)
	dup.ID = "another-id"
	_, err = s.AppendTransaction(ctx, dup, 1)
	assert.ErrorIs(t, err, generic.ErrDuplicateTransaction)

	_, err = s.AppendTransaction(ctx, tx("trip:t-1", "late", 5), 0)
	assert.ErrorIs(t, err, generic.ErrConcurrencyConflict)
}

func TestStore_WithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(st generic.Store) error {
		if _, err := st.AppendTransaction(ctx, tx("trip:t-1", "open", 1000), 0); err != nil {
			return err
		}
		// Nested units join the outer one.
		return st.(generic.TxStore).WithTx(ctx, func(inner generic.Store) error {
			if err := inner.AppendAudit(ctx, generic.AuditEntry{ID: "a-1", RequestID: "t-1", To: generic.StatusApproved}); err != nil {
				return err
			}
			return boom
		})
	})
	require.ErrorIs(t, err, boom)

	txs, err := s.LoadTransactions(ctx, "trip:t-1")
	require.NoError(t, err)
	assert.Empty(t, txs)
	audit, err := s.ListAudit(ctx, "t-1")
	require.NoError(t, err)
	assert.Empty(t, audit)
}

func TestStore_RequestRoundTripAndVersioning(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	created := time.Date(2025, 3, 2, 10, 30, 0, 0, time.UTC)
	approvalID := generic.ApprovalID("ap-1")
	approved := money(70)

	req := &generic.Request{
		ID:             "exp-1",
		OwnerID:        "emp-1",
		Domain:         generic.DomainExpense,
		Status:         generic.StatusDraft,
		Amount:         money(100),
		ApprovedAmount: &approved,
		WalletID:       "trip:t-1",
		ApprovalID:     &approvalID,
		Type:           "travel",
		StartDate:      time.Date(2025, 4, 4, 0, 0, 0, 0, time.UTC),
		Items: []generic.LineItem{
			{ID: "1", Description: "taxi", Category: "transport", Amount: money(30), Decision: generic.ItemAccepted},
			{ID: "2", Description: "dinner", Category: "meals", Amount: money(70), Decision: generic.ItemPending},
		},
		Attributes: map[string]string{"trip_id": "t-1"},
		CreatedAt:  created,
		Notes:      "receipts attached",
	}
	require.NoError(t, s.CreateRequest(ctx, req))
	assert.Equal(t, int64(1), req.Version)

	err := s.CreateRequest(ctx, &generic.Request{ID: "exp-1", OwnerID: "emp-2", Domain: generic.DomainExpense, Status: generic.StatusDraft, Amount: money(1), CreatedAt: created})
	assert.ErrorIs(t, err, generic.ErrValidation)

	got, err := s.GetRequest(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, req.OwnerID, got.OwnerID)
	assert.Equal(t, generic.DomainExpense, got.Domain)
	assert.True(t, got.Amount.Equal(money(100)))
	require.NotNil(t, got.ApprovedAmount)
	assert.True(t, got.ApprovedAmount.Equal(approved))
	require.NotNil(t, got.ApprovalID)
	assert.Equal(t, approvalID, *got.ApprovalID)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "dinner", got.Items[1].Description)
	assert.True(t, got.Items[0].Amount.Equal(money(30)))
	assert.Equal(t, generic.ItemAccepted, got.Items[0].Decision)
	assert.Equal(t, "t-1", got.Attribute("trip_id"))
	assert.True(t, got.CreatedAt.Equal(created))
	assert.True(t, got.StartDate.Equal(req.StartDate))
	assert.True(t, got.EndDate.IsZero())
	assert.Equal(t, "receipts attached", got.Notes)

	stale, err := s.GetRequest(ctx, "exp-1")
	require.NoError(t, err)

	got.Status = generic.StatusSubmitted
	require.NoError(t, s.UpdateRequest(ctx, got))
	assert.Equal(t, int64(2), got.Version)

	stale.Status = generic.StatusCancelled
	assert.ErrorIs(t, s.UpdateRequest(ctx, stale), generic.ErrConcurrencyConflict)

	missing := got.Clone()
	missing.ID = "nope"
	assert.ErrorIs(t, s.UpdateRequest(ctx, missing), generic.ErrRequestNotFound)

	_, err = s.GetRequest(ctx, "nope")
	assert.ErrorIs(t, err, generic.ErrRequestNotFound)
}

func TestStore_ListRequests(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, r := range []struct {
		id     generic.RequestID
		owner  string
		domain generic.Domain
		status generic.Status
	}{
		{"r-1", "emp-1", generic.DomainLeave, generic.StatusSubmitted},
		{"r-2", "emp-1", generic.DomainTrip, generic.StatusDraft},
		{"r-3", "emp-2", generic.DomainLeave, generic.StatusPendingApproval},
		{"r-4", "emp-1", generic.DomainLeave, generic.StatusApproved},
	} {
		require.NoError(t, s.CreateRequest(ctx, &generic.Request{
			ID:        r.id,
			OwnerID:   r.owner,
			Domain:    r.domain,
			Status:    r.status,
			Amount:    generic.NewAmount(1, generic.UnitDays),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	all, err := s.ListRequests(ctx, generic.RequestFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	pending, err := s.ListRequests(ctx, generic.RequestFilter{
		OwnerID:  "emp-1",
		Domain:   generic.DomainLeave,
		Statuses: []generic.Status{generic.StatusSubmitted, generic.StatusApproved},
	})
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, generic.RequestID("r-1"), pending[0].ID)
	assert.Equal(t, generic.RequestID("r-4"), pending[1].ID)
}

func TestStore_ApprovalVersioning(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	rec := &generic.ApprovalRequest{
		ID:         "ap-1",
		RequestID:  "t-1",
		ApproverID: "mgr-1",
		Decision:   generic.DecisionPending,
		CreatedAt:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.CreateApproval(ctx, rec))

	stale := *rec
	decided := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	rec.Decision = generic.DecisionApproved
	rec.DecidedAt = &decided
	rec.DecidedBy = "mgr-1"
	require.NoError(t, s.UpdateApproval(ctx, rec))
	assert.Equal(t, int64(2), rec.Version)

	stale.Decision = generic.DecisionRejected
	assert.ErrorIs(t, s.UpdateApproval(ctx, &stale), generic.ErrConcurrencyConflict)

	got, err := s.GetApproval(ctx, "ap-1")
	require.NoError(t, err)
	assert.Equal(t, generic.DecisionApproved, got.Decision)
	require.NotNil(t, got.DecidedAt)
	assert.True(t, got.DecidedAt.Equal(decided))
	assert.True(t, got.IsDecided())

	_, err = s.GetApproval(ctx, "ap-2")
	assert.ErrorIs(t, err, generic.ErrApprovalNotFound)
}

func TestStore_AuditOrderAndPayload(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	at := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.AppendAudit(ctx, generic.AuditEntry{
		ID: "a-1", RequestID: "t-1", ActorID: "emp-1",
		From: generic.StatusDraft, To: generic.StatusSubmitted, Trigger: generic.TriggerSubmit, At: at,
	}))
	require.NoError(t, s.AppendAudit(ctx, generic.AuditEntry{
		ID: "a-2", RequestID: "t-1", ActorID: "mgr-1",
		From: generic.StatusSubmitted, To: generic.StatusApproved, Trigger: generic.TriggerApprove, At: at,
		Payload: map[string]string{"approved_amount": "800"},
	}))

	entries, err := s.ListAudit(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, generic.TriggerSubmit, entries[0].Trigger)
	assert.Equal(t, "mgr-1", entries[1].ActorID)
	assert.Equal(t, "800", entries[1].Payload["approved_amount"])
	assert.True(t, entries[1].At.Equal(at))
}

func TestStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "approvals.db")

	s, err := sqlite.New(path)
	require.NoError(t, err)
	_, err = s.AppendTransaction(ctx, tx("trip:t-1", "open", 1000), 0)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = sqlite.New(path)
	require.NoError(t, err)
	defer s.Close()
	txs, err := s.LoadTransactions(ctx, "trip:t-1")
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

// The whole trip and expense flow against SQLite: every transition commits
// its status, ledger effect and audit entry in one SQL transaction.
func TestStore_EngineFlow(t *testing.T) {
	ctx := context.Background()
	e := generic.NewEngine(generic.EngineConfig{Store: newStore(t)})
	e.Register(trip.NewAdapter(), expense.NewAdapter(expense.Config{AutoPay: true}))

	tr, err := trip.Create(ctx, e.Requests, trip.Input{
		OwnerID:     "emp-1",
		Type:        trip.TypeDomestic,
		Destination: "Lyon",
		StartDate:   time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC),
		Budget:      500,
	})
	require.NoError(t, err)
	_, err = e.Submit(ctx, tr.ID, "emp-1")
	require.NoError(t, err)
	_, err = e.Approve(ctx, generic.Decision{RequestID: tr.ID, ActorID: "mgr-1"})
	require.NoError(t, err)

	exp, err := expense.Create(ctx, e.Requests, expense.Input{
		OwnerID: "emp-1",
		TripID:  string(tr.ID),
		Date:    time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC),
		Items: []expense.ItemInput{
			{ID: "1", Description: "train", Category: "transport", Amount: 120},
			{ID: "2", Description: "minibar", Category: "other", Amount: 40},
		},
	})
	require.NoError(t, err)
	_, err = e.Submit(ctx, exp.ID, "emp-1")
	require.NoError(t, err)

	paid, err := e.Approve(ctx, generic.Decision{
		RequestID: exp.ID,
		ActorID:   "mgr-1",
		Items:     map[string]generic.ItemDecision{"1": generic.ItemAccepted},
	})
	require.NoError(t, err)
	assert.Equal(t, generic.StatusPaid, paid.Status)

	bal, err := e.GetBalance(ctx, generic.TripWalletID(tr.ID))
	require.NoError(t, err)
	assert.True(t, bal.Amount.Equal(money(380)), "got %s", bal.Amount)

	history, err := e.Requests.History(ctx, exp.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, generic.TriggerPay, history[2].Trigger)

	stored, err := e.Requests.Get(ctx, exp.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, generic.ItemRejected, stored.Items[1].Decision)
}

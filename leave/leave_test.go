package leave_test

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
	"github.com/warp/approval-ledger/leave"
	"github.com/warp/approval-ledger/policy"
)

func date(m time.Month, d int) time.Time {
	return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC)
}

func newEngine(t *testing.T) *generic.Engine {
	t.Helper()
	rules := policy.NewMonthlyAccrual(2, nil)
	e := generic.NewEngine(generic.EngineConfig{Store: store.NewMemory(), AccrualRules: rules})
	e.Register(leave.NewAdapter(leave.Config{Rules: rules}))
	return e
}

func submitLeave(t *testing.T, e *generic.Engine, owner string, from, to time.Time) (*generic.Request, error) {
	t.Helper()
	ctx := context.Background()
	n := to.Sub(from).Hours()/24 + 1
	req, err := leave.Create(ctx, e.Requests, leave.Input{
		OwnerID:   owner,
		Type:      leave.TypeVacation,
		StartDate: from,
		EndDate:   to,
		Days:      n,
	})
	require.NoError(t, err)
	return e.Submit(ctx, req.ID, owner)
}

func TestInput_Validation(t *testing.T) {
	valid := leave.Input{
		OwnerID:   "emp-1",
		Type:      leave.TypeSick,
		StartDate: date(time.March, 10),
		EndDate:   date(time.March, 11),
		Days:      2,
	}

	tests := []struct {
		name   string
		mutate func(*leave.Input)
	}{
		{"missing owner", func(in *leave.Input) { in.OwnerID = "" }},
		{"unknown type", func(in *leave.Input) { in.Type = "sabbatical" }},
		{"end before start", func(in *leave.Input) { in.EndDate = date(time.March, 9) }},
		{"negative days", func(in *leave.Input) { in.Days = -1 }},
		{"missing start", func(in *leave.Input) { in.StartDate = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := in.Request()
			assert.ErrorIs(t, err, generic.ErrValidation)
		})
	}

	req, err := valid.Request()
	require.NoError(t, err)
	assert.Equal(t, generic.DomainLeave, req.Domain)
	assert.Equal(t, "sick", req.Type)
	assert.Equal(t, generic.UnitDays, req.Amount.Unit)
	assert.True(t, req.Amount.Equal(generic.NewAmount(2, generic.UnitDays)))
}

func TestAdapter_WalletIsPerOwnerAndYear(t *testing.T) {
	a := leave.NewAdapter(leave.Config{})
	w, err := a.Wallet(&generic.Request{OwnerID: "emp-1", StartDate: date(time.December, 30)})
	require.NoError(t, err)
	assert.Equal(t, generic.WalletID("leave:emp-1:2025"), w)

	_, err = a.Wallet(&generic.Request{OwnerID: "emp-1"})
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestSubmit_SpanningTwoYears(t *testing.T) {
	e := newEngine(t)
	_, err := submitLeave(t, e, "emp-1", date(time.December, 29), time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestSubmit_Overlap(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	first, err := submitLeave(t, e, "emp-1", date(time.March, 10), date(time.March, 14))
	require.NoError(t, err)

	// Shares March 14th.
	_, err = submitLeave(t, e, "emp-1", date(time.March, 14), date(time.March, 17))
	require.ErrorIs(t, err, generic.ErrValidation)
	var oe *leave.OverlapError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, first.ID, oe.ExistingID)
	assert.Equal(t, "emp-1", oe.OwnerID)
	assert.Contains(t, oe.Error(), "2025-03-14")

	// Adjacent days and other owners are fine.
	_, err = submitLeave(t, e, "emp-1", date(time.March, 15), date(time.March, 16))
	require.NoError(t, err)
	_, err = submitLeave(t, e, "emp-2", date(time.March, 10), date(time.March, 14))
	require.NoError(t, err)

	// Approved leave still holds its days.
	_, err = e.Approve(ctx, generic.Decision{RequestID: first.ID, ActorID: "mgr-1"})
	require.NoError(t, err)
	_, err = submitLeave(t, e, "emp-1", date(time.March, 12), date(time.March, 12))
	require.ErrorIs(t, err, generic.ErrValidation)

	// Cancelling gives them back.
	_, err = e.Cancel(ctx, first.ID, "emp-1", "")
	require.NoError(t, err)
	_, err = submitLeave(t, e, "emp-1", date(time.March, 12), date(time.March, 12))
	require.NoError(t, err)
}

func TestApprove_ConsumesAndCancelRefunds(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	req, err := submitLeave(t, e, "emp-1", date(time.May, 5), date(time.May, 9))
	require.NoError(t, err)

	approved, err := e.Approve(ctx, generic.Decision{RequestID: req.ID, ActorID: "mgr-1"})
	require.NoError(t, err)
	assert.Equal(t, generic.StatusApproved, approved.Status)

	txs, err := e.ListTransactions(ctx, req.WalletID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, generic.TxAccrual, txs[0].Kind)
	assert.Equal(t, generic.TxConsumption, txs[1].Kind)
	assert.Equal(t, leave.ApproveCause(req.ID), txs[1].CauseID)
	assert.True(t, txs[1].Amount.Equal(generic.NewAmount(-5, generic.UnitDays)))

	_, err = e.Cancel(ctx, req.ID, "emp-1", "sick kid")
	require.NoError(t, err)
	bal, err := e.GetBalance(ctx, req.WalletID)
	require.NoError(t, err)
	assert.True(t, bal.Amount.Equal(generic.NewAmount(24, generic.UnitDays)), "got %s", bal.Amount)

	txs, err = e.ListTransactions(ctx, req.WalletID)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, leave.CancelCause(req.ID), txs[2].CauseID)
}

func TestComplete(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	req, err := submitLeave(t, e, "emp-1", date(time.May, 5), date(time.May, 5))
	require.NoError(t, err)
	_, err = e.Approve(ctx, generic.Decision{RequestID: req.ID, ActorID: "mgr-1"})
	require.NoError(t, err)

	done, err := e.Requests.Complete(ctx, req.ID, "system")
	require.NoError(t, err)
	assert.Equal(t, generic.StatusCompleted, done.Status)

	_, err = e.Cancel(ctx, req.ID, "emp-1", "")
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
}

func TestSubmit_ConcurrentOverlap(t *testing.T) {
	// GIVEN: Two drafts of one owner covering the same days
	// WHEN:  Both are submitted at the same time
	// THEN:  Exactly one holds the days
	ctx := context.Background()
	for round := 0; round < 20; round++ {
		e := newEngine(t)
		drafts := make([]*generic.Request, 2)
		for i := range drafts {
			req, err := leave.Create(ctx, e.Requests, leave.Input{
				OwnerID:   "emp-1",
				Type:      leave.TypeVacation,
				StartDate: date(time.April, 7),
				EndDate:   date(time.April, 9),
				Days:      3,
			})
			require.NoError(t, err)
			drafts[i] = req
		}

		errs := make([]error, len(drafts))
		var g errgroup.Group
		for i, d := range drafts {
			i, d := i, d
			g.Go(func() error {
				_, errs[i] = e.Submit(ctx, d.ID, "emp-1")
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
			assert.True(t, generic.IsRetryable(err) || errors.Is(err, generic.ErrValidation), "unexpected error: %v", err)
		}
		require.Equal(t, 1, succeeded, "round %d", round)

		held, err := e.Requests.List(ctx, generic.RequestFilter{
			OwnerID:  "emp-1",
			Statuses: []generic.Status{generic.StatusSubmitted},
		})
		require.NoError(t, err)
		assert.Len(t, held, 1)
	}
}

package generic_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/approval-ledger/generic"
)

func TestDefaultLifecycle_Transitions(t *testing.T) {
	m := generic.DefaultLifecycle()

	tests := []struct {
		name    string
		from    generic.Status
		domain  generic.Domain
		trigger generic.Trigger
		amount  float64
		reason  string
		want    generic.Status
		wantErr error
	}{
		{"submit draft", generic.StatusDraft, generic.DomainLeave, generic.TriggerSubmit, 3, "", generic.StatusSubmitted, nil},
		{"submit zero amount", generic.StatusDraft, generic.DomainTrip, generic.TriggerSubmit, 0, "", "", generic.ErrValidation},
		{"cancel draft", generic.StatusDraft, generic.DomainExpense, generic.TriggerCancel, 1, "", generic.StatusCancelled, nil},
		{"route submitted", generic.StatusSubmitted, generic.DomainLeave, generic.TriggerRoute, 1, "", generic.StatusPendingApproval, nil},
		{"approve submitted", generic.StatusSubmitted, generic.DomainTrip, generic.TriggerApprove, 1, "", generic.StatusApproved, nil},
		{"approve pending", generic.StatusPendingApproval, generic.DomainTrip, generic.TriggerApprove, 1, "", generic.StatusApproved, nil},
		{"reject with reason", generic.StatusSubmitted, generic.DomainLeave, generic.TriggerReject, 1, "overlaps launch", generic.StatusRejected, nil},
		{"reject without reason", generic.StatusPendingApproval, generic.DomainLeave, generic.TriggerReject, 1, "", "", generic.ErrValidation},
		{"reject with blank reason", generic.StatusSubmitted, generic.DomainTrip, generic.TriggerReject, 1, "  \t ", "", generic.ErrValidation},
		{"cancel submitted", generic.StatusSubmitted, generic.DomainLeave, generic.TriggerCancel, 1, "", generic.StatusCancelled, nil},
		{"cancel pending approval", generic.StatusPendingApproval, generic.DomainLeave, generic.TriggerCancel, 1, "", "", generic.ErrInvalidTransition},
		{"cancel approved", generic.StatusApproved, generic.DomainTrip, generic.TriggerCancel, 1, "", generic.StatusCancelled, nil},
		{"complete approved leave", generic.StatusApproved, generic.DomainLeave, generic.TriggerComplete, 1, "", generic.StatusCompleted, nil},
		{"complete approved trip", generic.StatusApproved, generic.DomainTrip, generic.TriggerComplete, 1, "", generic.StatusCompleted, nil},
		{"complete expense", generic.StatusApproved, generic.DomainExpense, generic.TriggerComplete, 1, "", "", generic.ErrInvalidTransition},
		{"pay expense", generic.StatusApproved, generic.DomainExpense, generic.TriggerPay, 1, "", generic.StatusPaid, nil},
		{"pay trip", generic.StatusApproved, generic.DomainTrip, generic.TriggerPay, 1, "", "", generic.ErrInvalidTransition},
		{"approve draft", generic.StatusDraft, generic.DomainLeave, generic.TriggerApprove, 1, "", "", generic.ErrInvalidTransition},
		{"approve approved", generic.StatusApproved, generic.DomainLeave, generic.TriggerApprove, 1, "", "", generic.ErrInvalidTransition},
		{"cancel rejected", generic.StatusRejected, generic.DomainLeave, generic.TriggerCancel, 1, "", "", generic.ErrInvalidTransition},
		{"submit paid", generic.StatusPaid, generic.DomainExpense, generic.TriggerSubmit, 1, "", "", generic.ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &generic.Request{
				ID:     "r-1",
				Domain: tt.domain,
				Status: tt.from,
				Amount: days(tt.amount),
				Reason: tt.reason,
			}
			got, err := m.Fire(context.Background(), req, tt.trigger)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.from, got, "failed fire stays put")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.from, req.Status, "Fire does not mutate the request")
		})
	}
}

func TestDefaultLifecycle_TerminalStatesPermitNothing(t *testing.T) {
	m := generic.DefaultLifecycle()
	for _, s := range []generic.Status{generic.StatusRejected, generic.StatusCancelled, generic.StatusCompleted, generic.StatusPaid} {
		assert.True(t, s.IsTerminal())
		assert.Empty(t, m.PermittedTriggers(s), "status %s", s)
	}
}

func TestMachine_PermittedTriggers(t *testing.T) {
	m := generic.DefaultLifecycle()

	assert.Equal(t, []generic.Trigger{generic.TriggerSubmit, generic.TriggerCancel}, m.PermittedTriggers(generic.StatusDraft))
	assert.Equal(t, []generic.Trigger{
		generic.TriggerRoute, generic.TriggerApprove, generic.TriggerReject, generic.TriggerCancel,
	}, m.PermittedTriggers(generic.StatusSubmitted))
	assert.Equal(t, []generic.Trigger{
		generic.TriggerCancel, generic.TriggerComplete, generic.TriggerPay,
	}, m.PermittedTriggers(generic.StatusApproved))

	assert.True(t, m.CanFire(generic.StatusPendingApproval, generic.TriggerApprove))
	assert.False(t, m.CanFire(generic.StatusPendingApproval, generic.TriggerRoute))
}

func TestBuilder_Guards(t *testing.T) {
	b := generic.NewBuilder()
	b.Configure(generic.StatusDraft).
		PermitIf(generic.TriggerSubmit, generic.StatusSubmitted, func(_ context.Context, req *generic.Request) error {
			if req.OwnerID == "blocked" {
				return generic.NewValidationError("owner_id", "blocked")
			}
			return nil
		})
	m := b.Build()

	_, err := m.Fire(context.Background(), &generic.Request{Status: generic.StatusDraft, OwnerID: "blocked"}, generic.TriggerSubmit)
	assert.ErrorIs(t, err, generic.ErrValidation)

	got, err := m.Fire(context.Background(), &generic.Request{Status: generic.StatusDraft, OwnerID: "emp-1"}, generic.TriggerSubmit)
	require.NoError(t, err)
	assert.Equal(t, generic.StatusSubmitted, got)

	// Configuring after Build does not leak into the built machine.
	b.Configure(generic.StatusSubmitted).Permit(generic.TriggerApprove, generic.StatusApproved)
	assert.False(t, m.CanFire(generic.StatusSubmitted, generic.TriggerApprove))
}

func TestBuilder_TerminalStatusPanics(t *testing.T) {
	assert.Panics(t, func() {
		generic.NewBuilder().Configure(generic.StatusPaid).Permit(generic.TriggerCancel, generic.StatusCancelled)
	})
	assert.Panics(t, func() {
		generic.NewBuilder().Configure("archived")
	})
}

/*
machine.go - Request lifecycle state machine

PURPOSE:

	Every request (leave, trip, expense report) moves through the same
	lifecycle. The machine is configured once with a builder and is immutable
	afterwards. Fire() is pure: it reads the request, evaluates guards, and
	returns the target status. It never writes anything; the RequestService
	persists the result inside a unit of work.

LIFECYCLE:

	draft ──submit──► submitted ──route──► pending_approval
	                      │                      │
	                      ├──approve / reject────┤
	                      ▼                      ▼
	                   approved              rejected
	                      │
	                      ├──complete──► completed (leave, trip)
	                      ├──pay───────► paid      (expense)
	                      └──cancel────► cancelled

	cancel is also permitted from draft and submitted.
	rejected, cancelled, completed and paid are terminal.

GUARDS:

	A guard returns nil to allow the transition or an error explaining why
	not. Guard errors are returned as-is (usually a ValidationError).

SEE ALSO:
  - request.go: RequestService applies transitions atomically
*/
package generic

import (
	"context"
	"fmt"
	"strings"
)

// =============================================================================
// STATUS & TRIGGER
// =============================================================================

type Status string

const (
	StatusDraft           Status = "draft"
	StatusSubmitted       Status = "submitted"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
	StatusCancelled       Status = "cancelled"
	StatusCompleted       Status = "completed"
	StatusPaid            Status = "paid"
)

var validStatuses = map[Status]bool{
	StatusDraft:           true,
	StatusSubmitted:       true,
	StatusPendingApproval: true,
	StatusApproved:        true,
	StatusRejected:        true,
	StatusCancelled:       true,
	StatusCompleted:       true,
	StatusPaid:            true,
}

var terminalStatuses = map[Status]bool{
	StatusRejected:  true,
	StatusCancelled: true,
	StatusCompleted: true,
	StatusPaid:      true,
}

func (s Status) IsValid() bool    { return validStatuses[s] }
func (s Status) IsTerminal() bool { return terminalStatuses[s] }
func (s Status) String() string   { return string(s) }

// IsPending returns true while the request awaits a decision.
func (s Status) IsPending() bool {
	return s == StatusSubmitted || s == StatusPendingApproval
}

type Trigger string

const (
	TriggerSubmit   Trigger = "submit"
	TriggerRoute    Trigger = "route"
	TriggerApprove  Trigger = "approve"
	TriggerReject   Trigger = "reject"
	TriggerCancel   Trigger = "cancel"
	TriggerComplete Trigger = "complete"
	TriggerPay      Trigger = "pay"
)

// =============================================================================
// BUILDER
// =============================================================================

// GuardFunc decides whether a transition may happen for req.
type GuardFunc func(ctx context.Context, req *Request) error

type transition struct {
	to    Status
	guard GuardFunc
}

// Builder collects transitions. It is not safe for concurrent use.
type Builder struct {
	states map[Status]*StateConfig
}

// StateConfig configures the transitions leaving one status.
type StateConfig struct {
	from        Status
	transitions map[Trigger]transition
}

func NewBuilder() *Builder {
	return &Builder{states: make(map[Status]*StateConfig)}
}

// Configure returns the configuration for status s, creating it if needed.
func (b *Builder) Configure(s Status) *StateConfig {
	if !s.IsValid() {
		panic(fmt.Sprintf("invalid status: %s", s))
	}
	cfg, ok := b.states[s]
	if !ok {
		cfg = &StateConfig{from: s, transitions: make(map[Trigger]transition)}
		b.states[s] = cfg
	}
	return cfg
}

// Permit allows trigger to move to the target status.
func (c *StateConfig) Permit(trigger Trigger, to Status) *StateConfig {
	return c.PermitIf(trigger, to, nil)
}

// PermitIf allows trigger to move to the target status if guard passes.
func (c *StateConfig) PermitIf(trigger Trigger, to Status, guard GuardFunc) *StateConfig {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target status: %s", to))
	}
	if c.from.IsTerminal() {
		panic(fmt.Sprintf("terminal status %s cannot have transitions", c.from))
	}
	c.transitions[trigger] = transition{to: to, guard: guard}
	return c
}

// Build copies the configuration into an immutable Machine.
func (b *Builder) Build() *Machine {
	table := make(map[Status]map[Trigger]transition, len(b.states))
	for s, cfg := range b.states {
		row := make(map[Trigger]transition, len(cfg.transitions))
		for t, tr := range cfg.transitions {
			row[t] = tr
		}
		table[s] = row
	}
	return &Machine{table: table}
}

// =============================================================================
// MACHINE
// =============================================================================

type Machine struct {
	table map[Status]map[Trigger]transition
}

// Fire returns the status req moves to on trigger.
// Returns a *TransitionError if the trigger is not permitted from
// req.Status, or the guard's error if the guard refuses.
func (m *Machine) Fire(ctx context.Context, req *Request, trigger Trigger) (Status, error) {
	tr, ok := m.table[req.Status][trigger]
	if !ok {
		return req.Status, &TransitionError{RequestID: req.ID, From: req.Status, Trigger: trigger}
	}
	if tr.guard != nil {
		if err := tr.guard(ctx, req); err != nil {
			return req.Status, err
		}
	}
	return tr.to, nil
}

// CanFire reports whether trigger is configured from status s.
// Guards are not evaluated.
func (m *Machine) CanFire(s Status, trigger Trigger) bool {
	_, ok := m.table[s][trigger]
	return ok
}

// PermittedTriggers lists the triggers configured from s.
func (m *Machine) PermittedTriggers(s Status) []Trigger {
	row := m.table[s]
	out := make([]Trigger, 0, len(row))
	for _, t := range []Trigger{TriggerSubmit, TriggerRoute, TriggerApprove, TriggerReject,
		TriggerCancel, TriggerComplete, TriggerPay} {
		if _, ok := row[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// =============================================================================
// DEFAULT LIFECYCLE
// =============================================================================

// DefaultLifecycle is the lifecycle shared by all request domains.
func DefaultLifecycle() *Machine {
	b := NewBuilder()

	b.Configure(StatusDraft).
		PermitIf(TriggerSubmit, StatusSubmitted, requirePositiveAmount).
		Permit(TriggerCancel, StatusCancelled)

	b.Configure(StatusSubmitted).
		Permit(TriggerRoute, StatusPendingApproval).
		Permit(TriggerApprove, StatusApproved).
		PermitIf(TriggerReject, StatusRejected, requireReason).
		Permit(TriggerCancel, StatusCancelled)

	b.Configure(StatusPendingApproval).
		Permit(TriggerApprove, StatusApproved).
		PermitIf(TriggerReject, StatusRejected, requireReason)

	b.Configure(StatusApproved).
		Permit(TriggerCancel, StatusCancelled).
		PermitIf(TriggerComplete, StatusCompleted, requireDomain(TriggerComplete, DomainLeave, DomainTrip)).
		PermitIf(TriggerPay, StatusPaid, requireDomain(TriggerPay, DomainExpense))

	return b.Build()
}

func requirePositiveAmount(_ context.Context, req *Request) error {
	if !req.Amount.IsPositive() {
		return NewValidationError("amount", "amount must be greater than zero")
	}
	return nil
}

func requireReason(_ context.Context, req *Request) error {
	if strings.TrimSpace(req.Reason) == "" {
		return NewValidationError("reason", "a rejection reason is required")
	}
	return nil
}

// requireDomain restricts a step to some domains. Other domains see the
// trigger as an illegal move.
func requireDomain(trigger Trigger, domains ...Domain) GuardFunc {
	return func(_ context.Context, req *Request) error {
		for _, d := range domains {
			if req.Domain == d {
				return nil
			}
		}
		return &TransitionError{RequestID: req.ID, From: req.Status, Trigger: trigger}
	}
}

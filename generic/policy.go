/*
policy.go - External collaborators consumed by the engine

PURPOSE:

	The engine does not compute who may approve what, nor how many leave
	days a contract accrues. Those facts come from outside:

	Authorizer:   "may this actor approve this amount?" (spending authority)
	AccrualRules: "how much does this owner accrue in this period?"
	Clock:        current time
	IDGenerator:  unique ids for requests, approvals, transactions
	Observer:     metrics hooks

	Reference implementations live in the policy and metrics packages.
*/
package generic

//go:generate mockgen -source=policy.go -destination=policy_mock.go -package=generic

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Authorizer answers the spending-authority question for approvals.
type Authorizer interface {
	CanApprove(ctx context.Context, actorID string, amount Amount) (bool, error)
}

// AccrualRules supplies the accrual for an owner and period.
type AccrualRules interface {
	AccrualFor(ctx context.Context, ownerID string, period Period) (Amount, error)
}

// Clock is the engine's time source.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces unique identifiers.
type IDGenerator interface {
	NewID() string
}

// Observer receives engine events after they commit.
type Observer interface {
	TransitionCommitted(domain Domain, from, to Status)
	TransactionAppended(kind TransactionKind, outcome string)
}

// Append outcomes reported to Observer.TransactionAppended.
const (
	OutcomeAppended  = "appended"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeConflict  = "conflict"
)

// =============================================================================
// DEFAULTS
// =============================================================================

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns T. Useful for tests and replays.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }

type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

type nopObserver struct{}

func (nopObserver) TransitionCommitted(Domain, Status, Status)  {}
func (nopObserver) TransactionAppended(TransactionKind, string) {}

// AllowAll authorizes every approval. Only for tests and demos.
type AllowAll struct{}

func (AllowAll) CanApprove(context.Context, string, Amount) (bool, error) { return true, nil }

/*
request.go - Request lifecycle shared by leave, trip and expense

PURPOSE:

	Handles the full lifecycle of requests:
	1. Creation: a draft owned by its domain adapter
	2. Submission: adapter validation, amount must be positive
	3. Decision: approve / reject (see approval.go for path selection)
	4. Settlement: complete, pay, or cancel with compensation

REQUEST FLOW:

	┌──────────────────────────────────────────────────────────────────┐
	│                                                                  │
	│  load request ──▶ fire trigger ──▶ adapter effect ──▶ save +     │
	│                   (machine.go)     (bound ledger)     audit      │
	│                                                                  │
	│  ...all inside one TxStore.WithTx unit. Nothing partially        │
	│  commits: a transition never lands without its ledger effect.    │
	│                                                                  │
	└──────────────────────────────────────────────────────────────────┘

DOMAIN ADAPTERS:

	The RequestService knows nothing about leave days or trip budgets.
	Each domain registers a DomainAdapter that decides:
	- what a submittable request looks like
	- what approval commits to (expense: sum of accepted items)
	- which ledger transactions approval and cancellation write
	- whether approval is immediately followed by another step (expense: pay)

ONE TRANSITION FUNCTION:

	apply() is the only code path that changes a request's status. The
	legacy and centralized approval paths in approval.go both call it.

SEE ALSO:
  - machine.go: Transition table and guards
  - approval.go: Approval Coordinator
  - ledger.go: Ledger bound to the unit of work
*/
package generic

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// REQUEST
// =============================================================================

type Request struct {
	ID      RequestID
	OwnerID string
	Domain  Domain
	Status  Status

	// Amount requested. Immutable once approved.
	Amount Amount

	// ApprovedAmount is what approval committed to the ledger.
	ApprovedAmount *Amount

	// WalletID is the wallet this request settles against.
	WalletID WalletID

	// ApprovalID links a centralized approval record. Nil on the legacy path.
	ApprovalID *ApprovalID

	// Domain fields
	Type       string
	StartDate  time.Time
	EndDate    time.Time
	Items      []LineItem
	Attributes map[string]string

	// Audit
	CreatedAt      time.Time
	TransitionedAt time.Time
	TransitionedBy string
	Reason         string
	Notes          string

	Version int64
}

// Clone returns a deep copy. Stores hand out clones so callers
// cannot mutate stored state.
func (r *Request) Clone() *Request {
	cp := *r
	if r.ApprovedAmount != nil {
		a := *r.ApprovedAmount
		cp.ApprovedAmount = &a
	}
	if r.ApprovalID != nil {
		id := *r.ApprovalID
		cp.ApprovalID = &id
	}
	if r.Items != nil {
		cp.Items = append([]LineItem(nil), r.Items...)
	}
	if r.Attributes != nil {
		cp.Attributes = make(map[string]string, len(r.Attributes))
		for k, v := range r.Attributes {
			cp.Attributes[k] = v
		}
	}
	return &cp
}

// Attribute returns a domain attribute, or "" if unset.
func (r *Request) Attribute(key string) string {
	return r.Attributes[key]
}

type ItemDecision string

const (
	ItemPending  ItemDecision = "pending"
	ItemAccepted ItemDecision = "accepted"
	ItemRejected ItemDecision = "rejected"
)

// LineItem is one line of an expense report.
type LineItem struct {
	ID          string
	Description string
	Category    string
	Amount      Amount
	Decision    ItemDecision
}

// Decision is the input to an approve or reject.
type Decision struct {
	RequestID RequestID
	ActorID   string
	Notes     string
	Reason    string

	// Items holds per-line decisions for expense reports, keyed by item id.
	// Items left out are rejected when at least one decision is given, and
	// all accepted when Items is empty.
	Items map[string]ItemDecision
}

// =============================================================================
// DOMAIN ADAPTER
// =============================================================================

// UnitOfWork is what adapters see while a transition runs. Everything
// written through Store and Ledger commits or rolls back together.
type UnitOfWork struct {
	Store  Store
	Ledger *Ledger
	Actor  string
	At     time.Time
}

type DomainAdapter interface {
	Domain() Domain

	// Wallet names the wallet req settles against. Called once on Create.
	Wallet(req *Request) (WalletID, error)

	// ValidateSubmit checks the domain fields a submission needs.
	ValidateSubmit(ctx context.Context, uow *UnitOfWork, req *Request) error

	// Settle returns the amount an approval commits to. It may record
	// per-item decisions on req.
	Settle(req *Request, d Decision) (Amount, error)

	// OnApprove writes the approval's ledger effect. req.ApprovedAmount is set.
	OnApprove(ctx context.Context, uow *UnitOfWork, req *Request) error

	// OnCancel compensates a cancellation from status from.
	OnCancel(ctx context.Context, uow *UnitOfWork, req *Request, from Status) error

	// FollowUp names a trigger fired in the same unit right after approval.
	FollowUp(req *Request) (Trigger, bool)
}

// =============================================================================
// REQUEST SERVICE
// =============================================================================

type RequestService struct {
	store    TxStore
	ledger   *Ledger
	machine  *Machine
	auth     Authorizer
	deps     Deps
	mu       sync.RWMutex
	adapters map[Domain]DomainAdapter
}

func NewRequestService(store TxStore, ledger *Ledger, auth Authorizer, deps Deps) *RequestService {
	if auth == nil {
		auth = AllowAll{}
	}
	return &RequestService{
		store:    store,
		ledger:   ledger,
		machine:  DefaultLifecycle(),
		auth:     auth,
		deps:     deps.withDefaults(),
		adapters: make(map[Domain]DomainAdapter),
	}
}

// Register installs the adapter for its domain, replacing any previous one.
func (s *RequestService) Register(a DomainAdapter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adapters[a.Domain()] = a
}

func (s *RequestService) adapter(d Domain) (DomainAdapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.adapters[d]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDomain, d)
	}
	return a, nil
}

// Machine exposes the lifecycle, e.g. to list permitted triggers.
func (s *RequestService) Machine() *Machine { return s.machine }

// Create stores req as a draft. The domain adapter package fills the
// domain fields before calling it; the adapter names the wallet.
func (s *RequestService) Create(ctx context.Context, req *Request) (*Request, error) {
	adapter, err := s.adapter(req.Domain)
	if err != nil {
		return nil, err
	}
	switch {
	case req.OwnerID == "":
		return nil, NewValidationError("owner_id", "owner is required")
	case req.Amount.IsNegative():
		return nil, NewValidationError("amount", "amount cannot be negative")
	}

	out := req.Clone()
	if out.ID == "" {
		out.ID = RequestID(s.deps.IDs.NewID())
	}
	if out.WalletID, err = adapter.Wallet(out); err != nil {
		return nil, err
	}
	out.Status = StatusDraft
	out.ApprovedAmount = nil
	out.CreatedAt = s.deps.Clock.Now()
	out.TransitionedAt = out.CreatedAt
	out.TransitionedBy = out.OwnerID

	if err := s.store.CreateRequest(ctx, out); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	s.deps.Logger.Info("request created",
		zap.String("request_id", string(out.ID)),
		zap.String("domain", string(out.Domain)),
		zap.String("owner_id", out.OwnerID))
	return out.Clone(), nil
}

func (s *RequestService) Submit(ctx context.Context, id RequestID, actor string) (*Request, error) {
	return s.apply(ctx, step{requestID: id, trigger: TriggerSubmit, actor: actor})
}

func (s *RequestService) Cancel(ctx context.Context, id RequestID, actor, reason string) (*Request, error) {
	return s.apply(ctx, step{requestID: id, trigger: TriggerCancel, actor: actor, reason: reason})
}

func (s *RequestService) Complete(ctx context.Context, id RequestID, actor string) (*Request, error) {
	return s.apply(ctx, step{requestID: id, trigger: TriggerComplete, actor: actor})
}

func (s *RequestService) Pay(ctx context.Context, id RequestID, actor string) (*Request, error) {
	return s.apply(ctx, step{requestID: id, trigger: TriggerPay, actor: actor})
}

func (s *RequestService) Get(ctx context.Context, id RequestID) (*Request, error) {
	return s.store.GetRequest(ctx, id)
}

func (s *RequestService) List(ctx context.Context, filter RequestFilter) ([]Request, error) {
	return s.store.ListRequests(ctx, filter)
}

// History returns the audit trail of a request, oldest first.
func (s *RequestService) History(ctx context.Context, id RequestID) ([]AuditEntry, error) {
	if _, err := s.store.GetRequest(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListAudit(ctx, id)
}

// =============================================================================
// APPLY - The one transition function
// =============================================================================

// step describes one externally triggered transition.
type step struct {
	requestID RequestID
	trigger   Trigger
	actor     string
	reason    string
	notes     string
	decision  *Decision

	// before runs inside the unit ahead of the transition. The approval
	// coordinator resolves the owner and writes the centralized record here.
	before func(ctx context.Context, uow *UnitOfWork, req *Request) error

	// payload is merged into the audit entries.
	payload map[string]string
}

type committed struct {
	from, to Status
}

func (s *RequestService) apply(ctx context.Context, st step) (*Request, error) {
	var (
		out  *Request
		done []committed
	)
	err := s.store.WithTx(ctx, func(tx Store) error {
		done = done[:0]

		req, err := tx.GetRequest(ctx, st.requestID)
		if err != nil {
			return err
		}
		adapter, err := s.adapter(req.Domain)
		if err != nil {
			return err
		}
		uow := &UnitOfWork{
			Store:  tx,
			Ledger: s.ledger.Bind(tx),
			Actor:  st.actor,
			At:     s.deps.Clock.Now(),
		}

		if st.before != nil {
			if err := st.before(ctx, uow, req); err != nil {
				return err
			}
		}

		from := req.Status
		if err := s.fire(ctx, uow, adapter, req, st.trigger, st); err != nil {
			return err
		}
		done = append(done, committed{from: from, to: req.Status})

		if st.trigger == TriggerApprove {
			if next, ok := adapter.FollowUp(req); ok {
				from = req.Status
				if err := s.fire(ctx, uow, adapter, req, next, step{actor: st.actor}); err != nil {
					return err
				}
				done = append(done, committed{from: from, to: req.Status})
			}
		}

		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		s.deps.Logger.Warn("transition rejected",
			zap.String("request_id", string(st.requestID)),
			zap.String("trigger", string(st.trigger)),
			zap.String("actor", st.actor),
			zap.Error(err))
		return nil, fmt.Errorf("%s request %s: %w", st.trigger, st.requestID, err)
	}

	for _, c := range done {
		s.deps.Observer.TransitionCommitted(out.Domain, c.from, c.to)
		s.deps.Logger.Info("transition committed",
			zap.String("request_id", string(out.ID)),
			zap.String("wallet_id", string(out.WalletID)),
			zap.String("from", string(c.from)),
			zap.String("to", string(c.to)),
			zap.String("actor", st.actor))
	}
	return out.Clone(), nil
}

// fire runs one trigger on req inside uow: guard, domain effect, audit.
func (s *RequestService) fire(ctx context.Context, uow *UnitOfWork, adapter DomainAdapter, req *Request, trigger Trigger, st step) error {
	from := req.Status

	// Guards read the candidate state.
	candidate := req.Clone()
	if trigger == TriggerReject || trigger == TriggerCancel {
		candidate.Reason = st.reason
	}
	to, err := s.machine.Fire(ctx, candidate, trigger)
	if err != nil {
		return err
	}

	payload := map[string]string{}
	switch trigger {
	case TriggerSubmit:
		if err := adapter.ValidateSubmit(ctx, uow, req); err != nil {
			return err
		}

	case TriggerApprove:
		d := Decision{RequestID: req.ID, ActorID: st.actor, Notes: st.notes}
		if st.decision != nil {
			d = *st.decision
		}
		amount, err := adapter.Settle(req, d)
		if err != nil {
			return err
		}
		ok, err := s.auth.CanApprove(ctx, st.actor, amount)
		if err != nil {
			return fmt.Errorf("authorization check: %w", err)
		}
		if !ok {
			return &NotAuthorizedError{ActorID: st.actor, Amount: amount}
		}
		req.ApprovedAmount = &amount
		if err := adapter.OnApprove(ctx, uow, req); err != nil {
			return err
		}
		payload["approved_amount"] = amount.Value.String()

	case TriggerReject:
		req.Reason = st.reason

	case TriggerCancel:
		if err := adapter.OnCancel(ctx, uow, req, from); err != nil {
			return err
		}
		req.Reason = st.reason
	}

	if st.notes != "" {
		req.Notes = st.notes
	}
	if st.reason != "" {
		payload["reason"] = st.reason
	}
	for k, v := range st.payload {
		payload[k] = v
	}

	req.Status = to
	req.TransitionedAt = uow.At
	req.TransitionedBy = uow.Actor

	return uow.Store.AppendAudit(ctx, AuditEntry{
		ID:        s.deps.IDs.NewID(),
		RequestID: req.ID,
		ActorID:   uow.Actor,
		From:      from,
		To:        to,
		Trigger:   trigger,
		At:        uow.At,
		Payload:   payload,
	})
}

// Accept treats an idempotent replay from the ledger as success.
// Adapters use it around ledger writes.
func Accept(err error) error {
	if err == nil || IsIdempotentReplay(err) {
		return nil
	}
	return err
}

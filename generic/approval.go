/*
approval.go - Approval Coordinator

PURPOSE:

	Decides WHICH approval path owns a request, never HOW the decision
	is applied. A request either carries a centralized ApprovalRequest
	(it was routed) or it doesn't (legacy per-domain approve/reject).

	┌──────────────┐     resolveOwner      ┌──────────────────┐
	│ Approve /    │ ────────────────────▶ │ legacyOwner      │──┐
	│ Reject /     │                       └──────────────────┘  │  RequestService.apply
	│ Decide       │                       ┌──────────────────┐  ├─▶ (same transition,
	└──────────────┘ ────────────────────▶ │ centralizedOwner │──┘    same ledger calls)
	                                       └──────────────────┘

	The only difference between the two owners: the centralized owner
	writes the decision on its ApprovalRequest record (write-once) inside
	the same unit of work. A second decision fails with ErrAlreadyDecided.

	Owner resolution happens inside the unit of work, so a request routed
	concurrently can never be decided through the legacy path.
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// APPROVAL REQUEST
// =============================================================================

type ApprovalDecision string

const (
	DecisionPending  ApprovalDecision = "pending"
	DecisionApproved ApprovalDecision = "approved"
	DecisionRejected ApprovalDecision = "rejected"
)

// ApprovalRequest is the centralized decision record. It references its
// request by id only.
type ApprovalRequest struct {
	ID         ApprovalID
	RequestID  RequestID
	ApproverID string
	Decision   ApprovalDecision
	Notes      string
	Reason     string
	CreatedAt  time.Time
	DecidedAt  *time.Time
	DecidedBy  string
	Version    int64
}

func (a *ApprovalRequest) IsDecided() bool {
	return a.Decision != "" && a.Decision != DecisionPending
}

// =============================================================================
// APPROVAL OWNER - Tagged union over the two paths
// =============================================================================

type approvalOwner interface {
	// record runs before the shared transition, inside the unit of work.
	record(ctx context.Context, uow *UnitOfWork, req *Request, verdict ApprovalDecision, d Decision) error
}

type legacyOwner struct{}

func (legacyOwner) record(context.Context, *UnitOfWork, *Request, ApprovalDecision, Decision) error {
	return nil
}

type centralizedOwner struct {
	approvalID ApprovalID
}

func (o centralizedOwner) record(ctx context.Context, uow *UnitOfWork, req *Request, verdict ApprovalDecision, d Decision) error {
	a, err := uow.Store.GetApproval(ctx, o.approvalID)
	if err != nil {
		return err
	}
	if a.IsDecided() {
		return &TransitionError{
			RequestID: req.ID,
			From:      req.Status,
			Trigger:   triggerFor(verdict),
			cause:     ErrAlreadyDecided,
		}
	}
	at := uow.At
	a.Decision = verdict
	a.DecidedAt = &at
	a.DecidedBy = d.ActorID
	a.Notes = d.Notes
	a.Reason = d.Reason
	return uow.Store.UpdateApproval(ctx, a)
}

func resolveOwner(req *Request) approvalOwner {
	if req.ApprovalID != nil {
		return centralizedOwner{approvalID: *req.ApprovalID}
	}
	return legacyOwner{}
}

func triggerFor(verdict ApprovalDecision) Trigger {
	if verdict == DecisionRejected {
		return TriggerReject
	}
	return TriggerApprove
}

// =============================================================================
// COORDINATOR
// =============================================================================

type Coordinator struct {
	requests *RequestService
	store    Store
	ids      IDGenerator
}

func NewCoordinator(requests *RequestService) *Coordinator {
	return &Coordinator{
		requests: requests,
		store:    requests.store,
		ids:      requests.deps.IDs,
	}
}

// Open creates a centralized approval record for a submitted request and
// routes it to pending_approval.
func (c *Coordinator) Open(ctx context.Context, requestID RequestID, approverID, actor string) (*ApprovalRequest, *Request, error) {
	if approverID == "" {
		return nil, nil, NewValidationError("approver_id", "approver is required")
	}
	id := ApprovalID(c.ids.NewID())
	var opened *ApprovalRequest

	req, err := c.requests.apply(ctx, step{
		requestID: requestID,
		trigger:   TriggerRoute,
		actor:     actor,
		payload:   map[string]string{"approval_id": string(id), "approver_id": approverID},
		before: func(ctx context.Context, uow *UnitOfWork, req *Request) error {
			a := &ApprovalRequest{
				ID:         id,
				RequestID:  req.ID,
				ApproverID: approverID,
				Decision:   DecisionPending,
				CreatedAt:  uow.At,
			}
			if err := uow.Store.CreateApproval(ctx, a); err != nil {
				return err
			}
			req.ApprovalID = &a.ID
			opened = a
			return nil
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return opened, req, nil
}

// Approve decides d.RequestID through whichever path owns it.
func (c *Coordinator) Approve(ctx context.Context, d Decision) (*Request, error) {
	return c.decide(ctx, DecisionApproved, d)
}

// Reject decides d.RequestID through whichever path owns it. d.Reason is required.
func (c *Coordinator) Reject(ctx context.Context, d Decision) (*Request, error) {
	return c.decide(ctx, DecisionRejected, d)
}

// Decide records a decision by approval id.
func (c *Coordinator) Decide(ctx context.Context, approvalID ApprovalID, verdict ApprovalDecision, d Decision) (*Request, error) {
	if verdict != DecisionApproved && verdict != DecisionRejected {
		return nil, NewValidationError("decision", "decision must be approved or rejected")
	}
	a, err := c.store.GetApproval(ctx, approvalID)
	if err != nil {
		return nil, err
	}
	d.RequestID = a.RequestID
	return c.decide(ctx, verdict, d)
}

// GetApproval returns the centralized record.
func (c *Coordinator) GetApproval(ctx context.Context, id ApprovalID) (*ApprovalRequest, error) {
	return c.store.GetApproval(ctx, id)
}

func (c *Coordinator) decide(ctx context.Context, verdict ApprovalDecision, d Decision) (*Request, error) {
	if d.ActorID == "" {
		return nil, NewValidationError("actor_id", "actor is required")
	}
	decision := d
	return c.requests.apply(ctx, step{
		requestID: d.RequestID,
		trigger:   triggerFor(verdict),
		actor:     d.ActorID,
		reason:    d.Reason,
		notes:     d.Notes,
		decision:  &decision,
		before: func(ctx context.Context, uow *UnitOfWork, req *Request) error {
			return resolveOwner(req).record(ctx, uow, req, verdict, d)
		},
	})
}

// Package expense adapts expense reports onto the generic lifecycle.
//
// An expense report draws on the budget wallet of an approved trip. The
// approver decides each line item; the report's approved amount is the sum
// of accepted items and that sum, not the submitted total, is consumed from
// the trip wallet. With AutoPay the report is marked paid in the same
// commit as the approval.
package expense

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/approval-ledger/generic"
)

// AttrTripID holds the trip the report settles against.
const AttrTripID = "trip_id"

type ItemInput struct {
	ID          string  `json:"id"`
	Description string  `json:"description" validate:"required"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount" validate:"gt=0"`
}

// Input is a new expense report.
type Input struct {
	ID      string            `json:"id"`
	OwnerID string            `json:"owner_id" validate:"required"`
	TripID  string            `json:"trip_id" validate:"required"`
	Type    string            `json:"type"`
	Date    time.Time         `json:"date"`
	Items   []ItemInput       `json:"items" validate:"required,min=1,dive"`
	Notes   string            `json:"notes"`
	Meta    map[string]string `json:"meta"`
}

func (in Input) Request() (*generic.Request, error) {
	if err := generic.ValidateStruct(in); err != nil {
		return nil, err
	}

	items := make([]generic.LineItem, len(in.Items))
	total := generic.ZeroAmount(generic.UnitCurrency)
	seen := make(map[string]bool, len(in.Items))
	for i, it := range in.Items {
		id := it.ID
		if id == "" {
			id = fmt.Sprintf("item-%d", i+1)
		}
		if seen[id] {
			return nil, generic.NewValidationError("items", fmt.Sprintf("duplicate item id %q", id))
		}
		seen[id] = true
		items[i] = generic.LineItem{
			ID:          id,
			Description: it.Description,
			Category:    it.Category,
			Amount:      generic.Amount{Value: decimal.NewFromFloat(it.Amount), Unit: generic.UnitCurrency},
			Decision:    generic.ItemPending,
		}
		total = total.Add(items[i].Amount)
	}

	attrs := make(map[string]string, len(in.Meta)+1)
	for k, v := range in.Meta {
		attrs[k] = v
	}
	attrs[AttrTripID] = in.TripID

	typ := in.Type
	if typ == "" {
		typ = "expense_report"
	}
	return &generic.Request{
		ID:         generic.RequestID(in.ID),
		OwnerID:    in.OwnerID,
		Domain:     generic.DomainExpense,
		Amount:     total,
		Type:       typ,
		StartDate:  in.Date,
		EndDate:    in.Date,
		Items:      items,
		Notes:      in.Notes,
		Attributes: attrs,
	}, nil
}

// Create validates in and stores it as a draft.
func Create(ctx context.Context, requests *generic.RequestService, in Input) (*generic.Request, error) {
	req, err := in.Request()
	if err != nil {
		return nil, err
	}
	return requests.Create(ctx, req)
}

// =============================================================================
// ADAPTER
// =============================================================================

type Config struct {
	// AutoPay fires pay right after approval.
	AutoPay bool

	// AllowOverdraft lets a report exceed the remaining trip budget.
	AllowOverdraft bool
}

func DefaultConfig() Config {
	return Config{AutoPay: true}
}

type Adapter struct {
	cfg Config
}

var _ generic.DomainAdapter = (*Adapter)(nil)

func NewAdapter(cfg Config) *Adapter {
	return &Adapter{cfg: cfg}
}

func (a *Adapter) Domain() generic.Domain { return generic.DomainExpense }

func (a *Adapter) Wallet(req *generic.Request) (generic.WalletID, error) {
	tripID := req.Attribute(AttrTripID)
	if tripID == "" {
		return "", generic.NewValidationError(AttrTripID, "is required")
	}
	return generic.TripWalletID(generic.RequestID(tripID)), nil
}

// ValidateSubmit requires at least one item and an approved trip.
func (a *Adapter) ValidateSubmit(ctx context.Context, uow *generic.UnitOfWork, req *generic.Request) error {
	if len(req.Items) == 0 {
		return generic.NewValidationError("items", "at least one item is required")
	}
	tripID := generic.RequestID(req.Attribute(AttrTripID))
	if tripID == "" {
		return generic.NewValidationError(AttrTripID, "is required")
	}
	trip, err := uow.Store.GetRequest(ctx, tripID)
	if err != nil {
		if generic.IsNotFound(err) {
			return generic.NewValidationError(AttrTripID, fmt.Sprintf("trip %s does not exist", tripID))
		}
		return err
	}
	if trip.Domain != generic.DomainTrip {
		return generic.NewValidationError(AttrTripID, fmt.Sprintf("%s is not a trip", tripID))
	}
	if trip.Status != generic.StatusApproved && trip.Status != generic.StatusCompleted {
		return generic.NewValidationError(AttrTripID, fmt.Sprintf("trip %s is %s, not approved", tripID, trip.Status))
	}
	return nil
}

// Settle records item decisions and returns the sum of accepted items.
// With no item decisions every item is accepted. Items not named in a
// non-empty decision are rejected.
func (a *Adapter) Settle(req *generic.Request, d generic.Decision) (generic.Amount, error) {
	for id, dec := range d.Items {
		if dec != generic.ItemAccepted && dec != generic.ItemRejected {
			return generic.Amount{}, generic.NewValidationError("items", fmt.Sprintf("item %s: decision must be accepted or rejected", id))
		}
		if !hasItem(req.Items, id) {
			return generic.Amount{}, generic.NewValidationError("items", fmt.Sprintf("unknown item %s", id))
		}
	}

	approved := generic.ZeroAmount(req.Amount.Unit)
	for i := range req.Items {
		dec := generic.ItemAccepted
		if len(d.Items) > 0 {
			dec = d.Items[req.Items[i].ID]
			if dec == "" {
				dec = generic.ItemRejected
			}
		}
		req.Items[i].Decision = dec
		if dec == generic.ItemAccepted {
			approved = approved.Add(req.Items[i].Amount)
		}
	}
	if !approved.IsPositive() {
		return generic.Amount{}, generic.NewValidationError("items", "at least one item must be accepted; reject the report instead")
	}
	return approved, nil
}

func (a *Adapter) OnApprove(ctx context.Context, uow *generic.UnitOfWork, req *generic.Request) error {
	_, err := uow.Ledger.Append(ctx, generic.Entry{
		WalletID:    req.WalletID,
		Amount:      req.ApprovedAmount.Neg(),
		Kind:        generic.TxConsumption,
		CauseID:     ApproveCause(req.ID),
		Reason:      "expense report",
		Actor:       uow.Actor,
		NoOverdraft: !a.cfg.AllowOverdraft,
	})
	return generic.Accept(err)
}

func (a *Adapter) OnCancel(ctx context.Context, uow *generic.UnitOfWork, req *generic.Request, from generic.Status) error {
	if from != generic.StatusApproved {
		return nil
	}
	_, err := uow.Ledger.Append(ctx, generic.Entry{
		WalletID: req.WalletID,
		Amount:   *req.ApprovedAmount,
		Kind:     generic.TxRefund,
		CauseID:  CancelCause(req.ID),
		Reason:   "expense report cancelled",
		Actor:    uow.Actor,
	})
	return generic.Accept(err)
}

func (a *Adapter) FollowUp(*generic.Request) (generic.Trigger, bool) {
	if a.cfg.AutoPay {
		return generic.TriggerPay, true
	}
	return "", false
}

func hasItem(items []generic.LineItem, id string) bool {
	for _, it := range items {
		if it.ID == id {
			return true
		}
	}
	return false
}

func ApproveCause(id generic.RequestID) string { return "expense-approve:" + string(id) }
func CancelCause(id generic.RequestID) string  { return "expense-cancel:" + string(id) }

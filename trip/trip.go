// Package trip adapts business trips onto the generic lifecycle. An
// approved trip owns a budget wallet that expense reports draw on.
package trip

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/approval-ledger/generic"
)

type Type string

const (
	TypeDomestic      Type = "domestic"
	TypeInternational Type = "international"
)

// Input is a new business trip.
type Input struct {
	ID          string            `json:"id"`
	OwnerID     string            `json:"owner_id" validate:"required"`
	Type        Type              `json:"type" validate:"required,oneof=domestic international"`
	Destination string            `json:"destination" validate:"required"`
	Purpose     string            `json:"purpose"`
	StartDate   time.Time         `json:"start_date" validate:"required"`
	EndDate     time.Time         `json:"end_date" validate:"required,gtefield=StartDate"`
	Budget      float64           `json:"budget" validate:"gte=0"`
	Notes       string            `json:"notes"`
	Meta        map[string]string `json:"meta"`
}

// Attribute keys
const (
	AttrDestination = "destination"
	AttrPurpose     = "purpose"
)

func (in Input) Request() (*generic.Request, error) {
	if err := generic.ValidateStruct(in); err != nil {
		return nil, err
	}
	attrs := make(map[string]string, len(in.Meta)+2)
	for k, v := range in.Meta {
		attrs[k] = v
	}
	attrs[AttrDestination] = in.Destination
	if in.Purpose != "" {
		attrs[AttrPurpose] = in.Purpose
	}
	return &generic.Request{
		ID:         generic.RequestID(in.ID),
		OwnerID:    in.OwnerID,
		Domain:     generic.DomainTrip,
		Amount:     generic.Amount{Value: decimal.NewFromFloat(in.Budget), Unit: generic.UnitCurrency},
		Type:       string(in.Type),
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
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

// Adapter allocates the approved budget on the trip wallet and takes it
// back out if an approved trip is cancelled.
type Adapter struct{}

var _ generic.DomainAdapter = Adapter{}

func NewAdapter() Adapter { return Adapter{} }

func (Adapter) Domain() generic.Domain { return generic.DomainTrip }

func (Adapter) Wallet(req *generic.Request) (generic.WalletID, error) {
	return generic.TripWalletID(req.ID), nil
}

func (Adapter) ValidateSubmit(_ context.Context, _ *generic.UnitOfWork, req *generic.Request) error {
	switch {
	case req.Type == "":
		return generic.NewValidationError("type", "is required")
	case req.StartDate.IsZero() || req.EndDate.IsZero():
		return generic.NewValidationError("dates", "start and end dates are required")
	case req.EndDate.Before(req.StartDate):
		return generic.NewValidationError("end_date", "must not be before start_date")
	case req.Attribute(AttrDestination) == "":
		return generic.NewValidationError("destination", "is required")
	}
	return nil
}

func (Adapter) Settle(req *generic.Request, _ generic.Decision) (generic.Amount, error) {
	return req.Amount, nil
}

// OnApprove allocates the budget under the trip's own cause. A wallet
// opened beforehand keeps its transactions and gains the allocation.
func (Adapter) OnApprove(ctx context.Context, uow *generic.UnitOfWork, req *generic.Request) error {
	_, err := uow.Ledger.InitializeOrAppend(ctx, generic.InitializeInput{
		WalletID:   req.WalletID,
		WalletKind: generic.WalletTripBudget,
		Opening:    *req.ApprovedAmount,
		CauseID:    ApproveCause(req.ID),
		Kind:       generic.TxAllocation,
		Actor:      uow.Actor,
		Reason:     "trip budget",
	})
	return generic.Accept(err)
}

// OnCancel takes the allocation back out, so the wallet returns to the
// balance it had before approval. A trip with expenses still posted
// against its budget cannot be cancelled.
func (Adapter) OnCancel(ctx context.Context, uow *generic.UnitOfWork, req *generic.Request, from generic.Status) error {
	if from != generic.StatusApproved {
		return nil
	}
	txs, err := uow.Ledger.Transactions(ctx, req.WalletID)
	if err != nil {
		return err
	}
	if spent := postedExpenses(txs); spent.IsPositive() {
		return generic.NewValidationError("expenses",
			fmt.Sprintf("trip %s has %s of expenses posted; cancel or settle them first", req.ID, spent.Value))
	}
	_, err = uow.Ledger.Append(ctx, generic.Entry{
		WalletID: req.WalletID,
		Amount:   req.ApprovedAmount.Neg(),
		Kind:     generic.TxRefund,
		CauseID:  CancelCause(req.ID),
		Reason:   "trip cancelled",
		Actor:    uow.Actor,
	})
	return generic.Accept(err)
}

// postedExpenses nets expense debits against their refunds.
func postedExpenses(txs []generic.Transaction) generic.Amount {
	spent := generic.ZeroAmount(generic.UnitCurrency)
	for _, tx := range txs {
		switch tx.Kind {
		case generic.TxConsumption, generic.TxRefund:
			spent = spent.Sub(tx.Amount)
		}
	}
	return spent
}

func (Adapter) FollowUp(*generic.Request) (generic.Trigger, bool) { return "", false }

func ApproveCause(id generic.RequestID) string { return "trip-approve:" + string(id) }
func CancelCause(id generic.RequestID) string  { return "trip-cancel:" + string(id) }

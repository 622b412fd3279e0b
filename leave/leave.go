// Package leave adapts leave requests onto the generic lifecycle and the
// per-user-year leave wallet.
package leave

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/approval-ledger/generic"
)

// =============================================================================
// LEAVE TYPES
// =============================================================================

type Type string

const (
	TypeVacation        Type = "vacation"
	TypeSick            Type = "sick"
	TypePersonal        Type = "personal"
	TypeParental        Type = "parental"
	TypeBereavement     Type = "bereavement"
	TypeFloatingHoliday Type = "floating_holiday"
)

// Input is a new leave request.
type Input struct {
	ID        string            `json:"id"`
	OwnerID   string            `json:"owner_id" validate:"required"`
	Type      Type              `json:"type" validate:"required,oneof=vacation sick personal parental bereavement floating_holiday"`
	StartDate time.Time         `json:"start_date" validate:"required"`
	EndDate   time.Time         `json:"end_date" validate:"required,gtefield=StartDate"`
	Days      float64           `json:"days" validate:"gte=0"`
	Notes     string            `json:"notes"`
	Meta      map[string]string `json:"meta"`
}

// Request builds the generic draft for in.
func (in Input) Request() (*generic.Request, error) {
	if err := generic.ValidateStruct(in); err != nil {
		return nil, err
	}
	return &generic.Request{
		ID:         generic.RequestID(in.ID),
		OwnerID:    in.OwnerID,
		Domain:     generic.DomainLeave,
		Amount:     generic.Amount{Value: decimal.NewFromFloat(in.Days), Unit: generic.UnitDays},
		Type:       string(in.Type),
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		Notes:      in.Notes,
		Attributes: in.Meta,
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
	// Rules opens the leave wallet with the period accrual on first approval.
	// Without rules the wallet must be initialized beforehand.
	Rules generic.AccrualRules

	// AllowOverdraft lets approvals drive the leave balance negative.
	AllowOverdraft bool
}

// Adapter settles leave requests against the owner's leave wallet for the
// period of the start date. Approval consumes the days immediately; while
// the request is pending the days only count as reserved.
type Adapter struct {
	cfg Config
}

var _ generic.DomainAdapter = (*Adapter)(nil)

func NewAdapter(cfg Config) *Adapter {
	return &Adapter{cfg: cfg}
}

func (a *Adapter) Domain() generic.Domain { return generic.DomainLeave }

func (a *Adapter) Wallet(req *generic.Request) (generic.WalletID, error) {
	if req.StartDate.IsZero() {
		return "", generic.NewValidationError("start_date", "is required")
	}
	return generic.LeaveWalletID(req.OwnerID, generic.PeriodFor(req.StartDate)), nil
}

func (a *Adapter) ValidateSubmit(ctx context.Context, uow *generic.UnitOfWork, req *generic.Request) error {
	if err := validateDates(req); err != nil {
		return err
	}
	return checkOverlap(ctx, uow.Store, req)
}

func validateDates(req *generic.Request) error {
	switch {
	case req.Type == "":
		return generic.NewValidationError("type", "is required")
	case req.StartDate.IsZero() || req.EndDate.IsZero():
		return generic.NewValidationError("dates", "start and end dates are required")
	case req.EndDate.Before(req.StartDate):
		return generic.NewValidationError("end_date", "must not be before start_date")
	case !generic.PeriodFor(req.StartDate).Contains(req.EndDate):
		return generic.NewValidationError("end_date", "leave cannot span two periods")
	}
	return nil
}

func (a *Adapter) Settle(req *generic.Request, _ generic.Decision) (generic.Amount, error) {
	return req.Amount, nil
}

func (a *Adapter) OnApprove(ctx context.Context, uow *generic.UnitOfWork, req *generic.Request) error {
	if a.cfg.Rules != nil {
		period := generic.PeriodFor(req.StartDate)
		if _, err := generic.EnsureAccrual(ctx, uow.Ledger, a.cfg.Rules, req.OwnerID, period, uow.Actor); err != nil {
			return err
		}
	}
	_, err := uow.Ledger.Append(ctx, generic.Entry{
		WalletID:    req.WalletID,
		Amount:      req.ApprovedAmount.Neg(),
		Kind:        generic.TxConsumption,
		CauseID:     ApproveCause(req.ID),
		Reason:      req.Type + " leave",
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
		Reason:   "leave cancelled",
		Actor:    uow.Actor,
	})
	return generic.Accept(err)
}

func (a *Adapter) FollowUp(*generic.Request) (generic.Trigger, bool) { return "", false }

// ApproveCause is the cause id of a leave consumption.
func ApproveCause(id generic.RequestID) string { return "leave-approve:" + string(id) }

// CancelCause is the cause id of a leave refund.
func CancelCause(id generic.RequestID) string { return "leave-cancel:" + string(id) }

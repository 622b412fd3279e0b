/*
accrual.go - Balance Accrual Calculator

PURPOSE:

	Produces the leave balance summary of an owner for a period (a year),
	combining ledger state with amounts reserved by undecided requests.

	┌─────────────────────────────────────────────────────────┐
	│  Opening    = Σ allocation                              │
	│  Accrued    = Σ accrual + Σ adjustment                  │
	│  Consumed   = −Σ consumption − Σ refund                 │
	│  Reserved   = Σ amount of submitted / pending requests  │
	│               starting in the period (NOT in the ledger)│
	│  Available  = Opening + Accrued − Consumed − Reserved   │
	└─────────────────────────────────────────────────────────┘

	Reserved is never written to the ledger: a pending request may still be
	rejected. Approval writes the consumption and the amount moves from
	Reserved to Consumed in the same commit.

RECALCULATION:

	Recalculate asks the AccrualRules for the period accrual and writes it
	with cause "accrual:<owner>:<period>". The ledger's duplicate detection
	makes a second recalculation for the same period a no-op.
*/
package generic

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Summary is the leave balance view of one owner and period.
type Summary struct {
	OwnerID     string
	Period      Period
	WalletID    WalletID
	Opening     Amount
	Accrued     Amount
	Consumed    Amount
	Reserved    Amount
	Available   Amount
	Initialized bool
}

// AccrualCause is the cause id of the period accrual.
func AccrualCause(ownerID string, period Period) string {
	return "accrual:" + ownerID + ":" + period.Key()
}

type Calculator struct {
	ledger *Ledger
	store  Store
	rules  AccrualRules
	deps   Deps
}

func NewCalculator(ledger *Ledger, store Store, rules AccrualRules, deps Deps) *Calculator {
	return &Calculator{ledger: ledger, store: store, rules: rules, deps: deps.withDefaults()}
}

// Summary computes the balance summary. It never writes.
func (c *Calculator) Summary(ctx context.Context, ownerID string, period Period) (Summary, error) {
	if ownerID == "" {
		return Summary{}, NewValidationError("owner_id", "owner is required")
	}
	walletID := LeaveWalletID(ownerID, period)
	txs, err := c.ledger.Transactions(ctx, walletID)
	if err != nil {
		return Summary{}, fmt.Errorf("load %s: %w", walletID, err)
	}

	unit := UnitDays
	if len(txs) > 0 {
		unit = txs[0].Amount.Unit
	}
	s := Summary{
		OwnerID:     ownerID,
		Period:      period,
		WalletID:    walletID,
		Opening:     ZeroAmount(unit),
		Accrued:     ZeroAmount(unit),
		Consumed:    ZeroAmount(unit),
		Reserved:    ZeroAmount(unit),
		Initialized: len(txs) > 0,
	}
	for _, tx := range txs {
		switch tx.Kind {
		case TxAllocation:
			s.Opening = s.Opening.Add(tx.Amount)
		case TxAccrual, TxAdjustment:
			s.Accrued = s.Accrued.Add(tx.Amount)
		case TxConsumption, TxRefund:
			s.Consumed = s.Consumed.Sub(tx.Amount)
		}
	}

	pending, err := c.store.ListRequests(ctx, RequestFilter{
		OwnerID:  ownerID,
		Domain:   DomainLeave,
		Statuses: []Status{StatusSubmitted, StatusPendingApproval},
	})
	if err != nil {
		return Summary{}, fmt.Errorf("list pending requests: %w", err)
	}
	for _, r := range pending {
		if period.Contains(r.StartDate) {
			s.Reserved = s.Reserved.Add(r.Amount)
		}
	}

	s.Available = s.Opening.Add(s.Accrued).Sub(s.Consumed).Sub(s.Reserved)
	return s, nil
}

// Recalculate writes the period accrual, then returns the fresh summary.
// Running it again for the same period changes nothing.
func (c *Calculator) Recalculate(ctx context.Context, ownerID string, period Period) (Summary, error) {
	if ownerID == "" {
		return Summary{}, NewValidationError("owner_id", "owner is required")
	}
	if c.rules == nil {
		return Summary{}, NewValidationError("accrual", "no accrual rules configured")
	}
	if _, err := EnsureAccrual(ctx, c.ledger, c.rules, ownerID, period, "system"); err != nil {
		return Summary{}, err
	}
	c.deps.Logger.Info("accrual recalculated",
		zap.String("owner_id", ownerID),
		zap.String("period", period.Key()))
	return c.Summary(ctx, ownerID, period)
}

// EnsureAccrual writes the period accrual on the owner's leave wallet,
// initializing the wallet with it if needed. Idempotent per period.
// The leave adapter calls it with a ledger bound to its unit of work.
func EnsureAccrual(ctx context.Context, ledger *Ledger, rules AccrualRules, ownerID string, period Period, actor string) (Balance, error) {
	amount, err := rules.AccrualFor(ctx, ownerID, period)
	if err != nil {
		return Balance{}, fmt.Errorf("accrual rules: %w", err)
	}
	if amount.IsNegative() {
		return Balance{}, NewValidationError("accrual", "accrual cannot be negative")
	}

	walletID := LeaveWalletID(ownerID, period)
	_, err = ledger.InitializeOrAppend(ctx, InitializeInput{
		WalletID:   walletID,
		WalletKind: WalletLeaveBalance,
		Opening:    amount,
		CauseID:    AccrualCause(ownerID, period),
		Kind:       TxAccrual,
		Actor:      actor,
		Reason:     "period accrual",
	})
	if Accept(err) != nil {
		return Balance{}, err
	}
	return ledger.Balance(ctx, walletID)
}

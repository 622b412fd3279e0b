/*
Package generic provides the core approval and ledger engine.

PURPOSE:

	This package contains domain-agnostic types and algorithms shared by every
	HR request domain. Whether the request is a leave request, a business trip
	or an expense report, the same engine drives its lifecycle, routes its
	approval decision and posts its financial effect to a wallet ledger.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (e.g., 5 days, 1200.50 currency)
  - Wallet: A balance-bearing entity whose value is the fold of its log
  - Transaction: An immutable, idempotency-keyed ledger entry
  - Identifiers: Type-safe ids for wallets, requests, approvals

DESIGN PRINCIPLES:
 1. Immutability: Transactions are never modified, only compensated
 2. Precision: Uses decimal.Decimal to avoid floating-point errors
 3. Type Safety: Strong typing for IDs prevents mixing wallet/request IDs
 4. Idempotency: (wallet, cause, kind) identifies a transaction uniquely

USAGE:

	amount := generic.NewAmount(300, generic.UnitCurrency)
	tx, err := ledger.Append(ctx, generic.Entry{
	    WalletID: "trip:req-1",
	    Amount:   amount.Neg(),
	    Kind:     generic.TxConsumption,
	    CauseID:  "approve:exp-7",
	})

SEE ALSO:
  - ledger.go: Append-only wallet ledger
  - machine.go: Request lifecycle graph
  - request.go: Request service (transition + ledger unit of work)
  - approval.go: Centralized vs legacy approval routing
  - accrual.go: Period balance summaries
*/
package generic

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitDays     Unit = "days"
	UnitHours    Unit = "hours"
	UnitCurrency Unit = "currency"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(value), Unit: unit}
}

// ParseAmount parses a decimal string such as "1250.40".
func ParseAmount(s string, unit Unit) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Amount{}, err
	}
	return Amount{Value: d, Unit: unit}, nil
}

func ZeroAmount(unit Unit) Amount { return Amount{Value: decimal.Zero, Unit: unit} }

func (a Amount) Zero() Amount              { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount       { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount       { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Neg() Amount               { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) Abs() Amount               { return Amount{Value: a.Value.Abs(), Unit: a.Unit} }
func (a Amount) IsNegative() bool          { return a.Value.IsNegative() }
func (a Amount) IsZero() bool              { return a.Value.IsZero() }
func (a Amount) IsPositive() bool          { return a.Value.IsPositive() }
func (a Amount) Equal(b Amount) bool       { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool    { return a.Value.LessThan(b.Value) }
func (a Amount) String() string            { return a.Value.String() + " " + string(a.Unit) }

// Sum adds amounts of the same unit. An empty slice yields zero in unit.
func Sum(unit Unit, amounts ...Amount) Amount {
	total := ZeroAmount(unit)
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type WalletID string
type RequestID string
type ApprovalID string
type TransactionID string

// Domain names the request family a Request belongs to.
type Domain string

const (
	DomainLeave   Domain = "leave"
	DomainTrip    Domain = "trip"
	DomainExpense Domain = "expense"
)

// =============================================================================
// WALLET
// =============================================================================

type WalletKind string

const (
	WalletTripBudget   WalletKind = "trip_budget"
	WalletLeaveBalance WalletKind = "leave_balance"
)

// TripWalletID is the wallet owned by an approved business trip.
func TripWalletID(tripID RequestID) WalletID {
	return WalletID("trip:" + string(tripID))
}

// LeaveWalletID is the per-user-year leave wallet.
func LeaveWalletID(ownerID string, period Period) WalletID {
	return WalletID("leave:" + ownerID + ":" + period.Key())
}

// =============================================================================
// TRANSACTION - Immutable change to a wallet balance
// =============================================================================

type TransactionKind string

const (
	TxAllocation  TransactionKind = "allocation"  // Budget or opening grant credited to a wallet
	TxConsumption TransactionKind = "consumption" // Approved request drawing on the wallet
	TxRefund      TransactionKind = "refund"      // Compensation for a cancelled approval
	TxAdjustment  TransactionKind = "adjustment"  // Manual admin correction
	TxAccrual     TransactionKind = "accrual"     // Period accrual from the accrual rules
)

func (k TransactionKind) IsValid() bool {
	switch k {
	case TxAllocation, TxConsumption, TxRefund, TxAdjustment, TxAccrual:
		return true
	}
	return false
}

type Transaction struct {
	ID         TransactionID
	WalletID   WalletID
	WalletKind WalletKind
	Amount     Amount // signed
	Kind       TransactionKind
	CauseID    string
	Reason     string
	Seq        int64 // assigned by the store at commit, monotonic

	// Audit fields
	CreatedBy string
	CreatedAt time.Time
}

// IdempotencyKey is unique per store: a cause produces at most one
// transaction of a given kind on a given wallet.
func (t Transaction) IdempotencyKey() string {
	return IdempotencyKey(t.WalletID, t.CauseID, t.Kind)
}

func IdempotencyKey(walletID WalletID, causeID string, kind TransactionKind) string {
	return string(walletID) + "|" + causeID + "|" + string(kind)
}

/*
ledger.go - Append-only wallet ledger

PURPOSE:

	The Ledger is the immutable source of truth for every wallet balance.
	Every allocation, consumption, refund, adjustment and accrual is recorded
	here. Balance is always computed by folding transactions - there's no
	separate "balance" field that can get out of sync.

CRITICAL INVARIANTS:
 1. APPEND-ONLY: No Update, No Delete. EVER.
 2. IMMUTABLE: Once written, transactions cannot be modified
 3. IDEMPOTENT: (wallet, cause, kind) = one transaction, no duplicates
 4. INITIALIZED BEFORE USE: consumption/refund need a prior transaction

CORRECTIONS:

	If an approval is cancelled, you don't delete its consumption. Instead:
	1. Create a Refund transaction (opposite sign)
	2. Both original and refund remain in the ledger
	3. Net effect is correction, but history is preserved

EXAMPLE FLOW:

 1. Trip approved with 1000 budget:   TxAllocation  +1000

 2. Expense report approved for 300:  TxConsumption  -300

 3. Retry of the same approval:       (duplicate, no write)

 4. Expense report cancelled:         TxRefund       +300

    Wallet trip:req-1: [+1000, -300, +300] = 1000

READ PATH:

	Balance() keeps a snapshot of the running total per wallet keyed by the
	last folded sequence number, and only folds transactions appended after
	it. Appends through the engine invalidate the snapshot.

SEE ALSO:
  - store.go: Low-level persistence interface
  - request.go: Binds the ledger to a unit of work
*/
package generic

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// =============================================================================
// DEPENDENCIES shared by all engine services
// =============================================================================

// Deps carries the ambient collaborators. Zero fields get defaults.
type Deps struct {
	Clock    Clock
	IDs      IDGenerator
	Observer Observer
	Logger   *zap.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = SystemClock{}
	}
	if d.IDs == nil {
		d.IDs = UUIDGenerator{}
	}
	if d.Observer == nil {
		d.Observer = nopObserver{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}

// =============================================================================
// LEDGER
// =============================================================================

type Ledger struct {
	store   Store
	txStore TxStore // nil when bound to a running unit of work
	cache   *snapshotCache
	deps    Deps
}

func NewLedger(store TxStore, deps Deps) *Ledger {
	return &Ledger{
		store:   store,
		txStore: store,
		cache:   newSnapshotCache(),
		deps:    deps.withDefaults(),
	}
}

// Bind returns the same ledger operating on s, the Store of a running
// unit of work. Writes then commit or roll back with that unit.
func (l *Ledger) Bind(s Store) *Ledger {
	return &Ledger{store: s, cache: l.cache, deps: l.deps}
}

func (l *Ledger) run(ctx context.Context, fn func(Store) error) error {
	if l.txStore != nil {
		return l.txStore.WithTx(ctx, fn)
	}
	return fn(l.store)
}

// InitializeInput opens a wallet.
type InitializeInput struct {
	WalletID   WalletID
	WalletKind WalletKind
	Opening    Amount
	CauseID    string
	Kind       TransactionKind // TxAllocation (default) or TxAccrual
	Actor      string
	Reason     string
}

// Initialize writes the wallet's first transaction.
//
// If the wallet already has transactions, the existing balance is returned
// together with ErrAlreadyInitialized. Re-running initialization with the
// same cause is therefore a no-op, and callers treat the error as success.
func (l *Ledger) Initialize(ctx context.Context, in InitializeInput) (Balance, error) {
	if in.Kind == "" {
		in.Kind = TxAllocation
	}
	if err := validateInitialize(in); err != nil {
		return Balance{}, err
	}

	var (
		result   Balance
		replayed bool
	)
	err := l.run(ctx, func(s Store) error {
		txs, err := s.LoadTransactions(ctx, in.WalletID)
		if err != nil {
			return err
		}
		if len(txs) > 0 {
			if txs[0].WalletKind != in.WalletKind {
				return NewValidationError("wallet_kind",
					fmt.Sprintf("wallet %s is a %s wallet", in.WalletID, txs[0].WalletKind))
			}
			result = Fold(txs)
			replayed = true
			return nil
		}

		stored, err := s.AppendTransaction(ctx, Transaction{
			ID:         TransactionID(l.deps.IDs.NewID()),
			WalletID:   in.WalletID,
			WalletKind: in.WalletKind,
			Amount:     in.Opening,
			Kind:       in.Kind,
			CauseID:    in.CauseID,
			Reason:     in.Reason,
			CreatedBy:  in.Actor,
			CreatedAt:  l.deps.Clock.Now(),
		}, 0)
		if err != nil {
			return err
		}
		result = Fold([]Transaction{stored})
		return nil
	})
	if err != nil {
		l.report(in.Kind, err)
		return Balance{}, fmt.Errorf("initialize wallet %s: %w", in.WalletID, err)
	}
	if replayed {
		l.deps.Observer.TransactionAppended(in.Kind, OutcomeDuplicate)
		return result, ErrAlreadyInitialized
	}

	l.cache.invalidate(in.WalletID)
	l.deps.Observer.TransactionAppended(in.Kind, OutcomeAppended)
	l.deps.Logger.Debug("wallet initialized",
		zap.String("wallet_id", string(in.WalletID)),
		zap.String("cause_id", in.CauseID),
		zap.String("opening", in.Opening.Value.String()))
	return result, nil
}

// InitializeOrAppend writes in as the wallet's first transaction, or
// appends it when the wallet is already open. Re-running with the same
// cause writes nothing and returns ErrDuplicateTransaction. Use a ledger
// bound to a unit of work so both steps see the same state.
func (l *Ledger) InitializeOrAppend(ctx context.Context, in InitializeInput) (Balance, error) {
	if in.Kind == "" {
		in.Kind = TxAllocation
	}
	bal, err := l.Initialize(ctx, in)
	if !errors.Is(err, ErrAlreadyInitialized) {
		return bal, err
	}
	if in.Opening.IsZero() {
		return bal, nil
	}
	_, err = l.Append(ctx, Entry{
		WalletID: in.WalletID,
		Amount:   in.Opening,
		Kind:     in.Kind,
		CauseID:  in.CauseID,
		Reason:   in.Reason,
		Actor:    in.Actor,
	})
	if err != nil && !errors.Is(err, ErrDuplicateTransaction) {
		return Balance{}, err
	}
	bal, berr := l.Balance(ctx, in.WalletID)
	if berr != nil {
		return Balance{}, berr
	}
	return bal, err
}

// Entry is a ledger write against an initialized wallet.
type Entry struct {
	WalletID WalletID
	Amount   Amount // signed
	Kind     TransactionKind
	CauseID  string
	Reason   string
	Actor    string

	// NoOverdraft rejects the append if the resulting balance is negative.
	// The check runs against the state seen inside the unit of work.
	NoOverdraft bool
}

// Append records an entry.
//
// Returns ErrWalletNotFound if the wallet has no transactions. If the
// (wallet, cause, kind) key already exists, the recorded transaction is
// returned together with ErrDuplicateTransaction and nothing is written.
func (l *Ledger) Append(ctx context.Context, e Entry) (Transaction, error) {
	if err := validateEntry(e); err != nil {
		return Transaction{}, err
	}

	var (
		out       Transaction
		duplicate bool
	)
	err := l.run(ctx, func(s Store) error {
		existing, err := s.FindTransaction(ctx, IdempotencyKey(e.WalletID, e.CauseID, e.Kind))
		if err != nil {
			return err
		}
		if existing != nil {
			out = *existing
			duplicate = true
			return nil
		}

		txs, err := s.LoadTransactions(ctx, e.WalletID)
		if err != nil {
			return err
		}
		if len(txs) == 0 {
			return ErrWalletNotFound
		}
		current := Fold(txs)
		if current.Amount.Unit != e.Amount.Unit {
			return NewValidationError("amount",
				fmt.Sprintf("wallet %s is kept in %s", e.WalletID, current.Amount.Unit))
		}
		if e.NoOverdraft && current.Amount.Add(e.Amount).IsNegative() {
			return &BudgetExceededError{
				WalletID:  e.WalletID,
				Available: current.Amount,
				Requested: e.Amount.Abs(),
			}
		}

		out, err = s.AppendTransaction(ctx, Transaction{
			ID:         TransactionID(l.deps.IDs.NewID()),
			WalletID:   e.WalletID,
			WalletKind: current.Kind,
			Amount:     e.Amount,
			Kind:       e.Kind,
			CauseID:    e.CauseID,
			Reason:     e.Reason,
			CreatedBy:  e.Actor,
			CreatedAt:  l.deps.Clock.Now(),
		}, len(txs))
		return err
	})
	if err != nil {
		l.report(e.Kind, err)
		return Transaction{}, fmt.Errorf("append %s to %s: %w", e.Kind, e.WalletID, err)
	}
	if duplicate {
		l.deps.Observer.TransactionAppended(e.Kind, OutcomeDuplicate)
		return out, ErrDuplicateTransaction
	}

	l.cache.invalidate(e.WalletID)
	l.deps.Observer.TransactionAppended(e.Kind, OutcomeAppended)
	l.deps.Logger.Debug("transaction appended",
		zap.String("wallet_id", string(e.WalletID)),
		zap.String("kind", string(e.Kind)),
		zap.String("cause_id", e.CauseID),
		zap.String("amount", e.Amount.Value.String()))
	return out, nil
}

// Balance folds the wallet. Returns ErrNotInitialized for an empty wallet.
func (l *Ledger) Balance(ctx context.Context, walletID WalletID) (Balance, error) {
	if l.txStore == nil {
		// Inside a unit of work: fold what the unit sees, skip the cache.
		txs, err := l.store.LoadTransactions(ctx, walletID)
		if err != nil {
			return Balance{}, err
		}
		if len(txs) == 0 {
			return Balance{WalletID: walletID}, ErrNotInitialized
		}
		return Fold(txs), nil
	}

	snap, _ := l.cache.get(walletID)
	newer, err := l.store.LoadTransactionsAfter(ctx, walletID, snap.LastSeq)
	if err != nil {
		return Balance{}, err
	}
	bal := extend(snap, newer)
	if bal.Count == 0 {
		return Balance{WalletID: walletID}, ErrNotInitialized
	}
	l.cache.put(bal)
	return bal, nil
}

// Transactions returns the wallet history, oldest first.
func (l *Ledger) Transactions(ctx context.Context, walletID WalletID) ([]Transaction, error) {
	txs, err := l.store.LoadTransactions(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []Transaction{}
	}
	return txs, nil
}

func (l *Ledger) report(kind TransactionKind, err error) {
	switch {
	case errors.Is(err, ErrConcurrencyConflict):
		l.deps.Observer.TransactionAppended(kind, OutcomeConflict)
	default:
		l.deps.Observer.TransactionAppended(kind, OutcomeRejected)
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

func validateInitialize(in InitializeInput) error {
	switch {
	case in.WalletID == "":
		return NewValidationError("wallet_id", "wallet id is required")
	case in.CauseID == "":
		return NewValidationError("cause_id", "cause id is required")
	case in.WalletKind != WalletTripBudget && in.WalletKind != WalletLeaveBalance:
		return NewValidationError("wallet_kind", fmt.Sprintf("unknown wallet kind %q", in.WalletKind))
	case in.Kind != TxAllocation && in.Kind != TxAccrual:
		return NewValidationError("kind", "a wallet opens with an allocation or an accrual")
	case in.Opening.IsNegative():
		return NewValidationError("amount", "opening amount cannot be negative")
	case in.Kind == TxAllocation && !in.Opening.IsPositive():
		return NewValidationError("amount", "opening allocation must be positive")
	}
	return nil
}

func validateEntry(e Entry) error {
	switch {
	case e.WalletID == "":
		return NewValidationError("wallet_id", "wallet id is required")
	case e.CauseID == "":
		return NewValidationError("cause_id", "cause id is required")
	case !e.Kind.IsValid():
		return NewValidationError("kind", fmt.Sprintf("unknown transaction kind %q", e.Kind))
	case e.Amount.IsZero():
		return NewValidationError("amount", "amount cannot be zero")
	case e.Kind == TxConsumption && e.Amount.IsPositive():
		return NewValidationError("amount", "consumption must be negative")
	case e.Kind == TxAllocation && e.Amount.IsNegative():
		return NewValidationError("amount", "allocation must be positive")
	}
	return nil
}

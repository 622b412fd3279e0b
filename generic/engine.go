package generic

import (
	"context"
)

// =============================================================================
// ENGINE - Facade over ledger, lifecycle, approvals and accrual
// =============================================================================

// Engine bundles the services behind the three call shapes used by the
// domain adapters and the HTTP layer:
//
//	lifecycle: Submit, Approve, Reject, Cancel
//	ledger:    InitializeWallet, AppendTransaction, GetBalance, ListTransactions
//	balances:  GetBalanceSummary, RecalculateAccrual
//
// Idempotent replays are reported as success with Replayed set.
type Engine struct {
	Store     TxStore
	Ledger    *Ledger
	Requests  *RequestService
	Approvals *Coordinator
	Accrual   *Calculator
}

type EngineConfig struct {
	Store        TxStore
	Authorizer   Authorizer
	AccrualRules AccrualRules
	Deps         Deps
}

func NewEngine(cfg EngineConfig) *Engine {
	deps := cfg.Deps.withDefaults()
	ledger := NewLedger(cfg.Store, deps)
	requests := NewRequestService(cfg.Store, ledger, cfg.Authorizer, deps)
	return &Engine{
		Store:     cfg.Store,
		Ledger:    ledger,
		Requests:  requests,
		Approvals: NewCoordinator(requests),
		Accrual:   NewCalculator(ledger, cfg.Store, cfg.AccrualRules, deps),
	}
}

// Register installs a domain adapter.
func (e *Engine) Register(adapters ...DomainAdapter) {
	for _, a := range adapters {
		e.Requests.Register(a)
	}
}

// ===== Lifecycle =====

func (e *Engine) Submit(ctx context.Context, id RequestID, actor string) (*Request, error) {
	return e.Requests.Submit(ctx, id, actor)
}

func (e *Engine) Approve(ctx context.Context, d Decision) (*Request, error) {
	return e.Approvals.Approve(ctx, d)
}

func (e *Engine) Reject(ctx context.Context, d Decision) (*Request, error) {
	return e.Approvals.Reject(ctx, d)
}

func (e *Engine) Cancel(ctx context.Context, id RequestID, actor, reason string) (*Request, error) {
	return e.Requests.Cancel(ctx, id, actor, reason)
}

// ===== Ledger =====

type WalletResult struct {
	Balance  Balance
	Replayed bool
}

type AppendResult struct {
	Transaction Transaction
	Balance     Balance
	Replayed    bool
}

func (e *Engine) InitializeWallet(ctx context.Context, in InitializeInput) (WalletResult, error) {
	bal, err := e.Ledger.Initialize(ctx, in)
	if err != nil && !IsIdempotentReplay(err) {
		return WalletResult{}, err
	}
	return WalletResult{Balance: bal, Replayed: err != nil}, nil
}

func (e *Engine) AppendTransaction(ctx context.Context, entry Entry) (AppendResult, error) {
	tx, err := e.Ledger.Append(ctx, entry)
	if err != nil && !IsIdempotentReplay(err) {
		return AppendResult{}, err
	}
	replayed := err != nil
	bal, err := e.Ledger.Balance(ctx, entry.WalletID)
	if err != nil {
		return AppendResult{}, err
	}
	return AppendResult{Transaction: tx, Balance: bal, Replayed: replayed}, nil
}

// GetBalance returns ErrNotInitialized for a wallet without transactions.
func (e *Engine) GetBalance(ctx context.Context, walletID WalletID) (Balance, error) {
	return e.Ledger.Balance(ctx, walletID)
}

func (e *Engine) ListTransactions(ctx context.Context, walletID WalletID) ([]Transaction, error) {
	return e.Ledger.Transactions(ctx, walletID)
}

// ===== Balances =====

func (e *Engine) GetBalanceSummary(ctx context.Context, ownerID string, period Period) (Summary, error) {
	return e.Accrual.Summary(ctx, ownerID, period)
}

func (e *Engine) RecalculateAccrual(ctx context.Context, ownerID string, period Period) (Summary, error) {
	return e.Accrual.Recalculate(ctx, ownerID, period)
}

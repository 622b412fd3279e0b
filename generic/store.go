/*
store.go - Persistence interface for the ledger, requests and approvals

PURPOSE:

	Defines the interface between the engine and the database.
	The Store keeps append-only semantics for transactions and audit entries,
	and optimistic versioning for requests and approval records.
	Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:

	Store:   Reads and writes used inside a unit of work
	TxStore: Store + WithTx (atomic transition + ledger + audit writes)

APPEND-ONLY CONTRACT:
  - AppendTransaction(): the only ledger write
  - AppendAudit(): the only audit write
  - NO update or delete exists for either

IDEMPOTENCY:

	Every transaction carries (wallet, cause, kind). If the key already
	exists, AppendTransaction returns ErrDuplicateTransaction. This prevents
	duplicate postings from network retries or UI double-submission.

OPTIMISTIC CONCURRENCY:
  - AppendTransaction takes the wallet transaction count the caller
    observed. If the wallet grew in the meantime the store returns
    ErrConcurrencyConflict (at append time or at commit).
  - UpdateRequest / UpdateApproval compare Version and bump it.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory with staged commits, for tests

SEE ALSO:
  - ledger.go: Higher-level ledger using Store
  - request.go: Unit of work around each transition
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Interface for persistence
// =============================================================================

type Store interface {
	// AppendTransaction persists tx. expectedCount is the number of
	// transactions the caller saw on tx.WalletID. The stored transaction,
	// with its sequence assigned, is returned.
	AppendTransaction(ctx context.Context, tx Transaction, expectedCount int) (Transaction, error)

	// FindTransaction returns the transaction with the idempotency key, or nil.
	FindTransaction(ctx context.Context, idempotencyKey string) (*Transaction, error)

	// LoadTransactions returns all wallet transactions, oldest first.
	LoadTransactions(ctx context.Context, walletID WalletID) ([]Transaction, error)

	// LoadTransactionsAfter returns wallet transactions with Seq > afterSeq, oldest first.
	LoadTransactionsAfter(ctx context.Context, walletID WalletID, afterSeq int64) ([]Transaction, error)

	// CreateRequest inserts a new request at Version 1.
	CreateRequest(ctx context.Context, req *Request) error

	// UpdateRequest saves req if the stored version equals req.Version,
	// then increments req.Version. Returns ErrConcurrencyConflict otherwise.
	UpdateRequest(ctx context.Context, req *Request) error

	// GetRequest returns ErrRequestNotFound for unknown ids.
	GetRequest(ctx context.Context, id RequestID) (*Request, error)

	ListRequests(ctx context.Context, filter RequestFilter) ([]Request, error)

	// CreateApproval inserts a new approval record at Version 1.
	CreateApproval(ctx context.Context, approval *ApprovalRequest) error

	// UpdateApproval has the same version semantics as UpdateRequest.
	UpdateApproval(ctx context.Context, approval *ApprovalRequest) error

	// GetApproval returns ErrApprovalNotFound for unknown ids.
	GetApproval(ctx context.Context, id ApprovalID) (*ApprovalRequest, error)

	AppendAudit(ctx context.Context, entry AuditEntry) error
	ListAudit(ctx context.Context, requestID RequestID) ([]AuditEntry, error)
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic operations across multiple writes
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	// Calling WithTx on the Store handed to fn joins the running transaction.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// RequestFilter narrows ListRequests. Zero values match everything.
type RequestFilter struct {
	OwnerID  string
	Domain   Domain
	WalletID WalletID
	Statuses []Status
}

func (f RequestFilter) Matches(r *Request) bool {
	if f.OwnerID != "" && r.OwnerID != f.OwnerID {
		return false
	}
	if f.Domain != "" && r.Domain != f.Domain {
		return false
	}
	if f.WalletID != "" && r.WalletID != f.WalletID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if r.Status == s {
			return true
		}
	}
	return false
}

// =============================================================================
// AUDIT LOG - Separate from ledger, tracks who moved what when
// =============================================================================

// AuditEntry records one committed transition.
type AuditEntry struct {
	ID        string
	RequestID RequestID
	ActorID   string
	From      Status
	To        Status
	Trigger   Trigger
	At        time.Time
	Payload   map[string]string
}

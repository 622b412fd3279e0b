// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/warp/approval-ledger/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is an in-memory TxStore. Units of work run without holding the
// store lock: writes are staged in a view and validated at commit.
//
// A commit fails with ErrConcurrencyConflict if, since the unit read them,
//   - a wallet it appended to gained transactions
//   - a request or approval record it saved changed version
//   - an idempotency key it wrote was committed by someone else
//   - the set of requests matching a list it read changed
type Memory struct {
	mu        sync.RWMutex
	seq       atomic.Int64
	txs       map[generic.WalletID][]generic.Transaction
	byKey     map[string]generic.Transaction
	requests  map[generic.RequestID]*generic.Request
	approvals map[generic.ApprovalID]*generic.ApprovalRequest
	audit     map[generic.RequestID][]generic.AuditEntry
}

func NewMemory() *Memory {
	return &Memory{
		txs:       make(map[generic.WalletID][]generic.Transaction),
		byKey:     make(map[string]generic.Transaction),
		requests:  make(map[generic.RequestID]*generic.Request),
		approvals: make(map[generic.ApprovalID]*generic.ApprovalRequest),
		audit:     make(map[generic.RequestID][]generic.AuditEntry),
	}
}

// WithTx executes fn against a staging view and commits it if fn succeeds.
func (m *Memory) WithTx(ctx context.Context, fn func(generic.Store) error) error {
	v := newView(m)
	if err := fn(v); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return v.commit()
}

// Writes outside WithTx are single-operation units.

func (m *Memory) AppendTransaction(ctx context.Context, tx generic.Transaction, expectedCount int) (generic.Transaction, error) {
	var out generic.Transaction
	err := m.WithTx(ctx, func(s generic.Store) error {
		var err error
		out, err = s.AppendTransaction(ctx, tx, expectedCount)
		return err
	})
	return out, err
}

func (m *Memory) CreateRequest(ctx context.Context, req *generic.Request) error {
	return m.WithTx(ctx, func(s generic.Store) error { return s.CreateRequest(ctx, req) })
}

func (m *Memory) UpdateRequest(ctx context.Context, req *generic.Request) error {
	return m.WithTx(ctx, func(s generic.Store) error { return s.UpdateRequest(ctx, req) })
}

func (m *Memory) CreateApproval(ctx context.Context, a *generic.ApprovalRequest) error {
	return m.WithTx(ctx, func(s generic.Store) error { return s.CreateApproval(ctx, a) })
}

func (m *Memory) UpdateApproval(ctx context.Context, a *generic.ApprovalRequest) error {
	return m.WithTx(ctx, func(s generic.Store) error { return s.UpdateApproval(ctx, a) })
}

func (m *Memory) AppendAudit(ctx context.Context, e generic.AuditEntry) error {
	return m.WithTx(ctx, func(s generic.Store) error { return s.AppendAudit(ctx, e) })
}

// Reads go straight to committed state.

func (m *Memory) FindTransaction(_ context.Context, key string) (*generic.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if tx, ok := m.byKey[key]; ok {
		return &tx, nil
	}
	return nil, nil
}

func (m *Memory) LoadTransactions(_ context.Context, walletID generic.WalletID) ([]generic.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]generic.Transaction(nil), m.txs[walletID]...), nil
}

func (m *Memory) LoadTransactionsAfter(_ context.Context, walletID generic.WalletID, afterSeq int64) ([]generic.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return after(m.txs[walletID], afterSeq), nil
}

func (m *Memory) GetRequest(_ context.Context, id generic.RequestID) (*generic.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", generic.ErrRequestNotFound, id)
	}
	return r.Clone(), nil
}

func (m *Memory) ListRequests(_ context.Context, filter generic.RequestFilter) ([]generic.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return listRequests(m.requests, nil, filter), nil
}

func (m *Memory) GetApproval(_ context.Context, id generic.ApprovalID) (*generic.ApprovalRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.approvals[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", generic.ErrApprovalNotFound, id)
	}
	cp := *a
	return &cp, nil
}

func (m *Memory) ListAudit(_ context.Context, id generic.RequestID) ([]generic.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]generic.AuditEntry(nil), m.audit[id]...), nil
}

// =============================================================================
// STAGING VIEW
// =============================================================================

type view struct {
	m *Memory

	// wallet -> committed count seen at the first staged append
	baseCount map[generic.WalletID]int
	staged    map[generic.WalletID][]generic.Transaction
	keys      map[string]generic.Transaction

	requests   map[generic.RequestID]*generic.Request
	newReqs    map[generic.RequestID]bool
	reqBase    map[generic.RequestID]int64
	approvals  map[generic.ApprovalID]*generic.ApprovalRequest
	newApprs   map[generic.ApprovalID]bool
	apprBase   map[generic.ApprovalID]int64
	auditOrder []generic.AuditEntry

	// committed matches of every list read, rechecked at commit
	lists []listRead
}

type listRead struct {
	filter generic.RequestFilter
	seen   map[generic.RequestID]int64
}

func newView(m *Memory) *view {
	return &view{
		m:         m,
		baseCount: make(map[generic.WalletID]int),
		staged:    make(map[generic.WalletID][]generic.Transaction),
		keys:      make(map[string]generic.Transaction),
		requests:  make(map[generic.RequestID]*generic.Request),
		newReqs:   make(map[generic.RequestID]bool),
		reqBase:   make(map[generic.RequestID]int64),
		approvals: make(map[generic.ApprovalID]*generic.ApprovalRequest),
		newApprs:  make(map[generic.ApprovalID]bool),
		apprBase:  make(map[generic.ApprovalID]int64),
	}
}

// WithTx on a view joins the running unit.
func (v *view) WithTx(_ context.Context, fn func(generic.Store) error) error {
	return fn(v)
}

func (v *view) AppendTransaction(_ context.Context, tx generic.Transaction, expectedCount int) (generic.Transaction, error) {
	key := tx.IdempotencyKey()

	v.m.mu.RLock()
	committedCount := len(v.m.txs[tx.WalletID])
	_, committedKey := v.m.byKey[key]
	v.m.mu.RUnlock()

	if _, ok := v.keys[key]; ok || committedKey {
		return generic.Transaction{}, generic.ErrDuplicateTransaction
	}
	if base, ok := v.baseCount[tx.WalletID]; ok && base != committedCount {
		return generic.Transaction{}, generic.ErrConcurrencyConflict
	}
	if committedCount+len(v.staged[tx.WalletID]) != expectedCount {
		return generic.Transaction{}, generic.ErrConcurrencyConflict
	}
	if _, ok := v.baseCount[tx.WalletID]; !ok {
		v.baseCount[tx.WalletID] = committedCount
	}

	tx.Seq = v.m.seq.Add(1)
	v.staged[tx.WalletID] = append(v.staged[tx.WalletID], tx)
	v.keys[key] = tx
	return tx, nil
}

func (v *view) FindTransaction(ctx context.Context, key string) (*generic.Transaction, error) {
	if tx, ok := v.keys[key]; ok {
		return &tx, nil
	}
	return v.m.FindTransaction(ctx, key)
}

func (v *view) LoadTransactions(ctx context.Context, walletID generic.WalletID) ([]generic.Transaction, error) {
	txs, err := v.m.LoadTransactions(ctx, walletID)
	if err != nil {
		return nil, err
	}
	return append(txs, v.staged[walletID]...), nil
}

func (v *view) LoadTransactionsAfter(ctx context.Context, walletID generic.WalletID, afterSeq int64) ([]generic.Transaction, error) {
	txs, err := v.LoadTransactions(ctx, walletID)
	if err != nil {
		return nil, err
	}
	return after(txs, afterSeq), nil
}

func (v *view) CreateRequest(_ context.Context, req *generic.Request) error {
	if _, ok := v.requests[req.ID]; ok {
		return generic.NewValidationError("id", fmt.Sprintf("request %s already exists", req.ID))
	}
	v.m.mu.RLock()
	_, exists := v.m.requests[req.ID]
	v.m.mu.RUnlock()
	if exists {
		return generic.NewValidationError("id", fmt.Sprintf("request %s already exists", req.ID))
	}
	req.Version = 1
	v.requests[req.ID] = req.Clone()
	v.newReqs[req.ID] = true
	return nil
}

func (v *view) UpdateRequest(ctx context.Context, req *generic.Request) error {
	current, err := v.GetRequest(ctx, req.ID)
	if err != nil {
		return err
	}
	if current.Version != req.Version {
		return generic.ErrConcurrencyConflict
	}
	if _, ok := v.reqBase[req.ID]; !ok && !v.newReqs[req.ID] {
		v.reqBase[req.ID] = current.Version
	}
	req.Version++
	v.requests[req.ID] = req.Clone()
	return nil
}

func (v *view) GetRequest(ctx context.Context, id generic.RequestID) (*generic.Request, error) {
	if r, ok := v.requests[id]; ok {
		return r.Clone(), nil
	}
	return v.m.GetRequest(ctx, id)
}

// ListRequests remembers which committed requests matched. If that set
// changes before commit, the unit fails with ErrConcurrencyConflict, so a
// check made over a list cannot be raced by another unit.
func (v *view) ListRequests(_ context.Context, filter generic.RequestFilter) ([]generic.Request, error) {
	v.m.mu.RLock()
	defer v.m.mu.RUnlock()
	v.lists = append(v.lists, listRead{filter: filter, seen: matching(v.m.requests, filter)})
	return listRequests(v.m.requests, v.requests, filter), nil
}

func (v *view) CreateApproval(_ context.Context, a *generic.ApprovalRequest) error {
	v.m.mu.RLock()
	_, exists := v.m.approvals[a.ID]
	v.m.mu.RUnlock()
	if _, staged := v.approvals[a.ID]; exists || staged {
		return generic.NewValidationError("id", fmt.Sprintf("approval %s already exists", a.ID))
	}
	a.Version = 1
	cp := *a
	v.approvals[a.ID] = &cp
	v.newApprs[a.ID] = true
	return nil
}

func (v *view) UpdateApproval(ctx context.Context, a *generic.ApprovalRequest) error {
	current, err := v.GetApproval(ctx, a.ID)
	if err != nil {
		return err
	}
	if current.Version != a.Version {
		return generic.ErrConcurrencyConflict
	}
	if _, ok := v.apprBase[a.ID]; !ok && !v.newApprs[a.ID] {
		v.apprBase[a.ID] = current.Version
	}
	a.Version++
	cp := *a
	v.approvals[a.ID] = &cp
	return nil
}

func (v *view) GetApproval(ctx context.Context, id generic.ApprovalID) (*generic.ApprovalRequest, error) {
	if a, ok := v.approvals[id]; ok {
		cp := *a
		return &cp, nil
	}
	return v.m.GetApproval(ctx, id)
}

func (v *view) AppendAudit(_ context.Context, e generic.AuditEntry) error {
	v.auditOrder = append(v.auditOrder, e)
	return nil
}

func (v *view) ListAudit(ctx context.Context, id generic.RequestID) ([]generic.AuditEntry, error) {
	entries, err := v.m.ListAudit(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, e := range v.auditOrder {
		if e.RequestID == id {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// commit validates the staged writes against committed state and applies
// them. Nothing is applied if any check fails.
func (v *view) commit() error {
	m := v.m
	m.mu.Lock()
	defer m.mu.Unlock()

	for walletID, base := range v.baseCount {
		if len(m.txs[walletID]) != base {
			return generic.ErrConcurrencyConflict
		}
	}
	for key := range v.keys {
		if _, ok := m.byKey[key]; ok {
			return generic.ErrConcurrencyConflict
		}
	}
	for id := range v.newReqs {
		if _, ok := m.requests[id]; ok {
			return generic.ErrConcurrencyConflict
		}
	}
	for id, base := range v.reqBase {
		if r, ok := m.requests[id]; !ok || r.Version != base {
			return generic.ErrConcurrencyConflict
		}
	}
	for id := range v.newApprs {
		if _, ok := m.approvals[id]; ok {
			return generic.ErrConcurrencyConflict
		}
	}
	for id, base := range v.apprBase {
		if a, ok := m.approvals[id]; !ok || a.Version != base {
			return generic.ErrConcurrencyConflict
		}
	}
	for _, l := range v.lists {
		if !maps.Equal(matching(m.requests, l.filter), l.seen) {
			return generic.ErrConcurrencyConflict
		}
	}

	for walletID, txs := range v.staged {
		m.txs[walletID] = append(m.txs[walletID], txs...)
	}
	for key, tx := range v.keys {
		m.byKey[key] = tx
	}
	for id, r := range v.requests {
		m.requests[id] = r
	}
	for id, a := range v.approvals {
		m.approvals[id] = a
	}
	for _, e := range v.auditOrder {
		m.audit[e.RequestID] = append(m.audit[e.RequestID], e)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func after(txs []generic.Transaction, afterSeq int64) []generic.Transaction {
	i := sort.Search(len(txs), func(i int) bool { return txs[i].Seq > afterSeq })
	return append([]generic.Transaction(nil), txs[i:]...)
}

// matching returns the version of every request that matches filter.
func matching(reqs map[generic.RequestID]*generic.Request, filter generic.RequestFilter) map[generic.RequestID]int64 {
	out := make(map[generic.RequestID]int64)
	for id, r := range reqs {
		if filter.Matches(r) {
			out[id] = r.Version
		}
	}
	return out
}

// listRequests merges committed and staged requests, ordered by creation.
func listRequests(committed, staged map[generic.RequestID]*generic.Request, filter generic.RequestFilter) []generic.Request {
	var out []generic.Request
	for id, r := range committed {
		if s, ok := staged[id]; ok {
			r = s
		}
		if filter.Matches(r) {
			out = append(out, *r.Clone())
		}
	}
	for id, r := range staged {
		if _, ok := committed[id]; ok {
			continue
		}
		if filter.Matches(r) {
			out = append(out, *r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

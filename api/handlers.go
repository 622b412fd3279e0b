/*
handlers.go - HTTP API handlers for the approval ledger

PURPOSE:

	Exposes the engine via REST. Handles HTTP request/response, JSON
	serialization, conflict retries, and delegates to the engine.

ENDPOINTS:

	Requests:
	  POST   /api/leave                         Create leave draft
	  POST   /api/trips                         Create trip draft
	  POST   /api/expenses                      Create expense report draft
	  GET    /api/requests                      List (owner_id, domain, wallet_id, status)
	  GET    /api/requests/{id}                 Get request
	  GET    /api/requests/{id}/history         Audit trail
	  POST   /api/requests/{id}/submit          draft -> submitted
	  POST   /api/requests/{id}/route           Open centralized approval
	  POST   /api/requests/{id}/approve         Legacy or centralized approve
	  POST   /api/requests/{id}/reject          Legacy or centralized reject
	  POST   /api/requests/{id}/cancel          Cancel with compensation
	  POST   /api/requests/{id}/complete        approved -> completed
	  POST   /api/requests/{id}/pay             approved -> paid

	Approvals:
	  GET    /api/approvals/{id}                Get approval record
	  POST   /api/approvals/{id}/decide         Decide by approval id

	Wallets:
	  POST   /api/wallets                       Initialize wallet
	  GET    /api/wallets/{id}                  Balance ({"initialized": false} if empty)
	  GET    /api/wallets/{id}/transactions     Transaction log, oldest first
	  POST   /api/wallets/{id}/transactions     Append transaction

	Leave balances:
	  GET    /api/owners/{owner}/balances/{period}              Summary
	  POST   /api/owners/{owner}/balances/{period}/recalculate  Recalculate accrual

ERROR HANDLING:

  - 400: Validation errors

  - 403: Not authorized, insufficient budget

  - 404: Not found

  - 409: Invalid transition, concurrency conflict after retries

  - 500: Internal errors

    Writes that fail with a concurrency conflict are retried as a whole
    (see retry.go) before the 409 is returned.
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/approval-ledger/expense"
	"github.com/warp/approval-ledger/generic"
	"github.com/warp/approval-ledger/leave"
	"github.com/warp/approval-ledger/trip"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

type Handler struct {
	Engine *generic.Engine
	Logger *zap.Logger
	Retry  RetryConfig
}

func NewHandler(engine *generic.Engine, logger *zap.Logger, retry RetryConfig) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Engine: engine, Logger: logger, Retry: retry}
}

func (h *Handler) machine() *generic.Machine { return h.Engine.Requests.Machine() }

// =============================================================================
// REQUEST CREATION
// =============================================================================

func (h *Handler) CreateLeave(w http.ResponseWriter, r *http.Request) {
	var in leave.Input
	if !decode(w, r, &in) {
		return
	}
	req, err := leave.Create(r.Context(), h.Engine.Requests, in)
	h.writeRequest(w, http.StatusCreated, req, err)
}

func (h *Handler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var in trip.Input
	if !decode(w, r, &in) {
		return
	}
	req, err := trip.Create(r.Context(), h.Engine.Requests, in)
	h.writeRequest(w, http.StatusCreated, req, err)
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var in expense.Input
	if !decode(w, r, &in) {
		return
	}
	req, err := expense.Create(r.Context(), h.Engine.Requests, in)
	h.writeRequest(w, http.StatusCreated, req, err)
}

// =============================================================================
// REQUEST QUERIES
// =============================================================================

func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := generic.RequestFilter{
		OwnerID:  q.Get("owner_id"),
		Domain:   generic.Domain(q.Get("domain")),
		WalletID: generic.WalletID(q.Get("wallet_id")),
	}
	for _, raw := range q["status"] {
		for _, s := range strings.Split(raw, ",") {
			st := generic.Status(strings.TrimSpace(s))
			if !st.IsValid() {
				writeError(w, http.StatusBadRequest, "unknown status "+string(st), nil)
				return
			}
			filter.Statuses = append(filter.Statuses, st)
		}
	}

	reqs, err := h.Engine.Requests.List(r.Context(), filter)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	dtos := make([]RequestDTO, len(reqs))
	for i := range reqs {
		dtos[i] = toRequestDTO(&reqs[i], h.machine())
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Engine.Requests.Get(r.Context(), requestID(r))
	h.writeRequest(w, http.StatusOK, req, err)
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Engine.Requests.History(r.Context(), requestID(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	dtos := make([]AuditDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAuditDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TRANSITIONS
// =============================================================================

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, id generic.RequestID, body ActorRequest) (*generic.Request, error) {
		return h.Engine.Submit(ctx, id, body.ActorID)
	})
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, id generic.RequestID, body ActorRequest) (*generic.Request, error) {
		return h.Engine.Cancel(ctx, id, body.ActorID, body.Reason)
	})
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, id generic.RequestID, body ActorRequest) (*generic.Request, error) {
		return h.Engine.Requests.Complete(ctx, id, body.ActorID)
	})
}

func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, id generic.RequestID, body ActorRequest) (*generic.Request, error) {
		return h.Engine.Requests.Pay(ctx, id, body.ActorID)
	})
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decision(w, r, h.Engine.Approve)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decision(w, r, h.Engine.Reject)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, generic.RequestID, ActorRequest) (*generic.Request, error)) {
	var body ActorRequest
	if !decodeValid(w, r, &body) {
		return
	}
	id := requestID(r)
	req, err := withRetry(r.Context(), h.Retry, func(ctx context.Context) (*generic.Request, error) {
		return fn(ctx, id, body)
	})
	h.writeRequest(w, http.StatusOK, req, err)
}

func (h *Handler) decision(w http.ResponseWriter, r *http.Request, fn func(context.Context, generic.Decision) (*generic.Request, error)) {
	var body DecisionRequest
	if !decodeValid(w, r, &body) {
		return
	}
	d := body.decision(requestID(r))
	req, err := withRetry(r.Context(), h.Retry, func(ctx context.Context) (*generic.Request, error) {
		return fn(ctx, d)
	})
	h.writeRequest(w, http.StatusOK, req, err)
}

// =============================================================================
// APPROVALS
// =============================================================================

func (h *Handler) OpenApproval(w http.ResponseWriter, r *http.Request) {
	var body OpenApprovalRequest
	if !decodeValid(w, r, &body) {
		return
	}
	type opened struct {
		approval *generic.ApprovalRequest
		request  *generic.Request
	}
	id := requestID(r)
	res, err := withRetry(r.Context(), h.Retry, func(ctx context.Context) (opened, error) {
		a, req, err := h.Engine.Approvals.Open(ctx, id, body.ApproverID, body.ActorID)
		return opened{a, req}, err
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, OpenApprovalDTO{
		Approval: toApprovalDTO(res.approval),
		Request:  toRequestDTO(res.request, h.machine()),
	})
}

func (h *Handler) GetApproval(w http.ResponseWriter, r *http.Request) {
	a, err := h.Engine.Approvals.GetApproval(r.Context(), generic.ApprovalID(chi.URLParam(r, "id")))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toApprovalDTO(a))
}

func (h *Handler) DecideApproval(w http.ResponseWriter, r *http.Request) {
	var body DecideRequest
	if !decodeValid(w, r, &body) {
		return
	}
	id := generic.ApprovalID(chi.URLParam(r, "id"))
	d := body.decision("")
	req, err := withRetry(r.Context(), h.Retry, func(ctx context.Context) (*generic.Request, error) {
		return h.Engine.Approvals.Decide(ctx, id, generic.ApprovalDecision(body.Decision), d)
	})
	h.writeRequest(w, http.StatusOK, req, err)
}

// =============================================================================
// WALLETS
// =============================================================================

func (h *Handler) InitializeWallet(w http.ResponseWriter, r *http.Request) {
	var body InitializeWalletRequest
	if !decodeValid(w, r, &body) {
		return
	}
	in := generic.InitializeInput{
		WalletID:   generic.WalletID(body.WalletID),
		WalletKind: generic.WalletKind(body.WalletKind),
		Opening:    generic.Amount{Value: body.Opening, Unit: generic.Unit(body.Unit)},
		CauseID:    body.CauseID,
		Kind:       generic.TransactionKind(body.Kind),
		Actor:      body.ActorID,
		Reason:     body.Reason,
	}
	res, err := withRetry(r.Context(), h.Retry, func(ctx context.Context) (generic.WalletResult, error) {
		return h.Engine.InitializeWallet(ctx, in)
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, WalletResultDTO{Balance: toBalanceDTO(res.Balance), Replayed: res.Replayed})
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := generic.WalletID(chi.URLParam(r, "id"))
	bal, err := h.Engine.GetBalance(r.Context(), id)
	if generic.IsNotInitialized(err) {
		writeJSON(w, http.StatusOK, BalanceDTO{WalletID: string(id), Initialized: false})
		return
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(bal))
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Engine.ListTransactions(r.Context(), generic.WalletID(chi.URLParam(r, "id")))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) AppendTransaction(w http.ResponseWriter, r *http.Request) {
	var body AppendTransactionRequest
	if !decodeValid(w, r, &body) {
		return
	}
	entry := generic.Entry{
		WalletID:    generic.WalletID(chi.URLParam(r, "id")),
		Amount:      generic.Amount{Value: body.Amount, Unit: generic.Unit(body.Unit)},
		Kind:        generic.TransactionKind(body.Kind),
		CauseID:     body.CauseID,
		Reason:      body.Reason,
		Actor:       body.ActorID,
		NoOverdraft: body.NoOverdraft,
	}
	res, err := withRetry(r.Context(), h.Retry, func(ctx context.Context) (generic.AppendResult, error) {
		return h.Engine.AppendTransaction(ctx, entry)
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, AppendResultDTO{
		Transaction: toTransactionDTO(res.Transaction),
		Balance:     toBalanceDTO(res.Balance),
		Replayed:    res.Replayed,
	})
}

// =============================================================================
// LEAVE BALANCES
// =============================================================================

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	owner, period, ok := ownerPeriod(w, r)
	if !ok {
		return
	}
	s, err := h.Engine.GetBalanceSummary(r.Context(), owner, period)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(s))
}

func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	owner, period, ok := ownerPeriod(w, r)
	if !ok {
		return
	}
	s, err := withRetry(r.Context(), h.Retry, func(ctx context.Context) (generic.Summary, error) {
		return h.Engine.RecalculateAccrual(ctx, owner, period)
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(s))
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) writeRequest(w http.ResponseWriter, status int, req *generic.Request, err error) {
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.Logger.Error("request failed", zap.Error(err))
		}
		writeEngineError(w, err)
		return
	}
	writeJSON(w, status, toRequestDTO(req, h.machine()))
}

func requestID(r *http.Request) generic.RequestID {
	return generic.RequestID(chi.URLParam(r, "id"))
}

func ownerPeriod(w http.ResponseWriter, r *http.Request) (string, generic.Period, bool) {
	period, err := generic.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		writeEngineError(w, err)
		return "", generic.Period{}, false
	}
	return chi.URLParam(r, "owner"), period, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// decodeValid decodes v and checks its validate tags.
func decodeValid(w http.ResponseWriter, r *http.Request, v any) bool {
	if !decode(w, r, v) {
		return false
	}
	if err := generic.ValidateStruct(v); err != nil {
		writeEngineError(w, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	requests and wallets by driving the engine the way a client would.

AVAILABLE SCENARIOS:

	trip-expenses:  Approved trip with a partially approved expense report
	leave-year:     Opened leave wallet, one approved and one routed request

HOW SCENARIOS WORK:
 1. Create drafts through the domain packages
 2. Submit, route and decide them through the engine
 3. Return the ids of everything created

Ids are generated, so loading trip-expenses twice creates a second copy.
A second leave-year load for the same owner fails: the days are taken.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "trip-expenses", "approver_id": "hr-1"}

NOTE:

	Only mounted when scenarios are enabled. The approver must be allowed
	by the configured authorizer to approve the amounts involved.
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/approval-ledger/expense"
	"github.com/warp/approval-ledger/generic"
	"github.com/warp/approval-ledger/leave"
	"github.com/warp/approval-ledger/trip"
)

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
	ApproverID string `json:"approver_id" validate:"required"`
	OwnerID    string `json:"owner_id"`
}

type ScenarioResultDTO struct {
	ScenarioID string   `json:"scenario_id"`
	Requests   []string `json:"requests"`
	Wallets    []string `json:"wallets"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "trip-expenses",
		Name:        "Trip With Expenses",
		Description: "1000 budget trip; expense report of 50, 30, 20 with the 30 rejected",
		Category:    "trip",
	},
	{
		ID:          "leave-year",
		Name:        "Leave Year",
		Description: "25 day leave wallet; 3 days approved, 2 days pending approval",
		Category:    "leave",
	},
}

func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if req.OwnerID == "" {
		req.OwnerID = "emp-demo"
	}

	var (
		res ScenarioResultDTO
		err error
	)
	switch req.ScenarioID {
	case "trip-expenses":
		res, err = h.loadTripExpensesScenario(r.Context(), req)
	case "leave-year":
		res, err = h.loadLeaveYearScenario(r.Context(), req)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}
	if err != nil {
		writeEngineError(w, fmt.Errorf("load scenario %s: %w", req.ScenarioID, err))
		return
	}
	res.ScenarioID = req.ScenarioID
	writeJSON(w, http.StatusOK, res)
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadTripExpensesScenario(ctx context.Context, in LoadScenarioRequest) (ScenarioResultDTO, error) {
	var res ScenarioResultDTO
	e := h.Engine
	start := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, 14)

	t, err := trip.Create(ctx, e.Requests, trip.Input{
		OwnerID:     in.OwnerID,
		Type:        trip.TypeDomestic,
		Destination: "Milan",
		Purpose:     "customer workshop",
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, 3),
		Budget:      1000,
	})
	if err != nil {
		return res, err
	}
	if _, err := e.Submit(ctx, t.ID, in.OwnerID); err != nil {
		return res, err
	}
	if _, err := e.Approve(ctx, generic.Decision{RequestID: t.ID, ActorID: in.ApproverID}); err != nil {
		return res, err
	}
	res.Requests = append(res.Requests, string(t.ID))
	res.Wallets = append(res.Wallets, string(t.WalletID))

	x, err := expense.Create(ctx, e.Requests, expense.Input{
		OwnerID: in.OwnerID,
		TripID:  string(t.ID),
		Date:    start.AddDate(0, 0, 3),
		Items: []expense.ItemInput{
			{ID: "hotel", Description: "Hotel", Category: "lodging", Amount: 50},
			{ID: "dinner", Description: "Team dinner", Category: "meals", Amount: 30},
			{ID: "taxi", Description: "Taxi", Category: "transport", Amount: 20},
		},
	})
	if err != nil {
		return res, err
	}
	if _, err := e.Submit(ctx, x.ID, in.OwnerID); err != nil {
		return res, err
	}
	if _, err := e.Approve(ctx, generic.Decision{
		RequestID: x.ID,
		ActorID:   in.ApproverID,
		Items: map[string]generic.ItemDecision{
			"hotel": generic.ItemAccepted,
			"taxi":  generic.ItemAccepted,
		},
	}); err != nil {
		return res, err
	}
	res.Requests = append(res.Requests, string(x.ID))
	return res, nil
}

func (h *Handler) loadLeaveYearScenario(ctx context.Context, in LoadScenarioRequest) (ScenarioResultDTO, error) {
	var res ScenarioResultDTO
	e := h.Engine
	now := time.Now().UTC()
	period := generic.PeriodFor(now)
	wallet := generic.LeaveWalletID(in.OwnerID, period)

	if _, err := e.InitializeWallet(ctx, generic.InitializeInput{
		WalletID:   wallet,
		WalletKind: generic.WalletLeaveBalance,
		Opening:    generic.NewAmount(25, generic.UnitDays),
		CauseID:    "scenario-opening:" + string(wallet),
		Actor:      in.ApproverID,
		Reason:     "opening balance",
	}); err != nil {
		return res, err
	}
	res.Wallets = append(res.Wallets, string(wallet))

	// Both requests fall in the current period.
	first := period.Start.AddDate(0, 2, 0)
	approved, err := leave.Create(ctx, e.Requests, leave.Input{
		OwnerID:   in.OwnerID,
		Type:      leave.TypeVacation,
		StartDate: first,
		EndDate:   first.AddDate(0, 0, 2),
		Days:      3,
	})
	if err != nil {
		return res, err
	}
	if _, err := e.Submit(ctx, approved.ID, in.OwnerID); err != nil {
		return res, err
	}
	if _, err := e.Approve(ctx, generic.Decision{RequestID: approved.ID, ActorID: in.ApproverID}); err != nil {
		return res, err
	}
	res.Requests = append(res.Requests, string(approved.ID))

	second := period.Start.AddDate(0, 8, 0)
	pending, err := leave.Create(ctx, e.Requests, leave.Input{
		OwnerID:   in.OwnerID,
		Type:      leave.TypePersonal,
		StartDate: second,
		EndDate:   second.AddDate(0, 0, 1),
		Days:      2,
	})
	if err != nil {
		return res, err
	}
	if _, err := e.Submit(ctx, pending.ID, in.OwnerID); err != nil {
		return res, err
	}
	if _, _, err := e.Approvals.Open(ctx, pending.ID, in.ApproverID, in.OwnerID); err != nil {
		return res, err
	}
	res.Requests = append(res.Requests, string(pending.ID))
	return res, nil
}

/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:

	Defines the JSON structures for API communication. These types decouple
	the engine's model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:

	Amounts travel as decimal strings ("1250.50") and are decoded without
	going through float64.

CREATE BODIES:

	Leave, trip and expense creation decode straight into leave.Input,
	trip.Input and expense.Input, which carry their own validation tags.

SEE ALSO:
  - handlers.go: Uses these types
  - errors.go: ErrorResponse
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/approval-ledger/generic"
)

// =============================================================================
// REQUEST BODIES
// =============================================================================

// ActorRequest is the body of submit, cancel, complete and pay.
type ActorRequest struct {
	ActorID string `json:"actor_id" validate:"required"`
	Reason  string `json:"reason"`
}

// DecisionRequest is the body of approve and reject.
type DecisionRequest struct {
	ActorID string            `json:"actor_id" validate:"required"`
	Notes   string            `json:"notes"`
	Reason  string            `json:"reason"`
	Items   map[string]string `json:"items"`
}

func (d DecisionRequest) decision(id generic.RequestID) generic.Decision {
	out := generic.Decision{RequestID: id, ActorID: d.ActorID, Notes: d.Notes, Reason: d.Reason}
	if len(d.Items) > 0 {
		out.Items = make(map[string]generic.ItemDecision, len(d.Items))
		for k, v := range d.Items {
			out.Items[k] = generic.ItemDecision(v)
		}
	}
	return out
}

// OpenApprovalRequest routes a submitted request to an approver.
type OpenApprovalRequest struct {
	ApproverID string `json:"approver_id" validate:"required"`
	ActorID    string `json:"actor_id" validate:"required"`
}

// DecideRequest decides a centralized approval record.
type DecideRequest struct {
	DecisionRequest
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
}

type InitializeWalletRequest struct {
	WalletID   string          `json:"wallet_id" validate:"required"`
	WalletKind string          `json:"wallet_kind" validate:"required,oneof=trip_budget leave_balance"`
	Opening    decimal.Decimal `json:"opening"`
	Unit       string          `json:"unit" validate:"required,oneof=days hours currency"`
	CauseID    string          `json:"cause_id" validate:"required"`
	Kind       string          `json:"kind" validate:"omitempty,oneof=allocation accrual"`
	ActorID    string          `json:"actor_id" validate:"required"`
	Reason     string          `json:"reason"`
}

type AppendTransactionRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Unit        string          `json:"unit" validate:"required,oneof=days hours currency"`
	Kind        string          `json:"kind" validate:"required,oneof=allocation consumption refund adjustment accrual"`
	CauseID     string          `json:"cause_id" validate:"required"`
	Reason      string          `json:"reason"`
	ActorID     string          `json:"actor_id" validate:"required"`
	NoOverdraft bool            `json:"no_overdraft"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type RequestDTO struct {
	ID                string            `json:"id"`
	OwnerID           string            `json:"owner_id"`
	Domain            string            `json:"domain"`
	Status            string            `json:"status"`
	Amount            decimal.Decimal   `json:"amount"`
	Unit              string            `json:"unit"`
	ApprovedAmount    *decimal.Decimal  `json:"approved_amount,omitempty"`
	WalletID          string            `json:"wallet_id"`
	ApprovalID        string            `json:"approval_id,omitempty"`
	Type              string            `json:"type,omitempty"`
	StartDate         string            `json:"start_date,omitempty"`
	EndDate           string            `json:"end_date,omitempty"`
	Items             []LineItemDTO     `json:"items,omitempty"`
	Attributes        map[string]string `json:"attributes,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	TransitionedAt    time.Time         `json:"transitioned_at"`
	TransitionedBy    string            `json:"transitioned_by"`
	Reason            string            `json:"reason,omitempty"`
	Notes             string            `json:"notes,omitempty"`
	Version           int64             `json:"version"`
	PermittedTriggers []string          `json:"permitted_triggers"`
}

type LineItemDTO struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Category    string          `json:"category,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Decision    string          `json:"decision"`
}

type TransactionDTO struct {
	ID         string          `json:"id"`
	WalletID   string          `json:"wallet_id"`
	WalletKind string          `json:"wallet_kind"`
	Amount     decimal.Decimal `json:"amount"`
	Unit       string          `json:"unit"`
	Kind       string          `json:"kind"`
	CauseID    string          `json:"cause_id"`
	Reason     string          `json:"reason,omitempty"`
	Seq        int64           `json:"seq"`
	CreatedBy  string          `json:"created_by"`
	CreatedAt  time.Time       `json:"created_at"`
}

type BalanceDTO struct {
	WalletID    string          `json:"wallet_id"`
	Initialized bool            `json:"initialized"`
	Kind        string          `json:"kind,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Unit        string          `json:"unit,omitempty"`
	Count       int             `json:"count"`
}

type WalletResultDTO struct {
	Balance  BalanceDTO `json:"balance"`
	Replayed bool       `json:"replayed"`
}

type AppendResultDTO struct {
	Transaction TransactionDTO `json:"transaction"`
	Balance     BalanceDTO     `json:"balance"`
	Replayed    bool           `json:"replayed"`
}

type SummaryDTO struct {
	OwnerID     string          `json:"owner_id"`
	Period      string          `json:"period"`
	WalletID    string          `json:"wallet_id"`
	Initialized bool            `json:"initialized"`
	Opening     decimal.Decimal `json:"opening"`
	Accrued     decimal.Decimal `json:"accrued"`
	Consumed    decimal.Decimal `json:"consumed"`
	Reserved    decimal.Decimal `json:"reserved"`
	Available   decimal.Decimal `json:"available"`
	Unit        string          `json:"unit"`
}

type ApprovalDTO struct {
	ID         string     `json:"id"`
	RequestID  string     `json:"request_id"`
	ApproverID string     `json:"approver_id"`
	Decision   string     `json:"decision"`
	Notes      string     `json:"notes,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	DecidedAt  *time.Time `json:"decided_at,omitempty"`
	DecidedBy  string     `json:"decided_by,omitempty"`
}

type OpenApprovalDTO struct {
	Approval ApprovalDTO `json:"approval"`
	Request  RequestDTO  `json:"request"`
}

type AuditDTO struct {
	ID      string            `json:"id"`
	ActorID string            `json:"actor_id"`
	From    string            `json:"from"`
	To      string            `json:"to"`
	Trigger string            `json:"trigger"`
	At      time.Time         `json:"at"`
	Payload map[string]string `json:"payload,omitempty"`
}

// =============================================================================
// MAPPERS
// =============================================================================

func toRequestDTO(r *generic.Request, m *generic.Machine) RequestDTO {
	dto := RequestDTO{
		ID:             string(r.ID),
		OwnerID:        r.OwnerID,
		Domain:         string(r.Domain),
		Status:         string(r.Status),
		Amount:         r.Amount.Value,
		Unit:           string(r.Amount.Unit),
		WalletID:       string(r.WalletID),
		Type:           r.Type,
		StartDate:      formatDate(r.StartDate),
		EndDate:        formatDate(r.EndDate),
		Attributes:     r.Attributes,
		CreatedAt:      r.CreatedAt,
		TransitionedAt: r.TransitionedAt,
		TransitionedBy: r.TransitionedBy,
		Reason:         r.Reason,
		Notes:          r.Notes,
		Version:        r.Version,
	}
	if r.ApprovedAmount != nil {
		v := r.ApprovedAmount.Value
		dto.ApprovedAmount = &v
	}
	if r.ApprovalID != nil {
		dto.ApprovalID = string(*r.ApprovalID)
	}
	for _, it := range r.Items {
		dto.Items = append(dto.Items, LineItemDTO{
			ID:          it.ID,
			Description: it.Description,
			Category:    it.Category,
			Amount:      it.Amount.Value,
			Decision:    string(it.Decision),
		})
	}
	dto.PermittedTriggers = []string{}
	if m != nil {
		for _, t := range m.PermittedTriggers(r.Status) {
			dto.PermittedTriggers = append(dto.PermittedTriggers, string(t))
		}
	}
	return dto
}

func toTransactionDTO(tx generic.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:         string(tx.ID),
		WalletID:   string(tx.WalletID),
		WalletKind: string(tx.WalletKind),
		Amount:     tx.Amount.Value,
		Unit:       string(tx.Amount.Unit),
		Kind:       string(tx.Kind),
		CauseID:    tx.CauseID,
		Reason:     tx.Reason,
		Seq:        tx.Seq,
		CreatedBy:  tx.CreatedBy,
		CreatedAt:  tx.CreatedAt,
	}
}

func toBalanceDTO(b generic.Balance) BalanceDTO {
	return BalanceDTO{
		WalletID:    string(b.WalletID),
		Initialized: true,
		Kind:        string(b.Kind),
		Amount:      b.Amount.Value,
		Unit:        string(b.Amount.Unit),
		Count:       b.Count,
	}
}

func toSummaryDTO(s generic.Summary) SummaryDTO {
	return SummaryDTO{
		OwnerID:     s.OwnerID,
		Period:      s.Period.Key(),
		WalletID:    string(s.WalletID),
		Initialized: s.Initialized,
		Opening:     s.Opening.Value,
		Accrued:     s.Accrued.Value,
		Consumed:    s.Consumed.Value,
		Reserved:    s.Reserved.Value,
		Available:   s.Available.Value,
		Unit:        string(s.Available.Unit),
	}
}

func toApprovalDTO(a *generic.ApprovalRequest) ApprovalDTO {
	return ApprovalDTO{
		ID:         string(a.ID),
		RequestID:  string(a.RequestID),
		ApproverID: a.ApproverID,
		Decision:   string(a.Decision),
		Notes:      a.Notes,
		Reason:     a.Reason,
		CreatedAt:  a.CreatedAt,
		DecidedAt:  a.DecidedAt,
		DecidedBy:  a.DecidedBy,
	}
}

func toAuditDTO(e generic.AuditEntry) AuditDTO {
	return AuditDTO{
		ID:      e.ID,
		ActorID: e.ActorID,
		From:    string(e.From),
		To:      string(e.To),
		Trigger: string(e.Trigger),
		At:      e.At,
		Payload: e.Payload,
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

package api

import (
	"errors"
	"net/http"

	"github.com/warp/approval-ledger/generic"
	"github.com/warp/approval-ledger/leave"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, generic.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, generic.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, generic.ErrInvalidTransition), errors.Is(err, generic.ErrConcurrencyConflict):
		return http.StatusConflict
	case generic.IsNotFound(err), generic.IsNotInitialized(err):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// writeEngineError reports err with the user-facing message of the
// structured error it carries. Internal errors are not echoed.
func writeEngineError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Details: err.Error()}

	var (
		ve *generic.ValidationError
		na *generic.NotAuthorizedError
		be *generic.BudgetExceededError
		te *generic.TransitionError
		oe *leave.OverlapError
	)
	switch {
	case errors.As(err, &ve):
		resp.Error = ve.Message
		resp.Field = ve.Field
	case errors.As(err, &oe):
		resp.Error = oe.Error()
		resp.Field = "start_date"
	case errors.As(err, &be):
		resp.Error = be.Error()
	case errors.As(err, &na):
		resp.Error = na.Error()
	case errors.As(err, &te):
		resp.Error = te.Error()
		if errors.Is(err, generic.ErrAlreadyDecided) {
			resp.Error = generic.ErrAlreadyDecided.Error()
		}
	case errors.Is(err, generic.ErrConcurrencyConflict):
		resp.Error = "concurrent modification, please retry"
	case status == http.StatusNotFound:
		resp.Error = "not found"
	default:
		resp.Error = "internal error"
		resp.Details = ""
	}
	writeJSON(w, status, resp)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

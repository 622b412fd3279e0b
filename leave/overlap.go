package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/approval-ledger/generic"
)

// =============================================================================
// OVERLAP - No calendar day is taken off twice
// =============================================================================

// Unlike currency, leave days are calendar days: an owner cannot be off
// twice on March 10th. A submission is refused if its date range overlaps
// another leave request of the same owner that is pending, approved or
// completed. Rejected and cancelled requests give their days back.

// OverlapError reports the request already holding the overlapping days.
type OverlapError struct {
	OwnerID    string
	ExistingID generic.RequestID
	From, To   time.Time
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("leave %s to %s overlaps request %s of %s",
		e.From.Format("2006-01-02"), e.To.Format("2006-01-02"), e.ExistingID, e.OwnerID)
}

func (e *OverlapError) Unwrap() error { return generic.ErrValidation }

var holdingDays = []generic.Status{
	generic.StatusSubmitted,
	generic.StatusPendingApproval,
	generic.StatusApproved,
	generic.StatusCompleted,
}

// checkOverlap returns an *OverlapError if req's days are already held.
func checkOverlap(ctx context.Context, s generic.Store, req *generic.Request) error {
	others, err := s.ListRequests(ctx, generic.RequestFilter{
		OwnerID:  req.OwnerID,
		Domain:   generic.DomainLeave,
		Statuses: holdingDays,
	})
	if err != nil {
		return fmt.Errorf("list leave of %s: %w", req.OwnerID, err)
	}
	for _, o := range others {
		if o.ID == req.ID {
			continue
		}
		if overlaps(req.StartDate, req.EndDate, o.StartDate, o.EndDate) {
			return &OverlapError{
				OwnerID:    req.OwnerID,
				ExistingID: o.ID,
				From:       req.StartDate,
				To:         req.EndDate,
			}
		}
	}
	return nil
}

// overlaps compares whole days, both ends inclusive.
func overlaps(aFrom, aTo, bFrom, bTo time.Time) bool {
	return !day(aTo).Before(day(bFrom)) && !day(bTo).Before(day(aFrom))
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

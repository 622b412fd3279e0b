/*
Package policy holds reference implementations of the collaborators the
engine consumes but does not own.

STATIC LIMITS:

	Every approver has a spending limit in the amount's unit. A limit of 0
	means unlimited. An actor without a configured limit cannot approve.

	  limits, _ := policy.ParseLimits("mgr-1:5000,hr-1:0")
	  limits.CanApprove(ctx, "mgr-1", amount) // true while amount <= 5000

ACCRUAL:

	MonthlyAccrual grants a fixed number of days per month of the period,
	prorated from the owner's hire date. TenureAccrual picks the annual rate
	from the owner's years of service.

SEE ALSO:
  - generic/policy.go: Authorizer and AccrualRules interfaces
  - config: APPROVAL_LIMITS and APPROVAL_ACCRUAL_DAYS_PER_MONTH
*/
package policy

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warp/approval-ledger/generic"
)

// StaticLimits authorizes approvals from a fixed actor→limit table.
type StaticLimits struct {
	mu     sync.RWMutex
	limits map[string]decimal.Decimal
}

var _ generic.Authorizer = (*StaticLimits)(nil)

func NewStaticLimits(limits map[string]decimal.Decimal) *StaticLimits {
	cp := make(map[string]decimal.Decimal, len(limits))
	for k, v := range limits {
		cp[k] = v
	}
	return &StaticLimits{limits: cp}
}

// ParseLimits reads "actor:limit" pairs separated by commas.
func ParseLimits(s string) (*StaticLimits, error) {
	limits := make(map[string]decimal.Decimal)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		actor, raw, ok := strings.Cut(pair, ":")
		actor = strings.TrimSpace(actor)
		if !ok || actor == "" {
			return nil, fmt.Errorf("invalid limit %q: want actor:limit", pair)
		}
		v, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid limit for %s: %w", actor, err)
		}
		if v.IsNegative() {
			return nil, fmt.Errorf("invalid limit for %s: must not be negative", actor)
		}
		limits[actor] = v
	}
	return &StaticLimits{limits: limits}, nil
}

func (l *StaticLimits) CanApprove(_ context.Context, actorID string, amount generic.Amount) (bool, error) {
	l.mu.RLock()
	limit, ok := l.limits[actorID]
	l.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if limit.IsZero() {
		return true, nil
	}
	return amount.Value.LessThanOrEqual(limit), nil
}

// Set replaces the limit of actorID.
func (l *StaticLimits) Set(actorID string, limit decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limits[actorID] = limit
}

// Actors returns the configured actors, sorted.
func (l *StaticLimits) Actors() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.limits))
	for a := range l.limits {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

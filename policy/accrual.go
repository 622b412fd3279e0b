package policy

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/approval-ledger/generic"
)

var twelve = decimal.NewFromInt(12)

// HireDates maps owners to their start date. Owners missing from the map
// are treated as employed before the period.
type HireDates struct {
	mu    sync.RWMutex
	dates map[string]time.Time
}

func NewHireDates(dates map[string]time.Time) *HireDates {
	cp := make(map[string]time.Time, len(dates))
	for k, v := range dates {
		cp[k] = v
	}
	return &HireDates{dates: cp}
}

func (h *HireDates) Set(ownerID string, hired time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dates[ownerID] = hired
}

func (h *HireDates) get(ownerID string) (time.Time, bool) {
	if h == nil {
		return time.Time{}, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	t, ok := h.dates[ownerID]
	return t, ok
}

// monthsEmployed counts the months of p from the hire month on.
func monthsEmployed(p generic.Period, hired time.Time, ok bool) int {
	total := p.Months()
	if !ok || !hired.After(p.Start) {
		return total
	}
	if !p.Contains(hired) {
		return 0
	}
	months := (p.End.Year()-hired.Year())*12 + int(p.End.Month()-hired.Month()) + 1
	if months > total {
		return total
	}
	return months
}

// =============================================================================
// MONTHLY ACCRUAL
// =============================================================================

// MonthlyAccrual grants DaysPerMonth for every month of the period the
// owner was employed.
type MonthlyAccrual struct {
	DaysPerMonth decimal.Decimal
	Hires        *HireDates
}

var _ generic.AccrualRules = (*MonthlyAccrual)(nil)

func NewMonthlyAccrual(daysPerMonth float64, hires *HireDates) *MonthlyAccrual {
	return &MonthlyAccrual{DaysPerMonth: decimal.NewFromFloat(daysPerMonth), Hires: hires}
}

func (m *MonthlyAccrual) AccrualFor(_ context.Context, ownerID string, period generic.Period) (generic.Amount, error) {
	hired, ok := m.Hires.get(ownerID)
	months := monthsEmployed(period, hired, ok)
	return generic.Amount{
		Value: m.DaysPerMonth.Mul(decimal.NewFromInt(int64(months))),
		Unit:  generic.UnitDays,
	}, nil
}

// =============================================================================
// TENURE ACCRUAL
// =============================================================================

type TenureTier struct {
	AfterYears int     `json:"after_years"`
	AnnualDays float64 `json:"annual_days"`
}

// TenureAccrual accrues monthly at the annual rate of the highest tier the
// owner has reached at the start of each month. Tiers must be sorted by
// AfterYears.
type TenureAccrual struct {
	Tiers []TenureTier
	Hires *HireDates
}

var _ generic.AccrualRules = (*TenureAccrual)(nil)

func (t *TenureAccrual) AccrualFor(_ context.Context, ownerID string, period generic.Period) (generic.Amount, error) {
	hired, ok := t.Hires.get(ownerID)
	total := decimal.Zero

	for month := time.Date(period.Start.Year(), period.Start.Month(), 1, 0, 0, 0, 0, time.UTC); !month.After(period.End); month = month.AddDate(0, 1, 0) {
		years := 0
		if ok {
			if month.Year() < hired.Year() || (month.Year() == hired.Year() && month.Month() < hired.Month()) {
				continue
			}
			years = month.Year() - hired.Year()
			if month.Month() < hired.Month() {
				years--
			}
		}

		var annual float64
		for _, tier := range t.Tiers {
			if years >= tier.AfterYears {
				annual = tier.AnnualDays
			}
		}
		total = total.Add(decimal.NewFromFloat(annual).Div(twelve))
	}
	return generic.Amount{Value: total.Round(2), Unit: generic.UnitDays}, nil
}

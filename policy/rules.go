package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/approval-ledger/generic"
)

// =============================================================================
// RULES FILE
// =============================================================================

// RulesJSON is the on-disk form of the policy collaborators:
//
//	{
//	  "limits": {"mgr-1": 5000, "hr-1": 0},
//	  "accrual": {"type": "monthly", "days_per_month": 2},
//	  "hire_dates": {"emp-7": "2025-06-15"}
//	}
type RulesJSON struct {
	Limits    map[string]float64 `json:"limits"`
	Accrual   *AccrualJSON       `json:"accrual,omitempty"`
	HireDates map[string]string  `json:"hire_dates,omitempty"`
}

type AccrualJSON struct {
	Type         string       `json:"type"` // monthly, tenure
	DaysPerMonth float64      `json:"days_per_month,omitempty"`
	Tiers        []TenureTier `json:"tiers,omitempty"`
}

// Rules bundles the parsed collaborators. Accrual is nil when the file
// defines none.
type Rules struct {
	Limits  *StaticLimits
	Accrual generic.AccrualRules
	Hires   *HireDates
}

func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	return ParseRules(data)
}

func ParseRules(data []byte) (*Rules, error) {
	var rj RulesJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return nil, fmt.Errorf("failed to parse rules JSON: %w", err)
	}
	return rj.Build()
}

func (rj RulesJSON) Build() (*Rules, error) {
	limits := make(map[string]decimal.Decimal, len(rj.Limits))
	for actor, v := range rj.Limits {
		if v < 0 {
			return nil, fmt.Errorf("limit for %s must not be negative", actor)
		}
		limits[actor] = decimal.NewFromFloat(v)
	}

	dates := make(map[string]time.Time, len(rj.HireDates))
	for owner, s := range rj.HireDates {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, fmt.Errorf("invalid hire date for %s: %w", owner, err)
		}
		dates[owner] = t
	}

	rules := &Rules{
		Limits: NewStaticLimits(limits),
		Hires:  NewHireDates(dates),
	}
	if rj.Accrual == nil {
		return rules, nil
	}

	switch rj.Accrual.Type {
	case "monthly", "":
		if rj.Accrual.DaysPerMonth < 0 {
			return nil, fmt.Errorf("days_per_month must not be negative")
		}
		rules.Accrual = NewMonthlyAccrual(rj.Accrual.DaysPerMonth, rules.Hires)
	case "tenure":
		if len(rj.Accrual.Tiers) == 0 {
			return nil, fmt.Errorf("tenure accrual requires tiers")
		}
		for i := 1; i < len(rj.Accrual.Tiers); i++ {
			if rj.Accrual.Tiers[i].AfterYears < rj.Accrual.Tiers[i-1].AfterYears {
				return nil, fmt.Errorf("tenure tiers must be sorted by after_years")
			}
		}
		rules.Accrual = &TenureAccrual{Tiers: rj.Accrual.Tiers, Hires: rules.Hires}
	default:
		return nil, fmt.Errorf("unknown accrual type: %s", rj.Accrual.Type)
	}
	return rules, nil
}

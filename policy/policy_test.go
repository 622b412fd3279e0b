package policy_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/approval-ledger/generic"
	"github.com/warp/approval-ledger/policy"
)

func usd(v float64) generic.Amount { return generic.NewAmount(v, generic.UnitCurrency) }

// =============================================================================
// STATIC LIMITS
// =============================================================================

func TestParseLimits(t *testing.T) {
	// GIVEN: a manager with a 5000 limit and HR with unlimited authority
	limits, err := policy.ParseLimits("mgr-1:5000, hr-1:0")
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		actor  string
		amount float64
		want   bool
	}{
		{"mgr-1", 4999.99, true},
		{"mgr-1", 5000, true},
		{"mgr-1", 5000.01, false},
		{"hr-1", 1_000_000, true},
		{"stranger", 1, false},
	}
	for _, tt := range tests {
		ok, err := limits.CanApprove(ctx, tt.actor, usd(tt.amount))
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, "%s approving %v", tt.actor, tt.amount)
	}
	assert.Equal(t, []string{"hr-1", "mgr-1"}, limits.Actors())
}

func TestParseLimits_Invalid(t *testing.T) {
	for _, in := range []string{"mgr-1", ":10", "mgr-1:abc", "mgr-1:-5"} {
		_, err := policy.ParseLimits(in)
		assert.Error(t, err, in)
	}

	limits, err := policy.ParseLimits("")
	require.NoError(t, err)
	assert.Empty(t, limits.Actors())
}

// =============================================================================
// ACCRUAL
// =============================================================================

func TestMonthlyAccrual_FullYear(t *testing.T) {
	rules := policy.NewMonthlyAccrual(2, nil)

	got, err := rules.AccrualFor(context.Background(), "emp-1", generic.YearPeriod(2025))
	require.NoError(t, err)
	assert.True(t, got.Equal(generic.NewAmount(24, generic.UnitDays)), "got %s", got)
	assert.Equal(t, generic.UnitDays, got.Unit)
}

func TestMonthlyAccrual_ProratedFromHireDate(t *testing.T) {
	// GIVEN: hired June 15, 2025 at 2 days per month
	// WHEN: computing the 2025 accrual
	// THEN: June through December count, 7 months = 14 days
	hires := policy.NewHireDates(map[string]time.Time{
		"emp-7": time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC),
	})
	rules := policy.NewMonthlyAccrual(2, hires)
	ctx := context.Background()

	got, err := rules.AccrualFor(ctx, "emp-7", generic.YearPeriod(2025))
	require.NoError(t, err)
	assert.True(t, got.Equal(generic.NewAmount(14, generic.UnitDays)), "got %s", got)

	got, err = rules.AccrualFor(ctx, "emp-7", generic.YearPeriod(2024))
	require.NoError(t, err)
	assert.True(t, got.IsZero(), "not yet hired in 2024")
}

func TestTenureAccrual_TierChangesMidYear(t *testing.T) {
	// GIVEN: 12 days/year under 3 years, 24 days/year after
	// WHEN: the third anniversary falls on July 1, 2025
	// THEN: Jan-Jun accrue 1/month, Jul-Dec accrue 2/month = 18 days
	hires := policy.NewHireDates(map[string]time.Time{
		"emp-1": time.Date(2022, time.July, 1, 0, 0, 0, 0, time.UTC),
	})
	rules := &policy.TenureAccrual{
		Tiers: []policy.TenureTier{{AfterYears: 0, AnnualDays: 12}, {AfterYears: 3, AnnualDays: 24}},
		Hires: hires,
	}

	got, err := rules.AccrualFor(context.Background(), "emp-1", generic.YearPeriod(2025))
	require.NoError(t, err)
	assert.True(t, got.Equal(generic.NewAmount(18, generic.UnitDays)), "got %s", got)
}

// =============================================================================
// RULES FILE
// =============================================================================

func TestParseRules(t *testing.T) {
	rules, err := policy.ParseRules([]byte(`{
		"limits": {"mgr-1": 5000, "hr-1": 0},
		"accrual": {"type": "monthly", "days_per_month": 1.5},
		"hire_dates": {"emp-7": "2025-07-01"}
	}`))
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := rules.Limits.CanApprove(ctx, "mgr-1", usd(6000))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NotNil(t, rules.Accrual)
	got, err := rules.Accrual.AccrualFor(ctx, "emp-7", generic.YearPeriod(2025))
	require.NoError(t, err)
	assert.True(t, got.Equal(generic.NewAmount(9, generic.UnitDays)), "got %s", got)
}

func TestParseRules_Errors(t *testing.T) {
	tests := map[string]string{
		"bad json":       `{`,
		"negative limit": `{"limits": {"a": -1}}`,
		"bad hire date":  `{"hire_dates": {"a": "June"}}`,
		"unknown type":   `{"accrual": {"type": "hourly"}}`,
		"no tiers":       `{"accrual": {"type": "tenure"}}`,
		"unsorted tiers": `{"accrual": {"type": "tenure", "tiers": [{"after_years": 3}, {"after_years": 1}]}}`,
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := policy.ParseRules([]byte(in))
			assert.Error(t, err)
		})
	}
}

func TestParseRules_NoAccrual(t *testing.T) {
	rules, err := policy.ParseRules([]byte(`{"limits": {"mgr-1": 10}}`))
	require.NoError(t, err)
	assert.Nil(t, rules.Accrual)
}

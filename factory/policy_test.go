package factory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brownstone/rent-engine/engine"
	"github.com/brownstone/rent-engine/factory"
)

func TestParsePolicy_Percentage_BuildsTaggedVariant(t *testing.T) {
	// GIVEN: A percentage policy JSON that ALSO carries a stale fixed_amount
	// WHEN: Parsing
	// THEN: The rule is PercentageFee; the fixed field is ignored entirely

	f := factory.NewPolicyFactory()
	policy, err := f.ParsePolicy(`{
		"id": "policy-1",
		"organization_id": "org-1",
		"lease_id": "lease-9",
		"grace_period_days": 5,
		"fee_type": "percentage",
		"fixed_amount": 9999,
		"percentage_rate": 10,
		"max_fee_amount": 5000,
		"is_active": true
	}`)

	require.NoError(t, err)
	require.NotNil(t, policy.LeaseID)
	assert.Equal(t, engine.LeaseID("lease-9"), *policy.LeaseID)
	assert.Equal(t, 5, policy.GracePeriodDays)
	assert.True(t, policy.IsActive)

	rule, ok := policy.Rule.(engine.PercentageFee)
	require.True(t, ok, "expected PercentageFee, got %T", policy.Rule)
	assert.True(t, rule.Rate.Equal(decimal.NewFromInt(10)))
	require.NotNil(t, rule.Cap)
	assert.Equal(t, engine.Cents(5000), *rule.Cap)

	// The stale fixed amount cannot leak: 10% of 120000 capped at 5000.
	assert.Equal(t, engine.Cents(5000), rule.Fee(120000))
}

func TestParsePolicy_Fixed_OrganizationDefault(t *testing.T) {
	f := factory.NewPolicyFactory()
	policy, err := f.ParsePolicy(`{
		"id": "policy-2",
		"organization_id": "org-1",
		"grace_period_days": 3,
		"fee_type": "fixed",
		"fixed_amount": 2500,
		"percentage_rate": 50,
		"is_active": true
	}`)

	require.NoError(t, err)
	assert.Nil(t, policy.LeaseID)
	assert.True(t, policy.IsOrganizationDefault())

	rule, ok := policy.Rule.(engine.FixedFee)
	require.True(t, ok)
	assert.Equal(t, engine.Cents(2500), rule.Amount)
}

func TestFromJSON_Validation(t *testing.T) {
	f := factory.NewPolicyFactory()
	rate := decimal.NewFromInt(150)
	negGrace := factory.PolicyJSON{OrganizationID: "org-1", GracePeriodDays: -1, FeeType: "fixed", FixedAmount: 100}
	badRate := factory.PolicyJSON{OrganizationID: "org-1", FeeType: "percentage", PercentageRate: &rate}
	zeroFixed := factory.PolicyJSON{OrganizationID: "org-1", FeeType: "fixed", FixedAmount: 0}
	badType := factory.PolicyJSON{OrganizationID: "org-1", FeeType: "compounding"}
	noOrg := factory.PolicyJSON{FeeType: "fixed", FixedAmount: 100}

	for name, pj := range map[string]factory.PolicyJSON{
		"negative grace":   negGrace,
		"rate over 100":    badRate,
		"zero fixed":       zeroFixed,
		"unknown fee type": badType,
		"missing org":      noOrg,
	} {
		_, err := f.FromJSON(pj)
		assert.Error(t, err, name)
		assert.True(t, engine.IsClientError(err), "%s should be a client error", name)
	}
}

func TestToJSON_RoundTrip(t *testing.T) {
	f := factory.NewPolicyFactory()
	maxFee := engine.Cents(5000)
	leaseID := engine.LeaseID("lease-9")
	original := &engine.LateFeePolicy{
		ID:              "policy-1",
		OrganizationID:  "org-1",
		LeaseID:         &leaseID,
		GracePeriodDays: 5,
		Rule:            engine.PercentageFee{Rate: decimal.NewFromInt(10), Cap: &maxFee},
		IsActive:        true,
	}

	parsed, err := f.FromJSON(factory.ToJSON(original))
	require.NoError(t, err)
	assert.Equal(t, original.ID, parsed.ID)
	assert.Equal(t, original.GracePeriodDays, parsed.GracePeriodDays)
	assert.Equal(t, *original.LeaseID, *parsed.LeaseID)

	rule := parsed.Rule.(engine.PercentageFee)
	assert.True(t, rule.Rate.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, maxFee, *rule.Cap)
}

/*
Package factory provides JSON to Go policy conversion.

PURPOSE:
  Converts JSON late-fee policy definitions into engine.LateFeePolicy
  values. This enables policy configuration without code changes - property
  managers define policies through the admin surface as JSON, and the
  factory constructs the proper tagged-variant rule.

WHY A FACTORY BOUNDARY?
  The stored/wire form carries BOTH fixed_amount and percentage_rate
  regardless of fee_type. The discriminator is interpreted exactly once,
  here; beyond this point only the matching FeeRule variant exists, so
  calculation code cannot read the wrong field. The non-matching field is
  ignored, not rejected.

JSON SCHEMA:
  {
    "id": "policy-standard",
    "organization_id": "org-1",
    "lease_id": "lease-9",          // omit for organization-default
    "grace_period_days": 5,
    "fee_type": "percentage",       // "fixed" | "percentage"
    "fixed_amount": 2500,           // minor units, used when fixed
    "percentage_rate": 10,          // percent 0-100, used when percentage
    "max_fee_amount": 5000,         // optional cap, percentage only
    "is_active": true
  }

VALIDATION:
  Structural problems (negative grace, rate outside 0-100, non-positive
  fixed amount, unknown fee type) are rejected with FieldError so the API
  layer can surface the offending field.

SEE ALSO:
  - engine/policy.go: FeeRule variants and LateFeePolicy
  - store/sqlite: Persists policies in this JSON form
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/brownstone/rent-engine/engine"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicyJSON is the flat wire representation of a late-fee policy.
type PolicyJSON struct {
	ID              string           `json:"id"`
	OrganizationID  string           `json:"organization_id"`
	LeaseID         *string          `json:"lease_id,omitempty"`
	GracePeriodDays int              `json:"grace_period_days"`
	FeeType         string           `json:"fee_type"`
	FixedAmount     int64            `json:"fixed_amount,omitempty"`
	PercentageRate  *decimal.Decimal `json:"percentage_rate,omitempty"`
	MaxFeeAmount    *int64           `json:"max_fee_amount,omitempty"`
	IsActive        bool             `json:"is_active"`
}

const (
	FeeTypeFixed      = "fixed"
	FeeTypePercentage = "percentage"
)

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts JSON policies to engine values.
type PolicyFactory struct{}

func NewPolicyFactory() *PolicyFactory { return &PolicyFactory{} }

// ParsePolicy parses a JSON string into a LateFeePolicy.
func (f *PolicyFactory) ParsePolicy(jsonStr string) (*engine.LateFeePolicy, error) {
	var pj PolicyJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return nil, fmt.Errorf("failed to parse policy JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// FromJSON validates the wire form and builds the tagged-variant policy.
func (f *PolicyFactory) FromJSON(pj PolicyJSON) (*engine.LateFeePolicy, error) {
	if pj.OrganizationID == "" {
		return nil, &engine.FieldError{Field: "organization_id", Message: "required"}
	}
	if pj.GracePeriodDays < 0 {
		return nil, &engine.FieldError{Field: "grace_period_days", Message: "must not be negative"}
	}

	rule, err := f.buildRule(pj)
	if err != nil {
		return nil, err
	}

	policy := &engine.LateFeePolicy{
		ID:              engine.PolicyID(pj.ID),
		OrganizationID:  engine.OrganizationID(pj.OrganizationID),
		GracePeriodDays: pj.GracePeriodDays,
		Rule:            rule,
		IsActive:        pj.IsActive,
	}
	if pj.LeaseID != nil && *pj.LeaseID != "" {
		leaseID := engine.LeaseID(*pj.LeaseID)
		policy.LeaseID = &leaseID
	}
	return policy, nil
}

func (f *PolicyFactory) buildRule(pj PolicyJSON) (engine.FeeRule, error) {
	switch pj.FeeType {
	case FeeTypeFixed:
		if pj.FixedAmount <= 0 {
			return nil, &engine.FieldError{Field: "fixed_amount", Message: "must be positive for fixed fees"}
		}
		// percentage_rate may also be populated; it is ignored here.
		return engine.FixedFee{Amount: engine.Cents(pj.FixedAmount)}, nil

	case FeeTypePercentage:
		if pj.PercentageRate == nil {
			return nil, &engine.FieldError{Field: "percentage_rate", Message: "required for percentage fees"}
		}
		rate := *pj.PercentageRate
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
			return nil, &engine.FieldError{Field: "percentage_rate", Message: "must be between 0 and 100"}
		}
		rule := engine.PercentageFee{Rate: rate}
		if pj.MaxFeeAmount != nil {
			if *pj.MaxFeeAmount <= 0 {
				return nil, &engine.FieldError{Field: "max_fee_amount", Message: "must be positive when set"}
			}
			maxFee := engine.Cents(*pj.MaxFeeAmount)
			rule.Cap = &maxFee
		}
		return rule, nil

	default:
		return nil, &engine.FieldError{Field: "fee_type", Message: fmt.Sprintf("unknown fee type %q", pj.FeeType)}
	}
}

// ToJSON converts a policy back to its wire form for storage and API output.
func ToJSON(p *engine.LateFeePolicy) PolicyJSON {
	pj := PolicyJSON{
		ID:              string(p.ID),
		OrganizationID:  string(p.OrganizationID),
		GracePeriodDays: p.GracePeriodDays,
		IsActive:        p.IsActive,
	}
	if p.LeaseID != nil {
		leaseID := string(*p.LeaseID)
		pj.LeaseID = &leaseID
	}

	switch rule := p.Rule.(type) {
	case engine.FixedFee:
		pj.FeeType = FeeTypeFixed
		pj.FixedAmount = int64(rule.Amount)
	case engine.PercentageFee:
		pj.FeeType = FeeTypePercentage
		rate := rule.Rate
		pj.PercentageRate = &rate
		if rule.Cap != nil {
			maxFee := int64(*rule.Cap)
			pj.MaxFeeAmount = &maxFee
		}
	}
	return pj
}

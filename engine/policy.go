/*
policy.go - Late-fee policies and the rule resolver

PURPOSE:
  Defines the fee rule applied to one lease or to an organization as a
  whole, and the resolver that picks the single applicable policy from a
  candidate set.

TAGGED VARIANT:
  The underlying data model stores both a fixed amount and a percentage
  rate on every policy row regardless of fee type. Representing the rule
  as a FeeRule variant (FixedFee | PercentageFee) means calculation code
  can never read the wrong field; the discriminator is resolved once, at
  the construction boundary (see factory/ and store/sqlite/).

RESOLUTION PRECEDENCE:
  A lease-specific policy strictly outranks an organization-default policy.
  Within a rank the first candidate wins, so stores must order lease-specific
  rows first. Callers must not rely on secondary ordering beyond
  "lease-specific wins."

EXAMPLE:
  cap := engine.Cents(5000)
  policy := engine.LateFeePolicy{
      OrganizationID:  "org-1",
      GracePeriodDays: 5,
      Rule:            engine.PercentageFee{Rate: decimal.NewFromInt(10), Cap: &cap},
      IsActive:        true,
  }

SEE ALSO:
  - latefee.go: Applies a resolved policy to an invoice
  - factory/policy.go: JSON to policy conversion
*/
package engine

import "github.com/shopspring/decimal"

// =============================================================================
// FEE RULE - Tagged variant: fixed | percentage
// =============================================================================

// FeeRule computes a late fee from an invoice amount. Implementations are
// FixedFee and PercentageFee; there is deliberately no flat struct with a
// fee-type discriminator.
type FeeRule interface {
	// RuleName returns the wire name of the rule ("fixed" or "percentage").
	RuleName() string

	// Fee returns the fee in minor units for the given invoice amount.
	Fee(invoiceAmount Cents) Cents
}

// FixedFee charges a flat amount, already in minor units.
type FixedFee struct {
	Amount Cents
}

func (f FixedFee) RuleName() string { return "fixed" }
func (f FixedFee) Fee(Cents) Cents  { return f.Amount }

// PercentageFee charges Rate percent of the invoice amount, rounded half-up
// to the nearest minor unit, then clamped to Cap when set.
type PercentageFee struct {
	Rate decimal.Decimal // percent, 0-100
	Cap  *Cents          // optional maximum fee
}

func (p PercentageFee) RuleName() string { return "percentage" }

func (p PercentageFee) Fee(invoiceAmount Cents) Cents {
	fee := roundCents(invoiceAmount.Decimal().Mul(p.Rate).Div(hundred))
	if p.Cap != nil && fee > *p.Cap {
		fee = *p.Cap
	}
	return fee
}

// Compile-time checks
var (
	_ FeeRule = FixedFee{}
	_ FeeRule = PercentageFee{}
)

// =============================================================================
// LATE FEE POLICY
// =============================================================================

// LateFeePolicy is the fee rule applied to one lease or to an organization
// as a whole. Multiple policies may exist per organization; only active ones
// participate in resolution.
type LateFeePolicy struct {
	ID             PolicyID
	OrganizationID OrganizationID

	// LeaseID is nil for an organization-default policy.
	LeaseID *LeaseID

	// GracePeriodDays is the number of days after the due date before any
	// fee accrues. Never negative.
	GracePeriodDays int

	Rule     FeeRule
	IsActive bool
}

// IsOrganizationDefault reports whether this policy applies org-wide.
func (p *LateFeePolicy) IsOrganizationDefault() bool { return p.LeaseID == nil }

// =============================================================================
// RULE RESOLVER
// =============================================================================

// ResolvePolicy selects the single applicable policy for a lease from a
// candidate set. Inactive policies never match. A lease-specific policy
// strictly outranks an organization default; within a rank the first
// candidate wins. Returns nil when nothing matches - callers treat that as
// "zero late fee", not as an error.
func ResolvePolicy(leaseID LeaseID, candidates []*LateFeePolicy) *LateFeePolicy {
	for _, c := range candidates {
		if c != nil && c.IsActive && c.LeaseID != nil && *c.LeaseID == leaseID {
			return c
		}
	}
	for _, c := range candidates {
		if c != nil && c.IsActive && c.LeaseID == nil {
			return c
		}
	}
	return nil
}

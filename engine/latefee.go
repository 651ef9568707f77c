/*
latefee.go - Late-fee computation

PURPOSE:
  Turns a resolved policy, an invoice due date, an invoice amount, and an
  explicit "now" into a late-fee amount. Pure function: callers pass the
  clock so results are reproducible and testable.

BOUNDARY SEMANTICS:
  daysLate = floor((now - dueDate) / 1 day). A fee accrues only when
  daysLate exceeds the grace period - equality favors the payer, so no fee
  is charged exactly on the last grace day.

SINGLE-SHOT FEE:
  The engine computes one flat or percentage fee per invocation; it applies
  no day-by-day compounding. EffectiveDaysLate is exposed for callers that
  layer compounding on top.

SEE ALSO:
  - policy.go: FeeRule variants and the resolver
  - dunning.go: Consumes DaysLate for notice escalation
*/
package engine

import "time"

// =============================================================================
// LATE FEE CALCULATOR
// =============================================================================

// LateFeeResult is the outcome of a single late-fee computation.
type LateFeeResult struct {
	// LateFeeAmount is the fee in minor units. Zero within the grace
	// period, before the due date, or when no policy applies.
	LateFeeAmount Cents

	// AppliedRule names the rule that produced the fee ("fixed" or
	// "percentage"). Empty when no policy applied or no fee accrued.
	AppliedRule string

	// AppliedPolicy is the resolved policy's ID, empty when none applied.
	AppliedPolicy PolicyID

	// DaysLate is floor((now - dueDate) / 1 day). May be zero or negative.
	DaysLate int

	// EffectiveDaysLate is DaysLate minus the grace period. May be
	// negative; callers use it for compounding logic.
	EffectiveDaysLate int

	// GracePeriodDays echoes the policy's grace period (zero without one).
	GracePeriodDays int
}

// ComputeLateFee computes the late fee for an invoice under a resolved
// policy. A nil policy yields a zero fee with no applied rule. The invoice
// amount is in minor units.
func ComputeLateFee(policy *LateFeePolicy, dueDate time.Time, amount Cents, now time.Time) LateFeeResult {
	daysLate := DaysLate(dueDate, now)

	if policy == nil {
		return LateFeeResult{
			DaysLate:          daysLate,
			EffectiveDaysLate: daysLate,
		}
	}

	result := LateFeeResult{
		DaysLate:          daysLate,
		EffectiveDaysLate: daysLate - policy.GracePeriodDays,
		GracePeriodDays:   policy.GracePeriodDays,
	}

	// Within grace (inclusive) or not yet due: no fee.
	if daysLate <= policy.GracePeriodDays {
		return result
	}

	result.LateFeeAmount = policy.Rule.Fee(amount)
	result.AppliedRule = policy.Rule.RuleName()
	result.AppliedPolicy = policy.ID
	return result
}

/*
proration.go - Partial-period rent calculation

PURPOSE:
  Computes a prorated rent amount for occupancy shorter than a full billing
  cycle, using one of two mutually exclusive day-counting conventions:

  daily: dailyRate = monthlyRent / 30, regardless of actual month length.
  exact: dailyRate = monthlyRent / actual days in the calendar month
         containing startDate. A period spanning a month boundary uses the
         start month's day count for the entire span - a documented
         simplification, not a per-month split.

DAY COUNTING:
  daysInPeriod is the inclusive day count between start and end: the same
  day counts as 1 day.

UNITS:
  Amounts stay in whatever unit the caller supplies. Callers passing
  major-unit decimals get major-unit results; the engine never assumes a
  minor-unit representation here. Results are rounded half-up to two
  decimal places.
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PRORATION CALCULATOR
// =============================================================================

type ProrationMethod string

const (
	ProrateDaily ProrationMethod = "daily"
	ProrateExact ProrationMethod = "exact"
)

var thirty = decimal.NewFromInt(30)

// ProrationRequest is an ephemeral calculation input; never persisted.
type ProrationRequest struct {
	MonthlyRent decimal.Decimal
	StartDate   time.Time
	EndDate     time.Time
	Method      ProrationMethod
}

// Validate rejects invalid inputs before any computation. An invalid range
// must fail rather than produce a negative amount.
func (r ProrationRequest) Validate() error {
	if !r.MonthlyRent.IsPositive() {
		return ErrNonPositiveRent
	}
	// Day granularity: an end on the same calendar day is valid even if
	// its clock time is earlier.
	if DaysBetween(r.StartDate, r.EndDate) < 0 {
		return ErrInvalidDateRange
	}
	switch r.Method {
	case ProrateDaily, ProrateExact:
		return nil
	default:
		return ErrUnknownProrationMethod
	}
}

type ProrationResult struct {
	ProratedAmount decimal.Decimal
	DailyRate      decimal.Decimal
	DaysInPeriod   int
}

// Prorate computes the partial-period rent for the request. The daily rate
// is kept at full precision; only the prorated amount is rounded (half-up,
// two decimal places).
func Prorate(req ProrationRequest) (ProrationResult, error) {
	if err := req.Validate(); err != nil {
		return ProrationResult{}, err
	}

	// Inclusive: same-day start and end is a 1-day period.
	days := DaysBetween(req.StartDate, req.EndDate) + 1

	var dailyRate decimal.Decimal
	switch req.Method {
	case ProrateDaily:
		dailyRate = req.MonthlyRent.Div(thirty)
	case ProrateExact:
		dailyRate = req.MonthlyRent.Div(decimal.NewFromInt(int64(DaysInMonth(req.StartDate))))
	}

	return ProrationResult{
		ProratedAmount: dailyRate.Mul(decimal.NewFromInt(int64(days))).Round(2),
		DailyRate:      dailyRate,
		DaysInPeriod:   days,
	}, nil
}

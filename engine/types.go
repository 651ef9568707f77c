/*
Package engine provides the core rent-accounting calculation engine.

PURPOSE:
  This package contains the deterministic business rules that turn a due
  invoice, a configured policy, and the current date into a late-fee amount,
  a dunning escalation level, and a prorated rent amount. Persistence and
  notice delivery are collaborators reached through small interfaces; the
  calculations themselves are pure functions over explicit inputs.

KEY CONCEPTS IN THIS FILE (types.go):
  - Cents: An integer minor-currency-unit amount (e.g., 120000 = $1200.00)
  - Invoice: An amount owed by a lease, with due date and status
  - LedgerEntry/Expense: Accounting rows the owner statement aggregates
  - Lease/Organization/Invoice/Policy IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for all fee and proration math
  2. Explicit time: "now" is always a parameter, never read from the clock
  3. Type Safety: Strong typing for IDs prevents mixing lease/org IDs
  4. Purity: No calculation mutates entity state or touches a collaborator

ROUNDING:
  All rounding in this package is half-up (half away from zero), applied
  through roundCents and Round(2). Fixed fees, percentage fees, and
  proration share the same convention.

SEE ALSO:
  - policy.go: Late-fee policies and the rule resolver
  - latefee.go: Late-fee computation
  - dunning.go: Notice-level escalation
  - proration.go: Partial-period rent calculation
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CENTS - Integer minor-currency-unit amount
// =============================================================================

// Cents is an amount in minor currency units. Invoices, fees, and ledger
// entries are stored in Cents; proration works in major units (see
// proration.go) because its callers supply major-unit decimals.
type Cents int64

var hundred = decimal.NewFromInt(100)

// Decimal returns the amount in minor units as a decimal.
func (c Cents) Decimal() decimal.Decimal { return decimal.NewFromInt(int64(c)) }

// Major returns the amount in major units (e.g., dollars).
func (c Cents) Major() decimal.Decimal { return c.Decimal().Div(hundred) }

// FormatMajor renders the amount in major units with two decimals ("1200.00").
func (c Cents) FormatMajor() string { return c.Major().StringFixed(2) }

// roundCents rounds a minor-unit decimal to the nearest whole cent, half-up.
func roundCents(d decimal.Decimal) Cents { return Cents(d.Round(0).IntPart()) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type LeaseID string
type OrganizationID string
type InvoiceID string
type PolicyID string

// =============================================================================
// INVOICE - An amount owed by a lease
// =============================================================================

type ChargeStatus string

const (
	StatusPending ChargeStatus = "pending"
	StatusPaid    ChargeStatus = "paid"
	StatusOverdue ChargeStatus = "overdue"
)

// Invoice is a ledger charge assessed against a lease. Status transitions to
// paid on payment, independent of this engine.
type Invoice struct {
	ID             InvoiceID
	LeaseID        LeaseID
	OrganizationID OrganizationID
	DueDate        time.Time
	Amount         Cents
	Status         ChargeStatus

	// Tenant contact for dunning notices. Optional; no address means
	// dunning evaluates "dry" without dispatching.
	TenantName  string
	TenantEmail string

	CreatedAt time.Time
}

// =============================================================================
// LEDGER ENTRIES AND EXPENSES - Inputs to the owner statement
// =============================================================================

type EntryType string

const (
	// EntryCollection records money received (rent payment, collected fee).
	EntryCollection EntryType = "collection"
	// EntryLateFee records a late fee assessed but not yet collected.
	EntryLateFee EntryType = "late_fee"
)

type LedgerEntry struct {
	ID             string
	OrganizationID OrganizationID
	LeaseID        LeaseID
	InvoiceID      InvoiceID
	Type           EntryType
	Amount         Cents
	Reason         string
	PostedAt       time.Time
}

type ExpenseStatus string

const (
	ExpenseOpen      ExpenseStatus = "open"
	ExpenseCompleted ExpenseStatus = "completed"
)

// Expense is a completed-work-order cost charged against an organization.
type Expense struct {
	ID             string
	OrganizationID OrganizationID
	LeaseID        LeaseID
	Description    string
	Amount         Cents
	Status         ExpenseStatus
	CompletedAt    time.Time
}

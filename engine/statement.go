package engine

import "time"

// =============================================================================
// OWNER STATEMENT - Straight aggregation over the ledger
// =============================================================================

// StatementPeriod is an inclusive reporting window.
type StatementPeriod struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the period, day-granular.
func (p StatementPeriod) Contains(t time.Time) bool {
	return DaysBetween(p.From, t) >= 0 && DaysBetween(t, p.To) >= 0
}

// OwnerStatement sums ledger collections and completed-work-order expenses
// into a net figure for a reporting period. Late fees are expected to be
// already recorded in the ledger by the time a statement is built; no fee
// logic happens here.
type OwnerStatement struct {
	OrganizationID  OrganizationID
	Period          StatementPeriod
	Collected       Cents
	Expenses        Cents
	Net             Cents
	CollectionCount int
	ExpenseCount    int
}

// BuildOwnerStatement aggregates the given rows. Only EntryCollection rows
// posted inside the period count as collections; only completed expenses
// completed inside the period count as expenses.
func BuildOwnerStatement(orgID OrganizationID, period StatementPeriod, entries []LedgerEntry, expenses []Expense) OwnerStatement {
	st := OwnerStatement{OrganizationID: orgID, Period: period}

	for _, e := range entries {
		if e.OrganizationID != orgID || e.Type != EntryCollection {
			continue
		}
		if !period.Contains(e.PostedAt) {
			continue
		}
		st.Collected += e.Amount
		st.CollectionCount++
	}

	for _, x := range expenses {
		if x.OrganizationID != orgID || x.Status != ExpenseCompleted {
			continue
		}
		if !period.Contains(x.CompletedAt) {
			continue
		}
		st.Expenses += x.Amount
		st.ExpenseCount++
	}

	st.Net = st.Collected - st.Expenses
	return st
}

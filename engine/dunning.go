/*
dunning.go - Collections-notice escalation

PURPOSE:
  Determines how severe the current collections notice should be for an
  overdue invoice, and requests dispatch of that notice through the
  notification collaborator.

STATELESS RECOMPUTATION:
  The notice level is a pure function of "current days late" compared
  against the four configured thresholds - it is not a stored state machine
  with transition history. Every invocation recomputes the level from
  scratch, evaluated highest-first:

      daysLate >= finalNoticeDays  -> 4 "final"
      daysLate >= thirdNoticeDays  -> 3 "third"
      daysLate >= secondNoticeDays -> 2 "second"
      daysLate >= firstNoticeDays  -> 1 "first"
      otherwise                    -> 0 "none"

  Thresholds are assumed increasing but NOT validated; for a misconfigured
  record the evaluation order above is the source of truth.

DISPATCH GATING:
  When a NoticeHistory collaborator is wired, a notice is dispatched only
  when the computed level exceeds the last level sent for that invoice.
  Without history every call with level > 0 and a contact address
  dispatches, and callers own deduplication (e.g., once per billing cycle).

FAILURE SEMANTICS:
  Dispatch and history failures are non-fatal: the computed
  {noticeLevel, noticeType, daysLate} result is always returned, and the
  collaborator failure is reported alongside it.

SEE ALSO:
  - latefee.go: Produces the days-late input
  - notify/: Sender implementations
*/
package engine

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// DUNNING SETTINGS - Per-organization escalation thresholds
// =============================================================================

// DunningSettings holds the four notice-day thresholds for an organization.
// Intended to be strictly increasing; not enforced.
type DunningSettings struct {
	FirstNoticeDays  int
	SecondNoticeDays int
	ThirdNoticeDays  int
	FinalNoticeDays  int
}

// DefaultDunningSettings apply when an organization has no settings record.
func DefaultDunningSettings() DunningSettings {
	return DunningSettings{
		FirstNoticeDays:  3,
		SecondNoticeDays: 7,
		ThirdNoticeDays:  14,
		FinalNoticeDays:  30,
	}
}

// Evaluate returns the notice level for the given days late. Highest
// threshold wins; short-circuit order defines behavior even when thresholds
// are non-monotonic.
func (s DunningSettings) Evaluate(daysLate int) NoticeLevel {
	switch {
	case daysLate >= s.FinalNoticeDays:
		return LevelFinal
	case daysLate >= s.ThirdNoticeDays:
		return LevelThird
	case daysLate >= s.SecondNoticeDays:
		return LevelSecond
	case daysLate >= s.FirstNoticeDays:
		return LevelFirst
	default:
		return LevelNone
	}
}

// =============================================================================
// NOTICE LEVELS
// =============================================================================

// NoticeLevel is an ordinal 0-4 representing notice severity.
type NoticeLevel int

const (
	LevelNone NoticeLevel = iota
	LevelFirst
	LevelSecond
	LevelThird
	LevelFinal
)

type NoticeType string

const (
	NoticeNone   NoticeType = "none"
	NoticeFirst  NoticeType = "first"
	NoticeSecond NoticeType = "second"
	NoticeThird  NoticeType = "third"
	NoticeFinal  NoticeType = "final"
)

// Type returns the notice category for a level.
func (l NoticeLevel) Type() NoticeType {
	switch l {
	case LevelFirst:
		return NoticeFirst
	case LevelSecond:
		return NoticeSecond
	case LevelThird:
		return NoticeThird
	case LevelFinal:
		return NoticeFinal
	default:
		return NoticeNone
	}
}

// DunningEvent is the computed escalation outcome for one invoice.
type DunningEvent struct {
	NoticeLevel NoticeLevel
	NoticeType  NoticeType
	DaysLate    int
}

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// NoticeSender delivers a rendered notice. Implementations live in notify/.
type NoticeSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NoticeHistory records the last notice level sent per invoice so repeated
// evaluations don't re-send. Optional; a nil history disables gating.
type NoticeHistory interface {
	LastNoticeLevel(ctx context.Context, invoiceID InvoiceID) (NoticeLevel, error)
	RecordNotice(ctx context.Context, invoiceID InvoiceID, level NoticeLevel, at time.Time) error
}

// =============================================================================
// ESCALATOR
// =============================================================================

// Escalator evaluates notice levels and requests dispatch. Sender and
// History may be nil; evaluation works without either.
type Escalator struct {
	Sender  NoticeSender
	History NoticeHistory
}

// DunningInput is everything needed to process one invoice.
type DunningInput struct {
	InvoiceID   InvoiceID
	LeaseID     LeaseID
	TenantName  string
	TenantEmail string
	Amount      Cents
	DueDate     time.Time
	Settings    DunningSettings
	Now         time.Time
}

// DunningResult carries the computed escalation plus dispatch disposition.
// DispatchErr is informational; the numeric result is valid regardless.
type DunningResult struct {
	DunningEvent
	Message     string
	Dispatched  bool
	DispatchErr error
}

// Process recomputes the notice level for an invoice and, when the level is
// positive and a contact address is available, requests dispatch through the
// sender. No address means a "dry" evaluation: the level is still returned.
func (e *Escalator) Process(ctx context.Context, in DunningInput) DunningResult {
	daysLate := DaysLate(in.DueDate, in.Now)
	level := in.Settings.Evaluate(daysLate)

	result := DunningResult{
		DunningEvent: DunningEvent{
			NoticeLevel: level,
			NoticeType:  level.Type(),
			DaysLate:    daysLate,
		},
	}

	if level == LevelNone {
		return result
	}

	subject, body := RenderNotice(level, in.TenantName, in.Amount, daysLate)
	result.Message = body

	if in.TenantEmail == "" || e.Sender == nil {
		return result
	}

	if e.History != nil {
		last, err := e.History.LastNoticeLevel(ctx, in.InvoiceID)
		if err != nil {
			result.DispatchErr = fmt.Errorf("%w: reading history: %v", ErrNoticeDispatchFailed, err)
			return result
		}
		if level <= last {
			// Already sent at this level or higher; nothing to dispatch.
			return result
		}
	}

	if err := e.Sender.Send(ctx, in.TenantEmail, subject, body); err != nil {
		result.DispatchErr = fmt.Errorf("%w: %v", ErrNoticeDispatchFailed, err)
		return result
	}
	result.Dispatched = true

	if e.History != nil {
		if err := e.History.RecordNotice(ctx, in.InvoiceID, level, in.Now); err != nil {
			result.DispatchErr = fmt.Errorf("%w: recording history: %v", ErrNoticeDispatchFailed, err)
		}
	}
	return result
}

// =============================================================================
// NOTICE RENDERING
// =============================================================================

var noticeSubjects = map[NoticeLevel]string{
	LevelFirst:  "Payment Reminder: Rent Past Due",
	LevelSecond: "Second Notice: Rent Past Due",
	LevelThird:  "Third Notice: Immediate Payment Required",
	LevelFinal:  "Final Notice: Account Sent to Collections Review",
}

// RenderNotice produces the subject and body for a notice. Amounts are
// rendered in major units with two decimals.
func RenderNotice(level NoticeLevel, tenantName string, amount Cents, daysLate int) (subject, body string) {
	if tenantName == "" {
		tenantName = "Tenant"
	}
	subject = noticeSubjects[level]
	body = fmt.Sprintf(
		"Dear %s,\n\nYour rent payment of $%s is now %d days past due. "+
			"Please submit payment as soon as possible to avoid further action.\n\n"+
			"This is a %s notice.",
		tenantName, amount.FormatMajor(), daysLate, level.Type())
	return subject, body
}

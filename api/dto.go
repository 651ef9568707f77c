/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Field names on the
  calculation endpoints (lateFeeAmount, noticeLevel, daysInPeriod, ...) are
  a compatibility contract with existing dashboard clients and must not be
  renamed. Policy payloads reuse factory.PolicyJSON, the same form the
  store persists.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *DTO / *Response: Types returned to clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/policy.go: PolicyJSON type
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/brownstone/rent-engine/engine"
	"github.com/brownstone/rent-engine/factory"
	"github.com/brownstone/rent-engine/store/sqlite"
)

// =============================================================================
// LATE FEES
// =============================================================================

// ComputeLateFeeRequest asks for a late-fee calculation. AsOf defaults to
// the current time; clients (and tests) may pin it.
type ComputeLateFeeRequest struct {
	InvoiceID      string    `json:"invoiceId"`
	LeaseID        string    `json:"leaseId"`
	OrganizationID string    `json:"organizationId,omitempty"`
	DueDate        time.Time `json:"dueDate"`
	Amount         int64     `json:"amount"`
	AsOf           time.Time `json:"asOf,omitempty"`
}

// LateFeeResponse mirrors the engine result. AppliedRule is null when no
// rule applied.
type LateFeeResponse struct {
	LateFeeAmount     int64   `json:"lateFeeAmount"`
	AppliedRule       *string `json:"appliedRule"`
	DaysLate          int     `json:"daysLate"`
	EffectiveDaysLate int     `json:"effectiveDaysLate"`
	GracePeriod       int     `json:"gracePeriod"`
}

// AssessLateFeeRequest computes a fee for a stored invoice and records any
// positive amount in the ledger.
type AssessLateFeeRequest struct {
	InvoiceID string    `json:"invoiceId"`
	AsOf      time.Time `json:"asOf,omitempty"`
}

// =============================================================================
// DUNNING
// =============================================================================

// DunningSettingsDTO is the read/write shape for escalation thresholds.
type DunningSettingsDTO struct {
	FirstNoticeDays  int `json:"firstNoticeDays"`
	SecondNoticeDays int `json:"secondNoticeDays"`
	ThirdNoticeDays  int `json:"thirdNoticeDays"`
	FinalNoticeDays  int `json:"finalNoticeDays"`
}

func toSettingsDTO(s engine.DunningSettings) DunningSettingsDTO {
	return DunningSettingsDTO{
		FirstNoticeDays:  s.FirstNoticeDays,
		SecondNoticeDays: s.SecondNoticeDays,
		ThirdNoticeDays:  s.ThirdNoticeDays,
		FinalNoticeDays:  s.FinalNoticeDays,
	}
}

func (d DunningSettingsDTO) toEngine() engine.DunningSettings {
	return engine.DunningSettings{
		FirstNoticeDays:  d.FirstNoticeDays,
		SecondNoticeDays: d.SecondNoticeDays,
		ThirdNoticeDays:  d.ThirdNoticeDays,
		FinalNoticeDays:  d.FinalNoticeDays,
	}
}

// ProcessDunningRequest evaluates (and possibly dispatches) a notice for
// one invoice.
type ProcessDunningRequest struct {
	InvoiceID      string    `json:"invoiceId"`
	LeaseID        string    `json:"leaseId"`
	OrganizationID string    `json:"organizationId,omitempty"`
	TenantEmail    string    `json:"tenantEmail,omitempty"`
	TenantName     string    `json:"tenantName,omitempty"`
	Amount         int64     `json:"amount"`
	DueDate        time.Time `json:"dueDate"`
	AsOf           time.Time `json:"asOf,omitempty"`
}

// DunningResponse reports the computed escalation. Warning is set when the
// notification collaborator failed; the numbers are valid regardless.
type DunningResponse struct {
	NoticeLevel int    `json:"noticeLevel"`
	NoticeType  string `json:"noticeType"`
	DaysLate    int    `json:"daysLate"`
	Message     string `json:"message"`
	Dispatched  bool   `json:"dispatched"`
	Warning     string `json:"warning,omitempty"`
}

// NoticeDTO is one dispatched notice from the notice log.
type NoticeDTO struct {
	InvoiceID string `json:"invoiceId"`
	Level     int    `json:"level"`
	Type      string `json:"type"`
	SentAt    string `json:"sentAt"`
}

// SweepRunDTO is one dunning-sweep audit record.
type SweepRunDTO struct {
	ID              string  `json:"id"`
	StartedAt       string  `json:"startedAt"`
	CompletedAt     *string `json:"completedAt,omitempty"`
	InvoicesChecked int     `json:"invoicesChecked"`
	NoticesSent     int     `json:"noticesSent"`
	Error           string  `json:"error,omitempty"`
}

func toSweepRunDTO(run sqlite.SweepRun) SweepRunDTO {
	dto := SweepRunDTO{
		ID:              run.ID,
		StartedAt:       run.StartedAt.Format(time.RFC3339),
		InvoicesChecked: run.InvoicesChecked,
		NoticesSent:     run.NoticesSent,
		Error:           run.Error,
	}
	if run.CompletedAt != nil {
		s := run.CompletedAt.Format(time.RFC3339)
		dto.CompletedAt = &s
	}
	return dto
}

// =============================================================================
// PRORATION
// =============================================================================

// ProrationRequestDTO is the proration calculation input. MonthlyRent is in
// major units; the result stays in major units.
type ProrationRequestDTO struct {
	LeaseID         string          `json:"leaseId,omitempty"`
	StartDate       string          `json:"startDate"`
	EndDate         string          `json:"endDate"`
	MonthlyRent     decimal.Decimal `json:"monthlyRent"`
	ProrationMethod string          `json:"prorationMethod"`
}

type ProrationResponse struct {
	MonthlyRent     decimal.Decimal `json:"monthlyRent"`
	ProratedAmount  decimal.Decimal `json:"proratedAmount"`
	DaysInPeriod    int             `json:"daysInPeriod"`
	DailyRate       decimal.Decimal `json:"dailyRate"`
	ProrationMethod string          `json:"prorationMethod"`
}

// =============================================================================
// INVOICES AND STATEMENTS
// =============================================================================

type InvoiceDTO struct {
	ID             string `json:"id"`
	LeaseID        string `json:"leaseId"`
	OrganizationID string `json:"organizationId"`
	DueDate        string `json:"dueDate"`
	Amount         int64  `json:"amount"`
	Status         string `json:"status"`
	TenantName     string `json:"tenantName,omitempty"`
	TenantEmail    string `json:"tenantEmail,omitempty"`
}

func toInvoiceDTO(inv engine.Invoice) InvoiceDTO {
	return InvoiceDTO{
		ID:             string(inv.ID),
		LeaseID:        string(inv.LeaseID),
		OrganizationID: string(inv.OrganizationID),
		DueDate:        inv.DueDate.Format(time.RFC3339),
		Amount:         int64(inv.Amount),
		Status:         string(inv.Status),
		TenantName:     inv.TenantName,
		TenantEmail:    inv.TenantEmail,
	}
}

type CreateInvoiceRequest struct {
	ID             string    `json:"id"`
	LeaseID        string    `json:"leaseId"`
	OrganizationID string    `json:"organizationId"`
	DueDate        time.Time `json:"dueDate"`
	Amount         int64     `json:"amount"`
	TenantName     string    `json:"tenantName,omitempty"`
	TenantEmail    string    `json:"tenantEmail,omitempty"`
}

// StatementDTO is an owner statement for a reporting period. Amounts are in
// minor units, as stored in the ledger.
type StatementDTO struct {
	OrganizationID  string `json:"organizationId"`
	From            string `json:"from"`
	To              string `json:"to"`
	Collected       int64  `json:"collected"`
	Expenses        int64  `json:"expenses"`
	Net             int64  `json:"net"`
	CollectionCount int    `json:"collectionCount"`
	ExpenseCount    int    `json:"expenseCount"`
}

// =============================================================================
// POLICIES
// =============================================================================

// PolicyDTO wraps the stored policy config form.
type PolicyDTO = factory.PolicyJSON

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

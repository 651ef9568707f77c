/*
handlers.go - HTTP API handlers for the rent accounting engine

PURPOSE:
  Exposes the calculation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Late fees:
    POST   /api/latefees/compute       Compute a fee for ad-hoc inputs
    POST   /api/latefees/assess        Compute for a stored invoice and post to ledger

  Dunning:
    GET    /api/organizations/{id}/dunning-settings
    PUT    /api/organizations/{id}/dunning-settings
    POST   /api/dunning/process        Evaluate one invoice's escalation
    POST   /api/dunning/sweep          Run the overdue sweep now
    GET    /api/dunning/sweeps         Recent sweep audit records

  Proration:
    POST   /api/proration/compute

  Policies:
    GET    /api/policies               List policies for an organization
    POST   /api/policies               Create policy from JSON
    GET    /api/policies/{id}

  Invoices and statements:
    POST   /api/invoices
    GET    /api/invoices/{id}
    POST   /api/invoices/{id}/pay
    GET    /api/invoices/{id}/notices
    GET    /api/organizations/{id}/statement

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - Escalator: Dunning evaluation and notice dispatch
  - PolicyFactory: JSON to policy conversion
  - Sweeper: Scheduled overdue sweep (optional, also triggerable by hand)

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (engine, store)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - sweep.go: Scheduled dunning sweep
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brownstone/rent-engine/engine"
	"github.com/brownstone/rent-engine/factory"
	"github.com/brownstone/rent-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store         *sqlite.Store
	Escalator     *engine.Escalator
	PolicyFactory *factory.PolicyFactory

	// Sweeper is optional; without it the manual sweep endpoint returns 503.
	Sweeper *DunningSweeper
}

// NewHandler creates a new handler with the given store and escalator.
func NewHandler(store *sqlite.Store, escalator *engine.Escalator) *Handler {
	return &Handler{
		Store:         store,
		Escalator:     escalator,
		PolicyFactory: factory.NewPolicyFactory(),
	}
}

// =============================================================================
// LATE FEE ENDPOINTS
// =============================================================================

// ComputeLateFee resolves the applicable policy for a lease and computes the
// fee. Pure calculation; nothing is persisted.
// POST /api/latefees/compute
func (h *Handler) ComputeLateFee(w http.ResponseWriter, r *http.Request) {
	var req ComputeLateFeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.LeaseID == "" {
		writeError(w, http.StatusBadRequest, "leaseId is required", nil)
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive", nil)
		return
	}
	if req.DueDate.IsZero() {
		writeError(w, http.StatusBadRequest, "dueDate is required", nil)
		return
	}

	now := req.AsOf
	if now.IsZero() {
		now = time.Now().UTC()
	}

	policy, err := h.resolvePolicy(r, engine.OrganizationID(req.OrganizationID), engine.LeaseID(req.LeaseID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve policy", err)
		return
	}

	result := engine.ComputeLateFee(policy, req.DueDate, engine.Cents(req.Amount), now)
	writeJSON(w, http.StatusOK, toLateFeeResponse(result))
}

// AssessLateFee computes the fee for a stored invoice and, when positive,
// posts it to the ledger and marks the invoice overdue.
// POST /api/latefees/assess
func (h *Handler) AssessLateFee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AssessLateFeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	inv, err := h.Store.GetInvoice(ctx, engine.InvoiceID(req.InvoiceID))
	if err != nil {
		writeStoreError(w, "Failed to load invoice", err)
		return
	}
	if inv.Status == engine.StatusPaid {
		writeError(w, http.StatusBadRequest, "Invoice is already paid", nil)
		return
	}

	now := req.AsOf
	if now.IsZero() {
		now = time.Now().UTC()
	}

	policy, err := h.resolvePolicy(r, inv.OrganizationID, inv.LeaseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve policy", err)
		return
	}

	result := engine.ComputeLateFee(policy, inv.DueDate, inv.Amount, now)

	if result.LateFeeAmount > 0 {
		entry := engine.LedgerEntry{
			OrganizationID: inv.OrganizationID,
			LeaseID:        inv.LeaseID,
			InvoiceID:      inv.ID,
			Type:           engine.EntryLateFee,
			Amount:         result.LateFeeAmount,
			Reason:         "late fee (" + result.AppliedRule + ")",
			PostedAt:       now,
		}
		if err := h.Store.AppendLedgerEntry(ctx, entry); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to post late fee", err)
			return
		}
		if inv.Status != engine.StatusOverdue {
			if err := h.Store.SetInvoiceStatus(ctx, inv.ID, engine.StatusOverdue); err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to update invoice status", err)
				return
			}
		}
	}

	writeJSON(w, http.StatusOK, toLateFeeResponse(result))
}

// resolvePolicy loads the policy candidates for a lease and applies the
// lease-specific-before-org-default resolution. Returns nil when nothing
// applies, which the calculator treats as a zero fee.
func (h *Handler) resolvePolicy(r *http.Request, orgID engine.OrganizationID, leaseID engine.LeaseID) (*engine.LateFeePolicy, error) {
	candidates, err := h.Store.ListPoliciesForLease(r.Context(), orgID, leaseID)
	if err != nil {
		return nil, err
	}
	return engine.ResolvePolicy(leaseID, candidates), nil
}

func toLateFeeResponse(result engine.LateFeeResult) LateFeeResponse {
	resp := LateFeeResponse{
		LateFeeAmount:     int64(result.LateFeeAmount),
		DaysLate:          result.DaysLate,
		EffectiveDaysLate: result.EffectiveDaysLate,
		GracePeriod:       result.GracePeriodDays,
	}
	if result.AppliedRule != "" {
		resp.AppliedRule = strPtr(result.AppliedRule)
	}
	return resp
}

// =============================================================================
// DUNNING SETTINGS ENDPOINTS
// =============================================================================

// GetDunningSettings returns the organization's thresholds, creating the
// default record on first read.
// GET /api/organizations/{id}/dunning-settings
func (h *Handler) GetDunningSettings(w http.ResponseWriter, r *http.Request) {
	orgID := engine.OrganizationID(chi.URLParam(r, "id"))

	settings, err := h.Store.GetOrCreateDunningSettings(r.Context(), orgID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load dunning settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(settings))
}

// UpdateDunningSettings replaces the organization's thresholds.
// PUT /api/organizations/{id}/dunning-settings
func (h *Handler) UpdateDunningSettings(w http.ResponseWriter, r *http.Request) {
	orgID := engine.OrganizationID(chi.URLParam(r, "id"))

	var dto DunningSettingsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	for _, days := range []int{dto.FirstNoticeDays, dto.SecondNoticeDays, dto.ThirdNoticeDays, dto.FinalNoticeDays} {
		if days < 0 {
			writeError(w, http.StatusBadRequest, "Notice thresholds must not be negative", nil)
			return
		}
	}

	if err := h.Store.SaveDunningSettings(r.Context(), orgID, dto.toEngine()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save dunning settings", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// DUNNING PROCESSING ENDPOINTS
// =============================================================================

// ProcessDunning evaluates the escalation level for one invoice and, when a
// tenant address is present, dispatches the notice. The numeric result is
// returned even when dispatch fails; the failure appears as a warning.
// POST /api/dunning/process
func (h *Handler) ProcessDunning(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ProcessDunningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.InvoiceID == "" {
		writeError(w, http.StatusBadRequest, "invoiceId is required", nil)
		return
	}
	if req.DueDate.IsZero() {
		writeError(w, http.StatusBadRequest, "dueDate is required", nil)
		return
	}

	settings := engine.DefaultDunningSettings()
	if req.OrganizationID != "" {
		var err error
		settings, err = h.Store.GetOrCreateDunningSettings(ctx, engine.OrganizationID(req.OrganizationID))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load dunning settings", err)
			return
		}
	}

	now := req.AsOf
	if now.IsZero() {
		now = time.Now().UTC()
	}

	result := h.Escalator.Process(ctx, engine.DunningInput{
		InvoiceID:   engine.InvoiceID(req.InvoiceID),
		LeaseID:     engine.LeaseID(req.LeaseID),
		TenantName:  req.TenantName,
		TenantEmail: req.TenantEmail,
		Amount:      engine.Cents(req.Amount),
		DueDate:     req.DueDate,
		Settings:    settings,
		Now:         now,
	})

	writeJSON(w, http.StatusOK, toDunningResponse(result))
}

func toDunningResponse(result engine.DunningResult) DunningResponse {
	resp := DunningResponse{
		NoticeLevel: int(result.NoticeLevel),
		NoticeType:  string(result.NoticeType),
		DaysLate:    result.DaysLate,
		Message:     result.Message,
		Dispatched:  result.Dispatched,
	}
	if result.DispatchErr != nil {
		resp.Warning = result.DispatchErr.Error()
	}
	return resp
}

// TriggerSweep runs the overdue-invoice sweep immediately.
// POST /api/dunning/sweep
func (h *Handler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	if h.Sweeper == nil {
		writeError(w, http.StatusServiceUnavailable, "Sweep is not configured", nil)
		return
	}

	run, err := h.Sweeper.RunNow(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Sweep failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toSweepRunDTO(run))
}

// ListSweepRuns returns recent sweep audit records, newest first.
// GET /api/dunning/sweeps
func (h *Handler) ListSweepRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListSweepRuns(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sweep runs", err)
		return
	}

	dtos := make([]SweepRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toSweepRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PRORATION ENDPOINT
// =============================================================================

// ComputeProration calculates partial-period rent.
// POST /api/proration/compute
func (h *Handler) ComputeProration(w http.ResponseWriter, r *http.Request) {
	var req ProrationRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "startDate must be YYYY-MM-DD", err)
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "endDate must be YYYY-MM-DD", err)
		return
	}

	result, err := engine.Prorate(engine.ProrationRequest{
		MonthlyRent: req.MonthlyRent,
		StartDate:   start,
		EndDate:     end,
		Method:      engine.ProrationMethod(req.ProrationMethod),
	})
	if err != nil {
		if engine.IsClientError(err) {
			writeError(w, http.StatusBadRequest, "Invalid proration request", err)
		} else {
			writeError(w, http.StatusInternalServerError, "Proration failed", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, ProrationResponse{
		MonthlyRent:     req.MonthlyRent,
		ProratedAmount:  result.ProratedAmount,
		DaysInPeriod:    result.DaysInPeriod,
		DailyRate:       result.DailyRate,
		ProrationMethod: req.ProrationMethod,
	})
}

// =============================================================================
// POLICY ENDPOINTS
// =============================================================================

// ListPolicies returns all policies for an organization.
// GET /api/policies?organization_id=...
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	orgID := engine.OrganizationID(r.URL.Query().Get("organization_id"))
	if orgID == "" {
		writeError(w, http.StatusBadRequest, "organization_id query parameter is required", nil)
		return
	}

	policies, err := h.Store.ListPolicies(r.Context(), orgID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list policies", err)
		return
	}

	dtos := make([]PolicyDTO, len(policies))
	for i, p := range policies {
		dtos[i] = factory.ToJSON(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePolicy validates and stores a policy from its JSON config form.
// POST /api/policies
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	var pj PolicyDTO
	if err := json.NewDecoder(r.Body).Decode(&pj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	policy, err := h.PolicyFactory.FromJSON(pj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid policy", err)
		return
	}

	if err := h.Store.SavePolicy(r.Context(), policy); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save policy", err)
		return
	}
	writeJSON(w, http.StatusCreated, factory.ToJSON(policy))
}

// GetPolicy returns a single policy by ID.
// GET /api/policies/{id}
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	id := engine.PolicyID(chi.URLParam(r, "id"))

	policy, err := h.Store.GetPolicy(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Failed to load policy", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.ToJSON(policy))
}

// =============================================================================
// INVOICE ENDPOINTS
// =============================================================================

// CreateInvoice stores a new invoice in pending status.
// POST /api/invoices
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.LeaseID == "" || req.OrganizationID == "" {
		writeError(w, http.StatusBadRequest, "id, leaseId, and organizationId are required", nil)
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive", nil)
		return
	}
	if req.DueDate.IsZero() {
		writeError(w, http.StatusBadRequest, "dueDate is required", nil)
		return
	}

	inv := engine.Invoice{
		ID:             engine.InvoiceID(req.ID),
		LeaseID:        engine.LeaseID(req.LeaseID),
		OrganizationID: engine.OrganizationID(req.OrganizationID),
		DueDate:        req.DueDate,
		Amount:         engine.Cents(req.Amount),
		Status:         engine.StatusPending,
		TenantName:     req.TenantName,
		TenantEmail:    req.TenantEmail,
		CreatedAt:      time.Now().UTC(),
	}
	if err := h.Store.SaveInvoice(r.Context(), inv); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save invoice", err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceDTO(inv))
}

// GetInvoice returns a single invoice.
// GET /api/invoices/{id}
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id := engine.InvoiceID(chi.URLParam(r, "id"))

	inv, err := h.Store.GetInvoice(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Failed to load invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv))
}

// PayInvoice marks an invoice paid and posts the collection to the ledger.
// POST /api/invoices/{id}/pay
func (h *Handler) PayInvoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := engine.InvoiceID(chi.URLParam(r, "id"))

	inv, err := h.Store.GetInvoice(ctx, id)
	if err != nil {
		writeStoreError(w, "Failed to load invoice", err)
		return
	}
	if inv.Status == engine.StatusPaid {
		writeError(w, http.StatusBadRequest, "Invoice is already paid", nil)
		return
	}

	if err := h.Store.SetInvoiceStatus(ctx, id, engine.StatusPaid); err != nil {
		writeStoreError(w, "Failed to update invoice status", err)
		return
	}

	entry := engine.LedgerEntry{
		OrganizationID: inv.OrganizationID,
		LeaseID:        inv.LeaseID,
		InvoiceID:      inv.ID,
		Type:           engine.EntryCollection,
		Amount:         inv.Amount,
		Reason:         "rent payment",
		PostedAt:       time.Now().UTC(),
	}
	if err := h.Store.AppendLedgerEntry(ctx, entry); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to post payment", err)
		return
	}

	inv.Status = engine.StatusPaid
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv))
}

// ListInvoiceNotices returns the dispatched notices for an invoice.
// GET /api/invoices/{id}/notices
func (h *Handler) ListInvoiceNotices(w http.ResponseWriter, r *http.Request) {
	id := engine.InvoiceID(chi.URLParam(r, "id"))

	records, err := h.Store.ListNotices(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list notices", err)
		return
	}

	dtos := make([]NoticeDTO, len(records))
	for i, rec := range records {
		dtos[i] = NoticeDTO{
			InvoiceID: string(rec.InvoiceID),
			Level:     int(rec.Level),
			Type:      string(rec.Level.Type()),
			SentAt:    rec.SentAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// STATEMENT ENDPOINT
// =============================================================================

// GetStatement builds the owner statement for a reporting period.
// GET /api/organizations/{id}/statement?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := engine.OrganizationID(chi.URLParam(r, "id"))

	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD", err)
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD", err)
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not be before from", nil)
		return
	}

	entries, err := h.Store.ListLedgerEntries(ctx, orgID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load ledger entries", err)
		return
	}
	expenses, err := h.Store.ListExpenses(ctx, orgID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load expenses", err)
		return
	}

	st := engine.BuildOwnerStatement(orgID, engine.StatementPeriod{From: from, To: to}, entries, expenses)

	writeJSON(w, http.StatusOK, StatementDTO{
		OrganizationID:  string(st.OrganizationID),
		From:            from.Format("2006-01-02"),
		To:              to.Format("2006-01-02"),
		Collected:       int64(st.Collected),
		Expenses:        int64(st.Expenses),
		Net:             int64(st.Net),
		CollectionCount: st.CollectionCount,
		ExpenseCount:    st.ExpenseCount,
	})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeStoreError maps store errors onto HTTP statuses: not-found to 404,
// everything else to 500.
func writeStoreError(w http.ResponseWriter, message string, err error) {
	if engine.IsNotFound(err) {
		writeError(w, http.StatusNotFound, message, err)
		return
	}
	writeError(w, http.StatusInternalServerError, message, err)
}

func strPtr(s string) *string {
	return &s
}

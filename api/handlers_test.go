/*
handlers_test.go - HTTP-level tests for API handlers

Tests run against a real in-memory SQLite store behind httptest, exercising
the full request/response path: routing, JSON codecs, store access, and the
calculation engine.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brownstone/rent-engine/engine"
	"github.com/brownstone/rent-engine/store/sqlite"
)

// capturingSender records notices instead of delivering them.
type capturingSender struct {
	sent []string
}

func (c *capturingSender) Send(_ context.Context, to, _, _ string) error {
	c.sent = append(c.sent, to)
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *sqlite.Store, *capturingSender) {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sender := &capturingSender{}
	h := NewHandler(store, &engine.Escalator{Sender: sender, History: store})
	h.Sweeper = NewDunningSweeper(store, h.Escalator)
	h.Sweeper.Enabled = false // no background schedule in tests

	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, store, sender
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// LATE FEE ENDPOINT
// =============================================================================

func TestComputeLateFee_PercentageWithCap(t *testing.T) {
	// GIVEN: An org-default 10% policy capped at 5000, invoice 10 days late
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/policies", map[string]any{
		"id":                "pol-1",
		"organization_id":   "org-1",
		"grace_period_days": 5,
		"fee_type":          "percentage",
		"percentage_rate":   "10",
		"max_fee_amount":    5000,
		"is_active":         true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// WHEN: Computing the fee for a $1200.00 invoice, 10 days past due
	due := day(2024, time.June, 1)
	resp = postJSON(t, srv.URL+"/api/latefees/compute", ComputeLateFeeRequest{
		InvoiceID:      "inv-1",
		LeaseID:        "lease-1",
		OrganizationID: "org-1",
		DueDate:        due,
		Amount:         120000,
		AsOf:           due.AddDate(0, 0, 10),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[LateFeeResponse](t, resp)

	// THEN: 10% of 120000 = 12000, clamped to the 5000 cap
	assert.Equal(t, int64(5000), result.LateFeeAmount)
	require.NotNil(t, result.AppliedRule)
	assert.Equal(t, "percentage", *result.AppliedRule)
	assert.Equal(t, 10, result.DaysLate)
	assert.Equal(t, 5, result.EffectiveDaysLate)
	assert.Equal(t, 5, result.GracePeriod)
}

func TestComputeLateFee_NoPolicy_ZeroFee(t *testing.T) {
	srv, _, _ := newTestServer(t)

	due := day(2024, time.June, 1)
	resp := postJSON(t, srv.URL+"/api/latefees/compute", ComputeLateFeeRequest{
		LeaseID:        "lease-unknown",
		OrganizationID: "org-1",
		DueDate:        due,
		Amount:         120000,
		AsOf:           due.AddDate(0, 0, 10),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[LateFeeResponse](t, resp)

	assert.Equal(t, int64(0), result.LateFeeAmount)
	assert.Nil(t, result.AppliedRule)
	assert.Equal(t, 10, result.DaysLate)
}

func TestComputeLateFee_MissingLease_Rejected(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/latefees/compute", ComputeLateFeeRequest{
		DueDate: day(2024, time.June, 1),
		Amount:  120000,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAssessLateFee_PostsLedgerEntryAndMarksOverdue(t *testing.T) {
	// GIVEN: A stored invoice and a fixed-fee policy past its grace period
	srv, store, _ := newTestServer(t)
	ctx := context.Background()

	due := day(2024, time.June, 1)
	require.NoError(t, store.SaveInvoice(ctx, engine.Invoice{
		ID:             "inv-1",
		LeaseID:        "lease-1",
		OrganizationID: "org-1",
		DueDate:        due,
		Amount:         120000,
		Status:         engine.StatusPending,
	}))

	resp := postJSON(t, srv.URL+"/api/policies", map[string]any{
		"id":                "pol-1",
		"organization_id":   "org-1",
		"grace_period_days": 3,
		"fee_type":          "fixed",
		"fixed_amount":      7500,
		"is_active":         true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// WHEN: Assessing 10 days after the due date
	resp = postJSON(t, srv.URL+"/api/latefees/assess", AssessLateFeeRequest{
		InvoiceID: "inv-1",
		AsOf:      due.AddDate(0, 0, 10),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[LateFeeResponse](t, resp)

	// THEN: The fee is posted and the invoice is overdue
	assert.Equal(t, int64(7500), result.LateFeeAmount)

	inv, err := store.GetInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusOverdue, inv.Status)

	entries, err := store.ListLedgerEntries(ctx, "org-1", due, due.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, engine.EntryLateFee, entries[0].Type)
	assert.Equal(t, engine.Cents(7500), entries[0].Amount)
}

func TestAssessLateFee_UnknownInvoice_NotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/latefees/assess", AssessLateFeeRequest{InvoiceID: "nope"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// DUNNING SETTINGS ENDPOINTS
// =============================================================================

func TestDunningSettings_DefaultsOnFirstRead(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/organizations/org-1/dunning-settings")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	dto := decode[DunningSettingsDTO](t, resp)

	assert.Equal(t, DunningSettingsDTO{
		FirstNoticeDays:  3,
		SecondNoticeDays: 7,
		ThirdNoticeDays:  14,
		FinalNoticeDays:  30,
	}, dto)
}

func TestDunningSettings_UpdateRoundTrip(t *testing.T) {
	srv, _, _ := newTestServer(t)

	custom := DunningSettingsDTO{
		FirstNoticeDays:  5,
		SecondNoticeDays: 10,
		ThirdNoticeDays:  20,
		FinalNoticeDays:  45,
	}

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/organizations/org-1/dunning-settings", jsonBody(t, custom))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/organizations/org-1/dunning-settings")
	require.NoError(t, err)
	assert.Equal(t, custom, decode[DunningSettingsDTO](t, resp))
}

func jsonBody(t *testing.T, body any) *bytes.Reader {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	return bytes.NewReader(buf)
}

// =============================================================================
// DUNNING PROCESSING ENDPOINT
// =============================================================================

func TestProcessDunning_DispatchesAndRecordsHistory(t *testing.T) {
	// GIVEN: Default thresholds and an invoice 8 days late with an address
	srv, store, sender := newTestServer(t)

	due := day(2024, time.June, 1)
	req := ProcessDunningRequest{
		InvoiceID:      "inv-1",
		LeaseID:        "lease-1",
		OrganizationID: "org-1",
		TenantEmail:    "tenant@example.com",
		TenantName:     "Jordan Avery",
		Amount:         120000,
		DueDate:        due,
		AsOf:           due.AddDate(0, 0, 8),
	}

	// WHEN: Processing
	resp := postJSON(t, srv.URL+"/api/dunning/process", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[DunningResponse](t, resp)

	// THEN: Second notice (8 >= 7), dispatched once, history recorded
	assert.Equal(t, 2, result.NoticeLevel)
	assert.Equal(t, "second", result.NoticeType)
	assert.Equal(t, 8, result.DaysLate)
	assert.True(t, result.Dispatched)
	assert.Contains(t, result.Message, "8 days past due")
	assert.Equal(t, []string{"tenant@example.com"}, sender.sent)

	last, err := store.LastNoticeLevel(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, engine.LevelSecond, last)

	// AND: The same level processed again does not re-dispatch
	resp = postJSON(t, srv.URL+"/api/dunning/process", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result = decode[DunningResponse](t, resp)
	assert.False(t, result.Dispatched)
	assert.Len(t, sender.sent, 1)
}

func TestProcessDunning_NoAddress_DryEvaluation(t *testing.T) {
	srv, _, sender := newTestServer(t)

	due := day(2024, time.June, 1)
	resp := postJSON(t, srv.URL+"/api/dunning/process", ProcessDunningRequest{
		InvoiceID: "inv-1",
		LeaseID:   "lease-1",
		Amount:    120000,
		DueDate:   due,
		AsOf:      due.AddDate(0, 0, 35),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[DunningResponse](t, resp)

	assert.Equal(t, 4, result.NoticeLevel)
	assert.Equal(t, "final", result.NoticeType)
	assert.False(t, result.Dispatched)
	assert.Empty(t, sender.sent)
}

// =============================================================================
// PRORATION ENDPOINT
// =============================================================================

func TestComputeProration_Daily(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/proration/compute", map[string]any{
		"monthlyRent":     "3000",
		"startDate":       "2024-06-16",
		"endDate":         "2024-06-30",
		"prorationMethod": "daily",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[ProrationResponse](t, resp)

	assert.Equal(t, 15, result.DaysInPeriod)
	assert.Equal(t, "1500", result.ProratedAmount.String())
	assert.Equal(t, "daily", result.ProrationMethod)
}

func TestComputeProration_InvalidRange_Rejected(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/proration/compute", map[string]any{
		"monthlyRent":     "3000",
		"startDate":       "2024-06-30",
		"endDate":         "2024-06-01",
		"prorationMethod": "daily",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestComputeProration_BadDate_Rejected(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/proration/compute", map[string]any{
		"monthlyRent":     "3000",
		"startDate":       "June 1 2024",
		"endDate":         "2024-06-30",
		"prorationMethod": "daily",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// POLICY ENDPOINTS
// =============================================================================

func TestCreatePolicy_InvalidRate_Rejected(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/policies", map[string]any{
		"id":              "pol-bad",
		"organization_id": "org-1",
		"fee_type":        "percentage",
		"percentage_rate": "150",
		"is_active":       true,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetPolicy_RoundTrip(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/policies", map[string]any{
		"id":                "pol-1",
		"organization_id":   "org-1",
		"lease_id":          "lease-9",
		"grace_period_days": 2,
		"fee_type":          "fixed",
		"fixed_amount":      2500,
		"is_active":         true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/api/policies/pol-1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	dto := decode[PolicyDTO](t, resp)

	assert.Equal(t, "pol-1", dto.ID)
	assert.Equal(t, "fixed", dto.FeeType)
	assert.Equal(t, int64(2500), dto.FixedAmount)
	require.NotNil(t, dto.LeaseID)
	assert.Equal(t, "lease-9", *dto.LeaseID)
}

func TestGetPolicy_Unknown_NotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/policies/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// INVOICE AND STATEMENT ENDPOINTS
// =============================================================================

func TestPayInvoice_PostsCollectionAndShowsInStatement(t *testing.T) {
	// GIVEN: A pending invoice
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/invoices", CreateInvoiceRequest{
		ID:             "inv-1",
		LeaseID:        "lease-1",
		OrganizationID: "org-1",
		DueDate:        day(2026, time.September, 1),
		Amount:         120000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// WHEN: Paying it
	resp = postJSON(t, srv.URL+"/api/invoices/inv-1/pay", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	paid := decode[InvoiceDTO](t, resp)
	assert.Equal(t, "paid", paid.Status)

	// THEN: Paying twice fails
	resp = postJSON(t, srv.URL+"/api/invoices/inv-1/pay", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// AND: The collection appears on the statement even though it posted
	//      mid-day on the period's final day
	from := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	to := time.Now().UTC().Format("2006-01-02")
	url := fmt.Sprintf("%s/api/organizations/org-1/statement?from=%s&to=%s", srv.URL, from, to)
	resp, err := http.Get(url)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decode[StatementDTO](t, resp)

	assert.Equal(t, int64(120000), st.Collected)
	assert.Equal(t, int64(120000), st.Net)
	assert.Equal(t, 1, st.CollectionCount)
}

func TestGetInvoice_Unknown_NotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/invoices/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// SWEEP ENDPOINTS
// =============================================================================

func TestTriggerSweep_DispatchesForOverdueInvoices(t *testing.T) {
	// GIVEN: One overdue invoice with an address and one paid invoice
	srv, store, sender := newTestServer(t)
	ctx := context.Background()

	due := time.Now().UTC().AddDate(0, 0, -10)
	require.NoError(t, store.SaveInvoice(ctx, engine.Invoice{
		ID:             "inv-late",
		LeaseID:        "lease-1",
		OrganizationID: "org-1",
		DueDate:        due,
		Amount:         120000,
		Status:         engine.StatusPending,
		TenantName:     "Jordan Avery",
		TenantEmail:    "tenant@example.com",
	}))
	require.NoError(t, store.SaveInvoice(ctx, engine.Invoice{
		ID:             "inv-paid",
		LeaseID:        "lease-2",
		OrganizationID: "org-1",
		DueDate:        due,
		Amount:         90000,
		Status:         engine.StatusPaid,
	}))

	// WHEN: Triggering a sweep
	resp := postJSON(t, srv.URL+"/api/dunning/sweep", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	run := decode[SweepRunDTO](t, resp)

	// THEN: Only the unpaid invoice is checked; one notice goes out
	assert.Equal(t, 1, run.InvoicesChecked)
	assert.Equal(t, 1, run.NoticesSent)
	assert.Equal(t, []string{"tenant@example.com"}, sender.sent)

	inv, err := store.GetInvoice(ctx, "inv-late")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusOverdue, inv.Status)

	// AND: The run shows up in the audit list
	resp, err = http.Get(srv.URL + "/api/dunning/sweeps")
	require.NoError(t, err)
	runs := decode[[]SweepRunDTO](t, resp)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)

	// AND: A second sweep at the same level sends nothing new
	resp = postJSON(t, srv.URL+"/api/dunning/sweep", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	run = decode[SweepRunDTO](t, resp)
	assert.Equal(t, 0, run.NoticesSent)
	assert.Len(t, sender.sent, 1)
}

/*
Package sqlite provides the SQLite-backed persistence collaborator.

PURPOSE:
  Owns every entity the engine reads: late-fee policies, dunning settings,
  invoices, ledger entries, expenses, and the notice log. The engine never
  mutates entity state directly - it reads rows through this package and
  returns computed values; handlers decide what to write back.

KEY TABLES:
  late_fee_policies: Policy rows stored as config JSON plus query columns
  dunning_settings:  One row per organization (UNIQUE), upsert-created
  invoices:          Charges with due date, amount (minor units), status
  ledger_entries:    Collections and assessed fees (owner statement input)
  expenses:          Completed-work-order costs (owner statement input)
  notice_log:        Last notice level per invoice (dispatch gating)
  sweep_runs:        Dunning sweep audit records

GET-OR-CREATE WITHOUT THE RACE:
  Dunning settings use INSERT ... ON CONFLICT DO NOTHING followed by a
  SELECT, under a UNIQUE organization_id. Two callers initializing the same
  organization concurrently converge on a single row instead of racing a
  read-then-insert.

POLICY ORDERING:
  ListPoliciesForLease orders lease-specific rows before organization
  defaults, which is the ordering contract the rule resolver relies on.

WAL MODE:
  SQLite is opened with WAL for better read concurrency, as with any
  single-writer deployment of this store.

SEE ALSO:
  - engine/policy.go: ResolvePolicy consumes the ordered candidate set
  - factory/policy.go: JSON form used in config_json
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/brownstone/rent-engine/engine"
	"github.com/brownstone/rent-engine/factory"
)

// Store implements persistence for the rent-accounting engine.
type Store struct {
	db      *sql.DB
	mu      sync.RWMutex
	factory *factory.PolicyFactory
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single pooled connection: SQLite has one writer, and a ":memory:"
	// database exists per connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, factory: factory.NewPolicyFactory()}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Late fee policies (config JSON is the source of truth; lease/org
	-- columns exist for resolution queries)
	CREATE TABLE IF NOT EXISTS late_fee_policies (
		id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL,
		lease_id TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		config_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_policies_org_lease
		ON late_fee_policies(organization_id, lease_id);

	-- Dunning settings: exactly one row per organization. The UNIQUE
	-- primary key is what makes get-or-create safe under concurrency.
	CREATE TABLE IF NOT EXISTS dunning_settings (
		organization_id TEXT PRIMARY KEY,
		first_notice_days INTEGER NOT NULL,
		second_notice_days INTEGER NOT NULL,
		third_notice_days INTEGER NOT NULL,
		final_notice_days INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Invoices (ledger charges)
	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		lease_id TEXT NOT NULL,
		organization_id TEXT NOT NULL,
		due_date TEXT NOT NULL,
		amount INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		tenant_name TEXT,
		tenant_email TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_status_due
		ON invoices(status, due_date);
	CREATE INDEX IF NOT EXISTS idx_invoices_lease
		ON invoices(lease_id);

	-- Ledger entries (collections and assessed fees)
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL,
		lease_id TEXT NOT NULL,
		invoice_id TEXT,
		entry_type TEXT NOT NULL,
		amount INTEGER NOT NULL,
		reason TEXT,
		posted_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_org_posted
		ON ledger_entries(organization_id, posted_at);

	-- Work-order expenses
	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL,
		lease_id TEXT,
		description TEXT,
		amount INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'open',
		completed_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_expenses_org_completed
		ON expenses(organization_id, status, completed_at);

	-- Notice log: which level was last sent per invoice
	CREATE TABLE IF NOT EXISTS notice_log (
		id TEXT PRIMARY KEY,
		invoice_id TEXT NOT NULL,
		level INTEGER NOT NULL,
		sent_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notice_log_invoice
		ON notice_log(invoice_id, level);

	-- Dunning sweep audit records
	CREATE TABLE IF NOT EXISTS sweep_runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		completed_at TEXT,
		invoices_checked INTEGER NOT NULL DEFAULT 0,
		notices_sent INTEGER NOT NULL DEFAULT 0,
		error TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func marshalPolicy(pj factory.PolicyJSON) (string, error) {
	b, err := json.Marshal(pj)
	if err != nil {
		return "", fmt.Errorf("failed to marshal policy config: %w", err)
	}
	return string(b), nil
}

// =============================================================================
// POLICIES
// =============================================================================

// SavePolicy inserts or replaces a policy by ID.
func (s *Store) SavePolicy(ctx context.Context, p *engine.LateFeePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pj := factory.ToJSON(p)
	configJSON, err := marshalPolicy(pj)
	if err != nil {
		return err
	}

	var leaseID sql.NullString
	if p.LeaseID != nil {
		leaseID = sql.NullString{String: string(*p.LeaseID), Valid: true}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO late_fee_policies (id, organization_id, lease_id, is_active, config_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			organization_id = excluded.organization_id,
			lease_id = excluded.lease_id,
			is_active = excluded.is_active,
			config_json = excluded.config_json,
			updated_at = excluded.updated_at`,
		string(p.ID), string(p.OrganizationID), leaseID, p.IsActive, configJSON, now, now)
	return err
}

// GetPolicy returns a policy by ID, or ErrPolicyNotFound.
func (s *Store) GetPolicy(ctx context.Context, id engine.PolicyID) (*engine.LateFeePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var configJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT config_json FROM late_fee_policies WHERE id = ?`, string(id)).Scan(&configJSON)
	if err == sql.ErrNoRows {
		return nil, engine.ErrPolicyNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.factory.ParsePolicy(configJSON)
}

// ListPoliciesForLease returns the candidate set for resolution: active and
// inactive rows for the organization that either name the lease or are
// organization defaults, lease-specific rows first.
func (s *Store) ListPoliciesForLease(ctx context.Context, orgID engine.OrganizationID, leaseID engine.LeaseID) ([]*engine.LateFeePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT config_json FROM late_fee_policies
		WHERE organization_id = ? AND (lease_id = ? OR lease_id IS NULL)
		ORDER BY (lease_id IS NULL), created_at`,
		string(orgID), string(leaseID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []*engine.LateFeePolicy
	for rows.Next() {
		var configJSON string
		if err := rows.Scan(&configJSON); err != nil {
			return nil, err
		}
		policy, err := s.factory.ParsePolicy(configJSON)
		if err != nil {
			continue // skip rows with unparseable config
		}
		policies = append(policies, policy)
	}
	return policies, rows.Err()
}

// ListPolicies returns all policies for an organization.
func (s *Store) ListPolicies(ctx context.Context, orgID engine.OrganizationID) ([]*engine.LateFeePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT config_json FROM late_fee_policies
		WHERE organization_id = ?
		ORDER BY (lease_id IS NULL), created_at`, string(orgID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []*engine.LateFeePolicy
	for rows.Next() {
		var configJSON string
		if err := rows.Scan(&configJSON); err != nil {
			return nil, err
		}
		policy, err := s.factory.ParsePolicy(configJSON)
		if err != nil {
			continue
		}
		policies = append(policies, policy)
	}
	return policies, rows.Err()
}

// =============================================================================
// DUNNING SETTINGS
// =============================================================================

// GetOrCreateDunningSettings returns the organization's settings, creating
// the default row if none exists. The insert is an upsert no-op on conflict,
// so concurrent first-time callers cannot produce duplicates.
func (s *Store) GetOrCreateDunningSettings(ctx context.Context, orgID engine.OrganizationID) (engine.DunningSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defaults := engine.DefaultDunningSettings()
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dunning_settings (organization_id, first_notice_days, second_notice_days, third_notice_days, final_notice_days, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(organization_id) DO NOTHING`,
		string(orgID), defaults.FirstNoticeDays, defaults.SecondNoticeDays, defaults.ThirdNoticeDays, defaults.FinalNoticeDays, now)
	if err != nil {
		return engine.DunningSettings{}, err
	}

	var settings engine.DunningSettings
	err = s.db.QueryRowContext(ctx, `
		SELECT first_notice_days, second_notice_days, third_notice_days, final_notice_days
		FROM dunning_settings WHERE organization_id = ?`, string(orgID)).
		Scan(&settings.FirstNoticeDays, &settings.SecondNoticeDays, &settings.ThirdNoticeDays, &settings.FinalNoticeDays)
	return settings, err
}

// SaveDunningSettings writes settings for an organization.
func (s *Store) SaveDunningSettings(ctx context.Context, orgID engine.OrganizationID, settings engine.DunningSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dunning_settings (organization_id, first_notice_days, second_notice_days, third_notice_days, final_notice_days, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(organization_id) DO UPDATE SET
			first_notice_days = excluded.first_notice_days,
			second_notice_days = excluded.second_notice_days,
			third_notice_days = excluded.third_notice_days,
			final_notice_days = excluded.final_notice_days,
			updated_at = excluded.updated_at`,
		string(orgID), settings.FirstNoticeDays, settings.SecondNoticeDays, settings.ThirdNoticeDays, settings.FinalNoticeDays, now)
	return err
}

// =============================================================================
// INVOICES
// =============================================================================

// SaveInvoice inserts or replaces an invoice by ID.
func (s *Store) SaveInvoice(ctx context.Context, inv engine.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	if inv.Status == "" {
		inv.Status = engine.StatusPending
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invoices (id, lease_id, organization_id, due_date, amount, status, tenant_name, tenant_email, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			due_date = excluded.due_date,
			amount = excluded.amount,
			status = excluded.status,
			tenant_name = excluded.tenant_name,
			tenant_email = excluded.tenant_email`,
		string(inv.ID), string(inv.LeaseID), string(inv.OrganizationID),
		inv.DueDate.UTC().Format(time.RFC3339), int64(inv.Amount), string(inv.Status),
		inv.TenantName, inv.TenantEmail, inv.CreatedAt.Format(time.RFC3339))
	return err
}

// GetInvoice returns an invoice by ID, or ErrInvoiceNotFound.
func (s *Store) GetInvoice(ctx context.Context, id engine.InvoiceID) (*engine.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, lease_id, organization_id, due_date, amount, status, tenant_name, tenant_email, created_at
		FROM invoices WHERE id = ?`, string(id))
	return scanInvoice(row)
}

// ListOverdue returns unpaid invoices whose due date has passed.
func (s *Store) ListOverdue(ctx context.Context, now time.Time) ([]engine.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, lease_id, organization_id, due_date, amount, status, tenant_name, tenant_email, created_at
		FROM invoices
		WHERE status != 'paid' AND due_date < ?
		ORDER BY due_date`, now.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []engine.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

// SetInvoiceStatus transitions an invoice's status.
func (s *Store) SetInvoiceStatus(ctx context.Context, id engine.InvoiceID, status engine.ChargeStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE invoices SET status = ? WHERE id = ?`, string(status), string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrInvoiceNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*engine.Invoice, error) {
	var inv engine.Invoice
	var id, leaseID, orgID, dueDate, status, createdAt string
	var tenantName, tenantEmail sql.NullString
	var amount int64

	err := row.Scan(&id, &leaseID, &orgID, &dueDate, &amount, &status, &tenantName, &tenantEmail, &createdAt)
	if err == sql.ErrNoRows {
		return nil, engine.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}

	inv.ID = engine.InvoiceID(id)
	inv.LeaseID = engine.LeaseID(leaseID)
	inv.OrganizationID = engine.OrganizationID(orgID)
	inv.Amount = engine.Cents(amount)
	inv.Status = engine.ChargeStatus(status)
	inv.TenantName = tenantName.String
	inv.TenantEmail = tenantEmail.String
	inv.DueDate, _ = time.Parse(time.RFC3339, dueDate)
	inv.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &inv, nil
}

// =============================================================================
// LEDGER AND EXPENSES
// =============================================================================

// AppendLedgerEntry records a collection or assessed fee. A missing ID is
// generated.
func (s *Store) AppendLedgerEntry(ctx context.Context, e engine.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.PostedAt.IsZero() {
		e.PostedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, organization_id, lease_id, invoice_id, entry_type, amount, reason, posted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.OrganizationID), string(e.LeaseID), string(e.InvoiceID),
		string(e.Type), int64(e.Amount), e.Reason, e.PostedAt.UTC().Format(time.RFC3339))
	return err
}

// dayAfter formats midnight UTC of the day after t, the exclusive upper
// bound for day-inclusive range queries.
func dayAfter(t time.Time) string {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, 1).Format(time.RFC3339)
}

// ListLedgerEntries returns all entries for an organization posted in the
// day-inclusive [from, to] window. The `to` day counts in full: the query
// bound is midnight of the following day, exclusive, so a payment posted
// mid-day on the last day of the period is still included.
func (s *Store) ListLedgerEntries(ctx context.Context, orgID engine.OrganizationID, from, to time.Time) ([]engine.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_id, lease_id, invoice_id, entry_type, amount, reason, posted_at
		FROM ledger_entries
		WHERE organization_id = ? AND posted_at >= ? AND posted_at < ?
		ORDER BY posted_at`,
		string(orgID), from.UTC().Format(time.RFC3339), dayAfter(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []engine.LedgerEntry
	for rows.Next() {
		var e engine.LedgerEntry
		var orgID, leaseID, invoiceID, entryType, postedAt string
		var reason sql.NullString
		var amount int64
		if err := rows.Scan(&e.ID, &orgID, &leaseID, &invoiceID, &entryType, &amount, &reason, &postedAt); err != nil {
			return nil, err
		}
		e.OrganizationID = engine.OrganizationID(orgID)
		e.LeaseID = engine.LeaseID(leaseID)
		e.InvoiceID = engine.InvoiceID(invoiceID)
		e.Type = engine.EntryType(entryType)
		e.Amount = engine.Cents(amount)
		e.Reason = reason.String
		e.PostedAt, _ = time.Parse(time.RFC3339, postedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SaveExpense inserts or replaces an expense by ID. A missing ID is generated.
func (s *Store) SaveExpense(ctx context.Context, x engine.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if x.ID == "" {
		x.ID = uuid.NewString()
	}

	var completedAt sql.NullString
	if !x.CompletedAt.IsZero() {
		completedAt = sql.NullString{String: x.CompletedAt.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, organization_id, lease_id, description, amount, status, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			amount = excluded.amount,
			status = excluded.status,
			completed_at = excluded.completed_at`,
		x.ID, string(x.OrganizationID), string(x.LeaseID), x.Description,
		int64(x.Amount), string(x.Status), completedAt, time.Now().UTC().Format(time.RFC3339))
	return err
}

// ListExpenses returns an organization's expenses completed in the
// day-inclusive [from, to] window (see ListLedgerEntries for the bound
// convention), plus open ones (callers filter by status).
func (s *Store) ListExpenses(ctx context.Context, orgID engine.OrganizationID, from, to time.Time) ([]engine.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_id, lease_id, description, amount, status, completed_at
		FROM expenses
		WHERE organization_id = ? AND (completed_at IS NULL OR (completed_at >= ? AND completed_at < ?))`,
		string(orgID), from.UTC().Format(time.RFC3339), dayAfter(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []engine.Expense
	for rows.Next() {
		var x engine.Expense
		var orgID, status string
		var leaseID, description, completedAt sql.NullString
		var amount int64
		if err := rows.Scan(&x.ID, &orgID, &leaseID, &description, &amount, &status, &completedAt); err != nil {
			return nil, err
		}
		x.OrganizationID = engine.OrganizationID(orgID)
		x.LeaseID = engine.LeaseID(leaseID.String)
		x.Description = description.String
		x.Amount = engine.Cents(amount)
		x.Status = engine.ExpenseStatus(status)
		if completedAt.Valid {
			x.CompletedAt, _ = time.Parse(time.RFC3339, completedAt.String)
		}
		expenses = append(expenses, x)
	}
	return expenses, rows.Err()
}

// =============================================================================
// NOTICE LOG - engine.NoticeHistory implementation
// =============================================================================

// LastNoticeLevel returns the highest level ever sent for an invoice,
// LevelNone when no notice has gone out.
func (s *Store) LastNoticeLevel(ctx context.Context, invoiceID engine.InvoiceID) (engine.NoticeLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var level sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(level) FROM notice_log WHERE invoice_id = ?`, string(invoiceID)).Scan(&level)
	if err != nil {
		return engine.LevelNone, err
	}
	return engine.NoticeLevel(level.Int64), nil
}

// RecordNotice appends a notice-log row.
func (s *Store) RecordNotice(ctx context.Context, invoiceID engine.InvoiceID, level engine.NoticeLevel, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notice_log (id, invoice_id, level, sent_at) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), string(invoiceID), int(level), at.UTC().Format(time.RFC3339))
	return err
}

// NoticeRecord is one dispatched notice, for API display.
type NoticeRecord struct {
	InvoiceID engine.InvoiceID
	Level     engine.NoticeLevel
	SentAt    time.Time
}

// ListNotices returns all notices sent for an invoice, oldest first.
func (s *Store) ListNotices(ctx context.Context, invoiceID engine.InvoiceID) ([]NoticeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT invoice_id, level, sent_at FROM notice_log
		WHERE invoice_id = ? ORDER BY sent_at`, string(invoiceID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []NoticeRecord
	for rows.Next() {
		var r NoticeRecord
		var invoiceID, sentAt string
		var level int
		if err := rows.Scan(&invoiceID, &level, &sentAt); err != nil {
			return nil, err
		}
		r.InvoiceID = engine.InvoiceID(invoiceID)
		r.Level = engine.NoticeLevel(level)
		r.SentAt, _ = time.Parse(time.RFC3339, sentAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

var _ engine.NoticeHistory = (*Store)(nil)

// =============================================================================
// SWEEP RUNS
// =============================================================================

// SweepRun records one pass of the dunning sweep.
type SweepRun struct {
	ID              string
	StartedAt       time.Time
	CompletedAt     *time.Time
	InvoicesChecked int
	NoticesSent     int
	Error           string
}

// SaveSweepRun inserts or updates a sweep run record.
func (s *Store) SaveSweepRun(ctx context.Context, run SweepRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var completedAt sql.NullString
	if run.CompletedAt != nil {
		completedAt = sql.NullString{String: run.CompletedAt.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sweep_runs (id, started_at, completed_at, invoices_checked, notices_sent, error)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			completed_at = excluded.completed_at,
			invoices_checked = excluded.invoices_checked,
			notices_sent = excluded.notices_sent,
			error = excluded.error`,
		run.ID, run.StartedAt.UTC().Format(time.RFC3339), completedAt,
		run.InvoicesChecked, run.NoticesSent, run.Error)
	return err
}

// ListSweepRuns returns the most recent runs, newest first.
func (s *Store) ListSweepRuns(ctx context.Context, limit int) ([]SweepRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, completed_at, invoices_checked, notices_sent, error
		FROM sweep_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []SweepRun
	for rows.Next() {
		var run SweepRun
		var startedAt string
		var completedAt, runErr sql.NullString
		if err := rows.Scan(&run.ID, &startedAt, &completedAt, &run.InvoicesChecked, &run.NoticesSent, &runErr); err != nil {
			return nil, err
		}
		run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		if completedAt.Valid {
			t, _ := time.Parse(time.RFC3339, completedAt.String)
			run.CompletedAt = &t
		}
		run.Error = runErr.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

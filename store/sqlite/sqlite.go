/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements every persistence interface the engine needs (rate history,
  deduction catalog, roster, timesheets, payroll runs, ledger accounts and
  entries) over sqlx + SQLite. In production, the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

MUTABILITY ENFORCEMENT:
  - pay_rates: INSERT plus one narrow UPDATE that only sets end_date on an
    open row. Monetary fields are never updated; rows are never deleted.
  - payroll_details / run totals: writes carry `status = 'draft'` in their
    WHERE clause, so paid and cancelled runs are immutable at the SQL
    level, not just by caller discipline.
  - gl_entries: INSERT only. No UPDATE or DELETE statements exist.

CONCURRENCY:
  State transitions and GL posting are conditional updates:

    UPDATE payroll_runs SET status='paid' WHERE id=? AND status='draft'
    UPDATE payroll_runs SET gl_posted=1 WHERE id=? AND status='paid' AND gl_posted=0

  plus RowsAffected checks. PostRun wraps the claim and the entry inserts
  in one SQL transaction, so two concurrent posts of the same run produce
  exactly one set of entries.

SEQUENCES:
  Run and entry numbers come from per-year counter rows updated with
  `ON CONFLICT DO UPDATE ... RETURNING`, so reservation is a single atomic
  statement. Gaps after a failed posting are acceptable; duplicates are not.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) and foreign keys on:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  st, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - payroll/store.go, ledger/types.go: interface definitions
  - payroll/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/ledger"
	"github.com/warp/payroll-engine/payroll"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sqlx.DB
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbPath == ":memory:" {
		// Each pooled connection would otherwise open its own empty database.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Reset clears all data. Development and demo use only.
func (s *Store) Reset(ctx context.Context) error {
	tables := []string{
		"gl_entries", "gl_sequences", "payroll_details", "payroll_runs",
		"run_sequences", "time_entries", "deduction_overrides", "deductions",
		"pay_rates", "employees", "gl_accounts",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Employees (roster, read-only input for run generation)
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		role TEXT,
		eligible BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL
	);

	-- Effective-dated rate history (append-only; end_date is the one
	-- permitted mutation)
	CREATE TABLE IF NOT EXISTS pay_rates (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		hourly_rate TEXT NOT NULL,
		overtime_rate TEXT NOT NULL,
		overtime_threshold TEXT NOT NULL,
		salary_amount TEXT,
		pay_frequency TEXT NOT NULL DEFAULT 'biweekly',
		effective_date DATETIME NOT NULL,
		end_date DATETIME,
		bonus_eligible BOOLEAN NOT NULL DEFAULT FALSE,
		per_diem_rate TEXT NOT NULL DEFAULT '0',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pay_rates_employee
		ON pay_rates(employee_id, effective_date);
	-- At most one open-ended row per employee
	CREATE UNIQUE INDEX IF NOT EXISTS idx_pay_rates_open
		ON pay_rates(employee_id) WHERE end_date IS NULL;

	-- Deduction catalog
	CREATE TABLE IF NOT EXISTS deductions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		method TEXT NOT NULL,
		default_amount TEXT NOT NULL,
		pre_tax BOOLEAN NOT NULL DEFAULT FALSE,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS deduction_overrides (
		employee_id TEXT NOT NULL,
		deduction_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		PRIMARY KEY (employee_id, deduction_id)
	);

	-- Time entries (approved rows feed run generation)
	CREATE TABLE IF NOT EXISTS time_entries (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		date DATETIME NOT NULL,
		regular_hours TEXT NOT NULL,
		overtime_hours TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL DEFAULT 'pending',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_time_entries_employee_date
		ON time_entries(employee_id, date);
	CREATE INDEX IF NOT EXISTS idx_time_entries_status
		ON time_entries(status, date);

	-- Payroll runs
	CREATE TABLE IF NOT EXISTS payroll_runs (
		id TEXT PRIMARY KEY,
		run_number TEXT NOT NULL UNIQUE,
		period_start DATETIME NOT NULL,
		period_end DATETIME NOT NULL,
		pay_date DATETIME NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		total_gross TEXT NOT NULL DEFAULT '0',
		total_deductions TEXT NOT NULL DEFAULT '0',
		total_net TEXT NOT NULL DEFAULT '0',
		employee_count INTEGER NOT NULL DEFAULT 0,
		gl_posted BOOLEAN NOT NULL DEFAULT FALSE,
		created_by TEXT,
		created_at DATETIME NOT NULL,
		approved_by TEXT,
		approved_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_payroll_runs_status
		ON payroll_runs(status);

	-- Per-run, per-employee detail rows
	CREATE TABLE IF NOT EXISTS payroll_details (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES payroll_runs(id),
		employee_id TEXT NOT NULL,
		regular_hours TEXT NOT NULL,
		overtime_hours TEXT NOT NULL,
		regular_pay TEXT NOT NULL,
		overtime_pay TEXT NOT NULL,
		gross_pay TEXT NOT NULL,
		total_deductions TEXT NOT NULL,
		net_pay TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (run_id, employee_id)
	);

	CREATE INDEX IF NOT EXISTS idx_payroll_details_run
		ON payroll_details(run_id);

	-- Chart of accounts (payroll slice)
	CREATE TABLE IF NOT EXISTS gl_accounts (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL
	);

	-- Journal entries (append-only; no UPDATE or DELETE ever)
	CREATE TABLE IF NOT EXISTS gl_entries (
		id TEXT PRIMARY KEY,
		entry_number TEXT NOT NULL UNIQUE,
		entry_date DATETIME NOT NULL,
		account_id TEXT NOT NULL REFERENCES gl_accounts(id),
		debit_amount TEXT NOT NULL DEFAULT '0',
		credit_amount TEXT NOT NULL DEFAULT '0',
		reference_type TEXT NOT NULL,
		reference_id TEXT NOT NULL,
		fiscal_year INTEGER NOT NULL,
		fiscal_period INTEGER NOT NULL,
		is_posted BOOLEAN NOT NULL DEFAULT TRUE,
		memo TEXT,
		created_by TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_gl_entries_reference
		ON gl_entries(reference_type, reference_id);
	CREATE INDEX IF NOT EXISTS idx_gl_entries_fiscal
		ON gl_entries(fiscal_year, fiscal_period);

	-- Per-year number sequences for runs and journal entries
	CREATE TABLE IF NOT EXISTS run_sequences (
		year INTEGER PRIMARY KEY,
		value INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS gl_sequences (
		year INTEGER PRIMARY KEY,
		value INTEGER NOT NULL DEFAULT 0
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ROW TYPES - sqlx scanning targets
// =============================================================================

type rateRow struct {
	ID                string          `db:"id"`
	EmployeeID        string          `db:"employee_id"`
	HourlyRate        decimal.Decimal `db:"hourly_rate"`
	OvertimeRate      decimal.Decimal `db:"overtime_rate"`
	OvertimeThreshold decimal.Decimal `db:"overtime_threshold"`
	SalaryAmount      sql.NullString  `db:"salary_amount"`
	PayFrequency      string          `db:"pay_frequency"`
	EffectiveDate     time.Time       `db:"effective_date"`
	EndDate           *time.Time      `db:"end_date"`
	BonusEligible     bool            `db:"bonus_eligible"`
	PerDiemRate       decimal.Decimal `db:"per_diem_rate"`
	CreatedAt         time.Time       `db:"created_at"`
}

func (r rateRow) toDomain() payroll.PayRate {
	rate := payroll.PayRate{
		ID:                payroll.RateID(r.ID),
		EmployeeID:        payroll.EmployeeID(r.EmployeeID),
		HourlyRate:        r.HourlyRate,
		OvertimeRate:      r.OvertimeRate,
		OvertimeThreshold: r.OvertimeThreshold,
		PayFrequency:      payroll.PayFrequency(r.PayFrequency),
		EffectiveDate:     r.EffectiveDate,
		EndDate:           r.EndDate,
		BonusEligible:     r.BonusEligible,
		PerDiemRate:       r.PerDiemRate,
		CreatedAt:         r.CreatedAt,
	}
	if r.SalaryAmount.Valid {
		d := payroll.MustDecimal(r.SalaryAmount.String)
		rate.SalaryAmount = &d
	}
	return rate
}

type runRow struct {
	ID              string          `db:"id"`
	RunNumber       string          `db:"run_number"`
	PeriodStart     time.Time       `db:"period_start"`
	PeriodEnd       time.Time       `db:"period_end"`
	PayDate         time.Time       `db:"pay_date"`
	Status          string          `db:"status"`
	TotalGross      decimal.Decimal `db:"total_gross"`
	TotalDeductions decimal.Decimal `db:"total_deductions"`
	TotalNet        decimal.Decimal `db:"total_net"`
	EmployeeCount   int             `db:"employee_count"`
	GLPosted        bool            `db:"gl_posted"`
	CreatedBy       sql.NullString  `db:"created_by"`
	CreatedAt       time.Time       `db:"created_at"`
	ApprovedBy      sql.NullString  `db:"approved_by"`
	ApprovedAt      *time.Time      `db:"approved_at"`
}

func (r runRow) toDomain() payroll.PayrollRun {
	return payroll.PayrollRun{
		ID:              payroll.RunID(r.ID),
		RunNumber:       r.RunNumber,
		PeriodStart:     r.PeriodStart,
		PeriodEnd:       r.PeriodEnd,
		PayDate:         r.PayDate,
		Status:          payroll.RunStatus(r.Status),
		TotalGross:      r.TotalGross,
		TotalDeductions: r.TotalDeductions,
		TotalNet:        r.TotalNet,
		EmployeeCount:   r.EmployeeCount,
		GLPosted:        r.GLPosted,
		CreatedBy:       r.CreatedBy.String,
		CreatedAt:       r.CreatedAt,
		ApprovedBy:      r.ApprovedBy.String,
		ApprovedAt:      r.ApprovedAt,
	}
}

type detailRow struct {
	ID              string          `db:"id"`
	RunID           string          `db:"run_id"`
	EmployeeID      string          `db:"employee_id"`
	RegularHours    decimal.Decimal `db:"regular_hours"`
	OvertimeHours   decimal.Decimal `db:"overtime_hours"`
	RegularPay      decimal.Decimal `db:"regular_pay"`
	OvertimePay     decimal.Decimal `db:"overtime_pay"`
	GrossPay        decimal.Decimal `db:"gross_pay"`
	TotalDeductions decimal.Decimal `db:"total_deductions"`
	NetPay          decimal.Decimal `db:"net_pay"`
	CreatedAt       time.Time       `db:"created_at"`
}

func (r detailRow) toDomain() payroll.PayrollDetail {
	return payroll.PayrollDetail{
		ID:              r.ID,
		RunID:           payroll.RunID(r.RunID),
		EmployeeID:      payroll.EmployeeID(r.EmployeeID),
		RegularHours:    r.RegularHours,
		OvertimeHours:   r.OvertimeHours,
		RegularPay:      r.RegularPay,
		OvertimePay:     r.OvertimePay,
		GrossPay:        r.GrossPay,
		TotalDeductions: r.TotalDeductions,
		NetPay:          r.NetPay,
		CreatedAt:       r.CreatedAt,
	}
}

type entryRow struct {
	ID            string          `db:"id"`
	EntryNumber   string          `db:"entry_number"`
	EntryDate     time.Time       `db:"entry_date"`
	AccountID     string          `db:"account_id"`
	DebitAmount   decimal.Decimal `db:"debit_amount"`
	CreditAmount  decimal.Decimal `db:"credit_amount"`
	ReferenceType string          `db:"reference_type"`
	ReferenceID   string          `db:"reference_id"`
	FiscalYear    int             `db:"fiscal_year"`
	FiscalPeriod  int             `db:"fiscal_period"`
	IsPosted      bool            `db:"is_posted"`
	Memo          sql.NullString  `db:"memo"`
	CreatedBy     sql.NullString  `db:"created_by"`
	CreatedAt     time.Time       `db:"created_at"`
}

func (r entryRow) toDomain() ledger.Entry {
	return ledger.Entry{
		ID:            r.ID,
		EntryNumber:   r.EntryNumber,
		EntryDate:     r.EntryDate,
		AccountID:     r.AccountID,
		Debit:         r.DebitAmount,
		Credit:        r.CreditAmount,
		ReferenceType: r.ReferenceType,
		ReferenceID:   r.ReferenceID,
		FiscalYear:    r.FiscalYear,
		FiscalPeriod:  r.FiscalPeriod,
		Posted:        r.IsPosted,
		Memo:          r.Memo.String,
		CreatedBy:     r.CreatedBy.String,
		CreatedAt:     r.CreatedAt,
	}
}

// =============================================================================
// RATE STORE (payroll.RateStore)
// =============================================================================

func (s *Store) AppendRate(ctx context.Context, r payroll.PayRate) error {
	var salary any
	if r.SalaryAmount != nil {
		salary = r.SalaryAmount.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pay_rates
		(id, employee_id, hourly_rate, overtime_rate, overtime_threshold,
		 salary_amount, pay_frequency, effective_date, end_date,
		 bonus_eligible, per_diem_rate, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.EmployeeID, r.HourlyRate.String(), r.OvertimeRate.String(),
		r.OvertimeThreshold.String(), salary, r.PayFrequency,
		r.EffectiveDate.UTC(), r.EndDate, r.BonusEligible,
		r.PerDiemRate.String(), r.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to append rate: %w", err)
	}
	return nil
}

func (s *Store) CloseRate(ctx context.Context, id payroll.RateID, endDate time.Time) error {
	// The only mutation the rate history permits.
	res, err := s.db.ExecContext(ctx,
		`UPDATE pay_rates SET end_date = ? WHERE id = ? AND end_date IS NULL`,
		payroll.Day(endDate), id)
	if err != nil {
		return fmt.Errorf("failed to close rate: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("rate %s is not an open row", id)
	}
	return nil
}

func (s *Store) RatesFor(ctx context.Context, employee payroll.EmployeeID) ([]payroll.PayRate, error) {
	var rows []rateRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM pay_rates
		WHERE employee_id = ?
		ORDER BY effective_date ASC`, employee)
	if err != nil {
		return nil, fmt.Errorf("failed to load rates: %w", err)
	}
	out := make([]payroll.PayRate, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) OpenRate(ctx context.Context, employee payroll.EmployeeID) (*payroll.PayRate, error) {
	var row rateRow
	err := s.db.GetContext(ctx, &row, `
		SELECT * FROM pay_rates
		WHERE employee_id = ? AND end_date IS NULL`, employee)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load open rate: %w", err)
	}
	rate := row.toDomain()
	return &rate, nil
}

// =============================================================================
// DEDUCTION STORE (payroll.DeductionStore)
// =============================================================================

type deductionRow struct {
	ID            string          `db:"id"`
	Name          string          `db:"name"`
	Category      string          `db:"category"`
	Method        string          `db:"method"`
	DefaultAmount decimal.Decimal `db:"default_amount"`
	PreTax        bool            `db:"pre_tax"`
	Active        bool            `db:"active"`
	CreatedAt     time.Time       `db:"created_at"`
}

func (r deductionRow) toDomain() payroll.DeductionDefinition {
	return payroll.DeductionDefinition{
		ID:            payroll.DeductionID(r.ID),
		Name:          r.Name,
		Category:      payroll.DeductionCategory(r.Category),
		Method:        payroll.CalculationMethod(r.Method),
		DefaultAmount: r.DefaultAmount,
		PreTax:        r.PreTax,
		Active:        r.Active,
		CreatedAt:     r.CreatedAt,
	}
}

func (s *Store) SaveDeduction(ctx context.Context, d payroll.DeductionDefinition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deductions (id, name, category, method, default_amount, pre_tax, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			method = excluded.method,
			default_amount = excluded.default_amount,
			pre_tax = excluded.pre_tax,
			active = excluded.active`,
		d.ID, d.Name, d.Category, d.Method, d.DefaultAmount.String(),
		d.PreTax, d.Active, d.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save deduction: %w", err)
	}
	return nil
}

func (s *Store) ListDeductions(ctx context.Context) ([]payroll.DeductionDefinition, error) {
	var rows []deductionRow
	err := s.db.SelectContext(ctx, &rows, `SELECT * FROM deductions ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list deductions: %w", err)
	}
	out := make([]payroll.DeductionDefinition, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

type overrideRow struct {
	EmployeeID  string          `db:"employee_id"`
	DeductionID string          `db:"deduction_id"`
	Amount      decimal.Decimal `db:"amount"`
	Active      bool            `db:"active"`
}

func (r overrideRow) toDomain() payroll.DeductionOverride {
	return payroll.DeductionOverride{
		EmployeeID:  payroll.EmployeeID(r.EmployeeID),
		DeductionID: payroll.DeductionID(r.DeductionID),
		Amount:      r.Amount,
		Active:      r.Active,
	}
}

func (s *Store) SaveOverride(ctx context.Context, o payroll.DeductionOverride) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deduction_overrides (employee_id, deduction_id, amount, active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(employee_id, deduction_id) DO UPDATE SET
			amount = excluded.amount,
			active = excluded.active`,
		o.EmployeeID, o.DeductionID, o.Amount.String(), o.Active)
	if err != nil {
		return fmt.Errorf("failed to save override: %w", err)
	}
	return nil
}

func (s *Store) ListOverrides(ctx context.Context) ([]payroll.DeductionOverride, error) {
	var rows []overrideRow
	err := s.db.SelectContext(ctx, &rows, `SELECT * FROM deduction_overrides`)
	if err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}
	out := make([]payroll.DeductionOverride, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) OverridesFor(ctx context.Context, employee payroll.EmployeeID) ([]payroll.DeductionOverride, error) {
	var rows []overrideRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM deduction_overrides WHERE employee_id = ?`, employee)
	if err != nil {
		return nil, fmt.Errorf("failed to load overrides: %w", err)
	}
	out := make([]payroll.DeductionOverride, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// =============================================================================
// EMPLOYEE STORE (payroll.EmployeeStore)
// =============================================================================

type employeeRow struct {
	ID        string         `db:"id"`
	Name      string         `db:"name"`
	Email     sql.NullString `db:"email"`
	Role      sql.NullString `db:"role"`
	Eligible  bool           `db:"eligible"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r employeeRow) toDomain() payroll.Employee {
	return payroll.Employee{
		ID:        payroll.EmployeeID(r.ID),
		Name:      r.Name,
		Email:     r.Email.String,
		Role:      r.Role.String,
		Eligible:  r.Eligible,
		CreatedAt: r.CreatedAt,
	}
}

func (s *Store) SaveEmployee(ctx context.Context, e payroll.Employee) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, email, role, eligible, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			role = excluded.role,
			eligible = excluded.eligible`,
		e.ID, e.Name, e.Email, e.Role, e.Eligible, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

func (s *Store) GetEmployee(ctx context.Context, id payroll.EmployeeID) (*payroll.Employee, error) {
	var row employeeRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM employees WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	emp := row.toDomain()
	return &emp, nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]payroll.Employee, error) {
	return s.queryEmployees(ctx, `SELECT * FROM employees ORDER BY id ASC`)
}

func (s *Store) ListEligible(ctx context.Context) ([]payroll.Employee, error) {
	return s.queryEmployees(ctx, `SELECT * FROM employees WHERE eligible ORDER BY id ASC`)
}

func (s *Store) queryEmployees(ctx context.Context, query string, args ...any) ([]payroll.Employee, error) {
	var rows []employeeRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	out := make([]payroll.Employee, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// =============================================================================
// TIMESHEET STORE (payroll.TimesheetStore)
// =============================================================================

type timeRow struct {
	ID            string          `db:"id"`
	EmployeeID    string          `db:"employee_id"`
	Date          time.Time       `db:"date"`
	RegularHours  decimal.Decimal `db:"regular_hours"`
	OvertimeHours decimal.Decimal `db:"overtime_hours"`
	Status        string          `db:"status"`
	CreatedAt     time.Time       `db:"created_at"`
}

func (s *Store) RecordTime(ctx context.Context, e payroll.TimeEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO time_entries (id, employee_id, date, regular_hours, overtime_hours, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.EmployeeID, payroll.Day(e.Date), e.RegularHours.String(),
		e.OvertimeHours.String(), e.Status, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record time: %w", err)
	}
	return nil
}

func (s *Store) TimeFor(ctx context.Context, employee payroll.EmployeeID, p payroll.Period) ([]payroll.TimeEntry, error) {
	var rows []timeRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM time_entries
		WHERE employee_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`,
		employee, payroll.Day(p.Start), payroll.Day(p.End))
	if err != nil {
		return nil, fmt.Errorf("failed to load time entries: %w", err)
	}
	out := make([]payroll.TimeEntry, len(rows))
	for i, r := range rows {
		out[i] = payroll.TimeEntry{
			ID:            r.ID,
			EmployeeID:    payroll.EmployeeID(r.EmployeeID),
			Date:          r.Date,
			RegularHours:  r.RegularHours,
			OvertimeHours: r.OvertimeHours,
			Status:        payroll.TimeEntryStatus(r.Status),
			CreatedAt:     r.CreatedAt,
		}
	}
	return out, nil
}

func (s *Store) ApprovedHours(ctx context.Context, p payroll.Period) (map[payroll.EmployeeID]payroll.ReportedHours, error) {
	var rows []timeRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM time_entries
		WHERE status = 'approved' AND date >= ? AND date <= ?`,
		payroll.Day(p.Start), payroll.Day(p.End))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate approved time: %w", err)
	}
	out := make(map[payroll.EmployeeID]payroll.ReportedHours)
	for _, r := range rows {
		id := payroll.EmployeeID(r.EmployeeID)
		h := out[id]
		h.Regular = h.Regular.Add(r.RegularHours)
		h.Overtime = h.Overtime.Add(r.OvertimeHours)
		out[id] = h
	}
	return out, nil
}

// =============================================================================
// RUN STORE (payroll.RunStore)
// =============================================================================

func (s *Store) NextRunSequence(ctx context.Context, year int) (int, error) {
	var value int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO run_sequences (year, value) VALUES (?, 1)
		ON CONFLICT(year) DO UPDATE SET value = value + 1
		RETURNING value`, year).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate run sequence: %w", err)
	}
	return value, nil
}

func (s *Store) CreateRun(ctx context.Context, run payroll.PayrollRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payroll_runs
		(id, run_number, period_start, period_end, pay_date, status,
		 total_gross, total_deductions, total_net, employee_count,
		 gl_posted, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.RunNumber, run.PeriodStart, run.PeriodEnd, run.PayDate,
		run.Status, run.TotalGross.String(), run.TotalDeductions.String(),
		run.TotalNet.String(), run.EmployeeCount, run.GLPosted,
		run.CreatedBy, run.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return payroll.ErrDuplicateRunNumber
		}
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, id payroll.RunID) (*payroll.PayrollRun, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM payroll_runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, payroll.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	run := row.toDomain()
	return &run, nil
}

func (s *Store) ListRuns(ctx context.Context) ([]payroll.PayrollRun, error) {
	var rows []runRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM payroll_runs ORDER BY run_number DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	out := make([]payroll.PayrollRun, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) InsertDetail(ctx context.Context, d payroll.PayrollDetail) error {
	// The status subquery makes draft-only enforcement part of the insert
	// itself: inserting into a paid run affects zero rows.
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO payroll_details
		(id, run_id, employee_id, regular_hours, overtime_hours,
		 regular_pay, overtime_pay, gross_pay, total_deductions, net_pay, created_at)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM payroll_runs WHERE id = ? AND status = 'draft')`,
		d.ID, d.RunID, d.EmployeeID, d.RegularHours.String(), d.OvertimeHours.String(),
		d.RegularPay.String(), d.OvertimePay.String(), d.GrossPay.String(),
		d.TotalDeductions.String(), d.NetPay.String(), d.CreatedAt.UTC(),
		d.RunID)
	if err != nil {
		return fmt.Errorf("failed to insert detail: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return s.immutableOrMissing(ctx, d.RunID, "insert detail")
	}
	return nil
}

func (s *Store) DetailsFor(ctx context.Context, id payroll.RunID) ([]payroll.PayrollDetail, error) {
	var rows []detailRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM payroll_details WHERE run_id = ? ORDER BY employee_id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load details: %w", err)
	}
	out := make([]payroll.PayrollDetail, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) UpdateRunTotals(ctx context.Context, id payroll.RunID, totals payroll.RunTotals) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE payroll_runs
		SET total_gross = ?, total_deductions = ?, total_net = ?, employee_count = ?
		WHERE id = ? AND status = 'draft'`,
		totals.Gross.String(), totals.Deductions.String(), totals.Net.String(),
		totals.EmployeeCount, id)
	if err != nil {
		return fmt.Errorf("failed to update totals: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return s.immutableOrMissing(ctx, id, "update totals")
	}
	return nil
}

func (s *Store) TransitionRun(ctx context.Context, id payroll.RunID, from, to payroll.RunStatus, actor string, at time.Time) error {
	// Single conditional update: exactly one caller can win the transition.
	res, err := s.db.ExecContext(ctx, `
		UPDATE payroll_runs
		SET status = ?, approved_by = ?, approved_at = ?
		WHERE id = ? AND status = ?`,
		to, actor, at.UTC(), id, from)
	if err != nil {
		return fmt.Errorf("failed to transition run: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		run, getErr := s.GetRun(ctx, id)
		if getErr != nil {
			return getErr
		}
		return &payroll.TransitionError{RunID: id, From: run.Status, To: to}
	}
	return nil
}

// immutableOrMissing classifies a zero-row conditional write.
func (s *Store) immutableOrMissing(ctx context.Context, id payroll.RunID, op string) error {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return err
	}
	return &payroll.ImmutableRunError{RunID: id, Status: run.Status, Op: op}
}

// =============================================================================
// ACCOUNT STORE (ledger.AccountStore)
// =============================================================================

type accountRow struct {
	ID        string    `db:"id"`
	Code      string    `db:"code"`
	Name      string    `db:"name"`
	Type      string    `db:"type"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
}

func (r accountRow) toDomain() ledger.Account {
	return ledger.Account{
		ID:        r.ID,
		Code:      ledger.AccountCode(r.Code),
		Name:      r.Name,
		Type:      ledger.AccountType(r.Type),
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
	}
}

func (s *Store) SaveAccount(ctx context.Context, a ledger.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO gl_accounts (id, code, name, type, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			active = excluded.active`,
		a.ID, a.Code, a.Name, a.Type, a.Active, a.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (s *Store) AccountByCode(ctx context.Context, code ledger.AccountCode) (*ledger.Account, error) {
	var row accountRow
	err := s.db.GetContext(ctx, &row,
		`SELECT * FROM gl_accounts WHERE code = ? AND active`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve account: %w", err)
	}
	account := row.toDomain()
	return &account, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	var rows []accountRow
	err := s.db.SelectContext(ctx, &rows, `SELECT * FROM gl_accounts ORDER BY code ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	out := make([]ledger.Account, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// =============================================================================
// ENTRY STORE (ledger.EntryStore)
// =============================================================================

func (s *Store) NextEntrySequence(ctx context.Context, year, n int) (int, error) {
	var value int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO gl_sequences (year, value) VALUES (?, ?)
		ON CONFLICT(year) DO UPDATE SET value = value + ?
		RETURNING value`, year, n, n).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate entry sequence: %w", err)
	}
	return value - n + 1, nil
}

func (s *Store) PostRun(ctx context.Context, runID payroll.RunID, entries []ledger.Entry) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin posting transaction: %w", err)
	}
	defer tx.Rollback()

	// Claim the gl_posted flag first. If another poster already won, no
	// rows match and nothing below runs.
	res, err := tx.ExecContext(ctx, `
		UPDATE payroll_runs SET gl_posted = 1
		WHERE id = ? AND status = 'paid' AND gl_posted = 0`, runID)
	if err != nil {
		return fmt.Errorf("failed to claim posting flag: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM payroll_runs WHERE id = ?`, runID).Scan(&count); err == nil && count == 0 {
			return payroll.ErrRunNotFound
		}
		return payroll.ErrAlreadyPosted
	}

	for _, e := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO gl_entries
			(id, entry_number, entry_date, account_id, debit_amount, credit_amount,
			 reference_type, reference_id, fiscal_year, fiscal_period,
			 is_posted, memo, created_by, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.EntryNumber, e.EntryDate, e.AccountID,
			e.Debit.String(), e.Credit.String(),
			e.ReferenceType, e.ReferenceID, e.FiscalYear, e.FiscalPeriod,
			e.Posted, e.Memo, e.CreatedBy, e.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to append entry %s: %w", e.EntryNumber, err)
		}
	}

	return tx.Commit()
}

func (s *Store) EntriesForReference(ctx context.Context, refType, refID string) ([]ledger.Entry, error) {
	return s.queryEntries(ctx, `
		SELECT * FROM gl_entries
		WHERE reference_type = ? AND reference_id = ?
		ORDER BY entry_number ASC`, refType, refID)
}

func (s *Store) ListEntries(ctx context.Context) ([]ledger.Entry, error) {
	return s.queryEntries(ctx, `SELECT * FROM gl_entries ORDER BY entry_number ASC`)
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]ledger.Entry, error) {
	var rows []entryRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	out := make([]ledger.Entry, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

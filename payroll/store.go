/*
store.go - Persistence interfaces for the payroll engine

PURPOSE:
  Defines the interface between domain logic and the database. Different
  implementations can use SQLite or in-memory storage; the domain code
  never sees SQL.

MUTABILITY CONTRACT:
  - Rate history is append-only. CloseRate (setting end_date when a row is
    superseded) is the ONLY permitted mutation, and it never changes the
    monetary fields.
  - Payroll runs accept writes (details, totals) only while in draft.
    Implementations MUST enforce the status check inside the write.
  - Status transitions and the GL-posted flag are conditional updates:
    the store compares and sets in one atomic operation, so concurrent
    operator actions cannot double-transition or double-post.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: production SQLite
  - payroll/store/memory.go: in-memory for tests and dev
*/
package payroll

import (
	"context"
	"time"
)

// =============================================================================
// RATE STORE - Effective-dated compensation history (append-only)
// =============================================================================

type RateStore interface {
	// AppendRate persists a new rate row. Rows are never edited in place.
	AppendRate(ctx context.Context, r PayRate) error

	// CloseRate sets end_date on a previously open-ended row. This is the
	// only mutation the history permits, used when a row is superseded.
	CloseRate(ctx context.Context, id RateID, endDate time.Time) error

	// RatesFor returns all rate rows for an employee, ordered by
	// effective_date ascending. Includes closed rows (audit/history).
	RatesFor(ctx context.Context, employee EmployeeID) ([]PayRate, error)

	// OpenRate returns the row with end_date = null, or nil if none.
	OpenRate(ctx context.Context, employee EmployeeID) (*PayRate, error)
}

// =============================================================================
// DEDUCTION STORE - Global catalog + per-employee overrides
// =============================================================================

type DeductionStore interface {
	SaveDeduction(ctx context.Context, d DeductionDefinition) error
	ListDeductions(ctx context.Context) ([]DeductionDefinition, error)

	SaveOverride(ctx context.Context, o DeductionOverride) error
	// ListOverrides returns every override row. Used to snapshot the whole
	// catalog once per run instead of querying per employee.
	ListOverrides(ctx context.Context) ([]DeductionOverride, error)
	OverridesFor(ctx context.Context, employee EmployeeID) ([]DeductionOverride, error)
}

// =============================================================================
// EMPLOYEE / TIMESHEET STORES - Collaborator-provided inputs
// =============================================================================

type EmployeeStore interface {
	SaveEmployee(ctx context.Context, e Employee) error
	GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
	// ListEligible returns the payroll-eligible subset of the roster.
	ListEligible(ctx context.Context) ([]Employee, error)
}

type TimesheetStore interface {
	RecordTime(ctx context.Context, e TimeEntry) error
	TimeFor(ctx context.Context, employee EmployeeID, p Period) ([]TimeEntry, error)
	// ApprovedHours aggregates approved time entries per employee over the
	// period. Employees with no approved time are absent from the map.
	ApprovedHours(ctx context.Context, p Period) (map[EmployeeID]ReportedHours, error)
}

// =============================================================================
// RUN STORE - Payroll runs and their detail rows
// =============================================================================

type RunStore interface {
	// NextRunSequence reserves the next run number for a year (monotonic).
	NextRunSequence(ctx context.Context, year int) (int, error)

	CreateRun(ctx context.Context, run PayrollRun) error
	GetRun(ctx context.Context, id RunID) (*PayrollRun, error)
	ListRuns(ctx context.Context) ([]PayrollRun, error)

	// InsertDetail adds one employee's row to a run. MUST fail with
	// ErrRunImmutable if the run is not in draft.
	InsertDetail(ctx context.Context, d PayrollDetail) error
	DetailsFor(ctx context.Context, id RunID) ([]PayrollDetail, error)

	// UpdateRunTotals persists aggregated totals. Draft-only, like InsertDetail.
	UpdateRunTotals(ctx context.Context, id RunID, totals RunTotals) error

	// TransitionRun performs the state transition as a single conditional
	// update: it succeeds only if the run is currently in `from`. Returns
	// ErrInvalidTransition if the run exists in another state, or
	// ErrRunNotFound if it doesn't exist.
	TransitionRun(ctx context.Context, id RunID, from, to RunStatus, actor string, at time.Time) error
}

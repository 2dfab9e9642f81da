/*
Package payroll provides the core payroll calculation engine.

PURPOSE:
  This package contains the domain types and algorithms for turning worked
  hours into pay: resolving effective-dated compensation rates, re-deriving
  overtime, applying the deduction stack, and aggregating per-employee
  results into a payroll run that can later be posted to the general ledger.

KEY CONCEPTS IN THIS FILE (types.go):
  - Typed identifiers (EmployeeID, RunID, ...) so IDs cannot be mixed up
  - Money as decimal.Decimal, rounded to cents at every computation point
  - ReportedHours: the raw time aggregate fed in by the time-tracking side
  - Period: the pay period boundary for a run

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere, never float64 for money
  2. Round early: every monetary result is rounded to 2 decimals where it
     is computed, so summations never compound rounding drift
  3. Immutability: rate history and posted runs are append-only
  4. Type Safety: strong typing for IDs prevents cross-wiring

SEE ALSO:
  - rates.go: Effective-dated rate history and resolution
  - deductions.go: Deduction catalog and per-employee overrides
  - calculator.go: Hours to gross/net conversion
  - run.go: Run generation and aggregation
*/
package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type RunID string
type RateID string
type DeductionID string

// =============================================================================
// MONEY HELPERS
// =============================================================================

// Cents rounds a monetary amount to 2 decimal places.
// Applied at the point of computation, not deferred to display.
func Cents(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// MustDecimal parses a decimal literal, returning zero on failure.
// Intended for constants and test fixtures.
func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// ENUMS
// =============================================================================

// RunStatus is the lifecycle state of a payroll run.
// Only draft -> paid and draft -> cancelled are valid transitions; the
// intermediate labels exist for reporting but carry no transition logic.
type RunStatus string

const (
	StatusDraft      RunStatus = "draft"
	StatusProcessing RunStatus = "processing"
	StatusApproved   RunStatus = "approved"
	StatusPaid       RunStatus = "paid"
	StatusCancelled  RunStatus = "cancelled"
)

type DeductionCategory string

const (
	CategoryTax        DeductionCategory = "tax"
	CategoryInsurance  DeductionCategory = "insurance"
	CategoryRetirement DeductionCategory = "retirement"
	CategoryGarnishment DeductionCategory = "garnishment"
	CategoryOther      DeductionCategory = "other"
)

type CalculationMethod string

const (
	MethodPercentage  CalculationMethod = "percentage"
	MethodFixedAmount CalculationMethod = "fixed_amount"
)

type PayFrequency string

const (
	FrequencyWeekly      PayFrequency = "weekly"
	FrequencyBiweekly    PayFrequency = "biweekly"
	FrequencySemimonthly PayFrequency = "semimonthly"
	FrequencyMonthly     PayFrequency = "monthly"
)

// =============================================================================
// EMPLOYEE - Roster entry (read-only collaborator input)
// =============================================================================

type Employee struct {
	ID        EmployeeID
	Name      string
	Email     string
	Role      string
	Eligible  bool // payroll-eligible role filter
	CreatedAt time.Time
}

// =============================================================================
// REPORTED HOURS - Time aggregate as tagged by the time-tracking side
// =============================================================================

// ReportedHours is the approved time aggregate for one employee in a period.
// The upstream overtime tagging is advisory only: PayCalculator re-derives
// overtime from the effective rate's threshold.
type ReportedHours struct {
	Regular  decimal.Decimal
	Overtime decimal.Decimal
}

func (h ReportedHours) IsZero() bool {
	return h.Regular.IsZero() && h.Overtime.IsZero()
}

// Hours builds ReportedHours from float literals (tests and API boundaries).
func Hours(regular, overtime float64) ReportedHours {
	return ReportedHours{
		Regular:  decimal.NewFromFloat(regular),
		Overtime: decimal.NewFromFloat(overtime),
	}
}

// =============================================================================
// TIME ENTRY - One day of logged time, feeding the approved aggregate
// =============================================================================

type TimeEntryStatus string

const (
	TimePending  TimeEntryStatus = "pending"
	TimeApproved TimeEntryStatus = "approved"
	TimeRejected TimeEntryStatus = "rejected"
)

type TimeEntry struct {
	ID            string
	EmployeeID    EmployeeID
	Date          time.Time
	RegularHours  decimal.Decimal
	OvertimeHours decimal.Decimal
	Status        TimeEntryStatus
	CreatedAt     time.Time
}

// =============================================================================
// PERIOD - Pay period boundary
// =============================================================================

// Period is an inclusive date range [Start, End] at day granularity.
type Period struct {
	Start time.Time
	End   time.Time
}

func (p Period) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(Day(p.Start)) && !d.After(Day(p.End))
}

func (p Period) Valid() bool { return !p.End.Before(p.Start) }

func (p Period) String() string {
	return "[" + p.Start.Format("2006-01-02") + ", " + p.End.Format("2006-01-02") + "]"
}

// Day truncates a time to midnight UTC. All effective dates and period
// boundaries are compared at day granularity.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Date is a shorthand constructor for day-granular times.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

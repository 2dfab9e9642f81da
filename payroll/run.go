/*
run.go - Payroll run generation and aggregation

PURPOSE:
  Orchestrates the pay calculator over every eligible employee for a
  period, producing one PayrollDetail row per employee with approved hours
  and persisting aggregated totals on the run.

GENERATION FLOW:
  1. Reserve a run number (PR-<year>-<seq>, monotonic per year) and create
     the run in draft.
  2. Fetch the eligible roster, the approved time aggregate, and the
     deduction catalog snapshot concurrently - the three reads are
     independent. Any of them failing aborts generation before a single
     detail row exists; there is no documented fallback for a missing
     roster or missing time, and a zero-deduction run is a silent
     mis-payment.
  3. For every employee with nonzero approved hours, calculate pay and
     insert a detail row. A failed insert is logged and skipped; the run
     still completes, but totals reflect survivors only and the skipped
     employees are surfaced on the result for the operator.
  4. Persist totals (gross, deductions, net, employee count).

  Employees with zero hours are silently excluded - no zero-value rows.

SEE ALSO:
  - calculator.go: per-employee arithmetic
  - lifecycle.go: draft -> paid transition after review
*/
package payroll

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// RUN TYPES
// =============================================================================

// PayrollRun is one payroll batch covering one pay period. Created in
// draft; totals and details are populated by the Generator; once paid, the
// run and its details are read-only. Runs are never hard-deleted -
// cancelled is a terminal soft state.
type PayrollRun struct {
	ID          RunID
	RunNumber   string // PR-<year>-<seq>
	PeriodStart time.Time
	PeriodEnd   time.Time
	PayDate     time.Time
	Status      RunStatus

	TotalGross      decimal.Decimal
	TotalDeductions decimal.Decimal
	TotalNet        decimal.Decimal
	EmployeeCount   int

	GLPosted bool

	CreatedBy  string
	CreatedAt  time.Time
	ApprovedBy string
	ApprovedAt *time.Time
}

// PayrollDetail is one employee's row within a run. Created once during
// generation, immutable after the run is paid.
type PayrollDetail struct {
	ID         string
	RunID      RunID
	EmployeeID EmployeeID

	RegularHours  decimal.Decimal
	OvertimeHours decimal.Decimal

	RegularPay      decimal.Decimal
	OvertimePay     decimal.Decimal
	GrossPay        decimal.Decimal
	TotalDeductions decimal.Decimal
	NetPay          decimal.Decimal

	CreatedAt time.Time
}

// RunTotals is the aggregate persisted onto a run after generation.
type RunTotals struct {
	Gross         decimal.Decimal
	Deductions    decimal.Decimal
	Net           decimal.Decimal
	EmployeeCount int
}

// GenerationResult carries the run, its detail rows, and any employees
// whose detail insert failed (totals exclude them).
type GenerationResult struct {
	Run     *PayrollRun
	Details []PayrollDetail
	Skipped []EmployeeID
}

// RunNumber formats the printable run identifier.
func RunNumber(year, seq int) string {
	return fmt.Sprintf("PR-%d-%04d", year, seq)
}

// =============================================================================
// COLLABORATOR INTERFACES - Narrow views of the input providers
// =============================================================================

type Directory interface {
	ListEligible(ctx context.Context) ([]Employee, error)
}

type Timesheet interface {
	ApprovedHours(ctx context.Context, p Period) (map[EmployeeID]ReportedHours, error)
}

// =============================================================================
// GENERATOR
// =============================================================================

type Generator struct {
	Runs       RunStore
	Directory  Directory
	Timesheet  Timesheet
	Calculator *PayCalculator
	Clock      func() time.Time
}

func NewGenerator(runs RunStore, dir Directory, ts Timesheet, calc *PayCalculator) *Generator {
	return &Generator{Runs: runs, Directory: dir, Timesheet: ts, Calculator: calc, Clock: time.Now}
}

// Generate creates and populates a draft payroll run for the period.
func (g *Generator) Generate(ctx context.Context, periodStart, periodEnd, payDate time.Time, actor string) (*GenerationResult, error) {
	period := Period{Start: Day(periodStart), End: Day(periodEnd)}
	if !period.Valid() {
		return nil, ErrInvalidPeriod
	}

	employees, hours, snap, err := g.fetchInputs(ctx, period)
	if err != nil {
		return nil, err
	}

	now := g.Clock().UTC()
	year := payDate.Year()
	seq, err := g.Runs.NextRunSequence(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("generate: allocate run number: %w", err)
	}

	run := PayrollRun{
		ID:          RunID(uuid.NewString()),
		RunNumber:   RunNumber(year, seq),
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
		PayDate:     Day(payDate),
		Status:      StatusDraft,
		CreatedBy:   actor,
		CreatedAt:   now,
	}
	if err := g.Runs.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("generate: create run %s: %w", run.RunNumber, err)
	}

	// Deterministic processing order; totals are order-independent sums,
	// but stable detail ordering keeps runs diffable.
	sort.Slice(employees, func(i, j int) bool { return employees[i].ID < employees[j].ID })

	result := &GenerationResult{Run: &run}
	totals := RunTotals{Gross: decimal.Zero, Deductions: decimal.Zero, Net: decimal.Zero}

	for _, emp := range employees {
		h, ok := hours[emp.ID]
		if !ok || h.IsZero() {
			continue
		}

		calc := g.Calculator.CalculateWith(ctx, snap, emp.ID, h, period.Start)
		detail := PayrollDetail{
			ID:              uuid.NewString(),
			RunID:           run.ID,
			EmployeeID:      emp.ID,
			RegularHours:    calc.RegularHours,
			OvertimeHours:   calc.OvertimeHours,
			RegularPay:      calc.RegularPay,
			OvertimePay:     calc.OvertimePay,
			GrossPay:        calc.GrossPay,
			TotalDeductions: calc.TotalDeductions,
			NetPay:          calc.NetPay,
			CreatedAt:       now,
		}

		if err := g.Runs.InsertDetail(ctx, detail); err != nil {
			// Skip-and-continue: totals reflect survivors only. The skip is
			// surfaced on the result so under-reporting is never silent.
			log.Printf("[PayrollRun] %s: detail insert failed for %s, skipping: %v",
				run.RunNumber, emp.ID, err)
			result.Skipped = append(result.Skipped, emp.ID)
			continue
		}

		result.Details = append(result.Details, detail)
		totals.Gross = totals.Gross.Add(detail.GrossPay)
		totals.Deductions = totals.Deductions.Add(detail.TotalDeductions)
		totals.Net = totals.Net.Add(detail.NetPay)
		totals.EmployeeCount++
	}

	totals.Gross = Cents(totals.Gross)
	totals.Deductions = Cents(totals.Deductions)
	totals.Net = Cents(totals.Net)

	if err := g.Runs.UpdateRunTotals(ctx, run.ID, totals); err != nil {
		return nil, fmt.Errorf("generate: persist totals for %s: %w", run.RunNumber, err)
	}

	run.TotalGross = totals.Gross
	run.TotalDeductions = totals.Deductions
	run.TotalNet = totals.Net
	run.EmployeeCount = totals.EmployeeCount

	log.Printf("[PayrollRun] %s generated: %d employees, gross=%s, net=%s, skipped=%d",
		run.RunNumber, totals.EmployeeCount, totals.Gross.StringFixed(2),
		totals.Net.StringFixed(2), len(result.Skipped))

	return result, nil
}

// fetchInputs loads the roster, the time aggregate, and the deduction
// snapshot concurrently. The three reads have no data dependency.
func (g *Generator) fetchInputs(ctx context.Context, period Period) ([]Employee, map[EmployeeID]ReportedHours, *CatalogSnapshot, error) {
	var (
		wg        sync.WaitGroup
		employees []Employee
		hours     map[EmployeeID]ReportedHours
		snap      *CatalogSnapshot

		empErr, hoursErr, snapErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		employees, empErr = g.Directory.ListEligible(ctx)
	}()
	go func() {
		defer wg.Done()
		hours, hoursErr = g.Timesheet.ApprovedHours(ctx, period)
	}()
	go func() {
		defer wg.Done()
		snap, snapErr = g.Calculator.Deductions.Snapshot(ctx)
	}()
	wg.Wait()

	if empErr != nil {
		return nil, nil, nil, fmt.Errorf("generate: load roster: %w", empErr)
	}
	if hoursErr != nil {
		return nil, nil, nil, fmt.Errorf("generate: load approved time: %w", hoursErr)
	}
	if snapErr != nil {
		return nil, nil, nil, snapErr // already wraps ErrCatalogUnavailable
	}
	return employees, hours, snap, nil
}

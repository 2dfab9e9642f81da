package payroll_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/payroll/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// payrollFixture is a memory store with two hourly employees, approved
// time for a June half-month period, and a one-line deduction catalog.
type payrollFixture struct {
	mem       *store.Memory
	generator *payroll.Generator

	start, end, payDate time.Time
}

func newPayrollFixture(t *testing.T) *payrollFixture {
	t.Helper()
	mem := store.NewMemory()
	ctx := context.Background()

	f := &payrollFixture{
		mem:     mem,
		start:   payroll.Date(2025, time.June, 1),
		end:     payroll.Date(2025, time.June, 15),
		payDate: payroll.Date(2025, time.June, 20),
	}

	for _, e := range []payroll.Employee{
		{ID: "emp-1", Name: "Ada", Eligible: true},
		{ID: "emp-2", Name: "Grace", Eligible: true},
		{ID: "emp-3", Name: "Linus", Eligible: true},  // no hours this period
		{ID: "emp-4", Name: "Edsger", Eligible: false}, // not payroll-eligible
	} {
		require.NoError(t, mem.SaveEmployee(ctx, e))
	}

	addRate(t, mem, "emp-1", "30.00", "45.00", "40", payroll.Date(2025, time.January, 1))
	addRate(t, mem, "emp-2", "30.00", "45.00", "40", payroll.Date(2025, time.January, 1))

	// emp-1: 40 regular + 5 overtime; emp-2: 30 regular
	f.recordApproved(t, "emp-1", payroll.Date(2025, time.June, 2), "40", "5")
	f.recordApproved(t, "emp-2", payroll.Date(2025, time.June, 3), "30", "0")
	// emp-4 has hours but is ineligible
	f.recordApproved(t, "emp-4", payroll.Date(2025, time.June, 4), "40", "0")
	// Pending entries never count
	require.NoError(t, mem.RecordTime(ctx, payroll.TimeEntry{
		ID: "t-pending", EmployeeID: "emp-3", Date: payroll.Date(2025, time.June, 5),
		RegularHours: payroll.MustDecimal("40"), OvertimeHours: payroll.MustDecimal("0"),
		Status: payroll.TimePending,
	}))

	require.NoError(t, mem.SaveDeduction(ctx, payroll.DeductionDefinition{
		ID: "tax", Name: "Tax", Category: payroll.CategoryTax,
		Method: payroll.MethodPercentage, DefaultAmount: payroll.MustDecimal("10.0"),
		Active: true,
	}))

	rates := payroll.NewRateHistory(mem)
	deductions := payroll.NewCalculator(mem)
	calc := payroll.NewPayCalculator(rates, deductions)
	f.generator = payroll.NewGenerator(mem, mem, mem, calc)
	return f
}

func (f *payrollFixture) recordApproved(t *testing.T, employee string, date time.Time, regular, overtime string) {
	t.Helper()
	require.NoError(t, f.mem.RecordTime(context.Background(), payroll.TimeEntry{
		ID:            employee + "-" + date.Format("0102"),
		EmployeeID:    payroll.EmployeeID(employee),
		Date:          date,
		RegularHours:  payroll.MustDecimal(regular),
		OvertimeHours: payroll.MustDecimal(overtime),
		Status:        payroll.TimeApproved,
	}))
}

func (f *payrollFixture) generate(t *testing.T) *payroll.GenerationResult {
	t.Helper()
	result, err := f.generator.Generate(context.Background(), f.start, f.end, f.payDate, "tester")
	require.NoError(t, err)
	return result
}

// =============================================================================
// GENERATION TESTS
// =============================================================================

func TestGenerator_Generate_TotalsEqualDetailSums(t *testing.T) {
	// emp-1: 40*30 + 5*45 = 1425.00 gross, 142.50 tax, 1282.50 net
	// emp-2: 30*30      =  900.00 gross,  90.00 tax,  810.00 net
	// run:                 2325.00 gross, 232.50 tax, 2092.50 net

	f := newPayrollFixture(t)
	result := f.generate(t)

	require.Len(t, result.Details, 2)
	assert.Empty(t, result.Skipped)

	run, err := f.mem.GetRun(context.Background(), result.Run.ID)
	require.NoError(t, err)

	assert.Equal(t, payroll.StatusDraft, run.Status)
	assert.Equal(t, 2, run.EmployeeCount)
	assert.True(t, run.TotalGross.Equal(payroll.MustDecimal("2325.00")), "gross: %s", run.TotalGross)
	assert.True(t, run.TotalDeductions.Equal(payroll.MustDecimal("232.50")), "deductions: %s", run.TotalDeductions)
	assert.True(t, run.TotalNet.Equal(payroll.MustDecimal("2092.50")), "net: %s", run.TotalNet)

	// Header totals are exactly the detail sums.
	gross, deductions, net := payroll.MustDecimal("0"), payroll.MustDecimal("0"), payroll.MustDecimal("0")
	for _, d := range result.Details {
		gross = gross.Add(d.GrossPay)
		deductions = deductions.Add(d.TotalDeductions)
		net = net.Add(d.NetPay)
	}
	assert.True(t, run.TotalGross.Equal(gross))
	assert.True(t, run.TotalDeductions.Equal(deductions))
	assert.True(t, run.TotalNet.Equal(net))
}

func TestGenerator_Generate_ExcludesZeroHoursAndIneligible(t *testing.T) {
	f := newPayrollFixture(t)
	result := f.generate(t)

	seen := map[payroll.EmployeeID]bool{}
	for _, d := range result.Details {
		seen[d.EmployeeID] = true
	}
	assert.True(t, seen["emp-1"])
	assert.True(t, seen["emp-2"])
	assert.False(t, seen["emp-3"], "no approved hours -> no detail row")
	assert.False(t, seen["emp-4"], "ineligible employees excluded even with hours")
}

func TestGenerator_Generate_RunNumberFromPayDateYear(t *testing.T) {
	f := newPayrollFixture(t)

	first := f.generate(t)
	assert.Equal(t, "PR-2025-0001", first.Run.RunNumber)

	second := f.generate(t)
	assert.Equal(t, "PR-2025-0002", second.Run.RunNumber, "sequence is per pay-date year")
}

func TestGenerator_Generate_InvalidPeriod(t *testing.T) {
	f := newPayrollFixture(t)

	_, err := f.generator.Generate(context.Background(), f.end, f.start, f.payDate, "tester")
	assert.ErrorIs(t, err, payroll.ErrInvalidPeriod)
}

func TestGenerator_Generate_SkipAndContinue(t *testing.T) {
	// GIVEN: Detail insert fails for emp-1 only
	// WHEN: Generating
	// THEN: emp-2 still gets a row, totals cover survivors only, and the
	//       skip is surfaced on the result

	f := newPayrollFixture(t)
	f.mem.FailDetailFor = map[payroll.EmployeeID]bool{"emp-1": true}

	result := f.generate(t)

	require.Len(t, result.Details, 1)
	assert.Equal(t, payroll.EmployeeID("emp-2"), result.Details[0].EmployeeID)
	assert.Equal(t, []payroll.EmployeeID{"emp-1"}, result.Skipped)

	run, err := f.mem.GetRun(context.Background(), result.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, run.EmployeeCount)
	assert.True(t, run.TotalGross.Equal(payroll.MustDecimal("900.00")),
		"totals reflect survivors, not the skipped employee")
}

func TestGenerator_Generate_CatalogUnavailable_Aborts(t *testing.T) {
	// Deduction catalog unavailability is a hard failure: generating a run
	// with silently-zero deductions would overpay every employee.

	f := newPayrollFixture(t)
	f.mem.FailDeductions = true

	_, err := f.generator.Generate(context.Background(), f.start, f.end, f.payDate, "tester")
	assert.ErrorIs(t, err, payroll.ErrCatalogUnavailable)
}

func TestGenerator_Generate_RosterUnavailable_Aborts(t *testing.T) {
	f := newPayrollFixture(t)
	f.mem.FailRosterReads = true

	_, err := f.generator.Generate(context.Background(), f.start, f.end, f.payDate, "tester")
	assert.Error(t, err)
}

func TestGenerator_Generate_TimeOutsidePeriodIgnored(t *testing.T) {
	f := newPayrollFixture(t)
	// Approved hours the day after period end must not leak in.
	f.recordApproved(t, "emp-2", payroll.Date(2025, time.June, 16), "40", "0")

	result := f.generate(t)

	for _, d := range result.Details {
		if d.EmployeeID == "emp-2" {
			assert.True(t, d.RegularHours.Equal(payroll.MustDecimal("30")),
				"only in-period hours count: %s", d.RegularHours)
		}
	}
}

func TestGenerator_Generate_DetailRowsMatchCalculator(t *testing.T) {
	f := newPayrollFixture(t)
	result := f.generate(t)

	for _, d := range result.Details {
		if d.EmployeeID != "emp-1" {
			continue
		}
		assert.True(t, d.RegularHours.Equal(payroll.MustDecimal("40")))
		assert.True(t, d.OvertimeHours.Equal(payroll.MustDecimal("5")))
		assert.True(t, d.RegularPay.Equal(payroll.MustDecimal("1200.00")))
		assert.True(t, d.OvertimePay.Equal(payroll.MustDecimal("225.00")))
		assert.True(t, d.GrossPay.Equal(payroll.MustDecimal("1425.00")))
		assert.True(t, d.TotalDeductions.Equal(payroll.MustDecimal("142.50")))
		assert.True(t, d.NetPay.Equal(payroll.MustDecimal("1282.50")))
		assert.True(t, d.GrossPay.Equal(d.NetPay.Add(d.TotalDeductions)))
	}
}

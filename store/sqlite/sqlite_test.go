package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/ledger"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// newTestStore opens a store on a throwaway database file. A file (rather
// than :memory:) keeps the schema visible to every pooled connection.
func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(filepath.Join(t.TempDir(), "payroll.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func openRate(employee string, hourly string, effective time.Time) payroll.PayRate {
	return payroll.PayRate{
		ID:                payroll.RateID(uuid.NewString()),
		EmployeeID:        payroll.EmployeeID(employee),
		HourlyRate:        payroll.MustDecimal(hourly),
		OvertimeRate:      payroll.MustDecimal(hourly).Mul(payroll.MustDecimal("1.5")),
		OvertimeThreshold: payroll.MustDecimal("40"),
		PayFrequency:      payroll.FrequencyBiweekly,
		EffectiveDate:     effective,
		CreatedAt:         time.Now(),
	}
}

func draftRun(number string) payroll.PayrollRun {
	return payroll.PayrollRun{
		ID:          payroll.RunID(uuid.NewString()),
		RunNumber:   number,
		PeriodStart: payroll.Date(2025, time.June, 1),
		PeriodEnd:   payroll.Date(2025, time.June, 15),
		PayDate:     payroll.Date(2025, time.June, 20),
		Status:      payroll.StatusDraft,
		CreatedBy:   "tester",
		CreatedAt:   time.Now(),
	}
}

func detailFor(runID payroll.RunID, employee string) payroll.PayrollDetail {
	return payroll.PayrollDetail{
		ID:              uuid.NewString(),
		RunID:           runID,
		EmployeeID:      payroll.EmployeeID(employee),
		RegularHours:    payroll.MustDecimal("40"),
		OvertimeHours:   payroll.MustDecimal("0"),
		RegularPay:      payroll.MustDecimal("1200.00"),
		OvertimePay:     payroll.MustDecimal("0.00"),
		GrossPay:        payroll.MustDecimal("1200.00"),
		TotalDeductions: payroll.MustDecimal("120.00"),
		NetPay:          payroll.MustDecimal("1080.00"),
		CreatedAt:       time.Now(),
	}
}

// =============================================================================
// RATE HISTORY
// =============================================================================

func TestStore_Rates_AppendCloseRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first := openRate("emp-1", "20.00", payroll.Date(2025, time.January, 1))
	require.NoError(t, st.AppendRate(ctx, first))

	open, err := st.OpenRate(ctx, "emp-1")
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, first.ID, open.ID)
	assert.True(t, open.HourlyRate.Equal(payroll.MustDecimal("20.00")))

	// Close the row, then append the successor.
	require.NoError(t, st.CloseRate(ctx, first.ID, payroll.Date(2025, time.June, 30)))
	second := openRate("emp-1", "25.00", payroll.Date(2025, time.July, 1))
	require.NoError(t, st.AppendRate(ctx, second))

	history, err := st.RatesFor(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.NotNil(t, history[0].EndDate)
	assert.Equal(t, payroll.Date(2025, time.June, 30), payroll.Day(*history[0].EndDate))
	assert.Nil(t, history[1].EndDate)
}

func TestStore_Rates_SecondOpenRowRejected(t *testing.T) {
	// The partial unique index allows at most one open-ended row per
	// employee.
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.AppendRate(ctx, openRate("emp-1", "20.00", payroll.Date(2025, time.January, 1))))
	err := st.AppendRate(ctx, openRate("emp-1", "25.00", payroll.Date(2025, time.July, 1)))
	assert.Error(t, err)

	// Other employees are unaffected.
	require.NoError(t, st.AppendRate(ctx, openRate("emp-2", "30.00", payroll.Date(2025, time.January, 1))))
}

func TestStore_Rates_CloseRateTwiceRejected(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	r := openRate("emp-1", "20.00", payroll.Date(2025, time.January, 1))
	require.NoError(t, st.AppendRate(ctx, r))
	require.NoError(t, st.CloseRate(ctx, r.ID, payroll.Date(2025, time.June, 30)))

	// Closed rows are immutable, end_date included.
	assert.Error(t, st.CloseRate(ctx, r.ID, payroll.Date(2025, time.December, 31)))
}

func TestStore_Rates_OpenRateNilWhenNone(t *testing.T) {
	st := newTestStore(t)

	open, err := st.OpenRate(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, open)
}

// =============================================================================
// DEDUCTIONS AND OVERRIDES
// =============================================================================

func TestStore_Deductions_UpsertRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	d := payroll.DeductionDefinition{
		ID:            "federal-tax",
		Name:          "Federal Income Tax",
		Category:      payroll.CategoryTax,
		Method:        payroll.MethodPercentage,
		DefaultAmount: payroll.MustDecimal("15"),
		Active:        true,
		CreatedAt:     time.Now(),
	}
	require.NoError(t, st.SaveDeduction(ctx, d))

	// Saving again with a new amount updates in place.
	d.DefaultAmount = payroll.MustDecimal("16")
	require.NoError(t, st.SaveDeduction(ctx, d))

	defs, err := st.ListDeductions(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.True(t, defs[0].DefaultAmount.Equal(payroll.MustDecimal("16")))
	assert.Equal(t, payroll.CategoryTax, defs[0].Category)
}

func TestStore_Overrides_UpsertAndScope(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveOverride(ctx, payroll.DeductionOverride{
		EmployeeID: "emp-1", DeductionID: "federal-tax",
		Amount: payroll.MustDecimal("10"), Active: true,
	}))
	require.NoError(t, st.SaveOverride(ctx, payroll.DeductionOverride{
		EmployeeID: "emp-2", DeductionID: "federal-tax",
		Amount: payroll.MustDecimal("12"), Active: true,
	}))
	// Second save for the same (employee, deduction) replaces the amount.
	require.NoError(t, st.SaveOverride(ctx, payroll.DeductionOverride{
		EmployeeID: "emp-1", DeductionID: "federal-tax",
		Amount: payroll.MustDecimal("11"), Active: true,
	}))

	mine, err := st.OverridesFor(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.True(t, mine[0].Amount.Equal(payroll.MustDecimal("11")))

	all, err := st.ListOverrides(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// =============================================================================
// ROSTER
// =============================================================================

func TestStore_Employees_EligibleFilter(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveEmployee(ctx, payroll.Employee{
		ID: "emp-1", Name: "Ada", Eligible: true, CreatedAt: time.Now(),
	}))
	require.NoError(t, st.SaveEmployee(ctx, payroll.Employee{
		ID: "emp-2", Name: "Grace", Eligible: false, CreatedAt: time.Now(),
	}))

	all, err := st.ListEmployees(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	eligible, err := st.ListEligible(ctx)
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, payroll.EmployeeID("emp-1"), eligible[0].ID)

	missing, err := st.GetEmployee(ctx, "emp-9")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// =============================================================================
// TIMESHEETS
// =============================================================================

func TestStore_ApprovedHours_AggregatesApprovedWithinPeriod(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	record := func(employee string, day time.Time, hours string, status payroll.TimeEntryStatus) {
		require.NoError(t, st.RecordTime(ctx, payroll.TimeEntry{
			ID:            uuid.NewString(),
			EmployeeID:    payroll.EmployeeID(employee),
			Date:          day,
			RegularHours:  payroll.MustDecimal(hours),
			OvertimeHours: payroll.MustDecimal("0"),
			Status:        status,
			CreatedAt:     time.Now(),
		}))
	}

	record("emp-1", payroll.Date(2025, time.June, 2), "8", payroll.TimeApproved)
	record("emp-1", payroll.Date(2025, time.June, 3), "8", payroll.TimeApproved)
	record("emp-1", payroll.Date(2025, time.June, 4), "8", payroll.TimePending) // not approved
	record("emp-1", payroll.Date(2025, time.June, 16), "8", payroll.TimeApproved) // outside period
	record("emp-2", payroll.Date(2025, time.June, 5), "6", payroll.TimeApproved)

	hours, err := st.ApprovedHours(ctx, payroll.Period{
		Start: payroll.Date(2025, time.June, 1),
		End:   payroll.Date(2025, time.June, 15),
	})
	require.NoError(t, err)
	require.Len(t, hours, 2)
	assert.True(t, hours["emp-1"].Regular.Equal(payroll.MustDecimal("16")))
	assert.True(t, hours["emp-2"].Regular.Equal(payroll.MustDecimal("6")))
}

func TestStore_TimeFor_PeriodBoundariesInclusive(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for _, day := range []time.Time{
		payroll.Date(2025, time.May, 31),
		payroll.Date(2025, time.June, 1),
		payroll.Date(2025, time.June, 15),
		payroll.Date(2025, time.June, 16),
	} {
		require.NoError(t, st.RecordTime(ctx, payroll.TimeEntry{
			ID: uuid.NewString(), EmployeeID: "emp-1", Date: day,
			RegularHours: payroll.MustDecimal("8"), OvertimeHours: payroll.MustDecimal("0"),
			Status: payroll.TimeApproved, CreatedAt: time.Now(),
		}))
	}

	entries, err := st.TimeFor(ctx, "emp-1", payroll.Period{
		Start: payroll.Date(2025, time.June, 1),
		End:   payroll.Date(2025, time.June, 15),
	})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

// =============================================================================
// PAYROLL RUNS
// =============================================================================

func TestStore_Runs_CreateGetRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run := draftRun("PR-2025-0001")
	run.TotalGross = payroll.MustDecimal("2325.00")
	run.TotalDeductions = payroll.MustDecimal("232.50")
	run.TotalNet = payroll.MustDecimal("2092.50")
	run.EmployeeCount = 2
	require.NoError(t, st.CreateRun(ctx, run))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.RunNumber, got.RunNumber)
	assert.Equal(t, payroll.StatusDraft, got.Status)
	assert.True(t, got.TotalGross.Equal(payroll.MustDecimal("2325.00")))
	assert.True(t, got.TotalNet.Equal(payroll.MustDecimal("2092.50")))
	assert.Equal(t, 2, got.EmployeeCount)
	assert.Equal(t, "tester", got.CreatedBy)
	assert.False(t, got.GLPosted)
}

func TestStore_Runs_GetUnknown(t *testing.T) {
	st := newTestStore(t)

	_, err := st.GetRun(context.Background(), "no-such-run")
	assert.ErrorIs(t, err, payroll.ErrRunNotFound)
}

func TestStore_Runs_DuplicateRunNumber(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateRun(ctx, draftRun("PR-2025-0001")))
	err := st.CreateRun(ctx, draftRun("PR-2025-0001"))
	assert.ErrorIs(t, err, payroll.ErrDuplicateRunNumber)
}

func TestStore_Runs_ListNewestFirst(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateRun(ctx, draftRun("PR-2025-0001")))
	require.NoError(t, st.CreateRun(ctx, draftRun("PR-2025-0002")))

	runs, err := st.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "PR-2025-0002", runs[0].RunNumber)
}

func TestStore_Details_DraftOnlyInsert(t *testing.T) {
	// GIVEN: A draft run with one detail
	// WHEN: The run is paid
	// THEN: Further detail inserts and totals updates hit zero rows and
	//       come back as immutability errors

	st := newTestStore(t)
	ctx := context.Background()

	run := draftRun("PR-2025-0001")
	require.NoError(t, st.CreateRun(ctx, run))
	require.NoError(t, st.InsertDetail(ctx, detailFor(run.ID, "emp-1")))
	require.NoError(t, st.UpdateRunTotals(ctx, run.ID, payroll.RunTotals{
		Gross:         payroll.MustDecimal("1200.00"),
		Deductions:    payroll.MustDecimal("120.00"),
		Net:           payroll.MustDecimal("1080.00"),
		EmployeeCount: 1,
	}))

	require.NoError(t, st.TransitionRun(ctx, run.ID, payroll.StatusDraft, payroll.StatusPaid, "manager", time.Now()))

	err := st.InsertDetail(ctx, detailFor(run.ID, "emp-2"))
	assert.ErrorIs(t, err, payroll.ErrRunImmutable)

	err = st.UpdateRunTotals(ctx, run.ID, payroll.RunTotals{EmployeeCount: 9})
	assert.ErrorIs(t, err, payroll.ErrRunImmutable)

	details, err := st.DetailsFor(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.True(t, details[0].GrossPay.Equal(payroll.MustDecimal("1200.00")))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.EmployeeCount)
}

func TestStore_Details_DuplicateEmployeeRejected(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run := draftRun("PR-2025-0001")
	require.NoError(t, st.CreateRun(ctx, run))
	require.NoError(t, st.InsertDetail(ctx, detailFor(run.ID, "emp-1")))

	// One detail row per employee per run.
	assert.Error(t, st.InsertDetail(ctx, detailFor(run.ID, "emp-1")))
}

func TestStore_TransitionRun_SecondCallerLoses(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run := draftRun("PR-2025-0001")
	require.NoError(t, st.CreateRun(ctx, run))

	require.NoError(t, st.TransitionRun(ctx, run.ID, payroll.StatusDraft, payroll.StatusPaid, "manager", time.Now()))

	err := st.TransitionRun(ctx, run.ID, payroll.StatusDraft, payroll.StatusPaid, "manager", time.Now())
	assert.ErrorIs(t, err, payroll.ErrInvalidTransition)

	var trErr *payroll.TransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, payroll.StatusPaid, trErr.From)
}

func TestStore_TransitionRun_RecordsApproval(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run := draftRun("PR-2025-0001")
	require.NoError(t, st.CreateRun(ctx, run))

	at := payroll.Date(2025, time.June, 18)
	require.NoError(t, st.TransitionRun(ctx, run.ID, payroll.StatusDraft, payroll.StatusPaid, "manager", at))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.StatusPaid, got.Status)
	assert.Equal(t, "manager", got.ApprovedBy)
	require.NotNil(t, got.ApprovedAt)
	assert.Equal(t, at, payroll.Day(*got.ApprovedAt))
}

// =============================================================================
// SEQUENCES
// =============================================================================

func TestStore_NextRunSequence_PerYear(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		n, err := st.NextRunSequence(ctx, 2025)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	// A new year starts over at 1.
	n, err := st.NextRunSequence(ctx, 2026)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_NextEntrySequence_ReservesBlocks(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first, err := st.NextEntrySequence(ctx, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := st.NextEntrySequence(ctx, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, second)
}

// =============================================================================
// LEDGER
// =============================================================================

func seedPostingFixture(t *testing.T, st *sqlite.Store) (payroll.RunID, []ledger.Entry) {
	t.Helper()
	ctx := context.Background()

	accounts := map[ledger.AccountCode]string{}
	for _, a := range []ledger.Account{
		{ID: uuid.NewString(), Code: ledger.AccountWagesExpense, Name: "Wages Expense", Type: ledger.TypeExpense, Active: true, CreatedAt: time.Now()},
		{ID: uuid.NewString(), Code: ledger.AccountCash, Name: "Cash", Type: ledger.TypeAsset, Active: true, CreatedAt: time.Now()},
		{ID: uuid.NewString(), Code: ledger.AccountPayrollLiabilities, Name: "Payroll Liabilities", Type: ledger.TypeLiability, Active: true, CreatedAt: time.Now()},
	} {
		require.NoError(t, st.SaveAccount(ctx, a))
		accounts[a.Code] = a.ID
	}

	run := draftRun("PR-2025-0001")
	run.TotalGross = payroll.MustDecimal("2325.00")
	run.TotalDeductions = payroll.MustDecimal("232.50")
	run.TotalNet = payroll.MustDecimal("2092.50")
	require.NoError(t, st.CreateRun(ctx, run))
	require.NoError(t, st.TransitionRun(ctx, run.ID, payroll.StatusDraft, payroll.StatusPaid, "manager", time.Now()))

	line := func(seq int, account ledger.AccountCode, debit, credit string) ledger.Entry {
		return ledger.Entry{
			ID:            uuid.NewString(),
			EntryNumber:   ledger.EntryNumber(2025, seq),
			EntryDate:     run.PayDate,
			AccountID:     accounts[account],
			Debit:         payroll.MustDecimal(debit),
			Credit:        payroll.MustDecimal(credit),
			ReferenceType: ledger.ReferencePayrollRun,
			ReferenceID:   string(run.ID),
			FiscalYear:    2025,
			FiscalPeriod:  6,
			Posted:        true,
			CreatedBy:     "controller",
			CreatedAt:     time.Now(),
		}
	}

	return run.ID, []ledger.Entry{
		line(1, ledger.AccountWagesExpense, "2325.00", "0"),
		line(2, ledger.AccountCash, "0", "2092.50"),
		line(3, ledger.AccountPayrollLiabilities, "0", "232.50"),
	}
}

func TestStore_PostRun_ClaimAndInsertAtomic(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	runID, entries := seedPostingFixture(t, st)

	require.NoError(t, st.PostRun(ctx, runID, entries))

	got, err := st.EntriesForReference(ctx, ledger.ReferencePayrollRun, string(runID))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "JE-2025-000001", got[0].EntryNumber)
	assert.True(t, got[0].Debit.Equal(payroll.MustDecimal("2325.00")))
	assert.True(t, got[1].Credit.Equal(payroll.MustDecimal("2092.50")))
	assert.True(t, got[2].Credit.Equal(payroll.MustDecimal("232.50")))

	run, err := st.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.True(t, run.GLPosted)
}

func TestStore_PostRun_SecondPostLoses(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	runID, entries := seedPostingFixture(t, st)

	require.NoError(t, st.PostRun(ctx, runID, entries))

	err := st.PostRun(ctx, runID, entries)
	assert.ErrorIs(t, err, payroll.ErrAlreadyPosted)

	all, err := st.ListEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStore_PostRun_UnknownRun(t *testing.T) {
	st := newTestStore(t)

	err := st.PostRun(context.Background(), "no-such-run", nil)
	assert.ErrorIs(t, err, payroll.ErrRunNotFound)
}

func TestStore_Accounts_InactiveInvisibleToResolution(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveAccount(ctx, ledger.Account{
		ID: uuid.NewString(), Code: ledger.AccountCash, Name: "Cash",
		Type: ledger.TypeAsset, Active: false, CreatedAt: time.Now(),
	}))

	a, err := st.AccountByCode(ctx, ledger.AccountCash)
	require.NoError(t, err)
	assert.Nil(t, a, "inactive accounts must not resolve for posting")

	// Still listed for administration.
	all, err := st.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// Package store provides an in-memory implementation of the payroll and
// ledger storage interfaces, used by unit tests and dev flows.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/payroll-engine/ledger"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Memory implements every store interface with mutex-guarded maps. The
// same mutability contract as the SQL store applies: rate rows only ever
// gain an end date, runs accept writes only in draft, and the gl_posted
// claim happens under the single store lock.
type Memory struct {
	mu sync.RWMutex

	employees map[payroll.EmployeeID]payroll.Employee
	rates     map[payroll.EmployeeID][]payroll.PayRate
	rateIndex map[payroll.RateID]*payroll.PayRate

	deductions []payroll.DeductionDefinition
	overrides  map[overrideKey]payroll.DeductionOverride

	timeEntries []payroll.TimeEntry

	runs     map[payroll.RunID]*payroll.PayrollRun
	details  map[payroll.RunID][]payroll.PayrollDetail
	runSeq   map[int]int
	entrySeq map[int]int

	accounts map[ledger.AccountCode]ledger.Account
	entries  []ledger.Entry

	// Failure injection for tests (partial-generation and degraded paths).
	FailDetailFor   map[payroll.EmployeeID]bool
	FailDeductions  bool
	FailRateReads   bool
	FailTimeReads   bool
	FailRosterReads bool
}

type overrideKey struct {
	Employee  payroll.EmployeeID
	Deduction payroll.DeductionID
}

func NewMemory() *Memory {
	return &Memory{
		employees: make(map[payroll.EmployeeID]payroll.Employee),
		rates:     make(map[payroll.EmployeeID][]payroll.PayRate),
		rateIndex: make(map[payroll.RateID]*payroll.PayRate),
		overrides: make(map[overrideKey]payroll.DeductionOverride),
		runs:      make(map[payroll.RunID]*payroll.PayrollRun),
		details:   make(map[payroll.RunID][]payroll.PayrollDetail),
		runSeq:    make(map[int]int),
		entrySeq:  make(map[int]int),
		accounts:  make(map[ledger.AccountCode]ledger.Account),
	}
}

// =============================================================================
// RATE STORE (payroll.RateStore)
// =============================================================================

func (m *Memory) AppendRate(_ context.Context, r payroll.PayRate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rs := append(m.rates[r.EmployeeID], r)
	sort.Slice(rs, func(i, j int) bool { return rs[i].EffectiveDate.Before(rs[j].EffectiveDate) })
	m.rates[r.EmployeeID] = rs
	for i := range rs {
		m.rateIndex[rs[i].ID] = &rs[i]
	}
	return nil
}

func (m *Memory) CloseRate(_ context.Context, id payroll.RateID, endDate time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rateIndex[id]
	if !ok {
		return errNotFound("rate", string(id))
	}
	end := payroll.Day(endDate)
	r.EndDate = &end
	return nil
}

func (m *Memory) RatesFor(_ context.Context, employee payroll.EmployeeID) ([]payroll.PayRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailRateReads {
		return nil, errInjected
	}
	out := make([]payroll.PayRate, len(m.rates[employee]))
	copy(out, m.rates[employee])
	return out, nil
}

func (m *Memory) OpenRate(_ context.Context, employee payroll.EmployeeID) (*payroll.PayRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.rates[employee] {
		if r.EndDate == nil {
			cp := r
			return &cp, nil
		}
	}
	return nil, nil
}

// =============================================================================
// DEDUCTION STORE (payroll.DeductionStore)
// =============================================================================

func (m *Memory) SaveDeduction(_ context.Context, d payroll.DeductionDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.deductions {
		if m.deductions[i].ID == d.ID {
			m.deductions[i] = d
			return nil
		}
	}
	m.deductions = append(m.deductions, d)
	return nil
}

func (m *Memory) ListDeductions(_ context.Context) ([]payroll.DeductionDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailDeductions {
		return nil, errInjected
	}
	out := make([]payroll.DeductionDefinition, len(m.deductions))
	copy(out, m.deductions)
	return out, nil
}

func (m *Memory) SaveOverride(_ context.Context, o payroll.DeductionOverride) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.overrides[overrideKey{o.EmployeeID, o.DeductionID}] = o
	return nil
}

func (m *Memory) ListOverrides(_ context.Context) ([]payroll.DeductionOverride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailDeductions {
		return nil, errInjected
	}
	out := make([]payroll.DeductionOverride, 0, len(m.overrides))
	for _, o := range m.overrides {
		out = append(out, o)
	}
	return out, nil
}

func (m *Memory) OverridesFor(_ context.Context, employee payroll.EmployeeID) ([]payroll.DeductionOverride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []payroll.DeductionOverride
	for k, o := range m.overrides {
		if k.Employee == employee {
			out = append(out, o)
		}
	}
	return out, nil
}

// =============================================================================
// EMPLOYEE STORE (payroll.EmployeeStore)
// =============================================================================

func (m *Memory) SaveEmployee(_ context.Context, e payroll.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.employees[e.ID] = e
	return nil
}

func (m *Memory) GetEmployee(_ context.Context, id payroll.EmployeeID) (*payroll.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.employees[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]payroll.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]payroll.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListEligible(ctx context.Context) ([]payroll.Employee, error) {
	if m.FailRosterReads {
		return nil, errInjected
	}
	all, err := m.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	var out []payroll.Employee
	for _, e := range all {
		if e.Eligible {
			out = append(out, e)
		}
	}
	return out, nil
}

// =============================================================================
// TIMESHEET STORE (payroll.TimesheetStore)
// =============================================================================

func (m *Memory) RecordTime(_ context.Context, e payroll.TimeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.timeEntries = append(m.timeEntries, e)
	return nil
}

func (m *Memory) TimeFor(_ context.Context, employee payroll.EmployeeID, p payroll.Period) ([]payroll.TimeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []payroll.TimeEntry
	for _, e := range m.timeEntries {
		if e.EmployeeID == employee && p.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) ApprovedHours(_ context.Context, p payroll.Period) (map[payroll.EmployeeID]payroll.ReportedHours, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailTimeReads {
		return nil, errInjected
	}
	out := make(map[payroll.EmployeeID]payroll.ReportedHours)
	for _, e := range m.timeEntries {
		if e.Status != payroll.TimeApproved || !p.Contains(e.Date) {
			continue
		}
		h := out[e.EmployeeID]
		h.Regular = h.Regular.Add(e.RegularHours)
		h.Overtime = h.Overtime.Add(e.OvertimeHours)
		out[e.EmployeeID] = h
	}
	return out, nil
}

// =============================================================================
// RUN STORE (payroll.RunStore)
// =============================================================================

func (m *Memory) NextRunSequence(_ context.Context, year int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runSeq[year]++
	return m.runSeq[year], nil
}

func (m *Memory) CreateRun(_ context.Context, run payroll.PayrollRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.runs {
		if existing.RunNumber == run.RunNumber {
			return payroll.ErrDuplicateRunNumber
		}
	}
	cp := run
	m.runs[run.ID] = &cp
	return nil
}

func (m *Memory) GetRun(_ context.Context, id payroll.RunID) (*payroll.PayrollRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, payroll.ErrRunNotFound
	}
	cp := *run
	return &cp, nil
}

func (m *Memory) ListRuns(_ context.Context) ([]payroll.PayrollRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]payroll.PayrollRun, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunNumber < out[j].RunNumber })
	return out, nil
}

func (m *Memory) InsertDetail(_ context.Context, d payroll.PayrollDetail) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailDetailFor[d.EmployeeID] {
		return errInjected
	}
	run, ok := m.runs[d.RunID]
	if !ok {
		return payroll.ErrRunNotFound
	}
	if run.Status != payroll.StatusDraft {
		return &payroll.ImmutableRunError{RunID: run.ID, Status: run.Status, Op: "insert detail"}
	}
	m.details[d.RunID] = append(m.details[d.RunID], d)
	return nil
}

func (m *Memory) DetailsFor(_ context.Context, id payroll.RunID) ([]payroll.PayrollDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]payroll.PayrollDetail, len(m.details[id]))
	copy(out, m.details[id])
	return out, nil
}

func (m *Memory) UpdateRunTotals(_ context.Context, id payroll.RunID, totals payroll.RunTotals) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[id]
	if !ok {
		return payroll.ErrRunNotFound
	}
	if run.Status != payroll.StatusDraft {
		return &payroll.ImmutableRunError{RunID: run.ID, Status: run.Status, Op: "update totals"}
	}
	run.TotalGross = totals.Gross
	run.TotalDeductions = totals.Deductions
	run.TotalNet = totals.Net
	run.EmployeeCount = totals.EmployeeCount
	return nil
}

func (m *Memory) TransitionRun(_ context.Context, id payroll.RunID, from, to payroll.RunStatus, actor string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[id]
	if !ok {
		return payroll.ErrRunNotFound
	}
	if run.Status != from {
		return &payroll.TransitionError{RunID: id, From: run.Status, To: to}
	}
	run.Status = to
	run.ApprovedBy = actor
	approvedAt := at
	run.ApprovedAt = &approvedAt
	return nil
}

// =============================================================================
// ACCOUNT STORE (ledger.AccountStore)
// =============================================================================

func (m *Memory) SaveAccount(_ context.Context, a ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.accounts[a.Code] = a
	return nil
}

func (m *Memory) AccountByCode(_ context.Context, code ledger.AccountCode) (*ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[code]
	if !ok || !a.Active {
		return nil, nil
	}
	return &a, nil
}

func (m *Memory) ListAccounts(_ context.Context) ([]ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ledger.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// =============================================================================
// ENTRY STORE (ledger.EntryStore)
// =============================================================================

func (m *Memory) NextEntrySequence(_ context.Context, year, n int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	first := m.entrySeq[year] + 1
	m.entrySeq[year] += n
	return first, nil
}

func (m *Memory) PostRun(_ context.Context, runID payroll.RunID, entries []ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return payroll.ErrRunNotFound
	}
	// Claim-then-write under the single store lock: the in-memory
	// equivalent of `UPDATE ... WHERE status='paid' AND gl_posted=0`.
	if run.Status != payroll.StatusPaid || run.GLPosted {
		return payroll.ErrAlreadyPosted
	}
	run.GLPosted = true
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *Memory) EntriesForReference(_ context.Context, refType, refID string) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.Entry
	for _, e := range m.entries {
		if e.ReferenceType == refType && e.ReferenceID == refID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) ListEntries(_ context.Context) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ledger.Entry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

// =============================================================================
// HELPERS
// =============================================================================

type notFoundError struct{ kind, id string }

func (e notFoundError) Error() string { return e.kind + " " + e.id + " not found" }

func errNotFound(kind, id string) error { return notFoundError{kind, id} }

type injectedError struct{}

func (injectedError) Error() string { return "injected store failure" }

var errInjected = injectedError{}

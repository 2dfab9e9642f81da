/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the payroll calculation and GL posting engine via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Employees:
    GET    /api/employees                      List all employees
    POST   /api/employees                      Create employee
    GET    /api/employees/{id}                 Get employee details
    GET    /api/employees/{id}/rates           Rate history
    POST   /api/employees/{id}/rates           Append a rate row
    GET    /api/employees/{id}/rates/effective Resolved rate on a date
    GET    /api/employees/{id}/overrides       Deduction overrides
    PUT    /api/employees/{id}/overrides/{deductionID} Set override
    GET    /api/employees/{id}/time            Time entries in a range
    POST   /api/employees/{id}/time            Record reported hours

  Deductions:
    GET    /api/deductions                     List the catalog
    POST   /api/deductions                     Create/replace a definition

  Runs:
    GET    /api/runs                           List runs
    POST   /api/runs                           Generate a draft run
    GET    /api/runs/{id}                      Run header + details
    POST   /api/runs/{id}/process              draft -> paid
    POST   /api/runs/{id}/cancel               draft -> cancelled
    POST   /api/runs/{id}/post                 Post to the general ledger
    GET    /api/runs/{id}/paystubs/{employeeID} Pay stub

  Ledger:
    GET    /api/accounts                       Chart of accounts
    GET    /api/ledger/entries                 Journal entries (?reference_id)

  Scenarios (development only):
    GET    /api/scenarios                      List demo scenarios
    GET    /api/scenarios/current              Currently loaded scenario
    POST   /api/scenarios/load                 Reset and load a scenario

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - Domain engines (rate history, generator, lifecycle, poster)
  - Validator for request bodies

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (invalid transition, duplicate posting, immutable run)
  - 422: Dependency not ready (catalog unreachable, accounts unconfigured)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/ledger"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store

	Rates      *payroll.RateHistory
	Deductions *payroll.Calculator
	Generator  *payroll.Generator
	Lifecycle  *payroll.Lifecycle
	Poster     *ledger.Poster

	validate *validator.Validate

	currentScenario string
}

// NewHandler creates a handler with all domain engines wired to the store.
func NewHandler(store *sqlite.Store) *Handler {
	rates := payroll.NewRateHistory(store)
	deductions := payroll.NewCalculator(store)
	calc := payroll.NewPayCalculator(rates, deductions)

	return &Handler{
		Store:      store,
		Rates:      rates,
		Deductions: deductions,
		Generator:  payroll.NewGenerator(store, store, store, calc),
		Lifecycle:  payroll.NewLifecycle(store),
		Poster:     ledger.NewPoster(store, store, store),
		validate:   validator.New(),
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))

	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// CreateEmployee creates a new employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if !h.decode(w, r, &req) {
		return
	}

	eligible := true
	if req.Eligible != nil {
		eligible = *req.Eligible
	}

	emp := payroll.Employee{
		ID:        payroll.EmployeeID(req.ID),
		Name:      req.Name,
		Email:     req.Email,
		Role:      req.Role,
		Eligible:  eligible,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// =============================================================================
// RATE HANDLERS
// =============================================================================

// ListRates returns the full rate history for an employee.
func (h *Handler) ListRates(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))

	rates, err := h.Store.RatesFor(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load rate history", err)
		return
	}

	dtos := make([]RateDTO, len(rates))
	for i, rate := range rates {
		dtos[i] = toRateDTO(rate)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRate appends a new rate row, closing the currently open one.
func (h *Handler) CreateRate(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))

	var req CreateRateRequest
	if !h.decode(w, r, &req) {
		return
	}

	effective, err := time.Parse(dateLayout, req.EffectiveDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid effective_date format (use YYYY-MM-DD)", err)
		return
	}

	hourly, err := decimal.NewFromString(req.HourlyRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hourly_rate", err)
		return
	}

	rate := payroll.PayRate{
		EmployeeID:    id,
		HourlyRate:    hourly,
		EffectiveDate: effective,
		BonusEligible: req.BonusEligible,
		PayFrequency:  payroll.PayFrequency(req.PayFrequency),
	}

	if rate.OvertimeRate, err = optionalDecimal(req.OvertimeRate, hourly.Mul(decimal.NewFromFloat(1.5))); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid overtime_rate", err)
		return
	}
	if rate.OvertimeThreshold, err = optionalDecimal(req.OvertimeThreshold, decimal.NewFromInt(40)); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid overtime_threshold", err)
		return
	}
	if rate.PerDiemRate, err = optionalDecimal(req.PerDiemRate, decimal.Zero); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid per_diem_rate", err)
		return
	}
	if req.SalaryAmount != nil {
		salary, err := decimal.NewFromString(*req.SalaryAmount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid salary_amount", err)
			return
		}
		rate.SalaryAmount = &salary
	}

	saved, err := h.Rates.Add(r.Context(), rate)
	if err != nil {
		h.respondDomainError(w, "Failed to append rate", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRateDTO(*saved))
}

// GetEffectiveRate resolves the rate in effect on a date (default today).
func (h *Handler) GetEffectiveRate(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))

	asOf := time.Now().UTC()
	if q := r.URL.Query().Get("as_of"); q != "" {
		parsed, err := time.Parse(dateLayout, q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of format (use YYYY-MM-DD)", err)
			return
		}
		asOf = parsed
	}

	rate := h.Rates.Resolve(r.Context(), id, asOf)
	writeJSON(w, http.StatusOK, EffectiveRateDTO{
		EmployeeID:        string(id),
		AsOf:              asOf.Format(dateLayout),
		HourlyRate:        money(rate.HourlyRate),
		OvertimeRate:      money(rate.OvertimeRate),
		OvertimeThreshold: rate.OvertimeThreshold.String(),
		Source:            string(rate.Source),
		IsDefault:         rate.IsDefault(),
	})
}

// =============================================================================
// DEDUCTION HANDLERS
// =============================================================================

// ListDeductions returns the deduction catalog.
func (h *Handler) ListDeductions(w http.ResponseWriter, r *http.Request) {
	defs, err := h.Store.ListDeductions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list deductions", err)
		return
	}

	dtos := make([]DeductionDTO, len(defs))
	for i, d := range defs {
		dtos[i] = toDeductionDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateDeduction creates or replaces a deduction definition.
func (h *Handler) CreateDeduction(w http.ResponseWriter, r *http.Request) {
	var req CreateDeductionRequest
	if !h.decode(w, r, &req) {
		return
	}

	amount, err := decimal.NewFromString(req.DefaultAmount)
	if err != nil || amount.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid default_amount", err)
		return
	}
	if req.Method == string(payroll.MethodPercentage) && amount.GreaterThan(decimal.NewFromInt(100)) {
		writeError(w, http.StatusBadRequest, "Percentage must not exceed 100", nil)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	def := payroll.DeductionDefinition{
		ID:            payroll.DeductionID(req.ID),
		Name:          req.Name,
		Category:      payroll.DeductionCategory(req.Category),
		Method:        payroll.CalculationMethod(req.Method),
		DefaultAmount: amount,
		PreTax:        req.PreTax,
		Active:        active,
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.Store.SaveDeduction(r.Context(), def); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save deduction", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDeductionDTO(def))
}

// ListOverrides returns an employee's deduction overrides.
func (h *Handler) ListOverrides(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))

	overrides, err := h.Store.OverridesFor(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list overrides", err)
		return
	}

	dtos := make([]OverrideDTO, len(overrides))
	for i, o := range overrides {
		dtos[i] = toOverrideDTO(o)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SetOverride creates or replaces one employee's override for a deduction.
func (h *Handler) SetOverride(w http.ResponseWriter, r *http.Request) {
	employeeID := payroll.EmployeeID(chi.URLParam(r, "id"))
	deductionID := payroll.DeductionID(chi.URLParam(r, "deductionID"))

	var req SetOverrideRequest
	if !h.decode(w, r, &req) {
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	override := payroll.DeductionOverride{
		EmployeeID:  employeeID,
		DeductionID: deductionID,
		Amount:      amount,
		Active:      active,
	}
	if err := h.Store.SaveOverride(r.Context(), override); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save override", err)
		return
	}
	writeJSON(w, http.StatusOK, toOverrideDTO(override))
}

// =============================================================================
// TIME HANDLERS
// =============================================================================

// RecordTime records one day of reported hours for an employee.
func (h *Handler) RecordTime(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))

	var req RecordTimeRequest
	if !h.decode(w, r, &req) {
		return
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	regular, err := decimal.NewFromString(req.RegularHours)
	if err != nil || regular.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid regular_hours", err)
		return
	}
	overtime := decimal.Zero
	if req.OvertimeHours != "" {
		if overtime, err = decimal.NewFromString(req.OvertimeHours); err != nil || overtime.IsNegative() {
			writeError(w, http.StatusBadRequest, "Invalid overtime_hours", err)
			return
		}
	}

	status := payroll.TimePending
	if req.Status != "" {
		status = payroll.TimeEntryStatus(req.Status)
	}

	entry := payroll.TimeEntry{
		ID:            uuid.NewString(),
		EmployeeID:    id,
		Date:          payroll.Day(date),
		RegularHours:  regular,
		OvertimeHours: overtime,
		Status:        status,
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.Store.RecordTime(r.Context(), entry); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record time", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTimeEntryDTO(entry))
}

// ListTime returns time entries for an employee in a date range.
func (h *Handler) ListTime(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))

	period, err := parsePeriodQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start/end query (use YYYY-MM-DD)", err)
		return
	}

	entries, err := h.Store.TimeFor(r.Context(), id, period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load time entries", err)
		return
	}

	dtos := make([]TimeEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toTimeEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RUN HANDLERS
// =============================================================================

// ListRuns returns all payroll runs, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GenerateRun generates a draft run for a pay period.
func (h *Handler) GenerateRun(w http.ResponseWriter, r *http.Request) {
	var req GenerateRunRequest
	if !h.decode(w, r, &req) {
		return
	}

	start, err := time.Parse(dateLayout, req.PeriodStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period_start format (use YYYY-MM-DD)", err)
		return
	}
	end, err := time.Parse(dateLayout, req.PeriodEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period_end format (use YYYY-MM-DD)", err)
		return
	}
	payDate, err := time.Parse(dateLayout, req.PayDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pay_date format (use YYYY-MM-DD)", err)
		return
	}

	actor := r.Header.Get("X-Actor")
	if actor == "" {
		actor = "system"
	}

	result, err := h.Generator.Generate(r.Context(), start, end, payDate, actor)
	if err != nil {
		h.respondDomainError(w, "Failed to generate run", err)
		return
	}

	resp := GenerateRunResponse{
		Run:     toRunDTO(*result.Run),
		Details: toRunDetailDTOs(result.Details),
	}
	for _, id := range result.Skipped {
		resp.Skipped = append(resp.Skipped, string(id))
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GetRun returns a run header with its details.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := payroll.RunID(chi.URLParam(r, "id"))

	run, err := h.Store.GetRun(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, "Failed to get run", err)
		return
	}
	details, err := h.Store.DetailsFor(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load run details", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run":     toRunDTO(*run),
		"details": toRunDetailDTOs(details),
	})
}

// ProcessRun marks a draft run as paid.
func (h *Handler) ProcessRun(w http.ResponseWriter, r *http.Request) {
	id := payroll.RunID(chi.URLParam(r, "id"))

	var req ActorRequest
	if !h.decode(w, r, &req) {
		return
	}

	run, err := h.Lifecycle.Process(r.Context(), id, req.Actor)
	if err != nil {
		h.respondDomainError(w, "Failed to process run", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(*run))
}

// CancelRun cancels a draft run.
func (h *Handler) CancelRun(w http.ResponseWriter, r *http.Request) {
	id := payroll.RunID(chi.URLParam(r, "id"))

	var req ActorRequest
	if !h.decode(w, r, &req) {
		return
	}

	run, err := h.Lifecycle.Cancel(r.Context(), id, req.Actor)
	if err != nil {
		h.respondDomainError(w, "Failed to cancel run", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(*run))
}

// PostRun posts a paid run to the general ledger.
func (h *Handler) PostRun(w http.ResponseWriter, r *http.Request) {
	id := payroll.RunID(chi.URLParam(r, "id"))

	var req ActorRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.Poster.Post(r.Context(), id, req.Actor)
	if err != nil {
		h.respondDomainError(w, "Failed to post run", err)
		return
	}
	writeJSON(w, http.StatusCreated, PostRunResponse{
		RunID:        string(id),
		EntryIDs:     result.EntryIDs,
		EntryNumbers: result.EntryNumbers,
	})
}

// GetPayStub renders one employee's pay statement for a run.
func (h *Handler) GetPayStub(w http.ResponseWriter, r *http.Request) {
	runID := payroll.RunID(chi.URLParam(r, "id"))
	employeeID := payroll.EmployeeID(chi.URLParam(r, "employeeID"))

	ctx := r.Context()
	run, err := h.Store.GetRun(ctx, runID)
	if err != nil {
		h.respondDomainError(w, "Failed to get run", err)
		return
	}
	details, err := h.Store.DetailsFor(ctx, runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load run details", err)
		return
	}

	var detail *payroll.PayrollDetail
	for i := range details {
		if details[i].EmployeeID == employeeID {
			detail = &details[i]
			break
		}
	}
	if detail == nil {
		writeError(w, http.StatusNotFound, "Employee has no line in this run", nil)
		return
	}

	emp, err := h.Store.GetEmployee(ctx, employeeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	name := string(employeeID)
	if emp != nil {
		name = emp.Name
	}

	// Stored details carry only the deduction total; recompute the line
	// breakdown from the current catalog for display.
	var lines []StubDeductionDTO
	result := h.Deductions.Compute(ctx, detail.GrossPay, employeeID)
	for _, line := range result.Lines {
		lines = append(lines, StubDeductionDTO{
			Name:       line.Name,
			Category:   string(line.Category),
			Amount:     money(line.Amount),
			Overridden: line.Overridden,
		})
	}

	writeJSON(w, http.StatusOK, PayStubDTO{
		RunNumber:       run.RunNumber,
		PeriodStart:     run.PeriodStart.Format(dateLayout),
		PeriodEnd:       run.PeriodEnd.Format(dateLayout),
		PayDate:         run.PayDate.Format(dateLayout),
		EmployeeID:      string(employeeID),
		EmployeeName:    name,
		RegularHours:    detail.RegularHours.String(),
		OvertimeHours:   detail.OvertimeHours.String(),
		RegularPay:      money(detail.RegularPay),
		OvertimePay:     money(detail.OvertimePay),
		GrossPay:        money(detail.GrossPay),
		Deductions:      lines,
		TotalDeductions: money(detail.TotalDeductions),
		NetPay:          money(detail.NetPay),
	})
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// ListAccounts returns the chart of accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Store.ListAccounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list accounts", err)
		return
	}

	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = toAccountDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListEntries returns journal entries, optionally filtered by reference.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var entries []ledger.Entry
	var err error
	if refID := r.URL.Query().Get("reference_id"); refID != "" {
		entries, err = h.Store.EntriesForReference(ctx, ledger.ReferencePayrollRun, refID)
	} else {
		entries, err = h.Store.ListEntries(ctx)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list entries", err)
		return
	}

	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

// decode parses and validates a JSON request body. Writes the error
// response itself and returns false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// respondDomainError maps domain errors to HTTP statuses.
func (h *Handler) respondDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case payroll.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, payroll.ErrInvalidPeriod) || errors.Is(err, payroll.ErrRateOverlap):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, payroll.ErrInvalidTransition),
		errors.Is(err, payroll.ErrRunImmutable),
		errors.Is(err, payroll.ErrAlreadyPosted),
		errors.Is(err, payroll.ErrDuplicateRunNumber):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, payroll.ErrCatalogUnavailable),
		errors.Is(err, ledger.ErrNotConfigured),
		errors.Is(err, ledger.ErrUnbalanced):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func parsePeriodQuery(r *http.Request) (payroll.Period, error) {
	start, err := time.Parse(dateLayout, r.URL.Query().Get("start"))
	if err != nil {
		return payroll.Period{}, err
	}
	end, err := time.Parse(dateLayout, r.URL.Query().Get("end"))
	if err != nil {
		return payroll.Period{}, err
	}
	return payroll.Period{Start: payroll.Day(start), End: payroll.Day(end)}, nil
}

func optionalDecimal(s string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if s == "" {
		return fallback, nil
	}
	return decimal.NewFromString(s)
}

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

/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates employees, rates,
	deductions, and time entries that demonstrate specific features.

AVAILABLE SCENARIOS:

	standard-team:   Three hourly employees with approved June hours
	overtime-week:   Heavy week showing overtime derivation and premium pay
	mid-year-raise:  Rate history with a July 1 raise
	override-heavy:  Per-employee deduction overrides
	posted-quarter:  One full cycle: generated, processed, posted to the GL

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Seed the standard deduction catalog and chart of accounts
 3. Create employees with rate rows
 4. Record approved time entries
 5. Optionally run the full generation/posting cycle

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "overtime-week"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
  - factory/catalog.go: Standard catalog seeding
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "standard-team",
		Name:        "Standard Team",
		Description: "Three hourly employees with approved hours, ready to generate a run",
	},
	{
		ID:          "overtime-week",
		Name:        "Overtime Week",
		Description: "Raw and pre-tagged overtime showing threshold derivation and premium pay",
	},
	{
		ID:          "mid-year-raise",
		Name:        "Mid-Year Raise",
		Description: "Effective-dated rate history with a July 1 raise",
	},
	{
		ID:          "override-heavy",
		Name:        "Override Heavy",
		Description: "Per-employee deduction overrides replacing catalog defaults",
	},
	{
		ID:          "posted-quarter",
		Name:        "Posted Quarter",
		Description: "A full cycle: run generated, processed, and posted to the general ledger",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	// Scenario ID exists but not in list (shouldn't happen)
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	// Reset first, then reseed the catalog every scenario depends on.
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	if err := h.seedStandardCatalog(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed catalog", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "standard-team":
		err = h.loadStandardTeamScenario(ctx)
	case "overtime-week":
		err = h.loadOvertimeWeekScenario(ctx)
	case "mid-year-raise":
		err = h.loadMidYearRaiseScenario(ctx)
	case "override-heavy":
		err = h.loadOverrideHeavyScenario(ctx)
	case "posted-quarter":
		err = h.loadPostedQuarterScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = req.ScenarioID

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

func (h *Handler) seedStandardCatalog(ctx context.Context) error {
	f := factory.NewCatalogFactory()
	catalog, err := f.ParseCatalog(factory.StandardCatalogJSON())
	if err != nil {
		return err
	}
	return f.Seed(ctx, h.Store, h.Store, catalog)
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// demoPeriod is the pay period every scenario seeds time into: the first
// half of June in the current year, paid on the 20th.
func demoPeriod() (start, end, payDate time.Time) {
	year := time.Now().Year()
	return payroll.Date(year, time.June, 1),
		payroll.Date(year, time.June, 15),
		payroll.Date(year, time.June, 20)
}

func (h *Handler) seedDemoEmployee(ctx context.Context, id, name, hourly string, effective time.Time) error {
	if err := h.Store.SaveEmployee(ctx, payroll.Employee{
		ID:        payroll.EmployeeID(id),
		Name:      name,
		Email:     id + "@example.com",
		Eligible:  true,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	rate := decimal.RequireFromString(hourly)
	_, err := h.Rates.Add(ctx, payroll.PayRate{
		EmployeeID:        payroll.EmployeeID(id),
		HourlyRate:        rate,
		OvertimeRate:      rate.Mul(decimal.NewFromFloat(1.5)),
		OvertimeThreshold: decimal.NewFromInt(40),
		PayFrequency:      payroll.FrequencyBiweekly,
		EffectiveDate:     effective,
	})
	return err
}

func (h *Handler) recordDemoHours(ctx context.Context, id string, day time.Time, regular, overtime string) error {
	return h.Store.RecordTime(ctx, payroll.TimeEntry{
		ID:            uuid.NewString(),
		EmployeeID:    payroll.EmployeeID(id),
		Date:          payroll.Day(day),
		RegularHours:  decimal.RequireFromString(regular),
		OvertimeHours: decimal.RequireFromString(overtime),
		Status:        payroll.TimeApproved,
		CreatedAt:     time.Now().UTC(),
	})
}

func (h *Handler) loadStandardTeamScenario(ctx context.Context) error {
	start, _, _ := demoPeriod()
	effective := payroll.Date(start.Year(), time.January, 1)

	team := []struct {
		id, name, hourly string
		days             int
	}{
		{"emp-001", "Alice Johnson", "32.00", 10},
		{"emp-002", "Bob Chen", "28.50", 10},
		{"emp-003", "Carol Davis", "41.25", 8},
	}

	for _, member := range team {
		if err := h.seedDemoEmployee(ctx, member.id, member.name, member.hourly, effective); err != nil {
			return err
		}
		for day := 0; day < member.days; day++ {
			workDay := start.AddDate(0, 0, 1+day)
			if err := h.recordDemoHours(ctx, member.id, workDay, "8", "0"); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Handler) loadOvertimeWeekScenario(ctx context.Context) error {
	start, _, _ := demoPeriod()
	effective := payroll.Date(start.Year(), time.January, 1)

	// Dana reports raw hours only; the excess over the 40-hour threshold is
	// derived at generation time.
	if err := h.seedDemoEmployee(ctx, "emp-101", "Dana Fox", "30.00", effective); err != nil {
		return err
	}
	for day := 0; day < 5; day++ {
		if err := h.recordDemoHours(ctx, "emp-101", start.AddDate(0, 0, 1+day), "9", "0"); err != nil {
			return err
		}
	}

	// Elliot's timesheet already tags overtime explicitly; the tagged hours
	// are kept and only the remaining excess is re-derived.
	if err := h.seedDemoEmployee(ctx, "emp-102", "Elliot Gray", "30.00", effective); err != nil {
		return err
	}
	for day := 0; day < 5; day++ {
		if err := h.recordDemoHours(ctx, "emp-102", start.AddDate(0, 0, 1+day), "8", "1"); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadMidYearRaiseScenario(ctx context.Context) error {
	start, _, _ := demoPeriod()
	year := start.Year()

	if err := h.seedDemoEmployee(ctx, "emp-201", "Frank Ito", "28.00", payroll.Date(year, time.January, 1)); err != nil {
		return err
	}

	// The raise closes the January row at June 30 and opens a new one.
	raise := decimal.RequireFromString("34.00")
	if _, err := h.Rates.Add(ctx, payroll.PayRate{
		EmployeeID:        "emp-201",
		HourlyRate:        raise,
		OvertimeRate:      raise.Mul(decimal.NewFromFloat(1.5)),
		OvertimeThreshold: decimal.NewFromInt(40),
		PayFrequency:      payroll.FrequencyBiweekly,
		EffectiveDate:     payroll.Date(year, time.July, 1),
	}); err != nil {
		return err
	}

	// Hours in June (old rate) and July (new rate): generating one run per
	// period shows the period start deciding which rate applies.
	for day := 0; day < 5; day++ {
		if err := h.recordDemoHours(ctx, "emp-201", payroll.Date(year, time.June, 2+day), "8", "0"); err != nil {
			return err
		}
		if err := h.recordDemoHours(ctx, "emp-201", payroll.Date(year, time.July, 2+day), "8", "0"); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadOverrideHeavyScenario(ctx context.Context) error {
	if err := h.loadStandardTeamScenario(ctx); err != nil {
		return err
	}

	// Alice waives health insurance, Bob contributes extra to retirement,
	// Carol has a garnishment on top of the catalog defaults.
	overrides := []payroll.DeductionOverride{
		{EmployeeID: "emp-001", DeductionID: "health-insurance", Amount: decimal.Zero, Active: true},
		{EmployeeID: "emp-002", DeductionID: "retirement-401k", Amount: decimal.RequireFromString("10"), Active: true},
	}
	for _, o := range overrides {
		if err := h.Store.SaveOverride(ctx, o); err != nil {
			return err
		}
	}

	if err := h.Store.SaveDeduction(ctx, payroll.DeductionDefinition{
		ID:            "wage-garnishment",
		Name:          "Wage Garnishment",
		Category:      payroll.CategoryGarnishment,
		Method:        payroll.MethodFixedAmount,
		DefaultAmount: decimal.Zero,
		Active:        true,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		return err
	}
	return h.Store.SaveOverride(ctx, payroll.DeductionOverride{
		EmployeeID:  "emp-003",
		DeductionID: "wage-garnishment",
		Amount:      decimal.RequireFromString("150.00"),
		Active:      true,
	})
}

func (h *Handler) loadPostedQuarterScenario(ctx context.Context) error {
	if err := h.loadStandardTeamScenario(ctx); err != nil {
		return err
	}

	start, end, payDate := demoPeriod()
	result, err := h.Generator.Generate(ctx, start, end, payDate, "demo")
	if err != nil {
		return err
	}
	if _, err := h.Lifecycle.Process(ctx, result.Run.ID, "demo-manager"); err != nil {
		return err
	}
	_, err = h.Poster.Post(ctx, result.Run.ID, "demo-controller")
	return err
}

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// newTestServer boots the full stack on a throwaway database, with the
// standard deduction catalog and chart of accounts seeded.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := sqlite.New(filepath.Join(t.TempDir(), "payroll.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	f := factory.NewCatalogFactory()
	catalog, err := f.ParseCatalog(factory.StandardCatalogJSON())
	require.NoError(t, err)
	require.NoError(t, f.Seed(context.Background(), st, st, catalog))

	srv := httptest.NewServer(api.NewRouter(api.NewHandler(st)))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func doJSONList(t *testing.T, srv *httptest.Server, path string) []map[string]any {
	t.Helper()

	resp, err := srv.Client().Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return decoded
}

// seedEmployee creates an employee with an open rate and approved hours
// inside the June 1-15 period.
func seedEmployee(t *testing.T, srv *httptest.Server, id, hourly string, days int) {
	t.Helper()

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/employees", map[string]any{
		"id": id, "name": "Employee " + id,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodPost, "/api/employees/"+id+"/rates", map[string]any{
		"hourly_rate": hourly, "effective_date": "2025-01-01",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	for day := 0; day < days; day++ {
		resp, _ = doJSON(t, srv, http.MethodPost, "/api/employees/"+id+"/time", map[string]any{
			"date":          fmt.Sprintf("2025-06-%02d", 2+day),
			"regular_hours": "8",
			"status":        "approved",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
}

func generateRun(t *testing.T, srv *httptest.Server) (string, map[string]any) {
	t.Helper()

	resp, body := doJSON(t, srv, http.MethodPost, "/api/runs", map[string]any{
		"period_start": "2025-06-01",
		"period_end":   "2025-06-15",
		"pay_date":     "2025-06-20",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "generate: %v", body)

	run := body["run"].(map[string]any)
	return run["id"].(string), body
}

// =============================================================================
// END-TO-END FLOW
// =============================================================================

func TestAPI_FullPayrollCycle(t *testing.T) {
	// GIVEN: Two employees with rates and approved June hours
	// WHEN: Generating, processing, and posting a run
	// THEN: Each step succeeds and the ledger ends balanced

	srv := newTestServer(t)
	seedEmployee(t, srv, "emp-1", "30.00", 5) // 40h
	seedEmployee(t, srv, "emp-2", "45.00", 3) // 24h

	runID, body := generateRun(t, srv)
	run := body["run"].(map[string]any)
	assert.Equal(t, "PR-2025-0001", run["run_number"])
	assert.Equal(t, "draft", run["status"])
	assert.Equal(t, float64(2), run["employee_count"])
	assert.Len(t, body["details"], 2)

	// Gross: 40*30 + 24*45 = 1200 + 1080 = 2280.
	assert.Equal(t, "2280.00", run["total_gross"])

	resp, processed := doJSON(t, srv, http.MethodPost, "/api/runs/"+runID+"/process", map[string]any{"actor": "manager"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "paid", processed["status"])
	assert.Equal(t, "manager", processed["approved_by"])

	resp, posted := doJSON(t, srv, http.MethodPost, "/api/runs/"+runID+"/post", map[string]any{"actor": "controller"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Len(t, posted["entry_numbers"], 3)

	entries := doJSONList(t, srv, "/api/ledger/entries?reference_id="+runID)
	require.Len(t, entries, 3)
	assert.Equal(t, "JE-2025-000001", entries[0]["entry_number"])
	assert.Equal(t, "2280.00", entries[0]["debit"])

	// The run now reports as posted.
	resp, got := doJSON(t, srv, http.MethodGet, "/api/runs/"+runID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, got["run"].(map[string]any)["gl_posted"])
}

func TestAPI_PayStub(t *testing.T) {
	srv := newTestServer(t)
	seedEmployee(t, srv, "emp-1", "30.00", 5)
	runID, _ := generateRun(t, srv)

	resp, stub := doJSON(t, srv, http.MethodGet, "/api/runs/"+runID+"/paystubs/emp-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "PR-2025-0001", stub["run_number"])
	assert.Equal(t, "emp-1", stub["employee_id"])
	assert.Equal(t, "1200.00", stub["gross_pay"])
	assert.NotEmpty(t, stub["deductions"])

	resp, _ = doJSON(t, srv, http.MethodGet, "/api/runs/"+runID+"/paystubs/emp-9", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// CONFLICT AND VALIDATION RESPONSES
// =============================================================================

func TestAPI_ProcessTwiceConflicts(t *testing.T) {
	srv := newTestServer(t)
	seedEmployee(t, srv, "emp-1", "30.00", 5)
	runID, _ := generateRun(t, srv)

	actor := map[string]any{"actor": "manager"}
	resp, _ := doJSON(t, srv, http.MethodPost, "/api/runs/"+runID+"/process", actor)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodPost, "/api/runs/"+runID+"/process", actor)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// A paid run cannot be cancelled either.
	resp, _ = doJSON(t, srv, http.MethodPost, "/api/runs/"+runID+"/cancel", actor)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_PostTwiceConflicts(t *testing.T) {
	srv := newTestServer(t)
	seedEmployee(t, srv, "emp-1", "30.00", 5)
	runID, _ := generateRun(t, srv)

	doJSON(t, srv, http.MethodPost, "/api/runs/"+runID+"/process", map[string]any{"actor": "manager"})

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/runs/"+runID+"/post", map[string]any{"actor": "controller"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodPost, "/api/runs/"+runID+"/post", map[string]any{"actor": "controller"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	entries := doJSONList(t, srv, "/api/ledger/entries?reference_id="+runID)
	assert.Len(t, entries, 3)
}

func TestAPI_PostDraftRunConflicts(t *testing.T) {
	srv := newTestServer(t)
	seedEmployee(t, srv, "emp-1", "30.00", 5)
	runID, _ := generateRun(t, srv)

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/runs/"+runID+"/post", map[string]any{"actor": "controller"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_GenerateInvalidPeriod(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/runs", map[string]any{
		"period_start": "2025-06-15",
		"period_end":   "2025-06-01",
		"pay_date":     "2025-06-20",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_ValidationFailures(t *testing.T) {
	srv := newTestServer(t)

	// Missing required fields.
	resp, _ := doJSON(t, srv, http.MethodPost, "/api/employees", map[string]any{"name": "No ID"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Bad category enum.
	resp, _ = doJSON(t, srv, http.MethodPost, "/api/deductions", map[string]any{
		"id": "x", "name": "X", "category": "mystery", "method": "percentage", "default_amount": "5",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Percentage over 100.
	resp, _ = doJSON(t, srv, http.MethodPost, "/api/deductions", map[string]any{
		"id": "x", "name": "X", "category": "tax", "method": "percentage", "default_amount": "150",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Transition without an actor.
	resp, _ = doJSON(t, srv, http.MethodPost, "/api/runs/whatever/process", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_NotFoundResponses(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, srv, http.MethodGet, "/api/employees/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodGet, "/api/runs/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodPost, "/api/runs/ghost/process", map[string]any{"actor": "manager"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// RATES OVER HTTP
// =============================================================================

func TestAPI_RateHistoryAndResolution(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/employees", map[string]any{"id": "emp-1", "name": "Ada"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, first := doJSON(t, srv, http.MethodPost, "/api/employees/emp-1/rates", map[string]any{
		"hourly_rate": "20.00", "effective_date": "2025-01-01",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "30.00", first["overtime_rate"], "overtime defaults to 1.5x")

	resp, _ = doJSON(t, srv, http.MethodPost, "/api/employees/emp-1/rates", map[string]any{
		"hourly_rate": "25.00", "effective_date": "2025-07-01",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// A third row effective before the open one is rejected.
	resp, _ = doJSON(t, srv, http.MethodPost, "/api/employees/emp-1/rates", map[string]any{
		"hourly_rate": "22.00", "effective_date": "2025-03-01",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	history := doJSONList(t, srv, "/api/employees/emp-1/rates")
	require.Len(t, history, 2)
	assert.Equal(t, "2025-06-30", *jsonStr(history[0], "end_date"))

	resp, effective := doJSON(t, srv, http.MethodGet, "/api/employees/emp-1/rates/effective?as_of=2025-06-15", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "20.00", effective["hourly_rate"])
	assert.Equal(t, false, effective["is_default"])

	// Before any rate row, resolution falls back to the zero default.
	resp, effective = doJSON(t, srv, http.MethodGet, "/api/employees/emp-1/rates/effective?as_of=2024-01-01", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, effective["is_default"])
	assert.Equal(t, "0.00", effective["hourly_rate"])
}

func TestAPI_OverrideChangesRunWithholding(t *testing.T) {
	// GIVEN: emp-1 overrides federal tax down to 5%
	// WHEN: A run is generated
	// THEN: Their withholding reflects the override

	srv := newTestServer(t)
	seedEmployee(t, srv, "emp-1", "30.00", 5)

	resp, _ := doJSON(t, srv, http.MethodPut, "/api/employees/emp-1/overrides/federal-tax", map[string]any{
		"amount": "5",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	overrides := doJSONList(t, srv, "/api/employees/emp-1/overrides")
	require.Len(t, overrides, 1)
	assert.Equal(t, "5", overrides[0]["amount"])

	_, body := generateRun(t, srv)
	details := body["details"].([]any)
	require.Len(t, details, 1)
	detail := details[0].(map[string]any)

	// Standard catalog on 1200.00 with federal at 5% instead of 15%:
	// 5% + 5% + 6.2% + 1.45% = 17.65% -> 211.80, plus 120.00 fixed
	// health, plus 4% retirement 48.00 = 379.80.
	assert.Equal(t, "1200.00", detail["gross_pay"])
	assert.Equal(t, "379.80", detail["total_deductions"])
}

func jsonStr(m map[string]any, key string) *string {
	v, ok := m[key].(string)
	if !ok {
		return nil
	}
	return &v
}

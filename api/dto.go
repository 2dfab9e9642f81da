/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  All monetary fields are serialized as strings with two decimal places
  ("1425.00"), never floats. Hours are serialized the same way since
  timesheets carry fractional hours.

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run
  the validator before touching domain logic.

SEE ALSO:
  - handlers.go: Uses these types
  - payroll/, ledger/: Domain types these map from
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/ledger"
	"github.com/warp/payroll-engine/payroll"
)

const dateLayout = "2006-01-02"

// =============================================================================
// EMPLOYEE TYPES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	Eligible  bool   `json:"eligible"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateEmployeeRequest is the request to create an employee.
type CreateEmployeeRequest struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Role     string `json:"role"`
	Eligible *bool  `json:"eligible"` // Default true
}

// =============================================================================
// RATE TYPES
// =============================================================================

// RateDTO represents one row of an employee's rate history.
type RateDTO struct {
	ID                string  `json:"id"`
	EmployeeID        string  `json:"employee_id"`
	HourlyRate        string  `json:"hourly_rate"`
	OvertimeRate      string  `json:"overtime_rate"`
	OvertimeThreshold string  `json:"overtime_threshold"`
	SalaryAmount      *string `json:"salary_amount,omitempty"`
	PayFrequency      string  `json:"pay_frequency"`
	EffectiveDate     string  `json:"effective_date"`
	EndDate           *string `json:"end_date,omitempty"`
	BonusEligible     bool    `json:"bonus_eligible"`
	PerDiemRate       string  `json:"per_diem_rate"`
}

// CreateRateRequest appends a new rate row effective from the given date.
type CreateRateRequest struct {
	HourlyRate        string  `json:"hourly_rate" validate:"required"`
	OvertimeRate      string  `json:"overtime_rate"`      // Default 1.5x hourly
	OvertimeThreshold string  `json:"overtime_threshold"` // Default 40
	SalaryAmount      *string `json:"salary_amount,omitempty"`
	PayFrequency      string  `json:"pay_frequency" validate:"omitempty,oneof=weekly biweekly semimonthly monthly"`
	EffectiveDate     string  `json:"effective_date" validate:"required"`
	BonusEligible     bool    `json:"bonus_eligible"`
	PerDiemRate       string  `json:"per_diem_rate"`
}

// EffectiveRateDTO is the resolved rate for an employee on a date.
type EffectiveRateDTO struct {
	EmployeeID        string `json:"employee_id"`
	AsOf              string `json:"as_of"`
	HourlyRate        string `json:"hourly_rate"`
	OvertimeRate      string `json:"overtime_rate"`
	OvertimeThreshold string `json:"overtime_threshold"`
	Source            string `json:"source,omitempty"` // Rate row ID; empty = default
	IsDefault         bool   `json:"is_default"`
}

// =============================================================================
// DEDUCTION TYPES
// =============================================================================

// DeductionDTO represents a deduction definition.
type DeductionDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Category      string `json:"category"`
	Method        string `json:"method"`
	DefaultAmount string `json:"default_amount"`
	PreTax        bool   `json:"pre_tax"`
	Active        bool   `json:"active"`
}

// CreateDeductionRequest creates or replaces a deduction definition.
type CreateDeductionRequest struct {
	ID            string `json:"id" validate:"required"`
	Name          string `json:"name" validate:"required"`
	Category      string `json:"category" validate:"required,oneof=tax insurance retirement garnishment other"`
	Method        string `json:"method" validate:"required,oneof=percentage fixed_amount"`
	DefaultAmount string `json:"default_amount" validate:"required"`
	PreTax        bool   `json:"pre_tax"`
	Active        *bool  `json:"active"` // Default true
}

// OverrideDTO represents a per-employee deduction override.
type OverrideDTO struct {
	EmployeeID  string `json:"employee_id"`
	DeductionID string `json:"deduction_id"`
	Amount      string `json:"amount"`
	Active      bool   `json:"active"`
}

// SetOverrideRequest creates or replaces an override for one employee.
type SetOverrideRequest struct {
	Amount string `json:"amount" validate:"required"`
	Active *bool  `json:"active"` // Default true
}

// =============================================================================
// TIME TYPES
// =============================================================================

// TimeEntryDTO represents a reported timesheet row.
type TimeEntryDTO struct {
	ID            string `json:"id"`
	EmployeeID    string `json:"employee_id"`
	Date          string `json:"date"`
	RegularHours  string `json:"regular_hours"`
	OvertimeHours string `json:"overtime_hours"`
	Status        string `json:"status"`
}

// RecordTimeRequest records one day of reported hours.
type RecordTimeRequest struct {
	Date          string `json:"date" validate:"required"`
	RegularHours  string `json:"regular_hours" validate:"required"`
	OvertimeHours string `json:"overtime_hours"`
	Status        string `json:"status" validate:"omitempty,oneof=pending approved rejected"`
}

// =============================================================================
// RUN TYPES
// =============================================================================

// RunDTO represents a payroll run header.
type RunDTO struct {
	ID              string  `json:"id"`
	RunNumber       string  `json:"run_number"`
	PeriodStart     string  `json:"period_start"`
	PeriodEnd       string  `json:"period_end"`
	PayDate         string  `json:"pay_date"`
	Status          string  `json:"status"`
	TotalGross      string  `json:"total_gross"`
	TotalDeductions string  `json:"total_deductions"`
	TotalNet        string  `json:"total_net"`
	EmployeeCount   int     `json:"employee_count"`
	GLPosted        bool    `json:"gl_posted"`
	CreatedBy       string  `json:"created_by,omitempty"`
	CreatedAt       string  `json:"created_at,omitempty"`
	ApprovedBy      string  `json:"approved_by,omitempty"`
	ApprovedAt      *string `json:"approved_at,omitempty"`
}

// RunDetailDTO is one employee's line of a run.
type RunDetailDTO struct {
	ID              string `json:"id"`
	EmployeeID      string `json:"employee_id"`
	RegularHours    string `json:"regular_hours"`
	OvertimeHours   string `json:"overtime_hours"`
	RegularPay      string `json:"regular_pay"`
	OvertimePay     string `json:"overtime_pay"`
	GrossPay        string `json:"gross_pay"`
	TotalDeductions string `json:"total_deductions"`
	NetPay          string `json:"net_pay"`
}

// GenerateRunRequest asks the engine to generate a draft run.
type GenerateRunRequest struct {
	PeriodStart string `json:"period_start" validate:"required"`
	PeriodEnd   string `json:"period_end" validate:"required"`
	PayDate     string `json:"pay_date" validate:"required"`
}

// GenerateRunResponse is the generated draft plus its details.
type GenerateRunResponse struct {
	Run     RunDTO         `json:"run"`
	Details []RunDetailDTO `json:"details"`
	Skipped []string       `json:"skipped,omitempty"` // Employees whose lines failed
}

// ActorRequest carries the acting user for state transitions.
type ActorRequest struct {
	Actor string `json:"actor" validate:"required"`
}

// PostRunResponse reports the journal entries created for a run.
type PostRunResponse struct {
	RunID        string   `json:"run_id"`
	EntryIDs     []string `json:"entry_ids"`
	EntryNumbers []string `json:"entry_numbers"`
}

// =============================================================================
// PAY STUB TYPES
// =============================================================================

// PayStubDTO is one employee's pay statement for a run.
type PayStubDTO struct {
	RunNumber   string `json:"run_number"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	PayDate     string `json:"pay_date"`

	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`

	RegularHours  string `json:"regular_hours"`
	OvertimeHours string `json:"overtime_hours"`
	RegularPay    string `json:"regular_pay"`
	OvertimePay   string `json:"overtime_pay"`
	GrossPay      string `json:"gross_pay"`

	Deductions      []StubDeductionDTO `json:"deductions"`
	TotalDeductions string             `json:"total_deductions"`
	NetPay          string             `json:"net_pay"`
}

// StubDeductionDTO is one deduction line on a pay stub.
type StubDeductionDTO struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	Amount     string `json:"amount"`
	Overridden bool   `json:"overridden,omitempty"`
}

// =============================================================================
// LEDGER TYPES
// =============================================================================

// AccountDTO represents a GL account.
type AccountDTO struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Active bool   `json:"active"`
}

// EntryDTO represents one journal line.
type EntryDTO struct {
	ID            string `json:"id"`
	EntryNumber   string `json:"entry_number"`
	EntryDate     string `json:"entry_date"`
	AccountID     string `json:"account_id"`
	Debit         string `json:"debit"`
	Credit        string `json:"credit"`
	ReferenceType string `json:"reference_type"`
	ReferenceID   string `json:"reference_id"`
	FiscalYear    int    `json:"fiscal_year"`
	FiscalPeriod  int    `json:"fiscal_period"`
	Memo          string `json:"memo,omitempty"`
}

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func toEmployeeDTO(e payroll.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:        string(e.ID),
		Name:      e.Name,
		Email:     e.Email,
		Role:      e.Role,
		Eligible:  e.Eligible,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
}

func toRateDTO(r payroll.PayRate) RateDTO {
	dto := RateDTO{
		ID:                string(r.ID),
		EmployeeID:        string(r.EmployeeID),
		HourlyRate:        money(r.HourlyRate),
		OvertimeRate:      money(r.OvertimeRate),
		OvertimeThreshold: r.OvertimeThreshold.String(),
		PayFrequency:      string(r.PayFrequency),
		EffectiveDate:     r.EffectiveDate.Format(dateLayout),
		BonusEligible:     r.BonusEligible,
		PerDiemRate:       money(r.PerDiemRate),
	}
	if r.SalaryAmount != nil {
		s := money(*r.SalaryAmount)
		dto.SalaryAmount = &s
	}
	if r.EndDate != nil {
		e := r.EndDate.Format(dateLayout)
		dto.EndDate = &e
	}
	return dto
}

func toDeductionDTO(d payroll.DeductionDefinition) DeductionDTO {
	return DeductionDTO{
		ID:            string(d.ID),
		Name:          d.Name,
		Category:      string(d.Category),
		Method:        string(d.Method),
		DefaultAmount: d.DefaultAmount.String(),
		PreTax:        d.PreTax,
		Active:        d.Active,
	}
}

func toOverrideDTO(o payroll.DeductionOverride) OverrideDTO {
	return OverrideDTO{
		EmployeeID:  string(o.EmployeeID),
		DeductionID: string(o.DeductionID),
		Amount:      o.Amount.String(),
		Active:      o.Active,
	}
}

func toTimeEntryDTO(e payroll.TimeEntry) TimeEntryDTO {
	return TimeEntryDTO{
		ID:            e.ID,
		EmployeeID:    string(e.EmployeeID),
		Date:          e.Date.Format(dateLayout),
		RegularHours:  e.RegularHours.String(),
		OvertimeHours: e.OvertimeHours.String(),
		Status:        string(e.Status),
	}
}

func toRunDTO(run payroll.PayrollRun) RunDTO {
	dto := RunDTO{
		ID:              string(run.ID),
		RunNumber:       run.RunNumber,
		PeriodStart:     run.PeriodStart.Format(dateLayout),
		PeriodEnd:       run.PeriodEnd.Format(dateLayout),
		PayDate:         run.PayDate.Format(dateLayout),
		Status:          string(run.Status),
		TotalGross:      money(run.TotalGross),
		TotalDeductions: money(run.TotalDeductions),
		TotalNet:        money(run.TotalNet),
		EmployeeCount:   run.EmployeeCount,
		GLPosted:        run.GLPosted,
		CreatedBy:       run.CreatedBy,
		CreatedAt:       run.CreatedAt.Format(time.RFC3339),
		ApprovedBy:      run.ApprovedBy,
	}
	if run.ApprovedAt != nil {
		a := run.ApprovedAt.Format(time.RFC3339)
		dto.ApprovedAt = &a
	}
	return dto
}

func toRunDetailDTO(d payroll.PayrollDetail) RunDetailDTO {
	return RunDetailDTO{
		ID:              d.ID,
		EmployeeID:      string(d.EmployeeID),
		RegularHours:    d.RegularHours.String(),
		OvertimeHours:   d.OvertimeHours.String(),
		RegularPay:      money(d.RegularPay),
		OvertimePay:     money(d.OvertimePay),
		GrossPay:        money(d.GrossPay),
		TotalDeductions: money(d.TotalDeductions),
		NetPay:          money(d.NetPay),
	}
}

func toRunDetailDTOs(details []payroll.PayrollDetail) []RunDetailDTO {
	dtos := make([]RunDetailDTO, len(details))
	for i, d := range details {
		dtos[i] = toRunDetailDTO(d)
	}
	return dtos
}

func toAccountDTO(a ledger.Account) AccountDTO {
	return AccountDTO{
		ID:     a.ID,
		Code:   string(a.Code),
		Name:   a.Name,
		Type:   string(a.Type),
		Active: a.Active,
	}
}

func toEntryDTO(e ledger.Entry) EntryDTO {
	return EntryDTO{
		ID:            e.ID,
		EntryNumber:   e.EntryNumber,
		EntryDate:     e.EntryDate.Format(dateLayout),
		AccountID:     e.AccountID,
		Debit:         money(e.Debit),
		Credit:        money(e.Credit),
		ReferenceType: e.ReferenceType,
		ReferenceID:   e.ReferenceID,
		FiscalYear:    e.FiscalYear,
		FiscalPeriod:  e.FiscalPeriod,
		Memo:          e.Memo,
	}
}

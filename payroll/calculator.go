/*
calculator.go - Hours to gross/net pay conversion

PURPOSE:
  Converts one employee's reported hours for a period into regular pay,
  overtime pay, gross, deductions, and net. This is the arithmetic core of
  the engine; everything else orchestrates around it.

OVERTIME POLICY:
  The effective rate's threshold is authoritative, regardless of how the
  upstream time system pre-tagged hours. If reported regular hours exceed
  the threshold, the excess moves into overtime hours (additively - any
  pre-tagged overtime is kept) and regular hours are capped at the
  threshold. Re-running the derivation on already-derived hours is a no-op,
  so recalculation is idempotent.

ROUNDING:
  Every monetary result is rounded to cents at the point of computation.
  gross = round(regular_pay) + round(overtime_pay), net = gross - total,
  so the identity gross == net + deductions holds exactly, not merely
  within tolerance.

SEE ALSO:
  - rates.go: effective rate resolution (4-field result feeds step 1)
  - deductions.go: deduction stack invoked with the computed gross
*/
package payroll

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PAY CALCULATION - Result of one employee's computation
// =============================================================================

type PayCalculation struct {
	EmployeeID  EmployeeID
	PeriodStart time.Time
	Rate        EffectiveRate

	RegularHours  decimal.Decimal
	OvertimeHours decimal.Decimal

	RegularPay      decimal.Decimal
	OvertimePay     decimal.Decimal
	GrossPay        decimal.Decimal
	TotalDeductions decimal.Decimal
	NetPay          decimal.Decimal

	Deductions []DeductionLine
}

// =============================================================================
// OVERTIME RE-DERIVATION
// =============================================================================

// DeriveOvertime applies the authoritative overtime split: regular hours
// above the threshold move into overtime, capping regular at the threshold.
// Idempotent: feeding the output back in yields the same split.
func DeriveOvertime(h ReportedHours, threshold decimal.Decimal) (regular, overtime decimal.Decimal) {
	regular, overtime = h.Regular, h.Overtime
	if threshold.IsPositive() && regular.GreaterThan(threshold) {
		overtime = overtime.Add(regular.Sub(threshold))
		regular = threshold
	}
	return regular, overtime
}

// =============================================================================
// PAY CALCULATOR
// =============================================================================

type PayCalculator struct {
	Rates      *RateHistory
	Deductions *Calculator
}

func NewPayCalculator(rates *RateHistory, deductions *Calculator) *PayCalculator {
	return &PayCalculator{Rates: rates, Deductions: deductions}
}

// Calculate computes one employee's pay using the live deduction catalog.
// Catalog unavailability degrades to zero deductions (see deductions.go);
// run generation uses CalculateWith against a snapshot instead.
func (pc *PayCalculator) Calculate(ctx context.Context, employee EmployeeID, hours ReportedHours, periodStart time.Time) PayCalculation {
	rate := pc.Rates.Resolve(ctx, employee, periodStart)
	gross := pc.grossFor(employee, hours, periodStart, rate)
	ded := pc.Deductions.Compute(ctx, gross.GrossPay, employee)
	return finish(gross, ded)
}

// CalculateWith computes one employee's pay against a catalog snapshot.
// Pure after the rate resolution: no catalog I/O per employee.
func (pc *PayCalculator) CalculateWith(ctx context.Context, snap *CatalogSnapshot, employee EmployeeID, hours ReportedHours, periodStart time.Time) PayCalculation {
	rate := pc.Rates.Resolve(ctx, employee, periodStart)
	gross := pc.grossFor(employee, hours, periodStart, rate)
	ded := snap.Compute(gross.GrossPay, employee)
	return finish(gross, ded)
}

func (pc *PayCalculator) grossFor(employee EmployeeID, hours ReportedHours, periodStart time.Time, rate EffectiveRate) PayCalculation {
	regular, overtime := DeriveOvertime(hours, rate.OvertimeThreshold)

	regularPay := Cents(regular.Mul(rate.HourlyRate))
	overtimePay := Cents(overtime.Mul(rate.OvertimeRate))

	return PayCalculation{
		EmployeeID:    employee,
		PeriodStart:   Day(periodStart),
		Rate:          rate,
		RegularHours:  regular,
		OvertimeHours: overtime,
		RegularPay:    regularPay,
		OvertimePay:   overtimePay,
		GrossPay:      Cents(regularPay.Add(overtimePay)),
	}
}

func finish(calc PayCalculation, ded DeductionResult) PayCalculation {
	calc.TotalDeductions = ded.Total
	calc.NetPay = Cents(calc.GrossPay.Sub(ded.Total))
	calc.Deductions = ded.Lines
	return calc
}

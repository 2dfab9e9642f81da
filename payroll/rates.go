/*
rates.go - Effective-dated pay rate history and resolution

PURPOSE:
  Answers "what was this employee's compensation on date X?". Rates are an
  append-only log of effective-dated rows: creating a new current rate
  closes the previous open-ended row by setting its end_date to the day
  before the new effective_date. Historical rows are never edited or
  deleted - payroll recalculation and audits depend on them.

RESOLUTION RULES:
  A row covers as_of when effective_date <= as_of and (end_date is null or
  end_date >= as_of). If several rows qualify (a data anomaly - periods
  should never overlap), the latest effective_date wins. If none qualify,
  the resolver returns the configured default rate. A missing rate is NOT
  an error; neither is an unreachable history store - both fall back to
  the default, loudly logged because they affect money.

SEE ALSO:
  - calculator.go: consumes EffectiveRate for overtime re-derivation
  - store.go: RateStore contract (append + close only)
*/
package payroll

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// PAY RATE - One effective-dated compensation row
// =============================================================================

type PayRate struct {
	ID                RateID
	EmployeeID        EmployeeID
	HourlyRate        decimal.Decimal
	OvertimeRate      decimal.Decimal
	OvertimeThreshold decimal.Decimal // hours per period before overtime kicks in
	SalaryAmount      *decimal.Decimal
	PayFrequency      PayFrequency
	EffectiveDate     time.Time
	EndDate           *time.Time // nil = currently active
	BonusEligible     bool
	PerDiemRate       decimal.Decimal
	CreatedAt         time.Time
}

// Covers reports whether this row is in effect on the given date.
func (r PayRate) Covers(asOf time.Time) bool {
	d := Day(asOf)
	if Day(r.EffectiveDate).After(d) {
		return false
	}
	return r.EndDate == nil || !Day(*r.EndDate).Before(d)
}

// Open reports whether this is the currently active (end_date = null) row.
func (r PayRate) Open() bool { return r.EndDate == nil }

// =============================================================================
// EFFECTIVE RATE - Resolution result
// =============================================================================

// EffectiveRate is the compensation in force for one employee on one date.
// Source is empty when the system default was used.
type EffectiveRate struct {
	HourlyRate        decimal.Decimal
	OvertimeRate      decimal.Decimal
	OvertimeThreshold decimal.Decimal
	Source            RateID
}

func (er EffectiveRate) IsDefault() bool { return er.Source == "" }

// DefaultRate builds the system fallback: overtime at 1.5x hourly,
// threshold 40 hours.
func DefaultRate(hourly decimal.Decimal) EffectiveRate {
	return EffectiveRate{
		HourlyRate:        hourly,
		OvertimeRate:      Cents(hourly.Mul(MustDecimal("1.5"))),
		OvertimeThreshold: decimal.NewFromInt(40),
	}
}

// =============================================================================
// RATE HISTORY - Append-only log with supersede semantics
// =============================================================================

type RateHistory struct {
	Store   RateStore
	Default EffectiveRate
	Clock   func() time.Time
}

func NewRateHistory(store RateStore) *RateHistory {
	return &RateHistory{
		Store:   store,
		Default: DefaultRate(decimal.Zero),
		Clock:   time.Now,
	}
}

// Add appends a new rate row, closing the previous open-ended row at the
// day before the new effective date. The new row must start after every
// existing row's effective date; history is never rewritten.
func (h *RateHistory) Add(ctx context.Context, r PayRate) (*PayRate, error) {
	if r.EmployeeID == "" {
		return nil, fmt.Errorf("rate: employee id required")
	}
	if r.HourlyRate.IsNegative() {
		return nil, fmt.Errorf("rate: hourly rate cannot be negative")
	}
	if r.OvertimeRate.IsZero() {
		r.OvertimeRate = Cents(r.HourlyRate.Mul(MustDecimal("1.5")))
	}
	if r.OvertimeThreshold.IsZero() {
		r.OvertimeThreshold = decimal.NewFromInt(40)
	}
	if r.ID == "" {
		r.ID = RateID(uuid.NewString())
	}
	r.EffectiveDate = Day(r.EffectiveDate)
	r.CreatedAt = h.Clock().UTC()

	open, err := h.Store.OpenRate(ctx, r.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("rate: load open row: %w", err)
	}
	if open != nil {
		if !r.EffectiveDate.After(Day(open.EffectiveDate)) {
			return nil, &rateOverlapError{employee: r.EmployeeID, effective: r.EffectiveDate}
		}
		closeAt := r.EffectiveDate.AddDate(0, 0, -1)
		if err := h.Store.CloseRate(ctx, open.ID, closeAt); err != nil {
			return nil, fmt.Errorf("rate: close superseded row: %w", err)
		}
	}

	if err := h.Store.AppendRate(ctx, r); err != nil {
		return nil, fmt.Errorf("rate: append: %w", err)
	}
	return &r, nil
}

// Resolve returns the rate in force for the employee on as_of. Falls back
// to the configured default when no row covers the date or the history
// store is unreachable. Pure read, never an error.
func (h *RateHistory) Resolve(ctx context.Context, employee EmployeeID, asOf time.Time) EffectiveRate {
	rates, err := h.Store.RatesFor(ctx, employee)
	if err != nil {
		log.Printf("[Rates] history unreachable for %s, using default rate: %v", employee, err)
		return h.Default
	}

	var best *PayRate
	for i := range rates {
		r := &rates[i]
		if !r.Covers(asOf) {
			continue
		}
		// Overlapping periods are a data anomaly; latest effective wins.
		if best == nil || r.EffectiveDate.After(best.EffectiveDate) {
			best = r
		}
	}
	if best == nil {
		return h.Default
	}

	threshold := best.OvertimeThreshold
	if threshold.IsZero() {
		threshold = decimal.NewFromInt(40)
	}
	return EffectiveRate{
		HourlyRate:        best.HourlyRate,
		OvertimeRate:      best.OvertimeRate,
		OvertimeThreshold: threshold,
		Source:            best.ID,
	}
}

type rateOverlapError struct {
	employee  EmployeeID
	effective time.Time
}

func (e *rateOverlapError) Error() string {
	return fmt.Sprintf("rate for %s effective %s does not postdate the open row",
		e.employee, e.effective.Format("2006-01-02"))
}

func (e *rateOverlapError) Unwrap() error { return ErrRateOverlap }

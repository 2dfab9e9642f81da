/*
deductions.go - Deduction catalog and per-employee overrides

PURPOSE:
  Computes the deduction stack against a gross-pay amount. The catalog is a
  flat global list of definitions; employees may carry override rows that
  replace a definition's default amount. This is a plain two-tier lookup
  (default, then override-if-active), not a hierarchy.

CALCULATION RULES:
  - Override active for (employee, deduction): use its amount, interpreted
    per the definition's method. Percentage overrides still multiply
    against gross; fixed overrides apply as-is.
  - Otherwise percentage: amount = gross * (default / 100).
  - Otherwise fixed: amount = default.
  Each line is rounded to cents before summing. Lines are independent of
  each other: no deduction is computed against another's result.

CATALOG AVAILABILITY:
  Run generation takes a Snapshot up front and hard-fails if the catalog
  is unreachable - a run generated with zero withholding would materially
  change net pay and is worse than a failed generation. The standalone
  Compute keeps the degraded zero-deduction fallback for preview paths,
  and logs loudly when it engages.

SEE ALSO:
  - calculator.go: invokes Compute with the calculated gross
  - run.go: snapshots the catalog once per run
*/
package payroll

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CATALOG TYPES
// =============================================================================

// DeductionDefinition is a global catalog entry. Changes affect all future
// calculations but never already-generated runs.
type DeductionDefinition struct {
	ID            DeductionID
	Name          string
	Category      DeductionCategory
	Method        CalculationMethod
	DefaultAmount decimal.Decimal // percent for percentage, dollars for fixed
	PreTax        bool
	Active        bool
	CreatedAt     time.Time
}

// DeductionOverride replaces a definition's default amount for one
// employee. Unique per (employee, deduction); inactive rows are ignored.
type DeductionOverride struct {
	EmployeeID  EmployeeID
	DeductionID DeductionID
	Amount      decimal.Decimal
	Active      bool
}

// DeductionLine is one computed deduction against a gross amount.
type DeductionLine struct {
	DeductionID DeductionID
	Name        string
	Category    DeductionCategory
	Method      CalculationMethod
	PreTax      bool
	Overridden  bool
	Amount      decimal.Decimal
}

// DeductionResult is the computed stack: per-line breakdown plus total.
type DeductionResult struct {
	Total decimal.Decimal
	Lines []DeductionLine
}

// =============================================================================
// CATALOG SNAPSHOT - Point-in-time copy of definitions + overrides
// =============================================================================

// CatalogSnapshot is an in-memory copy of the active catalog taken at the
// start of a run. Per-employee computation against a snapshot is pure: it
// cannot fail mid-run, and every employee in the run sees the same catalog
// even if an administrator edits definitions concurrently.
type CatalogSnapshot struct {
	Definitions []DeductionDefinition
	overrides   map[EmployeeID]map[DeductionID]DeductionOverride
}

// Compute applies the deduction stack to a gross amount for one employee.
func (s *CatalogSnapshot) Compute(gross decimal.Decimal, employee EmployeeID) DeductionResult {
	result := DeductionResult{Total: decimal.Zero, Lines: []DeductionLine{}}

	for _, def := range s.Definitions {
		if !def.Active {
			continue
		}

		line := DeductionLine{
			DeductionID: def.ID,
			Name:        def.Name,
			Category:    def.Category,
			Method:      def.Method,
			PreTax:      def.PreTax,
		}

		amount := def.DefaultAmount
		if ov, ok := s.overrides[employee][def.ID]; ok && ov.Active {
			amount = ov.Amount
			line.Overridden = true
		}

		switch def.Method {
		case MethodPercentage:
			line.Amount = Cents(gross.Mul(amount).Div(decimal.NewFromInt(100)))
		default: // fixed_amount
			line.Amount = Cents(amount)
		}

		result.Lines = append(result.Lines, line)
		result.Total = result.Total.Add(line.Amount)
	}

	result.Total = Cents(result.Total)
	return result
}

// =============================================================================
// CALCULATOR
// =============================================================================

type Calculator struct {
	Store DeductionStore
}

func NewCalculator(store DeductionStore) *Calculator {
	return &Calculator{Store: store}
}

// Snapshot loads the full catalog (definitions + all overrides) in one
// pass. Returns ErrCatalogUnavailable if either read fails.
func (c *Calculator) Snapshot(ctx context.Context) (*CatalogSnapshot, error) {
	defs, err := c.Store.ListDeductions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	overrides, err := c.Store.ListOverrides(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	snap := &CatalogSnapshot{
		Definitions: defs,
		overrides:   make(map[EmployeeID]map[DeductionID]DeductionOverride),
	}
	for _, ov := range overrides {
		m := snap.overrides[ov.EmployeeID]
		if m == nil {
			m = make(map[DeductionID]DeductionOverride)
			snap.overrides[ov.EmployeeID] = m
		}
		m[ov.DeductionID] = ov
	}
	return snap, nil
}

// Compute applies the current catalog to a gross amount. If the catalog is
// unreachable it returns zero deductions rather than failing - acceptable
// for preview paths, never for run generation (which snapshots up front).
func (c *Calculator) Compute(ctx context.Context, gross decimal.Decimal, employee EmployeeID) DeductionResult {
	snap, err := c.Snapshot(ctx)
	if err != nil {
		log.Printf("[Deductions] catalog unreachable for %s, computing ZERO deductions: %v", employee, err)
		return DeductionResult{Total: decimal.Zero, Lines: []DeductionLine{}}
	}
	return snap.Compute(gross, employee)
}

/*
errors.go - Centralized error types for the payroll engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The ledger package wraps these where it needs posting-specific context.

ERROR CATEGORIES:
  1. State errors - invalid run transitions, immutability violations
  2. Configuration errors - missing GL account mappings
  3. Upstream errors - deduction catalog / rate history unreachable

PROPAGATION POLICY:
  Configuration and state errors surface to the operator for manual
  correction; they never leave partial writes behind, so retry is safe.
  Upstream failures on read paths degrade to documented defaults but are
  always logged, since they affect money.

USAGE:
  if errors.Is(err, payroll.ErrInvalidTransition) {
      // reject with 409, nothing was written
  }
*/
package payroll

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrRunNotFound is returned when a referenced payroll run doesn't exist.
	ErrRunNotFound = errors.New("payroll run not found")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrInvalidTransition is returned when a run is not in the state an
	// operation requires (e.g., posting a draft run, paying a cancelled one).
	// The operation has no side effects; retry after correcting state.
	ErrInvalidTransition = errors.New("invalid run state transition")

	// ErrRunImmutable is returned on any write to a paid or cancelled run.
	ErrRunImmutable = errors.New("run is immutable")

	// ErrAlreadyPosted is returned when a run's GL posting flag is already
	// set. The flag is flipped by an atomic conditional update, so exactly
	// one caller wins even under concurrent posting.
	ErrAlreadyPosted = errors.New("run already posted to general ledger")

	// ErrCatalogUnavailable is returned when the deduction catalog cannot be
	// read while generating a run. Generation aborts before any detail row
	// is written: a run silently missing all withholding is worse than a
	// failed generation.
	ErrCatalogUnavailable = errors.New("deduction catalog unavailable")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrRateOverlap is returned when a new rate row would start on or before
	// an existing row's effective date for the same employee.
	ErrRateOverlap = errors.New("rate period overlaps existing history")

	// ErrDuplicateRunNumber is returned when a run number collides. Run
	// numbers are allocated from a per-year sequence, so this indicates a
	// sequence anomaly rather than normal contention.
	ErrDuplicateRunNumber = errors.New("duplicate run number")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// TransitionError details a rejected run state transition.
type TransitionError struct {
	RunID RunID
	From  RunStatus
	To    RunStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("run %s: cannot transition %s -> %s", e.RunID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ImmutableRunError details a write rejected because the run is finalized.
type ImmutableRunError struct {
	RunID  RunID
	Status RunStatus
	Op     string
}

func (e *ImmutableRunError) Error() string {
	return fmt.Sprintf("run %s is %s: %s rejected", e.RunID, e.Status, e.Op)
}

func (e *ImmutableRunError) Unwrap() error { return ErrRunImmutable }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input or
// state, rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrRunImmutable) ||
		errors.Is(err, ErrAlreadyPosted) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrRateOverlap)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound) ||
		errors.Is(err, ErrEmployeeNotFound)
}

// IsRetryable returns true if the error might succeed on retry without any
// operator intervention.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrCatalogUnavailable)
}

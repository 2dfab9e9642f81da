/*
Package ledger provides the general ledger side of the payroll engine.

PURPOSE:
  Converts finalized payroll runs into balanced double-entry journal
  transactions. Only the payroll-specific slice of a general ledger is
  modeled: a chart of accounts addressable by stable code, and immutable
  debit/credit entry lines referencing the run they came from.

KEY CONCEPTS IN THIS FILE (types.go):
  - AccountCode: stable identifiers (wages_expense, cash, ...) used to
    resolve configured accounts at posting time
  - Entry: one debit OR credit line, never both, never mutated
  - EntryStore.PostRun: the atomic claim-and-write that makes posting
    exactly-once

IMMUTABILITY:
  Entries are never updated or deleted once written. A correction, if ever
  needed, is a new offsetting entry - not modeled here.

SEE ALSO:
  - poster.go: builds the three-line payroll posting transaction
*/
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// ACCOUNTS - Chart-of-accounts slice used by payroll posting
// =============================================================================

type AccountCode string

const (
	AccountWagesExpense       AccountCode = "wages_expense"
	AccountCash               AccountCode = "cash"
	AccountPayrollLiabilities AccountCode = "payroll_liabilities"

	// Optional liability breakdowns; not required for core posting.
	AccountFederalTaxPayable AccountCode = "federal_tax_payable"
	AccountStateTaxPayable   AccountCode = "state_tax_payable"
	AccountFICAPayable       AccountCode = "fica_payable"
	AccountMedicarePayable   AccountCode = "medicare_payable"
)

type AccountType string

const (
	TypeAsset     AccountType = "asset"
	TypeLiability AccountType = "liability"
	TypeExpense   AccountType = "expense"
	TypeRevenue   AccountType = "revenue"
	TypeEquity    AccountType = "equity"
)

type Account struct {
	ID        string
	Code      AccountCode
	Name      string
	Type      AccountType
	Active    bool
	CreatedAt time.Time
}

// =============================================================================
// ENTRY - One debit or credit line
// =============================================================================

// Entry is a single journal line. Exactly one of Debit/Credit is non-zero.
type Entry struct {
	ID          string
	EntryNumber string // JE-<year>-<seq>, unique and sequential
	EntryDate   time.Time
	AccountID   string

	Debit  decimal.Decimal
	Credit decimal.Decimal

	ReferenceType string // "payroll_run"
	ReferenceID   string

	FiscalYear   int
	FiscalPeriod int // month of the entry date

	Posted    bool
	Memo      string
	CreatedBy string
	CreatedAt time.Time
}

// EntryNumber formats the printable journal entry identifier.
func EntryNumber(year, seq int) string {
	return fmt.Sprintf("JE-%d-%06d", year, seq)
}

// ReferencePayrollRun is the reference_type linking entries back to runs.
const ReferencePayrollRun = "payroll_run"

// =============================================================================
// STORES
// =============================================================================

type AccountStore interface {
	SaveAccount(ctx context.Context, a Account) error
	// AccountByCode resolves an active account by its stable code.
	// Returns nil (no error) when the code is not configured.
	AccountByCode(ctx context.Context, code AccountCode) (*Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
}

type EntryStore interface {
	// NextEntrySequence atomically reserves n consecutive entry numbers for
	// a year and returns the first. Reservation survives a failed posting;
	// gaps are acceptable, duplicates are not.
	NextEntrySequence(ctx context.Context, year, n int) (int, error)

	// PostRun atomically flips the run's gl_posted flag (conditional on
	// status=paid and gl_posted=false) and appends the entries. If the
	// conditional update claims no row, nothing is written and
	// payroll.ErrAlreadyPosted is returned. This single operation closes
	// the check-then-set double-posting race.
	PostRun(ctx context.Context, runID payroll.RunID, entries []Entry) error

	EntriesForReference(ctx context.Context, refType, refID string) ([]Entry, error)
	ListEntries(ctx context.Context) ([]Entry, error)
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConfigured is returned when a required GL account mapping is
	// missing. The run stays paid and unposted; posting is safe to retry
	// once the account exists.
	ErrNotConfigured = errors.New("required ledger account not configured")

	// ErrUnbalanced is returned when a run's totals fail the
	// gross = net + deductions identity at posting time. Guaranteed by the
	// calculator's arithmetic, re-validated here because posting an
	// unbalanced transaction corrupts the ledger.
	ErrUnbalanced = errors.New("run totals do not balance")
)

// NotConfiguredError names the missing account code.
type NotConfiguredError struct {
	Code AccountCode
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("ledger account %q not configured", e.Code)
}

func (e *NotConfiguredError) Unwrap() error { return ErrNotConfigured }

// UnbalancedError carries the failing totals for the operator.
type UnbalancedError struct {
	RunID      payroll.RunID
	Gross      decimal.Decimal
	Net        decimal.Decimal
	Deductions decimal.Decimal
}

func (e *UnbalancedError) Error() string {
	return fmt.Sprintf("run %s: gross %s != net %s + deductions %s",
		e.RunID, e.Gross.StringFixed(2), e.Net.StringFixed(2), e.Deductions.StringFixed(2))
}

func (e *UnbalancedError) Unwrap() error { return ErrUnbalanced }

/*
poster.go - Posting a paid payroll run to the general ledger

PURPOSE:
  Builds the balanced three-line journal transaction for a run and writes
  it exactly once:

    1. Debit  wages_expense        run.total_gross
    2. Credit cash                 run.total_net
    3. Credit payroll_liabilities  run.total_deductions

  Line order matters for audit readability (debit first), not for
  accounting correctness.

PRECONDITIONS (all checked before anything is written):
  - run exists and is paid
  - run has not been posted
  - the three required accounts are configured
  - totals satisfy gross = net + deductions

EXACTLY-ONCE:
  The precondition checks are advisory; the real guard is the store's
  PostRun, which claims the gl_posted flag with a conditional update in
  the same transaction that inserts the entries. Concurrent posts of the
  same run resolve to one winner and one ErrAlreadyPosted, never six
  entries.
*/
package ledger

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// POSTER
// =============================================================================

type Poster struct {
	Runs     payroll.RunStore
	Accounts AccountStore
	Entries  EntryStore
	Clock    func() time.Time
}

func NewPoster(runs payroll.RunStore, accounts AccountStore, entries EntryStore) *Poster {
	return &Poster{Runs: runs, Accounts: accounts, Entries: entries, Clock: time.Now}
}

// PostResult identifies the created journal lines.
type PostResult struct {
	EntryIDs     []string
	EntryNumbers []string
}

// Post converts a paid, unposted run into three balanced journal entries.
// Fails without side effects if any precondition doesn't hold.
func (p *Poster) Post(ctx context.Context, runID payroll.RunID, postedBy string) (*PostResult, error) {
	run, err := p.Runs.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, payroll.ErrRunNotFound
	}
	if run.Status != payroll.StatusPaid {
		return nil, &payroll.TransitionError{RunID: run.ID, From: run.Status, To: payroll.StatusPaid}
	}
	if run.GLPosted {
		return nil, fmt.Errorf("run %s: %w", run.RunNumber, payroll.ErrAlreadyPosted)
	}
	if !run.TotalGross.Equal(run.TotalNet.Add(run.TotalDeductions)) {
		return nil, &UnbalancedError{
			RunID: run.ID, Gross: run.TotalGross, Net: run.TotalNet, Deductions: run.TotalDeductions,
		}
	}

	wages, err := p.requireAccount(ctx, AccountWagesExpense)
	if err != nil {
		return nil, err
	}
	cash, err := p.requireAccount(ctx, AccountCash)
	if err != nil {
		return nil, err
	}
	liabilities, err := p.requireAccount(ctx, AccountPayrollLiabilities)
	if err != nil {
		return nil, err
	}

	entryDate := payroll.Day(run.PayDate)
	year := entryDate.Year()
	seq, err := p.Entries.NextEntrySequence(ctx, year, 3)
	if err != nil {
		return nil, fmt.Errorf("post %s: allocate entry numbers: %w", run.RunNumber, err)
	}

	now := p.Clock().UTC()
	memo := fmt.Sprintf("Payroll %s (%s - %s)", run.RunNumber,
		run.PeriodStart.Format("2006-01-02"), run.PeriodEnd.Format("2006-01-02"))

	line := func(offset int, accountID string) Entry {
		e := Entry{
			ID:            uuid.NewString(),
			EntryNumber:   EntryNumber(year, seq+offset),
			EntryDate:     entryDate,
			AccountID:     accountID,
			ReferenceType: ReferencePayrollRun,
			ReferenceID:   string(run.ID),
			FiscalYear:    year,
			FiscalPeriod:  int(entryDate.Month()),
			Posted:        true,
			Memo:          memo,
			CreatedBy:     postedBy,
			CreatedAt:     now,
		}
		return e
	}

	debit := line(0, wages.ID)
	debit.Debit = run.TotalGross

	creditCash := line(1, cash.ID)
	creditCash.Credit = run.TotalNet

	creditLiab := line(2, liabilities.ID)
	creditLiab.Credit = run.TotalDeductions

	entries := []Entry{debit, creditCash, creditLiab}

	if err := p.Entries.PostRun(ctx, run.ID, entries); err != nil {
		return nil, err
	}

	log.Printf("[Ledger] posted %s: debit %s %s / credit %s %s / credit %s %s",
		run.RunNumber,
		AccountWagesExpense, run.TotalGross.StringFixed(2),
		AccountCash, run.TotalNet.StringFixed(2),
		AccountPayrollLiabilities, run.TotalDeductions.StringFixed(2))

	result := &PostResult{}
	for _, e := range entries {
		result.EntryIDs = append(result.EntryIDs, e.ID)
		result.EntryNumbers = append(result.EntryNumbers, e.EntryNumber)
	}
	return result, nil
}

func (p *Poster) requireAccount(ctx context.Context, code AccountCode) (*Account, error) {
	a, err := p.Accounts.AccountByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("resolve account %s: %w", code, err)
	}
	if a == nil {
		return nil, &NotConfiguredError{Code: code}
	}
	return a, nil
}

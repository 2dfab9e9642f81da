/*
lifecycle.go - Payroll run state machine

PURPOSE:
  Enforces run state transitions. For accounting purposes the machine is
  deliberately small: draft -> paid (terminal) and draft -> cancelled
  (terminal). The processing/approved labels exist for reporting but have
  no enforced transition logic.

CONCURRENCY:
  Transitions delegate to RunStore.TransitionRun, a single conditional
  update (UPDATE ... WHERE status = 'draft'). Two operators racing to pay
  the same run resolve to exactly one winner; the loser gets
  ErrInvalidTransition with no side effects.

IMMUTABILITY:
  Once paid, detail rows and totals are read-only. The store enforces this
  on every write path (InsertDetail / UpdateRunTotals check status inside
  the write), not just here.
*/
package payroll

import (
	"context"
	"log"
	"time"
)

type Lifecycle struct {
	Runs  RunStore
	Clock func() time.Time
}

func NewLifecycle(runs RunStore) *Lifecycle {
	return &Lifecycle{Runs: runs, Clock: time.Now}
}

// Process finalizes a draft run: sets status=paid, approved_by and
// approved_at. Requires the run to be in draft.
func (l *Lifecycle) Process(ctx context.Context, id RunID, approver string) (*PayrollRun, error) {
	at := l.Clock().UTC()
	if err := l.Runs.TransitionRun(ctx, id, StatusDraft, StatusPaid, approver, at); err != nil {
		return nil, err
	}
	log.Printf("[PayrollRun] %s paid, approved by %s", id, approver)
	return l.Runs.GetRun(ctx, id)
}

// Cancel soft-terminates a draft run. Cancelled runs are kept for audit;
// nothing is deleted.
func (l *Lifecycle) Cancel(ctx context.Context, id RunID, actor string) (*PayrollRun, error) {
	at := l.Clock().UTC()
	if err := l.Runs.TransitionRun(ctx, id, StatusDraft, StatusCancelled, actor, at); err != nil {
		return nil, err
	}
	log.Printf("[PayrollRun] %s cancelled by %s", id, actor)
	return l.Runs.GetRun(ctx, id)
}

/*
scheduler.go - Automated draft run scheduler

PURPOSE:
  Periodically checks whether the most recently completed pay period has a
  payroll run yet and generates a draft automatically when it doesn't.
  Processing, cancelling, and GL posting stay manual: the scheduler only
  stages drafts for review.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Pay periods are semimonthly: the 1st-15th and the 16th-month end
  - Skips periods that already have a run, whatever its status
  - A generated draft is attributed to the "scheduler" actor

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - PayDelay: Days between period end and pay date (default: 5)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewRunScheduler(store, handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: GenerateRun endpoint (manual generation)
  - payroll/run.go: Generator
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

// RunScheduler stages draft payroll runs for completed pay periods.
type RunScheduler struct {
	Store         *sqlite.Store
	Handler       *Handler
	CheckInterval time.Duration
	PayDelay      int
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRunScheduler creates a new scheduler.
func NewRunScheduler(store *sqlite.Store, handler *Handler) *RunScheduler {
	return &RunScheduler{
		Store:         store,
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		PayDelay:      5,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *RunScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler.
func (rs *RunScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *RunScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.checkAndGenerate()

	for {
		select {
		case <-rs.ticker.C:
			rs.checkAndGenerate()
		case <-rs.stop:
			return
		}
	}
}

func (rs *RunScheduler) checkAndGenerate() {
	ctx := context.Background()
	now := time.Now().UTC()

	start, end := lastCompletedPeriod(now)
	log.Printf("[Scheduler] Checking period %s - %s",
		start.Format("2006-01-02"), end.Format("2006-01-02"))

	covered, err := rs.periodHasRun(ctx, start, end)
	if err != nil {
		log.Printf("[Scheduler] Error listing runs: %v", err)
		return
	}
	if covered {
		return
	}

	payDate := end.AddDate(0, 0, rs.PayDelay)
	result, err := rs.Handler.Generator.Generate(ctx, start, end, payDate, "scheduler")
	if err != nil {
		log.Printf("[Scheduler] Error generating run for %s - %s: %v",
			start.Format("2006-01-02"), end.Format("2006-01-02"), err)
		return
	}

	log.Printf("[Scheduler] Generated draft %s: %d employees, gross %s",
		result.Run.RunNumber, result.Run.EmployeeCount, result.Run.TotalGross.StringFixed(2))
	if len(result.Skipped) > 0 {
		log.Printf("[Scheduler] Skipped %d employees, review required: %v",
			len(result.Skipped), result.Skipped)
	}
}

// periodHasRun reports whether any run already covers the period. Cancelled
// runs count too: a cancelled period is an operator decision the scheduler
// must not override.
func (rs *RunScheduler) periodHasRun(ctx context.Context, start, end time.Time) (bool, error) {
	runs, err := rs.Store.ListRuns(ctx)
	if err != nil {
		return false, err
	}
	for _, run := range runs {
		if payroll.Day(run.PeriodStart).Equal(start) && payroll.Day(run.PeriodEnd).Equal(end) {
			return true, nil
		}
	}
	return false, nil
}

// lastCompletedPeriod returns the semimonthly period most recently ended
// before now: the 1st-15th, or the 16th-month end.
func lastCompletedPeriod(now time.Time) (start, end time.Time) {
	year, month, day := now.Date()
	switch {
	case day > 15:
		// First half of this month is complete.
		return payroll.Date(year, month, 1), payroll.Date(year, month, 15)
	default:
		// Second half of the previous month is complete.
		prev := payroll.Date(year, month, 1).AddDate(0, -1, 0)
		monthEnd := payroll.Date(year, month, 1).AddDate(0, 0, -1)
		return payroll.Date(prev.Year(), prev.Month(), 16), monthEnd
	}
}

// RunNow triggers an immediate check (for testing/admin).
func (rs *RunScheduler) RunNow() {
	rs.checkAndGenerate()
}

// GetNextRunTime returns when the next scheduled check will occur.
func (rs *RunScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(rs.CheckInterval)
}

/*
scheduler.go - Automated baseline refresh scheduler

PURPOSE:
  Invoice corrections keep landing for weeks after year close. This
  scheduler periodically re-seeds the Baseline rows of every assignee so
  unedited baselines track the corrected history. Proposal rows and
  remarks are never touched, and customers whose plan is already
  Confirmed are skipped so an accepted plan is never demoted or
  rewritten by the sweep.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Re-seeds every assignee that owns at least one customer
  - One assignee failing does not stop the sweep

CONFIGURATION:
  - CheckInterval: How often to refresh (default: 24 hours)
  - Enabled: Whether the scheduler is active (default: false; opt in
    with the -refresh flag)

USAGE:
  scheduler := NewRefreshScheduler(handler, targetYear)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - plan/seeder.go: SeedBaseline, which makes the refresh idempotent
  - cmd/server/main.go: Flag wiring
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/egjang/TNT-Test-sub000/plan"
)

// RefreshScheduler re-seeds baselines on an interval.
type RefreshScheduler struct {
	Handler       *Handler
	TargetYear    int
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRefreshScheduler creates a new scheduler for the given plan year.
func NewRefreshScheduler(handler *Handler, targetYear int) *RefreshScheduler {
	return &RefreshScheduler{
		Handler:       handler,
		TargetYear:    targetYear,
		CheckInterval: 24 * time.Hour,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *RefreshScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with refresh interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler.
func (rs *RefreshScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *RefreshScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.refreshAll()

	for {
		select {
		case <-rs.ticker.C:
			rs.refreshAll()
		case <-rs.stop:
			return
		}
	}
}

func (rs *RefreshScheduler) refreshAll() {
	ctx := context.Background()

	assignees, err := rs.Handler.Backend.Assignees(ctx)
	if err != nil {
		log.Printf("[Scheduler] Failed to list assignees: %v", err)
		return
	}
	log.Printf("[Scheduler] Refreshing baselines for %d assignees, year %d", len(assignees), rs.TargetYear)

	for _, assigneeID := range assignees {
		result, err := rs.Handler.Engine.SeedBaseline(ctx, plan.SeedInput{
			AssigneeID:        assigneeID,
			Year:              rs.TargetYear,
			UpliftPercent:     plan.DefaultUpliftPercent,
			PreserveConfirmed: true,
		})
		if err != nil {
			log.Printf("[Scheduler] Refresh failed for %s: %v", assigneeID, err)
			continue
		}
		if result.RowsFailed > 0 {
			log.Printf("[Scheduler] Refresh for %s: %d rows upserted, %d failed",
				assigneeID, result.RowsUpserted, result.RowsFailed)
		}
	}
}

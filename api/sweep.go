/*
sweep.go - Scheduled dunning sweep over overdue invoices

PURPOSE:
  Periodically walks every unpaid invoice past its due date, recomputes the
  escalation level per the owning organization's thresholds, and dispatches
  notices through the escalator. Each pass is recorded as a sweep run for
  audit and UI display.

DESIGN:
  - Runs on a cron schedule (default: hourly) via robfig/cron
  - Settings are fetched once per organization per pass
  - Dispatch failures for one invoice never abort the pass
  - RunNow triggers an immediate pass for the manual endpoint and tests

CONFIGURATION:
  - Schedule: cron expression (default: "@hourly")
  - Enabled:  whether the background schedule starts (default: true)

USAGE:
  sweeper := NewDunningSweeper(store, escalator)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - handlers.go: TriggerSweep endpoint (manual sweep)
  - engine/dunning.go: Escalation semantics
*/
package api

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/brownstone/rent-engine/engine"
	"github.com/brownstone/rent-engine/store/sqlite"
)

// DunningSweeper runs the periodic escalation pass.
type DunningSweeper struct {
	Store     *sqlite.Store
	Escalator *engine.Escalator
	Schedule  string
	Enabled   bool

	cron *cron.Cron
	mu   sync.Mutex
}

// NewDunningSweeper creates a sweeper with the default hourly schedule.
func NewDunningSweeper(store *sqlite.Store, escalator *engine.Escalator) *DunningSweeper {
	return &DunningSweeper{
		Store:     store,
		Escalator: escalator,
		Schedule:  "@hourly",
		Enabled:   true,
	}
}

// Start begins the background schedule.
func (ds *DunningSweeper) Start() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if !ds.Enabled {
		log.Println("[Sweeper] Disabled, not starting")
		return nil
	}

	ds.cron = cron.New()
	_, err := ds.cron.AddFunc(ds.Schedule, func() {
		if _, err := ds.RunNow(context.Background()); err != nil {
			log.Printf("[Sweeper] Sweep failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", ds.Schedule, err)
	}

	ds.cron.Start()
	log.Printf("[Sweeper] Started with schedule: %s", ds.Schedule)
	return nil
}

// Stop halts the background schedule and waits for a running pass to finish.
func (ds *DunningSweeper) Stop() {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.cron != nil {
		<-ds.cron.Stop().Done()
		log.Println("[Sweeper] Stopped")
	}
}

// RunNow executes one sweep pass and records it.
func (ds *DunningSweeper) RunNow(ctx context.Context) (sqlite.SweepRun, error) {
	now := time.Now().UTC()
	run := sqlite.SweepRun{
		ID:        fmt.Sprintf("sweep-%d", now.UnixNano()),
		StartedAt: now,
	}
	if err := ds.Store.SaveSweepRun(ctx, run); err != nil {
		return run, fmt.Errorf("failed to save sweep run: %w", err)
	}

	err := ds.sweep(ctx, now, &run)

	completed := time.Now().UTC()
	run.CompletedAt = &completed
	if err != nil {
		run.Error = err.Error()
	}
	if saveErr := ds.Store.SaveSweepRun(ctx, run); saveErr != nil {
		log.Printf("[Sweeper] Failed to update run record: %v", saveErr)
	}

	log.Printf("[Sweeper] Completed: %d checked, %d notices sent", run.InvoicesChecked, run.NoticesSent)
	return run, err
}

func (ds *DunningSweeper) sweep(ctx context.Context, now time.Time, run *sqlite.SweepRun) error {
	overdue, err := ds.Store.ListOverdue(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list overdue invoices: %w", err)
	}

	// One settings lookup per organization per pass.
	settingsByOrg := make(map[engine.OrganizationID]engine.DunningSettings)

	for _, inv := range overdue {
		run.InvoicesChecked++

		settings, ok := settingsByOrg[inv.OrganizationID]
		if !ok {
			settings, err = ds.Store.GetOrCreateDunningSettings(ctx, inv.OrganizationID)
			if err != nil {
				log.Printf("[Sweeper] Error loading settings for %s: %v", inv.OrganizationID, err)
				continue
			}
			settingsByOrg[inv.OrganizationID] = settings
		}

		result := ds.Escalator.Process(ctx, engine.DunningInput{
			InvoiceID:   inv.ID,
			LeaseID:     inv.LeaseID,
			TenantName:  inv.TenantName,
			TenantEmail: inv.TenantEmail,
			Amount:      inv.Amount,
			DueDate:     inv.DueDate,
			Settings:    settings,
			Now:         now,
		})
		if result.DispatchErr != nil {
			log.Printf("[Sweeper] Dispatch failed for %s: %v", inv.ID, result.DispatchErr)
			continue
		}
		if result.Dispatched {
			run.NoticesSent++
		}

		if result.NoticeLevel > engine.LevelNone && inv.Status == engine.StatusPending {
			if err := ds.Store.SetInvoiceStatus(ctx, inv.ID, engine.StatusOverdue); err != nil {
				log.Printf("[Sweeper] Error marking %s overdue: %v", inv.ID, err)
			}
		}
	}

	return nil
}

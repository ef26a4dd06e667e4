// Package scheduler runs recurring delivery-metrics snapshots from the
// schedules table.
package scheduler

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/devplane-io/devplane/internal/dora"
	"github.com/devplane-io/devplane/internal/repo"
	"github.com/robfig/cron/v3"
)

// Snapshotter computes and persists one report. Split out so tests can run
// it without cron.
type Snapshotter struct {
	Deployments *repo.DeploymentRepo
	Incidents   *repo.IncidentRepo
	Reports     *repo.ReportRepo
}

// Snapshot computes the metrics window ending now and stores the result.
func (s *Snapshotter) Snapshot(ctx context.Context, serviceID, windowDays int) error {
	to := time.Now()
	from := to.AddDate(0, 0, -windowDays)

	deploys, err := s.Deployments.ListWindow(ctx, serviceID, from, to)
	if err != nil {
		return err
	}
	resolved, err := s.Incidents.ListResolvedWindow(ctx, serviceID, from, to)
	if err != nil {
		return err
	}

	m := dora.Compute(serviceID, windowDays, from, to, deploys, resolved)
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}

	_, err = s.Reports.Create(ctx, serviceID, windowDays, string(payload))
	return err
}

// Run starts a background scheduler that loads enabled schedules from the DB
// and snapshots each service's metrics at its cron time. It resyncs
// schedules every 60 seconds so edits take effect without a restart.
func Run(schedules *repo.ScheduleRepo, snap *Snapshotter) {
	c := cron.New()
	var mu sync.Mutex
	entryByID := make(map[int]cron.EntryID) // schedule ID -> cron entry

	syncSchedules := func() {
		mu.Lock()
		defer mu.Unlock()

		// Remove all current entries so we reflect the DB (and pick up edits)
		for _, entryID := range entryByID {
			c.Remove(entryID)
		}
		entryByID = make(map[int]cron.EntryID)

		list, err := schedules.ListEnabled(context.Background())
		if err != nil {
			slog.Error("scheduler: list enabled schedules", "error", err)
			return
		}

		for _, s := range list {
			serviceID := s.ServiceID
			windowDays := s.WindowDays
			entryID, err := c.AddFunc(s.CronExpr, func() {
				if err := snap.Snapshot(context.Background(), serviceID, windowDays); err != nil {
					slog.Error("scheduler: snapshot", "service_id", serviceID, "error", err)
				}
			})
			if err != nil {
				slog.Error("scheduler: invalid cron_expr", "cron_expr", s.CronExpr, "schedule_id", s.ID, "error", err)
				continue
			}
			entryByID[s.ID] = entryID
			slog.Info("scheduler: added schedule", "schedule_id", s.ID, "service_id", serviceID, "cron", s.CronExpr)
		}
	}

	// Initial load
	syncSchedules()
	c.Start()

	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			syncSchedules()
		}
	}()
}

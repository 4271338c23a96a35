// services/scheduler.go
package services

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartRecalcScheduler periodically recalculates all active ranklists. This is
// the trigger that follows the upstream judge-stat refresh cycle; admin edits
// go through the recalc job queue instead.
func (s *ScoreService) StartRecalcScheduler() {
	interval := 30 * time.Minute
	if v := os.Getenv("RECALC_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			interval = time.Duration(n) * time.Minute
		} else {
			log.Printf("[Scheduler] invalid RECALC_INTERVAL_MINUTES %q, using default", v)
		}
	}

	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			res, err := s.RecalculateAllActiveScores(context.Background())
			if err != nil {
				log.Printf("[Scheduler] recalculation sweep failed: %v", err)
				return
			}
			log.Printf("✅ Recalculated %d active ranklist(s), %d score(s) written, %d failed",
				res.RanklistsProcessed, res.UsersUpdated, res.RanklistsFailed)
		}),
	)

	log.Printf("✅ Score recalculation scheduler running (every %s)", interval)
}

package workers

import (
	"context"
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"contest-tracker-system/models"
	"contest-tracker-system/services"

	"gorm.io/gorm"
)

// RecalcWorker drains the recalc job queue. Admin edits (weights, event
// attachments, enrollment) enqueue jobs; this worker runs them off the request
// path so large ranklists don't hold an HTTP response open.
type RecalcWorker struct {
	DB           *gorm.DB
	Scores       *services.ScoreService
	PollInterval time.Duration
}

func NewRecalcWorker(db *gorm.DB, scores *services.ScoreService) *RecalcWorker {
	interval := 5 * time.Second
	if v := os.Getenv("RECALC_WORKER_POLL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			interval = time.Duration(n) * time.Second
		}
	}
	return &RecalcWorker{DB: db, Scores: scores, PollInterval: interval}
}

// Start polls for pending jobs until the context is cancelled.
func (w *RecalcWorker) Start(ctx context.Context) {
	log.Println("Starting recalc worker...")
	ticker := time.NewTicker(w.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Recalc worker stopped.")
			return
		case <-ticker.C:
			// Drain everything pending before going back to sleep.
			for {
				processed, err := w.ProcessNext(ctx)
				if err != nil {
					log.Printf("❌ [RecalcWorker] %v", err)
					break
				}
				if !processed {
					break
				}
			}
		}
	}
}

// ProcessNext claims and runs the oldest pending job. Returns false when the
// queue is empty. The claim is a compare-and-set on status so concurrent
// workers never run the same job twice.
func (w *RecalcWorker) ProcessNext(ctx context.Context) (bool, error) {
	var job models.RecalcJob
	err := w.DB.WithContext(ctx).
		Where("status = ?", models.RecalcJobPending).
		Order("created_at ASC").
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	now := time.Now()
	claim := w.DB.WithContext(ctx).Model(&models.RecalcJob{}).
		Where("id = ? AND status = ?", job.ID, models.RecalcJobPending).
		Updates(map[string]interface{}{
			"status":     models.RecalcJobRunning,
			"started_at": &now,
		})
	if claim.Error != nil {
		return false, claim.Error
	}
	if claim.RowsAffected == 0 {
		// Someone else claimed it; let the caller loop again.
		return true, nil
	}

	w.coalesceDuplicates(ctx, &job)
	w.runJob(ctx, &job)
	return true, nil
}

// coalesceDuplicates closes other pending jobs for the same target. A full
// recalculation covers them all, so stacking identical runs is pointless.
func (w *RecalcWorker) coalesceDuplicates(ctx context.Context, job *models.RecalcJob) {
	now := time.Now()
	res := w.DB.WithContext(ctx).Model(&models.RecalcJob{}).
		Where("status = ? AND ranklist_id = ? AND id <> ?", models.RecalcJobPending, job.RanklistID, job.ID).
		Updates(map[string]interface{}{
			"status":      models.RecalcJobDone,
			"error":       "coalesced into job " + job.ID,
			"finished_at": &now,
		})
	if res.Error != nil {
		log.Printf("[RecalcWorker] failed to coalesce duplicates of job %s: %v", job.ID, res.Error)
	} else if res.RowsAffected > 0 {
		log.Printf("[RecalcWorker] coalesced %d duplicate job(s) into %s", res.RowsAffected, job.ID)
	}
}

func (w *RecalcWorker) runJob(ctx context.Context, job *models.RecalcJob) {
	var usersUpdated int
	var runErr error

	if job.RanklistID == "" {
		res, err := w.Scores.RecalculateAllActiveScores(ctx)
		if err != nil {
			runErr = err
		} else {
			usersUpdated = res.UsersUpdated
			if res.RanklistsFailed > 0 {
				log.Printf("[RecalcWorker] job %s: %d ranklist(s) failed during sweep", job.ID, res.RanklistsFailed)
			}
		}
	} else {
		res, err := w.Scores.RecalculateRanklistScore(ctx, job.RanklistID)
		if err != nil {
			runErr = err
		} else {
			usersUpdated = res.UsersUpdated
		}
	}

	now := time.Now()
	updates := map[string]interface{}{
		"users_updated": usersUpdated,
		"finished_at":   &now,
	}
	if runErr != nil {
		updates["status"] = models.RecalcJobFailed
		updates["error"] = runErr.Error()
		log.Printf("❌ [RecalcWorker] job %s failed: %v", job.ID, runErr)
	} else {
		updates["status"] = models.RecalcJobDone
		log.Printf("✅ [RecalcWorker] job %s done, %d score(s) written", job.ID, usersUpdated)
	}
	if err := w.DB.WithContext(ctx).Model(&models.RecalcJob{}).
		Where("id = ?", job.ID).
		Updates(updates).Error; err != nil {
		log.Printf("[RecalcWorker] failed to record outcome of job %s: %v", job.ID, err)
	}
}

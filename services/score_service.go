package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"contest-tracker-system/models"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ErrRanklistNotFound is returned when a recalculation targets a ranklist id
// that does not exist. No writes happen in that case.
var ErrRanklistNotFound = errors.New("ranklist not found")

const (
	scoreWriteBatchSize   = 100
	scoreWriteConcurrency = 4
	bulkRecalcConcurrency = 4
)

// ScoreService owns ranklist score recalculation. Each run is a full
// re-derivation from current facts, never an increment, so repeated or
// overlapping runs converge to the same values while facts are stable.
type ScoreService struct {
	DB *gorm.DB
}

func NewScoreService(db *gorm.DB) *ScoreService {
	return &ScoreService{DB: db}
}

// performanceRow is one (enrolled user × linked event) row of the fact join.
// Fact columns are pointers: a user with no stat or attendance row for an
// event still gets a row, with NULLs, instead of being dropped.
type performanceRow struct {
	UserID           string  `gorm:"column:user_id"`
	EventID          string  `gorm:"column:event_id"`
	EventWeight      float64 `gorm:"column:event_weight"`
	StrictAttendance bool    `gorm:"column:strict_attendance"`
	SolveCount       *int64  `gorm:"column:solve_count"`
	UpsolveCount     *int64  `gorm:"column:upsolve_count"`
	Participated     *bool   `gorm:"column:participated"`
	AttendanceID     *string `gorm:"column:attendance_id"`
}

const performanceQuery = `
SELECT ru.user_id,
       er.event_id,
       er.weight AS event_weight,
       e.strict_attendance,
       ss.solve_count,
       ss.upsolve_count,
       ss.participated,
       ua.id AS attendance_id
FROM ranklist_users ru
JOIN event_ranklists er ON er.ranklist_id = ru.ranklist_id
JOIN events e ON e.id = er.event_id
LEFT JOIN user_solve_stat_on_events ss
       ON ss.event_id = er.event_id AND ss.user_id = ru.user_id
LEFT JOIN user_attendance_on_events ua
       ON ua.event_id = er.event_id AND ua.user_id = ru.user_id
WHERE ru.ranklist_id = ?
`

// RanklistRecalcResult reports one completed recalculation.
type RanklistRecalcResult struct {
	RanklistID       string `json:"ranklist_id"`
	Keyword          string `json:"keyword"`
	UsersUpdated     int    `json:"users_updated"`
	EventsConsidered int    `json:"events_considered"`
}

// RanklistRecalcOutcome is one entry of a bulk run. Error is set (and the
// counters zero) when that ranklist's run failed.
type RanklistRecalcOutcome struct {
	RanklistID       string `json:"ranklist_id"`
	Keyword          string `json:"keyword,omitempty"`
	UsersUpdated     int    `json:"users_updated"`
	EventsConsidered int    `json:"events_considered"`
	Error            string `json:"error,omitempty"`
}

// BulkRecalcResult aggregates a recalculate-all run.
type BulkRecalcResult struct {
	RanklistsProcessed int                     `json:"ranklists_processed"`
	RanklistsFailed    int                     `json:"ranklists_failed"`
	UsersUpdated       int                     `json:"users_updated"`
	Results            []RanklistRecalcOutcome `json:"results"`
}

// computeScores folds the joined fact rows into one total per enrolled user.
// Every enrolled user appears in the result, defaulting to 0. Returns the
// totals and the number of distinct events that contributed anything.
func computeScores(rl *models.Ranklist, enrolled []string, rows []performanceRow) (map[string]float64, int) {
	totals := make(map[string]float64, len(enrolled))
	for _, userID := range enrolled {
		totals[userID] = 0
	}

	contributing := make(map[string]struct{})
	for _, row := range rows {
		var solves, upsolves int64
		if row.SolveCount != nil {
			solves = *row.SolveCount
		}
		if row.UpsolveCount != nil {
			upsolves = *row.UpsolveCount
		}
		if solves == 0 && upsolves == 0 {
			continue
		}

		participated := row.Participated != nil && *row.Participated
		attended := row.AttendanceID != nil

		// Strict attendance: a user who neither competed live nor checked in
		// keeps the solved problems, but only at upsolve credit.
		if row.StrictAttendance && rl.ConsiderStrictAttendance && !participated && !attended {
			upsolves += solves
			solves = 0
		}

		totals[row.UserID] += float64(solves)*row.EventWeight +
			float64(upsolves)*row.EventWeight*rl.WeightOfUpsolve
		contributing[row.EventID] = struct{}{}
	}

	return totals, len(contributing)
}

// RecalculateRanklistScore recomputes and overwrites the stored score of every
// user enrolled in the given ranklist. Weights are taken as stored; nothing is
// clamped or rounded here.
func (s *ScoreService) RecalculateRanklistScore(ctx context.Context, ranklistID string) (*RanklistRecalcResult, error) {
	var rl models.Ranklist
	if err := s.DB.WithContext(ctx).First(&rl, "id = ?", ranklistID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRanklistNotFound, ranklistID)
		}
		return nil, fmt.Errorf("fetch ranklist %s: %w", ranklistID, err)
	}

	var enrolled []string
	if err := s.DB.WithContext(ctx).Model(&models.RanklistUser{}).
		Where("ranklist_id = ?", ranklistID).
		Pluck("user_id", &enrolled).Error; err != nil {
		return nil, fmt.Errorf("fetch enrollment for ranklist %s: %w", ranklistID, err)
	}

	var rows []performanceRow
	if err := s.DB.WithContext(ctx).Raw(performanceQuery, ranklistID).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetch performance facts for ranklist %s: %w", ranklistID, err)
	}

	totals, eventsConsidered := computeScores(&rl, enrolled, rows)

	if err := s.writeScores(ctx, ranklistID, totals); err != nil {
		return nil, fmt.Errorf("persist scores for ranklist %s: %w", ranklistID, err)
	}

	return &RanklistRecalcResult{
		RanklistID:       rl.ID,
		Keyword:          rl.Keyword,
		UsersUpdated:     len(totals),
		EventsConsidered: eventsConsidered,
	}, nil
}

// writeScores overwrites ranklist_users.score for every computed user, in
// batches issued through a bounded fan-out. Batching only bounds in-flight
// writes; each update targets a distinct (ranklist, user) row, so order does
// not matter. Any failed write fails the whole run.
func (s *ScoreService) writeScores(ctx context.Context, ranklistID string, totals map[string]float64) error {
	type scoreUpdate struct {
		userID string
		score  float64
	}
	updates := make([]scoreUpdate, 0, len(totals))
	for userID, score := range totals {
		updates = append(updates, scoreUpdate{userID: userID, score: score})
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(scoreWriteConcurrency)
	for start := 0; start < len(updates); start += scoreWriteBatchSize {
		batch := updates[start:min(start+scoreWriteBatchSize, len(updates))]
		g.Go(func() error {
			for _, u := range batch {
				if err := ctx.Err(); err != nil {
					return err
				}
				res := s.DB.WithContext(ctx).Model(&models.RanklistUser{}).
					Where("ranklist_id = ? AND user_id = ?", ranklistID, u.userID).
					Update("score", u.score)
				if res.Error != nil {
					return fmt.Errorf("score write for user %s: %w", u.userID, res.Error)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// RecalculateAllActiveScores recalculates every active ranklist. Ranklists
// touch disjoint enrollment rows, so they run concurrently; one ranklist's
// failure never aborts the others.
func (s *ScoreService) RecalculateAllActiveScores(ctx context.Context) (*BulkRecalcResult, error) {
	var ranklists []models.Ranklist
	if err := s.DB.WithContext(ctx).Where("is_active = ?", true).Find(&ranklists).Error; err != nil {
		return nil, fmt.Errorf("fetch active ranklists: %w", err)
	}

	ids := make([]string, len(ranklists))
	for i, rl := range ranklists {
		ids[i] = rl.ID
	}
	return s.recalculateMany(ctx, ids), nil
}

func (s *ScoreService) recalculateMany(ctx context.Context, ranklistIDs []string) *BulkRecalcResult {
	results := make([]RanklistRecalcOutcome, len(ranklistIDs))

	var g errgroup.Group
	g.SetLimit(bulkRecalcConcurrency)
	for i, id := range ranklistIDs {
		i, id := i, id
		g.Go(func() error {
			res, err := s.RecalculateRanklistScore(ctx, id)
			if err != nil {
				log.Printf("[Recalc] ❌ ranklist %s failed: %v", id, err)
				results[i] = RanklistRecalcOutcome{RanklistID: id, Error: err.Error()}
				return nil
			}
			results[i] = RanklistRecalcOutcome{
				RanklistID:       res.RanklistID,
				Keyword:          res.Keyword,
				UsersUpdated:     res.UsersUpdated,
				EventsConsidered: res.EventsConsidered,
			}
			return nil
		})
	}
	_ = g.Wait() // goroutines only record outcomes, they never return errors

	out := &BulkRecalcResult{Results: results}
	for _, r := range results {
		if r.Error != "" {
			out.RanklistsFailed++
			continue
		}
		out.RanklistsProcessed++
		out.UsersUpdated += r.UsersUpdated
	}
	return out
}

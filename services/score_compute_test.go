package services

import (
	"testing"

	"contest-tracker-system/models"
)

func ptr[T any](v T) *T { return &v }

func strictRanklist(upsolveWeight float64) *models.Ranklist {
	return &models.Ranklist{ID: "rl", WeightOfUpsolve: upsolveWeight, ConsiderStrictAttendance: true}
}

func TestComputeScores_WeightComposition(t *testing.T) {
	rl := &models.Ranklist{ID: "rl", WeightOfUpsolve: 0.5}
	rows := []performanceRow{
		{
			UserID: "u1", EventID: "e1", EventWeight: 2.0,
			SolveCount: ptr(int64(3)), UpsolveCount: ptr(int64(4)), Participated: ptr(true),
		},
	}
	totals, events := computeScores(rl, []string{"u1"}, rows)
	// 3*2.0 + 4*2.0*0.5 = 10
	if !approxEqual(totals["u1"], 10.0) {
		t.Fatalf("expected 10.0, got %v", totals["u1"])
	}
	if events != 1 {
		t.Fatalf("expected 1 contributing event, got %d", events)
	}
}

func TestComputeScores_ReclassifiesWithoutParticipationOrAttendance(t *testing.T) {
	// Ranklist opts into strict attendance, event enforces it, user neither
	// participated live nor checked in: all solves become upsolves.
	rows := []performanceRow{
		{
			UserID: "u1", EventID: "e1", EventWeight: 1.0, StrictAttendance: true,
			SolveCount: ptr(int64(4)), UpsolveCount: ptr(int64(1)), Participated: ptr(false),
		},
	}
	totals, _ := computeScores(strictRanklist(0.5), []string{"u1"}, rows)
	// 0*1.0 + 5*1.0*0.5 = 2.5
	if !approxEqual(totals["u1"], 2.5) {
		t.Fatalf("expected 2.5, got %v", totals["u1"])
	}
}

func TestComputeScores_ParticipationSuppressesReclassification(t *testing.T) {
	rows := []performanceRow{
		{
			UserID: "u1", EventID: "e1", EventWeight: 1.0, StrictAttendance: true,
			SolveCount: ptr(int64(4)), UpsolveCount: ptr(int64(1)), Participated: ptr(true),
		},
	}
	totals, _ := computeScores(strictRanklist(0.5), []string{"u1"}, rows)
	// 4*1.0 + 1*1.0*0.5 = 4.5
	if !approxEqual(totals["u1"], 4.5) {
		t.Fatalf("expected 4.5, got %v", totals["u1"])
	}
}

func TestComputeScores_AttendanceSuppressesReclassification(t *testing.T) {
	rows := []performanceRow{
		{
			UserID: "u1", EventID: "e1", EventWeight: 1.0, StrictAttendance: true,
			SolveCount: ptr(int64(4)), UpsolveCount: ptr(int64(1)), Participated: ptr(false),
			AttendanceID: ptr("att-1"),
		},
	}
	totals, _ := computeScores(strictRanklist(0.5), []string{"u1"}, rows)
	if !approxEqual(totals["u1"], 4.5) {
		t.Fatalf("expected 4.5, got %v", totals["u1"])
	}
}

func TestComputeScores_RanklistFlagOffSuppressesReclassification(t *testing.T) {
	rl := &models.Ranklist{ID: "rl", WeightOfUpsolve: 0.5, ConsiderStrictAttendance: false}
	rows := []performanceRow{
		{
			UserID: "u1", EventID: "e1", EventWeight: 1.0, StrictAttendance: true,
			SolveCount: ptr(int64(4)), UpsolveCount: ptr(int64(1)), Participated: ptr(false),
		},
	}
	totals, _ := computeScores(rl, []string{"u1"}, rows)
	if !approxEqual(totals["u1"], 4.5) {
		t.Fatalf("expected 4.5, got %v", totals["u1"])
	}
}

func TestComputeScores_AdditivityAcrossEvents(t *testing.T) {
	// The two worked scenarios combined: 2.5 from the strict event, 2.4 from
	// the normal one.
	rows := []performanceRow{
		{
			UserID: "u1", EventID: "e1", EventWeight: 1.0, StrictAttendance: true,
			SolveCount: ptr(int64(4)), UpsolveCount: ptr(int64(1)), Participated: ptr(false),
		},
		{
			UserID: "u1", EventID: "e2", EventWeight: 0.8,
			SolveCount: ptr(int64(3)), UpsolveCount: ptr(int64(0)), Participated: ptr(true),
		},
	}
	totals, events := computeScores(strictRanklist(0.5), []string{"u1"}, rows)
	if !approxEqual(totals["u1"], 4.9) {
		t.Fatalf("expected 4.9, got %v", totals["u1"])
	}
	if events != 2 {
		t.Fatalf("expected 2 contributing events, got %d", events)
	}
}

func TestComputeScores_ZeroFactEventDoesNotChangeTotal(t *testing.T) {
	rl := &models.Ranklist{ID: "rl", WeightOfUpsolve: 0.5}
	base := []performanceRow{
		{
			UserID: "u1", EventID: "e1", EventWeight: 1.0,
			SolveCount: ptr(int64(2)), UpsolveCount: ptr(int64(0)), Participated: ptr(true),
		},
	}
	withZero := append(base, performanceRow{
		UserID: "u1", EventID: "e2", EventWeight: 5.0,
		SolveCount: ptr(int64(0)), UpsolveCount: ptr(int64(0)), Participated: ptr(false),
	})

	before, beforeEvents := computeScores(rl, []string{"u1"}, base)
	after, afterEvents := computeScores(rl, []string{"u1"}, withZero)
	if !approxEqual(before["u1"], after["u1"]) {
		t.Fatalf("zero-fact event changed total: %v vs %v", before["u1"], after["u1"])
	}
	if beforeEvents != 1 || afterEvents != 1 {
		t.Fatalf("zero-fact event counted as contributing: %d vs %d", beforeEvents, afterEvents)
	}
}

func TestComputeScores_NullFactsTreatedAsZero(t *testing.T) {
	rl := &models.Ranklist{ID: "rl", WeightOfUpsolve: 0.5}
	rows := []performanceRow{
		// No stat row at all for this (user, event): everything NULL.
		{UserID: "u1", EventID: "e1", EventWeight: 1.0},
	}
	totals, events := computeScores(rl, []string{"u1"}, rows)
	if totals["u1"] != 0 {
		t.Fatalf("expected 0 for null facts, got %v", totals["u1"])
	}
	if events != 0 {
		t.Fatalf("expected 0 contributing events, got %d", events)
	}
}

func TestComputeScores_EveryEnrolledUserGetsAScore(t *testing.T) {
	rl := &models.Ranklist{ID: "rl", WeightOfUpsolve: 0.5}
	rows := []performanceRow{
		{
			UserID: "u1", EventID: "e1", EventWeight: 1.0,
			SolveCount: ptr(int64(1)), UpsolveCount: ptr(int64(0)), Participated: ptr(true),
		},
	}
	totals, _ := computeScores(rl, []string{"u1", "u2", "u3"}, rows)
	if len(totals) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(totals))
	}
	for _, inactive := range []string{"u2", "u3"} {
		score, ok := totals[inactive]
		if !ok {
			t.Fatalf("enrolled user %s missing from totals", inactive)
		}
		if score != 0 {
			t.Fatalf("expected 0 for %s, got %v", inactive, score)
		}
	}
}

func TestComputeScores_OutOfRangeWeightsAreNotClamped(t *testing.T) {
	rl := &models.Ranklist{ID: "rl", WeightOfUpsolve: 2.0}
	rows := []performanceRow{
		{
			UserID: "u1", EventID: "e1", EventWeight: -1.0,
			SolveCount: ptr(int64(2)), UpsolveCount: ptr(int64(1)), Participated: ptr(true),
		},
	}
	totals, _ := computeScores(rl, []string{"u1"}, rows)
	// 2*-1.0 + 1*-1.0*2.0 = -4
	if !approxEqual(totals["u1"], -4.0) {
		t.Fatalf("expected -4.0, got %v", totals["u1"])
	}
}

func TestComputeScores_ReclassificationKeepsEventLinkWeight(t *testing.T) {
	// Reclassified solves still pass through the event-link weight before the
	// upsolve factor.
	rows := []performanceRow{
		{
			UserID: "u1", EventID: "e1", EventWeight: 3.0, StrictAttendance: true,
			SolveCount: ptr(int64(2)), UpsolveCount: ptr(int64(0)), Participated: ptr(false),
		},
	}
	totals, _ := computeScores(strictRanklist(0.25), []string{"u1"}, rows)
	// (0 solves) + (2 upsolves)*3.0*0.25 = 1.5
	if !approxEqual(totals["u1"], 1.5) {
		t.Fatalf("expected 1.5, got %v", totals["u1"])
	}
}

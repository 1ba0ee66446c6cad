package scheduler

import (
	"fmt"
	"math"

	"github.com/campusops/timetabler/internal/models"
)

// Fitness computes the 0-100 quality score for a schedule: the sum of
// per-entry position scores plus a workload-balance term derived from the
// standard deviation of per-instructor session counts, normalized over
// the schedule length. Pure function of its inputs.
func Fitness(entries []models.ScheduleEntry, faculty []models.Faculty, w Weights) int {
	if len(entries) == 0 {
		return 0
	}

	total := 0
	for _, e := range entries {
		total += entryScore(e, e.TimeSlotID, w)
	}

	balance := math.Max(0, 100-2*workloadStddev(entries, faculty))
	total += int(balance * 10)

	maxPossible := len(entries) * 100
	score := int(math.Round(float64(total) / float64(maxPossible+1000) * 100))
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// workloadStddev measures how unevenly sessions are spread across the
// instructor pool, counting zero-assignment instructors too.
func workloadStddev(entries []models.ScheduleEntry, faculty []models.Faculty) float64 {
	if len(faculty) == 0 {
		return 0
	}
	counts := make(map[string]int, len(faculty))
	for _, e := range entries {
		counts[e.FacultyID]++
	}

	mean := float64(len(entries)) / float64(len(faculty))
	var variance float64
	for _, f := range faculty {
		diff := float64(counts[f.ID]) - mean
		variance += diff * diff
	}
	variance /= float64(len(faculty))
	return math.Sqrt(variance)
}

// CountHardConflicts walks a committed schedule and counts any
// (room, day, slot) or (faculty, day, slot) key claimed more than once,
// expanding each entry over its full duration. A correct engine always
// yields zero; nonzero signals a bookkeeping defect, not a
// soft-constraint trade-off.
func CountHardConflicts(entries []models.ScheduleEntry) int {
	seen := make(map[string]struct{}, len(entries)*2)
	conflicts := 0
	for _, e := range entries {
		for i := 0; i < e.Duration; i++ {
			roomKey := fmt.Sprintf("room_%s_%s_%d", e.RoomID, e.Day, e.TimeSlotID+i)
			facKey := fmt.Sprintf("fac_%s_%s_%d", e.FacultyID, e.Day, e.TimeSlotID+i)
			if _, ok := seen[roomKey]; ok {
				conflicts++
			}
			if _, ok := seen[facKey]; ok {
				conflicts++
			}
			seen[roomKey] = struct{}{}
			seen[facKey] = struct{}{}
		}
	}
	return conflicts
}

// WorkloadTotals aggregates assigned weekly hours per instructor from a
// finished schedule. The totals are absolute values meant to replace the
// persisted baseline for the next run.
func WorkloadTotals(entries []models.ScheduleEntry) map[string]int {
	totals := make(map[string]int)
	for _, e := range entries {
		duration := e.Duration
		if duration <= 0 {
			duration = 1
		}
		totals[e.FacultyID] += duration
	}
	return totals
}

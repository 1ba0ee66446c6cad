package scheduler

import "github.com/campusops/timetabler/internal/models"

// optimize runs hill-climbing passes over the committed schedule,
// exchanging the (day, slot) pair of two entries whenever that strictly
// improves their combined standalone score. Passes repeat until a full
// pass makes no swap or the ceiling is reached.
func (r *run) optimize() {
	passes := 0
	improved := true
	for improved && passes < r.cfg.MaxOptimizerPasses {
		improved = false
		passes++

		for i := 0; i < len(r.entries); i++ {
			for j := i + 1; j < len(r.entries); j++ {
				a, b := r.entries[i], r.entries[j]
				if !canSwap(a, b) {
					continue
				}
				before := entryScore(a, a.TimeSlotID, r.cfg.Weights) + entryScore(b, b.TimeSlotID, r.cfg.Weights)
				after := entryScore(a, b.TimeSlotID, r.cfg.Weights) + entryScore(b, a.TimeSlotID, r.cfg.Weights)
				if after <= before {
					continue
				}
				if r.trySwap(i, j) {
					improved = true
				}
			}
		}
	}
	r.logger.Debug("local search completed")
}

// canSwap is the cheap pre-filter: entries must differ in instructor,
// room, and course, and match in duration (unequal durations would
// corrupt the slot grid).
func canSwap(a, b models.ScheduleEntry) bool {
	if a.FacultyID == b.FacultyID {
		return false
	}
	if a.RoomID == b.RoomID {
		return false
	}
	if a.CourseCode == b.CourseCode {
		return false
	}
	return a.Duration == b.Duration
}

// trySwap exchanges the time windows of entries i and j if doing so keeps
// the occupancy grid conflict-free. canSwap alone is not sufficient: an
// instructor or room appearing in more than one entry may already be
// busy at the other entry's window, so each candidate swap is
// re-validated against the grid.
func (r *run) trySwap(i, j int) bool {
	a, b := r.entries[i], r.entries[j]
	r.releaseOccupancy(a)
	r.releaseOccupancy(b)

	if !r.windowFree(a, b.Day, b.TimeSlotID) || !r.windowFree(b, a.Day, a.TimeSlotID) {
		r.applyOccupancy(a)
		r.applyOccupancy(b)
		return false
	}

	a.Day, b.Day = b.Day, a.Day
	a.TimeSlotID, b.TimeSlotID = b.TimeSlotID, a.TimeSlotID
	a.StartTime, b.StartTime = b.StartTime, a.StartTime
	a.EndTime, b.EndTime = b.EndTime, a.EndTime

	r.applyOccupancy(a)
	r.applyOccupancy(b)
	r.entries[i] = a
	r.entries[j] = b
	return true
}

// windowFree reports whether the entry's faculty, room, and group are all
// free for a duration-long window starting at (day, slotID).
func (r *run) windowFree(e models.ScheduleEntry, day string, slotID int) bool {
	group := r.groupKeyFor(e.CourseCode)
	for i := 0; i < e.Duration; i++ {
		key := slotRef{day: day, slot: slotID + i}
		if r.grid.isOccupied(dimFaculty, e.FacultyID, key) {
			return false
		}
		if r.grid.isOccupied(dimRoom, e.RoomID, key) {
			return false
		}
		if r.grid.isOccupied(dimGroup, group, key) {
			return false
		}
	}
	return true
}

// entryScore is the position-only per-entry score used by the optimizer
// and the fitness evaluator. No cross-entry terms, so swap evaluation
// stays O(1) per pair.
func entryScore(e models.ScheduleEntry, slotID int, w Weights) int {
	score := w.EntryBase
	if e.SessionType == models.SessionTypeLecture && slotID <= w.MorningSlotMax {
		score += w.MorningLectureBonus
	}
	if e.SessionType == models.SessionTypePractical && slotID >= w.AfternoonSlotMin {
		score += w.AfternoonLabBonus
	}
	if slotID >= w.VeryLateSlot {
		score -= w.VeryLatePenalty
	}
	return score
}

package scheduler

import "github.com/campusops/timetabler/internal/models"

// feasible reports whether a session of the given duration can start at
// slots[startIdx] on day without violating any hard constraint: the slot
// range must be contiguous non-break slots, the student group must be
// free, and at least one qualifying room and instructor must be free for
// the whole range.
func (r *run) feasible(course models.Course, session Session, day string, startIdx int) bool {
	if startIdx+session.Duration > len(r.slots) {
		return false
	}
	if !r.contiguous(startIdx, session.Duration) {
		return false
	}

	group := course.GroupKey()
	for i := 0; i < session.Duration; i++ {
		key := slotRef{day: day, slot: r.slots[startIdx+i].ID}
		if r.grid.isOccupied(dimGroup, group, key) {
			return false
		}
	}

	if r.findRoom(course, session, day, startIdx, session.Duration) == nil {
		return false
	}
	return r.eligibleFaculty(course, day, startIdx, session.Duration) != nil
}

// contiguous reports whether duration teaching slots starting at startIdx
// have consecutive ids, i.e. the block does not straddle a break.
func (r *run) contiguous(startIdx, duration int) bool {
	base := r.slots[startIdx].ID
	for i := 1; i < duration; i++ {
		if r.slots[startIdx+i].ID != base+i {
			return false
		}
	}
	return true
}

// scorePlacement rates a feasible candidate by the soft constraints:
// spreading across days, time-of-day preferences, and the consecutive
// hours limit for the student group.
func (r *run) scorePlacement(course models.Course, session Session, day string, startIdx int) int {
	w := r.cfg.Weights
	group := course.GroupKey()
	slotID := r.slots[startIdx].ID

	score := 100
	score -= r.groupDayCount(group, day) * w.SpreadPenalty

	if session.Type == models.SessionTypeLecture && slotID <= w.MorningSlotMax {
		score += w.MorningLectureBonus
	}
	if session.Type == models.SessionTypePractical && slotID >= w.AfternoonSlotMin {
		score += w.AfternoonLabBonus
	}
	if session.Type == models.SessionTypeLecture && slotID >= w.LateSlotMin {
		score -= w.LateLecturePenalty
	}

	if r.consecutiveBefore(group, day, slotID) >= r.cfg.MaxConsecutiveHours {
		score -= w.ConsecutivePenalty
	}
	return score
}

// consecutiveBefore counts how many back-to-back slots the group already
// occupies immediately before slotID on the given day.
func (r *run) consecutiveBefore(group, day string, slotID int) int {
	count := 0
	for s := slotID - 1; s >= 1; s-- {
		if !r.grid.isOccupied(dimGroup, group, slotRef{day: day, slot: s}) {
			break
		}
		count++
	}
	return count
}

// eligibleFaculty returns the qualifying instructor with the lowest
// running load, or nil. Eligibility is the course's explicit list when
// present, otherwise a department match; the instructor must not be
// marked unavailable, must be free across the whole slot range, and must
// stay within their weekly hour cap.
func (r *run) eligibleFaculty(course models.Course, day string, startIdx, duration int) *facultyState {
	explicit := make(map[string]struct{}, len(course.EligibleFaculty))
	for _, id := range course.EligibleFaculty {
		explicit[id] = struct{}{}
	}

	var best *facultyState
	for _, f := range r.faculty {
		if len(explicit) > 0 {
			if _, ok := explicit[f.id]; !ok {
				continue
			}
		} else if f.department != course.Department {
			continue
		}
		if f.hours+duration > f.maxWeekly {
			continue
		}

		free := true
		for i := 0; i < duration; i++ {
			key := slotRef{day: day, slot: r.slots[startIdx+i].ID}
			if _, blocked := f.unavailable[key]; blocked {
				free = false
				break
			}
			if r.grid.isOccupied(dimFaculty, f.id, key) {
				free = false
				break
			}
		}
		if !free {
			continue
		}

		if best == nil || f.hours < best.hours {
			best = f
		}
	}
	return best
}

// findRoom returns the smallest qualifying room that is free across the
// whole slot range, or nil. Practical sessions need a LAB (with a free
// SEMINAR_HALL as fallback), everything else a CLASSROOM. Capacity may
// undershoot the batch size by the configured flexibility factor.
func (r *run) findRoom(course models.Course, session Session, day string, startIdx, duration int) *models.Room {
	requiredType := models.RoomTypeClassroom
	if session.Type == models.SessionTypePractical {
		requiredType = models.RoomTypeLab
	}

	batch := course.MaxBatchSize
	if batch <= 0 {
		batch = r.cfg.DefaultBatchSize
	}
	minCapacity := r.cfg.CapacityFlex * float64(batch)

	if room := r.pickRoom(requiredType, minCapacity, day, startIdx, duration); room != nil {
		return room
	}
	if requiredType == models.RoomTypeLab {
		return r.pickRoom(models.RoomTypeSeminarHall, minCapacity, day, startIdx, duration)
	}
	return nil
}

func (r *run) pickRoom(roomType models.RoomType, minCapacity float64, day string, startIdx, duration int) *models.Room {
	var best *models.Room
	for i := range r.rooms {
		room := &r.rooms[i]
		if room.Type != roomType || float64(room.Capacity) < minCapacity {
			continue
		}
		free := true
		for j := 0; j < duration; j++ {
			key := slotRef{day: day, slot: r.slots[startIdx+j].ID}
			if r.grid.isOccupied(dimRoom, room.ID, key) {
				free = false
				break
			}
		}
		if !free {
			continue
		}
		if best == nil || room.Capacity < best.Capacity {
			best = room
		}
	}
	return best
}

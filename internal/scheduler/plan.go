package scheduler

import "github.com/campusops/timetabler/internal/models"

// Session is one weekly teaching block to be placed: a type plus a
// duration in contiguous slot units.
type Session struct {
	Type     models.SessionType
	Duration int
}

// PlanSessions expands a course's declared hour breakdown into the list
// of sessions the engine must place. Pure function of the course and the
// config defaults.
func PlanSessions(course models.Course, cfg Config) []Session {
	var sessions []Session

	for i := 0; i < course.TheoryHours; i++ {
		sessions = append(sessions, Session{Type: models.SessionTypeLecture, Duration: 1})
	}
	for i := 0; i < course.TutorialHours; i++ {
		sessions = append(sessions, Session{Type: models.SessionTypeTutorial, Duration: 1})
	}

	if course.PracticalHours > 0 || course.RequiresLab {
		duration := course.LabDurationHours
		if duration <= 0 {
			duration = cfg.DefaultLabDuration
		}
		count := 1
		if course.PracticalHours > 0 {
			count = (course.PracticalHours + duration - 1) / duration
		}
		for i := 0; i < count; i++ {
			sessions = append(sessions, Session{Type: models.SessionTypePractical, Duration: duration})
		}
	}

	// Legacy courses may carry only hoursPerWeek.
	if len(sessions) == 0 {
		hours := course.HoursPerWeek
		if hours <= 0 {
			hours = cfg.DefaultWeeklyHours
		}
		for i := 0; i < hours; i++ {
			sessions = append(sessions, Session{Type: models.SessionTypeLecture, Duration: 1})
		}
	}

	return sessions
}

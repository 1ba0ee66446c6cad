package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campusops/timetabler/internal/models"
)

func TestPlanSessionsExpandsHourBreakdown(t *testing.T) {
	course := models.Course{TheoryHours: 3, TutorialHours: 1, PracticalHours: 4, RequiresLab: true, LabDurationHours: 2}
	sessions := PlanSessions(course, DefaultConfig())

	lectures, tutorials, practicals := 0, 0, 0
	for _, s := range sessions {
		switch s.Type {
		case models.SessionTypeLecture:
			lectures++
			assert.Equal(t, 1, s.Duration)
		case models.SessionTypeTutorial:
			tutorials++
			assert.Equal(t, 1, s.Duration)
		case models.SessionTypePractical:
			practicals++
			assert.Equal(t, 2, s.Duration)
		}
	}
	assert.Equal(t, 3, lectures)
	assert.Equal(t, 1, tutorials)
	assert.Equal(t, 2, practicals)
}

func TestPlanSessionsRoundsLabBlocksUp(t *testing.T) {
	// 3 practical hours with 2-hour blocks need two lab sessions.
	course := models.Course{PracticalHours: 3, LabDurationHours: 2}
	sessions := PlanSessions(course, DefaultConfig())

	assert.Len(t, sessions, 2)
	for _, s := range sessions {
		assert.Equal(t, models.SessionTypePractical, s.Type)
		assert.Equal(t, 2, s.Duration)
	}
}

func TestPlanSessionsLabWithoutPracticalHours(t *testing.T) {
	course := models.Course{RequiresLab: true, LabDurationHours: 3}
	sessions := PlanSessions(course, DefaultConfig())

	assert.Len(t, sessions, 1)
	assert.Equal(t, models.SessionTypePractical, sessions[0].Type)
	assert.Equal(t, 3, sessions[0].Duration)
}

func TestPlanSessionsLegacyHoursPerWeekFallback(t *testing.T) {
	sessions := PlanSessions(models.Course{HoursPerWeek: 4}, DefaultConfig())

	assert.Len(t, sessions, 4)
	for _, s := range sessions {
		assert.Equal(t, models.SessionTypeLecture, s.Type)
		assert.Equal(t, 1, s.Duration)
	}
}

func TestPlanSessionsEmptyCourseUsesDefaults(t *testing.T) {
	sessions := PlanSessions(models.Course{}, DefaultConfig())
	assert.Len(t, sessions, DefaultConfig().DefaultWeeklyHours)
}

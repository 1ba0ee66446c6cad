package models

import (
	"time"

	"github.com/lib/pq"
)

// CourseType categorises how a course is delivered.
type CourseType string

const (
	CourseTypeTheory       CourseType = "THEORY"
	CourseTypePractical    CourseType = "PRACTICAL"
	CourseTypeElective     CourseType = "ELECTIVE"
	CourseTypeOpenElective CourseType = "OPEN_ELECTIVE"
	CourseTypeProject      CourseType = "PROJECT"
)

// Course represents one offered course for a department/semester pair.
// The weekly hour breakdown (theory/practical/tutorial) drives session
// planning; HoursPerWeek is the legacy fallback when no breakdown exists.
type Course struct {
	ID               string         `db:"id" json:"id"`
	Code             string         `db:"code" json:"code"`
	Name             string         `db:"name" json:"name"`
	Type             CourseType     `db:"type" json:"type"`
	Department       string         `db:"department" json:"department"`
	Semester         int            `db:"semester" json:"semester"`
	Credits          int            `db:"credits" json:"credits"`
	HoursPerWeek     int            `db:"hours_per_week" json:"hours_per_week"`
	TheoryHours      int            `db:"theory_hours" json:"theory_hours"`
	PracticalHours   int            `db:"practical_hours" json:"practical_hours"`
	TutorialHours    int            `db:"tutorial_hours" json:"tutorial_hours"`
	RequiresLab      bool           `db:"requires_lab" json:"requires_lab"`
	LabDurationHours int            `db:"lab_duration_hours" json:"lab_duration_hours"`
	IsElective       bool           `db:"is_elective" json:"is_elective"`
	MaxBatchSize     int            `db:"max_batch_size" json:"max_batch_size"`
	EligibleFaculty  pq.StringArray `db:"eligible_faculty" json:"eligible_faculty"`
	Active           bool           `db:"active" json:"active"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// GroupKey identifies the student group sharing this course's timetable.
func (c Course) GroupKey() string {
	return GroupKey(c.Department, c.Semester)
}

package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// SessionType distinguishes the kinds of weekly teaching blocks.
type SessionType string

const (
	SessionTypeLecture   SessionType = "LECTURE"
	SessionTypeTutorial  SessionType = "TUTORIAL"
	SessionTypePractical SessionType = "PRACTICAL"
)

// TimetableStatus represents lifecycle phases for generated timetables.
type TimetableStatus string

const (
	TimetableStatusGenerated TimetableStatus = "GENERATED"
	TimetableStatusPublished TimetableStatus = "PUBLISHED"
	TimetableStatusArchived  TimetableStatus = "ARCHIVED"
)

// Timetable captures one persisted generation result for a
// department/semester pair within an academic year.
type Timetable struct {
	ID            string          `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	AcademicYear  string          `db:"academic_year" json:"academic_year"`
	Department    string          `db:"department" json:"department"`
	Semester      int             `db:"semester" json:"semester"`
	Division      string          `db:"division" json:"division"`
	Status        TimetableStatus `db:"status" json:"status"`
	FitnessScore  int             `db:"fitness_score" json:"fitness_score"`
	HardConflicts int             `db:"hard_conflicts" json:"hard_conflicts"`
	Meta          types.JSONText  `db:"meta" json:"meta"`
	GeneratedAt   time.Time       `db:"generated_at" json:"generated_at"`
	PublishedAt   *time.Time      `db:"published_at" json:"published_at,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// ScheduleEntry is one placed session: a course taught by a faculty member
// in a room, starting at a time slot on a working day. Duration counts
// contiguous slot units (labs occupy 2-3).
type ScheduleEntry struct {
	ID           string      `db:"id" json:"id"`
	TimetableID  string      `db:"timetable_id" json:"timetable_id,omitempty"`
	CourseCode   string      `db:"course_code" json:"course_code"`
	CourseName   string      `db:"course_name" json:"course_name"`
	FacultyID    string      `db:"faculty_id" json:"faculty_id"`
	FacultyName  string      `db:"faculty_name" json:"faculty_name"`
	RoomID       string      `db:"room_id" json:"room_id"`
	RoomNumber   string      `db:"room_number" json:"room_number"`
	Day          string      `db:"day" json:"day"`
	TimeSlotID   int         `db:"time_slot_id" json:"time_slot_id"`
	StartTime    string      `db:"start_time" json:"start_time"`
	EndTime      string      `db:"end_time" json:"end_time"`
	Duration     int         `db:"duration" json:"duration"`
	SessionType  SessionType `db:"session_type" json:"session_type"`
	StudentGroup string      `db:"student_group" json:"student_group"`
}

// GenerationMeta is stored alongside a timetable to describe how it was
// produced.
type GenerationMeta struct {
	Algorithm         string    `json:"algorithm"`
	Iterations        int       `json:"iterations"`
	ConflictsResolved int       `json:"conflicts_resolved"`
	Score             int       `json:"score"`
	HardConflicts     int       `json:"hard_conflicts"`
	Complete          bool      `json:"complete"`
	Seed              int64     `json:"seed"`
	DurationMS        int64     `json:"duration_ms"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// TimetableFilter describes query params for listing timetables.
type TimetableFilter struct {
	Department   string
	Semester     int
	AcademicYear string
	Status       TimetableStatus
	Page         int
	PageSize     int
}

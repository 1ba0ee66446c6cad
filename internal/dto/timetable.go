package dto

import "github.com/campusops/timetabler/internal/models"

// GenerateTimetableRequest scopes one generation run.
type GenerateTimetableRequest struct {
	Department   string `json:"department" validate:"required"`
	Semester     int    `json:"semester" validate:"required,min=1,max=8"`
	AcademicYear string `json:"academic_year" validate:"required"`
	Name         string `json:"name"`
	Division     string `json:"division"`
	// Seed overrides the configured RNG seed; zero keeps the default.
	Seed int64 `json:"seed"`
}

// GenerationStats summarises how a run went.
type GenerationStats struct {
	Iterations        int   `json:"iterations"`
	ConflictsResolved int   `json:"conflicts_resolved"`
	Score             int   `json:"score"`
	HardConflicts     int   `json:"hard_conflicts"`
	Complete          bool  `json:"complete"`
	Seed              int64 `json:"seed"`
	DurationMS        int64 `json:"duration_ms"`
}

// GenerateTimetableResponse carries a held proposal plus its schedule.
type GenerateTimetableResponse struct {
	ProposalID string                 `json:"proposal_id"`
	Entries    []models.ScheduleEntry `json:"entries"`
	Stats      GenerationStats        `json:"stats"`
}

// SaveTimetableRequest persists a previously generated proposal.
type SaveTimetableRequest struct {
	ProposalID string `json:"proposal_id" validate:"required"`
	Publish    bool   `json:"publish"`
}

// AnalyzeConstraintsRequest scopes a pre-flight feasibility check.
type AnalyzeConstraintsRequest struct {
	Department string `json:"department" validate:"required"`
	Semester   int    `json:"semester" validate:"required,min=1,max=8"`
}

// ConstraintAnalysis reports capacity totals and advisory findings before
// a run is attempted.
type ConstraintAnalysis struct {
	TotalHoursNeeded int      `json:"total_hours_needed"`
	AvailableSlots   int      `json:"available_slots"`
	Feasible         bool     `json:"feasible"`
	Warnings         []string `json:"warnings"`
	Recommendations  []string `json:"recommendations"`
}

// TimetableDetail bundles a timetable with its schedule entries.
type TimetableDetail struct {
	Timetable models.Timetable       `json:"timetable"`
	Entries   []models.ScheduleEntry `json:"entries"`
}

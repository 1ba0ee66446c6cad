package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// FacultyUnavailableSlot describes a blocked teaching window.
type FacultyUnavailableSlot struct {
	Day        string `json:"day"`
	TimeSlotID int    `json:"time_slot_id"`
	Reason     string `json:"reason,omitempty"`
}

// Faculty represents an instructor and their workload constraints.
// CurrentHoursPerWeek is the persisted baseline carried between
// generation runs; the engine works on its own in-memory copy.
type Faculty struct {
	ID                  string         `db:"id" json:"id"`
	EmployeeID          string         `db:"employee_id" json:"employee_id"`
	FullName            string         `db:"full_name" json:"full_name"`
	Email               string         `db:"email" json:"email"`
	Designation         string         `db:"designation" json:"designation"`
	Department          string         `db:"department" json:"department"`
	MaxHoursPerWeek     int            `db:"max_hours_per_week" json:"max_hours_per_week"`
	MaxHoursPerDay      int            `db:"max_hours_per_day" json:"max_hours_per_day"`
	CurrentHoursPerWeek int            `db:"current_hours_per_week" json:"current_hours_per_week"`
	Unavailable         types.JSONText `db:"unavailable" json:"unavailable"`
	EligibleCourses     pq.StringArray `db:"eligible_courses" json:"eligible_courses"`
	Active              bool           `db:"active" json:"active"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updated_at"`
}

// UnavailableSlots decodes the stored unavailability windows. A missing or
// malformed payload yields no windows rather than an error.
func (f Faculty) UnavailableSlots() []FacultyUnavailableSlot {
	if len(f.Unavailable) == 0 {
		return nil
	}
	var slots []FacultyUnavailableSlot
	if err := json.Unmarshal(f.Unavailable, &slots); err != nil {
		return nil
	}
	return slots
}

// GroupKey identifies a student group by department and semester.
func GroupKey(department string, semester int) string {
	return fmt.Sprintf("%s_sem%d", department, semester)
}

package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campusops/timetabler/internal/models"
)

// FacultyRepository provides persistence for faculty members.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository creates a new faculty repository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

const facultyColumns = `id, employee_id, full_name, email, designation, department, max_hours_per_week, max_hours_per_day, current_hours_per_week, unavailable, eligible_courses, active, created_at, updated_at`

// ListActiveByDepartment returns the active instructors of a department,
// carrying their persisted workload baseline.
func (r *FacultyRepository) ListActiveByDepartment(ctx context.Context, department string) ([]models.Faculty, error) {
	query := fmt.Sprintf(`SELECT %s FROM faculty WHERE department = $1 AND active = TRUE ORDER BY employee_id`, facultyColumns)
	var faculty []models.Faculty
	if err := r.db.SelectContext(ctx, &faculty, query, department); err != nil {
		return nil, fmt.Errorf("list faculty by department: %w", err)
	}
	return faculty, nil
}

// ReplaceWorkloads overwrites each instructor's weekly-hour total with
// the absolute value computed from a finished schedule. Replace, not
// increment: the totals seed the next generation run.
func (r *FacultyRepository) ReplaceWorkloads(ctx context.Context, exec sqlx.ExtContext, totals map[string]int) error {
	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	const query = `UPDATE faculty SET current_hours_per_week = $2, updated_at = $3 WHERE id = $1`
	now := time.Now().UTC()
	for _, id := range ids {
		if _, err := exec.ExecContext(ctx, query, id, totals[id], now); err != nil {
			return fmt.Errorf("replace workload for faculty %s: %w", id, err)
		}
	}
	return nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campusops/timetabler/internal/models"
)

// CourseRepository provides persistence for courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new course repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, code, name, type, department, semester, credits, hours_per_week, theory_hours, practical_hours, tutorial_hours, requires_lab, lab_duration_hours, is_elective, max_batch_size, eligible_faculty, active, created_at, updated_at`

// ListActive returns the active courses offered for a department and
// semester, the snapshot scope of one generation run.
func (r *CourseRepository) ListActive(ctx context.Context, department string, semester int) ([]models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE department = $1 AND semester = $2 AND active = TRUE ORDER BY code`, courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, department, semester); err != nil {
		return nil, fmt.Errorf("list active courses: %w", err)
	}
	return courses, nil
}

// FindByCode loads a single course by its unique code.
func (r *CourseRepository) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE code = $1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, code); err != nil {
		return nil, err
	}
	return &course, nil
}

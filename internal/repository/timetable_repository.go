package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/timetabler/internal/models"
)

// TimetableRepository provides persistence for generated timetables and
// their schedule entries.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new timetable repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

const timetableColumns = `id, name, department, semester, academic_year, division, status, fitness_score, hard_conflicts, meta, generated_at, published_at, created_at, updated_at`

// Create inserts the timetable header row. Entries are inserted
// separately so both can share the caller's transaction.
func (r *TimetableRepository) Create(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error {
	if timetable.ID == "" {
		timetable.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	timetable.CreatedAt = now
	timetable.UpdatedAt = now

	const query = `INSERT INTO timetables (id, name, department, semester, academic_year, division, status, fitness_score, hard_conflicts, meta, generated_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := exec.ExecContext(ctx, query,
		timetable.ID, timetable.Name, timetable.Department, timetable.Semester,
		timetable.AcademicYear, timetable.Division, timetable.Status,
		timetable.FitnessScore, timetable.HardConflicts, timetable.Meta,
		timetable.GeneratedAt, timetable.CreatedAt, timetable.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert timetable: %w", err)
	}
	return nil
}

// InsertEntries persists the schedule entries of a timetable.
func (r *TimetableRepository) InsertEntries(ctx context.Context, exec sqlx.ExtContext, timetableID string, entries []models.ScheduleEntry) error {
	const query = `INSERT INTO schedule_entries (id, timetable_id, course_code, course_name, faculty_id, faculty_name, room_id, room_number, day, time_slot_id, start_time, end_time, duration, session_type, student_group)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	for i := range entries {
		e := &entries[i]
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		e.TimetableID = timetableID
		_, err := exec.ExecContext(ctx, query,
			e.ID, e.TimetableID, e.CourseCode, e.CourseName, e.FacultyID, e.FacultyName,
			e.RoomID, e.RoomNumber, e.Day, e.TimeSlotID, e.StartTime, e.EndTime,
			e.Duration, e.SessionType, e.StudentGroup)
		if err != nil {
			return fmt.Errorf("insert schedule entry %s: %w", e.CourseCode, err)
		}
	}
	return nil
}

// FindByID loads a timetable header by id.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetables WHERE id = $1`, timetableColumns)
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, id); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// ListEntries returns the schedule entries of a timetable ordered for
// display: by day insertion order is not stable, so order by slot.
func (r *TimetableRepository) ListEntries(ctx context.Context, timetableID string) ([]models.ScheduleEntry, error) {
	const query = `SELECT id, timetable_id, course_code, course_name, faculty_id, faculty_name, room_id, room_number, day, time_slot_id, start_time, end_time, duration, session_type, student_group
		FROM schedule_entries WHERE timetable_id = $1 ORDER BY day, time_slot_id, course_code`
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, timetableID); err != nil {
		return nil, fmt.Errorf("list schedule entries: %w", err)
	}
	return entries, nil
}

// List returns timetable headers matching the filter, newest first.
func (r *TimetableRepository) List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, error) {
	conditions := []string{}
	args := []interface{}{}

	if filter.Department != "" {
		args = append(args, filter.Department)
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)))
	}
	if filter.Semester > 0 {
		args = append(args, filter.Semester)
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)))
	}
	if filter.AcademicYear != "" {
		args = append(args, filter.AcademicYear)
		conditions = append(conditions, fmt.Sprintf("academic_year = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM timetables`, timetableColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 50
	}
	args = append(args, pageSize)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	if filter.Page > 1 {
		args = append(args, (filter.Page-1)*pageSize)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var timetables []models.Timetable
	if err := r.db.SelectContext(ctx, &timetables, query, args...); err != nil {
		return nil, fmt.Errorf("list timetables: %w", err)
	}
	return timetables, nil
}

// FindPublished returns the currently published timetable of a
// department and semester, if any.
func (r *TimetableRepository) FindPublished(ctx context.Context, department string, semester int) (*models.Timetable, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetables WHERE department = $1 AND semester = $2 AND status = $3 ORDER BY published_at DESC LIMIT 1`, timetableColumns)
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, department, semester, models.TimetableStatusPublished); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// UpdateStatus moves a timetable through its lifecycle. Publishing also
// stamps published_at.
func (r *TimetableRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableStatus) error {
	now := time.Now().UTC()
	var err error
	if status == models.TimetableStatusPublished {
		const query = `UPDATE timetables SET status = $2, published_at = $3, updated_at = $3 WHERE id = $1`
		_, err = exec.ExecContext(ctx, query, id, status, now)
	} else {
		const query = `UPDATE timetables SET status = $2, updated_at = $3 WHERE id = $1`
		_, err = exec.ExecContext(ctx, query, id, status, now)
	}
	if err != nil {
		return fmt.Errorf("update timetable status: %w", err)
	}
	return nil
}

// ArchivePublished demotes any published timetable of the scope to
// ARCHIVED so a newly published one becomes the single source of truth.
func (r *TimetableRepository) ArchivePublished(ctx context.Context, exec sqlx.ExtContext, department string, semester int) error {
	const query = `UPDATE timetables SET status = $3, updated_at = $4 WHERE department = $1 AND semester = $2 AND status = $5`
	_, err := exec.ExecContext(ctx, query, department, semester, models.TimetableStatusArchived, time.Now().UTC(), models.TimetableStatusPublished)
	if err != nil {
		return fmt.Errorf("archive published timetables: %w", err)
	}
	return nil
}

// Delete removes a timetable and its entries.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete timetable: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_entries WHERE timetable_id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM timetables WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	return tx.Commit()
}
